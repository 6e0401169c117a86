package inbox

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/notifsync/pkg/identity"
	"github.com/dmitrymomot/notifsync/pkg/logger"
	"github.com/dmitrymomot/notifsync/pkg/notifications"
	"github.com/dmitrymomot/notifsync/pkg/requestid"
)

// DefaultHeartbeat is how often an idle event stream gets a keep-alive comment.
const DefaultHeartbeat = 25 * time.Second

// Handler exposes per-user Centers over HTTP.
type Handler struct {
	sessions  *Sessions
	parser    identity.TokenParser
	logger    *slog.Logger
	heartbeat time.Duration
	empty     Snapshot
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithHandlerLogger sets the handler logger.
func WithHandlerLogger(l *slog.Logger) HandlerOption {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithHeartbeat sets the keep-alive interval of event streams.
func WithHeartbeat(d time.Duration) HandlerOption {
	return func(h *Handler) {
		if d > 0 {
			h.heartbeat = d
		}
	}
}

// NewHandler serves Centers from sessions to callers identified by parser.
func NewHandler(sessions *Sessions, parser identity.TokenParser, opts ...HandlerOption) *Handler {
	h := &Handler{
		sessions:  sessions,
		parser:    parser,
		logger:    slog.Default(),
		heartbeat: DefaultHeartbeat,
		empty: Snapshot{State: notifications.State{
			Notifications: []notifications.Notification{},
		}},
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.With(logger.Component("inbox.http"))
	return h
}

// Router mounts the notification center API.
//
//	GET    /                 current snapshot
//	GET    /stream           snapshots and toasts as server-sent events
//	POST   /resync           reload list and unread count
//	POST   /read-all         mark every notification read
//	POST   /visit            record a visit to the notifications page
//	POST   /view             the list is on screen
//	DELETE /view             the list left the screen
//	POST   /{id}/read        mark one read
//	POST   /{id}/unread      mark one unread
//	DELETE /{id}             delete one
//	POST   /following/{uid}  the user now follows uid
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(requestid.Middleware)
	r.Use(identity.Middleware(h.parser, h.logger))

	r.Get("/", h.snapshot)
	r.Get("/stream", h.stream)

	r.Group(func(r chi.Router) {
		r.Use(h.requireUser)
		r.Post("/resync", h.withCenter(func(c *Center, r *http.Request) error {
			return c.Resync(r.Context())
		}))
		r.Post("/read-all", h.withCenter(func(c *Center, r *http.Request) error {
			return c.MarkAllRead(r.Context())
		}))
		r.Post("/visit", h.withCenter(func(c *Center, _ *http.Request) error {
			c.RecordVisit()
			return nil
		}))
		r.Post("/view", h.withCenter(func(c *Center, _ *http.Request) error {
			c.EnterNotificationsView()
			return nil
		}))
		r.Delete("/view", h.withCenter(func(c *Center, _ *http.Request) error {
			c.LeaveNotificationsView()
			return nil
		}))
		r.Post("/following/{senderID}", h.withCenter(func(c *Center, r *http.Request) error {
			c.MarkFollowingSender(chi.URLParam(r, "senderID"))
			return nil
		}))
		r.Post("/{id}/read", h.withCenter(func(c *Center, r *http.Request) error {
			return c.MarkRead(r.Context(), chi.URLParam(r, "id"))
		}))
		r.Post("/{id}/unread", h.withCenter(func(c *Center, r *http.Request) error {
			return c.MarkUnread(r.Context(), chi.URLParam(r, "id"))
		}))
		r.Delete("/{id}", h.withCenter(func(c *Center, r *http.Request) error {
			return c.Remove(r.Context(), chi.URLParam(r, "id"))
		}))
	})

	return r
}

func (h *Handler) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if identity.FromContext(r.Context()) == "" {
			h.fail(w, r, ErrIdentityRequired)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withCenter runs fn against the caller's Center and answers with the
// resulting snapshot. The optimistic state is kept even when fn fails.
func (h *Handler) withCenter(fn func(*Center, *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := h.sessions.Get(r.Context(), identity.FromContext(r.Context()))
		if err != nil {
			h.fail(w, r, err)
			return
		}
		if err := fn(c, r); err != nil {
			h.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, c.Snapshot())
	}
}

func (h *Handler) snapshot(w http.ResponseWriter, r *http.Request) {
	userID := identity.FromContext(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusOK, h.empty)
		return
	}

	c, err := h.sessions.Get(r.Context(), userID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c.Snapshot())
}

// stream sends the current snapshot, then every change and toast, until the
// client goes away or the Center is closed.
func (h *Handler) stream(w http.ResponseWriter, r *http.Request) {
	userID := identity.FromContext(r.Context())
	if userID == "" {
		h.fail(w, r, ErrIdentityRequired)
		return
	}
	c, err := h.sessions.Get(r.Context(), userID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	ctx := r.Context()
	updates := c.Subscribe(ctx)
	defer updates.Close()
	toasts := c.SubscribeToasts(ctx)
	defer toasts.Close()

	rc := http.NewResponseController(w)
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	send := func(event string, v any) bool {
		if err := writeEvent(w, event, v); err != nil {
			h.logger.LogAttrs(ctx, slog.LevelDebug, "event stream write failed", logger.Error(err))
			return false
		}
		return rc.Flush() == nil
	}

	if !send("snapshot", c.Snapshot()) {
		return
	}

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-updates.Receive():
			if !ok {
				return
			}
			if !send("snapshot", msg.Data) {
				return
			}
		case msg, ok := <-toasts.Receive():
			if !ok {
				return
			}
			if !send("toast", msg.Data) {
				return
			}
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil || rc.Flush() != nil {
				return
			}
		}
	}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.LogAttrs(r.Context(), slog.LevelError, "request failed",
			slog.String("path", r.URL.Path), logger.Error(err))
	}
	writeJSON(w, status, map[string]string{"error": http.StatusText(status)})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrIdentityRequired):
		return http.StatusUnauthorized
	case errors.Is(err, notifications.ErrNotificationNotFound):
		return http.StatusNotFound
	case errors.Is(err, notifications.ErrInvalidNotification):
		return http.StatusBadRequest
	case errors.Is(err, ErrCenterClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeEvent(w http.ResponseWriter, event string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	return err
}
