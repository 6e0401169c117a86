package main

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/notifsync/pkg/logger"
	"github.com/dmitrymomot/notifsync/pkg/notifications"
	"github.com/dmitrymomot/notifsync/pkg/requestid"
)

type sendRequest struct {
	UserIDs         []string `json:"user_ids"`
	Kind            string   `json:"kind"`
	SenderID        string   `json:"sender_id"`
	RelatedEntityID string   `json:"related_entity_id"`
	Message         string   `json:"message"`
}

type sendResponse struct {
	Sent []notifications.Notification `json:"sent"`
}

// producerRouter accepts notifications from trusted backends. It has no
// authentication and must only be reachable from the internal network.
func producerRouter(d *notifications.Dispatcher, log *slog.Logger) chi.Router {
	r := chi.NewRouter()
	r.Use(requestid.Middleware)
	r.Post("/", func(w http.ResponseWriter, r *http.Request) {
		var req sendRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest)
			return
		}
		if len(req.UserIDs) == 0 {
			writeError(w, http.StatusUnprocessableEntity)
			return
		}

		sent, err := d.SendToUsers(r.Context(), req.UserIDs, notifications.Notification{
			Kind:            notifications.ParseKind(req.Kind),
			SenderID:        req.SenderID,
			RelatedEntityID: req.RelatedEntityID,
			Message:         req.Message,
		})
		if err != nil {
			log.LogAttrs(r.Context(), slog.LevelError, "producer send failed",
				logger.Count(len(sent)), logger.Error(err))
			status := http.StatusInternalServerError
			if errors.Is(err, notifications.ErrInvalidNotification) {
				status = http.StatusUnprocessableEntity
			}
			writeError(w, status)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(sendResponse{Sent: sent})
	})
	return r
}

func writeError(w http.ResponseWriter, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": http.StatusText(status)})
}
