package httpserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"maps"
	"net/http"
	"slices"
	"time"

	"github.com/dmitrymomot/notifsync/pkg/async"
	"github.com/dmitrymomot/notifsync/pkg/logger"
)

// Check probes one dependency.
type Check func(ctx context.Context) error

type healthReport struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// LivenessHandler answers 200 while the process serves requests.
func LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeReport(w, http.StatusOK, healthReport{Status: "alive"})
	}
}

// ReadinessHandler runs every check concurrently, each bounded by timeout,
// and answers 503 if any failed.
func ReadinessHandler(log *slog.Logger, timeout time.Duration, checks map[string]Check) http.HandlerFunc {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	names := slices.Sorted(maps.Keys(checks))

	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		futures := make([]*async.Future[struct{}], len(names))
		for i, name := range names {
			futures[i] = async.Async(ctx, checks[name], func(ctx context.Context, check Check) (struct{}, error) {
				return struct{}{}, check(ctx)
			})
		}

		report := healthReport{Status: "ready", Checks: make(map[string]string, len(names))}
		status := http.StatusOK
		for i, name := range names {
			if _, err := futures[i].Await(); err != nil {
				log.LogAttrs(ctx, slog.LevelError, "readiness check failed", slog.String("check", name), logger.Error(err))
				report.Checks[name] = err.Error()
				report.Status, status = "not_ready", http.StatusServiceUnavailable
				continue
			}
			report.Checks[name] = "ok"
		}
		writeReport(w, status, report)
	}
}

func writeReport(w http.ResponseWriter, status int, v healthReport) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
