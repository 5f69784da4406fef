package controllers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/propnest/propnest-client/api/responses"
	"github.com/propnest/propnest-client/internal/app"
	"github.com/propnest/propnest-client/pkg/config"
	"github.com/propnest/propnest-client/pkg/enums"
	"github.com/propnest/propnest-client/pkg/logger"
)

const envHeader = "X-Propnest-Env"

// Pinger is a dependency the readiness probe checks, such as the cache
// database or the redis broadcaster.
type Pinger interface {
	Ping(ctx context.Context) error
}

// StatusSource reports the runtime state.
type StatusSource interface {
	Status() app.Status
}

type readyResponse struct {
	State   string            `json:"status"`
	Checks  map[string]string `json:"checks,omitempty"`
	Runtime app.Status        `json:"runtime"`
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports the runtime status. It answers 503 while a configured
// realtime connection is in the error state or a dependency fails its ping.
func HealthReady(cfg *config.Config, src StatusSource, pingers map[string]Pinger, logg *logger.Logger) http.HandlerFunc {
	names := make([]string, 0, len(pingers))
	for name := range pingers {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)

		resp := readyResponse{State: "ready", Runtime: src.Status()}
		healthy := !(resp.Runtime.RealtimeEnabled && resp.Runtime.Connection == enums.ConnectionStatusError)

		if len(names) > 0 {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			resp.Checks = make(map[string]string, len(names))
			for _, name := range names {
				if err := pingers[name].Ping(ctx); err != nil {
					healthy = false
					resp.Checks[name] = "unavailable"
					if logg != nil {
						logg.Warn(logg.WithFields(ctx, map[string]any{"dependency": name, "error": err.Error()}), "health.ping_failed")
					}
					continue
				}
				resp.Checks[name] = "ok"
			}
		}

		if !healthy {
			resp.State = "degraded"
			responses.WriteSuccessStatus(w, http.StatusServiceUnavailable, resp)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}
