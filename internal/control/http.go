package control

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/loqalabs/loqa-dictate/internal/pipeline"
	"github.com/loqalabs/loqa-dictate/internal/session"
)

var httpActions = map[string]bool{
	ActionStart:   true,
	ActionStop:    true,
	ActionToggle:  true,
	ActionPress:   true,
	ActionRelease: true,
	ActionCancel:  true,
}

// Routes registers the recording endpoints on mux.
func Routes(mux *http.ServeMux, c Controller, log *slog.Logger) {
	log = log.With(slog.String("component", "control"))

	mux.HandleFunc("GET /v1/recording", func(w http.ResponseWriter, _ *http.Request) {
		s := c.State()
		WriteJSON(w, http.StatusOK, reply("", session.EffectNone, s, nil))
	})

	mux.HandleFunc("POST /v1/recording/{action}", func(w http.ResponseWriter, r *http.Request) {
		action := strings.ToLower(r.PathValue("action"))
		if !httpActions[action] {
			WriteJSON(w, http.StatusNotFound, map[string]string{"error": "unknown action " + action})
			return
		}
		requestID := r.Header.Get("X-Request-ID")
		effect, s, err := c.Dispatch(action)
		status := http.StatusOK
		if err != nil {
			status = http.StatusInternalServerError
			if errors.Is(err, pipeline.ErrNotRunning) {
				status = http.StatusServiceUnavailable
			}
			log.Warn("recording action failed", slog.String("action", action), slog.String("error", err.Error()))
		}
		WriteJSON(w, status, reply(requestID, effect, s, err))
	})
}

// WriteJSON writes v as the response body with status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
