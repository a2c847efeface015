package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"progenai/internal/domain"
	"progenai/internal/generation"
	"progenai/internal/infra"
	"progenai/internal/infra/credentials"
	"progenai/internal/notify"
	"progenai/internal/plugins"
	"progenai/internal/store"
	"progenai/internal/voice"
)

const maxBodyBytes = 1 << 20

// LocalSynthesizer is the translate-style speech endpoint behind /api/gtts.
type LocalSynthesizer interface {
	Synthesize(ctx context.Context, text, lang string) ([]byte, error)
}

// App carries the companion server's collaborators.
type App struct {
	Config        *infra.Config
	Logger        zerolog.Logger
	Engine        *generation.Engine
	Plugins       *plugins.Service
	Preferences   *store.Preferences
	Saved         *store.SavedPrompts
	Credentials   *credentials.Store
	Speech        *voice.OutputSession
	TTS           LocalSynthesizer
	Notifications *notify.Queue
	Now           func() time.Time
}

func (a *App) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, errorResponse{Code: code, Message: message})
}

// fail maps a core error onto an HTTP status.
func (a *App) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := http.StatusInternalServerError, "internal"
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrValidation):
		status, code = http.StatusBadRequest, "bad_request"
	case errors.Is(err, domain.ErrConfiguration):
		status, code = http.StatusServiceUnavailable, "configuration"
	case errors.Is(err, domain.ErrEnvironment):
		status, code = http.StatusServiceUnavailable, "environment"
	case errors.Is(err, domain.ErrUpstream), errors.Is(err, domain.ErrGeneration):
		status, code = http.StatusBadGateway, "upstream"
	case errors.Is(err, domain.ErrNetwork):
		status, code = http.StatusGatewayTimeout, "network"
	}
	msg := err.Error()
	var de *domain.Error
	if errors.As(err, &de) && de.Message != "" {
		msg = de.Message
	}
	if status >= http.StatusInternalServerError {
		a.Logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	a.error(w, status, code, msg)
}

func (a *App) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return false
	}
	return true
}
