package app

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/paul-minniti/XPoster/internal/generator"
	"github.com/paul-minniti/XPoster/internal/settings"
	apperrors "github.com/paul-minniti/XPoster/pkg/errors"
	"github.com/paul-minniti/XPoster/pkg/logger"
)

const adminRequestTimeout = 20 * time.Second

// adminServer exposes the settings surface on the same listener as /healthz:
// reading what is configured, saving the credential and system prompt, and
// probing a key against the provider before committing to it.
type adminServer struct {
	logger    logger.Logger
	settings  *settings.Service
	generator generator.Client
}

func newAdminMux(log logger.Logger, svc *settings.Service, gen generator.Client) *http.ServeMux {
	a := &adminServer{
		logger:    log.WithComponent("Admin"),
		settings:  svc,
		generator: gen,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		healthCheckHandler(w, r, log)
	})
	mux.HandleFunc("/settings", a.handleSettings)
	mux.HandleFunc("/settings/api-key", a.handleAPIKey)
	mux.HandleFunc("/settings/system-prompt", a.handleSystemPrompt)
	mux.HandleFunc("/settings/test", a.handleTest)
	return mux
}

func (a *adminServer) handleSettings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), adminRequestTimeout)
	defer cancel()

	current, err := a.settings.Load(ctx)
	if err != nil {
		a.logger.Error("Failed to load settings", "error", err)
		http.Error(w, "failed to load settings", http.StatusInternalServerError)
		return
	}

	// The credential is never echoed back, only whether one is set.
	writeJSON(w, http.StatusOK, map[string]any{
		"hasApiKey":    current.APIKey != "",
		"systemPrompt": current.SystemPrompt,
	})
}

func (a *adminServer) handleAPIKey(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var body struct {
		APIKey string `json:"apiKey"`
	}
	if err := decodeBody(r, &body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), adminRequestTimeout)
	defer cancel()

	if err := a.settings.SaveAPIKey(ctx, body.APIKey); err != nil {
		if apperrors.IsConfig(err) {
			writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": apperrors.GetMessage(err)})
			return
		}
		a.logger.Error("Failed to save API key", "error", err)
		http.Error(w, "failed to save API key", http.StatusInternalServerError)
		return
	}

	a.logger.Info("API key updated", "cleared", body.APIKey == "")
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (a *adminServer) handleSystemPrompt(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var body struct {
		SystemPrompt string `json:"systemPrompt"`
	}
	if err := decodeBody(r, &body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), adminRequestTimeout)
	defer cancel()

	if err := a.settings.SaveSystemPrompt(ctx, body.SystemPrompt); err != nil {
		a.logger.Error("Failed to save system prompt", "error", err)
		http.Error(w, "failed to save system prompt", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// handleTest probes the given key, or the stored one when the body carries
// none, against the provider's models endpoint.
func (a *adminServer) handleTest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var body struct {
		APIKey string `json:"apiKey"`
	}
	if err := decodeBody(r, &body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), adminRequestTimeout)
	defer cancel()

	credential := body.APIKey
	if credential == "" {
		current, err := a.settings.Load(ctx)
		if err != nil {
			a.logger.Error("Failed to load settings", "error", err)
			http.Error(w, "failed to load settings", http.StatusInternalServerError)
			return
		}
		credential = current.APIKey
	}
	if credential == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "API key is not configured"})
		return
	}

	if err := a.generator.TestConnection(ctx, credential); err != nil {
		status := http.StatusBadGateway
		switch {
		case apperrors.IsAuth(err):
			status = http.StatusUnauthorized
		case apperrors.IsRateLimited(err):
			status = http.StatusTooManyRequests
		}
		writeJSON(w, status, map[string]any{"success": false, "error": apperrors.GetMessage(err)})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func decodeBody(r *http.Request, out any) error {
	err := json.NewDecoder(r.Body).Decode(out)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
