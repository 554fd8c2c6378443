package web

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/opoerator/drophub/internal/config"
	"github.com/opoerator/drophub/internal/errors"
	"github.com/opoerator/drophub/internal/hydrate"
)

// Handlers contains HTTP route handlers for the hook API.
type Handlers struct {
	agg     *hydrate.Aggregator
	cfg     *config.Config
	logger  *slog.Logger
	version string
}

// MessageRequest is the body of POST /hooks/message.
type MessageRequest struct {
	SessionKey string         `json:"session_key"`
	Channel    string         `json:"channel"`
	Text       string         `json:"text"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// ContextResponse is the JSON form of GET /context.
type ContextResponse struct {
	Prompt  string           `json:"prompt"`
	Context *hydrate.Context `json:"context"`
}

// HandleMessage handles POST /hooks/message, one inbound channel message.
// Responds 204 when there is nothing to send back.
func (h *Handlers) HandleMessage(w http.ResponseWriter, r *http.Request) {
	var req MessageRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		renderError(w, errors.NewInvalidRequest("invalid JSON body: "+err.Error()))
		return
	}
	if strings.TrimSpace(req.SessionKey) == "" {
		renderError(w, errors.NewInvalidRequest("session_key is required"))
		return
	}

	reply := h.agg.OnMessageReceived(r.Context(), hydrate.MessageEvent{
		SessionKey: req.SessionKey,
		Channel:    req.Channel,
		Text:       req.Text,
		Metadata:   req.Metadata,
	})
	if reply == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	h.logger.Debug("hook reply", "channel", req.Channel, "suppress", reply.Suppress)
	renderJSON(w, http.StatusOK, reply)
}

// HandleContext handles GET /context with the rendered prompt for a session.
// Clients asking for JSON also get the raw snapshot.
func (h *Handlers) HandleContext(w http.ResponseWriter, r *http.Request) {
	hc := h.agg.HydrateSession(r.Context(), r.URL.Query().Get("session_key"))
	prompt := h.agg.RenderPrompt(hc)

	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		renderJSON(w, http.StatusOK, ContextResponse{Prompt: prompt, Context: hc})
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(prompt))
}

// HandleHealth handles GET /healthz.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	renderJSON(w, http.StatusOK, map[string]any{
		"status":          "ok",
		"version":         h.version,
		"hub_configured":  h.agg.Configured(),
		"capture_enabled": h.cfg.CaptureEnabled,
	})
}
