package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sago-labs/sago/internal/relay"
)

type chatHandler struct {
	relay  ChatRelay
	logger *slog.Logger
}

func newChatHandler(r ChatRelay, logger *slog.Logger) *chatHandler {
	return &chatHandler{relay: r, logger: logger}
}

type chatRequest struct {
	SessionKey    string `json:"sessionKey"`
	Username      string `json:"username"`
	AgentName     string `json:"agentName"`
	Message       string `json:"message"`
	ImageData     string `json:"imageData,omitempty"`
	ImageMimeType string `json:"imageMimeType,omitempty"`
}

func (req chatRequest) toRelay() relay.Request {
	return relay.Request{
		SessionKey:    req.SessionKey,
		Username:      req.Username,
		AgentName:     req.AgentName,
		Message:       req.Message,
		ImageData:     req.ImageData,
		ImageMimeType: req.ImageMimeType,
	}
}

type chatResponse struct {
	Reply string `json:"reply"`
}

// send handles synchronous chat: the full reply in one JSON response.
func (h *chatHandler) send(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}

	reply, err := h.relay.Send(r.Context(), req.toRelay())
	if err != nil {
		h.writeRelayError(w, r, err)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, chatResponse{Reply: reply})
}

// stream handles streaming chat over SSE. Request validation errors are
// still plain HTTP statuses; once the event stream is open, failures
// travel in-band as a terminal error event.
func (h *chatHandler) stream(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}
	relayReq := req.toRelay()
	if err := relayReq.Validate(); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	sse, err := newSSEWriter(w)
	if err != nil {
		writeError(w, h.logger, http.StatusInternalServerError, "streaming not supported")
		return
	}

	ctx := r.Context()
	_, err = h.relay.Stream(ctx, relayReq, func(ctx context.Context, delta string) error {
		return sse.delta(ctx, delta)
	})
	if err != nil {
		h.logger.Error("stream failed", "session", req.SessionKey, "error", err)
		// Client may already be gone; a failed error event is expected then.
		if writeErr := sse.error(ctx, err.Error()); writeErr != nil {
			h.logger.Debug("failed to send error event", "error", writeErr)
		}
		return
	}

	if err := sse.done(ctx); err != nil {
		h.logger.Debug("failed to send done event", "error", err)
	}
}

func (h *chatHandler) writeRelayError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, relay.ErrEmptyMessage), errors.Is(err, relay.ErrMissingSessionKey):
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
	case errors.Is(err, context.Canceled):
		// Client went away; nothing useful to write.
		h.logger.Debug("request canceled", "path", r.URL.Path)
	default:
		h.logger.Error("chat failed", "path", r.URL.Path, "error", err)
		writeJSON(w, h.logger, http.StatusInternalServerError, errorResponse{
			Error:   "failed to process chat message",
			Details: err.Error(),
		})
	}
}
