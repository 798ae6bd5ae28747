package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/sago-labs/sago/internal/relay"
)

type sessionHandler struct {
	logger *slog.Logger
}

func newSessionHandler(logger *slog.Logger) *sessionHandler {
	return &sessionHandler{logger: logger}
}

type createSessionRequest struct {
	Username  string `json:"username"`
	AgentName string `json:"agentName"`
}

type createSessionResponse struct {
	SessionKey string `json:"sessionKey"`
}

// create mints a fresh session key. No storage happens here; the row
// appears on the first chat turn that references the key.
func (h *sessionHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Username == "" || req.AgentName == "" {
		writeError(w, h.logger, http.StatusBadRequest, "username and agentName are required")
		return
	}

	key := relay.MintSessionKey(req.Username, req.AgentName, uuid.NewString())
	h.logger.Info("session created", "session", key, "agent", req.AgentName)

	writeJSON(w, h.logger, http.StatusOK, createSessionResponse{SessionKey: key})
}
