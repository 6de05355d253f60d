package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/forgelabs/appforge/internal/auth"
)

// AuthHandler issues API tokens.
type AuthHandler struct {
	auth   *auth.Service
	logger *slog.Logger
}

// NewAuthHandler creates an auth handler.
func NewAuthHandler(authSvc *auth.Service, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{auth: authSvc, logger: logger}
}

type tokenRequest struct {
	Secret  string `json:"secret"`
	Subject string `json:"subject"`
}

// Token exchanges the configured shared secret for a signed JWT.
func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	if !h.auth.Enabled() {
		WriteBadRequest(w, "Authentication is not configured")
		return
	}

	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "Invalid request body")
		return
	}

	token, err := h.auth.IssueToken(req.Secret, req.Subject)
	if err != nil {
		h.logger.Warn("token issuance refused", "error", err)
		WriteUnauthorized(w, "Invalid secret")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"token": token})
}
