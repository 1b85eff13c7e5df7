package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/DavidFlautero/felxeasy/internal/http/response"
	"github.com/DavidFlautero/felxeasy/internal/service"
)

// CredentialHandler serves the linked-account vault. Secrets only ever
// travel inbound; status responses carry a configured flag, nothing else.
type CredentialHandler struct {
	vault service.CredentialVault
}

func NewCredentialHandler(vault service.CredentialVault) *CredentialHandler {
	return &CredentialHandler{vault: vault}
}

type storeCredentialRequest struct {
	UserID   string `json:"user_id"`
	Provider string `json:"provider,omitempty"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *CredentialHandler) Store(w http.ResponseWriter, r *http.Request) {
	var req storeCredentialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
		return
	}
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "user_id is required", nil)
		return
	}

	err := h.vault.Store(r.Context(), userID, req.Provider, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCredentialIncomplete):
			response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "email and password are required", nil)
		case errors.Is(err, service.ErrVaultDisabled):
			response.Error(w, r, http.StatusServiceUnavailable, "VAULT_DISABLED", "credential vault is not configured", nil)
		default:
			response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to store credentials", nil)
		}
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]bool{"success": true})
}

func (h *CredentialHandler) Status(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
	if userID == "" {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "user_id is required", nil)
		return
	}

	status, err := h.vault.Status(r.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrVaultDisabled) {
			response.Error(w, r, http.StatusServiceUnavailable, "VAULT_DISABLED", "credential vault is not configured", nil)
			return
		}
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to read credential status", nil)
		return
	}
	response.JSON(w, r, http.StatusOK, status)
}

func (h *CredentialHandler) Clear(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
	if userID == "" {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "user_id is required", nil)
		return
	}

	if err := h.vault.Clear(r.Context(), userID); err != nil {
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to clear credentials", nil)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]bool{"success": true})
}
