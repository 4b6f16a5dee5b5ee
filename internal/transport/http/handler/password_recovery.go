package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-accounts-api/internal/application/account"
	"github.com/go-accounts-api/internal/domain"
	"github.com/go-accounts-api/internal/pkg/validate"
	"github.com/go-chi/chi/v5"
)

// PasswordRecoveryHandler handles the two-step password reset flow.
type PasswordRecoveryHandler struct {
	svc account.Service
}

func NewPasswordRecoveryHandler(svc account.Service) *PasswordRecoveryHandler {
	return &PasswordRecoveryHandler{svc: svc}
}

func (h *PasswordRecoveryHandler) Action(w http.ResponseWriter, r *http.Request) {
	switch chi.URLParam(r, "action") {
	case "request":
		var req domain.ForgotPasswordRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := validate.Struct(&req); err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		if err := h.svc.ForgotPassword(r.Context(), req.Email); err != nil {
			httpError(w, err)
			return
		}
		// Identical body whether or not the address is registered.
		writeJSON(w, http.StatusOK, MessageEnvelope{Message: "if the email is registered, a recovery code has been sent"})
	case "reset":
		var req domain.ResetPasswordRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := validate.Struct(&req); err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		if err := h.svc.ResetPassword(r.Context(), req.Email, req.Code, req.NewPassword); err != nil {
			httpError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, MessageEnvelope{Message: "password updated"})
	default:
		writeError(w, http.StatusBadRequest, "unknown action")
	}
}
