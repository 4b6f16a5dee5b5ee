package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-accounts-api/internal/application/account"
	"github.com/go-accounts-api/internal/domain"
	"github.com/go-accounts-api/internal/pkg/validate"
	"github.com/go-accounts-api/internal/transport/http/middleware"
)

// AccountHandler handles registration, verification, login and identity endpoints.
type AccountHandler struct {
	svc account.Service
}

func NewAccountHandler(svc account.Service) *AccountHandler {
	return &AccountHandler{svc: svc}
}

func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	u, err := h.svc.Register(r.Context(), req)
	if err != nil {
		httpError(w, err)
		return
	}
	// The verification code travels by email only; the response carries just
	// the identity.
	writeJSON(w, http.StatusCreated, u)
}

func (h *AccountHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req domain.VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	res, err := h.svc.Verify(r.Context(), req.Username, req.Code)
	if err != nil {
		httpError(w, err)
		return
	}
	msg := "account verified"
	if res.AlreadyVerified {
		msg = "account already verified"
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: msg})
}

func (h *AccountHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	bearer, u, err := h.svc.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AuthEnvelope{AccessToken: bearer, TokenType: "bearer", User: u})
}

// Logout is stateless: tokens are self-contained and there is no revocation
// store, so the only effect is telling the client to discard its copy.
func (h *AccountHandler) Logout(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "logged out, discard your token"})
}

func (h *AccountHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	u, err := h.svc.CurrentUser(r.Context(), claims.Username)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}
