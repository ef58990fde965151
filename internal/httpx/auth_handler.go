package httpx

import (
	"net/http"

	"github.com/ariefcatur/go-warehouse-orders/internal/auth"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type AuthHandler struct {
	Auth *auth.Service
	Log  *zap.Logger
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

func (h *AuthHandler) Register(r chi.Router) {
	r.Post("/auth/login", h.login)
	r.Post("/auth/refresh_token", h.refresh)
	r.Post("/auth/logout", h.logout)
}

func (h *AuthHandler) RegisterProtected(r chi.Router) {
	r.Get("/auth/me", h.me)
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	var req loginReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.Log, err)
		return
	}
	sess, err := h.Auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	ok(w, http.StatusOK, "login successful", sess)
}

func (h *AuthHandler) refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.Log, err)
		return
	}
	sess, err := h.Auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	ok(w, http.StatusOK, "token refreshed", sess)
}

func (h *AuthHandler) logout(w http.ResponseWriter, r *http.Request) {
	var req refreshReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.Log, err)
		return
	}
	if err := h.Auth.Logout(r.Context(), req.RefreshToken); err != nil {
		writeError(w, h.Log, err)
		return
	}
	ok(w, http.StatusOK, "logged out", nil)
}

func (h *AuthHandler) me(w http.ResponseWriter, r *http.Request) {
	u, err := h.Auth.Me(r.Context(), GetClaims(r.Context()).UserID)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	ok(w, http.StatusOK, "current user", u)
}
