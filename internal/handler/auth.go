package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/event-board/internal/apperror"
	"github.com/sakif/event-board/internal/auth"
	"github.com/sakif/event-board/internal/model"
	"github.com/sakif/event-board/internal/service"
)

// AuthHandler handles login, logout and profile endpoints.
//
// AUTH FLOW:
//  1. The SPA obtains a Google access token and POSTs it to /api/login/accessToken.
//  2. We verify it with the provider, upsert the user and store the token in a
//     signed access_token cookie.
//  3. On later requests auth.ProviderSession re-verifies that token.
//
// Admins skip the provider: /api/admin/login checks a bcrypt hash and sets
// the signed admin and admin_userinfo cookies.
type AuthHandler struct {
	auth    *service.AuthService
	codec   *auth.SessionCodec
	cookies auth.CookieConfig
	logger  *slog.Logger
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(svc *service.AuthService, codec *auth.SessionCodec, cookies auth.CookieConfig, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		auth:    svc,
		codec:   codec,
		cookies: cookies,
		logger:  logger,
	}
}

type accessTokenRequest struct {
	AccessToken string `json:"access_token"`
}

type adminLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type profileResponse struct {
	Sub     string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
	IsAdmin bool   `json:"isAdmin"`
}

// userProfileResponse flattens the stored user next to its role. A nil User
// leaves only the role.
type userProfileResponse struct {
	*model.User
	Role string `json:"role"`
}

// HandleAccessTokenLogin exchanges a provider access token for a session.
//
// HTTP: POST /api/login/accessToken {"access_token": "..."} → 204
func (h *AuthHandler) HandleAccessTokenLogin(w http.ResponseWriter, r *http.Request) {
	var req accessTokenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.logger.Debug("invalid login JSON", slog.String("error", err.Error()))
	}

	if _, err := h.auth.LoginWithAccessToken(r.Context(), req.AccessToken); err != nil {
		writeError(w, err)
		return
	}

	token, err := h.codec.IssueAccessToken(req.AccessToken)
	if err != nil {
		h.logger.Error("failed to sign session", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}
	h.cookies.Set(w, auth.CookieAccessToken, token)
	w.WriteHeader(http.StatusNoContent)
}

// HandleAdminLogin checks admin credentials and sets the admin cookies.
//
// HTTP: POST /api/admin/login {"email": "...", "password": "..."} → 204
func (h *AuthHandler) HandleAdminLogin(w http.ResponseWriter, r *http.Request) {
	var req adminLoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.logger.Debug("invalid admin login JSON", slog.String("error", err.Error()))
	}

	id, err := h.auth.AdminLogin(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	marker, err := h.codec.IssueAdmin(id.Sub)
	if err != nil {
		h.logger.Error("failed to sign admin marker", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}
	userinfo, err := h.codec.IssueAdminUserinfo(*id)
	if err != nil {
		h.logger.Error("failed to sign admin userinfo", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	h.cookies.Set(w, auth.CookieAdmin, marker)
	h.cookies.Set(w, auth.CookieAdminUserinfo, userinfo)
	w.WriteHeader(http.StatusNoContent)
}

// HandleLogout clears every session cookie.
//
// HTTP: POST /api/logout → 204
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	h.cookies.ClearAll(w)
	w.WriteHeader(http.StatusNoContent)
}

// HandleProfile returns the resolved identity.
//
// HTTP: GET /api/profile
func (h *AuthHandler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	sess := auth.SessionFromContext(r.Context())
	if !sess.Authenticated() {
		writeError(w, apperror.Unauthenticated())
		return
	}
	writeJSON(w, http.StatusOK, profileResponse{
		Sub:     sess.Identity.Sub,
		Email:   sess.Identity.Email,
		Name:    sess.Identity.Name,
		Picture: sess.Identity.Picture,
		IsAdmin: sess.Admin,
	})
}

// HandleUserProfile returns the stored account of the caller.
//
// HTTP: GET /api/user-profile
func (h *AuthHandler) HandleUserProfile(w http.ResponseWriter, r *http.Request) {
	sess := auth.SessionFromContext(r.Context())
	if !sess.Authenticated() {
		writeError(w, apperror.Unauthenticated())
		return
	}

	user, err := h.auth.UserProfile(r.Context(), sess.Identity.Sub)
	if err != nil {
		h.logger.Error("failed to load user profile", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, userProfileResponse{User: user, Role: user.Role()})
}
