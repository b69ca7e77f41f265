package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/LUCIFER14144/email-marketing-platform/internal/middleware"
	"github.com/LUCIFER14144/email-marketing-platform/internal/service"
)

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Register creates an account and signs it in
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Username and password are required")
		return
	}

	session, err := h.authSvc.Register(r.Context(), service.Credentials{
		Username:  req.Username,
		Password:  req.Password,
		IPAddress: middleware.ClientIP(r),
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUsernameAlreadyExists):
			writeError(w, http.StatusConflict, "Username already exists")
		case errors.Is(err, service.ErrInvalidUsername), errors.Is(err, service.ErrPasswordTooWeak):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			h.log.Error().Err(err).Msg("registration failed")
			writeError(w, http.StatusInternalServerError, "Registration failed")
		}
		return
	}

	h.setTokenCookie(w, session.Token.Token, time.Until(session.Token.ExpiresAt))
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"message": "Registration successful",
		"user":    session.User.Summary(),
		"token":   session.Token,
	})
}

// Login authenticates a user and sets the token cookie
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Username and password are required")
		return
	}

	session, err := h.authSvc.Login(r.Context(), service.Credentials{
		Username:  req.Username,
		Password:  req.Password,
		IPAddress: middleware.ClientIP(r),
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "Invalid username or password")
			return
		}
		h.log.Error().Err(err).Msg("login failed")
		writeError(w, http.StatusInternalServerError, "Login failed")
		return
	}

	h.setTokenCookie(w, session.Token.Token, time.Until(session.Token.ExpiresAt))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Login successful",
		"user":    session.User.Summary(),
		"token":   session.Token,
	})
}

// Logout clears the token cookie
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.authSvc.Logout(r.Context(), middleware.GetUserID(r.Context()))
	h.setTokenCookie(w, "", -1)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Logged out successfully",
	})
}

// Status reports whether the caller is signed in
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success":       true,
			"authenticated": false,
		})
		return
	}

	resp := map[string]interface{}{
		"success":       true,
		"authenticated": true,
	}
	if user, err := h.authSvc.User(r.Context(), userID); err == nil {
		resp["user"] = user.Summary()
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- Cookie helpers ---

// setTokenCookie writes the access token cookie. A negative ttl deletes it.
func (h *Handler) setTokenCookie(w http.ResponseWriter, token string, ttl time.Duration) {
	sameSite := http.SameSiteLaxMode
	switch strings.ToLower(h.cfg.Cookie.SameSite) {
	case "strict":
		sameSite = http.SameSiteStrictMode
	case "none":
		sameSite = http.SameSiteNoneMode
	}

	maxAge := int(ttl.Seconds())
	if ttl < 0 {
		maxAge = -1
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.TokenCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.cfg.Cookie.Secure,
		SameSite: sameSite,
	})
}
