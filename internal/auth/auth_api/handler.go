package auth_api

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"workshop-tickets/internal/auth"
	"workshop-tickets/internal/config"
	"workshop-tickets/internal/logger"
)

type Handler struct {
	Config *config.AuthConfig
	Cache  auth.TokenCache
	Logger logger.Log
}

func NewHandler(cfg *config.AuthConfig, cache auth.TokenCache, log logger.Log) *Handler {
	return &Handler{Config: cfg, Cache: cache, Logger: log}
}

// Login compares the presented shared secret and mints a session token,
// returned both in the body and as a cookie.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Secret string `json:"secret"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if h.Config.AdminSecret == "" ||
		subtle.ConstantTimeCompare([]byte(body.Secret), []byte(h.Config.AdminSecret)) != 1 {
		h.Logger.Warn("AUTH", "login rejected: wrong admin secret")
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	token, err := auth.IssueToken(h.Config.JWTSecret, h.Config.TokenTTL)
	if err != nil {
		h.Logger.Error("AUTH", fmt.Sprintf("token issue failed: %v", err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "token",
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.Config.TokenTTL.Seconds()),
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	})
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"token": token})
}

// Check reports the claims of a valid session, 401 otherwise.
func (h *Handler) Check(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.verifiedClaims(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"userId":    claims.UserID,
		"expiresAt": claims.ExpiresAt.Time,
	})
}

// Logout revokes the presented token until its natural expiry and
// clears the cookie. Logging out without a valid token still succeeds.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if claims, ok := h.verifiedClaims(r); ok && h.Cache != nil {
		until := time.Now().Add(h.Config.TokenTTL)
		if claims.ExpiresAt != nil {
			until = claims.ExpiresAt.Time
		}
		if err := h.Cache.Revoke(r.Context(), claims.ID, until); err != nil {
			h.Logger.Warn("AUTH", fmt.Sprintf("token revocation failed: %v", err))
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "token",
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	})
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("{}"))
}

func (h *Handler) verifiedClaims(r *http.Request) (*auth.Claims, bool) {
	tokenString, err := auth.ExtractToken(r)
	if err != nil {
		return nil, false
	}
	claims, err := auth.VerifyToken(h.Config.JWTSecret, tokenString)
	if err != nil {
		return nil, false
	}
	if h.Cache != nil {
		if revoked, err := h.Cache.IsRevoked(r.Context(), claims.ID); err != nil || revoked {
			return nil, false
		}
	}
	return claims, true
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
