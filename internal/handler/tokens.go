package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/museum-staffing/shift-manager/backend/internal/cache"
	"github.com/museum-staffing/shift-manager/backend/internal/domain"
)

const (
	tokenAccess  = "access"
	tokenRefresh = "refresh"
)

var errInvalidToken = errors.New("token is invalid or expired")

type AuthClaims struct {
	Role      domain.Role `json:"role"`
	TokenType string      `json:"token_type"`
	jwt.RegisteredClaims
}

type tokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

func (h *Handler) signToken(user *domain.User, tokenType string, ttl time.Duration) (string, error) {
	now := h.now()
	claims := AuthClaims{
		Role:      user.Role,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(h.config.JWT.Secret))
}

func (h *Handler) issueTokenPair(user *domain.User) (*tokenPair, error) {
	access, err := h.signToken(user, tokenAccess, time.Duration(h.config.JWT.AccessExpiration)*time.Second)
	if err != nil {
		return nil, err
	}
	refresh, err := h.signToken(user, tokenRefresh, time.Duration(h.config.JWT.RefreshExpiration)*time.Second)
	if err != nil {
		return nil, err
	}
	return &tokenPair{Access: access, Refresh: refresh}, nil
}

// parseToken verifies the signature, the expiry and the token type.
func (h *Handler) parseToken(tokenString, tokenType string) (*AuthClaims, error) {
	claims := &AuthClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return []byte(h.config.JWT.Secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired(), jwt.WithTimeFunc(h.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidToken, err)
	}
	if claims.TokenType != tokenType {
		return nil, errInvalidToken
	}
	return claims, nil
}

func (h *Handler) ObtainTokenPair(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	user, ok := h.authenticate(w, r, req)
	if !ok {
		return
	}

	pair, err := h.issueTokenPair(user)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "token pair issued", pair)
}

func (h *Handler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Refresh string `json:"refresh" validate:"required"`
	}
	if err := h.readAndValidate(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	claims, err := h.parseToken(req.Refresh, tokenRefresh)
	if err != nil {
		h.errorResponse(w, r, http.StatusUnauthorized, "token is invalid or expired")
		return
	}

	revoked, err := h.tokenRevoked(r.Context(), claims)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	if revoked {
		h.errorResponse(w, r, http.StatusUnauthorized, "token has been revoked")
		return
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		h.errorResponse(w, r, http.StatusUnauthorized, "token is invalid or expired")
		return
	}
	user, err := h.store.GetUserByID(userID)
	if err != nil || !user.IsActive {
		h.errorResponse(w, r, http.StatusUnauthorized, "user not found or inactive")
		return
	}

	access, err := h.signToken(user, tokenAccess, time.Duration(h.config.JWT.AccessExpiration)*time.Second)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "token refreshed", map[string]string{"access": access})
}

// tokenRevoked consults the cache first and falls back to the blacklist table,
// which stays authoritative when the cache is cleared or evicted.
func (h *Handler) tokenRevoked(ctx context.Context, claims *AuthClaims) (bool, error) {
	var revoked bool
	found, err := h.cache.Get(ctx, cache.BlacklistKey(claims.ID), &revoked)
	if err != nil {
		slog.Warn("failed to read token blacklist cache", "jti", claims.ID, "error", err)
	}
	if found {
		return true, nil
	}

	revoked, err = h.store.IsTokenBlacklisted(claims.ID)
	if err != nil {
		return false, err
	}
	if revoked {
		if ttl := claims.ExpiresAt.Sub(h.now()); ttl > 0 {
			if err := h.cache.Set(ctx, cache.BlacklistKey(claims.ID), true, ttl); err != nil {
				slog.Warn("failed to cache revoked token", "jti", claims.ID, "error", err)
			}
		}
	}
	return revoked, nil
}

// TokenLogout blacklists the refresh token until it would have expired.
// Access tokens already issued stay valid until their own expiry.
func (h *Handler) TokenLogout(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Refresh string `json:"refresh"`
	}
	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if req.Refresh == "" {
		h.errorResponse(w, r, http.StatusBadRequest, "refresh token is required")
		return
	}

	claims, err := h.parseToken(req.Refresh, tokenRefresh)
	if err != nil {
		h.errorResponse(w, r, http.StatusBadRequest, "refresh token is invalid or expired")
		return
	}

	userID, _ := strconv.ParseInt(claims.Subject, 10, 64)
	if err := h.store.BlacklistToken(claims.ID, userID, claims.ExpiresAt.Time); err != nil {
		h.internalServerError(w, r, err)
		return
	}
	if ttl := claims.ExpiresAt.Sub(h.now()); ttl > 0 {
		if err := h.cache.Set(r.Context(), cache.BlacklistKey(claims.ID), true, ttl); err != nil {
			slog.Warn("failed to cache revoked token", "jti", claims.ID, "error", err)
		}
	}

	h.successResponse(w, r, "logged out", nil)
}
