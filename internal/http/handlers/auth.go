package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/geocoder89/housepoints/internal/access"
	"github.com/geocoder89/housepoints/internal/auth"
	"github.com/geocoder89/housepoints/internal/config"
	"github.com/geocoder89/housepoints/internal/domain/page"
	"github.com/geocoder89/housepoints/internal/domain/user"
	"github.com/geocoder89/housepoints/internal/http/middlewares"
	"github.com/geocoder89/housepoints/internal/security"
	"github.com/gin-gonic/gin"
)

type UserReader interface {
	GetByUsername(ctx context.Context, username string) (user.User, error)
	GetByID(ctx context.Context, id string) (user.User, error)
}

type RefreshTokenStore interface {
	Create(ctx context.Context, row auth.RefreshToken) error
	Rotate(ctx context.Context, oldID, presentedHash string, next auth.RefreshToken) error
	Revoke(ctx context.Context, id string) error
	RevokeAllForUser(ctx context.Context, userID string) error
}

type AuthHandler struct {
	users        UserReader
	jwt          *auth.Manager
	refreshStore RefreshTokenStore
	catalog      page.Catalog
	cfg          config.Config
}

func NewAuthHandler(users UserReader, jwtManager *auth.Manager, refreshStore RefreshTokenStore, catalog page.Catalog, cfg config.Config) *AuthHandler {
	return &AuthHandler{
		users:        users,
		jwt:          jwtManager,
		refreshStore: refreshStore,
		catalog:      catalog,
		cfg:          cfg,
	}
}

type LoginRequest struct {
	Username string `json:"username" binding:"required,max=64"`
	Password string `json:"password" binding:"required,max=128"`
}

// SessionResponse is returned by login and refresh.
type SessionResponse struct {
	AccessToken string     `json:"accessToken"`
	User        *user.User `json:"user"`
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}
	// short timeout for DB lookup
	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	foundUser, err := h.users.GetByUsername(cctx, strings.TrimSpace(req.Username))
	if err != nil {
		if !errors.Is(err, user.ErrNotFound) {
			slog.Default().ErrorContext(cctx, "auth_user_lookup_failed", "err", err)
			RespondInternal(ctx, "Could not sign in")
			return
		}

		security.CheckPasswordForUnknownUser(req.Password)
		RespondUnAuthorized(ctx, "invalid_credentials", "Invalid username or password")
		return
	}

	if err := security.CheckPassword(foundUser.PasswordHash, req.Password); err != nil {
		RespondUnAuthorized(ctx, "invalid_credentials", "Invalid username or password")
		return
	}

	accessToken, err := h.jwt.GenerateAccessToken(foundUser)
	if err != nil {
		RespondInternal(ctx, "Could not generate access token")
		return
	}

	rawRefreshToken, jti, expiresAt, err := h.jwt.GenerateRefreshToken(foundUser)
	if err != nil {
		RespondInternal(ctx, "Could not generate refresh token")
		return
	}

	err = h.refreshStore.Create(cctx, auth.RefreshToken{
		ID:        jti,
		UserID:    foundUser.ID,
		TokenHash: h.jwt.HashRefreshToken(rawRefreshToken),
		ExpiresAt: expiresAt,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		slog.Default().ErrorContext(cctx, "auth_session_store_failed", "err", err)
		RespondInternal(ctx, "Could not create session")
		return
	}

	slog.Default().InfoContext(cctx, "auth_login", "user_id", foundUser.ID, "role", string(foundUser.Role))

	h.setRefreshCookie(ctx, rawRefreshToken, expiresAt)

	u := foundUser
	ctx.JSON(http.StatusOK, SessionResponse{AccessToken: accessToken, User: &u})
}

// Refresh exchanges the refresh cookie for a new access token. Role and page grants are
// re-read from the user store, and the rotated token keeps the session's original expiry.
func (h *AuthHandler) Refresh(ctx *gin.Context) {
	raw, err := ctx.Cookie(h.refreshCookieName())

	if err != nil || raw == "" {
		RespondUnAuthorized(ctx, "no_refresh", "Missing refresh token")
		return
	}

	claims, err := h.jwt.VerifyRefreshToken(raw)

	if err != nil || claims.ExpiresAt == nil {
		RespondUnAuthorized(ctx, "invalid_refresh", "Invalid refresh token")
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	current, err := h.users.GetByID(cctx, claims.UserID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			// the account is gone; its sessions go with it
			if rerr := h.refreshStore.RevokeAllForUser(cctx, claims.UserID); rerr != nil {
				slog.Default().ErrorContext(cctx, "auth_refresh_revoke_all_failed", "err", rerr)
			}
			RespondUnAuthorized(ctx, "invalid_refresh", "Invalid refresh token.")
			return
		}
		slog.Default().ErrorContext(cctx, "auth_refresh_user_lookup_failed", "err", err)
		RespondInternal(ctx, "Could not refresh session")
		return
	}
	session := &current

	newRaw, newJTI, newExpiresAt, err := h.jwt.GenerateRefreshTokenUntil(*session, claims.ExpiresAt.Time)
	if err != nil {
		RespondInternal(ctx, "Could not refresh session")
		return
	}

	err = h.refreshStore.Rotate(cctx, claims.JTI, h.jwt.HashRefreshToken(raw), auth.RefreshToken{
		ID:        newJTI,
		UserID:    session.ID,
		TokenHash: h.jwt.HashRefreshToken(newRaw),
		ExpiresAt: newExpiresAt,
		CreatedAt: time.Now().UTC(),
	})

	if err != nil {
		switch {
		case errors.Is(err, auth.ErrRefreshTokenExpired):
			RespondUnAuthorized(ctx, "expired_refresh", "Refresh token expired.")
		case errors.Is(err, auth.ErrRefreshTokenRevoked):
			// a rotated token came back: treat the chain as stolen and end every session of this user
			slog.Default().WarnContext(cctx, "auth_refresh_reuse_detected", "user_id", session.ID)
			if rerr := h.refreshStore.RevokeAllForUser(cctx, session.ID); rerr != nil {
				slog.Default().ErrorContext(cctx, "auth_refresh_revoke_all_failed", "err", rerr)
			}
			RespondUnAuthorized(ctx, "invalid_refresh", "Invalid refresh token.")
		case errors.Is(err, auth.ErrRefreshTokenNotFound),
			errors.Is(err, auth.ErrRefreshTokenMismatch):
			RespondUnAuthorized(ctx, "invalid_refresh", "Invalid refresh token.")
		default:
			slog.Default().ErrorContext(cctx, "auth_refresh_rotate_failed", "err", err)
			RespondInternal(ctx, "Could not refresh session")
		}
		return
	}

	accessToken, err := h.jwt.GenerateAccessToken(*session)
	if err != nil {
		RespondInternal(ctx, "Could not generate access token")
		return
	}

	h.setRefreshCookie(ctx, newRaw, newExpiresAt)

	ctx.JSON(http.StatusOK, SessionResponse{AccessToken: accessToken, User: session})
}

func (h *AuthHandler) Logout(ctx *gin.Context) {
	raw, err := ctx.Cookie(h.refreshCookieName())

	if err != nil || raw == "" {
		h.clearRefreshCookie(ctx)
		ctx.Status(http.StatusNoContent)
		return
	}

	claims, err := h.jwt.VerifyRefreshToken(raw)
	if err != nil {
		h.clearRefreshCookie(ctx)
		ctx.Status(http.StatusNoContent)
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	// revoke that one token (idempotent)
	if err := h.refreshStore.Revoke(cctx, claims.JTI); err != nil {
		slog.Default().WarnContext(cctx, "auth_logout_revoke_failed", "err", err)
	}

	h.clearRefreshCookie(ctx)
	ctx.Status(http.StatusNoContent)
}

// Me describes the current session, including the pages it may edit.
func (h *AuthHandler) Me(ctx *gin.Context) {
	u, ok := middlewares.UserFromContext(ctx)
	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"user":          u,
		"editablePages": access.EditablePageIndices(u, h.catalog),
	})
}

func (h *AuthHandler) refreshCookieName() string {
	return "refresh_token"
}

func (h *AuthHandler) setRefreshCookie(ctx *gin.Context, raw string, expiresAt time.Time) {
	secure := h.cfg.Env == "prod"

	maxAge := int(time.Until(expiresAt).Seconds())

	ctx.SetSameSite(http.SameSiteStrictMode)

	ctx.SetCookie(
		h.refreshCookieName(),
		raw,
		maxAge,
		"/auth",
		"",
		secure,
		true, // HttpOnly.
	)
}

func (h *AuthHandler) clearRefreshCookie(ctx *gin.Context) {
	secure := h.cfg.Env == "prod"
	ctx.SetSameSite(http.SameSiteStrictMode)
	ctx.SetCookie(
		h.refreshCookieName(),
		"",
		-1,
		"/auth",
		"",
		secure,
		true,
	)
}
