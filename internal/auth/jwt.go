package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/geocoder89/housepoints/internal/domain/user"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrInvalidTokenType = errors.New("invalid token type")
)

// Claims carry the user's role and page grants as of the last login or refresh.
type Claims struct {
	UserID        string `json:"sub"`
	Username      string `json:"username"`
	Role          string `json:"role"`
	EditablePages []int  `json:"pages,omitempty"`
	TokenType     string `json:"typ"`
	JTI           string `json:"jti"`
	jwt.RegisteredClaims
}

// User rebuilds the session user from the claims.
func (c *Claims) User() *user.User {
	pages := make([]int, len(c.EditablePages))
	copy(pages, c.EditablePages)

	return &user.User{
		ID:            c.UserID,
		Username:      c.Username,
		Role:          user.Role(c.Role),
		EditablePages: pages,
	}
}

type Manager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewManager(secret string, accessTTL time.Duration, refreshTTL time.Duration) *Manager {
	return &Manager{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

func (m *Manager) claimsFor(u user.User, tokenType, jti string, now, expiresAt time.Time) Claims {
	return Claims{
		UserID:        u.ID,
		Username:      u.Username,
		Role:          string(u.Role),
		EditablePages: u.EditablePages,
		TokenType:     tokenType,
		JTI:           jti,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			Subject:   u.ID,
		},
	}
}

func (m *Manager) GenerateAccessToken(u user.User) (string, error) {
	now := time.Now().UTC()

	claims := m.claimsFor(u, tokenTypeAccess, uuid.NewString(), now, now.Add(m.accessTTL))

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// GenerateRefreshToken opens a session lasting the refresh TTL.
func (m *Manager) GenerateRefreshToken(u user.User) (raw string, jti string, expiresAt time.Time, err error) {
	return m.GenerateRefreshTokenUntil(u, time.Now().UTC().Add(m.refreshTTL))
}

// GenerateRefreshTokenUntil issues a refresh token that ends with the session it rotates,
// so rotation never extends a session past the login's refresh TTL.
func (m *Manager) GenerateRefreshTokenUntil(u user.User, sessionEnd time.Time) (raw string, jti string, expiresAt time.Time, err error) {
	now := time.Now().UTC()
	jti = uuid.NewString()
	expiresAt = sessionEnd.UTC()

	claims := m.claimsFor(u, tokenTypeRefresh, jti, now, expiresAt)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	raw, err = token.SignedString(m.secret)

	return
}

func (m *Manager) ParseAndValidate(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		// Enforce HS256
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	})

	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)

	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

func (m *Manager) VerifyAccessToken(tokenStr string) (*Claims, error) {
	claims, err := m.ParseAndValidate(tokenStr)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != tokenTypeAccess {
		return nil, ErrInvalidTokenType
	}
	return claims, nil
}

func (m *Manager) VerifyRefreshToken(tokenStr string) (*Claims, error) {
	claims, err := m.ParseAndValidate(tokenStr)

	if err != nil {
		return nil, err
	}

	if claims.TokenType != tokenTypeRefresh {
		return nil, ErrInvalidTokenType
	}

	if claims.JTI == "" {
		return nil, errors.New("missing jti")
	}

	return claims, nil
}

// Deterministic HMAC hash (server-side pepper = JWT secret bytes).
// Store this in DB (never store raw refresh token).
func (m *Manager) HashRefreshToken(raw string) string {
	h := hmac.New(sha256.New, m.secret)
	h.Write([]byte(raw))
	return hex.EncodeToString(h.Sum(nil))
}
