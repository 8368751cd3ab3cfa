package auth

import (
	"errors"
	"time"
)

var (
	ErrRefreshTokenNotFound = errors.New("refresh token not found")
	ErrRefreshTokenRevoked  = errors.New("refresh token revoked")
	ErrRefreshTokenExpired  = errors.New("refresh token expired")
	ErrRefreshTokenMismatch = errors.New("refresh token hash mismatch")
)

// RefreshToken is the stored side of a refresh token; the raw token is never kept.
type RefreshToken struct {
	ID         string
	UserID     string
	TokenHash  string
	ExpiresAt  time.Time
	RevokedAt  *time.Time
	ReplacedBy *string
	CreatedAt  time.Time
}

// CheckRotatable reports why row cannot be exchanged for a new token, if at all.
func (row RefreshToken) CheckRotatable(presentedHash string, now time.Time) error {
	if row.RevokedAt != nil {
		return ErrRefreshTokenRevoked
	}
	if now.After(row.ExpiresAt) {
		return ErrRefreshTokenExpired
	}
	if row.TokenHash != presentedHash {
		return ErrRefreshTokenMismatch
	}
	return nil
}
