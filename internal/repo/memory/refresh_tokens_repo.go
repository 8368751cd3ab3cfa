package memory

import (
	"context"
	"sync"
	"time"

	"github.com/geocoder89/housepoints/internal/auth"
)

type RefreshTokensRepo struct {
	mu   sync.Mutex
	rows map[string]auth.RefreshToken
}

func NewRefreshTokensRepo() *RefreshTokensRepo {
	return &RefreshTokensRepo{rows: make(map[string]auth.RefreshToken)}
}

func (r *RefreshTokensRepo) Create(_ context.Context, row auth.RefreshToken) error {
	r.mu.Lock()
	r.rows[row.ID] = row
	r.mu.Unlock()
	return nil
}

func (r *RefreshTokensRepo) Get(_ context.Context, id string) (auth.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	row, ok := r.rows[id]
	if !ok {
		return auth.RefreshToken{}, auth.ErrRefreshTokenNotFound
	}
	return row, nil
}

func (r *RefreshTokensRepo) Rotate(_ context.Context, oldID, presentedHash string, next auth.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	row, ok := r.rows[oldID]
	if !ok {
		return auth.ErrRefreshTokenNotFound
	}

	now := time.Now().UTC()
	if err := row.CheckRotatable(presentedHash, now); err != nil {
		return err
	}

	row.RevokedAt = &now
	row.ReplacedBy = &next.ID
	r.rows[oldID] = row
	r.rows[next.ID] = next

	return nil
}

func (r *RefreshTokensRepo) Revoke(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	row, ok := r.rows[id]
	if !ok || row.RevokedAt != nil {
		return nil
	}

	now := time.Now().UTC()
	row.RevokedAt = &now
	r.rows[id] = row

	return nil
}

func (r *RefreshTokensRepo) RevokeAllForUser(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	for id, row := range r.rows {
		if row.UserID != userID || row.RevokedAt != nil {
			continue
		}
		row.RevokedAt = &now
		r.rows[id] = row
	}

	return nil
}
