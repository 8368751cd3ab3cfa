package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/geocoder89/housepoints/internal/auth"
	"github.com/geocoder89/housepoints/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RefreshTokensRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewRefreshTokensRepo(pool *pgxpool.Pool, prom *observability.Prom) *RefreshTokensRepo {
	return &RefreshTokensRepo{pool: pool, prom: prom}
}

// execer is satisfied by both *pgxpool.Pool and pgx.Tx.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func insertRefreshToken(ctx context.Context, q execer, row auth.RefreshToken) error {
	_, err := q.Exec(ctx,
		`INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at, revoked_at, replaced_by, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		row.ID, row.UserID, row.TokenHash, row.ExpiresAt, row.RevokedAt, row.ReplacedBy, row.CreatedAt,
	)
	return err
}

func (r *RefreshTokensRepo) Create(ctx context.Context, row auth.RefreshToken) error {
	return r.prom.ObserveDB("refresh_tokens.create", func() error {
		return insertRefreshToken(ctx, r.pool, row)
	})
}

func (r *RefreshTokensRepo) Get(ctx context.Context, id string) (auth.RefreshToken, error) {
	var row auth.RefreshToken

	err := r.prom.ObserveDB("refresh_tokens.get", func() error {
		return r.pool.QueryRow(ctx, `
			SELECT id, user_id, token_hash, expires_at, revoked_at, replaced_by, created_at
			FROM refresh_tokens
			WHERE id = $1
		`, id).Scan(
			&row.ID,
			&row.UserID,
			&row.TokenHash,
			&row.ExpiresAt,
			&row.RevokedAt,
			&row.ReplacedBy,
			&row.CreatedAt,
		)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return auth.RefreshToken{}, auth.ErrRefreshTokenNotFound
		}
		return auth.RefreshToken{}, err
	}

	return row, nil
}

// Rotate revokes oldID and stores next in one transaction. The old row is locked so two
// concurrent refreshes with the same token cannot both succeed.
func (r *RefreshTokensRepo) Rotate(ctx context.Context, oldID, presentedHash string, next auth.RefreshToken) error {
	return r.prom.ObserveDB("refresh_tokens.rotate", func() error {
		tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback(ctx) }()

		row, err := getForUpdate(ctx, tx, oldID)
		if err != nil {
			return err
		}

		if err := row.CheckRotatable(presentedHash, time.Now().UTC()); err != nil {
			return err
		}

		if _, err := tx.Exec(ctx,
			`UPDATE refresh_tokens SET revoked_at = NOW(), replaced_by = $2 WHERE id = $1`,
			oldID, next.ID,
		); err != nil {
			return err
		}

		if err := insertRefreshToken(ctx, tx, next); err != nil {
			return err
		}

		return tx.Commit(ctx)
	})
}

func getForUpdate(ctx context.Context, tx pgx.Tx, id string) (auth.RefreshToken, error) {
	var row auth.RefreshToken

	err := tx.QueryRow(ctx, `
		SELECT id, user_id, token_hash, expires_at, revoked_at, replaced_by, created_at
		FROM refresh_tokens
		WHERE id = $1
		FOR UPDATE
	`, id).Scan(
		&row.ID,
		&row.UserID,
		&row.TokenHash,
		&row.ExpiresAt,
		&row.RevokedAt,
		&row.ReplacedBy,
		&row.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return auth.RefreshToken{}, auth.ErrRefreshTokenNotFound
		}

		return auth.RefreshToken{}, err
	}

	return row, nil
}

// Revoke is idempotent; revoking an unknown or already revoked token is not an error.
func (r *RefreshTokensRepo) Revoke(ctx context.Context, id string) error {
	return r.prom.ObserveDB("refresh_tokens.revoke", func() error {
		_, err := r.pool.Exec(ctx, `
			UPDATE refresh_tokens
			SET revoked_at = NOW()
			WHERE id = $1 AND revoked_at IS NULL
		`, id)
		return err
	})
}

func (r *RefreshTokensRepo) RevokeAllForUser(ctx context.Context, userID string) error {
	return r.prom.ObserveDB("refresh_tokens.revoke_all", func() error {
		_, err := r.pool.Exec(ctx, `
			UPDATE refresh_tokens
			SET revoked_at = NOW()
			WHERE user_id = $1 AND revoked_at IS NULL
		`, userID)
		return err
	})
}
