// Package actorctx carries the authenticated user through a request context.
package actorctx

import (
	"context"

	"github.com/geocoder89/housepoints/internal/domain/user"
)

type ctxKey string

const keyUser ctxKey = "actor_user"

func WithUser(ctx context.Context, u *user.User) context.Context {
	return context.WithValue(ctx, keyUser, u)
}

// UserFrom returns the acting user, or false for anonymous requests.
func UserFrom(ctx context.Context) (*user.User, bool) {
	u, ok := ctx.Value(keyUser).(*user.User)

	return u, ok && u != nil
}

func UserIDFrom(ctx context.Context) (string, bool) {
	u, ok := UserFrom(ctx)
	if !ok || u.ID == "" {
		return "", false
	}
	return u.ID, true
}
