package memory

import (
	"context"
	"testing"
	"time"

	"github.com/geocoder89/housepoints/internal/auth"
	"github.com/geocoder89/housepoints/internal/domain/item"
	"github.com/geocoder89/housepoints/internal/domain/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newItem(id string, page int, at time.Time) item.Item {
	return item.Item{ID: id, PageIndex: page, Title: id, CreatedAt: at, LastModifiedAt: at}
}

func TestItemsRepo_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	r := NewItemsRepo()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	_, _ = r.Create(ctx, newItem("old", 0, base))
	_, _ = r.Create(ctx, newItem("new", 0, base.Add(time.Hour)))
	_, _ = r.Create(ctx, newItem("tie", 0, base.Add(time.Hour)))
	_, _ = r.Create(ctx, newItem("other", 1, base))

	list, err := r.ListByPage(ctx, 0)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"tie", "new", "old"}, []string{list[0].ID, list[1].ID, list[2].ID})

	grouped, err := r.ItemsByPage(ctx)
	require.NoError(t, err)
	assert.Len(t, grouped[0], 3)
	assert.Len(t, grouped[1], 1)
}

func TestItemsRepo_ScopedToPage(t *testing.T) {
	ctx := context.Background()
	r := NewItemsRepo()
	_, _ = r.Create(ctx, newItem("a", 2, time.Now()))

	_, err := r.Get(ctx, 3, "a")
	assert.ErrorIs(t, err, item.ErrNotFound)

	_, err = r.Update(ctx, 3, "a", item.UpdateRequest{Title: "x"}, "u1")
	assert.ErrorIs(t, err, item.ErrNotFound)

	assert.ErrorIs(t, r.Delete(ctx, 3, "a"), item.ErrNotFound)

	v := 4.0
	got, err := r.Update(ctx, 2, "a", item.UpdateRequest{Title: "renamed", NumericalValue: &v}, "u1")
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Title)
	assert.Equal(t, "u1", got.LastModifiedBy)
	assert.Equal(t, 4.0, got.Points())

	require.NoError(t, r.Delete(ctx, 2, "a"))
	assert.ErrorIs(t, r.Delete(ctx, 2, "a"), item.ErrNotFound)
}

func TestUsersRepo_UniqueUsername(t *testing.T) {
	ctx := context.Background()
	r := NewUsersRepo()

	_, err := r.Create(ctx, user.User{ID: "1", Username: "Alice", Role: user.RoleEditor, EditablePages: []int{2, 1, 2}})
	require.NoError(t, err)

	_, err = r.Create(ctx, user.User{ID: "2", Username: "alice", Role: user.RoleViewer})
	assert.ErrorIs(t, err, user.ErrUsernameTaken)

	u, err := r.GetByUsername(ctx, "ALICE")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, u.EditablePages)

	_, err = r.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, user.ErrNotFound)
}

func TestRefreshTokensRepo_Rotate(t *testing.T) {
	ctx := context.Background()
	r := NewRefreshTokensRepo()

	old := auth.RefreshToken{ID: "j1", UserID: "u1", TokenHash: "h1", ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, r.Create(ctx, old))

	next := auth.RefreshToken{ID: "j2", UserID: "u1", TokenHash: "h2", ExpiresAt: time.Now().Add(time.Hour)}

	assert.ErrorIs(t, r.Rotate(ctx, "j1", "wrong", next), auth.ErrRefreshTokenMismatch)
	require.NoError(t, r.Rotate(ctx, "j1", "h1", next))

	// reuse of a rotated token is refused
	assert.ErrorIs(t, r.Rotate(ctx, "j1", "h1", next), auth.ErrRefreshTokenRevoked)

	require.NoError(t, r.Revoke(ctx, "j2"))
	got, err := r.Get(ctx, "j2")
	require.NoError(t, err)
	assert.NotNil(t, got.RevokedAt)

	assert.ErrorIs(t, r.Rotate(ctx, "nope", "h", next), auth.ErrRefreshTokenNotFound)
}
