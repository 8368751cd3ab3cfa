package item

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoints(t *testing.T) {
	v := 4.5

	assert.Equal(t, 4.5, Item{NumericalValue: &v}.Points())
	assert.Equal(t, 0.0, Item{}.Points())
}

func TestNewFromCreateRequest(t *testing.T) {
	v := 3.0
	req := CreateRequest{Title: "  Chess club win ", Content: " notes \n", NumericalValue: &v}

	it, err := NewFromCreateRequest(2, req, "user-1")
	require.NoError(t, err)

	assert.NotEmpty(t, it.ID)
	assert.Equal(t, 2, it.PageIndex)
	assert.Equal(t, "Chess club win", it.Title)
	assert.Equal(t, "notes", it.Content)
	assert.Equal(t, 3.0, it.Points())
	assert.Equal(t, "user-1", it.CreatedBy)
	assert.Equal(t, "user-1", it.LastModifiedBy)
	assert.Equal(t, it.CreatedAt, it.LastModifiedAt)

	// the item keeps its own copy of the value
	v = 99
	assert.Equal(t, 3.0, it.Points())
}

func TestNewFromCreateRequest_BlankTitle(t *testing.T) {
	_, err := NewFromCreateRequest(0, CreateRequest{Title: "   "}, "u")

	assert.ErrorIs(t, err, ErrEmptyTitle)
}

func TestUpdateRequest_NormalizeAndApply(t *testing.T) {
	created := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	orig := Item{ID: "i1", PageIndex: 1, Title: "old", CreatedBy: "a", CreatedAt: created}

	v := 7.0
	req, err := UpdateRequest{Title: " new ", Content: " body ", NumericalValue: &v}.Normalize()
	require.NoError(t, err)

	at := created.Add(time.Hour)
	got := req.Apply(orig, "b", at)

	assert.Equal(t, "i1", got.ID)
	assert.Equal(t, 1, got.PageIndex)
	assert.Equal(t, created, got.CreatedAt)
	assert.Equal(t, "new", got.Title)
	assert.Equal(t, "body", got.Content)
	assert.Equal(t, 7.0, got.Points())
	assert.Equal(t, "b", got.LastModifiedBy)
	assert.Equal(t, at, got.LastModifiedAt)
}

func TestUpdateRequest_NormalizeBlankTitle(t *testing.T) {
	_, err := UpdateRequest{Title: "\t"}.Normalize()

	assert.ErrorIs(t, err, ErrEmptyTitle)
}
