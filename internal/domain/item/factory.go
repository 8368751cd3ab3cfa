package item

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

func NewFromCreateRequest(pageIndex int, req CreateRequest, authorID string) (Item, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return Item{}, ErrEmptyTitle
	}

	now := time.Now().UTC()

	return Item{
		ID:             uuid.NewString(),
		PageIndex:      pageIndex,
		Title:          title,
		Content:        strings.TrimSpace(req.Content),
		NumericalValue: copyValue(req.NumericalValue),
		CreatedBy:      authorID,
		CreatedAt:      now,
		LastModifiedBy: authorID,
		LastModifiedAt: now,
	}, nil
}

// Normalize trims text fields the same way creation does.
func (r UpdateRequest) Normalize() (UpdateRequest, error) {
	r.Title = strings.TrimSpace(r.Title)
	if r.Title == "" {
		return UpdateRequest{}, ErrEmptyTitle
	}

	r.Content = strings.TrimSpace(r.Content)
	r.NumericalValue = copyValue(r.NumericalValue)

	return r, nil
}

// Apply returns it with the request's fields replaced and the modification stamped.
func (r UpdateRequest) Apply(it Item, editorID string, at time.Time) Item {
	it.Title = r.Title
	it.Content = r.Content
	it.NumericalValue = copyValue(r.NumericalValue)
	it.LastModifiedBy = editorID
	it.LastModifiedAt = at
	return it
}

func copyValue(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
