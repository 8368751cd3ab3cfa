package item

import (
	"errors"
	"time"
)

// Item is an accordion entry on one page. NumericalValue is nil when no value was given.
type Item struct {
	ID             string    `json:"id"`
	PageIndex      int       `json:"pageIndex"`
	Title          string    `json:"title"`
	Content        string    `json:"content"`
	NumericalValue *float64  `json:"numericalValue"`
	CreatedBy      string    `json:"createdBy"`
	CreatedAt      time.Time `json:"createdAt"`
	LastModifiedBy string    `json:"lastModifiedBy"`
	LastModifiedAt time.Time `json:"lastModifiedAt"`
}

// Points is the value this item contributes to its page total.
func (i Item) Points() float64 {
	if i.NumericalValue == nil {
		return 0
	}
	return *i.NumericalValue
}

var (
	ErrNotFound   = errors.New("item not found")
	ErrEmptyTitle = errors.New("item title must not be empty")
)

type CreateRequest struct {
	Title          string   `json:"title" binding:"required,max=200"`
	Content        string   `json:"content" binding:"omitempty,max=5000"`
	NumericalValue *float64 `json:"numericalValue" binding:"omitempty,gte=0"`
}

// a full replace of the editable fields; id and createdAt are kept by the store.
type UpdateRequest struct {
	Title          string   `json:"title" binding:"required,max=200"`
	Content        string   `json:"content" binding:"omitempty,max=5000"`
	NumericalValue *float64 `json:"numericalValue" binding:"omitempty,gte=0"`
}
