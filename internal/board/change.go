package board

import (
	"context"
	"time"
)

const (
	OpAdd    = "add"
	OpUpdate = "update"
	OpDelete = "delete"
)

// Change describes one item mutation. Subscribers use it as a signal to recompute.
type Change struct {
	Op        string    `json:"op"`
	PageIndex int       `json:"pageIndex"`
	ItemID    string    `json:"itemId"`
	ActorID   string    `json:"actorId"`
	At        time.Time `json:"at"`
}

type ChangeNotifier interface {
	Publish(ctx context.Context, c Change) error
}
