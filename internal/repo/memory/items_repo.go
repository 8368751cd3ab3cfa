package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/geocoder89/housepoints/internal/domain/item"
)

type storedItem struct {
	item.Item
	seq uint64
}

// ItemsRepo keeps items in process memory. It backs STORAGE_DRIVER=memory and the tests.
type ItemsRepo struct {
	mu    sync.RWMutex
	items map[string]storedItem
	seq   uint64
}

func NewItemsRepo() *ItemsRepo {
	return &ItemsRepo{
		items: make(map[string]storedItem),
	}
}

func (r *ItemsRepo) Create(_ context.Context, it item.Item) (item.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	r.items[it.ID] = storedItem{Item: it, seq: r.seq}

	return it, nil
}

// newestFirst orders by creation time and falls back to insertion order for equal stamps.
func newestFirst(list []storedItem) []item.Item {
	sort.Slice(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.After(list[j].CreatedAt)
		}
		return list[i].seq > list[j].seq
	})

	out := make([]item.Item, len(list))
	for i, s := range list {
		out[i] = s.Item
	}
	return out
}

func (r *ItemsRepo) ItemsByPage(_ context.Context) (map[int][]item.Item, error) {
	r.mu.RLock()
	grouped := make(map[int][]storedItem)
	for _, s := range r.items {
		grouped[s.PageIndex] = append(grouped[s.PageIndex], s)
	}
	r.mu.RUnlock()

	out := make(map[int][]item.Item, len(grouped))
	for idx, list := range grouped {
		out[idx] = newestFirst(list)
	}

	return out, nil
}

func (r *ItemsRepo) ListByPage(_ context.Context, pageIndex int) ([]item.Item, error) {
	r.mu.RLock()
	list := make([]storedItem, 0)
	for _, s := range r.items {
		if s.PageIndex == pageIndex {
			list = append(list, s)
		}
	}
	r.mu.RUnlock()

	return newestFirst(list), nil
}

func (r *ItemsRepo) Get(_ context.Context, pageIndex int, id string) (item.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.items[id]
	if !ok || s.PageIndex != pageIndex {
		return item.Item{}, item.ErrNotFound
	}

	return s.Item, nil
}

func (r *ItemsRepo) Update(_ context.Context, pageIndex int, id string, req item.UpdateRequest, editorID string) (item.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.items[id]
	if !ok || s.PageIndex != pageIndex {
		return item.Item{}, item.ErrNotFound
	}

	s.Item = req.Apply(s.Item, editorID, time.Now().UTC())
	r.items[id] = s

	return s.Item, nil
}

func (r *ItemsRepo) Delete(_ context.Context, pageIndex int, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.items[id]
	if !ok || s.PageIndex != pageIndex {
		return item.ErrNotFound
	}

	delete(r.items, id)
	return nil
}
