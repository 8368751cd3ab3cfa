// Package board serves the house-points board: standings and page views for a viewer, and
// item mutations that are authorized again here no matter what the caller already checked.
package board

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/geocoder89/housepoints/internal/access"
	"github.com/geocoder89/housepoints/internal/domain/item"
	"github.com/geocoder89/housepoints/internal/domain/page"
	"github.com/geocoder89/housepoints/internal/domain/user"
	"github.com/geocoder89/housepoints/internal/observability"
	"github.com/geocoder89/housepoints/internal/points"
)

var (
	ErrUnknownPage     = errors.New("unknown page")
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("not allowed to edit this page")
)

// ItemStore is the storage collaborator. Update and Delete return item.ErrNotFound for ids
// that do not exist on the given page.
type ItemStore interface {
	ItemsByPage(ctx context.Context) (map[int][]item.Item, error)
	ListByPage(ctx context.Context, pageIndex int) ([]item.Item, error)
	Get(ctx context.Context, pageIndex int, id string) (item.Item, error)
	Create(ctx context.Context, it item.Item) (item.Item, error)
	Update(ctx context.Context, pageIndex int, id string, req item.UpdateRequest, editorID string) (item.Item, error)
	Delete(ctx context.Context, pageIndex int, id string) error
}

type Service struct {
	store    ItemStore
	catalog  page.Catalog
	notifier ChangeNotifier
	prom     *observability.Prom
}

func NewService(store ItemStore, catalog page.Catalog, notifier ChangeNotifier, prom *observability.Prom) *Service {
	return &Service{
		store:    store,
		catalog:  catalog,
		notifier: notifier,
		prom:     prom,
	}
}

func (s *Service) Catalog() page.Catalog {
	return s.catalog
}

// SetNotifier swaps the change notifier; the live hub is built after the service it reads from.
func (s *Service) SetNotifier(n ChangeNotifier) {
	s.notifier = n
}

type Entry struct {
	Rank        int       `json:"rank"`
	Page        page.Page `json:"page"`
	TotalPoints float64   `json:"totalPoints"`
	ItemCount   int       `json:"itemCount"`
	CanEdit     bool      `json:"canEdit"`
	Podium      bool      `json:"podium"`
}

type Standings struct {
	Entries []Entry `json:"entries"`
}

const podiumSize = 3

// Standings ranks every catalog page by its current total.
func (s *Service) Standings(ctx context.Context, viewer *user.User) (Standings, error) {
	itemsByPage, err := s.store.ItemsByPage(ctx)
	if err != nil {
		return Standings{}, err
	}

	ranked := points.Rank(points.Summarize(itemsByPage, s.catalog.Indices()))

	entries := make([]Entry, 0, len(ranked))
	for _, r := range ranked {
		p, _ := s.catalog.Get(r.PageIndex)

		entries = append(entries, Entry{
			Rank:        r.Rank,
			Page:        p,
			TotalPoints: r.TotalPoints,
			ItemCount:   r.ItemCount,
			CanEdit:     access.CanEdit(viewer, r.PageIndex),
			Podium:      r.Rank <= podiumSize,
		})
	}

	return Standings{Entries: entries}, nil
}

type PageView struct {
	Page        page.Page `json:"page"`
	TotalPoints float64   `json:"totalPoints"`
	ItemCount   int       `json:"itemCount"`
	CanEdit     bool      `json:"canEdit"`
}

// Pages returns every page with its summary in catalog order.
func (s *Service) Pages(ctx context.Context, viewer *user.User) ([]PageView, error) {
	itemsByPage, err := s.store.ItemsByPage(ctx)
	if err != nil {
		return nil, err
	}

	summaries := points.Summarize(itemsByPage, s.catalog.Indices())

	out := make([]PageView, 0, len(summaries))
	for _, sum := range summaries {
		p, _ := s.catalog.Get(sum.PageIndex)

		out = append(out, PageView{
			Page:        p,
			TotalPoints: sum.TotalPoints,
			ItemCount:   sum.ItemCount,
			CanEdit:     access.CanEdit(viewer, sum.PageIndex),
		})
	}

	return out, nil
}

type PageDetail struct {
	PageView
	Items []item.Item `json:"items"`
}

// Page returns one page with its items, newest first.
func (s *Service) Page(ctx context.Context, viewer *user.User, pageIndex int) (PageDetail, error) {
	p, ok := s.catalog.Get(pageIndex)
	if !ok {
		return PageDetail{}, ErrUnknownPage
	}

	items, err := s.store.ListByPage(ctx, pageIndex)
	if err != nil {
		return PageDetail{}, err
	}

	sum := points.Summarize(map[int][]item.Item{pageIndex: items}, []int{pageIndex})[0]

	return PageDetail{
		PageView: PageView{
			Page:        p,
			TotalPoints: sum.TotalPoints,
			ItemCount:   sum.ItemCount,
			CanEdit:     access.CanEdit(viewer, pageIndex),
		},
		Items: items,
	}, nil
}

func (s *Service) Item(ctx context.Context, pageIndex int, id string) (item.Item, error) {
	if !s.catalog.Contains(pageIndex) {
		return item.Item{}, ErrUnknownPage
	}

	return s.store.Get(ctx, pageIndex, id)
}

func (s *Service) AddItem(ctx context.Context, actor *user.User, pageIndex int, req item.CreateRequest) (item.Item, error) {
	created, err := s.addItem(ctx, actor, pageIndex, req)
	s.prom.ObserveItemMutation(OpAdd, err)

	if err != nil {
		return item.Item{}, err
	}

	s.publish(ctx, Change{Op: OpAdd, PageIndex: pageIndex, ItemID: created.ID, ActorID: actor.ID, At: created.CreatedAt})

	return created, nil
}

func (s *Service) addItem(ctx context.Context, actor *user.User, pageIndex int, req item.CreateRequest) (item.Item, error) {
	if err := s.authorize(actor, pageIndex); err != nil {
		return item.Item{}, err
	}

	it, err := item.NewFromCreateRequest(pageIndex, req, actor.ID)
	if err != nil {
		return item.Item{}, err
	}

	return s.store.Create(ctx, it)
}

func (s *Service) UpdateItem(ctx context.Context, actor *user.User, pageIndex int, id string, req item.UpdateRequest) (item.Item, error) {
	updated, err := s.updateItem(ctx, actor, pageIndex, id, req)
	s.prom.ObserveItemMutation(OpUpdate, err)

	if err != nil {
		return item.Item{}, err
	}

	s.publish(ctx, Change{Op: OpUpdate, PageIndex: pageIndex, ItemID: updated.ID, ActorID: actor.ID, At: updated.LastModifiedAt})

	return updated, nil
}

func (s *Service) updateItem(ctx context.Context, actor *user.User, pageIndex int, id string, req item.UpdateRequest) (item.Item, error) {
	if err := s.authorize(actor, pageIndex); err != nil {
		return item.Item{}, err
	}

	req, err := req.Normalize()
	if err != nil {
		return item.Item{}, err
	}

	return s.store.Update(ctx, pageIndex, id, req, actor.ID)
}

func (s *Service) DeleteItem(ctx context.Context, actor *user.User, pageIndex int, id string) error {
	err := s.authorize(actor, pageIndex)
	if err == nil {
		err = s.store.Delete(ctx, pageIndex, id)
	}
	s.prom.ObserveItemMutation(OpDelete, err)

	if err != nil {
		return err
	}

	s.publish(ctx, Change{Op: OpDelete, PageIndex: pageIndex, ItemID: id, ActorID: actor.ID, At: time.Now().UTC()})

	return nil
}

func (s *Service) authorize(actor *user.User, pageIndex int) error {
	if !s.catalog.Contains(pageIndex) {
		return ErrUnknownPage
	}
	if actor == nil {
		return ErrUnauthenticated
	}
	if !access.CanEdit(actor, pageIndex) {
		return ErrForbidden
	}
	return nil
}

// publish failures only delay live viewers; the write itself already succeeded.
func (s *Service) publish(ctx context.Context, c Change) {
	if s.notifier == nil {
		return
	}

	if err := s.notifier.Publish(ctx, c); err != nil {
		slog.Default().WarnContext(ctx, "board_change_publish_failed",
			"op", c.Op,
			"page_index", c.PageIndex,
			"item_id", c.ItemID,
			"err", err,
		)
	}
}
