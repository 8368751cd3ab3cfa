package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/geocoder89/housepoints/internal/domain/item"
	"github.com/geocoder89/housepoints/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const itemColumns = `id, page_index, title, content, numerical_value, created_by, created_at, last_modified_by, last_modified_at`

type ItemsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewItemsRepo(pool *pgxpool.Pool, prom *observability.Prom) *ItemsRepo {
	return &ItemsRepo{
		pool: pool,
		prom: prom,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (item.Item, error) {
	var it item.Item

	err := row.Scan(
		&it.ID,
		&it.PageIndex,
		&it.Title,
		&it.Content,
		&it.NumericalValue,
		&it.CreatedBy,
		&it.CreatedAt,
		&it.LastModifiedBy,
		&it.LastModifiedAt,
	)

	return it, err
}

func (r *ItemsRepo) Create(ctx context.Context, it item.Item) (item.Item, error) {
	err := r.prom.ObserveDB("items.create", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO accordion_items (`+itemColumns+`) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
			it.ID, it.PageIndex, it.Title, it.Content, it.NumericalValue,
			it.CreatedBy, it.CreatedAt, it.LastModifiedBy, it.LastModifiedAt,
		)
		return err
	})

	if err != nil {
		return item.Item{}, err
	}

	return it, nil
}

// ItemsByPage loads every item, grouped by page, newest first within a page.
func (r *ItemsRepo) ItemsByPage(ctx context.Context) (map[int][]item.Item, error) {
	out := make(map[int][]item.Item)

	err := r.prom.ObserveDB("items.list_all", func() error {
		rows, err := r.pool.Query(ctx,
			`SELECT `+itemColumns+`
			FROM accordion_items
			ORDER BY page_index ASC, created_at DESC, id ASC`,
		)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			it, err := scanItem(rows)
			if err != nil {
				return err
			}
			out[it.PageIndex] = append(out[it.PageIndex], it)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, err
	}

	return out, nil
}

func (r *ItemsRepo) ListByPage(ctx context.Context, pageIndex int) ([]item.Item, error) {
	out := make([]item.Item, 0)

	err := r.prom.ObserveDB("items.list_page", func() error {
		rows, err := r.pool.Query(ctx,
			`SELECT `+itemColumns+`
			FROM accordion_items
			WHERE page_index = $1
			ORDER BY created_at DESC, id ASC`,
			pageIndex,
		)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			it, err := scanItem(rows)
			if err != nil {
				return err
			}
			out = append(out, it)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, err
	}

	return out, nil
}

func (r *ItemsRepo) Get(ctx context.Context, pageIndex int, id string) (item.Item, error) {
	var it item.Item

	err := r.prom.ObserveDB("items.get", func() error {
		var err error
		it, err = scanItem(r.pool.QueryRow(ctx,
			`SELECT `+itemColumns+` FROM accordion_items WHERE id = $1 AND page_index = $2`,
			id, pageIndex,
		))
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return item.Item{}, item.ErrNotFound
		}
		return item.Item{}, err
	}

	return it, nil
}

func (r *ItemsRepo) Update(ctx context.Context, pageIndex int, id string, req item.UpdateRequest, editorID string) (item.Item, error) {
	var it item.Item

	err := r.prom.ObserveDB("items.update", func() error {
		var err error
		it, err = scanItem(r.pool.QueryRow(ctx,
			`UPDATE accordion_items
				SET title = $3,
					content = $4,
					numerical_value = $5,
					last_modified_by = $6,
					last_modified_at = $7
			WHERE id = $1 AND page_index = $2
			RETURNING `+itemColumns,
			id, pageIndex, req.Title, req.Content, req.NumericalValue, editorID, time.Now().UTC(),
		))
		return err
	})

	if err != nil {
		// no row with that id on this page
		if errors.Is(err, pgx.ErrNoRows) {
			return item.Item{}, item.ErrNotFound
		}
		return item.Item{}, err
	}

	return it, nil
}

func (r *ItemsRepo) Delete(ctx context.Context, pageIndex int, id string) error {
	var affected int64

	err := r.prom.ObserveDB("items.delete", func() error {
		tag, err := r.pool.Exec(ctx,
			`DELETE FROM accordion_items WHERE id = $1 AND page_index = $2`,
			id, pageIndex,
		)
		affected = tag.RowsAffected()
		return err
	})

	if err != nil {
		return err
	}

	// if no rows were deleted as a result return a not found error
	if affected == 0 {
		return item.ErrNotFound
	}

	return nil
}
