package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const listColumns = `id, owner_id, title, description, visibility, dua_ids, created_at, updated_at`

func scanList(row interface{ Scan(...interface{}) error }, extra ...interface{}) (PrayerList, error) {
	var i PrayerList
	dest := []interface{}{
		&i.ID,
		&i.OwnerID,
		&i.Title,
		&i.Description,
		&i.Visibility,
		pq.Array(&i.DuaIds),
		&i.CreatedAt,
		&i.UpdatedAt,
	}
	err := row.Scan(append(dest, extra...)...)
	return i, err
}

const createList = `-- name: CreateList :one
INSERT INTO prayer_lists (owner_id, title, description, visibility)
VALUES ($1, $2, $3, $4)
RETURNING ` + listColumns + `
`

type CreateListParams struct {
	OwnerID     uuid.UUID
	Title       string
	Description string
	Visibility  string
}

func (q *Queries) CreateList(ctx context.Context, arg CreateListParams) (PrayerList, error) {
	return scanList(q.db.QueryRowContext(ctx, createList,
		arg.OwnerID,
		arg.Title,
		arg.Description,
		arg.Visibility,
	))
}

const getList = `-- name: GetList :one
SELECT ` + listColumns + ` FROM prayer_lists WHERE id = $1
`

func (q *Queries) GetList(ctx context.Context, id uuid.UUID) (PrayerList, error) {
	return scanList(q.db.QueryRowContext(ctx, getList, id))
}

const appendDuaToList = `-- name: AppendDuaToList :one
UPDATE prayer_lists
SET dua_ids = CASE WHEN $3 = ANY(dua_ids) THEN dua_ids ELSE array_append(dua_ids, $3) END,
    updated_at = now()
WHERE id = $1 AND owner_id = $2
RETURNING ` + listColumns + `
`

// AppendDuaToList adds duaID to the end of the list unless already present.
func (q *Queries) AppendDuaToList(ctx context.Context, id, ownerID uuid.UUID, duaID string) (PrayerList, error) {
	return scanList(q.db.QueryRowContext(ctx, appendDuaToList, id, ownerID, duaID))
}

const listPublicLists = `-- name: ListPublicLists :many
SELECT l.id, l.owner_id, l.title, l.description, l.visibility, l.dua_ids, l.created_at, l.updated_at, u.name
FROM prayer_lists l
JOIN users u ON u.id = l.owner_id
WHERE l.visibility = 'public'
  AND ($1 = '' OR l.title ILIKE '%' || $1 || '%' OR l.description ILIKE '%' || $1 || '%')
ORDER BY l.created_at DESC, l.id
LIMIT $2 OFFSET $3
`

type ListPublicListsParams struct {
	Query  string
	Limit  int32
	Offset int32
}

type PublicListRow struct {
	PrayerList
	OwnerName string
}

func (q *Queries) ListPublicLists(ctx context.Context, arg ListPublicListsParams) ([]PublicListRow, error) {
	rows, err := q.db.QueryContext(ctx, listPublicLists, escapeLike(arg.Query), arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []PublicListRow
	for rows.Next() {
		var ownerName string
		list, err := scanList(rows, &ownerName)
		if err != nil {
			return nil, err
		}
		items = append(items, PublicListRow{PrayerList: list, OwnerName: ownerName})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const countPublicLists = `-- name: CountPublicLists :one
SELECT count(*)
FROM prayer_lists l
WHERE l.visibility = 'public'
  AND ($1 = '' OR l.title ILIKE '%' || $1 || '%' OR l.description ILIKE '%' || $1 || '%')
`

func (q *Queries) CountPublicLists(ctx context.Context, query string) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countPublicLists, escapeLike(query)).Scan(&count)
	return count, err
}
