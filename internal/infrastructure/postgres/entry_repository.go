package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/oksasatya/go-ddd-diary/internal/domain/entity"
	"github.com/oksasatya/go-ddd-diary/internal/domain/repository"
)

// EntryRepository stores diary_entries. The owner argument of the read and
// write queries is the row filter. An empty owner matches every row.
type EntryRepository struct {
	db DB
}

func NewEntryRepository(db DB) *EntryRepository {
	return &EntryRepository{db: db}
}

var _ repository.EntryRepository = (*EntryRepository)(nil)

const entryColumns = `e.id, e.user_id, COALESCE(u.email, ''), e.content, e.created_at, e.updated_at`

func (r *EntryRepository) ListCreatedBetween(ctx context.Context, from, to time.Time, ownerID string) ([]entity.Entry, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+entryColumns+`
		FROM diary_entries e
		LEFT JOIN users u ON u.id = e.user_id
		WHERE e.created_at >= $1 AND e.created_at < $2
		  AND ($3 = '' OR e.user_id::text = $3)
		ORDER BY e.created_at ASC, e.id ASC
	`, from, to, ownerID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	out := []entity.Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr(err)
	}
	return out, nil
}

func (r *EntryRepository) GetByID(ctx context.Context, id string) (*entity.Entry, error) {
	if !validID(id) {
		return nil, repository.ErrNotFound
	}
	row := r.db.QueryRow(ctx, `
		SELECT `+entryColumns+`
		FROM diary_entries e
		LEFT JOIN users u ON u.id = e.user_id
		WHERE e.id = $1
	`, id)
	return scanEntry(row)
}

func (r *EntryRepository) Create(ctx context.Context, e *entity.Entry) error {
	row := r.db.QueryRow(ctx, `
		INSERT INTO diary_entries (user_id, content)
		VALUES ($1, $2)
		RETURNING id, created_at, updated_at
	`, e.UserID, e.Content)
	if err := row.Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return mapErr(err)
	}
	return nil
}

func (r *EntryRepository) UpdateContent(ctx context.Context, id, ownerID, content string) (*entity.Entry, error) {
	if !validID(id) {
		return nil, repository.ErrNotFound
	}
	row := r.db.QueryRow(ctx, `
		WITH e AS (
			UPDATE diary_entries
			SET content = $2, updated_at = now()
			WHERE id = $1 AND ($3 = '' OR user_id::text = $3)
			RETURNING id, user_id, content, created_at, updated_at
		)
		SELECT `+entryColumns+`
		FROM e
		LEFT JOIN users u ON u.id = e.user_id
	`, id, content, ownerID)
	return scanEntry(row)
}

func (r *EntryRepository) Delete(ctx context.Context, id, ownerID string) error {
	if !validID(id) {
		return repository.ErrNotFound
	}
	tag, err := r.db.Exec(ctx, `
		DELETE FROM diary_entries
		WHERE id = $1 AND ($2 = '' OR user_id::text = $2)
	`, id, ownerID)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func scanEntry(row pgx.Row) (*entity.Entry, error) {
	e := &entity.Entry{}
	if err := row.Scan(&e.ID, &e.UserID, &e.AuthorEmail, &e.Content, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, mapErr(err)
	}
	return e, nil
}
