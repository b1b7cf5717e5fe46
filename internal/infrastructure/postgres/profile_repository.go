package postgres

import (
	"context"

	"github.com/oksasatya/go-ddd-diary/internal/domain/entity"
	"github.com/oksasatya/go-ddd-diary/internal/domain/repository"
)

type ProfileRepository struct {
	db DB
}

func NewProfileRepository(db DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

var _ repository.ProfileRepository = (*ProfileRepository)(nil)

func (r *ProfileRepository) GetByID(ctx context.Context, id string) (*entity.Profile, error) {
	if !validID(id) {
		return nil, repository.ErrNotFound
	}
	p := &entity.Profile{}
	row := r.db.QueryRow(ctx, `SELECT id, is_admin FROM profiles WHERE id = $1`, id)
	if err := row.Scan(&p.ID, &p.IsAdmin); err != nil {
		return nil, mapErr(err)
	}
	return p, nil
}

func (r *ProfileRepository) Create(ctx context.Context, id string) error {
	if !validID(id) {
		return repository.ErrNotFound
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO profiles (id) VALUES ($1)
		ON CONFLICT (id) DO NOTHING
	`, id)
	return mapErr(err)
}

func (r *ProfileRepository) SetAdmin(ctx context.Context, id string, isAdmin bool) error {
	if !validID(id) {
		return repository.ErrNotFound
	}
	tag, err := r.db.Exec(ctx, `UPDATE profiles SET is_admin = $2 WHERE id = $1`, id, isAdmin)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}
