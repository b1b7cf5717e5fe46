package postgres

import (
	"context"

	"github.com/oksasatya/go-ddd-diary/internal/domain/entity"
	"github.com/oksasatya/go-ddd-diary/internal/domain/repository"
)

type AccountRepository struct {
	db DB
}

func NewAccountRepository(db DB) *AccountRepository {
	return &AccountRepository{db: db}
}

var _ repository.AccountRepository = (*AccountRepository)(nil)

func (r *AccountRepository) Create(ctx context.Context, a *entity.Account) error {
	row := r.db.QueryRow(ctx, `
		INSERT INTO users (email, password_hash)
		VALUES ($1, $2)
		RETURNING id, created_at
	`, a.Email, a.PasswordHash)
	if err := row.Scan(&a.ID, &a.CreatedAt); err != nil {
		return mapErr(err)
	}
	return nil
}

func (r *AccountRepository) GetByID(ctx context.Context, id string) (*entity.Account, error) {
	if !validID(id) {
		return nil, repository.ErrNotFound
	}
	return r.get(ctx, `WHERE id = $1`, id)
}

func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*entity.Account, error) {
	return r.get(ctx, `WHERE email = $1`, email)
}

func (r *AccountRepository) get(ctx context.Context, where string, arg string) (*entity.Account, error) {
	a := &entity.Account{}
	row := r.db.QueryRow(ctx, `
		SELECT id, email, password_hash, created_at
		FROM users
		`+where, arg)
	if err := row.Scan(&a.ID, &a.Email, &a.PasswordHash, &a.CreatedAt); err != nil {
		return nil, mapErr(err)
	}
	return a, nil
}
