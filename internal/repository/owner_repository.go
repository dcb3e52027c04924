package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"vshare/internal/domain"
)

type OwnerRepository struct {
	db *sqlx.DB
}

func NewOwnerRepository(db *sqlx.DB) *OwnerRepository {
	return &OwnerRepository{db: db}
}

// GetOrCreateByEmail возвращает владельца по email, создавая запись
// при первом обращении. Используется для гостевого аккаунта на старте.
func (r *OwnerRepository) GetOrCreateByEmail(ctx context.Context, email, name string) (*domain.Owner, error) {
	var owner domain.Owner
	err := r.db.GetContext(ctx, &owner,
		`SELECT * FROM owners WHERE email = $1`, email)
	if err == nil {
		return &owner, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to get owner: %w", err)
	}

	owner = domain.Owner{
		ID:    uuid.New().String(),
		Email: email,
		Name:  name,
	}

	query := `
        INSERT INTO owners (id, email, name)
        VALUES ($1, $2, $3)
        ON CONFLICT (email) DO UPDATE SET name = owners.name
        RETURNING id, created_at`

	err = r.db.QueryRowContext(ctx, query, owner.ID, owner.Email, owner.Name).
		Scan(&owner.ID, &owner.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create owner: %w", err)
	}

	return &owner, nil
}

func (r *OwnerRepository) GetByID(ctx context.Context, id string) (*domain.Owner, error) {
	var owner domain.Owner
	err := r.db.GetContext(ctx, &owner, `SELECT * FROM owners WHERE id = $1`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get owner by id: %w", err)
	}
	return &owner, nil
}
