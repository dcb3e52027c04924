package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"vshare/internal/domain"
)

type ShareRepository struct {
	db *sqlx.DB
}

func NewShareRepository(db *sqlx.DB) *ShareRepository {
	return &ShareRepository{db: db}
}

// Insert атомарно сохраняет шаринг и его набор элементов.
// Коллизия кода возвращается как domain.ErrCodeTaken, сервис
// генерирует новый код и повторяет.
func (r *ShareRepository) Insert(ctx context.Context, share *domain.Share) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
        INSERT INTO shares (id, code, owner_id, expires_at)
        VALUES ($1, $2, $3, $4)
        RETURNING created_at`

	err = tx.QueryRowContext(
		ctx,
		query,
		share.ID,
		share.Code,
		share.OwnerID,
		share.ExpiresAt,
	).Scan(&share.CreatedAt)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return domain.ErrCodeTaken
		}
		return fmt.Errorf("failed to insert share: %w", err)
	}

	for i, itemID := range share.ItemIDs {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO share_items (share_id, item_id, position) VALUES ($1, $2, $3)`,
			share.ID, itemID, i,
		)
		if err != nil {
			return fmt.Errorf("failed to insert share item: %w", err)
		}
	}

	return tx.Commit()
}

// GetByCode возвращает шаринг по нормализованному коду. Срок действия
// здесь не проверяется: сервис различает "не найдено" и "истек".
func (r *ShareRepository) GetByCode(ctx context.Context, code string) (*domain.Share, error) {
	code = strings.ToUpper(code)

	var share domain.Share
	query := `SELECT id, code, owner_id, created_at, expires_at FROM shares WHERE code = $1`
	if err := r.db.GetContext(ctx, &share, query, code); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get share: %w", err)
	}

	itemsQuery := `
        SELECT item_id FROM share_items
        WHERE share_id = $1
        ORDER BY position ASC`

	var ids []uuid.UUID
	if err := r.db.SelectContext(ctx, &ids, itemsQuery, share.ID); err != nil {
		return nil, fmt.Errorf("failed to get share items: %w", err)
	}
	share.ItemIDs = ids

	return &share, nil
}

// DeleteExpired удаляет просроченные шаринги вместе с их элементами
func (r *ShareRepository) DeleteExpired(ctx context.Context) (int64, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
        DELETE FROM share_items
        WHERE share_id IN (SELECT id FROM shares WHERE expires_at < CURRENT_TIMESTAMP)`,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired share items: %w", err)
	}

	result, err := tx.ExecContext(ctx,
		`DELETE FROM shares WHERE expires_at < CURRENT_TIMESTAMP`,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired shares: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}

	return rows, nil
}
