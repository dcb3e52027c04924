package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"vshare/internal/domain"
)

// uniqueViolation - код ошибки Postgres для нарушения уникального индекса
const uniqueViolation = "23505"

type ItemRepository struct {
	db *sqlx.DB
}

func NewItemRepository(db *sqlx.DB) *ItemRepository {
	return &ItemRepository{db: db}
}

// Insert создает запись элемента. Уникальность имени внутри
// (owner_id, parent_id) обеспечивается индексом, а не предварительной
// проверкой: нарушение возвращается как domain.ErrNameConflict,
// чтобы вызывающий код мог повторить вставку с новым именем.
func (r *ItemRepository) Insert(ctx context.Context, item *domain.Item) error {
	query := `
        INSERT INTO items (
            id, name, kind, parent_id, owner_id,
            blob_key, storage_path, size_bytes, expires_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        RETURNING created_at`

	err := r.db.QueryRowContext(
		ctx,
		query,
		item.ID,
		item.Name,
		item.Kind,
		item.ParentID,
		item.OwnerID,
		item.BlobKey,
		item.StoragePath,
		item.SizeBytes,
		item.ExpiresAt,
	).Scan(&item.CreatedAt)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return fmt.Errorf("%w: %q", domain.ErrNameConflict, item.Name)
		}
		return fmt.Errorf("failed to insert item: %w", err)
	}

	return nil
}

func (r *ItemRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Item, error) {
	query := `
        SELECT * FROM items
        WHERE id = $1
        AND (expires_at IS NULL OR expires_at > CURRENT_TIMESTAMP)`

	var item domain.Item
	if err := r.db.GetContext(ctx, &item, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get item: %w", err)
	}

	return &item, nil
}

// GetByIDs возвращает живые элементы из набора идентификаторов.
// Просроченные и несуществующие просто отсутствуют в результате.
func (r *ItemRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Item, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `
        SELECT * FROM items
        WHERE id = ANY($1::uuid[])
        AND (expires_at IS NULL OR expires_at > CURRENT_TIMESTAMP)`

	var items []domain.Item
	err := r.db.SelectContext(ctx, &items, query, pq.Array(idStrings(ids)))
	if err != nil {
		return nil, fmt.Errorf("failed to get items by ids: %w", err)
	}

	return items, nil
}

// ListByParent возвращает содержимое папки: сначала папки, потом файлы,
// внутри каждой группы по имени. parentID = nil означает корень.
func (r *ItemRepository) ListByParent(ctx context.Context, ownerID string, parentID *uuid.UUID) ([]domain.Item, error) {
	var (
		items []domain.Item
		err   error
	)

	if parentID == nil {
		query := `
            SELECT * FROM items
            WHERE owner_id = $1 AND parent_id IS NULL
            AND (expires_at IS NULL OR expires_at > CURRENT_TIMESTAMP)
            ORDER BY kind DESC, name ASC`
		err = r.db.SelectContext(ctx, &items, query, ownerID)
	} else {
		query := `
            SELECT * FROM items
            WHERE owner_id = $1 AND parent_id = $2
            AND (expires_at IS NULL OR expires_at > CURRENT_TIMESTAMP)
            ORDER BY kind DESC, name ASC`
		err = r.db.SelectContext(ctx, &items, query, ownerID, *parentID)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}

	return items, nil
}

func (r *ItemRepository) NameExists(ctx context.Context, ownerID string, parentID *uuid.UUID, name string) (bool, error) {
	var exists bool
	var err error

	if parentID == nil {
		query := `
            SELECT EXISTS(
                SELECT 1 FROM items
                WHERE owner_id = $1 AND parent_id IS NULL AND name = $2
                AND (expires_at IS NULL OR expires_at > CURRENT_TIMESTAMP)
            )`
		err = r.db.GetContext(ctx, &exists, query, ownerID, name)
	} else {
		query := `
            SELECT EXISTS(
                SELECT 1 FROM items
                WHERE owner_id = $1 AND parent_id = $2 AND name = $3
                AND (expires_at IS NULL OR expires_at > CURRENT_TIMESTAMP)
            )`
		err = r.db.GetContext(ctx, &exists, query, ownerID, *parentID, name)
	}

	if err != nil {
		return false, fmt.Errorf("failed to check name existence: %w", err)
	}

	return exists, nil
}

func (r *ItemRepository) DeleteByIDs(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	result, err := r.db.ExecContext(ctx,
		`DELETE FROM items WHERE id = ANY($1::uuid[])`,
		pq.Array(idStrings(ids)),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete items: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return rows, nil
}

// DeleteExpired физически удаляет просроченные гостевые элементы.
// Блобы в хранилище не трогаем: их жизненный цикл отвязан от записей.
func (r *ItemRepository) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM items WHERE expires_at IS NOT NULL AND expires_at < CURRENT_TIMESTAMP`,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired items: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}

	return rows, nil
}

func idStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
