package service

import (
	"context"

	"github.com/google/uuid"

	"vshare/internal/domain"
)

// ItemStore определяет контракт хранилища элементов. Реализуется
// Postgres-репозиторием и in-memory хранилищем в тестах. Уникальность
// имени в пределах (owner, parent) обеспечивает само хранилище:
// Insert обязан вернуть domain.ErrNameConflict при нарушении.
type ItemStore interface {
	Insert(ctx context.Context, item *domain.Item) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Item, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Item, error)
	ListByParent(ctx context.Context, ownerID string, parentID *uuid.UUID) ([]domain.Item, error)
	NameExists(ctx context.Context, ownerID string, parentID *uuid.UUID, name string) (bool, error)
	DeleteByIDs(ctx context.Context, ids []uuid.UUID) (int64, error)
	DeleteExpired(ctx context.Context) (int64, error)
}

// ShareStore определяет контракт хранилища шарингов
type ShareStore interface {
	Insert(ctx context.Context, share *domain.Share) error
	GetByCode(ctx context.Context, code string) (*domain.Share, error)
	DeleteExpired(ctx context.Context) (int64, error)
}

// OwnerStore определяет контракт хранилища владельцев
type OwnerStore interface {
	GetOrCreateByEmail(ctx context.Context, email, name string) (*domain.Owner, error)
	GetByID(ctx context.Context, id string) (*domain.Owner, error)
}
