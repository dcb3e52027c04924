// Package memory содержит in-memory реализации хранилищ с теми же
// инвариантами, что у Postgres-репозиториев: уникальность имени в
// пределах (владелец, родитель), фильтрация просроченного при чтении,
// порядок листинга. Используется тестами сервисного слоя.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"vshare/internal/domain"
	"vshare/internal/service/s3"
)

type ItemStore struct {
	mu    sync.RWMutex
	items map[uuid.UUID]domain.Item
	now   func() time.Time
}

func NewItemStore() *ItemStore {
	return &ItemStore{
		items: make(map[uuid.UUID]domain.Item),
		now:   time.Now,
	}
}

// SetClock подменяет источник времени в тестах
func (s *ItemStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *ItemStore) alive(expiresAt *time.Time) bool {
	return expiresAt == nil || expiresAt.After(s.now())
}

func sameParent(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// Insert добавляет элемент, возвращая domain.ErrNameConflict при
// занятом имени - как уникальный индекс в Postgres
func (s *ItemStore) Insert(ctx context.Context, item *domain.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.items {
		if existing.OwnerID == item.OwnerID &&
			sameParent(existing.ParentID, item.ParentID) &&
			existing.Name == item.Name {
			return fmt.Errorf("%w: %q", domain.ErrNameConflict, item.Name)
		}
	}

	if item.CreatedAt.IsZero() {
		item.CreatedAt = s.now()
	}
	s.items[item.ID] = *item

	return nil
}

func (s *ItemStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[id]
	if !ok || !s.alive(item.ExpiresAt) {
		return nil, domain.ErrNotFound
	}

	return &item, nil
}

func (s *ItemStore) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Item
	for _, id := range ids {
		item, ok := s.items[id]
		if ok && s.alive(item.ExpiresAt) {
			out = append(out, item)
		}
	}

	return out, nil
}

func (s *ItemStore) ListByParent(ctx context.Context, ownerID string, parentID *uuid.UUID) ([]domain.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Item
	for _, item := range s.items {
		if item.OwnerID == ownerID && sameParent(item.ParentID, parentID) && s.alive(item.ExpiresAt) {
			out = append(out, item)
		}
	}

	// Папки перед файлами, внутри группы по имени
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind == domain.ItemKindFolder
		}
		return out[i].Name < out[j].Name
	})

	return out, nil
}

func (s *ItemStore) NameExists(ctx context.Context, ownerID string, parentID *uuid.UUID, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, item := range s.items {
		if item.OwnerID == ownerID && sameParent(item.ParentID, parentID) &&
			item.Name == name && s.alive(item.ExpiresAt) {
			return true, nil
		}
	}

	return false, nil
}

func (s *ItemStore) DeleteByIDs(ctx context.Context, ids []uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for _, id := range ids {
		if _, ok := s.items[id]; ok {
			delete(s.items, id)
			removed++
		}
	}

	return removed, nil
}

func (s *ItemStore) DeleteExpired(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for id, item := range s.items {
		if item.ExpiresAt != nil && !item.ExpiresAt.After(s.now()) {
			delete(s.items, id)
			removed++
		}
	}

	return removed, nil
}

// All возвращает снимок всех записей, включая просроченные
func (s *ItemStore) All() []domain.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Item, 0, len(s.items))
	for _, item := range s.items {
		out = append(out, item)
	}
	return out
}

type ShareStore struct {
	mu     sync.RWMutex
	shares map[string]domain.Share
	now    func() time.Time
}

func NewShareStore() *ShareStore {
	return &ShareStore{
		shares: make(map[string]domain.Share),
		now:    time.Now,
	}
}

func (s *ShareStore) Insert(ctx context.Context, share *domain.Share) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.shares[share.Code]; ok {
		return domain.ErrCodeTaken
	}

	if share.CreatedAt.IsZero() {
		share.CreatedAt = s.now()
	}
	s.shares[share.Code] = *share

	return nil
}

func (s *ShareStore) GetByCode(ctx context.Context, code string) (*domain.Share, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	share, ok := s.shares[strings.ToUpper(code)]
	if !ok {
		return nil, domain.ErrNotFound
	}

	return &share, nil
}

func (s *ShareStore) DeleteExpired(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for code, share := range s.shares {
		if !share.ExpiresAt.After(s.now()) {
			delete(s.shares, code)
			removed++
		}
	}

	return removed, nil
}

// All возвращает снимок всех шарингов, включая просроченные
func (s *ShareStore) All() []domain.Share {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Share, 0, len(s.shares))
	for _, share := range s.shares {
		out = append(out, share)
	}
	return out
}

type OwnerStore struct {
	mu     sync.RWMutex
	owners map[string]domain.Owner
}

func NewOwnerStore() *OwnerStore {
	return &OwnerStore{owners: make(map[string]domain.Owner)}
}

func (s *OwnerStore) GetOrCreateByEmail(ctx context.Context, email, name string) (*domain.Owner, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, owner := range s.owners {
		if owner.Email == email {
			return &owner, nil
		}
	}

	owner := domain.Owner{
		ID:        uuid.New().String(),
		Email:     email,
		Name:      name,
		CreatedAt: time.Now(),
	}
	s.owners[owner.ID] = owner

	return &owner, nil
}

func (s *OwnerStore) GetByID(ctx context.Context, id string) (*domain.Owner, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	owner, ok := s.owners[id]
	if !ok {
		return nil, domain.ErrNotFound
	}

	return &owner, nil
}

// BlobStore - память вместо S3 для тестов
type BlobStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewBlobStore() *BlobStore {
	return &BlobStore{blobs: make(map[string][]byte)}
}

func (b *BlobStore) UploadBytes(key string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	buf := make([]byte, len(data))
	copy(buf, data)
	b.blobs[key] = buf

	return nil
}

func (b *BlobStore) GetObject(ctx context.Context, key string) (s3.S3Object, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	data, ok := b.blobs[key]
	if !ok {
		return nil, fmt.Errorf("object not found: %s", key)
	}

	return &memObject{
		ReadCloser:    io.NopCloser(bytes.NewReader(data)),
		contentLength: int64(len(data)),
	}, nil
}

// Delete имитирует потерю блоба внешним хранилищем
func (b *BlobStore) Delete(key string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.blobs, key)
}

type memObject struct {
	io.ReadCloser
	contentLength int64
}

func (o *memObject) ContentLength() int64 { return o.contentLength }

func (o *memObject) ContentType() string { return "application/octet-stream" }
