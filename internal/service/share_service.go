package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"

	"vshare/internal/domain"
)

// maxCodeAttempts - попытки генерации кода при коллизиях
const maxCodeAttempts = 5

// ShareService создает и разрешает шаринги по коротким кодам
type ShareService struct {
	shares   ShareStore
	items    ItemStore
	shareTTL time.Duration
}

func NewShareService(shares ShareStore, items ItemStore, shareTTL time.Duration) *ShareService {
	return &ShareService{
		shares:   shares,
		items:    items,
		shareTTL: shareTTL,
	}
}

// generateCode возвращает случайный код из ограниченного алфавита:
// заглавные буквы и цифры
func generateCode() (string, error) {
	code := make([]byte, domain.ShareCodeLength)
	alphabetLen := big.NewInt(int64(len(domain.ShareCodeAlphabet)))

	for i := range code {
		n, err := rand.Int(rand.Reader, alphabetLen)
		if err != nil {
			return "", fmt.Errorf("failed to generate share code: %w", err)
		}
		code[i] = domain.ShareCodeAlphabet[n.Int64()]
	}

	return string(code), nil
}

// CreateShare создает шаринг для набора элементов владельца.
// Проверка владения строгая: один чужой или несуществующий элемент
// проваливает всю операцию, частичный шаринг не сохраняется.
func (s *ShareService) CreateShare(ctx context.Context, ownerID string, itemIDs []uuid.UUID) (*domain.Share, error) {
	if len(itemIDs) == 0 {
		return nil, domain.ErrEmptySelection
	}

	items, err := s.items.GetByIDs(ctx, itemIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load items: %w", err)
	}

	byID := make(map[uuid.UUID]*domain.Item, len(items))
	for i := range items {
		byID[items[i].ID] = &items[i]
	}

	for _, id := range itemIDs {
		item, ok := byID[id]
		if !ok || item.OwnerID != ownerID {
			return nil, domain.ErrForbidden
		}
	}

	share := &domain.Share{
		ID:        uuid.New(),
		ItemIDs:   itemIDs,
		OwnerID:   ownerID,
		ExpiresAt: time.Now().Add(s.shareTTL),
	}

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := generateCode()
		if err != nil {
			return nil, err
		}
		share.Code = code

		err = s.shares.Insert(ctx, share)
		if err == nil {
			return share, nil
		}
		if !errors.Is(err, domain.ErrCodeTaken) {
			return nil, fmt.Errorf("failed to create share: %w", err)
		}
		log.Printf("[CreateShare] Code collision on %s, regenerating", code)
	}

	return nil, fmt.Errorf("failed to create share: code space exhausted after %d attempts", maxCodeAttempts)
}

// Resolve возвращает живые элементы шаринга по коду.
// Код нечувствителен к регистру.
func (s *ShareService) Resolve(ctx context.Context, code string) ([]domain.Item, error) {
	share, err := s.getLive(ctx, code)
	if err != nil {
		return nil, err
	}

	items, err := s.items.GetByIDs(ctx, share.ItemIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load shared items: %w", err)
	}

	return items, nil
}

// ResolveFolder возвращает папку шаринга для обхода поддерева.
// Папка обязана входить в набор шаринга: подбор идентификаторов
// соседних папок владельца не дает выхода за пределы выборки.
func (s *ShareService) ResolveFolder(ctx context.Context, code string, folderID uuid.UUID) (*domain.Item, error) {
	share, err := s.getLive(ctx, code)
	if err != nil {
		return nil, err
	}

	if !share.Contains(folderID) {
		return nil, domain.ErrForbidden
	}

	folder, err := s.items.GetByID(ctx, folderID)
	if err != nil {
		return nil, err
	}
	if !folder.IsFolder() {
		return nil, domain.ErrNotFound
	}

	return folder, nil
}

// ResolveFile возвращает файл шаринга для скачивания
func (s *ShareService) ResolveFile(ctx context.Context, code string, fileID uuid.UUID) (*domain.Item, error) {
	share, err := s.getLive(ctx, code)
	if err != nil {
		return nil, err
	}

	if !share.Contains(fileID) {
		return nil, domain.ErrForbidden
	}

	file, err := s.items.GetByID(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if file.IsFolder() {
		return nil, domain.ErrNotFound
	}

	return file, nil
}

// getLive возвращает непросроченный шаринг, различая
// "кода нет" и "код был, но истек"
func (s *ShareService) getLive(ctx context.Context, code string) (*domain.Share, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != domain.ShareCodeLength {
		return nil, domain.ErrNotFound
	}

	share, err := s.shares.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	if time.Now().After(share.ExpiresAt) {
		return nil, domain.ErrExpired
	}

	return share, nil
}
