package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"vshare/internal/domain"
	"vshare/internal/service/s3"
)

// Лимиты подбора имени при загрузке файлов
const (
	// maxNameProbes - потолок предварительного перебора суффиксов
	maxNameProbes = 100
	// maxInsertRetries - повторные вставки, когда проверка имени прошла,
	// а вставка уперлась в уникальный индекс (гонка параллельных загрузок)
	maxInsertRetries = 10
	// deleteBatchSize - размер пачки при удалении поддерева
	deleteBatchSize = 100
)

// ItemService реализует операции над деревом файлов и папок
type ItemService struct {
	items    ItemStore
	s3Client s3.Storage
	resolver *OwnerResolver
	guestTTL time.Duration
}

func NewItemService(
	items ItemStore,
	s3Client s3.Storage,
	resolver *OwnerResolver,
	guestTTL time.Duration,
) *ItemService {
	return &ItemService{
		items:    items,
		s3Client: s3Client,
		resolver: resolver,
		guestTTL: guestTTL,
	}
}

// List возвращает содержимое папки владельца: папки перед файлами,
// внутри группы по имени. parentID = nil означает корень.
func (s *ItemService) List(ctx context.Context, ownerID string, parentID *uuid.UUID) ([]domain.Item, error) {
	items, err := s.items.ListByParent(ctx, ownerID, parentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	return items, nil
}

// CreateFolder создает папку. Конфликт имени отдается пользователю
// как есть: папки не переименовываются автоматически.
func (s *ItemService) CreateFolder(ctx context.Context, ownerID string, parentID *uuid.UUID, name string) (*domain.Item, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: folder name is required", domain.ErrInvalidParent)
	}

	if err := s.validateParent(ctx, ownerID, parentID); err != nil {
		return nil, err
	}

	folder := &domain.Item{
		ID:        uuid.New(),
		Name:      name,
		Kind:      domain.ItemKindFolder,
		ParentID:  parentID,
		OwnerID:   ownerID,
		ExpiresAt: s.expiryFor(ctx, ownerID),
	}

	if err := s.items.Insert(ctx, folder); err != nil {
		if errors.Is(err, domain.ErrNameConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create folder: %w", err)
	}

	return folder, nil
}

// UploadFiles загружает батч файлов в папку. Файлы обрабатываются
// в порядке батча, каждый независимо: ошибка одного не откатывает
// остальные, результат отдается по-файлово.
func (s *ItemService) UploadFiles(ctx context.Context, ownerID string, parentID *uuid.UUID, uploads []domain.FileUpload) ([]domain.UploadResult, error) {
	if err := s.validateParent(ctx, ownerID, parentID); err != nil {
		return nil, err
	}

	// Имена, уже занятые файлами этого же батча: два файла из одной
	// загрузки не должны претендовать на один и тот же суффикс
	reserved := make(map[string]struct{}, len(uploads))
	results := make([]domain.UploadResult, 0, len(uploads))

	for _, up := range uploads {
		item, err := s.uploadOne(ctx, ownerID, parentID, up, reserved)
		if err != nil {
			log.Printf("[UploadFiles] Failed to upload %q: %v", up.Name, err)
			results = append(results, domain.UploadResult{Name: up.Name, Error: err.Error()})
			continue
		}
		reserved[item.Name] = struct{}{}
		results = append(results, domain.UploadResult{Name: up.Name, Item: item})
	}

	return results, nil
}

func (s *ItemService) uploadOne(
	ctx context.Context,
	ownerID string,
	parentID *uuid.UUID,
	up domain.FileUpload,
	reserved map[string]struct{},
) (*domain.Item, error) {
	if strings.TrimSpace(up.Name) == "" {
		return nil, fmt.Errorf("file name is required")
	}

	name, k, err := s.resolveName(ctx, ownerID, parentID, up.Name, reserved)
	if err != nil {
		return nil, err
	}

	id := uuid.New()
	blobKey := fmt.Sprintf("vshare_files/%s/%s", ownerID, id)

	// Сначала пишем блоб, потом запись: осиротевший блоб при ошибке
	// вставки безопасен, обратное - нет
	if err := s.s3Client.UploadBytes(blobKey, up.Data); err != nil {
		return nil, fmt.Errorf("failed to store blob: %w", err)
	}

	item := &domain.Item{
		ID:          id,
		Name:        name,
		Kind:        domain.ItemKindFile,
		ParentID:    parentID,
		OwnerID:     ownerID,
		BlobKey:     &blobKey,
		StoragePath: &blobKey,
		SizeBytes:   up.Size,
		ExpiresAt:   s.expiryFor(ctx, ownerID),
	}

	base, ext := splitName(up.Name)

	// Проверка имени и вставка не атомарны: параллельная загрузка могла
	// занять имя между ними. Уникальный индекс ловит гонку, мы повторяем
	// вставку со следующим суффиксом, ограниченное число раз.
	for retry := 0; ; retry++ {
		err := s.items.Insert(ctx, item)
		if err == nil {
			return item, nil
		}
		if !errors.Is(err, domain.ErrNameConflict) {
			return nil, err
		}
		if retry >= maxInsertRetries {
			return nil, domain.ErrNameResolutionExhausted
		}

		for {
			k++
			candidate := fmt.Sprintf("%s (%d)%s", base, k, ext)
			if _, taken := reserved[candidate]; !taken {
				item.Name = candidate
				break
			}
		}
	}
}

// resolveName подбирает свободное имя: оригинальное, затем
// "base (1).ext", "base (2).ext" и так далее. Проверяются и
// уже сохраненные элементы, и имена, занятые ранее в этом же батче.
func (s *ItemService) resolveName(
	ctx context.Context,
	ownerID string,
	parentID *uuid.UUID,
	original string,
	reserved map[string]struct{},
) (string, int, error) {
	base, ext := splitName(original)

	name := original
	for k := 0; k < maxNameProbes; k++ {
		if k > 0 {
			name = fmt.Sprintf("%s (%d)%s", base, k, ext)
		}
		if _, taken := reserved[name]; taken {
			continue
		}

		exists, err := s.items.NameExists(ctx, ownerID, parentID, name)
		if err != nil {
			return "", 0, fmt.Errorf("failed to check name: %w", err)
		}
		if !exists {
			return name, k, nil
		}
	}

	return "", 0, domain.ErrNameResolutionExhausted
}

// Delete удаляет элемент; папку - вместе со всеми потомками.
// Обход поддерева идет явным списком, без рекурсии, потомки удаляются
// раньше предков. Возвращает идентификаторы фактически удаленных
// элементов - при ошибке посреди обхода это уже удаленная часть.
func (s *ItemService) Delete(ctx context.Context, ownerID string, itemID uuid.UUID) ([]uuid.UUID, error) {
	item, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.OwnerID != ownerID {
		// Чужие элементы неотличимы от несуществующих
		return nil, domain.ErrNotFound
	}

	order := []uuid.UUID{item.ID}
	if item.IsFolder() {
		seen := map[uuid.UUID]struct{}{item.ID: {}}
		queue := []uuid.UUID{item.ID}

		for len(queue) > 0 {
			id := queue[0]
			queue = queue[1:]

			children, err := s.items.ListByParent(ctx, ownerID, &id)
			if err != nil {
				return nil, fmt.Errorf("failed to enumerate descendants: %w", err)
			}
			for _, child := range children {
				if _, ok := seen[child.ID]; ok {
					// Защита от испорченных родительских ссылок
					continue
				}
				seen[child.ID] = struct{}{}
				order = append(order, child.ID)
				if child.IsFolder() {
					queue = append(queue, child.ID)
				}
			}
		}
	}

	// Удаляем с конца: в order предки идут раньше потомков
	removed := make([]uuid.UUID, 0, len(order))
	for end := len(order); end > 0; {
		start := end - deleteBatchSize
		if start < 0 {
			start = 0
		}
		chunk := order[start:end]
		if _, err := s.items.DeleteByIDs(ctx, chunk); err != nil {
			return removed, fmt.Errorf("failed to delete items: %w", err)
		}
		removed = append(removed, chunk...)
		end = start
	}

	return removed, nil
}

// GetFile возвращает живой файловый элемент владельца
func (s *ItemService) GetFile(ctx context.Context, ownerID string, itemID uuid.UUID) (*domain.Item, error) {
	item, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.OwnerID != ownerID {
		return nil, domain.ErrNotFound
	}
	if item.IsFolder() {
		return nil, fmt.Errorf("%w: item is a folder", domain.ErrNotFound)
	}
	return item, nil
}

func (s *ItemService) validateParent(ctx context.Context, ownerID string, parentID *uuid.UUID) error {
	if parentID == nil {
		return nil
	}

	parent, err := s.items.GetByID(ctx, *parentID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrInvalidParent
		}
		return fmt.Errorf("failed to get parent folder: %w", err)
	}

	if parent.OwnerID != ownerID || !parent.IsFolder() {
		return domain.ErrInvalidParent
	}

	return nil
}

// expiryFor возвращает срок жизни для новых элементов: у гостевых
// он ограничен, у зарегистрированных пользователей элементы вечные
func (s *ItemService) expiryFor(ctx context.Context, ownerID string) *time.Time {
	guestID, err := s.resolver.GuestID(ctx)
	if err != nil {
		log.Printf("[expiryFor] Failed to resolve guest owner: %v", err)
		return nil
	}
	if ownerID != guestID {
		return nil
	}
	t := time.Now().Add(s.guestTTL)
	return &t
}

// splitName отделяет расширение: "report.pdf" -> ("report", ".pdf").
// Суффикс вставляется перед расширением, как в "report (1).pdf".
func splitName(name string) (string, string) {
	ext := filepath.Ext(name)
	return strings.TrimSuffix(name, ext), ext
}
