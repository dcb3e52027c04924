package service

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"log"

	"vshare/internal/domain"
	"vshare/internal/service/s3"

	"github.com/google/uuid"
)

// ArchiveService собирает поддерево расшаренной папки в zip-архив.
// Записи пишутся в выходной поток по мере обхода: суммарный размер
// поддерева не ограничен памятью процесса.
type ArchiveService struct {
	shareService *ShareService
	items        ItemStore
	s3Client     s3.Storage
}

func NewArchiveService(shareService *ShareService, items ItemStore, s3Client s3.Storage) *ArchiveService {
	return &ArchiveService{
		shareService: shareService,
		items:        items,
		s3Client:     s3Client,
	}
}

// BuildZip пишет в w архив поддерева папки folderID из шаринга code.
// Файлы с пропавшими блобами пропускаются: жизненный цикл блобов
// отвязан от записей, один потерянный файл не валит весь архив.
func (s *ArchiveService) BuildZip(ctx context.Context, code string, folderID uuid.UUID, w io.Writer) error {
	folder, err := s.shareService.ResolveFolder(ctx, code, folderID)
	if err != nil {
		return err
	}

	zw := zip.NewWriter(w)

	type entry struct {
		item domain.Item
		path string
	}

	// Обход в глубину явным стеком
	stack := []entry{{item: *folder, path: folder.Name}}
	seen := map[uuid.UUID]struct{}{folder.ID: {}}

	for len(stack) > 0 {
		e := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if !e.item.IsFolder() {
			s.addFile(ctx, zw, e.path, &e.item)
			continue
		}

		// Каталожная запись, чтобы пустые папки попадали в архив
		if _, err := zw.Create(e.path + "/"); err != nil {
			return fmt.Errorf("failed to add directory entry %q: %w", e.path, err)
		}

		id := e.item.ID
		children, err := s.items.ListByParent(ctx, e.item.OwnerID, &id)
		if err != nil {
			return fmt.Errorf("failed to list folder %q: %w", e.path, err)
		}

		// В стек в обратном порядке, чтобы архив шел в порядке листинга
		for i := len(children) - 1; i >= 0; i-- {
			child := children[i]
			if _, ok := seen[child.ID]; ok {
				continue
			}
			seen[child.ID] = struct{}{}
			stack = append(stack, entry{item: child, path: e.path + "/" + child.Name})
		}
	}

	return zw.Close()
}

func (s *ArchiveService) addFile(ctx context.Context, zw *zip.Writer, path string, item *domain.Item) {
	if item.BlobKey == nil {
		log.Printf("[BuildZip] Skipping %q: no blob reference", path)
		return
	}

	obj, err := s.s3Client.GetObject(ctx, *item.BlobKey)
	if err != nil {
		log.Printf("[BuildZip] Skipping %q: %v", path, err)
		return
	}
	defer obj.Close()

	header := &zip.FileHeader{
		Name:     path,
		Method:   zip.Deflate,
		Modified: item.CreatedAt,
	}

	fw, err := zw.CreateHeader(header)
	if err != nil {
		log.Printf("[BuildZip] Failed to create entry %q: %v", path, err)
		return
	}

	if _, err := io.Copy(fw, obj); err != nil {
		// Поток архива уже может быть частично записан, продолжаем
		log.Printf("[BuildZip] Failed to copy %q: %v", path, err)
	}
}
