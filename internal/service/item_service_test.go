package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"vshare/internal/domain"
	"vshare/internal/repository/memory"
)

// testEnv связывает сервисы с in-memory хранилищами
type testEnv struct {
	items    *memory.ItemStore
	shares   *memory.ShareStore
	owners   *memory.OwnerStore
	blobs    *memory.BlobStore
	resolver *OwnerResolver

	itemService  *ItemService
	shareService *ShareService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	items := memory.NewItemStore()
	shares := memory.NewShareStore()
	owners := memory.NewOwnerStore()
	blobs := memory.NewBlobStore()
	resolver := NewOwnerResolver(owners)

	return &testEnv{
		items:        items,
		shares:       shares,
		owners:       owners,
		blobs:        blobs,
		resolver:     resolver,
		itemService:  NewItemService(items, blobs, resolver, 24*time.Hour),
		shareService: NewShareService(shares, items, 24*time.Hour),
	}
}

func (e *testEnv) registeredOwner(t *testing.T) string {
	t.Helper()

	owner, err := e.owners.GetOrCreateByEmail(context.Background(), "user@example.com", "Test User")
	if err != nil {
		t.Fatalf("create owner: %v", err)
	}
	return owner.ID
}

func (e *testEnv) upload(t *testing.T, ownerID string, parentID *uuid.UUID, names ...string) []domain.UploadResult {
	t.Helper()

	uploads := make([]domain.FileUpload, 0, len(names))
	for _, name := range names {
		uploads = append(uploads, domain.FileUpload{
			Name:     name,
			MIMEType: "text/plain",
			Size:     int64(len(name)),
			Data:     []byte("content of " + name),
		})
	}

	results, err := e.itemService.UploadFiles(context.Background(), ownerID, parentID, uploads)
	if err != nil {
		t.Fatalf("UploadFiles: %v", err)
	}
	if len(results) != len(names) {
		t.Fatalf("expected %d results, got %d", len(names), len(results))
	}
	return results
}

func (e *testEnv) mustFolder(t *testing.T, ownerID string, parentID *uuid.UUID, name string) *domain.Item {
	t.Helper()

	folder, err := e.itemService.CreateFolder(context.Background(), ownerID, parentID, name)
	if err != nil {
		t.Fatalf("CreateFolder %q: %v", name, err)
	}
	return folder
}

func TestUploadBatchSuffixes(t *testing.T) {
	env := newTestEnv(t)
	owner := env.registeredOwner(t)

	results := env.upload(t, owner, nil, "a.txt", "a.txt", "b.txt", "a.txt")

	want := []string{"a.txt", "a (1).txt", "b.txt", "a (2).txt"}
	for i, res := range results {
		if res.Error != "" {
			t.Fatalf("file %d failed: %s", i, res.Error)
		}
		if res.Item.Name != want[i] {
			t.Errorf("file %d: got name %q, want %q", i, res.Item.Name, want[i])
		}
	}
}

func TestUploadSuffixContinuesAcrossBatches(t *testing.T) {
	env := newTestEnv(t)
	owner := env.registeredOwner(t)

	env.upload(t, owner, nil, "report.pdf")
	second := env.upload(t, owner, nil, "report.pdf")
	third := env.upload(t, owner, nil, "report.pdf")

	if got := second[0].Item.Name; got != "report (1).pdf" {
		t.Errorf("second upload: got %q, want %q", got, "report (1).pdf")
	}
	if got := third[0].Item.Name; got != "report (2).pdf" {
		t.Errorf("third upload: got %q, want %q", got, "report (2).pdf")
	}
}

func TestUploadNameWithoutExtension(t *testing.T) {
	env := newTestEnv(t)
	owner := env.registeredOwner(t)

	results := env.upload(t, owner, nil, "Makefile", "Makefile")

	if got := results[1].Item.Name; got != "Makefile (1)" {
		t.Errorf("got %q, want %q", got, "Makefile (1)")
	}
}

func TestUploadIntoFolder(t *testing.T) {
	env := newTestEnv(t)
	owner := env.registeredOwner(t)
	ctx := context.Background()

	folder := env.mustFolder(t, owner, nil, "docs")

	// Имя занято в корне, но не в папке: суффикс не нужен
	env.upload(t, owner, nil, "a.txt")
	results := env.upload(t, owner, &folder.ID, "a.txt")

	if got := results[0].Item.Name; got != "a.txt" {
		t.Errorf("got %q, want %q", got, "a.txt")
	}

	children, err := env.itemService.List(ctx, owner, &folder.ID)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(children) != 1 {
		t.Fatalf("expected 1 child in folder, got %d", len(children))
	}
}

func TestUploadStoresBlob(t *testing.T) {
	env := newTestEnv(t)
	owner := env.registeredOwner(t)

	results := env.upload(t, owner, nil, "a.txt")
	item := results[0].Item

	if item.BlobKey == nil {
		t.Fatal("expected blob key to be set")
	}

	obj, err := env.blobs.GetObject(context.Background(), *item.BlobKey)
	if err != nil {
		t.Fatalf("GetObject: %v", err)
	}
	obj.Close()
}

func TestCreateFolderNameConflict(t *testing.T) {
	env := newTestEnv(t)
	owner := env.registeredOwner(t)
	ctx := context.Background()

	env.mustFolder(t, owner, nil, "docs")

	_, err := env.itemService.CreateFolder(ctx, owner, nil, "docs")
	if !errors.Is(err, domain.ErrNameConflict) {
		t.Fatalf("got %v, want ErrNameConflict", err)
	}
}

func TestCreateFolderInvalidParent(t *testing.T) {
	env := newTestEnv(t)
	owner := env.registeredOwner(t)
	ctx := context.Background()

	missing := uuid.New()
	if _, err := env.itemService.CreateFolder(ctx, owner, &missing, "docs"); !errors.Is(err, domain.ErrInvalidParent) {
		t.Errorf("missing parent: got %v, want ErrInvalidParent", err)
	}

	// Файл не может быть родителем
	file := env.upload(t, owner, nil, "a.txt")[0].Item
	if _, err := env.itemService.CreateFolder(ctx, owner, &file.ID, "docs"); !errors.Is(err, domain.ErrInvalidParent) {
		t.Errorf("file parent: got %v, want ErrInvalidParent", err)
	}

	// Чужая папка тоже не родитель
	other, err := env.owners.GetOrCreateByEmail(ctx, "other@example.com", "Other")
	if err != nil {
		t.Fatalf("create other owner: %v", err)
	}
	foreign := env.mustFolder(t, other.ID, nil, "theirs")
	if _, err := env.itemService.CreateFolder(ctx, owner, &foreign.ID, "docs"); !errors.Is(err, domain.ErrInvalidParent) {
		t.Errorf("foreign parent: got %v, want ErrInvalidParent", err)
	}
}

func TestDeleteRecursive(t *testing.T) {
	env := newTestEnv(t)
	owner := env.registeredOwner(t)
	ctx := context.Background()

	root := env.mustFolder(t, owner, nil, "root")
	sub := env.mustFolder(t, owner, &root.ID, "sub")
	env.upload(t, owner, &root.ID, "a.txt")
	env.upload(t, owner, &sub.ID, "b.txt", "c.txt")
	survivor := env.upload(t, owner, nil, "keep.txt")[0].Item

	removed, err := env.itemService.Delete(ctx, owner, root.ID)
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(removed) != 5 {
		t.Errorf("expected 5 removed ids, got %d", len(removed))
	}

	left := env.items.All()
	if len(left) != 1 || left[0].ID != survivor.ID {
		t.Errorf("expected only %q to survive, got %d items", survivor.Name, len(left))
	}
}

func TestDeleteFreesName(t *testing.T) {
	env := newTestEnv(t)
	owner := env.registeredOwner(t)
	ctx := context.Background()

	first := env.upload(t, owner, nil, "a.txt")[0].Item
	if _, err := env.itemService.Delete(ctx, owner, first.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	// Имя освободилось, суффикс не нужен
	results := env.upload(t, owner, nil, "a.txt")
	if got := results[0].Item.Name; got != "a.txt" {
		t.Errorf("got %q, want %q", got, "a.txt")
	}
}

func TestDeleteForeignItem(t *testing.T) {
	env := newTestEnv(t)
	owner := env.registeredOwner(t)
	ctx := context.Background()

	other, err := env.owners.GetOrCreateByEmail(ctx, "other@example.com", "Other")
	if err != nil {
		t.Fatalf("create other owner: %v", err)
	}
	foreign := env.upload(t, other.ID, nil, "theirs.txt")[0].Item

	if _, err := env.itemService.Delete(ctx, owner, foreign.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
	if _, err := env.items.GetByID(ctx, foreign.ID); err != nil {
		t.Errorf("foreign item must survive: %v", err)
	}
}

func TestGuestUploadsExpire(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	guestID, err := env.resolver.GuestID(ctx)
	if err != nil {
		t.Fatalf("GuestID: %v", err)
	}

	guestFile := env.upload(t, guestID, nil, "temp.txt")[0].Item
	if guestFile.ExpiresAt == nil {
		t.Error("guest upload must carry an expiry")
	}

	owner := env.registeredOwner(t)
	userFile := env.upload(t, owner, nil, "forever.txt")[0].Item
	if userFile.ExpiresAt != nil {
		t.Error("registered upload must not expire")
	}
}

// racingItemStore имитирует гонку параллельных загрузок: проверка
// имени всегда говорит "свободно", и конфликт всплывает только
// на вставке через уникальный индекс
type racingItemStore struct {
	*memory.ItemStore
}

func (s *racingItemStore) NameExists(ctx context.Context, ownerID string, parentID *uuid.UUID, name string) (bool, error) {
	return false, nil
}

func TestUploadRetriesOnInsertRace(t *testing.T) {
	env := newTestEnv(t)
	owner := env.registeredOwner(t)
	ctx := context.Background()

	racing := &racingItemStore{ItemStore: env.items}
	svc := NewItemService(racing, env.blobs, env.resolver, 24*time.Hour)

	// Имя уже занято, но NameExists этого не видит
	env.upload(t, owner, nil, "a.txt")

	results, err := svc.UploadFiles(ctx, owner, nil, []domain.FileUpload{
		{Name: "a.txt", Size: 1, Data: []byte("x")},
	})
	if err != nil {
		t.Fatalf("UploadFiles: %v", err)
	}
	if results[0].Error != "" {
		t.Fatalf("upload failed: %s", results[0].Error)
	}
	if got := results[0].Item.Name; got != "a (1).txt" {
		t.Errorf("got %q, want %q", got, "a (1).txt")
	}
}

func TestUploadRetriesExhausted(t *testing.T) {
	env := newTestEnv(t)
	owner := env.registeredOwner(t)
	ctx := context.Background()

	racing := &racingItemStore{ItemStore: env.items}
	svc := NewItemService(racing, env.blobs, env.resolver, 24*time.Hour)

	// Занимаем оригинал и все суффиксы, до которых дотянутся повторы
	names := []string{"a.txt"}
	for k := 1; k <= maxInsertRetries+1; k++ {
		names = append(names, fmt.Sprintf("a (%d).txt", k))
	}
	env.upload(t, owner, nil, names...)

	results, err := svc.UploadFiles(ctx, owner, nil, []domain.FileUpload{
		{Name: "a.txt", Size: 1, Data: []byte("x")},
	})
	if err != nil {
		t.Fatalf("UploadFiles: %v", err)
	}
	if results[0].Error == "" {
		t.Fatalf("expected per-file error, got item %q", results[0].Item.Name)
	}
}

func TestListOrder(t *testing.T) {
	env := newTestEnv(t)
	owner := env.registeredOwner(t)
	ctx := context.Background()

	env.upload(t, owner, nil, "b.txt", "a.txt")
	env.mustFolder(t, owner, nil, "zfolder")

	items, err := env.itemService.List(ctx, owner, nil)
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	want := []string{"zfolder", "a.txt", "b.txt"}
	if len(items) != len(want) {
		t.Fatalf("expected %d items, got %d", len(want), len(items))
	}
	for i, item := range items {
		if item.Name != want[i] {
			t.Errorf("position %d: got %q, want %q", i, item.Name, want[i])
		}
	}
}

func TestSplitName(t *testing.T) {
	cases := []struct {
		name string
		base string
		ext  string
	}{
		{"report.pdf", "report", ".pdf"},
		{"archive.tar.gz", "archive.tar", ".gz"},
		{"Makefile", "Makefile", ""},
		{".gitignore", "", ".gitignore"},
	}

	for _, c := range cases {
		base, ext := splitName(c.name)
		if base != c.base || ext != c.ext {
			t.Errorf("splitName(%q) = (%q, %q), want (%q, %q)", c.name, base, ext, c.base, c.ext)
		}
	}
}
