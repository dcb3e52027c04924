package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"vshare/internal/domain"
)

func TestCreateShareEmptySelection(t *testing.T) {
	env := newTestEnv(t)
	owner := env.registeredOwner(t)

	_, err := env.shareService.CreateShare(context.Background(), owner, nil)
	if !errors.Is(err, domain.ErrEmptySelection) {
		t.Fatalf("got %v, want ErrEmptySelection", err)
	}
}

func TestCreateShareCodeFormat(t *testing.T) {
	env := newTestEnv(t)
	owner := env.registeredOwner(t)

	item := env.upload(t, owner, nil, "a.txt")[0].Item
	share, err := env.shareService.CreateShare(context.Background(), owner, []uuid.UUID{item.ID})
	if err != nil {
		t.Fatalf("CreateShare: %v", err)
	}

	if len(share.Code) != domain.ShareCodeLength {
		t.Errorf("code %q: got length %d, want %d", share.Code, len(share.Code), domain.ShareCodeLength)
	}
	for _, c := range share.Code {
		if !strings.ContainsRune(domain.ShareCodeAlphabet, c) {
			t.Errorf("code %q contains %q outside the alphabet", share.Code, c)
		}
	}
}

func TestCreateShareForeignItemForbidden(t *testing.T) {
	env := newTestEnv(t)
	owner := env.registeredOwner(t)
	ctx := context.Background()

	other, err := env.owners.GetOrCreateByEmail(ctx, "other@example.com", "Other")
	if err != nil {
		t.Fatalf("create other owner: %v", err)
	}

	mine := env.upload(t, owner, nil, "mine.txt")[0].Item
	theirs := env.upload(t, other.ID, nil, "theirs.txt")[0].Item

	// Один чужой элемент проваливает весь набор
	_, err = env.shareService.CreateShare(ctx, owner, []uuid.UUID{mine.ID, theirs.ID})
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("got %v, want ErrForbidden", err)
	}

	// Частичный шаринг не сохраняется
	if got := len(env.shares.All()); got != 0 {
		t.Errorf("expected no shares persisted, got %d", got)
	}
}

func TestCreateShareMissingItemForbidden(t *testing.T) {
	env := newTestEnv(t)
	owner := env.registeredOwner(t)

	_, err := env.shareService.CreateShare(context.Background(), owner, []uuid.UUID{uuid.New()})
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("got %v, want ErrForbidden", err)
	}
}

func TestResolveCaseInsensitive(t *testing.T) {
	env := newTestEnv(t)
	owner := env.registeredOwner(t)
	ctx := context.Background()

	item := env.upload(t, owner, nil, "a.txt")[0].Item
	share, err := env.shareService.CreateShare(ctx, owner, []uuid.UUID{item.ID})
	if err != nil {
		t.Fatalf("CreateShare: %v", err)
	}

	items, err := env.shareService.Resolve(ctx, strings.ToLower(share.Code))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(items) != 1 || items[0].ID != item.ID {
		t.Fatalf("expected the shared item back, got %d items", len(items))
	}
}

func TestResolveUnknownCode(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.shareService.Resolve(ctx, "ABC123"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("unknown code: got %v, want ErrNotFound", err)
	}
	if _, err := env.shareService.Resolve(ctx, "TOOLONGCODE"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("malformed code: got %v, want ErrNotFound", err)
	}
}

func TestResolveExpiredShare(t *testing.T) {
	env := newTestEnv(t)
	owner := env.registeredOwner(t)
	ctx := context.Background()

	item := env.upload(t, owner, nil, "a.txt")[0].Item

	// Отрицательный TTL: ссылка рождается просроченной
	expired := NewShareService(env.shares, env.items, -time.Minute)
	share, err := expired.CreateShare(ctx, owner, []uuid.UUID{item.ID})
	if err != nil {
		t.Fatalf("CreateShare: %v", err)
	}

	if _, err := env.shareService.Resolve(ctx, share.Code); !errors.Is(err, domain.ErrExpired) {
		t.Fatalf("got %v, want ErrExpired", err)
	}
}

func TestResolveSkipsExpiredItems(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	guestID, err := env.resolver.GuestID(ctx)
	if err != nil {
		t.Fatalf("GuestID: %v", err)
	}

	gone := env.upload(t, guestID, nil, "gone.txt")[0].Item
	keep := env.upload(t, guestID, nil, "keep.txt")[0].Item

	share, err := env.shareService.CreateShare(ctx, guestID, []uuid.UUID{gone.ID, keep.ID})
	if err != nil {
		t.Fatalf("CreateShare: %v", err)
	}

	// Один из файлов истек после создания ссылки
	forceExpire(t, env, gone.ID)

	items, err := env.shareService.Resolve(ctx, share.Code)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(items) != 1 || items[0].ID != keep.ID {
		t.Fatalf("expected only the live item, got %d items", len(items))
	}
}

// forceExpire переписывает срок жизни элемента в прошлое
func forceExpire(t *testing.T, env *testEnv, id uuid.UUID) {
	t.Helper()

	item, err := env.items.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if _, err := env.items.DeleteByIDs(context.Background(), []uuid.UUID{id}); err != nil {
		t.Fatalf("DeleteByIDs: %v", err)
	}
	past := time.Now().Add(-time.Hour)
	item.ExpiresAt = &past
	if err := env.items.Insert(context.Background(), item); err != nil {
		t.Fatalf("Insert: %v", err)
	}
}

func TestResolveFolderScope(t *testing.T) {
	env := newTestEnv(t)
	owner := env.registeredOwner(t)
	ctx := context.Background()

	shared := env.mustFolder(t, owner, nil, "shared")
	private := env.mustFolder(t, owner, nil, "private")
	file := env.upload(t, owner, nil, "a.txt")[0].Item

	share, err := env.shareService.CreateShare(ctx, owner, []uuid.UUID{shared.ID, file.ID})
	if err != nil {
		t.Fatalf("CreateShare: %v", err)
	}

	if _, err := env.shareService.ResolveFolder(ctx, share.Code, shared.ID); err != nil {
		t.Errorf("shared folder: %v", err)
	}

	// Папка того же владельца вне набора недоступна по коду
	if _, err := env.shareService.ResolveFolder(ctx, share.Code, private.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("private folder: got %v, want ErrForbidden", err)
	}

	// Файл нельзя разрешить как папку
	if _, err := env.shareService.ResolveFolder(ctx, share.Code, file.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("file as folder: got %v, want ErrNotFound", err)
	}
}

func TestResolveFileScope(t *testing.T) {
	env := newTestEnv(t)
	owner := env.registeredOwner(t)
	ctx := context.Background()

	shared := env.upload(t, owner, nil, "shared.txt")[0].Item
	private := env.upload(t, owner, nil, "private.txt")[0].Item

	share, err := env.shareService.CreateShare(ctx, owner, []uuid.UUID{shared.ID})
	if err != nil {
		t.Fatalf("CreateShare: %v", err)
	}

	if _, err := env.shareService.ResolveFile(ctx, share.Code, shared.ID); err != nil {
		t.Errorf("shared file: %v", err)
	}
	if _, err := env.shareService.ResolveFile(ctx, share.Code, private.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("private file: got %v, want ErrForbidden", err)
	}
}
