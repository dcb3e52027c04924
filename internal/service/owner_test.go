package service

import (
	"context"
	"errors"
	"testing"

	"vshare/internal/domain"
	"vshare/internal/repository/memory"
)

func TestResolveEmptyPrincipalIsGuest(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	resolved, err := env.resolver.Resolve(ctx, "")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	guestID, err := env.resolver.GuestID(ctx)
	if err != nil {
		t.Fatalf("GuestID: %v", err)
	}
	if resolved != guestID {
		t.Errorf("got %q, want guest %q", resolved, guestID)
	}

	// Гостевая запись создается один раз
	owner, err := env.owners.GetByID(ctx, guestID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if owner.Email != GuestEmail {
		t.Errorf("got email %q, want %q", owner.Email, GuestEmail)
	}
}

func TestResolveUnknownPrincipal(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.resolver.Resolve(context.Background(), "no-such-owner")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

// flakyOwnerStore падает на первых failures обращениях
type flakyOwnerStore struct {
	*memory.OwnerStore
	failures int
}

func (s *flakyOwnerStore) GetOrCreateByEmail(ctx context.Context, email, name string) (*domain.Owner, error) {
	if s.failures > 0 {
		s.failures--
		return nil, errors.New("connection refused")
	}
	return s.OwnerStore.GetOrCreateByEmail(ctx, email, name)
}

func TestGuestResolutionRetriesAfterFailure(t *testing.T) {
	store := &flakyOwnerStore{OwnerStore: memory.NewOwnerStore(), failures: 1}
	resolver := NewOwnerResolver(store)
	ctx := context.Background()

	// Первое обращение падает и не должно кэшироваться
	if _, err := resolver.GuestID(ctx); err == nil {
		t.Fatal("expected first resolution to fail")
	}

	guestID, err := resolver.GuestID(ctx)
	if err != nil {
		t.Fatalf("second resolution: %v", err)
	}
	if guestID == "" {
		t.Fatal("expected guest id after retry")
	}

	isGuest, err := resolver.IsGuest(ctx, guestID)
	if err != nil {
		t.Fatalf("IsGuest: %v", err)
	}
	if !isGuest {
		t.Error("resolved id must be recognized as guest")
	}
}
