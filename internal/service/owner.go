package service

import (
	"context"
	"fmt"
	"sync"
)

// Гостевой аккаунт - единственный общий владелец для анонимных загрузок
const (
	GuestEmail = "guest@vshare-guest.com"
	GuestName  = "Guest"
)

// OwnerResolver отображает принципала запроса в идентификатор владельца.
// Гостевая запись создается при первом обращении, ее идентификатор
// мемоизируется на время жизни процесса; неудачное разрешение
// не кэшируется и будет повторено.
type OwnerResolver struct {
	owners OwnerStore

	mu      sync.Mutex
	guestID string
}

func NewOwnerResolver(owners OwnerStore) *OwnerResolver {
	return &OwnerResolver{owners: owners}
}

// GuestID возвращает идентификатор гостевого владельца
func (r *OwnerResolver) GuestID(ctx context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.guestID != "" {
		return r.guestID, nil
	}

	owner, err := r.owners.GetOrCreateByEmail(ctx, GuestEmail, GuestName)
	if err != nil {
		return "", fmt.Errorf("failed to resolve guest owner: %w", err)
	}
	r.guestID = owner.ID

	return r.guestID, nil
}

// Resolve возвращает идентификатор владельца для принципала запроса.
// Пустой принципал означает гостя.
func (r *OwnerResolver) Resolve(ctx context.Context, principal string) (string, error) {
	if principal == "" {
		return r.GuestID(ctx)
	}

	owner, err := r.owners.GetByID(ctx, principal)
	if err != nil {
		return "", fmt.Errorf("failed to resolve owner %q: %w", principal, err)
	}
	return owner.ID, nil
}

// IsGuest сообщает, принадлежит ли идентификатор гостевому аккаунту
func (r *OwnerResolver) IsGuest(ctx context.Context, ownerID string) (bool, error) {
	guestID, err := r.GuestID(ctx)
	if err != nil {
		return false, err
	}
	return ownerID == guestID, nil
}
