package service

import (
	"context"
	"fmt"
	"log"
	"time"
)

// ExpiryService физически удаляет просроченные элементы и шаринги.
// Чтения фильтруют просроченное сами, поэтому между проходами
// свипера контракт видимости не нарушается.
type ExpiryService struct {
	items  ItemStore
	shares ShareStore
}

func NewExpiryService(items ItemStore, shares ShareStore) *ExpiryService {
	return &ExpiryService{
		items:  items,
		shares: shares,
	}
}

// Sweep выполняет один проход очистки
func (s *ExpiryService) Sweep(ctx context.Context) error {
	shares, err := s.shares.DeleteExpired(ctx)
	if err != nil {
		return fmt.Errorf("failed to sweep expired shares: %w", err)
	}

	items, err := s.items.DeleteExpired(ctx)
	if err != nil {
		return fmt.Errorf("failed to sweep expired items: %w", err)
	}

	if items > 0 || shares > 0 {
		log.Printf("[Sweep] Removed %d expired items, %d expired shares", items, shares)
	}

	return nil
}

// Run запускает периодическую очистку до отмены контекста
func (s *ExpiryService) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.Sweep(ctx); err != nil {
				log.Printf("Error during expiry sweep: %v", err)
			}
		case <-ctx.Done():
			return
		}
	}
}
