package domain

import (
	"time"

	"github.com/google/uuid"
)

// Длина кода и алфавит как в исходной схеме: заглавные буквы и цифры
const (
	ShareCodeLength   = 6
	ShareCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// Share представляет временную подборку элементов, доступную по короткому коду
type Share struct {
	ID        uuid.UUID   `json:"id" db:"id"`
	Code      string      `json:"code" db:"code"`
	ItemIDs   []uuid.UUID `json:"item_ids"`
	OwnerID   string      `json:"owner_id" db:"owner_id"`
	CreatedAt time.Time   `json:"created_at" db:"created_at"`
	ExpiresAt time.Time   `json:"expires_at" db:"expires_at"`
}

func (s *Share) Contains(itemID uuid.UUID) bool {
	for _, id := range s.ItemIDs {
		if id == itemID {
			return true
		}
	}
	return false
}
