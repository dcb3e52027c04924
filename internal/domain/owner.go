package domain

import "time"

// Owner - зарегистрированный пользователь либо единственный гостевой аккаунт
type Owner struct {
	ID        string    `json:"id" db:"id"`
	Email     string    `json:"email" db:"email"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
