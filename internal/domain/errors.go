package domain

import "errors"

// Типизированные ошибки доменного слоя. Проверяются через errors.Is.
var (
	// ErrNameConflict - элемент с таким именем уже существует в этой папке.
	// Для папок отдается пользователю как есть, для файлов гасится
	// подбором суффикса при загрузке.
	ErrNameConflict = errors.New("an item with this name already exists here")

	// ErrInvalidParent - родитель не существует, не папка или принадлежит другому владельцу
	ErrInvalidParent = errors.New("parent folder is invalid")

	// ErrNameResolutionExhausted - не удалось подобрать свободное имя за отведенное число попыток
	ErrNameResolutionExhausted = errors.New("could not resolve a unique name")

	ErrNotFound       = errors.New("item not found")
	ErrEmptySelection = errors.New("no items selected")
	ErrForbidden      = errors.New("access denied")
	ErrExpired        = errors.New("link is invalid or has expired")

	// ErrCodeTaken - коллизия кода шаринга, сервис генерирует новый
	ErrCodeTaken = errors.New("share code already taken")
)
