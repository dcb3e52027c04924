package domain

import (
	"time"

	"github.com/google/uuid"
)

type ItemKind string

const (
	ItemKindFile   ItemKind = "file"
	ItemKindFolder ItemKind = "folder"
)

// Item представляет узел дерева файлов и папок пользователя
type Item struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	Name        string     `json:"name" db:"name"`
	Kind        ItemKind   `json:"kind" db:"kind"`
	ParentID    *uuid.UUID `json:"parent_id,omitempty" db:"parent_id"`
	OwnerID     string     `json:"owner_id" db:"owner_id"`
	BlobKey     *string    `json:"blob_key,omitempty" db:"blob_key"`
	StoragePath *string    `json:"storage_path,omitempty" db:"storage_path"`
	SizeBytes   int64      `json:"size_bytes" db:"size_bytes"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty" db:"expires_at"`
}

func (i *Item) IsFolder() bool {
	return i.Kind == ItemKindFolder
}

// FileUpload описывает один загружаемый файл в батче
type FileUpload struct {
	Name     string
	MIMEType string
	Size     int64
	Data     []byte
}

// UploadResult представляет результат загрузки одного файла из батча.
// Батч не атомарен: часть файлов может быть создана, часть - нет.
type UploadResult struct {
	Name  string `json:"name"`
	Item  *Item  `json:"item,omitempty"`
	Error string `json:"error,omitempty"`
}
