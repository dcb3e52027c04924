package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"vshare/internal/domain"
	"vshare/internal/service"
	"vshare/internal/service/s3"
)

// Ограничения множественной загрузки, как в исходной конфигурации multer
const (
	maxUploadFiles  = 10
	maxFileSize     = 500 * 1024 * 1024
	maxUploadMemory = 32 * 1024 * 1024
)

// ownerHeader - идентификатор владельца запроса; пустое значение
// означает гостевой аккаунт
const ownerHeader = "X-Owner-ID"

type ItemHandler struct {
	itemService *service.ItemService
	resolver    *service.OwnerResolver
	blobs       s3.Storage
}

func NewItemHandler(itemService *service.ItemService, resolver *service.OwnerResolver, blobs s3.Storage) *ItemHandler {
	return &ItemHandler{
		itemService: itemService,
		resolver:    resolver,
		blobs:       blobs,
	}
}

func (h *ItemHandler) ownerID(r *http.Request) (string, error) {
	return h.resolver.Resolve(r.Context(), r.Header.Get(ownerHeader))
}

// GetItems возвращает содержимое папки: GET /api/items?parentId=...
func (h *ItemHandler) GetItems(w http.ResponseWriter, r *http.Request) {
	ownerID, err := h.ownerID(r)
	if err != nil {
		respondError(w, err)
		return
	}

	parentID, err := parseOptionalUUID(r.URL.Query().Get("parentId"))
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Msg: "Invalid parentId"})
		return
	}

	items, err := h.itemService.List(r.Context(), ownerID, parentID)
	if err != nil {
		respondError(w, err)
		return
	}

	if items == nil {
		items = []domain.Item{}
	}
	respondJSON(w, http.StatusOK, items)
}

type createFolderRequest struct {
	Name     string     `json:"name"`
	ParentID *uuid.UUID `json:"parentId,omitempty"`
}

// CreateFolder создает папку: POST /api/items/folder.
// Конфликт имени отдается как 409, без автопереименования.
func (h *ItemHandler) CreateFolder(w http.ResponseWriter, r *http.Request) {
	ownerID, err := h.ownerID(r)
	if err != nil {
		respondError(w, err)
		return
	}

	var req createFolderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Msg: "Invalid request body"})
		return
	}

	folder, err := h.itemService.CreateFolder(r.Context(), ownerID, req.ParentID, req.Name)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, folder)
}

// UploadFiles принимает multipart-батч: POST /api/items/upload
func (h *ItemHandler) UploadFiles(w http.ResponseWriter, r *http.Request) {
	ownerID, err := h.ownerID(r)
	if err != nil {
		respondError(w, err)
		return
	}

	h.upload(w, r, ownerID)
}

func (h *ItemHandler) upload(w http.ResponseWriter, r *http.Request, ownerID string) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Msg: "Invalid multipart form"})
		return
	}

	parentID, err := parseOptionalUUID(r.FormValue("parentId"))
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Msg: "Invalid parentId"})
		return
	}

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		respondJSON(w, http.StatusBadRequest, errorResponse{Msg: "No files uploaded."})
		return
	}
	if len(headers) > maxUploadFiles {
		respondJSON(w, http.StatusBadRequest, errorResponse{
			Msg: fmt.Sprintf("Too many files: max is %d", maxUploadFiles),
		})
		return
	}

	uploads := make([]domain.FileUpload, 0, len(headers))
	for _, header := range headers {
		if header.Size > maxFileSize {
			respondJSON(w, http.StatusRequestEntityTooLarge, errorResponse{
				Msg: fmt.Sprintf("File %q exceeds the size limit", header.Filename),
			})
			return
		}

		file, err := header.Open()
		if err != nil {
			respondJSON(w, http.StatusBadRequest, errorResponse{Msg: "Failed to read uploaded file"})
			return
		}

		data, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			respondJSON(w, http.StatusBadRequest, errorResponse{Msg: "Failed to read uploaded file"})
			return
		}

		contentType := header.Header.Get("Content-Type")
		if contentType == "" {
			contentType = "application/octet-stream"
		}

		uploads = append(uploads, domain.FileUpload{
			Name:     header.Filename,
			MIMEType: contentType,
			Size:     header.Size,
			Data:     data,
		})
	}

	results, err := h.itemService.UploadFiles(r.Context(), ownerID, parentID, uploads)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, struct {
		Results []domain.UploadResult `json:"results"`
	}{Results: results})
}

type deleteResponse struct {
	Msg        string      `json:"msg"`
	RemovedIDs []uuid.UUID `json:"removed_ids"`
}

// DeleteItem удаляет элемент (папку - рекурсивно): DELETE /api/items/{id}
func (h *ItemHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	ownerID, err := h.ownerID(r)
	if err != nil {
		respondError(w, err)
		return
	}

	itemID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Msg: "Invalid item ID"})
		return
	}

	removed, err := h.itemService.Delete(r.Context(), ownerID, itemID)
	if err != nil {
		// Часть поддерева могла быть удалена до ошибки
		if len(removed) > 0 {
			log.Printf("[DeleteItem] Partial delete of %s: %d removed before error: %v", itemID, len(removed), err)
		}
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, deleteResponse{
		Msg:        "Item(s) removed successfully.",
		RemovedIDs: removed,
	})
}

// DownloadFile отдает содержимое файла владельцу: GET /api/items/{id}/download
func (h *ItemHandler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	ownerID, err := h.ownerID(r)
	if err != nil {
		respondError(w, err)
		return
	}

	itemID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Msg: "Invalid item ID"})
		return
	}

	item, err := h.itemService.GetFile(r.Context(), ownerID, itemID)
	if err != nil {
		respondError(w, err)
		return
	}

	streamBlob(w, r, h.blobs, item)
}

// streamBlob пишет блоб файла в ответ с заголовками скачивания
func streamBlob(w http.ResponseWriter, r *http.Request, blobs s3.Storage, item *domain.Item) {
	if item.BlobKey == nil {
		respondJSON(w, http.StatusNotFound, errorResponse{Msg: "File content is not available"})
		return
	}

	obj, err := blobs.GetObject(r.Context(), *item.BlobKey)
	if err != nil {
		log.Printf("[streamBlob] Failed to get blob %s: %v", *item.BlobKey, err)
		respondJSON(w, http.StatusNotFound, errorResponse{Msg: "File content is not available"})
		return
	}
	defer obj.Close()

	w.Header().Set("Content-Type", obj.ContentType())
	if obj.ContentLength() > 0 {
		w.Header().Set("Content-Length", fmt.Sprintf("%d", obj.ContentLength()))
	}
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename*=UTF-8''%s`, url.PathEscape(item.Name)))

	if _, err := io.Copy(w, obj); err != nil {
		log.Printf("[streamBlob] Failed to stream %s: %v", *item.BlobKey, err)
	}
}

func parseOptionalUUID(raw string) (*uuid.UUID, error) {
	if raw == "" || raw == "null" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}
