package handler

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"vshare/internal/domain"
	"vshare/internal/service"
	"vshare/internal/service/s3"
)

type ShareHandler struct {
	shareService   *service.ShareService
	archiveService *service.ArchiveService
	resolver       *service.OwnerResolver
	blobs          s3.Storage
}

func NewShareHandler(
	shareService *service.ShareService,
	archiveService *service.ArchiveService,
	resolver *service.OwnerResolver,
	blobs s3.Storage,
) *ShareHandler {
	return &ShareHandler{
		shareService:   shareService,
		archiveService: archiveService,
		resolver:       resolver,
		blobs:          blobs,
	}
}

type createShareRequest struct {
	ItemIDs []uuid.UUID `json:"itemIds"`
}

type createShareResponse struct {
	Code string `json:"code"`
}

// CreateShare создает ссылку на выбранные элементы: POST /api/items/share
func (h *ShareHandler) CreateShare(w http.ResponseWriter, r *http.Request) {
	ownerID, err := h.resolver.Resolve(r.Context(), r.Header.Get(ownerHeader))
	if err != nil {
		respondError(w, err)
		return
	}

	var req createShareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Msg: "Invalid request body"})
		return
	}

	share, err := h.shareService.CreateShare(r.Context(), ownerID, req.ItemIDs)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, createShareResponse{Code: share.Code})
}

// GetSharedItems возвращает живые элементы по коду: GET /api/items/share/{code}.
// Аутентификация не требуется - код и есть право доступа.
func (h *ShareHandler) GetSharedItems(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	items, err := h.shareService.Resolve(r.Context(), code)
	if err != nil {
		respondError(w, err)
		return
	}

	if items == nil {
		items = []domain.Item{}
	}
	respondJSON(w, http.StatusOK, items)
}

// DownloadSharedFile отдает блоб файла из корня выдачи:
// GET /api/items/share/{code}/file/{id}
func (h *ShareHandler) DownloadSharedFile(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	fileID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Msg: "Invalid file ID"})
		return
	}

	item, err := h.shareService.ResolveFile(r.Context(), code, fileID)
	if err != nil {
		respondError(w, err)
		return
	}

	streamBlob(w, r, h.blobs, item)
}

// DownloadSharedZip упаковывает папку из выдачи в zip-поток:
// GET /api/items/share/{code}/zip/{id}
func (h *ShareHandler) DownloadSharedZip(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	folderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Msg: "Invalid folder ID"})
		return
	}

	folder, err := h.shareService.ResolveFolder(r.Context(), code, folderID)
	if err != nil {
		respondError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename*=UTF-8''%s.zip`, url.PathEscape(folder.Name)))

	// Заголовки уже отправлены, при ошибке остается только оборвать поток
	if err := h.archiveService.BuildZip(r.Context(), code, folderID, w); err != nil {
		log.Printf("[DownloadSharedZip] Failed to build zip for %s/%s: %v", code, folderID, err)
	}
}
