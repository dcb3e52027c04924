package handler

import (
	"encoding/json"
	"net/http"

	"vshare/internal/service"
)

// GuestHandler обслуживает публичные маршруты без заголовка владельца:
// все операции выполняются от имени гостевого аккаунта
type GuestHandler struct {
	items        *ItemHandler
	shareService *service.ShareService
	resolver     *service.OwnerResolver
}

func NewGuestHandler(items *ItemHandler, shareService *service.ShareService, resolver *service.OwnerResolver) *GuestHandler {
	return &GuestHandler{
		items:        items,
		shareService: shareService,
		resolver:     resolver,
	}
}

// UploadFiles принимает гостевую загрузку: POST /api/guest/upload.
// Файлы попадают в корень гостевого аккаунта и живут до истечения TTL.
func (h *GuestHandler) UploadFiles(w http.ResponseWriter, r *http.Request) {
	guestID, err := h.resolver.GuestID(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}

	h.items.upload(w, r, guestID)
}

// CreateShare создает ссылку на гостевые файлы: POST /api/guest/share
func (h *GuestHandler) CreateShare(w http.ResponseWriter, r *http.Request) {
	guestID, err := h.resolver.GuestID(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}

	var req createShareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Msg: "Invalid request body"})
		return
	}

	share, err := h.shareService.CreateShare(r.Context(), guestID, req.ItemIDs)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, createShareResponse{Code: share.Code})
}
