package handler

import (
	"net/http"
	"vote_zone/internal/api/middleware"
	"vote_zone/internal/app/service"
	"vote_zone/internal/common"

	"github.com/go-chi/chi/v5"
)

type FileHandler struct {
	fileService *service.FileService
}

func NewFileHandler(fs *service.FileService) *FileHandler {
	return &FileHandler{fileService: fs}
}

func (h *FileHandler) RegisterRoutes(r chi.Router) {
	r.Post("/upload-url", h.createUploadURL)
	r.Post("/download-url", h.createDownloadURL)
}

func (h *FileHandler) createUploadURL(w http.ResponseWriter, r *http.Request) {
	var req service.UploadURLRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := h.fileService.CreateUploadURL(r.Context(), middleware.CallerFromContext(r.Context()), req)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, resp)
}

func (h *FileHandler) createDownloadURL(w http.ResponseWriter, r *http.Request) {
	var req service.DownloadURLRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := h.fileService.CreateDownloadURL(r.Context(), middleware.CallerFromContext(r.Context()), req)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, resp)
}
