package handlers

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"clientdesk/models"
	"clientdesk/services"
	"clientdesk/utils"
)

type FileHandler struct {
	workspaces
	maxUpload int64
}

func NewFileHandler(registry *services.Registry, logger *slog.Logger, maxUpload int64) *FileHandler {
	return &FileHandler{workspaces: workspaces{registry: registry, logger: logger}, maxUpload: maxUpload}
}

func (h *FileHandler) GetFiles(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	files := ws.Files()
	utils.HandleListResponse(w, "Files retrieved successfully", files, len(files))
}

func (h *FileHandler) GetProjectFiles(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	files, err := ws.ProjectFiles(r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	utils.HandleListResponse(w, "Files retrieved successfully", files, len(files))
}

// UploadFiles saves every part named "files" (or "file") as one batch.
// Category and comma-separated tags apply to the whole batch.
func (h *FileHandler) UploadFiles(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		utils.HandleMessageResponse(w, "Failed to parse multipart form", http.StatusBadRequest)
		return
	}
	headers := append(r.MultipartForm.File["files"], r.MultipartForm.File["file"]...)
	if len(headers) == 0 {
		utils.HandleMessageResponse(w, "No files in request", http.StatusBadRequest)
		return
	}

	category := r.FormValue("category")
	if err := utils.Validate.Var(category, "omitempty,oneof=document image design contract other"); err != nil {
		utils.HandleValidationResponse(w, http.StatusBadRequest, map[string]string{"category": "must be one of: document image design contract other"})
		return
	}
	tags := splitTags(r.FormValue("tags"))

	uploads := make([]services.Upload, 0, len(headers))
	for _, header := range headers {
		file, err := header.Open()
		if err != nil {
			utils.HandleMessageResponse(w, "Failed to read "+header.Filename, http.StatusBadRequest)
			return
		}
		defer file.Close()
		uploads = append(uploads, services.Upload{
			Filename:    header.Filename,
			ContentType: contentTypeOf(header),
			Category:    category,
			Tags:        tags,
			Body:        file,
		})
	}

	ctx, cancel := context.WithTimeout(r.Context(), transferTimeout)
	defer cancel()

	saved, err := ws.SaveUploads(ctx, r.PathValue("id"), uploads)
	switch {
	case err != nil && len(saved) == 0:
		writeError(w, h.logger, err)
	case err != nil:
		h.logger.Warn("batch upload partially failed", "saved", len(saved), "requested", len(uploads), "error", err)
		utils.HandleDataResponse(w, fmt.Sprintf("%d of %d files uploaded", len(saved), len(uploads)), saved, http.StatusMultiStatus)
	default:
		utils.HandleDataResponse(w, "Files uploaded successfully", saved, http.StatusCreated)
	}
}

func (h *FileHandler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), transferTimeout)
	defer cancel()

	stream, file, err := ws.DownloadFile(ctx, r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	defer stream.Close()

	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.FormatInt(file.Size, 10))
	if _, err := io.Copy(w, stream); err != nil {
		h.logger.Error("file download interrupted", "file_id", file.ID, "error", err)
	}
}

func (h *FileHandler) UpdateFile(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	var patch models.FilePatch
	if err := utils.DecodeAndValidate(w, r, &patch); err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	file, err := ws.UpdateFile(ctx, r.PathValue("id"), patch)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	utils.HandleDataResponse(w, "File updated successfully", file, http.StatusOK)
}

func (h *FileHandler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), transferTimeout)
	defer cancel()

	if err := ws.DeleteFile(ctx, r.PathValue("id")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	utils.HandleMessageResponse(w, "File deleted successfully", http.StatusOK)
}

func (h *FileHandler) GetDownloadHistory(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	history, err := ws.DownloadHistory(r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	utils.HandleListResponse(w, "Download history retrieved successfully", history, len(history))
}

func contentTypeOf(header *multipart.FileHeader) string {
	if ct := header.Header.Get("Content-Type"); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

func splitTags(raw string) []string {
	var tags []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
