package handlers

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"clientdesk/models"
	"clientdesk/services"
	"clientdesk/utils"
)

type BrochureHandler struct {
	workspaces
	maxUpload int64
}

func NewBrochureHandler(registry *services.Registry, logger *slog.Logger, maxUpload int64) *BrochureHandler {
	return &BrochureHandler{workspaces: workspaces{registry: registry, logger: logger}, maxUpload: maxUpload}
}

func (h *BrochureHandler) GetBrochures(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	brochures := ws.Brochures()
	utils.HandleListResponse(w, "Brochures retrieved successfully", brochures, len(brochures))
}

func (h *BrochureHandler) CreateBrochure(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	var in models.BrochureInput
	if err := utils.DecodeAndValidate(w, r, &in); err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), transferTimeout)
	defer cancel()

	brochure, err := ws.CreateBrochure(ctx, r.PathValue("id"), in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	utils.HandleDataResponse(w, "Brochure created successfully", brochure, http.StatusCreated)
}

func (h *BrochureHandler) GetPages(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	pages, err := ws.Pages(r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	utils.HandleListResponse(w, "Pages retrieved successfully", pages, len(pages))
}

func (h *BrochureHandler) AddPage(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	page, err := ws.AddPage(ctx, r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	utils.HandleDataResponse(w, "Page added successfully", page, http.StatusCreated)
}

func (h *BrochureHandler) UpdatePage(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	var req models.PageContentRequest
	if err := utils.DecodeAndValidate(w, r, &req); err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	page, err := ws.UpdatePageContent(ctx, r.PathValue("id"), req.Content)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	utils.HandleDataResponse(w, "Page saved successfully", page, http.StatusOK)
}

func (h *BrochureHandler) LockPage(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	page, err := ws.LockPage(ctx, r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	utils.HandleDataResponse(w, "Page locked", page, http.StatusOK)
}

func (h *BrochureHandler) UnlockPage(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	page, err := ws.UnlockPage(ctx, r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	utils.HandleDataResponse(w, "Page unlocked", page, http.StatusOK)
}

func (h *BrochureHandler) SetPageStatus(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	var req models.PageStatusRequest
	if err := utils.DecodeAndValidate(w, r, &req); err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	page, err := ws.SetPageStatus(ctx, r.PathValue("id"), req.Status)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	utils.HandleDataResponse(w, "Page status updated", page, http.StatusOK)
}

// PreviewPage returns the rendered page as an HTML fragment.
func (h *BrochureHandler) PreviewPage(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	preview, err := ws.PreviewPage(r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, preview)
}

func (h *BrochureHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		utils.HandleMessageResponse(w, "Failed to parse multipart form", http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		utils.HandleMessageResponse(w, "Failed to get image from form", http.StatusBadRequest)
		return
	}
	defer file.Close()

	ctx, cancel := context.WithTimeout(r.Context(), transferTimeout)
	defer cancel()

	page, err := ws.AttachPageImage(ctx, r.PathValue("id"), header.Filename, contentTypeOf(header), file)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	utils.HandleDataResponse(w, "Image uploaded successfully", page, http.StatusCreated)
}

func (h *BrochureHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), transferTimeout)
	defer cancel()

	stream, info, err := ws.OpenImage(ctx, r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	defer stream.Close()

	w.Header().Set("Content-Type", info.ContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	w.Header().Set("Cache-Control", "private, max-age=3600")
	if _, err := io.Copy(w, stream); err != nil {
		h.logger.Error("image download interrupted", "image_id", info.ID, "error", err)
	}
}

func (h *BrochureHandler) GetPageComments(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	comments, err := ws.PageComments(r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	utils.HandleListResponse(w, "Comments retrieved successfully", comments, len(comments))
}

func (h *BrochureHandler) AddPageComment(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	var in models.PageCommentInput
	if err := utils.DecodeAndValidate(w, r, &in); err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	comment, err := ws.AddPageComment(ctx, r.PathValue("id"), in.Text)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	utils.HandleDataResponse(w, "Comment added successfully", comment, http.StatusCreated)
}

func (h *BrochureHandler) ResolvePageComment(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	comment, err := ws.ResolvePageComment(ctx, r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	utils.HandleDataResponse(w, "Comment resolved", comment, http.StatusOK)
}
