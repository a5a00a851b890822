package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"clientdesk/models"
	"clientdesk/services"
	"clientdesk/utils"
)

type ProjectHandler struct {
	workspaces
}

func NewProjectHandler(registry *services.Registry, logger *slog.Logger) *ProjectHandler {
	return &ProjectHandler{workspaces{registry: registry, logger: logger}}
}

func (h *ProjectHandler) GetProjects(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	projects := ws.Projects()
	utils.HandleListResponse(w, "Projects retrieved successfully", projects, len(projects))
}

func (h *ProjectHandler) GetProject(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	project, err := ws.Project(r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	utils.HandleDataResponse(w, "Project retrieved successfully", project, http.StatusOK)
}

func (h *ProjectHandler) CreateProject(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	var in models.ProjectInput
	if err := utils.DecodeAndValidate(w, r, &in); err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	project, err := ws.CreateProject(ctx, in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	utils.HandleDataResponse(w, "Project created successfully", project, http.StatusCreated)
}

func (h *ProjectHandler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	var patch models.ProjectPatch
	if err := utils.DecodeAndValidate(w, r, &patch); err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	project, err := ws.UpdateProject(ctx, r.PathValue("id"), patch)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	utils.HandleDataResponse(w, "Project updated successfully", project, http.StatusOK)
}

func (h *ProjectHandler) GetStages(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	stages, err := ws.Stages(r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	utils.HandleListResponse(w, "Stages retrieved successfully", stages, len(stages))
}

func (h *ProjectHandler) UpdateStage(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	var req models.StageProgressRequest
	if err := utils.DecodeAndValidate(w, r, &req); err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	stage, err := ws.UpdateStageProgress(ctx, r.PathValue("id"), req.Progress)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	utils.HandleDataResponse(w, "Stage updated successfully", stage, http.StatusOK)
}

func (h *ProjectHandler) SetStageApproval(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	var req models.StageApprovalRequest
	if err := utils.DecodeAndValidate(w, r, &req); err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	stage, err := ws.SetStageApproval(ctx, r.PathValue("id"), req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	utils.HandleDataResponse(w, "Stage "+stage.Approval, stage, http.StatusOK)
}
