package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"clientdesk/models"
	"clientdesk/services"
	"clientdesk/utils"
)

// TaskHandler serves project tasks and comment tasks.
type TaskHandler struct {
	workspaces
}

func NewTaskHandler(registry *services.Registry, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{workspaces{registry: registry, logger: logger}}
}

func (h *TaskHandler) GetTasks(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	tasks, err := ws.Tasks(r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	utils.HandleListResponse(w, "Tasks retrieved successfully", tasks, len(tasks))
}

func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	var in models.TaskInput
	if err := utils.DecodeAndValidate(w, r, &in); err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	task, err := ws.CreateTask(ctx, r.PathValue("id"), in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	utils.HandleDataResponse(w, "Task created successfully", task, http.StatusCreated)
}

func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	var in models.TaskInput
	if err := utils.DecodeAndValidate(w, r, &in); err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	task, err := ws.UpdateTask(ctx, r.PathValue("id"), in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	utils.HandleDataResponse(w, "Task updated successfully", task, http.StatusOK)
}

func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if err := ws.DeleteTask(ctx, r.PathValue("id")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	utils.HandleMessageResponse(w, "Task deleted successfully", http.StatusOK)
}

func (h *TaskHandler) GetComments(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	comments, err := ws.Comments(r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	utils.HandleListResponse(w, "Comments retrieved successfully", comments, len(comments))
}

func (h *TaskHandler) CreateComment(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	var in models.CommentInput
	if err := utils.DecodeAndValidate(w, r, &in); err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	comment, err := ws.CreateComment(ctx, r.PathValue("id"), in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	utils.HandleDataResponse(w, "Comment created successfully", comment, http.StatusCreated)
}

func (h *TaskHandler) UpdateComment(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	var patch models.StatusPatch
	if err := utils.DecodeAndValidate(w, r, &patch); err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	comment, err := ws.SetCommentStatus(ctx, r.PathValue("id"), patch.Status)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	utils.HandleDataResponse(w, "Comment updated successfully", comment, http.StatusOK)
}

func (h *TaskHandler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if err := ws.DeleteComment(ctx, r.PathValue("id")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	utils.HandleMessageResponse(w, "Comment deleted successfully", http.StatusOK)
}
