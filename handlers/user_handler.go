package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"clientdesk/models"
	"clientdesk/services"
	"clientdesk/utils"
)

type UserHandler struct {
	workspaces
}

func NewUserHandler(registry *services.Registry, logger *slog.Logger) *UserHandler {
	return &UserHandler{workspaces{registry: registry, logger: logger}}
}

func (h *UserHandler) GetUsers(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	users := ws.Users()
	utils.HandleListResponse(w, "Users retrieved successfully", users, len(users))
}

func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	var req models.CreateUserRequest
	if err := utils.DecodeAndValidate(w, r, &req); err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	user, err := ws.InviteUser(ctx, req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	utils.HandleDataResponse(w, "User created successfully", user, http.StatusCreated)
}

func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	var req models.UpdateUserRequest
	if err := utils.DecodeAndValidate(w, r, &req); err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	id := r.PathValue("id")
	user, err := ws.UpdateUser(ctx, id, req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.registry.Evict(id)
	utils.HandleDataResponse(w, "User updated successfully", user, http.StatusOK)
}
