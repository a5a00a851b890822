package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	middleware "clientdesk/middlewares"
	"clientdesk/models"
	repository "clientdesk/repositories"
	"clientdesk/services"
	"clientdesk/utils"
)

const (
	requestTimeout  = 10 * time.Second
	transferTimeout = 30 * time.Second
)

// workspaces resolves the caller's workspace for authenticated handlers.
type workspaces struct {
	registry *services.Registry
	logger   *slog.Logger
}

func (h *workspaces) workspace(w http.ResponseWriter, r *http.Request) (*services.Workspace, bool) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	ws, err := h.registry.For(ctx, middleware.GetUserIDFromContext(r.Context()))
	if errors.Is(err, models.ErrNotFound) {
		utils.HandleMessageResponse(w, "Account no longer exists", http.StatusUnauthorized)
		return nil, false
	}
	if err != nil {
		writeError(w, h.logger, err)
		return nil, false
	}
	return ws, true
}

// writeError maps the error taxonomy to HTTP statuses.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var lockErr *models.LockError
	switch {
	case errors.As(err, &lockErr):
		utils.HandleDataResponse(w, "Page is being edited by "+lockErr.HolderName, map[string]any{
			"page_id":     lockErr.PageID,
			"holder_id":   lockErr.HolderID,
			"holder_name": lockErr.HolderName,
			"locked_at":   lockErr.LockedAt,
		}, http.StatusConflict)
	case errors.Is(err, models.ErrPageLocked):
		utils.HandleMessageResponse(w, "Page is being edited by another user", http.StatusConflict)
	case errors.Is(err, models.ErrNotFound):
		utils.HandleMessageResponse(w, "Not found", http.StatusNotFound)
	case errors.Is(err, models.ErrForbidden):
		utils.HandleMessageResponse(w, "You do not have permission to do this", http.StatusForbidden)
	case errors.Is(err, models.ErrEmailTaken):
		utils.HandleValidationResponse(w, http.StatusConflict, map[string]string{"email": "is already registered"})
	case errors.Is(err, models.ErrInvalidCredentials):
		utils.HandleMessageResponse(w, "Invalid email or password", http.StatusUnauthorized)
	case errors.Is(err, models.ErrInvalidReference):
		utils.HandleMessageResponse(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, models.ErrBackendUnavailable):
		utils.HandleMessageResponse(w, "Service temporarily unavailable", http.StatusServiceUnavailable)
	case errors.Is(err, context.DeadlineExceeded):
		utils.HandleMessageResponse(w, "Request timed out", http.StatusGatewayTimeout)
	default:
		logger.Error("request failed", "error", err)
		utils.HandleMessageResponse(w, "Internal server error", http.StatusInternalServerError)
	}
}

type HealthHandler struct {
	remote bool
}

func NewHealthHandler(store *repository.Store) *HealthHandler {
	return &HealthHandler{remote: store.Remote}
}

// Check reports which backend is serving; "local" means sample data and
// remote operations are disabled.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	backend := "local"
	if h.remote {
		backend = "mongodb"
	}
	utils.HandleDataResponse(w, "OK", map[string]string{"backend": backend}, http.StatusOK)
}
