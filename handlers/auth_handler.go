package handlers

import (
	"context"
	"log/slog"
	"net/http"

	middleware "clientdesk/middlewares"
	"clientdesk/models"
	"clientdesk/services"
	"clientdesk/utils"
)

type AuthHandler struct {
	service services.AuthService
	logger  *slog.Logger
}

func NewAuthHandler(service services.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{service: service, logger: logger}
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req models.SignupRequest
	if err := utils.DecodeAndValidate(w, r, &req); err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	resp, err := h.service.Signup(ctx, req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.logger.Info("client signed up", "user_id", resp.User.ID)
	utils.HandleDataResponse(w, "Account created successfully", resp, http.StatusCreated)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := utils.DecodeAndValidate(w, r, &req); err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	resp, err := h.service.Login(ctx, req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	utils.HandleDataResponse(w, "Logged in successfully", resp, http.StatusOK)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	user, err := h.service.Me(ctx, middleware.GetUserIDFromContext(r.Context()))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	utils.HandleDataResponse(w, "User retrieved successfully", user, http.StatusOK)
}

// CaptureLead accepts the public enquiry form; no account is needed.
func (h *AuthHandler) CaptureLead(w http.ResponseWriter, r *http.Request) {
	var lead models.Lead
	if err := utils.DecodeAndValidate(w, r, &lead); err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	created, err := h.service.CaptureLead(ctx, lead)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	utils.HandleDataResponse(w, "Thank you, we will be in touch", created, http.StatusCreated)
}
