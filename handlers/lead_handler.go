package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"clientdesk/models"
	"clientdesk/services"
	"clientdesk/utils"
)

// LeadHandler serves the sales pipeline: leads and meetings.
type LeadHandler struct {
	workspaces
}

func NewLeadHandler(registry *services.Registry, logger *slog.Logger) *LeadHandler {
	return &LeadHandler{workspaces{registry: registry, logger: logger}}
}

func (h *LeadHandler) GetLeads(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	leads, err := ws.Leads()
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	utils.HandleListResponse(w, "Leads retrieved successfully", leads, len(leads))
}

func (h *LeadHandler) CreateLead(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	var in models.Lead
	if err := utils.DecodeAndValidate(w, r, &in); err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	lead, err := ws.CreateLead(ctx, in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	utils.HandleDataResponse(w, "Lead created successfully", lead, http.StatusCreated)
}

func (h *LeadHandler) UpdateLead(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	var patch models.LeadPatch
	if err := utils.DecodeAndValidate(w, r, &patch); err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	lead, err := ws.UpdateLead(ctx, r.PathValue("id"), patch)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	utils.HandleDataResponse(w, "Lead updated successfully", lead, http.StatusOK)
}

func (h *LeadHandler) DeleteLead(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if err := ws.DeleteLead(ctx, r.PathValue("id")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	utils.HandleMessageResponse(w, "Lead deleted successfully", http.StatusOK)
}

func (h *LeadHandler) GetMeetings(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	meetings := ws.Meetings()
	utils.HandleListResponse(w, "Meetings retrieved successfully", meetings, len(meetings))
}

func (h *LeadHandler) CreateMeeting(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	var in models.Meeting
	if err := utils.DecodeAndValidate(w, r, &in); err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	meeting, err := ws.CreateMeeting(ctx, in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	utils.HandleDataResponse(w, "Meeting scheduled successfully", meeting, http.StatusCreated)
}

func (h *LeadHandler) DeleteMeeting(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if err := ws.DeleteMeeting(ctx, r.PathValue("id")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	utils.HandleMessageResponse(w, "Meeting cancelled", http.StatusOK)
}
