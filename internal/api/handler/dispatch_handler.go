package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apimw "github.com/alumnihub/event-mailer/internal/api/middleware"
	"github.com/alumnihub/event-mailer/internal/domain"
	"github.com/alumnihub/event-mailer/internal/service"
)

// DispatchHandler handles the dispatch-trigger and dispatch-status endpoints.
type DispatchHandler struct {
	svc    *service.DispatchService
	logger *zap.Logger
}

func NewDispatchHandler(svc *service.DispatchService, logger *zap.Logger) *DispatchHandler {
	return &DispatchHandler{svc: svc, logger: logger}
}

// Dispatch handles POST /api/v1/events/{id}/dispatch
//
// @Summary     Queue an email to every registered participant of an event
// @Tags        dispatches
// @Accept      json
// @Produce     json
// @Param       id    path      string                  true  "Event ID"
// @Param       body  body      domain.DispatchRequest  true  "Subject (optional) and rendered HTML body"
// @Success     202   {object}  map[string]any
// @Failure     404   {object}  map[string]string
// @Failure     422   {object}  map[string]string
// @Router      /api/v1/events/{id}/dispatch [post]
func (h *DispatchHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "id")

	var req domain.DispatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	d, err := h.svc.DispatchEventMail(r.Context(), eventID, req)
	if err != nil {
		h.logger.Warn("dispatch failed",
			zap.String("event_id", eventID),
			zap.String("correlation_id", apimw.GetCorrelationID(r.Context())),
			zap.Error(err),
		)
		mapError(w, err)
		return
	}

	respondJSON(w, http.StatusAccepted, map[string]any{
		"status":      "Queued",
		"count":       d.Total,
		"dispatch_id": d.ID,
	})
}

// GetDispatch handles GET /api/v1/dispatches/{id}
//
// @Summary  Get a dispatch aggregate and its jobs
// @Tags     dispatches
// @Produce  json
// @Param    id   path      string  true  "Dispatch UUID"
// @Success  200  {object}  map[string]any
// @Failure  404  {object}  map[string]string
// @Router   /api/v1/dispatches/{id} [get]
func (h *DispatchHandler) GetDispatch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	d, jobs, err := h.svc.GetDispatch(r.Context(), id)
	if err != nil {
		mapError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"dispatch": d,
		"jobs":     jobs,
	})
}
