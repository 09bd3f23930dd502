package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/alumnihub/event-mailer/internal/domain"
	"github.com/alumnihub/event-mailer/internal/service"
)

// JobHandler handles send-job inspection and cancellation endpoints.
type JobHandler struct {
	svc    *service.DispatchService
	logger *zap.Logger
}

func NewJobHandler(svc *service.DispatchService, logger *zap.Logger) *JobHandler {
	return &JobHandler{svc: svc, logger: logger}
}

// List handles GET /api/v1/jobs
//
// @Summary  List send jobs with filtering and pagination
// @Tags     jobs
// @Produce  json
// @Param    status       query     string  false  "Filter by status"
// @Param    dispatch_id  query     string  false  "Filter by dispatch"
// @Param    page         query     int     false  "Page number (default 1)"
// @Param    limit        query     int     false  "Items per page (default 20, max 100)"
// @Success  200          {object}  map[string]any
// @Router   /api/v1/jobs [get]
func (h *JobHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := parseListFilter(r)
	jobs, total, err := h.svc.ListJobs(r.Context(), filter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list jobs")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"data":  jobs,
		"total": total,
		"page":  filter.Page,
		"limit": filter.Limit,
	})
}

// GetByID handles GET /api/v1/jobs/{id}
//
// @Summary  Get a send job by ID
// @Tags     jobs
// @Produce  json
// @Param    id   path      string  true  "Job UUID"
// @Success  200  {object}  domain.SendJob
// @Failure  404  {object}  map[string]string
// @Router   /api/v1/jobs/{id} [get]
func (h *JobHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	j, err := h.svc.GetJob(r.Context(), id)
	if err != nil {
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, j)
}

// Cancel handles DELETE /api/v1/jobs/{id}
//
// @Summary  Cancel a job that has not started processing
// @Tags     jobs
// @Param    id   path      string  true  "Job UUID"
// @Success  204
// @Failure  404  {object}  map[string]string
// @Failure  409  {object}  map[string]string
// @Router   /api/v1/jobs/{id} [delete]
func (h *JobHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.CancelJob(r.Context(), id); err != nil {
		mapError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseListFilter(r *http.Request) domain.ListFilter {
	q := r.URL.Query()
	filter := domain.ListFilter{Page: 1, Limit: 20}

	if p, err := strconv.Atoi(q.Get("page")); err == nil && p > 0 {
		filter.Page = p
	}
	if l, err := strconv.Atoi(q.Get("limit")); err == nil && l > 0 && l <= 100 {
		filter.Limit = l
	}
	if s := q.Get("status"); s != "" {
		st := domain.Status(s)
		filter.Status = &st
	}
	if d := q.Get("dispatch_id"); d != "" {
		filter.DispatchID = &d
	}
	return filter
}
