package handler

import (
	"net/http"

	"github.com/alumnihub/event-mailer/internal/service"
)

// QueueHandler serves a human-readable JSON queue snapshot.
// Raw Prometheus metrics are available at /metrics via promhttp and are
// separate from this endpoint.
type QueueHandler struct {
	svc *service.DispatchService
}

func NewQueueHandler(svc *service.DispatchService) *QueueHandler {
	return &QueueHandler{svc: svc}
}

// GetQueue handles GET /api/v1/queue
//
// @Summary  Pending-job count snapshot
// @Tags     metrics
// @Produce  json
// @Success  200  {object}  map[string]int
// @Router   /api/v1/queue [get]
func (h *QueueHandler) GetQueue(w http.ResponseWriter, r *http.Request) {
	pending, err := h.svc.PendingJobs(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to count pending jobs")
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"pending": pending})
}
