package handlers

import (
	"net/http"

	"learnpath/internal/observability"
	"learnpath/internal/worker"

	"github.com/gin-gonic/gin"
)

// AdminHandler serves the training worker control endpoints.
type AdminHandler struct {
	worker *worker.Worker
	logger *observability.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(w *worker.Worker, logger *observability.Logger) *AdminHandler {
	return &AdminHandler{worker: w, logger: logger}
}

// TriggerTraining schedules an immediate training cycle.
func (h *AdminHandler) TriggerTraining(c *gin.Context) {
	h.worker.TriggerTraining()
	c.JSON(http.StatusAccepted, gin.H{"status": "training scheduled"})
}

// PauseWorker suspends scheduled training.
func (h *AdminHandler) PauseWorker(c *gin.Context) {
	h.worker.Pause()
	c.JSON(http.StatusOK, gin.H{"status": "paused"})
}

// ResumeWorker reenables scheduled training.
func (h *AdminHandler) ResumeWorker(c *gin.Context) {
	h.worker.Resume()
	c.JSON(http.StatusOK, gin.H{"status": "resumed"})
}

// WorkerStatus reports the current worker state.
func (h *AdminHandler) WorkerStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.worker.Status())
}
