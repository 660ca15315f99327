package handlers

import (
	"net/http"

	bookingRepo "homezy/database/repository/booking"
	"homezy/services/booking"
	"homezy/services/dispatch"
	"homezy/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// DispatchHandler exposes the dispatch engine's ops surface: the audit view
// of a booking's offer batches, a manual search re-trigger and an on-demand
// expiry sweep.
type DispatchHandler struct {
	Engine   dispatch.Engine
	Enqueuer booking.DispatchEnqueuer
	Logger   *zap.Logger
}

// NewDispatchHandler creates a DispatchHandler.
func NewDispatchHandler(engine dispatch.Engine, enqueuer booking.DispatchEnqueuer, logger *zap.Logger) *DispatchHandler {
	return &DispatchHandler{Engine: engine, Enqueuer: enqueuer, Logger: logger}
}

// GetState returns the derived dispatch state for a booking.
func (h *DispatchHandler) GetState(c *gin.Context) {
	state, err := h.Engine.State(c.Request.Context(), c.Param("bookingID"))
	if err != nil {
		if err == bookingRepo.ErrBookingNotFound {
			utils.JSONError(c, http.StatusNotFound, "booking not found", "")
			return
		}
		utils.JSONError(c, http.StatusInternalServerError, "failed to read dispatch state", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"dispatch": state})
}

// Retry manually resumes the partner search for a booking, the escape hatch
// for exhausted searches.
func (h *DispatchHandler) Retry(c *gin.Context) {
	bookingID := c.Param("bookingID")
	if err := h.Enqueuer.EnqueueDispatchTrigger(c.Request.Context(), bookingID); err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "failed to enqueue dispatch", err.Error())
		return
	}
	h.Logger.Info("manual dispatch retry requested", zap.String("bookingID", bookingID))
	c.JSON(http.StatusAccepted, gin.H{"message": "Dispatch re-triggered"})
}

// SweepNow runs an expiry sweep immediately instead of waiting for the
// scheduler.
func (h *DispatchHandler) SweepNow(c *gin.Context) {
	result, err := h.Engine.RunExpirySweep(c.Request.Context())
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "sweep failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": result})
}
