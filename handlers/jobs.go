package handlers

import (
	"net/http"
	"strings"

	"homezy/services/booking"
	"homezy/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// JobsHandler serves the partner-facing job endpoints.
type JobsHandler struct {
	Service booking.BookingService
	Logger  *zap.Logger
}

// NewJobsHandler creates a JobsHandler.
func NewJobsHandler(service booking.BookingService, logger *zap.Logger) *JobsHandler {
	return &JobsHandler{Service: service, Logger: logger}
}

// ListOffers returns the partner's open job offers.
func (h *JobsHandler) ListOffers(c *gin.Context) {
	partnerID := c.GetString("userID")

	offers, err := h.Service.ListOpenOffers(c.Request.Context(), partnerID)
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "failed to list offers", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"offers": offers})
}

// ListJobs returns the partner's assigned bookings.
func (h *JobsHandler) ListJobs(c *gin.Context) {
	partnerID := c.GetString("userID")

	var statuses []string
	if raw := c.Query("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			statuses = append(statuses, strings.TrimSpace(s))
		}
	}

	jobs, err := h.Service.ListPartnerJobs(c.Request.Context(), partnerID, statuses)
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "failed to list jobs", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": jobs})
}

// AcceptJob claims a pending booking for the partner. First acceptance
// wins; everyone else gets a conflict.
func (h *JobsHandler) AcceptJob(c *gin.Context) {
	partnerID := c.GetString("userID")
	bookingID := c.Param("bookingID")

	b, err := h.Service.AcceptJob(c.Request.Context(), bookingID, partnerID)
	if err != nil {
		if err == booking.ErrJobUnavailable {
			utils.JSONError(c, http.StatusConflict, "job no longer available", "")
			return
		}
		h.Logger.Error("failed to accept job", zap.String("bookingID", bookingID), zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "failed to accept job", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"booking": b,
		"message": "Job accepted successfully",
	})
}

// RejectJob records the partner's rejection of their pending offer.
func (h *JobsHandler) RejectJob(c *gin.Context) {
	partnerID := c.GetString("userID")
	bookingID := c.Param("bookingID")

	if err := h.Service.RejectJob(c.Request.Context(), bookingID, partnerID); err != nil {
		if err == booking.ErrJobUnavailable {
			utils.JSONError(c, http.StatusConflict, "no pending offer to reject", "")
			return
		}
		utils.JSONError(c, http.StatusInternalServerError, "failed to reject job", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Job rejected successfully"})
}

// UpdateJobStatus progresses a job the partner owns.
func (h *JobsHandler) UpdateJobStatus(c *gin.Context) {
	partnerID := c.GetString("userID")
	bookingID := c.Param("bookingID")

	var input struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	if err := h.Service.UpdateJobStatus(c.Request.Context(), bookingID, partnerID, input.Status); err != nil {
		switch err {
		case booking.ErrInvalidStatus:
			utils.JSONError(c, http.StatusBadRequest, "invalid status", input.Status)
		case booking.ErrNotJobOwner:
			utils.JSONError(c, http.StatusForbidden, "not your job", "")
		default:
			utils.JSONError(c, http.StatusInternalServerError, "failed to update job status", err.Error())
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Job status updated successfully"})
}
