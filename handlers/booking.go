package handlers

import (
	"net/http"
	"strings"

	bookingRepo "homezy/database/repository/booking"
	"homezy/services/booking"
	"homezy/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// BookingHandler serves the customer-facing booking endpoints.
type BookingHandler struct {
	Service booking.BookingService
	Logger  *zap.Logger
}

// NewBookingHandler creates a BookingHandler.
func NewBookingHandler(service booking.BookingService, logger *zap.Logger) *BookingHandler {
	return &BookingHandler{Service: service, Logger: logger}
}

// CreateBooking records a new booking and kicks off the partner search.
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	customerID := c.GetString("userID")

	var input booking.CreateBookingInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	created, err := h.Service.CreateBooking(c.Request.Context(), customerID, input)
	if err != nil {
		if err == booking.ErrServiceUnavailable {
			utils.JSONError(c, http.StatusBadRequest, "service unavailable", err.Error())
			return
		}
		h.Logger.Error("failed to create booking", zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "failed to create booking", err.Error())
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"booking": created,
		"message": "Booking created. We are finding a service provider for you.",
	})
}

// ListBookings returns the customer's bookings, optionally filtered by a
// comma-separated status list.
func (h *BookingHandler) ListBookings(c *gin.Context) {
	customerID := c.GetString("userID")

	var statuses []string
	if raw := c.Query("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			statuses = append(statuses, strings.TrimSpace(s))
		}
	}

	bookings, err := h.Service.ListCustomerBookings(c.Request.Context(), customerID, statuses)
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "failed to list bookings", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": bookings})
}

// GetBooking returns one booking the requester is a party to.
func (h *BookingHandler) GetBooking(c *gin.Context) {
	userID := c.GetString("userID")
	bookingID := c.Param("bookingID")

	b, err := h.Service.GetBooking(c.Request.Context(), bookingID)
	if err != nil {
		if err == bookingRepo.ErrBookingNotFound {
			utils.JSONError(c, http.StatusNotFound, "booking not found", "")
			return
		}
		utils.JSONError(c, http.StatusInternalServerError, "failed to fetch booking", err.Error())
		return
	}
	if b.CustomerID != userID && b.PartnerID != userID {
		utils.JSONError(c, http.StatusForbidden, "forbidden", "")
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": b})
}

// CancelBooking cancels a booking that has not started yet.
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	customerID := c.GetString("userID")
	bookingID := c.Param("bookingID")

	if err := h.Service.CancelBooking(c.Request.Context(), bookingID, customerID); err != nil {
		if err == booking.ErrCannotCancel {
			utils.JSONError(c, http.StatusConflict, "cannot cancel booking", err.Error())
			return
		}
		utils.JSONError(c, http.StatusInternalServerError, "failed to cancel booking", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Booking cancelled"})
}
