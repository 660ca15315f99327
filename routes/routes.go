package routes

import (
	"homezy/handlers"
	"homezy/middleware"

	"github.com/gin-gonic/gin"
)

// HandlerBundle groups the handlers the router wires up.
type HandlerBundle struct {
	Booking       *handlers.BookingHandler
	Jobs          *handlers.JobsHandler
	Services      *handlers.ServicesHandler
	Dispatch      *handlers.DispatchHandler
	Notifications *handlers.NotificationsHandler
}

// RegisterRoutes registers all API endpoints.
func RegisterRoutes(r *gin.Engine, b *HandlerBundle) {
	api := r.Group("/api")

	// Public catalog.
	services := api.Group("/services")
	{
		services.GET("", b.Services.ListServices)
		services.GET("/:serviceID", b.Services.GetService)
	}

	auth := api.Group("")
	auth.Use(middleware.JWTAuthMiddleware())

	bookings := auth.Group("/bookings", middleware.RequireRole("customer"))
	{
		bookings.POST("", b.Booking.CreateBooking)
		bookings.GET("", b.Booking.ListBookings)
		bookings.DELETE("/:bookingID", b.Booking.CancelBooking)
	}
	// Either party may read a booking they are on.
	auth.GET("/bookings/:bookingID", b.Booking.GetBooking)

	jobs := auth.Group("/jobs", middleware.RequireRole("partner"))
	{
		jobs.GET("/offers", b.Jobs.ListOffers)
		jobs.GET("", b.Jobs.ListJobs)
		jobs.POST("/:bookingID/accept", b.Jobs.AcceptJob)
		jobs.POST("/:bookingID/reject", b.Jobs.RejectJob)
		jobs.PUT("/:bookingID/status", b.Jobs.UpdateJobStatus)
	}

	notifications := auth.Group("/notifications")
	{
		notifications.GET("", b.Notifications.List)
		notifications.PUT("/:notificationID/read", b.Notifications.MarkRead)
	}

	dispatch := auth.Group("/dispatch", middleware.RequireRole("admin"))
	{
		dispatch.GET("/:bookingID", b.Dispatch.GetState)
		dispatch.POST("/:bookingID/retry", b.Dispatch.Retry)
		dispatch.POST("/sweep", b.Dispatch.SweepNow)
	}
}
