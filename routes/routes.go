package routes

import (
	"net/http"
	"time"

	"schedly/handlers"
	"schedly/middleware"
	"schedly/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RegisterPublicRoutes registers the guest-facing endpoints. Each endpoint
// class carries its own rate budget.
func RegisterPublicRoutes(r *gin.Engine, hb *handlers.HandlerBundle, limiter *middleware.FixedWindowLimiter) {
	api := r.Group("/api")
	{
		api.GET("/availability",
			middleware.RateLimitMiddleware(limiter, middleware.ClassAvailability),
			hb.Availability.GetAvailability)

		bookings := api.Group("/bookings")
		bookings.Use(middleware.RateLimitMiddleware(limiter, middleware.ClassBooking))
		bookings.POST("", hb.Booking.CreateBooking)
		bookings.GET("/:uid", hb.Booking.GetBooking)
		bookings.DELETE("/:uid", hb.Booking.CancelBooking)
		bookings.PATCH("/:uid", hb.Booking.RescheduleBooking)

		api.GET("/oauth/callback",
			middleware.RateLimitMiddleware(limiter, middleware.ClassOAuth),
			hb.OAuth.Callback)
	}
}

// RegisterHostRoutes registers the authenticated host surface.
func RegisterHostRoutes(r *gin.Engine, hb *handlers.HandlerBundle, limiter *middleware.FixedWindowLimiter) {
	api := r.Group("/api/host")
	{
		api.POST("/register", hb.Hosts.Register)
		api.POST("/login", hb.Hosts.Login)

		// Protected routes (Require Authentication)
		api.Use(middleware.JWTAuthHostMiddleware(hb.HostRepo))
		api.GET("/me", hb.Hosts.Me)
		api.GET("/bookings", hb.Booking.ListHostBookings)

		api.POST("/event-types", hb.EventTypes.CreateEventType)
		api.GET("/event-types", hb.EventTypes.ListEventTypes)
		api.GET("/event-types/:id", hb.EventTypes.GetEventType)
		api.PUT("/event-types/:id", hb.EventTypes.UpdateEventType)
		api.DELETE("/event-types/:id", hb.EventTypes.DeactivateEventType)

		api.GET("/calendars", hb.Calendars.ListCalendars)
		api.PATCH("/calendars/:id/selection", hb.Calendars.SetCalendarSelection)
		api.GET("/calendar/connect",
			middleware.RateLimitMiddleware(limiter, middleware.ClassOAuth),
			hb.OAuth.Connect)
	}
}

// RegisterHealthRoute registers a health-check endpoint.
func RegisterHealthRoute(r *gin.Engine) {
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "services": utils.GetHealthStatus()})
	})
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	// Setup global middleware (e.g., CORS) here.
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type", "Idempotency-Key"},
		ExposeHeaders:    []string{"Content-Length", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(utils.ErrorHandler())

	limiter := middleware.NewFixedWindowLimiter()

	RegisterHealthRoute(r)
	RegisterPublicRoutes(r, hb, limiter)
	RegisterHostRoutes(r, hb, limiter)
}
