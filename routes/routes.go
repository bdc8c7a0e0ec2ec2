package routes

import (
	"time"

	"meetwise/config"
	"meetwise/handlers"
	"meetwise/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RegisterBookingRoutes sets up the guest-facing booking surface.
func RegisterBookingRoutes(r *gin.Engine) {
	api := r.Group("/api")
	{
		api.GET("/availability", handlers.GetAvailability)

		api.POST("/reservations", handlers.CreateReservation)
		api.GET("/reservations/:id", handlers.GetReservation)
		api.POST("/reservations/:id/abort", handlers.AbortReservation)

		api.GET("/meetings", handlers.ListMeetings)
		api.GET("/meetings/:id", handlers.GetMeeting)
		api.POST("/meetings/:id/cancel", handlers.CancelMeeting)
	}
}

// RegisterExpertRoutes sets up the expert configuration surface.
func RegisterExpertRoutes(r *gin.Engine) {
	api := r.Group("/api/experts/:expertId")
	{
		api.GET("/schedule", handlers.GetSchedule)
		api.PUT("/schedule", handlers.PutSchedule)
		api.GET("/policy", handlers.GetPolicy)
		api.PUT("/policy", handlers.PutPolicy)

		api.GET("/blocked-dates", handlers.ListBlockedDates)
		api.POST("/blocked-dates", handlers.AddBlockedDate)
		api.DELETE("/blocked-dates/:localDate", handlers.RemoveBlockedDate)

		api.GET("/events", handlers.ListEvents)
		api.POST("/events", handlers.CreateEvent)

		api.POST("/calendar/connect", handlers.ConnectCalendar)
	}

	r.PATCH("/api/events/:eventId", handlers.UpdateEvent)
	r.GET("/api/calendar/callback", handlers.CalendarCallback)
}

// RegisterPayoutRoutes sets up the payout audit and review surface.
func RegisterPayoutRoutes(r *gin.Engine) {
	api := r.Group("/api/transfers")
	{
		api.GET("/:id", handlers.GetTransfer)
		api.POST("/:id/approve", handlers.ApproveTransfer)
	}
}

// RegisterWebhookRoutes sets up the provider callback endpoints. These sit
// outside /api: they authenticate by signature, not by caller identity.
func RegisterWebhookRoutes(r *gin.Engine) {
	r.POST("/webhooks/payment", handlers.PaymentWebhook)
	r.POST("/webhooks/calendar", handlers.CalendarWebhook)

	internal := r.Group("/internal")
	internal.Use(middleware.CronAuthMiddleware(config.AppConfig.CronSecret))
	internal.POST("/cron/:job", handlers.RunCronJob)
}

// RegisterHealthRoute registers the health-check endpoint.
func RegisterHealthRoute(r *gin.Engine) {
	r.GET("/healthz", handlers.Healthz)
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type", "Stripe-Signature", "X-Calendar-Signature"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	RegisterHealthRoute(r)
	RegisterBookingRoutes(r)
	RegisterExpertRoutes(r)
	RegisterPayoutRoutes(r)
	RegisterWebhookRoutes(r)
}
