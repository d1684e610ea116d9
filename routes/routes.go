package routes

import (
	"net/http"
	"time"

	"lokals/handlers"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RegisterBookingRoutes registers the booking lifecycle endpoints.
func RegisterBookingRoutes(r *gin.Engine, bh *handlers.BookingHandler, sh *handlers.StreamHandler) {
	api := r.Group("/api/bookings")
	{
		api.POST("", bh.CreateBooking)
		api.GET("/:id", bh.GetBooking)
		api.GET("/:id/requests", bh.ListRequests)
		api.GET("/:id/stream", sh.Stream)
		api.POST("/:id/match", bh.Rematch)
		api.POST("/:id/transition", bh.Transition)
		api.POST("/:id/accept", bh.Accept)
		api.POST("/:id/reject", bh.Reject)
		api.POST("/:id/settle", bh.Settle)
	}
}

// RegisterPricingRoutes registers price quote and estimate endpoints.
func RegisterPricingRoutes(r *gin.Engine, ph *handlers.PricingHandler) {
	api := r.Group("/api/pricing")
	{
		api.GET("/quote", ph.Quote)
		api.POST("/estimate", ph.Estimate)
		api.POST("/commission", ph.CommissionPreview)
	}
}

// SetupRoutes wires CORS, a health probe, and every route group.
func SetupRoutes(r *gin.Engine, bh *handlers.BookingHandler, ph *handlers.PricingHandler, sh *handlers.StreamHandler) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	RegisterBookingRoutes(r, bh, sh)
	RegisterPricingRoutes(r, ph)
}
