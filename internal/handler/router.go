package handler

import (
	"github.com/gin-gonic/gin"
)

// Handlers bundles everything the router mounts
type Handlers struct {
	Health      *HealthHandler
	Reservation *ReservationHandler
	Payment     *PaymentHandler
	Inventory   *InventoryHandler
}

// NewRouter builds the gin engine with all routes mounted
func NewRouter(h *Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", h.Health.Health)
	router.GET("/ready", h.Health.Ready)

	v1 := router.Group("/api/v1")
	{
		reservations := v1.Group("/reservations")
		{
			reservations.POST("", h.Reservation.Create)
			reservations.GET("", h.Reservation.List)
			reservations.GET("/:id", h.Reservation.Get)
			reservations.DELETE("/:id", h.Reservation.Cancel)
		}

		payments := v1.Group("/payments")
		{
			payments.POST("/sessions", h.Payment.OpenSession)
			payments.GET("/sessions/:id", h.Payment.GetSession)
			payments.POST("/settle", h.Payment.Settle)
			payments.GET("/:id", h.Payment.GetPayment)
		}

		departures := v1.Group("/departures")
		{
			departures.GET("/:id/availability", h.Inventory.GetAvailability)
		}

		admin := v1.Group("/admin")
		{
			admin.POST("/departures/:id/seats", h.Inventory.SeedDeparture)
		}
	}

	return router
}
