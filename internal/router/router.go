// Package router wires the HTTP surface onto an Echo instance.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/eventhall/seat-reservation/internal/config"
	"github.com/eventhall/seat-reservation/internal/handler"
	"github.com/eventhall/seat-reservation/internal/middleware"
)

// RegisterRoutes registers every endpoint of the service.  The
// reservation intake is rate limited when a Redis client is available;
// reads and the health check are not.
func RegisterRoutes(e *echo.Echo, events *handler.EventHandler, reservations *handler.ReservationHandler, areas *handler.AreaHandler, rlCfg config.RateLimitConfig, rdb *redis.Client) {
	e.GET("/healthz", handler.Health)

	v1 := e.Group("/v1")
	v1.POST("/events", events.CreateEvent)
	v1.GET("/events/:event_id/areas/:area_id/status", areas.GetAreaStatus)
	v1.GET("/reservations/:id", reservations.GetReservation)

	intake := v1.Group("")
	if rlCfg.Enabled && rdb != nil {
		intake.Use(middleware.NewTokenBucket(rlCfg, rdb))
	}
	intake.POST("/reservations", reservations.CreateReservation)
	intake.POST("/reservations/:id/cancel", reservations.CancelReservation)
	intake.POST("/reservations/:id/complete", reservations.CompleteReservation)
}
