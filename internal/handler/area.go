package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/eventhall/seat-reservation/internal/cache"
	"github.com/eventhall/seat-reservation/internal/store"
)

// AreaHandler serves area snapshot reads.  Reads go through the
// snapshot cache first and fall back to the authoritative store on a
// miss; the store result is written back so subsequent reads stay
// cheap.  Snapshots are versioned, so a slightly stale cached copy is
// harmless for display purposes.
type AreaHandler struct {
	Store store.AreaStateStore
	Cache *cache.SnapshotCache
}

// NewAreaHandler constructs an AreaHandler.  The store must be
// non-nil; the cache may be disabled.
func NewAreaHandler(s store.AreaStateStore, c *cache.SnapshotCache) *AreaHandler {
	if s == nil {
		panic("nil store passed to NewAreaHandler")
	}
	return &AreaHandler{Store: s, Cache: c}
}

// GetAreaStatus handles GET /v1/events/:event_id/areas/:area_id/status
// and returns the full versioned seat grid for the area.
func (h *AreaHandler) GetAreaStatus(c echo.Context) error {
	eventID, areaID := c.Param("event_id"), c.Param("area_id")
	if eventID == "" || areaID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "event_id and area_id are required"})
	}
	ctx := c.Request().Context()

	if h.Cache != nil {
		if status, ok := h.Cache.Get(ctx, eventID, areaID); ok {
			return c.JSON(http.StatusOK, status)
		}
	}

	status, err := h.Store.Read(ctx, eventID, areaID)
	if errors.Is(err, store.ErrNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "area not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load area status"})
	}
	if h.Cache != nil {
		h.Cache.Put(ctx, status)
	}
	return c.JSON(http.StatusOK, status)
}
