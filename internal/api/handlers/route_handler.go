// server/internal/api/handlers/route_handler.go
package handlers

import (
	"errors"
	"net/http"
	"time"

	"rl-express-api-server/internal/models"
	"rl-express-api-server/internal/route"
	"rl-express-api-server/internal/store"

	"github.com/gin-gonic/gin"
)

type RouteHandler struct {
	store *store.Store
}

func NewRouteHandler(s *store.Store) *RouteHandler {
	return &RouteHandler{store: s}
}

// Get returns the active route in stored order with map data.
func (h *RouteHandler) Get(c *gin.Context) {
	pending := h.store.Pending()
	if pending == nil {
		pending = []models.Delivery{}
	}
	points := route.MapPoints(pending)
	if points == nil {
		points = []route.MapPoint{}
	}
	c.JSON(http.StatusOK, gin.H{
		"stops":          pending,
		"count":          len(pending),
		"mapPoints":      points,
		"distanceMeters": route.TotalDistanceMeters(pending),
		"shareText":      route.ShareText(pending, time.Now()),
	})
}

// Optimize reorders the route by postal code and persists the new order.
func (h *RouteHandler) Optimize(c *gin.Context) {
	pending := h.store.Pending()
	ordered, err := route.Optimize(pending)
	if err != nil {
		if errors.Is(err, route.ErrTooFewStops) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "At least 2 pending deliveries are required"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	ids := make([]string, 0, len(ordered))
	for _, d := range ordered {
		ids = append(ids, d.ID)
	}
	if err := h.store.ReorderPending(c.Request.Context(), ids); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Route changed during optimization, try again"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"stops":         ordered,
		"directionsUrl": route.DirectionsURL(ordered),
	})
}

type reorderRequest struct {
	OrderedIDs []string `json:"orderedIds" binding:"required"`
}

// Reorder applies a manually arranged stop order.
func (h *RouteHandler) Reorder(c *gin.Context) {
	var req reorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.store.ReorderPending(c.Request.Context(), req.OrderedIDs); err != nil {
		if errors.Is(err, store.ErrValidation) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"stops": h.store.Pending()})
}

// MapLinks returns the external navigation links for one stop.
func (h *RouteHandler) MapLinks(c *gin.Context) {
	d, ok := h.store.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Delivery not found"})
		return
	}
	pending := h.store.Pending()
	c.JSON(http.StatusOK, gin.H{
		"searchUrl":    route.SearchURL(d.Address.FullAddress),
		"multiStopUrl": route.MultiStopURL(d, pending),
	})
}
