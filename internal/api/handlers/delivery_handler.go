// server/internal/api/handlers/delivery_handler.go
package handlers

import (
	"errors"
	"net/http"

	"rl-express-api-server/internal/models"
	"rl-express-api-server/internal/store"

	"github.com/gin-gonic/gin"
)

type DeliveryHandler struct {
	store *store.Store
}

func NewDeliveryHandler(s *store.Store) *DeliveryHandler {
	return &DeliveryHandler{store: s}
}

// List returns the full collection, optionally narrowed by ?status=.
func (h *DeliveryHandler) List(c *gin.Context) {
	status := c.Query("status")
	var deliveries []models.Delivery
	switch status {
	case "":
		deliveries = h.store.Deliveries()
	case string(models.StatusPending), string(models.StatusCompleted), string(models.StatusCanceled):
		deliveries = h.store.ByStatus(models.DeliveryStatus(status))
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status filter"})
		return
	}
	if deliveries == nil {
		deliveries = []models.Delivery{}
	}
	c.JSON(http.StatusOK, deliveries)
}

// Get returns one delivery by id.
func (h *DeliveryHandler) Get(c *gin.Context) {
	d, ok := h.store.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Delivery not found"})
		return
	}
	c.JSON(http.StatusOK, d)
}

type updateDeliveryRequest struct {
	CustomerName *string         `json:"customerName"`
	Phone        *string         `json:"phone"`
	Address      *models.Address `json:"address"`
}

// Update patches the contact fields of a delivery.
func (h *DeliveryHandler) Update(c *gin.Context) {
	var req updateDeliveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.store.Update(c.Request.Context(), c.Param("id"), store.UpdateContact{
		CustomerName: req.CustomerName,
		Phone:        req.Phone,
		Address:      req.Address,
	})
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Delivery not found"})
		return
	}

	d, _ := h.store.Get(c.Param("id"))
	c.JSON(http.StatusOK, d)
}

// Cancel moves a pending delivery to CANCELED.
func (h *DeliveryHandler) Cancel(c *gin.Context) {
	err := h.store.Cancel(c.Request.Context(), c.Param("id"))
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Delivery not found"})
	case errors.Is(err, store.ErrFinalized):
		c.JSON(http.StatusConflict, gin.H{"error": "Delivery is already completed or canceled"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		d, _ := h.store.Get(c.Param("id"))
		c.JSON(http.StatusOK, d)
	}
}

// Delete removes a delivery record entirely.
func (h *DeliveryHandler) Delete(c *gin.Context) {
	if err := h.store.Remove(c.Request.Context(), c.Param("id")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Delivery not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Delivery deleted"})
}

// ClearPending drops every pending delivery, keeping the history.
func (h *DeliveryHandler) ClearPending(c *gin.Context) {
	h.store.ClearPending(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"message": "Pending deliveries cleared"})
}

// Summary reports the per-status counts for the dashboard.
func (h *DeliveryHandler) Summary(c *gin.Context) {
	pending, completed, canceled := h.store.Counts()
	c.JSON(http.StatusOK, gin.H{
		"pending":   pending,
		"completed": completed,
		"canceled":  canceled,
	})
}

// GetTheme returns the persisted theme preference.
func (h *DeliveryHandler) GetTheme(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"darkMode": h.store.DarkMode()})
}

// ToggleTheme flips and persists the theme preference.
func (h *DeliveryHandler) ToggleTheme(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"darkMode": h.store.ToggleTheme(c.Request.Context())})
}
