// server/internal/api/handlers/intake_handler.go
package handlers

import (
	"errors"
	"net/http"

	"rl-express-api-server/internal/intake"
	"rl-express-api-server/internal/models"

	"github.com/gin-gonic/gin"
)

type IntakeHandler struct {
	manager *intake.Manager
}

func NewIntakeHandler(m *intake.Manager) *IntakeHandler {
	return &IntakeHandler{manager: m}
}

// List returns the current intake items plus the draft prompt flag.
func (h *IntakeHandler) List(c *gin.Context) {
	items := h.manager.Items()
	if items == nil {
		items = []models.ScannedItem{}
	}
	c.JSON(http.StatusOK, gin.H{
		"items":       items,
		"processing":  h.manager.ProcessingCount(),
		"draftPrompt": h.manager.HasDraftPrompt(),
	})
}

type addImagesRequest struct {
	Images []string `json:"images" binding:"required,min=1"`
}

// AddImages queues captured label photos for extraction.
func (h *IntakeHandler) AddImages(c *gin.Context) {
	var req addImagesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	items, err := h.manager.AddImages(c.Request.Context(), req.Images)
	if err != nil {
		if errors.Is(err, intake.ErrDraftPending) {
			c.JSON(http.StatusConflict, gin.H{"error": "Resolve the saved draft before adding new items"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"items": items})
}

// AddManual creates an empty editable item.
func (h *IntakeHandler) AddManual(c *gin.Context) {
	item, err := h.manager.AddManual(c.Request.Context())
	if err != nil {
		if errors.Is(err, intake.ErrDraftPending) {
			c.JSON(http.StatusConflict, gin.H{"error": "Resolve the saved draft before adding new items"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, item)
}

// UpdateItem applies manual corrections to an intake item.
func (h *IntakeHandler) UpdateItem(c *gin.Context) {
	var patch intake.ItemPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	item, err := h.manager.UpdateItem(c.Request.Context(), c.Param("tempId"), patch)
	switch {
	case errors.Is(err, intake.ErrItemNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Intake item not found"})
	case errors.Is(err, intake.ErrItemBusy):
		c.JSON(http.StatusConflict, gin.H{"error": "Item is being extracted"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusOK, item)
	}
}

// RemoveItem drops an intake item.
func (h *IntakeHandler) RemoveItem(c *gin.Context) {
	if err := h.manager.RemoveItem(c.Request.Context(), c.Param("tempId")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Intake item not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Item removed"})
}

// LookupPostalCode auto-fills the item's address from its postal code.
func (h *IntakeHandler) LookupPostalCode(c *gin.Context) {
	item, err := h.manager.LookupPostalCode(c.Request.Context(), c.Param("tempId"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Intake item not found"})
		return
	}
	c.JSON(http.StatusOK, item)
}

type commitRequest struct {
	DiscardInvalid bool `json:"discardInvalid"`
}

// Commit converts valid items into pending deliveries. A 409 with a
// confirmation payload is returned when incomplete items would be lost.
func (h *IntakeHandler) Commit(c *gin.Context) {
	// An empty or malformed body counts as "no confirmation given".
	var req commitRequest
	_ = c.ShouldBindJSON(&req)

	deliveries, err := h.manager.Commit(c.Request.Context(), req.DiscardInvalid)
	if err != nil {
		var confirm *intake.DiscardConfirmationError
		switch {
		case errors.As(err, &confirm):
			c.JSON(http.StatusConflict, gin.H{
				"error":        "Incomplete items would be discarded",
				"confirmation": gin.H{"valid": confirm.Valid, "invalid": confirm.Invalid},
			})
		case errors.Is(err, intake.ErrDraftPending):
			c.JSON(http.StatusConflict, gin.H{"error": "Resolve the saved draft first"})
		case errors.Is(err, intake.ErrExtractionInProgress):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Wait for extraction to finish"})
		case errors.Is(err, intake.ErrNoValidItems):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "No valid items to save"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusCreated, gin.H{"deliveries": deliveries})
}

// ResumeDraft restores the items saved by an earlier session.
func (h *IntakeHandler) ResumeDraft(c *gin.Context) {
	items := h.manager.ResumeDraft(c.Request.Context())
	if items == nil {
		items = []models.ScannedItem{}
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// DiscardDraft drops the saved draft.
func (h *IntakeHandler) DiscardDraft(c *gin.Context) {
	h.manager.DiscardDraft(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"message": "Draft discarded"})
}
