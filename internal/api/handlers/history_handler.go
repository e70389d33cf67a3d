// server/internal/api/handlers/history_handler.go
package handlers

import (
	"fmt"
	"net/http"
	"time"

	"rl-express-api-server/internal/models"
	"rl-express-api-server/internal/report"
	"rl-express-api-server/internal/store"

	"github.com/gin-gonic/gin"
)

type HistoryHandler struct {
	store *store.Store
}

func NewHistoryHandler(s *store.Store) *HistoryHandler {
	return &HistoryHandler{store: s}
}

func historyStatus(c *gin.Context) (models.DeliveryStatus, bool) {
	status := models.DeliveryStatus(c.DefaultQuery("status", string(models.StatusCompleted)))
	if status != models.StatusCompleted && status != models.StatusCanceled {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status must be COMPLETED or CANCELED"})
		return "", false
	}
	return status, true
}

// List returns one history tab, filtered by ?q= and sorted newest first.
func (h *HistoryHandler) List(c *gin.Context) {
	status, ok := historyStatus(c)
	if !ok {
		return
	}
	deliveries := report.FilterHistory(h.store.ByStatus(status), c.Query("q"))
	if deliveries == nil {
		deliveries = []models.Delivery{}
	}
	c.JSON(http.StatusOK, deliveries)
}

// ExportCSV streams the filtered history tab as a CSV download.
func (h *HistoryHandler) ExportCSV(c *gin.Context) {
	status, ok := historyStatus(c)
	if !ok {
		return
	}
	deliveries := report.FilterHistory(h.store.ByStatus(status), c.Query("q"))
	data, err := report.CSV(deliveries)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not build CSV export"})
		return
	}
	name := report.ExportFileName(status, "csv", time.Now())
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", data)
}

// ExportExcel streams the filtered history tab as an xlsx download.
func (h *HistoryHandler) ExportExcel(c *gin.Context) {
	status, ok := historyStatus(c)
	if !ok {
		return
	}
	deliveries := report.FilterHistory(h.store.ByStatus(status), c.Query("q"))
	buf, err := report.Excel(deliveries)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not build Excel export"})
		return
	}
	name := report.ExportFileName(status, "xlsx", time.Now())
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

// ShareText renders the bulk share payload for one history tab.
func (h *HistoryHandler) ShareText(c *gin.Context) {
	status, ok := historyStatus(c)
	if !ok {
		return
	}
	deliveries := report.FilterHistory(h.store.ByStatus(status), c.Query("q"))
	c.JSON(http.StatusOK, gin.H{"text": report.ReportText(deliveries, status, time.Now())})
}
