// server/internal/api/handlers/delivery_handler_test.go
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"rl-express-api-server/internal/kv"
	"rl-express-api-server/internal/models"
	"rl-express-api-server/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func deliveryTestRouter(t *testing.T) (*gin.Engine, *store.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	s := store.New(kv.NewMemoryStore(), log)
	require.NoError(t, s.Load(context.Background()))

	h := NewDeliveryHandler(s)
	r := gin.New()
	r.GET("/deliveries", h.List)
	r.GET("/deliveries/summary", h.Summary)
	r.POST("/deliveries/:id/cancel", h.Cancel)
	r.DELETE("/deliveries/pending", h.ClearPending)
	return r, s
}

func seed(s *store.Store, id string, status models.DeliveryStatus) {
	d := models.Delivery{
		ID:           id,
		CustomerName: "Cliente " + id,
		Address:      models.Address{FullAddress: "Rua " + id, PostalCode: "01001-000"},
		Status:       models.StatusPending,
		CreatedAt:    time.Now(),
	}
	s.Add(context.Background(), d)
	switch status {
	case models.StatusCompleted:
		s.Complete(context.Background(), id, models.Proof{PhotoURL: "x", ReceiverName: "R"})
	case models.StatusCanceled:
		s.Cancel(context.Background(), id)
	}
}

func TestListFiltersByStatus(t *testing.T) {
	r, s := deliveryTestRouter(t)
	seed(s, "a", models.StatusPending)
	seed(s, "b", models.StatusCompleted)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/deliveries?status=PENDING", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got []models.Delivery
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	require.Equal(t, "a", got[0].ID)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/deliveries?status=WRONG", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCancelEndpointGuardsTerminalStates(t *testing.T) {
	r, s := deliveryTestRouter(t)
	seed(s, "a", models.StatusCompleted)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/deliveries/a/cancel", nil))
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/deliveries/missing/cancel", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSummaryCounts(t *testing.T) {
	r, s := deliveryTestRouter(t)
	seed(s, "a", models.StatusPending)
	seed(s, "b", models.StatusCompleted)
	seed(s, "c", models.StatusCanceled)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/deliveries/summary", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got map[string]int
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, 1, got["pending"])
	require.Equal(t, 1, got["completed"])
	require.Equal(t, 1, got["canceled"])
}

func TestClearPendingEndpoint(t *testing.T) {
	r, s := deliveryTestRouter(t)
	seed(s, "a", models.StatusPending)
	seed(s, "b", models.StatusCompleted)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/deliveries/pending", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, s.Pending())
	require.Len(t, s.Deliveries(), 1)
}
