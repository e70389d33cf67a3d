// server/internal/store/store_test.go
package store

import (
	"context"
	"testing"
	"time"

	"rl-express-api-server/internal/kv"
	"rl-express-api-server/internal/models"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, *kv.MemoryStore) {
	t.Helper()
	mem := kv.NewMemoryStore()
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	s := New(mem, log)
	require.NoError(t, s.Load(context.Background()))
	return s, mem
}

func pendingDelivery(id, name string) models.Delivery {
	return models.Delivery{
		ID:           id,
		CustomerName: name,
		Address:      models.Address{FullAddress: "Rua A, 123", PostalCode: "01001-000"},
		Status:       models.StatusPending,
		CreatedAt:    time.Now(),
	}
}

func TestAddPrependsNewestFirst(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	s.Add(ctx, pendingDelivery("a", "Ana"))
	s.Add(ctx, pendingDelivery("b", "Bruno"))

	got := s.Deliveries()
	require.Len(t, got, 2)
	require.Equal(t, "b", got[0].ID)
	require.Equal(t, "a", got[1].ID)
}

func TestCompleteSetsProofAndTimestampTogether(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	s.Add(ctx, pendingDelivery("a", "Ana"))

	proof := models.Proof{PhotoURL: "https://cdn.example/photo.jpg", ReceiverName: "Ana"}
	require.NoError(t, s.Complete(ctx, "a", proof))

	d, ok := s.Get("a")
	require.True(t, ok)
	require.Equal(t, models.StatusCompleted, d.Status)
	require.NotNil(t, d.CompletedAt)
	require.NotNil(t, d.Proof)
	require.Equal(t, "Ana", d.Proof.ReceiverName)
}

func TestCompleteRejectsFinalizedDelivery(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	s.Add(ctx, pendingDelivery("a", "Ana"))
	require.NoError(t, s.Cancel(ctx, "a"))

	err := s.Complete(ctx, "a", models.Proof{PhotoURL: "x", ReceiverName: "Ana"})
	require.ErrorIs(t, err, ErrFinalized)

	d, _ := s.Get("a")
	require.Equal(t, models.StatusCanceled, d.Status)
	require.Nil(t, d.CompletedAt)
	require.Nil(t, d.Proof)
}

func TestCancelRejectsFinalizedDelivery(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	s.Add(ctx, pendingDelivery("a", "Ana"))
	require.NoError(t, s.Complete(ctx, "a", models.Proof{PhotoURL: "x", ReceiverName: "Ana"}))

	require.ErrorIs(t, s.Cancel(ctx, "a"), ErrFinalized)
}

func TestCancelNeverCarriesCompletionData(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	s.Add(ctx, pendingDelivery("a", "Ana"))

	require.NoError(t, s.Cancel(ctx, "a"))

	d, _ := s.Get("a")
	require.Equal(t, models.StatusCanceled, d.Status)
	require.Nil(t, d.CompletedAt)
	require.Nil(t, d.Proof)
}

func TestClearPendingKeepsHistory(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	s.Add(ctx, pendingDelivery("a", "Ana"), pendingDelivery("b", "Bruno"))
	require.NoError(t, s.Complete(ctx, "a", models.Proof{PhotoURL: "x", ReceiverName: "Ana"}))

	s.ClearPending(ctx)

	require.Empty(t, s.Pending())
	got := s.Deliveries()
	require.Len(t, got, 1)
	require.Equal(t, "a", got[0].ID)
}

func TestReorderPendingAppliesOrder(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	s.Add(ctx, pendingDelivery("a", "Ana"))
	s.Add(ctx, pendingDelivery("b", "Bruno"))
	s.Add(ctx, pendingDelivery("c", "Clara"))

	require.NoError(t, s.ReorderPending(ctx, []string{"a", "c", "b"}))

	pending := s.Pending()
	require.Equal(t, []string{"a", "c", "b"}, []string{pending[0].ID, pending[1].ID, pending[2].ID})
}

func TestReorderPendingRejectsNonPermutation(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	s.Add(ctx, pendingDelivery("a", "Ana"), pendingDelivery("b", "Bruno"))

	tests := []struct {
		name string
		ids  []string
	}{
		{"missing id", []string{"a"}},
		{"unknown id", []string{"a", "x"}},
		{"duplicate id", []string{"a", "a"}},
		{"extra id", []string{"a", "b", "b"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.ErrorIs(t, s.ReorderPending(ctx, tc.ids), ErrValidation)
		})
	}

	// The original order survives a rejected reorder.
	pending := s.Pending()
	require.Equal(t, "a", pending[0].ID)
	require.Equal(t, "b", pending[1].ID)
}

func TestReorderPendingIgnoresFinalizedRecords(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	s.Add(ctx, pendingDelivery("a", "Ana"), pendingDelivery("b", "Bruno"), pendingDelivery("c", "Clara"))
	require.NoError(t, s.Cancel(ctx, "b"))

	require.NoError(t, s.ReorderPending(ctx, []string{"c", "a"}))

	got := s.Deliveries()
	require.Len(t, got, 3)
	require.Equal(t, "c", got[0].ID)
	require.Equal(t, "a", got[1].ID)
	require.Equal(t, "b", got[2].ID)
}

func TestPersistenceRoundTrip(t *testing.T) {
	s, mem := newTestStore(t)
	ctx := context.Background()
	s.Add(ctx, pendingDelivery("a", "Ana"))
	require.NoError(t, s.Complete(ctx, "a", models.Proof{PhotoURL: "x", ReceiverName: "Ana"}))
	s.ToggleTheme(ctx)

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	reloaded := New(mem, log)
	require.NoError(t, reloaded.Load(ctx))

	got := reloaded.Deliveries()
	require.Len(t, got, 1)
	require.Equal(t, models.StatusCompleted, got[0].Status)
	require.NotNil(t, got[0].Proof)
	require.True(t, reloaded.DarkMode())
}

func TestLoadRejectsCorruptRecord(t *testing.T) {
	mem := kv.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, mem.Put(ctx, "rl_deliveries", []byte("{not json")))

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	s := New(mem, log)
	require.Error(t, s.Load(ctx))
}

func TestLoadRejectsUnsupportedVersion(t *testing.T) {
	mem := kv.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, mem.Put(ctx, "rl_deliveries", []byte(`{"version":2,"deliveries":[]}`)))

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	s := New(mem, log)
	require.Error(t, s.Load(ctx))
}

func TestCounts(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	s.Add(ctx, pendingDelivery("a", "Ana"), pendingDelivery("b", "Bruno"), pendingDelivery("c", "Clara"))
	require.NoError(t, s.Complete(ctx, "a", models.Proof{PhotoURL: "x", ReceiverName: "Ana"}))
	require.NoError(t, s.Cancel(ctx, "b"))

	pending, completed, canceled := s.Counts()
	require.Equal(t, 1, pending)
	require.Equal(t, 1, completed)
	require.Equal(t, 1, canceled)
}
