// server/internal/store/store.go
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"rl-express-api-server/internal/kv"
	"rl-express-api-server/internal/models"

	"github.com/sirupsen/logrus"
)

const (
	deliveriesKey = "rl_deliveries"
	themeKey      = "rl_theme"

	// envelopeVersion guards the stored shape. Stored data from an older
	// version fails the load instead of being silently trusted.
	envelopeVersion = 1
)

var (
	ErrNotFound   = errors.New("delivery not found")
	ErrFinalized  = errors.New("delivery is already completed or canceled")
	ErrValidation = errors.New("validation failed")
)

// envelope is the persisted shape of the delivery collection.
type envelope struct {
	Version    int               `json:"version"`
	Deliveries []models.Delivery `json:"deliveries"`
}

// Store holds the process-wide delivery collection and is the sole writer
// of the durable deliveries record. Every mutation re-serializes the full
// collection; a failed write is logged and the in-memory state stays
// authoritative for the rest of the session.
type Store struct {
	kv  kv.Store
	log *logrus.Logger

	mu         sync.RWMutex
	deliveries []models.Delivery
	darkMode   bool
}

func New(kvStore kv.Store, log *logrus.Logger) *Store {
	return &Store{kv: kvStore, log: log}
}

// Load reads the persisted collection and theme flag. A corrupt or
// old-shape deliveries record is an error: the caller decides whether to
// abort rather than silently dropping the courier's records.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, ok, err := s.kv.Get(ctx, deliveriesKey)
	if err != nil {
		return fmt.Errorf("read deliveries record: %w", err)
	}
	if ok {
		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			return fmt.Errorf("parse deliveries record: %w", err)
		}
		if env.Version != envelopeVersion {
			return fmt.Errorf("deliveries record has unsupported version %d", env.Version)
		}
		s.deliveries = env.Deliveries
	}

	theme, ok, err := s.kv.Get(ctx, themeKey)
	if err != nil {
		return fmt.Errorf("read theme record: %w", err)
	}
	s.darkMode = ok && string(theme) == "dark"
	return nil
}

func (s *Store) persist(ctx context.Context) {
	env := envelope{Version: envelopeVersion, Deliveries: s.deliveries}
	raw, err := json.Marshal(env)
	if err != nil {
		s.log.WithError(err).Warn("could not serialize delivery collection")
		return
	}
	if err := s.kv.Put(ctx, deliveriesKey, raw); err != nil {
		s.log.WithError(err).Warn("could not persist delivery collection")
	}
}

// Add prepends the given deliveries to the collection, newest first.
func (s *Store) Add(ctx context.Context, deliveries ...models.Delivery) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deliveries = append(append([]models.Delivery{}, deliveries...), s.deliveries...)
	s.persist(ctx)
}

// UpdateContact patches the editable contact fields of a delivery.
type UpdateContact struct {
	CustomerName *string
	Phone        *string
	Address      *models.Address
}

func (s *Store) Update(ctx context.Context, id string, patch UpdateContact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.find(id)
	if d == nil {
		return ErrNotFound
	}
	if patch.CustomerName != nil {
		d.CustomerName = *patch.CustomerName
	}
	if patch.Phone != nil {
		d.Phone = *patch.Phone
	}
	if patch.Address != nil {
		d.Address = *patch.Address
	}
	s.persist(ctx)
	return nil
}

// Complete moves a pending delivery to COMPLETED, attaching the proof and
// the completion timestamp together.
func (s *Store) Complete(ctx context.Context, id string, proof models.Proof) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.find(id)
	if d == nil {
		return ErrNotFound
	}
	if d.Status != models.StatusPending {
		return ErrFinalized
	}
	now := time.Now()
	d.Status = models.StatusCompleted
	d.CompletedAt = &now
	d.Proof = &proof
	s.persist(ctx)
	return nil
}

// Cancel moves a pending delivery to CANCELED. Canceled deliveries never
// carry a completion timestamp or proof.
func (s *Store) Cancel(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.find(id)
	if d == nil {
		return ErrNotFound
	}
	if d.Status != models.StatusPending {
		return ErrFinalized
	}
	d.Status = models.StatusCanceled
	s.persist(ctx)
	return nil
}

// Remove deletes the whole record from the collection.
func (s *Store) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.deliveries {
		if s.deliveries[i].ID == id {
			s.deliveries = append(s.deliveries[:i], s.deliveries[i+1:]...)
			s.persist(ctx)
			return nil
		}
	}
	return ErrNotFound
}

// ClearPending drops every pending delivery, keeping the history intact.
func (s *Store) ClearPending(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.deliveries[:0]
	for _, d := range s.deliveries {
		if d.Status != models.StatusPending {
			kept = append(kept, d)
		}
	}
	s.deliveries = kept
	s.persist(ctx)
}

// ReorderPending replaces the pending subsequence with the given order.
// The input must be an exact permutation of the current pending set;
// anything else would silently drop or duplicate records.
func (s *Store) ReorderPending(ctx context.Context, orderedIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	pending := map[string]models.Delivery{}
	for _, d := range s.deliveries {
		if d.Status == models.StatusPending {
			pending[d.ID] = d
		}
	}
	if len(orderedIDs) != len(pending) {
		return fmt.Errorf("%w: got %d ids for %d pending deliveries", ErrValidation, len(orderedIDs), len(pending))
	}
	reordered := make([]models.Delivery, 0, len(orderedIDs))
	for _, id := range orderedIDs {
		d, ok := pending[id]
		if !ok {
			return fmt.Errorf("%w: %q is not a pending delivery", ErrValidation, id)
		}
		delete(pending, id)
		reordered = append(reordered, d)
	}

	rest := make([]models.Delivery, 0, len(s.deliveries)-len(reordered))
	for _, d := range s.deliveries {
		if d.Status != models.StatusPending {
			rest = append(rest, d)
		}
	}
	s.deliveries = append(reordered, rest...)
	s.persist(ctx)
	return nil
}

// Deliveries returns a copy of the full collection in stored order.
func (s *Store) Deliveries() []models.Delivery {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Delivery, len(s.deliveries))
	copy(out, s.deliveries)
	return out
}

// Pending returns the active route in stored order.
func (s *Store) Pending() []models.Delivery {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byStatus(models.StatusPending)
}

func (s *Store) ByStatus(status models.DeliveryStatus) []models.Delivery {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byStatus(status)
}

func (s *Store) byStatus(status models.DeliveryStatus) []models.Delivery {
	var out []models.Delivery
	for _, d := range s.deliveries {
		if d.Status == status {
			out = append(out, d)
		}
	}
	return out
}

// Get returns a copy of one delivery.
func (s *Store) Get(id string) (models.Delivery, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if d := s.find(id); d != nil {
		return *d, true
	}
	return models.Delivery{}, false
}

func (s *Store) find(id string) *models.Delivery {
	for i := range s.deliveries {
		if s.deliveries[i].ID == id {
			return &s.deliveries[i]
		}
	}
	return nil
}

// Counts reports the number of deliveries per status for the dashboard.
func (s *Store) Counts() (pending, completed, canceled int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, d := range s.deliveries {
		switch d.Status {
		case models.StatusPending:
			pending++
		case models.StatusCompleted:
			completed++
		case models.StatusCanceled:
			canceled++
		}
	}
	return
}

// ToggleTheme flips the persisted theme flag and returns the new value.
func (s *Store) ToggleTheme(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.darkMode = !s.darkMode
	value := "light"
	if s.darkMode {
		value = "dark"
	}
	if err := s.kv.Put(ctx, themeKey, []byte(value)); err != nil {
		s.log.WithError(err).Warn("could not persist theme flag")
	}
	return s.darkMode
}

func (s *Store) DarkMode() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.darkMode
}
