// server/internal/intake/manager.go
package intake

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"rl-express-api-server/internal/cep"
	"rl-express-api-server/internal/kv"
	"rl-express-api-server/internal/models"
	"rl-express-api-server/internal/ocr"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const draftKey = "rl_delivery_drafts"

var (
	ErrDraftPending         = errors.New("an unresolved draft must be resumed or discarded first")
	ErrItemNotFound         = errors.New("intake item not found")
	ErrItemBusy             = errors.New("intake item is being extracted")
	ErrExtractionInProgress = errors.New("extraction still in progress")
	ErrNoValidItems         = errors.New("no valid items to save")
)

// DiscardConfirmationError is returned by Commit when incomplete items
// exist and the caller has not confirmed discarding them. No deliveries
// are created until the confirmation arrives.
type DiscardConfirmationError struct {
	Valid   int
	Invalid int
}

func (e *DiscardConfirmationError) Error() string {
	return fmt.Sprintf("%d incomplete items would be discarded, confirmation required", e.Invalid)
}

// OCRClient extracts structured delivery fields from an encoded image.
type OCRClient interface {
	Extract(ctx context.Context, imageBase64 string) (*ocr.Fields, error)
}

// PostalLookup resolves a postal code to street/city.
type PostalLookup interface {
	Lookup(ctx context.Context, code string) (*cep.Address, error)
}

// Broadcaster pushes progress events to connected clients.
type Broadcaster interface {
	Broadcast(message []byte)
}

// DeliverySink receives committed deliveries. Satisfied by *store.Store.
type DeliverySink interface {
	Add(ctx context.Context, deliveries ...models.Delivery)
}

// Config tunes the extraction pipeline.
type Config struct {
	// InterCallDelay is the pause after each successful extraction. This
	// is a self-imposed throttle against the OCR service, not a
	// correctness requirement.
	InterCallDelay time.Duration
	// MaxRetries bounds the backoff retries for rate-limited calls.
	MaxRetries int
	// QueueSize is the capacity of the extraction queue.
	QueueSize int
}

func DefaultConfig() Config {
	return Config{
		InterCallDelay: time.Second,
		MaxRetries:     3,
		QueueSize:      64,
	}
}

// Manager runs the batch intake workflow: it owns the transient scanned
// items, extracts them strictly one at a time on a single worker, keeps
// the draft record durable after every change, and commits valid items
// into the delivery store.
type Manager struct {
	cfg    Config
	kv     kv.Store
	ocr    OCRClient
	lookup PostalLookup
	sink   DeliverySink
	hub    Broadcaster
	log    *logrus.Logger

	// sleep is swapped out in tests to observe backoff scheduling.
	sleep func(ctx context.Context, d time.Duration)

	mu            sync.Mutex
	items         []models.ScannedItem
	draft         []models.ScannedItem
	promptPending bool

	queue chan string
	busy  int
	idle  *sync.Cond
}

func NewManager(cfg Config, kvStore kv.Store, ocrClient OCRClient, lookup PostalLookup, sink DeliverySink, hub Broadcaster, log *logrus.Logger) *Manager {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultConfig().QueueSize
	}
	m := &Manager{
		cfg:    cfg,
		kv:     kvStore,
		ocr:    ocrClient,
		lookup: lookup,
		sink:   sink,
		hub:    hub,
		log:    log,
		sleep:  sleepContext,
		queue:  make(chan string, cfg.QueueSize),
	}
	m.idle = sync.NewCond(&m.mu)
	return m
}

func sleepContext(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// Start launches the single extraction worker. Extraction is strictly
// serialized by design: one OCR call in flight at any moment.
func (m *Manager) Start(ctx context.Context) {
	go m.run(ctx)
}

func (m *Manager) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case tempID := <-m.queue:
			m.process(ctx, tempID)
		}
	}
}

// LoadDraft checks for a persisted draft from an earlier session. A
// non-empty draft blocks new captures until resumed or discarded; a
// corrupt draft only clears the draft record.
func (m *Manager) LoadDraft(ctx context.Context) error {
	raw, ok, err := m.kv.Get(ctx, draftKey)
	if err != nil {
		return fmt.Errorf("read draft record: %w", err)
	}
	if !ok {
		return nil
	}
	var saved []models.ScannedItem
	if err := json.Unmarshal(raw, &saved); err != nil {
		m.log.WithError(err).Warn("draft record is corrupt, clearing it")
		if delErr := m.kv.Delete(ctx, draftKey); delErr != nil {
			m.log.WithError(delErr).Warn("could not clear corrupt draft record")
		}
		return nil
	}
	if len(saved) == 0 {
		return nil
	}
	m.mu.Lock()
	m.draft = saved
	m.promptPending = true
	m.mu.Unlock()
	return nil
}

// HasDraftPrompt reports whether a resume/discard decision is pending.
func (m *Manager) HasDraftPrompt() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.promptPending
}

// ResumeDraft restores the saved items. Items that were queued or mid
// extraction when the session ended come back as failed so the courier
// can edit them by hand or rescan.
func (m *Manager) ResumeDraft(ctx context.Context) []models.ScannedItem {
	m.mu.Lock()
	for i := range m.draft {
		switch m.draft[i].State {
		case models.IntakeQueued, models.IntakeExtracting:
			m.draft[i].State = models.IntakeFailed
			m.draft[i].Error = "Leitura interrompida. Edite manualmente."
		}
		m.draft[i].CEPLoading = false
	}
	m.items = m.draft
	m.draft = nil
	m.promptPending = false
	m.persistDraft(ctx)
	snapshot := m.snapshot()
	m.mu.Unlock()
	return snapshot
}

// DiscardDraft drops the saved items and clears the draft record.
func (m *Manager) DiscardDraft(ctx context.Context) {
	m.mu.Lock()
	m.draft = nil
	m.items = nil
	m.promptPending = false
	if err := m.kv.Delete(ctx, draftKey); err != nil {
		m.log.WithError(err).Warn("could not clear draft record")
	}
	m.mu.Unlock()
}

// AddImages queues one item per captured image for extraction.
func (m *Manager) AddImages(ctx context.Context, images []string) ([]models.ScannedItem, error) {
	m.mu.Lock()
	if m.promptPending {
		m.mu.Unlock()
		return nil, ErrDraftPending
	}
	created := make([]models.ScannedItem, 0, len(images))
	for _, img := range images {
		item := models.ScannedItem{
			TempID:       uuid.New().String(),
			ImagePreview: img,
			State:        models.IntakeQueued,
		}
		m.items = append(m.items, item)
		created = append(created, item)
	}
	m.busy += len(created)
	m.persistDraft(ctx)
	m.mu.Unlock()

	for _, item := range created {
		m.broadcastItem(item)
		m.queue <- item.TempID
	}
	return created, nil
}

// AddManual creates an empty editable item without an image.
func (m *Manager) AddManual(ctx context.Context) (models.ScannedItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.promptPending {
		return models.ScannedItem{}, ErrDraftPending
	}
	item := models.ScannedItem{
		TempID: uuid.New().String(),
		State:  models.IntakeReady,
	}
	m.items = append(m.items, item)
	m.persistDraft(ctx)
	return item, nil
}

// ItemPatch carries manual corrections to an intake item. Postal code and
// phone values are masked before being stored.
type ItemPatch struct {
	Name       *string `json:"name"`
	Phone      *string `json:"phone"`
	Address    *string `json:"address"`
	PostalCode *string `json:"postalCode"`
	City       *string `json:"city"`
	Complement *string `json:"complement"`
}

// UpdateItem applies manual edits. Edits are rejected only while the
// item is being extracted.
func (m *Manager) UpdateItem(ctx context.Context, tempID string, patch ItemPatch) (models.ScannedItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item := m.find(tempID)
	if item == nil {
		return models.ScannedItem{}, ErrItemNotFound
	}
	if item.State == models.IntakeExtracting {
		return models.ScannedItem{}, ErrItemBusy
	}
	if patch.Name != nil {
		item.Data.Name = *patch.Name
	}
	if patch.Phone != nil {
		item.Data.Phone = MaskPhone(*patch.Phone)
	}
	if patch.Address != nil {
		item.Data.Address = *patch.Address
	}
	if patch.PostalCode != nil {
		item.Data.PostalCode = MaskCEP(*patch.PostalCode)
	}
	if patch.City != nil {
		item.Data.City = *patch.City
	}
	if patch.Complement != nil {
		item.Data.Complement = *patch.Complement
	}
	m.persistDraft(ctx)
	return *item, nil
}

// RemoveItem drops an intake item. A removal while its extraction is in
// flight is allowed; the stale result is ignored when it lands.
func (m *Manager) RemoveItem(ctx context.Context, tempID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		if m.items[i].TempID == tempID {
			m.items = append(m.items[:i], m.items[i+1:]...)
			m.persistDraft(ctx)
			return nil
		}
	}
	return ErrItemNotFound
}

// LookupPostalCode auto-fills address/city from the item's postal code.
// Codes that do not clean to exactly 8 digits never reach the lookup
// service; a not-found result leaves the fields untouched.
func (m *Manager) LookupPostalCode(ctx context.Context, tempID string) (models.ScannedItem, error) {
	m.mu.Lock()
	item := m.find(tempID)
	if item == nil {
		m.mu.Unlock()
		return models.ScannedItem{}, ErrItemNotFound
	}
	code := cep.CleanCode(item.Data.PostalCode)
	if len(code) != 8 {
		snapshot := *item
		m.mu.Unlock()
		return snapshot, nil
	}
	item.CEPLoading = true
	m.persistDraft(ctx)
	m.mu.Unlock()

	addr, err := m.lookup.Lookup(ctx, code)

	m.mu.Lock()
	defer m.mu.Unlock()
	item = m.find(tempID)
	if item == nil {
		// Removed while the lookup was in flight.
		return models.ScannedItem{}, ErrItemNotFound
	}
	item.CEPLoading = false
	if err != nil {
		if !errors.Is(err, cep.ErrNotFound) {
			m.log.WithError(err).Warn("postal lookup failed")
		}
		m.persistDraft(ctx)
		return *item, nil
	}
	item.Data.Address = addr.Street
	item.Data.City = addr.CityLabel()
	m.persistDraft(ctx)
	return *item, nil
}

// Items returns a snapshot of the current intake list.
func (m *Manager) Items() []models.ScannedItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot()
}

// ProcessingCount reports how many items are queued or being extracted.
func (m *Manager) ProcessingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.processingLocked()
}

func (m *Manager) processingLocked() int {
	n := 0
	for _, item := range m.items {
		if item.State == models.IntakeQueued || item.State == models.IntakeExtracting {
			n++
		}
	}
	return n
}

// Commit turns every valid item into a pending delivery and clears the
// draft. Incomplete items block the commit until the caller explicitly
// confirms discarding them.
func (m *Manager) Commit(ctx context.Context, discardInvalid bool) ([]models.Delivery, error) {
	m.mu.Lock()
	if m.promptPending {
		m.mu.Unlock()
		return nil, ErrDraftPending
	}
	if m.processingLocked() > 0 {
		m.mu.Unlock()
		return nil, ErrExtractionInProgress
	}

	var valid []models.ScannedItem
	invalid := 0
	for _, item := range m.items {
		if item.Valid() {
			valid = append(valid, item)
		} else {
			invalid++
		}
	}
	if len(valid) == 0 {
		m.mu.Unlock()
		return nil, ErrNoValidItems
	}
	if invalid > 0 && !discardInvalid {
		m.mu.Unlock()
		return nil, &DiscardConfirmationError{Valid: len(valid), Invalid: invalid}
	}

	now := time.Now()
	deliveries := make([]models.Delivery, 0, len(valid))
	for _, item := range valid {
		deliveries = append(deliveries, models.Delivery{
			ID:           uuid.New().String(),
			CustomerName: item.Data.Name,
			Phone:        item.Data.Phone,
			Address: models.Address{
				FullAddress: item.Data.Address,
				PostalCode:  item.Data.PostalCode,
				City:        item.Data.City,
				Notes:       item.Data.Complement,
				Lat:         item.Data.Lat,
				Lng:         item.Data.Lng,
			},
			Status:    models.StatusPending,
			CreatedAt: now,
		})
	}

	m.items = nil
	if err := m.kv.Delete(ctx, draftKey); err != nil {
		m.log.WithError(err).Warn("could not clear draft record after commit")
	}
	m.mu.Unlock()

	m.sink.Add(ctx, deliveries...)
	return deliveries, nil
}

// WaitIdle blocks until no item is queued or extracting. Used by tests
// and the graceful shutdown path.
func (m *Manager) WaitIdle() {
	m.mu.Lock()
	for m.busy > 0 {
		m.idle.Wait()
	}
	m.mu.Unlock()
}

func (m *Manager) find(tempID string) *models.ScannedItem {
	for i := range m.items {
		if m.items[i].TempID == tempID {
			return &m.items[i]
		}
	}
	return nil
}

func (m *Manager) snapshot() []models.ScannedItem {
	out := make([]models.ScannedItem, len(m.items))
	copy(out, m.items)
	return out
}

// persistDraft snapshots the in-progress list. Must be called with the
// lock held. Storage failures only log a warning: the in-memory list
// stays usable and the next mutation tries again.
func (m *Manager) persistDraft(ctx context.Context) {
	if m.promptPending {
		return
	}
	if len(m.items) == 0 {
		if err := m.kv.Delete(ctx, draftKey); err != nil {
			m.log.WithError(err).Warn("could not clear draft record")
		}
		return
	}
	raw, err := json.Marshal(m.items)
	if err != nil {
		m.log.WithError(err).Warn("could not serialize draft")
		return
	}
	if err := m.kv.Put(ctx, draftKey, raw); err != nil {
		m.log.WithError(err).Warn("storage limit reached, draft not saved")
	}
}

type progressEvent struct {
	Type   string             `json:"type"`
	TempID string             `json:"tempId"`
	State  models.IntakeState `json:"state"`
	Error  string             `json:"error,omitempty"`
}

func (m *Manager) broadcastItem(item models.ScannedItem) {
	if m.hub == nil {
		return
	}
	event := progressEvent{Type: "intake", TempID: item.TempID, State: item.State, Error: item.Error}
	raw, err := json.Marshal(event)
	if err != nil {
		return
	}
	m.hub.Broadcast(raw)
}
