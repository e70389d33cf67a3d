// server/internal/intake/worker.go
package intake

import (
	"context"
	"errors"
	"time"

	"rl-express-api-server/internal/models"
	"rl-express-api-server/internal/ocr"
)

const extractionFailedMessage = "Falha na leitura (Tente manual)."

// process extracts a single queued item. Rate-limited calls retry with
// exponential backoff (2s, 4s, 8s); any other failure marks the item
// failed immediately. The result is dropped if the item was removed
// while the call was in flight.
func (m *Manager) process(ctx context.Context, tempID string) {
	defer m.finishTask()

	m.mu.Lock()
	item := m.find(tempID)
	if item == nil {
		m.mu.Unlock()
		return
	}
	item.State = models.IntakeExtracting
	preview := item.ImagePreview
	snapshot := *item
	m.persistDraft(ctx)
	m.mu.Unlock()
	m.broadcastItem(snapshot)

	var fields *ocr.Fields
	var err error
	for attempt := 0; attempt <= m.cfg.MaxRetries; attempt++ {
		fields, err = m.ocr.Extract(ctx, preview)
		if err == nil {
			break
		}
		if errors.Is(err, ocr.ErrRateLimited) && attempt < m.cfg.MaxRetries {
			backoff := time.Duration(1<<uint(attempt+1)) * time.Second
			m.log.WithField("tempId", tempID).WithField("backoff", backoff).
				Warn("ocr quota hit, retrying extraction")
			m.sleep(ctx, backoff)
			continue
		}
		break
	}

	m.mu.Lock()
	item = m.find(tempID)
	if item == nil {
		// Removed mid-flight; ignore the stale result.
		m.mu.Unlock()
		return
	}
	if err != nil {
		item.State = models.IntakeFailed
		item.Error = extractionFailedMessage
		m.log.WithField("tempId", tempID).WithError(err).Warn("extraction failed")
	} else {
		item.State = models.IntakeReady
		item.Error = ""
		item.Data = models.ScannedData{
			Name:       fields.CustomerName,
			Phone:      fields.Phone,
			Address:    fields.FullAddress,
			PostalCode: fields.PostalCode,
			City:       fields.City,
			Complement: fields.Complement,
			Lat:        fields.Lat,
			Lng:        fields.Lng,
		}
	}
	snapshot = *item
	m.persistDraft(ctx)
	m.mu.Unlock()
	m.broadcastItem(snapshot)

	if err == nil {
		// Throttle before the next queued extraction.
		m.sleep(ctx, m.cfg.InterCallDelay)
	}
}

func (m *Manager) finishTask() {
	m.mu.Lock()
	m.busy--
	if m.busy <= 0 {
		m.idle.Broadcast()
	}
	m.mu.Unlock()
}
