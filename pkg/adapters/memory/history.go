package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/aretw0/parley/pkg/domain"
)

// History implements ports.HistoryStore in memory.
// Options are stored as JSON, exactly like the SQL store, so the two behave
// the same for callers. Intended for tests and the console transport.
type History struct {
	mu      sync.RWMutex
	records []storedRecord
	nextID  int64
}

type storedRecord struct {
	rec     domain.HistoryRecord
	options []byte
}

// NewHistory creates an empty in-memory history.
func NewHistory() *History {
	return &History{}
}

// Append stores a copy of rec and assigns its ID and CreatedAt.
func (h *History) Append(ctx context.Context, rec *domain.HistoryRecord) error {
	opts := rec.Options
	if opts == nil {
		opts = map[string]any{}
	}
	raw, err := json.Marshal(opts)
	if err != nil {
		return fmt.Errorf("failed to encode options: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	rec.ID = h.nextID
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	cp := *rec
	cp.Options = nil
	h.records = append(h.records, storedRecord{rec: cp, options: raw})
	return nil
}

// LatestFor returns the record with the highest ID for phone.
func (h *History) LatestFor(ctx context.Context, phone string) (*domain.HistoryRecord, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for i := len(h.records) - 1; i >= 0; i-- {
		s := h.records[i]
		if s.rec.Phone != phone {
			continue
		}
		out := s.rec
		if err := json.Unmarshal(s.options, &out.Options); err != nil {
			return nil, fmt.Errorf("%w: options: %v", domain.ErrMalformed, err)
		}
		return &out, nil
	}
	return nil, nil
}

// All returns copies of every record in insertion order.
func (h *History) All() []domain.HistoryRecord {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]domain.HistoryRecord, 0, len(h.records))
	for _, s := range h.records {
		r := s.rec
		_ = json.Unmarshal(s.options, &r.Options)
		out = append(out, r)
	}
	return out
}

// Len returns the number of stored records.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.records)
}
