package middleware

import (
	"context"
	"maps"
	"regexp"

	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/ports"
)

// Mask replaces every redacted fragment.
const Mask = "***"

type piiMiddleware struct {
	next     ports.HistoryStore
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that masks the parts of history
// answers (and string options) matching any of the patterns before they are
// written. Invalid patterns panic.
func NewPIIMiddleware(patternStrings []string) HistoryMiddleware {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		patterns[i] = regexp.MustCompile(p)
	}
	return func(next ports.HistoryStore) ports.HistoryStore {
		return &piiMiddleware{next: next, patterns: patterns}
	}
}

func (m *piiMiddleware) Append(ctx context.Context, rec *domain.HistoryRecord) error {
	// 1. Clone to avoid side effects on the record the caller holds.
	cloned := *rec
	cloned.Options = maps.Clone(rec.Options)

	// 2. Mask PII
	cloned.Answer = m.mask(cloned.Answer)
	for k, v := range cloned.Options {
		if s, ok := v.(string); ok {
			cloned.Options[k] = m.mask(s)
		}
	}

	if err := m.next.Append(ctx, &cloned); err != nil {
		return err
	}
	rec.ID = cloned.ID
	rec.CreatedAt = cloned.CreatedAt
	return nil
}

func (m *piiMiddleware) LatestFor(ctx context.Context, phone string) (*domain.HistoryRecord, error) {
	return m.next.LatestFor(ctx, phone)
}

func (m *piiMiddleware) mask(s string) string {
	for _, p := range m.patterns {
		s = p.ReplaceAllString(s, Mask)
	}
	return s
}
