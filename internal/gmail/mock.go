package gmail

import (
	"context"
	"fmt"

	"github.com/mailstash/mailstash/internal/model"
)

// Mock is an in-memory API implementation for tests. Messages are served
// in insertion order by ListMessageIDs.
type Mock struct {
	messages map[string]*model.MessageRecord
	order    []string

	// GetCalls records the ids fetched via GetMessage, in order.
	GetCalls []string

	// FailIDs lists ids whose GetMessage call should fail.
	FailIDs map[string]bool
}

// NewMock creates an empty mock API.
func NewMock() *Mock {
	return &Mock{
		messages: make(map[string]*model.MessageRecord),
		FailIDs:  make(map[string]bool),
	}
}

// Add registers a message with the mock service.
func (m *Mock) Add(rec *model.MessageRecord) {
	if _, ok := m.messages[rec.ID]; !ok {
		m.order = append(m.order, rec.ID)
	}
	m.messages[rec.ID] = rec
}

// ListMessageIDs returns all registered ids, ignoring query, up to max.
func (m *Mock) ListMessageIDs(ctx context.Context, query string, max int) ([]string, error) {
	ids := append([]string(nil), m.order...)
	if max > 0 && len(ids) > max {
		ids = ids[:max]
	}
	return ids, nil
}

// GetMessage returns the registered message or an error if unknown or
// marked as failing.
func (m *Mock) GetMessage(ctx context.Context, id string) (*model.MessageRecord, error) {
	m.GetCalls = append(m.GetCalls, id)
	if m.FailIDs[id] {
		return nil, fmt.Errorf("mock: fetch %s failed", id)
	}
	rec, ok := m.messages[id]
	if !ok {
		return nil, fmt.Errorf("mock: no such message %s", id)
	}
	return rec, nil
}
