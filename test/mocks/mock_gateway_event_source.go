package mocks

import (
	"context"
	"sync"

	adapterports "github.com/kevin07696/revenue-share-service/internal/adapters/ports"
	"github.com/kevin07696/revenue-share-service/internal/domain"
)

// MockGatewayEventSource serves scripted event pages keyed by merchant and cursor
type MockGatewayEventSource struct {
	mu     sync.Mutex
	pages  map[string]*domain.EventPage
	errors map[string]error

	// Call tracking
	Requests []adapterports.EventListRequest
}

var _ adapterports.GatewayEventSource = (*MockGatewayEventSource)(nil)

// NewMockGatewayEventSource creates an event source with no pages
func NewMockGatewayEventSource() *MockGatewayEventSource {
	return &MockGatewayEventSource{
		pages:  make(map[string]*domain.EventPage),
		errors: make(map[string]error),
	}
}

func pageKey(merchantID, cursor string) string {
	return merchantID + "|" + cursor
}

// AddPage serves page for requests of merchantID at cursor
func (m *MockGatewayEventSource) AddPage(merchantID, cursor string, page *domain.EventPage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pages[pageKey(merchantID, cursor)] = page
}

// FailAt makes requests of merchantID at cursor return err
func (m *MockGatewayEventSource) FailAt(merchantID, cursor string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[pageKey(merchantID, cursor)] = err
}

// ListEvents returns the scripted page, or an empty final page when none was scripted
func (m *MockGatewayEventSource) ListEvents(ctx context.Context, req *adapterports.EventListRequest) (*domain.EventPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Requests = append(m.Requests, *req)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key := pageKey(req.MerchantID, req.Cursor)
	if err, ok := m.errors[key]; ok {
		return nil, err
	}
	if page, ok := m.pages[key]; ok {
		return page, nil
	}
	return &domain.EventPage{NextCursor: req.Cursor}, nil
}

// RequestCount returns how many pages were requested
func (m *MockGatewayEventSource) RequestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Requests)
}
