package ports

import (
	"context"

	"github.com/kevin07696/revenue-share-service/internal/domain"
)

// Event sources, used for logging and metrics
const (
	SourceWebhook = "webhook"
	SourceSync    = "sync"
)

// IngestResult summarizes one batch of gateway events
type IngestResult struct {
	Errors     []ItemError `json:"errors,omitempty"`
	Received   int         `json:"received"`
	Created    int         `json:"created"`
	Updated    int         `json:"updated"`
	Duplicates int         `json:"duplicates"`
	Failed     int         `json:"failed"`
}

// Add accumulates another batch into r
func (r *IngestResult) Add(other *IngestResult) {
	if other == nil {
		return
	}
	r.Received += other.Received
	r.Created += other.Created
	r.Updated += other.Updated
	r.Duplicates += other.Duplicates
	r.Failed += other.Failed
	r.Errors = append(r.Errors, other.Errors...)
}

// SyncResult summarizes one merchant's polling run
type SyncResult struct {
	MerchantID string        `json:"merchant_id"`
	Cursor     string        `json:"cursor"`
	Ingest     *IngestResult `json:"ingest"`
	Pages      int           `json:"pages"`
}

// SyncAllResult summarizes a polling run across merchants
type SyncAllResult struct {
	Results   []*SyncResult `json:"results"`
	Errors    []ItemError   `json:"errors,omitempty"`
	Merchants int           `json:"merchants"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
}

// IngestionService defines how gateway events enter the system
type IngestionService interface {
	// IngestEvents persists a batch of a merchant's events idempotently and applies split effects
	IngestEvents(ctx context.Context, merchantID, source string, events []domain.GatewayEvent) (*IngestResult, error)

	// SyncMerchant pages the gateway feed from the merchant's stored cursor
	SyncMerchant(ctx context.Context, merchantID string) (*SyncResult, error)

	// SyncAll syncs every merchant with an active webhook endpoint
	SyncAll(ctx context.Context) (*SyncAllResult, error)
}
