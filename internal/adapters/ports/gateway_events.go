package ports

import (
	"context"

	"github.com/kevin07696/revenue-share-service/internal/domain"
)

// EventListRequest asks the gateway for one page of a merchant's events
type EventListRequest struct {
	MerchantID string
	Cursor     string // Empty starts from the beginning of the feed
	Limit      int
}

// GatewayEventSource defines the port for polling the payment gateway's event feed.
// Pages are returned in feed order; NextCursor resumes after the last event of the page.
type GatewayEventSource interface {
	ListEvents(ctx context.Context, req *EventListRequest) (*domain.EventPage, error)
}
