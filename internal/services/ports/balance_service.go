package ports

import "context"

// BalanceQuery selects the merchant-partner relationship and month to report on
type BalanceQuery struct {
	AgreementID *string // Optional: restrict earnings and payouts to one agreement
	MerchantID  string
	PartnerID   string
	Year        int
	Month       int
}

// BalanceResult is what the merchant owes the partner for one month.
// OutstandingMinor is signed; a negative value means the partner was overpaid.
type BalanceResult struct {
	AgreementID      *string `json:"agreement_id,omitempty"`
	MerchantID       string  `json:"merchant_id"`
	PartnerID        string  `json:"partner_id"`
	Year             int     `json:"year"`
	Month            int     `json:"month"`
	RawEarnedMinor   int64   `json:"raw_earned_minor"`
	AdjustmentMinor  int64   `json:"adjustment_minor"`
	EarnedMinor      int64   `json:"earned_minor"`
	PaidMinor        int64   `json:"paid_minor"`
	OutstandingMinor int64   `json:"outstanding_minor"`
}

// BalanceService defines the outstanding balance reporting operations
type BalanceService interface {
	// OutstandingBalance returns earned minus paid for one month
	OutstandingBalance(ctx context.Context, query *BalanceQuery) (*BalanceResult, error)

	// BalanceHistory returns the balance of the query month and the months before it,
	// newest first, each computed independently
	BalanceHistory(ctx context.Context, query *BalanceQuery, months int) ([]*BalanceResult, error)
}
