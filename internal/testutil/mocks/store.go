package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kevin07696/revenue-share-service/internal/domain"
	"github.com/kevin07696/revenue-share-service/internal/domain/ports"
	"github.com/kevin07696/revenue-share-service/pkg/timeutil"
)

// Store keeps every table in memory and hands out repository views over them.
// Views share one lock so joins (settlement rows, earnings) see a consistent state.
type Store struct {
	mu           sync.Mutex
	agreements   map[string]*domain.Agreement
	transactions map[string]*domain.Transaction
	links        map[string]*domain.SplitLink
	settlements  map[string]*domain.Settlement
	adjustments  []domain.SettlementAdjustment
	payouts      map[string]*domain.Payout
	endpoints    map[string]*domain.WebhookEndpoint
	cursors      map[string]*domain.SyncCursor
	failures     map[string]error
	calls        map[string]int
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		agreements:   make(map[string]*domain.Agreement),
		transactions: make(map[string]*domain.Transaction),
		links:        make(map[string]*domain.SplitLink),
		settlements:  make(map[string]*domain.Settlement),
		payouts:      make(map[string]*domain.Payout),
		endpoints:    make(map[string]*domain.WebhookEndpoint),
		cursors:      make(map[string]*domain.SyncCursor),
		failures:     make(map[string]error),
		calls:        make(map[string]int),
	}
}

// FailOn makes the named operation (e.g. "SplitLinks.Upsert") return err until cleared with nil
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, op)
		return
	}
	s.failures[op] = err
}

// Calls returns how many times the named operation ran
func (s *Store) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// enter locks the store and records the call; callers must unlock
func (s *Store) enter(op string) error {
	s.mu.Lock()
	s.calls[op]++
	return s.failures[op]
}

// Agreements returns the agreement repository view
func (s *Store) Agreements() *AgreementRepository { return &AgreementRepository{s: s} }

// Transactions returns the transaction repository view
func (s *Store) Transactions() *TransactionRepository { return &TransactionRepository{s: s} }

// SplitLinks returns the split link repository view
func (s *Store) SplitLinks() *SplitLinkRepository { return &SplitLinkRepository{s: s} }

// Settlements returns the settlement repository view
func (s *Store) Settlements() *SettlementRepository { return &SettlementRepository{s: s} }

// Payouts returns the payout repository view
func (s *Store) Payouts() *PayoutRepository { return &PayoutRepository{s: s} }

// WebhookEndpoints returns the webhook endpoint repository view
func (s *Store) WebhookEndpoints() *WebhookEndpointRepository {
	return &WebhookEndpointRepository{s: s}
}

// SyncCursors returns the sync cursor repository view
func (s *Store) SyncCursors() *SyncCursorRepository { return &SyncCursorRepository{s: s} }

// AllLinks returns a copy of every stored link, ordered by transaction then agreement
func (s *Store) AllLinks() []*domain.SplitLink {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domain.SplitLink, 0, len(s.links))
	for _, l := range s.links {
		c := *l
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TransactionID != out[j].TransactionID {
			return out[i].TransactionID < out[j].TransactionID
		}
		return out[i].AgreementID < out[j].AgreementID
	})
	return out
}

// AllAdjustments returns a copy of every stored settlement adjustment
func (s *Store) AllAdjustments() []domain.SettlementAdjustment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.SettlementAdjustment(nil), s.adjustments...)
}

func newID(id string) string {
	if id != "" {
		return id
	}
	return uuid.NewString()
}

// AgreementRepository implements ports.AgreementRepository in memory
type AgreementRepository struct{ s *Store }

var _ ports.AgreementRepository = (*AgreementRepository)(nil)

func (r *AgreementRepository) Create(_ context.Context, _ ports.DBTX, agreement *domain.Agreement) error {
	err := r.s.enter("Agreements.Create")
	defer r.s.mu.Unlock()
	if err != nil {
		return err
	}
	agreement.ID = newID(agreement.ID)
	now := timeutil.Now()
	if agreement.CreatedAt.IsZero() {
		agreement.CreatedAt = now
	}
	agreement.UpdatedAt = now
	c := *agreement
	r.s.agreements[c.ID] = &c
	return nil
}

func (r *AgreementRepository) GetByID(_ context.Context, _ ports.DBTX, id string) (*domain.Agreement, error) {
	err := r.s.enter("Agreements.GetByID")
	defer r.s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	a, ok := r.s.agreements[id]
	if !ok {
		return nil, domain.ErrAgreementNotFound.WithDetail("agreement_id", id)
	}
	c := *a
	return &c, nil
}

func (r *AgreementRepository) ListCandidates(_ context.Context, _ ports.DBTX, merchantID string, date time.Time, clientID *string) ([]*domain.Agreement, error) {
	err := r.s.enter("Agreements.ListCandidates")
	defer r.s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return r.filter(func(a *domain.Agreement) bool {
		if a.MerchantID != merchantID || !a.IsActive || !a.IsEffectiveOn(date) {
			return false
		}
		return !a.IsClientSpecific() || (clientID != nil && *clientID == *a.ClientID)
	}), nil
}

func (r *AgreementRepository) ListActiveInPeriod(_ context.Context, _ ports.DBTX, start, end time.Time) ([]*domain.Agreement, error) {
	err := r.s.enter("Agreements.ListActiveInPeriod")
	defer r.s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return r.filter(func(a *domain.Agreement) bool {
		if !a.IsActive || !timeutil.StartOfDay(a.EffectiveFrom).Before(end) {
			return false
		}
		return a.EffectiveTo == nil || !timeutil.StartOfDay(*a.EffectiveTo).Before(timeutil.StartOfDay(start))
	}), nil
}

func (r *AgreementRepository) ListByMerchantAndPartner(_ context.Context, _ ports.DBTX, merchantID, partnerID string) ([]*domain.Agreement, error) {
	err := r.s.enter("Agreements.ListByMerchantAndPartner")
	defer r.s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return r.filter(func(a *domain.Agreement) bool {
		return a.MerchantID == merchantID && a.PartnerID == partnerID
	}), nil
}

// filter runs with the store lock held
func (r *AgreementRepository) filter(keep func(*domain.Agreement) bool) []*domain.Agreement {
	out := make([]*domain.Agreement, 0)
	for _, a := range r.s.agreements {
		if keep(a) {
			c := *a
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// TransactionRepository implements ports.TransactionRepository in memory
type TransactionRepository struct{ s *Store }

var _ ports.TransactionRepository = (*TransactionRepository)(nil)

func (r *TransactionRepository) Create(_ context.Context, _ ports.DBTX, transaction *domain.Transaction) (*domain.Transaction, bool, error) {
	err := r.s.enter("Transactions.Create")
	defer r.s.mu.Unlock()
	if err != nil {
		return nil, false, err
	}
	if transaction.ExternalSourceID != nil {
		if existing := r.byExternalID(transaction.MerchantID, *transaction.ExternalSourceID); existing != nil {
			c := *existing
			return &c, false, nil
		}
	}
	transaction.ID = newID(transaction.ID)
	now := timeutil.Now()
	transaction.CreatedAt = now
	transaction.UpdatedAt = now
	c := *transaction
	r.s.transactions[c.ID] = &c
	out := c
	return &out, true, nil
}

func (r *TransactionRepository) GetByID(_ context.Context, _ ports.DBTX, id string) (*domain.Transaction, error) {
	err := r.s.enter("Transactions.GetByID")
	defer r.s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	t, ok := r.s.transactions[id]
	if !ok {
		return nil, domain.ErrTxnNotFound.WithDetail("transaction_id", id)
	}
	c := *t
	return &c, nil
}

func (r *TransactionRepository) GetByExternalSourceID(_ context.Context, _ ports.DBTX, merchantID, externalSourceID string) (*domain.Transaction, error) {
	err := r.s.enter("Transactions.GetByExternalSourceID")
	defer r.s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	t := r.byExternalID(merchantID, externalSourceID)
	if t == nil {
		return nil, domain.ErrTxnNotFound.WithDetail("external_source_id", externalSourceID)
	}
	c := *t
	return &c, nil
}

func (r *TransactionRepository) UpdateStatus(_ context.Context, _ ports.DBTX, id string, status domain.TransactionStatus) error {
	err := r.s.enter("Transactions.UpdateStatus")
	defer r.s.mu.Unlock()
	if err != nil {
		return err
	}
	t, ok := r.s.transactions[id]
	if !ok {
		return domain.ErrTxnNotFound.WithDetail("transaction_id", id)
	}
	t.Status = status
	t.UpdatedAt = timeutil.Now()
	return nil
}

func (r *TransactionRepository) ListByMerchantAndDateRange(_ context.Context, _ ports.DBTX, merchantID string, start, end time.Time) ([]*domain.Transaction, error) {
	err := r.s.enter("Transactions.ListByMerchantAndDateRange")
	defer r.s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	out := make([]*domain.Transaction, 0)
	for _, t := range r.s.transactions {
		if t.MerchantID == merchantID && !t.TransactionDate.Before(start) && t.TransactionDate.Before(end) {
			c := *t
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].TransactionDate.Equal(out[j].TransactionDate) {
			return out[i].TransactionDate.Before(out[j].TransactionDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *TransactionRepository) byExternalID(merchantID, externalID string) *domain.Transaction {
	for _, t := range r.s.transactions {
		if t.MerchantID == merchantID && t.ExternalSourceID != nil && *t.ExternalSourceID == externalID {
			return t
		}
	}
	return nil
}

// SplitLinkRepository implements ports.SplitLinkRepository in memory
type SplitLinkRepository struct{ s *Store }

var _ ports.SplitLinkRepository = (*SplitLinkRepository)(nil)

func linkKey(transactionID, agreementID string) string {
	return transactionID + "|" + agreementID
}

func (r *SplitLinkRepository) Upsert(_ context.Context, _ ports.DBTX, link *domain.SplitLink) (*domain.SplitLink, error) {
	err := r.s.enter("SplitLinks.Upsert")
	defer r.s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	now := timeutil.Now()
	key := linkKey(link.TransactionID, link.AgreementID)
	if existing, ok := r.s.links[key]; ok {
		existing.CalculationMethod = link.CalculationMethod
		existing.PartnerShareMinor = link.PartnerShareMinor
		existing.MerchantShareMinor = link.MerchantShareMinor
		existing.UpdatedAt = now
		c := *existing
		return &c, nil
	}
	c := *link
	c.ID = newID(c.ID)
	c.CreatedAt = now
	c.UpdatedAt = now
	r.s.links[key] = &c
	out := c
	return &out, nil
}

func (r *SplitLinkRepository) DeleteByTransaction(_ context.Context, _ ports.DBTX, transactionID string) (int64, error) {
	err := r.s.enter("SplitLinks.DeleteByTransaction")
	defer r.s.mu.Unlock()
	if err != nil {
		return 0, err
	}
	return r.deleteWhere(transactionID, func(l *domain.SplitLink) bool { return l.TransactionID == transactionID })
}

func (r *SplitLinkRepository) DeleteByTransactionExceptAgreement(_ context.Context, _ ports.DBTX, transactionID, agreementID string) (int64, error) {
	err := r.s.enter("SplitLinks.DeleteByTransactionExceptAgreement")
	defer r.s.mu.Unlock()
	if err != nil {
		return 0, err
	}
	return r.deleteWhere(transactionID, func(l *domain.SplitLink) bool {
		return l.TransactionID == transactionID && l.AgreementID != agreementID
	})
}

// deleteWhere removes matching links. Like the schema it refuses, removing nothing,
// when any of them still carries a settlement adjustment.
func (r *SplitLinkRepository) deleteWhere(transactionID string, match func(*domain.SplitLink) bool) (int64, error) {
	adjusted := make(map[string]bool, len(r.s.adjustments))
	for _, adj := range r.s.adjustments {
		adjusted[adj.SplitLinkID] = true
	}

	keys := make([]string, 0)
	for key, l := range r.s.links {
		if !match(l) {
			continue
		}
		if adjusted[l.ID] {
			return 0, domain.ErrSplitLinkSettled.WithDetail("transaction_id", transactionID)
		}
		keys = append(keys, key)
	}
	for _, key := range keys {
		delete(r.s.links, key)
	}
	return int64(len(keys)), nil
}

func (r *SplitLinkRepository) ListByTransaction(_ context.Context, _ ports.DBTX, transactionID string) ([]*domain.SplitLink, error) {
	err := r.s.enter("SplitLinks.ListByTransaction")
	defer r.s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	out := make([]*domain.SplitLink, 0)
	for _, l := range r.s.links {
		if l.TransactionID == transactionID {
			c := *l
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AgreementID < out[j].AgreementID })
	return out, nil
}

func (r *SplitLinkRepository) ListSettlementRows(_ context.Context, _ ports.DBTX, agreementID string, start, end time.Time, _ bool) ([]domain.SettlementRow, error) {
	err := r.s.enter("SplitLinks.ListSettlementRows")
	defer r.s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	rows := make([]domain.SettlementRow, 0)
	for _, l := range r.s.links {
		if l.AgreementID != agreementID {
			continue
		}
		t, ok := r.s.transactions[l.TransactionID]
		if !ok || !countsAsEarned(t, start, end) {
			continue
		}
		rows = append(rows, domain.SettlementRow{
			TransactionDate:    t.TransactionDate,
			SplitLinkID:        l.ID,
			TransactionID:      l.TransactionID,
			PartnerShareMinor:  l.PartnerShareMinor,
			MerchantShareMinor: l.MerchantShareMinor,
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].TransactionDate.Equal(rows[j].TransactionDate) {
			return rows[i].TransactionDate.Before(rows[j].TransactionDate)
		}
		return rows[i].SplitLinkID < rows[j].SplitLinkID
	})
	return rows, nil
}

func (r *SplitLinkRepository) SumEarned(_ context.Context, _ ports.DBTX, filter ports.EarnedFilter) (int64, int64, error) {
	err := r.s.enter("SplitLinks.SumEarned")
	defer r.s.mu.Unlock()
	if err != nil {
		return 0, 0, err
	}
	adjustmentsByLink := make(map[string]int64)
	for _, adj := range r.s.adjustments {
		adjustmentsByLink[adj.SplitLinkID] += adj.AdjustmentMinor
	}

	var raw, adjustments int64
	for _, l := range r.s.links {
		if filter.AgreementID != nil && l.AgreementID != *filter.AgreementID {
			continue
		}
		a, ok := r.s.agreements[l.AgreementID]
		if !ok || a.MerchantID != filter.MerchantID || a.PartnerID != filter.PartnerID {
			continue
		}
		t, ok := r.s.transactions[l.TransactionID]
		if !ok || !countsAsEarned(t, filter.Start, filter.End) {
			continue
		}
		raw += l.PartnerShareMinor
		adjustments += adjustmentsByLink[l.ID]
	}
	return raw, adjustments, nil
}

func countsAsEarned(t *domain.Transaction, start, end time.Time) bool {
	return t.Status == domain.TransactionStatusCompleted &&
		t.Kind == domain.TransactionKindPayment &&
		!t.TransactionDate.Before(start) &&
		t.TransactionDate.Before(end)
}

// SettlementRepository implements ports.SettlementRepository in memory
type SettlementRepository struct{ s *Store }

var _ ports.SettlementRepository = (*SettlementRepository)(nil)

func periodKey(agreementID string, year, month int) string {
	return agreementID + "|" + time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC).Format("2006-01")
}

func (r *SettlementRepository) GetByPeriod(_ context.Context, _ ports.DBTX, agreementID string, year, month int) (*domain.Settlement, error) {
	err := r.s.enter("Settlements.GetByPeriod")
	defer r.s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	m, ok := r.s.settlements[periodKey(agreementID, year, month)]
	if !ok {
		return nil, domain.ErrSettlementNotFound.
			WithDetail("agreement_id", agreementID).
			WithDetail("year", year).
			WithDetail("month", month)
	}
	c := *m
	return &c, nil
}

func (r *SettlementRepository) Create(_ context.Context, _ ports.DBTX, settlement *domain.Settlement, adjustments []domain.SettlementAdjustment) (bool, error) {
	err := r.s.enter("Settlements.Create")
	defer r.s.mu.Unlock()
	if err != nil {
		return false, err
	}
	key := periodKey(settlement.AgreementID, settlement.Year, settlement.Month)
	if _, exists := r.s.settlements[key]; exists {
		return false, nil
	}
	settlement.ID = newID(settlement.ID)
	c := *settlement
	r.s.settlements[key] = &c
	for _, adj := range adjustments {
		adj.SettlementID = settlement.ID
		r.s.adjustments = append(r.s.adjustments, adj)
	}
	return true, nil
}

func (r *SettlementRepository) Delete(_ context.Context, _ ports.DBTX, agreementID string, year, month int) (bool, error) {
	err := r.s.enter("Settlements.Delete")
	defer r.s.mu.Unlock()
	if err != nil {
		return false, err
	}
	key := periodKey(agreementID, year, month)
	m, ok := r.s.settlements[key]
	if !ok {
		return false, nil
	}
	delete(r.s.settlements, key)
	kept := r.s.adjustments[:0]
	for _, adj := range r.s.adjustments {
		if adj.SettlementID != m.ID {
			kept = append(kept, adj)
		}
	}
	r.s.adjustments = kept
	return true, nil
}

func (r *SettlementRepository) ListAdjustments(_ context.Context, _ ports.DBTX, settlementID string) ([]domain.SettlementAdjustment, error) {
	err := r.s.enter("Settlements.ListAdjustments")
	defer r.s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	out := make([]domain.SettlementAdjustment, 0)
	for _, adj := range r.s.adjustments {
		if adj.SettlementID == settlementID {
			out = append(out, adj)
		}
	}
	return out, nil
}

// PayoutRepository implements ports.PayoutRepository in memory
type PayoutRepository struct{ s *Store }

var _ ports.PayoutRepository = (*PayoutRepository)(nil)

func (r *PayoutRepository) UpsertByExternalID(_ context.Context, _ ports.DBTX, payout *domain.Payout) (*domain.Payout, bool, error) {
	err := r.s.enter("Payouts.UpsertByExternalID")
	defer r.s.mu.Unlock()
	if err != nil {
		return nil, false, err
	}
	now := timeutil.Now()
	if payout.ExternalSourceID != nil {
		for _, p := range r.s.payouts {
			if p.MerchantID == payout.MerchantID && p.ExternalSourceID != nil && *p.ExternalSourceID == *payout.ExternalSourceID {
				id, createdAt := p.ID, p.CreatedAt
				*p = *payout
				p.ID, p.CreatedAt, p.UpdatedAt = id, createdAt, now
				c := *p
				return &c, false, nil
			}
		}
	}
	c := *payout
	c.ID = newID(c.ID)
	c.CreatedAt = now
	c.UpdatedAt = now
	r.s.payouts[c.ID] = &c
	out := c
	return &out, true, nil
}

func (r *PayoutRepository) ListCompleted(_ context.Context, _ ports.DBTX, merchantID, partnerID string, start, end time.Time) ([]*domain.Payout, error) {
	err := r.s.enter("Payouts.ListCompleted")
	defer r.s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	out := make([]*domain.Payout, 0)
	for _, p := range r.s.payouts {
		if p.MerchantID != merchantID || p.PartnerID != partnerID || p.Status != domain.PayoutStatusCompleted {
			continue
		}
		date := p.EffectiveDate()
		if date.Before(start) || !date.Before(end) {
			continue
		}
		c := *p
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// WebhookEndpointRepository implements ports.WebhookEndpointRepository in memory
type WebhookEndpointRepository struct{ s *Store }

var _ ports.WebhookEndpointRepository = (*WebhookEndpointRepository)(nil)

// Create stores an endpoint for test setup
func (r *WebhookEndpointRepository) Create(_ context.Context, _ ports.DBTX, endpoint *domain.WebhookEndpoint) error {
	err := r.s.enter("WebhookEndpoints.Create")
	defer r.s.mu.Unlock()
	if err != nil {
		return err
	}
	endpoint.ID = newID(endpoint.ID)
	c := *endpoint
	r.s.endpoints[c.ID] = &c
	return nil
}

func (r *WebhookEndpointRepository) GetByID(_ context.Context, _ ports.DBTX, id string) (*domain.WebhookEndpoint, error) {
	err := r.s.enter("WebhookEndpoints.GetByID")
	defer r.s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	e, ok := r.s.endpoints[id]
	if !ok {
		return nil, domain.ErrWebhookEndpointNotFound.WithDetail("endpoint_id", id)
	}
	c := *e
	return &c, nil
}

func (r *WebhookEndpointRepository) ListActiveMerchantIDs(_ context.Context, _ ports.DBTX) ([]string, error) {
	err := r.s.enter("WebhookEndpoints.ListActiveMerchantIDs")
	defer r.s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	out := make([]string, 0)
	for _, e := range r.s.endpoints {
		if e.IsActive && !seen[e.MerchantID] {
			seen[e.MerchantID] = true
			out = append(out, e.MerchantID)
		}
	}
	sort.Strings(out)
	return out, nil
}

// SyncCursorRepository implements ports.SyncCursorRepository in memory
type SyncCursorRepository struct{ s *Store }

var _ ports.SyncCursorRepository = (*SyncCursorRepository)(nil)

func (r *SyncCursorRepository) Get(_ context.Context, _ ports.DBTX, merchantID string) (*domain.SyncCursor, error) {
	err := r.s.enter("SyncCursors.Get")
	defer r.s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	c, ok := r.s.cursors[merchantID]
	if !ok {
		return nil, nil
	}
	out := *c
	return &out, nil
}

func (r *SyncCursorRepository) Save(_ context.Context, _ ports.DBTX, cursor *domain.SyncCursor) error {
	err := r.s.enter("SyncCursors.Save")
	defer r.s.mu.Unlock()
	if err != nil {
		return err
	}
	c := *cursor
	r.s.cursors[c.MerchantID] = &c
	return nil
}
