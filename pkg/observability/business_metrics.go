package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Split metrics
	splitsRecordedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "revenue_share_splits_total",
		Help: "Split recorder outcomes per transaction",
	}, []string{
		"method",  // percentage, minimum_guarantee_deferred, hybrid_deferred, none
		"outcome", // recorded, no_agreement, removed, failed
	})

	splitPartnerShareMinor = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "revenue_share_partner_share_minor_total",
		Help: "Partner share recorded on split links, in minor units",
	}, []string{
		"currency",
		"kind", // PAYMENT, REFUND, CHARGEBACK
	})

	recalculationRowsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "revenue_share_recalculation_rows_total",
		Help: "Transactions visited by bulk recalculation",
	}, []string{
		"result", // processed, skipped, failed
	})

	// Settlement metrics
	settlementsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "revenue_share_settlements_total",
		Help: "Monthly settlement runs per agreement",
	}, []string{
		"outcome", // NO_ADJUSTMENT, ADJUSTED, ALREADY_APPLIED, UNDISTRIBUTABLE, FAILED
	})

	settlementAdjustmentMinor = promauto.NewCounter(prometheus.CounterOpts{
		Name: "revenue_share_settlement_adjustment_minor_total",
		Help: "Minimum guarantee top-ups applied by settlement, in minor units",
	})

	settlementDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name: "revenue_share_settlement_duration_seconds",
		Help: "Time to settle one agreement-month",
		// Buckets: 10ms to 30s (single agreement up to a busy merchant month)
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{
		"outcome",
	})

	// Ingestion metrics
	ingestionEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "revenue_share_ingested_events_total",
		Help: "Gateway events processed by ingestion",
	}, []string{
		"source", // webhook, sync
		"type",   // transaction, payout
		"result", // created, updated, duplicate, failed
	})

	syncRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "revenue_share_sync_runs_total",
		Help: "Per-merchant polling sync runs",
	}, []string{
		"status", // success, failed
	})

	syncPagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "revenue_share_sync_pages_total",
		Help: "Gateway event pages fetched by polling sync",
	})

	webhookRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "revenue_share_webhook_requests_total",
		Help: "Inbound gateway webhook deliveries",
	}, []string{
		"result", // accepted, unknown_endpoint, invalid_signature, invalid_payload, failed
	})
)

// RecordSplit records a split recorder outcome
func RecordSplit(method, outcome, kind, currency string, partnerShareMinor int64) {
	splitsRecordedTotal.WithLabelValues(method, outcome).Inc()
	if outcome == "recorded" && partnerShareMinor > 0 {
		splitPartnerShareMinor.WithLabelValues(currency, kind).Add(float64(partnerShareMinor))
	}
}

// RecordRecalculationRow records one transaction visited by bulk recalculation
func RecordRecalculationRow(result string) {
	recalculationRowsTotal.WithLabelValues(result).Inc()
}

// RecordSettlement records one agreement-month settlement
func RecordSettlement(outcome string, adjustmentMinor int64, durationSeconds float64) {
	settlementsTotal.WithLabelValues(outcome).Inc()
	settlementDuration.WithLabelValues(outcome).Observe(durationSeconds)
	if outcome == "ADJUSTED" && adjustmentMinor > 0 {
		settlementAdjustmentMinor.Add(float64(adjustmentMinor))
	}
}

// RecordIngestedEvent records one gateway event processed by ingestion
func RecordIngestedEvent(source, eventType, result string) {
	ingestionEventsTotal.WithLabelValues(source, eventType, result).Inc()
}

// RecordSyncRun records the end of a merchant's polling run
func RecordSyncRun(status string, pages int) {
	syncRunsTotal.WithLabelValues(status).Inc()
	syncPagesTotal.Add(float64(pages))
}

// RecordWebhookRequest records the handling result of a webhook delivery
func RecordWebhookRequest(result string) {
	webhookRequestsTotal.WithLabelValues(result).Inc()
}
