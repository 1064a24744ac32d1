package ingestion

import (
	"time"

	adapterports "github.com/kevin07696/revenue-share-service/internal/adapters/ports"
	"github.com/kevin07696/revenue-share-service/internal/domain/ports"
	serviceports "github.com/kevin07696/revenue-share-service/internal/services/ports"
	"github.com/kevin07696/revenue-share-service/pkg/timeutil"
)

// Config bounds a polling run
type Config struct {
	PageLimit      int // Events requested per page
	MaxPagesPerRun int // A merchant resumes from its saved cursor on the next run
	Concurrency    int // Merchants synced at the same time
}

// DefaultConfig returns the polling limits used in production
func DefaultConfig() Config {
	return Config{
		PageLimit:      100,
		MaxPagesPerRun: 50,
		Concurrency:    4,
	}
}

// Service implements serviceports.IngestionService
type Service struct {
	timeouts     ports.QueryTimeouts
	transactions ports.TransactionRepository
	payouts      ports.PayoutRepository
	endpoints    ports.WebhookEndpointRepository
	cursors      ports.SyncCursorRepository
	source       adapterports.GatewayEventSource
	revenueShare serviceports.RevenueShareService
	logger       ports.Logger
	now          func() time.Time
	config       Config
}

var _ serviceports.IngestionService = (*Service)(nil)

// NewService creates a new ingestion service
func NewService(
	timeouts ports.QueryTimeouts,
	transactions ports.TransactionRepository,
	payouts ports.PayoutRepository,
	endpoints ports.WebhookEndpointRepository,
	cursors ports.SyncCursorRepository,
	source adapterports.GatewayEventSource,
	revenueShare serviceports.RevenueShareService,
	config Config,
	logger ports.Logger,
) *Service {
	defaults := DefaultConfig()
	if config.PageLimit <= 0 {
		config.PageLimit = defaults.PageLimit
	}
	if config.MaxPagesPerRun <= 0 {
		config.MaxPagesPerRun = defaults.MaxPagesPerRun
	}
	if config.Concurrency <= 0 {
		config.Concurrency = defaults.Concurrency
	}

	return &Service{
		timeouts:     timeouts,
		transactions: transactions,
		payouts:      payouts,
		endpoints:    endpoints,
		cursors:      cursors,
		source:       source,
		revenueShare: revenueShare,
		logger:       logger,
		now:          timeutil.Now,
		config:       config,
	}
}
