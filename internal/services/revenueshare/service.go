package revenueshare

import (
	"github.com/kevin07696/revenue-share-service/internal/domain/ports"
	serviceports "github.com/kevin07696/revenue-share-service/internal/services/ports"
)

// Service implements serviceports.RevenueShareService
type Service struct {
	db           ports.DBPort
	timeouts     ports.QueryTimeouts
	agreements   ports.AgreementRepository
	transactions ports.TransactionRepository
	links        ports.SplitLinkRepository
	settlements  serviceports.SettlementRebuilder
	logger       ports.Logger
}

var _ serviceports.RevenueShareService = (*Service)(nil)

// NewService creates a new revenue share service
func NewService(
	db ports.DBPort,
	timeouts ports.QueryTimeouts,
	agreements ports.AgreementRepository,
	transactions ports.TransactionRepository,
	links ports.SplitLinkRepository,
	settlements serviceports.SettlementRebuilder,
	logger ports.Logger,
) *Service {
	return &Service{
		db:           db,
		timeouts:     timeouts,
		agreements:   agreements,
		transactions: transactions,
		links:        links,
		settlements:  settlements,
		logger:       logger,
	}
}
