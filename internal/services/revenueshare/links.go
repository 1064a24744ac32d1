package revenueshare

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/kevin07696/revenue-share-service/internal/domain"
	"github.com/kevin07696/revenue-share-service/internal/domain/ports"
)

// linkChange is what replaceLinks did to a transaction's split links
type linkChange struct {
	stored    *domain.SplitLink
	removed   int64
	resettled []*domain.SettlementResult
}

// replaceLinks makes want the transaction's only split link, or removes every link when
// want is nil, in one database transaction.
//
// A payment's links are settlement rows, so when the change touches an agreement whose
// month is already settled, that month is reopened before the links change and settled
// again from the new links before the transaction commits. A settled month therefore
// never keeps adjustments or totals computed from links that are gone or were rewritten.
func (s *Service) replaceLinks(ctx context.Context, txn *domain.Transaction, want *domain.SplitLink) (*linkChange, error) {
	year, month := settlementPeriod(txn.TransactionDate)

	var change *linkChange
	err := s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		change = &linkChange{}

		current, err := s.links.ListByTransaction(ctx, tx, txn.ID)
		if err != nil {
			return fmt.Errorf("list split links: %w", err)
		}

		var reopened []string
		if txn.Kind == domain.TransactionKindPayment {
			for _, agreementID := range changedAgreements(current, want) {
				ok, err := s.settlements.ReopenMonth(ctx, tx, agreementID, year, month)
				if err != nil {
					return err
				}
				if ok {
					reopened = append(reopened, agreementID)
				}
			}
		}

		if want == nil {
			change.removed, err = s.links.DeleteByTransaction(ctx, tx, txn.ID)
			if err != nil {
				return fmt.Errorf("remove split links: %w", err)
			}
		} else {
			change.removed, err = s.links.DeleteByTransactionExceptAgreement(ctx, tx, txn.ID, want.AgreementID)
			if err != nil {
				return fmt.Errorf("remove links under other agreements: %w", err)
			}
			change.stored, err = s.links.Upsert(ctx, tx, want)
			if err != nil {
				return fmt.Errorf("upsert split link: %w", err)
			}
		}

		for _, agreementID := range reopened {
			result, err := s.settlements.ResettleMonth(ctx, tx, agreementID, year, month)
			if err != nil {
				return fmt.Errorf("resettle agreement %s %04d-%02d: %w", agreementID, year, month, err)
			}
			change.resettled = append(change.resettled, result)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, result := range change.resettled {
		s.logger.Warn("Split change rebuilt a settled month",
			ports.String("transaction_id", txn.ID),
			ports.String("agreement_id", result.AgreementID),
			ports.Int("year", year),
			ports.Int("month", month),
			ports.String("outcome", string(result.Outcome)),
		)
	}
	return change, nil
}

// changedAgreements lists the agreements whose links the replacement removes or rewrites.
// An identical existing link is left alone.
func changedAgreements(current []*domain.SplitLink, want *domain.SplitLink) []string {
	var ids []string
	kept := false
	for _, link := range current {
		if want != nil && link.AgreementID == want.AgreementID {
			kept = sameShares(link, want)
			continue
		}
		ids = append(ids, link.AgreementID)
	}
	if want != nil && !kept {
		ids = append(ids, want.AgreementID)
	}
	return ids
}

func sameShares(a, b *domain.SplitLink) bool {
	return a.PartnerShareMinor == b.PartnerShareMinor &&
		a.MerchantShareMinor == b.MerchantShareMinor &&
		a.CalculationMethod == b.CalculationMethod
}

func settlementPeriod(date time.Time) (int, int) {
	utc := date.UTC()
	return utc.Year(), int(utc.Month())
}
