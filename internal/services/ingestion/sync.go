package ingestion

import (
	"context"
	"fmt"
	"time"

	adapterports "github.com/kevin07696/revenue-share-service/internal/adapters/ports"
	"github.com/kevin07696/revenue-share-service/internal/domain"
	"github.com/kevin07696/revenue-share-service/internal/domain/ports"
	serviceports "github.com/kevin07696/revenue-share-service/internal/services/ports"
	"github.com/kevin07696/revenue-share-service/pkg/observability"
	"golang.org/x/sync/errgroup"
)

// SyncMerchant polls the merchant's event feed page by page from the saved cursor.
// The cursor is saved after every ingested page, so a failed run resumes where it stopped.
// A run reads at most MaxPagesPerRun pages.
func (s *Service) SyncMerchant(ctx context.Context, merchantID string) (*serviceports.SyncResult, error) {
	if merchantID == "" {
		return nil, domain.ErrValidationMissingField.WithDetail("field", "merchant_id")
	}

	startTime := time.Now()
	result := &serviceports.SyncResult{
		MerchantID: merchantID,
		Ingest:     &serviceports.IngestResult{},
	}

	err := s.syncMerchant(ctx, result)
	status := "succeeded"
	if err != nil {
		status = "failed"
	}
	observability.RecordSyncRun(status, result.Pages)

	if err != nil {
		s.logger.Error("Merchant sync failed",
			ports.String("merchant_id", merchantID),
			ports.Int("pages", result.Pages),
			ports.Err(err),
		)
		return result, err
	}

	s.logger.Info("Merchant sync finished",
		ports.String("merchant_id", merchantID),
		ports.Int("pages", result.Pages),
		ports.Int("received", result.Ingest.Received),
		ports.Int("created", result.Ingest.Created),
		ports.Int("failed", result.Ingest.Failed),
		ports.Duration("elapsed", time.Since(startTime)),
	)
	return result, nil
}

func (s *Service) syncMerchant(ctx context.Context, result *serviceports.SyncResult) error {
	cursor, err := s.loadCursor(ctx, result.MerchantID)
	if err != nil {
		return err
	}
	result.Cursor = cursor

	for result.Pages < s.config.MaxPagesPerRun {
		if err := ctx.Err(); err != nil {
			return err
		}

		page, err := s.source.ListEvents(ctx, &adapterports.EventListRequest{
			MerchantID: result.MerchantID,
			Cursor:     result.Cursor,
			Limit:      s.config.PageLimit,
		})
		if err != nil {
			return fmt.Errorf("list gateway events: %w", err)
		}

		ingested, err := s.IngestEvents(ctx, result.MerchantID, serviceports.SourceSync, page.Events)
		result.Ingest.Add(ingested)
		if err != nil {
			return err
		}

		result.Pages++
		if page.NextCursor != "" {
			result.Cursor = page.NextCursor
		}
		if err := s.saveCursor(ctx, result.MerchantID, result.Cursor); err != nil {
			return err
		}

		if !page.HasMore {
			return nil
		}
	}

	s.logger.Info("Sync page limit reached, resuming next run",
		ports.String("merchant_id", result.MerchantID),
		ports.Int("max_pages", s.config.MaxPagesPerRun),
	)
	return nil
}

func (s *Service) loadCursor(ctx context.Context, merchantID string) (string, error) {
	ctx, cancel := s.timeouts.SimpleQueryContext(ctx)
	defer cancel()

	cursor, err := s.cursors.Get(ctx, nil, merchantID)
	if err != nil {
		return "", fmt.Errorf("load sync cursor: %w", err)
	}
	if cursor == nil {
		return "", nil
	}
	return cursor.Cursor, nil
}

func (s *Service) saveCursor(ctx context.Context, merchantID, cursor string) error {
	ctx, cancel := s.timeouts.SimpleQueryContext(ctx)
	defer cancel()

	err := s.cursors.Save(ctx, nil, &domain.SyncCursor{
		LastSyncedAt: s.now(),
		MerchantID:   merchantID,
		Cursor:       cursor,
	})
	if err != nil {
		return fmt.Errorf("save sync cursor: %w", err)
	}
	return nil
}

// SyncAll syncs every merchant with an active webhook endpoint, Concurrency at a time.
// Merchants share nothing; one merchant's failure is collected and the others continue.
func (s *Service) SyncAll(ctx context.Context) (*serviceports.SyncAllResult, error) {
	listCtx, cancel := s.timeouts.SimpleQueryContext(ctx)
	merchantIDs, err := s.endpoints.ListActiveMerchantIDs(listCtx, nil)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("list merchants to sync: %w", err)
	}

	results := make([]*serviceports.SyncResult, len(merchantIDs))
	errs := make([]error, len(merchantIDs))

	var g errgroup.Group
	g.SetLimit(s.config.Concurrency)
	for i, merchantID := range merchantIDs {
		g.Go(func() error {
			results[i], errs[i] = s.SyncMerchant(ctx, merchantID)
			return nil
		})
	}
	_ = g.Wait()

	all := &serviceports.SyncAllResult{Merchants: len(merchantIDs)}
	for i, merchantID := range merchantIDs {
		if results[i] != nil {
			all.Results = append(all.Results, results[i])
		}
		if errs[i] != nil {
			all.Failed++
			all.Errors = append(all.Errors, serviceports.ItemError{ID: merchantID, Error: errs[i].Error()})
			continue
		}
		all.Succeeded++
	}

	s.logger.Info("Sync run finished",
		ports.Int("merchants", all.Merchants),
		ports.Int("succeeded", all.Succeeded),
		ports.Int("failed", all.Failed),
	)
	return all, ctx.Err()
}
