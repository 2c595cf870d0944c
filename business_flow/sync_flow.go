package businessflow

import (
	"context"
	"log"

	"github.com/numbay/numbay/app/services"
)

// Page sizes for walking the panel's listings
const (
	syncRangesPageSize  = 100
	syncNumbersPageSize = 500
	syncMaxPages        = 50
)

// SyncResult summarizes one catalog sync run
type SyncResult struct {
	Ranges   int `json:"ranges"`
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

// SyncFlow mirrors the panel's ranges and numbers into the local catalog
type SyncFlow interface {
	SyncCatalog(ctx context.Context) (*SyncResult, error)
}

// SyncFlowImpl implements the catalog sync business flow
type SyncFlowImpl struct {
	catalog  CatalogFlow
	upstream services.UpstreamService
	logger   *log.Logger
}

// NewSyncFlow creates a new sync flow instance
func NewSyncFlow(catalog CatalogFlow, upstream services.UpstreamService, logger *log.Logger) SyncFlow {
	if logger == nil {
		logger = log.Default()
	}
	return &SyncFlowImpl{
		catalog:  catalog,
		upstream: upstream,
		logger:   logger,
	}
}

// SyncCatalog walks every range on the panel and merges its numbers into
// the local catalog. Imports are idempotent, so re-running a sync only
// picks up what is new. A range whose numbers collide with another local
// range is skipped and counted as failed; the rest of the sync continues.
func (s *SyncFlowImpl) SyncCatalog(ctx context.Context) (*SyncResult, error) {
	result := &SyncResult{}

	for page := 1; page <= syncMaxPages; page++ {
		ranges, err := s.upstream.FetchRanges(ctx, page, syncRangesPageSize)
		if err != nil {
			return nil, err
		}
		if len(ranges) == 0 {
			break
		}

		for _, rng := range ranges {
			if err := s.syncRange(ctx, rng.Name, result); err != nil {
				s.logger.Printf("sync: range %q failed: %v", rng.Name, err)
				result.Failed++
			}
		}

		if len(ranges) < syncRangesPageSize {
			break
		}
	}
	return result, nil
}

func (s *SyncFlowImpl) syncRange(ctx context.Context, rangeName string, result *SyncResult) error {
	var numbers []string
	for start := 0; start < syncMaxPages*syncNumbersPageSize; start += syncNumbersPageSize {
		window, err := s.upstream.FetchNumbers(ctx, rangeName, start, syncNumbersPageSize)
		if err != nil {
			return err
		}
		for _, n := range window {
			numbers = append(numbers, n.Number)
		}
		if len(window) < syncNumbersPageSize {
			break
		}
	}
	if len(numbers) == 0 {
		return nil
	}

	imported, err := s.catalog.ImportNumbers(ctx, rangeName, numbers)
	if err != nil {
		return err
	}

	result.Ranges++
	result.Imported += imported.Imported
	result.Skipped += imported.Skipped
	return nil
}
