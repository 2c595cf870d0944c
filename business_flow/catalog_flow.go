package businessflow

import (
	"context"
	"strings"

	"github.com/numbay/numbay/models"
	"github.com/numbay/numbay/repository"
	"github.com/numbay/numbay/utils"
	"gorm.io/gorm"
)

// ImportResult summarizes a bulk number import
type ImportResult struct {
	RangeID  string `json:"range_id"`
	Name     string `json:"name"`
	Imported int    `json:"imported"`
	Skipped  int    `json:"skipped"`
}

// CatalogFlow manages ranges and their number inventory
type CatalogFlow interface {
	// ImportNumbers merges numbers into the named range. Re-importing the
	// same range name is idempotent; a number already owned by a different
	// range rejects the whole import.
	ImportNumbers(ctx context.Context, rangeName string, numbers []string) (*ImportResult, error)
	// DeleteRange removes a range and cascades to its numbers. Refused
	// while temporary holds reference the range.
	DeleteRange(ctx context.Context, rangeID string) error
	ListRanges(ctx context.Context, limit, offset int) ([]*models.SMSRange, error)
	ListInventory(ctx context.Context) ([]*repository.RangeInventory, error)
}

// CatalogFlowImpl implements the catalog business flow
type CatalogFlowImpl struct {
	rangeRepo     repository.SMSRangeRepository
	phoneRepo     repository.PhoneNumberRepository
	holdRepo      repository.HoldRepository
	priceRuleRepo repository.PriceRuleRepository
	db            *gorm.DB
}

// NewCatalogFlow creates a new catalog flow instance
func NewCatalogFlow(
	rangeRepo repository.SMSRangeRepository,
	phoneRepo repository.PhoneNumberRepository,
	holdRepo repository.HoldRepository,
	priceRuleRepo repository.PriceRuleRepository,
	db *gorm.DB,
) CatalogFlow {
	return &CatalogFlowImpl{
		rangeRepo:     rangeRepo,
		phoneRepo:     phoneRepo,
		holdRepo:      holdRepo,
		priceRuleRepo: priceRuleRepo,
		db:            db,
	}
}

// ImportNumbers bulk-loads numbers into a range
func (c *CatalogFlowImpl) ImportNumbers(ctx context.Context, rangeName string, numbers []string) (*ImportResult, error) {
	rangeName = strings.TrimSpace(rangeName)
	if rangeName == "" {
		return nil, ErrRangeNameRequired
	}

	cleaned := make([]string, 0, len(numbers))
	seen := make(map[string]struct{}, len(numbers))
	for _, n := range numbers {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		cleaned = append(cleaned, n)
	}
	if len(cleaned) == 0 {
		return nil, ErrNoNumbersProvided
	}

	rangeID := models.RangeIDFromName(rangeName)
	result := &ImportResult{RangeID: rangeID, Name: rangeName}

	err := repository.WithTransaction(ctx, c.db, func(txCtx context.Context) error {
		if err := c.rangeRepo.Upsert(txCtx, &models.SMSRange{ID: rangeID, Name: rangeName}); err != nil {
			return err
		}

		existing, err := c.phoneRepo.ByNumbers(txCtx, cleaned)
		if err != nil {
			return err
		}
		owned := make(map[string]string, len(existing))
		for _, row := range existing {
			owned[row.Number] = row.RangeID
		}

		now := utils.UTCNow()
		var toInsert []*models.PhoneNumber
		for _, n := range cleaned {
			if ownerRange, ok := owned[n]; ok {
				if ownerRange != rangeID {
					return ErrNumberAssignedElsewhere
				}
				result.Skipped++
				continue
			}
			toInsert = append(toInsert, &models.PhoneNumber{
				RangeID:   rangeID,
				Number:    n,
				CreatedAt: now,
			})
		}

		if err := c.phoneRepo.SaveBatch(txCtx, toInsert); err != nil {
			// A concurrent import won the race for one of these numbers
			// after the ownership read above.
			if repository.IsUniqueViolation(err) {
				return ErrNumberAssignedElsewhere
			}
			return err
		}
		result.Imported = len(toInsert)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// DeleteRange removes a range, its numbers and its price rule. Temporary
// holds block the deletion: releasing them first is an explicit admin
// decision, not a side effect. Permanent holds cascade away with their
// numbers; the billing trail stays in the transaction ledger.
func (c *CatalogFlowImpl) DeleteRange(ctx context.Context, rangeID string) error {
	return repository.WithTransaction(ctx, c.db, func(txCtx context.Context) error {
		rng, err := c.rangeRepo.ByID(txCtx, rangeID)
		if err != nil {
			return err
		}
		if rng == nil {
			return ErrRangeNotFound
		}

		tempHolds, err := c.holdRepo.CountTemporaryByRange(txCtx, rangeID)
		if err != nil {
			return err
		}
		if tempHolds > 0 {
			return ErrRangeHasTemporaryHolds
		}

		if err := c.priceRuleRepo.DeleteByRangeID(txCtx, rangeID); err != nil {
			return err
		}
		return c.rangeRepo.Delete(txCtx, rangeID)
	})
}

// ListRanges returns ranges ordered by name
func (c *CatalogFlowImpl) ListRanges(ctx context.Context, limit, offset int) ([]*models.SMSRange, error) {
	return c.rangeRepo.List(ctx, limit, offset)
}

// ListInventory returns per-range stock summaries
func (c *CatalogFlowImpl) ListInventory(ctx context.Context) ([]*repository.RangeInventory, error) {
	return c.rangeRepo.ListInventory(ctx)
}
