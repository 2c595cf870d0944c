package handlers

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/numbay/numbay/app/dto"
	"github.com/numbay/numbay/app/services"
	businessflow "github.com/numbay/numbay/business_flow"
)

type CatalogHandlerInterface interface {
	ListRanges(c fiber.Ctx) error
	ImportNumbers(c fiber.Ctx) error
	DeleteRange(c fiber.Ctx) error
	SetPrice(c fiber.Ctx) error
	Sync(c fiber.Ctx) error
}

// CatalogHandler serves range inventory listing and the admin catalog ops
type CatalogHandler struct {
	catalog   businessflow.CatalogFlow
	pricing   businessflow.PricingFlow
	admin     businessflow.AdminFlow
	sync      businessflow.SyncFlow
	validator *validator.Validate
}

func NewCatalogHandler(
	catalog businessflow.CatalogFlow,
	pricing businessflow.PricingFlow,
	admin businessflow.AdminFlow,
	sync businessflow.SyncFlow,
) CatalogHandlerInterface {
	return &CatalogHandler{
		catalog:   catalog,
		pricing:   pricing,
		admin:     admin,
		sync:      sync,
		validator: validator.New(),
	}
}

// ListRanges returns every range with stock counts and the resolved price
func (h *CatalogHandler) ListRanges(c fiber.Ctx) error {
	ctx := requestContext(c)
	inventory, err := h.catalog.ListInventory(ctx)
	if err != nil {
		log.Println("Inventory listing failed", err)
		return businessErrorResponse(c, err)
	}

	out := make([]dto.RangeInventoryResponse, 0, len(inventory))
	for _, row := range inventory {
		price, err := h.pricing.ResolvePrice(ctx, row.RangeID)
		if err != nil {
			return businessErrorResponse(c, err)
		}
		out = append(out, dto.RangeInventoryResponse{
			RangeID:      row.RangeID,
			Name:         row.Name,
			TotalNumbers: row.TotalNumbers,
			Available:    row.Available,
			PriceCents:   price,
		})
	}
	return successResponse(c, fiber.StatusOK, "Ranges retrieved", out)
}

// ImportNumbers merges a batch of numbers into a named range. Re-importing
// the same file is a no-op for already-known numbers.
func (h *CatalogHandler) ImportNumbers(c fiber.Ctx) error {
	var req dto.ImportNumbersRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if err := h.validator.Struct(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationDetails(err))
	}

	result, err := h.catalog.ImportNumbers(requestContext(c), req.RangeName, req.Numbers)
	if err != nil {
		log.Println("Number import failed", err)
		return businessErrorResponse(c, err)
	}
	return successResponse(c, fiber.StatusOK, "Numbers imported", dto.ImportNumbersResponse{
		RangeID:  result.RangeID,
		Name:     result.Name,
		Imported: result.Imported,
		Skipped:  result.Skipped,
	})
}

// DeleteRange removes a range and its numbers. Refused while users still
// hold temporary reservations in it.
func (h *CatalogHandler) DeleteRange(c fiber.Ctx) error {
	rangeID := c.Params("range_id")
	if rangeID == "" {
		return errorResponse(c, fiber.StatusBadRequest, "Range id is required", "INVALID_RANGE_ID", nil)
	}
	if err := h.catalog.DeleteRange(requestContext(c), rangeID); err != nil {
		log.Println("Range deletion failed", err)
		return businessErrorResponse(c, err)
	}
	return successResponse(c, fiber.StatusOK, "Range deleted", nil)
}

// Sync mirrors the upstream panel's ranges and numbers into the catalog.
// Syncs can take a while on large panels; the client timeout is generous.
func (h *CatalogHandler) Sync(c fiber.Ctx) error {
	if h.sync == nil {
		return errorResponse(c, fiber.StatusServiceUnavailable, "SMS panel integration is disabled", "UPSTREAM_DISABLED", nil)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	result, err := h.sync.SyncCatalog(ctx)
	if err != nil {
		if errors.Is(err, services.ErrUpstreamUnavailable) || errors.Is(err, services.ErrUpstreamAuth) {
			log.Println("Catalog sync failed upstream", err)
			return errorResponse(c, fiber.StatusBadGateway, "SMS panel is unavailable, try again later", "UPSTREAM_UNAVAILABLE", nil)
		}
		log.Println("Catalog sync failed", err)
		return businessErrorResponse(c, err)
	}
	return successResponse(c, fiber.StatusOK, "Catalog synced", result)
}

// SetPrice sets the per-SMS price of a range
func (h *CatalogHandler) SetPrice(c fiber.Ctx) error {
	rangeID := c.Params("range_id")
	if rangeID == "" {
		return errorResponse(c, fiber.StatusBadRequest, "Range id is required", "INVALID_RANGE_ID", nil)
	}
	var req dto.SetPriceRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if err := h.validator.Struct(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationDetails(err))
	}

	if err := h.admin.SetPrice(requestContext(c), rangeID, req.PriceCents); err != nil {
		log.Println("Price update failed", err)
		return businessErrorResponse(c, err)
	}
	return successResponse(c, fiber.StatusOK, "Price updated", nil)
}
