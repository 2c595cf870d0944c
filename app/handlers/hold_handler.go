package handlers

import (
	"errors"
	"log"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/numbay/numbay/app/dto"
	"github.com/numbay/numbay/app/services"
	businessflow "github.com/numbay/numbay/business_flow"
	"github.com/numbay/numbay/models"
)

type HoldHandlerInterface interface {
	Allocate(c fiber.Ctx) error
	ListUserHolds(c fiber.Ctx) error
	FirstPoll(c fiber.Ctx) error
	ConfirmSMS(c fiber.Ctx) error
	CheckMessages(c fiber.Ctx) error
	ReleaseUserHolds(c fiber.Ctx) error
}

// HoldHandler serves the hold lifecycle: allocate, poll, bill, release
type HoldHandler struct {
	userFlow   businessflow.UserFlow
	allocation businessflow.AllocationFlow
	lifecycle  businessflow.LifecycleFlow
	polling    businessflow.PollingFlow
	sweeper    businessflow.SweeperFlow
	validator  *validator.Validate
}

func NewHoldHandler(
	userFlow businessflow.UserFlow,
	allocation businessflow.AllocationFlow,
	lifecycle businessflow.LifecycleFlow,
	polling businessflow.PollingFlow,
	sweeper businessflow.SweeperFlow,
) HoldHandlerInterface {
	return &HoldHandler{
		userFlow:   userFlow,
		allocation: allocation,
		lifecycle:  lifecycle,
		polling:    polling,
		sweeper:    sweeper,
		validator:  validator.New(),
	}
}

// Allocate reserves a fresh batch of numbers, replacing the user's previous
// temporary holds
func (h *HoldHandler) Allocate(c fiber.Ctx) error {
	var req dto.AllocateHoldsRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if err := h.validator.Struct(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationDetails(err))
	}

	ctx := requestContext(c)
	user, err := h.userFlow.ByTelegramID(ctx, req.TelegramID)
	if err != nil {
		return businessErrorResponse(c, err)
	}
	holds, err := h.allocation.Allocate(ctx, user.ID, req.RangeID, req.BatchSize)
	if err != nil {
		log.Println("Allocation failed", err)
		return businessErrorResponse(c, err)
	}
	return successResponse(c, fiber.StatusCreated, "Numbers allocated", dto.AllocateHoldsResponse{
		RangeID: req.RangeID,
		Holds:   toHoldResponses(holds),
	})
}

// ListUserHolds returns the user's current holds, temporary and permanent
func (h *HoldHandler) ListUserHolds(c fiber.Ctx) error {
	telegramID, err := telegramIDParam(c)
	if err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid telegram id", "INVALID_TELEGRAM_ID", nil)
	}
	ctx := requestContext(c)
	user, err := h.userFlow.ByTelegramID(ctx, telegramID)
	if err != nil {
		return businessErrorResponse(c, err)
	}
	holds, err := h.allocation.UserHolds(ctx, user.ID)
	if err != nil {
		return businessErrorResponse(c, err)
	}
	return successResponse(c, fiber.StatusOK, "Holds retrieved", toHoldResponses(holds))
}

// FirstPoll stamps the hold's expiry clock on the user's first message check
func (h *HoldHandler) FirstPoll(c fiber.Ctx) error {
	holdID, err := holdIDParam(c)
	if err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid hold id", "INVALID_HOLD_ID", nil)
	}
	if err := h.lifecycle.FirstPoll(requestContext(c), holdID); err != nil {
		return businessErrorResponse(c, err)
	}
	return successResponse(c, fiber.StatusOK, "Poll recorded", nil)
}

// ConfirmSMS bills the hold for a received message and makes it permanent.
// Safe to call repeatedly: only the first confirmation charges.
func (h *HoldHandler) ConfirmSMS(c fiber.Ctx) error {
	holdID, err := holdIDParam(c)
	if err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid hold id", "INVALID_HOLD_ID", nil)
	}
	result, err := h.lifecycle.ConfirmSMSReceived(requestContext(c), holdID)
	if err != nil {
		log.Println("SMS billing failed", err)
		return businessErrorResponse(c, err)
	}
	return successResponse(c, fiber.StatusOK, "SMS confirmed", dto.BillingResultResponse{
		HoldID:          result.HoldID,
		Number:          result.Number,
		AlreadyBilled:   result.AlreadyBilled,
		PriceCents:      result.PriceCents,
		NewBalanceCents: result.NewBalanceCents,
	})
}

// CheckMessages polls the upstream panel for SMS on the held number,
// recording the poll and billing when a message has arrived
func (h *HoldHandler) CheckMessages(c fiber.Ctx) error {
	if h.polling == nil {
		return errorResponse(c, fiber.StatusServiceUnavailable, "SMS panel integration is disabled", "UPSTREAM_DISABLED", nil)
	}
	holdID, err := holdIDParam(c)
	if err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid hold id", "INVALID_HOLD_ID", nil)
	}
	result, err := h.polling.CheckMessages(requestContext(c), holdID)
	if err != nil {
		if errors.Is(err, services.ErrUpstreamUnavailable) || errors.Is(err, services.ErrUpstreamAuth) {
			log.Println("Upstream poll failed", err)
			return errorResponse(c, fiber.StatusBadGateway, "SMS panel is unavailable, try again later", "UPSTREAM_UNAVAILABLE", nil)
		}
		log.Println("Message check failed", err)
		return businessErrorResponse(c, err)
	}
	return successResponse(c, fiber.StatusOK, "Messages checked", result)
}

// ReleaseUserHolds drops the user's temporary holds back into the pool
func (h *HoldHandler) ReleaseUserHolds(c fiber.Ctx) error {
	telegramID, err := telegramIDParam(c)
	if err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid telegram id", "INVALID_TELEGRAM_ID", nil)
	}
	ctx := requestContext(c)
	user, err := h.userFlow.ByTelegramID(ctx, telegramID)
	if err != nil {
		return businessErrorResponse(c, err)
	}
	released, err := h.sweeper.ReleaseUserHolds(ctx, user.ID)
	if err != nil {
		return businessErrorResponse(c, err)
	}
	return successResponse(c, fiber.StatusOK, "Holds released", dto.SweepResponse{Released: released})
}

func toHoldResponses(holds []*models.Hold) []dto.HoldResponse {
	out := make([]dto.HoldResponse, 0, len(holds))
	for _, hold := range holds {
		out = append(out, dto.HoldResponse{
			ID:            hold.ID,
			UUID:          hold.UUID.String(),
			RangeID:       hold.RangeID,
			Number:        hold.Number,
			HoldStartTime: hold.HoldStartTime,
			FirstPollTime: hold.FirstPollTime,
			IsPermanent:   hold.IsPermanent,
		})
	}
	return out
}

// holdIDParam parses the :hold_id route parameter
func holdIDParam(c fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("hold_id"), 10, 64)
	return uint(id), err
}
