package handlers

import (
	"context"
	"log"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/numbay/numbay/app/dto"
	businessflow "github.com/numbay/numbay/business_flow"
	"github.com/numbay/numbay/utils"
)

type AdminHandlerInterface interface {
	Credit(c fiber.Ctx) error
	Deduct(c fiber.Ctx) error
	Promote(c fiber.Ctx) error
	Demote(c fiber.Ctx) error
	Ban(c fiber.Ctx) error
	Unban(c fiber.Ctx) error
	ListUsers(c fiber.Ctx) error
	Stats(c fiber.Ctx) error
	SweepNow(c fiber.Ctx) error
	ReleaseAll(c fiber.Ctx) error
}

// AdminHandler serves the operator endpoints: balance adjustments, user
// management, stats and manual sweeps
type AdminHandler struct {
	admin     businessflow.AdminFlow
	sweeper   businessflow.SweeperFlow
	validator *validator.Validate
}

func NewAdminHandler(admin businessflow.AdminFlow, sweeper businessflow.SweeperFlow) AdminHandlerInterface {
	return &AdminHandler{
		admin:     admin,
		sweeper:   sweeper,
		validator: validator.New(),
	}
}

// Credit tops up a user's balance
func (h *AdminHandler) Credit(c fiber.Ctx) error {
	req, ok := h.parseAdjustRequest(c)
	if !ok {
		return nil
	}
	balance, err := h.admin.Credit(requestContext(c), req.TelegramID, req.AmountCents, req.Description)
	if err != nil {
		log.Println("Admin credit failed", err)
		return businessErrorResponse(c, err)
	}
	return successResponse(c, fiber.StatusOK, "Balance credited", dto.BalanceResponse{
		TelegramID:   req.TelegramID,
		BalanceCents: balance,
	})
}

// Deduct removes balance from a user. Refused when it would overdraw.
func (h *AdminHandler) Deduct(c fiber.Ctx) error {
	req, ok := h.parseAdjustRequest(c)
	if !ok {
		return nil
	}
	balance, err := h.admin.Deduct(requestContext(c), req.TelegramID, req.AmountCents, req.Description)
	if err != nil {
		log.Println("Admin deduction failed", err)
		return businessErrorResponse(c, err)
	}
	return successResponse(c, fiber.StatusOK, "Balance deducted", dto.BalanceResponse{
		TelegramID:   req.TelegramID,
		BalanceCents: balance,
	})
}

// parseAdjustRequest binds and validates a balance adjustment body. On
// failure the error response is already written.
func (h *AdminHandler) parseAdjustRequest(c fiber.Ctx) (dto.AdjustBalanceRequest, bool) {
	var req dto.AdjustBalanceRequest
	if err := c.Bind().JSON(&req); err != nil {
		_ = errorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
		return req, false
	}
	if err := h.validator.Struct(&req); err != nil {
		_ = errorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationDetails(err))
		return req, false
	}
	return req, true
}

// Promote grants the admin flag to a user
func (h *AdminHandler) Promote(c fiber.Ctx) error {
	return h.userFlagOp(c, h.admin.PromoteAdmin, "User promoted to admin")
}

// Demote revokes the admin flag
func (h *AdminHandler) Demote(c fiber.Ctx) error {
	return h.userFlagOp(c, h.admin.DemoteAdmin, "User demoted")
}

// Ban blocks a user from the storefront
func (h *AdminHandler) Ban(c fiber.Ctx) error {
	return h.userFlagOp(c, h.admin.BanUser, "User banned")
}

// Unban lifts a ban
func (h *AdminHandler) Unban(c fiber.Ctx) error {
	return h.userFlagOp(c, h.admin.UnbanUser, "User unbanned")
}

func (h *AdminHandler) userFlagOp(c fiber.Ctx, op func(ctx context.Context, telegramID int64) error, message string) error {
	telegramID, err := telegramIDParam(c)
	if err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid telegram id", "INVALID_TELEGRAM_ID", nil)
	}
	if err := op(requestContext(c), telegramID); err != nil {
		return businessErrorResponse(c, err)
	}
	return successResponse(c, fiber.StatusOK, message, nil)
}

// ListUsers pages through registered users
func (h *AdminHandler) ListUsers(c fiber.Ctx) error {
	limit, offset := pagination(c)
	users, err := h.admin.ListUsers(requestContext(c), limit, offset)
	if err != nil {
		return businessErrorResponse(c, err)
	}
	out := make([]dto.UserResponse, 0, len(users))
	for _, user := range users {
		out = append(out, toUserResponse(user))
	}
	return successResponse(c, fiber.StatusOK, "Users retrieved", out)
}

// Stats returns the system summary for the admin dashboard
func (h *AdminHandler) Stats(c fiber.Ctx) error {
	stats, err := h.admin.Stats(requestContext(c))
	if err != nil {
		log.Println("Stats computation failed", err)
		return businessErrorResponse(c, err)
	}
	return successResponse(c, fiber.StatusOK, "Stats retrieved", stats)
}

// SweepNow runs an immediate expiry sweep with the standard grace period
func (h *AdminHandler) SweepNow(c fiber.Ctx) error {
	released, err := h.sweeper.SweepExpired(requestContext(c), utils.HoldGracePeriod)
	if err != nil {
		log.Println("Manual sweep failed", err)
		return businessErrorResponse(c, err)
	}
	return successResponse(c, fiber.StatusOK, "Sweep completed", dto.SweepResponse{Released: released})
}

// ReleaseAll drops every temporary hold in the system
func (h *AdminHandler) ReleaseAll(c fiber.Ctx) error {
	released, err := h.sweeper.ReleaseAllTemporary(requestContext(c))
	if err != nil {
		log.Println("Bulk release failed", err)
		return businessErrorResponse(c, err)
	}
	return successResponse(c, fiber.StatusOK, "Temporary holds released", dto.SweepResponse{Released: released})
}
