package handlers

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/numbay/numbay/app/dto"
	businessflow "github.com/numbay/numbay/business_flow"
	"github.com/numbay/numbay/models"
	"github.com/numbay/numbay/utils"
)

type UserHandlerInterface interface {
	Register(c fiber.Ctx) error
	Get(c fiber.Ctx) error
	Balance(c fiber.Ctx) error
	Transactions(c fiber.Ctx) error
}

// UserHandler serves user registration and ledger read endpoints
type UserHandler struct {
	userFlow   businessflow.UserFlow
	ledgerFlow businessflow.LedgerFlow
	validator  *validator.Validate
}

func NewUserHandler(userFlow businessflow.UserFlow, ledgerFlow businessflow.LedgerFlow) UserHandlerInterface {
	return &UserHandler{
		userFlow:   userFlow,
		ledgerFlow: ledgerFlow,
		validator:  validator.New(),
	}
}

// Register creates the user on first contact and refreshes the username
func (h *UserHandler) Register(c fiber.Ctx) error {
	var req dto.RegisterUserRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if err := h.validator.Struct(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationDetails(err))
	}

	user, err := h.userFlow.GetOrCreate(requestContext(c), req.TelegramID, req.Username)
	if err != nil {
		log.Println("User registration failed", err)
		return businessErrorResponse(c, err)
	}
	return successResponse(c, fiber.StatusOK, "User registered", toUserResponse(user))
}

// Get looks up a user by Telegram ID
func (h *UserHandler) Get(c fiber.Ctx) error {
	telegramID, err := telegramIDParam(c)
	if err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid telegram id", "INVALID_TELEGRAM_ID", nil)
	}
	user, err := h.userFlow.ByTelegramID(requestContext(c), telegramID)
	if err != nil {
		return businessErrorResponse(c, err)
	}
	return successResponse(c, fiber.StatusOK, "User retrieved", toUserResponse(user))
}

// Balance returns the user's current balance
func (h *UserHandler) Balance(c fiber.Ctx) error {
	telegramID, err := telegramIDParam(c)
	if err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid telegram id", "INVALID_TELEGRAM_ID", nil)
	}
	ctx := requestContext(c)
	user, err := h.userFlow.ByTelegramID(ctx, telegramID)
	if err != nil {
		return businessErrorResponse(c, err)
	}
	balance, err := h.ledgerFlow.Balance(ctx, user.ID)
	if err != nil {
		log.Println("Balance lookup failed", err)
		return businessErrorResponse(c, err)
	}
	return successResponse(c, fiber.StatusOK, "Balance retrieved", dto.BalanceResponse{
		TelegramID:   telegramID,
		BalanceCents: balance,
	})
}

// Transactions returns the user's ledger history, newest first
func (h *UserHandler) Transactions(c fiber.Ctx) error {
	telegramID, err := telegramIDParam(c)
	if err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid telegram id", "INVALID_TELEGRAM_ID", nil)
	}
	limit, offset := pagination(c)

	ctx := requestContext(c)
	user, err := h.userFlow.ByTelegramID(ctx, telegramID)
	if err != nil {
		return businessErrorResponse(c, err)
	}
	txs, err := h.ledgerFlow.History(ctx, user.ID, limit, offset)
	if err != nil {
		log.Println("Transaction history failed", err)
		return businessErrorResponse(c, err)
	}
	out := make([]dto.TransactionResponse, 0, len(txs))
	for _, tx := range txs {
		out = append(out, toTransactionResponse(tx))
	}
	return successResponse(c, fiber.StatusOK, "Transactions retrieved", out)
}

func toUserResponse(user *models.User) dto.UserResponse {
	return dto.UserResponse{
		ID:               user.ID,
		UUID:             user.UUID.String(),
		TelegramID:       user.TelegramID,
		Username:         user.Username,
		BalanceCents:     user.BalanceCents,
		TotalSpentCents:  user.TotalSpentCents,
		TotalSMSReceived: user.TotalSMSReceived,
		IsAdmin:          user.IsAdmin,
		IsBanned:         user.IsBanned,
		CreatedAt:        user.CreatedAt,
	}
}

func toTransactionResponse(tx *models.Transaction) dto.TransactionResponse {
	return dto.TransactionResponse{
		UUID:              tx.UUID.String(),
		Type:              string(tx.Type),
		AmountCents:       tx.AmountCents,
		Currency:          tx.Currency,
		BalanceAfterCents: tx.BalanceAfterCents,
		Description:       tx.Description,
		CreatedAt:         tx.CreatedAt,
	}
}

// telegramIDParam parses the :telegram_id route parameter
func telegramIDParam(c fiber.Ctx) (int64, error) {
	return strconv.ParseInt(c.Params("telegram_id"), 10, 64)
}

// pagination reads limit/offset query parameters with sane caps
func pagination(c fiber.Ctx) (limit, offset int) {
	limit = 50
	if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 && v <= 200 {
		limit = v
	}
	if v, err := strconv.Atoi(c.Query("offset")); err == nil && v >= 0 {
		offset = v
	}
	return limit, offset
}

// requestContext bounds each request-scoped flow call
func requestContext(c fiber.Ctx) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	ctx = context.WithValue(ctx, utils.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, utils.EndpointKey, c.Path())
	ctx = context.WithValue(ctx, utils.CancelFuncKey, cancel)
	return ctx
}
