// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/numbay/numbay/app/dto"
	businessflow "github.com/numbay/numbay/business_flow"
)

func getValidationErrorMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return err.Field() + " is required"
	case "min":
		return err.Field() + " must have at least " + err.Param() + " items or characters"
	case "max":
		return err.Field() + " must have at most " + err.Param() + " items or characters"
	case "len":
		return err.Field() + " must be exactly " + err.Param() + " characters"
	case "hexadecimal":
		return err.Field() + " must be a hexadecimal string"
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", err.Field(), err.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", err.Field(), err.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", err.Field(), err.Param())
	default:
		return err.Field() + " is invalid"
	}
}

// validationDetails flattens validator errors into field messages
func validationDetails(err error) []string {
	var details []string
	if errs, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range errs {
			details = append(details, getValidationErrorMessage(fe))
		}
	}
	if len(details) == 0 {
		details = append(details, "request body is invalid")
	}
	return details
}

// errorResponse writes the standard failure envelope
func errorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error:   dto.ErrorDetail{Code: errorCode, Details: details},
	})
}

// successResponse writes the standard success envelope
func successResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{Success: true, Message: message, Data: data})
}

// businessErrorResponse maps flow errors to HTTP responses. Each user-facing
// failure gets a distinct code because the caller's corrective action
// differs: top up, pick another range, shrink the batch, or just retry.
func businessErrorResponse(c fiber.Ctx, err error) error {
	switch {
	case businessflow.IsUserNotFound(err):
		return errorResponse(c, fiber.StatusNotFound, "User not found", "USER_NOT_FOUND", nil)
	case businessflow.IsUserBanned(err):
		return errorResponse(c, fiber.StatusForbidden, "User is banned", "USER_BANNED", nil)
	case businessflow.IsHoldNotFound(err):
		return errorResponse(c, fiber.StatusNotFound, "Hold not found", "HOLD_NOT_FOUND", nil)
	case businessflow.IsRangeNotFound(err):
		return errorResponse(c, fiber.StatusNotFound, "Range not found", "RANGE_NOT_FOUND", nil)
	case businessflow.IsInsufficientFunds(err):
		return errorResponse(c, fiber.StatusUnprocessableEntity, "Insufficient funds", "INSUFFICIENT_FUNDS", nil)
	case businessflow.IsInsufficientBalance(err):
		return errorResponse(c, fiber.StatusUnprocessableEntity, "Balance does not cover the range price", "INSUFFICIENT_BALANCE", nil)
	case businessflow.IsInsufficientInventory(err):
		return errorResponse(c, fiber.StatusConflict, "Not enough available numbers in the range", "INSUFFICIENT_INVENTORY", nil)
	case businessflow.IsAllocationConflict(err):
		return errorResponse(c, fiber.StatusConflict, "Allocation conflict, please retry", "ALLOCATION_CONFLICT", nil)
	case businessflow.IsInvalidBatchSize(err):
		return errorResponse(c, fiber.StatusBadRequest, "Invalid batch size", "INVALID_BATCH_SIZE", nil)
	case businessflow.IsNonPositiveAmount(err):
		return errorResponse(c, fiber.StatusBadRequest, "Amount must be positive", "NON_POSITIVE_AMOUNT", nil)
	case businessflow.IsNumberAssignedElsewhere(err):
		return errorResponse(c, fiber.StatusConflict, "A number already belongs to a different range", "NUMBER_ASSIGNED_ELSEWHERE", nil)
	case businessflow.IsRangeHasTemporaryHolds(err):
		return errorResponse(c, fiber.StatusConflict, "Range has outstanding temporary holds", "RANGE_HAS_TEMPORARY_HOLDS", nil)
	default:
		return errorResponse(c, fiber.StatusInternalServerError, "Internal server error", "INTERNAL_ERROR", nil)
	}
}
