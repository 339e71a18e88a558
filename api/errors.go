package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/xraph/vesting"
	"github.com/xraph/vesting/command"
)

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var statusMap = []struct {
	err    error
	status int
	code   string
}{
	{vesting.ErrUnauthorized, fiber.StatusForbidden, "unauthorized"},
	{vesting.ErrNotFound, fiber.StatusNotFound, "not_found"},
	{vesting.ErrNotInitialized, fiber.StatusConflict, "not_initialized"},
	{vesting.ErrAlreadyInitialized, fiber.StatusConflict, "already_initialized"},
	{vesting.ErrNeedFunds, fiber.StatusBadRequest, "need_funds"},
	{vesting.ErrNotSupportToken, fiber.StatusBadRequest, "not_support_token"},
	{vesting.ErrInvalidAddress, fiber.StatusBadRequest, "invalid_address"},
	{vesting.ErrInvalidCurve, fiber.StatusBadRequest, "invalid_curve"},
	{command.ErrUnknownCommand, fiber.StatusBadRequest, "unknown_command"},
	{vesting.ErrInvalidInput, fiber.StatusBadRequest, "invalid_input"},
	{vesting.ErrOverflow, fiber.StatusUnprocessableEntity, "overflow"},
	{vesting.ErrNoPendingTokens, fiber.StatusUnprocessableEntity, "no_pending_tokens"},
	{vesting.ErrNotEnoughBalance, fiber.StatusUnprocessableEntity, "not_enough_balance"},
	{vesting.ErrReconciliationRequired, fiber.StatusInternalServerError, "reconciliation_required"},
	{vesting.ErrTransactionFailed, fiber.StatusServiceUnavailable, "transaction_failed"},
	{vesting.ErrStoreClosed, fiber.StatusServiceUnavailable, "store_closed"},
}

// statusFor maps err onto an HTTP status and a stable error code.
func statusFor(err error) (int, string) {
	for _, m := range statusMap {
		if errors.Is(err, m.err) {
			return m.status, m.code
		}
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code, "http"
	}
	return fiber.StatusInternalServerError, "internal"
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	status, code := statusFor(err)
	if status >= fiber.StatusInternalServerError {
		s.logger.Error("vesting api request failed",
			"method", c.Method(),
			"path", c.Path(),
			"error", err,
		)
	}
	return c.Status(status).JSON(errorBody{Error: err.Error(), Code: code})
}
