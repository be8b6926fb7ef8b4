package ledger

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

// HTTPError maps ledger errors onto fiber errors; anything unknown becomes
// a 500 and is left for the server error handler to log.
func HTTPError(err error) error {
	switch {
	case errors.Is(err, ErrCustomerNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, ErrDuplicatePhone), errors.Is(err, ErrBalanceNotSettled):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrInvalidType), errors.Is(err, ErrNameRequired):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return err
}
