package serverutils

import (
	"context"
	"errors"

	"notes-rag-be/pkg/rag"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// Sentinel errors owned by other layers that map to a specific status.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrBadRequest   = errors.New("bad request")
)

var notFound = []error{
	rag.ErrNoteNotFound,
	rag.ErrSessionNotFound,
	rag.ErrSubjectNotFound,
	gorm.ErrRecordNotFound,
}

// StatusFor maps an error returned by a handler to an HTTP status.
func StatusFor(err error) int {
	var fiberErr *fiber.Error
	var validationErr *ValidationError
	switch {
	case errors.As(err, &validationErr), errors.Is(err, ErrBadRequest):
		return fiber.StatusBadRequest
	case errors.As(err, &fiberErr):
		return fiberErr.Code
	case errors.Is(err, ErrUnauthorized):
		return fiber.StatusUnauthorized
	case errors.Is(err, rag.ErrModelVersionMismatch), errors.Is(err, gorm.ErrDuplicatedKey):
		return fiber.StatusConflict
	case errors.Is(err, rag.ErrGenerationTimeout), errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusGatewayTimeout
	}
	for _, nf := range notFound {
		if errors.Is(err, nf) {
			return fiber.StatusNotFound
		}
	}
	return fiber.StatusInternalServerError
}

// ErrorHandlerMiddleware turns handler errors into the JSON envelope.
// Internal errors are reported without their details.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		code := StatusFor(err)
		message := err.Error()
		if code == fiber.StatusInternalServerError {
			message = "internal server error"
		}

		res := ErrorResponse(code, message)
		var validationErr *ValidationError
		if errors.As(err, &validationErr) {
			res.Data = validationErr.Fields
		}
		return ctx.Status(code).JSON(res)
	}
}
