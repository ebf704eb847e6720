package api

import (
	"errors"
	"log/slog"

	"docqa/types"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandler maps errors escaping a handler onto JSON responses.
// Collaborator outages become 503 so clients can retry.
func ErrorHandler(c *fiber.Ctx, err error) error {
	if apiError, ok := err.(Error); ok {
		return c.Status(apiError.Code).JSON(apiError)
	}
	if valError, ok := err.(ValidationError); ok {
		return c.Status(valError.Status).JSON(valError)
	}

	var fiberError *fiber.Error
	if errors.As(err, &fiberError) {
		return c.Status(fiberError.Code).JSON(NewError(fiberError.Code, fiberError.Message))
	}

	apiError := fromDomain(err)
	slog.Error("request failed", "path", c.Path(), "code", apiError.Code, "error", err)
	return c.Status(apiError.Code).JSON(apiError)
}

func fromDomain(err error) Error {
	switch {
	case errors.Is(err, types.ErrEmbeddingService), errors.Is(err, types.ErrIndexService):
		return ErrServiceUnavailable()
	case errors.Is(err, types.ErrDocumentNotFound):
		return NewError(fiber.StatusNotFound, "document not found")
	case errors.Is(err, types.ErrExtractionFailed):
		return NewError(fiber.StatusUnprocessableEntity, err.Error())
	default:
		return NewError(fiber.StatusInternalServerError, err.Error())
	}
}

type Error struct {
	Code    int    `json:"code"`
	Message string `json:"error"`
}

// Error implements the error interface
func (e Error) Error() string {
	return e.Message
}

type ValidationError struct {
	Status int               `json:"status"`
	Errors map[string]string `json:"errors"`
}

func (e ValidationError) Error() string {
	return "validation failed"
}

func NewValidationError(errors map[string]string) ValidationError {
	return ValidationError{
		Status: fiber.StatusUnprocessableEntity,
		Errors: errors,
	}
}

func NewError(code int, err string) Error {
	return Error{
		Code:    code,
		Message: err,
	}
}

func ErrBadRequest() Error {
	return Error{
		Code:    fiber.StatusBadRequest,
		Message: "invalid JSON request",
	}
}

func ErrUnAuthorized(msg string) Error {
	return Error{
		Code:    fiber.StatusUnauthorized,
		Message: msg,
	}
}

func ErrServiceUnavailable() Error {
	return Error{
		Code:    fiber.StatusServiceUnavailable,
		Message: "service temporarily unavailable, please retry",
	}
}
