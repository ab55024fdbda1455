// Package apperr holds the error categories surfaced at the request boundary.
package apperr

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/mongo"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrForbidden   = errors.New("forbidden")
	ErrAuthFailure = errors.New("authentication failed")
	ErrInvalid     = errors.New("invalid input")
)

type wrapped struct {
	kind error
	msg  string
}

func (e *wrapped) Error() string { return e.msg }
func (e *wrapped) Unwrap() error { return e.kind }

func newf(kind error, format string, args ...any) error {
	return &wrapped{kind: kind, msg: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) error    { return newf(ErrNotFound, format, args...) }
func Conflict(format string, args ...any) error    { return newf(ErrConflict, format, args...) }
func Forbidden(format string, args ...any) error   { return newf(ErrForbidden, format, args...) }
func AuthFailure(format string, args ...any) error { return newf(ErrAuthFailure, format, args...) }
func Invalid(format string, args ...any) error     { return newf(ErrInvalid, format, args...) }

// FromMongo turns mongo.ErrNoDocuments into a NotFound naming what was looked up.
func FromMongo(err error, what string) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return NotFound("%s not found", what)
	}
	return err
}

// Status maps an error to its HTTP status. Anything uncategorised is a 500.
func Status(err error) int {
	switch {
	case err == nil:
		return fiber.StatusOK
	case errors.Is(err, ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, ErrConflict), errors.Is(err, ErrInvalid):
		return fiber.StatusBadRequest
	case errors.Is(err, ErrForbidden):
		return fiber.StatusForbidden
	case errors.Is(err, ErrAuthFailure):
		return fiber.StatusUnauthorized
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return fiber.StatusInternalServerError
}

// Message is the client-visible text; unexpected errors stay server-side.
func Message(err error) string {
	if Status(err) == fiber.StatusInternalServerError {
		return "Internal Server Error"
	}
	return err.Error()
}

const unexpectedLocal = "apperr.unexpected"

// Respond writes the {"error": ...} body used by every controller.
// A 500 keeps the error on the request for the request logger.
func Respond(c *fiber.Ctx, err error) error {
	status := Status(err)
	if status == fiber.StatusInternalServerError {
		c.Locals(unexpectedLocal, err)
	}
	return c.Status(status).JSON(fiber.Map{
		"error": Message(err),
	})
}

// Unexpected returns the error behind a 500 written by Respond, if any.
func Unexpected(c *fiber.Ctx) error {
	err, _ := c.Locals(unexpectedLocal).(error)
	return err
}
