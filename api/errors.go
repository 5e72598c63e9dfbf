package api

import (
	"encoding/json"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/factory/pkg/memory"
	"github.com/papercomputeco/factory/pkg/pipeline"
	"github.com/papercomputeco/factory/pkg/storage"
)

// errInvalidJSON is returned by readJSON for unparseable bodies.
var errInvalidJSON = errors.New("invalid JSON body")

// ErrorResponse is the failure envelope.
type ErrorResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errInvalidJSON),
		errors.Is(err, pipeline.ErrValidation),
		errors.Is(err, pipeline.ErrPrecondition),
		errors.Is(err, memory.ErrInvalid):
		return fiber.StatusBadRequest
	case errors.Is(err, pipeline.ErrProjectNotFound),
		errors.Is(err, memory.ErrNotFound),
		errors.Is(err, storage.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, memory.ErrPolicyBlocked):
		return fiber.StatusUnprocessableEntity
	default:
		return fiber.StatusInternalServerError
	}
}

// fail writes the failure envelope for err.
func (s *Server) fail(c *fiber.Ctx, err error) error {
	status := statusFor(err)
	if status == fiber.StatusInternalServerError {
		s.logger.Error("request failed",
			"method", c.Method(),
			"path", c.Path(),
			"error", err,
		)
	}
	return c.Status(status).JSON(ErrorResponse{Error: err.Error()})
}

// handleError renders fiber's own errors, such as unknown routes, in the
// failure envelope.
func (s *Server) handleError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	msg := err.Error()

	var fe *fiber.Error
	if errors.As(err, &fe) {
		status = fe.Code
		msg = fe.Message
	}
	return c.Status(status).JSON(ErrorResponse{Error: msg})
}

// okJSON writes the success envelope with fields merged in.
func okJSON(c *fiber.Ctx, fields fiber.Map) error {
	body := fiber.Map{"ok": true}
	for k, v := range fields {
		body[k] = v
	}
	return c.JSON(body)
}

// readJSON decodes the request body into v. An empty body leaves v as is.
func readJSON(c *fiber.Ctx, v any) error {
	body := c.Body()
	if len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		return errInvalidJSON
	}
	return nil
}
