package httpapi

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/huddlehq/huddle/internal/auth"
	"github.com/huddlehq/huddle/internal/directory"
	"github.com/huddlehq/huddle/internal/messaging"
)

// renderError maps domain sentinels to HTTP status codes. Anything
// unrecognized is logged and hidden behind a generic 500.
func (s *Server) renderError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, directory.ErrNotFound),
		errors.Is(err, messaging.ErrThreadNotFound):
		code = fiber.StatusNotFound
	case errors.Is(err, messaging.ErrNotParticipant):
		code = fiber.StatusForbidden
	case errors.Is(err, messaging.ErrSelfThread),
		errors.Is(err, messaging.ErrEmptyBody),
		errors.Is(err, auth.ErrBadEmail),
		errors.Is(err, auth.ErrWeakPassword),
		errors.Is(err, auth.ErrMissingDisplayName):
		code = fiber.StatusBadRequest
	case errors.Is(err, auth.ErrEmailTaken):
		code = fiber.StatusConflict
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken):
		code = fiber.StatusUnauthorized
	}

	if code == fiber.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("path", c.Path()),
			zap.Error(err))
		return c.Status(code).JSON(fiber.Map{"error": "internal error"})
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}
