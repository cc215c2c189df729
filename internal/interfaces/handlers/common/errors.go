package common

import (
	"errors"

	"estate-backend/internal/domain"
	"estate-backend/internal/middleware"
	"estate-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// WriteError maps a service error onto the standard error response.
// Unrecognised errors are logged and reported as a generic 500.
func WriteError(c *fiber.Ctx, err error) error {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		return response.BadRequest(c, ve.Message)
	case errors.Is(err, domain.ErrInvalidTransition):
		return response.Error(c, "Invalid status transition", fiber.StatusBadRequest, fiber.Map{"reason": err.Error()})
	case errors.Is(err, domain.ErrValidation):
		return response.BadRequest(c, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		return response.Unauthorized(c, "Unauthorized")
	case errors.Is(err, domain.ErrNotFound):
		return response.NotFound(c, "Not found")
	case errors.Is(err, domain.ErrConflict):
		return response.Error(c, "Already exists", fiber.StatusConflict, nil)
	}
	log.Error().Err(err).
		Str("trace_id", middleware.GetTraceID(c)).
		Str("method", c.Method()).
		Str("path", c.Path()).
		Msg("request failed")
	return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
}

// ParseID parses a uuid path or query value. Malformed ids are reported as
// not found, since no record can carry them.
func ParseID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, domain.ErrNotFound
	}
	return id, nil
}
