package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/sifen-dte/internal/application/dto"
	"github.com/jhoicas/sifen-dte/internal/domain"
	sifenxml "github.com/jhoicas/sifen-dte/internal/infrastructure/sifen"
)

// errorMapping relación error de dominio → respuesta HTTP. Se evalúa en orden.
var errorMapping = []struct {
	err    error
	status int
	code   string
}{
	{domain.ErrNotFound, fiber.StatusNotFound, "NOT_FOUND"},
	{domain.ErrInvalidInput, fiber.StatusBadRequest, "VALIDATION"},
	{domain.ErrInvalidReason, fiber.StatusBadRequest, "INVALID_REASON"},
	{domain.ErrInvalidIdentityFields, fiber.StatusUnprocessableEntity, "INVALID_IDENTITY"},
	{domain.ErrMissingMasterData, fiber.StatusUnprocessableEntity, "MISSING_MASTER_DATA"},
	{domain.ErrInvalidReference, fiber.StatusUnprocessableEntity, "INVALID_REFERENCE"},
	{domain.ErrCancellationWindow, fiber.StatusUnprocessableEntity, "CANCELLATION_WINDOW"},
	{domain.ErrInvalidTransition, fiber.StatusConflict, "INVALID_TRANSITION"},
	{domain.ErrConflict, fiber.StatusConflict, "CONFLICT"},
	{domain.ErrDuplicate, fiber.StatusConflict, "DUPLICATE"},
	{domain.ErrForbidden, fiber.StatusForbidden, "FORBIDDEN"},
	{domain.ErrUnauthorized, fiber.StatusUnauthorized, "UNAUTHORIZED"},
	{domain.ErrSigningKeyUnavailable, fiber.StatusServiceUnavailable, "CERTIFICATE_UNAVAILABLE"},
}

// respondError traduce el error del caso de uso a status y código.
func respondError(c *fiber.Ctx, err error) error {
	for _, m := range errorMapping {
		if errors.Is(err, m.err) {
			return c.Status(m.status).JSON(dto.ErrorResponse{Code: m.code, Message: err.Error()})
		}
	}
	var connErr *sifenxml.ConnectivityError
	var protoErr *sifenxml.ProtocolError
	var rejected *sifenxml.AuthorityRejected
	switch {
	case errors.As(err, &connErr):
		return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{Code: "SIFEN_UNAVAILABLE", Message: err.Error()})
	case errors.As(err, &protoErr):
		return c.Status(fiber.StatusBadGateway).JSON(dto.ErrorResponse{Code: "SIFEN_PROTOCOL", Message: err.Error()})
	case errors.As(err, &rejected):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{Code: "SIFEN_REJECTED", Message: err.Error()})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
}
