package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/sifen-dte/internal/application/billing"
	"github.com/jhoicas/sifen-dte/internal/application/dto"
)

// DispatcherHandler disparo manual del ciclo de envío (solo admin).
type DispatcherHandler struct {
	dispatcher *billing.Dispatcher
}

// NewDispatcherHandler construye el handler.
func NewDispatcherHandler(d *billing.Dispatcher) *DispatcherHandler {
	return &DispatcherHandler{dispatcher: d}
}

// Run godoc
// @Summary      Ejecutar un ciclo del despachador
// @Tags         dispatcher
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.DispatcherRunResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/dispatcher/run [post]
func (h *DispatcherHandler) Run(c *fiber.Ctx) error {
	rep, err := h.dispatcher.RunOnce(c.Context())
	if errors.Is(err, billing.ErrCycleInProgress) {
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "CYCLE_IN_PROGRESS", Message: "ya hay un ciclo en curso"})
	}
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.DispatcherRunResponse{
		Connected: rep.Connected, Result: rep.Result,
		Submitted: rep.Submitted, Accepted: rep.Accepted, Rejected: rep.Rejected,
		Failed: rep.Failed, Events: rep.Events, Polled: rep.Polled,
	})
}
