package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/sifen-dte/internal/application/billing"
)

// QueryHandler consultas en línea a SIFEN (protegido).
type QueryHandler struct {
	query *billing.QueryUseCase
}

// NewQueryHandler construye el handler.
func NewQueryHandler(query *billing.QueryUseCase) *QueryHandler {
	return &QueryHandler{query: query}
}

// Consult godoc
// @Summary      Consultar el DE en SIFEN por CDC
// @Description  Si SIFEN ya aprobó un documento Submitted, lo pasa a Accepted.
// @Tags         documents
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del documento"
// @Success      200  {object}  dto.ConsultResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Failure      503  {object}  dto.ErrorResponse
// @Router       /api/documents/{id}/consult [get]
func (h *QueryHandler) Consult(c *fiber.Ctx) error {
	out, err := h.query.Consult(c.Context(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// CheckRUC godoc
// @Summary      Consultar contribuyente por RUC
// @Tags         taxpayers
// @Security     Bearer
// @Produce      json
// @Param        ruc  path  string  true  "RUC con o sin DV (80069563-1)"
// @Success      200  {object}  dto.RUCResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      503  {object}  dto.ErrorResponse
// @Router       /api/taxpayers/{ruc} [get]
func (h *QueryHandler) CheckRUC(c *fiber.Ctx) error {
	out, err := h.query.CheckRUC(c.Context(), c.Params("ruc"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}
