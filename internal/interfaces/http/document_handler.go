package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/sifen-dte/internal/application/billing"
	"github.com/jhoicas/sifen-dte/internal/application/dto"
)

// DocumentHandler emisión, consulta, reenvío y cancelación de documentos electrónicos (protegido).
type DocumentHandler struct {
	issue  *billing.IssueUseCase
	cancel *billing.CancelUseCase
	status *billing.StatusUseCase
}

// NewDocumentHandler construye el handler.
func NewDocumentHandler(issue *billing.IssueUseCase, cancel *billing.CancelUseCase, status *billing.StatusUseCase) *DocumentHandler {
	return &DocumentHandler{issue: issue, cancel: cancel, status: status}
}

// IssueInvoice godoc
// @Summary      Emitir factura electrónica
// @Description  Calcula totales y CDC y deja la factura Pending; el despachador la transmite.
// @Tags         documents
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.IssueInvoiceRequest  true  "Factura"
// @Success      201   {object}  dto.DocumentResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/documents/invoices [post]
func (h *DocumentHandler) IssueInvoice(c *fiber.Ctx) error {
	var in dto.IssueInvoiceRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	doc, err := h.issue.IssueInvoice(c.Context(), &in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.ToDocumentResponse(doc))
}

// IssueCreditNote godoc
// @Summary      Emitir nota de crédito
// @Tags         documents
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.IssueCreditNoteRequest  true  "Nota de crédito"
// @Success      201   {object}  dto.DocumentResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/documents/credit-notes [post]
func (h *DocumentHandler) IssueCreditNote(c *fiber.Ctx) error {
	var in dto.IssueCreditNoteRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	doc, err := h.issue.IssueCreditNote(c.Context(), &in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.ToDocumentResponse(doc))
}

// Get godoc
// @Summary      Estado del documento
// @Tags         documents
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del documento"
// @Success      200  {object}  dto.DocumentStatusResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/documents/{id} [get]
func (h *DocumentHandler) Get(c *fiber.Ctx) error {
	out, err := h.status.Get(c.Context(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// Logs godoc
// @Summary      Bitácora de transmisión
// @Tags         documents
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del documento"
// @Success      200  {array}   dto.TransmissionLogResponse
// @Router       /api/documents/{id}/logs [get]
func (h *DocumentHandler) Logs(c *fiber.Ctx) error {
	out, err := h.status.Logs(c.Context(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// Verify godoc
// @Summary      Verificar la firma almacenada
// @Tags         documents
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del documento"
// @Success      200  {object}  dto.VerifyResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/documents/{id}/verify [get]
func (h *DocumentHandler) Verify(c *fiber.Ctx) error {
	out, err := h.status.Verify(c.Context(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// Resubmit godoc
// @Summary      Reenviar documento rechazado
// @Tags         documents
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del documento"
// @Success      200  {object}  dto.DocumentResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/documents/{id}/resubmit [post]
func (h *DocumentHandler) Resubmit(c *fiber.Ctx) error {
	doc, err := h.issue.Resubmit(c.Context(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.ToDocumentResponse(doc))
}

// Cancel godoc
// @Summary      Cancelar documento aprobado
// @Description  Registra el evento de cancelación; sin conexión queda pendiente y lo envía el despachador.
// @Tags         documents
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string             true  "ID del documento"
// @Param        body  body  dto.CancelRequest  true  "Motivo"
// @Success      202   {object}  dto.CancellationResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/documents/{id}/cancel [post]
func (h *DocumentHandler) Cancel(c *fiber.Ctx) error {
	var in dto.CancelRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	ev, err := h.cancel.Cancel(c.Context(), c.Params("id"), in.Reason)
	if err != nil && ev == nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(dto.ToCancellationResponse(ev))
}
