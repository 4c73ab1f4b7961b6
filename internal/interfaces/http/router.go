package http

import (
	nethttp "net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/jhoicas/sifen-dte/internal/application/billing"
	"github.com/jhoicas/sifen-dte/pkg/jwt"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Issue      *billing.IssueUseCase
	Cancel     *billing.CancelUseCase
	Status     *billing.StatusUseCase
	Query      *billing.QueryUseCase // nil: sin consultas en línea
	Dispatcher *billing.Dispatcher
	Metrics    nethttp.Handler // nil: sin /metrics
	JWTSecret  string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	if deps.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(deps.Metrics))
	}

	api := app.Group("/api")
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))

	// Documentos electrónicos
	docs := protected.Group("/documents", RequireRole(jwt.RoleAdmin, jwt.RoleOperator))
	docHandler := NewDocumentHandler(deps.Issue, deps.Cancel, deps.Status)
	docs.Post("/invoices", docHandler.IssueInvoice)
	docs.Post("/credit-notes", docHandler.IssueCreditNote)
	docs.Get("/:id", docHandler.Get)
	docs.Get("/:id/logs", docHandler.Logs)
	docs.Get("/:id/verify", docHandler.Verify)
	docs.Post("/:id/resubmit", docHandler.Resubmit)
	docs.Post("/:id/cancel", docHandler.Cancel)

	// Consultas en línea a SIFEN
	if deps.Query != nil {
		queryHandler := NewQueryHandler(deps.Query)
		docs.Get("/:id/consult", queryHandler.Consult)
		taxpayers := protected.Group("/taxpayers", RequireRole(jwt.RoleAdmin, jwt.RoleOperator))
		taxpayers.Get("/:ruc", queryHandler.CheckRUC)
	}

	// Despachador
	if deps.Dispatcher != nil {
		dispatcher := protected.Group("/dispatcher", RequireRole(jwt.RoleAdmin))
		dispatcher.Post("/run", NewDispatcherHandler(deps.Dispatcher).Run)
	}
}
