package router

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/GregMSThompson/receipts-backend/internal/handlers"
	"github.com/GregMSThompson/receipts-backend/internal/middleware"
)

func NewRouter(deps *handlers.Deps) chi.Router {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(middleware.NewLoggerMiddleware(deps.Log).LoggerMiddleware)

	auth := middleware.NewMiddleware(deps.Firebase)

	ch := handlers.NewConnectionHandlers(deps)
	ph := handlers.NewPublishHandlers(deps)
	rh := handlers.NewRuleHandlers(deps)
	rch := handlers.NewReceiptHandlers(deps)

	r.Group(func(r chi.Router) {
		r.Use(auth.FirebaseAuth)
		r.Mount("/connection", ch.ConnectionRoutes())
		r.Mount("/publish", ph.PublishRoutes())
		r.Mount("/rules", rh.RuleRoutes())
		r.Mount("/receipts", rch.ReceiptRoutes())
	})

	return r
}
