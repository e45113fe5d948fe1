package api

import (
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"stock-lot-tracker/internal/api/handlers"
	custommiddleware "stock-lot-tracker/internal/api/middleware"
	"stock-lot-tracker/internal/broker/kite"
	"stock-lot-tracker/internal/config"
	"stock-lot-tracker/internal/repository"
	"stock-lot-tracker/internal/service"
)

// Deps carries the constructed services the router wires handlers onto.
type Deps struct {
	DB               *sql.DB
	LedgerService    *service.LedgerService
	PortfolioService *service.PortfolioService
	BatchService     *service.BatchService
	MarketService    *service.MarketService
	InstrumentRepo   *repository.InstrumentRepository
	Session          *kite.SessionManager
	Broker           kite.Client
}

// NewRouter creates and configures the HTTP router
func NewRouter(deps Deps, cfg *config.Config) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(custommiddleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS middleware
	corsMiddleware := custommiddleware.NewCORS(cfg.CORS.AllowedOrigins)
	r.Use(corsMiddleware.Handler)

	// API routes
	r.Route("/api", func(r chi.Router) {
		// System namespace
		r.Route("/system", func(r chi.Router) {
			systemHandler := handlers.NewSystemHandler(deps.DB)
			r.Get("/health", systemHandler.Health)
		})

		r.Route("/transactions", func(r chi.Router) {
			transactionHandler := handlers.NewTransactionHandler(deps.LedgerService)
			r.Get("/", transactionHandler.Ledger)
			r.Post("/", transactionHandler.Create)
			r.Post("/bulk-sell", transactionHandler.BulkSell)
			r.Route("/{uuid}", func(r chi.Router) {
				r.Use(custommiddleware.ValidateUUIDMiddleware)
				r.Get("/", transactionHandler.Get)
				r.Put("/", transactionHandler.Update)
				r.Delete("/", transactionHandler.Delete)
			})
		})

		r.Route("/strategy", func(r chi.Router) {
			strategyHandler := handlers.NewStrategyHandler(deps.LedgerService, deps.PortfolioService, deps.MarketService)
			r.Get("/open-inventory/{ticker}", strategyHandler.OpenInventory)
			r.Get("/portfolio-overview", strategyHandler.Overview)
			r.Get("/status/{ticker}", strategyHandler.Status)
			r.Get("/recommendations/{ticker}", strategyHandler.Evaluate)
		})

		r.Route("/batches", func(r chi.Router) {
			batchHandler := handlers.NewBatchHandler(deps.BatchService)
			r.Get("/", batchHandler.List)
			r.Get("/unbatched", batchHandler.Unbatched)
			r.Post("/create", batchHandler.Create)
			r.Route("/{uuid}", func(r chi.Router) {
				r.Use(custommiddleware.ValidateUUIDMiddleware)
				r.Get("/", batchHandler.Get)
				r.Put("/", batchHandler.Update)
			})
		})

		r.Route("/stocks", func(r chi.Router) {
			instrumentHandler := handlers.NewInstrumentHandler(deps.InstrumentRepo)
			r.Get("/", instrumentHandler.List)
		})

		r.Route("/market", func(r chi.Router) {
			marketHandler := handlers.NewMarketHandler(deps.MarketService)
			r.Get("/quotes", marketHandler.Quotes)
			r.Get("/status", marketHandler.Status)
			r.Get("/active-tickers", marketHandler.ActiveTickers)
			r.Get("/todays-orders", marketHandler.TodaysOrders)
		})

		r.Route("/auth/zerodha", func(r chi.Router) {
			authHandler := handlers.NewAuthHandler(deps.Session, deps.Broker)
			r.Get("/login", authHandler.Login)
			r.Get("/callback", authHandler.Callback)
		})
	})

	return r
}
