package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fernet/fernet-go"
	"github.com/robfig/cron/v3"

	"stock-lot-tracker/internal/api"
	"stock-lot-tracker/internal/broker/kite"
	"stock-lot-tracker/internal/config"
	"stock-lot-tracker/internal/database"
	"stock-lot-tracker/internal/repository"
	"stock-lot-tracker/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Open database connection
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	log.Printf("Connected to database: %s", cfg.Database.Path)

	ctx := context.Background()
	if err := repository.EnsurePortfolio(ctx, db, cfg.Portfolio.ID, cfg.Portfolio.Name); err != nil {
		log.Fatalf("Failed to ensure portfolio: %v", err)
	}

	encryptionKey := loadEncryptionKey(cfg.Broker.EncryptionKey)

	// Create repositories
	transactionRepo := repository.NewTransactionRepository(db)
	instrumentRepo := repository.NewInstrumentRepository(db)
	batchRepo := repository.NewBatchRepository(db)
	credentialRepo := repository.NewCredentialRepository(db, encryptionKey)

	// Broker client and session
	broker := kite.NewClient(cfg.Broker.APIKey, cfg.Broker.APISecret)
	session := kite.NewSessionManager(broker, credentialRepo)
	if err := session.Restore(ctx); err != nil {
		log.Printf("Could not restore broker session: %v", err)
	}
	if session.Connected() {
		log.Println("Restored Zerodha session from stored token")
	}

	// Create services
	ledgerService := service.NewLedgerService(
		transactionRepo,
		instrumentRepo,
		cfg.Portfolio.ID,
	)
	portfolioService := service.NewPortfolioService(
		transactionRepo,
		instrumentRepo,
		batchRepo,
	)
	batchService := service.NewBatchService(
		batchRepo,
	)
	marketService := service.NewMarketService(
		broker,
		session,
		transactionRepo,
		cfg.Broker.Exchange,
	)

	// Periodic quote refresh for instruments with open lots
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.Broker.RefreshSpec, func() {
		refreshCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := marketService.RefreshActive(refreshCtx); err != nil {
			log.Printf("Quote refresh failed: %v", err)
		}
	}); err != nil {
		log.Fatalf("Invalid quote refresh schedule %q: %v", cfg.Broker.RefreshSpec, err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	// Create router
	router := api.NewRouter(api.Deps{
		DB:               db,
		LedgerService:    ledgerService,
		PortfolioService: portfolioService,
		BatchService:     batchService,
		MarketService:    marketService,
		InstrumentRepo:   instrumentRepo,
		Session:          session,
		Broker:           broker,
	}, cfg)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Starting server on %s", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

// loadEncryptionKey decodes the configured fernet key. Without one a fresh
// key is generated, which still encrypts the token slot but will not
// decrypt tokens stored by a previous run.
func loadEncryptionKey(encoded string) *fernet.Key {
	if encoded != "" {
		key, err := fernet.DecodeKey(encoded)
		if err != nil {
			log.Fatalf("Invalid TOKEN_ENCRYPTION_KEY: %v", err)
		}
		return key
	}

	var key fernet.Key
	if err := key.Generate(); err != nil {
		log.Fatalf("Failed to generate encryption key: %v", err)
	}
	log.Println("TOKEN_ENCRYPTION_KEY not set; using an ephemeral key, stored broker tokens will not survive a restart")
	return &key
}
