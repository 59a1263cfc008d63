package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5"
	"github.com/rs/cors"

	cfg "github.com/sand/crypto-wallet-admin/backend/config"
	"github.com/sand/crypto-wallet-admin/backend/internal/handlers"
	"github.com/sand/crypto-wallet-admin/backend/internal/usecases"
	"github.com/sand/crypto-wallet-admin/backend/internal/usecases/repository"
	"github.com/sand/crypto-wallet-admin/backend/internal/workers"
	"github.com/sand/crypto-wallet-admin/backend/pkg/database"
	"github.com/sand/crypto-wallet-admin/backend/pkg/mailer"
)

// Server timeout constants.
const (
	readTimeoutSeconds     = 15
	writeTimeoutSeconds    = 15
	idleTimeoutSeconds     = 60
	shutdownTimeoutSeconds = 5
	healthPingTimeout      = 2 * time.Second
)

func main() {
	time.Local = time.UTC

	// Parse configuration
	config, err := cfg.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	// Setup logging
	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}
	if config.App.Debug {
		opts.Level = slog.LevelDebug
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, opts))
	logger.Info("Starting admin service",
		"environment", config.App.Environment,
		"debug", config.App.Debug,
		"server_port", config.HTTP.Port,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to Database
	pg, err := database.New(config,
		database.MaxPoolSize(config.DB.PoolMax),
		database.ConnTimeout(config.DB.ConnectTimeout),
		database.HealthCheckPeriod(config.DB.HealthCheckPeriod),
		database.Isolation(pgx.ReadCommitted),
	)
	if err != nil {
		logger.Error("postgres connection failed", slog.String("error", err.Error()))
		return
	}
	defer pg.Close()

	// Run database migrations
	migrationsPath := resolveMigrationsPath()
	logger.Info("Running database migrations", "path", migrationsPath)
	if err = database.RunMigrations(logger, config.DB.DatabaseURL, migrationsPath); err != nil {
		logger.Error("Failed to run database migrations", "error", err)
		log.Fatal(err)
	}

	// Create repositories
	usersRepository := repository.NewUsersRepository(logger, pg)
	walletsRepository := repository.NewWalletsRepository(logger, pg)
	depositsRepository := repository.NewDepositsRepository(logger, pg)
	auditRepository := repository.NewAuditRepository(logger, pg)

	// Create services
	websocketManager := handlers.NewWebSocketManager(logger)
	notifierService := usecases.NewNotifierService(logger, config.Workers.MailQueueSize)
	ledgerService := usecases.NewLedgerService(logger, walletsRepository)
	userService := usecases.NewUserService(usersRepository, walletsRepository, depositsRepository)
	depositService := usecases.NewDepositService(
		logger,
		pg.Transactor,
		usersRepository,
		depositsRepository,
		auditRepository,
		ledgerService,
		notifierService,
		websocketManager,
	)

	// Start the mail dispatcher worker
	smtpSender := mailer.NewSMTPSender(
		config.SMTP.Host,
		config.SMTP.Port,
		config.SMTP.Username,
		config.SMTP.Password,
		config.SMTP.From,
	)
	mailDispatcher := workers.NewMailDispatcher(logger, smtpSender, notifierService.Queue())
	go mailDispatcher.Start(ctx)

	// Start the activity feed broadcaster
	go websocketManager.Start(ctx)

	// Create handlers
	httpHandler := handlers.NewHTTPHandler(logger, userService, depositService, func() error {
		pingCtx, pingCancel := context.WithTimeout(context.Background(), healthPingTimeout)
		defer pingCancel()
		return pg.Pool.Ping(pingCtx)
	})
	authMiddleware := handlers.NewAuthMiddleware(logger, config.Auth.JWTSecret)
	wsHandler := handlers.NewWebSocketHandler(logger, websocketManager, authMiddleware)

	// Create router
	router := mux.NewRouter()
	httpHandler.RegisterHealthRoute(router)
	wsHandler.RegisterRoutes(router)

	apiRouter := router.PathPrefix("/api").Subrouter()
	apiRouter.Use(authMiddleware.RequireAdmin)
	httpHandler.RegisterRoutes(apiRouter)

	// Configure CORS
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})
	handler := c.Handler(router)

	// Create HTTP server with timeouts
	server := &http.Server{
		Addr:         ":" + config.HTTP.Port,
		Handler:      handler,
		ReadTimeout:  readTimeoutSeconds * time.Second,
		WriteTimeout: writeTimeoutSeconds * time.Second,
		IdleTimeout:  idleTimeoutSeconds * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Starting server", "address", server.Addr)
		if err = server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", "error", err)
			log.Fatal(err)
		}
	}()

	// Set up graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeoutSeconds*time.Second)
	defer shutdownCancel()

	if err = server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
		return
	}

	logger.Info("Server exited properly")
}

// resolveMigrationsPath looks for the migrations directory relative to the
// working directory, falling back one level up.
func resolveMigrationsPath() string {
	migrationsPath := "./migrations"
	if workDir, err := os.Getwd(); err == nil {
		if _, err := os.Stat(filepath.Join(workDir, "migrations")); !os.IsNotExist(err) {
			migrationsPath = filepath.Join(workDir, "migrations")
		} else if _, err := os.Stat(filepath.Join(workDir, "..", "migrations")); !os.IsNotExist(err) {
			migrationsPath = filepath.Join(workDir, "..", "migrations")
		}
	}
	return migrationsPath
}
