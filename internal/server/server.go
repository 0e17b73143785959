package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AndrewDonelson/mern-web3-todo-sub001/cmd/app"
	"github.com/AndrewDonelson/mern-web3-todo-sub001/internal/api/v1/handler"
	"github.com/AndrewDonelson/mern-web3-todo-sub001/internal/api/v1/middleware"
	"github.com/AndrewDonelson/mern-web3-todo-sub001/internal/common"

	ledgerdomain "github.com/AndrewDonelson/mern-web3-todo-sub001/internal/features/ledger/domain"
	ledgerservice "github.com/AndrewDonelson/mern-web3-todo-sub001/internal/features/ledger/service"
	monitorservice "github.com/AndrewDonelson/mern-web3-todo-sub001/internal/features/monitor/service"
	recoveryservice "github.com/AndrewDonelson/mern-web3-todo-sub001/internal/features/recovery/service"
	storedomain "github.com/AndrewDonelson/mern-web3-todo-sub001/internal/features/store/domain"
	storeservice "github.com/AndrewDonelson/mern-web3-todo-sub001/internal/features/store/service"
)

// Run starts the application
func Run() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Signal handling for graceful shutdown
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-signals
		log.Printf("Received signal: %v, starting shutdown", sig)
		cancel()
	}()

	// 1. Load configuration
	cfg, err := app.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	common.SetupDefaultLogger(cfg.App.LogLevel)

	// 2. Register metrics
	metrics := monitorservice.NewMetricsCollector()
	metrics.Register()

	// 3. Build the store connection manager
	storeDriver, err := app.NewStoreDriver(&cfg.Store)
	if err != nil {
		log.Fatalf("Failed to create store driver: %v", err)
	}

	manager := storeservice.NewManager(
		storeDriver,
		storedomain.RetryPolicy{
			MaxAttempts: cfg.Retry.MaxAttempts,
			BaseDelay:   cfg.Retry.BaseDelay,
		},
		storeservice.WithWaitTimeout(cfg.Retry.WaitTimeout),
		storeservice.WithMetrics(metrics),
	)

	// 4. Build the ledger client with its throttler
	throttler := newThrottler(cfg, metrics)

	ledgerClient, err := app.NewLedgerClient(&cfg.Ledger, ledgerservice.WithThrottler(throttler))
	if err != nil {
		log.Fatalf("Failed to create ledger client: %v", err)
	}

	// 5. Build the health monitor and recovery coordinator
	monitor := monitorservice.NewService(
		manager,
		ledgerClient,
		monitorservice.WithProbeTimeout(cfg.Monitor.ProbeTimeout),
		monitorservice.WithMetrics(metrics),
	)

	recovery := recoveryservice.NewCoordinator(
		monitor,
		manager,
		ledgerClient,
		recoveryservice.WithConfirmAttempts(cfg.Recovery.ConfirmAttempts),
		recoveryservice.WithConfirmDelay(cfg.Recovery.ConfirmDelay),
		recoveryservice.WithMetrics(metrics),
	)

	// 6. Initial connections. Failures are not fatal: the monitor reports
	// them and recovery can re-establish once the dependency comes back.
	connectInitial(ctx, manager, ledgerClient)

	// 7. Start the periodic health monitor
	if err := monitor.Start(ctx, cfg.Monitor.ProbeInterval); err != nil {
		log.Fatalf("Failed to start health monitor: %v", err)
	}

	// 8. Serve the admin API
	router := newRouter(monitor, recovery, throttler)
	runHTTPServer(ctx, cfg, router)

	// Teardown
	monitor.Stop()
	ledgerClient.Close()

	disconnectCtx, disconnectCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer disconnectCancel()
	if err := manager.Disconnect(disconnectCtx); err != nil {
		log.Printf("Error disconnecting store: %v", err)
	}

	log.Println("Application shutdown complete")
}

// newThrottler builds the ledger throttler with per-type overrides
func newThrottler(cfg *app.Config, metrics *monitorservice.MetricsCollector) *ledgerservice.Throttler {
	options := []ledgerservice.ThrottlerOption{
		ledgerservice.WithThrottleMetrics(metrics),
	}
	for operationType, override := range cfg.Throttle.Overrides {
		options = append(options, ledgerservice.WithCeilingOverride(operationType, ledgerdomain.Ceiling{
			MaxOpsPerMinute: override.MaxOpsPerMinute,
			MaxBatchSize:    override.MaxBatchSize,
		}))
	}

	return ledgerservice.NewThrottler(ledgerdomain.Ceiling{
		MaxOpsPerMinute: cfg.Throttle.MaxOpsPerMinute,
		MaxBatchSize:    cfg.Throttle.MaxBatchSize,
	}, options...)
}

// connectInitial attempts the first store and ledger connections
func connectInitial(ctx context.Context, manager *storeservice.Manager, ledgerClient *ledgerservice.Client) {
	initCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if _, err := manager.Connect(initCtx); err != nil {
		log.Printf("Initial store connect failed (recovery will retry): %v", err)
	} else {
		log.Println("Store connected")
	}

	if err := ledgerClient.Initialize(initCtx); err != nil {
		log.Printf("Initial ledger client setup failed (recovery will retry): %v", err)
	} else {
		log.Println("Ledger client initialized")
	}
}

// newRouter assembles the gin engine with middleware and routes
func newRouter(monitor *monitorservice.Service, recovery *recoveryservice.Coordinator, throttler *ledgerservice.Throttler) *gin.Engine {
	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.Logging())
	router.Use(gin.Recovery())

	handler.NewHealthHandler(monitor, recovery, throttler).SetupRoutes(router)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}

// runHTTPServer serves until the context is canceled, then shuts down
// gracefully within the configured timeout
func runHTTPServer(ctx context.Context, cfg *app.Config, router *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.Server.Port,
		Handler: router,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Printf("HTTP server listening on %s", cfg.Server.Port)
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("HTTP server error: %v", err)
		}
		return
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}
}
