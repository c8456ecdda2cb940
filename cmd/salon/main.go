package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/boddenberg/salon-pos-go/internal/config"
	"github.com/boddenberg/salon-pos-go/internal/domain"
	"github.com/boddenberg/salon-pos-go/internal/handler"
	"github.com/boddenberg/salon-pos-go/internal/infra/cache"
	"github.com/boddenberg/salon-pos-go/internal/infra/notify"
	"github.com/boddenberg/salon-pos-go/internal/infra/observability"
	"github.com/boddenberg/salon-pos-go/internal/infra/queuedb"
	"github.com/boddenberg/salon-pos-go/internal/infra/resilience"
	"github.com/boddenberg/salon-pos-go/internal/infra/rowlog"
	"github.com/boddenberg/salon-pos-go/internal/infra/sheets"
	"github.com/boddenberg/salon-pos-go/internal/infra/supabase"
	"github.com/boddenberg/salon-pos-go/internal/ledger"
	"github.com/boddenberg/salon-pos-go/internal/port"
	"github.com/boddenberg/salon-pos-go/internal/service"

	"go.uber.org/zap"
)

// Sheet tabs used by the sheets backend.
const (
	tabTransactions = "Transactions"
	tabWorkers      = "Workers"
	tabServices     = "Services"
	tabUsers        = "Users"
)

func main() {
	devToken := flag.String("dev-token", "", "print an access token for the given role (Admin or Worker) and exit")
	flag.Parse()

	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	if *devToken != "" {
		tok, err := service.NewTokenService(cfg.JWTSecret).SignAccessToken("dev@salon.local", *devToken, 12*time.Hour)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Println(tok)
		return
	}

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFile)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("backend", cfg.Backend),
		zap.String("timezone", cfg.Timezone),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
		zap.String("queue_db", cfg.QueueDBPath),
		zap.Bool("auth_required", cfg.AuthRequired),
	)
	if !cfg.AuthRequired {
		logger.Warn("authentication disabled: every request runs as a local administrator")
	}

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "salon-pos")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Ledger ---
	cal, err := ledger.NewCalendar(cfg.Timezone)
	if err != nil {
		logger.Fatal("invalid timezone", zap.String("timezone", cfg.Timezone), zap.Error(err))
	}
	engine := ledger.NewEngine(cal, cfg.RecentLimit)

	// --- Resilience ---
	monitor := resilience.NewConnectivityMonitor()
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}
	cb := resilience.NewCircuitBreaker("backend", monitor.BreakerStateChange)

	// --- Backend ---
	var txStore port.TransactionStore
	var catalogStore port.CatalogStore

	switch cfg.Backend {
	case config.BackendSupabase:
		if cfg.SupabaseURL == "" {
			logger.Fatal("SUPABASE_URL is required for the supabase backend")
		}
		logger.Info("using Supabase as data backend", zap.String("supabase_url", cfg.SupabaseURL))
		client := supabase.NewClient(
			&http.Client{Timeout: cfg.HTTPTimeout},
			cfg.SupabaseURL,
			cfg.SupabaseAnonKey,
			cfg.SupabaseServiceKey,
			cb,
			resilienceCfg,
			logger,
		)
		txStore = supabase.NewTransactionStore(client, cal)
		catalogStore = supabase.NewCatalogStore(client)

	case config.BackendSheets:
		if cfg.SheetsSpreadsheetID == "" {
			logger.Fatal("SHEETS_SPREADSHEET_ID is required for the sheets backend")
		}
		logger.Info("using Google Sheets as data backend", zap.String("spreadsheet_id", cfg.SheetsSpreadsheetID))
		svc, err := sheets.NewService(context.Background(), cfg.SheetsCredentialFile)
		if err != nil {
			logger.Fatal("failed to create sheets client", zap.Error(err))
		}
		bulkhead := resilience.NewBulkhead(cfg.MaxConcurrency)
		tab := func(name string) *sheets.Log {
			return sheets.NewLog(svc, cfg.SheetsSpreadsheetID, name, cb, resilienceCfg, bulkhead, logger)
		}
		txStore = rowlog.NewTransactionStore(tab(tabTransactions), cal, config.BackendSheets, logger)
		catalogStore = rowlog.NewCatalogStore(tab(tabWorkers), tab(tabServices), tab(tabUsers), logger)

	case config.BackendMemory:
		logger.Warn("using the in-memory backend: data is lost on restart")
		txStore = rowlog.NewTransactionStore(rowlog.NewMemoryLog(), cal, config.BackendMemory, logger)
		catalogStore = rowlog.NewCatalogStore(rowlog.NewMemoryLog(), rowlog.NewMemoryLog(), rowlog.NewMemoryLog(), logger)

	default:
		logger.Fatal("unknown backend", zap.String("backend", cfg.Backend))
	}

	// --- Offline queue ---
	queue, err := queuedb.Open(cfg.QueueDBPath)
	if err != nil {
		logger.Fatal("failed to open offline queue", zap.String("path", cfg.QueueDBPath), zap.Error(err))
	}
	defer queue.Close()

	// --- Services ---
	notifier := service.NewNotifier(notify.NewLogSink(logger), metrics, logger)
	notifier.Start()

	syncQueue := service.NewSyncQueue(queue, txStore, notifier, monitor, metrics, logger, cfg.MaxConcurrency)
	txSvc := service.NewTransactionService(txStore, syncQueue, notifier, monitor, cal, metrics, logger, cfg.Backend).
		WithHeaderStores(catalogStore)
	reportSvc := service.NewReportService(txStore, engine)

	prices := cache.New[domain.PriceList](cfg.CacheTTL)
	defer prices.Close()
	catalogSvc := service.NewCatalogService(catalogStore, prices, metrics, logger)

	monitor.OnReconnect(func() { syncQueue.TriggerDrain("reconnect") })
	syncQueue.TriggerDrain("startup")

	// --- Router ---
	router := handler.NewRouter(handler.Services{
		Transactions: txSvc,
		Reports:      reportSvc,
		Catalog:      catalogSvc,
		Sync:         syncQueue,
		Tokens:       service.NewTokenService(cfg.JWTSecret),
		Calendar:     cal,
		AuthRequired: cfg.AuthRequired,
	}, metrics, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced shutdown", zap.Error(err))
	}
	notifier.Stop(ctx)

	logger.Info("server stopped")
}
