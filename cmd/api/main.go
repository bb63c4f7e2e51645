package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"carrental/internal/api"
	"carrental/internal/auth"
	"carrental/internal/bot"
	"carrental/internal/config"
	"carrental/internal/database"
	"carrental/internal/docstore"
	"carrental/internal/domain"
	"carrental/internal/events"
	"carrental/internal/export"
	"carrental/internal/google"
	"carrental/internal/logging"
	"carrental/internal/metrics"
	"carrental/internal/notify"
	"carrental/internal/repository"
	"carrental/internal/service"
	"carrental/internal/worker"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, queueDB, err := openStores(ctx, cfg, &logger)
	if err != nil {
		return err
	}
	defer store.Close()
	if queueDB != nil && domain.Repository(queueDB) != store {
		defer queueDB.Close()
	}

	redisClient := initRedis(ctx, cfg, &logger)
	if redisClient != nil {
		defer redisClient.Close()
	}
	cache := initCache(redisClient, &logger)

	bus := events.NewEventBus()
	bus.OnError(func(event *events.Event, err error) {
		logger.Error().Err(err).Str("event_type", event.Type).Msg("event handler failed")
	})
	if fwd := initAMQP(cfg, &logger); fwd != nil {
		defer fwd.Close()
		bus.SubscribeAll(fwd.Forward)
	}

	tgBot := initTelegram(cfg, &logger)
	if tgBot != nil {
		notifier := notify.NewTelegramNotifier(tgBot, cfg.Notifications.Telegram.OwnerChatIDs, logging.Component(&logger, "notify"))
		notifier.Subscribe(bus)
		go notifier.Start(ctx)
	}

	sheets := initGoogleSheets(ctx, cfg, &logger)
	var syncWorker domain.SyncWorker
	if sheets != nil && queueDB != nil {
		w := worker.NewSheetsWorker(queueDB, sheets, redisClient, worker.RetryPolicy{
			MaxRetries:    5,
			InitialDelay:  2 * time.Second,
			MaxDelay:      5 * time.Minute,
			BackoffFactor: 2,
		}, logging.Component(&logger, "sheets-worker"))
		go w.Start(ctx)
		go sheets.StartCacheRefresh(ctx, 30*time.Minute)
		syncWorker = w
	}

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	bookingService := service.NewBookingService(store, cache, bus, syncWorker, service.BookingOptions{
		StrictTransitions: cfg.Booking.StrictTransitions,
		CreateLimit:       cfg.Booking.CreateLimit,
		CreateWindow:      cfg.Booking.CreateWindow,
	}, logging.Component(&logger, "bookings"))
	statsService := service.NewStatsService(store, cfg.Booking.StatsWindowMonths)
	carService := service.NewCarService(store, cache, logging.Component(&logger, "cars"))
	userService := service.NewUserService(store, tokens, bookingService, cfg.Auth.BcryptCost, logging.Component(&logger, "users"))

	seedFleet(ctx, carService, &logger)

	services := api.Services{
		Cars:     carService,
		Bookings: bookingService,
		Stats:    statsService,
		Users:    userService,
		Tokens:   tokens,
		Store:    store,
	}

	if tgBot != nil && cfg.Notifications.Telegram.Commands {
		ownerBot := bot.NewBot(bot.NewBotWrapper(tgBot), cfg.Notifications.Telegram.OwnerChatIDs,
			bookingService, statsService, logging.Component(&logger, "bot"))
		go ownerBot.Start(ctx)
		defer ownerBot.Stop()
	}

	maintenance := newMaintenance(cfg, queueDB, sheets, bookingService, statsService, &logger)
	go func() {
		if err := maintenance.Start(ctx); err != nil {
			logger.Error().Err(err).Msg("maintenance scheduler stopped")
		}
	}()

	startMetrics(ctx, cfg, &logger)

	return startServers(ctx, cfg, services, &logger)
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := baseLogger.With().Str("component", "api-main").Logger()

	return cfg, logger, closer, nil
}

// openStores opens the entity store and the SQLite file that holds the sync
// queue. With the sqlite driver both are the same database; with mongo the
// queue file is opened only when database.path is set.
func openStores(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (domain.Repository, *database.DB, error) {
	switch cfg.Database.Driver {
	case config.DriverMongo:
		store, err := docstore.Connect(ctx, cfg.Database.Mongo, logging.Component(logger, "docstore"))
		if err != nil {
			logger.Error().Err(err).Msg("init mongo store")
			return nil, nil, err
		}
		if cfg.Database.Path == "" {
			logger.Warn().Msg("database.path is empty, ledger sync queue and backups are disabled")
			return store, nil, nil
		}
		queueDB, err := database.NewDB(cfg.Database.Path, logging.Component(logger, "database"))
		if err != nil {
			_ = store.Close()
			return nil, nil, err
		}
		return store, queueDB, nil
	default:
		db, err := database.NewDB(cfg.Database.Path, logging.Component(logger, "database"))
		if err != nil {
			logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
			return nil, nil, err
		}
		return db, db, nil
	}
}

func initRedis(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	redisClient := repository.NewRedisClient(cfg.Redis)
	if _, err := redisClient.Ping(ctx).Result(); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		_ = redisClient.Close()
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return redisClient
}

func initCache(redisClient *redis.Client, logger *zerolog.Logger) domain.CacheRepository {
	memory := repository.NewMemoryCacheRepository()
	if redisClient == nil {
		return memory
	}
	return repository.NewFailoverCacheRepository(
		repository.NewRedisCacheRepository(redisClient), memory, logging.Component(logger, "cache"))
}

func initAMQP(cfg *config.Config, logger *zerolog.Logger) *events.AMQPForwarder {
	if !cfg.Events.AMQP.Enabled {
		return nil
	}
	fwd, err := events.DialAMQP(cfg.Events.AMQP.URL, cfg.Events.AMQP.Exchange, logging.Component(logger, "amqp"))
	if err != nil {
		logger.Warn().Err(err).Msg("amqp init failed, events stay in-process")
		return nil
	}
	logger.Info().Str("exchange", cfg.Events.AMQP.Exchange).Msg("amqp forwarder connected")
	return fwd
}

func initTelegram(cfg *config.Config, logger *zerolog.Logger) *tgbotapi.BotAPI {
	tg := cfg.Notifications.Telegram
	if !tg.Enabled {
		return nil
	}
	tgBot, err := notify.NewBot(tg.BotToken, tg.Debug)
	if err != nil {
		logger.Warn().Err(err).Msg("telegram init failed, continuing without notifications")
		return nil
	}
	logger.Info().Str("username", tgBot.Self.UserName).Int("owners", len(tg.OwnerChatIDs)).Msg("telegram connected")
	return tgBot
}

func initGoogleSheets(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *google.SheetsService {
	if cfg.Google.GoogleCredentialsFile == "" || cfg.Google.BookingSpreadSheetID == "" {
		return nil
	}

	sheets, err := google.NewSheetsService(ctx, cfg.Google.GoogleCredentialsFile, cfg.Google.BookingSpreadSheetID,
		logging.Component(logger, "sheets"))
	if err != nil {
		logger.Warn().Err(err).Msg("google sheets init failed, continuing without sheets")
		return nil
	}
	if err := sheets.TestConnection(ctx); err != nil {
		logger.Warn().Err(err).Msg("google sheets unreachable, continuing without sheets")
		return nil
	}
	if err := sheets.WarmUpCache(ctx); err != nil {
		logger.Warn().Err(err).Msg("google sheets cache warm-up failed")
	}

	logger.Info().Msg("google sheets connected")
	return sheets
}

func seedFleet(ctx context.Context, cars *service.CarService, logger *zerolog.Logger) {
	fleetPath := os.Getenv("FLEET_PATH")
	if fleetPath == "" {
		fleetPath = "configs/fleet.yaml"
	}
	fleet, err := config.LoadFleet(fleetPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return
		}
		logger.Warn().Err(err).Str("fleet_path", fleetPath).Msg("fleet file skipped")
		return
	}

	created, skipped, err := cars.SeedFleet(ctx, fleet)
	if err != nil {
		logger.Error().Err(err).Msg("seed fleet")
		return
	}
	logger.Info().Int("created", created).Int("skipped", skipped).Msg("fleet seeded")
}

// newMaintenance registers the periodic jobs on the backup scheduler.
func newMaintenance(
	cfg *config.Config,
	queueDB *database.DB,
	sheets *google.SheetsService,
	bookings *service.BookingService,
	stats *service.StatsService,
	logger *zerolog.Logger,
) *database.BackupService {
	backupCfg := cfg.Backup
	if queueDB == nil {
		backupCfg.Enabled = false
	}
	svc := database.NewBackupService(cfg.Database.Path, backupCfg, logging.Component(logger, "maintenance"))

	if queueDB != nil {
		svc.AddJob("purge-sync-queue", "@daily", func(ctx context.Context) error {
			n, err := queueDB.PurgeCompletedSyncTasks(ctx, time.Now().AddDate(0, 0, -7))
			if err != nil {
				return err
			}
			logger.Info().Int64("purged", n).Msg("sync queue purged")
			return nil
		})
	}

	if sheets != nil {
		svc.AddJob("ledger-resync", "@every 6h", func(ctx context.Context) error {
			all, err := bookings.ListAll(ctx)
			if err != nil {
				return err
			}
			if err := sheets.ReplaceBookings(ctx, all); err != nil {
				return err
			}
			st, err := stats.GetStats(ctx)
			if err != nil {
				return err
			}
			return sheets.UpdateStatsSheet(ctx, st)
		})
	}

	if cfg.Exports.Path != "" {
		svc.AddJob("owner-report", "@weekly", func(ctx context.Context) error {
			all, err := bookings.ListAll(ctx)
			if err != nil {
				return err
			}
			st, err := stats.GetStats(ctx)
			if err != nil {
				return err
			}
			path, err := export.SaveToDir(cfg.Exports.Path, time.Now(), all, st)
			if err != nil {
				return err
			}
			logger.Info().Str("path", path).Msg("owner report saved")
			return nil
		})
	}

	return svc
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	metrics.Register()
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}
	go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, logger)
}

func startServers(ctx context.Context, cfg *config.Config, services api.Services, logger *zerolog.Logger) error {
	var grpcServer *api.GRPCServer
	if cfg.API.GRPC.Enabled {
		var err error
		grpcServer, err = api.NewGRPCServer(&cfg.API, services, logger)
		if err != nil {
			logger.Error().Err(err).Msg("create grpc server")
			return err
		}
		go func() {
			if err := grpcServer.Serve(); err != nil {
				logger.Error().Err(err).Msg("grpc server stopped")
			}
		}()
	}

	var httpServer *api.HTTPServer
	if cfg.API.HTTP.Enabled {
		httpServer = api.NewHTTPServer(cfg.API, services, logger)
		go func() {
			if err := httpServer.Start(); err != nil {
				logger.Error().Err(err).Msg("http server stopped")
			}
		}()
	}

	logger.Info().
		Bool("grpc", grpcServer != nil).
		Bool("http", httpServer != nil).
		Int("http_port", cfg.API.HTTP.Port).
		Int("grpc_port", cfg.API.GRPC.Port).
		Msg("API server started")

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if grpcServer != nil {
		grpcServer.Shutdown(shutdownCtx)
	}
	if httpServer != nil {
		_ = httpServer.Shutdown(shutdownCtx)
	}

	logger.Info().Msg("API server stopped")
	return nil
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
