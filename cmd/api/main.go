package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stayd/internal/api"
	"stayd/internal/config"
	"stayd/internal/database"
	"stayd/internal/events"
	"stayd/internal/export"
	"stayd/internal/google"
	"stayd/internal/logging"
	"stayd/internal/metrics"
	"stayd/internal/models"
	"stayd/internal/payment"
	"stayd/internal/rating"
	"stayd/internal/repository"
	"stayd/internal/reservation"
	"stayd/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v2"
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

	rooms, err := loadRooms(cfg, &logger)
	if err != nil {
		return err
	}

	db, err := initDatabase(cfg, rooms, &logger)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient, states := initStateRepository(ctx, cfg, &logger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	sheetsService := initGoogleSheets(cfg, &logger)
	excelService := export.NewExcelService(cfg.Exports, &logger)

	retryPolicy := worker.RetryPolicy{MaxRetries: 5, InitialDelay: 2 * time.Second, MaxDelay: time.Minute, BackoffFactor: 2}
	var notifyWorker *worker.NotifyWorker
	if sheetsService != nil {
		notifyWorker = worker.NewNotifyWorker(db, sheetsService, excelService, redisClient, retryPolicy, nil)
	} else {
		notifyWorker = worker.NewNotifyWorker(db, nil, excelService, redisClient, retryPolicy, nil)
	}
	go notifyWorker.Start(ctx)

	eventBus := events.NewEventBus()

	gateway := payment.NewPayPalClient(cfg.Payment, &logger)

	workflow := reservation.NewWorkflow(db, states, gateway, eventBus, notifyWorker, reservation.Config{
		MaxAdvanceDays:    cfg.Booking.MaxAdvanceDays,
		DraftTTL:          time.Duration(cfg.Booking.DraftTTLMinutes) * time.Minute,
		RateLimitAttempts: cfg.Booking.RateLimitAttempts,
		RateLimitWindow:   time.Duration(cfg.Booking.RateLimitWindow) * time.Second,
		Currency:          cfg.Payment.Currency,
	}, &logger)

	ratingService := rating.NewService(db, eventBus, &logger)

	if cfg.Backup.Enabled {
		backupService := database.NewBackupService(cfg.Database.Path, cfg.Backup, &logger)
		go backupService.Start(ctx)
	}

	startMetrics(ctx, cfg, &logger)

	httpServer := api.NewHTTPServer(cfg.API, db, workflow, ratingService, excelService, &logger)
	go func() {
		if !cfg.API.HTTP.Enabled {
			return
		}
		if err := httpServer.Start(); err != nil {
			logger.Error().Err(err).Msg("http server stopped")
		}
	}()

	logger.Info().Int("http_port", cfg.API.HTTP.Port).Msg("Booking service started")

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(shutdownCtx)

	logger.Info().Msg("Booking service stopped")
	return nil
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

// loadRooms reads the seed catalog. The file is optional when rooms are
// embedded in the main config.
func loadRooms(cfg *config.Config, logger *zerolog.Logger) ([]models.Room, error) {
	roomsPath := os.Getenv("ROOMS_PATH")
	if roomsPath == "" {
		roomsPath = "configs/rooms.yaml"
	}

	roomsData, err := os.ReadFile(roomsPath)
	if err != nil {
		if os.IsNotExist(err) && len(cfg.Rooms) > 0 {
			return cfg.Rooms, nil
		}
		logger.Error().Err(err).Str("rooms_path", roomsPath).Msg("read rooms")
		return nil, err
	}

	var roomsConfig struct {
		Rooms []models.Room `yaml:"rooms"`
	}
	if err := yaml.Unmarshal(roomsData, &roomsConfig); err != nil {
		logger.Error().Err(err).Str("rooms_path", roomsPath).Msg("parse rooms")
		return nil, err
	}

	if err := config.ValidateRooms(roomsConfig.Rooms); err != nil {
		logger.Error().Err(err).Msg("Rooms validation failed")
		return nil, err
	}

	return roomsConfig.Rooms, nil
}

func initDatabase(cfg *config.Config, rooms []models.Room, logger *zerolog.Logger) (*database.DB, error) {
	db, err := database.NewDB(cfg.Database.Path, logger)
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return nil, err
	}

	if err := db.SeedRooms(context.Background(), rooms); err != nil {
		logger.Error().Err(err).Msg("seed rooms")
	}
	return db, nil
}

func initStateRepository(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*redis.Client, *repository.FailoverStateRepository) {
	var redisClient *redis.Client
	if cfg.Redis.Address != "" {
		redisClient = repository.NewRedisClient(cfg.Redis)
		if errPing := repository.Ping(ctx, redisClient); errPing != nil {
			logger.Warn().Err(errPing).Msg("Redis unavailable")
		}
	}

	ttl := time.Duration(cfg.Booking.DraftTTLMinutes) * time.Minute
	primaryRepo := repository.NewRedisStateRepository(redisClient, ttl)
	fallbackRepo := repository.NewMemoryStateRepository(ttl)
	return redisClient, repository.NewFailoverStateRepository(primaryRepo, fallbackRepo, logger)
}

func initGoogleSheets(cfg *config.Config, logger *zerolog.Logger) *google.SheetsService {
	if cfg.Google.GoogleCredentialsFile == "" || cfg.Google.BookingSpreadSheetID == "" {
		return nil
	}

	sheetsService, err := google.NewSheetsService(
		cfg.Google.GoogleCredentialsFile,
		cfg.Google.BookingSpreadSheetID,
	)
	if err != nil {
		logger.Warn().Err(err).Msg("google sheets init failed, continuing without sheets")
		return nil
	}

	logger.Info().Msg("google sheets connected")
	return sheetsService
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	port := cfg.Monitoring.PrometheusPort
	if port == 0 {
		port = 9090
	}
	go startMetricsServer(ctx, port, logger)
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
