package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/uptrace/bun"

	"ms-seating/internal/booking"
	"ms-seating/internal/booking/booking_api"
	bookingredis "ms-seating/internal/booking/redis"
	"ms-seating/internal/config"
	"ms-seating/internal/confirmation"
	"ms-seating/internal/database/migrations"
	"ms-seating/internal/kafka"
	"ms-seating/internal/logger"
	"ms-seating/internal/queue"
	"ms-seating/internal/sse"
	storedb "ms-seating/internal/store/db"
	"ms-seating/internal/venue"
)

func verifyDatabase(ctx context.Context, cfg config.DatabaseConfig, log *logger.Logger) *bun.DB {
	bunDB, err := storedb.Open(storedb.Options{
		Driver:       cfg.Driver,
		DSN:          cfg.DSN,
		MaxOpenConns: cfg.MaxOpenConns,
		MaxIdleConns: cfg.MaxIdleConns,
		MaxLifetime:  cfg.MaxLifetime,
	})
	if err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to open %s database: %v", cfg.Driver, err))
	}

	maxRetries := 5
	for i := 0; i < maxRetries; i++ {
		log.Info("DATABASE", fmt.Sprintf("Attempting to connect to %s (attempt %d/%d)", cfg.Driver, i+1, maxRetries))
		if err = bunDB.PingContext(ctx); err == nil {
			break
		}
		log.Error("DATABASE", fmt.Sprintf("Failed to connect to %s: %v", cfg.Driver, err))
		if i < maxRetries-1 {
			time.Sleep(2 * time.Second)
		}
	}
	if err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to connect to %s after %d attempts: %v", cfg.Driver, maxRetries, err))
	}
	log.Info("DATABASE", fmt.Sprintf("%s connection successful", cfg.Driver))
	return bunDB
}

// prepareSchema runs the SQL migrations on PostgreSQL and creates the tables
// from the models on SQLite.
func prepareSchema(ctx context.Context, cfg config.DatabaseConfig, bunDB *bun.DB, log *logger.Logger) error {
	if cfg.Driver != "postgres" {
		if err := storedb.CreateSchema(ctx, bunDB); err != nil {
			return err
		}
		log.LogDatabase("CREATE", "venue", "schema ensured")
		return nil
	}

	// The migrator closes the handle it is given, so it gets its own.
	migrationDB, err := storedb.Open(storedb.Options{Driver: cfg.Driver, DSN: cfg.DSN, MaxOpenConns: 1})
	if err != nil {
		return err
	}
	runner := migrations.NewRunner(migrationDB, migrations.MigrateOptions{
		MigrationsDir: cfg.MigrationsDir,
		AutoMigrate:   cfg.AutoMigrate,
	}, log)
	defer runner.Close()
	return runner.RunMigrations()
}

func newHoldLock(ctx context.Context, cfg config.RedisConfig, log *logger.Logger) (booking.HoldLocker, func()) {
	if !cfg.Enabled {
		log.Info("LOCK", "Using in-process hold lock")
		return booking.NewMutexLock(), func() {}
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.Addr})
	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatal("REDIS", fmt.Sprintf("Redis connection error: %v", err))
	}
	log.Info("REDIS", fmt.Sprintf("Redis connection successful to %s, hold lock key %s", cfg.Addr, cfg.LockKey))
	return bookingredis.NewHoldLock(client, cfg.LockKey, cfg.LockTTL, log), func() { client.Close() }
}

func newPublisher(cfg *config.Config, log *logger.Logger) (booking.Publisher, string, func()) {
	switch cfg.EventBroker {
	case "kafka":
		if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, []string{cfg.Kafka.Topic}, log); err != nil {
			log.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
		}
		producer := kafka.NewProducer(cfg.Kafka.Brokers)
		log.Info("KAFKA", fmt.Sprintf("Kafka producer initialized for %v", cfg.Kafka.Brokers))
		return producer, cfg.Kafka.Topic, func() { producer.Close() }
	case "rabbitmq":
		publisher := queue.NewPublisher(cfg.RabbitMQ.URL, log)
		if err := publisher.Connect(); err != nil {
			log.Warn("RABBITMQ", fmt.Sprintf("Broker not reachable yet, will retry on publish: %v", err))
		}
		return publisher, cfg.RabbitMQ.Queue, func() { publisher.Close() }
	default:
		log.Info("EVENTS", "Seat status events are disabled")
		return booking.NopPublisher{}, booking.SeatStatusTopic, func() {}
	}
}

func main() {
	envErr := godotenv.Load()
	cfg := config.Load()

	log, err := logger.NewLogger("ms-seating", cfg.Log.Dir, logger.ParseLevel(cfg.Log.Level))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()

	log.Info("APP", "Starting Seating Service initialization")
	if envErr != nil {
		log.Warn("CONFIG", ".env file not found, using environment variables")
	} else {
		log.Info("CONFIG", "Loaded environment variables from .env file")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal("CONFIG", err.Error())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bunDB := verifyDatabase(ctx, cfg.Database, log)
	defer bunDB.Close()
	if err := prepareSchema(ctx, cfg.Database, bunDB, log); err != nil {
		log.Fatal("MIGRATION", fmt.Sprintf("Failed to prepare schema: %v", err))
	}

	seatStore := storedb.New(bunDB)
	plan, err := venue.ParseSeatingPlan(cfg.Venue.SeatingPlan)
	if err != nil {
		log.Fatal("CONFIG", err.Error())
	}
	if _, err := venue.Seed(ctx, seatStore, venue.Layout{
		EventName: cfg.Venue.DefaultEventName,
		Capacity:  cfg.Venue.Capacity,
		NumRows:   cfg.Venue.NumRows,
		Plan:      plan,
	}, log); err != nil {
		log.Fatal("VENUE", fmt.Sprintf("Failed to seed venue: %v", err))
	}

	lock, closeLock := newHoldLock(ctx, cfg.Redis, log)
	defer closeLock()
	publisher, topic, closePublisher := newPublisher(cfg, log)
	defer closePublisher()

	seatStream := sse.NewSeatEventEmitter()
	bookingService := booking.NewBookingService(seatStore, lock, booking.MultiPublisher{publisher, seatStream}, log, cfg.Venue.HoldExpiry())
	bookingService.Topic = topic

	sweeper := booking.NewSweeper(bookingService, cfg.Venue.SweepInterval, log)
	sweeperDone := sweeper.Start(ctx)

	var qr *confirmation.QRGenerator
	if cfg.QRSecretKey != "" {
		qr = confirmation.NewQRGenerator(cfg.QRSecretKey)
	} else {
		log.Warn("CONFIG", "QR_SECRET_KEY not set, reservation QR codes are disabled")
	}

	handler := booking_api.NewHandler(bookingService, qr, cfg.Venue.HoldExpiry(), log)
	handler.Stream = seatStream
	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      handler.Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP", fmt.Sprintf("Seating Service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	log.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-ctx.Done()

	log.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
	}
	<-sweeperDone
	log.Info("APP", "Seating Service shutdown complete")
}
