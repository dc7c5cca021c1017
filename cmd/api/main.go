package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"gopkg.in/yaml.v3"

	"github.com/voicewms/dispatch-service/internal/api/handlers"
	"github.com/voicewms/dispatch-service/internal/application"
	mongoRepo "github.com/voicewms/dispatch-service/internal/infrastructure/mongodb"
	"github.com/voicewms/dispatch-service/internal/layout"
	"github.com/voicewms/dispatch-service/pkg/events"
	"github.com/voicewms/dispatch-service/pkg/kafka"
	"github.com/voicewms/dispatch-service/pkg/logging"
	"github.com/voicewms/dispatch-service/pkg/metrics"
	"github.com/voicewms/dispatch-service/pkg/middleware"
	"github.com/voicewms/dispatch-service/pkg/mongodb"
	"github.com/voicewms/dispatch-service/pkg/outbox"
	outboxMongo "github.com/voicewms/dispatch-service/pkg/outbox/mongodb"
)

const serviceName = "dispatch-service"

// Config holds application configuration.
type Config struct {
	ServerAddr string
	LayoutFile string
	MongoDB    *mongodb.Config
	Kafka      *kafka.Config
	Outbox     *outbox.PublisherConfig
}

func loadConfig() *Config {
	return &Config{
		ServerAddr: getEnv("SERVER_ADDR", ":8080"),
		LayoutFile: os.Getenv("LAYOUT_FILE"),
		MongoDB:    mongodb.DefaultConfig(),
		Kafka:      kafka.DefaultConfig(),
		Outbox:     outbox.DefaultPublisherConfig(),
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, loadConfig()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, config *Config) error {
	logger := logging.New(logging.DefaultConfig(serviceName))
	logger.SetDefault()
	logger.Info("starting dispatch-service API")

	m := metrics.New(metrics.DefaultConfig(serviceName))

	mongoClient, err := mongodb.NewClient(ctx, config.MongoDB)
	if err != nil {
		return fmt.Errorf("connect to mongodb: %w", err)
	}
	defer mongoClient.Close(context.Background())
	logger.Info("connected to MongoDB", "database", config.MongoDB.Database)

	producer := kafka.NewProducer(config.Kafka, m, logger)
	breaker := kafka.NewCircuitBreakerProducer(producer, m, logger)
	defer breaker.Close()
	logger.Info("kafka producer initialized", "brokers", config.Kafka.Brokers)

	factory := events.NewEventFactory(events.SourceDispatch)

	taskRepo := mongoRepo.NewTaskRepository(mongoClient, factory, logger)
	historyRepo := mongoRepo.NewHistoryRepository(mongoClient)
	workerRepo := mongoRepo.NewWorkerRepository(mongoClient, logger)
	layoutRepo := mongoRepo.NewLayoutRepository(mongoClient)
	locationRepo := mongoRepo.NewLocationRepository(mongoClient, logger)
	outboxRepo := outboxMongo.NewOutboxRepository(mongoClient.Database())

	publisher := outbox.NewPublisher(outboxRepo, breaker, logger, m, config.Outbox)
	if err := publisher.Start(ctx); err != nil {
		return fmt.Errorf("start outbox publisher: %w", err)
	}
	defer publisher.Stop()
	logger.Info("outbox publisher started")

	dispatchService := application.NewDispatchService(taskRepo, historyRepo, workerRepo, logger, m)
	locationService := application.NewLocationService(layoutRepo, locationRepo, outboxRepo, factory, logger, m)

	if config.LayoutFile != "" {
		if err := bootstrapLayout(ctx, config.LayoutFile, locationService, logger); err != nil {
			return fmt.Errorf("bootstrap layout from %s: %w", config.LayoutFile, err)
		}
	}

	middleware.InitValidator()

	router := gin.New()
	middleware.Setup(router, &middleware.Config{
		ServiceName: serviceName,
		Logger:      logger,
		Metrics:     m,
		EnableCORS:  getEnv("ENABLE_CORS", "false") == "true",
	})

	router.GET("/health", middleware.HealthCheck(serviceName))
	router.GET("/ready", middleware.ReadinessCheck(serviceName, map[string]middleware.ReadinessChecker{
		"mongodb": func(c *gin.Context) error {
			return mongoClient.HealthCheck(c.Request.Context())
		},
	}))
	router.GET("/metrics", middleware.MetricsEndpoint(m))

	apiV1 := router.Group("/api/v1")
	handlers.NewTaskHandlers(dispatchService, logger).RegisterRoutes(apiV1)
	handlers.NewLocationHandlers(locationService, logger).RegisterRoutes(apiV1)

	srv := &http.Server{
		Addr:         config.ServerAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	logger.Info("server started", "addr", config.ServerAddr)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("server forced to shutdown")
	}

	logger.Info("server stopped")
	return nil
}

// bootstrapLayout generates the address book from a layout file at
// startup. Generation is deterministic, so re-running it on the same
// file yields the same addresses and check digits.
func bootstrapLayout(ctx context.Context, path string, service *application.LocationService, logger *logging.Logger) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var l layout.Layout
	if err := yaml.Unmarshal(data, &l); err != nil {
		return fmt.Errorf("parse layout file: %w", err)
	}

	resp, err := service.GenerateFromLayout(ctx, &l)
	if err != nil {
		return err
	}
	logger.Info("layout bootstrapped", "layout", resp.Layout, "addresses", resp.Addresses)
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
