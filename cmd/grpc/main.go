package main

import (
	"context"
	"log"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fekuna/shopsync-service/config"
	"github.com/fekuna/shopsync-service/internal/activity"
	"github.com/fekuna/shopsync-service/internal/batch"
	"github.com/fekuna/shopsync-service/internal/crawler"
	"github.com/fekuna/shopsync-service/internal/database"
	"github.com/fekuna/shopsync-service/internal/ingest"
	"github.com/fekuna/shopsync-service/internal/logger"
	"github.com/fekuna/shopsync-service/internal/product"
	"github.com/fekuna/shopsync-service/internal/queue"
	"github.com/fekuna/shopsync-service/internal/rpc"
	"github.com/fekuna/shopsync-service/internal/search"
	"github.com/fekuna/shopsync-service/internal/shopify"
	"github.com/fekuna/shopsync-service/internal/webhook"

	counterRepoPkg "github.com/fekuna/shopsync-service/internal/counter/repository"
	jobH "github.com/fekuna/shopsync-service/internal/joblog/handler"
	jobRepoPkg "github.com/fekuna/shopsync-service/internal/joblog/repository"
	jobUCPkg "github.com/fekuna/shopsync-service/internal/joblog/usecase"
	prodH "github.com/fekuna/shopsync-service/internal/product/handler"
	prodRepoPkg "github.com/fekuna/shopsync-service/internal/product/repository"
	prodUCPkg "github.com/fekuna/shopsync-service/internal/product/usecase"
	settingsH "github.com/fekuna/shopsync-service/internal/settings/handler"
	settingsRepoPkg "github.com/fekuna/shopsync-service/internal/settings/repository"
	settingsUCPkg "github.com/fekuna/shopsync-service/internal/settings/usecase"
	shopRepoPkg "github.com/fekuna/shopsync-service/internal/shop/repository"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func main() {
	// 1. Load Configuration
	_ = godotenv.Load() // Load .env file if it exists
	cfg := config.LoadEnv()

	// 2. Initialize Logger
	logConfig := &logger.ZapLoggerConfig{
		IsDevelopment:     false,
		Encoding:          cfg.Logger.Encoding,
		Level:             cfg.Logger.Level,
		DisableCaller:     cfg.Logger.DisableCaller,
		DisableStacktrace: cfg.Logger.DisableStacktrace,
		File:              cfg.Logger.File,
		FileMaxSizeMB:     cfg.Logger.FileMaxSizeMB,
		FileMaxBackups:    cfg.Logger.FileMaxBackups,
		FileMaxAgeDays:    cfg.Logger.FileMaxAgeDays,
	}
	if cfg.Server.AppEnv == "development" || cfg.Server.AppEnv == "dev" {
		logConfig.IsDevelopment = true
	}

	appLogger := logger.NewZapLogger(logConfig)
	defer appLogger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Connect to Database
	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		appLogger.Fatal("Could not connect to database", zap.Error(err))
	}
	defer db.Close()
	appLogger.Info("Connected to database", zap.String("driver", cfg.Database.Driver), zap.String("db_name", cfg.Database.DBName))

	// 4. Initialize Repositories
	shopRepo := shopRepoPkg.NewPGRepository(db)
	prodRepo := prodRepoPkg.NewPGRepository(db)
	jobRepo := jobRepoPkg.NewPGRepository(db)
	settingsRepo := settingsRepoPkg.NewPGRepository(db)
	counterRepo := counterRepoPkg.NewPGRepository(db, cfg.Counter.LockWait)

	// 5. Initialize the queue transport
	var (
		dispatcher queue.Dispatcher
		source     queue.Source
		delayer    queue.Delayer
		batches    queue.BatchStore
		pump       func(context.Context)
	)
	switch cfg.Queue.Driver {
	case "sync":
		broker := queue.NewMemoryBroker()
		dispatcher, source, delayer = broker, broker, broker
		batches = queue.NewMemoryBatchStore()
		appLogger.Info("Using in-process queue")
	default:
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			appLogger.Fatal("Could not connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()
		appLogger.Info("Connected to Redis", zap.String("addr", cfg.Redis.Addr))

		kafkaDispatcher := queue.NewKafkaDispatcher(cfg.Kafka)
		defer kafkaDispatcher.Close()
		kafkaSource := queue.NewKafkaSource(cfg.Kafka)
		defer kafkaSource.Close()
		appLogger.Info("Connected to Kafka", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))

		redisDelayer := queue.NewRedisDelayer(redisClient, kafkaDispatcher, appLogger)
		dispatcher, source, delayer = kafkaDispatcher, kafkaSource, redisDelayer
		batches = queue.NewRedisBatchStore(redisClient)
		pump = redisDelayer.Run
	}
	q := queue.New(dispatcher, batches)

	// 5.5 Initialize Elasticsearch
	var esIndex product.SearchIndex
	if len(cfg.Elastic.Addresses) > 0 {
		esClient, err := search.NewClient(cfg.Elastic)
		if err == nil {
			err = esClient.Ping(ctx)
		}
		if err == nil {
			err = esClient.EnsureIndex(ctx)
		}
		if err != nil {
			appLogger.Warn("Could not connect to Elasticsearch (filters fall back to the database)", zap.Error(err))
		} else {
			esIndex = esClient
			appLogger.Info("Connected to Elasticsearch", zap.Strings("addresses", cfg.Elastic.Addresses))
		}
	}

	// 5.8 Initialize the activity log
	var recorder activity.Recorder = activity.NewLogRecorder(appLogger)
	if cfg.Mongo.URI != "" {
		mongoClient, err := activity.NewMongoClient(ctx, cfg.Mongo)
		if err != nil {
			appLogger.Warn("Could not connect to MongoDB (activity goes to the log only)", zap.Error(err))
		} else {
			defer mongoClient.Disconnect(context.Background())
			mongoRecorder := activity.NewMongoRecorder(mongoClient, cfg.Mongo, appLogger)
			if err := mongoRecorder.EnsureIndexes(ctx); err != nil {
				appLogger.Warn("Could not create activity indexes", zap.Error(err))
			}
			recorder = mongoRecorder
		}
	}

	// 6. Initialize UseCases
	shopifyClients := shopify.NewClientFactory(cfg.Shopify)
	prodUC := prodUCPkg.NewProductUseCase(prodRepo, esIndex, batch.NewPushNotifier(q), appLogger)
	jobUC := jobUCPkg.NewJobLogUseCase(jobRepo, appLogger)
	settingsUC := settingsUCPkg.NewSettingsUseCase(settingsRepo, appLogger)

	ingestor := ingest.NewIngestor(shopRepo, prodUC, recorder, appLogger)
	catalogCrawler := crawler.NewCrawler(shopRepo, shopifyClients, q, ingestor, appLogger)
	orchestrator := batch.NewOrchestrator(prodUC, counterRepo, jobUC, settingsUC, shopRepo, q, cfg.Batch.ChunkSize, appLogger)
	pusher := batch.NewPusher(shopRepo, prodUC, shopifyClients, appLogger)

	// 6.5 Initialize Workers
	worker := queue.NewWorker(source, delayer, batches, queue.WorkerOptions{
		Concurrency: cfg.Queue.Concurrency,
		JobTimeout:  cfg.Queue.JobTimeout,
		Retry:       queue.RetryPolicy{MaxAttempts: cfg.Queue.MaxAttempts, Backoff: cfg.Queue.Backoff},
	}, appLogger)
	ingestor.Register(worker)
	catalogCrawler.Register(worker)
	orchestrator.Register(worker)
	pusher.Register(worker)

	go func() {
		if err := worker.Start(ctx); err != nil && ctx.Err() == nil {
			appLogger.Error("worker stopped", zap.Error(err))
		}
	}()
	if pump != nil {
		go pump(ctx)
	}

	// 7. Start HTTP Server
	httpApp := webhook.NewServer(cfg.HTTP, webhook.NewHandler(q, shopRepo, jobUC, cfg.Shopify.APISecret, appLogger), appLogger)
	go func() {
		appLogger.Info("Starting HTTP server", zap.String("port", cfg.HTTP.Port))
		if err := httpApp.Listen(cfg.HTTP.Port); err != nil {
			appLogger.Fatal("failed to serve http", zap.Error(err))
		}
	}()

	// 8. Start gRPC Server
	port := cfg.Server.GRPCPort
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}

	lis, err := net.Listen("tcp", port)
	if err != nil {
		log.Fatalf("failed to listen: %v", err)
	}

	grpcServer, healthServer := rpc.NewServer(appLogger)
	rpc.RegisterJobServiceServer(grpcServer, jobH.NewJobHandler(orchestrator, jobUC, appLogger))
	rpc.RegisterProductServiceServer(grpcServer, prodH.NewProductHandler(prodUC, appLogger))
	rpc.RegisterSettingsServiceServer(grpcServer, settingsH.NewSettingsHandler(settingsUC, counterRepo, appLogger))

	appLogger.Info("Starting gRPC server", zap.String("port", port))

	// Graceful Shutdown
	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			appLogger.Fatal("failed to serve", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	if err := httpApp.ShutdownWithTimeout(10 * time.Second); err != nil {
		appLogger.Error("http shutdown", zap.Error(err))
	}
	grpcServer.GracefulStop()
	cancel()
	appLogger.Info("Server stopped")
}
