package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	config "github.com/outletiq/reco-backend/internal/cfg"
	v1Http "github.com/outletiq/reco-backend/internal/delivery/v1/http"
	"github.com/outletiq/reco-backend/internal/index"
	"github.com/outletiq/reco-backend/internal/infrastructure/embedjobs"
	"github.com/outletiq/reco-backend/internal/infrastructure/kafka"
	"github.com/outletiq/reco-backend/internal/infrastructure/scheduler"
	"github.com/outletiq/reco-backend/internal/infrastructure/vectorizer"
	s3Repo "github.com/outletiq/reco-backend/internal/repository/minio"
	"github.com/outletiq/reco-backend/internal/repository/pgdb"
	pgdbConv "github.com/outletiq/reco-backend/internal/repository/pgdb/converter"
	qdrantRepo "github.com/outletiq/reco-backend/internal/repository/qdrant"
	"github.com/outletiq/reco-backend/internal/repository/redis"
	redisConv "github.com/outletiq/reco-backend/internal/repository/redis/converter"
	"github.com/outletiq/reco-backend/internal/usecase"
	"github.com/outletiq/reco-backend/pkg/clients"
	"github.com/outletiq/reco-backend/pkg/closer"
	"github.com/outletiq/reco-backend/pkg/e"
	"github.com/outletiq/reco-backend/pkg/logger"
	"github.com/outletiq/reco-backend/pkg/postgres"
	"github.com/go-chi/chi/v5"
	"github.com/jimlawless/whereami"
)

func Run() {
	logger := logger.NewSlogLogger()

	cfg, err := config.Load(logger)
	if err != nil {
		logger.Errorf(err, "failed to load config")
		os.Exit(1)
	}

	appCtx, appCancel := context.WithCancel(context.Background())
	defer appCancel()

	cl := closer.NewCloser(0)

	db, err := initPGDB(logger, cfg)
	if err != nil {
		logger.Errorf(err, "failed to initialize database")
		os.Exit(1)
	}
	cl.Add(func(ctx context.Context) error {
		db.Close()
		logger.Infof("Postgres pool closed")
		return nil
	})

	catalogRepo := pgdb.NewCatalogRepo(db.Pool, pgdbConv.ProductConverter{})
	interactionRepo := pgdb.NewInteractionRepo(db.Pool, pgdbConv.InteractionConverter{})
	similarityRepo := pgdb.NewSimilarityCacheRepo(db.Pool, pgdbConv.SimilarityCacheConverter{})
	taskRepo := pgdb.NewEmbeddingTaskRepo(db.Pool, pgdbConv.EmbeddingTaskConverter{})

	minioClient, err := clients.NewMinIOClient(cfg)
	if err != nil {
		logger.Errorf(err, "failed to initialize minio client")
		os.Exit(1)
	}

	minioCtx, minioCancel := context.WithTimeout(appCtx, 10*time.Second)
	if err := clients.EnsureBucket(minioCtx, minioClient, cfg.Minio.BucketName); err != nil {
		minioCancel()
		logger.Errorf(err, "failed to initialize MinIO bucket")
		os.Exit(1)
	}
	minioCancel()

	artifactRepo := s3Repo.NewArtifactRepo(minioClient, cfg.Minio)

	qdrantClient, err := clients.NewQdrantClient(cfg.Qdrant)
	if err != nil {
		logger.Errorf(err, "failed to initialize qdrant")
		os.Exit(1)
	}
	qdrantCtx, qdrantCancel := context.WithTimeout(appCtx, 10*time.Second)
	if err := clients.EnsureCollection(qdrantCtx, qdrantClient); err != nil {
		qdrantCancel()
		logger.Errorf(err, "failed to initialize qdrant")
		os.Exit(1)
	}
	qdrantCancel()
	cl.Add(func(ctx context.Context) error {
		return qdrantClient.Client.Close()
	})

	embRepo := qdrantRepo.NewEmbeddingRepo(qdrantClient.Client, cfg.Qdrant)

	redisClient := clients.NewRedisClient(cfg.Redis)
	redisCtx, redisCancel := context.WithTimeout(appCtx, 5*time.Second)
	if err := redisClient.Ping(redisCtx); err != nil {
		redisCancel()
		logger.Errorf(err, "failed to connect to redis")
		os.Exit(1)
	}
	redisCancel()
	cl.Add(func(ctx context.Context) error {
		return redisClient.Client.Close()
	})

	cacheRepo := redis.NewCacheRepo(redisClient, redisConv.ProductInfoConverter{}, cfg.Redis, logger)

	vecClient := vectorizer.NewClient(
		cfg.Vectorizer.BaseURL,
		cfg.Vectorizer.Timeout,
		cfg.Vectorizer.MaxConcurrent,
		cfg.Vectorizer.MaxRetries,
		logger,
	)

	producer, err := kafka.NewProducer(logger, cfg.Kafka)
	if err != nil {
		logger.Errorf(err, "failed to initialize kafka producer")
		os.Exit(1)
	}
	if err := producer.EnsureTopic(10 * time.Second); err != nil {
		// Шина событий не критична для выдачи рекомендаций
		logger.Warnf("Kafka topic check failed, events may be dropped: %v", err)
	}
	cl.Add(func(ctx context.Context) error {
		return producer.Close()
	})

	flatIndex := index.New(cfg.Index.Dimension, logger)

	resolver := usecase.NewCatalogResolver(catalogRepo, cacheRepo, logger)
	popularity := usecase.NewPopularityRecommender(interactionRepo, catalogRepo, resolver, logger)
	cfBuilder := usecase.NewCFBuilder(interactionRepo, similarityRepo, logger)

	hybrid, err := usecase.NewHybridRecommender(
		similarityRepo,
		interactionRepo,
		popularity,
		resolver,
		usecase.HybridWeights{CF: cfg.Recommender.CFWeight, Popular: cfg.Recommender.PopularWeight},
		logger,
	)
	if err != nil {
		logger.Errorf(err, "failed to initialize recommender")
		os.Exit(1)
	}

	recommendUC := usecase.NewRecommendUsecase(
		hybrid,
		popularity,
		flatIndex,
		embRepo,
		catalogRepo,
		vecClient,
		resolver,
		logger,
	)
	interactionUC := usecase.NewInteractionUsecase(interactionRepo, catalogRepo, producer, logger)
	ingestUC := usecase.NewIngestUsecase(catalogRepo, taskRepo, cacheRepo, db.Pool, logger)
	builderUC := usecase.NewBuilderUsecase(cfBuilder, embRepo, flatIndex, artifactRepo, logger)

	// Тёплый старт: пробуем поднять индекс из артефактов, чтобы визуальный
	// поиск работал сразу, не дожидаясь полной перестройки.
	warmCtx, warmCancel := context.WithTimeout(appCtx, 30*time.Second)
	builderUC.WarmStart(warmCtx)
	warmCancel()

	worker := embedjobs.NewWorker(taskRepo, embRepo, vecClient, flatIndex, logger, db.Dsn)
	worker.Start(appCtx)
	cl.Add(func(ctx context.Context) error {
		worker.Stop()
		logger.Infof("Embedding worker stopped")
		return nil
	})

	sched := scheduler.New(builderUC, cfg.Recommender, logger)
	sched.Start(appCtx)
	cl.Add(func(ctx context.Context) error {
		sched.Stop()
		logger.Infof("Scheduler stopped")
		return nil
	})

	r := chi.NewRouter()
	router := v1Http.NewRouter(r, logger)
	router.Init(recommendUC, interactionUC, ingestUC, builderUC)

	httpSrv := v1Http.NewServer(r, cfg.Http)
	cl.Add(func(ctx context.Context) error {
		return httpSrv.Stop(ctx)
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("HTTP server started on port %s", cfg.Http.Port)
		if err := httpSrv.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf(err, "HTTP server failed: %v", err)
			errCh <- err
		}
	}()

	// === Ожидание сигнала или ошибки ===
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	var appErr error
	select {
	case appErr = <-errCh:
		logger.Errorf(appErr, "HTTP server fatal error")
	case <-shutdown:
		logger.Infof("Received shutdown signal, stopping gracefully...")
	}

	// === Graceful shutdown (LIFO) ===
	appCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := cl.Close(shutdownCtx); err != nil {
		logger.Warnf("Shutdown finished with errors: %v", err)
	}

	logger.Infof("Application shutdown complete")
	if appErr != nil {
		os.Exit(1)
	}
}

func initPGDB(logger logger.Logger, cfg *config.Config) (*postgres.PgDatabase, error) {
	db, err := postgres.Connect(cfg.Db)
	if err != nil {
		logger.Errorf(err, "failed to connect to database")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	if err := db.RunMigrations(logger); err != nil {
		logger.Errorf(err, "failed to run migrations")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	if err := db.Ping(); err != nil {
		logger.Errorf(err, "failed to ping database")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return db, nil
}
