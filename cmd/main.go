package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"productcatalog/internal/app/catalog/config"
	"productcatalog/internal/app/catalog/entity"
	"productcatalog/internal/app/catalog/handler"
	"productcatalog/internal/app/catalog/repository"
	"productcatalog/internal/app/catalog/search"
	"productcatalog/internal/app/catalog/service"
	"productcatalog/internal/app/catalog/util"
	"productcatalog/pkg/logger"
)

const serviceName = "catalog"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(serviceName, cfg.LogLevel)

	// === POSTGRESQL ===
	db, err := connectDB(cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to database")
	}
	logger.Info().Msg("Successfully connected to PostgreSQL")

	if err := migrate(db); err != nil {
		logger.Fatal().Err(err).Msg("Failed to run migrations")
	}

	// === REDIS ===
	redisClient, err := util.NewRedisClient(
		cfg.Redis.Address(),
		cfg.Redis.Password,
		cfg.Redis.DB,
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer redisClient.Close()
	logger.Info().Msg("Successfully connected to Redis")

	// === KAFKA ===
	kafkaProducer := util.NewKafkaProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	defer kafkaProducer.Close()
	logger.Info().Str("topic", cfg.Kafka.Topic).Msg("Kafka producer initialized")

	// === ELASTICSEARCH ===
	// Недоступный индекс не мешает запуску: сервис деградирует до
	// пустых результатов поиска, CRUD продолжает работать
	esClient, err := search.NewElasticClient(cfg.Elasticsearch.URL)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create Elasticsearch client")
	}
	productIndex := search.NewProductIndex(esClient, cfg.Elasticsearch.Index)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := productIndex.EnsureIndex(ctx); err != nil {
		logger.Warn().Err(err).Msg("Failed to ensure search index, search will degrade to empty results")
	} else {
		logger.Info().Str("index", cfg.Elasticsearch.Index).Msg("Search index ready")
	}
	cancel()

	// === СБОРКА СЛОЕВ ===
	productRepo := repository.NewProductRepository(db)
	categoryRepo := repository.NewCategoryRepository(db, productRepo)
	reviewRepo := repository.NewReviewRepository(db)

	catalogService := service.NewCatalogService(productRepo, categoryRepo, productIndex, redisClient, kafkaProducer)
	reviewService := service.NewReviewService(reviewRepo, productRepo)

	productHandler := handler.NewProductHandler(catalogService)
	categoryHandler := handler.NewCategoryHandler(catalogService)
	reviewHandler := handler.NewReviewHandler(reviewService)

	router := handler.SetupRoutes(productHandler, categoryHandler, reviewHandler)

	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("address", cfg.Server.Address()).Msg("Starting catalog service")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// === GRACEFUL SHUTDOWN ===
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down catalog service")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Info().Msg("Catalog service stopped gracefully")
}

// connectDB подключается к PostgreSQL через gorm с повторными попытками
// При запуске в Docker база может быть еще не готова
func connectDB(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var db *gorm.DB
	var err error

	for i := 0; i < 10; i++ {
		db, err = gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{})
		if err == nil {
			return db, nil
		}
		logger.Warn().Err(err).Int("attempt", i+1).Msg("Failed to connect to database, retrying")
		time.Sleep(3 * time.Second)
	}

	return nil, fmt.Errorf("failed to connect after 10 attempts: %w", err)
}

// migrate приводит схему БД к актуальному состоянию
// Помимо AutoMigrate создается частичный уникальный индекс: один активный
// отзыв на товар от пользователя, мягко удаленные отзывы не мешают повторному
func migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&entity.Category{}, &entity.Product{}, &entity.ProductReview{}); err != nil {
		return fmt.Errorf("failed to auto migrate: %w", err)
	}

	if err := db.Exec(
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_product_reviews_product_user
		 ON product_reviews (product_id, user_uid) WHERE deleted_at IS NULL`,
	).Error; err != nil {
		return fmt.Errorf("failed to create review unique index: %w", err)
	}

	return nil
}
