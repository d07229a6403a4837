package container

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"go-medical-analyzer/internal/analyzer"
	"go-medical-analyzer/internal/config"
	"go-medical-analyzer/internal/factory"
	"go-medical-analyzer/internal/logger"
	"go-medical-analyzer/internal/observer"
	"go-medical-analyzer/internal/pipeline"
	"go-medical-analyzer/internal/registry"
	"go-medical-analyzer/internal/repository"
	"go-medical-analyzer/internal/service"
	"go-medical-analyzer/internal/transport"
	"go-medical-analyzer/pkg/validation"
)

// Container holds all application dependencies
type Container struct {
	config          *config.Config
	registry        *registry.ModelRegistry
	metrics         *observer.MetricsObserver
	db              *gorm.DB
	pixelPool       *analyzer.WorkerPool
	analysisService service.AnalysisService
	handler         http.Handler
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *config.Config) (*Container, error) {
	logger.SetLevel(cfg.LogLevel)

	manifest, err := config.LoadManifest(cfg.ModelManifest)
	if err != nil {
		return nil, err
	}

	// Build dependency graph
	store, err := factory.NewStorageFactory(cfg).CreateStorage(factory.StorageType(cfg.ArtifactSource))
	if err != nil {
		return nil, fmt.Errorf("failed to create artifact store: %w", err)
	}
	modelRegistry := registry.New(store)

	chain, err := factory.NewProviderFactory(cfg, manifest, modelRegistry).CreateChain(cfg.ProviderOrder)
	if err != nil {
		return nil, fmt.Errorf("failed to build provider chain: %w", err)
	}

	metrics := observer.NewMetricsObserver()
	events := observer.NewPublisher(observer.NewLoggingObserver(logger.Logger), metrics)
	pixelPool := analyzer.NewWorkerPool(0)
	extractor := analyzer.NewFeatureExtractorWithPool(pixelPool)
	orchestrator := pipeline.NewOrchestrator(chain, extractor, cfg.ProviderTimeout, events)

	c := &Container{
		config:    cfg,
		registry:  modelRegistry,
		metrics:   metrics,
		pixelPool: pixelPool,
	}

	var history repository.AnalysisRepository
	if cfg.HistoryDBPath != "" {
		db, err := repository.OpenSQLite(cfg.HistoryDBPath)
		if err != nil {
			return nil, err
		}
		c.db = db
		history = repository.NewSQLiteRepository(db)
	}

	validator := validation.NewUploadValidator(cfg.MaxRequestBodySize)
	decoder := analyzer.NewDecoderWithLimits(validation.DimensionLimits{
		MaxWidth:       cfg.MaxImageSide,
		MaxHeight:      cfg.MaxImageSide,
		MaxTotalPixels: cfg.MaxImagePixels,
	})
	c.analysisService = service.NewAnalysisService(service.Dependencies{
		Validator: validator,
		Decoder:   decoder,
		Runner:    orchestrator,
		History:   history,
		Cache:     newCache(cfg),
	})
	c.handler = transport.NewHandler(c.analysisService, validator, metrics, cfg)

	logger.WithFields(logrus.Fields{
		"providers":       orchestrator.Providers(),
		"artifact_store":  store.Location(),
		"classifiers":     len(manifest.Classifiers),
		"remote_enabled":  cfg.RemoteEnabled(),
		"history_enabled": history != nil,
	}).Info("Analysis pipeline configured")

	return c, nil
}

// newCache connects to redis when configured. A cache that cannot be
// reached is logged and replaced by a no-op cache.
func newCache(cfg *config.Config) repository.ResultCache {
	if cfg.RedisAddr == "" {
		return repository.NoopCache{}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cache, err := repository.NewRedisCache(ctx, repository.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		TTL:      cfg.CacheTTL,
	})
	if err != nil {
		logger.WithError(err).WithField("addr", cfg.RedisAddr).Warn("Result cache disabled")
		return repository.NoopCache{}
	}
	return cache
}

// Handler returns the HTTP handler
func (c *Container) Handler() http.Handler {
	return c.handler
}

// Config returns the configuration
func (c *Container) Config() *config.Config {
	return c.config
}

// Service returns the analysis service
func (c *Container) Service() service.AnalysisService {
	return c.analysisService
}

// Metrics returns the pipeline counters
func (c *Container) Metrics() *observer.MetricsObserver {
	return c.metrics
}

// Close stops the pixel worker pool and releases the history database
func (c *Container) Close() error {
	c.pixelPool.Close()
	if c.db == nil {
		return nil
	}
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
