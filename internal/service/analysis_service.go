package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"go-medical-analyzer/internal/analyzer"
	apperrors "go-medical-analyzer/internal/errors"
	"go-medical-analyzer/internal/logger"
	"go-medical-analyzer/internal/pipeline"
	"go-medical-analyzer/internal/provider"
	"go-medical-analyzer/internal/repository"
	"go-medical-analyzer/pkg/models"
	"go-medical-analyzer/pkg/validation"
)

// AnalysisService is the entry point for uploaded images
type AnalysisService interface {
	// Analyze validates and decodes the upload, then runs the provider chain
	Analyze(ctx context.Context, data []byte, ext string, opts pipeline.RunOptions) (*models.AnalysisResult, error)

	// Get returns a stored analysis by ID
	Get(ctx context.Context, id string) (*models.AnalysisResult, error)

	// History returns the latest stored analyses
	History(ctx context.Context, limit int) ([]*models.AnalysisResult, error)

	// Providers lists the fallback chain in priority order
	Providers() []string
}

// Runner executes the provider fallback chain
type Runner interface {
	Run(ctx context.Context, req *models.AnalysisRequest, opts pipeline.RunOptions) (*models.AnalysisResult, error)
	Providers() []provider.Provider
}

// Dependencies groups the collaborators of the analysis service. History
// may be nil, which disables persistence. Cache may be nil.
type Dependencies struct {
	Validator *validation.UploadValidator
	Decoder   analyzer.Decoder
	Runner    Runner
	History   repository.AnalysisRepository
	Cache     repository.ResultCache
}

type analysisService struct {
	validator *validation.UploadValidator
	decoder   analyzer.Decoder
	runner    Runner
	history   repository.AnalysisRepository
	cache     repository.ResultCache
}

// NewAnalysisService creates a new analysis service
func NewAnalysisService(deps Dependencies) AnalysisService {
	cache := deps.Cache
	if cache == nil {
		cache = repository.NoopCache{}
	}
	validator := deps.Validator
	if validator == nil {
		validator = validation.NewUploadValidator(0)
	}
	return &analysisService{
		validator: validator,
		decoder:   deps.Decoder,
		runner:    deps.Runner,
		history:   deps.History,
		cache:     cache,
	}
}

func (s *analysisService) Analyze(ctx context.Context, data []byte, ext string, opts pipeline.RunOptions) (*models.AnalysisResult, error) {
	if err := s.validator.ValidateExtension(ext); err != nil {
		return nil, err
	}
	if err := s.validator.ValidateSize(int64(len(data))); err != nil {
		return nil, err
	}

	req, err := s.decoder.Decode(data, ext)
	if err != nil {
		return nil, err
	}
	req.ReceivedAt = time.Now().UTC()

	fields := logrus.Fields{
		"digest":    req.Digest,
		"extension": req.Extension,
		"width":     req.Width,
		"height":    req.Height,
	}

	key := req.Digest + "|" + opts.Key()
	cached, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		logger.WithFields(fields).WithError(err).Warn("Result cache lookup failed")
	}
	if ok {
		logger.WithFields(fields).WithField("id", cached.ID).Debug("Serving cached analysis")
		return cached, nil
	}

	result, err := s.runner.Run(ctx, req, opts)
	if err != nil {
		return nil, err
	}
	result.ID = uuid.NewString()

	if s.history != nil {
		if err := s.history.Save(ctx, result); err != nil {
			logger.WithFields(fields).WithError(err).Warn("Failed to store analysis history")
		}
	}
	if cacheable(result) {
		if err := s.cache.Put(ctx, key, result); err != nil {
			logger.WithFields(fields).WithError(err).Warn("Failed to cache analysis")
		}
	}

	fields["id"] = result.ID
	fields["provider"] = result.Provider
	fields["processing_time_sec"] = result.ProcessingTimeSec
	logger.WithFields(fields).Info("Image analysis completed successfully")
	return result, nil
}

// cacheable reports whether no higher-priority provider failed on the way to
// result. A fallback reached through a failure is not cached so the failed
// provider is tried again on the next request.
func cacheable(result *models.AnalysisResult) bool {
	for _, a := range result.Attempts {
		if a.Status == provider.StatusFailure.String() {
			return false
		}
	}
	return true
}

func (s *analysisService) Get(ctx context.Context, id string) (*models.AnalysisResult, error) {
	if s.history == nil {
		return nil, apperrors.NewNotFoundError("analysis history is disabled", nil)
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperrors.NewValidationError("invalid analysis id", err)
	}
	res, err := s.history.Get(ctx, id)
	if errors.Is(err, repository.ErrAnalysisNotFound) {
		return nil, apperrors.NewNotFoundError("analysis not found", err)
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to load analysis", err)
	}
	return res, nil
}

func (s *analysisService) History(ctx context.Context, limit int) ([]*models.AnalysisResult, error) {
	if s.history == nil {
		return []*models.AnalysisResult{}, nil
	}
	res, err := s.history.Recent(ctx, limit)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list analyses", err)
	}
	return res, nil
}

func (s *analysisService) Providers() []string {
	providers := s.runner.Providers()
	names := make([]string, len(providers))
	for i, p := range providers {
		names[i] = p.Name()
	}
	return names
}
