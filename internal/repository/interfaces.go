package repository

import (
	"context"

	"go-medical-analyzer/pkg/models"
)

// AnalysisRepository defines the interface for analysis history operations
type AnalysisRepository interface {
	// Save stores an analysis result under its ID
	Save(ctx context.Context, result *models.AnalysisResult) error

	// Get retrieves a stored analysis result
	Get(ctx context.Context, id string) (*models.AnalysisResult, error)

	// Recent returns the latest results, newest first
	Recent(ctx context.Context, limit int) ([]*models.AnalysisResult, error)
}

// ResultCache stores finished analyses keyed by image digest and options
type ResultCache interface {
	Get(ctx context.Context, key string) (*models.AnalysisResult, bool, error)
	Put(ctx context.Context, key string, result *models.AnalysisResult) error
}
