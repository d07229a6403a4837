package analyzer

import (
	"go-medical-analyzer/pkg/models"
)

// Decoder turns uploaded bytes into a pipeline request.
type Decoder interface {
	Decode(data []byte, ext string) (*models.AnalysisRequest, error)
}

// FeatureExtractor computes the statistical descriptors of a decoded image.
// Implementations must be deterministic.
type FeatureExtractor interface {
	Extract(req *models.AnalysisRequest) (models.FeatureVector, error)
}

// HeuristicAnalyzer produces a rule-based quality assessment from features.
type HeuristicAnalyzer interface {
	Assess(fv models.FeatureVector) models.QualityAssessment
}
