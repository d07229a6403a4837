package models

import (
	"image"
	"time"
)

// Finding is a single labeled classification with a confidence in [0,100].
type Finding struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// FeatureVector holds the cheap statistical descriptors of an image.
// It is derived once per request and never modified afterwards.
type FeatureVector struct {
	Mean     float64 `json:"mean"`
	Std      float64 `json:"std"`
	Contrast float64 `json:"contrast"`
	Width    int     `json:"width"`
	Height   int     `json:"height"`
}

// Slice returns the vector in the column order used by the tabular model.
func (f FeatureVector) Slice() []float64 {
	return []float64{f.Mean, f.Std, f.Contrast, float64(f.Width), float64(f.Height)}
}

// Severity is the advisory bucket derived from a confidence score.
type Severity string

const (
	SeverityCritical     Severity = "critical"
	SeverityHigh         Severity = "high"
	SeverityModerate     Severity = "moderate"
	SeverityLow          Severity = "low"
	SeverityInconclusive Severity = "inconclusive"
)

// AnalysisRequest is a decoded image ready for the pipeline.
type AnalysisRequest struct {
	Image       image.Image
	Width       int
	Height      int
	Channels    int // 1 for grayscale, 3 otherwise
	Extension   string
	MediaType   string
	Digest      string
	Raw         []byte
	RemoteBytes []byte // payload sent to remote services
	RemoteMedia string
	ReceivedAt  time.Time
}

// SubResult is one classifier's contribution to an ensemble analysis.
type SubResult struct {
	Model      string    `json:"model"`
	Dataset    string    `json:"dataset,omitempty"`
	TopFinding *Finding  `json:"topFinding,omitempty"`
	Findings   []Finding `json:"findings"`
	Error      string    `json:"error,omitempty"`
}

// Succeeded reports whether the classifier produced output.
func (s SubResult) Succeeded() bool {
	return s.Error == "" && s.TopFinding != nil
}

// QualityAssessment is the rule-based description of exposure and contrast.
type QualityAssessment struct {
	ImageType       string   `json:"imageType"`
	Characteristics string   `json:"characteristics"`
	Quality         string   `json:"quality"`
	Dimensions      string   `json:"dimensions"`
	MeanIntensity   float64  `json:"meanIntensity"`
	ContrastRatio   float64  `json:"contrastRatio"`
	Recommendations []string `json:"recommendations"`
}

// Attempt records what happened when a provider was consulted.
type Attempt struct {
	Provider   string `json:"provider"`
	Status     string `json:"status"`
	Reason     string `json:"reason,omitempty"`
	DurationMs int64  `json:"durationMs"`
}

// AnalysisResult is the value returned to callers of the analysis pipeline.
type AnalysisResult struct {
	ID                 string               `json:"id,omitempty"`
	Provider           string               `json:"result"`
	TopFinding         *Finding             `json:"topFinding,omitempty"`
	Findings           []Finding            `json:"findings"`
	Confidence         float64              `json:"confidence"`
	EnsembleConfidence *float64             `json:"ensembleConfidence,omitempty"`
	Severity           Severity             `json:"severity,omitempty"`
	Recommendation     string               `json:"recommendation,omitempty"`
	SubResults         map[string]SubResult `json:"subResults,omitempty"`
	Narrative          string               `json:"narrative,omitempty"`
	Assessment         *QualityAssessment   `json:"assessment,omitempty"`
	Dataset            string               `json:"dataset,omitempty"`
	Features           *FeatureVector       `json:"features,omitempty"`
	Attempts           []Attempt            `json:"attempts,omitempty"`
	ProcessingTimeSec  float64              `json:"processingTimeSec"`
	Timestamp          time.Time            `json:"timestamp"`
}
