package analyzer

import (
	"fmt"

	"go-medical-analyzer/pkg/models"
)

// HeuristicThresholds defines the brightness and contrast band edges.
// Intensities are on a 0-255 scale.
type HeuristicThresholds struct {
	DarkBelow         float64
	BrightAbove       float64
	LowContrastBelow  float64
	HighContrastAbove float64
}

// DefaultThresholds returns the band edges used for chest radiographs.
func DefaultThresholds() HeuristicThresholds {
	return HeuristicThresholds{
		DarkBelow:         50.0,
		BrightAbove:       200.0,
		LowContrastBelow:  0.3,
		HighContrastAbove: 1.5,
	}
}

// Brightness band of an image.
type Brightness int

const (
	BrightnessNormal Brightness = iota
	BrightnessDark
	BrightnessBright
)

// Contrast band of an image.
type Contrast int

const (
	ContrastModerate Contrast = iota
	ContrastLow
	ContrastHigh
)

const (
	RecommendIncreaseExposure = "Increase brightness/exposure for better visibility"
	RecommendReduceExposure   = "Reduce brightness/exposure to prevent overexposure"
	RecommendImproveContrast  = "Improve contrast for better diagnostic accuracy"
	RecommendSuitable         = "Image quality is suitable for analysis"
)

// heuristicAnalyzer classifies exposure and contrast without a trained model.
type heuristicAnalyzer struct {
	thresholds HeuristicThresholds
}

// NewHeuristicAnalyzer creates a heuristic analyzer with default thresholds
func NewHeuristicAnalyzer() HeuristicAnalyzer {
	return &heuristicAnalyzer{thresholds: DefaultThresholds()}
}

// NewHeuristicAnalyzerWithThresholds creates a heuristic analyzer with custom thresholds
func NewHeuristicAnalyzerWithThresholds(thresholds HeuristicThresholds) HeuristicAnalyzer {
	return &heuristicAnalyzer{thresholds: thresholds}
}

// BrightnessBand places a mean intensity in a band. The edges themselves
// count as normal.
func (t HeuristicThresholds) BrightnessBand(mean float64) Brightness {
	switch {
	case mean < t.DarkBelow:
		return BrightnessDark
	case mean > t.BrightAbove:
		return BrightnessBright
	default:
		return BrightnessNormal
	}
}

// ContrastBand places a contrast ratio in a band. The edges count as moderate.
func (t HeuristicThresholds) ContrastBand(contrast float64) Contrast {
	switch {
	case contrast < t.LowContrastBelow:
		return ContrastLow
	case contrast > t.HighContrastAbove:
		return ContrastHigh
	default:
		return ContrastModerate
	}
}

func (h *heuristicAnalyzer) Assess(fv models.FeatureVector) models.QualityAssessment {
	a := models.QualityAssessment{
		Dimensions:    fmt.Sprintf("%dx%d pixels", fv.Width, fv.Height),
		MeanIntensity: fv.Mean,
		ContrastRatio: fv.Contrast,
	}

	var recommendations []string
	switch h.thresholds.BrightnessBand(fv.Mean) {
	case BrightnessDark:
		a.ImageType = "Dark/Low Intensity Image"
		a.Characteristics = "Low brightness, may indicate underexposed scan"
		recommendations = append(recommendations, RecommendIncreaseExposure)
	case BrightnessBright:
		a.ImageType = "Bright/High Intensity Image"
		a.Characteristics = "High brightness, may indicate overexposed scan"
		recommendations = append(recommendations, RecommendReduceExposure)
	default:
		a.ImageType = "Normal Intensity Image"
		a.Characteristics = "Optimal brightness levels detected"
	}

	switch h.thresholds.ContrastBand(fv.Contrast) {
	case ContrastLow:
		a.Quality = "Low Contrast - May affect diagnosis"
		recommendations = append(recommendations, RecommendImproveContrast)
	case ContrastHigh:
		a.Quality = "High Contrast - Good for analysis"
	default:
		a.Quality = "Moderate Contrast - Acceptable quality"
	}

	if len(recommendations) == 0 {
		recommendations = []string{RecommendSuitable}
	}
	a.Recommendations = recommendations
	return a
}
