package analyzer

import (
	"reflect"
	"testing"

	"go-medical-analyzer/pkg/models"
)

func TestBrightnessBand_Boundaries(t *testing.T) {
	thresholds := DefaultThresholds()

	tests := []struct {
		mean     float64
		expected Brightness
	}{
		{0, BrightnessDark},
		{49.999, BrightnessDark},
		{50, BrightnessNormal},
		{128, BrightnessNormal},
		{200, BrightnessNormal},
		{200.001, BrightnessBright},
		{255, BrightnessBright},
	}

	for _, tt := range tests {
		if got := thresholds.BrightnessBand(tt.mean); got != tt.expected {
			t.Errorf("BrightnessBand(%v) = %v, expected %v", tt.mean, got, tt.expected)
		}
	}
}

func TestContrastBand_Boundaries(t *testing.T) {
	thresholds := DefaultThresholds()

	tests := []struct {
		contrast float64
		expected Contrast
	}{
		{0, ContrastLow},
		{0.299, ContrastLow},
		{0.3, ContrastModerate},
		{1.5, ContrastModerate},
		{1.501, ContrastHigh},
	}

	for _, tt := range tests {
		if got := thresholds.ContrastBand(tt.contrast); got != tt.expected {
			t.Errorf("ContrastBand(%v) = %v, expected %v", tt.contrast, got, tt.expected)
		}
	}
}

func TestAssess(t *testing.T) {
	h := NewHeuristicAnalyzer()

	tests := []struct {
		name            string
		fv              models.FeatureVector
		imageType       string
		quality         string
		recommendations []string
	}{
		{
			name:            "normal and moderate",
			fv:              models.FeatureVector{Mean: 120, Contrast: 0.8, Width: 512, Height: 512},
			imageType:       "Normal Intensity Image",
			quality:         "Moderate Contrast - Acceptable quality",
			recommendations: []string{RecommendSuitable},
		},
		{
			name:            "dark and low contrast",
			fv:              models.FeatureVector{Mean: 20, Contrast: 0.1},
			imageType:       "Dark/Low Intensity Image",
			quality:         "Low Contrast - May affect diagnosis",
			recommendations: []string{RecommendIncreaseExposure, RecommendImproveContrast},
		},
		{
			name:            "bright and high contrast",
			fv:              models.FeatureVector{Mean: 230, Contrast: 2},
			imageType:       "Bright/High Intensity Image",
			quality:         "High Contrast - Good for analysis",
			recommendations: []string{RecommendReduceExposure},
		},
		{
			name:            "lower brightness edge is normal",
			fv:              models.FeatureVector{Mean: 50, Contrast: 0.5},
			imageType:       "Normal Intensity Image",
			quality:         "Moderate Contrast - Acceptable quality",
			recommendations: []string{RecommendSuitable},
		},
		{
			name:            "upper brightness edge is normal",
			fv:              models.FeatureVector{Mean: 200, Contrast: 0.5},
			imageType:       "Normal Intensity Image",
			quality:         "Moderate Contrast - Acceptable quality",
			recommendations: []string{RecommendSuitable},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := h.Assess(tt.fv)
			if a.ImageType != tt.imageType {
				t.Errorf("ImageType = %q, expected %q", a.ImageType, tt.imageType)
			}
			if a.Quality != tt.quality {
				t.Errorf("Quality = %q, expected %q", a.Quality, tt.quality)
			}
			if !reflect.DeepEqual(a.Recommendations, tt.recommendations) {
				t.Errorf("Recommendations = %v, expected %v", a.Recommendations, tt.recommendations)
			}
		})
	}
}

func TestAssess_CustomThresholds(t *testing.T) {
	h := NewHeuristicAnalyzerWithThresholds(HeuristicThresholds{
		DarkBelow: 100, BrightAbove: 150, LowContrastBelow: 0.5, HighContrastAbove: 1,
	})

	a := h.Assess(models.FeatureVector{Mean: 90, Contrast: 0.6, Width: 10, Height: 20})
	if a.ImageType != "Dark/Low Intensity Image" {
		t.Errorf("Expected dark image with custom thresholds, got %q", a.ImageType)
	}
	if a.Dimensions != "10x20 pixels" {
		t.Errorf("Unexpected dimensions %q", a.Dimensions)
	}
}
