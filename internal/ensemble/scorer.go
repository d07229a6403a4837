// Package ensemble turns raw classifier outputs into ranked findings and
// combines several classifiers into one confidence and severity tier.
package ensemble

import (
	"go-medical-analyzer/pkg/models"
)

// MinClassifiers is the smallest ensemble the scorer will combine.
const MinClassifiers = 2

var advisories = map[models.Severity]string{
	models.SeverityCritical:     "High confidence detection - Immediate clinical review recommended",
	models.SeverityHigh:         "Moderate-high confidence - Further examination strongly recommended",
	models.SeverityModerate:     "Moderate confidence - Additional imaging and clinical correlation needed",
	models.SeverityLow:          "Low-moderate confidence - Clinical correlation required",
	models.SeverityInconclusive: "Low confidence - Inconclusive results, professional radiologist evaluation required",
}

// Scored is the combined view of a complete ensemble run.
type Scored struct {
	Confidence     float64
	Severity       models.Severity
	Recommendation string
}

// Tier maps a confidence in [0,100] to a severity. Thresholds are checked
// from the highest down and the first match wins.
func Tier(confidence float64) models.Severity {
	switch {
	case confidence >= 85:
		return models.SeverityCritical
	case confidence >= 70:
		return models.SeverityHigh
	case confidence >= 50:
		return models.SeverityModerate
	case confidence >= 30:
		return models.SeverityLow
	default:
		return models.SeverityInconclusive
	}
}

// Advisory returns the fixed advisory text for a severity. Unknown values
// get the inconclusive text.
func Advisory(s models.Severity) string {
	if text, ok := advisories[s]; ok {
		return text
	}
	return advisories[models.SeverityInconclusive]
}

// Score averages the top confidence of each classifier. It only applies when
// at least MinClassifiers results are present and none of them failed.
func Score(subs []models.SubResult) (Scored, bool) {
	if len(subs) < MinClassifiers {
		return Scored{}, false
	}
	var sum float64
	for _, s := range subs {
		if !s.Succeeded() {
			return Scored{}, false
		}
		sum += s.TopFinding.Confidence
	}
	mean := sum / float64(len(subs))
	tier := Tier(mean)
	return Scored{
		Confidence:     mean,
		Severity:       tier,
		Recommendation: Advisory(tier),
	}, true
}
