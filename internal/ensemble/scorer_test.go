package ensemble

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"go-medical-analyzer/pkg/models"
)

func sub(model string, top float64) models.SubResult {
	f := models.Finding{Label: model + "-top", Confidence: top}
	return models.SubResult{Model: model, TopFinding: &f, Findings: []models.Finding{f}}
}

func TestTierTable(t *testing.T) {
	inputs := []float64{0, 29, 30, 49, 50, 69, 70, 84, 85, 100}
	expected := []models.Severity{
		models.SeverityInconclusive, models.SeverityInconclusive,
		models.SeverityLow, models.SeverityLow,
		models.SeverityModerate, models.SeverityModerate,
		models.SeverityHigh, models.SeverityHigh,
		models.SeverityCritical, models.SeverityCritical,
	}

	for i, in := range inputs {
		assert.Equal(t, expected[i], Tier(in), "confidence %v", in)
	}
}

func TestTierMonotonic(t *testing.T) {
	rank := map[models.Severity]int{
		models.SeverityInconclusive: 0, models.SeverityLow: 1, models.SeverityModerate: 2,
		models.SeverityHigh: 3, models.SeverityCritical: 4,
	}
	prev := -1
	for c := 0.0; c <= 100; c += 0.25 {
		r := rank[Tier(c)]
		assert.GreaterOrEqual(t, r, prev, "confidence %v", c)
		prev = r
	}
}

func TestAdvisoryIsTotal(t *testing.T) {
	for _, s := range []models.Severity{
		models.SeverityCritical, models.SeverityHigh, models.SeverityModerate,
		models.SeverityLow, models.SeverityInconclusive, models.Severity("unknown"),
	} {
		assert.NotEmpty(t, Advisory(s), string(s))
	}
	assert.Equal(t, "High confidence detection - Immediate clinical review recommended", Advisory(models.SeverityCritical))
	assert.Equal(t, Advisory(models.SeverityInconclusive), Advisory(models.Severity("unknown")))
}

func TestScoreMeanOfTopConfidences(t *testing.T) {
	scored, ok := Score([]models.SubResult{sub("a", 80), sub("b", 60)})

	assert.True(t, ok)
	assert.InDelta(t, 70.0, scored.Confidence, 1e-6)
	assert.Equal(t, models.SeverityHigh, scored.Severity)
	assert.Equal(t, "Moderate-high confidence - Further examination strongly recommended", scored.Recommendation)
}

func TestScoreThreeClassifiers(t *testing.T) {
	scored, ok := Score([]models.SubResult{sub("a", 90), sub("b", 30), sub("c", 45)})

	assert.True(t, ok)
	assert.InDelta(t, 55.0, scored.Confidence, 1e-6)
	assert.Equal(t, models.SeverityModerate, scored.Severity)
}

func TestScoreSkippedWhenIncomplete(t *testing.T) {
	failed := models.SubResult{Model: "b", Error: "timeout"}

	_, ok := Score([]models.SubResult{sub("a", 80), failed})
	assert.False(t, ok, "a failed classifier disables scoring")

	_, ok = Score([]models.SubResult{sub("a", 80)})
	assert.False(t, ok, "one classifier is not an ensemble")

	_, ok = Score(nil)
	assert.False(t, ok)
}

func TestScoreZeroTopCounts(t *testing.T) {
	// A filtered classifier with nothing above threshold still succeeded.
	scored, ok := Score([]models.SubResult{sub("a", 0), sub("b", 50)})
	assert.True(t, ok)
	assert.InDelta(t, 25.0, scored.Confidence, 1e-6)
	assert.Equal(t, models.SeverityInconclusive, scored.Severity)
}
