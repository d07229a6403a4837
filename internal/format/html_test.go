package format

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-medical-analyzer/pkg/models"
)

func TestHTMLNarrative(t *testing.T) {
	out, err := HTML(&models.AnalysisResult{
		Provider:  "remote_vision",
		Narrative: "This chest X-ray suggests **Pneumonia**.\n\n| a | b |\n|---|---|\n| 1 | 2 |\n\n<script>alert(1)</script>",
	})
	require.NoError(t, err)

	assert.Contains(t, out, "<strong>Pneumonia</strong>")
	assert.Contains(t, out, "<table>")
	assert.NotContains(t, out, "<script>")
}

func TestHTMLEnsemble(t *testing.T) {
	conf := 70.0
	result := &models.AnalysisResult{
		Provider:           "deep_ensemble",
		EnsembleConfidence: &conf,
		Recommendation:     "Moderate-high confidence - Further examination strongly recommended",
		SubResults: map[string]models.SubResult{
			"mobilenet_mimic": {
				Model:      "mobilenet_mimic",
				TopFinding: &models.Finding{Label: "Normal", Confidence: 60},
				Findings: []models.Finding{
					{Label: "Normal", Confidence: 60}, {Label: "Effusion", Confidence: 40},
					{Label: "Opacity", Confidence: 30}, {Label: "Pneumonia", Confidence: 20},
				},
			},
			"densenet_chexpert": {Model: "densenet_chexpert", Error: "classifier timed out"},
		},
	}

	out, err := HTML(result)
	require.NoError(t, err)

	assert.Contains(t, out, "Combined Confidence Score:</strong> 70.00%")
	assert.Contains(t, out, "Further examination strongly recommended")
	assert.Contains(t, out, "<li>Opacity: 30.00%</li>")
	assert.NotContains(t, out, "Pneumonia", "only three findings per classifier are listed")
	assert.Contains(t, out, "classifier timed out")
	assert.Less(t, strings.Index(out, "densenet_chexpert"), strings.Index(out, "mobilenet_mimic"))

	again, err := HTML(result)
	require.NoError(t, err)
	assert.Equal(t, out, again)
}

func TestHTMLHeuristicEscapes(t *testing.T) {
	out, err := HTML(&models.AnalysisResult{
		Provider: "tabular_heuristic",
		Findings: []models.Finding{{Label: "<b>diagnostic</b>", Confidence: 75}},
		Assessment: &models.QualityAssessment{
			ImageType:       "Normal Intensity Image",
			Quality:         "Moderate Contrast - Acceptable quality",
			Dimensions:      "512x512 pixels",
			Recommendations: []string{"Image quality is suitable for analysis"},
		},
		Dataset: "Random forest over image statistics",
	})
	require.NoError(t, err)

	assert.Contains(t, out, "&lt;b&gt;diagnostic&lt;/b&gt;: 75.00%")
	assert.Contains(t, out, "512x512 pixels")
	assert.Contains(t, out, "<li>Image quality is suitable for analysis</li>")
	assert.Contains(t, out, "Random forest over image statistics")
}

func TestHTMLNil(t *testing.T) {
	_, err := HTML(nil)
	assert.Error(t, err)
}
