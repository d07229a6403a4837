package ensemble

import (
	"sort"

	"go-medical-analyzer/pkg/models"
)

// DefaultTopK is how many findings are kept per classifier and per result.
const DefaultTopK = 5

// NoAbnormalities is reported when a threshold removes every label.
const NoAbnormalities = "No abnormalities detected"

// RankFindings converts per-label probabilities in [0,1] into findings in
// percent, drops findings at or below minConfidence when it is positive,
// sorts by confidence descending with ties kept in vocabulary order and
// keeps at most topK.
func RankFindings(labels []string, probs []float64, minConfidence float64, topK int) []models.Finding {
	findings := make([]models.Finding, 0, len(labels))
	for i, label := range labels {
		if i >= len(probs) {
			break
		}
		conf := probs[i] * 100
		if minConfidence > 0 && conf <= minConfidence {
			continue
		}
		findings = append(findings, models.Finding{Label: label, Confidence: conf})
	}
	SortFindings(findings)
	return Truncate(findings, topK)
}

// TopOf returns the first finding, or the no-abnormality placeholder with
// zero confidence when the list is empty.
func TopOf(findings []models.Finding) models.Finding {
	if len(findings) == 0 {
		return models.Finding{Label: NoAbnormalities, Confidence: 0}
	}
	return findings[0]
}

// SortFindings orders findings by confidence descending. The sort is stable
// so equal confidences keep their input order.
func SortFindings(findings []models.Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		return findings[i].Confidence > findings[j].Confidence
	})
}

// Truncate keeps at most n findings. A non-positive n means DefaultTopK.
func Truncate(findings []models.Finding, n int) []models.Finding {
	if n <= 0 {
		n = DefaultTopK
	}
	if len(findings) > n {
		return findings[:n]
	}
	return findings
}

// MergeFindings combines the findings of several classifiers. A label
// reported by more than one classifier keeps its highest confidence. The
// result is ranked and truncated to topK.
func MergeFindings(subs []models.SubResult, topK int) []models.Finding {
	index := make(map[string]int)
	var merged []models.Finding
	for _, s := range subs {
		for _, f := range s.Findings {
			if i, ok := index[f.Label]; ok {
				if f.Confidence > merged[i].Confidence {
					merged[i].Confidence = f.Confidence
				}
				continue
			}
			index[f.Label] = len(merged)
			merged = append(merged, f)
		}
	}
	SortFindings(merged)
	return Truncate(merged, topK)
}
