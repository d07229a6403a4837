package classifier

import (
	"fmt"
	"io"

	"github.com/bytedance/sonic"
)

// Tree is one decision tree in the array layout scikit-learn exports:
// node i splits on Feature[i] at Threshold[i], going left when the value is
// less than or equal to the threshold. A node whose left child is -1 is a
// leaf and Value[i] holds its per-class sample counts.
type Tree struct {
	ChildrenLeft  []int       `json:"children_left"`
	ChildrenRight []int       `json:"children_right"`
	Feature       []int       `json:"feature"`
	Threshold     []float64   `json:"threshold"`
	Value         [][]float64 `json:"value"`
}

// Forest is a random forest classifier exported to JSON.
type Forest struct {
	Classes      []string `json:"classes"`
	FeatureNames []string `json:"feature_names,omitempty"`
	NFeatures    int      `json:"n_features"`
	Trees        []Tree   `json:"trees"`
}

// LoadForest decodes and validates a forest artifact.
func LoadForest(r io.Reader) (*Forest, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read forest: %w", err)
	}
	var f Forest
	if err := sonic.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("decode forest: %w", err)
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

func (f *Forest) validate() error {
	if len(f.Classes) == 0 {
		return fmt.Errorf("forest has no classes")
	}
	if f.NFeatures <= 0 {
		return fmt.Errorf("forest has no features")
	}
	if len(f.Trees) == 0 {
		return fmt.Errorf("forest has no trees")
	}
	for ti, t := range f.Trees {
		n := len(t.ChildrenLeft)
		if n == 0 || len(t.ChildrenRight) != n || len(t.Feature) != n || len(t.Threshold) != n || len(t.Value) != n {
			return fmt.Errorf("tree %d: node arrays differ in length", ti)
		}
		for i := 0; i < n; i++ {
			if len(t.Value[i]) != len(f.Classes) {
				return fmt.Errorf("tree %d node %d: %d values for %d classes", ti, i, len(t.Value[i]), len(f.Classes))
			}
			if t.ChildrenLeft[i] == -1 {
				continue
			}
			if t.ChildrenLeft[i] <= i || t.ChildrenLeft[i] >= n || t.ChildrenRight[i] <= i || t.ChildrenRight[i] >= n {
				return fmt.Errorf("tree %d node %d: child index out of range", ti, i)
			}
			if t.Feature[i] < 0 || t.Feature[i] >= f.NFeatures {
				return fmt.Errorf("tree %d node %d: feature %d out of range", ti, i, t.Feature[i])
			}
		}
	}
	return nil
}

// Probabilities returns the mean of each tree's normalized leaf distribution.
func (f *Forest) Probabilities(x []float64) ([]float64, error) {
	if len(x) != f.NFeatures {
		return nil, fmt.Errorf("forest expects %d features, got %d", f.NFeatures, len(x))
	}
	probs := make([]float64, len(f.Classes))
	for _, t := range f.Trees {
		node := 0
		for t.ChildrenLeft[node] != -1 {
			if x[t.Feature[node]] <= t.Threshold[node] {
				node = t.ChildrenLeft[node]
			} else {
				node = t.ChildrenRight[node]
			}
		}
		leaf := t.Value[node]
		var total float64
		for _, v := range leaf {
			total += v
		}
		if total == 0 {
			continue
		}
		for c, v := range leaf {
			probs[c] += v / total
		}
	}
	for c := range probs {
		probs[c] /= float64(len(f.Trees))
	}
	return probs, nil
}

// Predict returns the most probable class and its probability. Ties go to
// the class listed first.
func (f *Forest) Predict(x []float64) (string, float64, error) {
	probs, err := f.Probabilities(x)
	if err != nil {
		return "", 0, err
	}
	best := 0
	for c := 1; c < len(probs); c++ {
		if probs[c] > probs[best] {
			best = c
		}
	}
	return f.Classes[best], probs[best], nil
}
