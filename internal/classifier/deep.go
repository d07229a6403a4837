package classifier

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"math"

	"go-medical-analyzer/internal/config"
)

var (
	hdf5Signature  = []byte("\x89HDF\r\n\x1a\n")
	kerasSignature = []byte("PK\x03\x04")
)

// PredictorFactory binds a predictor to a classifier.
type PredictorFactory func(spec config.ClassifierSpec) Predictor

// DeepModel is a loaded ensemble member. It is immutable after load.
type DeepModel struct {
	Spec      config.ClassifierSpec
	predictor Predictor
}

// NewDeepModel wraps a predictor without reading an artifact.
func NewDeepModel(spec config.ClassifierSpec, predictor Predictor) *DeepModel {
	return &DeepModel{Spec: spec, predictor: predictor}
}

// LoadDeepModel returns a registry loader that checks the weight file
// signature before binding the classifier to its predictor.
func LoadDeepModel(spec config.ClassifierSpec, factory PredictorFactory) func(io.Reader) (*DeepModel, error) {
	return func(r io.Reader) (*DeepModel, error) {
		header := make([]byte, len(hdf5Signature))
		n, err := io.ReadFull(r, header)
		if err != nil && n < len(kerasSignature) {
			return nil, fmt.Errorf("read weight header: %w", err)
		}
		if !bytes.Equal(header[:n], hdf5Signature) && !bytes.HasPrefix(header[:n], kerasSignature) {
			return nil, fmt.Errorf("%s is not an HDF5 or Keras weight file", spec.Artifact)
		}
		return NewDeepModel(spec, factory(spec)), nil
	}
}

// Classify returns one probability in [0,1] per vocabulary label.
func (m *DeepModel) Classify(ctx context.Context, img image.Image) ([]float64, error) {
	probs, err := m.predictor.Predict(ctx, Preprocess(img))
	if err != nil {
		return nil, err
	}
	if len(probs) != len(m.Spec.Labels) {
		return nil, fmt.Errorf("%s returned %d outputs for %d labels", m.Spec.Name, len(probs), len(m.Spec.Labels))
	}
	for i, p := range probs {
		if math.IsNaN(p) || p < 0 || p > 1 {
			return nil, fmt.Errorf("%s output %d out of range: %v", m.Spec.Name, i, p)
		}
	}
	return probs, nil
}
