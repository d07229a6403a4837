package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ClassifierSpec describes one deep classifier of the ensemble.
type ClassifierSpec struct {
	Name          string   `yaml:"name"`
	Architecture  string   `yaml:"architecture"`
	Artifact      string   `yaml:"artifact"`
	ServingName   string   `yaml:"serving_name"`
	Dataset       string   `yaml:"dataset"`
	Labels        []string `yaml:"labels"`
	MinConfidence float64  `yaml:"min_confidence"`
	TopK          int      `yaml:"top_k"`
}

// Manifest lists the classifiers that make up the deep ensemble.
type Manifest struct {
	Classifiers []ClassifierSpec `yaml:"classifiers"`
}

// DefaultManifest returns the two chest X-ray classifiers the service ships with.
func DefaultManifest() *Manifest {
	return &Manifest{
		Classifiers: []ClassifierSpec{
			{
				Name:         "densenet_chexpert",
				Architecture: "DenseNet121",
				Artifact:     "densenet_chexpert.h5",
				ServingName:  "densenet_chexpert",
				Dataset:      "CheXpert (224,316 chest X-rays)",
				Labels: []string{
					"Atelectasis", "Cardiomegaly", "Consolidation", "Edema",
					"Effusion", "Emphysema", "Fibrosis", "Fracture",
					"Infiltration", "Lesion", "Nodule", "Pleural Thickening",
					"Pneumonia", "Pneumothorax",
				},
				MinConfidence: 30,
				TopK:          5,
			},
			{
				Name:         "mobilenet_mimic",
				Architecture: "MobileNetV2",
				Artifact:     "mobilenet_mimic.h5",
				ServingName:  "mobilenet_mimic",
				Dataset:      "MIMIC-CXR (377,110 chest X-rays with reports)",
				Labels: []string{
					"Normal", "Pneumonia", "Tuberculosis", "Pneumothorax",
					"Fracture", "Effusion", "Nodule", "Opacity",
					"Cardiomegaly", "Edema",
				},
				TopK: 5,
			},
		},
	}
}

// LoadManifest reads a YAML manifest. An empty path yields DefaultManifest.
func LoadManifest(path string) (*Manifest, error) {
	if path == "" {
		return DefaultManifest(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse model manifest %s: %w", path, err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks each classifier entry and fills defaults.
func (m *Manifest) Validate() error {
	seen := make(map[string]bool, len(m.Classifiers))
	for i := range m.Classifiers {
		c := &m.Classifiers[i]
		if c.Name == "" {
			return fmt.Errorf("classifier %d: name is required", i)
		}
		if seen[c.Name] {
			return fmt.Errorf("classifier %q declared twice", c.Name)
		}
		seen[c.Name] = true
		if c.Artifact == "" {
			return fmt.Errorf("classifier %q: artifact is required", c.Name)
		}
		if len(c.Labels) == 0 {
			return fmt.Errorf("classifier %q: labels are required", c.Name)
		}
		if c.MinConfidence < 0 || c.MinConfidence > 100 {
			return fmt.Errorf("classifier %q: min_confidence out of range: %v", c.Name, c.MinConfidence)
		}
		if c.ServingName == "" {
			c.ServingName = c.Name
		}
		if c.TopK <= 0 {
			c.TopK = 5
		}
	}
	return nil
}
