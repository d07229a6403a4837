package provider

import (
	"context"
	"errors"

	"go-medical-analyzer/internal/analyzer"
	"go-medical-analyzer/internal/classifier"
	"go-medical-analyzer/internal/registry"
	"go-medical-analyzer/pkg/models"
)

const (
	NameTabularHeuristic = "tabular_heuristic"
	tabularDataset       = "Random forest over image statistics"
)

type tabularHeuristic struct {
	registry  *registry.ModelRegistry
	artifact  string
	heuristic analyzer.HeuristicAnalyzer
}

// NewTabularHeuristic builds the provider that adds a random forest
// prediction to the heuristic assessment.
func NewTabularHeuristic(reg *registry.ModelRegistry, artifact string, heuristic analyzer.HeuristicAnalyzer) Provider {
	return &tabularHeuristic{registry: reg, artifact: artifact, heuristic: heuristic}
}

func (p *tabularHeuristic) Name() string { return NameTabularHeuristic }

func (p *tabularHeuristic) Capabilities() Capability { return CapTabular | CapHeuristic }

func (p *tabularHeuristic) Analyze(ctx context.Context, in *Input) Result {
	present, err := p.registry.Present(ctx, p.artifact)
	if err != nil {
		return Failure("could not check tabular model artifact", err)
	}
	if !present {
		return Unavailable("no tabular model artifact")
	}

	forest, err := registry.Resolve(ctx, p.registry, p.artifact, classifier.LoadForest)
	if errors.Is(err, registry.ErrArtifactMissing) {
		return Unavailable("no tabular model artifact")
	}
	if err != nil {
		return Failure("tabular model could not be loaded", err)
	}

	fv, err := in.Features()
	if err != nil {
		return Failure("feature extraction failed", err)
	}
	label, prob, err := forest.Predict(fv.Slice())
	if err != nil {
		return Failure("tabular prediction failed", err)
	}

	assessment := p.heuristic.Assess(fv)
	return Success(&Outcome{
		Findings:   []models.Finding{{Label: label, Confidence: prob * 100}},
		Assessment: &assessment,
		Features:   &fv,
		Dataset:    tabularDataset,
	})
}
