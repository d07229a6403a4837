package provider

import (
	"context"

	"go-medical-analyzer/internal/analyzer"
)

const NameHeuristic = "heuristic"

type heuristic struct {
	analyzer analyzer.HeuristicAnalyzer
}

// NewHeuristic builds the rule-based provider. It needs no artifacts and is
// always available.
func NewHeuristic(a analyzer.HeuristicAnalyzer) Provider {
	return &heuristic{analyzer: a}
}

func (p *heuristic) Name() string { return NameHeuristic }

func (p *heuristic) Capabilities() Capability { return CapHeuristic }

func (p *heuristic) Analyze(_ context.Context, in *Input) Result {
	fv, err := in.Features()
	if err != nil {
		return Failure("feature extraction failed", err)
	}
	assessment := p.analyzer.Assess(fv)
	return Success(&Outcome{Assessment: &assessment, Features: &fv})
}
