// Package provider defines the analysis backends tried by the pipeline.
// Every backend returns a Result value; none of them returns an error or
// lets a panic escape.
package provider

import (
	"context"
	"fmt"
	"strings"
	"sync"

	apperrors "go-medical-analyzer/internal/errors"
	"go-medical-analyzer/pkg/models"
)

// Capability flags describe what a provider's outcome carries. They are
// fixed when the provider is constructed.
type Capability uint8

const (
	CapNarrative Capability = 1 << iota
	CapEnsemble
	CapTabular
	CapHeuristic
)

// Has reports whether all bits of o are set.
func (c Capability) Has(o Capability) bool {
	return c&o == o
}

func (c Capability) String() string {
	var parts []string
	for _, n := range []struct {
		cap  Capability
		name string
	}{
		{CapNarrative, "narrative"},
		{CapEnsemble, "ensemble"},
		{CapTabular, "tabular"},
		{CapHeuristic, "heuristic"},
	} {
		if c.Has(n.cap) {
			parts = append(parts, n.name)
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// Status is the outcome kind of one provider attempt.
type Status int

const (
	StatusSuccess Status = iota
	StatusUnavailable
	StatusFailure
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusUnavailable:
		return "unavailable"
	default:
		return "failure"
	}
}

// Outcome is what a successful provider produced.
type Outcome struct {
	Findings   []models.Finding
	Narrative  string
	SubResults []models.SubResult
	Assessment *models.QualityAssessment
	Dataset    string
	Features   *models.FeatureVector
}

// Result is returned by every provider attempt.
type Result struct {
	Status  Status
	Outcome *Outcome
	Reason  string
	Err     error
}

// Success wraps a provider outcome.
func Success(o *Outcome) Result {
	return Result{Status: StatusSuccess, Outcome: o}
}

// Unavailable reports that the provider did not run.
func Unavailable(reason string) Result {
	return Result{
		Status: StatusUnavailable,
		Reason: reason,
		Err:    apperrors.NewUnavailableError(reason, nil),
	}
}

// Failure reports that the provider ran and failed.
func Failure(reason string, err error) Result {
	return Result{
		Status: StatusFailure,
		Reason: reason,
		Err:    apperrors.NewTransientError(reason, err),
	}
}

// Provider is one backend of the fallback chain.
type Provider interface {
	Name() string
	Capabilities() Capability
	Analyze(ctx context.Context, in *Input) Result
}

// FeatureFunc lazily computes the request's feature vector.
type FeatureFunc func() (models.FeatureVector, error)

// Input is the per-request data handed to providers.
type Input struct {
	Request  *models.AnalysisRequest
	Features FeatureFunc
}

// NewInput builds an Input whose features are computed at most once, on
// first use, by extract.
func NewInput(req *models.AnalysisRequest, extract func(*models.AnalysisRequest) (models.FeatureVector, error)) *Input {
	return &Input{
		Request: req,
		Features: sync.OnceValues(func() (models.FeatureVector, error) {
			return extract(req)
		}),
	}
}

// SafeAnalyze runs p and converts a panic into a Failure.
func SafeAnalyze(ctx context.Context, p Provider, in *Input) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Failure("provider panicked", fmt.Errorf("%s: %v", p.Name(), r))
		}
	}()
	return p.Analyze(ctx, in)
}
