// Package pipeline runs the provider fallback chain and assembles the
// analysis result from the first provider that succeeds.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"go-medical-analyzer/internal/analyzer"
	"go-medical-analyzer/internal/ensemble"
	apperrors "go-medical-analyzer/internal/errors"
	"go-medical-analyzer/internal/logger"
	"go-medical-analyzer/internal/observer"
	"go-medical-analyzer/internal/provider"
	"go-medical-analyzer/pkg/models"
)

const defaultProviderTimeout = 60 * time.Second

// Orchestrator tries providers in priority order.
type Orchestrator struct {
	providers []provider.Provider
	extractor analyzer.FeatureExtractor
	timeout   time.Duration
	events    *observer.Publisher
}

// NewOrchestrator builds an orchestrator over providers, highest priority
// first. Each attempt is bounded by timeout. events may be nil.
func NewOrchestrator(providers []provider.Provider, extractor analyzer.FeatureExtractor, timeout time.Duration, events *observer.Publisher) *Orchestrator {
	if timeout <= 0 {
		timeout = defaultProviderTimeout
	}
	return &Orchestrator{
		providers: slices.Clone(providers),
		extractor: extractor,
		timeout:   timeout,
		events:    events,
	}
}

// Providers returns the chain in priority order.
func (o *Orchestrator) Providers() []provider.Provider {
	return slices.Clone(o.providers)
}

// Run produces an analysis from the first provider that succeeds. When no
// provider succeeds the error is a NoProviderAvailable AppError carrying
// every attempt's cause. If ctx ends between attempts the error is a
// timeout.
func (o *Orchestrator) Run(ctx context.Context, req *models.AnalysisRequest, opts RunOptions) (*models.AnalysisResult, error) {
	start := time.Now()
	in := provider.NewInput(req, o.extractor.Extract)

	var (
		attempts []models.Attempt
		causes   []error
	)
	for _, p := range o.providers {
		if err := ctx.Err(); err != nil {
			o.publish(ctx, observer.Event{
				Type:     observer.AnalysisFailed,
				Digest:   req.Digest,
				Duration: time.Since(start),
				Error:    err.Error(),
			})
			return nil, apperrors.NewTimeoutError("analysis deadline exceeded", err)
		}

		if opts.skips(p.Name()) {
			attempts = append(attempts, models.Attempt{Provider: p.Name(), Status: "skipped", Reason: "excluded by request"})
			o.publish(ctx, observer.Event{
				Type:     observer.ProviderSkipped,
				Provider: p.Name(),
				Digest:   req.Digest,
				Reason:   "excluded by request",
			})
			continue
		}

		attemptStart := time.Now()
		res := o.attempt(ctx, p, in)
		elapsed := time.Since(attemptStart)

		attempts = append(attempts, models.Attempt{
			Provider:   p.Name(),
			Status:     res.Status.String(),
			Reason:     res.Reason,
			DurationMs: elapsed.Milliseconds(),
		})

		event := observer.Event{Provider: p.Name(), Digest: req.Digest, Duration: elapsed, Reason: res.Reason}
		switch res.Status {
		case provider.StatusSuccess:
			event.Type = observer.ProviderSucceeded
			o.publish(ctx, event)

			result := o.build(p, res.Outcome, opts)
			result.Attempts = attempts
			result.ProcessingTimeSec = time.Since(start).Seconds()
			result.Timestamp = time.Now().UTC()

			o.publish(ctx, observer.Event{
				Type:     observer.AnalysisCompleted,
				Provider: p.Name(),
				Digest:   req.Digest,
				Duration: time.Since(start),
			})
			return result, nil
		case provider.StatusUnavailable:
			event.Type = observer.ProviderSkipped
		default:
			event.Type = observer.ProviderFailed
			if res.Err != nil {
				event.Error = res.Err.Error()
			}
		}
		o.publish(ctx, event)

		cause := res.Err
		if cause == nil {
			cause = errors.New(res.Reason)
		}
		causes = append(causes, fmt.Errorf("%s: %w", p.Name(), cause))
	}

	summary := make([]string, 0, len(attempts))
	for _, a := range attempts {
		summary = append(summary, fmt.Sprintf("%s %s: %s", a.Provider, a.Status, a.Reason))
	}
	err := apperrors.NewNoProviderError("no analysis provider available", errors.Join(causes...)).
		WithDetails(strings.Join(summary, "; "))

	o.publish(ctx, observer.Event{
		Type:     observer.AnalysisFailed,
		Digest:   req.Digest,
		Duration: time.Since(start),
		Error:    err.Error(),
	})
	return nil, err
}

// attempt runs one provider under the per-provider timeout. A provider that
// overruns is reported as failed and left to finish in the background.
func (o *Orchestrator) attempt(ctx context.Context, p provider.Provider, in *provider.Input) provider.Result {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	done := make(chan provider.Result, 1)
	go func() {
		done <- provider.SafeAnalyze(ctx, p, in)
	}()

	select {
	case res := <-done:
		return res
	case <-ctx.Done():
		logger.WithFields(logrus.Fields{
			"provider": p.Name(),
			"timeout":  o.timeout.String(),
		}).Warn("Provider timed out")
		return provider.Failure("provider timed out", ctx.Err())
	}
}

func (o *Orchestrator) build(p provider.Provider, out *provider.Outcome, opts RunOptions) *models.AnalysisResult {
	result := &models.AnalysisResult{Provider: p.Name()}
	if out == nil {
		out = &provider.Outcome{}
	}

	findings := slices.Clone(out.Findings)
	ensemble.SortFindings(findings)
	result.Findings = ensemble.Truncate(findings, opts.topN())
	if result.Findings == nil {
		result.Findings = []models.Finding{}
	}

	result.Narrative = out.Narrative
	result.Assessment = out.Assessment
	result.Dataset = out.Dataset
	result.Features = out.Features

	caps := p.Capabilities()
	if caps.Has(provider.CapEnsemble) {
		top := ensemble.TopOf(result.Findings)
		result.TopFinding = &top
		result.Confidence = top.Confidence

		result.SubResults = make(map[string]models.SubResult, len(out.SubResults))
		for _, s := range out.SubResults {
			result.SubResults[s.Model] = s
		}
		if scored, ok := ensemble.Score(out.SubResults); ok {
			conf := scored.Confidence
			result.EnsembleConfidence = &conf
			result.Severity = scored.Severity
			result.Recommendation = scored.Recommendation
		}
		return result
	}

	if len(result.Findings) > 0 {
		top := result.Findings[0]
		result.TopFinding = &top
		result.Confidence = top.Confidence
	}
	if out.Assessment != nil && len(out.Assessment.Recommendations) > 0 {
		result.Recommendation = strings.Join(out.Assessment.Recommendations, " ")
	}
	return result
}

func (o *Orchestrator) publish(ctx context.Context, event observer.Event) {
	o.events.Notify(ctx, event)
}
