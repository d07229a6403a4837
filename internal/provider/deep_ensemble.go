package provider

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"go-medical-analyzer/internal/classifier"
	"go-medical-analyzer/internal/config"
	"go-medical-analyzer/internal/ensemble"
	"go-medical-analyzer/internal/logger"
	"go-medical-analyzer/internal/registry"
	"go-medical-analyzer/pkg/models"
)

const NameDeepEnsemble = "deep_ensemble"

// DeepEnsembleConfig wires the ensemble provider.
type DeepEnsembleConfig struct {
	Classifiers []config.ClassifierSpec
	Registry    *registry.ModelRegistry
	// Predictors binds classifiers to an inference backend. Nil means no
	// backend is configured and the provider is unavailable.
	Predictors classifier.PredictorFactory
	Timeout    time.Duration
}

type deepEnsemble struct {
	classifiers []config.ClassifierSpec
	registry    *registry.ModelRegistry
	predictors  classifier.PredictorFactory
	timeout     time.Duration
}

// NewDeepEnsemble builds the multi-classifier provider.
func NewDeepEnsemble(cfg DeepEnsembleConfig) Provider {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &deepEnsemble{
		classifiers: cfg.Classifiers,
		registry:    cfg.Registry,
		predictors:  cfg.Predictors,
		timeout:     timeout,
	}
}

func (p *deepEnsemble) Name() string { return NameDeepEnsemble }

func (p *deepEnsemble) Capabilities() Capability { return CapEnsemble }

func (p *deepEnsemble) Analyze(ctx context.Context, in *Input) Result {
	if p.predictors == nil {
		return Unavailable("no model server configured")
	}

	available := p.availableClassifiers(ctx)
	if len(available) == 0 {
		return Unavailable("no classifier weights found")
	}

	img := in.Request.Image
	subs := make([]models.SubResult, len(available))
	var g errgroup.Group
	for i, spec := range available {
		i, spec := i, spec
		g.Go(func() error {
			subs[i] = p.classify(ctx, spec, img)
			return nil
		})
	}
	_ = g.Wait()

	var (
		errs     []error
		datasets []string
	)
	for _, s := range subs {
		if !s.Succeeded() {
			errs = append(errs, fmt.Errorf("%s: %s", s.Model, s.Error))
			continue
		}
		datasets = append(datasets, s.Dataset)
	}
	if len(datasets) == 0 {
		return Failure("all ensemble classifiers failed", errors.Join(errs...))
	}
	if len(errs) > 0 {
		logger.WithFields(logrus.Fields{
			"provider": NameDeepEnsemble,
			"failed":   len(errs),
			"total":    len(subs),
		}).WithError(errors.Join(errs...)).Warn("Ensemble ran with failed classifiers")
	}

	return Success(&Outcome{
		Findings:   ensemble.MergeFindings(subs, ensemble.DefaultTopK),
		SubResults: subs,
		Dataset:    strings.Join(datasets, " + "),
	})
}

func (p *deepEnsemble) availableClassifiers(ctx context.Context) []config.ClassifierSpec {
	var out []config.ClassifierSpec
	for _, spec := range p.classifiers {
		ok, err := p.registry.Present(ctx, spec.Artifact)
		if err != nil {
			logger.WithFields(logrus.Fields{
				"provider":   NameDeepEnsemble,
				"classifier": spec.Name,
				"artifact":   spec.Artifact,
			}).WithError(err).Warn("Could not check classifier artifact")
			continue
		}
		if ok {
			out = append(out, spec)
		}
	}
	return out
}

// classify runs one classifier under its own timeout. A classifier that
// does not return in time, or panics, is reported as failed; a late one is
// left to finish in the background.
func (p *deepEnsemble) classify(ctx context.Context, spec config.ClassifierSpec, img image.Image) models.SubResult {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	done := make(chan models.SubResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- models.SubResult{
					Model:   spec.Name,
					Dataset: spec.Dataset,
					Error:   fmt.Sprintf("classifier panicked: %v", r),
				}
			}
		}()
		done <- p.run(ctx, spec, img)
	}()

	select {
	case sub := <-done:
		return sub
	case <-ctx.Done():
		return models.SubResult{
			Model:   spec.Name,
			Dataset: spec.Dataset,
			Error:   fmt.Sprintf("classifier timed out: %v", ctx.Err()),
		}
	}
}

func (p *deepEnsemble) run(ctx context.Context, spec config.ClassifierSpec, img image.Image) models.SubResult {
	sub := models.SubResult{Model: spec.Name, Dataset: spec.Dataset}

	model, err := registry.Resolve(ctx, p.registry, spec.Artifact, classifier.LoadDeepModel(spec, p.predictors))
	if err != nil {
		sub.Error = err.Error()
		return sub
	}
	probs, err := model.Classify(ctx, img)
	if err != nil {
		sub.Error = err.Error()
		return sub
	}

	sub.Findings = ensemble.RankFindings(spec.Labels, probs, spec.MinConfidence, spec.TopK)
	top := ensemble.TopOf(sub.Findings)
	sub.TopFinding = &top
	return sub
}
