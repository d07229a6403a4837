package observer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// EventType represents the type of pipeline event
type EventType string

const (
	// ProviderSkipped when a provider is unavailable or excluded by options
	ProviderSkipped EventType = "provider_skipped"
	// ProviderFailed when a provider ran and failed or timed out
	ProviderFailed EventType = "provider_failed"
	// ProviderSucceeded when a provider produced the analysis
	ProviderSucceeded EventType = "provider_succeeded"
	// AnalysisCompleted when the pipeline returns a result
	AnalysisCompleted EventType = "analysis_completed"
	// AnalysisFailed when no provider could produce a result
	AnalysisFailed EventType = "analysis_failed"
)

// Event is published by the pipeline for every provider attempt and once
// per analysis.
type Event struct {
	Type      EventType              `json:"event_type"`
	Timestamp time.Time              `json:"timestamp"`
	Provider  string                 `json:"provider,omitempty"`
	Digest    string                 `json:"digest,omitempty"`
	Duration  time.Duration          `json:"duration"`
	Reason    string                 `json:"reason,omitempty"`
	Error     string                 `json:"error,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// Observer defines the interface for event observers
type Observer interface {
	OnEvent(ctx context.Context, event Event) error
	Name() string
}

// LoggingObserver logs pipeline events
type LoggingObserver struct {
	logger *logrus.Logger
}

// NewLoggingObserver creates a new logging observer
func NewLoggingObserver(logger *logrus.Logger) *LoggingObserver {
	return &LoggingObserver{logger: logger}
}

// OnEvent logs the event at a level matching its type
func (o *LoggingObserver) OnEvent(ctx context.Context, event Event) error {
	fields := logrus.Fields{
		"event_type":  event.Type,
		"duration_ms": event.Duration.Milliseconds(),
	}
	if event.Provider != "" {
		fields["provider"] = event.Provider
	}
	if event.Digest != "" {
		fields["digest"] = event.Digest
	}
	if event.Reason != "" {
		fields["reason"] = event.Reason
	}
	if event.Error != "" {
		fields["error"] = event.Error
	}
	for k, v := range event.Metadata {
		fields[k] = v
	}

	entry := o.logger.WithFields(fields)
	switch event.Type {
	case ProviderSkipped:
		entry.Debug("Provider skipped")
	case ProviderFailed:
		entry.Warn("Provider failed")
	case ProviderSucceeded:
		entry.Info("Provider succeeded")
	case AnalysisCompleted:
		entry.Info("Analysis completed")
	case AnalysisFailed:
		entry.Error("Analysis failed")
	default:
		entry.Info("Pipeline event occurred")
	}
	return nil
}

// Name returns the observer name
func (o *LoggingObserver) Name() string {
	return "logging_observer"
}

// MetricsObserver counts provider outcomes and completed analyses
type MetricsObserver struct {
	mu                sync.RWMutex
	providers         map[string]map[string]int
	completed         int
	failed            int
	totalAnalysisTime time.Duration
}

// NewMetricsObserver creates a new metrics observer
func NewMetricsObserver() *MetricsObserver {
	return &MetricsObserver{providers: make(map[string]map[string]int)}
}

// OnEvent updates the counters for the event
func (o *MetricsObserver) OnEvent(ctx context.Context, event Event) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch event.Type {
	case ProviderSkipped, ProviderFailed, ProviderSucceeded:
		counts, ok := o.providers[event.Provider]
		if !ok {
			counts = make(map[string]int)
			o.providers[event.Provider] = counts
		}
		counts[string(event.Type)]++
	case AnalysisCompleted:
		o.completed++
		o.totalAnalysisTime += event.Duration
	case AnalysisFailed:
		o.failed++
	default:
		return fmt.Errorf("unknown event type %q", event.Type)
	}
	return nil
}

// Name returns the observer name
func (o *MetricsObserver) Name() string {
	return "metrics_observer"
}

// Snapshot returns a copy of the per-provider counters. Pipeline totals are
// reported under the "analysis" key.
func (o *MetricsObserver) Snapshot() map[string]map[string]int {
	o.mu.RLock()
	defer o.mu.RUnlock()

	out := make(map[string]map[string]int, len(o.providers)+1)
	for name, counts := range o.providers {
		c := make(map[string]int, len(counts))
		for k, v := range counts {
			c[k] = v
		}
		out[name] = c
	}
	avgMs := 0
	if o.completed > 0 {
		avgMs = int((o.totalAnalysisTime / time.Duration(o.completed)).Milliseconds())
	}
	out["analysis"] = map[string]int{
		string(AnalysisCompleted): o.completed,
		string(AnalysisFailed):    o.failed,
		"avg_duration_ms":         avgMs,
	}
	return out
}

// Publisher fans events out to subscribed observers
type Publisher struct {
	mu        sync.RWMutex
	observers []Observer
}

// NewPublisher creates a new event publisher
func NewPublisher(observers ...Observer) *Publisher {
	return &Publisher{observers: append([]Observer(nil), observers...)}
}

// Subscribe adds an observer
func (p *Publisher) Subscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observers = append(p.observers, observer)
}

// Unsubscribe removes an observer by name
func (p *Publisher) Unsubscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, obs := range p.observers {
		if obs.Name() == observer.Name() {
			p.observers = append(p.observers[:i], p.observers[i+1:]...)
			break
		}
	}
}

// Notify delivers the event to every observer in subscription order. An
// observer that errors or panics is logged and does not affect the others.
// A nil publisher drops the event.
func (p *Publisher) Notify(ctx context.Context, event Event) {
	if p == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	p.mu.RLock()
	observers := make([]Observer, len(p.observers))
	copy(observers, p.observers)
	p.mu.RUnlock()

	for _, obs := range observers {
		p.deliver(ctx, obs, event)
	}
}

func (p *Publisher) deliver(ctx context.Context, obs Observer, event Event) {
	defer func() {
		if r := recover(); r != nil {
			logrus.WithField("observer", obs.Name()).
				WithField("panic", r).
				Error("Observer panicked while handling event")
		}
	}()
	if err := obs.OnEvent(ctx, event); err != nil {
		logrus.WithField("observer", obs.Name()).
			WithError(err).
			Warn("Observer failed to handle event")
	}
}
