package observer

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingObserver struct {
	name   string
	events []Event
	err    error
}

func (r *recordingObserver) OnEvent(_ context.Context, e Event) error {
	r.events = append(r.events, e)
	return r.err
}

func (r *recordingObserver) Name() string { return r.name }

type panickyObserver struct{}

func (panickyObserver) OnEvent(context.Context, Event) error { panic("boom") }
func (panickyObserver) Name() string                         { return "panicky" }

func TestMetricsObserverSnapshot(t *testing.T) {
	m := NewMetricsObserver()
	ctx := context.Background()

	events := []Event{
		{Type: ProviderSkipped, Provider: "remote_vision"},
		{Type: ProviderFailed, Provider: "deep_ensemble"},
		{Type: ProviderSucceeded, Provider: "heuristic"},
		{Type: AnalysisCompleted, Duration: 40 * time.Millisecond},
		{Type: ProviderSkipped, Provider: "remote_vision"},
		{Type: AnalysisFailed},
		{Type: AnalysisCompleted, Duration: 20 * time.Millisecond},
	}
	for _, e := range events {
		require.NoError(t, m.OnEvent(ctx, e))
	}

	snap := m.Snapshot()
	assert.Equal(t, 2, snap["remote_vision"]["provider_skipped"])
	assert.Equal(t, 1, snap["deep_ensemble"]["provider_failed"])
	assert.Equal(t, 1, snap["heuristic"]["provider_succeeded"])
	assert.Equal(t, 2, snap["analysis"]["analysis_completed"])
	assert.Equal(t, 1, snap["analysis"]["analysis_failed"])
	assert.Equal(t, 30, snap["analysis"]["avg_duration_ms"])

	snap["heuristic"]["provider_succeeded"] = 99
	assert.Equal(t, 1, m.Snapshot()["heuristic"]["provider_succeeded"], "snapshot must be a copy")
}

func TestMetricsObserverRejectsUnknownEvent(t *testing.T) {
	assert.Error(t, NewMetricsObserver().OnEvent(context.Background(), Event{Type: "nope"}))
}

func TestPublisherDeliversInOrderDespiteFailures(t *testing.T) {
	failing := &recordingObserver{name: "failing", err: errors.New("disk full")}
	last := &recordingObserver{name: "last"}

	p := NewPublisher(failing, panickyObserver{})
	p.Subscribe(last)

	p.Notify(context.Background(), Event{Type: ProviderSucceeded, Provider: "heuristic"})

	require.Len(t, failing.events, 1)
	require.Len(t, last.events, 1)
	assert.False(t, last.events[0].Timestamp.IsZero())

	p.Unsubscribe(last)
	p.Notify(context.Background(), Event{Type: AnalysisCompleted})
	assert.Len(t, last.events, 1)
	assert.Len(t, failing.events, 2)
}

func TestNilPublisherDropsEvents(t *testing.T) {
	var p *Publisher
	assert.NotPanics(t, func() {
		p.Notify(context.Background(), Event{Type: AnalysisFailed})
	})
}

func TestLoggingObserverWritesFields(t *testing.T) {
	var buf bytes.Buffer
	l := logrus.New()
	l.SetOutput(&buf)
	l.SetFormatter(&logrus.JSONFormatter{})

	o := NewLoggingObserver(l)
	require.NoError(t, o.OnEvent(context.Background(), Event{
		Type:     ProviderFailed,
		Provider: "deep_ensemble",
		Reason:   "provider timed out",
	}))

	out := buf.String()
	assert.Contains(t, out, `"provider":"deep_ensemble"`)
	assert.Contains(t, out, `"reason":"provider timed out"`)
	assert.Contains(t, out, `"level":"warning"`)
}
