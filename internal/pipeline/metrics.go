package pipeline

import (
	"context"
	"errors"

	"github.com/loqalabs/loqa-dictate/internal/model"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const instrumentationName = "github.com/loqalabs/loqa-dictate/pipeline"

type metrics struct {
	sessions          metric.Int64Counter
	segments          metric.Int64Counter
	segmentsDropped   metric.Int64Counter
	framesDropped     metric.Int64Counter
	transcription     metric.Float64Histogram
	selectorFallbacks metric.Int64Counter
	postFallbacks     metric.Int64Counter
	expansionSnippets metric.Int64Counter
}

var modelStatusValues = map[model.Status]int64{
	model.StatusUnloaded: 0,
	model.StatusLoading:  1,
	model.StatusReady:    2,
	model.StatusError:    3,
}

func newMetrics(meter metric.Meter, status func() model.Handle) (*metrics, error) {
	m := &metrics{}
	var errs []error
	counter := func(name, desc string) metric.Int64Counter {
		c, err := meter.Int64Counter(name, metric.WithDescription(desc))
		errs = append(errs, err)
		return c
	}
	m.sessions = counter("loqa.dictate.sessions", "Recording sessions by outcome")
	m.segments = counter("loqa.dictate.segments", "Speech segments emitted by the segmenter")
	m.segmentsDropped = counter("loqa.dictate.segments.dropped", "Segments evicted from a full segment queue")
	m.framesDropped = counter("loqa.dictate.frames.dropped", "Audio frames evicted from a full frame queue")
	m.selectorFallbacks = counter("loqa.dictate.selector.fallbacks", "Profile selections that fell back to the previous choice")
	m.postFallbacks = counter("loqa.dictate.postprocess.fallbacks", "Post-processing failures that kept the corrected transcript")
	m.expansionSnippets = counter("loqa.dictate.expansion.snippets", "File snippets appended to delivered text")

	hist, err := meter.Float64Histogram("loqa.dictate.transcription.duration",
		metric.WithDescription("Time spent transcribing one segment"),
		metric.WithUnit("s"))
	errs = append(errs, err)
	m.transcription = hist

	if status != nil {
		gauge, err := meter.Int64ObservableGauge("loqa.dictate.model.status",
			metric.WithDescription("Model state: 0 unloaded, 1 loading, 2 ready, 3 error"))
		errs = append(errs, err)
		if err == nil {
			_, err = meter.RegisterCallback(func(_ context.Context, obs metric.Observer) error {
				h := status()
				obs.ObserveInt64(gauge, modelStatusValues[h.Status], metric.WithAttributes(attribute.String("model.id", h.ID)))
				return nil
			}, gauge)
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return m, nil
}

// noopMetrics never fails to build.
func noopMetrics() *metrics {
	m, _ := newMetrics(noop.NewMeterProvider().Meter(instrumentationName), nil)
	return m
}
