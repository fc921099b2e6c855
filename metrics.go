package docrender

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Metric namespaces.
const (
	NamespaceRender  = "Pipeline/Render"
	NamespaceBackend = "Pipeline/Backend"
)

// Render metric names.
const (
	MetricDocumentGeneration = "DocumentGeneration"
	MetricExecutionTime      = "ExecutionTime"
	MetricDocumentSize       = "DocumentSize"
	MetricGenerationErrors   = "GenerationErrors"
)

// Backend metric names.
const (
	MetricHTTPRequests = "HTTPRequests"
	MetricResponseTime = "ResponseTime"
	MetricErrors       = "Errors"
)

// Dimension names.
const (
	DimTemplate    = "TemplateId"
	DimStatusRange = "StatusRange"
	DimEnvironment = "Environment"
	DimErrorType   = "ErrorType"
	DimMethod      = "Method"
	DimRoute       = "Route"
)

const (
	unknownTemplate    = "unknown"
	errorTagMaxRunes   = 50
	defaultMetricsWait = 2 * time.Second
)

// Unit is the unit of a metric value.
type Unit string

// Metric units.
const (
	UnitCount        Unit = "Count"
	UnitMilliseconds Unit = "Milliseconds"
	UnitBytes        Unit = "Bytes"
)

// Dimension is one name/value tag of a metric event.
type Dimension struct {
	Name  string
	Value string
}

// MetricEvent is a single data point sent to a MetricsSink.
type MetricEvent struct {
	Namespace  string
	Name       string
	Value      float64
	Unit       Unit
	Dimensions []Dimension
	Timestamp  time.Time
}

// Dimension returns the value of the named dimension, or "".
func (e MetricEvent) Dimension(name string) string {
	for _, d := range e.Dimensions {
		if d.Name == name {
			return d.Value
		}
	}
	return ""
}

// MetricsSink delivers metric events to a backend.
type MetricsSink interface {
	Put(ctx context.Context, event MetricEvent) error
}

// Metrics records pipeline outcomes. Every method is best-effort: sink
// failures are logged and never returned. A nil *Metrics records nothing.
type Metrics struct {
	sink        MetricsSink
	environment string
	logger      zerolog.Logger
	timeout     time.Duration
	now         func() time.Time
}

// MetricsOption configures Metrics.
type MetricsOption func(*Metrics)

// WithSinkTimeout bounds each sink call. Non-positive values are ignored.
func WithSinkTimeout(d time.Duration) MetricsOption {
	return func(m *Metrics) {
		if d > 0 {
			m.timeout = d
		}
	}
}

// NewMetrics creates a Metrics emitting to sink, tagging every event with
// environment.
func NewMetrics(sink MetricsSink, environment string, logger zerolog.Logger, opts ...MetricsOption) *Metrics {
	if environment == "" {
		environment = "production"
	}
	m := &Metrics{
		sink:        sink,
		environment: environment,
		logger:      logger,
		timeout:     defaultMetricsWait,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// RecordGeneration counts one finished generation by status range.
func (m *Metrics) RecordGeneration(ctx context.Context, templateID string, statusCode int) {
	m.emit(ctx, NamespaceRender, MetricDocumentGeneration, 1, UnitCount,
		Dimension{DimTemplate, templateTag(templateID)},
		Dimension{DimStatusRange, StatusRange(statusCode)},
	)
}

// RecordDuration records the wall time of one invocation.
func (m *Metrics) RecordDuration(ctx context.Context, templateID string, d time.Duration) {
	m.emit(ctx, NamespaceRender, MetricExecutionTime, float64(d.Milliseconds()), UnitMilliseconds,
		Dimension{DimTemplate, templateTag(templateID)},
	)
}

// RecordSize records the byte length of a rendered document.
func (m *Metrics) RecordSize(ctx context.Context, templateID string, size int) {
	m.emit(ctx, NamespaceRender, MetricDocumentSize, float64(size), UnitBytes,
		Dimension{DimTemplate, templateTag(templateID)},
	)
}

// RecordError counts one failed generation, tagged with the start of its
// error message.
func (m *Metrics) RecordError(ctx context.Context, templateID, message string) {
	m.emit(ctx, NamespaceRender, MetricGenerationErrors, 1, UnitCount,
		Dimension{DimTemplate, templateTag(templateID)},
		Dimension{DimErrorType, errorTag(message)},
	)
}

// RecordHTTP records one request served by the backend API.
func (m *Metrics) RecordHTTP(ctx context.Context, method, route string, statusCode int, d time.Duration) {
	m.emit(ctx, NamespaceBackend, MetricHTTPRequests, 1, UnitCount,
		Dimension{DimMethod, method},
		Dimension{DimRoute, route},
		Dimension{DimStatusRange, StatusRange(statusCode)},
	)
	m.emit(ctx, NamespaceBackend, MetricResponseTime, float64(d.Milliseconds()), UnitMilliseconds,
		Dimension{DimRoute, route},
		Dimension{DimMethod, method},
	)
	if statusCode >= 400 {
		errorType := "ClientError"
		if statusCode >= 500 {
			errorType = "ServerError"
		}
		m.emit(ctx, NamespaceBackend, MetricErrors, 1, UnitCount,
			Dimension{DimRoute, route},
			Dimension{DimMethod, method},
			Dimension{DimErrorType, errorType},
		)
	}
}

// emit sends one event. The send is detached from ctx cancellation so a
// finished request still reports, but it is bounded by m.timeout.
func (m *Metrics) emit(ctx context.Context, namespace, name string, value float64, unit Unit, dims ...Dimension) {
	if m == nil || m.sink == nil {
		return
	}

	event := MetricEvent{
		Namespace:  namespace,
		Name:       name,
		Value:      value,
		Unit:       unit,
		Dimensions: append(dims, Dimension{DimEnvironment, m.environment}),
		Timestamp:  m.now(),
	}

	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.timeout)
	defer cancel()

	if err := m.put(sendCtx, event); err != nil {
		m.logger.Warn().Err(err).
			Str("metric", name).
			Str("namespace", namespace).
			Msg("metrics transport failure")
		return
	}
	m.logger.Debug().
		Str("metric", name).
		Float64("value", value).
		Msg("metric recorded")
}

// put shields the caller from sink panics.
func (m *Metrics) put(ctx context.Context, event MetricEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("metrics sink panic: %v", r)
		}
	}()
	return m.sink.Put(ctx, event)
}

// StatusRange buckets an HTTP status code for metric dimensions.
func StatusRange(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "other"
	}
}

func templateTag(templateID string) string {
	if templateID == "" {
		return unknownTemplate
	}
	return templateID
}

func errorTag(message string) string {
	if tag := truncateRunes(message, errorTagMaxRunes); tag != "" {
		return tag
	}
	return "unknown"
}

// truncateRunes cuts s to at most n runes without splitting a character.
func truncateRunes(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
