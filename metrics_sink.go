package docrender

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"unicode"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	"github.com/rs/zerolog"
)

// Compile-time interface checks
var (
	_ MetricsSink = (*PushgatewaySink)(nil)
	_ MetricsSink = LogSink{}
)

// Histogram buckets per unit.
var (
	millisecondBuckets = prometheus.ExponentialBuckets(50, 2, 10)      // 50ms .. ~25s
	byteBuckets        = prometheus.ExponentialBuckets(16*1024, 2, 12) // 16KiB .. 32MiB
)

// PushgatewaySink folds events into a private Prometheus registry and pushes
// it to a Pushgateway after every event. Counts become counters; durations
// and sizes become histograms.
type PushgatewaySink struct {
	registry *prometheus.Registry
	pusher   *push.Pusher

	mu         sync.Mutex
	counters   map[string]*prometheus.CounterVec
	histograms map[string]*prometheus.HistogramVec
}

// NewPushgatewaySink creates a sink pushing to url under job.
func NewPushgatewaySink(url, job string) *PushgatewaySink {
	registry := prometheus.NewRegistry()
	return &PushgatewaySink{
		registry:   registry,
		pusher:     push.New(url, job).Gatherer(registry),
		counters:   make(map[string]*prometheus.CounterVec),
		histograms: make(map[string]*prometheus.HistogramVec),
	}
}

// Put records event and pushes the registry.
func (s *PushgatewaySink) Put(ctx context.Context, event MetricEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.observe(event); err != nil {
		return err
	}
	if err := s.pusher.AddContext(ctx); err != nil {
		return fmt.Errorf("pushing %s: %w", event.Name, err)
	}
	return nil
}

// observe applies event to its collector, creating it on first use.
// Callers hold s.mu.
func (s *PushgatewaySink) observe(event MetricEvent) error {
	name := PromName(event.Namespace, event.Name, event.Unit)
	labels := make([]string, len(event.Dimensions))
	values := make([]string, len(event.Dimensions))
	for i, d := range event.Dimensions {
		labels[i] = snakeCase(d.Name)
		values[i] = d.Value
	}

	if event.Unit == UnitCount {
		vec, ok := s.counters[name]
		if !ok {
			vec = prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: name,
				Help: event.Namespace + " " + event.Name,
			}, labels)
			if err := s.registry.Register(vec); err != nil {
				return fmt.Errorf("registering %s: %w", name, err)
			}
			s.counters[name] = vec
		}
		c, err := vec.GetMetricWithLabelValues(values...)
		if err != nil {
			return fmt.Errorf("labelling %s: %w", name, err)
		}
		c.Add(event.Value)
		return nil
	}

	vec, ok := s.histograms[name]
	if !ok {
		buckets := millisecondBuckets
		if event.Unit == UnitBytes {
			buckets = byteBuckets
		}
		vec = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    name,
			Help:    event.Namespace + " " + event.Name,
			Buckets: buckets,
		}, labels)
		if err := s.registry.Register(vec); err != nil {
			return fmt.Errorf("registering %s: %w", name, err)
		}
		s.histograms[name] = vec
	}
	h, err := vec.GetMetricWithLabelValues(values...)
	if err != nil {
		return fmt.Errorf("labelling %s: %w", name, err)
	}
	h.Observe(event.Value)
	return nil
}

// LogSink writes events to a logger. It is used when no metrics backend is
// configured and never fails.
type LogSink struct {
	Logger zerolog.Logger
}

// Put logs event at info level.
func (s LogSink) Put(_ context.Context, event MetricEvent) error {
	e := s.Logger.Info().
		Str("namespace", event.Namespace).
		Str("metric", event.Name).
		Float64("value", event.Value).
		Str("unit", string(event.Unit))
	for _, d := range event.Dimensions {
		e = e.Str(snakeCase(d.Name), d.Value)
	}
	e.Msg("metric")
	return nil
}

// PromName converts a namespace/name/unit triple into a Prometheus metric
// name, e.g. Pipeline/Render + DocumentSize + Bytes -> pipeline_render_document_size_bytes.
func PromName(namespace, name string, unit Unit) string {
	var parts []string
	for _, p := range strings.Split(namespace, "/") {
		if p != "" {
			parts = append(parts, snakeCase(p))
		}
	}
	parts = append(parts, snakeCase(name))

	switch unit {
	case UnitCount:
		parts = append(parts, "total")
	case UnitMilliseconds:
		parts = append(parts, "milliseconds")
	case UnitBytes:
		parts = append(parts, "bytes")
	}
	return strings.Join(parts, "_")
}

// snakeCase converts CamelCase (including acronyms such as HTTPRequests)
// to snake_case.
func snakeCase(s string) string {
	runes := []rune(s)
	var b strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
					b.WriteByte('_')
				}
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		if r == '-' || r == ' ' {
			b.WriteByte('_')
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
