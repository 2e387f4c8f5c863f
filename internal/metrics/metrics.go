// Package metrics exports attachment pipeline telemetry to Prometheus.
package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcomes recorded per version operation.
const (
	OutcomeStored  = "stored"
	OutcomeDeleted = "deleted"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
)

// Observer captures telemetry for version operations.
type Observer interface {
	RecordStore(definition, version, outcome string, duration time.Duration, sizeBytes int)
	RecordDelete(definition, version, outcome string)
	RecordURL(definition string, signed bool)
}

// PrometheusObserver exports attachment metrics to Prometheus.
type PrometheusObserver struct {
	storeDuration *prometheus.HistogramVec
	operations    *prometheus.CounterVec
	storedBytes   *prometheus.CounterVec
	urls          *prometheus.CounterVec
}

// NewPrometheusObserver registers the attachment collectors on reg, reusing
// collectors that are already registered.
func NewPrometheusObserver(namespace string, reg prometheus.Registerer) (*PrometheusObserver, error) {
	if namespace == "" {
		namespace = "attachr"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	o := &PrometheusObserver{
		storeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "version_store_duration_seconds",
			Help:      "Time spent transforming and uploading one attachment version.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"definition", "version"}),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "version_operations_total",
			Help:      "Version store and delete operations by outcome.",
		}, []string{"definition", "version", "operation", "outcome"}),
		storedBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stored_bytes_total",
			Help:      "Bytes successfully written to the storage backend.",
		}, []string{"definition"}),
		urls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "urls_built_total",
			Help:      "URLs built, split by signed and unsigned.",
		}, []string{"definition", "signed"}),
	}

	o.storeDuration = register(reg, o.storeDuration)
	o.operations = register(reg, o.operations)
	o.storedBytes = register(reg, o.storedBytes)
	o.urls = register(reg, o.urls)
	if o.storeDuration == nil || o.operations == nil || o.storedBytes == nil || o.urls == nil {
		return nil, fmt.Errorf("register attachment metrics in namespace %s", namespace)
	}
	return o, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
		var zero C
		return zero
	}
	return c
}

func (o *PrometheusObserver) RecordStore(definition, version, outcome string, duration time.Duration, sizeBytes int) {
	if o == nil {
		return
	}
	o.operations.WithLabelValues(definition, version, "store", outcome).Inc()
	if outcome == OutcomeSkipped {
		return
	}
	o.storeDuration.WithLabelValues(definition, version).Observe(duration.Seconds())
	if outcome == OutcomeStored {
		o.storedBytes.WithLabelValues(definition).Add(float64(sizeBytes))
	}
}

func (o *PrometheusObserver) RecordDelete(definition, version, outcome string) {
	if o == nil {
		return
	}
	o.operations.WithLabelValues(definition, version, "delete", outcome).Inc()
}

func (o *PrometheusObserver) RecordURL(definition string, signed bool) {
	if o == nil {
		return
	}
	label := "false"
	if signed {
		label = "true"
	}
	o.urls.WithLabelValues(definition, label).Inc()
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordStore(string, string, string, time.Duration, int) {}

func (Nop) RecordDelete(string, string, string) {}

func (Nop) RecordURL(string, bool) {}
