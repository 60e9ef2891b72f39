// Package metrics records queue and event log activity as Prometheus metrics.
//
// A Recorder owns its registry, so several recorders (one per stress run or
// test) never collide on metric names. It satisfies both eventlog.Observer
// and queue.Observer.
package metrics

import (
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"

	"github.com/roach88/synclog/internal/queue"
)

// Metric names.
const (
	QueueOpsTotal = "synclog_queue_ops_total"
	LogRecords    = "synclog_log_records"
)

// OutcomeSuccess labels operations that completed without error.
const OutcomeSuccess = "success"

// Recorder holds the Prometheus collectors for one registry.
type Recorder struct {
	registry *prometheus.Registry

	QueueOps   *prometheus.CounterVec
	LogRecords prometheus.Gauge
}

// NewRecorder creates a recorder with a fresh registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		QueueOps: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: QueueOpsTotal,
				Help: "Total number of queue operations by outcome",
			},
			[]string{"queue", "op", "outcome"},
		),
		LogRecords: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: LogRecords,
				Help: "Number of records currently in the event log",
			},
		),
	}
}

// QueueOp implements queue.Observer.
func (r *Recorder) QueueOp(name, op string, err error) {
	r.QueueOps.WithLabelValues(name, op, Outcome(err)).Inc()
}

// LogSizeChanged implements eventlog.Observer.
func (r *Recorder) LogSizeChanged(records int) {
	r.LogRecords.Set(float64(records))
}

// Outcome maps an operation result to its label value: "success" or the
// lower-cased queue error code.
func Outcome(err error) string {
	if err == nil {
		return OutcomeSuccess
	}
	if code := queue.CodeOf(err); code != "" {
		return strings.ToLower(string(code))
	}
	return "error"
}

// Sample is one gathered metric value.
type Sample struct {
	Name   string            `json:"name"`
	Labels map[string]string `json:"labels,omitempty"`
	Value  float64           `json:"value"`
}

// Snapshot gathers every counter and gauge, sorted by name then labels.
func (r *Recorder) Snapshot() ([]Sample, error) {
	families, err := r.registry.Gather()
	if err != nil {
		return nil, err
	}

	var out []Sample
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			s := Sample{Name: mf.GetName(), Value: value(mf.GetType(), m)}
			if len(m.GetLabel()) > 0 {
				s.Labels = make(map[string]string, len(m.GetLabel()))
				for _, lp := range m.GetLabel() {
					s.Labels[lp.GetName()] = lp.GetValue()
				}
			}
			out = append(out, s)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return labelKey(out[i].Labels) < labelKey(out[j].Labels)
	})
	return out, nil
}

// Total sums the samples of one metric whose labels include every pair in
// match.
func Total(samples []Sample, name string, match map[string]string) float64 {
	var sum float64
outer:
	for _, s := range samples {
		if s.Name != name {
			continue
		}
		for k, v := range match {
			if s.Labels[k] != v {
				continue outer
			}
		}
		sum += s.Value
	}
	return sum
}

func value(t dto.MetricType, m *dto.Metric) float64 {
	switch t {
	case dto.MetricType_COUNTER:
		return m.GetCounter().GetValue()
	case dto.MetricType_GAUGE:
		return m.GetGauge().GetValue()
	case dto.MetricType_UNTYPED:
		return m.GetUntyped().GetValue()
	default:
		return 0
	}
}

func labelKey(labels map[string]string) string {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(labels[k])
		b.WriteByte(',')
	}
	return b.String()
}
