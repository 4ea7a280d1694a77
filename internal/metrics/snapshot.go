package metrics

import (
	"sort"
	"strings"

	"github.com/fulmenhq/gofulmen/telemetry"

	"github.com/courierbot/courier/internal/observability"
)

// Sample is one series aggregated from the exporter's recorded events.
// Value is the counter total, the last gauge reading, or the histogram sum
// in milliseconds. Count is the number of histogram observations.
type Sample struct {
	Name   string            `json:"name"`
	Type   string            `json:"type"`
	Labels map[string]string `json:"labels,omitempty"`
	Value  float64           `json:"value"`
	Count  int64             `json:"count,omitempty"`
}

// Snapshot aggregates everything the process exporter has recorded.
// It returns nil when metrics were never initialized.
func Snapshot() []Sample {
	if observability.PrometheusExporter == nil {
		return nil
	}
	return Aggregate(observability.PrometheusExporter.GetMetrics())
}

// Aggregate folds raw events into one sample per name and label set,
// sorted by name then labels.
func Aggregate(events []telemetry.MetricsEvent) []Sample {
	byID := make(map[string]*Sample)
	for _, ev := range events {
		id := seriesID(ev.Name, ev.Tags)
		s, ok := byID[id]
		if !ok {
			labels := make(map[string]string, len(ev.Tags))
			for k, v := range ev.Tags {
				labels[k] = v
			}
			s = &Sample{Name: ev.Name, Type: string(ev.Type), Labels: labels}
			byID[id] = s
		}

		switch v := ev.Value.(type) {
		case float64:
			switch ev.Type {
			case telemetry.TypeGauge:
				s.Value = v
			case telemetry.TypeHistogram:
				s.Value += v
				s.Count++
			default:
				s.Value += v
			}
		case telemetry.HistogramSummary:
			s.Value += v.Sum
			s.Count += v.Count
		}
	}

	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]Sample, 0, len(ids))
	for _, id := range ids {
		out = append(out, *byID[id])
	}
	return out
}

// Find returns the sample matching name and exactly labels.
func Find(samples []Sample, name string, labels map[string]string) (Sample, bool) {
	want := seriesID(name, labels)
	for _, s := range samples {
		if seriesID(s.Name, s.Labels) == want {
			return s, true
		}
	}
	return Sample{}, false
}

func seriesID(name string, labels map[string]string) string {
	if len(labels) == 0 {
		return name
	}
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(name)
	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(labels[k])
	}
	b.WriteByte('}')
	return b.String()
}
