package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestRecorderRegistersOnGivenRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)
	r.RecordEvaluation("ok")
	r.RecordDroppedKeyword("trend")
	r.RecordProviderCall("trends", "cache_hit")
	r.RecordNicheScore(72)
	r.RecordLatency("evaluate", 0.5)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{
		"nichescope_evaluations_total",
		"nichescope_dropped_keywords_total",
		"nichescope_provider_calls_total",
		"nichescope_niche_overall_score",
		"nichescope_operation_duration_seconds",
	} {
		if !names[want] {
			t.Fatalf("missing metric %s in %v", want, names)
		}
	}
}
