package perf

import (
	"errors"
	"fmt"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	jobmetrics "github.com/registration-demo/registration/internal/jobs"
)

func TestMailJobOutcomesAreSeparated(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := jobmetrics.NewMetrics(reg)

	for i := 0; i < 40; i++ {
		if err := metrics.Track("mail:send").End(nil); err != nil {
			t.Fatalf("unexpected error ending tracker: %v", err)
		}
	}
	for i := 0; i < 3; i++ {
		if err := metrics.Track("mail:send").End(errors.New("mail service unavailable")); err == nil {
			t.Fatal("expected error to propagate")
		}
	}
	for i := 0; i < 2; i++ {
		err := metrics.Track("mail:send").End(fmt.Errorf("decode: %w", asynq.SkipRetry))
		if !errors.Is(err, asynq.SkipRetry) {
			t.Fatalf("expected skip retry to propagate, got %v", err)
		}
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	checks := []struct {
		name   string
		labels map[string]string
		want   float64
	}{
		{"registration_jobs_total", map[string]string{"job": "mail:send", "status": "success"}, 40},
		{"registration_jobs_total", map[string]string{"job": "mail:send", "status": "failure"}, 3},
		{"registration_jobs_total", map[string]string{"job": "mail:send", "status": "skipped"}, 2},
		{"registration_jobs_failures_total", map[string]string{"job": "mail:send"}, 3},
	}
	for _, check := range checks {
		if got := metricValue(t, families, check.name, check.labels); got != check.want {
			t.Fatalf("%s%v = %v, want %v", check.name, check.labels, got, check.want)
		}
	}
	if count := histogramCount(t, families, "registration_job_duration_seconds", map[string]string{"job": "mail:send"}); count != 45 {
		t.Fatalf("expected 45 duration samples, got %d", count)
	}
}

func findMetric(t *testing.T, families []*dto.MetricFamily, name string, labels map[string]string) *dto.Metric {
	t.Helper()
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			if labelsMatch(metric.GetLabel(), labels) {
				return metric
			}
		}
	}
	t.Fatalf("metric %s%v not found", name, labels)
	return nil
}

func metricValue(t *testing.T, families []*dto.MetricFamily, name string, labels map[string]string) float64 {
	t.Helper()
	return findMetric(t, families, name, labels).GetCounter().GetValue()
}

func histogramCount(t *testing.T, families []*dto.MetricFamily, name string, labels map[string]string) uint64 {
	t.Helper()
	return findMetric(t, families, name, labels).GetHistogram().GetSampleCount()
}

func labelsMatch(pairs []*dto.LabelPair, labels map[string]string) bool {
	if len(pairs) != len(labels) {
		return false
	}
	for _, pair := range pairs {
		if labels[pair.GetName()] != pair.GetValue() {
			return false
		}
	}
	return true
}
