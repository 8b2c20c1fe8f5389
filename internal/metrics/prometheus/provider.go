package prometheus

import (
	"strconv"
	"time"

	"fediclock/internal/metrics"
)

type PrometheusMetricsProvider struct{}

func NewPrometheusMetricsProvider() metrics.Provider {
	return &PrometheusMetricsProvider{}
}

func (p *PrometheusMetricsProvider) IncrementSchedulerTicks() {
	SchedulerTicksTotal.Inc()
}

func (p *PrometheusMetricsProvider) RecordTickDuration(duration time.Duration) {
	SchedulerTickDuration.Observe(duration.Seconds())
}

func (p *PrometheusMetricsProvider) SetDuePosts(count int) {
	DuePosts.Set(float64(count))
}

func (p *PrometheusMetricsProvider) IncrementDispatchOutcomes(outcome string) {
	DispatchOutcomesTotal.WithLabelValues(outcome).Inc()
}

func (p *PrometheusMetricsProvider) IncrementCommandEvaluations(command string, success bool) {
	CommandEvaluationsTotal.WithLabelValues(command, strconv.FormatBool(success)).Inc()
}

func (p *PrometheusMetricsProvider) IncrementMediaUploads(success bool) {
	MediaUploadsTotal.WithLabelValues(strconv.FormatBool(success)).Inc()
}

func (p *PrometheusMetricsProvider) IncrementDatabaseQueries(queryType string, success bool) {
	DatabaseQueriesTotal.WithLabelValues(queryType, strconv.FormatBool(success)).Inc()
}

func (p *PrometheusMetricsProvider) IncrementCacheHits() {
	CacheHitsTotal.Inc()
}

func (p *PrometheusMetricsProvider) IncrementCacheMisses() {
	CacheMissesTotal.Inc()
}

func (p *PrometheusMetricsProvider) SetServiceHealth(healthy bool) {
	if healthy {
		ServiceHealth.Set(1)
	} else {
		ServiceHealth.Set(0)
	}
}
