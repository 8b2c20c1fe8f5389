package metrics

import "time"

//go:generate mockery --name Provider --dir . --output ../../mocks --outpkg mocks --with-expecter --filename MetricsProvider.go
type Provider interface {
	IncrementSchedulerTicks()
	RecordTickDuration(duration time.Duration)
	SetDuePosts(count int)

	IncrementDispatchOutcomes(outcome string)
	IncrementCommandEvaluations(command string, success bool)
	IncrementMediaUploads(success bool)

	IncrementDatabaseQueries(queryType string, success bool)
	IncrementCacheHits()
	IncrementCacheMisses()

	SetServiceHealth(healthy bool)
}
