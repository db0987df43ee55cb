package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce            sync.Once
	apiRequestsTotal        *prometheus.CounterVec
	apiLatencySeconds       *prometheus.HistogramVec
	apiErrorsTotal          *prometheus.CounterVec
	submissionsFinalized    *prometheus.CounterVec
	answersGradedTotal      *prometheus.CounterVec
	regradeOperationsTotal  *prometheus.CounterVec
	duplicateSubmitAttempts prometheus.Counter
)

// RegisterMetrics initialises the Prometheus collectors used by the exam API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "exam_api_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "exam_api_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "exam_api_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		submissionsFinalized = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "exam_submissions_finalized_total",
			Help: "Total number of exams finalized through the submission ledger.",
		}, []string{"outcome"})

		answersGradedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "exam_answers_graded_total",
			Help: "Total number of answers scored, by question type.",
		}, []string{"question_type"})

		regradeOperationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "exam_regrade_operations_total",
			Help: "Total number of teacher score overrides applied.",
		}, []string{"outcome"})

		duplicateSubmitAttempts = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "exam_duplicate_submit_attempts_total",
			Help: "Total number of submission attempts rejected as duplicates.",
		})

		prometheus.MustRegister(
			apiRequestsTotal,
			apiLatencySeconds,
			apiErrorsTotal,
			submissionsFinalized,
			answersGradedTotal,
			regradeOperationsTotal,
			duplicateSubmitAttempts,
		)
	})
}

// APIRequests exposes the counter for served requests.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the latency histogram for served requests.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// APIErrors exposes the counter for error responses.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// SubmissionsFinalized exposes the counter for ledger writes.
func SubmissionsFinalized() *prometheus.CounterVec {
	RegisterMetrics()
	return submissionsFinalized
}

// AnswersGraded exposes the counter for scored answers.
func AnswersGraded() *prometheus.CounterVec {
	RegisterMetrics()
	return answersGradedTotal
}

// RegradeOperations exposes the counter for teacher score overrides.
func RegradeOperations() *prometheus.CounterVec {
	RegisterMetrics()
	return regradeOperationsTotal
}

// DuplicateSubmitAttempts exposes the counter for rejected duplicate submits.
func DuplicateSubmitAttempts() prometheus.Counter {
	RegisterMetrics()
	return duplicateSubmitAttempts
}
