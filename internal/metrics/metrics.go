package metrics

import (
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	PipelineRuns = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "replyforge_pipeline_runs_total",
		Help: "Total pipeline runs",
	})
	PipelineErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "replyforge_pipeline_errors_total",
		Help: "Total fatal pipeline errors",
	})
	RunDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "replyforge_run_duration_seconds",
		Help:    "Pipeline run duration seconds",
		Buckets: prometheus.DefBuckets,
	})
	CandidatesFound = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "replyforge_candidates_found_total",
		Help: "Candidates returned by search before filtering",
	})
	FilterRejections = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "replyforge_filter_rejections_total",
		Help: "Candidates rejected by the filter pipeline",
	}, []string{"reason"})
	LLMCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "replyforge_llm_calls_total",
		Help: "Chat-completion calls by kind",
	}, []string{"kind"})
	RepliesSent = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "replyforge_replies_sent_total",
		Help: "Replies successfully posted",
	})
	RepliesFailed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "replyforge_replies_failed_total",
		Help: "Reply post attempts that failed",
	})
	APIRetries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "replyforge_api_retries_total",
		Help: "Total platform API retry attempts",
	}, []string{"endpoint"})
	CommandRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "replyforge_command_runs_total",
		Help: "CLI command invocations",
	}, []string{"command"})
	CommandErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "replyforge_command_errors_total",
		Help: "CLI command failures",
	}, []string{"command"})
)

func init() {
	prometheus.MustRegister(
		PipelineRuns, PipelineErrors, RunDuration,
		CandidatesFound, FilterRejections, LLMCalls,
		RepliesSent, RepliesFailed, APIRetries,
		CommandRuns, CommandErrors,
	)
}

// StartServer starts a metrics HTTP server on addr (e.g., ":9090").
func StartServer(addr string) {
	if addr == "" {
		addr = os.Getenv("METRICS_ADDR")
	}
	if addr == "" {
		return
	}
	http.Handle("/metrics", promhttp.Handler())
	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	go func() { _ = http.ListenAndServe(addr, nil) }()
}

// ObserveRunDuration records a run duration.
func ObserveRunDuration(start time.Time) {
	RunDuration.Observe(time.Since(start).Seconds())
}

// IncAPIRetry increments the retry counter for an endpoint.
func IncAPIRetry(endpoint string) { APIRetries.WithLabelValues(endpoint).Inc() }

// IncFilterRejection counts one filter rejection by reason.
func IncFilterRejection(reason string) { FilterRejections.WithLabelValues(reason).Inc() }

// IncLLMCall counts one chat-completion call by kind.
func IncLLMCall(kind string) { LLMCalls.WithLabelValues(kind).Inc() }

// IncCommandRun counts one CLI command invocation.
func IncCommandRun(cmd string) { CommandRuns.WithLabelValues(cmd).Inc() }

// IncCommandError counts one CLI command failure.
func IncCommandError(cmd string) { CommandErrors.WithLabelValues(cmd).Inc() }
