package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	MessagesSubmittedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "askline_messages_submitted_total",
			Help: "Total number of audience messages submitted (count)",
		},
		[]string{"type", "status"},
	)

	MessageMutationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "askline_message_mutations_total",
			Help: "Total number of instructor message mutations (count)",
		},
		[]string{"action"},
	)

	ModerationEvaluationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "askline_moderation_evaluations_total",
			Help: "Total number of moderation rule evaluations (count)",
		},
		[]string{"rule_id", "result"},
	)

	ModerationActiveRules = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "askline_moderation_active_rules",
			Help: "Number of active moderation rules (count)",
		},
	)

	BoardRecomputesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "askline_board_recomputes_total",
			Help: "Total number of board stat/view recomputations (count)",
		},
		[]string{"kind"},
	)

	BoardRevision = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "askline_board_revision",
			Help: "Current snapshot revision of a session board (count)",
		},
		[]string{"session_id"},
	)

	SummaryRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "askline_summary_requests_total",
			Help: "Total number of summary requests (count)",
		},
		[]string{"source"}, // "cache" or "upstream"
	)

	SummaryUpstreamDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "askline_summary_upstream_duration_ms",
			Help:    "Duration of summarizer upstream calls in milliseconds",
			Buckets: []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		},
	)

	ArchiveEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "askline_archive_events_total",
			Help: "Total number of events processed by the archiver (count)",
		},
		[]string{"event_type", "status"},
	)

	ArchiveTranscriptsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "askline_archive_transcripts_total",
			Help: "Total number of session transcripts written to the archive (count)",
		},
	)

	RateLimitRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limit_requests_total",
			Help: "Total number of requests checked against rate limit (count)",
		},
		[]string{"status"},
	)

	FallbackUsageTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fallback_usage_total",
			Help: "Total number of times fallback strategies were used (count)",
		},
		[]string{"service", "strategy", "reason"},
	)

	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open) (state code)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker (count)",
		},
		[]string{"name", "state"},
	)

	CircuitBreakerFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_failures_total",
			Help: "Total number of failures through circuit breaker (count)",
		},
		[]string{"name"},
	)

	KafkaMessagesReadTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_messages_read_total",
			Help: "Total number of messages read from Kafka (count)",
		},
		[]string{"service", "topic"},
	)

	KafkaMessagesWrittenTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_messages_written_total",
			Help: "Total number of messages written to Kafka (count)",
		},
		[]string{"service", "topic"},
	)

	DLQMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dlq_messages_total",
			Help: "Total number of messages sent to DLQ (count)",
		},
		[]string{"service", "topic", "reason"},
	)

	RetryAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retry_attempts_total",
			Help: "Total number of retry attempts (count)",
		},
		[]string{"service", "operation"},
	)
)

func RegisterBoardMetrics() {
	prometheus.MustRegister(MessagesSubmittedTotal)
	prometheus.MustRegister(MessageMutationsTotal)
	prometheus.MustRegister(BoardRecomputesTotal)
	prometheus.MustRegister(BoardRevision)
}

func RegisterModerationMetrics() {
	prometheus.MustRegister(ModerationEvaluationsTotal)
	prometheus.MustRegister(ModerationActiveRules)
	prometheus.MustRegister(FallbackUsageTotal)
}

func RegisterSummaryMetrics() {
	prometheus.MustRegister(SummaryRequestsTotal)
	prometheus.MustRegister(SummaryUpstreamDuration)
	prometheus.MustRegister(RetryAttemptsTotal)
}

func RegisterArchiveMetrics() {
	prometheus.MustRegister(ArchiveEventsTotal)
	prometheus.MustRegister(ArchiveTranscriptsTotal)
	prometheus.MustRegister(FallbackUsageTotal)
}

func RegisterBrokerMetrics() {
	prometheus.MustRegister(KafkaMessagesReadTotal)
	prometheus.MustRegister(KafkaMessagesWrittenTotal)
	prometheus.MustRegister(DLQMessagesTotal)
}

func RegisterCircuitBreakerMetrics() {
	prometheus.MustRegister(CircuitBreakerState)
	prometheus.MustRegister(CircuitBreakerRequests)
	prometheus.MustRegister(CircuitBreakerFailures)
}

func RegisterRateLimitMetrics() {
	prometheus.MustRegister(RateLimitRequestsTotal)
}

func IncMessageSubmitted(msgType, status string) {
	MessagesSubmittedTotal.WithLabelValues(msgType, status).Inc()
}

func IncMessageMutation(action string) {
	MessageMutationsTotal.WithLabelValues(action).Inc()
}

func IncModerationEvaluation(ruleID, result string) {
	ModerationEvaluationsTotal.WithLabelValues(ruleID, result).Inc()
}

func SetModerationActiveRules(count int) {
	ModerationActiveRules.Set(float64(count))
}

func IncBoardRecompute(kind string) {
	BoardRecomputesTotal.WithLabelValues(kind).Inc()
}

func SetBoardRevision(sessionID string, revision uint64) {
	BoardRevision.WithLabelValues(sessionID).Set(float64(revision))
}

func ObserveSummaryUpstreamDuration(duration time.Duration) {
	SummaryUpstreamDuration.Observe(float64(duration.Milliseconds()))
}

func IncKafkaMessagesRead(service, topic string) {
	KafkaMessagesReadTotal.WithLabelValues(service, topic).Inc()
}

func IncKafkaMessagesWritten(service, topic string) {
	KafkaMessagesWrittenTotal.WithLabelValues(service, topic).Inc()
}
