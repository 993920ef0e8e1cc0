package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Bounded cardinality constants for metric labels.
const (
	// Dependency error categories
	ErrorTimeout     = "timeout"
	ErrorRateLimit   = "rate_limit"
	ErrorAuth        = "authentication"
	ErrorNetwork     = "network"
	ErrorBlocked     = "blocked"
	ErrorInvalidReq  = "invalid_request"
	ErrorServerError = "server_error"
	ErrorOther       = "other"

	// Turn outcomes
	OutcomeOK       = "ok"
	OutcomeError    = "error"
	OutcomeGreeting = "greeting"
	OutcomePending  = "pending_override"
)

// NormalizeError maps arbitrary error messages to a bounded set
func NormalizeError(err error) string {
	if err == nil {
		return ""
	}
	errStr := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline"):
		return ErrorTimeout
	case strings.Contains(errStr, "rate") || strings.Contains(errStr, "429"):
		return ErrorRateLimit
	case strings.Contains(errStr, "auth") || strings.Contains(errStr, "401") || strings.Contains(errStr, "403"):
		return ErrorAuth
	case strings.Contains(errStr, "blocked") || strings.Contains(errStr, "content_filter"):
		return ErrorBlocked
	case strings.Contains(errStr, "network") || strings.Contains(errStr, "connection"):
		return ErrorNetwork
	case strings.Contains(errStr, "400") || strings.Contains(errStr, "invalid"):
		return ErrorInvalidReq
	case strings.Contains(errStr, "500") || strings.Contains(errStr, "502") || strings.Contains(errStr, "503"):
		return ErrorServerError
	default:
		return ErrorOther
	}
}

// Conversation Metrics
var (
	TurnsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "moneymind_turns_total",
		Help: "Conversation turns handled, by intent and outcome",
	}, []string{"intent", "outcome"})

	TurnDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "moneymind_turn_duration_ms",
		Help:    "End to end turn latency in milliseconds",
		Buckets: []float64{10, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
	}, []string{"intent"})

	IntentClassifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "moneymind_intent_classifications_total",
		Help: "Intent decisions by tier (keyword or model)",
	}, []string{"intent", "tier"})

	AgentErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "moneymind_agent_errors_total",
		Help: "Agent failures that fell back to the error reply",
	}, []string{"agent"})

	ProfilesCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "moneymind_profiles_completed_total",
		Help: "Risk profiles scored, by category",
	}, []string{"category"})

	PortfolioWarnings = promauto.NewCounter(prometheus.CounterOpts{
		Name: "moneymind_portfolio_validation_warnings_total",
		Help: "Generated portfolios whose allocation deviated from the target",
	})
)

// Storage Metrics
var (
	StoreOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "moneymind_store_operations_total",
		Help: "User store operations by backend, operation and result",
	}, []string{"backend", "operation", "result"})

	StoreSaveFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "moneymind_store_save_failures_total",
		Help: "Turns whose final save failed",
	})

	StoreOperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "moneymind_store_operation_duration_ms",
		Help:    "User store latency in milliseconds",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500},
	}, []string{"backend", "operation"})
)

// External Dependency Metrics
var (
	LLMRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "moneymind_llm_request_duration_ms",
		Help:    "Generation request latency in milliseconds",
		Buckets: []float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000},
	}, []string{"model"})

	LLMErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "moneymind_llm_errors_total",
		Help: "Generation errors by model and category",
	}, []string{"model", "category"})

	LLMTokens = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "moneymind_llm_tokens_total",
		Help: "Tokens consumed by model",
	}, []string{"model"})

	ToolCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "moneymind_tool_calls_total",
		Help: "Tool invocations requested by the model",
	}, []string{"tool", "result"})

	SearchRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "moneymind_search_request_duration_ms",
		Help:    "Search provider latency in milliseconds",
		Buckets: []float64{50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"engine"})

	SearchErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "moneymind_search_errors_total",
		Help: "Search provider errors by engine and category",
	}, []string{"engine", "category"})

	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "moneymind_cache_lookups_total",
		Help: "Cache lookups by cache name and result",
	}, []string{"cache", "result"})

	CircuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "moneymind_circuit_breaker_state",
		Help: "Circuit breaker state (0=closed, 1=open, 2=half_open)",
	}, []string{"service"})

	CircuitBreakerRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "moneymind_circuit_breaker_requests_total",
		Help: "Requests passing through circuit breakers",
	}, []string{"service", "result"})

	CircuitBreakerTrips = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "moneymind_circuit_breaker_trips_total",
		Help: "Times a circuit breaker opened",
	}, []string{"service"})
)

// Channel Metrics
var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "moneymind_http_requests_total",
		Help: "HTTP requests by method, route and status",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "moneymind_http_request_duration_ms",
		Help:    "HTTP request latency in milliseconds",
		Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 5000, 30000},
	}, []string{"method", "path"})

	MessagesSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "moneymind_messages_sent_total",
		Help: "Outbound channel messages by channel and result",
	}, []string{"channel", "result"})

	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "moneymind_events_published_total",
		Help: "Turn events published to the message bus",
	}, []string{"result"})
)

func resultLabel(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

// RecordTurn records a completed conversation turn
func RecordTurn(intent, outcome string, d time.Duration) {
	TurnsTotal.WithLabelValues(intent, outcome).Inc()
	TurnDuration.WithLabelValues(intent).Observe(float64(d.Milliseconds()))
}

// RecordClassification records which tier decided an intent
func RecordClassification(intent string, viaModel bool) {
	tier := "keyword"
	if viaModel {
		tier = "model"
	}
	IntentClassifications.WithLabelValues(intent, tier).Inc()
}

// RecordAgentError records an agent failure
func RecordAgentError(agent string) {
	AgentErrors.WithLabelValues(agent).Inc()
}

// RecordProfileCompleted records a freshly scored profile
func RecordProfileCompleted(category string) {
	ProfilesCompleted.WithLabelValues(category).Inc()
}

// RecordStoreOperation records a user store call
func RecordStoreOperation(backend, operation string, ok bool, d time.Duration) {
	StoreOperations.WithLabelValues(backend, operation, resultLabel(ok)).Inc()
	StoreOperationDuration.WithLabelValues(backend, operation).Observe(float64(d.Milliseconds()))
}

// RecordSaveFailure records a turn whose final save failed
func RecordSaveFailure() {
	StoreSaveFailures.Inc()
}

// RecordLLMRequest records one generation call
func RecordLLMRequest(model string, d time.Duration, tokens int, err error) {
	LLMRequestDuration.WithLabelValues(model).Observe(float64(d.Milliseconds()))
	if tokens > 0 {
		LLMTokens.WithLabelValues(model).Add(float64(tokens))
	}
	if err != nil {
		LLMErrors.WithLabelValues(model, NormalizeError(err)).Inc()
	}
}

// RecordToolCall records a tool invocation
func RecordToolCall(tool string, ok bool) {
	ToolCalls.WithLabelValues(tool, resultLabel(ok)).Inc()
}

// RecordSearchRequest records a search provider call
func RecordSearchRequest(engine string, d time.Duration, err error) {
	SearchRequestDuration.WithLabelValues(engine).Observe(float64(d.Milliseconds()))
	if err != nil {
		SearchErrors.WithLabelValues(engine, NormalizeError(err)).Inc()
	}
}

// RecordCacheLookup records a cache hit or miss
func RecordCacheLookup(cache string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	CacheLookups.WithLabelValues(cache, result).Inc()
}

// UpdateCircuitBreaker sets the state gauge for a service
func UpdateCircuitBreaker(service string, state float64) {
	CircuitBreakerState.WithLabelValues(service).Set(state)
}

// RecordCircuitBreakerRequest records a request outcome through a breaker
func RecordCircuitBreakerRequest(service string, ok bool) {
	CircuitBreakerRequests.WithLabelValues(service, resultLabel(ok)).Inc()
}

// RecordCircuitBreakerTrip records a breaker opening
func RecordCircuitBreakerTrip(service string) {
	CircuitBreakerTrips.WithLabelValues(service).Inc()
}

// RecordHTTPRequest records an API request with duration
func RecordHTTPRequest(method, path, statusCode string, d time.Duration) {
	HTTPRequests.WithLabelValues(method, path, statusCode).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(float64(d.Milliseconds()))
}

// RecordMessageSent records an outbound channel message
func RecordMessageSent(channel string, ok bool) {
	MessagesSent.WithLabelValues(channel, resultLabel(ok)).Inc()
}

// RecordEventPublished records a message bus publish
func RecordEventPublished(ok bool) {
	EventsPublished.WithLabelValues(resultLabel(ok)).Inc()
}

// RecordPortfolioWarnings adds validation warnings for a generated portfolio
func RecordPortfolioWarnings(n int) {
	if n > 0 {
		PortfolioWarnings.Add(float64(n))
	}
}
