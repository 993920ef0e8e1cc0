// Package breaker wraps outbound dependencies in circuit breakers
package breaker

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/ajitpratap0/moneymind/internal/metrics"
)

// Service names used as breaker names and metric labels
const (
	ServiceLLM    = "llm"
	ServiceSearch = "search"
	ServiceStore  = "store"
)

// Default thresholds per service
const (
	LLMMinRequests     = 3
	LLMFailureRatio    = 0.6
	LLMOpenTimeout     = 60 * time.Second
	LLMHalfOpenMaxReqs = 2
	LLMCountInterval   = 10 * time.Second

	SearchMinRequests     = 5
	SearchFailureRatio    = 0.6
	SearchOpenTimeout     = 30 * time.Second
	SearchHalfOpenMaxReqs = 3
	SearchCountInterval   = 10 * time.Second

	StoreMinRequests     = 10
	StoreFailureRatio    = 0.6
	StoreOpenTimeout     = 15 * time.Second
	StoreHalfOpenMaxReqs = 5
	StoreCountInterval   = 10 * time.Second
)

// ErrOpen is returned when a breaker rejects a call
var ErrOpen = errors.New("circuit breaker is open")

// Settings holds circuit breaker configuration for a single service
type Settings struct {
	MinRequests     uint32
	FailureRatio    float64
	OpenTimeout     time.Duration
	HalfOpenMaxReqs uint32
	CountInterval   time.Duration
}

// DefaultSettings returns the thresholds for a known service. Names of the
// form "llm:<model>" share the llm thresholds.
func DefaultSettings(service string) Settings {
	switch {
	case service == ServiceLLM || strings.HasPrefix(service, ServiceLLM+":"):
		return Settings{LLMMinRequests, LLMFailureRatio, LLMOpenTimeout, LLMHalfOpenMaxReqs, LLMCountInterval}
	case service == ServiceSearch || strings.HasPrefix(service, ServiceSearch+":"):
		return Settings{SearchMinRequests, SearchFailureRatio, SearchOpenTimeout, SearchHalfOpenMaxReqs, SearchCountInterval}
	default:
		return Settings{StoreMinRequests, StoreFailureRatio, StoreOpenTimeout, StoreHalfOpenMaxReqs, StoreCountInterval}
	}
}

// ParseDuration parses a duration string and returns the duration or a default value
func ParseDuration(durationStr string, defaultValue time.Duration) time.Duration {
	if durationStr == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(durationStr)
	if err != nil {
		return defaultValue
	}
	return d
}

// Manager owns one breaker per outbound service
type Manager struct {
	mu       sync.RWMutex
	breakers map[string]*gobreaker.CircuitBreaker
	settings map[string]Settings
	tripping bool
	// ignore reports errors that are the caller's fault rather than the
	// dependency's; they do not count toward tripping
	ignore func(error) bool
}

// Option configures a Manager
type Option func(*Manager)

// WithSettings overrides thresholds for a service
func WithSettings(service string, s Settings) Option {
	return func(m *Manager) {
		m.settings[service] = s
	}
}

// WithIgnoredErrors sets the predicate for errors that do not count as failures
func WithIgnoredErrors(fn func(error) bool) Option {
	return func(m *Manager) {
		m.ignore = fn
	}
}

// NewManager creates a manager with default settings for every service
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		breakers: make(map[string]*gobreaker.CircuitBreaker),
		settings: map[string]Settings{
			ServiceLLM:    DefaultSettings(ServiceLLM),
			ServiceSearch: DefaultSettings(ServiceSearch),
			ServiceStore:  DefaultSettings(ServiceStore),
		},
		tripping: true,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// NewPassthrough creates a manager whose breakers never trip
func NewPassthrough() *Manager {
	m := NewManager()
	m.tripping = false
	return m
}

func (m *Manager) breaker(service string) *gobreaker.CircuitBreaker {
	m.mu.RLock()
	cb, ok := m.breakers[service]
	m.mu.RUnlock()
	if ok {
		return cb
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if cb, ok := m.breakers[service]; ok {
		return cb
	}

	cb = gobreaker.NewCircuitBreaker(m.buildSettings(service))
	m.breakers[service] = cb
	if m.tripping {
		updateState(service, cb.State())
	}
	return cb
}

func (m *Manager) buildSettings(service string) gobreaker.Settings {
	if !m.tripping {
		return gobreaker.Settings{
			Name:        service + "_passthrough",
			MaxRequests: 1000,
			Timeout:     time.Millisecond,
			ReadyToTrip: func(gobreaker.Counts) bool { return false },
		}
	}

	s, ok := m.settings[service]
	if !ok {
		s = DefaultSettings(service)
	}
	ignore := m.ignore

	return gobreaker.Settings{
		Name:        service,
		MaxRequests: s.HalfOpenMaxReqs,
		Interval:    s.CountInterval,
		Timeout:     s.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests == 0 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= s.MinRequests && failureRatio >= s.FailureRatio
		},
		IsSuccessful: func(err error) bool {
			return err == nil || (ignore != nil && ignore(err))
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			updateState(service, to)
			if to == gobreaker.StateOpen {
				metrics.RecordCircuitBreakerTrip(service)
			}
		},
	}
}

// Execute runs fn through the named service's breaker. Rejections while
// open are reported as ErrOpen.
func (m *Manager) Execute(service string, fn func() (interface{}, error)) (interface{}, error) {
	res, err := m.breaker(service).Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		metrics.RecordCircuitBreakerRequest(service, false)
		return nil, ErrOpen
	}
	metrics.RecordCircuitBreakerRequest(service, err == nil)
	return res, err
}

// State reports the current breaker state for a service
func (m *Manager) State(service string) gobreaker.State {
	return m.breaker(service).State()
}

// Do runs fn through the breaker and returns its typed result
func Do[T any](m *Manager, service string, fn func() (T, error)) (T, error) {
	var zero T
	if m == nil {
		return fn()
	}
	res, err := m.Execute(service, func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		if v, ok := res.(T); ok {
			return v, err
		}
		return zero, err
	}
	v, _ := res.(T)
	return v, nil
}

func updateState(service string, state gobreaker.State) {
	var v float64
	switch state {
	case gobreaker.StateClosed:
		v = 0
	case gobreaker.StateOpen:
		v = 1
	case gobreaker.StateHalfOpen:
		v = 2
	}
	metrics.UpdateCircuitBreaker(service, v)
}
