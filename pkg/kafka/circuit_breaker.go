package kafka

import (
	"context"
	"time"

	"github.com/sony/gobreaker"

	"github.com/voicewms/dispatch-service/pkg/events"
	"github.com/voicewms/dispatch-service/pkg/logging"
	"github.com/voicewms/dispatch-service/pkg/metrics"
)

// CircuitBreakerProducer wraps Producer so a broker outage fails fast
// instead of stalling every outbox poll on write timeouts.
type CircuitBreakerProducer struct {
	producer *Producer
	breaker  *gobreaker.CircuitBreaker
	logger   *logging.Logger
	metrics  *metrics.Metrics
}

// NewCircuitBreakerProducer creates a circuit-breaker protected producer.
func NewCircuitBreakerProducer(producer *Producer, m *metrics.Metrics, logger *logging.Logger) *CircuitBreakerProducer {
	p := &CircuitBreakerProducer{
		producer: producer,
		logger:   logger.WithComponent("kafka-circuit-breaker"),
		metrics:  m,
	}

	p.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "kafka-producer",
		MaxRequests: 5,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.5
		},
		OnStateChange: p.onStateChange,
	})
	return p
}

func (p *CircuitBreakerProducer) onStateChange(name string, from, to gobreaker.State) {
	p.logger.Warn("Circuit breaker state change",
		"name", name,
		"from", from.String(),
		"to", to.String(),
	)
	if p.metrics == nil {
		return
	}
	p.metrics.SetCircuitBreakerState(name, stateValue(to))
	if to == gobreaker.StateOpen {
		p.metrics.RecordCircuitBreakerTrip(name)
	}
}

func stateValue(state gobreaker.State) int {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	default:
		return 2
	}
}

// PublishEvent publishes a CloudEvent through the breaker.
func (p *CircuitBreakerProducer) PublishEvent(ctx context.Context, topic string, event *events.CloudEvent) error {
	_, err := p.breaker.Execute(func() (interface{}, error) {
		return nil, p.producer.PublishEvent(ctx, topic, event)
	})
	return err
}

// State returns the current breaker state.
func (p *CircuitBreakerProducer) State() gobreaker.State {
	return p.breaker.State()
}

// Close closes the underlying producer.
func (p *CircuitBreakerProducer) Close() error {
	return p.producer.Close()
}
