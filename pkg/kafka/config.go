package kafka

import (
	"os"
	"strings"
	"time"
)

// Config holds Kafka producer configuration.
type Config struct {
	Brokers  []string
	ClientID string

	BatchSize    int
	BatchTimeout time.Duration
	RequiredAcks int // 0: no ack, 1: leader ack, -1: all replicas ack
}

// DefaultConfig returns a Config with sensible defaults, brokers taken from
// KAFKA_BROKERS when set.
func DefaultConfig() *Config {
	brokers := []string{"localhost:9092"}
	if env := os.Getenv("KAFKA_BROKERS"); env != "" {
		brokers = strings.Split(env, ",")
	}
	return &Config{
		Brokers:  brokers,
		ClientID: "dispatch-service",

		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: -1,
	}
}
