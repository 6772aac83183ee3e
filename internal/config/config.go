// Package config provides configuration parsing and validation for the
// sentinel pipeline.
package config

import (
	"fmt"
)

// Config holds all configuration parameters for the pipeline.
type Config struct {
	// Broker (Redis Streams)
	RedisAddr     string
	EventStream   string
	ConsumerGroup string
	ConsumerName  string

	// Durable store
	PostgresDSN string

	// Search index emitter; empty brokers disable indexing.
	KafkaBrokers string
	IndexTopic   string

	// Event processor
	BatchSize        int
	BlockTimeoutSecs int

	// Alert engine
	PollIntervalSecs      int
	DedupWindowHours      int
	EscalationEnabled     bool
	EscalationTimeoutMins int

	// Metrics publishing to Redis; disabled when false.
	MetricsEnabled bool
}

// Validate checks that all required configuration fields are set and have
// valid values. Returns an error if validation fails, nil otherwise.
func (c *Config) Validate() error {
	if c.RedisAddr == "" {
		return fmt.Errorf("redis-addr cannot be empty")
	}
	if c.EventStream == "" {
		return fmt.Errorf("event-stream cannot be empty")
	}
	if c.ConsumerGroup == "" {
		return fmt.Errorf("consumer-group cannot be empty")
	}
	if c.ConsumerName == "" {
		return fmt.Errorf("consumer-name cannot be empty")
	}
	if c.PostgresDSN == "" {
		return fmt.Errorf("postgres-dsn cannot be empty")
	}
	if c.KafkaBrokers != "" && c.IndexTopic == "" {
		return fmt.Errorf("index-topic cannot be empty when kafka-brokers is set")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch-size must be positive, got %d", c.BatchSize)
	}
	if c.BlockTimeoutSecs <= 0 {
		return fmt.Errorf("block-timeout-secs must be positive, got %d", c.BlockTimeoutSecs)
	}
	if c.PollIntervalSecs <= 0 {
		return fmt.Errorf("poll-interval-secs must be positive, got %d", c.PollIntervalSecs)
	}
	if c.DedupWindowHours <= 0 {
		return fmt.Errorf("dedup-window-hours must be positive, got %d", c.DedupWindowHours)
	}
	if c.EscalationEnabled && c.EscalationTimeoutMins <= 0 {
		return fmt.Errorf("escalation-timeout-mins must be positive, got %d", c.EscalationTimeoutMins)
	}
	return nil
}
