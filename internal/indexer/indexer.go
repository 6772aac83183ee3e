// Package indexer publishes normalized events to the search-index topic.
// Indexing is strictly best-effort: a failed emission is logged by the
// caller and never blocks persistence or acknowledgment.
package indexer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/osintops/sentinel/internal/domain"
)

const writeTimeout = 10 * time.Second

// Indexer emits events for downstream search indexing.
type Indexer interface {
	Index(ctx context.Context, event *domain.Event) error
	Close() error
}

// document is the flattened shape published for the search indexer.
type document struct {
	ID               string  `json:"id"`
	Title            string  `json:"title"`
	Summary          string  `json:"summary"`
	Category         string  `json:"category"`
	Region           string  `json:"region"`
	Link             string  `json:"link"`
	ThreatLevel      string  `json:"threat_level,omitempty"`
	CredibilityScore float64 `json:"credibility_score"`
	Status           string  `json:"verification_status"`
	PublishedAt      string  `json:"published_at"`
	FetchedAt        string  `json:"fetched_at"`
}

// KafkaIndexer publishes index documents to a Kafka topic consumed by the
// external search indexer.
type KafkaIndexer struct {
	writer *kafka.Writer
	topic  string
}

// NewKafkaIndexer creates an indexer writing to the given topic.
func NewKafkaIndexer(brokers, topic string) (*KafkaIndexer, error) {
	if brokers == "" {
		return nil, fmt.Errorf("brokers cannot be empty")
	}
	if topic == "" {
		return nil, fmt.Errorf("topic cannot be empty")
	}

	brokerList := strings.Split(brokers, ",")
	for i := range brokerList {
		brokerList[i] = strings.TrimSpace(brokerList[i])
	}

	slog.Info("Initializing index producer", "brokers", brokerList, "topic", topic)

	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokerList...),
		Topic:        topic,
		Balancer:     &kafka.Hash{}, // keyed by event id
		WriteTimeout: writeTimeout,
		RequiredAcks: kafka.RequireOne,
		Async:        false,
	}

	return &KafkaIndexer{writer: writer, topic: topic}, nil
}

// Index serializes the event into an index document and publishes it.
func (k *KafkaIndexer) Index(ctx context.Context, event *domain.Event) error {
	doc := document{
		ID:               event.ID,
		Title:            event.Title,
		Summary:          event.Summary,
		Category:         event.Category,
		Region:           event.Region,
		Link:             event.Link,
		ThreatLevel:      string(event.ThreatLevel),
		CredibilityScore: event.CredibilityScore,
		Status:           string(event.VerificationStatus),
		PublishedAt:      event.PublishedAt.UTC().Format(time.RFC3339),
		FetchedAt:        event.FetchedAt.UTC().Format(time.RFC3339),
	}

	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal index document: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.ID),
		Value: payload,
		Time:  event.FetchedAt,
	}

	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish index document: %w", err)
	}
	return nil
}

// Close gracefully closes the underlying writer.
func (k *KafkaIndexer) Close() error {
	slog.Info("Closing index producer", "topic", k.topic)
	return k.writer.Close()
}

// NoOp discards index emissions. Used when no index topic is configured.
type NoOp struct{}

func (NoOp) Index(context.Context, *domain.Event) error { return nil }
func (NoOp) Close() error                               { return nil }
