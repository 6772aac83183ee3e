// Package broker provides the Redis Streams consumer for inbound
// intelligence events. The stream is consumed through a consumer group
// with explicit acknowledgment, so unacked messages are redelivered and
// processing is at-least-once.
package broker

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Message is one raw entry read from the stream, identified by its stream
// id for acknowledgment.
type Message struct {
	ID     string
	Values map[string]string
}

// Consumer reads inbound event messages from a Redis stream via a
// consumer group.
type Consumer struct {
	client   *redis.Client
	stream   string
	group    string
	consumer string
	// Pending entries idle longer than this are reclaimed from crashed
	// consumers before each read.
	claimMinIdle time.Duration
}

// NewConsumer creates the consumer group (idempotently) and returns a
// consumer bound to it.
func NewConsumer(ctx context.Context, client *redis.Client, stream, group, consumer string) (*Consumer, error) {
	if stream == "" || group == "" || consumer == "" {
		return nil, fmt.Errorf("stream, group and consumer cannot be empty")
	}

	// MKSTREAM so the group can be created before any producer has written.
	err := client.XGroupCreateMkStream(ctx, stream, group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return nil, fmt.Errorf("failed to create consumer group %q on stream %q: %w", group, stream, err)
	}

	slog.Info("Initialized stream consumer",
		"stream", stream,
		"group", group,
		"consumer", consumer,
	)

	return &Consumer{
		client:       client,
		stream:       stream,
		group:        group,
		consumer:     consumer,
		claimMinIdle: 5 * time.Minute,
	}, nil
}

// ReadBatch returns up to count messages, blocking up to block for new
// entries. Stale pending entries from dead consumers are reclaimed first so
// unacknowledged messages are eventually redelivered.
func (c *Consumer) ReadBatch(ctx context.Context, count int64, block time.Duration) ([]Message, error) {
	reclaimed := c.claimStale(ctx, count)
	if int64(len(reclaimed)) >= count {
		return reclaimed, nil
	}

	streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.group,
		Consumer: c.consumer,
		Streams:  []string{c.stream, ">"},
		Count:    count - int64(len(reclaimed)),
		Block:    block,
	}).Result()
	if err == redis.Nil {
		// Block timeout expired with no new entries.
		return reclaimed, nil
	}
	if err != nil {
		if len(reclaimed) > 0 {
			return reclaimed, nil
		}
		return nil, fmt.Errorf("failed to read from stream %q: %w", c.stream, err)
	}

	messages := reclaimed
	for _, s := range streams {
		for _, entry := range s.Messages {
			messages = append(messages, toMessage(entry))
		}
	}
	return messages, nil
}

// claimStale transfers ownership of long-idle pending entries to this
// consumer. Errors are logged, not fatal: redelivery is best-effort per
// pass and will be retried on the next one.
func (c *Consumer) claimStale(ctx context.Context, count int64) []Message {
	entries, _, err := c.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   c.stream,
		Group:    c.group,
		Consumer: c.consumer,
		MinIdle:  c.claimMinIdle,
		Start:    "0-0",
		Count:    count,
	}).Result()
	if err != nil && err != redis.Nil {
		slog.Warn("Failed to reclaim stale pending entries", "stream", c.stream, "error", err)
		return nil
	}

	var messages []Message
	for _, entry := range entries {
		messages = append(messages, toMessage(entry))
	}
	if len(messages) > 0 {
		slog.Info("Reclaimed stale pending entries", "stream", c.stream, "count", len(messages))
	}
	return messages
}

// Ack acknowledges the given message ids in one call. Ids must only be
// acked after their events have been durably persisted.
func (c *Consumer) Ack(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := c.client.XAck(ctx, c.stream, c.group, ids...).Err(); err != nil {
		return fmt.Errorf("failed to ack %d message(s) on stream %q: %w", len(ids), c.stream, err)
	}
	return nil
}

// Close releases the underlying Redis connection.
func (c *Consumer) Close() error {
	slog.Info("Closing stream consumer", "stream", c.stream)
	return c.client.Close()
}

func toMessage(entry redis.XMessage) Message {
	values := make(map[string]string, len(entry.Values))
	for k, v := range entry.Values {
		if s, ok := v.(string); ok {
			values[k] = s
		} else {
			values[k] = fmt.Sprint(v)
		}
	}
	return Message{ID: entry.ID, Values: values}
}
