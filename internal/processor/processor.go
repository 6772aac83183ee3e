// Package processor consumes inbound event messages from the broker,
// scores and enriches them, links duplicates, persists them and emits
// best-effort index documents.
package processor

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/osintops/sentinel/internal/broker"
	"github.com/osintops/sentinel/internal/domain"
	"github.com/osintops/sentinel/internal/enrich"
	"github.com/osintops/sentinel/internal/metrics"
	"github.com/osintops/sentinel/internal/verify"
)

// MessageSource is the broker surface the processor consumes.
type MessageSource interface {
	ReadBatch(ctx context.Context, count int64, block time.Duration) ([]broker.Message, error)
	Ack(ctx context.Context, ids ...string) error
}

// EventStorage is the durable event surface the processor writes to.
type EventStorage interface {
	InsertEvent(ctx context.Context, ev *domain.Event) error
	FindDuplicate(ctx context.Context, link, title string) (*domain.Event, error)
	UpgradePrimary(ctx context.Context, primaryID string, credibility float64, threat domain.ThreatLevel) error
}

// EventIndexer emits persisted events for search indexing, best-effort.
type EventIndexer interface {
	Index(ctx context.Context, event *domain.Event) error
}

// readErrorBackoff is the pause after a failed broker read. A broker
// error returns immediately instead of blocking, so without the pause a
// dead broker turns the read loop hot.
const readErrorBackoff = 2 * time.Second

// Config holds processor tuning parameters.
type Config struct {
	BatchSize    int64
	BlockTimeout time.Duration
}

// Processor is the event ingestion pipeline stage.
type Processor struct {
	source  MessageSource
	storage EventStorage
	indexer EventIndexer
	scorer  enrich.Scorer // nil disables ML blending
	metrics metrics.Recorder
	cfg     Config
}

// NewProcessor creates an event processor. scorer may be nil, in which
// case events are scored by the heuristic alone.
func NewProcessor(source MessageSource, storage EventStorage, idx EventIndexer, scorer enrich.Scorer, m metrics.Recorder, cfg Config) *Processor {
	if m == nil {
		m = metrics.NewNoOp()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.BlockTimeout <= 0 {
		cfg.BlockTimeout = 5 * time.Second
	}
	return &Processor{
		source:  source,
		storage: storage,
		indexer: idx,
		scorer:  scorer,
		metrics: m,
		cfg:     cfg,
	}
}

// Run consumes batches until the context is cancelled. Messages are
// acknowledged in read order, and only after their event has been durably
// persisted; a message that fails stays unacknowledged and is redelivered.
func (p *Processor) Run(ctx context.Context) error {
	slog.Info("Starting event processing loop",
		"batch_size", p.cfg.BatchSize,
		"block_timeout", p.cfg.BlockTimeout,
	)

	for {
		select {
		case <-ctx.Done():
			slog.Info("Event processing loop stopped")
			return nil
		default:
			batch, err := p.source.ReadBatch(ctx, p.cfg.BatchSize, p.cfg.BlockTimeout)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				slog.Error("Failed to read event batch", "error", err)
				select {
				case <-ctx.Done():
					slog.Info("Event processing loop stopped")
					return nil
				case <-time.After(readErrorBackoff):
				}
				continue
			}
			if len(batch) == 0 {
				continue
			}
			p.processBatch(ctx, batch)
		}
	}
}

// processBatch handles each message independently: an error in one message
// is logged and leaves that message unacknowledged while the rest of the
// batch proceeds.
func (p *Processor) processBatch(ctx context.Context, batch []broker.Message) {
	acked := make([]string, 0, len(batch))
	for _, msg := range batch {
		p.metrics.RecordReceived()
		start := time.Now()

		if err := p.processOne(ctx, msg); err != nil {
			slog.Error("Failed to process event message",
				"message_id", msg.ID,
				"error", err,
			)
			p.metrics.RecordError()
			continue
		}

		p.metrics.RecordProcessed(time.Since(start))
		acked = append(acked, msg.ID)
	}

	if err := p.source.Ack(ctx, acked...); err != nil {
		// Persisted but unacked messages are redelivered; duplicate
		// detection collapses most of the resulting re-inserts.
		slog.Error("Failed to acknowledge processed messages", "count", len(acked), "error", err)
		p.metrics.RecordError()
	}
}

// processOne scores, deduplicates and persists a single message.
func (p *Processor) processOne(ctx context.Context, msg broker.Message) error {
	inbound, err := broker.DecodeInbound(msg, time.Now().UTC())
	if err != nil {
		return err
	}

	score := p.scorePayload(ctx, inbound)

	event := &domain.Event{
		ID:                 uuid.NewString(),
		Title:              inbound.Title,
		Summary:            inbound.Summary,
		Category:           inbound.Category,
		Region:             inbound.Region,
		SourceURL:          inbound.SourceURL,
		Link:               inbound.Link,
		Confidence:         domain.Clamp01(inbound.Confidence),
		VerificationStatus: score.Status,
		CredibilityScore:   score.Credibility,
		ThreatLevel:        score.ThreatLevel,
		Raw: map[string]any{
			"source_name":     inbound.SourceName,
			"source_entry_id": inbound.SourceEntryID,
		},
		PublishedAt: inbound.PublishedAt,
		FetchedAt:   inbound.FetchedAt,
	}

	primary, err := p.storage.FindDuplicate(ctx, inbound.Link, inbound.Title)
	if err != nil {
		return err
	}

	if primary != nil {
		event.VerificationStatus = domain.StatusDuplicate
		event.DuplicateOf = primary.ID
		if err := p.storage.InsertEvent(ctx, event); err != nil {
			return err
		}
		if err := p.storage.UpgradePrimary(ctx, primary.ID, score.Credibility, score.ThreatLevel); err != nil {
			// The duplicate row is already durable; the upgrade will be
			// reattempted if the message is redelivered.
			return err
		}
		p.metrics.IncrementCustom("events_deduplicated")
		slog.Info("Linked duplicate event",
			"event_id", event.ID,
			"primary_id", primary.ID,
			"title", event.Title,
		)
	} else {
		if err := p.storage.InsertEvent(ctx, event); err != nil {
			return err
		}
		p.metrics.IncrementCustom("events_created")
		slog.Info("Persisted event",
			"event_id", event.ID,
			"category", event.Category,
			"region", event.Region,
			"status", event.VerificationStatus,
			"threat_level", event.ThreatLevel,
			"credibility", event.CredibilityScore,
		)
	}

	p.indexEvent(ctx, event)
	return nil
}

// scorePayload runs the deterministic heuristic and blends in the external
// ML signal when a scorer is configured. Scorer failures degrade to the
// pure heuristic.
func (p *Processor) scorePayload(ctx context.Context, inbound *broker.InboundEvent) verify.Score {
	payload := verify.Payload{
		SourceURL: inbound.SourceURL,
		Category:  inbound.Category,
		Title:     inbound.Title,
		Summary:   inbound.Summary,
	}
	score := verify.Run(payload)

	if p.scorer == nil {
		return score
	}

	signal, err := p.scorer.Score(ctx, payload)
	if err != nil {
		slog.Warn("External scorer failed, using heuristic alone",
			"title", inbound.Title,
			"error", err,
		)
		return score
	}
	return verify.Blend(score, signal)
}

// indexEvent emits the persisted event for search indexing. Failures are
// logged and never block acknowledgment.
func (p *Processor) indexEvent(ctx context.Context, event *domain.Event) {
	if p.indexer == nil {
		return
	}
	if err := p.indexer.Index(ctx, event); err != nil {
		slog.Warn("Failed to index event (non-fatal)",
			"event_id", event.ID,
			"error", err,
		)
		return
	}
	p.metrics.RecordPublished()
}
