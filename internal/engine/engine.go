// Package engine drives the alerting loop: on every tick it loads active
// rules, fetches recently persisted events, evaluates candidates and hands
// them to the dispatcher, then runs the escalation sweep.
package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/osintops/sentinel/internal/dispatch"
	"github.com/osintops/sentinel/internal/dispatch/channel"
	"github.com/osintops/sentinel/internal/domain"
	"github.com/osintops/sentinel/internal/evaluator"
	"github.com/osintops/sentinel/internal/metrics"
)

// State is the engine lifecycle state.
type State string

const (
	StateIdle    State = "idle"
	StateTicking State = "ticking"
	StateStopped State = "stopped"
)

// AlertStore is the subset of the durable store the engine reads.
type AlertStore interface {
	ActiveRules(ctx context.Context) ([]domain.AlertRule, error)
	EventsSince(ctx context.Context, since time.Time, limit int) ([]domain.Event, error)
	ListRecipients(ctx context.Context) ([]domain.Preferences, error)
}

// UserDispatcher fans one candidate out to a set of users.
type UserDispatcher interface {
	DispatchToUsers(ctx context.Context, cand domain.AlertCandidate, users []domain.Preferences) map[string][]channel.Result
}

// AutoAcker acknowledges delivered notifications for auto_ack rules.
type AutoAcker interface {
	Acknowledge(ctx context.Context, userID, eventID, ruleID, notes string) (int64, error)
}

// Config holds the engine's loop settings.
type Config struct {
	PollInterval time.Duration
	BatchSize    int
}

// Engine orchestrates evaluation and dispatch on a poll loop. The only
// state carried across ticks is lastCheck.
type Engine struct {
	store      AlertStore
	dispatcher UserDispatcher
	escalation *EscalationMonitor
	acker      AutoAcker
	metrics    metrics.Recorder
	config     Config

	state     State
	lastCheck time.Time
	now       func() time.Time
}

// New creates an engine. The escalation monitor, acker and recorder may
// be nil; without an acker, auto_ack rules behave like regular ones.
func New(store AlertStore, dispatcher UserDispatcher, escalation *EscalationMonitor, acker AutoAcker, recorder metrics.Recorder, config Config) *Engine {
	if recorder == nil {
		recorder = metrics.NewNoOp()
	}
	return &Engine{
		store:      store,
		dispatcher: dispatcher,
		escalation: escalation,
		acker:      acker,
		metrics:    recorder,
		config:     config,
		state:      StateIdle,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// State returns the engine's current lifecycle state.
func (e *Engine) State() State {
	return e.state
}

// Run ticks at the configured poll interval until the context is
// cancelled. Errors inside a tick are logged and never stop the loop.
func (e *Engine) Run(ctx context.Context) error {
	slog.Info("Starting alert engine",
		"poll_interval", e.config.PollInterval,
		"batch_size", e.config.BatchSize,
	)

	ticker := time.NewTicker(e.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.state = StateStopped
			slog.Info("Alert engine stopped")
			return ctx.Err()
		case <-ticker.C:
			e.Tick(ctx)
		}
	}
}

// Tick runs one evaluation cycle. lastCheck advances only after the tick
// completes cleanly, so a failed tick re-scans the same window next time.
func (e *Engine) Tick(ctx context.Context) {
	e.state = StateTicking
	defer func() { e.state = StateIdle }()

	started := e.now()
	since := e.lastCheck
	if since.IsZero() {
		since = started.Add(-time.Hour)
	}

	if err := e.tick(ctx, since, started); err != nil {
		slog.Error("Alert tick failed", "error", err)
		e.metrics.RecordError()
	} else {
		e.lastCheck = started
		e.metrics.RecordProcessed(time.Since(started))
	}

	// The sweep runs even when the tick fails: a store error on the
	// evaluation path must not starve overdue critical notifications.
	if e.escalation != nil {
		e.escalation.Sweep(ctx)
	}
}

func (e *Engine) tick(ctx context.Context, since, now time.Time) error {
	rules, err := e.store.ActiveRules(ctx)
	if err != nil {
		return err
	}
	if len(rules) == 0 {
		return nil
	}

	events, err := e.store.EventsSince(ctx, since, e.config.BatchSize)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		return nil
	}

	candidates := evaluator.Evaluate(events, rules, now)
	if len(candidates) == 0 {
		return nil
	}
	slog.Info("Evaluated alert candidates",
		"events", len(events),
		"rules", len(rules),
		"candidates", len(candidates),
	)

	users, err := e.store.ListRecipients(ctx)
	if err != nil {
		return err
	}
	if len(users) == 0 {
		return nil
	}

	// Candidates run sequentially so ledger writes for the same
	// (user, event) never race.
	for _, cand := range candidates {
		results := e.dispatcher.DispatchToUsers(ctx, cand, users)
		logOutcomes(cand, results)
		if cand.Rule.AutoAck {
			e.autoAck(ctx, cand, results)
		}
	}
	return nil
}

// autoAck immediately acknowledges delivered notifications for auto_ack
// rules so they never enter the escalation window. Only users with at
// least one successful send are acknowledged; failed attempts stay open
// for the retry on the next matching tick.
func (e *Engine) autoAck(ctx context.Context, cand domain.AlertCandidate, results map[string][]channel.Result) {
	if e.acker == nil {
		return
	}
	for userID, userResults := range results {
		delivered := false
		for _, r := range userResults {
			if r.Success {
				delivered = true
				break
			}
		}
		if !delivered {
			continue
		}
		if _, err := e.acker.Acknowledge(ctx, userID, cand.Event.ID, cand.Rule.ID, "auto-acknowledged"); err != nil {
			slog.Warn("Failed to auto-acknowledge alert",
				"user_id", userID,
				"event_id", cand.Event.ID,
				"rule", cand.Rule.Name,
				"error", err,
			)
		}
	}
}

func logOutcomes(cand domain.AlertCandidate, results map[string][]channel.Result) {
	var sent, failed int
	for _, userResults := range results {
		for _, r := range userResults {
			if r.Success {
				sent++
			} else {
				failed++
			}
		}
	}
	if sent == 0 && failed == 0 {
		return
	}
	slog.Info("Dispatched alert candidate",
		"event_id", cand.Event.ID,
		"rule", cand.Rule.Name,
		"sent", sent,
		"failed", failed,
	)
}

var _ UserDispatcher = (*dispatch.Dispatcher)(nil)
var _ AutoAcker = (*AckService)(nil)
