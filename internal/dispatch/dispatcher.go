// Package dispatch fans alert candidates out to eligible users and
// channels. It owns the dedup check against the sent-notification ledger,
// the should-notify and quiet-hours filters, and the concurrent
// per-channel delivery barrier.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/osintops/sentinel/internal/dispatch/channel"
	"github.com/osintops/sentinel/internal/domain"
	"github.com/osintops/sentinel/internal/metrics"
)

// Ledger is the subset of the sent-notification store the dispatcher
// depends on.
type Ledger interface {
	RecordSent(ctx context.Context, n *domain.SentNotification) error
	HasRecentSent(ctx context.Context, userID, eventID string, window time.Duration) (bool, error)
}

// Dispatcher delivers one alert candidate to every eligible user/channel
// pair and records each attempt in the ledger.
type Dispatcher struct {
	registry    *channel.Registry
	ledger      Ledger
	metrics     metrics.Recorder
	dedupWindow time.Duration
	now         func() time.Time
}

// NewDispatcher creates a dispatcher over the given channel registry and
// ledger. A nil recorder disables metrics.
func NewDispatcher(registry *channel.Registry, ledger Ledger, recorder metrics.Recorder, dedupWindow time.Duration) *Dispatcher {
	if recorder == nil {
		recorder = metrics.NewNoOp()
	}
	return &Dispatcher{
		registry:    registry,
		ledger:      ledger,
		metrics:     recorder,
		dedupWindow: dedupWindow,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Dispatch delivers a candidate to a single user. It returns one result
// per attempted channel; a user skipped by dedup, filters or quiet hours
// gets an empty slice and no ledger rows.
func (d *Dispatcher) Dispatch(ctx context.Context, cand domain.AlertCandidate, prefs domain.Preferences) ([]channel.Result, error) {
	recent, err := d.ledger.HasRecentSent(ctx, prefs.UserID, cand.Event.ID, d.dedupWindow)
	if err != nil {
		return nil, fmt.Errorf("failed dedup check for user %s: %w", prefs.UserID, err)
	}
	if recent {
		slog.Debug("Skipping notification, already sent within dedup window",
			"user_id", prefs.UserID,
			"event_id", cand.Event.ID,
		)
		d.metrics.IncrementCustom("notifications_deduped")
		return nil, nil
	}

	if !d.shouldNotify(cand, prefs) {
		return nil, nil
	}

	if d.inQuietHours(prefs) {
		if cand.Rule.Priority != domain.PriorityCritical || !prefs.CriticalOverride {
			slog.Debug("Suppressing notification during quiet hours",
				"user_id", prefs.UserID,
				"event_id", cand.Event.ID,
				"priority", cand.Rule.Priority,
			)
			d.metrics.IncrementCustom("notifications_quiet_hours")
			return nil, nil
		}
	}

	type attempt struct {
		sender    channel.Sender
		recipient string
	}
	var attempts []attempt
	for _, ch := range prefs.Channels {
		sender, ok := d.registry.Get(ch)
		if !ok {
			slog.Warn("No sender registered for channel", "channel", ch)
			continue
		}
		recipient, ok := sender.Recipient(prefs)
		if !ok {
			// Missing contact info: skip without recording.
			slog.Debug("Skipping channel, missing contact info",
				"user_id", prefs.UserID,
				"channel", ch,
			)
			continue
		}
		attempts = append(attempts, attempt{sender: sender, recipient: recipient})
	}
	if len(attempts) == 0 {
		return nil, nil
	}

	results := make([]channel.Result, len(attempts))
	var wg sync.WaitGroup
	for i, a := range attempts {
		wg.Add(1)
		go func(i int, a attempt) {
			defer wg.Done()
			// A panicking sender must not take down its sibling
			// channels; it becomes a failed result like any other
			// delivery error.
			defer func() {
				if r := recover(); r != nil {
					results[i] = channel.Result{
						Channel:   a.sender.Channel(),
						Recipient: a.recipient,
						Err:       fmt.Errorf("sender panicked: %v", r),
						Timestamp: d.now(),
					}
				}
			}()
			results[i] = d.send(ctx, a.sender, a.recipient, cand, prefs)
		}(i, a)
	}
	wg.Wait()

	for _, r := range results {
		d.record(ctx, prefs.UserID, cand, r)
	}
	return results, nil
}

// DispatchToUsers runs per-user dispatch concurrently and aggregates
// results by user id. A panic inside one user's dispatch is captured and
// converted into a single failed result for that user.
func (d *Dispatcher) DispatchToUsers(ctx context.Context, cand domain.AlertCandidate, users []domain.Preferences) map[string][]channel.Result {
	out := make(map[string][]channel.Result, len(users))
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, prefs := range users {
		wg.Add(1)
		go func(prefs domain.Preferences) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					slog.Error("Panic during user dispatch",
						"user_id", prefs.UserID,
						"event_id", cand.Event.ID,
						"panic", r,
					)
					mu.Lock()
					out[prefs.UserID] = []channel.Result{{
						Recipient: prefs.UserID,
						Err:       fmt.Errorf("dispatch panicked: %v", r),
						Timestamp: d.now(),
					}}
					mu.Unlock()
				}
			}()

			results, err := d.Dispatch(ctx, cand, prefs)
			if err != nil {
				slog.Error("Failed to dispatch to user",
					"user_id", prefs.UserID,
					"event_id", cand.Event.ID,
					"error", err,
				)
				results = []channel.Result{{
					Recipient: prefs.UserID,
					Err:       err,
					Timestamp: d.now(),
				}}
			}
			mu.Lock()
			out[prefs.UserID] = results
			mu.Unlock()
		}(prefs)
	}
	wg.Wait()
	return out
}

// send runs one channel delivery. Webhook goes through the signed path so
// the per-user secret reaches the sender.
func (d *Dispatcher) send(ctx context.Context, sender channel.Sender, recipient string, cand domain.AlertCandidate, prefs domain.Preferences) channel.Result {
	if ws, isWebhook := sender.(*channel.WebhookSender); isWebhook {
		return ws.SendSigned(ctx, recipient, prefs.WebhookSecret, cand)
	}
	return sender.Send(ctx, recipient, cand)
}

// record appends one ledger row for an attempted (user, channel) pair.
func (d *Dispatcher) record(ctx context.Context, userID string, cand domain.AlertCandidate, r channel.Result) {
	n := &domain.SentNotification{
		ID:        uuid.NewString(),
		UserID:    userID,
		EventID:   cand.Event.ID,
		RuleID:    cand.Rule.ID,
		Channel:   r.Channel,
		Recipient: r.Recipient,
		MessageID: r.MessageID,
		CreatedAt: d.now(),
	}
	if r.Success {
		n.Status = domain.SentOK
		sentAt := r.Timestamp
		n.SentAt = &sentAt
		d.metrics.RecordPublished()
	} else {
		n.Status = domain.SentFailed
		if r.Err != nil {
			n.Error = r.Err.Error()
		}
		d.metrics.RecordError()
	}

	if err := d.ledger.RecordSent(ctx, n); err != nil {
		slog.Error("Failed to record notification attempt",
			"user_id", userID,
			"event_id", cand.Event.ID,
			"channel", r.Channel,
			"error", err,
		)
	}
}

// shouldNotify applies the user's priority, watch-set and muted-source
// filters to a candidate.
func (d *Dispatcher) shouldNotify(cand domain.AlertCandidate, prefs domain.Preferences) bool {
	if cand.Rule.Priority.Ordinal() < prefs.MinPriority.Ordinal() {
		return false
	}
	if len(prefs.Regions) > 0 && !inWatchSet(cand.Event.Region, prefs.Regions) {
		return false
	}
	if len(prefs.Categories) > 0 && !inWatchSet(cand.Event.Category, prefs.Categories) {
		return false
	}
	if sourceMuted(cand.Event.SourceURL, prefs.MutedSources) {
		return false
	}
	return true
}

// inQuietHours reports whether the current wall-clock time falls inside
// the user's [start,end) window. Overnight windows where start > end wrap
// past midnight.
func (d *Dispatcher) inQuietHours(prefs domain.Preferences) bool {
	if !prefs.QuietHoursEnabled() {
		return false
	}
	start, err := parseClock(prefs.QuietHoursStart)
	if err != nil {
		slog.Warn("Invalid quiet hours start", "user_id", prefs.UserID, "value", prefs.QuietHoursStart)
		return false
	}
	end, err := parseClock(prefs.QuietHoursEnd)
	if err != nil {
		slog.Warn("Invalid quiet hours end", "user_id", prefs.UserID, "value", prefs.QuietHoursEnd)
		return false
	}

	now := d.now()
	minute := now.Hour()*60 + now.Minute()
	if start <= end {
		return minute >= start && minute < end
	}
	// Overnight window, e.g. 22:00-07:00.
	return minute >= start || minute < end
}

// parseClock converts "HH:MM" into minutes since midnight.
func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid clock time %q: %w", s, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// inWatchSet does a case-insensitive membership check.
func inWatchSet(value string, set []string) bool {
	for _, s := range set {
		if strings.EqualFold(strings.TrimSpace(s), strings.TrimSpace(value)) {
			return true
		}
	}
	return false
}

// sourceMuted matches the event's source host against the user's muted
// list. Entries may be bare hostnames or full URLs; subdomains of a muted
// host count.
func sourceMuted(sourceURL string, muted []string) bool {
	if sourceURL == "" || len(muted) == 0 {
		return false
	}
	host := hostOf(sourceURL)
	if host == "" {
		return false
	}
	for _, m := range muted {
		mh := hostOf(m)
		if mh == "" {
			mh = strings.ToLower(strings.TrimSpace(m))
		}
		if mh == "" {
			continue
		}
		if host == mh || strings.HasSuffix(host, "."+mh) {
			return true
		}
	}
	return false
}

func hostOf(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.ToLower(parsed.Hostname())
}
