package wish

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// WatchOptions configures a live wish list.
type WatchOptions struct {
	// Dedupe keeps only the most recent wish per guest.
	Dedupe bool

	// PollInterval re-reads the list periodically in addition to change
	// notifications. Zero disables polling.
	PollInterval time.Duration
}

// Feed projects an invitation's wishes into a live, sorted list.
type Feed struct {
	repo     Repository
	notifier Notifier
	logger   *slog.Logger
}

// NewFeed creates a Feed. notifier may be nil, in which case only the
// initial snapshot and poll ticks are delivered. logger may be nil.
func NewFeed(repo Repository, notifier Notifier, logger *slog.Logger) *Feed {
	if logger == nil {
		logger = slog.Default()
	}
	return &Feed{repo: repo, notifier: notifier, logger: logger}
}

// Snapshot lists the invitation's wishes once, sorted and optionally deduped.
func (f *Feed) Snapshot(ctx context.Context, invitationID string, dedupe bool) ([]Wish, error) {
	wishes, err := f.repo.ListByInvitation(ctx, invitationID)
	if err != nil {
		return nil, fmt.Errorf("list wishes for %s: %w", invitationID, err)
	}
	Sort(wishes)
	if dedupe {
		wishes = Dedupe(wishes)
	}
	return wishes, nil
}

// Watch streams snapshots of the invitation's wishes until ctx is done.
//
// The first snapshot is read before Watch returns, so a store that cannot be
// reached fails the call instead of producing an empty stream. Afterwards a
// snapshot is sent per change notification and per poll tick; a failed
// re-read is logged and skipped. The returned channel is closed when ctx is
// done.
func (f *Feed) Watch(ctx context.Context, invitationID string, opts WatchOptions) (<-chan []Wish, error) {
	ctx, cancel := context.WithCancel(ctx)

	var changes <-chan struct{}
	if f.notifier != nil {
		sub, err := f.notifier.Subscribe(ctx, invitationID)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("subscribe to %s: %w", invitationID, err)
		}
		changes = sub
	}

	first, err := f.Snapshot(ctx, invitationID, opts.Dedupe)
	if err != nil {
		cancel()
		return nil, err
	}

	out := make(chan []Wish, 1)
	out <- first

	go func() {
		defer cancel()
		defer close(out)

		var tick <-chan time.Time
		if opts.PollInterval > 0 {
			ticker := time.NewTicker(opts.PollInterval)
			defer ticker.Stop()
			tick = ticker.C
		}

		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-changes:
				if !ok {
					// Subscription ended; keep serving poll ticks.
					changes = nil
					continue
				}
			case <-tick:
			}

			wishes, err := f.Snapshot(ctx, invitationID, opts.Dedupe)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				f.logger.Warn("live wish list refresh failed", "invitation", invitationID, "error", err)
				continue
			}
			select {
			case out <- wishes:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}
