// Package live fans "wishes changed" signals out to live wish list readers.
//
// Hub serves a single process. RedisNotifier spreads the same signals across
// every instance subscribed to the same Redis server. Both satisfy
// wish.Notifier.
package live

import (
	"context"
	"sync"
)

// Hub is an in-process notifier.
//
// Each subscriber owns a channel with a buffer of one. Notify never blocks:
// if a subscriber has not drained its previous signal the new one is
// coalesced into it, which is all a reader needs to know to re-list.
//
// Thread-safety: all methods are safe for concurrent use.
type Hub struct {
	mu     sync.Mutex
	subs   map[string]map[chan struct{}]struct{}
	closed bool
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[chan struct{}]struct{})}
}

// Notify signals every subscriber of invitationID.
func (h *Hub) Notify(ctx context.Context, invitationID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.subs[invitationID] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	return nil
}

// Subscribe registers a subscriber until ctx is done, then closes its channel.
func (h *Hub) Subscribe(ctx context.Context, invitationID string) (<-chan struct{}, error) {
	ch := make(chan struct{}, 1)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(ch)
		return ch, nil
	}
	if h.subs[invitationID] == nil {
		h.subs[invitationID] = make(map[chan struct{}]struct{})
	}
	h.subs[invitationID][ch] = struct{}{}
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.remove(invitationID, ch)
	}()
	return ch, nil
}

// Subscribers returns the number of live subscribers of invitationID.
func (h *Hub) Subscribers(invitationID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[invitationID])
}

// Close closes every subscriber channel. Later subscriptions get a closed
// channel.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	for id, set := range h.subs {
		for ch := range set {
			close(ch)
		}
		delete(h.subs, id)
	}
	return nil
}

func (h *Hub) remove(invitationID string, ch chan struct{}) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.subs[invitationID]
	if !ok {
		return
	}
	if _, ok := set[ch]; !ok {
		// Already closed by Close.
		return
	}
	delete(set, ch)
	close(ch)
	if len(set) == 0 {
		delete(h.subs, invitationID)
	}
}
