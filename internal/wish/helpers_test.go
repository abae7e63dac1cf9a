package wish

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"
)

var testEpoch = time.Date(2026, time.June, 6, 9, 0, 0, 0, time.UTC)

// fakeRepo is an in-memory Repository with failure and blocking hooks.
type fakeRepo struct {
	mu          sync.Mutex
	records     map[string]Wish
	writes      int
	createCalls int

	createErr    error
	getErr       error
	listErr      error
	beforeCreate func()
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{records: make(map[string]Wish)}
}

func (r *fakeRepo) CreateIfAbsent(ctx context.Context, w *Wish) error {
	r.mu.Lock()
	hook := r.beforeCreate
	r.mu.Unlock()
	if hook != nil {
		hook()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.createCalls++
	if r.createErr != nil {
		return r.createErr
	}
	if _, ok := r.records[w.ID]; ok {
		return ErrAlreadyExists
	}
	w.CreatedAt = testEpoch.Add(time.Duration(r.writes) * time.Second)
	r.writes++
	r.records[w.ID] = *w
	return nil
}

func (r *fakeRepo) Get(ctx context.Context, id string) (*Wish, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	w, ok := r.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &w, nil
}

func (r *fakeRepo) ListByInvitation(ctx context.Context, invitationID string) ([]Wish, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	var out []Wish
	for _, w := range r.records {
		if w.InvitationID == invitationID {
			out = append(out, w)
		}
	}
	return out, nil
}

func (r *fakeRepo) calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.createCalls
}

func (r *fakeRepo) stored() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

// chanNotifier is a Notifier backed by one buffered channel per subscriber.
type chanNotifier struct {
	mu       sync.Mutex
	subs     map[string][]chan struct{}
	notified []string
}

func newChanNotifier() *chanNotifier {
	return &chanNotifier{subs: make(map[string][]chan struct{})}
}

func (n *chanNotifier) Notify(ctx context.Context, invitationID string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notified = append(n.notified, invitationID)
	for _, ch := range n.subs[invitationID] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	return nil
}

func (n *chanNotifier) Subscribe(ctx context.Context, invitationID string) (<-chan struct{}, error) {
	ch := make(chan struct{}, 1)
	n.mu.Lock()
	n.subs[invitationID] = append(n.subs[invitationID], ch)
	n.mu.Unlock()
	return ch, nil
}

func (n *chanNotifier) notifications() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.notified...)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
