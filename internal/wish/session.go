package wish

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/meimodev/activid-web-sub001/internal/guest"
)

// State is the phase of a wishes section.
type State string

const (
	// StateUnidentified: the link has no guest name; submitting is disabled
	// for the lifetime of the session.
	StateUnidentified State = "unidentified"
	// StateChecking: looking up the guest's existing wish.
	StateChecking State = "checking"
	// StateComposing: no wish yet; the guest may edit and submit.
	StateComposing State = "composing"
	// StateSubmitting: a create is in flight; edits are rejected.
	StateSubmitting State = "submitting"
	// StatePosted: the guest's wish is shown read-only. Terminal.
	StatePosted State = "posted"
	// StateFailed: the last submit failed; the draft is kept for a retry.
	StateFailed State = "failed"
)

// ErrInvalidState is returned for an operation the current state does not allow.
var ErrInvalidState = errors.New("operation not allowed in current state")

// Snapshot is a consistent copy of a session's observable state.
type Snapshot struct {
	State      State
	GuestName  string
	Attendance Attendance
	Message    string

	// Posted is the record on display in StatePosted.
	Posted *Wish
	// Notice tells a fresh post from an already-posted re-encounter.
	Notice Outcome
	// Err is the last failure in StateFailed, or a failed initial lookup.
	Err error
}

// Session drives one wishes section for one guest on one invitation.
//
// Service calls happen outside the session lock. A result that arrives after
// Close is dropped: no state change, no observer call, no error.
//
// Thread-safety: all methods are safe for concurrent use. The observer is
// called without the lock held, so it may call Snapshot.
type Session struct {
	svc          *Service
	invitationID string
	guestName    string

	mu       sync.Mutex
	state    State
	draft    Draft
	posted   *Wish
	notice   Outcome
	err      error
	started  bool
	closed   bool
	onChange func(Snapshot)
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithoutAttendance is for templates without an RSVP toggle: the draft
// never carries an attendance.
func WithoutAttendance() SessionOption {
	return func(s *Session) {
		s.draft.NoAttendance = true
	}
}

// NewSession creates a session for guestName (as read from the link) on
// invitationID. onChange, if not nil, receives a snapshot after every
// transition.
func NewSession(svc *Service, invitationID, guestName string, onChange func(Snapshot), opts ...SessionOption) *Session {
	s := &Session{
		svc:          svc,
		invitationID: invitationID,
		guestName:    strings.TrimSpace(guestName),
		state:        StateUnidentified,
		draft:        Draft{InvitationID: invitationID, Name: strings.TrimSpace(guestName)},
		onChange:     onChange,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start resolves the initial state: Unidentified without a usable guest
// name, otherwise Checking followed by Posted or Composing.
//
// If the lookup fails the session still moves to Composing (the create is
// idempotent on its own) and the error is returned and kept in Snapshot.Err.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	if s.started {
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("start in %s: %w", state, ErrInvalidState)
	}
	s.started = true
	if guest.NameKey(s.guestName) == "" {
		notify := s.transitionLocked(StateUnidentified)
		s.mu.Unlock()
		notify()
		return nil
	}
	notify := s.transitionLocked(StateChecking)
	s.mu.Unlock()
	notify()

	existing, err := s.svc.Find(ctx, s.invitationID, s.guestName)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	if err != nil {
		s.err = err
		notify = s.transitionLocked(StateComposing)
		s.mu.Unlock()
		notify()
		return err
	}
	if existing != nil {
		s.posted = existing
		s.notice = OutcomeAlreadyPosted
		notify = s.transitionLocked(StatePosted)
	} else {
		notify = s.transitionLocked(StateComposing)
	}
	s.mu.Unlock()
	notify()
	return nil
}

// SetMessage replaces the draft message. Allowed in Composing and Failed.
func (s *Session) SetMessage(message string) error {
	return s.edit(func(d *Draft) { d.Message = message })
}

// SetAttendance replaces the draft attendance. Allowed in Composing and Failed.
func (s *Session) SetAttendance(a Attendance) error {
	d := Draft{InvitationID: s.invitationID, Attendance: a, NoAttendance: s.draft.NoAttendance}
	if err := checkAttendance(d, guest.NameKey(s.guestName)); err != nil {
		return err
	}
	return s.edit(func(d *Draft) { d.Attendance = a })
}

func (s *Session) edit(apply func(*Draft)) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	if s.state != StateComposing && s.state != StateFailed {
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("edit in %s: %w", state, ErrInvalidState)
	}
	apply(&s.draft)
	notify := s.transitionLocked(s.state)
	s.mu.Unlock()
	notify()
	return nil
}

// Submit sends the draft.
//
// A blank message returns an EMPTY_MESSAGE error and leaves the state and the
// repository untouched. Success or an already-posted conflict moves to
// Posted. Any other failure moves to Failed with the draft kept verbatim and
// returns the error. Submitting while a submit is in flight returns
// ErrInvalidState.
func (s *Session) Submit(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	if s.state != StateComposing && s.state != StateFailed {
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("submit in %s: %w", state, ErrInvalidState)
	}
	if strings.TrimSpace(s.draft.Message) == "" {
		s.mu.Unlock()
		return newEmptyMessageError(s.invitationID, guest.NameKey(s.guestName))
	}
	draft := s.draft
	s.err = nil
	notify := s.transitionLocked(StateSubmitting)
	s.mu.Unlock()
	notify()

	res, err := s.svc.Submit(ctx, draft)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	if err != nil {
		s.err = err
		notify = s.transitionLocked(StateFailed)
		s.mu.Unlock()
		notify()
		return err
	}
	s.posted = res.Wish
	s.notice = res.Outcome
	notify = s.transitionLocked(StatePosted)
	s.mu.Unlock()
	notify()
	return nil
}

// Close detaches the session. Later results and edits are ignored and the
// observer is never called again.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.onChange = nil
}

// Snapshot returns the current observable state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		State:      s.state,
		GuestName:  s.guestName,
		Attendance: s.draft.Attendance,
		Message:    s.draft.Message,
		Notice:     s.notice,
		Err:        s.err,
	}
	if s.posted != nil {
		posted := *s.posted
		snap.Posted = &posted
	}
	return snap
}

// transitionLocked sets the state and returns a func that delivers the new
// snapshot to the observer; call it after unlocking.
func (s *Session) transitionLocked(next State) func() {
	s.state = next
	cb := s.onChange
	if cb == nil {
		return func() {}
	}
	snap := s.snapshotLocked()
	return func() { cb(snap) }
}
