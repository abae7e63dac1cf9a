package wish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/meimodev/activid-web-sub001/internal/guest"
	"github.com/meimodev/activid-web-sub001/internal/ids"
)

// Outcome tells a successful submission apart from an idempotent re-encounter.
type Outcome string

const (
	// OutcomeCreated means this submission wrote the record.
	OutcomeCreated Outcome = "created"
	// OutcomeAlreadyPosted means the guest's record already existed; the
	// Result carries the stored record, not the submitted draft.
	OutcomeAlreadyPosted Outcome = "already_posted"
)

// Draft is what a guest composed before submitting.
type Draft struct {
	InvitationID string
	Name         string
	Attendance   Attendance
	Message      string

	// NoAttendance is set for templates without an RSVP toggle. Any
	// attendance other than AttendanceUnspecified is then rejected.
	NoAttendance bool
}

// Result is the outcome of a submission and the record now on display.
type Result struct {
	Outcome Outcome
	Wish    *Wish
}

// Service runs the submission protocol against a Repository.
//
// Thread-safety: Service holds no mutable state and is safe for concurrent
// use; the at-most-once guarantee comes from Repository.CreateIfAbsent.
type Service struct {
	repo     Repository
	notifier Notifier
	ids      ids.Generator
	logger   *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithNotifier tells live readers about every created wish.
func WithNotifier(n Notifier) ServiceOption {
	return func(s *Service) {
		s.notifier = n
	}
}

// WithIDGenerator sets the generator used for anonymous wishes.
//
// Default: ids.UUIDv7Generator.
func WithIDGenerator(g ids.Generator) ServiceOption {
	return func(s *Service) {
		s.ids = g
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = l
	}
}

// NewService creates a Service over repo.
func NewService(repo Repository, opts ...ServiceOption) *Service {
	s := &Service{
		repo: repo,
		ids:  ids.UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Find returns the stored wish of guestName on invitationID.
//
// Returns (nil, nil) when the guest has not posted yet and a NOT_PERSONALIZED
// error when guestName has no usable key.
func (s *Service) Find(ctx context.Context, invitationID, guestName string) (*Wish, error) {
	key := guest.NameKey(guestName)
	if key == "" {
		return nil, newNotPersonalizedError(invitationID)
	}

	w, err := s.repo.Get(ctx, RecordID(invitationID, key))
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find wish %s: %w", RecordID(invitationID, key), err)
	}
	return w, nil
}

// Submit stores d at most once per (invitation, guest name key).
//
// Validation failures (NOT_PERSONALIZED, EMPTY_MESSAGE, INVALID_ATTENDANCE)
// return before the repository is touched. If the guest already has a
// record, Submit re-reads it and returns OutcomeAlreadyPosted with the stored
// record. Any other store failure is logged and returned as a
// TRANSIENT_WRITE_FAILURE error.
func (s *Service) Submit(ctx context.Context, d Draft) (*Result, error) {
	key := guest.NameKey(d.Name)
	if key == "" {
		return nil, newNotPersonalizedError(d.InvitationID)
	}
	message := strings.TrimSpace(d.Message)
	if message == "" {
		return nil, newEmptyMessageError(d.InvitationID, key)
	}
	if err := checkAttendance(d, key); err != nil {
		return nil, err
	}

	w := &Wish{
		ID:           RecordID(d.InvitationID, key),
		InvitationID: d.InvitationID,
		Name:         strings.TrimSpace(d.Name),
		NameKey:      key,
		Attendance:   d.Attendance,
		Message:      message,
	}

	err := s.repo.CreateIfAbsent(ctx, w)
	switch {
	case err == nil:
		s.logger.Debug("wish created", "invitation", w.InvitationID, "guest", key)
		s.notify(ctx, w.InvitationID)
		return &Result{Outcome: OutcomeCreated, Wish: w}, nil

	case errors.Is(err, ErrAlreadyExists):
		stored, getErr := s.repo.Get(ctx, w.ID)
		if getErr != nil {
			s.logger.Warn("re-read after conflict failed", "invitation", w.InvitationID, "guest", key, "error", getErr)
			return nil, newTransientError(w.InvitationID, key, getErr)
		}
		s.logger.Debug("wish already posted", "invitation", w.InvitationID, "guest", key)
		return &Result{Outcome: OutcomeAlreadyPosted, Wish: stored}, nil

	default:
		s.logger.Error("create wish failed", "invitation", w.InvitationID, "guest", key, "error", err)
		return nil, newTransientError(w.InvitationID, key, err)
	}
}

// SubmitAnonymous stores d under a generated ID without an identity check.
//
// Used by demo and preview invitations. The name may be blank and so may the
// message; only the attendance value is validated.
func (s *Service) SubmitAnonymous(ctx context.Context, d Draft) (*Result, error) {
	if err := checkAttendance(d, ""); err != nil {
		return nil, err
	}

	w := &Wish{
		ID:           s.ids.Generate(),
		InvitationID: d.InvitationID,
		Name:         strings.TrimSpace(d.Name),
		Attendance:   d.Attendance,
		Message:      strings.TrimSpace(d.Message),
	}
	if err := s.repo.CreateIfAbsent(ctx, w); err != nil {
		s.logger.Error("create anonymous wish failed", "invitation", w.InvitationID, "error", err)
		return nil, newTransientError(w.InvitationID, "", err)
	}
	s.notify(ctx, w.InvitationID)
	return &Result{Outcome: OutcomeCreated, Wish: w}, nil
}

func checkAttendance(d Draft, key string) *Error {
	var msg string
	switch {
	case !d.Attendance.Valid():
		msg = fmt.Sprintf("unknown attendance %q", d.Attendance)
	case d.NoAttendance && d.Attendance != AttendanceUnspecified:
		msg = "this invitation does not ask for attendance"
	default:
		return nil
	}
	return &Error{
		Code:         ErrCodeInvalidAttendance,
		Message:      msg,
		InvitationID: d.InvitationID,
		NameKey:      key,
	}
}

// notify is best effort: the record is stored, and readers also poll.
func (s *Service) notify(ctx context.Context, invitationID string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, invitationID); err != nil {
		s.logger.Warn("live notify failed", "invitation", invitationID, "error", err)
	}
}
