package wish

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder collects observer callbacks.
type recorder struct {
	mu     sync.Mutex
	states []State
}

func (r *recorder) observe(s Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s.State)
}

func (r *recorder) seen() []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]State(nil), r.states...)
}

func TestSession_Unidentified(t *testing.T) {
	repo := newFakeRepo()
	rec := &recorder{}
	s := NewSession(newTestService(repo), "wed_123", "", rec.observe)

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, StateUnidentified, s.Snapshot().State)

	err := s.Submit(context.Background())
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.ErrorIs(t, s.SetMessage("halo"), ErrInvalidState)
	assert.Equal(t, 0, repo.calls())
	assert.Equal(t, []State{StateUnidentified}, rec.seen())
}

func TestSession_WithoutAttendance(t *testing.T) {
	repo := newFakeRepo()
	s := NewSession(newTestService(repo), "akad", "Budi", nil, WithoutAttendance())
	ctx := context.Background()

	require.NoError(t, s.Start(ctx))
	assert.True(t, IsInvalidAttendance(s.SetAttendance(AttendanceYes)))
	assert.Equal(t, StateComposing, s.Snapshot().State)
	assert.Equal(t, AttendanceUnspecified, s.Snapshot().Attendance)

	require.NoError(t, s.SetAttendance(AttendanceUnspecified))
	require.NoError(t, s.SetMessage("Selamat"))
	require.NoError(t, s.Submit(ctx))
	assert.Equal(t, StatePosted, s.Snapshot().State)
	assert.Equal(t, AttendanceUnspecified, s.Snapshot().Posted.Attendance)
}

func TestSession_FirstSubmission(t *testing.T) {
	repo := newFakeRepo()
	rec := &recorder{}
	s := NewSession(newTestService(repo), "wed_123", "Budi Santoso", rec.observe)
	ctx := context.Background()

	require.NoError(t, s.Start(ctx))
	assert.Equal(t, StateComposing, s.Snapshot().State)

	require.NoError(t, s.SetAttendance(AttendanceYes))
	require.NoError(t, s.SetMessage("Selamat ya!"))
	require.NoError(t, s.Submit(ctx))

	snap := s.Snapshot()
	assert.Equal(t, StatePosted, snap.State)
	assert.Equal(t, OutcomeCreated, snap.Notice)
	require.NotNil(t, snap.Posted)
	assert.Equal(t, "Budi Santoso", snap.Posted.Name)
	assert.Equal(t, "budi_santoso", snap.Posted.NameKey)
	assert.Equal(t, "Selamat ya!", snap.Posted.Message)

	assert.Equal(t, []State{
		StateChecking,
		StateComposing,
		StateComposing,
		StateComposing,
		StateSubmitting,
		StatePosted,
	}, rec.seen())

	// Posted is terminal.
	assert.ErrorIs(t, s.SetMessage("lagi"), ErrInvalidState)
	assert.ErrorIs(t, s.Submit(ctx), ErrInvalidState)
}

func TestSession_ExistingWishFoundOnStart(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()
	_, err := svc.Submit(ctx, Draft{InvitationID: "wed_123", Name: "Budi Santoso", Message: "Selamat ya!"})
	require.NoError(t, err)

	s := NewSession(svc, "wed_123", "Budi Santoso", nil)
	require.NoError(t, s.Start(ctx))

	snap := s.Snapshot()
	assert.Equal(t, StatePosted, snap.State)
	assert.Equal(t, OutcomeAlreadyPosted, snap.Notice)
	assert.Equal(t, "Selamat ya!", snap.Posted.Message)
}

func TestSession_DuplicateInAnotherTab(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	first := NewSession(svc, "wed_123", "Budi Santoso", nil)
	second := NewSession(svc, "wed_123", "Budi Santoso", nil)
	require.NoError(t, first.Start(ctx))
	require.NoError(t, second.Start(ctx))

	require.NoError(t, first.SetMessage("Selamat ya!"))
	require.NoError(t, second.SetMessage("Pesan dari tab kedua"))

	require.NoError(t, first.Submit(ctx))
	require.NoError(t, second.Submit(ctx))

	snap := second.Snapshot()
	assert.Equal(t, StatePosted, snap.State)
	assert.Equal(t, OutcomeAlreadyPosted, snap.Notice)
	assert.Equal(t, "Selamat ya!", snap.Posted.Message)
	assert.Equal(t, 1, repo.stored())
}

func TestSession_EmptyMessageStaysComposing(t *testing.T) {
	repo := newFakeRepo()
	rec := &recorder{}
	s := NewSession(newTestService(repo), "wed_123", "Budi", rec.observe)
	ctx := context.Background()
	require.NoError(t, s.Start(ctx))
	require.NoError(t, s.SetMessage("   "))
	before := len(rec.seen())

	err := s.Submit(ctx)
	assert.True(t, IsEmptyMessage(err))
	assert.Equal(t, StateComposing, s.Snapshot().State)
	assert.Equal(t, 0, repo.calls())
	assert.Len(t, rec.seen(), before)
}

func TestSession_FailurePreservesDraftAndRetries(t *testing.T) {
	repo := newFakeRepo()
	repo.createErr = errors.New("unavailable")
	s := NewSession(newTestService(repo), "wed_123", "Budi", nil)
	ctx := context.Background()
	require.NoError(t, s.Start(ctx))
	require.NoError(t, s.SetAttendance(AttendanceNo))
	require.NoError(t, s.SetMessage("  Maaf tidak bisa hadir  "))

	err := s.Submit(ctx)
	assert.True(t, IsTransient(err))

	snap := s.Snapshot()
	assert.Equal(t, StateFailed, snap.State)
	assert.Equal(t, "  Maaf tidak bisa hadir  ", snap.Message)
	assert.Equal(t, AttendanceNo, snap.Attendance)
	assert.True(t, IsTransient(snap.Err))

	repo.mu.Lock()
	repo.createErr = nil
	repo.mu.Unlock()

	require.NoError(t, s.Submit(ctx))
	snap = s.Snapshot()
	assert.Equal(t, StatePosted, snap.State)
	assert.Nil(t, snap.Err)
	assert.Equal(t, "Maaf tidak bisa hadir", snap.Posted.Message)
}

func TestSession_SecondSubmitWhileInFlight(t *testing.T) {
	repo := newFakeRepo()
	entered := make(chan struct{}, 1)
	release := make(chan struct{})
	repo.beforeCreate = func() {
		entered <- struct{}{}
		<-release
	}
	s := NewSession(newTestService(repo), "wed_123", "Budi", nil)
	ctx := context.Background()
	require.NoError(t, s.Start(ctx))
	require.NoError(t, s.SetMessage("Halo"))

	done := make(chan error, 1)
	go func() { done <- s.Submit(ctx) }()
	<-entered

	assert.Equal(t, StateSubmitting, s.Snapshot().State)
	assert.ErrorIs(t, s.Submit(ctx), ErrInvalidState)
	assert.ErrorIs(t, s.SetMessage("edit"), ErrInvalidState)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, StatePosted, s.Snapshot().State)
	assert.Equal(t, 1, repo.calls())
}

func TestSession_CloseDiscardsLateResult(t *testing.T) {
	for _, fail := range []bool{false, true} {
		repo := newFakeRepo()
		if fail {
			repo.createErr = errors.New("late failure")
		}
		entered := make(chan struct{}, 1)
		release := make(chan struct{})
		repo.beforeCreate = func() {
			entered <- struct{}{}
			<-release
		}

		rec := &recorder{}
		s := NewSession(newTestService(repo), "wed_123", "Budi", rec.observe)
		ctx := context.Background()
		require.NoError(t, s.Start(ctx))
		require.NoError(t, s.SetMessage("Halo"))

		done := make(chan error, 1)
		go func() { done <- s.Submit(ctx) }()
		<-entered

		s.Close()
		seenAtClose := rec.seen()
		close(release)

		select {
		case err := <-done:
			assert.NoError(t, err, "late result must not surface as an error")
		case <-time.After(5 * time.Second):
			t.Fatal("submit did not return")
		}
		assert.Equal(t, StateSubmitting, s.Snapshot().State)
		assert.Equal(t, seenAtClose, rec.seen())
	}
}

func TestSession_CloseDuringCheck(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	s := NewSession(svc, "wed_123", "Budi", nil)
	s.Close()

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, StateUnidentified, s.Snapshot().State)
	assert.NoError(t, s.Submit(context.Background()))
	assert.Equal(t, 0, repo.calls())
}

func TestSession_LookupFailureFallsBackToComposing(t *testing.T) {
	repo := newFakeRepo()
	repo.getErr = errors.New("unreachable")
	s := NewSession(newTestService(repo), "wed_123", "Budi", nil)

	err := s.Start(context.Background())
	assert.Error(t, err)
	snap := s.Snapshot()
	assert.Equal(t, StateComposing, snap.State)
	assert.Error(t, snap.Err)

	assert.ErrorIs(t, s.Start(context.Background()), ErrInvalidState)
}
