package memstore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meimodev/activid-web-sub001/internal/testutil"
	"github.com/meimodev/activid-web-sub001/internal/wish"
)

func TestStore_CreateGetList(t *testing.T) {
	s := New(testutil.NewStepClock(time.Time{}, time.Minute))
	ctx := context.Background()

	first := &wish.Wish{ID: "wed_123:budi", InvitationID: "wed_123", Name: "Budi", NameKey: "budi", Message: "a"}
	second := &wish.Wish{ID: "wed_123:siti", InvitationID: "wed_123", Name: "Siti", NameKey: "siti", Message: "b"}
	require.NoError(t, s.CreateIfAbsent(ctx, first))
	require.NoError(t, s.CreateIfAbsent(ctx, second))

	assert.Equal(t, testutil.DefaultEpoch, first.CreatedAt)
	assert.ErrorIs(t, s.CreateIfAbsent(ctx, &wish.Wish{ID: "wed_123:budi"}), wish.ErrAlreadyExists)

	got, err := s.Get(ctx, "wed_123:budi")
	require.NoError(t, err)
	assert.Equal(t, "a", got.Message)

	_, err = s.Get(ctx, "wed_123:nobody")
	assert.ErrorIs(t, err, wish.ErrNotFound)

	list, err := s.ListByInvitation(ctx, "wed_123")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "b", list[0].Message)
	assert.Equal(t, 2, s.Len())
}

func TestStore_GetReturnsCopy(t *testing.T) {
	s := New(nil)
	ctx := context.Background()
	require.NoError(t, s.CreateIfAbsent(ctx, &wish.Wish{ID: "x", InvitationID: "demo", Message: "orig"}))

	got, err := s.Get(ctx, "x")
	require.NoError(t, err)
	got.Message = "mutated"

	again, err := s.Get(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, "orig", again.Message)
}

func TestStore_ConcurrentSubmissions(t *testing.T) {
	s := New(nil)
	svc := wish.NewService(s)

	const n = 50
	var wg sync.WaitGroup
	var mu sync.Mutex
	outcomes := map[wish.Outcome]int{}
	messages := map[string]bool{}
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := svc.Submit(context.Background(), wish.Draft{
				InvitationID: "wed_123",
				Name:         "Budi Santoso",
				Message:      "attempt",
			})
			if err != nil {
				t.Errorf("Submit: %v", err)
				return
			}
			mu.Lock()
			outcomes[res.Outcome]++
			messages[res.Wish.Message+res.Wish.CreatedAt.String()] = true
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, outcomes[wish.OutcomeCreated])
	assert.Equal(t, n-1, outcomes[wish.OutcomeAlreadyPosted])
	assert.Len(t, messages, 1, "every attempt must observe the same record")
	assert.Equal(t, 1, s.Len())
}

func TestStore_CanceledContext(t *testing.T) {
	s := New(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.CreateIfAbsent(ctx, &wish.Wish{ID: "x"})
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 0, s.Len())
}
