package repo

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autostream-sales-agent/server/internal/agent/model"
	errx "github.com/autostream-sales-agent/server/internal/core/error"
)

// exerciseLocker checks mutual exclusion per session and independence across sessions.
func exerciseLocker(t *testing.T, l model.SessionLocker) {
	t.Helper()
	ctx := context.Background()

	var inside, maxInside atomic.Int32
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(ctx, "same")
			if !assert.NoError(t, err) {
				return
			}
			n := inside.Add(1)
			for {
				m := maxInside.Load()
				if n <= m || maxInside.CompareAndSwap(m, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			inside.Add(-1)
			unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), maxInside.Load())

	unlockA, err := l.Lock(ctx, "a")
	require.NoError(t, err)
	unlockB, err := l.Lock(ctx, "b")
	require.NoError(t, err, "other sessions are never blocked")
	unlockA()
	unlockB()
}

func expectBusy(t *testing.T, l model.SessionLocker) {
	t.Helper()
	unlock, err := l.Lock(context.Background(), "busy")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "busy")
	require.ErrorIs(t, err, errx.ErrSessionBusy)
	assert.Equal(t, 409, errx.StatusOf(err))

	unlock()
	unlock()
	again, err := l.Lock(context.Background(), "busy")
	require.NoError(t, err)
	again()
}

func TestLocalLocker(t *testing.T) {
	l := NewLocalLocker()
	exerciseLocker(t, l)
	expectBusy(t, l)

	l.mu.Lock()
	defer l.mu.Unlock()
	assert.Empty(t, l.slots, "released slots are dropped")
}

func TestRedisLocker(t *testing.T) {
	_, rdb := newMiniredis(t)
	l := NewRedisLocker(rdb, time.Minute)
	exerciseLocker(t, l)
	expectBusy(t, l)
}

func TestRedisLockerReleasesOnlyOwnToken(t *testing.T) {
	mr, rdb := newMiniredis(t)
	l := NewRedisLocker(rdb, time.Second)
	ctx := context.Background()

	unlock, err := l.Lock(ctx, "u1")
	require.NoError(t, err)

	// the lock expires and another holder takes it
	mr.FastForward(2 * time.Second)
	other, err := l.Lock(ctx, "u1")
	require.NoError(t, err)

	unlock()
	assert.True(t, mr.Exists("session:u1:lock"), "stale release must not drop the new holder's lock")
	other()
	assert.False(t, mr.Exists("session:u1:lock"))
}
