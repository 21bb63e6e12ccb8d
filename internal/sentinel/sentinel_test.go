package sentinel

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestZeroValueDisabledIsAlwaysAlive(t *testing.T) {
	s := New(-1, -1)
	require.True(t, s.Alive())
}

func TestParentPIDAliveForSelf(t *testing.T) {
	s := New(-1, os.Getpid())
	require.True(t, s.Alive())
}

func TestParentPIDLostForImpossiblePID(t *testing.T) {
	// PID 2^30 is never a valid pid on any real system; signal-0 must fail.
	s := New(-1, 1<<30)
	require.False(t, s.Alive())
}

func TestWatchFiresOnLostSentinel(t *testing.T) {
	s := New(-1, 1<<30)
	done := make(chan struct{})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	go Watch(ctx, s, func() { close(done) })

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("Watch did not detect a lost sentinel in time")
	}
}

func TestWatchStopsOnContextCancel(t *testing.T) {
	s := New(-1, os.Getpid())
	called := make(chan struct{}, 1)

	ctx, cancel := context.WithCancel(context.Background())
	go Watch(ctx, s, func() { called <- struct{}{} })

	cancel()
	select {
	case <-called:
		t.Fatal("onLost should not fire when context is cancelled first")
	case <-time.After(1500 * time.Millisecond):
	}
}
