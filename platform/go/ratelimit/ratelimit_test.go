package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAllowWithinLimit(t *testing.T) {
	t.Parallel()

	l := New(2, time.Minute)
	require.True(t, l.Allow("a"))
	require.True(t, l.Allow("a"))
	require.False(t, l.Allow("a"))
	require.True(t, l.Allow("b"), "keys are counted independently")
}

func TestWindowReset(t *testing.T) {
	t.Parallel()

	current := time.Now()
	l := New(1, time.Minute)
	l.now = func() time.Time { return current }

	require.True(t, l.Allow("a"))
	require.False(t, l.Allow("a"))

	current = current.Add(time.Minute + time.Second)
	require.True(t, l.Allow("a"))
}

func TestNilAndUnlimited(t *testing.T) {
	t.Parallel()

	var l *Limiter
	require.True(t, l.Allow("a"))
	require.True(t, New(0, time.Minute).Allow("a"))
}
