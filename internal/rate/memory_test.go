package rate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLimiter_Window(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewMemoryLimiter(3, time.Minute)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := l.Allow(ctx, "1.2.3.4:/widget/email/send")
		require.NoError(t, err)
		assert.True(t, res.Allowed, "hit %d", i)
	}
	res, err := l.Allow(ctx, "1.2.3.4:/widget/email/send")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Greater(t, res.RetryAfter, time.Duration(0))
	assert.LessOrEqual(t, res.RetryAfter, 20*time.Second)

	other, err := l.Allow(ctx, "5.6.7.8:/widget/email/send")
	require.NoError(t, err)
	assert.True(t, other.Allowed, "keys are independent")

	now = now.Add(20 * time.Second)
	res, err = l.Allow(ctx, "1.2.3.4:/widget/email/send")
	require.NoError(t, err)
	assert.True(t, res.Allowed, "one token refilled")
}

func TestMemoryLimiter_Canceled(t *testing.T) {
	l := NewMemoryLimiter(1, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := l.Allow(ctx, "k")
	assert.ErrorIs(t, err, context.Canceled)
}
