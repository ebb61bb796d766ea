package rate

import (
	"context"
	"os"
	"testing"
	"time"

	rdb "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func redisClient(t *testing.T) *rdb.Client {
	t.Helper()
	if os.Getenv("SKIP_INTEGRATION") == "true" {
		t.Skip("SKIP_INTEGRATION=true")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)
	ctx := context.Background()
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("redis container unavailable: %v", err)
	}
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(c) })

	addr, err := c.Endpoint(ctx, "")
	require.NoError(t, err)
	client := rdb.NewClient(&rdb.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisLimiter_FixedWindow(t *testing.T) {
	client := redisClient(t)
	now := time.Now().UTC().Truncate(time.Minute)
	l := NewRedisLimiter(client, "test:rate:", 2, time.Minute)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		res, err := l.Allow(ctx, "ip 1")
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	}
	res, err := l.Allow(ctx, "ip 1")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, int64(3), res.CurrentHits)
	assert.Greater(t, res.RetryAfter, time.Duration(0))

	now = now.Add(time.Minute)
	res, err = l.Allow(ctx, "ip 1")
	require.NoError(t, err)
	assert.True(t, res.Allowed, "new window")
}
