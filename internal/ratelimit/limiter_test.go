package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T) (*Limiter, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewLimiter(client), mr
}

func TestIPRateLimit(t *testing.T) {
	limiter, _ := newTestLimiter(t)
	ctx := context.Background()

	exceeded, err := limiter.CheckIPRateLimitWithPurpose(ctx, "1.2.3.4", "login")
	require.NoError(t, err)
	assert.False(t, exceeded, "fresh IP must not be limited")

	for i := 0; i < ipRequestLimit; i++ {
		require.NoError(t, limiter.RecordIPRequestWithPurpose(ctx, "1.2.3.4", "login"))
	}

	exceeded, err = limiter.CheckIPRateLimitWithPurpose(ctx, "1.2.3.4", "login")
	require.NoError(t, err)
	assert.True(t, exceeded)

	// Purposes are counted independently
	exceeded, err = limiter.CheckIPRateLimitWithPurpose(ctx, "1.2.3.4", "register")
	require.NoError(t, err)
	assert.False(t, exceeded)

	// As are other IPs
	exceeded, err = limiter.CheckIPRateLimitWithPurpose(ctx, "5.6.7.8", "login")
	require.NoError(t, err)
	assert.False(t, exceeded)
}

func TestIPRateLimitWindowExpires(t *testing.T) {
	limiter, mr := newTestLimiter(t)
	ctx := context.Background()

	for i := 0; i < ipRequestLimit; i++ {
		require.NoError(t, limiter.RecordIPRequest(ctx, "1.2.3.4"))
	}

	exceeded, err := limiter.CheckIPRateLimit(ctx, "1.2.3.4")
	require.NoError(t, err)
	require.True(t, exceeded)

	mr.FastForward(ipWindow + time.Second)

	exceeded, err = limiter.CheckIPRateLimit(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.False(t, exceeded, "window must reset after TTL")
}

func TestEmailCooldown(t *testing.T) {
	limiter, mr := newTestLimiter(t)
	ctx := context.Background()

	onCooldown, err := limiter.CheckEmailCooldown(ctx, "a@x.com")
	require.NoError(t, err)
	assert.False(t, onCooldown)

	require.NoError(t, limiter.SetEmailCooldown(ctx, "a@x.com"))

	onCooldown, err = limiter.CheckEmailCooldown(ctx, "a@x.com")
	require.NoError(t, err)
	assert.True(t, onCooldown)

	// Other addresses are unaffected
	onCooldown, err = limiter.CheckEmailCooldown(ctx, "b@x.com")
	require.NoError(t, err)
	assert.False(t, onCooldown)

	mr.FastForward(emailCooldown + time.Second)

	onCooldown, err = limiter.CheckEmailCooldown(ctx, "a@x.com")
	require.NoError(t, err)
	assert.False(t, onCooldown)
}
