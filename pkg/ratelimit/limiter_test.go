package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenBucketBurstThenExhausts(t *testing.T) {
	tb := NewTokenBucket(3, time.Hour)

	for i := 0; i < 3; i++ {
		assert.True(t, tb.Allow(), "token %d", i+1)
	}
	assert.False(t, tb.Allow())

	tb.Reset()
	assert.True(t, tb.Allow())
}

func TestTokenBucketWaitRespectsContext(t *testing.T) {
	tb := NewTokenBucket(1, time.Hour)
	require.True(t, tb.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	assert.Error(t, tb.Wait(ctx))
}

func TestTokenBucketRefills(t *testing.T) {
	tb := NewTokenBucket(1, 10*time.Millisecond)
	require.True(t, tb.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	start := time.Now()
	require.NoError(t, tb.Wait(ctx))
	assert.GreaterOrEqual(t, time.Since(start), 5*time.Millisecond)
}

func TestNewPerMinuteZeroIsUnbounded(t *testing.T) {
	tb := NewPerMinute(0, 1)
	for i := 0; i < 100; i++ {
		assert.True(t, tb.Allow())
	}
}

func TestKeyedBucketsAreIndependent(t *testing.T) {
	k := NewKeyed(1, time.Hour)

	assert.True(t, k.For("www.instagram.com").Allow())
	assert.False(t, k.For("www.instagram.com").Allow())
	assert.True(t, k.For("scontent.cdninstagram.com").Allow())
	assert.Same(t, k.For("a"), k.For("a"))
}

func TestUnlimited(t *testing.T) {
	var l Limiter = Unlimited{}
	assert.True(t, l.Allow())
	assert.NoError(t, l.Wait(context.Background()))
}
