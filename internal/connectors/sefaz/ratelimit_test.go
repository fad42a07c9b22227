package sefaz

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPageLimiter_FirstQueryImmediate tests that the bucket starts
// full so the opening query pays no delay.
func TestPageLimiter_FirstQueryImmediate(t *testing.T) {
	l := NewPageLimiter(time.Second)

	start := time.Now()
	require.NoError(t, l.Wait(context.Background()))
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

// TestPageLimiter_SpacesQueries tests the inter-page delay.
func TestPageLimiter_SpacesQueries(t *testing.T) {
	delay := 50 * time.Millisecond
	l := NewPageLimiter(delay)

	require.NoError(t, l.Wait(context.Background()))
	start := time.Now()
	require.NoError(t, l.Wait(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), delay-5*time.Millisecond)
}

// TestPageLimiter_ContextCancel tests that a cancelled context
// releases the wait.
func TestPageLimiter_ContextCancel(t *testing.T) {
	l := NewPageLimiter(time.Hour)
	require.NoError(t, l.Wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, l.Wait(ctx))
}

// TestPageLimiter_DefaultDelay tests the zero-value fallback.
func TestPageLimiter_DefaultDelay(t *testing.T) {
	l := NewPageLimiter(0)
	require.NotNil(t, l)
	require.NoError(t, l.Wait(context.Background()))
}
