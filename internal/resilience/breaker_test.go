package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errUpstream = NewStatusError("crm", 503, []byte("down"))

// testBreaker returns a breaker driven by a manual clock.
func testBreaker(threshold int, cooldown time.Duration) (*Breaker, *time.Time) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	b := NewBreaker("crm", threshold, cooldown)
	b.now = func() time.Time { return now }
	return b, &now
}

func fail(err error) func(context.Context) error {
	return func(context.Context) error { return err }
}

func succeed(context.Context) error { return nil }

func TestBreaker_ClosedPassesThrough(t *testing.T) {
	t.Parallel()
	b, _ := testBreaker(3, time.Minute)

	var calls int
	err := b.Do(context.Background(), func(context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, BreakerClosed, b.State())
}

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	t.Parallel()
	b, _ := testBreaker(3, time.Minute)

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, b.Do(context.Background(), fail(errUpstream)), errUpstream)
	}
	assert.Equal(t, BreakerOpen, b.State())

	err := b.Do(context.Background(), func(context.Context) error {
		t.Error("must not be called while open")
		return nil
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBreakerOpen)
	assert.True(t, IsTransient(err))
	assert.False(t, IsPermanent(err))
}

func TestBreaker_PermanentErrorsDoNotTrip(t *testing.T) {
	t.Parallel()
	b, _ := testBreaker(2, time.Minute)
	rejected := NewStatusError("crm", 422, nil)

	for i := 0; i < 5; i++ {
		_ = b.Do(context.Background(), fail(rejected))
	}
	assert.Equal(t, BreakerClosed, b.State())
}

func TestBreaker_SuccessResetsRun(t *testing.T) {
	t.Parallel()
	b, _ := testBreaker(3, time.Minute)

	_ = b.Do(context.Background(), fail(errUpstream))
	_ = b.Do(context.Background(), fail(errUpstream))
	require.NoError(t, b.Do(context.Background(), succeed))
	_ = b.Do(context.Background(), fail(errUpstream))
	_ = b.Do(context.Background(), fail(errUpstream))

	assert.Equal(t, BreakerClosed, b.State())
}

func TestBreaker_HalfOpenProbe(t *testing.T) {
	t.Parallel()
	b, now := testBreaker(1, time.Minute)

	_ = b.Do(context.Background(), fail(errUpstream))
	require.Equal(t, BreakerOpen, b.State())

	*now = now.Add(time.Minute)
	assert.Equal(t, BreakerHalfOpen, b.State())

	require.NoError(t, b.Do(context.Background(), succeed))
	assert.Equal(t, BreakerClosed, b.State())
}

func TestBreaker_FailedProbeReopens(t *testing.T) {
	t.Parallel()
	b, now := testBreaker(1, time.Minute)

	_ = b.Do(context.Background(), fail(errUpstream))
	*now = now.Add(2 * time.Minute)

	_ = b.Do(context.Background(), fail(errors.New("i/o timeout")))
	assert.Equal(t, BreakerOpen, b.State())

	err := b.Do(context.Background(), succeed)
	assert.ErrorIs(t, err, ErrBreakerOpen)
}

func TestBreaker_SingleProbeAtATime(t *testing.T) {
	t.Parallel()
	b, now := testBreaker(1, time.Minute)

	_ = b.Do(context.Background(), fail(errUpstream))
	*now = now.Add(time.Minute)

	err := b.Do(context.Background(), func(ctx context.Context) error {
		// A concurrent caller arriving mid-probe is turned away.
		inner := b.Do(ctx, succeed)
		assert.ErrorIs(t, inner, ErrBreakerOpen)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, BreakerClosed, b.State())
}

func TestBreakerDefaults(t *testing.T) {
	t.Parallel()
	b := NewBreaker("crm", 0, 0)
	assert.Equal(t, 5, b.threshold)
	assert.Equal(t, 30*time.Second, b.cooldown)
	assert.Equal(t, "half-open", BreakerHalfOpen.String())
	assert.Equal(t, "unknown", BreakerState(9).String())
}
