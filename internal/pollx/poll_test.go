package pollx

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/exporter3/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUntil_SucceedsAfterNotReady(t *testing.T) {
	calls := 0
	got, err := Until(context.Background(), 5, time.Millisecond, func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", ErrNotReady
		}
		return "row", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "row", got)
	assert.Equal(t, 3, calls)
}

func TestUntil_NotFoundIsRetried(t *testing.T) {
	calls := 0
	_, err := Until(context.Background(), 2, time.Millisecond, func(ctx context.Context) (int, error) {
		calls++
		if calls == 1 {
			return 0, common.ErrorNotFound
		}
		return 7, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestUntil_TimesOut(t *testing.T) {
	calls := 0
	_, err := Until(context.Background(), 4, time.Millisecond, func(ctx context.Context) (int, error) {
		calls++
		return 0, ErrNotReady
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrPollTimeout))
	assert.Equal(t, 4, calls)
}

func TestUntil_OtherErrorStopsImmediately(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	_, err := Until(context.Background(), 5, time.Millisecond, func(ctx context.Context) (int, error) {
		calls++
		return 0, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestUntil_ZeroAttemptsRunsOnce(t *testing.T) {
	calls := 0
	_, err := Until(context.Background(), 0, time.Millisecond, func(ctx context.Context) (int, error) {
		calls++
		return 1, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestUntil_NonPositiveDelayFallsBack(t *testing.T) {
	for _, delay := range []time.Duration{0, -time.Second} {
		calls := 0
		var (
			got int
			err error
		)
		require.NotPanics(t, func() {
			got, err = Until(context.Background(), 3, delay, func(ctx context.Context) (int, error) {
				calls++
				if calls < 2 {
					return 0, ErrNotReady
				}
				return 5, nil
			})
		})
		require.NoError(t, err)
		assert.Equal(t, 5, got)
		assert.Equal(t, 2, calls)
	}
}
