package retry

import (
	"errors"
	"testing"

	"github.com/arieldaniely/AutoPagi/internal/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoStopsAtFirstSuccess(t *testing.T) {
	mock := logging.NewMockLogger()
	calls := 0

	err := Do(Config{Attempts: 5}, mock, "login submit", func(attempt int) error {
		calls++
		if attempt < 3 {
			return errors.New("button disabled")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Len(t, mock.EntriesByLevel("WARN"), 2)
	assert.True(t, mock.HasEntry("INFO", "login submit succeeded after retry"))
}

func TestDoExhaustsAttempts(t *testing.T) {
	mock := logging.NewMockLogger()
	calls := 0
	failure := errors.New("click timed out")

	err := Do(Config{Attempts: 5}, mock, "login submit", func(attempt int) error {
		calls++
		return failure
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, failure)
	assert.Equal(t, 5, calls)
	assert.Len(t, mock.EntriesByLevel("WARN"), 5)
}

func TestDoAttemptNumbersAreSequential(t *testing.T) {
	mock := logging.NewMockLogger()
	var seen []int

	_ = Do(Config{Attempts: 3}, mock, "probe", func(attempt int) error {
		seen = append(seen, attempt)
		return errors.New("nope")
	})

	assert.Equal(t, []int{1, 2, 3}, seen)
}

func TestDoZeroAttemptsRunsOnce(t *testing.T) {
	mock := logging.NewMockLogger()
	calls := 0

	err := Do(Config{Attempts: 0}, mock, "probe", func(int) error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}
