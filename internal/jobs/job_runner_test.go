package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"beachrental-backend/internal/config"
)

type MockSweeper struct {
	mock.Mock
}

func (m *MockSweeper) ExpireUnpaidReservations(ctx context.Context, now time.Time) ([]string, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

type fixedClock time.Time

func (c fixedClock) Now() time.Time { return time.Time(c) }

func TestJobRunner_ExpireUnpaidReservations(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("Passes the clock time to the sweeper", func(t *testing.T) {
		sweeper := new(MockSweeper)
		sweeper.On("ExpireUnpaidReservations", mock.Anything, now).Return([]string{"a", "b"}, nil).Once()

		jr := NewJobRunner(&Services{Sweeper: sweeper}, fixedClock(now), &config.Config{})
		jr.RunAll()
		sweeper.AssertExpectations(t)
	})

	t.Run("Sweeper errors are logged", func(t *testing.T) {
		sweeper := new(MockSweeper)
		sweeper.On("ExpireUnpaidReservations", mock.Anything, now).Return([]string{"a"}, errors.New("release failed")).Once()

		jr := NewJobRunner(&Services{Sweeper: sweeper}, fixedClock(now), &config.Config{})
		assert.NotPanics(t, jr.ExpireUnpaidReservations)
		sweeper.AssertExpectations(t)
	})

	t.Run("Recovers from panics", func(t *testing.T) {
		jr := NewJobRunner(&Services{}, fixedClock(now), &config.Config{})
		assert.NotPanics(t, jr.ExpireUnpaidReservations)
	})
}
