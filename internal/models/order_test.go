package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/smsorders/internal/apperrors"
)

func TestOrder_HasExpired(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name      string
		createdAt time.Time
		expected  bool
	}{
		{"just created", now, false},
		{"almost expired", now.Add(-OrderLifetime + time.Second), false},
		{"exactly lifetime", now.Add(-OrderLifetime), false},
		{"expired", now.Add(-OrderLifetime - time.Second), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := Order{Status: OrderStatusSmsPending, CreatedAt: tt.createdAt}

			require.Equal(t, tt.expected, o.HasExpired(now))
			require.Equal(t, tt.expected, o.IsStale(now), "pending order is stale when expired")
		})
	}

	t.Run("not pending never stale", func(t *testing.T) {
		o := Order{Status: OrderStatusSuccess, CreatedAt: now.Add(-time.Hour)}

		require.True(t, o.HasExpired(now))
		require.False(t, o.IsStale(now))
	})
}

func TestOrder_CancelStatus(t *testing.T) {
	now := time.Now()
	fresh := now.Add(-time.Minute)
	old := now.Add(-OrderLifetime - time.Minute)

	tests := []struct {
		name      string
		status    string
		createdAt time.Time
		expected  string
		err       error
	}{
		{"pending cancelled", OrderStatusSmsPending, fresh, OrderStatusCancelled, nil},
		{"pending expired", OrderStatusSmsPending, old, OrderStatusExpired, nil},
		{"success rejected", OrderStatusSuccess, fresh, "", apperrors.ErrOrderAlreadySuccessful},
		{"finished rejected", OrderStatusFinished, fresh, "", apperrors.ErrOrderAlreadyFinished},
		{"cancelled rejected", OrderStatusCancelled, fresh, "", apperrors.ErrOrderAlreadyCancelled},
		{"expired rejected", OrderStatusExpired, old, "", apperrors.ErrOrderAlreadyExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := Order{Status: tt.status, CreatedAt: tt.createdAt}

			status, err := o.CancelStatus(now)

			require.ErrorIs(t, err, tt.err)
			require.Equal(t, tt.expected, status)
		})
	}

	t.Run("unknown status", func(t *testing.T) {
		_, err := Order{Status: "weird"}.CancelStatus(now)

		require.Error(t, err)
	})
}

func TestOrder_FinishStatus(t *testing.T) {
	tests := []struct {
		name     string
		status   string
		expected string
		err      error
	}{
		{"success finished", OrderStatusSuccess, OrderStatusFinished, nil},
		{"finished twice", OrderStatusFinished, OrderStatusFinished, nil},
		{"pending rejected", OrderStatusSmsPending, "", apperrors.ErrOrderSmsPending},
		{"cancelled rejected", OrderStatusCancelled, "", apperrors.ErrOrderAlreadyCancelled},
		{"expired rejected", OrderStatusExpired, "", apperrors.ErrOrderAlreadyExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, err := Order{Status: tt.status}.FinishStatus()

			require.ErrorIs(t, err, tt.err)
			require.Equal(t, tt.expected, status)
		})
	}
}

func TestExpiryCutoff(t *testing.T) {
	now := time.Now()
	cutoff := ExpiryCutoff(now)

	require.False(t, Order{CreatedAt: cutoff}.HasExpired(now), "order created at cutoff is still alive")
	require.True(t, Order{CreatedAt: cutoff.Add(-time.Nanosecond)}.HasExpired(now))
}
