package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestIsValidAmount(t *testing.T) {
	tests := []struct {
		amount   string
		expected bool
	}{
		{"1", true},
		{"0.01", true},
		{"12.50", true},
		{"12.500", true},
		{"0", false},
		{"-1", false},
		{"0.005", false},
		{"0.006", false},
		{"10.001", false},
	}

	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			require.Equal(t, tt.expected, IsValidAmount(decimal.RequireFromString(tt.amount)))
		})
	}
}
