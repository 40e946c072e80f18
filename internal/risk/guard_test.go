package risk

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckAmount_OrderOfGuards(t *testing.T) {
	guard := NewGuard(Limits{MaxOrderUSD: 50, MinOrderUSD: 1}, nil)

	cases := []struct {
		name   string
		amount float64
		want   Reason
	}{
		{"zero", 0, ReasonInvalidAmount},
		{"negative", -5, ReasonInvalidAmount},
		{"nan", math.NaN(), ReasonInvalidAmount},
		{"above max", 50.01, ReasonExceedsConfiguredLimit},
		{"below minimum", 0.99, ReasonBelowExchangeMinimum},
		{"tiny", 0.01, ReasonBelowExchangeMinimum},
		{"at minimum", 1, ""},
		{"at max", 50, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := guard.CheckAmount(tc.amount)
			if tc.want == "" {
				require.NoError(t, err)
				return
			}

			var rejection *Rejection
			require.ErrorAs(t, err, &rejection)
			assert.Equal(t, tc.want, rejection.Reason)
		})
	}
}

func TestCheckAmount_ReportsLimit(t *testing.T) {
	guard := NewGuard(Limits{MaxOrderUSD: 50, MinOrderUSD: 1}, nil)

	var rejection *Rejection
	require.ErrorAs(t, guard.CheckAmount(75), &rejection)
	assert.Equal(t, 75.0, rejection.Amount)
	assert.Equal(t, 50.0, rejection.Limit)
	assert.NotEmpty(t, rejection.Hint, "expected remediation hint for configured limit")
}

func TestCheckBalance(t *testing.T) {
	guard := NewGuard(Limits{MaxOrderUSD: 50, MinOrderUSD: 1}, nil)

	var rejection *Rejection
	require.ErrorAs(t, guard.CheckBalance(10, 5, true), &rejection)
	assert.Equal(t, ReasonInsufficientBalance, rejection.Reason)

	assert.NoError(t, guard.CheckBalance(10, 10, true), "equal balance should pass")
	assert.NoError(t, guard.CheckBalance(10, 0, false), "unknown balance should not block")
}
