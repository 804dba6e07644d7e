package indicators

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRSI_AllGains(t *testing.T) {
	prices := make([]float64, 20)
	for i := range prices {
		prices[i] = 100.0 + float64(i)
	}

	rsi, err := RSI(prices, 14)
	require.NoError(t, err)
	assert.InDelta(t, 100.0, rsi, 1e-9)
}

func TestRSI_AllLosses(t *testing.T) {
	prices := make([]float64, 20)
	for i := range prices {
		prices[i] = 200.0 - float64(i)
	}

	rsi, err := RSI(prices, 14)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, rsi, 1e-9)
}

func TestRSI_BalancedSeries(t *testing.T) {
	// Alternating +1/-1 moves: equal average gain and loss, RSI = 50.
	prices := make([]float64, 21)
	prices[0] = 100
	for i := 1; i < len(prices); i++ {
		if i%2 == 0 {
			prices[i] = prices[i-1] - 1
		} else {
			prices[i] = prices[i-1] + 1
		}
	}

	rsi, err := RSI(prices, 14)
	require.NoError(t, err)
	assert.InDelta(t, 50.0, rsi, 1e-9)
}

func TestRSI_InsufficientData(t *testing.T) {
	_, err := RSI([]float64{1, 2, 3}, 14)
	assert.ErrorIs(t, err, ErrInsufficientData)
}
