package math

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michaelpento.lv/dustvault/types"
)

func TestIsValidAmount(t *testing.T) {
	tests := []struct {
		name   string
		amount *big.Int
		want   bool
	}{
		{"nil", nil, false},
		{"zero", big.NewInt(0), false},
		{"negative", big.NewInt(-1), false},
		{"one", big.NewInt(1), true},
		{"max", new(big.Int).Set(MaxBalance), true},
		{"above max", new(big.Int).Add(MaxBalance, big.NewInt(1)), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidAmount(tt.amount))
		})
	}
}

func TestCheckedAdd(t *testing.T) {
	t.Run("sum in range", func(t *testing.T) {
		sum, err := CheckedAdd(big.NewInt(40), big.NewInt(2))
		require.NoError(t, err)
		assert.Equal(t, int64(42), sum.Int64())
	})

	t.Run("overflow", func(t *testing.T) {
		_, err := CheckedAdd(MaxBalance, big.NewInt(1))
		assert.ErrorIs(t, err, types.ErrInvalidAmount)
	})
}

func TestCheckedSub(t *testing.T) {
	t.Run("covered", func(t *testing.T) {
		diff, err := CheckedSub(big.NewInt(42), big.NewInt(40))
		require.NoError(t, err)
		assert.Equal(t, int64(2), diff.Int64())
	})

	t.Run("undercovered", func(t *testing.T) {
		_, err := CheckedSub(big.NewInt(40), big.NewInt(42))
		assert.ErrorIs(t, err, types.ErrInsufficientBalance)
	})
}

func TestSaturatingSub(t *testing.T) {
	assert.Equal(t, int64(2), SaturatingSub(big.NewInt(42), big.NewInt(40)).Int64())
	assert.Equal(t, int64(0), SaturatingSub(big.NewInt(40), big.NewInt(42)).Int64())
}

func TestMulDivTruncates(t *testing.T) {
	// 999 * 15000 / 10000 = 1498.5, truncated toward zero.
	assert.Equal(t, int64(1498), MulDiv(big.NewInt(999), 15000, 10000).Int64())
}

func TestApplyBps(t *testing.T) {
	assert.Equal(t, int64(45), ApplyBps(big.NewInt(15000), 30).Int64())
	assert.Equal(t, int64(0), ApplyBps(big.NewInt(100), 30).Int64())
}
