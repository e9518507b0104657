package database

import (
	"math/big"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
)

func TestNormalizeValue(t *testing.T) {
	ts := time.Date(2026, time.March, 11, 14, 30, 0, 0, time.UTC)

	t.Run("date column renders ISO day", func(t *testing.T) {
		assert.Equal(t, "2026-03-11", NormalizeValue(ts, true))
	})

	t.Run("timestamp column keeps full time", func(t *testing.T) {
		assert.Equal(t, ts, NormalizeValue(ts, false))
	})

	t.Run("integral numeric becomes int64", func(t *testing.T) {
		n := pgtype.Numeric{Int: big.NewInt(20), Valid: true}
		assert.Equal(t, int64(20), NormalizeValue(n, false))
	})

	t.Run("fractional numeric becomes float64", func(t *testing.T) {
		n := pgtype.Numeric{Int: big.NewInt(125), Exp: -1, Valid: true}
		assert.Equal(t, 12.5, NormalizeValue(n, false))
	})

	t.Run("integral float collapses", func(t *testing.T) {
		assert.Equal(t, int64(8), NormalizeValue(float64(8), false))
		assert.Equal(t, int64(8), NormalizeValue(float32(8), false))
	})

	t.Run("passthrough", func(t *testing.T) {
		assert.Equal(t, "rasam", NormalizeValue("rasam", false))
		assert.Equal(t, int64(7), NormalizeValue(int64(7), false))
		assert.Nil(t, NormalizeValue(nil, false))
	})
}

func TestAsInt64(t *testing.T) {
	for _, v := range []any{int64(42), int32(42), int16(42), int(42), float64(42)} {
		got, ok := AsInt64(v)
		assert.True(t, ok)
		assert.Equal(t, int64(42), got)
	}

	_, ok := AsInt64("42")
	assert.False(t, ok)
	_, ok = AsInt64(nil)
	assert.False(t, ok)
}
