package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToCents(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"0", 0},
		{"0.01", 1},
		{"19.99", 1999},
		{"19.995", 2000},
		{"19.994", 1999},
		{"100", 10000},
		{"-2.50", -250},
	}
	for _, tc := range cases {
		got, err := ToCents(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}

	_, err := ToCents("not-a-number")
	assert.Error(t, err)
}

func TestFromCents(t *testing.T) {
	assert.Equal(t, "0.00", FromCents(0))
	assert.Equal(t, "0.05", FromCents(5))
	assert.Equal(t, "19.99", FromCents(1999))
	assert.Equal(t, "-2.50", FromCents(-250))
	assert.Equal(t, "1234.00", FromCents(123400))
}
