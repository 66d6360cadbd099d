package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "70", FormatNumber(70))
	assert.Equal(t, "71.25", FormatNumber(71.25))
	assert.Equal(t, "0", FormatNumber(math.Copysign(0, -1)))
	assert.Equal(t, "1000", FormatNumber(1e3))
}

func TestCanonicalNumber(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{" 70.50 ", "70.5", true},
		{"1e3", "1000", true},
		{"+4", "4", true},
		{"-0", "0", true},
		{"NaN", "", false},
		{"Inf", "", false},
		{"heavy", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := CanonicalNumber(tc.in)
		assert.Equal(t, tc.ok, ok, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}
