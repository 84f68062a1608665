package bridge

import (
	"testing"

	"cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatUnits(t *testing.T) {
	cases := []struct {
		amount   string
		decimals uint8
		want     string
	}{
		{"0", 18, "0"},
		{"1", 18, "0.000000000000000001"},
		{"1000000000000000000", 18, "1"},
		{"1500000000000000000", 18, "1.5"},
		{"1234567890000000000", 18, "1.23456789"},
		{"-2500000000000000000", 18, "-2.5"},
		{"12345", 0, "12345"},
		{"12345", 2, "123.45"},
		{"100", 2, "1"},
	}
	for _, tc := range cases {
		amount, ok := math.NewIntFromString(tc.amount)
		require.True(t, ok, tc.amount)
		assert.Equal(t, tc.want, FormatUnits(amount, tc.decimals),
			"FormatUnits(%s, %d)", tc.amount, tc.decimals)
	}
}

func TestParseUnits(t *testing.T) {
	cases := []struct {
		in       string
		decimals uint8
		want     string
	}{
		{"0", 18, "0"},
		{"1", 18, "1000000000000000000"},
		{"1.5", 18, "1500000000000000000"},
		{"0.000000000000000001", 18, "1"},
		{"-2.5", 18, "-2500000000000000000"},
		{".5", 2, "50"},
		{"123.45", 2, "12345"},
		{" 7 ", 0, "7"},
	}
	for _, tc := range cases {
		got, err := ParseUnits(tc.in, tc.decimals)
		require.NoError(t, err, "ParseUnits(%q, %d)", tc.in, tc.decimals)
		assert.Equal(t, tc.want, got.String(), "ParseUnits(%q, %d)", tc.in, tc.decimals)
	}
}

func TestParseUnits_Rejections(t *testing.T) {
	cases := []struct {
		in       string
		decimals uint8
	}{
		{"", 18},
		{"1.", 18},
		{"1.234", 2},  // excess fractional digits
		{"0.1", 0},    // no fractional digits allowed
		{"abc", 18},
		{"1.2.3", 18},
	}
	for _, tc := range cases {
		_, err := ParseUnits(tc.in, tc.decimals)
		assert.Error(t, err, "ParseUnits(%q, %d)", tc.in, tc.decimals)
	}
}

func TestUnits_RoundTrip(t *testing.T) {
	const decimals = 18
	for _, raw := range []string{"0", "1", "999", "1000000000000000000", "123456789123456789123456789", "-42"} {
		amount, ok := math.NewIntFromString(raw)
		require.True(t, ok)

		back, err := ParseUnits(FormatUnits(amount, decimals), decimals)
		require.NoError(t, err)
		assert.True(t, back.Equal(amount), "round trip of %s", raw)
	}
}
