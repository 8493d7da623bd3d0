package money

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		input string
		want  int64
		ok    bool
	}{
		{"15,5k", 15_500, true},
		{"2,800,000", 2_800_000, true},
		{"2.8M", 2_800_000, true},
		{"2.8m", 2_800_000, true},
		{"150K", 150_000, true},
		{"150k", 150_000, true},
		{"2800000", 2_800_000, true},
		{"₩150,000", 150_000, true},
		{"1.2345K", 1_234, true},
		{"15.7", 15, true},
		{"0", 0, true},
		{"abc", 0, false},
		{"gs25", 0, false},
		{"", 0, false},
		{"1.2.3", 0, false},
		{"k", 0, false},
		{"12x", 0, false},
		{"9223372036854775807", math.MaxInt64, true},
		{"9223372036854775.807K", math.MaxInt64, true},
		{"9223372036854775.808K", 0, false},
		{"18446744073709552K", 0, false},
		{"99999999999999999M", 0, false},
		{"9223372036854775807K", 0, false},
		{"99999999999999999999", 0, false},
	}

	for _, tt := range tests {
		got, ok := ParseAmount(tt.input)
		assert.Equal(t, tt.ok, ok, "ok for %q", tt.input)
		assert.Equal(t, tt.want, got, "value for %q", tt.input)
	}
}

func TestParseAmount_ZeroIsNotAbsent(t *testing.T) {
	v, ok := ParseAmount("0k")
	assert.True(t, ok)
	assert.Zero(t, v)

	_, ok = ParseAmount("zero")
	assert.False(t, ok)
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "₩2.8M", Format(2_800_000))
	assert.Equal(t, "₩150K", Format(150_000))
	assert.Equal(t, "₩900", Format(900))
	assert.Equal(t, "-₩50K", Format(-50_000))
	assert.Equal(t, "₩15.0M", Format(15_000_000))
}

func TestFormatFull(t *testing.T) {
	assert.Equal(t, "₩2,800,000", FormatFull(2_800_000))
	assert.Equal(t, "₩100", FormatFull(100))
	assert.Equal(t, "₩1,000", FormatFull(1_000))
	assert.Equal(t, "-₩12,345", FormatFull(-12_345))
}

func TestFormatRoundTrip(t *testing.T) {
	inputs := []string{"2.8M", "150K", "15,5k", "999", "1.25M", "3M", "47K", "999999", "12.3456M"}

	for _, in := range inputs {
		v, ok := ParseAmount(in)
		assert.True(t, ok, in)

		back, ok := ParseAmount(Format(v))
		assert.True(t, ok, "formatted %q", Format(v))

		tolerance := int64(0)
		switch {
		case v >= 1_000_000:
			tolerance = 50_000
		case v >= 1_000:
			tolerance = 500
		}
		assert.InDelta(t, v, back, float64(tolerance), "round trip of %q", in)
	}
}
