package commands

import (
	"testing"

	apperrors "github.com/gmsas95/ledgerbot/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTargets(t *testing.T) {
	tests := []struct {
		spec     string
		expected []int
	}{
		{"3", []int{3}},
		{"1,3,5", []int{1, 3, 5}},
		{"1, 3 ,5", []int{1, 3, 5}},
		{"2-4", []int{2, 3, 4}},
		{"4-2", []int{2, 3, 4}},
		{"1,3-5", []int{1, 3, 4, 5}},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			got, err := ParseTargets(tt.spec)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got.Positions)
		})
	}
}

func TestParseTargets_Last(t *testing.T) {
	got, err := ParseTargets("last")
	require.NoError(t, err)
	assert.Equal(t, 1, got.Last)

	got, err = ParseTargets("LAST 3")
	require.NoError(t, err)
	assert.Equal(t, 3, got.Last)
}

func TestParseTargets_Invalid(t *testing.T) {
	for _, spec := range []string{"", "abc", "1,,2", "1-", "last x", "1-500"} {
		_, err := ParseTargets(spec)
		assert.ErrorIs(t, err, apperrors.ErrInvalidTarget, spec)
	}
}

func TestTargets_Resolve(t *testing.T) {
	tg, _ := ParseTargets("5,3,3,4")
	got, err := tg.Resolve(10)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 4, 5}, got)

	tg, _ = ParseTargets("last 2")
	got, err = tg.Resolve(10)
	require.NoError(t, err)
	assert.Equal(t, []int{9, 10}, got)

	tg, _ = ParseTargets("last 20")
	got, err = tg.Resolve(3)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, got)

	tg, _ = ParseTargets("11")
	_, err = tg.Resolve(10)
	assert.ErrorIs(t, err, apperrors.ErrOutOfRange)

	tg, _ = ParseTargets("0")
	_, err = tg.Resolve(10)
	assert.ErrorIs(t, err, apperrors.ErrOutOfRange)

	_, err = tg.Resolve(0)
	assert.ErrorIs(t, err, apperrors.ErrNoList)
}
