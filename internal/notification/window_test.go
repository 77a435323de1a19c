package notification

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithinWindow(t *testing.T) {
	day := func(h, m int) time.Time { return time.Date(2024, 6, 3, h, m, 0, 0, testLoc) }

	tests := []struct {
		name       string
		now        time.Time
		start, end string
		want       bool
	}{
		{"inside", day(12, 0), "08:00", "20:00", true},
		{"at start", day(8, 0), "08:00", "20:00", true},
		{"at end", day(20, 0), "08:00", "20:00", true},
		{"after end", day(20, 1), "08:00", "20:00", false},
		{"before start", day(7, 59), "08:00", "20:00", false},
		{"wrap late", day(23, 0), "22:00", "06:00", true},
		{"wrap early", day(5, 0), "22:00", "06:00", true},
		{"wrap outside", day(12, 0), "22:00", "06:00", false},
		{"unset", day(3, 0), "", "", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, withinWindow(tc.now, tc.start, tc.end))
		})
	}
}

func TestNextWindowStart(t *testing.T) {
	late := time.Date(2024, 6, 3, 22, 0, 0, 0, testLoc)
	next, err := nextWindowStart(late, "08:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 6, 4, 8, 0, 0, 0, testLoc), next)

	early := time.Date(2024, 6, 3, 6, 0, 0, 0, testLoc)
	next, err = nextWindowStart(early, "08:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 6, 3, 8, 0, 0, 0, testLoc), next)

	_, err = nextWindowStart(late, "8am")
	assert.Error(t, err)
}
