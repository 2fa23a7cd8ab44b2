package month

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindow(t *testing.T) {
	tests := []struct {
		name      string
		now       time.Time
		back      int
		wantStart time.Time
		wantEnd   time.Time
	}{
		{
			name:      "current month",
			now:       time.Date(2024, 5, 17, 13, 45, 0, 0, time.UTC),
			back:      0,
			wantStart: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "end of march minus one month is february",
			now:       time.Date(2024, 3, 31, 10, 0, 0, 0, time.UTC),
			back:      1,
			wantStart: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "crosses year boundary",
			now:       time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
			back:      2,
			wantStart: time.Date(2023, 11, 1, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := Window(tt.now, tt.back)
			assert.Equal(t, tt.wantStart, start)
			assert.Equal(t, tt.wantEnd, end)
		})
	}
}

func TestWindows_OldestFirst(t *testing.T) {
	now := time.Date(2024, 2, 29, 23, 0, 0, 0, time.UTC)

	got := Windows(now, 3)
	require.Len(t, got, 3)

	assert.Equal(t, "Dec", Label(got[0][0]))
	assert.Equal(t, "Jan", Label(got[1][0]))
	assert.Equal(t, "Feb", Label(got[2][0]))
	for i := 1; i < len(got); i++ {
		assert.Equal(t, got[i-1][1], got[i][0], "windows must be contiguous")
	}
}

func TestStart_KeepsLocation(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)
	now := time.Date(2024, 7, 9, 1, 0, 0, 0, loc)

	assert.Equal(t, time.Date(2024, 7, 1, 0, 0, 0, 0, loc), Start(now))
}
