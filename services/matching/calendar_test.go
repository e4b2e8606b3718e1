package matching

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartOfLocalDay(t *testing.T) {
	now := time.Date(2026, 3, 10, 23, 30, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), StartOfLocalDay(0, now))
	// UTC+3: уже 11 марта, 02:30
	assert.Equal(t, time.Date(2026, 3, 10, 21, 0, 0, 0, time.UTC), StartOfLocalDay(180, now))
	// UTC-5: еще 10 марта, 18:30
	assert.Equal(t, time.Date(2026, 3, 10, 5, 0, 0, 0, time.UTC), StartOfLocalDay(-300, now))
	assert.Equal(t, "2026-03-11", LocalDate(180, now))
	assert.Equal(t, "2026-03-10", LocalDate(-300, now))
}

func TestCalendarResolve(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	cal := Calendar{DefaultOffsetMinutes: 120}

	day, err := cal.Resolve("", nil, now)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-10", day.Date)
	assert.Equal(t, time.Date(2026, 3, 9, 22, 0, 0, 0, time.UTC), day.Start)
	assert.Equal(t, 24*time.Hour, day.End.Sub(day.Start))

	offset := 14 * 60
	day, err = cal.Resolve("", &offset, now)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-11", day.Date)

	day, err = cal.Resolve("2026-03-11", &offset, now)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-11", day.Date)
	assert.Equal(t, time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC), day.Start)
}

func TestCalendarResolveRejects(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	var cal Calendar

	tooFar := 15 * 60
	_, err := cal.Resolve("", &tooFar, now)
	requireCode(t, err, ErrInvalidRequest)

	for _, date := range []string{"2026-03-08", "2026-03-12", "2026/03/10", "yesterday"} {
		_, err := cal.Resolve(date, nil, now)
		requireCode(t, err, ErrInvalidRequest)
	}
}
