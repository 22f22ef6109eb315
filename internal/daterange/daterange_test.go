package daterange

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustLoad(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	require.NoError(t, err)
	return loc
}

func TestSelector_InitiallyUnset(t *testing.T) {
	s := NewSelector(time.UTC)
	_, ok := s.Range()
	assert.False(t, ok)
}

func TestNavigateMonth_March2024(t *testing.T) {
	loc := mustLoad(t, "America/Chicago")
	s := NewSelector(loc)
	s.NavigateMonth(time.Date(2024, time.March, 1, 0, 0, 0, 0, loc))

	r, ok := s.Range()
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, time.March, 1, 0, 0, 0, 0, loc).UnixMilli(), r.StartTime)
	assert.Equal(t, time.Date(2024, time.March, 31, 0, 0, 0, 0, loc).UnixMilli(), r.EndTime)
}

func TestNavigateMonth_AllMonthsIncludingLeapFebruary(t *testing.T) {
	loc := time.UTC
	cases := []struct {
		year    int
		month   time.Month
		lastDay int
	}{
		{2024, time.February, 29},
		{2023, time.February, 28},
		{2000, time.February, 29},
		{1900, time.February, 28},
		{2024, time.April, 30},
		{2024, time.December, 31},
		{2025, time.January, 31},
	}
	for _, tc := range cases {
		s := NewSelector(loc)
		// Any day within the month navigates to the whole month.
		s.NavigateMonth(time.Date(tc.year, tc.month, 15, 13, 45, 0, 0, loc))

		r, ok := s.Range()
		require.True(t, ok)
		assert.Equal(t, time.Date(tc.year, tc.month, 1, 0, 0, 0, 0, loc).UnixMilli(), r.StartTime, "%d-%s", tc.year, tc.month)
		assert.Equal(t, time.Date(tc.year, tc.month, tc.lastDay, 0, 0, 0, 0, loc).UnixMilli(), r.EndTime, "%d-%s", tc.year, tc.month)
		assert.Equal(t, tc.lastDay, r.End(loc).Day())
		assert.LessOrEqual(t, r.StartTime, r.EndTime)
	}
}

func TestNavigateMonth_ZeroIsIgnored(t *testing.T) {
	s := NewSelector(time.UTC)
	s.NavigateMonth(time.Time{})
	_, ok := s.Range()
	assert.False(t, ok)
}

func TestSelect_TruncatesToStartOfDay(t *testing.T) {
	loc := time.UTC
	s := NewSelector(loc)
	applied := s.Select(
		time.Date(2024, time.May, 3, 15, 4, 5, 0, loc),
		time.Date(2024, time.May, 9, 23, 59, 0, 0, loc),
	)
	require.True(t, applied)

	r, _ := s.Range()
	assert.Equal(t, time.Date(2024, time.May, 3, 0, 0, 0, 0, loc).UnixMilli(), r.StartTime)
	assert.Equal(t, time.Date(2024, time.May, 9, 0, 0, 0, 0, loc).UnixMilli(), r.EndTime)
}

func TestSelect_SingleEndpointLeavesStateUnchanged(t *testing.T) {
	loc := time.UTC
	s := NewSelector(loc)
	s.NavigateMonth(time.Date(2024, time.March, 1, 0, 0, 0, 0, loc))
	before, _ := s.Range()

	assert.False(t, s.Select(time.Date(2024, time.March, 5, 0, 0, 0, 0, loc), time.Time{}))
	assert.False(t, s.Select(time.Time{}, time.Date(2024, time.March, 5, 0, 0, 0, 0, loc)))

	after, _ := s.Range()
	assert.Equal(t, before, after)
}

func TestSelect_ReversedEndpointsAreOrdered(t *testing.T) {
	loc := time.UTC
	s := NewSelector(loc)
	s.Select(time.Date(2024, time.May, 9, 0, 0, 0, 0, loc), time.Date(2024, time.May, 3, 0, 0, 0, 0, loc))

	r, _ := s.Range()
	assert.Less(t, r.StartTime, r.EndTime)
	assert.Equal(t, time.Date(2024, time.May, 3, 0, 0, 0, 0, loc).UnixMilli(), r.StartTime)
}

func TestSelect_SameDay(t *testing.T) {
	loc := time.UTC
	s := NewSelector(loc)
	day := time.Date(2024, time.May, 3, 10, 0, 0, 0, loc)
	require.True(t, s.Select(day, day.Add(2*time.Hour)))

	r, _ := s.Range()
	assert.Equal(t, r.StartTime, r.EndTime)
}

func TestWindowAndOverlaps(t *testing.T) {
	loc := time.UTC
	r := MonthRange(2024, time.March, loc)

	from, to := r.Window(loc)
	assert.True(t, from.Equal(time.Date(2024, time.March, 1, 0, 0, 0, 0, loc)))
	assert.True(t, to.Equal(time.Date(2024, time.April, 1, 0, 0, 0, 0, loc)))

	// Starts during the last day of the range.
	assert.True(t, r.Overlaps(time.Date(2024, time.March, 31, 18, 0, 0, 0, loc), time.Date(2024, time.April, 2, 0, 0, 0, 0, loc), loc))
	// Ends exactly where the range starts.
	assert.False(t, r.Overlaps(time.Date(2024, time.February, 27, 0, 0, 0, 0, loc), time.Date(2024, time.March, 1, 0, 0, 0, 0, loc), loc))
	assert.False(t, r.Overlaps(time.Date(2024, time.April, 1, 0, 0, 0, 0, loc), time.Date(2024, time.April, 5, 0, 0, 0, 0, loc), loc))
}

func TestStartOfDay_KeepsLocation(t *testing.T) {
	loc := mustLoad(t, "Europe/Madrid")
	got := StartOfDay(time.Date(2024, time.October, 27, 12, 0, 0, 0, loc))
	assert.True(t, got.Equal(time.Date(2024, time.October, 27, 0, 0, 0, 0, loc)))
	assert.Equal(t, loc, got.Location())
}
