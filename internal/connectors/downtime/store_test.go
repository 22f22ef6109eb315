package downtime

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-fed-dashboard/internal/daterange"
)

func day(d int) time.Time {
	return time.Date(2024, time.March, d, 0, 0, 0, 0, time.UTC)
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Options{Driver: DriverSQLite, SQLitePath: filepath.Join(t.TempDir(), "downtime.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	seq := 0
	s.newID = func() string {
		seq++
		return fmt.Sprintf("dt-%02d", seq)
	}
	s.now = func() time.Time { return day(10).Add(12 * time.Hour) }
	return s
}

func TestOpen_RejectsBadOptions(t *testing.T) {
	_, err := Open(Options{Driver: "postgres", SQLitePath: "x"})
	assert.Error(t, err)
	_, err = Open(Options{Driver: DriverSQLite})
	assert.Error(t, err)
	_, err = Open(Options{Driver: DriverMySQL})
	assert.Error(t, err)
}

func TestInputNormalize(t *testing.T) {
	in, err := Input{ServerName: " origin-1 ", Class: "unscheduled", StartTime: 10, EndTime: Indefinite}.Normalize()
	require.NoError(t, err)
	assert.Equal(t, "origin-1", in.ServerName)
	assert.Equal(t, ClassUnscheduled, in.Class)
	assert.Equal(t, SeverityOutage, in.Severity)

	bad := []Input{
		{StartTime: 10, EndTime: 20},
		{ServerName: "a", StartTime: 0, EndTime: 20},
		{ServerName: "a", StartTime: 30, EndTime: 20},
		{ServerName: "a", StartTime: 10, EndTime: 20, Class: "SOMETIMES"},
		{ServerName: "a", StartTime: 10, EndTime: 20, Severity: "Meh"},
	}
	for _, b := range bad {
		_, err := b.Normalize()
		assert.True(t, errors.Is(err, ErrInvalid), "%+v", b)
	}
}

func TestStore_CRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created, err := s.Create(ctx, Input{
		ServerName:  "origin-1",
		Source:      "origin",
		Description: "disk swap",
		StartTime:   day(5).UnixMilli(),
		EndTime:     day(6).UnixMilli(),
	}, "admin")
	require.NoError(t, err)
	assert.Equal(t, "dt-01", created.ID)
	assert.Equal(t, "admin", created.CreatedBy)
	assert.Equal(t, ClassScheduled, created.Class)

	got, err := s.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)

	updated, err := s.Update(ctx, created.ID, Input{
		ServerName: "origin-1",
		Class:      ClassUnscheduled,
		Severity:   SeveritySevere,
		StartTime:  day(5).UnixMilli(),
		EndTime:    Indefinite,
	}, "operator")
	require.NoError(t, err)
	assert.True(t, updated.Indefinite())
	assert.Equal(t, "operator", updated.UpdatedBy)
	assert.Equal(t, "admin", updated.CreatedBy)

	_, err = s.Update(ctx, "nope", Input{ServerName: "x", StartTime: 1, EndTime: 2}, "operator")
	assert.True(t, errors.Is(err, ErrNotFound))

	require.NoError(t, s.Delete(ctx, created.ID))
	_, err = s.Get(ctx, created.ID)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.True(t, errors.Is(s.Delete(ctx, created.ID), ErrNotFound))
}

func TestStore_ListOverlap(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	mk := func(server string, start, end int64) {
		_, err := s.Create(ctx, Input{ServerName: server, StartTime: start, EndTime: end}, "admin")
		require.NoError(t, err)
	}
	mk("origin-1", day(1).UnixMilli(), day(3).UnixMilli()) // ends before window
	mk("origin-1", day(4).UnixMilli(), day(6).UnixMilli()) // overlaps start
	mk("cache-1", day(9).UnixMilli(), day(9).Add(time.Hour).UnixMilli())
	mk("cache-1", day(11).UnixMilli(), day(12).UnixMilli()) // after window
	mk("cache-2", day(2).UnixMilli(), Indefinite)

	rng := daterange.DateRange{StartTime: day(5).UnixMilli(), EndTime: day(10).UnixMilli()}
	all, err := s.List(ctx, WindowFilter(rng, time.UTC))
	require.NoError(t, err)

	ids := make([]string, 0, len(all))
	for _, r := range all {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"dt-05", "dt-02", "dt-03"}, ids)

	only, err := s.List(ctx, Filter{ServerName: "cache-1"})
	require.NoError(t, err)
	assert.Len(t, only, 2)

	everything, err := s.List(ctx, Filter{})
	require.NoError(t, err)
	assert.Len(t, everything, 5)
}

func TestStore_ServiceStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Create(ctx, Input{ServerName: "a", StartTime: day(9).UnixMilli(), EndTime: Indefinite}, "x")
	require.NoError(t, err)
	_, err = s.Create(ctx, Input{ServerName: "b", StartTime: day(20).UnixMilli(), EndTime: day(21).UnixMilli()}, "x")
	require.NoError(t, err)
	_, err = s.Create(ctx, Input{ServerName: "c", StartTime: day(1).UnixMilli(), EndTime: day(2).UnixMilli()}, "x")
	require.NoError(t, err)

	stats, err := s.ServiceStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, DriverSQLite, stats.Driver)
	assert.EqualValues(t, 3, stats.Total)
	assert.EqualValues(t, 1, stats.Active)
	assert.EqualValues(t, 1, stats.Upcoming)
	assert.EqualValues(t, 1, stats.Indefinite)
}

func TestTiles(t *testing.T) {
	records := []Record{
		{ID: "sched", Class: ClassScheduled, StartTime: day(2).Add(6 * time.Hour).UnixMilli(), EndTime: day(3).Add(time.Hour).UnixMilli()},
		{ID: "forever", Class: ClassUnscheduled, StartTime: day(3).UnixMilli(), EndTime: Indefinite},
	}
	rng := daterange.DateRange{StartTime: day(1).UnixMilli(), EndTime: day(4).UnixMilli()}

	tiles := Tiles(records, rng, time.UTC)
	require.Len(t, tiles, 4)
	assert.Equal(t, "2024-03-01", tiles[0].Date)
	assert.Empty(t, tiles[0].Downtimes)
	require.Len(t, tiles[1].Downtimes, 1)
	assert.Equal(t, "sched", tiles[1].Downtimes[0].ID)

	require.Len(t, tiles[2].Downtimes, 2)
	assert.Equal(t, "forever", tiles[2].Downtimes[0].ID)
	require.Len(t, tiles[3].Downtimes, 1)
	assert.Equal(t, "forever", tiles[3].Downtimes[0].ID)
}

func TestRecordActiveAt(t *testing.T) {
	r := Record{StartTime: day(1).UnixMilli(), EndTime: day(2).UnixMilli()}
	assert.True(t, r.ActiveAt(day(1)))
	assert.False(t, r.ActiveAt(day(2)))
	r.EndTime = Indefinite
	assert.True(t, r.ActiveAt(day(30)))
}
