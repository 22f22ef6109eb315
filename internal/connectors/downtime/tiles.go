package downtime

import (
	"cmp"
	"time"

	"go-fed-dashboard/internal/daterange"
	"go-fed-dashboard/internal/helpers"
)

// DayTile is one calendar day and the downtimes touching it.
type DayTile struct {
	Date      string   `json:"date"`
	Start     int64    `json:"start"`
	Downtimes []Record `json:"downtimes"`
}

// WindowFilter converts a selected range into a List filter.
func WindowFilter(r daterange.DateRange, loc *time.Location) Filter {
	from, to := r.Window(loc)
	return Filter{From: from, To: to}
}

// Tiles lays records out over every day of the range's window. Each tile
// lists the downtimes overlapping that day, most severe class first.
func Tiles(records []Record, r daterange.DateRange, loc *time.Location) []DayTile {
	if loc == nil {
		loc = time.Local
	}
	from, to := r.Window(loc)

	out := make([]DayTile, 0)
	for day := daterange.StartOfDay(from); day.Before(to); day = day.AddDate(0, 0, 1) {
		next := day.AddDate(0, 0, 1)
		tile := DayTile{Date: day.Format(time.DateOnly), Start: day.UnixMilli(), Downtimes: []Record{}}
		for _, rec := range records {
			start, end := rec.Interval(next)
			if start.Before(next) && end.After(day) {
				tile.Downtimes = append(tile.Downtimes, rec)
			}
		}
		helpers.MultiSort(tile.Downtimes,
			func(a, b Record) int { return classRank(a.Class) - classRank(b.Class) },
			func(a, b Record) int { return cmp.Compare(a.StartTime, b.StartTime) },
		)
		out = append(out, tile)
	}
	return out
}

func classRank(class string) int {
	if class == ClassUnscheduled {
		return 0
	}
	return 1
}
