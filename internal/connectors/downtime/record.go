// Package downtime persists federation downtime declarations in SQLite or
// MySQL and groups them for the calendar.
package downtime

import (
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Indefinite is the EndTime of a downtime that has no planned end.
const Indefinite int64 = -1

const (
	ClassScheduled   = "SCHEDULED"
	ClassUnscheduled = "UNSCHEDULED"
)

const (
	SeverityOutage       = "Outage (completely inaccessible)"
	SeveritySevere       = "Severe (most services down)"
	SeverityIntermittent = "Intermittent Outage (may be up for some of the time)"
	SeverityNone         = "No Significant Outage Expected (you shouldn't notice)"
)

var (
	ErrNotFound = errors.New("downtime not found")
	ErrInvalid  = errors.New("invalid downtime")
)

// Record is one downtime. Times are unix milliseconds.
type Record struct {
	ID          string `json:"id"`
	ServerName  string `json:"serverName"`
	Source      string `json:"source"`
	Class       string `json:"class"`
	Description string `json:"description"`
	Severity    string `json:"severity"`
	StartTime   int64  `json:"startTime"`
	EndTime     int64  `json:"endTime"`
	CreatedBy   string `json:"createdBy"`
	UpdatedBy   string `json:"updatedBy"`
	CreatedAt   int64  `json:"createdAt"`
	UpdatedAt   int64  `json:"updatedAt"`
}

func (r Record) Indefinite() bool {
	return r.EndTime == Indefinite
}

// Interval returns the record's span; indefinite downtimes end at far.
func (r Record) Interval(far time.Time) (time.Time, time.Time) {
	start := time.UnixMilli(r.StartTime)
	if r.Indefinite() {
		return start, far
	}
	return start, time.UnixMilli(r.EndTime)
}

// ActiveAt reports whether the downtime covers t.
func (r Record) ActiveAt(t time.Time) bool {
	ms := t.UnixMilli()
	return r.StartTime <= ms && (r.Indefinite() || ms < r.EndTime)
}

// Input is the writable part of a Record.
type Input struct {
	ServerName  string `json:"serverName"`
	Source      string `json:"source"`
	Class       string `json:"class"`
	Description string `json:"description"`
	Severity    string `json:"severity"`
	StartTime   int64  `json:"startTime"`
	EndTime     int64  `json:"endTime"`
}

var knownSeverities = map[string]struct{}{
	SeverityOutage:       {},
	SeveritySevere:       {},
	SeverityIntermittent: {},
	SeverityNone:         {},
}

// Normalize trims fields, applies defaults and validates the input.
func (in Input) Normalize() (Input, error) {
	in.ServerName = strings.TrimSpace(in.ServerName)
	in.Source = strings.TrimSpace(in.Source)
	in.Description = strings.TrimSpace(in.Description)
	in.Class = strings.ToUpper(strings.TrimSpace(in.Class))
	in.Severity = strings.TrimSpace(in.Severity)

	if in.ServerName == "" {
		return in, errors.Wrap(ErrInvalid, "serverName is required")
	}
	if in.Class == "" {
		in.Class = ClassScheduled
	}
	if in.Class != ClassScheduled && in.Class != ClassUnscheduled {
		return in, errors.Wrapf(ErrInvalid, "unknown class %q", in.Class)
	}
	if in.Severity == "" {
		in.Severity = SeverityOutage
	}
	if _, ok := knownSeverities[in.Severity]; !ok {
		return in, errors.Wrapf(ErrInvalid, "unknown severity %q", in.Severity)
	}
	if in.StartTime <= 0 {
		return in, errors.Wrap(ErrInvalid, "startTime is required")
	}
	if in.EndTime != Indefinite && in.EndTime < in.StartTime {
		return in, errors.Wrap(ErrInvalid, "endTime must be -1 or not before startTime")
	}
	return in, nil
}
