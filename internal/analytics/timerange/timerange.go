// Package timerange resolves calendar-day ranges into absolute instants per
// clinic timezone and renders them as per-clinic SQL range predicates.
package timerange

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"dim_dashboard_backend/platform/tz"
)

// Date is a calendar date without time of day or zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(value string) (Date, error) {
	t, err := time.Parse(tz.DateLayout, value)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", value, err)
	}
	return DateOf(t), nil
}

// DateOf returns the calendar date of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// AddDays shifts the date by n calendar days.
func (d Date) AddDays(n int) Date {
	return DateOf(time.Date(d.Year, d.Month, d.Day+n, 0, 0, 0, 0, time.UTC))
}

// Before reports whether d is strictly earlier than other.
func (d Date) Before(other Date) bool {
	return d.asUTC().Before(other.asUTC())
}

// StartIn is local midnight of d in loc.
func (d Date) StartIn(loc *time.Location) time.Time {
	return tz.StartOfDay(d.Year, d.Month, d.Day, loc)
}

// EndIn is 23:59:59.999 of d in loc.
func (d Date) EndIn(loc *time.Location) time.Time {
	return tz.EndOfDay(d.Year, d.Month, d.Day, loc)
}

func (d Date) String() string {
	return d.asUTC().Format(tz.DateLayout)
}

func (d Date) asUTC() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// ClinicZone is a clinic id with its configured timezone name.
type ClinicZone struct {
	ClinicID uuid.UUID
	Timezone string
}

// Range is one clinic's absolute window for a calendar range.
type Range struct {
	ClinicID uuid.UUID
	Start    time.Time
	End      time.Time
}

// Resolve computes each clinic's [local midnight of from, local end of to].
// Unset or unknown timezones resolve in UTC.
func Resolve(clinics []ClinicZone, from, to Date) []Range {
	ranges := make([]Range, 0, len(clinics))
	for _, c := range clinics {
		loc := tz.Load(c.Timezone)
		ranges = append(ranges, Range{
			ClinicID: c.ClinicID,
			Start:    from.StartIn(loc),
			End:      to.EndIn(loc),
		})
	}
	return ranges
}

// ZoneLookup loads timezones for clinic ids. Unknown ids are omitted.
type ZoneLookup interface {
	ClinicZones(ctx context.Context, ids []uuid.UUID) ([]ClinicZone, error)
}

// Resolver resolves ranges for clinic ids through a ZoneLookup.
type Resolver struct {
	zones ZoneLookup
}

// NewResolver creates a Resolver.
func NewResolver(zones ZoneLookup) *Resolver {
	return &Resolver{zones: zones}
}

// ResolveRange returns one Range per known clinic. An empty id set returns an
// empty result without touching the store.
func (r *Resolver) ResolveRange(ctx context.Context, clinicIDs []uuid.UUID, from, to Date) ([]Range, error) {
	if len(clinicIDs) == 0 {
		return []Range{}, nil
	}
	zones, err := r.zones.ClinicZones(ctx, clinicIDs)
	if err != nil {
		return nil, err
	}
	return Resolve(zones, from, to), nil
}

// Where renders ranges as an OR of (clinic = id AND ts BETWEEN start AND end)
// clauses for sb. ranges must be non-empty; callers short-circuit otherwise.
func Where(sb *sqlbuilder.SelectBuilder, clinicColumn, timeColumn string, ranges []Range) string {
	clauses := make([]string, 0, len(ranges))
	for _, r := range ranges {
		clauses = append(clauses, sb.And(
			sb.Equal(clinicColumn, r.ClinicID),
			sb.Between(timeColumn, r.Start, r.End),
		))
	}
	return sb.Or(clauses...)
}
