package timerange

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"
)

const fullDay = 23*time.Hour + 59*time.Minute + 59*time.Second + 999*time.Millisecond

type countingZones struct {
	calls int
	zones []ClinicZone
}

func (c *countingZones) ClinicZones(context.Context, []uuid.UUID) ([]ClinicZone, error) {
	c.calls++
	return c.zones, nil
}

func TestResolveSingleDaySpansFullLocalDay(t *testing.T) {
	day := Date{Year: 2024, Month: time.May, Day: 14}
	zones := []string{"", "UTC", "America/New_York", "Asia/Kolkata", "Australia/Sydney", "Pacific/Chatham", "bogus/zone"}

	clinics := make([]ClinicZone, 0, len(zones))
	for _, z := range zones {
		clinics = append(clinics, ClinicZone{ClinicID: uuid.New(), Timezone: z})
	}

	ranges := Resolve(clinics, day, day)
	if len(ranges) != len(zones) {
		t.Fatalf("expected %d ranges, got %d", len(zones), len(ranges))
	}
	for i, r := range ranges {
		if got := r.End.Sub(r.Start); got != fullDay {
			t.Fatalf("zone %q: expected span %v, got %v", zones[i], fullDay, got)
		}
		if r.ClinicID != clinics[i].ClinicID {
			t.Fatalf("zone %q: clinic id not preserved", zones[i])
		}
	}
}

func TestResolveUsesLocalMidnight(t *testing.T) {
	day := Date{Year: 2024, Month: time.January, Day: 10}
	ranges := Resolve([]ClinicZone{
		{ClinicID: uuid.New(), Timezone: "America/New_York"},
		{ClinicID: uuid.New(), Timezone: "Asia/Tokyo"},
		{ClinicID: uuid.New()},
	}, day, day)

	wantStarts := []time.Time{
		time.Date(2024, 1, 10, 5, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 9, 15, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
	}
	for i, want := range wantStarts {
		if !ranges[i].Start.Equal(want) {
			t.Fatalf("range %d: expected start %v, got %v", i, want, ranges[i].Start.UTC())
		}
	}
}

func TestResolveMultiDayRange(t *testing.T) {
	from := Date{Year: 2024, Month: time.February, Day: 28}
	to := Date{Year: 2024, Month: time.March, Day: 1}
	r := Resolve([]ClinicZone{{ClinicID: uuid.New(), Timezone: "UTC"}}, from, to)[0]

	if want := time.Date(2024, 3, 1, 23, 59, 59, 999_000_000, time.UTC); !r.End.Equal(want) {
		t.Fatalf("expected end %v, got %v", want, r.End)
	}
	if got := r.End.Sub(r.Start); got != 2*24*time.Hour+fullDay {
		t.Fatalf("unexpected span %v", got)
	}
}

func TestResolveRangeEmptySetSkipsLookup(t *testing.T) {
	zones := &countingZones{}
	resolver := NewResolver(zones)
	day := Date{Year: 2024, Month: time.May, Day: 1}

	ranges, err := resolver.ResolveRange(context.Background(), nil, day, day)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ranges) != 0 {
		t.Fatalf("expected empty result, got %d", len(ranges))
	}
	if zones.calls != 0 {
		t.Fatalf("expected no zone lookup, got %d", zones.calls)
	}
}

func TestResolveRangeUnknownClinicsYieldEmpty(t *testing.T) {
	resolver := NewResolver(&countingZones{})
	day := Date{Year: 2024, Month: time.May, Day: 1}

	ranges, err := resolver.ResolveRange(context.Background(), []uuid.UUID{uuid.New()}, day, day)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ranges) != 0 {
		t.Fatalf("expected empty result, got %d", len(ranges))
	}
}

func TestWhereBuildsPerClinicClauses(t *testing.T) {
	day := Date{Year: 2024, Month: time.May, Day: 1}
	ranges := Resolve([]ClinicZone{
		{ClinicID: uuid.New(), Timezone: "America/Chicago"},
		{ClinicID: uuid.New(), Timezone: "Europe/Berlin"},
	}, day, day)

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id").From("messages")
	sb.Where(Where(sb, "clinic_id", "date_added", ranges))
	query, args := sb.Build()

	if strings.Count(query, "BETWEEN") != 2 || !strings.Contains(query, " OR ") {
		t.Fatalf("expected two OR-ed BETWEEN clauses, got %s", query)
	}
	if len(args) != 6 {
		t.Fatalf("expected 6 args, got %d", len(args))
	}
	if !strings.Contains(query, "$6") {
		t.Fatalf("expected postgres placeholders, got %s", query)
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-06-15")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.String() != "2024-06-15" || d.AddDays(-15).String() != "2024-05-31" {
		t.Fatalf("unexpected date arithmetic: %s", d.AddDays(-15))
	}
	if _, err := ParseDate("15/06/2024"); err == nil {
		t.Fatalf("expected parse error")
	}
}
