package tz

import (
	"testing"
	"time"
)

func TestLoadFallsBackToUTC(t *testing.T) {
	for _, name := range []string{"", "   ", "Mars/Olympus_Mons"} {
		if got := Load(name); got != time.UTC {
			t.Fatalf("Load(%q) = %v, want UTC", name, got)
		}
	}
	if got := Load("America/New_York"); got.String() != "America/New_York" {
		t.Fatalf("unexpected location %v", got)
	}
}

func TestLocalDayCrossesMidnight(t *testing.T) {
	loc := Load("America/Los_Angeles")
	// 2024-03-01 05:30 UTC is still Feb 29 in Los Angeles.
	instant := time.Date(2024, 3, 1, 5, 30, 0, 0, time.UTC)

	date, midnight := LocalDay(instant, loc)
	if date != "2024-02-29" {
		t.Fatalf("expected 2024-02-29, got %s", date)
	}
	want := time.Date(2024, 2, 29, 8, 0, 0, 0, time.UTC)
	if !midnight.Equal(want) {
		t.Fatalf("expected midnight %v, got %v", want, midnight.UTC())
	}
}
