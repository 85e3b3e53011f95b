package main

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/abutispinach/agroplan/internal/calendar"
)

func TestTimeline(t *testing.T) {
	entries := []calendar.Entry{
		{Date: "2024-04-01", Task: "Plant"},
		{Date: "2024-04-11", Task: "Harvest"},
		{Date: "2024-04-06", Task: "Weed"},
		{Date: "Week 3", Task: "Fertilize"},
		{Date: "garbage", Task: calendar.FallbackTask, Fallback: true},
	}

	want := []string{
		"2024-04-01 │●          │ Plant",
		"2024-04-11 │          ●│ Harvest",
		"2024-04-06 │     ●     │ Weed",
	}
	if diff := cmp.Diff(want, timeline(entries, 11)); diff != "" {
		t.Errorf("timeline mismatch (-want +got):\n%s", diff)
	}
}

func TestTimeline_SingleDayAndEmpty(t *testing.T) {
	got := timeline([]calendar.Entry{{Date: "2024-04-01", Task: "Plant"}}, 4)
	want := []string{"2024-04-01 │●   │ Plant"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("timeline mismatch (-want +got):\n%s", diff)
	}

	if got := timeline([]calendar.Entry{{Date: "soon", Task: "Plant"}}, 10); got != nil {
		t.Errorf("expected no rows, got %q", got)
	}
}
