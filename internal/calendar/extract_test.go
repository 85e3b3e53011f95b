package calendar

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestParseLine_Match(t *testing.T) {
	got := ParseLine("2024-03-01: Plant seeds - Prepare soil and sow - Water daily")
	want := Entry{
		Date:    "2024-03-01",
		Task:    "Plant seeds",
		Details: "Prepare soil and sow",
		Tip:     "Water daily",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ParseLine() mismatch (-want +got):\n%s", diff)
	}
}

func TestParseLine_Fallback(t *testing.T) {
	tests := []struct {
		name string
		line string
		date string
	}{
		{"no colon", "garbled nonsense", "garbled no"},
		{"too few dashes", "2024-03-01: Plant seeds - Water daily", "2024-03-01"},
		{"no dashes", "Week 1: weed the rows", "Week 1: we"},
		{"short line", "hi", "hi"},
		{"multibyte", "🌱🌱🌱🌱🌱🌱🌱🌱🌱🌱🌱🌱", "🌱🌱🌱🌱🌱🌱🌱🌱🌱🌱"},
		{"trailing space after cut", "abcdefghi jkl", "abcdefghi"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseLine(tt.line)
			want := Entry{
				Date:     tt.date,
				Task:     FallbackTask,
				Details:  FallbackDetails,
				Tip:      FallbackTip,
				Fallback: true,
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("ParseLine(%q) mismatch (-want +got):\n%s", tt.line, diff)
			}
		})
	}
}

func TestParseLine_ExtraDashesStayInTip(t *testing.T) {
	got := ParseLine("Mar 3: Weed - Hand-pull - Keep it low-key")
	if got.Fallback {
		t.Fatal("unexpected fallback")
	}
	if got.Details != "Hand" || got.Tip != "pull - Keep it low-key" {
		t.Errorf("unexpected split: %+v", got)
	}
}

func TestExtract_OneEntryPerNonEmptyLine(t *testing.T) {
	text := "\n  2024-03-01: Plant - Sow - Water  \n\n garbled nonsense \n\t\n2024-03-15: Weed - Rows - Early morning\n"

	entries := Extract(text)
	if len(entries) != 3 {
		t.Fatalf("len(Extract()) = %d, want 3", len(entries))
	}
	if entries[0].Task != "Plant" || entries[1].Fallback != true || entries[2].Date != "2024-03-15" {
		t.Errorf("unexpected entries: %+v", entries)
	}
	if Fallbacks(entries) != 1 {
		t.Errorf("Fallbacks() = %d, want 1", Fallbacks(entries))
	}

	for i, e := range entries {
		for _, f := range []string{e.Date, e.Task, e.Details, e.Tip} {
			if f != strings.TrimSpace(f) {
				t.Errorf("entry %d field %q has surrounding whitespace", i, f)
			}
		}
	}
}

func TestExtract_Total(t *testing.T) {
	inputs := []string{
		"", "\n\n", ":", "-", ": - -", "::::", "a:b-c-d-e", strings.Repeat("x", 1000),
		"\x00\xff\xfe", "date:" + strings.Repeat("-", 50),
	}
	for _, in := range inputs {
		var want int
		for _, l := range strings.Split(in, "\n") {
			if strings.TrimSpace(l) != "" {
				want++
			}
		}
		if got := len(Extract(in)); got != want {
			t.Errorf("Extract(%q) returned %d entries, want %d", in, got, want)
		}
	}
}

func TestWriteCSV(t *testing.T) {
	entries := []Entry{
		{Date: "2024-03-01", Task: "Plant seeds", Details: "Prepare soil, sow", Tip: "Water daily"},
		ParseLine("garbled nonsense"),
	}

	var sb strings.Builder
	if err := WriteCSV(&sb, entries); err != nil {
		t.Fatalf("WriteCSV() error: %v", err)
	}

	want := "Date,Task,Details,Tips\n" +
		"2024-03-01,Plant seeds,\"Prepare soil, sow\",Water daily\n" +
		"garbled no,Check your plan,Review your farming plan,Contact support if you need help understanding this entry\n"
	if sb.String() != want {
		t.Errorf("WriteCSV() =\n%s\nwant\n%s", sb.String(), want)
	}
}

func TestCSV_EmptyHasHeader(t *testing.T) {
	data, err := CSV(nil)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "Date,Task,Details,Tips\n" {
		t.Errorf("CSV(nil) = %q", data)
	}
}

func TestFileName(t *testing.T) {
	day := time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)
	if got := FileName("sweet maize/corn", day); got != "sweet_maizecorn_calendar_2026-10-18.csv" {
		t.Errorf("FileName() = %q", got)
	}
	if got := FileName("///", day); got != "crop_calendar_2026-10-18.csv" {
		t.Errorf("FileName() = %q", got)
	}
}
