package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/abutispinach/agroplan/internal/agent"
	"github.com/abutispinach/agroplan/internal/calendar"
	"github.com/abutispinach/agroplan/internal/weather"
)

func newTestStore(t *testing.T) *HistoryStore {
	t.Helper()
	h, err := NewHistoryStore(filepath.Join(t.TempDir(), "data", "agroplan.db"))
	if err != nil {
		t.Fatalf("NewHistoryStore failed: %v", err)
	}
	t.Cleanup(func() { h.Close() })
	return h
}

func testReport(runID, chatID string, started time.Time) *agent.Report {
	return &agent.Report{
		RunID:   runID,
		Channel: "telegram",
		ChatID:  chatID,
		Context: agent.RunContext{
			Crop:      "maize",
			Location:  "Nairobi",
			StartDate: time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
		},
		Weather: weather.Snapshot{Temperature: 24.5, Humidity: 60, Description: "scattered clouds", WindSpeed: 3.2, Available: true},
		Results: []agent.StepResult{
			{StepID: "gather_info", Role: "Farmer Agent", Output: "noted", Elapsed: 1200 * time.Millisecond},
			{StepID: "farming_calendar", Role: "Amazing Planner Agent", Output: "2024-04-01: Plant - rows - water", Planner: true},
		},
		Calendar: []calendar.Entry{
			{Date: "2024-04-01", Task: "Plant", Details: "rows", Tip: "water"},
			{Date: "2024-05-10", Task: "Weed", Details: "by hand", Tip: "early morning"},
			{Date: "garbled no", Task: calendar.FallbackTask, Details: calendar.FallbackDetails, Tip: calendar.FallbackTip, Fallback: true},
		},
		StartedAt:  started,
		FinishedAt: started.Add(time.Minute),
	}
}

func TestHistoryStore_RecordAndList(t *testing.T) {
	h := newTestStore(t)
	ctx := context.Background()
	t0 := time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)

	if err := h.RecordRun(ctx, testReport("run-a", "42", t0)); err != nil {
		t.Fatalf("RecordRun failed: %v", err)
	}
	failed := testReport("run-b", "", t0.Add(time.Hour))
	failed.Err = errors.New("step crop_suggestion failed: quota")
	if err := h.RecordRun(ctx, failed); err != nil {
		t.Fatalf("RecordRun failed: %v", err)
	}

	runs, err := h.ListRuns(ctx, 10)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].RunID != "run-b" || runs[0].Status != "failed" || runs[0].Error == "" {
		t.Errorf("unexpected newest run %+v", runs[0])
	}
	got := runs[1]
	if got.Steps != 2 || got.Entries != 3 || got.Fallbacks != 1 {
		t.Errorf("unexpected counts %+v", got)
	}
	if !got.StartedAt.Equal(t0) || got.StartDate != "2024-04-01" {
		t.Errorf("unexpected times %+v", got)
	}
	if got.Weather != "Temperature: 24.5°C, Humidity: 60%, Weather: scattered clouds, Wind Speed: 3.2 m/s" {
		t.Errorf("unexpected weather %q", got.Weather)
	}

	steps, err := h.RunSteps(ctx, "run-a")
	if err != nil {
		t.Fatalf("RunSteps failed: %v", err)
	}
	want := []StepRecord{
		{Position: 0, StepID: "gather_info", Role: "Farmer Agent", Output: "noted", ElapsedMS: 1200},
		{Position: 1, StepID: "farming_calendar", Role: "Amazing Planner Agent", Output: "2024-04-01: Plant - rows - water"},
	}
	if diff := cmp.Diff(want, steps); diff != "" {
		t.Errorf("steps mismatch (-want +got):\n%s", diff)
	}
}

func TestHistoryStore_Reminders(t *testing.T) {
	h := newTestStore(t)
	ctx := context.Background()
	t0 := time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)

	if err := h.RecordRun(ctx, testReport("run-a", "42", t0)); err != nil {
		t.Fatal(err)
	}
	// CLI runs have no chat and are never reminded
	if err := h.RecordRun(ctx, testReport("run-cli", "", t0)); err != nil {
		t.Fatal(err)
	}

	due, err := h.DueReminders(ctx, "2024-04-02")
	if err != nil {
		t.Fatalf("DueReminders failed: %v", err)
	}
	if len(due) != 1 {
		t.Fatalf("expected 1 due reminder, got %+v", due)
	}
	r := due[0]
	if r.Channel != "telegram" || r.ChatID != "42" || r.Task != "Plant" || r.Crop != "maize" {
		t.Errorf("unexpected reminder %+v", r)
	}

	if err := h.MarkReminded(ctx, r.ID); err != nil {
		t.Fatalf("MarkReminded failed: %v", err)
	}
	due, err = h.DueReminders(ctx, "2024-04-02")
	if err != nil {
		t.Fatal(err)
	}
	if len(due) != 0 {
		t.Errorf("reminder sent twice: %+v", due)
	}

	due, err = h.DueReminders(ctx, "2024-12-31")
	if err != nil {
		t.Fatal(err)
	}
	if len(due) != 1 || due[0].Task != "Weed" {
		t.Errorf("expected only the weeding reminder, got %+v", due)
	}
}

func TestHistoryStore_DuplicateRun(t *testing.T) {
	h := newTestStore(t)
	ctx := context.Background()
	r := testReport("run-a", "42", time.Now())
	if err := h.RecordRun(ctx, r); err != nil {
		t.Fatal(err)
	}
	if err := h.RecordRun(ctx, r); err == nil {
		t.Fatal("expected duplicate run id to fail")
	}
	steps, err := h.RunSteps(ctx, "run-a")
	if err != nil {
		t.Fatal(err)
	}
	if len(steps) != 2 {
		t.Errorf("failed insert must roll back, got %d steps", len(steps))
	}
}
