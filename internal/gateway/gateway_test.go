package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/go-cmp/cmp"

	"github.com/abutispinach/agroplan/internal/agent"
	"github.com/abutispinach/agroplan/internal/calendar"
	"github.com/abutispinach/agroplan/internal/speech"
	"github.com/abutispinach/agroplan/internal/weather"
)

var testNow = time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)

func TestParseCommand(t *testing.T) {
	cmd, ok, err := ParseCommand("/plan@agroplan_bot  Nairobi | maize | 2024-04-01 ", testNow)
	if err != nil || !ok {
		t.Fatalf("ParseCommand: ok=%v err=%v", ok, err)
	}
	if cmd.Name != CommandPlan || cmd.Form.Location != "Nairobi" || cmd.Form.Crop != "maize" {
		t.Errorf("unexpected command %+v", cmd)
	}
	if got := cmd.Form.StartDate.Format(agent.DateLayout); got != "2024-04-01" {
		t.Errorf("unexpected start date %s", got)
	}

	for _, text := range []string{"/plan\nNairobi | maize | tomorrow", "/plan\tNairobi | maize | tomorrow"} {
		cmd, ok, err := ParseCommand(text, testNow)
		if err != nil || !ok {
			t.Fatalf("ParseCommand(%q): ok=%v err=%v", text, ok, err)
		}
		if cmd.Form.Location != "Nairobi" || cmd.Form.StartDate.Format(agent.DateLayout) != "2024-03-16" {
			t.Errorf("ParseCommand(%q) = %+v", text, cmd)
		}
	}

	for _, text := range []string{"/help", "/start", "/HELP"} {
		cmd, ok, err := ParseCommand(text, testNow)
		if err != nil || !ok || cmd.Name != CommandHelp {
			t.Errorf("ParseCommand(%q) = %+v, %v, %v", text, cmd, ok, err)
		}
	}

	for _, text := range []string{"hello", "", "/weather Nairobi"} {
		if _, ok, _ := ParseCommand(text, testNow); ok {
			t.Errorf("ParseCommand(%q) should not be a command", text)
		}
	}
}

func TestParseCommand_Invalid(t *testing.T) {
	tests := []struct {
		text  string
		field string
	}{
		{"/plan Nairobi maize 2024-04-01", "command"},
		{"/plan", "command"},
		{"/plan | maize | 2024-04-01", "location"},
		{"/plan Nairobi |  | 2024-04-01", "crop"},
		{"/plan Nairobi | maize | April", "start_date"},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			_, ok, err := ParseCommand(tt.text, testNow)
			var ve *agent.ValidationError
			if !ok || !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got ok=%v err=%v", ok, err)
			}
			if ve.Field != tt.field {
				t.Errorf("expected field %s, got %s", tt.field, ve.Field)
			}
		})
	}
}

func TestSplitMessage(t *testing.T) {
	if got := splitMessage("short", 10); len(got) != 1 || got[0] != "short" {
		t.Errorf("unexpected split %q", got)
	}

	text := strings.Repeat("line of text\n", 20)
	chunks := splitMessage(text, 50)
	if len(chunks) < 2 {
		t.Fatalf("expected several chunks, got %d", len(chunks))
	}
	for _, c := range chunks {
		if utf8.RuneCountInString(c) > 50 {
			t.Errorf("chunk too long: %d", utf8.RuneCountInString(c))
		}
		if strings.HasPrefix(c, "\n") {
			t.Errorf("chunk starts with newline: %q", c)
		}
	}
	if strings.Join(chunks, "\n") != strings.TrimRight(text, "\n") {
		t.Error("chunks lost text")
	}

	noBreaks := strings.Repeat("ä", 25)
	chunks = splitMessage(noBreaks, 10)
	if diff := cmp.Diff([]string{strings.Repeat("ä", 10), strings.Repeat("ä", 10), strings.Repeat("ä", 5)}, chunks); diff != "" {
		t.Errorf("rune split mismatch (-want +got):\n%s", diff)
	}
}

type fakeMessenger struct {
	mu    sync.Mutex
	sent  []string
	files []File
}

func (f *fakeMessenger) Name() string                    { return "fake" }
func (f *fakeMessenger) Start(ctx context.Context) error { return nil }
func (f *fakeMessenger) Stop() error                     { return nil }

func (f *fakeMessenger) Send(chatID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, text)
	return nil
}

func (f *fakeMessenger) SendFile(chatID string, file File) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	file.Data = append([]byte(nil), file.Data...)
	f.files = append(f.files, file)
	return nil
}

func TestChatSink(t *testing.T) {
	m := &fakeMessenger{}
	s := newChatSink(m, "42", "maize", testNow, TelegramLimit)

	s.Weather(weather.Snapshot{Temperature: 24.5, Humidity: 60, Condition: "Clouds", Description: "scattered clouds", WindSpeed: 3.2, Available: true})
	s.StepCompleted(agent.StepResult{StepID: "farming_advice", Role: "Agronomist Local Expert", Output: "<b>Plant</b> early &amp; often"})
	if err := s.Clip(speech.Clip{Key: "farming_advice", Data: []byte("ID3")}); err != nil {
		t.Fatal(err)
	}
	s.Warn(&weather.UnavailableError{Location: "Nairobi", Err: weather.ErrLocationNotFound})
	s.Warn(&speech.NarrationError{Key: "weather", Err: errors.New("503")})
	s.Calendar([]calendar.Entry{
		{Date: "2024-04-01", Task: "Plant", Details: "rows", Tip: "water"},
		{Date: "garbled no", Task: calendar.FallbackTask, Fallback: true},
	}, []byte("Date,Task,Details,Tips\n"))

	if len(m.sent) != 5 {
		t.Fatalf("expected 5 messages, got %d: %q", len(m.sent), m.sent)
	}
	if !strings.Contains(m.sent[0], "☁️") || !strings.Contains(m.sent[0], "Humidity: 60%") {
		t.Errorf("unexpected weather message %q", m.sent[0])
	}
	if !strings.Contains(m.sent[1], "Plant early & often") {
		t.Errorf("markup not stripped: %q", m.sent[1])
	}
	if !strings.Contains(m.sent[2], "Weather information is not available") {
		t.Errorf("unexpected warning %q", m.sent[2])
	}
	if m.sent[3] != "🔇 Voice note for weather is unavailable; the text above is complete." {
		t.Errorf("unexpected narration notice %q", m.sent[3])
	}
	if !strings.Contains(m.sent[4], "2024-04-01: Plant - rows (tip: water)") {
		t.Errorf("unexpected calendar %q", m.sent[4])
	}

	want := []File{
		{Name: "farming_advice.mp3", Kind: KindAudio, Data: []byte("ID3")},
		{Name: "maize_calendar_2024-03-15.csv", Kind: KindDocument, Data: []byte("Date,Task,Details,Tips\n")},
	}
	if diff := cmp.Diff(want, m.files); diff != "" {
		t.Errorf("files mismatch (-want +got):\n%s", diff)
	}
}

func TestChatSink_NarrationFailureIsReported(t *testing.T) {
	m := &fakeMessenger{}
	s := newChatSink(m, "42", "maize", testNow, DiscordLimit)

	s.Warn(fmt.Errorf("run degraded: %w", &speech.NarrationError{Key: "farming_advice", Err: errors.New("503")}))

	want := []string{"🔇 Voice note for farming_advice is unavailable; the text above is complete."}
	if diff := cmp.Diff(want, m.sent); diff != "" {
		t.Errorf("messages mismatch (-want +got):\n%s", diff)
	}
	if len(m.files) != 0 {
		t.Errorf("no audio expected, got %d files", len(m.files))
	}
}

func TestDiscordGateway_Track(t *testing.T) {
	d := &DiscordGateway{ctx: context.Background()}

	ran := make(chan struct{})
	if !d.track(func(ctx context.Context) { close(ran) }) {
		t.Fatal("track refused work on a running gateway")
	}
	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("tracked work did not run")
	}
	d.wg.Wait()

	d.mu.Lock()
	d.closing = true
	d.mu.Unlock()
	if d.track(func(ctx context.Context) { t.Error("work ran after shutdown began") }) {
		t.Error("track accepted work while closing")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d = &DiscordGateway{ctx: ctx}
	if d.track(func(ctx context.Context) { t.Error("work ran after cancel") }) {
		t.Error("track accepted work after the context was canceled")
	}
	d.wg.Wait()
}

type fakeRuns struct {
	mu   sync.Mutex
	reqs []agent.Request
	err  error
}

func (f *fakeRuns) Run(ctx context.Context, req agent.Request, sink agent.Sink) (*agent.Report, error) {
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	sink.StepCompleted(agent.StepResult{StepID: "farming_advice", Role: "Agronomist Local Expert", Output: "advice"})
	return &agent.Report{}, nil
}

func TestHandler_Plan(t *testing.T) {
	runs := &fakeRuns{}
	h := NewHandler(runs)
	h.Now = func() time.Time { return testNow }
	m := &fakeMessenger{}

	h.Handle(context.Background(), m, "42", "/plan Nairobi | maize | tomorrow", TelegramLimit)

	if len(runs.reqs) != 1 {
		t.Fatalf("expected one run, got %d", len(runs.reqs))
	}
	req := runs.reqs[0]
	if req.Channel != "fake" || req.ChatID != "42" || req.Form.StartDate.Format(agent.DateLayout) != "2024-03-16" {
		t.Errorf("unexpected request %+v", req)
	}
	if len(m.sent) != 3 || !strings.HasPrefix(m.sent[0], "🌱 Planning maize in Nairobi") || !strings.HasPrefix(m.sent[2], "✅") {
		t.Errorf("unexpected replies %q", m.sent)
	}
}

func TestHandler_Errors(t *testing.T) {
	t.Run("invalid command never runs", func(t *testing.T) {
		runs := &fakeRuns{}
		h := NewHandler(runs)
		h.Now = func() time.Time { return testNow }
		m := &fakeMessenger{}

		h.Handle(context.Background(), m, "42", "/plan Nairobi | maize", TelegramLimit)
		if len(runs.reqs) != 0 {
			t.Error("run started for an invalid command")
		}
		if len(m.sent) != 1 || !strings.HasPrefix(m.sent[0], "❌ Please check the command field") {
			t.Errorf("unexpected replies %q", m.sent)
		}
	})

	t.Run("run failure is described", func(t *testing.T) {
		runs := &fakeRuns{err: &agent.StepExecutionError{StepID: "season_check", Err: errors.New("timeout")}}
		h := NewHandler(runs)
		m := &fakeMessenger{}

		h.Handle(context.Background(), m, "42", "/plan Nairobi | maize | today", TelegramLimit)
		last := m.sent[len(m.sent)-1]
		if !strings.Contains(last, "season_check") {
			t.Errorf("failure message should name the step: %q", last)
		}
	})

	t.Run("chatter is ignored", func(t *testing.T) {
		m := &fakeMessenger{}
		NewHandler(&fakeRuns{}).Handle(context.Background(), m, "42", "hello there", TelegramLimit)
		if len(m.sent) != 0 {
			t.Errorf("unexpected replies %q", m.sent)
		}
	})
}
