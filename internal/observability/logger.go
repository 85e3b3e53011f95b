package observability

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/abutispinach/agroplan/internal/log"
)

// EventType defines the category of the log event.
type EventType string

const (
	EventTypeRun       EventType = "run"
	EventTypeWeather   EventType = "weather"
	EventTypeStep      EventType = "step"
	EventTypeNarration EventType = "narration"
	EventTypeCalendar  EventType = "calendar"
	EventTypeHeartbeat EventType = "heartbeat"
	EventTypeLLM       EventType = "llm"
)

// Event represents a structured log entry.
type Event struct {
	Type      EventType `json:"type"`
	RunID     string    `json:"run_id,omitempty"`
	StepID    string    `json:"step_id,omitempty"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// Logger handles structured event logging.
type Logger struct {
	mu         sync.Mutex
	out        io.Writer
	llmLogPath string
	maxSize    int64
}

// NewLogger writes events to out. LLM exchanges are additionally appended to
// dir/llm.jsonl; an empty dir disables the file.
func NewLogger(out io.Writer, dir string) *Logger {
	if out == nil {
		out = io.Discard
	}
	l := &Logger{
		out:     out,
		maxSize: 10 * 1024 * 1024, // 10MB
	}
	if dir != "" {
		l.llmLogPath = filepath.Join(dir, "llm.jsonl")
	}
	return l
}

// Log emits a structured JSON event.
func (l *Logger) Log(evt Event) {
	if l == nil {
		return
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}
	data, err := json.Marshal(evt)
	if err != nil {
		log.Warn("failed to marshal event", "type", evt.Type, "error", err)
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	fmt.Fprintln(l.out, string(data))

	if evt.Type == EventTypeLLM && l.llmLogPath != "" {
		l.writeToFile(data)
	}
}

func (l *Logger) writeToFile(data []byte) {
	if err := os.MkdirAll(filepath.Dir(l.llmLogPath), 0755); err != nil {
		log.Warn("failed to create log directory", "error", err)
		return
	}

	info, err := os.Stat(l.llmLogPath)
	if err == nil && info.Size() > l.maxSize {
		l.rotateLogs()
	}

	f, err := os.OpenFile(l.llmLogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Warn("failed to open log file", "path", l.llmLogPath, "error", err)
		return
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		log.Warn("failed to write to log file", "path", l.llmLogPath, "error", err)
	}
}

func (l *Logger) rotateLogs() {
	// keep one .old file
	oldPath := l.llmLogPath + ".old"
	_ = os.Remove(oldPath)
	_ = os.Rename(l.llmLogPath, oldPath)
}

func (l *Logger) LogRun(runID, status string, data map[string]any) {
	if data == nil {
		data = map[string]any{}
	}
	data["status"] = status
	l.Log(Event{Type: EventTypeRun, RunID: runID, Data: data})
}

func (l *Logger) LogWeather(runID, location string, available bool, summary string) {
	l.Log(Event{
		Type:  EventTypeWeather,
		RunID: runID,
		Data: map[string]any{
			"location":  location,
			"available": available,
			"summary":   summary,
		},
	})
}

func (l *Logger) LogStep(runID, stepID, status string, elapsed time.Duration) {
	l.Log(Event{
		Type:   EventTypeStep,
		RunID:  runID,
		StepID: stepID,
		Data: map[string]any{
			"status":     status,
			"elapsed_ms": elapsed.Milliseconds(),
		},
	})
}

func (l *Logger) LogNarration(runID, key string, size int, err error) {
	data := map[string]any{"bytes": size}
	if err != nil {
		data["error"] = err.Error()
	}
	l.Log(Event{Type: EventTypeNarration, RunID: runID, StepID: key, Data: data})
}

func (l *Logger) LogCalendar(runID string, entries, fallbacks int) {
	l.Log(Event{
		Type:  EventTypeCalendar,
		RunID: runID,
		Data: map[string]int{
			"entries":   entries,
			"fallbacks": fallbacks,
		},
	})
}

func (l *Logger) LogHeartbeat() {
	l.Log(Event{
		Type: EventTypeHeartbeat,
		Data: map[string]string{"status": "alive"},
	})
}

func (l *Logger) LogLLM(runID, stepID, prompt, response string) {
	l.Log(Event{
		Type:   EventTypeLLM,
		RunID:  runID,
		StepID: stepID,
		Data: map[string]any{
			"prompt":   prompt,
			"response": response,
		},
	})
}
