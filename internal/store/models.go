package store

import "time"

// RunSummary is one stored run as listed by the history command.
type RunSummary struct {
	RunID      string    `json:"run_id"`
	Channel    string    `json:"channel"`
	ChatID     string    `json:"chat_id"`
	Crop       string    `json:"crop"`
	Location   string    `json:"location"`
	StartDate  string    `json:"start_date"`
	Status     string    `json:"status"` // completed, failed
	Error      string    `json:"error,omitempty"`
	Steps      int       `json:"steps"`
	Entries    int       `json:"entries"`
	Fallbacks  int       `json:"fallbacks"`
	Weather    string    `json:"weather,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// StepRecord is one stored step output.
type StepRecord struct {
	Position  int    `json:"position"`
	StepID    string `json:"step_id"`
	Role      string `json:"role"`
	Output    string `json:"output"`
	ElapsedMS int64  `json:"elapsed_ms"`
}
