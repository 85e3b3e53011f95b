package observability

import (
	"sync"
	"time"
)

type Stage string

const (
	StageIdle      Stage = "IDLE"
	StageWeather   Stage = "WEATHER"
	StageAdvising  Stage = "ADVISING"
	StageNarrating Stage = "NARRATING"
)

type SystemStatus struct {
	mu            sync.RWMutex
	CurrentStage  Stage
	ActiveRun     string
	ActiveRuns    int
	LastHeartbeat time.Time
}

var globalStatus = &SystemStatus{
	CurrentStage:  StageIdle,
	LastHeartbeat: time.Now(),
}

// SetStatus updates the stage of the most recently active run.
func SetStatus(stage Stage, run string) {
	globalStatus.mu.Lock()
	defer globalStatus.mu.Unlock()
	globalStatus.CurrentStage = stage
	globalStatus.ActiveRun = run
}

// BeginRun marks a run as in flight. The returned func ends it.
func BeginRun(run string) func() {
	globalStatus.mu.Lock()
	globalStatus.ActiveRuns++
	globalStatus.ActiveRun = run
	globalStatus.mu.Unlock()

	return func() {
		globalStatus.mu.Lock()
		defer globalStatus.mu.Unlock()
		globalStatus.ActiveRuns--
		if globalStatus.ActiveRuns <= 0 {
			globalStatus.ActiveRuns = 0
			globalStatus.CurrentStage = StageIdle
			globalStatus.ActiveRun = ""
		}
	}
}

// GetStatus retrieves a copy of the global system status.
func GetStatus() (Stage, string, int, time.Time) {
	globalStatus.mu.RLock()
	defer globalStatus.mu.RUnlock()
	return globalStatus.CurrentStage, globalStatus.ActiveRun, globalStatus.ActiveRuns, globalStatus.LastHeartbeat
}

// Heartbeat updates the last heartbeat time.
func Heartbeat() {
	globalStatus.mu.Lock()
	defer globalStatus.mu.Unlock()
	globalStatus.LastHeartbeat = time.Now()
}
