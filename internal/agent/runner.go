package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/abutispinach/agroplan/internal/calendar"
	"github.com/abutispinach/agroplan/internal/governance"
	"github.com/abutispinach/agroplan/internal/log"
	"github.com/abutispinach/agroplan/internal/observability"
	"github.com/abutispinach/agroplan/internal/speech"
	"github.com/abutispinach/agroplan/internal/weather"
)

// WeatherKey is the narration key used for the weather summary clip.
const WeatherKey = "weather"

// Sink receives a run's output as it is produced.
type Sink interface {
	StepObserver
	Warn(err error)
	Weather(snapshot weather.Snapshot)
	Clip(clip speech.Clip) error
	Calendar(entries []calendar.Entry, export []byte)
}

// Recorder stores finished runs. Optional.
type Recorder interface {
	RecordRun(ctx context.Context, report *Report) error
}

// Request is one form submission and where it came from.
type Request struct {
	Form    Form
	Channel string // gateway name, empty for the CLI
	ChatID  string
}

// Report collects everything a run produced.
type Report struct {
	RunID      string
	Channel    string
	ChatID     string
	Context    RunContext
	Weather    weather.Snapshot
	Results    []StepResult
	Calendar   []calendar.Entry
	Warnings   []error
	Err        error
	StartedAt  time.Time
	FinishedAt time.Time
}

// PlannerOutput returns the planner step's text, if that step ran.
func (r *Report) PlannerOutput() string {
	for _, res := range r.Results {
		if res.Planner {
			return res.Output
		}
	}
	return ""
}

// Runner executes complete runs. It holds no per-run state and is safe for
// concurrent use when its collaborators are.
type Runner struct {
	Policy   governance.PolicyEngine
	Weather  weather.Provider
	Pipeline *Pipeline
	Narrator *speech.Narrator
	Recorder Recorder
	Events   *observability.Logger
	Now      func() time.Time
}

// Run validates the request, then performs weather lookup, the advisory
// pipeline, calendar extraction and narration in that order. Validation,
// template and step execution errors end the run; weather and narration
// failures are reported to the sink as warnings.
func (r *Runner) Run(ctx context.Context, req Request, sink Sink) (*Report, error) {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}

	rc, err := r.validate(ctx, req.Form, now())
	if err != nil {
		return nil, err
	}

	report := &Report{
		RunID:     uuid.NewString(),
		Channel:   req.Channel,
		ChatID:    req.ChatID,
		Context:   rc,
		StartedAt: now(),
	}
	end := observability.BeginRun(report.RunID)
	defer end()

	r.Events.LogRun(report.RunID, "started", map[string]any{
		"crop":       rc.Crop,
		"location":   rc.Location,
		"start_date": rc.StartDate.Format(DateLayout),
		"channel":    req.Channel,
	})
	log.Info("run started", "run", report.RunID, "crop", rc.Crop, "location", rc.Location)

	warn := func(err error) {
		report.Warnings = append(report.Warnings, err)
		log.Warn("run degraded", "run", report.RunID, "error", err)
		sink.Warn(err)
	}

	r.lookupWeather(ctx, report, sink, warn)

	observability.SetStatus(observability.StageAdvising, report.RunID)
	results, _, err := r.Pipeline.Run(ctx, report.RunID, rc, &narratingObserver{
		ctx:    ctx,
		runner: r,
		report: report,
		sink:   sink,
		warn:   warn,
	})
	report.Results = results

	r.extractCalendar(report, sink)

	report.Err = err
	report.FinishedAt = now()
	status := "completed"
	if err != nil {
		status = "failed"
	}
	r.Events.LogRun(report.RunID, status, map[string]any{
		"steps":    len(report.Results),
		"warnings": len(report.Warnings),
	})
	log.Info("run finished", "run", report.RunID, "status", status, "steps", len(report.Results))

	if r.Recorder != nil {
		if recErr := r.Recorder.RecordRun(ctx, report); recErr != nil {
			log.Warn("failed to record run", "run", report.RunID, "error", recErr)
		}
	}

	return report, err
}

func (r *Runner) validate(ctx context.Context, form Form, now time.Time) (RunContext, error) {
	rc, err := BuildContext(form, now)
	if err != nil {
		return RunContext{}, err
	}
	if r.Policy == nil {
		return rc, nil
	}

	for _, f := range []struct{ name, value string }{
		{"location", rc.Location},
		{"crop", rc.Crop},
	} {
		res, err := r.Policy.Evaluate(ctx, governance.Request{Field: f.name, Value: f.value})
		if err != nil {
			return RunContext{}, fmt.Errorf("policy check failed: %w", err)
		}
		if res.Effect == governance.EffectDeny {
			return RunContext{}, &ValidationError{Field: f.name, Message: res.Reason}
		}
	}
	return rc, nil
}

func (r *Runner) lookupWeather(ctx context.Context, report *Report, sink Sink, warn func(error)) {
	report.Weather = weather.Unavailable
	if r.Weather == nil {
		return
	}
	observability.SetStatus(observability.StageWeather, report.RunID)

	location := report.Context.Location
	snap, err := r.Weather.Lookup(ctx, location)
	if err == nil && !snap.Available {
		err = &weather.UnavailableError{Location: location, Err: weather.ErrLocationNotFound}
	}
	r.Events.LogWeather(report.RunID, location, snap.Available, snap.Summary())
	if err != nil {
		warn(err)
		return
	}

	report.Weather = snap
	sink.Weather(snap)
	r.narrate(ctx, report, WeatherKey, snap.SpeechText(), sink, warn)
}

func (r *Runner) narrate(ctx context.Context, report *Report, key, text string, sink Sink, warn func(error)) {
	if r.Narrator == nil {
		return
	}
	observability.SetStatus(observability.StageNarrating, report.RunID)
	defer observability.SetStatus(observability.StageAdvising, report.RunID)

	var size int
	err := r.Narrator.Narrate(ctx, key, text, func(c speech.Clip) error {
		size = len(c.Data)
		return sink.Clip(c)
	})
	r.Events.LogNarration(report.RunID, key, size, err)
	if err != nil {
		warn(err)
	}
}

func (r *Runner) extractCalendar(report *Report, sink Sink) {
	text := report.PlannerOutput()
	if text == "" {
		return
	}

	entries := calendar.Extract(text)
	report.Calendar = entries
	r.Events.LogCalendar(report.RunID, len(entries), calendar.Fallbacks(entries))
	if len(entries) == 0 {
		return
	}

	export, err := calendar.CSV(entries)
	if err != nil {
		log.Warn("failed to build calendar export", "run", report.RunID, "error", err)
		export = nil
	}
	sink.Calendar(entries, export)
}

// narratingObserver forwards step events to the sink and narrates each output
// before the pipeline moves on.
type narratingObserver struct {
	ctx    context.Context
	runner *Runner
	report *Report
	sink   Sink
	warn   func(error)
}

func (o *narratingObserver) StepStarted(step Step) {
	o.sink.StepStarted(step)
}

func (o *narratingObserver) StepCompleted(result StepResult) {
	o.sink.StepCompleted(result)
	o.runner.narrate(o.ctx, o.report, result.StepID, result.Output, o.sink, o.warn)
}

// Describe turns a run error into a message naming what to fix or retry.
func Describe(err error) string {
	var ve *ValidationError
	var te *TemplateError
	var se *StepExecutionError
	switch {
	case errors.As(err, &ve):
		return fmt.Sprintf("Please check the %s field: %s.", ve.Field, ve.Message)
	case errors.As(err, &te):
		return fmt.Sprintf("The %s step is misconfigured: %v.", te.StepID, te.Err)
	case errors.As(err, &se):
		return fmt.Sprintf("The %s step failed while contacting the language model: %v. You can submit the form again; the advice may differ.", se.StepID, se.Err)
	case err != nil:
		return err.Error()
	}
	return ""
}
