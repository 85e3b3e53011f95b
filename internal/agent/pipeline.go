package agent

import (
	"context"
	"time"

	"github.com/abutispinach/agroplan/internal/llm"
	"github.com/abutispinach/agroplan/internal/log"
	"github.com/abutispinach/agroplan/internal/observability"
	"github.com/abutispinach/agroplan/internal/tools"
)

// StepResult is the outcome of one executed step.
type StepResult struct {
	StepID  string
	Role    string
	Prompt  string
	Output  string
	Planner bool
	Elapsed time.Duration
}

// StepObserver sees each step as it starts and completes. StepCompleted runs
// before the next step starts.
type StepObserver interface {
	StepStarted(step Step)
	StepCompleted(result StepResult)
}

// Pipeline executes a catalog's steps in order against a language model.
type Pipeline struct {
	Catalog     *Catalog
	Model       llm.Completer
	Temperature float64
	Tools       *tools.Registry
	Events      *observability.Logger
}

func NewPipeline(catalog *Catalog, model llm.Completer, temperature float64) *Pipeline {
	return &Pipeline{
		Catalog:     catalog,
		Model:       model,
		Temperature: temperature,
	}
}

// Run executes every step exactly once, in order. The first failure stops
// the run; results completed before it are returned with the error. Steps are
// never retried: a repeated model call may answer differently.
func (p *Pipeline) Run(ctx context.Context, runID string, rc RunContext, obs StepObserver) ([]StepResult, *Facts, error) {
	facts := NewFacts(rc.Vars())
	var results []StepResult

	for _, step := range p.Catalog.Steps() {
		if err := ctx.Err(); err != nil {
			return results, facts, &StepExecutionError{StepID: step.ID, Err: err}
		}

		vars := facts.Map()
		task, err := p.Catalog.Render(step, vars)
		if err != nil {
			p.Events.LogStep(runID, step.ID, "template_error", 0)
			return results, facts, err
		}

		notes, err := p.research(ctx, runID, step, vars)
		if err != nil {
			return results, facts, err
		}

		prompt := p.Catalog.BuildPrompt(step, task, notes)
		if obs != nil {
			obs.StepStarted(step)
		}
		log.Debug("executing step", "run", runID, "step", step.ID)

		start := time.Now()
		output, err := p.Model.Complete(ctx, prompt, p.Temperature)
		elapsed := time.Since(start)
		if err != nil {
			p.Events.LogStep(runID, step.ID, "failed", elapsed)
			return results, facts, &StepExecutionError{StepID: step.ID, Err: err}
		}
		p.Events.LogLLM(runID, step.ID, prompt, output)
		p.Events.LogStep(runID, step.ID, "completed", elapsed)

		if step.Produces != "" {
			if err := facts.Add(step.Produces, output); err != nil {
				return results, facts, &StepExecutionError{StepID: step.ID, Err: err}
			}
		}

		result := StepResult{
			StepID:  step.ID,
			Role:    p.Catalog.Persona(step).Role,
			Prompt:  prompt,
			Output:  output,
			Planner: step.Planner,
			Elapsed: elapsed,
		}
		results = append(results, result)
		if obs != nil {
			obs.StepCompleted(result)
		}
	}

	return results, facts, nil
}

// research runs the step's optional lookup. Tool failures only lose the notes.
func (p *Pipeline) research(ctx context.Context, runID string, step Step, vars map[string]string) (string, error) {
	query, ok, err := p.Catalog.RenderResearch(step, vars)
	if err != nil || !ok {
		return "", err
	}

	tool := p.Tools.Get(step.Tool)
	if tool == nil {
		log.Warn("research tool not available", "run", runID, "step", step.ID, "tool", step.Tool)
		return "", nil
	}
	notes, err := tool.Execute(ctx, query)
	if err != nil {
		log.Warn("research failed", "run", runID, "step", step.ID, "tool", step.Tool, "error", err)
		return "", nil
	}
	return notes, nil
}
