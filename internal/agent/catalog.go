package agent

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

//go:embed default_steps.yaml
var defaultStepsYAML []byte

// Persona describes who a step speaks as.
type Persona struct {
	Role      string `yaml:"role"`
	Goal      string `yaml:"goal"`
	Backstory string `yaml:"backstory"`
}

// Step is one advisory instruction sent to the language model.
type Step struct {
	ID             string `yaml:"id"`
	Agent          string `yaml:"agent"`
	Template       string `yaml:"template"`
	ExpectedOutput string `yaml:"expected_output"`

	// Produces names the fact this step's output is recorded under, if any.
	Produces string `yaml:"produces,omitempty"`
	// Planner marks the step whose output feeds the calendar.
	Planner bool `yaml:"planner,omitempty"`
	// Research is an optional query template run through Tool before the prompt.
	Research string `yaml:"research,omitempty"`
	Tool     string `yaml:"tool,omitempty"`
}

type catalogFile struct {
	Agents map[string]Persona `yaml:"agents"`
	Steps  []Step             `yaml:"steps"`
}

// Catalog is the static, ordered advisory configuration shared read-only by
// every run. Construct it once at startup.
type Catalog struct {
	agents    map[string]Persona
	steps     []Step
	templates map[string]*template.Template
	research  map[string]*template.Template
}

// DefaultCatalog returns the built-in six-step catalog.
func DefaultCatalog() *Catalog {
	c, err := ParseCatalog(defaultStepsYAML)
	if err != nil {
		panic(fmt.Sprintf("agent: invalid built-in steps: %v", err))
	}
	return c
}

// LoadCatalog reads a steps file. An empty path yields the default catalog.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read steps file: %w", err)
	}
	c, err := ParseCatalog(data)
	if err != nil {
		return nil, fmt.Errorf("steps file %s: %w", path, err)
	}
	return c, nil
}

// ParseCatalog decodes and validates a YAML catalog. Templates are parsed here
// so syntax errors surface at startup rather than mid-run.
func ParseCatalog(data []byte) (*Catalog, error) {
	var f catalogFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to decode steps: %w", err)
	}
	if len(f.Steps) == 0 {
		return nil, fmt.Errorf("no steps defined")
	}

	c := &Catalog{
		agents:    f.Agents,
		templates: make(map[string]*template.Template, len(f.Steps)),
		research:  make(map[string]*template.Template),
	}

	seen := make(map[string]bool)
	produced := make(map[string]bool)
	formVars := RunContext{}.Vars()
	planners := 0
	for i, s := range f.Steps {
		s.ID = strings.TrimSpace(s.ID)
		if s.ID == "" {
			return nil, fmt.Errorf("step %d has no id", i+1)
		}
		if seen[s.ID] {
			return nil, fmt.Errorf("duplicate step id %s", s.ID)
		}
		seen[s.ID] = true

		if _, ok := f.Agents[s.Agent]; !ok {
			return nil, fmt.Errorf("step %s references unknown agent %q", s.ID, s.Agent)
		}
		if s.Planner {
			planners++
		}
		if s.Produces != "" {
			if _, ok := formVars[s.Produces]; ok {
				return nil, fmt.Errorf("step %s: fact %q comes from the form and cannot be produced", s.ID, s.Produces)
			}
			if produced[s.Produces] {
				return nil, fmt.Errorf("step %s: fact %q is produced twice", s.ID, s.Produces)
			}
			produced[s.Produces] = true
		}

		tmpl, err := parseTemplate(s.ID, s.Template)
		if err != nil {
			return nil, &TemplateError{StepID: s.ID, Err: err}
		}
		c.templates[s.ID] = tmpl

		if s.Research != "" {
			if s.Tool == "" {
				s.Tool = "search"
			}
			rt, err := parseTemplate(s.ID+"/research", s.Research)
			if err != nil {
				return nil, &TemplateError{StepID: s.ID, Err: err}
			}
			c.research[s.ID] = rt
		}

		c.steps = append(c.steps, s)
	}
	if planners > 1 {
		return nil, fmt.Errorf("at most one planner step is allowed, found %d", planners)
	}

	return c, nil
}

func parseTemplate(name, text string) (*template.Template, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("empty template")
	}
	return template.New(name).Option("missingkey=error").Parse(text)
}

// Steps returns the steps in execution order.
func (c *Catalog) Steps() []Step {
	return append([]Step(nil), c.steps...)
}

// Persona returns the persona a step speaks as.
func (c *Catalog) Persona(step Step) Persona {
	return c.agents[step.Agent]
}

// PlannerStep returns the calendar planner step, if the catalog has one.
func (c *Catalog) PlannerStep() (Step, bool) {
	for _, s := range c.steps {
		if s.Planner {
			return s, true
		}
	}
	return Step{}, false
}

// Render fills the step's template from facts.
func (c *Catalog) Render(step Step, facts map[string]string) (string, error) {
	return execute(step.ID, c.templates[step.ID], facts)
}

// RenderResearch fills the step's research query, if it has one.
func (c *Catalog) RenderResearch(step Step, facts map[string]string) (string, bool, error) {
	tmpl, ok := c.research[step.ID]
	if !ok {
		return "", false, nil
	}
	q, err := execute(step.ID, tmpl, facts)
	return q, true, err
}

func execute(stepID string, tmpl *template.Template, data map[string]string) (string, error) {
	if tmpl == nil {
		return "", &TemplateError{StepID: stepID, Err: fmt.Errorf("no template")}
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", &TemplateError{StepID: stepID, Err: err}
	}
	return buf.String(), nil
}

// BuildPrompt wraps a rendered task in its persona and expected output.
func (c *Catalog) BuildPrompt(step Step, task, notes string) string {
	p := c.Persona(step)

	var sb strings.Builder
	fmt.Fprintf(&sb, "You are the %s. Your goal: %s.\n", p.Role, strings.TrimSuffix(p.Goal, "."))
	if p.Backstory != "" {
		sb.WriteString(p.Backstory)
		sb.WriteString("\n")
	}
	sb.WriteString("\nTask: ")
	sb.WriteString(strings.TrimSpace(task))
	sb.WriteString("\n")
	if notes != "" {
		sb.WriteString("\nReference notes:\n")
		sb.WriteString(strings.TrimSpace(notes))
		sb.WriteString("\n")
	}
	if step.ExpectedOutput != "" {
		sb.WriteString("\nExpected output: ")
		sb.WriteString(strings.TrimSpace(step.ExpectedOutput))
		sb.WriteString("\n")
	}
	return sb.String()
}
