package agent

import (
	"errors"
	"fmt"
)

// ErrFactExists is returned when a step tries to redefine a context fact.
var ErrFactExists = errors.New("fact already defined")

// ValidationError reports bad or missing form input. The run never starts.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// TemplateError reports a step template that cannot be rendered with the
// run's facts, typically a placeholder with no value.
type TemplateError struct {
	StepID string
	Err    error
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("step %s: template: %v", e.StepID, e.Err)
}

func (e *TemplateError) Unwrap() error {
	return e.Err
}

// StepExecutionError reports a failed language model call. The remaining
// steps of the run are not executed.
type StepExecutionError struct {
	StepID string
	Err    error
}

func (e *StepExecutionError) Error() string {
	return fmt.Sprintf("step %s failed: %v", e.StepID, e.Err)
}

func (e *StepExecutionError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsStepExecution reports whether err is a StepExecutionError.
func IsStepExecution(err error) bool {
	var se *StepExecutionError
	return errors.As(err, &se)
}

// IsTemplate reports whether err is a TemplateError.
func IsTemplate(err error) bool {
	var te *TemplateError
	return errors.As(err, &te)
}
