// Package governance screens free-text form fields before a run spends any
// network calls on them.
package governance

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/abutispinach/agroplan/pkg/config"
)

// Effect defines the result of a policy evaluation.
type Effect string

const (
	EffectAllow Effect = "allow"
	EffectDeny  Effect = "deny"
)

// Request is one form field to be evaluated.
type Request struct {
	Field string
	Value string
}

// Result contains the outcome of a policy evaluation.
type Result struct {
	Effect Effect
	Reason string
}

// PolicyEngine evaluates form fields against a set of rules.
type PolicyEngine interface {
	Evaluate(ctx context.Context, req Request) (Result, error)
}

// InputPolicyEngine rejects overlong values, control characters and values
// matching any denied pattern.
type InputPolicyEngine struct {
	MaxLength   int
	DeniedRegex []*regexp.Regexp
}

func NewInputPolicyEngine(maxLength int) *InputPolicyEngine {
	return &InputPolicyEngine{MaxLength: maxLength}
}

// NewPolicyFromConfig compiles the configured deny patterns.
func NewPolicyFromConfig(cfg config.PolicyConfig) (*InputPolicyEngine, error) {
	e := NewInputPolicyEngine(cfg.MaxFieldLength)
	for _, p := range cfg.DenyPatterns {
		if err := e.DenyPattern(p); err != nil {
			return nil, fmt.Errorf("invalid deny pattern %q: %w", p, err)
		}
	}
	return e, nil
}

// DenyPattern adds a case-insensitive pattern that rejects matching values.
func (e *InputPolicyEngine) DenyPattern(pattern string) error {
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return err
	}
	e.DeniedRegex = append(e.DeniedRegex, re)
	return nil
}

func (e *InputPolicyEngine) Evaluate(ctx context.Context, req Request) (Result, error) {
	if e.MaxLength > 0 && utf8.RuneCountInString(req.Value) > e.MaxLength {
		return Result{
			Effect: EffectDeny,
			Reason: fmt.Sprintf("must be at most %d characters", e.MaxLength),
		}, nil
	}

	if strings.IndexFunc(req.Value, unicode.IsControl) >= 0 {
		return Result{
			Effect: EffectDeny,
			Reason: "must not contain control characters",
		}, nil
	}

	for _, re := range e.DeniedRegex {
		if re.MatchString(req.Value) {
			return Result{
				Effect: EffectDeny,
				Reason: "contains restricted text",
			}, nil
		}
	}

	return Result{
		Effect: EffectAllow,
		Reason: "Approved by input policy",
	}, nil
}
