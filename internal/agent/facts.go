package agent

import (
	"fmt"
	"maps"
	"slices"
)

// Facts is the append-only record a run's templates are rendered from. It is
// seeded from the RunContext and grows as steps contribute named outputs.
type Facts struct {
	vals  map[string]string
	order []string
}

func NewFacts(seed map[string]string) *Facts {
	f := &Facts{vals: make(map[string]string, len(seed))}
	for _, name := range slices.Sorted(maps.Keys(seed)) {
		f.vals[name] = seed[name]
		f.order = append(f.order, name)
	}
	return f
}

// Add defines a new fact. Existing facts cannot be overwritten.
func (f *Facts) Add(name, value string) error {
	if _, ok := f.vals[name]; ok {
		return fmt.Errorf("%w: %s", ErrFactExists, name)
	}
	f.vals[name] = value
	f.order = append(f.order, name)
	return nil
}

func (f *Facts) Get(name string) (string, bool) {
	v, ok := f.vals[name]
	return v, ok
}

// Names lists facts in the order they were defined.
func (f *Facts) Names() []string {
	return append([]string(nil), f.order...)
}

// Map returns a copy for template execution.
func (f *Facts) Map() map[string]string {
	return maps.Clone(f.vals)
}
