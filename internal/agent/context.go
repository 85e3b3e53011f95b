package agent

import (
	"strings"
	"time"
)

// DateLayout is how dates are written into prompts and parsed from input.
const DateLayout = "2006-01-02"

// Form is the raw farmer input for one run.
type Form struct {
	Location  string
	Crop      string
	StartDate time.Time
}

// RunContext is the validated, immutable input of a single run.
type RunContext struct {
	Crop        string
	Location    string
	StartDate   time.Time
	CurrentDate time.Time
}

// BuildContext validates the form against now. It performs no I/O, so callers
// can rely on it running before any network call.
func BuildContext(form Form, now time.Time) (RunContext, error) {
	location := strings.TrimSpace(form.Location)
	if location == "" {
		return RunContext{}, &ValidationError{Field: "location", Message: "location is required"}
	}
	crop := strings.TrimSpace(form.Crop)
	if crop == "" {
		return RunContext{}, &ValidationError{Field: "crop", Message: "crop is required"}
	}
	if form.StartDate.IsZero() {
		return RunContext{}, &ValidationError{Field: "start_date", Message: "start date is required"}
	}

	today := day(now, now.Location())
	start := day(form.StartDate, now.Location())
	if start.Before(today) {
		return RunContext{}, &ValidationError{
			Field:   "start_date",
			Message: "start date " + start.Format(DateLayout) + " is before today (" + today.Format(DateLayout) + ")",
		}
	}

	return RunContext{
		Crop:        crop,
		Location:    location,
		StartDate:   start,
		CurrentDate: today,
	}, nil
}

// ParseDate parses a start date typed by a farmer. It accepts DateLayout and
// the words "today" and "tomorrow".
func ParseDate(s string, now time.Time) (time.Time, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "":
		return time.Time{}, &ValidationError{Field: "start_date", Message: "start date is required"}
	case "today":
		return day(now, now.Location()), nil
	case "tomorrow":
		return day(now, now.Location()).AddDate(0, 0, 1), nil
	}

	t, err := time.ParseInLocation(DateLayout, s, now.Location())
	if err != nil {
		return time.Time{}, &ValidationError{Field: "start_date", Message: "use the format YYYY-MM-DD, got " + s}
	}
	return t, nil
}

// Vars returns the placeholder values available to every step template.
func (rc RunContext) Vars() map[string]string {
	return map[string]string{
		"crop":         rc.Crop,
		"plant":        rc.Crop,
		"location":     rc.Location,
		"start_date":   rc.StartDate.Format(DateLayout),
		"current_date": rc.CurrentDate.Format(DateLayout),
	}
}

func day(t time.Time, loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}
