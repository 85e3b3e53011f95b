package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/abutispinach/agroplan/internal/agent"
	"github.com/abutispinach/agroplan/internal/calendar"
)

// timeline lays dated calendar entries on a day scale, one row per entry, so
// the season reads like a planting chart. Fallback entries and dates that do
// not parse are left out. It returns nil when nothing can be placed.
func timeline(entries []calendar.Entry, width int) []string {
	type point struct {
		day  time.Time
		date string
		task string
	}

	var points []point
	for _, e := range entries {
		if e.Fallback {
			continue
		}
		d, err := time.Parse(agent.DateLayout, e.Date)
		if err != nil {
			continue
		}
		points = append(points, point{day: d, date: e.Date, task: e.Task})
	}
	if len(points) == 0 {
		return nil
	}
	if width < 2 {
		width = 2
	}

	first, last := points[0].day, points[0].day
	for _, p := range points[1:] {
		if p.day.Before(first) {
			first = p.day
		}
		if p.day.After(last) {
			last = p.day
		}
	}
	span := int(last.Sub(first).Hours() / 24)

	rows := make([]string, 0, len(points))
	for _, p := range points {
		pos := 0
		if span > 0 {
			pos = int(p.day.Sub(first).Hours()/24) * (width - 1) / span
		}
		bar := strings.Repeat(" ", pos) + "●" + strings.Repeat(" ", width-1-pos)
		rows = append(rows, fmt.Sprintf("%s │%s│ %s", p.date, bar, p.task))
	}
	return rows
}
