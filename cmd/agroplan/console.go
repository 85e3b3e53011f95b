package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/abutispinach/agroplan/internal/agent"
	"github.com/abutispinach/agroplan/internal/calendar"
	"github.com/abutispinach/agroplan/internal/speech"
	"github.com/abutispinach/agroplan/internal/weather"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("34"))
	roleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214")).MarginTop(1)
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	faintStyle   = lipgloss.NewStyle().Faint(true)
	weatherStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	dateStyle    = lipgloss.NewStyle().Bold(true).Width(12)
)

const timelineWidth = 40

// consoleSink prints a run to the terminal and optionally plays its audio.
type consoleSink struct {
	ctx      context.Context
	out      io.Writer
	plain    bool
	player   []string
	export   string
	renderer *glamour.TermRenderer
}

func newConsoleSink(ctx context.Context, out io.Writer, plain bool, player []string, export string) *consoleSink {
	s := &consoleSink{ctx: ctx, out: out, plain: plain, player: player, export: export}
	if !plain {
		r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
		if err == nil {
			s.renderer = r
		}
	}
	return s
}

func (s *consoleSink) style(st lipgloss.Style, text string) string {
	if s.plain {
		return text
	}
	return st.Render(text)
}

func (s *consoleSink) Warn(err error) {
	fmt.Fprintln(s.out, s.style(warnStyle, "⚠ "+err.Error()))
}

func (s *consoleSink) Weather(snap weather.Snapshot) {
	fmt.Fprintln(s.out, s.style(weatherStyle, snap.Icon()+"  "+snap.Summary()))
}

func (s *consoleSink) StepStarted(step agent.Step) {
	fmt.Fprintln(s.out, s.style(faintStyle, "… "+step.ID))
}

func (s *consoleSink) StepCompleted(r agent.StepResult) {
	fmt.Fprintln(s.out, s.style(roleStyle, r.Role))
	if s.renderer != nil {
		if out, err := s.renderer.Render(r.Output); err == nil {
			fmt.Fprint(s.out, out)
			return
		}
	}
	fmt.Fprintln(s.out, r.Output)
}

// Clip pipes the audio to the player and waits for it to finish.
func (s *consoleSink) Clip(c speech.Clip) error {
	if len(s.player) == 0 {
		return nil
	}
	cmd := exec.CommandContext(s.ctx, s.player[0], s.player[1:]...)
	cmd.Stdin = bytes.NewReader(c.Data)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%s: %w: %s", s.player[0], err, msg)
		}
		return fmt.Errorf("%s: %w", s.player[0], err)
	}
	return nil
}

func (s *consoleSink) Calendar(entries []calendar.Entry, export []byte) {
	fmt.Fprintln(s.out)
	fmt.Fprintln(s.out, s.style(titleStyle, "📅 Farming calendar"))
	for _, e := range entries {
		line := s.style(dateStyle, e.Date) + " " + e.Task
		if !e.Fallback {
			line += s.style(faintStyle, fmt.Sprintf(" (%s; tip: %s)", e.Details, e.Tip))
		}
		fmt.Fprintln(s.out, line)
	}
	if rows := timeline(entries, timelineWidth); len(rows) > 1 {
		fmt.Fprintln(s.out)
		for _, row := range rows {
			fmt.Fprintln(s.out, s.style(faintStyle, row))
		}
	}

	if s.export == "" || len(export) == 0 {
		return
	}
	if err := os.WriteFile(s.export, export, 0644); err != nil {
		s.Warn(fmt.Errorf("failed to write calendar: %w", err))
		return
	}
	fmt.Fprintln(s.out, s.style(faintStyle, "calendar written to "+s.export))
}
