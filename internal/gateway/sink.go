package gateway

import (
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/abutispinach/agroplan/internal/agent"
	"github.com/abutispinach/agroplan/internal/calendar"
	"github.com/abutispinach/agroplan/internal/log"
	"github.com/abutispinach/agroplan/internal/speech"
	"github.com/abutispinach/agroplan/internal/weather"
)

var strict = bluemonday.StrictPolicy()

// chatSink delivers one run's output to a chat as it is produced.
type chatSink struct {
	m      Messenger
	chatID string
	crop   string
	day    time.Time
	limit  int
}

func newChatSink(m Messenger, chatID, crop string, day time.Time, limit int) *chatSink {
	return &chatSink{m: m, chatID: chatID, crop: crop, day: day, limit: limit}
}

func (s *chatSink) send(text string) {
	for _, chunk := range splitMessage(text, s.limit) {
		if err := s.m.Send(s.chatID, chunk); err != nil {
			log.Warn("failed to send message", "gateway", s.m.Name(), "chat", s.chatID, "error", err)
			return
		}
	}
}

func (s *chatSink) Warn(err error) {
	var ne *speech.NarrationError
	switch {
	case weather.IsUnavailable(err):
		s.send("⚠️ Weather information is not available right now. The advice continues without it.")
	case errors.As(err, &ne):
		s.send(fmt.Sprintf("🔇 Voice note for %s is unavailable; the text above is complete.", ne.Key))
	default:
		s.send("⚠️ " + err.Error())
	}
}

func (s *chatSink) Weather(snap weather.Snapshot) {
	s.send(fmt.Sprintf("%s Current weather\n%s", snap.Icon(), snap.Summary()))
}

func (s *chatSink) StepStarted(step agent.Step) {}

func (s *chatSink) StepCompleted(r agent.StepResult) {
	s.send(fmt.Sprintf("👩‍🌾 %s\n\n%s", r.Role, plain(r.Output)))
}

func (s *chatSink) Clip(c speech.Clip) error {
	return s.m.SendFile(s.chatID, File{Name: c.Key + ".mp3", Kind: KindAudio, Data: c.Data})
}

func (s *chatSink) Calendar(entries []calendar.Entry, export []byte) {
	var sb strings.Builder
	sb.WriteString("📅 Farming calendar\n")
	for _, e := range entries {
		if e.Fallback {
			fmt.Fprintf(&sb, "\n%s: %s", e.Date, e.Task)
			continue
		}
		fmt.Fprintf(&sb, "\n%s: %s - %s (tip: %s)", e.Date, e.Task, e.Details, e.Tip)
	}
	s.send(plain(sb.String()))

	if len(export) == 0 {
		return
	}
	f := File{Name: calendar.FileName(s.crop, s.day), Kind: KindDocument, Data: export}
	if err := s.m.SendFile(s.chatID, f); err != nil {
		log.Warn("failed to send calendar", "gateway", s.m.Name(), "chat", s.chatID, "error", err)
	}
}

// plain strips markup from model output so chats show it verbatim.
func plain(text string) string {
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(text)))
}

// splitMessage breaks text into chunks of at most limit runes, preferring
// line boundaries.
func splitMessage(text string, limit int) []string {
	runes := []rune(text)
	if limit <= 0 || len(runes) <= limit {
		return []string{text}
	}

	var chunks []string
	for len(runes) > limit {
		cut := limit
		for i := limit; i > limit/2; i-- {
			if runes[i-1] == '\n' {
				cut = i
				break
			}
		}
		chunks = append(chunks, strings.TrimRight(string(runes[:cut]), "\n"))
		runes = runes[cut:]
	}
	if rest := strings.TrimRight(string(runes), "\n"); rest != "" {
		chunks = append(chunks, rest)
	}
	return chunks
}
