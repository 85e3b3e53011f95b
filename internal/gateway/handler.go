package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/abutispinach/agroplan/internal/agent"
	"github.com/abutispinach/agroplan/internal/log"
)

// Handler turns chat messages into runs. Each message is handled
// independently; concurrent runs share nothing but the RunService.
type Handler struct {
	Runs RunService
	Now  func() time.Time
}

func NewHandler(runs RunService) *Handler {
	return &Handler{Runs: runs}
}

// Handle processes one incoming message. limit is the gateway's maximum
// message length.
func (h *Handler) Handle(ctx context.Context, m Messenger, chatID, text string, limit int) {
	now := time.Now
	if h.Now != nil {
		now = h.Now
	}

	cmd, ok, err := ParseCommand(text, now())
	if !ok {
		return
	}
	if err != nil {
		h.reply(m, chatID, "❌ "+agent.Describe(err)+"\n\n"+helpText)
		return
	}
	if cmd.Name == CommandHelp {
		h.reply(m, chatID, helpText)
		return
	}

	f := cmd.Form
	h.reply(m, chatID, fmt.Sprintf("🌱 Planning %s in %s from %s. This takes a minute.",
		f.Crop, f.Location, f.StartDate.Format(agent.DateLayout)))

	sink := newChatSink(m, chatID, f.Crop, now(), limit)
	req := agent.Request{Form: f, Channel: m.Name(), ChatID: chatID}
	if _, err := h.Runs.Run(ctx, req, sink); err != nil {
		log.Warn("run failed", "gateway", m.Name(), "chat", chatID, "error", err)
		h.reply(m, chatID, "❌ "+agent.Describe(err))
		return
	}
	h.reply(m, chatID, "✅ Done. Send /plan again for another crop.")
}

func (h *Handler) reply(m Messenger, chatID, text string) {
	if err := m.Send(chatID, text); err != nil {
		log.Warn("failed to reply", "gateway", m.Name(), "chat", chatID, "error", err)
	}
}
