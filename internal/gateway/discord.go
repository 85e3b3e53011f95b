package gateway

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/abutispinach/agroplan/internal/log"
)

// DiscordLimit is the maximum message length Discord accepts.
const DiscordLimit = 2000

type DiscordGateway struct {
	Session *discordgo.Session
	Handler *Handler

	mu      sync.Mutex
	ctx     context.Context
	closing bool
	wg      sync.WaitGroup
}

func NewDiscordGateway(token string, handler *Handler) (*DiscordGateway, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}
	s.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentMessageContent

	d := &DiscordGateway{
		Session: s,
		Handler: handler,
		ctx:     context.Background(),
	}
	s.AddHandler(d.onMessage)
	return d, nil
}

func (d *DiscordGateway) Name() string { return "discord" }

func (d *DiscordGateway) Start(ctx context.Context) error {
	d.mu.Lock()
	d.ctx = ctx
	d.mu.Unlock()

	if err := d.Session.Open(); err != nil {
		return fmt.Errorf("failed to open discord session: %w", err)
	}
	log.Info("connected to discord", "account", d.Session.State.User.Username)

	<-ctx.Done()
	d.mu.Lock()
	d.closing = true
	d.mu.Unlock()
	d.wg.Wait()
	return d.Session.Close()
}

// track runs fn in its own goroutine unless the gateway is shutting down.
// Start waits for tracked goroutines before it closes the session.
func (d *DiscordGateway) track(fn func(ctx context.Context)) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closing || d.ctx.Err() != nil {
		return false
	}

	ctx := d.ctx
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		fn(ctx)
	}()
	return true
}

func (d *DiscordGateway) onMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}
	if s.State.User != nil && m.Author.ID == s.State.User.ID {
		return
	}

	log.Debug("discord message", "user", m.Author.Username, "text", m.Content)

	ok := d.track(func(ctx context.Context) {
		d.Handler.Handle(ctx, d, m.ChannelID, m.Content, DiscordLimit)
	})
	if !ok {
		log.Debug("discord message dropped during shutdown", "channel", m.ChannelID)
	}
}

func (d *DiscordGateway) Send(chatID string, text string) error {
	for _, chunk := range splitMessage(text, DiscordLimit) {
		if _, err := d.Session.ChannelMessageSend(chatID, chunk); err != nil {
			return err
		}
	}
	return nil
}

func (d *DiscordGateway) SendFile(chatID string, f File) error {
	_, err := d.Session.ChannelFileSend(chatID, f.Name, bytes.NewReader(f.Data))
	return err
}

func (d *DiscordGateway) Stop() error {
	return d.Session.Close()
}
