package gateway

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/abutispinach/agroplan/internal/log"
)

// TelegramLimit is the maximum message length Telegram accepts.
const TelegramLimit = 4096

type TelegramGateway struct {
	Bot     *tgbotapi.BotAPI
	Handler *Handler

	wg sync.WaitGroup
}

func NewTelegramGateway(token string, handler *Handler) (*TelegramGateway, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	log.Info("authorized on telegram", "account", bot.Self.UserName)

	return &TelegramGateway{
		Bot:     bot,
		Handler: handler,
	}, nil
}

func (tg *TelegramGateway) Name() string { return "telegram" }

// Start handles every update in its own goroutine and returns once ctx is
// done and in-flight runs have finished.
func (tg *TelegramGateway) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := tg.Bot.GetUpdatesChan(u)
	defer tg.wg.Wait()

	for {
		select {
		case <-ctx.Done():
			tg.Bot.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				continue
			}

			if from := update.Message.From; from != nil {
				log.Debug("telegram message", "user", from.UserName, "text", update.Message.Text)
			}

			chatID := strconv.FormatInt(update.Message.Chat.ID, 10)
			text := update.Message.Text
			tg.wg.Add(1)
			go func() {
				defer tg.wg.Done()
				tg.Handler.Handle(ctx, tg, chatID, text, TelegramLimit)
			}()
		}
	}
}

func parseChatID(chatID string) (int64, error) {
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid chat ID: %s", chatID)
	}
	return id, nil
}

func (tg *TelegramGateway) Send(chatID string, text string) error {
	id, err := parseChatID(chatID)
	if err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(id, text)
	_, err = tg.Bot.Send(msg)
	return err
}

func (tg *TelegramGateway) SendFile(chatID string, f File) error {
	id, err := parseChatID(chatID)
	if err != nil {
		return err
	}

	data := tgbotapi.FileBytes{Name: f.Name, Bytes: f.Data}
	var c tgbotapi.Chattable
	switch f.Kind {
	case KindAudio:
		c = tgbotapi.NewAudio(id, data)
	default:
		c = tgbotapi.NewDocument(id, data)
	}
	_, err = tg.Bot.Send(c)
	return err
}

func (tg *TelegramGateway) Stop() error {
	tg.Bot.StopReceivingUpdates()
	return nil
}
