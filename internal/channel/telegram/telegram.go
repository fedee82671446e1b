package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/dclink/dockslot/internal/bus"
	"github.com/dclink/dockslot/internal/channel"
	"github.com/dclink/dockslot/internal/config"
)

var htmlTagRe = regexp.MustCompile(`</?(b|i|u|s|code|pre|a)[^>]*>`)

// Channel implements Telegram bot
type Channel struct {
	channel.BaseChannel
	cfg *config.TelegramConfig
	bot *tgbotapi.BotAPI
}

// New creates a Telegram channel
func New(cfg *config.TelegramConfig, msgBus *bus.MessageBus) *Channel {
	blockList := make(map[string]bool)
	for _, id := range cfg.BlockFrom {
		blockList[id] = true
	}
	return &Channel{
		BaseChannel: channel.BaseChannel{
			Bus:       msgBus,
			BlockList: blockList,
		},
		cfg: cfg,
	}
}

func (c *Channel) Name() string { return "telegram" }

func (c *Channel) Start(ctx context.Context) error {
	bot, err := tgbotapi.NewBotAPI(c.cfg.Token)
	if err != nil {
		return fmt.Errorf("telegram init failed: %w", err)
	}
	c.bot = bot

	slog.Info("telegram bot connected", "username", bot.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			switch {
			case update.CallbackQuery != nil:
				c.handleCallback(update.CallbackQuery)
			case update.Message != nil:
				c.handleMessage(update.Message)
			}
		}
	}
}

func (c *Channel) handleMessage(msg *tgbotapi.Message) {
	senderID := fmt.Sprintf("%d", msg.From.ID)

	if c.IsBlocked(senderID + "|" + msg.From.UserName) {
		slog.Debug("blocked sender ignored", "id", senderID)
		return
	}

	content := msg.Text
	if content == "" {
		content = msg.Caption
	}
	if content == "" {
		return
	}

	c.PublishInbound(&bus.InboundMessage{
		Channel:   "telegram",
		SenderID:  senderID,
		ChatID:    fmt.Sprintf("%d", msg.Chat.ID),
		Content:   content,
		Timestamp: time.Now(),
		RequestID: bus.NewRequestID(),
		Metadata: map[string]any{
			"message_id": msg.MessageID,
			"username":   msg.From.UserName,
			"first_name": msg.From.FirstName,
		},
	})
}

func (c *Channel) handleCallback(cb *tgbotapi.CallbackQuery) {
	senderID := fmt.Sprintf("%d", cb.From.ID)

	if c.IsBlocked(senderID + "|" + cb.From.UserName) {
		slog.Debug("blocked sender callback ignored", "id", senderID)
		return
	}
	if cb.Message == nil {
		return
	}

	// Ack right away so the client spinner stops even if handling is slow.
	if _, err := c.bot.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		slog.Warn("callback ack failed", "error", err)
	}

	c.PublishInbound(&bus.InboundMessage{
		Channel:      "telegram",
		SenderID:     senderID,
		ChatID:       fmt.Sprintf("%d", cb.Message.Chat.ID),
		Timestamp:    time.Now(),
		RequestID:    bus.NewRequestID(),
		CallbackID:   cb.ID,
		CallbackData: cb.Data,
		Metadata: map[string]any{
			"message_id": cb.Message.MessageID,
			"username":   cb.From.UserName,
			"first_name": cb.From.FirstName,
		},
	})
}

func (c *Channel) Send(ctx context.Context, msg *bus.OutboundMessage) error {
	if c.bot == nil {
		return fmt.Errorf("bot not initialized")
	}

	chatID, err := parseInt64(msg.ChatID)
	if err != nil {
		return fmt.Errorf("invalid chat id %q: %w", msg.ChatID, err)
	}

	markup := buildKeyboard(msg.Buttons)

	if msg.EditMessageID != "" {
		messageID, err := strconv.Atoi(strings.TrimSpace(msg.EditMessageID))
		if err != nil {
			return fmt.Errorf("invalid edit message id %q: %w", msg.EditMessageID, err)
		}
		edit := tgbotapi.NewEditMessageText(chatID, messageID, msg.Content)
		edit.ParseMode = "HTML"
		if markup != nil {
			edit.ReplyMarkup = markup
		}
		if _, err := c.bot.Send(edit); err != nil {
			edit.ParseMode = ""
			edit.Text = stripHTML(msg.Content)
			_, err = c.bot.Send(edit)
			return err
		}
		return nil
	}

	tgMsg := tgbotapi.NewMessage(chatID, msg.Content)
	tgMsg.ParseMode = "HTML"
	if markup != nil {
		tgMsg.ReplyMarkup = *markup
	}

	_, err = c.bot.Send(tgMsg)
	if err != nil {
		tgMsg.ParseMode = ""
		tgMsg.Text = stripHTML(msg.Content)
		_, err = c.bot.Send(tgMsg)
	}
	return err
}

func (c *Channel) Stop(ctx context.Context) error {
	if c.bot != nil {
		c.bot.StopReceivingUpdates()
	}
	return nil
}

func buildKeyboard(rows [][]bus.Button) *tgbotapi.InlineKeyboardMarkup {
	if len(rows) == 0 {
		return nil
	}
	keyboard := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data))
		}
		keyboard = append(keyboard, buttons)
	}
	if len(keyboard) == 0 {
		return nil
	}
	markup := tgbotapi.NewInlineKeyboardMarkup(keyboard...)
	return &markup
}

func parseInt64(s string) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(s), 10, 64)
}

func stripHTML(text string) string {
	return htmlTagRe.ReplaceAllString(text, "")
}
