// Package telegram connects the appreciation engine to the Telegram Bot API,
// in long-polling or webhook mode.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"

	"github.com/vk-2002/telegram-bot/internal/appreciation"
	"github.com/vk-2002/telegram-bot/internal/config"
	"github.com/vk-2002/telegram-bot/internal/identity"
)

// Channel owns the bot connection and feeds updates into the engine.
type Channel struct {
	bot     *tgbotapi.BotAPI
	engine  *appreciation.Engine
	cfg     config.TelegramConfig
	limiter *rate.Limiter
	logger  *slog.Logger
}

// New authenticates against the Bot API. The reply limiter smooths outbound
// sends under Telegram's flood control.
func New(log *slog.Logger, cfg config.TelegramConfig, engine *appreciation.Engine) (*Channel, error) {
	if log == nil {
		log = slog.Default()
	}
	if strings.TrimSpace(cfg.BotToken) == "" {
		return nil, fmt.Errorf("telegram bot token is required")
	}
	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}
	perSecond := rate.Limit(float64(cfg.RepliesPerMin) / 60.0)
	return &Channel{
		bot:     bot,
		engine:  engine,
		cfg:     cfg,
		limiter: rate.NewLimiter(perSecond, cfg.RepliesPerMin),
		logger:  log.With(slog.String("channel", "telegram")),
	}, nil
}

// Run starts the configured transport and blocks until ctx is cancelled.
func (c *Channel) Run(ctx context.Context) error {
	if strings.EqualFold(c.cfg.Mode, "webhook") {
		return c.runWebhook(ctx)
	}
	return c.runPolling(ctx)
}

func (c *Channel) runPolling(ctx context.Context) error {
	// Polling supersedes any webhook registered by a previous deployment.
	if _, err := c.bot.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		c.logger.Warn("delete webhook failed", slog.Any("error", err))
	}
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = c.cfg.PollTimeout
	updates := c.bot.GetUpdatesChan(updateConfig)
	c.logger.Info("polling started", slog.String("bot", c.bot.Self.UserName))

	for {
		select {
		case <-ctx.Done():
			c.bot.StopReceivingUpdates()
			c.logger.Info("polling stopped")
			return nil
		case update, ok := <-updates:
			if !ok {
				c.logger.Info("updates channel closed")
				return nil
			}
			go c.HandleUpdate(context.WithoutCancel(ctx), update)
		}
	}
}

func (c *Channel) runWebhook(ctx context.Context) error {
	wh, err := tgbotapi.NewWebhook(c.cfg.WebhookURL)
	if err != nil {
		return fmt.Errorf("build webhook config: %w", err)
	}
	if _, err := c.bot.Request(wh); err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}
	c.logger.Info("webhook registered", slog.String("url", c.cfg.WebhookURL))
	<-ctx.Done()
	return nil
}

// HandleUpdate runs the pipeline for one update and sends the ordered
// replies. Candidates inside one message are processed sequentially; updates
// are independent of each other.
func (c *Channel) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg, ok := toMessage(update)
	if !ok {
		return
	}
	c.logger.Debug("inbound message",
		slog.Int64("chat_id", msg.ChatID),
		slog.String("chat_type", msg.ChatType),
		slog.Int64("sender_id", msg.Sender.TelegramID))

	outcomes, err := c.engine.Process(ctx, msg)
	if err != nil {
		// Store failure before any candidate: one failure reply for the
		// whole message.
		c.reply(ctx, msg.ChatID, "Facing difficulties. Please try again.")
		return
	}
	for _, out := range outcomes {
		c.reply(ctx, msg.ChatID, appreciation.Reply(out))
	}
}

// Send posts a standalone message, used by the digest scheduler.
func (c *Channel) Send(ctx context.Context, chatID int64, text string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	_, err := c.bot.Send(tgbotapi.NewMessage(chatID, text))
	return err
}

func (c *Channel) reply(ctx context.Context, chatID int64, text string) {
	if err := c.Send(ctx, chatID, text); err != nil {
		c.logger.Error("send reply failed",
			slog.Int64("chat_id", chatID),
			slog.Any("error", err))
	}
}

// toMessage flattens a Bot API update into the engine's message shape.
// Updates without a text message or a resolvable sender are dropped.
func toMessage(update tgbotapi.Update) (appreciation.Message, bool) {
	m := update.Message
	if m == nil || m.From == nil || m.Chat == nil {
		return appreciation.Message{}, false
	}
	text := strings.TrimSpace(m.Text)
	if text == "" {
		return appreciation.Message{}, false
	}
	return appreciation.Message{
		Sender: identity.Sender{
			TelegramID: m.From.ID,
			Username:   strings.TrimSpace(m.From.UserName),
			FirstName:  strings.TrimSpace(m.From.FirstName),
			LastName:   strings.TrimSpace(m.From.LastName),
			IsBot:      m.From.IsBot,
		},
		ChatID:   m.Chat.ID,
		ChatType: strings.TrimSpace(m.Chat.Type),
		Text:     text,
	}, true
}
