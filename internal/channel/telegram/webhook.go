package telegram

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/labstack/echo/v4"
)

// WebhookHandler mounts the Bot API callback on the HTTP server. Only active
// in webhook mode; in polling mode it registers nothing.
type WebhookHandler struct {
	channel *Channel
	logger  *slog.Logger
}

func NewWebhookHandler(log *slog.Logger, channel *Channel) *WebhookHandler {
	if log == nil {
		log = slog.Default()
	}
	return &WebhookHandler{
		channel: channel,
		logger:  log.With(slog.String("handler", "telegram-webhook")),
	}
}

// Register implements server.Handler.
func (h *WebhookHandler) Register(e *echo.Echo) {
	if !strings.EqualFold(h.channel.cfg.Mode, "webhook") {
		return
	}
	e.POST("/telegram/webhook", h.handle)
}

func (h *WebhookHandler) handle(c echo.Context) error {
	var update tgbotapi.Update
	if err := c.Bind(&update); err != nil {
		h.logger.Warn("malformed webhook payload", slog.Any("error", err))
		return c.NoContent(http.StatusBadRequest)
	}
	// Telegram retries on non-2xx; processing is decoupled so slow store
	// calls never trigger duplicate deliveries.
	go h.channel.HandleUpdate(context.WithoutCancel(c.Request().Context()), update)
	return c.NoContent(http.StatusOK)
}
