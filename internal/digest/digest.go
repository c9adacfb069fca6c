// Package digest posts a scheduled appreciation leaderboard to a chat.
package digest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/robfig/cron/v3"

	"github.com/vk-2002/telegram-bot/internal/config"
	"github.com/vk-2002/telegram-bot/internal/identity"
)

// Sender posts a message to a chat; satisfied by the telegram channel.
type Sender interface {
	Send(ctx context.Context, chatID int64, text string) error
}

// Scheduler runs the digest on a cron schedule. A blank schedule disables it.
type Scheduler struct {
	cfg    config.DigestConfig
	store  identity.Store
	sender Sender
	cron   *cron.Cron
	logger *slog.Logger
}

func NewScheduler(log *slog.Logger, cfg config.DigestConfig, store identity.Store, sender Sender) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{
		cfg:    cfg,
		store:  store,
		sender: sender,
		cron:   cron.New(),
		logger: log.With(slog.String("component", "digest")),
	}
}

// Start registers the cron entry and begins scheduling.
func (s *Scheduler) Start() error {
	if strings.TrimSpace(s.cfg.Schedule) == "" {
		s.logger.Info("digest disabled")
		return nil
	}
	if s.cfg.ChatID == 0 {
		return fmt.Errorf("digest schedule set but chat_id missing")
	}
	_, err := s.cron.AddFunc(s.cfg.Schedule, func() {
		if err := s.Post(context.Background()); err != nil {
			s.logger.Error("digest failed", slog.Any("error", err))
		}
	})
	if err != nil {
		return fmt.Errorf("invalid digest schedule %q: %w", s.cfg.Schedule, err)
	}
	s.cron.Start()
	s.logger.Info("digest scheduled", slog.String("schedule", s.cfg.Schedule))
	return nil
}

// Stop halts scheduling; the returned context is done when running jobs end.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// Post sends one digest now.
func (s *Scheduler) Post(ctx context.Context) error {
	items, err := s.store.TopReceived(ctx, s.cfg.Limit)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	return s.sender.Send(ctx, s.cfg.ChatID, Render(items))
}

// Render formats the leaderboard message.
func Render(items []identity.Identity) string {
	var b strings.Builder
	b.WriteString("🏆 Appreciation leaderboard\n")
	for i, rec := range items {
		fmt.Fprintf(&b, "%d. %s — %d received, %d given\n",
			i+1, rec.Mention(), rec.ReceivedCount, rec.GivenCount)
	}
	return strings.TrimRight(b.String(), "\n")
}
