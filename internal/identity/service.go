package identity

import (
	"context"
	"log/slog"
	"strings"

	"github.com/vk-2002/telegram-bot/internal/db"
)

// Service handles participant registration: making sure the acting user has
// an identity row before the appreciation engine touches the ledger.
type Service struct {
	store  Store
	logger *slog.Logger
}

func NewService(log *slog.Logger, store Store) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		store:  store,
		logger: log.With(slog.String("service", "identity")),
	}
}

// Sender carries the profile fields a chat platform attaches to a message.
type Sender struct {
	TelegramID int64
	Username   string
	FirstName  string
	LastName   string
	IsBot      bool
}

// EnsureSender returns the sender's identity, creating it on first contact.
// When the sender's username previously entered the store as a placeholder
// (mentioned before they ever spoke), the placeholder row is claimed instead
// of inserting a duplicate, so the counters already accrued stay attached.
func (s *Service) EnsureSender(ctx context.Context, sender Sender) (Identity, error) {
	rec, err := s.store.FindByTelegramID(ctx, sender.TelegramID)
	if err == nil {
		return rec, nil
	}
	if !IsNotFound(err) {
		return Identity{}, err
	}

	username := strings.TrimSpace(sender.Username)
	fields := NewIdentity{
		TelegramID: &sender.TelegramID,
		Username:   username,
		FirstName:  sender.FirstName,
		LastName:   sender.LastName,
		IsBot:      sender.IsBot,
	}
	if username != "" {
		claimed, err := s.store.ClaimPlaceholder(ctx, username, fields)
		if err == nil {
			s.logger.Info("claimed placeholder identity",
				slog.Int64("identity_id", claimed.ID),
				slog.String("username", username))
			return claimed, nil
		}
		if !IsNotFound(err) {
			return Identity{}, err
		}
	}

	created, err := s.store.Create(ctx, fields)
	if err != nil {
		// Two first messages from the same sender can race; the loser's
		// insert trips the telegram_id unique index. The winner's row is
		// the sender's identity, so re-fetch it instead of failing.
		if db.IsUniqueViolation(err) {
			rec, findErr := s.store.FindByTelegramID(ctx, sender.TelegramID)
			if findErr != nil {
				return Identity{}, findErr
			}
			s.logger.Info("sender registered concurrently",
				slog.Int64("identity_id", rec.ID),
				slog.Int64("telegram_id", sender.TelegramID))
			return rec, nil
		}
		return Identity{}, err
	}
	s.logger.Info("registered sender",
		slog.Int64("identity_id", created.ID),
		slog.Int64("telegram_id", sender.TelegramID),
		slog.String("username", username))
	return created, nil
}
