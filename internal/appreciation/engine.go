package appreciation

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/vk-2002/telegram-bot/internal/db"
	"github.com/vk-2002/telegram-bot/internal/identity"
	"github.com/vk-2002/telegram-bot/internal/mention"
)

// Message is one inbound chat message as the engine sees it.
type Message struct {
	Sender   identity.Sender
	ChatID   int64
	ChatType string
	Text     string
}

// InGroup reports whether the message came from a multi-party context. The
// engine ignores everything else.
func (m Message) InGroup() bool {
	return m.ChatType == "group" || m.ChatType == "supergroup"
}

// Engine runs the fixed pipeline per inbound message:
// extract -> resolve -> ledger, yielding one Outcome per candidate in text
// order. A failure on one candidate never aborts the rest; only a store
// failure before any candidate is processed aborts the whole message.
type Engine struct {
	extractor  *mention.Extractor
	resolver   *Resolver
	ledger     *Ledger
	identities *identity.Service
	logger     *slog.Logger
}

func NewEngine(log *slog.Logger, extractor *mention.Extractor, resolver *Resolver, ledger *Ledger, identities *identity.Service) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		extractor:  extractor,
		resolver:   resolver,
		ledger:     ledger,
		identities: identities,
		logger:     log.With(slog.String("component", "engine")),
	}
}

// Process handles one message and returns the ordered per-candidate
// outcomes. A nil outcome slice with a nil error means the message produced
// no ledger effect and warrants no reply. A non-nil error means processing
// aborted before the first candidate; the caller should report it once.
func (e *Engine) Process(ctx context.Context, msg Message) ([]Outcome, error) {
	if !msg.InGroup() {
		return nil, nil
	}
	candidates := e.extractor.Extract(msg.Text)
	if len(candidates) == 0 {
		return nil, nil
	}

	log := e.logger.With(
		slog.String("processing_id", uuid.NewString()),
		slog.Int64("chat_id", msg.ChatID),
		slog.Int64("sender_id", msg.Sender.TelegramID),
	)
	log.Info("processing message", slog.Int("candidates", len(candidates)))

	sender, err := e.identities.EnsureSender(ctx, msg.Sender)
	if err != nil {
		log.Error("ensure sender failed",
			slog.Bool("store_unreachable", db.IsConnectionError(err)),
			slog.Any("error", err))
		return nil, err
	}

	outcomes := make([]Outcome, 0, len(candidates))
	for _, cand := range candidates {
		outcomes = append(outcomes, e.processCandidate(ctx, log, sender, cand))
	}
	return outcomes, nil
}

func (e *Engine) processCandidate(ctx context.Context, log *slog.Logger, sender identity.Identity, cand mention.Candidate) Outcome {
	out := Outcome{Candidate: cand, Sender: sender}

	res, err := e.resolver.resolve(ctx, sender, cand)
	if err != nil {
		if identity.IsNotFound(err) {
			out.Status = StatusNotFound
			return out
		}
		log.Error("resolve failed",
			slog.String("candidate", cand.Value),
			slog.Any("error", err))
		out.Status = StatusError
		out.Err = err
		return out
	}
	out.Target = res.target
	out.Ambiguous = res.ambiguous

	if res.driftRepaired {
		// The fallback bound the sender's own record; the handle was
		// repaired but no appreciation is counted.
		out.Sender = res.target
		out.Status = StatusHandleUpdated
		return out
	}
	if sameIdentity(sender, res.target) {
		out.Status = StatusSelf
		return out
	}

	if err := e.ledger.Apply(ctx, sender, res.target); err != nil {
		if IsPartial(err) {
			log.Error("ledger partially applied",
				slog.String("candidate", cand.Value),
				slog.Any("error", err))
			out.Status = StatusPartial
		} else {
			log.Error("ledger failed",
				slog.String("candidate", cand.Value),
				slog.Any("error", err))
			out.Status = StatusError
		}
		out.Err = err
		return out
	}

	if res.created {
		out.Status = StatusAppreciatedNew
	} else {
		out.Status = StatusAppreciated
	}
	log.Info("appreciation recorded",
		slog.String("candidate", cand.Value),
		slog.String("kind", cand.Kind.String()),
		slog.Int64("target_identity_id", res.target.ID),
		slog.Bool("created", res.created))
	return out
}

// sameIdentity matches by row id, falling back to the platform id so that a
// self-mention is skipped on every resolution path.
func sameIdentity(a, b identity.Identity) bool {
	if a.ID != 0 && a.ID == b.ID {
		return true
	}
	return a.TelegramID != nil && b.TelegramID != nil && *a.TelegramID == *b.TelegramID
}
