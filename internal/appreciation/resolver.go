package appreciation

import (
	"context"
	"log/slog"

	"github.com/vk-2002/telegram-bot/internal/identity"
	"github.com/vk-2002/telegram-bot/internal/mention"
)

// resolution is the outcome of binding one candidate to a store record.
type resolution struct {
	target identity.Identity
	// created is true when the record was minted for this candidate.
	created bool
	// driftRepaired is true when the handle fallback rewrote the sender's
	// stored username.
	driftRepaired bool
	ambiguous     bool
}

// Resolver binds candidate references to identity records under one policy.
type Resolver struct {
	store  identity.Store
	policy Policy
	logger *slog.Logger
}

func NewResolver(log *slog.Logger, store identity.Store, policy Policy) *Resolver {
	if log == nil {
		log = slog.Default()
	}
	return &Resolver{
		store:  store,
		policy: policy,
		logger: log.With(slog.String("component", "resolver")),
	}
}

// resolve binds one candidate in the context of sender. Misses surface as
// identity.ErrNotFound; every other error means the store was unreachable.
// No ledger writes happen here; only the drift fallback and create-on-miss
// mutate the store, and both touch a single record.
func (r *Resolver) resolve(ctx context.Context, sender identity.Identity, cand mention.Candidate) (resolution, error) {
	switch cand.Kind {
	case mention.KindHandle:
		return r.resolveHandle(ctx, sender, cand.Value)
	default:
		return r.resolveName(ctx, cand.Value)
	}
}

func (r *Resolver) resolveHandle(ctx context.Context, sender identity.Identity, handle string) (resolution, error) {
	rec, err := r.store.FindByUsername(ctx, handle)
	if err == nil {
		return resolution{target: rec}, nil
	}
	if !identity.IsNotFound(err) {
		return resolution{}, err
	}

	switch r.policy {
	case PolicyDriftFallback:
		// The handle may be the sender's own after a rename: their record
		// still carries the old username. Re-find by the stable id and
		// repair the handle. Heuristic; misfires only into a self-mention,
		// which the engine skips anyway.
		if sender.TelegramID == nil {
			return resolution{}, err
		}
		own, ownErr := r.store.FindByTelegramID(ctx, *sender.TelegramID)
		if identity.IsNotFound(ownErr) {
			return resolution{}, err
		}
		if ownErr != nil {
			return resolution{}, ownErr
		}
		updated, upErr := r.store.UpdateUsername(ctx, own.ID, handle)
		if upErr != nil {
			return resolution{}, upErr
		}
		r.logger.Info("repaired drifted handle",
			slog.Int64("identity_id", updated.ID),
			slog.String("old_username", own.Username),
			slog.String("new_username", handle))
		return resolution{target: updated, driftRepaired: true}, nil

	case PolicyCreateOnMiss:
		created, crErr := r.store.Create(ctx, identity.NewIdentity{Username: handle, FirstName: handle})
		if crErr != nil {
			return resolution{}, crErr
		}
		r.logger.Info("created placeholder for handle",
			slog.Int64("identity_id", created.ID),
			slog.String("username", handle))
		return resolution{target: created, created: true}, nil

	default:
		return resolution{}, err
	}
}

func (r *Resolver) resolveName(ctx context.Context, name string) (resolution, error) {
	rec, matches, err := r.store.FindByFirstName(ctx, name)
	if err == nil {
		return resolution{target: rec, ambiguous: matches > 1}, nil
	}
	if !identity.IsNotFound(err) {
		return resolution{}, err
	}
	if r.policy != PolicyCreateOnMiss {
		return resolution{}, err
	}
	created, crErr := r.store.Create(ctx, identity.NewIdentity{FirstName: name})
	if crErr != nil {
		return resolution{}, crErr
	}
	r.logger.Info("created placeholder for name",
		slog.Int64("identity_id", created.ID),
		slog.String("first_name", name))
	return resolution{target: created, created: true}, nil
}
