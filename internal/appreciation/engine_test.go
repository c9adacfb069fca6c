package appreciation

import (
	"context"
	"fmt"
	"log/slog"
	"testing"

	"github.com/vk-2002/telegram-bot/internal/config"
	"github.com/vk-2002/telegram-bot/internal/identity"
	"github.com/vk-2002/telegram-bot/internal/mention"
)

func newTestEngine(store *fakeStore, policy Policy) *Engine {
	log := slog.Default()
	return NewEngine(log,
		mention.NewExtractor(config.DefaultStoplist),
		NewResolver(log, store, policy),
		NewLedger(store),
		identity.NewService(log, store),
	)
}

func groupMessage(senderID int64, username, firstName, text string) Message {
	return Message{
		Sender: identity.Sender{
			TelegramID: senderID,
			Username:   username,
			FirstName:  firstName,
		},
		ChatID:   -100,
		ChatType: "supergroup",
		Text:     text,
	}
}

func TestProcessIgnoresPrivateChats(t *testing.T) {
	t.Parallel()
	store := newFakeStore()
	store.seed(1, "alice", "Alice")
	e := newTestEngine(store, PolicyStrict)

	msg := groupMessage(2, "bob", "Bob", "thanks @alice")
	msg.ChatType = "private"
	outcomes, err := e.Process(context.Background(), msg)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(outcomes) != 0 {
		t.Fatalf("expected no outcomes for private chat, got %d", len(outcomes))
	}
	if given, received := store.totalCounters(); given != 0 || received != 0 {
		t.Fatalf("counters changed: given=%d received=%d", given, received)
	}
}

func TestProcessNoCandidates(t *testing.T) {
	t.Parallel()
	store := newFakeStore()
	e := newTestEngine(store, PolicyStrict)

	outcomes, err := e.Process(context.Background(), groupMessage(2, "bob", "Bob", "just some chatter"))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(outcomes) != 0 {
		t.Fatalf("expected no outcomes, got %d", len(outcomes))
	}
	if given, received := store.totalCounters(); given != 0 || received != 0 {
		t.Fatalf("counters changed on candidate-free message")
	}
	if len(store.rows) != 0 {
		t.Fatalf("sender registered despite candidate-free message")
	}
}

func TestProcessHandleSuccess(t *testing.T) {
	t.Parallel()
	store := newFakeStore()
	alice := store.seed(1, "alice", "Alice")
	bystander := store.seed(3, "carol", "Carol")
	e := newTestEngine(store, PolicyStrict)

	outcomes, err := e.Process(context.Background(), groupMessage(2, "bob", "Bob", "great catch @alice"))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(outcomes) != 1 {
		t.Fatalf("expected 1 outcome, got %d", len(outcomes))
	}
	out := outcomes[0]
	if out.Status != StatusAppreciated {
		t.Fatalf("status = %s, want appreciated", out.Status)
	}
	if got := store.get(alice.ID).ReceivedCount; got != 1 {
		t.Errorf("target received = %d, want 1", got)
	}
	if got := store.get(out.Sender.ID).GivenCount; got != 1 {
		t.Errorf("sender given = %d, want 1", got)
	}
	if b := store.get(bystander.ID); b.GivenCount != 0 || b.ReceivedCount != 0 {
		t.Errorf("bystander counters changed: %+v", b)
	}
}

func TestProcessDuplicateMentionCountsTwice(t *testing.T) {
	t.Parallel()
	store := newFakeStore()
	alice := store.seed(1, "alice", "Alice")
	e := newTestEngine(store, PolicyStrict)

	outcomes, err := e.Process(context.Background(),
		groupMessage(2, "bob", "Bob", "@alice did it, seriously @alice did"))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(outcomes) != 2 {
		t.Fatalf("expected 2 outcomes, got %d", len(outcomes))
	}
	for i, out := range outcomes {
		if out.Status != StatusAppreciated {
			t.Errorf("outcome %d status = %s, want appreciated", i, out.Status)
		}
	}
	if got := store.get(alice.ID).ReceivedCount; got != 2 {
		t.Errorf("target received = %d, want 2 (two separate +1s)", got)
	}
	sender, _ := store.FindByTelegramID(context.Background(), 2)
	if sender.GivenCount != 2 {
		t.Errorf("sender given = %d, want 2", sender.GivenCount)
	}
}

func TestProcessStrictNotFound(t *testing.T) {
	t.Parallel()
	store := newFakeStore()
	e := newTestEngine(store, PolicyStrict)

	outcomes, err := e.Process(context.Background(), groupMessage(2, "bob", "Bob", "cheers @ghost"))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(outcomes) != 1 || outcomes[0].Status != StatusNotFound {
		t.Fatalf("expected not-found outcome, got %+v", outcomes)
	}
	if given, received := store.totalCounters(); given != 0 || received != 0 {
		t.Fatalf("counters changed on not-found")
	}
	// Strict policy never mints records for missed mentions.
	if _, err := store.FindByUsername(context.Background(), "ghost"); !identity.IsNotFound(err) {
		t.Fatalf("strict policy created a record for the missed handle")
	}
}

func TestProcessDriftFallbackRepairsHandle(t *testing.T) {
	t.Parallel()
	store := newFakeStore()
	sender := store.seed(42, "alice_old", "Alice")
	e := newTestEngine(store, PolicyDriftFallback)

	outcomes, err := e.Process(context.Background(),
		groupMessage(42, "alice_old", "Alice", "ping @alice_new"))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(outcomes) != 1 {
		t.Fatalf("expected 1 outcome, got %d", len(outcomes))
	}
	if outcomes[0].Status != StatusHandleUpdated {
		t.Fatalf("status = %s, want handle-updated", outcomes[0].Status)
	}
	if got := store.get(sender.ID).Username; got != "alice_new" {
		t.Errorf("stored username = %q, want alice_new", got)
	}
	if given, received := store.totalCounters(); given != 0 || received != 0 {
		t.Errorf("drift repair must not touch counters: given=%d received=%d", given, received)
	}
}

func TestProcessDriftFallbackRebindsMissedHandle(t *testing.T) {
	t.Parallel()
	store := newFakeStore()
	store.seed(1, "alice", "Alice")
	e := newTestEngine(store, PolicyDriftFallback)

	// The fallback always rebinds a missed handle to the sender's own row
	// once the sender is registered. That rewrite-on-typo is the documented
	// misfire mode of the heuristic.
	outcomes, err := e.Process(context.Background(),
		groupMessage(7, "gina", "Gina", "hi @nobody_here"))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(outcomes) != 1 || outcomes[0].Status != StatusHandleUpdated {
		t.Fatalf("expected handle-updated outcome, got %+v", outcomes)
	}
}

func TestProcessCreateOnMiss(t *testing.T) {
	t.Parallel()
	store := newFakeStore()
	e := newTestEngine(store, PolicyCreateOnMiss)

	outcomes, err := e.Process(context.Background(),
		groupMessage(2, "bob", "Bob", "Thanks @newperson"))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(outcomes) != 1 {
		t.Fatalf("expected 1 outcome, got %d", len(outcomes))
	}
	if outcomes[0].Status != StatusAppreciatedNew {
		t.Fatalf("status = %s, want appreciated-new", outcomes[0].Status)
	}
	created, err := store.FindByUsername(context.Background(), "newperson")
	if err != nil {
		t.Fatalf("placeholder not created: %v", err)
	}
	if created.TelegramID != nil {
		t.Errorf("placeholder must not carry a telegram id")
	}
	if created.ReceivedCount != 1 {
		t.Errorf("placeholder received = %d, want 1", created.ReceivedCount)
	}
	sender, _ := store.FindByTelegramID(context.Background(), 2)
	if sender.GivenCount != 1 {
		t.Errorf("sender given = %d, want 1", sender.GivenCount)
	}
}

func TestProcessSelfMentionSkipsOnEveryPolicy(t *testing.T) {
	t.Parallel()
	for _, policy := range []Policy{PolicyStrict, PolicyDriftFallback, PolicyCreateOnMiss} {
		policy := policy
		t.Run(policy.String(), func(t *testing.T) {
			t.Parallel()
			store := newFakeStore()
			store.seed(5, "dana", "Dana")
			e := newTestEngine(store, policy)

			outcomes, err := e.Process(context.Background(),
				groupMessage(5, "dana", "Dana", "go me @dana"))
			if err != nil {
				t.Fatalf("Process: %v", err)
			}
			if len(outcomes) != 1 || outcomes[0].Status != StatusSelf {
				t.Fatalf("policy %s: expected self outcome, got %+v", policy, outcomes)
			}
			if given, received := store.totalCounters(); given != 0 || received != 0 {
				t.Fatalf("policy %s: self-mention changed counters", policy)
			}
		})
	}
}

func TestProcessPlainNameTieBreak(t *testing.T) {
	t.Parallel()
	store := newFakeStore()
	first := store.seed(1, "j1", "John")
	store.seed(2, "j2", "John")
	e := newTestEngine(store, PolicyStrict)

	outcomes, err := e.Process(context.Background(),
		groupMessage(9, "bob", "Bob", "Thanks John"))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(outcomes) != 1 {
		t.Fatalf("expected 1 outcome, got %d", len(outcomes))
	}
	out := outcomes[0]
	if out.Status != StatusAppreciated {
		t.Fatalf("status = %s, want appreciated", out.Status)
	}
	if !out.Ambiguous {
		t.Errorf("expected ambiguous flag for duplicated first name")
	}
	if out.Target.ID != first.ID {
		t.Errorf("tie-break picked id %d, want lowest id %d", out.Target.ID, first.ID)
	}
	if got := store.get(first.ID).ReceivedCount; got != 1 {
		t.Errorf("earliest John received = %d, want 1", got)
	}
}

func TestProcessCandidateFaultIsolation(t *testing.T) {
	t.Parallel()
	store := newFakeStore()
	store.seed(1, "alice", "Alice")
	store.seed(3, "carol", "Carol")
	store.failFind["username:alice"] = fmt.Errorf("lookup: %w", identity.ErrUnavailable)
	e := newTestEngine(store, PolicyStrict)

	outcomes, err := e.Process(context.Background(),
		groupMessage(2, "bob", "Bob", "@alice and @carol"))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(outcomes) != 2 {
		t.Fatalf("expected 2 outcomes, got %d", len(outcomes))
	}
	if outcomes[0].Status != StatusError {
		t.Errorf("first outcome = %s, want error", outcomes[0].Status)
	}
	if outcomes[1].Status != StatusAppreciated {
		t.Errorf("second outcome = %s, want appreciated (fault must not cascade)", outcomes[1].Status)
	}
}

func TestProcessPartialLedgerFailure(t *testing.T) {
	t.Parallel()
	store := newFakeStore()
	alice := store.seed(1, "alice", "Alice")
	bob := store.seed(2, "bob", "Bob")
	store.failIncrement[alice.ID] = fmt.Errorf("write: %w", identity.ErrUnavailable)
	e := newTestEngine(store, PolicyStrict)

	outcomes, err := e.Process(context.Background(),
		groupMessage(2, "bob", "Bob", "nice @alice"))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(outcomes) != 1 || outcomes[0].Status != StatusPartial {
		t.Fatalf("expected partial outcome, got %+v", outcomes)
	}
	// Sender-side increment stays applied; no compensating rollback.
	if got := store.get(bob.ID).GivenCount; got != 1 {
		t.Errorf("sender given = %d, want 1 (not rolled back)", got)
	}
	if got := store.get(alice.ID).ReceivedCount; got != 0 {
		t.Errorf("target received = %d, want 0", got)
	}
}

func TestProcessEnsureSenderFailureAbortsOnce(t *testing.T) {
	t.Parallel()
	store := newFakeStore()
	store.seed(1, "alice", "Alice")
	store.failFind["tgid:2"] = fmt.Errorf("lookup: %w", identity.ErrUnavailable)
	e := newTestEngine(store, PolicyStrict)

	outcomes, err := e.Process(context.Background(),
		groupMessage(2, "bob", "Bob", "@alice @alice @alice"))
	if err == nil {
		t.Fatalf("expected whole-message error")
	}
	if len(outcomes) != 0 {
		t.Fatalf("expected no per-candidate outcomes, got %d", len(outcomes))
	}
}

func TestProcessLazySenderRegistration(t *testing.T) {
	t.Parallel()
	store := newFakeStore()
	store.seed(1, "alice", "Alice")
	e := newTestEngine(store, PolicyStrict)

	if _, err := e.Process(context.Background(),
		groupMessage(2, "bob", "Bob", "hey @alice")); err != nil {
		t.Fatalf("Process: %v", err)
	}
	sender, err := store.FindByTelegramID(context.Background(), 2)
	if err != nil {
		t.Fatalf("sender not registered: %v", err)
	}
	if sender.Username != "bob" || sender.FirstName != "Bob" {
		t.Errorf("sender profile = %q/%q", sender.Username, sender.FirstName)
	}
}
