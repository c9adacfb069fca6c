package appreciation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vk-2002/telegram-bot/internal/identity"
)

// fakeStore is an in-memory identity.Store for engine tests. failOn lets a
// test inject a store outage for a specific lookup key or counter target.
type fakeStore struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*identity.Identity

	failFind      map[string]error // key: "username:x", "name:x", "tgid:42"
	failIncrement map[int64]error  // key: row id
	failCreate    error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		nextID:        1,
		rows:          map[int64]*identity.Identity{},
		failFind:      map[string]error{},
		failIncrement: map[int64]error{},
	}
}

func (s *fakeStore) seed(telegramID int64, username, firstName string) identity.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().Add(-time.Hour)
	rec := &identity.Identity{
		ID:        s.nextID,
		Username:  username,
		FirstName: firstName,
		CreatedAt: now,
		UpdatedAt: now.Add(time.Minute),
	}
	if telegramID != 0 {
		tg := telegramID
		rec.TelegramID = &tg
	}
	s.rows[s.nextID] = rec
	s.nextID++
	return *rec
}

func (s *fakeStore) get(id int64) identity.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.rows[id]
}

func (s *fakeStore) totalCounters() (given, received int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.rows {
		given += rec.GivenCount
		received += rec.ReceivedCount
	}
	return given, received
}

func (s *fakeStore) FindByTelegramID(_ context.Context, telegramID int64) (identity.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failFind[fmt.Sprintf("tgid:%d", telegramID)]; err != nil {
		return identity.Identity{}, err
	}
	for _, rec := range s.rows {
		if rec.TelegramID != nil && *rec.TelegramID == telegramID {
			return *rec, nil
		}
	}
	return identity.Identity{}, identity.ErrNotFound
}

func (s *fakeStore) FindByUsername(_ context.Context, username string) (identity.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failFind["username:"+username]; err != nil {
		return identity.Identity{}, err
	}
	var best *identity.Identity
	for _, rec := range s.rows {
		if rec.Username == username && (best == nil || rec.ID < best.ID) {
			best = rec
		}
	}
	if best == nil {
		return identity.Identity{}, identity.ErrNotFound
	}
	return *best, nil
}

func (s *fakeStore) FindByFirstName(_ context.Context, firstName string) (identity.Identity, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failFind["name:"+firstName]; err != nil {
		return identity.Identity{}, 0, err
	}
	var best *identity.Identity
	matches := 0
	for _, rec := range s.rows {
		if rec.FirstName == firstName {
			matches++
			if best == nil || rec.ID < best.ID {
				best = rec
			}
		}
	}
	if best == nil {
		return identity.Identity{}, 0, identity.ErrNotFound
	}
	return *best, matches, nil
}

func (s *fakeStore) Create(_ context.Context, rec identity.NewIdentity) (identity.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failCreate != nil {
		return identity.Identity{}, s.failCreate
	}
	now := time.Now()
	created := &identity.Identity{
		ID:         s.nextID,
		TelegramID: rec.TelegramID,
		Username:   rec.Username,
		FirstName:  rec.FirstName,
		LastName:   rec.LastName,
		IsBot:      rec.IsBot,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	s.rows[s.nextID] = created
	s.nextID++
	return *created, nil
}

func (s *fakeStore) ClaimPlaceholder(_ context.Context, username string, rec identity.NewIdentity) (identity.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var best *identity.Identity
	for _, row := range s.rows {
		if row.Username == username && row.TelegramID == nil && (best == nil || row.ID < best.ID) {
			best = row
		}
	}
	if best == nil {
		return identity.Identity{}, identity.ErrNotFound
	}
	best.TelegramID = rec.TelegramID
	best.FirstName = rec.FirstName
	best.LastName = rec.LastName
	best.IsBot = rec.IsBot
	best.UpdatedAt = time.Now()
	return *best, nil
}

func (s *fakeStore) UpdateUsername(_ context.Context, id int64, username string) (identity.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.rows[id]
	if !ok {
		return identity.Identity{}, identity.ErrNotFound
	}
	rec.Username = username
	rec.UpdatedAt = time.Now()
	return *rec, nil
}

func (s *fakeStore) Increment(_ context.Context, id int64, counter identity.Counter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failIncrement[id]; err != nil {
		return err
	}
	rec, ok := s.rows[id]
	if !ok {
		return identity.ErrNotFound
	}
	switch counter {
	case identity.CounterGiven:
		rec.GivenCount++
	case identity.CounterReceived:
		rec.ReceivedCount++
	default:
		return fmt.Errorf("unknown counter: %s", counter)
	}
	return nil
}

func (s *fakeStore) TopReceived(context.Context, int) ([]identity.Identity, error) {
	return nil, nil
}
