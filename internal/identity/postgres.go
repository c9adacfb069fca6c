package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const identityColumns = `id, telegram_id, username, first_name, last_name, is_bot,
	given_count, received_count, created_at, updated_at`

// PostgresStore implements Store on a pgx connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wraps pool as an identity Store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) FindByTelegramID(ctx context.Context, telegramID int64) (Identity, error) {
	query := `SELECT ` + identityColumns + ` FROM identities WHERE telegram_id = $1`
	rec, err := scanIdentity(s.pool.QueryRow(ctx, query, telegramID))
	if err != nil {
		return Identity{}, storeErr("find by telegram id", err)
	}
	return rec, nil
}

func (s *PostgresStore) FindByUsername(ctx context.Context, username string) (Identity, error) {
	// Username uniqueness is advisory; ORDER BY id makes stale duplicates
	// resolve deterministically to the oldest row.
	query := `SELECT ` + identityColumns + ` FROM identities
		WHERE username = $1 ORDER BY id LIMIT 1`
	rec, err := scanIdentity(s.pool.QueryRow(ctx, query, username))
	if err != nil {
		return Identity{}, storeErr("find by username", err)
	}
	return rec, nil
}

func (s *PostgresStore) FindByFirstName(ctx context.Context, firstName string) (Identity, int, error) {
	query := `SELECT ` + identityColumns + `, COUNT(*) OVER () AS total
		FROM identities WHERE first_name = $1 ORDER BY id LIMIT 1`
	row := s.pool.QueryRow(ctx, query, firstName)
	var rec Identity
	var matches int
	err := row.Scan(
		&rec.ID, &rec.TelegramID, &rec.Username, &rec.FirstName, &rec.LastName,
		&rec.IsBot, &rec.GivenCount, &rec.ReceivedCount, &rec.CreatedAt, &rec.UpdatedAt,
		&matches,
	)
	if err != nil {
		return Identity{}, 0, storeErr("find by first name", err)
	}
	return rec, matches, nil
}

func (s *PostgresStore) Create(ctx context.Context, rec NewIdentity) (Identity, error) {
	query := `INSERT INTO identities (telegram_id, username, first_name, last_name, is_bot)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + identityColumns
	created, err := scanIdentity(s.pool.QueryRow(ctx, query,
		rec.TelegramID, rec.Username, rec.FirstName, rec.LastName, rec.IsBot))
	if err != nil {
		return Identity{}, storeErr("create identity", err)
	}
	return created, nil
}

func (s *PostgresStore) ClaimPlaceholder(ctx context.Context, username string, rec NewIdentity) (Identity, error) {
	query := `UPDATE identities
		SET telegram_id = $2, first_name = $3, last_name = $4, is_bot = $5, updated_at = now()
		WHERE id = (
			SELECT id FROM identities
			WHERE username = $1 AND telegram_id IS NULL
			ORDER BY id LIMIT 1
		)
		RETURNING ` + identityColumns
	claimed, err := scanIdentity(s.pool.QueryRow(ctx, query,
		username, rec.TelegramID, rec.FirstName, rec.LastName, rec.IsBot))
	if err != nil {
		return Identity{}, storeErr("claim placeholder", err)
	}
	return claimed, nil
}

func (s *PostgresStore) UpdateUsername(ctx context.Context, id int64, username string) (Identity, error) {
	query := `UPDATE identities SET username = $2, updated_at = now()
		WHERE id = $1
		RETURNING ` + identityColumns
	rec, err := scanIdentity(s.pool.QueryRow(ctx, query, id, username))
	if err != nil {
		return Identity{}, storeErr("update username", err)
	}
	return rec, nil
}

func (s *PostgresStore) Increment(ctx context.Context, id int64, counter Counter) error {
	var query string
	switch counter {
	case CounterGiven:
		query = `UPDATE identities SET given_count = given_count + 1, updated_at = now() WHERE id = $1`
	case CounterReceived:
		query = `UPDATE identities SET received_count = received_count + 1, updated_at = now() WHERE id = $1`
	default:
		return fmt.Errorf("unknown counter: %s", counter)
	}
	tag, err := s.pool.Exec(ctx, query, id)
	if err != nil {
		return storeErr("increment "+string(counter), err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("increment %s: %w", counter, ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) TopReceived(ctx context.Context, limit int) ([]Identity, error) {
	query := `SELECT ` + identityColumns + ` FROM identities
		ORDER BY received_count DESC, id ASC LIMIT $1`
	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, storeErr("top received", err)
	}
	defer rows.Close()
	var items []Identity
	for rows.Next() {
		var rec Identity
		if err := rows.Scan(
			&rec.ID, &rec.TelegramID, &rec.Username, &rec.FirstName, &rec.LastName,
			&rec.IsBot, &rec.GivenCount, &rec.ReceivedCount, &rec.CreatedAt, &rec.UpdatedAt,
		); err != nil {
			return nil, storeErr("top received scan", err)
		}
		items = append(items, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("top received rows", err)
	}
	return items, nil
}

func scanIdentity(row pgx.Row) (Identity, error) {
	var rec Identity
	err := row.Scan(
		&rec.ID, &rec.TelegramID, &rec.Username, &rec.FirstName, &rec.LastName,
		&rec.IsBot, &rec.GivenCount, &rec.ReceivedCount, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return Identity{}, err
	}
	return rec, nil
}

// storeErr maps pgx errors onto the package error taxonomy: clean misses
// become ErrNotFound, everything else is ErrUnavailable. The driver error
// stays in the chain so callers can still match SQLSTATE-level causes.
func storeErr(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
}
