// Package quota persists per-actor token buckets for rate limiting draws.
//
// Each actor has a budget of MaxTokens. A draw consumes one token; tokens
// refill linearly over time, one whole token per RefillInterval measured
// from the actor's last spend. The store is lazy: reads compute the
// current balance from the persisted count plus elapsed time, and only
// writes (consume, grant) touch the database.
//
// Two storage rules bound the table to actors who actually need rows:
//
//   - Absent means full. A bucket that refills (or is granted) back to
//     MaxTokens is deleted rather than stored.
//   - A periodic sweep removes rows idle past InactiveAfter regardless
//     of balance.
//
// Grants (box-completion refunds) add tokens without refreshing
// last_active_at, so completing boxes cannot be used to reset the refill
// clock.
//
// The store also remembers the current game epoch, which the writer
// compares against the log header to detect game resets.
package quota

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Config sets the bucket shape and sweep policy.
type Config struct {
	// MaxTokens is the bucket capacity. Zero means DefaultMaxTokens.
	MaxTokens int
	// RefillInterval is the time to accrue one token, measured from the
	// last consume. Zero means DefaultRefillInterval.
	RefillInterval time.Duration
	// InactiveAfter is the idle age past which Sweep drops a row.
	// Zero means DefaultInactiveAfter.
	InactiveAfter time.Duration
}

const (
	DefaultMaxTokens      = 8
	DefaultRefillInterval = 10 * time.Second
	DefaultInactiveAfter  = 24 * time.Hour
)

func (c Config) withDefaults() Config {
	if c.MaxTokens <= 0 {
		c.MaxTokens = DefaultMaxTokens
	}
	if c.RefillInterval <= 0 {
		c.RefillInterval = DefaultRefillInterval
	}
	if c.InactiveAfter <= 0 {
		c.InactiveAfter = DefaultInactiveAfter
	}
	return c
}

// ErrInsufficient is reported by Consume when the bucket is empty.
// The concrete error is an *InsufficientError carrying the wait time;
// match with errors.Is(err, ErrInsufficient) or errors.As.
var ErrInsufficient = errors.New("quota: insufficient tokens")

// InsufficientError is the Consume failure, with the time until the next
// whole token accrues.
type InsufficientError struct {
	RefillIn time.Duration
}

func (e *InsufficientError) Error() string {
	return fmt.Sprintf("quota: insufficient tokens, next refill in %s", e.RefillIn.Round(time.Second))
}

func (e *InsufficientError) Is(target error) bool { return target == ErrInsufficient }

// Store manages the SQLite-backed quota table.
type Store struct {
	db  *sql.DB
	cfg Config
}

// New opens (or creates) the quota database and initializes the schema.
func New(path string, cfg Config) (*Store, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(60000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	s := &Store{db: db, cfg: cfg.withDefaults()}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error { return s.db.Close() }

// Config returns the effective configuration (defaults applied).
func (s *Store) Config() Config { return s.cfg }

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS quotas (
		actor_id       TEXT PRIMARY KEY,
		tokens         REAL NOT NULL,
		last_active_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_quotas_last_active ON quotas(last_active_at);

	CREATE TABLE IF NOT EXISTS meta (
		key   TEXT PRIMARY KEY,
		value INTEGER NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// retryOnContention wraps retryOp from retry.go with the default config.
// All write operations use it to ride out transient SQLite errors
// (BUSY, LOCKED, IOERR_SHORT_READ) under concurrent access.
func retryOnContention(fn func() error) error {
	return retryOp(defaultRetryConfig, fn)
}

// refilled returns the current balance for a persisted row: the stored
// count plus one whole token per RefillInterval elapsed since the last
// spend, capped at MaxTokens.
func (s *Store) refilled(tokens float64, lastActive, now time.Time) float64 {
	elapsed := now.Sub(lastActive)
	if elapsed > 0 {
		tokens += float64(elapsed / s.cfg.RefillInterval)
	}
	if max := float64(s.cfg.MaxTokens); tokens > max {
		tokens = max
	}
	return tokens
}

// refillIn returns the wait until the next whole token accrues for a row
// last active at lastActive.
func (s *Store) refillIn(lastActive, now time.Time) time.Duration {
	elapsed := now.Sub(lastActive)
	if elapsed < 0 {
		elapsed = 0
	}
	return s.cfg.RefillInterval - elapsed%s.cfg.RefillInterval
}

// Tokens returns the actor's current balance at time now. Absence means a
// full bucket. Read-only: no rows are written or pruned.
func (s *Store) Tokens(actorID string, now time.Time) (float64, error) {
	var tokens float64
	var lastMs int64
	err := s.db.QueryRow(
		`SELECT tokens, last_active_at FROM quotas WHERE actor_id = ?`, actorID,
	).Scan(&tokens, &lastMs)
	if errors.Is(err, sql.ErrNoRows) {
		return float64(s.cfg.MaxTokens), nil
	}
	if err != nil {
		return 0, fmt.Errorf("read quota for %s: %w", actorID, err)
	}
	return s.refilled(tokens, time.UnixMilli(lastMs), now), nil
}

// RefillIn returns the wait until the actor's next whole token, or zero
// when the bucket is already full.
func (s *Store) RefillIn(actorID string, now time.Time) (time.Duration, error) {
	var tokens float64
	var lastMs int64
	err := s.db.QueryRow(
		`SELECT tokens, last_active_at FROM quotas WHERE actor_id = ?`, actorID,
	).Scan(&tokens, &lastMs)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read quota for %s: %w", actorID, err)
	}
	last := time.UnixMilli(lastMs)
	if s.refilled(tokens, last, now) >= float64(s.cfg.MaxTokens) {
		return 0, nil
	}
	return s.refillIn(last, now), nil
}

// Consume spends one token for the actor and returns the new balance.
// The spend refreshes last_active_at: the refill window is measured from
// the last spend, not from grants. Fails with *InsufficientError when the
// current balance is below one.
func (s *Store) Consume(actorID string, now time.Time) (float64, error) {
	var remaining float64
	err := retryOnContention(func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

		current := float64(s.cfg.MaxTokens)
		last := now
		var tokens float64
		var lastMs int64
		err = tx.QueryRow(
			`SELECT tokens, last_active_at FROM quotas WHERE actor_id = ?`, actorID,
		).Scan(&tokens, &lastMs)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			// First sight of this actor: implicit full bucket.
		case err != nil:
			return fmt.Errorf("read quota for %s: %w", actorID, err)
		default:
			last = time.UnixMilli(lastMs)
			current = s.refilled(tokens, last, now)
		}

		if current < 1 {
			return &InsufficientError{RefillIn: s.refillIn(last, now)}
		}

		remaining = current - 1
		_, err = tx.Exec(
			`INSERT INTO quotas (actor_id, tokens, last_active_at) VALUES (?, ?, ?)
			 ON CONFLICT(actor_id) DO UPDATE SET
			   tokens = excluded.tokens,
			   last_active_at = excluded.last_active_at`,
			actorID, remaining, now.UnixMilli(),
		)
		if err != nil {
			return fmt.Errorf("write quota for %s: %w", actorID, err)
		}
		return tx.Commit()
	})
	if err != nil {
		return 0, err
	}
	return remaining, nil
}

// Grant adds n tokens to the actor's stored balance, capped at MaxTokens,
// without touching last_active_at: a later refill computation is exactly
// what it would have been absent the grant. A row that reaches capacity
// is deleted (absent means full); an absent row is already full, so the
// grant is a no-op.
func (s *Store) Grant(actorID string, n int, now time.Time) error {
	if n <= 0 {
		return nil
	}
	return retryOnContention(func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

		var tokens float64
		var lastMs int64
		err = tx.QueryRow(
			`SELECT tokens, last_active_at FROM quotas WHERE actor_id = ?`, actorID,
		).Scan(&tokens, &lastMs)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read quota for %s: %w", actorID, err)
		}

		tokens += float64(n)
		if tokens >= float64(s.cfg.MaxTokens) {
			if _, err := tx.Exec(`DELETE FROM quotas WHERE actor_id = ?`, actorID); err != nil {
				return fmt.Errorf("delete full quota for %s: %w", actorID, err)
			}
		} else {
			if _, err := tx.Exec(
				`UPDATE quotas SET tokens = ? WHERE actor_id = ?`, tokens, actorID,
			); err != nil {
				return fmt.Errorf("write quota for %s: %w", actorID, err)
			}
		}
		return tx.Commit()
	})
}

// Sweep deletes rows idle past InactiveAfter and returns the count.
func (s *Store) Sweep(now time.Time) (int, error) {
	cutoff := now.Add(-s.cfg.InactiveAfter).UnixMilli()
	var pruned int64
	err := retryOnContention(func() error {
		res, err := s.db.Exec(`DELETE FROM quotas WHERE last_active_at < ?`, cutoff)
		if err != nil {
			return err
		}
		pruned, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("sweep quotas: %w", err)
	}
	return int(pruned), nil
}

// Clear deletes every quota row. Called on game reset: quota from a
// previous game must not leak into a new one.
func (s *Store) Clear() error {
	return retryOnContention(func() error {
		_, err := s.db.Exec(`DELETE FROM quotas`)
		return err
	})
}

// Count returns the number of persisted rows, i.e. actors below capacity.
func (s *Store) Count() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM quotas`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count quotas: %w", err)
	}
	return n, nil
}

// Epoch returns the remembered game epoch, if one has been stored.
func (s *Store) Epoch() (time.Time, bool, error) {
	var ms int64
	err := s.db.QueryRow(`SELECT value FROM meta WHERE key = 'epoch'`).Scan(&ms)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("read epoch: %w", err)
	}
	return time.UnixMilli(ms).UTC(), true, nil
}

// SetEpoch stores the current game epoch.
func (s *Store) SetEpoch(epoch time.Time) error {
	return retryOnContention(func() error {
		_, err := s.db.Exec(
			`INSERT INTO meta (key, value) VALUES ('epoch', ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
			epoch.UnixMilli(),
		)
		return err
	})
}
