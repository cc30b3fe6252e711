package gamelog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteLog stores the stream as a table of byte chunks keyed by their
// starting offset. It is the local backend used by the CLI and tests;
// a production deployment would implement Log against its log service
// instead.
type SQLiteLog struct {
	db   *sql.DB
	poll time.Duration
}

// SQLiteOption configures a SQLiteLog.
type SQLiteOption func(*SQLiteLog)

// WithPollInterval sets how often Subscribe checks for new bytes.
// Default one second.
func WithPollInterval(d time.Duration) SQLiteOption {
	return func(l *SQLiteLog) { l.poll = d }
}

// OpenSQLite opens (or creates) the log database at path and initializes
// the schema. Opening the database does not create the log itself; that
// is Create's job, so "database file present, log absent" stays
// representable.
func OpenSQLite(path string, opts ...SQLiteOption) (*SQLiteLog, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(60000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	l := &SQLiteLog{db: db, poll: time.Second}
	for _, opt := range opts {
		opt(l)
	}
	if err := l.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return l, nil
}

// Close closes the database connection.
func (l *SQLiteLog) Close() error { return l.db.Close() }

func (l *SQLiteLog) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS chunks (
		start INTEGER PRIMARY KEY,
		data  BLOB NOT NULL
	);

	CREATE TABLE IF NOT EXISTS meta (
		key   TEXT PRIMARY KEY,
		value INTEGER NOT NULL
	);
	`
	_, err := l.db.Exec(schema)
	return err
}

// Exists reports whether Create has run for this log.
func (l *SQLiteLog) Exists(ctx context.Context) (bool, error) {
	var v int64
	err := l.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = 'created'`).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check log existence: %w", err)
	}
	return true, nil
}

// Create marks the log as existing with zero bytes.
func (l *SQLiteLog) Create(ctx context.Context) error {
	exists, err := l.Exists(ctx)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("gamelog: log already exists")
	}
	_, err = l.db.ExecContext(ctx,
		`INSERT INTO meta (key, value) VALUES ('created', ?)`, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("create log: %w", err)
	}
	return nil
}

// Append writes b at the tail. The tail lookup and insert run in one
// transaction, which is what makes the append atomic.
func (l *SQLiteLog) Append(ctx context.Context, b []byte) (int64, error) {
	var start int64
	err := func() error {
		tx, err := l.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

		var v int64
		err = tx.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = 'created'`).Scan(&v)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("check log existence: %w", err)
		}

		if err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(start + LENGTH(data)), 0) FROM chunks`).Scan(&start); err != nil {
			return fmt.Errorf("find tail: %w", err)
		}
		if len(b) == 0 {
			return tx.Commit()
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO chunks (start, data) VALUES (?, ?)`, start, b); err != nil {
			return fmt.Errorf("append chunk: %w", err)
		}
		return tx.Commit()
	}()
	if err != nil {
		return 0, err
	}
	return start, nil
}

// Read returns all bytes from offset from to the tail and the offset
// after the last byte returned.
func (l *SQLiteLog) Read(ctx context.Context, from int64) ([]byte, int64, error) {
	exists, err := l.Exists(ctx)
	if err != nil {
		return nil, 0, err
	}
	if !exists {
		return nil, 0, ErrNotFound
	}

	rows, err := l.db.QueryContext(ctx,
		`SELECT start, data FROM chunks WHERE start + LENGTH(data) > ? ORDER BY start`, from)
	if err != nil {
		return nil, 0, fmt.Errorf("read chunks: %w", err)
	}
	defer rows.Close()

	var out []byte
	next := from
	for rows.Next() {
		var start int64
		var data []byte
		if err := rows.Scan(&start, &data); err != nil {
			return nil, 0, fmt.Errorf("scan chunk: %w", err)
		}
		if start < from {
			data = data[from-start:]
			start = from
		}
		out = append(out, data...)
		next = start + int64(len(data))
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("read chunks: %w", err)
	}
	return out, next, nil
}

// Subscribe polls the tail and delivers new bytes as they appear. The
// returned channel closes when ctx is done.
func (l *SQLiteLog) Subscribe(ctx context.Context, from int64) (<-chan Chunk, error) {
	if _, _, err := l.Read(ctx, from); err != nil {
		return nil, err
	}
	out := make(chan Chunk)
	go func() {
		defer close(out)
		ticker := time.NewTicker(l.poll)
		defer ticker.Stop()
		next := from
		for {
			data, n, err := l.Read(ctx, next)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Printf("gamelog: subscribe read: %v", err)
			} else if len(data) > 0 {
				select {
				case out <- Chunk{Data: data, Next: n}:
					next = n
				case <-ctx.Done():
					return
				}
			}
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Compile-time check that *SQLiteLog implements Log.
var _ Log = (*SQLiteLog)(nil)
