// iface.go defines the Interface for dependency injection and testing.
//
// The concrete *Store type satisfies this interface. The engine accepts
// Interface instead of *Store, so tests can inject fault-injecting or
// in-memory substitutes.
package quota

import "time"

// Interface defines the full set of quota operations.
// The concrete *Store type implements this interface.
type Interface interface {
	// Close closes the database connection.
	Close() error

	// Config returns the effective configuration.
	Config() Config

	// Tokens returns the actor's current balance; absent rows are full.
	Tokens(actorID string, now time.Time) (float64, error)

	// RefillIn returns the wait until the next whole token, zero if full.
	RefillIn(actorID string, now time.Time) (time.Duration, error)

	// Consume spends one token and refreshes the refill clock.
	Consume(actorID string, now time.Time) (float64, error)

	// Grant refunds n tokens without touching the refill clock.
	Grant(actorID string, n int, now time.Time) error

	// Sweep drops rows idle past InactiveAfter.
	Sweep(now time.Time) (int, error)

	// Clear drops every quota row (game reset).
	Clear() error

	// Count returns the number of persisted (below-capacity) rows.
	Count() (int, error)

	// Epoch returns the remembered game epoch.
	Epoch() (time.Time, bool, error)

	// SetEpoch stores the current game epoch.
	SetEpoch(epoch time.Time) error
}

// Compile-time check that *Store implements Interface.
var _ Interface = (*Store)(nil)
