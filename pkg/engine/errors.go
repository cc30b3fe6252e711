// errors.go defines the draw failure taxonomy. Every failure here is
// recoverable by the caller; only log corruption at initialization keeps
// an instance not-ready, and even that is retried on the next request.
package engine

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotReady means the engine is still replaying the log, or its
	// last initialization attempt failed. Retry shortly.
	ErrNotReady = errors.New("engine: not ready")

	// ErrInvalidEdge rejects an edge ID outside the grid.
	ErrInvalidEdge = errors.New("engine: invalid edge")

	// ErrInvalidTeam rejects a team ID outside [0, TeamCount).
	ErrInvalidTeam = errors.New("engine: invalid team")

	// ErrInvalidActor rejects a request with no actor identity.
	ErrInvalidActor = errors.New("engine: invalid actor")

	// ErrGameComplete rejects draws after the end condition holds.
	ErrGameComplete = errors.New("engine: game complete")

	// ErrEdgeTaken is the benign race: someone placed the edge first.
	// No quota is spent when this is detected.
	ErrEdgeTaken = errors.New("engine: edge already taken")

	// ErrQuotaExhausted means the actor's bucket is empty. The concrete
	// error is a *QuotaExhaustedError carrying the refill wait.
	ErrQuotaExhausted = errors.New("engine: quota exhausted")

	// ErrLogWrite means the append failed; the consumed token has been
	// refunded and the whole request may be retried.
	ErrLogWrite = errors.New("engine: log write failed")

	// ErrClosed means the engine has been shut down.
	ErrClosed = errors.New("engine: closed")
)

// QuotaExhaustedError carries the wait until the actor's next token.
type QuotaExhaustedError struct {
	RefillIn time.Duration
}

func (e *QuotaExhaustedError) Error() string {
	return fmt.Sprintf("engine: quota exhausted, next token in %s", e.RefillIn.Round(time.Second))
}

func (e *QuotaExhaustedError) Is(target error) bool { return target == ErrQuotaExhausted }

// Code is the machine-readable rejection code surfaced to transport
// layers (the code field of the write response).
type Code string

const (
	CodeOK            Code = "ok"
	CodeWarmingUp     Code = "warming_up"
	CodeInvalidEdge   Code = "invalid_edge"
	CodeInvalidTeam   Code = "invalid_team"
	CodeInvalidActor  Code = "invalid_actor"
	CodeGameComplete  Code = "game_complete"
	CodeEdgeTaken     Code = "edge_taken"
	CodeQuotaExceeded Code = "quota_exhausted"
	CodeLogWrite      Code = "log_write_failed"
	CodeInternal      Code = "internal"
)

// CodeOf maps a Draw error to its wire code. Unknown errors map to
// CodeInternal.
func CodeOf(err error) Code {
	switch {
	case err == nil:
		return CodeOK
	case errors.Is(err, ErrNotReady):
		return CodeWarmingUp
	case errors.Is(err, ErrInvalidEdge):
		return CodeInvalidEdge
	case errors.Is(err, ErrInvalidTeam):
		return CodeInvalidTeam
	case errors.Is(err, ErrInvalidActor):
		return CodeInvalidActor
	case errors.Is(err, ErrGameComplete):
		return CodeGameComplete
	case errors.Is(err, ErrEdgeTaken):
		return CodeEdgeTaken
	case errors.Is(err, ErrQuotaExhausted):
		return CodeQuotaExceeded
	case errors.Is(err, ErrLogWrite):
		return CodeLogWrite
	default:
		return CodeInternal
	}
}
