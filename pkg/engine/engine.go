// Package engine implements the authoritative writer for one game
// instance.
//
// A single goroutine owns the derived state and the quota store handle;
// every read and write goes through its task channel, so mutation is
// sequential by construction and "edge already taken" is a race-free
// check at decision time. Multiple game instances are independent
// engines and run in parallel.
//
// The state is rebuilt lazily: the first request triggers a full log
// replay, and requests queued behind it share that one initialization.
// A failed initialization leaves the engine retryable: the next request
// replays again, never half-built.
//
// The log append is the commit point. A request whose caller goes away
// after the append succeeded is still applied; only an append failure
// refunds the consumed quota token.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/daviddao/boxline/pkg/gamelog"
	"github.com/daviddao/boxline/pkg/grid"
	"github.com/daviddao/boxline/pkg/quota"
	"github.com/daviddao/boxline/pkg/state"
	"github.com/daviddao/boxline/pkg/wire"
)

// Engine is the single-writer actor for one game instance.
type Engine struct {
	grid  grid.Grid
	log   gamelog.Log
	quota quota.Interface
	now   func() time.Time

	stateOpts []state.Option

	tasks chan func()
	quit  chan struct{}
	done  chan struct{}

	// Owned by the actor goroutine.
	st      *state.State
	epoch   time.Time
	ready   bool
	initErr error
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the time source. Tests use this to make refill
// arithmetic deterministic.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithEndCondition sets the game end rule (default: all boxes claimed).
func WithEndCondition(c state.EndCondition) Option {
	return func(e *Engine) { e.stateOpts = append(e.stateOpts, state.WithEndCondition(c)) }
}

// New creates the engine and starts its actor goroutine. The state is
// not replayed until the first request arrives.
func New(g grid.Grid, l gamelog.Log, q quota.Interface, opts ...Option) *Engine {
	e := &Engine{
		grid:  g,
		log:   l,
		quota: q,
		now:   time.Now,
		tasks: make(chan func()),
		quit:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	go e.run()
	return e
}

// Close stops the actor goroutine. In-flight work finishes first.
func (e *Engine) Close() {
	close(e.quit)
	<-e.done
}

func (e *Engine) run() {
	defer close(e.done)
	for {
		select {
		case <-e.quit:
			return
		case task := <-e.tasks:
			task()
		}
	}
}

// do runs fn on the actor goroutine and waits for it to finish. The
// caller's ctx only bounds the wait: once fn starts it runs to
// completion, which is what makes the append a durable commit point
// even when the caller has gone away.
func (e *Engine) do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	task := func() {
		fn()
		close(finished)
	}
	select {
	case e.tasks <- task:
	case <-e.quit:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ensureReady replays the log on first use. Runs on the actor goroutine.
func (e *Engine) ensureReady(ctx context.Context) error {
	if e.ready {
		return nil
	}
	if err := e.initialize(ctx); err != nil {
		e.initErr = err
		return fmt.Errorf("%w: %v", ErrNotReady, err)
	}
	e.ready = true
	e.initErr = nil
	return nil
}

// initialize probes the log, creating it with a fresh epoch header when
// absent, or replaying its full contents when present. A changed epoch
// is a game reset: every persisted quota row is dropped before any event
// is applied.
func (e *Engine) initialize(ctx context.Context) error {
	exists, err := e.log.Exists(ctx)
	if err != nil {
		return fmt.Errorf("probe log: %w", err)
	}
	if !exists {
		if err := e.log.Create(ctx); err != nil {
			return fmt.Errorf("create log: %w", err)
		}
		return e.startFresh(ctx)
	}

	data, _, err := e.log.Read(ctx, 0)
	if err != nil {
		return fmt.Errorf("read log: %w", err)
	}
	if len(data) == 0 {
		// Created but never headed: a crash between Create and the
		// header append. Safe to head it now.
		return e.startFresh(ctx)
	}
	if len(data) < wire.HeaderSize {
		return fmt.Errorf("corrupt log: %d bytes, shorter than the %d-byte header", len(data), wire.HeaderSize)
	}
	epoch, err := wire.DecodeHeader(data)
	if err != nil {
		return fmt.Errorf("corrupt log: %w", err)
	}

	var p wire.Parser
	events, err := p.Feed(data[wire.HeaderSize:])
	if err != nil {
		return fmt.Errorf("corrupt log: %w", err)
	}
	if p.Buffered() != 0 {
		return fmt.Errorf("corrupt log: %d trailing bytes of a torn record", p.Buffered())
	}

	// Reset detection must precede event application: quota from a
	// previous game must not leak into this one.
	if err := e.adoptEpoch(epoch); err != nil {
		return err
	}

	st := state.New(e.grid, e.stateOpts...)
	for i, ev := range events {
		if _, err := st.Apply(ev); err != nil {
			return fmt.Errorf("corrupt log: record %d: %w", i, err)
		}
	}
	e.st = st
	e.epoch = epoch
	return nil
}

// startFresh heads the log with the current time as the new game epoch.
func (e *Engine) startFresh(ctx context.Context) error {
	epoch := e.now().UTC().Truncate(time.Millisecond)
	hdr := wire.EncodeHeader(epoch)
	if _, err := e.log.Append(ctx, hdr[:]); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := e.adoptEpoch(epoch); err != nil {
		return err
	}
	e.st = state.New(e.grid, e.stateOpts...)
	e.epoch = epoch
	return nil
}

// adoptEpoch compares the log's epoch to the remembered one and clears
// the quota store on mismatch.
func (e *Engine) adoptEpoch(epoch time.Time) error {
	remembered, ok, err := e.quota.Epoch()
	if err != nil {
		return fmt.Errorf("read remembered epoch: %w", err)
	}
	if ok && remembered.Equal(epoch) {
		return nil
	}
	if err := e.quota.Clear(); err != nil {
		return fmt.Errorf("clear quota on reset: %w", err)
	}
	if err := e.quota.SetEpoch(epoch); err != nil {
		return fmt.Errorf("remember epoch: %w", err)
	}
	return nil
}

// DrawResult reports a successful draw.
type DrawResult struct {
	// BoxesClaimed lists the 0, 1, or 2 boxes completed by this edge.
	// Each completion refunds one quota token.
	BoxesClaimed []int
	// QuotaRemaining is the actor's balance after the draw and any
	// refunds.
	QuotaRemaining float64
	// EdgesPlaced is the total placed-edge count after this draw.
	EdgesPlaced int
}

// Draw places one edge for an actor. Validation, quota, append, and
// local application run in strict order; the first failing step
// short-circuits the rest. See errors.go for the failure taxonomy.
func (e *Engine) Draw(ctx context.Context, actorID string, edgeID, teamID int) (DrawResult, error) {
	var (
		res  DrawResult
		rerr error
	)
	err := e.do(ctx, func() {
		res, rerr = e.draw(ctx, actorID, edgeID, teamID)
	})
	if err != nil {
		return DrawResult{}, err
	}
	return res, rerr
}

// draw runs on the actor goroutine.
func (e *Engine) draw(ctx context.Context, actorID string, edgeID, teamID int) (DrawResult, error) {
	if err := e.ensureReady(ctx); err != nil {
		return DrawResult{}, err
	}
	if !e.grid.ValidEdgeID(edgeID) {
		return DrawResult{}, fmt.Errorf("%w: %d", ErrInvalidEdge, edgeID)
	}
	if teamID < 0 || teamID >= wire.TeamCount {
		return DrawResult{}, fmt.Errorf("%w: %d", ErrInvalidTeam, teamID)
	}
	if actorID == "" {
		return DrawResult{}, ErrInvalidActor
	}
	if e.st.Complete() {
		return DrawResult{}, ErrGameComplete
	}
	if e.st.EdgeTaken(edgeID) {
		// The common, expected race: many actors target the same edge
		// and exactly one wins. Detected before any quota is spent.
		return DrawResult{}, ErrEdgeTaken
	}

	now := e.now()
	remaining, err := e.quota.Consume(actorID, now)
	if err != nil {
		var ie *quota.InsufficientError
		if errors.As(err, &ie) {
			return DrawResult{}, &QuotaExhaustedError{RefillIn: ie.RefillIn}
		}
		return DrawResult{}, fmt.Errorf("consume quota: %w", err)
	}

	ev := wire.Event{Edge: edgeID, Team: teamID}
	rec, err := ev.Encode()
	if err != nil {
		// Unreachable past the validations above; refund to be safe.
		e.refund(actorID, 1, now)
		return DrawResult{}, fmt.Errorf("encode event: %w", err)
	}
	if _, err := e.log.Append(ctx, rec[:]); err != nil {
		// The attempt never happened from the actor's perspective.
		e.refund(actorID, 1, now)
		return DrawResult{}, fmt.Errorf("%w: %v", ErrLogWrite, err)
	}

	// Committed. Everything past this point must not undo the event.
	applied, err := e.st.Apply(ev)
	if err != nil {
		// Validations make this unreachable; the log and local state
		// would diverge, so it is worth a loud report.
		return DrawResult{}, fmt.Errorf("apply committed event: %w", err)
	}

	if n := len(applied.BoxesClaimed); n > 0 {
		// The gameplay incentive: a completed box refunds its cost, two
		// at once net a surplus token.
		if err := e.quota.Grant(actorID, n, now); err != nil {
			log.Printf("engine: grant %d tokens to %s: %v", n, actorID, err)
		}
	}
	if after, err := e.quota.Tokens(actorID, now); err == nil {
		remaining = after
	}
	return DrawResult{
		BoxesClaimed:   applied.BoxesClaimed,
		QuotaRemaining: remaining,
		EdgesPlaced:    e.st.EdgesPlaced(),
	}, nil
}

// refund returns tokens after a failed append. Best effort: a failed
// refund only costs the actor a token, never consistency.
func (e *Engine) refund(actorID string, n int, now time.Time) {
	if err := e.quota.Grant(actorID, n, now); err != nil {
		log.Printf("engine: refund %d tokens to %s: %v", n, actorID, err)
	}
}

// Status is a read-only summary of the game.
type Status struct {
	Epoch        time.Time
	EdgesPlaced  int
	BoxesClaimed int
	Scores       [wire.TeamCount]int
	Complete     bool
	Winner       int // state.NoTeam when tied or unfinished
}

// Status forces initialization if needed and reports the game summary.
func (e *Engine) Status(ctx context.Context) (Status, error) {
	var (
		st   Status
		rerr error
	)
	err := e.do(ctx, func() {
		if rerr = e.ensureReady(ctx); rerr != nil {
			return
		}
		winner := state.NoTeam
		if w, ok := e.st.Winner(); ok {
			winner = w
		}
		st = Status{
			Epoch:        e.epoch,
			EdgesPlaced:  e.st.EdgesPlaced(),
			BoxesClaimed: e.st.BoxesClaimed(),
			Scores:       e.st.Scores(),
			Complete:     e.st.Complete(),
			Winner:       winner,
		}
	})
	if err != nil {
		return Status{}, err
	}
	return st, rerr
}

// Scores returns a copy of the team scores.
func (e *Engine) Scores(ctx context.Context) ([wire.TeamCount]int, error) {
	st, err := e.Status(ctx)
	return st.Scores, err
}

// Snapshot exports a deep copy of the derived state for read-only
// consumers.
func (e *Engine) Snapshot(ctx context.Context) (state.Snapshot, error) {
	var (
		snap state.Snapshot
		rerr error
	)
	err := e.do(ctx, func() {
		if rerr = e.ensureReady(ctx); rerr != nil {
			return
		}
		snap = e.st.Export()
	})
	if err != nil {
		return state.Snapshot{}, err
	}
	return snap, rerr
}
