// Package state maintains the derived game state: which edges are drawn,
// who drew them, which boxes are completed, and the team scores.
//
// The state is never stored anywhere; it is reconstructed by replaying the
// append-only game log and mutated only by applying events in log order.
// Apply is idempotent for an already-taken edge, so replaying a log (or
// double-processing a request) converges on the same state.
//
// Storage is sized for grids with millions of cells: a bitset for the
// taken flags, one byte per edge for the owner, one byte per box for the
// claimant. A 1000x1000 grid costs about 3.25 MB.
//
// State is not goroutine-safe. The authoritative writer owns the single
// mutable instance; other consumers get Export copies.
package state

import (
	"fmt"
	"slices"

	"github.com/daviddao/boxline/pkg/grid"
	"github.com/daviddao/boxline/pkg/wire"
)

// NoTeam is the sentinel owner returned for untaken edges and unclaimed
// boxes. Valid team IDs are 0..wire.TeamCount-1.
const NoTeam = -1

// EndCondition decides when a game is over. Supplied by the caller; the
// engine itself has no opinion on the end rule.
type EndCondition func(*State) bool

// AllBoxesClaimed ends the game once every box has an owner.
func AllBoxesClaimed(s *State) bool {
	return s.claimed == s.grid.BoxCount()
}

// TargetScore ends the game once any team reaches n boxes.
func TargetScore(n int) EndCondition {
	return func(s *State) bool {
		for _, sc := range s.scores {
			if sc >= n {
				return true
			}
		}
		return false
	}
}

// State is the derived game state for one grid.
type State struct {
	grid     grid.Grid
	taken    []uint64 // bitset over edge IDs
	edgeOwn  []int8   // NoTeam or team ID per edge
	boxOwn   []uint8  // 0 unclaimed, teamID+1 otherwise
	scores   [wire.TeamCount]int
	placed   int // edges placed so far
	claimed  int // boxes claimed so far
	complete EndCondition
}

// Option configures a State at construction.
type Option func(*State)

// WithEndCondition overrides the default all-boxes-claimed end rule.
func WithEndCondition(c EndCondition) Option {
	return func(s *State) { s.complete = c }
}

// New returns an empty state for g: no edges taken, no boxes claimed.
func New(g grid.Grid, opts ...Option) *State {
	s := &State{
		grid:     g,
		taken:    make([]uint64, (g.EdgeCount()+63)/64),
		edgeOwn:  make([]int8, g.EdgeCount()),
		boxOwn:   make([]uint8, g.BoxCount()),
		complete: AllBoxesClaimed,
	}
	for i := range s.edgeOwn {
		s.edgeOwn[i] = NoTeam
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Grid returns the grid this state is derived for.
func (s *State) Grid() grid.Grid { return s.grid }

// EdgeTaken reports whether the edge has been placed.
func (s *State) EdgeTaken(edgeID int) bool {
	return s.taken[edgeID/64]&(1<<(uint(edgeID)%64)) != 0
}

// EdgeOwner returns the team that placed the edge, or NoTeam if untaken.
func (s *State) EdgeOwner(edgeID int) int {
	return int(s.edgeOwn[edgeID])
}

// BoxOwner returns the team owning the box, or NoTeam if unclaimed.
func (s *State) BoxOwner(boxID int) int {
	return int(s.boxOwn[boxID]) - 1
}

// Score returns one team's box count.
func (s *State) Score(team int) int { return s.scores[team] }

// Scores returns a copy of all team scores, indexed by team ID.
func (s *State) Scores() [wire.TeamCount]int { return s.scores }

// EdgesPlaced returns the number of distinct edges placed so far.
func (s *State) EdgesPlaced() int { return s.placed }

// BoxesClaimed returns the number of boxes owned by any team.
func (s *State) BoxesClaimed() int { return s.claimed }

// Complete reports whether the configured end condition holds.
func (s *State) Complete() bool { return s.complete(s) }

// Winner returns the team with the strictly highest score. If the maximum
// is shared the game has no winner and ok is false, even when complete.
func (s *State) Winner() (team int, ok bool) {
	best, ties := NoTeam, 0
	for t, sc := range s.scores {
		if best == NoTeam || sc > s.scores[best] {
			best, ties = t, 1
		} else if sc == s.scores[best] {
			ties++
		}
	}
	if ties > 1 || s.scores[best] == 0 {
		return NoTeam, false
	}
	return best, true
}

// Applied reports the effect of one Apply call.
type Applied struct {
	// Placed is false when the edge was already taken and the event was
	// ignored (replayed logs and double-processed requests land here).
	Placed bool
	// BoxesClaimed lists the 0, 1, or 2 box IDs completed by this edge.
	BoxesClaimed []int
}

// Apply executes one edge placement. The edge ID must be valid for the
// grid; the team must be in range. Events must be applied in log order.
func (s *State) Apply(e wire.Event) (Applied, error) {
	if !s.grid.ValidEdgeID(e.Edge) {
		return Applied{}, fmt.Errorf("state: edge id %d out of range [0,%d)", e.Edge, s.grid.EdgeCount())
	}
	if e.Team < 0 || e.Team >= wire.TeamCount {
		return Applied{}, fmt.Errorf("state: team %d out of range [0,%d)", e.Team, wire.TeamCount)
	}
	if s.EdgeTaken(e.Edge) {
		return Applied{}, nil
	}

	s.taken[e.Edge/64] |= 1 << (uint(e.Edge) % 64)
	s.edgeOwn[e.Edge] = int8(e.Team)
	s.placed++

	var res Applied
	res.Placed = true
	boxes, _ := s.grid.BoxesTouching(e.Edge)
	for _, b := range boxes {
		id := s.grid.BoxID(b.X, b.Y)
		if s.boxOwn[id] != 0 {
			continue
		}
		if s.boxComplete(b.X, b.Y) {
			s.boxOwn[id] = uint8(e.Team) + 1
			s.scores[e.Team]++
			s.claimed++
			res.BoxesClaimed = append(res.BoxesClaimed, id)
		}
	}
	return res, nil
}

// boxComplete reports whether all four bounding edges of box (x, y) are taken.
func (s *State) boxComplete(x, y int) bool {
	for _, e := range s.grid.BoxEdges(x, y) {
		if !s.EdgeTaken(e) {
			return false
		}
	}
	return true
}

// Snapshot is a deep copy of the derived state, safe to hand to other
// consumers and to Import back into a fresh State.
type Snapshot struct {
	W, H      int
	Taken     []uint64
	EdgeOwner []int8
	BoxOwner  []uint8
	Scores    [wire.TeamCount]int
	Placed    int
	Claimed   int
}

// Export returns a deep copy of all derived facts.
func (s *State) Export() Snapshot {
	return Snapshot{
		W:         s.grid.W,
		H:         s.grid.H,
		Taken:     slices.Clone(s.taken),
		EdgeOwner: slices.Clone(s.edgeOwn),
		BoxOwner:  slices.Clone(s.boxOwn),
		Scores:    s.scores,
		Placed:    s.placed,
		Claimed:   s.claimed,
	}
}

// Import replaces the state with a snapshot previously produced by Export
// on a state for the same grid dimensions.
func (s *State) Import(snap Snapshot) error {
	if snap.W != s.grid.W || snap.H != s.grid.H {
		return fmt.Errorf("state: snapshot is for a %dx%d grid, state is %dx%d",
			snap.W, snap.H, s.grid.W, s.grid.H)
	}
	if len(snap.Taken) != len(s.taken) || len(snap.EdgeOwner) != len(s.edgeOwn) ||
		len(snap.BoxOwner) != len(s.boxOwn) {
		return fmt.Errorf("state: snapshot arrays do not match grid size")
	}
	s.taken = slices.Clone(snap.Taken)
	s.edgeOwn = slices.Clone(snap.EdgeOwner)
	s.boxOwn = slices.Clone(snap.BoxOwner)
	s.scores = snap.Scores
	s.placed = snap.Placed
	s.claimed = snap.Claimed
	return nil
}
