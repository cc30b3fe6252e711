// Package grid implements the coordinate algebra for a dots-and-boxes
// playing field.
//
// A W×H grid of boxes is bounded by discrete line segments ("edges").
// Horizontal edges form H+1 rows of W segments; vertical edges form H rows
// of W+1 segments. Every edge has a dense integer ID:
//
//	horizontal (x, y): id = y*W + x          x ∈ [0,W), y ∈ [0,H]
//	vertical   (x, y): id = HE + y*(W+1) + x x ∈ [0,W], y ∈ [0,H)
//
// where HE = W*(H+1) is the horizontal edge count. Box IDs are dense too:
// box (x, y) has id y*W + x. The mappings are bijections; EdgeID and
// EdgeCoordOf round-trip exactly, as do BoxID and BoxCoordOf.
//
// Everything here is pure O(1) arithmetic. The rest of the engine treats
// ValidEdgeID as the single admission gate: an edge ID that passes it is
// safe to hand to every other function in this package.
package grid

import "fmt"

// Orientation distinguishes the two edge families.
type Orientation uint8

const (
	Horizontal Orientation = iota
	Vertical
)

func (o Orientation) String() string {
	if o == Horizontal {
		return "h"
	}
	return "v"
}

// MaxEdges is the largest edge space the 3-byte wire record can address
// (22 bits of edge ID alongside a 2-bit team field).
const MaxEdges = 1 << 22

// Grid describes a W×H field of boxes. The zero value is not usable;
// construct with New.
type Grid struct {
	W int
	H int
}

// New validates the dimensions and returns a Grid. The edge space must fit
// the wire format's 22-bit edge ID.
func New(w, h int) (Grid, error) {
	if w <= 0 || h <= 0 {
		return Grid{}, fmt.Errorf("grid: dimensions must be positive, got %dx%d", w, h)
	}
	g := Grid{W: w, H: h}
	if g.EdgeCount() > MaxEdges {
		return Grid{}, fmt.Errorf("grid: %dx%d needs %d edges, wire format allows %d",
			w, h, g.EdgeCount(), MaxEdges)
	}
	return g, nil
}

// HorizontalEdges returns the number of horizontal edges, W*(H+1).
func (g Grid) HorizontalEdges() int { return g.W * (g.H + 1) }

// VerticalEdges returns the number of vertical edges, H*(W+1).
func (g Grid) VerticalEdges() int { return g.H * (g.W + 1) }

// EdgeCount returns the total edge count E. Edge IDs are dense in [0, E).
func (g Grid) EdgeCount() int { return g.HorizontalEdges() + g.VerticalEdges() }

// BoxCount returns W*H. Box IDs are dense in [0, BoxCount).
func (g Grid) BoxCount() int { return g.W * g.H }

// EdgeCoord locates one edge by its lattice position and orientation.
// For horizontal edges (x, y) is the left endpoint's box column and the
// row of the edge line; for vertical edges the column of the edge line
// and the box row.
type EdgeCoord struct {
	X, Y int
	O    Orientation
}

// BoxCoord locates one box.
type BoxCoord struct {
	X, Y int
}

// ValidEdgeID reports whether id addresses an edge of this grid. This is
// the only range check callers need before using id elsewhere.
func (g Grid) ValidEdgeID(id int) bool {
	return id >= 0 && id < g.EdgeCount()
}

// ValidBoxID reports whether id addresses a box of this grid.
func (g Grid) ValidBoxID(id int) bool {
	return id >= 0 && id < g.BoxCount()
}

// ValidEdgeCoord reports whether c addresses an edge of this grid.
func (g Grid) ValidEdgeCoord(c EdgeCoord) bool {
	switch c.O {
	case Horizontal:
		return c.X >= 0 && c.X < g.W && c.Y >= 0 && c.Y <= g.H
	case Vertical:
		return c.X >= 0 && c.X <= g.W && c.Y >= 0 && c.Y < g.H
	}
	return false
}

// EdgeID maps an edge coordinate to its dense ID.
func (g Grid) EdgeID(c EdgeCoord) (int, error) {
	if !g.ValidEdgeCoord(c) {
		return 0, fmt.Errorf("grid: edge coordinate (%d,%d,%s) out of range for %dx%d",
			c.X, c.Y, c.O, g.W, g.H)
	}
	if c.O == Horizontal {
		return c.Y*g.W + c.X, nil
	}
	return g.HorizontalEdges() + c.Y*(g.W+1) + c.X, nil
}

// EdgeCoordOf maps a dense edge ID back to its coordinate.
func (g Grid) EdgeCoordOf(id int) (EdgeCoord, error) {
	if !g.ValidEdgeID(id) {
		return EdgeCoord{}, fmt.Errorf("grid: edge id %d out of range [0,%d)", id, g.EdgeCount())
	}
	if he := g.HorizontalEdges(); id < he {
		return EdgeCoord{X: id % g.W, Y: id / g.W, O: Horizontal}, nil
	} else {
		v := id - he
		return EdgeCoord{X: v % (g.W + 1), Y: v / (g.W + 1), O: Vertical}, nil
	}
}

// BoxID maps box coordinates to the dense box ID.
func (g Grid) BoxID(x, y int) int { return y*g.W + x }

// BoxCoordOf maps a dense box ID back to coordinates.
func (g Grid) BoxCoordOf(id int) BoxCoord {
	return BoxCoord{X: id % g.W, Y: id / g.W}
}

// BoxesTouching returns the boxes adjacent to an edge: two for interior
// edges, one for boundary edges. A horizontal edge at row y separates box
// row y-1 (above) from box row y (below); a vertical edge at column x
// separates box column x-1 (left) from box column x (right).
func (g Grid) BoxesTouching(edgeID int) ([]BoxCoord, error) {
	c, err := g.EdgeCoordOf(edgeID)
	if err != nil {
		return nil, err
	}
	boxes := make([]BoxCoord, 0, 2)
	if c.O == Horizontal {
		if c.Y > 0 {
			boxes = append(boxes, BoxCoord{X: c.X, Y: c.Y - 1})
		}
		if c.Y < g.H {
			boxes = append(boxes, BoxCoord{X: c.X, Y: c.Y})
		}
	} else {
		if c.X > 0 {
			boxes = append(boxes, BoxCoord{X: c.X - 1, Y: c.Y})
		}
		if c.X < g.W {
			boxes = append(boxes, BoxCoord{X: c.X, Y: c.Y})
		}
	}
	return boxes, nil
}

// BoxEdges returns the four edges bounding box (x, y) in the order
// top, bottom, left, right. The box coordinate must be in range.
func (g Grid) BoxEdges(x, y int) [4]int {
	he := g.HorizontalEdges()
	return [4]int{
		y*g.W + x,              // top:    h(x, y)
		(y+1)*g.W + x,          // bottom: h(x, y+1)
		he + y*(g.W+1) + x,     // left:   v(x, y)
		he + y*(g.W+1) + x + 1, // right:  v(x+1, y)
	}
}
