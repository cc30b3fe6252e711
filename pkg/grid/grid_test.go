package grid

import "testing"

func mustGrid(t *testing.T, w, h int) Grid {
	t.Helper()
	g, err := New(w, h)
	if err != nil {
		t.Fatalf("New(%d,%d): %v", w, h, err)
	}
	return g
}

func TestNewRejectsBadDimensions(t *testing.T) {
	for _, dims := range [][2]int{{0, 5}, {5, 0}, {-1, 3}, {3, -1}} {
		if _, err := New(dims[0], dims[1]); err == nil {
			t.Errorf("New(%d,%d): expected error", dims[0], dims[1])
		}
	}
}

func TestNewRejectsOversizedEdgeSpace(t *testing.T) {
	// 1448x1448 produces 2*1448*1449 = 4_196_304 edges, over the 22-bit cap.
	if _, err := New(1448, 1448); err == nil {
		t.Fatal("expected error for edge space over the wire limit")
	}
	// 1447x1447 fits.
	mustGrid(t, 1447, 1447)
}

func TestEdgeCounts(t *testing.T) {
	g := mustGrid(t, 3, 2)
	if got := g.HorizontalEdges(); got != 9 {
		t.Errorf("HorizontalEdges = %d, want 9", got)
	}
	if got := g.VerticalEdges(); got != 8 {
		t.Errorf("VerticalEdges = %d, want 8", got)
	}
	if got := g.EdgeCount(); got != 17 {
		t.Errorf("EdgeCount = %d, want 17", got)
	}
	if got := g.BoxCount(); got != 6 {
		t.Errorf("BoxCount = %d, want 6", got)
	}
}

func TestEdgeRoundTripAllIDs(t *testing.T) {
	g := mustGrid(t, 7, 5)
	for id := 0; id < g.EdgeCount(); id++ {
		c, err := g.EdgeCoordOf(id)
		if err != nil {
			t.Fatalf("EdgeCoordOf(%d): %v", id, err)
		}
		back, err := g.EdgeID(c)
		if err != nil {
			t.Fatalf("EdgeID(%+v): %v", c, err)
		}
		if back != id {
			t.Fatalf("round-trip %d -> %+v -> %d", id, c, back)
		}
	}
}

func TestEdgeRoundTripAllCoords(t *testing.T) {
	g := mustGrid(t, 4, 6)
	seen := make(map[int]bool)
	coords := 0
	for y := 0; y <= g.H; y++ {
		for x := 0; x < g.W; x++ {
			c := EdgeCoord{X: x, Y: y, O: Horizontal}
			id, err := g.EdgeID(c)
			if err != nil {
				t.Fatalf("EdgeID(%+v): %v", c, err)
			}
			back, _ := g.EdgeCoordOf(id)
			if back != c {
				t.Fatalf("round-trip %+v -> %d -> %+v", c, id, back)
			}
			seen[id] = true
			coords++
		}
	}
	for y := 0; y < g.H; y++ {
		for x := 0; x <= g.W; x++ {
			c := EdgeCoord{X: x, Y: y, O: Vertical}
			id, err := g.EdgeID(c)
			if err != nil {
				t.Fatalf("EdgeID(%+v): %v", c, err)
			}
			back, _ := g.EdgeCoordOf(id)
			if back != c {
				t.Fatalf("round-trip %+v -> %d -> %+v", c, id, back)
			}
			seen[id] = true
			coords++
		}
	}
	if coords != g.EdgeCount() || len(seen) != g.EdgeCount() {
		t.Fatalf("covered %d coords, %d distinct ids, want %d", coords, len(seen), g.EdgeCount())
	}
}

func TestValidEdgeID(t *testing.T) {
	g := mustGrid(t, 3, 3)
	for _, id := range []int{-1, g.EdgeCount(), g.EdgeCount() + 100} {
		if g.ValidEdgeID(id) {
			t.Errorf("ValidEdgeID(%d) = true, want false", id)
		}
	}
	if !g.ValidEdgeID(0) || !g.ValidEdgeID(g.EdgeCount()-1) {
		t.Error("boundary ids should be valid")
	}
}

func TestEdgeIDRejectsBadCoords(t *testing.T) {
	g := mustGrid(t, 3, 3)
	bad := []EdgeCoord{
		{X: 3, Y: 0, O: Horizontal},  // x == W
		{X: 0, Y: 4, O: Horizontal},  // y > H
		{X: 4, Y: 0, O: Vertical},    // x > W
		{X: 0, Y: 3, O: Vertical},    // y == H
		{X: -1, Y: 0, O: Horizontal}, // negative
		{X: 0, Y: 0, O: Orientation(9)},
	}
	for _, c := range bad {
		if _, err := g.EdgeID(c); err == nil {
			t.Errorf("EdgeID(%+v): expected error", c)
		}
	}
}

func TestBoxesTouchingInterior(t *testing.T) {
	g := mustGrid(t, 5, 5)
	// h(2,3) separates boxes (2,2) above and (2,3) below.
	id, _ := g.EdgeID(EdgeCoord{X: 2, Y: 3, O: Horizontal})
	boxes, err := g.BoxesTouching(id)
	if err != nil {
		t.Fatal(err)
	}
	if len(boxes) != 2 || boxes[0] != (BoxCoord{2, 2}) || boxes[1] != (BoxCoord{2, 3}) {
		t.Fatalf("BoxesTouching(h(2,3)) = %v, want [(2,2) (2,3)]", boxes)
	}
	// v(3,1) separates boxes (2,1) left and (3,1) right.
	id, _ = g.EdgeID(EdgeCoord{X: 3, Y: 1, O: Vertical})
	boxes, err = g.BoxesTouching(id)
	if err != nil {
		t.Fatal(err)
	}
	if len(boxes) != 2 || boxes[0] != (BoxCoord{2, 1}) || boxes[1] != (BoxCoord{3, 1}) {
		t.Fatalf("BoxesTouching(v(3,1)) = %v, want [(2,1) (3,1)]", boxes)
	}
}

func TestBoxesTouchingBoundary(t *testing.T) {
	g := mustGrid(t, 4, 4)
	cases := []struct {
		c    EdgeCoord
		want BoxCoord
	}{
		{EdgeCoord{X: 1, Y: 0, O: Horizontal}, BoxCoord{1, 0}}, // top border
		{EdgeCoord{X: 1, Y: 4, O: Horizontal}, BoxCoord{1, 3}}, // bottom border
		{EdgeCoord{X: 0, Y: 2, O: Vertical}, BoxCoord{0, 2}},   // left border
		{EdgeCoord{X: 4, Y: 2, O: Vertical}, BoxCoord{3, 2}},   // right border
	}
	for _, tc := range cases {
		id, _ := g.EdgeID(tc.c)
		boxes, err := g.BoxesTouching(id)
		if err != nil {
			t.Fatal(err)
		}
		if len(boxes) != 1 || boxes[0] != tc.want {
			t.Errorf("BoxesTouching(%+v) = %v, want [%v]", tc.c, boxes, tc.want)
		}
	}
}

func TestBoxEdgesConsistentWithTouching(t *testing.T) {
	g := mustGrid(t, 6, 4)
	for y := 0; y < g.H; y++ {
		for x := 0; x < g.W; x++ {
			for _, e := range g.BoxEdges(x, y) {
				boxes, err := g.BoxesTouching(e)
				if err != nil {
					t.Fatalf("BoxesTouching(%d): %v", e, err)
				}
				found := false
				for _, b := range boxes {
					if b.X == x && b.Y == y {
						found = true
					}
				}
				if !found {
					t.Fatalf("box (%d,%d) not adjacent to its own bounding edge %d", x, y, e)
				}
			}
		}
	}
}

func TestBoxIDRoundTrip(t *testing.T) {
	g := mustGrid(t, 9, 3)
	for id := 0; id < g.BoxCount(); id++ {
		c := g.BoxCoordOf(id)
		if back := g.BoxID(c.X, c.Y); back != id {
			t.Fatalf("box round-trip %d -> %v -> %d", id, c, back)
		}
	}
}
