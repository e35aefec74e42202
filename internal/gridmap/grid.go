// Package gridmap models the 4-connected grid every agent plans over.
package gridmap

// Orientation is one of the four cardinal headings an agent may face.
// Only North is meaningful on a grid with no turn cost, but the type is
// carried through the path table and planner so a richer kinematic
// model (e.g. turn-in-place cost) can be layered on later.
type Orientation int

const (
	North Orientation = 0
	East  Orientation = 1
	South Orientation = 2
	West  Orientation = 3
)

// NumOrientations is the size of the orientation dimension used to size
// path-table and constraint-table slabs.
const NumOrientations = 4

var deltaRow = [NumOrientations]int{-1, 0, 1, 0}
var deltaCol = [NumOrientations]int{0, 1, 0, -1}

// Cell is a linearized (row, col) location: row*Cols+col.
type Cell int

// Grid is a rectangular 4-connected grid with obstacle cells.
type Grid struct {
	Rows, Cols int
	obstacle   []bool // len Rows*Cols
}

// NewGrid builds a Rows x Cols grid with every cell traversable.
func NewGrid(rows, cols int) *Grid {
	return &Grid{Rows: rows, Cols: cols, obstacle: make([]bool, rows*cols)}
}

// Size returns the number of cells in the grid.
func (g *Grid) Size() int { return g.Rows * g.Cols }

// RowCol decomposes a cell into its row and column.
func (g *Grid) RowCol(c Cell) (row, col int) {
	return int(c) / g.Cols, int(c) % g.Cols
}

// CellAt linearizes a (row, col) pair; returns -1 if out of bounds.
func (g *Grid) CellAt(row, col int) Cell {
	if row < 0 || row >= g.Rows || col < 0 || col >= g.Cols {
		return -1
	}
	return Cell(row*g.Cols + col)
}

// InBounds reports whether c indexes a real cell.
func (g *Grid) InBounds(c Cell) bool {
	return c >= 0 && int(c) < g.Size()
}

// SetObstacle marks or clears a cell as an obstacle.
func (g *Grid) SetObstacle(c Cell, blocked bool) {
	g.obstacle[c] = blocked
}

// IsObstacle reports whether a cell is blocked. Out-of-bounds cells
// count as obstacles so callers can skip a bounds check before it.
func (g *Grid) IsObstacle(c Cell) bool {
	if !g.InBounds(c) {
		return true
	}
	return g.obstacle[c]
}

// Move returns the cell reached by moving one step in o from c, or -1
// if that step leaves the grid or enters an obstacle.
func (g *Grid) Move(c Cell, o Orientation) Cell {
	row, col := g.RowCol(c)
	next := g.CellAt(row+deltaRow[o], col+deltaCol[o])
	if next == -1 || g.IsObstacle(next) {
		return -1
	}
	return next
}

// Neighbors returns the up-to-four traversable cells 4-adjacent to c.
func (g *Grid) Neighbors(c Cell) []Cell {
	out := make([]Cell, 0, NumOrientations)
	for o := Orientation(0); o < NumOrientations; o++ {
		if n := g.Move(c, o); n != -1 {
			out = append(out, n)
		}
	}
	return out
}

// ManhattanDistance returns the unweighted grid distance between two
// cells, ignoring obstacles. It is admissible and consistent on a
// unit-cost 4-connected grid, but it can underestimate badly around
// obstacles; callers needing a tight admissible bound should use
// Heuristic instead.
func (g *Grid) ManhattanDistance(a, b Cell) int {
	ar, ac := g.RowCol(a)
	br, bc := g.RowCol(b)
	return abs(ar-br) + abs(ac-bc)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// Heuristic is a precomputed admissible, consistent single-source
// shortest-path distance table rooted at one goal cell, built by a
// breadth-first search over the obstacle-free adjacency graph. A grid
// is unweighted, so BFS distance equals true shortest-path distance.
type Heuristic struct {
	goal Cell
	dist []int
}

// NoPath marks a cell BFS never reached from the heuristic's goal.
const NoPath = -1

// BuildHeuristic runs a single-source BFS from goal and returns a
// Heuristic usable for every subsequent lookup against that goal.
func BuildHeuristic(g *Grid, goal Cell) *Heuristic {
	dist := make([]int, g.Size())
	for i := range dist {
		dist[i] = NoPath
	}
	dist[goal] = 0
	queue := make([]Cell, 0, g.Size())
	queue = append(queue, goal)
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, n := range g.Neighbors(cur) {
			if dist[n] == NoPath {
				dist[n] = dist[cur] + 1
				queue = append(queue, n)
			}
		}
	}
	return &Heuristic{goal: goal, dist: dist}
}

// Value returns the admissible distance from c to this heuristic's
// goal, or a very large sentinel if c cannot reach the goal at all.
func (h *Heuristic) Value(c Cell) int {
	d := h.dist[c]
	if d == NoPath {
		return 1 << 30
	}
	return d
}

// Goal returns the cell this heuristic was built for.
func (h *Heuristic) Goal() Cell {
	return h.goal
}
