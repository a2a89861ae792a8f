package tetris

import (
	"fmt"
	"io"
	"strings"
)

// Stack is the playfield behind a Tetris session. It owns the locked cells
// and answers every legality question the session asks before mutating its
// active tetromino. Grid is the slice backed implementation.
type Stack interface {
	// CanBeAdded reports whether t fits the stack at its current position.
	CanBeAdded(t *Tetromino) bool
	// AddTetromino writes the occupied cells of t into the stack.
	AddTetromino(t *Tetromino)
	// DeleteTetromino erases the occupied cells of t from the stack.
	DeleteTetromino(t *Tetromino)
	// CheckLines removes every complete row and returns how many were removed.
	CheckLines() int
	// CheckHorizontalMovement reports whether t can be walked to col using
	// single column shifts and clockwise rotations and end in its current
	// orientation.
	CheckHorizontalMovement(t *Tetromino, col int) bool
	// Render returns a copy of the stack with active drawn on it. A nil
	// active returns the same as Snapshot.
	Render(active *Tetromino) [][]Shape
	// Snapshot returns a copy of the locked cells.
	Snapshot() [][]Shape
	Size() (rows, cols int)
}

// Grid is a rows x cols stack. Row 0 is the top row.
//
//	.	0 1 2 3 4 5 6 7 8 9
//	0	. . . I I I I . . .
//	1	. . . . . . . . . .
//	..
//	19	Z Z . . . . . . O O
type Grid struct {
	cells [][]Shape
	rows  int
	cols  int
}

func NewGrid(rows, cols int) (*Grid, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("%w: rows %d cols %d", ErrInvalidDimensions, rows, cols)
	}
	g := &Grid{
		cells: make([][]Shape, rows),
		rows:  rows,
		cols:  cols,
	}
	for i := range g.cells {
		g.cells[i] = make([]Shape, cols)
	}
	return g, nil
}

func (g *Grid) Size() (rows, cols int) { return g.rows, g.cols }

// Set writes a single cell. Out of bounds positions are ignored.
func (g *Grid) Set(row, col int, s Shape) {
	if g.inBounds(row, col) {
		g.cells[row][col] = s
	}
}

// Get returns the cell at row, col or Empty when out of bounds.
func (g *Grid) Get(row, col int) Shape {
	if !g.inBounds(row, col) {
		return Empty
	}
	return g.cells[row][col]
}

// CanBeAdded checks every cell of the tetromino's bounding box. The whole box
// must be inside the stack and no occupied cell of the tetromino can sit on
// an occupied cell of the stack.
func (g *Grid) CanBeAdded(t *Tetromino) bool {
	for i := range t.rows {
		for j := range t.cols {
			row, col := t.Row+i, t.Col+j
			if !g.inBounds(row, col) {
				return false
			}
			if g.cells[row][col] != Empty && t.occupied(i, j) {
				return false
			}
		}
	}
	return true
}

func (g *Grid) AddTetromino(t *Tetromino) {
	g.paint(g.cells, t, false)
}

func (g *Grid) DeleteTetromino(t *Tetromino) {
	g.paint(g.cells, t, true)
}

// paint writes or erases the occupied cells of t into cells.
func (g *Grid) paint(cells [][]Shape, t *Tetromino, erase bool) {
	for i := range t.rows {
		for j := range t.cols {
			if !t.occupied(i, j) || !g.inBounds(t.Row+i, t.Col+j) {
				continue
			}
			if erase {
				cells[t.Row+i][t.Col+j] = Empty
			} else {
				cells[t.Row+i][t.Col+j] = t.cell(i, j)
			}
		}
	}
}

// CheckLines scans the stack bottom to top. A complete row is removed by
// moving every row above it one row down and emptying row 0. The same index
// is checked again afterwards since a new row was moved into it.
func (g *Grid) CheckLines() int {
	var cleared int
	for i := g.rows - 1; i >= 0; i-- {
		if g.isComplete(i) {
			g.deleteLine(i)
			cleared++
			i++
		}
	}
	return cleared
}

func (g *Grid) isComplete(row int) bool {
	for _, c := range g.cells[row] {
		if c == Empty {
			return false
		}
	}
	return true
}

func (g *Grid) deleteLine(row int) {
	for i := row - 1; i >= 0; i-- {
		copy(g.cells[i+1], g.cells[i])
	}
	clear(g.cells[0])
}

// CheckHorizontalMovement walks a copy of t one column at a time towards col.
// When a step is blocked it tries up to three clockwise rotations at the new
// column. Once at col the copy is rotated back into t's orientation, which
// has to fit as well.
func (g *Grid) CheckHorizontalMovement(t *Tetromino, col int) bool {
	test := t.Copy()
	start := test.Col
	for {
		if !g.CanBeAdded(test) {
			return false
		}

		if test.Col == col {
			// four rotations always bring a tetromino back to itself.
			for range 4 {
				if test.Equal(t) {
					break
				}
				test.Rotate(Clockwise)
			}
			return g.CanBeAdded(test)
		}

		if col < start {
			test.Left()
		} else {
			test.Right()
		}
		if g.CanBeAdded(test) {
			continue
		}
		var fits bool
		for range 3 {
			test.Rotate(Clockwise)
			if g.CanBeAdded(test) {
				fits = true
				break
			}
		}
		if !fits {
			return false
		}
	}
}

// Render draws active on a scratch copy of the stack.
func (g *Grid) Render(active *Tetromino) [][]Shape {
	rendered := g.Snapshot()
	if active != nil {
		g.paint(rendered, active, false)
	}
	return rendered
}

func (g *Grid) Snapshot() [][]Shape {
	snapshot := make([][]Shape, g.rows)
	for i := range g.cells {
		snapshot[i] = make([]Shape, g.cols)
		copy(snapshot[i], g.cells[i])
	}
	return snapshot
}

// Draw writes the rendered stack to w, one line per row, with '*' standing
// for an empty cell.
func (g *Grid) Draw(w io.Writer, active *Tetromino) error {
	return Draw(w, g.Render(active))
}

// Draw writes a rendered stack to w, one line per row, with '*' standing for
// an empty cell.
func Draw(w io.Writer, rendered [][]Shape) error {
	var sb strings.Builder
	for _, r := range rendered {
		for _, c := range r {
			if c == Empty {
				sb.WriteByte('*')
			} else {
				sb.WriteString(string(c))
			}
		}
		sb.WriteByte('\n')
	}
	if _, err := io.WriteString(w, sb.String()); err != nil {
		return fmt.Errorf("failed to draw stack: %w", err)
	}
	return nil
}

func (g *Grid) inBounds(row, col int) bool {
	return row >= 0 && row < g.rows && col >= 0 && col < g.cols
}
