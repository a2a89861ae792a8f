package tetris

import (
	"fmt"
	"strings"
)

// frameSize is the side of the square frame every tetromino lives in.
const frameSize = 4

type Shape string

const (
	Empty Shape = ""
	I     Shape = "I"
	O     Shape = "O"
	T     Shape = "T"
	J     Shape = "J"
	L     Shape = "L"
	S     Shape = "S"
	Z     Shape = "Z"
)

// Shapes lists every playable shape in a stable order.
var Shapes = []Shape{I, O, T, J, L, S, Z}

type Direction int

const (
	Clockwise Direction = iota
	CounterClockwise
)

/*
.	Shape patterns as drawn in the top-left corner of the 4x4 frame.

.	I		O		T		J		L		S		Z

0	O O O O	O O		X O X	O X X	X X O	X O O	O O X

1			O O		O O O	O O O	O O O	O O X	X O O
*/
var patterns = map[Shape][]string{
	I: {"####"},
	O: {"##", "##"},
	T: {".#.", "###"},
	J: {"#..", "###"},
	L: {"..#", "###"},
	S: {".##", "##."},
	Z: {"##.", ".##"},
}

// Tetromino is a piece inside a 4x4 frame. The occupied cells are always
// packed against the top-left corner of the frame so rows x cols is the tight
// bounding box of the piece.
//
// Row and Col are the board position of the bounding box's top-left cell.
// Row 0 is the top of the board and grows downwards.
type Tetromino struct {
	Row int
	Col int

	cells [frameSize][frameSize]Shape
	rows  int
	cols  int
	shape Shape
}

func NewTetromino(s Shape) (*Tetromino, error) {
	t := &Tetromino{}
	if err := t.init(s); err != nil {
		return nil, err
	}
	return t, nil
}

// MustTetromino is like NewTetromino but panics on an unknown shape.
func MustTetromino(s Shape) *Tetromino {
	t, err := NewTetromino(s)
	if err != nil {
		panic(err)
	}
	return t
}

func (t *Tetromino) init(s Shape) error {
	p, ok := patterns[s]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownShape, s)
	}
	t.cells = [frameSize][frameSize]Shape{}
	for ir, r := range p {
		for ic, c := range r {
			if c == '#' {
				t.cells[ir][ic] = s
			}
		}
	}
	t.rows = len(p)
	t.cols = len(p[0])
	t.shape = s
	t.normalize()
	return nil
}

// ChangeShape replaces the piece with another shape keeping its position.
func (t *Tetromino) ChangeShape(s Shape) error {
	return t.init(s)
}

// Rotate turns the frame 90 degrees and packs the piece back into the
// top-left corner. Width and height of the bounding box are swapped.
func (t *Tetromino) Rotate(d Direction) {
	var rotated [frameSize][frameSize]Shape
	for i := range frameSize {
		for j := range frameSize {
			if d == Clockwise {
				rotated[j][frameSize-1-i] = t.cells[i][j]
			} else {
				rotated[frameSize-1-j][i] = t.cells[i][j]
			}
		}
	}
	t.cells = rotated
	t.normalize()
	t.rows, t.cols = t.cols, t.rows
}

func (t *Tetromino) Lower() { t.Row++ }
func (t *Tetromino) Left()  { t.Col-- }
func (t *Tetromino) Right() { t.Col++ }

// Copy returns a deep copy of the tetromino.
func (t *Tetromino) Copy() *Tetromino {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

// Equal compares the bounding box size and the cells inside it. The position
// on the board is not part of the comparison.
func (t *Tetromino) Equal(o *Tetromino) bool {
	if t == nil || o == nil {
		return t == o
	}
	if t.rows != o.rows || t.cols != o.cols {
		return false
	}
	for i := range t.rows {
		for j := range t.cols {
			if t.cells[i][j] != o.cells[i][j] {
				return false
			}
		}
	}
	return true
}

// Line returns a copy of the i-th row of the bounding box.
func (t *Tetromino) Line(i int) ([]Shape, error) {
	if i < 0 || i >= t.rows {
		return nil, fmt.Errorf("%w: line %d of %d", ErrOutOfRange, i, t.rows)
	}
	line := make([]Shape, t.cols)
	copy(line, t.cells[i][:t.cols])
	return line, nil
}

func (t *Tetromino) Size() (rows, cols int)     { return t.rows, t.cols }
func (t *Tetromino) Position() (row, col int)   { return t.Row, t.Col }
func (t *Tetromino) SetPosition(row, col int)   { t.Row, t.Col = row, col }
func (t *Tetromino) Shape() Shape               { return t.shape }
func (t *Tetromino) cell(row, col int) Shape    { return t.cells[row][col] }
func (t *Tetromino) occupied(row, col int) bool { return t.cells[row][col] != Empty }

// LeftMostBottom returns the frame index of the left-most occupied cell of
// the bottom row of the bounding box.
func (t *Tetromino) LeftMostBottom() (row, col int) {
	row = t.rows - 1
	for col = 0; col < frameSize; col++ {
		if t.occupied(row, col) {
			break
		}
	}
	return row, col
}

func (t *Tetromino) String() string {
	var sb strings.Builder
	for i := range t.rows {
		for j := range t.cols {
			if c := t.cells[i][j]; c != Empty {
				sb.WriteString(string(c))
			} else {
				sb.WriteByte('.')
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// normalize moves the occupied cells to the top-left corner of the frame.
func (t *Tetromino) normalize() {
	if t.isBlank() {
		return
	}
	for t.isTopRowEmpty() {
		t.shiftUp()
	}
	for t.isLeftColEmpty() {
		t.shiftLeft()
	}
}

func (t *Tetromino) isBlank() bool {
	for i := range frameSize {
		for j := range frameSize {
			if t.occupied(i, j) {
				return false
			}
		}
	}
	return true
}

func (t *Tetromino) isTopRowEmpty() bool {
	for j := range frameSize {
		if t.occupied(0, j) {
			return false
		}
	}
	return true
}

func (t *Tetromino) isLeftColEmpty() bool {
	for i := range frameSize {
		if t.occupied(i, 0) {
			return false
		}
	}
	return true
}

func (t *Tetromino) shiftUp() {
	for i := 1; i < frameSize; i++ {
		t.cells[i-1] = t.cells[i]
	}
	t.cells[frameSize-1] = [frameSize]Shape{}
}

func (t *Tetromino) shiftLeft() {
	for i := range frameSize {
		for j := 1; j < frameSize; j++ {
			t.cells[i][j-1] = t.cells[i][j]
		}
		t.cells[i][frameSize-1] = Empty
	}
}
