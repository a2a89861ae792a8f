// Package tetris contains the logic of the game: tetrominoes, the stack they
// fall into and the session state machine that drives a falling tetromino
// through it.
package tetris

import (
	"sync"
)

// Tetris is a game session over a Stack. It holds at most one active
// tetromino and every movement is tested on a copy before it's applied, so a
// blocked movement leaves the session untouched.
//
// The session is running until a tetromino can't be added at the spawn
// location. That state is final.
type Tetris struct {
	stack     Stack
	tetromino *Tetromino
	running   bool
	active    bool
	moves     int
	lines     int

	mu sync.RWMutex
}

// New returns a session over an empty rows x cols Grid.
func New(rows, cols int) (*Tetris, error) {
	g, err := NewGrid(rows, cols)
	if err != nil {
		return nil, err
	}
	return NewWithStack(g), nil
}

func NewWithStack(s Stack) *Tetris {
	return &Tetris{
		stack:   s,
		running: true,
	}
}

// Add places t at the top row, centered, as the new active tetromino. If it
// doesn't fit the game is over.
//
//	.	0 1 2 3 4 5 6 7 8 9
//	0	. . . O O O O . . .		(10 - 4) / 2 = 3
//	0	. . . . O . . . . .		(10 - 3) / 2 = 3
//	1	. . . O O O . . . .
func (t *Tetris) Add(tm *Tetromino) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.add(tm)
}

func (t *Tetris) add(tm *Tetromino) {
	if !t.running {
		return
	}
	_, cols := t.stack.Size()
	tm.SetPosition(0, (cols-tm.cols)/2)
	t.tetromino = tm
	if !t.stack.CanBeAdded(tm) {
		t.running = false
		t.active = false
		return
	}
	t.active = true
}

// Lower moves the active tetromino one row down. When it can't move it's
// locked into the stack, complete lines are removed and the number of removed
// lines is returned.
func (t *Tetris) Lower() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lower()
}

func (t *Tetris) lower() int {
	if !t.playing() {
		return 0
	}
	if t.try(func(c *Tetromino) { c.Lower() }) {
		t.moves++
		return 0
	}
	t.stack.AddTetromino(t.tetromino)
	t.active = false
	n := t.stack.CheckLines()
	t.lines += n
	return n
}

func (t *Tetris) MoveLeft() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.moveLeft()
}

func (t *Tetris) moveLeft() bool {
	if t.playing() && t.try(func(c *Tetromino) { c.Left() }) {
		t.moves++
		return true
	}
	return false
}

func (t *Tetris) MoveRight() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.moveRight()
}

func (t *Tetris) moveRight() bool {
	if t.playing() && t.try(func(c *Tetromino) { c.Right() }) {
		t.moves++
		return true
	}
	return false
}

// Rotate rotates the active tetromino clockwise. Rotations are not counted as
// moves.
func (t *Tetris) Rotate() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rotate()
}

func (t *Tetris) rotate() bool {
	return t.playing() && t.try(func(c *Tetromino) { c.Rotate(Clockwise) })
}

// Drop lowers the active tetromino until it's locked and returns the number
// of removed lines.
func (t *Tetris) Drop() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	for t.playing() {
		if n := t.lower(); !t.active {
			return n
		}
	}
	return 0
}

// CanReach reports whether the active tetromino can be walked to col and keep
// its current orientation.
func (t *Tetris) CanReach(col int) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.playing() && t.stack.CheckHorizontalMovement(t.tetromino, col)
}

// SlideTo walks the active tetromino to col when CanReach allows it. It
// follows the same path CheckHorizontalMovement searches: one column at a
// time, trying up to three clockwise rotations at the new column when the
// shift is blocked, and turning back into the original orientation at col.
// Every column step counts as a move. It reports whether the tetromino ended
// at col.
func (t *Tetris) SlideTo(col int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.playing() || !t.stack.CheckHorizontalMovement(t.tetromino, col) {
		return false
	}
	original := t.tetromino.Copy()
	left := col < t.tetromino.Col
	for t.tetromino.Col != col {
		test := t.tetromino.Copy()
		if left {
			test.Left()
		} else {
			test.Right()
		}
		fits := t.stack.CanBeAdded(test)
		for i := 0; !fits && i < 3; i++ {
			test.Rotate(Clockwise)
			fits = t.stack.CanBeAdded(test)
		}
		if !fits {
			break
		}
		*t.tetromino = *test
		t.moves++
	}

	test := t.tetromino.Copy()
	for range 4 {
		if test.Equal(original) {
			break
		}
		test.Rotate(Clockwise)
	}
	if t.stack.CanBeAdded(test) {
		*t.tetromino = *test
	}
	return t.tetromino.Col == col
}

// try applies move to a copy of the active tetromino and commits it when the
// copy fits the stack.
func (t *Tetris) try(move func(*Tetromino)) bool {
	test := t.tetromino.Copy()
	move(test)
	if !t.stack.CanBeAdded(test) {
		return false
	}
	*t.tetromino = *test
	return true
}

func (t *Tetris) playing() bool {
	return t.running && t.active
}

// Render returns a copy of the stack including the active tetromino.
func (t *Tetris) Render() [][]Shape {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.active {
		return t.stack.Render(t.tetromino)
	}
	return t.stack.Render(nil)
}

// Snapshot returns a copy of the locked cells only.
func (t *Tetris) Snapshot() [][]Shape {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.stack.Snapshot()
}

func (t *Tetris) IsRunning() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.running
}

func (t *Tetris) HasActivePiece() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.active
}

func (t *Tetris) Moves() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.moves
}

// Lines returns the number of lines removed since the session started.
func (t *Tetris) Lines() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lines
}

func (t *Tetris) Size() (rows, cols int) {
	return t.stack.Size()
}

// LastMove returns a copy of the last moved tetromino.
func (t *Tetris) LastMove() (*Tetromino, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.moves == 0 {
		return nil, ErrNoMoves
	}
	return t.tetromino.Copy(), nil
}
