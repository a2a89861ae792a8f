package tetris

import (
	"sync"
	"time"
)

// MockTicker is a mock implementation of the ticker interface.
type MockTicker struct {
	ch          chan time.Time
	stop, reset bool
	mu          sync.Mutex
}

func NewMockTicker() *MockTicker          { return &MockTicker{ch: make(chan time.Time)} }
func (m *MockTicker) C() <-chan time.Time { return m.ch }
func (m *MockTicker) Tick()               { m.ch <- time.Now() }
func (m *MockTicker) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stop = true
}
func (m *MockTicker) Reset(time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reset = true
}
func (m *MockTicker) IsReset() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reset
}
func (m *MockTicker) IsStop() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stop
}

// FixedPicker always picks the same shape.
type FixedPicker Shape

func (f FixedPicker) Next() Shape { return Shape(f) }

// NewTestGame creates a game that always picks shape and returns it with a
// manual ticker.
func NewTestGame(rows, cols int, shape Shape) (*Game, *MockTicker, error) {
	ticker := NewMockTicker()
	g, err := NewConfigurableGame(rows, cols, time.Second, ticker, FixedPicker(shape))
	return g, ticker, err
}

// NewTestTetris creates a 20x10 session with an active tetromino of the given
// shape at the spawn location. It panics on an unknown shape.
func NewTestTetris(shape Shape) *Tetris {
	t, _ := New(20, 10)
	t.Add(MustTetromino(shape))
	return t
}

// Fill sets every cell of the given rows except the listed columns.
func (g *Grid) Fill(row int, shape Shape, except ...int) {
	for c := range g.cols {
		g.Set(row, c, shape)
	}
	for _, c := range except {
		g.Set(row, c, Empty)
	}
}

// Grid returns the Grid behind the session, or nil for other stacks.
func (t *Tetris) Grid() *Grid {
	g, _ := t.stack.(*Grid)
	return g
}
