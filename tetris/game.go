package tetris

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"time"
)

type Action string

const (
	MoveLeft  Action = "left"   // Moves the Tetromino one step to the left.
	MoveRight Action = "right"  // Moves the Tetromino one step to the right.
	MoveDown  Action = "down"   // Moves the Tetromino one step down.
	DropDown  Action = "drop"   // Drops the Tetromino down the stack.
	Rotate    Action = "rotate" // Rotates the Tetromino clockwise.
	Tick      Action = "tick"   // Adds a new Tetromino or moves the current one down.
	Slide     Action = "slide"  // Slides the Tetromino to Command.Column.
	Pause     Action = "pause"  // Stops or resumes the ticker. Other commands are ignored while paused.
)

// ParseAction returns the Action named by s.
func ParseAction(s string) (Action, error) {
	switch a := Action(s); a {
	case MoveLeft, MoveRight, MoveDown, DropDown, Rotate, Tick, Slide, Pause:
		return a, nil
	}
	return "", fmt.Errorf("unknown action %q", s)
}

// Command is an Action and its argument. Column is only read by Slide.
type Command struct {
	Action Action
	Column int
}

// Apply runs c on the session. Pause is handled by the driver and does
// nothing here. Tick adds p's next shape when there's no
// active tetromino and lowers the active one otherwise. It returns the number
// of lines removed by the command.
func (t *Tetris) Apply(c Command, p Picker) int {
	switch c.Action {
	case MoveLeft:
		t.MoveLeft()
	case MoveRight:
		t.MoveRight()
	case Rotate:
		t.Rotate()
	case MoveDown:
		return t.Lower()
	case DropDown:
		return t.Drop()
	case Tick:
		if t.HasActivePiece() {
			return t.Lower()
		}
		t.Add(MustTetromino(p.Next()))
	case Slide:
		t.SlideTo(c.Column)
	}
	return 0
}

// Picker chooses the shape of the next Tetromino.
type Picker interface {
	Next() Shape
}

type randomPicker struct{}

// RandomPicker picks every shape with the same probability.
func RandomPicker() Picker { return randomPicker{} }

func (randomPicker) Next() Shape { return Shapes[rand.IntN(len(Shapes))] }

type Ticker interface {
	C() <-chan time.Time
	Reset(time.Duration)
	Stop()
}

type wrappedTicker struct {
	ticker *time.Ticker
}

// NewTicker returns a Ticker backed by time.Ticker.
func NewTicker(d time.Duration) Ticker {
	return &wrappedTicker{ticker: time.NewTicker(d)}
}

func (t *wrappedTicker) C() <-chan time.Time   { return t.ticker.C }
func (t *wrappedTicker) Stop()                 { t.ticker.Stop() }
func (t *wrappedTicker) Reset(d time.Duration) { t.ticker.Reset(d) }

// State is a read only copy of a session.
type State struct {
	Stack      [][]Shape
	Moves      int
	LinesClear int
	Active     bool
	GameOver   bool
	Paused     bool
}

// ReadState copies the current session into a State.
func (t *Tetris) ReadState() *State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var active *Tetromino
	if t.active {
		active = t.tetromino
	}
	return &State{
		Stack:      t.stack.Render(active),
		Moves:      t.moves,
		LinesClear: t.lines,
		Active:     t.active,
		GameOver:   !t.running,
	}
}

// Game drives a Tetris session with a ticker. Ticks and actions are handled
// by a single goroutine so they never interleave.
type Game struct {
	UpdateCh chan *State

	actionCh chan Command
	stopCh   chan struct{} // closed by Stop or the next Start
	exitCh   chan struct{} // closed when listen returns
	tetris   *Tetris
	ticker   Ticker
	picker   Picker
	interval time.Duration
	rows     int
	cols     int
	mu       sync.Mutex
}

func NewGame(rows, cols int, interval time.Duration) (*Game, error) {
	return NewConfigurableGame(rows, cols, interval, NewTicker(interval), RandomPicker())
}

func NewConfigurableGame(rows, cols int, interval time.Duration, ticker Ticker, picker Picker) (*Game, error) {
	ts, err := New(rows, cols)
	if err != nil {
		return nil, err
	}
	return &Game{
		UpdateCh: make(chan *State),
		actionCh: make(chan Command),
		tetris:   ts,
		ticker:   ticker,
		picker:   picker,
		interval: interval,
		rows:     rows,
		cols:     cols,
	}, nil
}

// Start resets the session, adds the first Tetromino and returns. The first
// State is published on UpdateCh. A game still running is stopped first.
func (g *Game) Start() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.stopCh != nil {
		close(g.stopCh)
	}
	// dimensions were validated by NewConfigurableGame.
	ts, _ := New(g.rows, g.cols)
	ts.Add(MustTetromino(g.picker.Next()))
	g.tetris = ts
	stop, exit := make(chan struct{}), make(chan struct{})
	g.stopCh, g.exitCh = stop, exit
	go g.listen(ts, stop, exit)
}

func (g *Game) Stop() {
	g.ticker.Stop()
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.stopCh != nil {
		close(g.stopCh)
		g.stopCh = nil
	}
}

func (g *Game) Action(a Action) {
	g.send(Command{Action: a})
}

// Slide moves the Tetromino to col when it can get there.
func (g *Game) Slide(col int) {
	g.send(Command{Action: Slide, Column: col})
}

// send hands c to the listener. Commands sent when no game is running are
// dropped.
func (g *Game) send(c Command) {
	g.mu.Lock()
	exit := g.exitCh
	g.mu.Unlock()
	if exit == nil {
		return
	}
	select {
	case g.actionCh <- c:
	case <-exit:
	}
}

func (g *Game) GetUpdate() <-chan *State {
	return g.UpdateCh
}

// Read returns a copy of the current session that's safe to read concurrently.
func (g *Game) Read() *State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.tetris.ReadState()
}

// publish sends s to the player. It returns false when the game was stopped
// before the player took it.
func (g *Game) publish(s *State, stop <-chan struct{}) bool {
	select {
	case g.UpdateCh <- s:
		return true
	case <-stop:
		return false
	}
}

func (g *Game) listen(ts *Tetris, stop, exit chan struct{}) {
	defer close(exit)
	if !g.publish(ts.ReadState(), stop) {
		return
	}
	g.ticker.Reset(g.interval)
	var paused bool
	for {
		select {
		case <-g.ticker.C():
			if paused {
				continue
			}
			ts.Apply(Command{Action: Tick}, g.picker)
		case c := <-g.actionCh:
			switch {
			case c.Action == Pause:
				paused = !paused
				if paused {
					g.ticker.Stop()
				} else {
					g.ticker.Reset(g.interval)
				}
			case paused:
				continue
			default:
				ts.Apply(c, g.picker)
			}
		case <-stop:
			return
		}
		s := ts.ReadState()
		s.Paused = paused
		if !g.publish(s, stop) {
			return
		}
		if s.GameOver {
			g.ticker.Stop()
			return
		}
	}
}
