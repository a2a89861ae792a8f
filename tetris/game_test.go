package tetris

import (
	"testing"
	"time"
)

func receive(t *testing.T, g *Game) *State {
	t.Helper()
	select {
	case s := <-g.UpdateCh:
		return s
	case <-time.After(1 * time.Second):
		t.Fatal("Timed out waiting for update signal")
	}
	return nil
}

func startTestGame(t *testing.T, rows, cols int, shape Shape) (*Game, *MockTicker) {
	t.Helper()
	g, ticker, err := NewTestGame(rows, cols, shape)
	if err != nil {
		t.Fatalf("unable to create game: %v", err)
	}
	g.Start()
	if s := receive(t, g); !s.Active || s.GameOver {
		t.Fatalf("wanted an active tetromino after start")
	}
	return g, ticker
}

func TestNewGame(t *testing.T) {
	if _, err := NewGame(0, 10, time.Second); err == nil {
		t.Errorf("wanted an error for invalid dimensions")
	}
}

func TestTicksUntilGameOver(t *testing.T) {
	// 		0 1 2 3
	// 0	. O O .
	// 1	. O O .
	// 2	. O O .
	// 3	. O O .
	g, ticker := startTestGame(t, 4, 4, O)

	want := []struct {
		active, gameOver bool
		moves            int
	}{
		{active: true, moves: 1},   // lower
		{active: true, moves: 2},   // lower
		{active: false, moves: 2},  // lock
		{active: true, moves: 2},   // add
		{active: false, moves: 2},  // lock
		{gameOver: true, moves: 2}, // add doesn't fit
	}
	var s *State
	for i, w := range want {
		ticker.Tick()
		s = receive(t, g)
		if s.Active != w.active || s.GameOver != w.gameOver || s.Moves != w.moves {
			t.Fatalf("tick %d: wanted %+v, got active %v game over %v moves %d", i, w, s.Active, s.GameOver, s.Moves)
		}
	}
	for r := range 4 {
		if s.Stack[r][1] != O || s.Stack[r][2] != O {
			t.Errorf("wanted row %d to hold the locked tetrominoes, got %v", r, s.Stack[r])
		}
	}
	if !ticker.IsReset() || !ticker.IsStop() {
		t.Errorf("wanted the ticker to be reset on start and stopped on game over")
	}
}

func TestActions(t *testing.T) {
	g, _ := startTestGame(t, 20, 10, T)

	g.Action(MoveLeft)
	if s := receive(t, g); s.Moves != 1 || s.Stack[1][2] != T {
		t.Errorf("wanted the T moved to the left, got moves %d row %v", s.Moves, s.Stack[1])
	}

	g.Action(Rotate)
	if s := receive(t, g); s.Moves != 1 {
		t.Errorf("wanted rotation not to count as a move, got %d", s.Moves)
	}

	g.Slide(0)
	if s := receive(t, g); s.Moves != 3 || s.Stack[2][0] != T {
		t.Errorf("wanted the T slid to column 0, got moves %d row %v", s.Moves, s.Stack[2])
	}

	g.Action(DropDown)
	s := receive(t, g)
	if s.Active {
		t.Errorf("wanted the T to be locked after a drop")
	}
	if s.Stack[19][0] != T {
		t.Errorf("wanted the T on the bottom row, got %v", s.Stack[19])
	}
	if r := g.Read(); r.Active || r.Moves != s.Moves {
		t.Errorf("wanted Read to match the last update")
	}
	g.Stop()
}

func TestStartStop(t *testing.T) {
	g, ticker := startTestGame(t, 20, 10, I)
	// listen resets the ticker before it takes the first action.
	g.Action(MoveRight)
	receive(t, g)
	if !ticker.IsReset() {
		t.Errorf("Expected ticker to be reset")
	}
	g.Stop()
	if !ticker.IsStop() {
		t.Errorf("Expected ticker to be stopped")
	}
}

func TestRestart(t *testing.T) {
	g, _, err := NewTestGame(20, 10, T)
	if err != nil {
		t.Fatalf("unable to create game: %v", err)
	}
	exited := func(exit chan struct{}) {
		t.Helper()
		select {
		case <-exit:
		case <-time.After(time.Second):
			t.Fatalf("wanted the previous game to exit")
		}
	}

	// nobody reads the first update of these games.
	g.Start()
	first := g.exitCh
	g.Stop()
	exited(first)

	g.Start()
	second := g.exitCh
	g.Start()
	exited(second)

	if s := receive(t, g); !s.Active || s.Moves != 0 {
		t.Fatalf("wanted a new game, got active %v moves %d", s.Active, s.Moves)
	}
	g.Action(MoveLeft)
	if s := receive(t, g); s.Moves != 1 {
		t.Errorf("wanted 1 move, got %d", s.Moves)
	}
	select {
	case s := <-g.UpdateCh:
		t.Errorf("wanted a single stream of updates, got an extra one with %d moves", s.Moves)
	case <-time.After(50 * time.Millisecond):
	}
	g.Stop()
}

func TestPause(t *testing.T) {
	g, ticker := startTestGame(t, 20, 10, T)

	g.Action(Pause)
	if s := receive(t, g); !s.Paused {
		t.Errorf("wanted the game to be paused")
	}
	if !ticker.IsStop() {
		t.Errorf("wanted the ticker to be stopped while paused")
	}

	// ticks and commands are dropped without an update.
	ticker.Tick()
	g.Action(MoveLeft)
	g.Slide(0)

	g.Action(Pause)
	s := receive(t, g)
	if s.Paused {
		t.Errorf("wanted the game to be resumed")
	}
	if s.Moves != 0 || s.Stack[0][4] != T {
		t.Errorf("wanted the T not to move while paused, got moves %d row %v", s.Moves, s.Stack[0])
	}

	g.Action(MoveLeft)
	if s := receive(t, g); s.Moves != 1 || s.Stack[1][2] != T {
		t.Errorf("wanted the T moved to the left after resuming, got moves %d row %v", s.Moves, s.Stack[1])
	}
	g.Stop()
}

func TestActionAfterGameOver(t *testing.T) {
	// 		0 1 2
	// 0	. . .
	// 1	O O .
	// 2	O O .
	g, ticker := startTestGame(t, 3, 3, O)
	ticker.Tick()
	receive(t, g)
	ticker.Tick()
	if s := receive(t, g); s.Active {
		t.Fatalf("wanted the O to be locked")
	}
	ticker.Tick()
	if s := receive(t, g); !s.GameOver {
		t.Fatalf("wanted game over")
	}

	done := make(chan struct{})
	go func() {
		g.Action(MoveLeft)
		g.Slide(1)
		g.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Errorf("wanted actions after game over to be dropped")
	}
}

func TestParseAction(t *testing.T) {
	for _, a := range []Action{MoveLeft, MoveRight, MoveDown, DropDown, Rotate, Tick, Slide, Pause} {
		got, err := ParseAction(string(a))
		if err != nil || got != a {
			t.Errorf("wanted %q, got %q with error %v", a, got, err)
		}
	}
	if _, err := ParseAction("hold"); err == nil {
		t.Errorf("wanted an error for an unknown action")
	}
}

func TestApplyTick(t *testing.T) {
	ts, _ := New(20, 10)
	ts.Apply(Command{Action: Tick}, FixedPicker(S))
	if !ts.HasActivePiece() {
		t.Fatalf("wanted tick to add a tetromino")
	}
	ts.Apply(Command{Action: Tick}, FixedPicker(S))
	if lm, err := ts.LastMove(); err != nil || lm.Row != 1 || lm.Shape() != S {
		t.Errorf("wanted tick to lower the S, got %v %v", lm, err)
	}
}
