package client

import (
	"context"
	"log"
	"log/slog"
	"net"
	"testing"
	"tetris/server"
	"tetris/tetris"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

func receive(t *testing.T, g tetrisGame) *tetris.State {
	t.Helper()
	select {
	case s := <-g.GetUpdate():
		return s
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for update signal")
	}
	return nil
}

func TestRemoteGame(t *testing.T) {
	ctx := context.Background()
	client, closer := testServer(ctx)
	defer closer()

	// 		0 1 2
	// 0	. . .
	// 1	O O .
	// 2	O O .
	ticker := tetris.NewMockTicker()
	g, err := newRemoteGame(ctx, client, 3, 3, time.Second, ticker, slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("unable to create remote game: %v", err)
	}
	g.Start()
	if s := receive(t, g); !s.Active || s.Stack[0][0] != tetris.O {
		t.Fatalf("wanted the O at the top left corner, got %v", s.Stack)
	}

	g.Action(tetris.MoveRight)
	if s := receive(t, g); s.Moves != 1 || s.Stack[0][2] != tetris.O {
		t.Errorf("wanted the O moved to the right, got moves %d row %v", s.Moves, s.Stack[0])
	}
	g.Slide(0)
	if s := receive(t, g); s.Moves != 2 || s.Stack[0][0] != tetris.O {
		t.Errorf("wanted the O slid back to column 0, got moves %d row %v", s.Moves, s.Stack[0])
	}

	want := []struct{ active, gameOver bool }{
		{active: true},   // lower
		{active: false},  // lock
		{gameOver: true}, // add doesn't fit
	}
	for i, w := range want {
		ticker.Tick()
		s := receive(t, g)
		if s.Active != w.active || s.GameOver != w.gameOver {
			t.Fatalf("tick %d: wanted %+v, got active %v game over %v", i, w, s.Active, s.GameOver)
		}
	}

	// the session is closed once the game is over.
	select {
	case <-g.exitCh:
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for the remote game to finish")
	}
	if _, err := client.State(ctx, g.id); status.Code(err) != codes.NotFound {
		t.Errorf("wanted the session to be closed, got %v", err)
	}
	if !ticker.IsReset() || !ticker.IsStop() {
		t.Errorf("wanted the ticker to be reset on start and stopped on game over")
	}

	// actions after game over are dropped.
	g.Action(tetris.MoveLeft)
}

func TestRemoteGameStop(t *testing.T) {
	ctx := context.Background()
	client, closer := testServer(ctx)
	defer closer()

	g, err := newRemoteGame(ctx, client, 0, 0, time.Second, tetris.NewMockTicker(), slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("unable to create remote game: %v", err)
	}
	g.Start()
	receive(t, g)
	g.Stop()

	select {
	case <-g.exitCh:
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for the remote game to stop")
	}
	if _, err := client.State(ctx, g.id); status.Code(err) != codes.NotFound {
		t.Errorf("wanted the session to be closed, got %v", err)
	}
}

func TestRemoteGameStopBeforeFirstUpdate(t *testing.T) {
	ctx := context.Background()
	client, closer := testServer(ctx)
	defer closer()

	g, err := newRemoteGame(ctx, client, 0, 0, time.Second, tetris.NewMockTicker(), slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("unable to create remote game: %v", err)
	}
	g.Start()
	g.Stop()

	select {
	case <-g.exitCh:
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for the remote game to stop")
	}
	if _, err := client.State(ctx, g.id); status.Code(err) != codes.NotFound {
		t.Errorf("wanted the session to be closed, got %v", err)
	}
}

func TestRemoteGamePause(t *testing.T) {
	ctx := context.Background()
	client, closer := testServer(ctx)
	defer closer()

	ticker := tetris.NewMockTicker()
	g, err := newRemoteGame(ctx, client, 0, 0, time.Second, ticker, slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("unable to create remote game: %v", err)
	}
	g.Start()
	receive(t, g)

	g.Action(tetris.Pause)
	if s := receive(t, g); !s.Paused || s.Moves != 0 {
		t.Errorf("wanted the game to be paused, got paused %v moves %d", s.Paused, s.Moves)
	}
	if !ticker.IsStop() {
		t.Errorf("wanted the ticker to be stopped while paused")
	}
	// dropped without reaching the server.
	ticker.Tick()
	g.Action(tetris.MoveRight)

	g.Action(tetris.Pause)
	if s := receive(t, g); s.Paused || s.Moves != 0 {
		t.Errorf("wanted the game to be resumed unchanged, got paused %v moves %d", s.Paused, s.Moves)
	}
	g.Action(tetris.MoveRight)
	if s := receive(t, g); s.Moves != 1 {
		t.Errorf("wanted the O moved to the right after resuming, got moves %d", s.Moves)
	}
	b, err := client.State(ctx, g.id)
	if err != nil || b.Moves != 1 {
		t.Errorf("wanted the server to see a single move, got %v %v", b, err)
	}
	g.Stop()
}

func TestRemoteGameLostSession(t *testing.T) {
	ctx := context.Background()
	client, closer := testServer(ctx)
	defer closer()

	g, err := newRemoteGame(ctx, client, 0, 0, time.Second, tetris.NewMockTicker(), slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("unable to create remote game: %v", err)
	}
	g.Start()
	first := receive(t, g)
	if err := client.CloseSession(ctx, g.id); err != nil {
		t.Fatalf("unable to close session: %v", err)
	}

	g.Action(tetris.MoveLeft)
	s := receive(t, g)
	if !s.GameOver || s.Active {
		t.Errorf("wanted the game to be over when the session is lost")
	}
	if first.GameOver {
		t.Errorf("wanted the last known state to be left untouched")
	}
}

func TestNewRemoteGameError(t *testing.T) {
	ctx := context.Background()
	client, closer := testServer(ctx)
	defer closer()

	if _, err := newRemoteGame(ctx, client, -1, 10, time.Second, tetris.NewMockTicker(), slog.New(slog.DiscardHandler)); err == nil {
		t.Errorf("wanted an error for invalid dimensions")
	}
}

func testServer(ctx context.Context) (*server.BoardServiceClient, func()) {
	buffer := 101024 * 1024
	lis := bufconn.Listen(buffer)

	s := grpc.NewServer()
	server.RegisterBoardServiceServer(s, server.New(&server.Options{
		Logger: slog.New(slog.DiscardHandler),
		Picker: tetris.FixedPicker(tetris.O),
	}))
	go func() {
		if err := s.Serve(lis); err != nil {
			log.Printf("unable to serve: %v", err)
		}
	}()

	conn, err := grpc.NewClient("passthrough:///bufnet", grpc.WithContextDialer(func(context.Context, string) (net.Conn, error) {
		return lis.DialContext(ctx)
	}), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		log.Printf("error connecting to server: %v", err)
	}

	closer := func() {
		if err := conn.Close(); err != nil {
			log.Printf("error closing connection: %v", err)
		}
		if err := lis.Close(); err != nil {
			log.Printf("error closing listener: %v", err)
		}
		s.Stop()
	}

	return server.NewBoardServiceClient(conn), closer
}
