package client

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"tetris/server"
	"tetris/tetris"
	"time"

	"github.com/eiannone/keyboard"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

type clientState int

const (
	lobby clientState = iota
	connecting
	playing
)

type state struct {
	current clientState
	game    tetrisGame
	quit    chan struct{}
	mu      sync.Mutex
}

func (s *state) get() (clientState, tetrisGame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current, s.game
}

func (s *state) set(c clientState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = c
	if c != playing {
		s.game, s.quit = nil, nil
	}
}

// play marks g as the running game and returns the channel closed on quit.
func (s *state) play(g tetrisGame) chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current, s.game, s.quit = playing, g, make(chan struct{})
	return s.quit
}

// stop closes the quit channel of the running game, if any.
func (s *state) stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.quit != nil {
		close(s.quit)
		s.quit = nil
	}
}

type tetrisGame interface {
	Start()
	GetUpdate() <-chan *tetris.State
	Action(tetris.Action)
	Slide(col int)
	Stop()
}

type renderer interface {
	game(*tetris.State)
	lobby(message)
	online(bool)
	reset()
}

// dialer opens a game on the board server. The returned func releases the
// connection once the game is over.
type dialer func(context.Context) (tetrisGame, func(), error)

type Client struct {
	local   tetrisGame
	dial    dialer
	render  renderer
	options *Options
	logger  *slog.Logger
	kbCh    <-chan keyboard.KeyEvent
	state   *state
}

type Options struct {
	Rows    int
	Cols    int
	Tick    time.Duration
	Address string
	Name    string
}

func New(l *slog.Logger, o *Options) (*Client, error) {
	r, err := newRender(l, o.Name, o.Rows, o.Cols)
	if err != nil {
		return nil, fmt.Errorf("failed to load renderer: %w", err)
	}
	g, err := tetris.NewGame(o.Rows, o.Cols, o.Tick)
	if err != nil {
		return nil, fmt.Errorf("failed to create game: %w", err)
	}
	kb, err := keyboard.GetKeys(20)
	if err != nil {
		return nil, fmt.Errorf("failed to open keyboard: %w", err)
	}
	c := &Client{
		local:   g,
		render:  r,
		options: o,
		logger:  l,
		kbCh:    kb,
		state:   &state{current: lobby},
	}
	c.dial = c.dialServer
	return c, nil
}

// Start shows the lobby and blocks until the player quits.
func (c *Client) Start() {
	c.render.reset()
	c.render.game(nil)
	c.render.lobby(defaultLobby())
	var wg sync.WaitGroup
	wg.Add(1)
	go c.listenKB(&wg)
	wg.Wait()
	c.state.stop()
}

// Close releases the keyboard.
func (c *Client) Close() error {
	return keyboard.Close()
}

func (c *Client) listenKB(wg *sync.WaitGroup) {
	defer wg.Done()
	for {
		event, ok := <-c.kbCh
		if !ok {
			c.logger.Error("Keyboard events channel closed unexpectedly")
			return
		}
		if event.Err != nil {
			c.logger.Error("keysEvents error", slog.String("error", event.Err.Error()))
			return
		}
		if event.Key == keyboard.KeyCtrlC {
			return
		}
		current, game := c.state.get()
		switch current {
		case lobby:
			switch event.Rune {
			case 'p':
				c.render.online(false)
				go c.listenTetris(c.local, c.state.play(c.local))
			case 'o':
				c.state.set(connecting)
				c.render.online(true)
				c.render.lobby(connectingServer(c.options.Address))
				go c.listenOnlineTetris()
			case 'q':
				return
			}
		case connecting:
			continue
		case playing:
			switch {
			case event.Key == keyboard.KeyArrowDown || event.Rune == 's':
				game.Action(tetris.MoveDown)
			case event.Key == keyboard.KeyArrowLeft || event.Rune == 'a':
				game.Action(tetris.MoveLeft)
			case event.Key == keyboard.KeyArrowRight || event.Rune == 'd':
				game.Action(tetris.MoveRight)
			case event.Key == keyboard.KeyArrowUp || event.Rune == 'e':
				game.Action(tetris.Rotate)
			case event.Key == keyboard.KeySpace:
				game.Action(tetris.DropDown)
			case event.Rune >= '0' && event.Rune <= '9':
				game.Slide(int(event.Rune - '0'))
			case event.Rune == 'p':
				game.Action(tetris.Pause)
			case event.Rune == 'q':
				c.state.stop()
			}
		}
	}
}

// listenTetris renders every update of g until the game is over or quit is
// closed.
func (c *Client) listenTetris(g tetrisGame, quit <-chan struct{}) {
	defer c.state.set(lobby)
	g.Start()
	c.render.reset()
	for {
		select {
		case u := <-g.GetUpdate():
			c.render.game(u)
			if u.GameOver {
				c.logger.Debug("game over", slog.Int("lines", u.LinesClear), slog.Int("moves", u.Moves))
				c.render.lobby(gameOver(u))
				return
			}
		case <-quit:
			g.Stop()
			c.render.lobby(defaultLobby())
			return
		}
	}
}

func (c *Client) listenOnlineTetris() {
	g, closer, err := c.dial(context.Background())
	if err != nil {
		c.logger.Error("unable to start online game", slog.String("error", err.Error()))
		c.render.lobby(errorMessage())
		c.state.set(lobby)
		return
	}
	defer closer()
	c.listenTetris(g, c.state.play(g))
}

func (c *Client) dialServer(ctx context.Context) (tetrisGame, func(), error) {
	conn, err := grpc.NewClient(c.options.Address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, nil, fmt.Errorf("unable to create gRPC client: %w", err)
	}
	closer := func() {
		if err := conn.Close(); err != nil {
			c.logger.Error("unable to close gRPC client", slog.String("error", err.Error()))
		}
	}
	g, err := newRemoteGame(ctx, server.NewBoardServiceClient(conn), c.options.Rows, c.options.Cols, c.options.Tick, tetris.NewTicker(c.options.Tick), c.logger)
	if err != nil {
		closer()
		return nil, nil, err
	}
	return g, closer, nil
}
