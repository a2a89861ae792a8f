package client

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"tetris/server"
	"tetris/tetris"
	"time"
)

const rpcTimeout = 2 * time.Second

// remoteGame plays a session hosted by a board server. It keeps the ticker
// on the client side and forwards every tick and action as an Act call.
type remoteGame struct {
	client   *server.BoardServiceClient
	ticker   tetris.Ticker
	interval time.Duration
	logger   *slog.Logger
	updateCh chan *tetris.State
	actionCh chan tetris.Command
	doneCh   chan bool
	exitCh   chan struct{}

	id   string
	last *tetris.State
	mu   sync.Mutex
}

// newRemoteGame opens a rows x cols session on the server.
func newRemoteGame(ctx context.Context, c *server.BoardServiceClient, rows, cols int, interval time.Duration, t tetris.Ticker, l *slog.Logger) (*remoteGame, error) {
	ctx, cancel := context.WithTimeout(ctx, rpcTimeout)
	defer cancel()
	b, err := c.NewSession(ctx, rows, cols)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	l.Debug("remote session created", slog.String("id", b.SessionID))
	return &remoteGame{
		client:   c,
		ticker:   t,
		interval: interval,
		logger:   l,
		updateCh: make(chan *tetris.State),
		actionCh: make(chan tetris.Command),
		doneCh:   make(chan bool, 1),
		exitCh:   make(chan struct{}),
		id:       b.SessionID,
		last:     b.State(),
	}, nil
}

// Start runs the game in the background. The first State is published on
// the update channel.
func (r *remoteGame) Start() {
	go r.listen()
}

func (r *remoteGame) Stop() {
	r.ticker.Stop()
	select {
	case r.doneCh <- true:
	default:
	}
}

func (r *remoteGame) Action(a tetris.Action) {
	r.send(tetris.Command{Action: a})
}

func (r *remoteGame) Slide(col int) {
	r.send(tetris.Command{Action: tetris.Slide, Column: col})
}

func (r *remoteGame) GetUpdate() <-chan *tetris.State {
	return r.updateCh
}

func (r *remoteGame) send(c tetris.Command) {
	select {
	case r.actionCh <- c:
	case <-r.exitCh:
	}
}

func (r *remoteGame) state() *tetris.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

// publish returns false when the game was stopped before s was taken.
func (r *remoteGame) publish(s *tetris.State) bool {
	select {
	case r.updateCh <- s:
		return true
	case <-r.doneCh:
		return false
	}
}

func (r *remoteGame) listen() {
	defer func() {
		r.closeSession()
		close(r.exitCh)
	}()
	if !r.publish(r.state()) {
		return
	}
	r.ticker.Reset(r.interval)
	var paused bool
	for {
		var c tetris.Command
		select {
		case <-r.ticker.C():
			if paused {
				continue
			}
			c = tetris.Command{Action: tetris.Tick}
		case c = <-r.actionCh:
		case <-r.doneCh:
			return
		}

		var s *tetris.State
		switch {
		case c.Action == tetris.Pause:
			paused = !paused
			if paused {
				r.ticker.Stop()
			} else {
				r.ticker.Reset(r.interval)
			}
			last := *r.state()
			s = &last
		case paused:
			continue
		default:
			var err error
			if s, err = r.act(c); err != nil {
				r.logger.Error("unable to act on remote session", slog.String("action", string(c.Action)), slog.String("error", err.Error()))
				// the session is lost, finish the game with the last known stack.
				last := *r.state()
				last.GameOver, last.Active = true, false
				s = &last
			}
		}
		s.Paused = paused
		if !r.publish(s) {
			return
		}
		if s.GameOver {
			r.ticker.Stop()
			return
		}
	}
}

func (r *remoteGame) act(c tetris.Command) (*tetris.State, error) {
	ctx, cancel := context.WithTimeout(context.Background(), rpcTimeout)
	defer cancel()
	b, err := r.client.Act(ctx, r.id, c)
	if err != nil {
		return nil, err
	}
	s := b.State()
	r.mu.Lock()
	r.last = s
	r.mu.Unlock()
	return s, nil
}

func (r *remoteGame) closeSession() {
	ctx, cancel := context.WithTimeout(context.Background(), rpcTimeout)
	defer cancel()
	if err := r.client.CloseSession(ctx, r.id); err != nil {
		r.logger.Error("unable to close remote session", slog.String("id", r.id), slog.String("error", err.Error()))
		return
	}
	r.logger.Debug("remote session closed", slog.String("id", r.id))
}
