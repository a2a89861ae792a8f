package server

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strings"
	"sync"
	"tetris/tetris"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	defaultRows = 20
	defaultCols = 10
	maxSize     = 100
)

var ErrNoSession = errors.New("session not found")

// session serializes the commands of a single remote driver. Tetris locks
// every operation on its own, mu keeps multi step commands like Tick and
// Slide in one piece.
type session struct {
	tetris *tetris.Tetris
	mu     sync.Mutex
}

type boardServer struct {
	sessions map[string]*session
	picker   tetris.Picker
	logger   *slog.Logger
	mu       sync.Mutex
}

type Options struct {
	Logger *slog.Logger
	// Picker chooses the shapes of every session. Defaults to
	// tetris.RandomPicker.
	Picker tetris.Picker
}

func New(o *Options) BoardServiceServer {
	s := &boardServer{
		sessions: make(map[string]*session),
		picker:   o.Picker,
		logger:   o.Logger,
	}
	if s.picker == nil {
		s.picker = tetris.RandomPicker()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

func (b *boardServer) NewSession(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	rows, err := dimension(in.GetFields(), "rows", defaultRows)
	if err != nil {
		return nil, err
	}
	cols, err := dimension(in.GetFields(), "cols", defaultCols)
	if err != nil {
		return nil, err
	}
	ts, err := tetris.New(rows, cols)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	ts.Add(tetris.MustTetromino(b.picker.Next()))

	id := uuid.New().String()
	b.mu.Lock()
	b.sessions[id] = &session{tetris: ts}
	b.mu.Unlock()

	b.logger.Info("session created", slog.String("id", id), slog.Int("rows", rows), slog.Int("cols", cols))
	return b.board(id, ts)
}

// dimension reads a board size from fields, def when it's missing. Sizes
// must be whole numbers between 1 and maxSize.
func dimension(fields map[string]*structpb.Value, key string, def int) (int, error) {
	v, ok := fields[key]
	if !ok {
		return def, nil
	}
	n := v.GetNumberValue()
	if n != math.Trunc(n) || n < 1 || n > maxSize {
		return 0, status.Errorf(codes.InvalidArgument, "%s must be a whole number between 1 and %d, got %v", key, maxSize, n)
	}
	return int(n), nil
}

func (b *boardServer) Act(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	f := in.GetFields()
	id := f["session_id"].GetStringValue()
	s, err := b.session(id)
	if err != nil {
		return nil, err
	}
	a, err := tetris.ParseAction(f["action"].GetStringValue())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	s.mu.Lock()
	lines := s.tetris.Apply(tetris.Command{Action: a, Column: int(f["column"].GetNumberValue())}, b.picker)
	s.mu.Unlock()

	if lines > 0 {
		b.logger.Debug("lines cleared", slog.String("id", id), slog.Int("lines", lines))
	}
	if !s.tetris.IsRunning() {
		b.logger.Info("game over", slog.String("id", id), slog.Int("moves", s.tetris.Moves()))
		if b.logger.Enabled(ctx, slog.LevelDebug) {
			var sb strings.Builder
			if err := tetris.Draw(&sb, s.tetris.Render()); err != nil {
				b.logger.Error("unable to draw board", slog.String("id", id), slog.String("error", err.Error()))
			}
			b.logger.Debug("final board", slog.String("id", id), slog.String("board", sb.String()))
		}
	}
	return b.board(id, s.tetris)
}

func (b *boardServer) State(_ context.Context, in *wrapperspb.StringValue) (*structpb.Struct, error) {
	s, err := b.session(in.GetValue())
	if err != nil {
		return nil, err
	}
	return b.board(in.GetValue(), s.tetris)
}

func (b *boardServer) CloseSession(_ context.Context, in *wrapperspb.StringValue) (*emptypb.Empty, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.sessions[in.GetValue()]; !ok {
		return nil, status.Errorf(codes.NotFound, "%v: %q", ErrNoSession, in.GetValue())
	}
	delete(b.sessions, in.GetValue())
	b.logger.Info("session closed", slog.String("id", in.GetValue()))
	return &emptypb.Empty{}, nil
}

func (b *boardServer) session(id string) (*session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.sessions[id]
	if !ok {
		return nil, status.Errorf(codes.NotFound, "%v: %q", ErrNoSession, id)
	}
	return s, nil
}

func (b *boardServer) board(id string, ts *tetris.Tetris) (*structpb.Struct, error) {
	msg, err := NewBoard(id, ts.ReadState()).Proto()
	if err != nil {
		b.logger.Error("unable to encode board", slog.String("id", id), slog.String("error", err.Error()))
		return nil, status.Error(codes.Internal, err.Error())
	}
	return msg, nil
}
