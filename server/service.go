package server

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"tetris/tetris"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const serviceName = "tetris.BoardService"

// BoardServiceServer plays single player sessions on behalf of remote
// drivers. The service is defined in proto/board.proto. Requests and
// responses are protobuf well known types so the descriptor below is
// written by hand instead of generated.
//
//	NewSession   {rows, cols}                -> Board
//	Act          {session_id, action, column} -> Board
//	State        session_id                  -> Board
//	CloseSession session_id                  -> Empty
type BoardServiceServer interface {
	NewSession(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Act(context.Context, *structpb.Struct) (*structpb.Struct, error)
	State(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	CloseSession(context.Context, *wrapperspb.StringValue) (*emptypb.Empty, error)
}

func RegisterBoardServiceServer(s grpc.ServiceRegistrar, srv BoardServiceServer) {
	s.RegisterService(&boardServiceDesc, srv)
}

var boardServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*BoardServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "NewSession",
			Handler: unaryHandler("NewSession", func(s BoardServiceServer, ctx context.Context, in *structpb.Struct) (proto.Message, error) {
				return s.NewSession(ctx, in)
			}),
		},
		{
			MethodName: "Act",
			Handler: unaryHandler("Act", func(s BoardServiceServer, ctx context.Context, in *structpb.Struct) (proto.Message, error) {
				return s.Act(ctx, in)
			}),
		},
		{
			MethodName: "State",
			Handler: unaryHandler("State", func(s BoardServiceServer, ctx context.Context, in *wrapperspb.StringValue) (proto.Message, error) {
				return s.State(ctx, in)
			}),
		},
		{
			MethodName: "CloseSession",
			Handler: unaryHandler("CloseSession", func(s BoardServiceServer, ctx context.Context, in *wrapperspb.StringValue) (proto.Message, error) {
				return s.CloseSession(ctx, in)
			}),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "proto/board.proto",
}

func fullMethod(method string) string {
	return "/" + serviceName + "/" + method
}

// unaryHandler decodes the request into a new Req and runs call through the
// server's interceptor, if any.
func unaryHandler[Req proto.Message](method string, call func(BoardServiceServer, context.Context, Req) (proto.Message, error)) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := newMessage[Req]()
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(BoardServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(method)}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(BoardServiceServer), ctx, req.(Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func newMessage[M proto.Message]() M {
	var zero M
	return zero.ProtoReflect().Type().New().Interface().(M)
}

// BoardServiceClient is the client side of BoardServiceServer.
type BoardServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewBoardServiceClient(cc grpc.ClientConnInterface) *BoardServiceClient {
	return &BoardServiceClient{cc: cc}
}

// NewSession starts a rows x cols session. Zero values use the server's
// default size.
func (c *BoardServiceClient) NewSession(ctx context.Context, rows, cols int, opts ...grpc.CallOption) (*Board, error) {
	fields := map[string]any{}
	if rows != 0 {
		fields["rows"] = rows
	}
	if cols != 0 {
		fields["cols"] = cols
	}
	in, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to build NewSession request: %w", err)
	}
	return c.board(ctx, "NewSession", in, opts...)
}

func (c *BoardServiceClient) Act(ctx context.Context, id string, cmd tetris.Command, opts ...grpc.CallOption) (*Board, error) {
	in, err := structpb.NewStruct(map[string]any{
		"session_id": id,
		"action":     string(cmd.Action),
		"column":     cmd.Column,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build Act request: %w", err)
	}
	return c.board(ctx, "Act", in, opts...)
}

func (c *BoardServiceClient) State(ctx context.Context, id string, opts ...grpc.CallOption) (*Board, error) {
	return c.board(ctx, "State", wrapperspb.String(id), opts...)
}

func (c *BoardServiceClient) CloseSession(ctx context.Context, id string, opts ...grpc.CallOption) error {
	return c.cc.Invoke(ctx, fullMethod("CloseSession"), wrapperspb.String(id), &emptypb.Empty{}, opts...)
}

func (c *BoardServiceClient) board(ctx context.Context, method string, in proto.Message, opts ...grpc.CallOption) (*Board, error) {
	out := &structpb.Struct{}
	if err := c.cc.Invoke(ctx, fullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return BoardFromProto(out)
}

// Board is the state of a session as sent over the wire. Rows hold one
// character per cell, '.' for an empty one.
type Board struct {
	SessionID string
	Running   bool
	Active    bool
	Moves     int
	Lines     int
	Rows      []string
}

const emptyCell = "."

func NewBoard(id string, s *tetris.State) *Board {
	b := &Board{
		SessionID: id,
		Running:   !s.GameOver,
		Active:    s.Active,
		Moves:     s.Moves,
		Lines:     s.LinesClear,
		Rows:      make([]string, len(s.Stack)),
	}
	for i, r := range s.Stack {
		var sb strings.Builder
		for _, c := range r {
			if c == tetris.Empty {
				sb.WriteString(emptyCell)
			} else {
				sb.WriteString(string(c))
			}
		}
		b.Rows[i] = sb.String()
	}
	return b
}

// State converts the board back into the shape the renderer uses.
func (b *Board) State() *tetris.State {
	stack := make([][]tetris.Shape, len(b.Rows))
	for i, r := range b.Rows {
		stack[i] = make([]tetris.Shape, len(r))
		for j, c := range r {
			if s := string(c); s != emptyCell {
				stack[i][j] = tetris.Shape(s)
			}
		}
	}
	return &tetris.State{
		Stack:      stack,
		Moves:      b.Moves,
		LinesClear: b.Lines,
		Active:     b.Active,
		GameOver:   !b.Running,
	}
}

func (b *Board) Proto() (*structpb.Struct, error) {
	rows := make([]any, len(b.Rows))
	for i, r := range b.Rows {
		rows[i] = r
	}
	return structpb.NewStruct(map[string]any{
		"session_id": b.SessionID,
		"running":    b.Running,
		"active":     b.Active,
		"moves":      b.Moves,
		"lines":      b.Lines,
		"board":      rows,
	})
}

func BoardFromProto(s *structpb.Struct) (*Board, error) {
	f := s.GetFields()
	id, ok := f["session_id"]
	if !ok {
		return nil, errors.New("board message without session_id")
	}
	b := &Board{
		SessionID: id.GetStringValue(),
		Running:   f["running"].GetBoolValue(),
		Active:    f["active"].GetBoolValue(),
		Moves:     int(f["moves"].GetNumberValue()),
		Lines:     int(f["lines"].GetNumberValue()),
	}
	for _, r := range f["board"].GetListValue().GetValues() {
		b.Rows = append(b.Rows, r.GetStringValue())
	}
	return b, nil
}
