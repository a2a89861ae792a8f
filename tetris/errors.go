package tetris

import "errors"

var (
	ErrInvalidDimensions = errors.New("invalid stack dimensions")
	ErrNoMoves           = errors.New("there are no moves in the stack")
	ErrOutOfRange        = errors.New("index is out of the tetromino boundaries")
	ErrUnknownShape      = errors.New("unknown tetromino shape")
)
