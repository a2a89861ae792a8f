package client

import (
	_ "embed"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"tetris/tetris"
	"text/template"
)

const (
	// ASCII colors.
	Cyan    = "36"
	Blue    = "34"
	Orange  = "38;5;214"
	Yellow  = "33"
	Green   = "32"
	Red     = "31"
	Magenta = "35"

	resetPos    = "\033[H"  // Reset cursor position to 0,0
	clearScreen = "\033[2J" // Clear the whole screen
	emptyCell   = "  "
)

//go:embed "layout.tmpl"
var layout string

var colorMap = map[tetris.Shape]string{
	tetris.I: Cyan,
	tetris.J: Blue,
	tetris.L: Orange,
	tetris.O: Yellow,
	tetris.S: Green,
	tetris.Z: Red,
	tetris.T: Magenta,
}

type templateData struct {
	State  *tetris.State
	Name   string
	Online bool
	Rows   int
	Cols   int
}

// message is a box of lines printed on top of the stack.
type message []string

func defaultLobby() message {
	return message{
		"      Welcome to Terminal Tetris      ",
		"                                      ",
		"      (p)lay   (o)nline   (q)uit      ",
	}
}

func gameOver(s *tetris.State) message {
	return message{
		"             Game Over :)             ",
		fmt.Sprintf("      lines %-6d      moves %-6d  ", s.LinesClear, s.Moves),
		"      (p)lay   (o)nline   (q)uit      ",
	}
}

func connectingServer(addr string) message {
	return message{
		"        connecting to server...       ",
		fmt.Sprintf("  %-36s", truncate(addr, 36)),
		"                                      ",
	}
}

func errorMessage() message {
	return message{
		"        something went wrong :(       ",
		"                                      ",
		"      (p)lay   (o)nline   (q)uit      ",
	}
}

type render struct {
	writer   io.Writer
	logger   *slog.Logger
	template *template.Template
	data     *templateData
	mu       sync.Mutex
}

func newRender(l *slog.Logger, name string, rows, cols int) (*render, error) {
	tmp, err := loadTemplate()
	if err != nil {
		return nil, fmt.Errorf("failed to load template: %w", err)
	}
	return &render{
		writer:   os.Stdout,
		logger:   l,
		template: tmp,
		data: &templateData{
			Name: name,
			Rows: rows,
			Cols: cols,
		},
	}, nil
}

// game draws the stack of s. A nil State draws an empty frame.
func (r *render) game(s *tetris.State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data.State = s
	if s != nil && len(s.Stack) > 0 {
		r.data.Rows, r.data.Cols = len(s.Stack), len(s.Stack[0])
	}
	fmt.Fprint(r.writer, resetPos)
	if err := r.template.Execute(r.writer, r.data); err != nil {
		r.logger.Error("unable to execute template in game()", slog.String("error", err.Error()))
	}
}

func (r *render) lobby(m message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	border := "+" + strings.Repeat("-", 38) + "+"
	fmt.Fprintf(r.writer, "\033[%d;3H%s", 5, border)
	for i, l := range m {
		fmt.Fprintf(r.writer, "\033[%d;3H|%s|", 6+i, l)
	}
	fmt.Fprintf(r.writer, "\033[%d;3H%s", 6+len(m), border)
}

func (r *render) online(b bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data.Online = b
}

func (r *render) reset() {
	fmt.Fprint(r.writer, clearScreen)
}

func loadTemplate() (*template.Template, error) {
	funcMap := template.FuncMap{
		"stack":  stack,
		"border": border,
		"side":   side,
	}

	// we use the console raw so new lines don't automatically transform into carriage return
	// to fix that we add a carriage return to every new line in the layout.
	l := strings.ReplaceAll(layout, "\n", "\r\n")
	l = strings.ReplaceAll(l, "Terminal Tetris", "\033[1mTerminal Tetris\033[0m")
	return template.New("layout").Funcs(funcMap).Parse(l)
}

// stack returns the cells of the board top row first, ready to be printed.
func stack(d *templateData) [][]string {
	if d == nil {
		return nil
	}
	rendered := make([][]string, d.Rows)
	for y := range rendered {
		rendered[y] = make([]string, d.Cols)
		for x := range rendered[y] {
			rendered[y][x] = emptyCell
		}
	}
	if d.State == nil {
		return rendered
	}
	for y, row := range d.State.Stack {
		for x, v := range row {
			if y >= d.Rows || x >= d.Cols {
				continue
			}
			if c, ok := colorMap[v]; ok {
				rendered[y][x] = cell(c)
			}
		}
	}
	return rendered
}

func cell(color string) string {
	return fmt.Sprintf("\x1b[7m\x1b[%sm[]\x1b[0m", color)
}

func border(d *templateData) string {
	return strings.Repeat("-", 2*d.Cols)
}

// side returns the text of the panel next to row i.
func side(i int, d *templateData) string {
	var lines, moves int
	var status string
	if d.State != nil {
		lines, moves = d.State.LinesClear, d.State.Moves
		if d.State.Paused {
			status = "** paused **"
		}
	}
	mode := "local"
	if d.Online {
		mode = "online"
	}
	panel := []string{
		"Player: " + truncate(d.Name, 12),
		"Mode:   " + mode,
		status,
		fmt.Sprintf("Lines:  %d", lines),
		fmt.Sprintf("Moves:  %d", moves),
		"",
		"←/a →/d  move",
		"↓/s      lower",
		"↑/e      rotate",
		"space    drop",
		"0-9      slide",
		"p        pause",
		"q        quit",
	}
	if i < 0 || i >= len(panel) {
		return ""
	}
	return panel[i]
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
