package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"tetris/client"
	"tetris/config"

	"golang.org/x/term"
)

const (
	hideCursor = "\033[2J\033[?25l" // also clear screen
	showCursor = "\033[2J\033[H\033[?25h"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("unable to load config: %v", err)
	}
	flag.StringVar(&cfg.Address, "address", cfg.Address, "board server address for online games")
	flag.StringVar(&cfg.Name, "name", cfg.Name, "player name")
	flag.IntVar(&cfg.Rows, "rows", cfg.Rows, "stack rows")
	flag.IntVar(&cfg.Cols, "cols", cfg.Cols, "stack columns")
	flag.DurationVar(&cfg.Tick, "tick", cfg.Tick, "time between ticks")
	flag.StringVar(&cfg.LogFile, "log", cfg.LogFile, "write logs to this file")
	flag.BoolVar(&cfg.Debug, "debug", cfg.Debug, "enable debug logs")
	flag.Parse()
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	if !term.IsTerminal(int(os.Stdin.Fd())) {
		log.Fatal("tetris needs an interactive terminal")
	}

	var w io.Writer = io.Discard
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			log.Fatalf("unable to open log file: %v", err)
		}
		defer f.Close()
		w = f
	}
	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: cfg.LogLevel()}))

	c, err := client.New(logger, &client.Options{
		Rows:    cfg.Rows,
		Cols:    cfg.Cols,
		Tick:    cfg.Tick,
		Address: cfg.Address,
		Name:    cfg.Name,
	})
	if err != nil {
		log.Fatalf("unable to start client: %v", err)
	}
	defer func() {
		if err := c.Close(); err != nil {
			logger.Error("unable to close keyboard", slog.String("error", err.Error()))
		}
		fmt.Print(showCursor)
	}()

	fmt.Print(hideCursor)
	c.Start()
}
