package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/zappabad/coinsim/internal/game"
	"github.com/zappabad/coinsim/tui"
)

func main() {
	configPath := flag.String("config", "", "path to a yaml config file")
	logPath := flag.String("log", "coinsim-tui.log", "file the game writes its logs to")
	flag.Parse()

	if err := run(*configPath, *logPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error running TUI: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, logPath string) error {
	cfg, err := game.LoadConfig(configPath)
	if err != nil {
		return err
	}

	// The terminal belongs to bubbletea, so logs go to a file
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()

	level, _ := game.ParseLogLevel(cfg.LogLevel)
	logger := slog.New(slog.NewTextHandler(logFile, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	g, err := game.NewGame(context.Background(), cfg, logger)
	if err != nil {
		return err
	}
	defer g.Close()

	model := tui.NewModel(g.Market, cfg.Market.StartingCash)

	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return err
	}
	return nil
}
