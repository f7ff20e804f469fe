package main

import (
	"context"
	"flag"
	"os"
	"syscall"

	"github.com/google/subcommands"

	"github.com/scrcpy-go/scrcpy/color"
	"github.com/scrcpy-go/scrcpy/command"
	"github.com/scrcpy-go/scrcpy/logger"
)

var (
	colors color.EnableColor
	level  logger.LogLevel
)

func init() {
	colors = color.ColorAuto
	level = logger.InfoLevel

	flag.Var(&colors, "color", "use color in output, can be never, auto, always")
	flag.Var(&level, "level", "output verbosity, can be fatal, error, warning, info, debug or trace")
}

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(command.Cancelable(&RunCommand{}), "")

	flag.Parse()

	log := logger.NewLogger(level, color.NewColor(colors), os.Stdout, os.Stderr)
	ctx := logger.WithLogger(context.Background(), log)
	ctx = command.CancelOnSignals(ctx, syscall.SIGINT, syscall.SIGTERM)
	os.Exit(int(subcommands.Execute(ctx)))
}
