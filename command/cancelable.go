package command

import (
	"context"
	"flag"

	"github.com/google/subcommands"
)

// Cancelable wraps a subcommands.Command so that Execute returns as soon
// as ctx is done, even if the wrapped command's own Execute has not
// returned yet. The wrapped command continues running to completion in
// its own goroutine; Cancelable only changes when the caller gets control
// back.
func Cancelable(cmd subcommands.Command) subcommands.Command {
	return &cancelable{cmd: cmd}
}

type cancelable struct {
	cmd subcommands.Command
}

func (c *cancelable) Name() string     { return c.cmd.Name() }
func (c *cancelable) Usage() string    { return c.cmd.Usage() }
func (c *cancelable) Synopsis() string { return c.cmd.Synopsis() }

func (c *cancelable) SetFlags(f *flag.FlagSet) {
	c.cmd.SetFlags(f)
}

func (c *cancelable) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	done := make(chan subcommands.ExitStatus, 1)
	go func() {
		done <- c.cmd.Execute(ctx, f, args...)
	}()
	select {
	case status := <-done:
		return status
	case <-ctx.Done():
		return subcommands.ExitFailure
	}
}
