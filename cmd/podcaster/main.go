package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"podcaster/internal/services"
)

// Exit codes beyond the generic failure let scripts tell bad input and
// missing setup apart from generation or storage errors.
const (
	exitFailure       = 1
	exitUsage         = 2
	exitConfiguration = 3
	exitInterrupted   = 130
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, newRootCommand(), os.Args[1:], os.Stderr)
	stop()
	os.Exit(code)
}

type command interface {
	SetArgs([]string)
	ExecuteContext(context.Context) error
}

func execute(ctx context.Context, cmd command, args []string, stderr io.Writer) int {
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	if errors.Is(err, context.Canceled) {
		return exitInterrupted
	}
	fmt.Fprintln(stderr, "Error:", err)
	return exitCode(err)
}

func exitCode(err error) int {
	switch {
	case errors.Is(err, services.ErrValidation):
		return exitUsage
	case errors.Is(err, services.ErrConfiguration):
		return exitConfiguration
	default:
		return exitFailure
	}
}
