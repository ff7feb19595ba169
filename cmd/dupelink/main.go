package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// Exit codes
const (
	exitOK          = 0
	exitFatal       = 1
	exitInterrupted = 130
)

func main() {
	ctx, stop := setupSignalHandler(context.Background())
	defer stop()

	err := NewRootCmd().ExecuteContext(ctx)
	code := exitCode(err)
	switch code {
	case exitInterrupted:
		fmt.Fprintf(os.Stderr, "dupelink: interrupted\n")
	case exitFatal:
		fmt.Fprintf(os.Stderr, "dupelink: %v\n", err)
	}
	stop()
	os.Exit(code)
}

// exitCode maps a command error to the process exit status
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, context.Canceled):
		return exitInterrupted
	default:
		return exitFatal
	}
}
