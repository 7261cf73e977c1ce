// Command viewskater runs the image viewer tooling, currently the
// replay navigation benchmark.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ggand0/viewskater/cmd/viewskater/commands"
	"github.com/ggand0/viewskater/internal/replay"
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:]))
}

func run(ctx context.Context, args []string) int {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cli := commands.New()
	cli.SetArgs(args)
	cli.SetOutput(os.Stdout, os.Stderr)

	if err := cli.Execute(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		if errors.Is(err, replay.ErrInvalidConfig) {
			return 2
		}
		return 1
	}
	return 0
}
