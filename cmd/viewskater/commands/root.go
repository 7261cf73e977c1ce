// Package commands implements the viewskater CLI.
package commands

import (
	"context"
	"io"

	"github.com/spf13/cobra"
)

// Version is stamped by the build; "dev" otherwise.
var Version = "dev"

// CLI wires the root command and its subcommands.
type CLI struct {
	rootCmd *cobra.Command
}

// New creates the CLI.
func New() *CLI {
	rootCmd := &cobra.Command{
		Use:           "viewskater",
		Short:         "Fast image viewer core and navigation benchmark harness",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       Version,
	}
	rootCmd.InitDefaultVersionFlag()
	rootCmd.InitDefaultHelpFlag()

	c := &CLI{rootCmd: rootCmd}
	replayCmd, _ := newReplayCmd()
	rootCmd.AddCommand(replayCmd)
	return c
}

// Execute runs the root command with the given context.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

// SetOutput sets the output and error streams. Used for testing.
func (c *CLI) SetOutput(out, err io.Writer) {
	c.rootCmd.SetOut(out)
	c.rootCmd.SetErr(err)
}
