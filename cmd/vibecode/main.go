// vibecode
//
// Fill in Go functions and inline function literals with code written by a
// language model, from a //go:generate line.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	version  = "dev"
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "vibecode",
	Short: "vibecode - let a model write your function bodies",
	Long: `vibecode expands template files whose functions are marked with a
//vibecode:fn directive, or which call vibecode.Run inline, by asking a
language model for the code and splicing the reply into a generated file.

  vibecode config set OPENAI_API_KEY sk-...     Store the API key
  vibecode generate mathx.go                    Expand a template
  vibecode respond --complexity high "..."      Send a single request

In a template, add:

  //go:build vibecode
  //go:generate vibecode generate

and run: go generate -tags vibecode ./...`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides VIBECODE_LOG_LEVEL)")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
