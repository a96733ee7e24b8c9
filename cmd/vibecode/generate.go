package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jxucoder/vibecode/internal/generate"
)

var (
	generateOutput string
	generateJobs   int
)

var generateCmd = &cobra.Command{
	Use:   "generate [file...]",
	Short: "Expand vibecode sites in template files",
	Long: `Expand every //vibecode:fn function and vibecode.Run call in the given
template files. Each template foo.go is written to foo_vibecoded.go unless
-o is set. With no arguments the file named by $GOFILE is used, so the
command works from a //go:generate line.

Nothing is written for a file unless every site in it expands cleanly.`,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVarP(&generateOutput, "output", "o", "", "Output file (only with a single template)")
	generateCmd.Flags().IntVarP(&generateJobs, "jobs", "j", 0, "Sites expanded concurrently per file (default VIBECODE_JOBS or 4)")
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	files := args
	if len(files) == 0 {
		gofile := os.Getenv("GOFILE")
		if gofile == "" {
			return fmt.Errorf("no template given and $GOFILE is not set")
		}
		files = []string{gofile}
	}
	if generateOutput != "" && len(files) > 1 {
		return fmt.Errorf("--output can only be used with a single template")
	}

	cfg, log, err := setup(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	responder, err := cfg.NewResponder()
	if err != nil {
		return fmt.Errorf("configuring %s client: %w", cfg.Provider, err)
	}

	jobs := cfg.Jobs
	if generateJobs > 0 {
		jobs = generateJobs
	}
	gen := generate.New(responder, generate.WithJobs(jobs), generate.WithLogger(log))

	for _, f := range files {
		if err := gen.File(cmd.Context(), f, generateOutput); err != nil {
			if errors.Is(err, generate.ErrNoSites) {
				log.Warn().Str("template", f).Msg("nothing to expand")
				continue
			}
			return err
		}
	}
	return nil
}
