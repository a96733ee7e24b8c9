package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jxucoder/vibecode/pkg/llm"
	"github.com/jxucoder/vibecode/pkg/splice"
)

var (
	respondComplexity   string
	respondInstructions string
	respondSplice       string
)

var respondCmd = &cobra.Command{
	Use:   "respond [input]",
	Short: "Send one request to the model and print the reply",
	Long: `Send instructions plus input to the configured model and print the
generated text verbatim. Input is read from stdin when no argument is given.

With --splice=func or --splice=lit the reply is also checked as a Go
function declaration or function literal, and lex or parse failures are
reported as errors.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRespond,
}

func init() {
	respondCmd.Flags().StringVarP(&respondComplexity, "complexity", "c", "low", "Model tier: low, medium, high")
	respondCmd.Flags().StringVarP(&respondInstructions, "instructions", "i", "", "Instructions sent with the input")
	respondCmd.Flags().StringVar(&respondSplice, "splice", "", "Check the reply as Go code: func or lit")
	rootCmd.AddCommand(respondCmd)
}

func runRespond(cmd *cobra.Command, args []string) error {
	complexity, err := llm.ParseComplexity(respondComplexity)
	if err != nil {
		return err
	}
	check, err := spliceCheck(respondSplice)
	if err != nil {
		return err
	}

	var input string
	if len(args) == 1 {
		input = args[0]
	} else {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("reading input: %w", err)
		}
		input = string(data)
	}
	if strings.TrimSpace(input) == "" {
		return fmt.Errorf("input is empty")
	}

	cfg, log, err := setup(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	responder, err := cfg.NewResponder()
	if err != nil {
		return fmt.Errorf("configuring %s client: %w", cfg.Provider, err)
	}

	log.Debug().Str("complexity", complexity.String()).Str("provider", cfg.Provider).Msg("sending request")
	text, err := responder.Respond(cmd.Context(), complexity, respondInstructions, input)
	switch {
	case llm.IsModelOutputError(err):
		log.Error().Err(err).Msg("model returned no usable text")
		return err
	case err != nil:
		log.Error().Err(err).Msg("request failed")
		return err
	}

	if check != nil {
		if _, err := check(text); err != nil {
			return err
		}
	}
	fmt.Fprint(cmd.OutOrStdout(), text)
	return nil
}

func spliceCheck(kind string) (func(string) (*splice.Snippet, error), error) {
	switch kind {
	case "":
		return nil, nil
	case "func":
		return splice.FuncDecl, nil
	case "lit":
		return splice.FuncLit, nil
	}
	return nil, fmt.Errorf("unknown --splice value %q (want func or lit)", kind)
}
