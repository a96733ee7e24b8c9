package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jxucoder/vibecode/internal/config"
)

// configKey describes a single configuration value.
type configKey struct {
	Key    string
	Desc   string
	Secret bool
	Prefix string // expected prefix for validation (e.g. "sk-"), empty = no check
}

// allConfigKeys lists every configurable value in display order.
var allConfigKeys = []configKey{
	{"VIBECODE_PROVIDER", "Model provider (openai, anthropic)", false, ""},
	{"OPENAI_API_KEY", "OpenAI API key", true, "sk-"},
	{"ANTHROPIC_API_KEY", "Anthropic API key", true, "sk-ant-"},
	{"VIBECODE_BASE_URL", "API base URL override", false, ""},
	{"VIBECODE_REASONING_EFFORT", "Reasoning effort (low, medium, high)", false, ""},
	{"VIBECODE_TIMEOUT", "Timeout per model call (e.g. 2m)", false, ""},
	{"VIBECODE_LOG_LEVEL", "Log level (debug, info, warn, error)", false, ""},
	{"VIBECODE_JOBS", "Sites expanded concurrently per file", false, ""},
}

// ---------------------------------------------------------------------------
// Cobra commands
// ---------------------------------------------------------------------------

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage vibecode configuration",
	Long: `Manage vibecode configuration (API keys, provider, etc.).

Configuration is stored in ~/.vibecode/config.env (or $VIBECODE_CONFIG)
and can be overridden by environment variables.

  vibecode config set KEY VALUE      Set a single config value
  vibecode config show               Show current configuration
  vibecode config path               Print config file path`,
}

var configSetCmd = &cobra.Command{
	Use:   "set KEY VALUE",
	Short: "Set a config value",
	Long: `Set a single configuration value. Example:
  vibecode config set OPENAI_API_KEY sk-xxxxxxxxxxxx`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  "Display all configured values. Secrets are masked.",
	RunE:  runConfigShow,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print config file path",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintln(cmd.OutOrStdout(), config.FilePath())
		return nil
	},
}

func init() {
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// effectiveValue returns the current value for a key, preferring env vars over config file.
func effectiveValue(key string, fileValues map[string]string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fileValues[key]
}

// maskSecret masks a secret string, showing only the first 4 and last 4 characters.
func maskSecret(s string) string {
	if len(s) <= 12 {
		return strings.Repeat("*", len(s))
	}
	return s[:4] + strings.Repeat("*", len(s)-8) + s[len(s)-4:]
}

// findKey looks up a configKey by name.
func findKey(name string) (configKey, bool) {
	for _, ck := range allConfigKeys {
		if ck.Key == name {
			return ck, true
		}
	}
	return configKey{Key: name}, false
}

// ---------------------------------------------------------------------------
// config set / config show
// ---------------------------------------------------------------------------

// runConfigSet sets a single key=value in the config file.
func runConfigSet(cmd *cobra.Command, args []string) error {
	key, value := args[0], args[1]

	ck, known := findKey(key)
	if ck.Prefix != "" && value != "" && !strings.HasPrefix(value, ck.Prefix) {
		return fmt.Errorf("%s should start with %q", key, ck.Prefix)
	}

	fileValues, err := config.ReadFile()
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}
	fileValues[key] = value
	if err := config.WriteFile(fileValues); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if !known {
		fmt.Fprintf(out, "warning: %s is not a known vibecode setting\n", key)
	}
	if ck.Secret {
		fmt.Fprintf(out, "Set %s = %s\n", key, maskSecret(value))
	} else {
		fmt.Fprintf(out, "Set %s = %s\n", key, value)
	}
	return nil
}

// runConfigShow displays the current effective configuration.
func runConfigShow(cmd *cobra.Command, args []string) error {
	fileValues, err := config.ReadFile()
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}
	printConfig(cmd.OutOrStdout(), fileValues)
	return nil
}

func printConfig(w io.Writer, fileValues map[string]string) {
	fmt.Fprintf(w, "Config file: %s\n\n", config.FilePath())

	for _, ck := range allConfigKeys {
		value := effectiveValue(ck.Key, fileValues)
		source := ""
		if os.Getenv(ck.Key) != "" {
			source = " (from env)"
		} else if fileValues[ck.Key] != "" {
			source = " (from config file)"
		}

		display := "(not set)"
		if value != "" {
			if ck.Secret {
				display = maskSecret(value)
			} else {
				display = value
			}
		}
		fmt.Fprintf(w, "  %-27s %s%s\n", ck.Key, display, source)
	}

	// Keys in the file that vibecode does not know about.
	var extras []string
	for k := range fileValues {
		if _, known := findKey(k); !known {
			extras = append(extras, k)
		}
	}
	if len(extras) > 0 {
		sort.Strings(extras)
		fmt.Fprintf(w, "\n  Unknown keys in config file: %s\n", strings.Join(extras, ", "))
	}
}
