// Package commands implements the CLI commands for invoscan.
package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sheldonz/invoscan/internal/config"
	"github.com/sheldonz/invoscan/internal/logger"
	"github.com/sheldonz/invoscan/pkg/vision"
)

var rootCmd = &cobra.Command{
	Use:   "invoscan",
	Short: "Batch OCR for invoice files using vision language models",
	Long: `Invoscan walks a directory of invoice PDFs and images, sends each file
to a vision language model, and aggregates the extracted amounts into
summary reports.

Supported providers: local Ollama, Volcengine Ark, OpenRouter.

Examples:
  # Scan the current directory with the configured provider
  invoscan scan .

  # Full field extraction, validation precheck, Excel report
  invoscan scan ~/invoices --mode full --report xlsx

  # Use OpenRouter and rename files to <amount>-<buyer>
  invoscan scan ~/invoices -p openrouter -k "$OPENROUTER_API_KEY" --rename

  # List the models the configured provider serves
  invoscan models`,
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file (default $HOME/.invoscan.json)")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "suppress progress output")
	rootCmd.PersistentFlags().Bool("log-json", false, "write logs as JSON")

	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	_ = viper.BindPFlag("log_json", rootCmd.PersistentFlags().Lookup("log-json"))
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// initLogger configures the process logger from the global flags.
func initLogger() {
	logger.Init(logger.Options{
		Debug: viper.GetBool("debug"),
		Quiet: viper.GetBool("quiet"),
		JSON:  viper.GetBool("log_json"),
	})
}

// loadConfig reads the persisted configuration, honoring --config.
func loadConfig() (*config.Config, error) {
	return config.Load(viper.GetString("config"))
}

// addProviderFlags registers the provider selection flags shared by the
// commands that talk to a backend.
func addProviderFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringP("provider", "p", "", "vision provider: ollama, volcengine, openrouter")
	flags.StringP("model", "m", "", "model name (provider-specific)")
	flags.StringP("api-key", "k", "", "API key (or use env var)")
	flags.String("endpoint", "", "Volcengine Ark endpoint ID (ep-...)")
}

// applyProviderFlags overlays provider flags onto the loaded config. Flags
// the command does not define are simply absent and skipped.
func applyProviderFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()

	if flags.Changed("provider") {
		cfg.Provider, _ = flags.GetString("provider")
	}
	if flags.Changed("model") {
		model, _ := flags.GetString("model")
		switch cfg.Provider {
		case vision.ProviderVolcengine:
			cfg.Volcengine.Model = model
		case vision.ProviderOpenRouter:
			cfg.OpenRouter.Model = model
		default:
			cfg.Ollama.Model = model
		}
	}
	if flags.Changed("api-key") {
		key, _ := flags.GetString("api-key")
		switch cfg.Provider {
		case vision.ProviderOpenRouter:
			cfg.OpenRouter.APIKey = key
		default:
			cfg.Volcengine.APIKey = key
		}
	}
	if flags.Changed("endpoint") {
		cfg.Volcengine.EndpointID, _ = flags.GetString("endpoint")
	}
	if flags.Changed("max-retries") {
		cfg.MaxRetries, _ = flags.GetInt("max-retries")
	}
	if flags.Changed("timeout") {
		d, _ := flags.GetDuration("timeout")
		cfg.TimeoutSeconds = int(d.Seconds())
	}
	if flags.Changed("mode") {
		cfg.Mode, _ = flags.GetString("mode")
	}
}

// logError prints an error message to stderr.
func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}

// logInfo prints a progress line to stdout (unless quiet mode). Reports go
// to files, so stdout is free for the human-facing batch output.
func logInfo(format string, args ...any) {
	if !viper.GetBool("quiet") {
		fmt.Fprintf(os.Stdout, format+"\n", args...)
	}
}
