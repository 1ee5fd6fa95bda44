package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sheldonz/invoscan/pkg/vision"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List models available from the configured provider",
	Long: `List the models the configured provider can serve. Ollama reports its
locally pulled models; OpenRouter reports its vision-capable catalog.
Volcengine Ark has no listing endpoint, so only the configured endpoint
is shown there.`,
	RunE: runModels,
}

func init() {
	rootCmd.AddCommand(modelsCmd)
	addProviderFlags(modelsCmd)
	modelsCmd.Flags().Bool("json", false, "print the model list as JSON")
}

func runModels(cmd *cobra.Command, args []string) error {
	initLogger()

	cfg, err := loadConfig()
	if err != nil {
		logError("failed to load config: %v", err)
		return err
	}
	applyProviderFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		logError("%v", err)
		return err
	}

	provider, err := vision.NewProvider(cfg.ToProviderConfig())
	if err != nil {
		logError("failed to create provider: %v", err)
		return err
	}

	lister, ok := vision.AsModelLister(provider)
	if !ok {
		// No listing endpoint (Volcengine Ark); show what is configured.
		fmt.Printf("%-48s configured\n", provider.Model())
		logInfo("\nprovider %s cannot enumerate models", provider.Name())
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	models, err := lister.ListModels(ctx)
	if err != nil {
		logError("failed to list models: %v", err)
		return err
	}

	if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(models)
	}

	for _, m := range models {
		if m.Description != "" {
			fmt.Printf("%-48s %s\n", m.ID, m.Description)
		} else {
			fmt.Println(m.ID)
		}
	}
	logInfo("\n%d models available from %s", len(models), provider.Name())
	return nil
}
