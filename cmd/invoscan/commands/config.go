package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sheldonz/invoscan/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the persisted configuration",
	Long: `Inspect and persist invoscan settings. The config file is JSON at
$HOME/.invoscan.json unless --config points elsewhere. Environment
variables (INVOSCAN_*, plus OLLAMA_HOST, ARK_API_KEY and
OPENROUTER_API_KEY) override the file.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE:  runConfigShow,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file location",
	RunE:  runConfigPath,
}

var configSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Write the effective configuration to the config file",
	Long: `Write the effective configuration (file, environment and flags merged)
back to the config file. Useful to persist a provider switch:

  invoscan config save -p openrouter -k "$OPENROUTER_API_KEY"`,
	RunE: runConfigSave,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configSaveCmd)

	addProviderFlags(configSaveCmd)
	configSaveCmd.Flags().String("mode", "", "extraction depth: simple, full")
	configSaveCmd.Flags().Int("max-retries", 0, "total attempts per file")
	configSaveCmd.Flags().String("scan-dir", "", "default directory to scan")
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		logError("failed to load config: %v", err)
		return err
	}

	// Copy before masking so the loaded config stays intact.
	masked := *cfg
	masked.Volcengine.APIKey = maskKey(masked.Volcengine.APIKey)
	masked.OpenRouter.APIKey = maskKey(masked.OpenRouter.APIKey)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(masked)
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	path := viper.GetString("config")
	if path == "" {
		var err error
		path, err = config.DefaultPath()
		if err != nil {
			return err
		}
	}
	fmt.Println(path)
	return nil
}

func runConfigSave(cmd *cobra.Command, args []string) error {
	initLogger()

	cfg, err := loadConfig()
	if err != nil {
		logError("failed to load config: %v", err)
		return err
	}
	applyProviderFlags(cmd, cfg)
	if scanDir, _ := cmd.Flags().GetString("scan-dir"); scanDir != "" {
		cfg.ScanDir = scanDir
	}
	if err := cfg.Validate(); err != nil {
		logError("%v", err)
		return err
	}

	path := viper.GetString("config")
	if err := cfg.Save(path); err != nil {
		logError("failed to save config: %v", err)
		return err
	}
	if path == "" {
		path, _ = config.DefaultPath()
	}
	logInfo("config written: %s", path)
	return nil
}

// maskKey hides all but the edges of an API key for display.
func maskKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 8 {
		return "********"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
