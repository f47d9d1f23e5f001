package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/openit/packages/core/config"
	"github.com/abdul-hamid-achik/openit/packages/http"
)

var (
	forceInit  bool
	initFormat string
)

var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Create a config file and an example .env",
	Long: `Write a .openit config file with the default settings and a .env
file with an example variable into dir (the current directory by default).

Examples:
  openit init
  openit init --format toml
  openit init ./api --force`,
	Args: cobra.MaximumNArgs(1),
	RunE: initCommand,
}

func init() {
	initCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "Overwrite existing files")
	initCmd.Flags().StringVar(&initFormat, "format", "yaml", "Config file format: yaml, json, toml")
}

func initCommand(cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) == 1 {
		dir = args[0]
	}

	var configName string
	switch initFormat {
	case "yaml", "yml":
		configName = ".openit.yaml"
	case "json":
		configName = ".openit.json"
	case "toml":
		configName = ".openit.toml"
	default:
		return usageError("unknown config format %q (use yaml, json or toml)", initFormat)
	}

	configFile := filepath.Join(dir, configName)
	envFile := filepath.Join(dir, ".env")

	if !forceInit {
		for _, f := range []string{configFile, envFile} {
			if _, err := os.Stat(f); err == nil {
				return usageError("file already exists: %s (use --force to overwrite)", f)
			}
		}
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	cfg := config.DefaultConfig()
	cfg.UserAgent = http.DefaultUserAgent
	cfg.Headers = map[string]string{"Accept": "application/json"}
	if err := cfg.SaveConfig(configFile); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", configFile)

	envContent := `# Referenced as {{baseUrl}} in openit send arguments
baseUrl=http://localhost:3000
`
	if err := os.WriteFile(envFile, []byte(envContent), 0644); err != nil {
		return fmt.Errorf("failed to create env file: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", envFile)

	fmt.Fprintf(cmd.OutOrStdout(), "\nTry: openit send --env-file %s '{{baseUrl}}/health'\n", envFile)
	return nil
}
