package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/openit/packages/core/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate <config-file>...",
	Short: "Check config files without sending anything",
	Long: `Load each config file and report syntax errors, unsupported options and
out of range values.

Examples:
  openit validate .openit.yaml
  openit validate .openit.json ci/.openit.toml`,
	Args: cobra.MinimumNArgs(1),
	RunE: validateCommand,
}

func validateCommand(cmd *cobra.Command, args []string) error {
	hasErrors := false
	for _, file := range args {
		cfg, err := config.LoadConfig(file)
		if err == nil {
			err = cfg.Validate()
		}
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error in %s: %v\n", file, err)
			hasErrors = true
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "Valid: %s\n", file)
		}
	}

	if hasErrors {
		return configError(fmt.Errorf("validation failed"))
	}
	return nil
}
