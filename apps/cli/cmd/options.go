package cmd

import (
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/openit/packages/http"
)

var optionsCmd = &cobra.Command{
	Use:   "options",
	Short: "List the transport options accepted by --option",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		table := tablewriter.NewWriter(cmd.OutOrStdout())
		table.Header([]string{"Option", "Description"})
		for _, opt := range http.SupportedOptions() {
			if err := table.Append([]string{string(opt), http.OptionUsage(opt)}); err != nil {
				return err
			}
		}
		return table.Render()
	},
}
