package cmd

import (
	"errors"
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/openit/packages/mime"
)

var mimeFileFlag bool

var mimeCmd = &cobra.Command{
	Use:   "mime [ext...]",
	Short: "Look up MIME types by extension",
	Long: `Print the MIME type for each extension, or the whole table when no
extension is given. With --file the arguments are file names.

Examples:
  openit mime json png
  openit mime --file report.pdf photo.JPG`,
	RunE:              mimeCommand,
	ValidArgsFunction: completeExtensions,
}

func init() {
	mimeCmd.Flags().BoolVar(&mimeFileFlag, "file", false, "Treat arguments as file names")
}

func mimeCommand(cmd *cobra.Command, args []string) error {
	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.Header([]string{"Extension", "MIME Type"})

	if len(args) == 0 {
		for _, ext := range mime.Extensions() {
			t, _ := mime.TypeOf(ext)
			if err := table.Append([]string{ext, t}); err != nil {
				return err
			}
		}
		return table.Render()
	}

	var unknown []string
	for _, arg := range args {
		ext := arg
		if mimeFileFlag {
			ext = mime.Extension(arg)
		}
		t, err := mime.TypeOf(ext)
		if errors.Is(err, mime.ErrUnknownExtension) {
			unknown = append(unknown, arg)
			t = "-"
		}
		if err := table.Append([]string{arg, t}); err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return err
	}

	if len(unknown) > 0 {
		return withExitCode(ExitFailure, fmt.Errorf("unknown extension: %v", unknown))
	}
	return nil
}
