package cmd

import (
	"fmt"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/openit/packages/history"
)

var (
	historyLimitFlag int
	historyClearFlag bool
	historyPathFlag  string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show requests recorded with --history",
	Args:  cobra.NoArgs,
	RunE:  historyCommand,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimitFlag, "limit", "n", getEnvInt("OPENIT_HISTORY_LIMIT", 20), "Number of entries to show, newest first (env: OPENIT_HISTORY_LIMIT)")
	historyCmd.Flags().BoolVar(&historyClearFlag, "clear", false, "Delete all recorded entries")
	historyCmd.Flags().StringVar(&historyPathFlag, "history", getEnvString("OPENIT_HISTORY", ""), "History database path (env: OPENIT_HISTORY)")
}

func historyCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	path := cfg.History
	if historyPathFlag != "" {
		path = historyPathFlag
	}
	if path == "" {
		return usageError("no history database, set --history or \"history\" in the config file")
	}

	store, err := history.Open(path)
	if err != nil {
		return configError(fmt.Errorf("cannot open history: %w", err))
	}
	defer store.Close()

	ctx := cmd.Context()
	if historyClearFlag {
		n, err := store.Clear(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d entries\n", n)
		return nil
	}

	entries, err := store.List(ctx, historyLimitFlag)
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.Header([]string{"Time", "Method", "URL", "Status", "Duration", "Size"})
	for _, e := range entries {
		status := strconv.Itoa(e.Status)
		if e.ErrorCode != 0 {
			status = fmt.Sprintf("error %d", e.ErrorCode)
		}
		row := []string{
			e.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			e.Method,
			e.URL,
			status,
			fmt.Sprintf("%dms", e.DurationMs),
			strconv.Itoa(e.Size),
		}
		if err := table.Append(row); err != nil {
			return err
		}
	}
	return table.Render()
}
