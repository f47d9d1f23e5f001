package cmd

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/openit/packages/core/config"
	"github.com/abdul-hamid-achik/openit/packages/log"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

var (
	configFlag  string
	verboseFlag bool
	noColorFlag bool
	logFileFlag string
)

var rootCmd = &cobra.Command{
	Use:   "openit",
	Short: "Build and send HTTP requests from the command line.",
	Long: `openit builds an HTTP request from a URL, params, a body, headers and
transport options, sends it once and prints the response.

Transport failures never crash: the response becomes
  Error: "<message>" - Code: <code>
with curl-compatible codes.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute(v, bt string) {
	version = v
	buildTime = bt
	os.Exit(run(os.Args[1:]))
}

// run executes the root command with args and returns the exit code.
func run(args []string) int {
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	var ee *exitError
	if err != nil && (!errors.As(err, &ee) || ee.err != nil) {
		fmt.Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", err)
	}
	return exitCode(err)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", getEnvString("OPENIT_CONFIG", ""), "Path to config file (env: OPENIT_CONFIG)")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", getEnvBool("OPENIT_VERBOSE", false), "Verbose output and debug logging (env: OPENIT_VERBOSE)")
	rootCmd.PersistentFlags().BoolVar(&noColorFlag, "no-color", getEnvBool("OPENIT_NO_COLOR", false), "Disable colored output (env: OPENIT_NO_COLOR)")
	rootCmd.PersistentFlags().StringVar(&logFileFlag, "log-file", getEnvString("OPENIT_LOG_FILE", ""), "Also write JSON logs to a rotated file (env: OPENIT_LOG_FILE)")

	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(mimeCmd)
	rootCmd.AddCommand(optionsCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(versionCmd)
}

// Environment variable helpers
func getEnvString(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		return val == "true" || val == "1" || val == "yes"
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

// loadConfig loads the config file and lets CLI flags override it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(configFlag)
	if err != nil {
		return nil, configError(fmt.Errorf("cannot load config: %w", err))
	}

	overrides := &config.Config{LogFile: logFileFlag}
	if verboseFlag {
		overrides.Verbose = config.BoolPtr(true)
	}
	if noColorFlag {
		overrides.NoColor = config.BoolPtr(true)
	}
	return cfg.Merge(overrides), nil
}

func newLogger(cmd *cobra.Command, cfg *config.Config) (zerolog.Logger, func() error) {
	return log.New(log.Config{
		Debug:   cfg.GetVerbose(),
		NoColor: cfg.GetNoColor(),
		Console: cmd.ErrOrStderr(),
		File:    cfg.LogFile,
	})
}
