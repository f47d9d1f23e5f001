package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/openit/packages/auth/oauth2"
	"github.com/abdul-hamid-achik/openit/packages/bench"
	"github.com/abdul-hamid-achik/openit/packages/check"
	"github.com/abdul-hamid-achik/openit/packages/core/config"
	"github.com/abdul-hamid-achik/openit/packages/core/env"
	"github.com/abdul-hamid-achik/openit/packages/history"
	"github.com/abdul-hamid-achik/openit/packages/http"
	"github.com/abdul-hamid-achik/openit/packages/notify"
	"github.com/abdul-hamid-achik/openit/packages/output"
)

var sendCmd = &cobra.Command{
	Use:   "send <url>",
	Short: "Build and send one HTTP request",
	Long: `Build a request from flags, send it once and print the response.

GET requests carry params in the query string; any other method sends
them as the body. Values may reference {{VAR}} from --env-file,
{{$ENV_VAR}} from the environment and builtin functions like {{uuid()}}.

Examples:
  openit send https://api.example.com/users -p page=2
  openit send https://api.example.com/users -X POST -p name=Ada -p role=admin
  openit send https://api.example.com/upload -F avatar=./me.png
  openit send https://api.example.com/items -d '{"a":1}' -H "Content-Type: {{mime(json)}}"
  openit send https://api.example.com/users/1 --select name
  openit send https://api.example.com/users/1 -e "status == 200" -e "body.id exists"
  openit send https://api.example.com/items -d @body.json --watch body.json`,
	Args: cobra.ExactArgs(1),
	RunE: sendCommand,
}

const (
	// WatchDebounceDelay is the debounce delay for file watch events
	WatchDebounceDelay = 300 * time.Millisecond
)

var (
	requestFlag  string
	dataFlags    []string
	paramFlags   []string
	headerFlags  []string
	fileFlags    []string
	optionFlags  []string
	locationFlag bool
	insecureFlag bool
	includeFlag  bool
	timeoutFlag  string
	proxyFlag    string
	userFlag     string
	authFlag     string
	awsSigV4Flag string

	selectFlag  string
	schemaFlag  string
	expectFlags []string
	outputFlag  string

	watchFlags   []string
	envFileFlags []string
	historyFlag  string
	repeatFlag   int
	rateFlag     float64
	notifyFlags  []string
	notifyOnFlag string

	oauth2TokenURLFlag string
	oauth2ClientFlag   string
	oauth2UserFlag     string
	oauth2ScopeFlags   []string
)

func init() {
	// Request flags
	sendCmd.Flags().StringVarP(&requestFlag, "request", "X", "", "Request method (default GET, or POST with --data/--file)")
	sendCmd.Flags().StringArrayVarP(&dataFlags, "data", "d", nil, "Raw body; @file reads a file; repeated values are joined with &")
	sendCmd.Flags().StringArrayVarP(&paramFlags, "param", "p", nil, "Param as key=value, in order")
	sendCmd.Flags().StringArrayVarP(&headerFlags, "header", "H", nil, `Header as "Name: Value"`)
	sendCmd.Flags().StringArrayVarP(&fileFlags, "file", "F", nil, "File param as field=path[;display-name]")
	sendCmd.Flags().StringArrayVarP(&optionFlags, "option", "o", nil, "Transport option as name=value (see 'openit options')")

	// Transport shortcuts
	sendCmd.Flags().BoolVarP(&locationFlag, "location", "L", getEnvBool("OPENIT_FOLLOW_REDIRECTS", false), "Follow redirects (env: OPENIT_FOLLOW_REDIRECTS)")
	sendCmd.Flags().BoolVarP(&insecureFlag, "insecure", "k", getEnvBool("OPENIT_INSECURE", false), "Disable SSL certificate validation (env: OPENIT_INSECURE)")
	sendCmd.Flags().BoolVarP(&includeFlag, "include", "i", false, "Include the status line and headers in the response")
	sendCmd.Flags().StringVar(&timeoutFlag, "timeout", getEnvString("OPENIT_TIMEOUT", ""), "Request timeout (e.g., 30s, 1m) (env: OPENIT_TIMEOUT)")
	sendCmd.Flags().StringVar(&proxyFlag, "proxy", getEnvString("OPENIT_PROXY", ""), "Proxy URL (env: OPENIT_PROXY)")
	sendCmd.Flags().StringVarP(&userFlag, "user", "u", getEnvString("OPENIT_USER", ""), "Credentials as user:password (env: OPENIT_USER)")
	sendCmd.Flags().StringVar(&authFlag, "auth", "", "Authentication scheme for --user: basic, digest, any")
	sendCmd.Flags().StringVar(&awsSigV4Flag, "aws-sigv4", "", "Sign with AWS SigV4, e.g. aws:amz:us-east-1:s3 (--user holds the keys)")

	// OAuth2
	sendCmd.Flags().StringVar(&oauth2TokenURLFlag, "oauth2-token-url", getEnvString("OPENIT_OAUTH2_TOKEN_URL", ""), "Fetch a bearer token from this endpoint first (env: OPENIT_OAUTH2_TOKEN_URL)")
	sendCmd.Flags().StringVar(&oauth2ClientFlag, "oauth2-client", getEnvString("OPENIT_OAUTH2_CLIENT", ""), "OAuth2 client as id[:secret] (env: OPENIT_OAUTH2_CLIENT)")
	sendCmd.Flags().StringVar(&oauth2UserFlag, "oauth2-user", getEnvString("OPENIT_OAUTH2_USER", ""), "Use the password grant with user:password (env: OPENIT_OAUTH2_USER)")
	sendCmd.Flags().StringArrayVar(&oauth2ScopeFlags, "oauth2-scope", nil, "OAuth2 scope to request")

	// Response flags
	sendCmd.Flags().StringVar(&selectFlag, "select", "", "Print only this JSON path of the response (gjson syntax)")
	sendCmd.Flags().StringVar(&schemaFlag, "schema", "", "Validate the response body against a JSON Schema file")
	sendCmd.Flags().StringArrayVarP(&expectFlags, "expect", "e", nil, `Check the response, e.g. "status == 200"`)
	sendCmd.Flags().StringVar(&outputFlag, "output", getEnvString("OPENIT_OUTPUT", "console"), "Output format: console, json, junit (env: OPENIT_OUTPUT)")

	// Inputs
	sendCmd.Flags().StringArrayVarP(&watchFlags, "watch", "w", nil, "Re-send when this file or directory changes")
	sendCmd.Flags().StringArrayVar(&envFileFlags, "env-file", envFileDefault(), "Path to .env file for {{VAR}} interpolation (env: OPENIT_ENV_FILE)")
	sendCmd.Flags().StringVar(&historyFlag, "history", getEnvString("OPENIT_HISTORY", ""), "Record the request in this SQLite database (env: OPENIT_HISTORY)")

	// Notifications
	sendCmd.Flags().StringArrayVar(&notifyFlags, "notify", nil, "Post the outcome to slack:<webhook-url> or webhook:<url>")
	sendCmd.Flags().StringVar(&notifyOnFlag, "notify-on", getEnvString("OPENIT_NOTIFY_ON", "failure"), "When to notify: always, failure, success, recovery (env: OPENIT_NOTIFY_ON)")

	// Repetition
	sendCmd.Flags().IntVarP(&repeatFlag, "repeat", "n", 1, "Send the request this many times, one after another, and print a latency summary")
	sendCmd.Flags().Float64Var(&rateFlag, "rate", 0, "With --repeat, cap sends per second (0 = no limit)")

	registerSendCompletions(sendCmd)
}

func envFileDefault() []string {
	if path := getEnvString("OPENIT_ENV_FILE", ""); path != "" {
		return []string{path}
	}
	return nil
}

// sender holds what stays the same across sends of one invocation.
type sender struct {
	cmd          *cobra.Command
	rawURL       string
	cfg          *config.Config
	logger       zerolog.Logger
	expectations []*check.Expectation
	store        *history.Store
	notifier     *notify.Manager
}

func sendCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, closeLog := newLogger(cmd, cfg)
	defer func() {
		if err := closeLog(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: failed to close log file: %v\n", err)
		}
	}()

	formatter, err := output.New(outputFlag, cmd.OutOrStdout(), cmd.ErrOrStderr(), cfg.GetVerbose(), cfg.GetNoColor())
	if err != nil {
		return withExitCode(ExitUsageError, err)
	}

	s := &sender{cmd: cmd, rawURL: args[0], cfg: cfg, logger: logger}

	for _, raw := range expectFlags {
		exp, err := check.ParseExpectation(raw)
		if err != nil {
			return withExitCode(ExitUsageError, err)
		}
		s.expectations = append(s.expectations, exp)
	}
	if schemaFlag != "" {
		s.expectations = append(s.expectations, &check.Expectation{
			Raw:      "body schema " + schemaFlag,
			Subject:  "body",
			Operator: check.OpSchema,
			Expected: schemaFlag,
		})
	}

	historyPath := cfg.History
	if historyFlag != "" {
		historyPath = historyFlag
	}
	if historyPath != "" {
		store, err := history.Open(historyPath)
		if err != nil {
			return configError(fmt.Errorf("cannot open history: %w", err))
		}
		defer store.Close()
		s.store = store
	}

	if len(notifyFlags) > 0 {
		on, err := notify.ParseNotifyOn(notifyOnFlag)
		if err != nil {
			return withExitCode(ExitUsageError, err)
		}
		var notifiers []notify.Notifier
		for _, target := range notifyFlags {
			n, err := notify.ParseTarget(target, http.NewHTTPTransport(http.WithTransportLogger(logger)))
			if err != nil {
				return withExitCode(ExitUsageError, err)
			}
			notifiers = append(notifiers, n)
		}
		s.notifier = notify.NewManager(on, notifiers...)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if repeatFlag > 1 {
		if len(watchFlags) > 0 {
			return usageError("--repeat cannot be combined with --watch")
		}
		return s.repeat(ctx, formatter)
	}

	outcome, err := s.send(ctx)
	if err != nil {
		return err
	}
	if err := emit(formatter, outcome); err != nil {
		return err
	}

	if len(watchFlags) == 0 {
		return outcomeError(outcome)
	}
	return s.watch(ctx, formatter)
}

// repeat sends repeatFlag times and prints the last outcome plus a
// latency summary. The exit code reflects the worst send.
func (s *sender) repeat(ctx context.Context, formatter output.Formatter) error {
	var last *output.Outcome
	var failedErr error
	summary, err := bench.Run(ctx, bench.Config{Count: repeatFlag, Rate: rateFlag}, func(ctx context.Context, i int) (bench.Result, error) {
		outcome, err := s.send(ctx)
		if err != nil {
			return bench.Result{}, err
		}
		last = outcome

		if oerr := outcomeError(outcome); oerr != nil && exitCode(oerr) > exitCode(failedErr) {
			failedErr = oerr
		}

		var res bench.Result
		if outcome.Err != nil {
			res.ErrorCode = http.Classify(outcome.Err).Code
		} else if outcome.Result != nil {
			res.Status = outcome.Result.StatusCode
			res.Duration = outcome.Result.Duration
		}
		return res, nil
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	if last != nil {
		if err := emit(formatter, last); err != nil {
			return err
		}
	}
	reporter := bench.NewReporter(bench.WithWriter(s.cmd.ErrOrStderr()), bench.WithNoColor(s.cfg.GetNoColor()))
	if err := reporter.Summary(summary); err != nil {
		return err
	}
	return failedErr
}

func emit(formatter output.Formatter, outcome *output.Outcome) error {
	formatter.FormatOutcome(outcome)
	if flushable, ok := formatter.(output.Flushable); ok {
		if err := flushable.Flush(); err != nil {
			return fmt.Errorf("error writing output: %w", err)
		}
	}
	return nil
}

func outcomeError(outcome *output.Outcome) error {
	switch {
	case outcome.Err != nil:
		return withExitCode(ExitNetworkError, nil)
	case !outcome.Passed():
		return withExitCode(ExitFailure, nil)
	default:
		return nil
	}
}

// send builds a fresh request from the flags, sends it and runs checks.
// Errors are usage errors; transport failures are part of the outcome.
func (s *sender) send(ctx context.Context) (*output.Outcome, error) {
	resolver, err := env.NewResolverFrom(envFileFlags...)
	if err != nil {
		return nil, usageError("%v", err)
	}
	resolver.SetWarnFunc(func(format string, args ...any) {
		s.logger.Warn().Msgf(format, args...)
	})

	b, err := s.build(resolver)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, b, resolver); err != nil {
		return nil, err
	}

	b.Send(ctx)

	outcome := &output.Outcome{
		Method:   b.Method(),
		URL:      b.Target(),
		Response: b.Response(),
		Result:   b.Result(),
		Err:      b.Err(),
	}

	if outcome.Result != nil {
		if selectFlag != "" {
			selected, err := check.Select(outcome.Result.Body, selectFlag)
			if err != nil {
				outcome.Checks = append(outcome.Checks, &check.Result{
					Subject:  selectFlag,
					Operator: check.OpExists,
					Message:  err.Error(),
				})
			} else {
				outcome.Selected = &selected
			}
		}
		if len(s.expectations) > 0 {
			outcome.Checks = append(outcome.Checks, check.Evaluate(outcome.Result, s.expectations)...)
		}
	}

	s.record(ctx, outcome)
	s.notify(ctx, outcome)
	return outcome, nil
}

func (s *sender) notify(ctx context.Context, outcome *output.Outcome) {
	if s.notifier == nil {
		return
	}
	summary := &notify.Summary{
		Method: outcome.Method,
		URL:    outcome.URL,
		Passed: outcome.Passed(),
	}
	if outcome.Err != nil {
		summary.ErrorCode = http.Classify(outcome.Err).Code
		summary.Error = outcome.Response
	}
	if outcome.Result != nil {
		summary.Status = outcome.Result.StatusCode
		summary.Duration = outcome.Result.Duration
	}
	for _, c := range outcome.Checks {
		if !c.Passed {
			summary.FailedChecks = append(summary.FailedChecks, fmt.Sprintf("%s %s %v: %s", c.Subject, c.Operator, c.Expected, c.Message))
		}
	}
	if err := s.notifier.Notify(ctx, summary); err != nil {
		s.logger.Warn().Err(err).Msg("failed to send notification")
	}
}

func (s *sender) build(resolver *env.Resolver) (*http.Builder, error) {
	transportOpts := []http.TransportOption{http.WithTransportLogger(s.logger)}
	proxy := s.cfg.Proxy
	if proxyFlag != "" {
		proxy = proxyFlag
	}
	if proxy != "" {
		transportOpts = append(transportOpts, http.WithProxy(resolver.Resolve(proxy)))
	}

	b := http.NewBuilder(
		http.WithLogger(s.logger),
		http.WithOutput(s.cmd.OutOrStdout()),
		http.WithTransport(http.NewHTTPTransport(transportOpts...)),
	)
	s.cfg.Apply(b)
	b.SetURL(resolver.Resolve(s.rawURL))

	for _, raw := range paramFlags {
		key, value, ok := strings.Cut(raw, "=")
		if !ok || key == "" {
			return nil, usageError("invalid param %q, want key=value", raw)
		}
		b.SetParam(resolver.Resolve(key), resolver.Resolve(value))
	}

	for _, raw := range fileFlags {
		field, spec, ok := strings.Cut(raw, "=")
		if !ok || field == "" || spec == "" {
			return nil, usageError("invalid file %q, want field=path[;name]", raw)
		}
		path, name, _ := strings.Cut(resolver.Resolve(spec), ";")
		if err := b.SetFile(field, path, name); err != nil {
			return nil, usageError("file %s: %v", field, err)
		}
	}

	data, err := readData(resolver)
	if err != nil {
		return nil, err
	}
	b.SetData(data)

	for _, raw := range headerFlags {
		name, value, ok := strings.Cut(raw, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, usageError(`invalid header %q, want "Name: Value"`, raw)
		}
		b.SetHeader(strings.TrimSpace(name), resolver.Resolve(strings.TrimSpace(value)))
	}

	switch {
	case requestFlag != "":
		b.SetMethod(requestFlag)
	case data != "" || len(fileFlags) > 0:
		b.SetMethod(http.MethodPost)
	}

	if err := s.applyOptionFlags(b, resolver); err != nil {
		return nil, err
	}
	return b, nil
}

// readData joins the --data values with &. A value starting with @ is
// read from the named file.
func readData(resolver *env.Resolver) (string, error) {
	parts := make([]string, 0, len(dataFlags))
	for _, raw := range dataFlags {
		if path, ok := strings.CutPrefix(raw, "@"); ok {
			content, err := os.ReadFile(resolver.Resolve(path))
			if err != nil {
				return "", usageError("cannot read data file: %v", err)
			}
			raw = string(content)
		}
		parts = append(parts, resolver.Resolve(raw))
	}
	return strings.Join(parts, "&"), nil
}

func (s *sender) applyOptionFlags(b *http.Builder, resolver *env.Resolver) error {
	flags := s.cmd.Flags()
	if flags.Changed("location") || locationFlag {
		b.SetOption(http.OptFollowLocation, locationFlag)
	}
	if insecureFlag {
		b.SetOption(http.OptSSLVerifyHost, false)
	}
	if includeFlag {
		b.SetOption(http.OptHeader, true)
	}
	if timeoutFlag != "" {
		if _, err := time.ParseDuration(timeoutFlag); err != nil {
			return usageError("invalid timeout value %q: %v (use format like 30s, 1m, 500ms)", timeoutFlag, err)
		}
		b.SetOption(http.OptTimeout, timeoutFlag)
	}
	if s.cfg.GetVerbose() {
		b.SetOption(http.OptVerbose, true)
	}
	if userFlag != "" {
		b.SetOption(http.OptUserPwd, resolver.Resolve(userFlag))
	}
	if authFlag != "" {
		b.SetOption(http.OptHTTPAuth, authFlag)
	}
	if awsSigV4Flag != "" {
		b.SetOption(http.OptAWSSigV4, awsSigV4Flag)
	}

	for _, raw := range optionFlags {
		name, value, err := http.ParseOption(raw)
		if err != nil {
			return withExitCode(ExitUsageError, err)
		}
		if !http.IsSupported(name) {
			s.logger.Warn().Str("option", string(name)).Msg("unsupported option, it will be ignored")
		}
		b.SetOption(name, resolver.Resolve(value))
	}
	return nil
}

// authorize fetches an OAuth2 token when a token URL is configured and
// sets it as the Authorization header.
func (s *sender) authorize(ctx context.Context, b *http.Builder, resolver *env.Resolver) error {
	if oauth2TokenURLFlag == "" {
		return nil
	}

	cfg := &oauth2.Config{
		TokenURL:  resolver.Resolve(oauth2TokenURLFlag),
		GrantType: oauth2.ClientCredentials,
		Scopes:    oauth2ScopeFlags,
	}
	cfg.ClientID, cfg.ClientSecret, _ = strings.Cut(resolver.Resolve(oauth2ClientFlag), ":")
	if oauth2UserFlag != "" {
		cfg.GrantType = oauth2.Password
		cfg.Username, cfg.Password, _ = strings.Cut(resolver.Resolve(oauth2UserFlag), ":")
	}
	if err := cfg.Validate(); err != nil {
		return withExitCode(ExitUsageError, err)
	}

	provider := oauth2.NewProvider(cfg, http.NewHTTPTransport(http.WithTransportLogger(s.logger)))
	token, err := provider.GetToken(ctx)
	if err != nil {
		return withExitCode(ExitNetworkError, err)
	}
	b.SetHeader("Authorization", token.AuthorizationHeader())
	return nil
}

func (s *sender) record(ctx context.Context, outcome *output.Outcome) {
	if s.store == nil {
		return
	}
	entry := history.NewEntry(outcome.Method, outcome.URL, outcome.Result, outcome.Err)
	if _, err := s.store.Record(ctx, entry); err != nil {
		s.logger.Warn().Err(err).Msg("failed to record history")
	}
}

// watch re-sends whenever one of the watched paths changes, until ctx is
// cancelled.
func (s *sender) watch(ctx context.Context, formatter output.Formatter) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	// Files are watched through their directory so editors that replace
	// the file on save are still seen.
	watchedFiles := make(map[string]bool)
	watchedDirs := make(map[string]bool)
	for _, path := range watchFlags {
		abs, err := filepath.Abs(path)
		if err != nil {
			return usageError("cannot watch %s: %v", path, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return usageError("cannot watch %s: %v", path, err)
		}
		dir := abs
		if !info.IsDir() {
			dir = filepath.Dir(abs)
			watchedFiles[abs] = true
		} else {
			watchedDirs[abs] = true
		}
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}

	relevant := func(name string) bool {
		abs, err := filepath.Abs(name)
		if err != nil {
			return false
		}
		return watchedFiles[abs] || watchedDirs[filepath.Dir(abs)]
	}

	fmt.Fprintf(s.cmd.ErrOrStderr(), "\nWatching for changes... (press Ctrl+C to stop)\n")

	var debounce <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if (event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) && relevant(event.Name) {
				s.logger.Debug().Str("file", event.Name).Msg("change detected")
				debounce = time.After(WatchDebounceDelay)
			}

		case <-debounce:
			debounce = nil
			fmt.Fprintf(s.cmd.ErrOrStderr(), "\nChange detected, re-sending...\n\n")
			outcome, err := s.send(ctx)
			if err != nil {
				formatter.FormatError(err)
			} else if err := emit(formatter, outcome); err != nil {
				return err
			}
			fmt.Fprintf(s.cmd.ErrOrStderr(), "\nWatching for changes... (press Ctrl+C to stop)\n")

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			formatter.FormatError(fmt.Errorf("watcher error: %w", err))
		}
	}
}
