package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/openit/packages/http"
	"github.com/abdul-hamid-achik/openit/packages/mime"
	"github.com/abdul-hamid-achik/openit/packages/notify"
)

// The completion command itself is cobra's default one. These functions
// feed it the values openit accepts.

func registerSendCompletions(cmd *cobra.Command) {
	fixed := map[string][]string{
		"request":   {http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, "HEAD", "OPTIONS"},
		"auth":      {http.AuthBasic, http.AuthDigest, http.AuthAny},
		"output":    {"console", "json", "junit"},
		"notify-on": {string(notify.NotifyAlways), string(notify.NotifyFailure), string(notify.NotifySuccess), string(notify.NotifyRecovery)},
		"notify":    {"slack:", "webhook:"},
	}
	for name, values := range fixed {
		directive := cobra.ShellCompDirectiveNoFileComp
		if name == "notify" {
			directive |= cobra.ShellCompDirectiveNoSpace
		}
		_ = cmd.RegisterFlagCompletionFunc(name, cobra.FixedCompletions(values, directive))
	}
	_ = cmd.RegisterFlagCompletionFunc("option", completeOptionNames)
}

// completeOptionNames offers "name=" for every whitelisted option, with its
// usage as the description.
func completeOptionNames(_ *cobra.Command, _ []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	var out []string
	for _, name := range http.SupportedOptions() {
		if strings.HasPrefix(string(name), strings.ToLower(toComplete)) {
			out = append(out, string(name)+"=\t"+http.OptionUsage(name))
		}
	}
	return out, cobra.ShellCompDirectiveNoSpace | cobra.ShellCompDirectiveNoFileComp
}

// completeExtensions offers the extensions of the MIME table not already
// given. With --file the arguments are paths, so the shell completes files.
func completeExtensions(_ *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if mimeFileFlag {
		return nil, cobra.ShellCompDirectiveDefault
	}
	seen := make(map[string]bool, len(args))
	for _, arg := range args {
		seen[strings.ToLower(strings.TrimPrefix(arg, "."))] = true
	}
	var out []string
	for _, ext := range mime.Extensions() {
		if !seen[ext] && strings.HasPrefix(ext, strings.ToLower(toComplete)) {
			out = append(out, ext)
		}
	}
	return out, cobra.ShellCompDirectiveNoFileComp
}
