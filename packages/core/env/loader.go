package env

import (
	"os"
	"strings"
)

// VariablePrefix marks OS environment variables that become template
// variables, with the prefix removed: OPENIT_VAR_TOKEN is {{TOKEN}}.
const VariablePrefix = "OPENIT_VAR_"

// LoadSystemEnv returns the OS environment variables whose name starts
// with prefix, keyed by the rest of the name. An empty prefix returns
// everything.
func LoadSystemEnv(prefix string) map[string]string {
	result := make(map[string]string)
	for _, e := range os.Environ() {
		key, value, ok := strings.Cut(e, "=")
		if !ok {
			continue
		}
		if prefix == "" {
			result[key] = value
			continue
		}
		if name, found := strings.CutPrefix(key, prefix); found && name != "" {
			result[name] = value
		}
	}
	return result
}

// MergeVariables merges sources left to right; later sources win.
func MergeVariables(sources ...map[string]string) map[string]string {
	result := make(map[string]string)
	for _, src := range sources {
		for k, v := range src {
			result[k] = v
		}
	}
	return result
}

// NewResolverFrom builds a resolver seeded with OPENIT_VAR_* variables and
// the given .env files, in that order of precedence (files win).
func NewResolverFrom(envFiles ...string) (*Resolver, error) {
	fileVars, err := LoadDotEnvFiles(envFiles...)
	if err != nil {
		return nil, err
	}
	r := NewResolver()
	r.SetVariables(MergeVariables(LoadSystemEnv(VariablePrefix), fileVars))
	return r, nil
}
