package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/abdul-hamid-achik/openit/packages/http"
)

// Config represents the openit configuration
type Config struct {
	UserAgent       string            `json:"userAgent,omitempty" yaml:"userAgent,omitempty" toml:"userAgent,omitempty"`
	Timeout         int               `json:"timeout,omitempty" yaml:"timeout,omitempty" toml:"timeout,omitempty"` // milliseconds
	FollowRedirects *bool             `json:"followRedirects,omitempty" yaml:"followRedirects,omitempty" toml:"followRedirects,omitempty"`
	MaxRedirects    *int              `json:"maxRedirects,omitempty" yaml:"maxRedirects,omitempty" toml:"maxRedirects,omitempty"`
	ValidateSSL     *bool             `json:"validateSSL,omitempty" yaml:"validateSSL,omitempty" toml:"validateSSL,omitempty"`
	Proxy           string            `json:"proxy,omitempty" yaml:"proxy,omitempty" toml:"proxy,omitempty"`
	Headers         map[string]string `json:"headers,omitempty" yaml:"headers,omitempty" toml:"headers,omitempty"` // Default headers for every request
	Options         map[string]any    `json:"options,omitempty" yaml:"options,omitempty" toml:"options,omitempty"` // Raw transport options
	History         string            `json:"history,omitempty" yaml:"history,omitempty" toml:"history,omitempty"` // SQLite history database
	LogFile         string            `json:"logFile,omitempty" yaml:"logFile,omitempty" toml:"logFile,omitempty"`
	Verbose         *bool             `json:"verbose,omitempty" yaml:"verbose,omitempty" toml:"verbose,omitempty"`
	NoColor         *bool             `json:"noColor,omitempty" yaml:"noColor,omitempty" toml:"noColor,omitempty"`
}

// BoolPtr returns a pointer to a bool value
func BoolPtr(b bool) *bool {
	return &b
}

// getBool returns the value of a bool pointer, or the default if nil
func getBool(b *bool, defaultVal bool) bool {
	if b == nil {
		return defaultVal
	}
	return *b
}

// IntPtr returns a pointer to an int value
func IntPtr(n int) *int {
	return &n
}

// GetMaxRedirects returns the redirect limit, defaulting to 10. Zero follows
// no redirects and -1 follows any number.
func (c *Config) GetMaxRedirects() int {
	if c.MaxRedirects == nil {
		return 10
	}
	return *c.MaxRedirects
}

// GetFollowRedirects returns the follow redirects setting, defaulting to false
func (c *Config) GetFollowRedirects() bool {
	return getBool(c.FollowRedirects, false)
}

// GetValidateSSL returns the validate SSL setting, defaulting to true
func (c *Config) GetValidateSSL() bool {
	return getBool(c.ValidateSSL, true)
}

// GetVerbose returns the verbose setting, defaulting to false
func (c *Config) GetVerbose() bool {
	return getBool(c.Verbose, false)
}

// GetNoColor returns the no color setting, defaulting to false
func (c *Config) GetNoColor() bool {
	return getBool(c.NoColor, false)
}

// ConfigFilenames contains the possible config file names, in search order
var ConfigFilenames = []string{
	".openit.json",
	".openit.yaml",
	".openit.yml",
	".openit.toml",
	"openit.config.json",
}

// LoadConfig loads configuration from the specified path or searches for config files
func LoadConfig(path string) (*Config, error) {
	if path != "" {
		return loadConfigFromFile(path)
	}

	return FindAndLoadConfig(".")
}

// FindAndLoadConfig searches for a config file in the given directory
func FindAndLoadConfig(dir string) (*Config, error) {
	for _, filename := range ConfigFilenames {
		configPath := filepath.Join(dir, filename)
		if _, err := os.Stat(configPath); err == nil {
			return loadConfigFromFile(configPath)
		}
	}

	return DefaultConfig(), nil
}

// loadConfigFromFile loads configuration from a specific file. The format
// follows the extension: .yaml/.yml, .toml, anything else is JSON.
func loadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	config := DefaultConfig()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, config)
	case ".toml":
		err = toml.Unmarshal(data, config)
	default:
		err = json.Unmarshal(data, config)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	return config, nil
}

// Merge merges another config into this one, with other taking precedence
func (c *Config) Merge(other *Config) *Config {
	if other == nil {
		return c
	}

	result := *c

	if other.UserAgent != "" {
		result.UserAgent = other.UserAgent
	}
	if other.Timeout > 0 {
		result.Timeout = other.Timeout
	}
	if other.MaxRedirects != nil {
		result.MaxRedirects = other.MaxRedirects
	}
	if other.Proxy != "" {
		result.Proxy = other.Proxy
	}
	if other.History != "" {
		result.History = other.History
	}
	if other.LogFile != "" {
		result.LogFile = other.LogFile
	}

	// Boolean flags - only override if explicitly set in other config
	if other.FollowRedirects != nil {
		result.FollowRedirects = other.FollowRedirects
	}
	if other.ValidateSSL != nil {
		result.ValidateSSL = other.ValidateSSL
	}
	if other.Verbose != nil {
		result.Verbose = other.Verbose
	}
	if other.NoColor != nil {
		result.NoColor = other.NoColor
	}

	result.Headers = mergeMaps(c.Headers, other.Headers)
	result.Options = mergeMaps(c.Options, other.Options)

	return &result
}

func mergeMaps[V any](base, over map[string]V) map[string]V {
	if len(base) == 0 && len(over) == 0 {
		return base
	}
	out := make(map[string]V, len(base)+len(over))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range over {
		out[k] = v
	}
	return out
}

// Apply seeds a builder with the configured headers and options. Raw
// options are applied last so they win over the typed fields.
func (c *Config) Apply(b *http.Builder) {
	if c.UserAgent != "" {
		b.SetOption(http.OptUserAgent, c.UserAgent)
	}
	if c.Timeout > 0 {
		b.SetOption(http.OptTimeout, fmt.Sprintf("%dms", c.Timeout))
	}
	if c.FollowRedirects != nil {
		b.SetOption(http.OptFollowLocation, *c.FollowRedirects)
	}
	if c.MaxRedirects != nil {
		b.SetOption(http.OptMaxRedirects, *c.MaxRedirects)
	}
	if c.ValidateSSL != nil {
		b.SetOption(http.OptSSLVerifyHost, *c.ValidateSSL)
	}
	if c.Verbose != nil {
		b.SetOption(http.OptVerbose, *c.Verbose)
	}
	if len(c.Headers) > 0 {
		b.SetHeaders(c.Headers)
	}
	for name, value := range c.Options {
		b.SetOption(http.Option(strings.ToLower(name)), value)
	}
}

// SaveConfig saves the configuration to a file, in the format implied by
// its extension
func (c *Config) SaveConfig(path string) error {
	var data []byte
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	case ".toml":
		data, err = toml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
