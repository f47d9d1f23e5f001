package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdul-hamid-achik/openit/packages/http"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.True(t, cfg.IsDefault())
	assert.Equal(t, 30000, cfg.Timeout)
	assert.False(t, cfg.GetFollowRedirects())
	assert.True(t, cfg.GetValidateSSL())

	cfg.Headers = map[string]string{"X-Trace": "1"}
	assert.False(t, cfg.IsDefault())
}

func TestGetters_NilPointers(t *testing.T) {
	cfg := &Config{}
	assert.False(t, cfg.GetFollowRedirects())
	assert.True(t, cfg.GetValidateSSL())
	assert.False(t, cfg.GetVerbose())
	assert.False(t, cfg.GetNoColor())
	assert.Equal(t, 10, cfg.GetMaxRedirects())
}

func TestLoadConfig_Formats(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{
			name: "json",
			file: "openit.json",
			content: `{
  "userAgent": "custom/1.0",
  "timeout": 5000,
  "followRedirects": true,
  "headers": {"X-Api-Key": "abc"},
  "options": {"encoding": "gzip"}
}`,
		},
		{
			name: "yaml",
			file: "openit.yaml",
			content: `userAgent: custom/1.0
timeout: 5000
followRedirects: true
headers:
  X-Api-Key: abc
options:
  encoding: gzip
`,
		},
		{
			name: "toml",
			file: "openit.toml",
			content: `userAgent = "custom/1.0"
timeout = 5000
followRedirects = true

[headers]
X-Api-Key = "abc"

[options]
encoding = "gzip"
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), tt.file, tt.content)

			cfg, err := LoadConfig(path)
			require.NoError(t, err)
			assert.Equal(t, "custom/1.0", cfg.UserAgent)
			assert.Equal(t, 5000, cfg.Timeout)
			assert.True(t, cfg.GetFollowRedirects())
			assert.Equal(t, 10, cfg.GetMaxRedirects(), "defaults survive a partial file")
			assert.Equal(t, "abc", cfg.Headers["X-Api-Key"])
			assert.Equal(t, "gzip", cfg.Options["encoding"])
		})
	}
}

func TestLoadConfig_InvalidFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), ".openit.json", "{not json")
	_, err := LoadConfig(path)
	assert.Error(t, err)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestFindAndLoadConfig(t *testing.T) {
	dir := t.TempDir()

	cfg, err := FindAndLoadConfig(dir)
	require.NoError(t, err)
	assert.True(t, cfg.IsDefault())

	writeFile(t, dir, ".openit.yml", "history: requests.db\n")
	cfg, err = FindAndLoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "requests.db", cfg.History)

	writeFile(t, dir, ".openit.json", `{"history": "first.db"}`)
	cfg, err = FindAndLoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "first.db", cfg.History, "json is searched first")
}

func TestMerge(t *testing.T) {
	base := DefaultConfig()
	base.Headers = map[string]string{"A": "1", "B": "2"}

	other := &Config{
		Timeout:     1000,
		ValidateSSL: BoolPtr(false),
		Headers:     map[string]string{"B": "override"},
		Options:     map[string]any{"verbose": true},
	}

	merged := base.Merge(other)
	assert.Equal(t, 1000, merged.Timeout)
	assert.False(t, merged.GetValidateSSL())
	assert.False(t, merged.GetFollowRedirects(), "unset booleans keep the base value")
	assert.Equal(t, map[string]string{"A": "1", "B": "override"}, merged.Headers)
	assert.Equal(t, true, merged.Options["verbose"])

	assert.Equal(t, "2", base.Headers["B"], "base is not mutated")
	assert.Same(t, base, base.Merge(nil))

	merged = base.Merge(&Config{MaxRedirects: IntPtr(0)})
	assert.Equal(t, 0, merged.GetMaxRedirects(), "zero overrides the default limit")
}

func TestApply_MaxRedirects(t *testing.T) {
	for _, limit := range []int{-1, 0} {
		cfg := DefaultConfig()
		cfg.MaxRedirects = IntPtr(limit)
		require.NoError(t, cfg.Validate())

		b := http.NewBuilder()
		cfg.Apply(b)

		got, err := b.Option(http.OptMaxRedirects)
		require.NoError(t, err)
		assert.Equal(t, limit, got)
	}
}

func TestApply(t *testing.T) {
	cfg := DefaultConfig()
	cfg.UserAgent = "custom/1.0"
	cfg.FollowRedirects = BoolPtr(true)
	cfg.Headers = map[string]string{"X-Api-Key": "abc"}
	cfg.Options = map[string]any{"Encoding": "gzip", "timeout": 2}

	b := http.NewBuilder()
	cfg.Apply(b)

	ua, err := b.Option(http.OptUserAgent)
	require.NoError(t, err)
	assert.Equal(t, "custom/1.0", ua)

	follow, err := b.Option(http.OptFollowLocation)
	require.NoError(t, err)
	assert.Equal(t, true, follow)

	enc, err := b.Option(http.OptEncoding)
	require.NoError(t, err)
	assert.Equal(t, "gzip", enc)

	timeout, err := b.Option(http.OptTimeout)
	require.NoError(t, err)
	assert.Equal(t, 2, timeout, "raw options win over typed fields")

	header, err := b.Header("X-Api-Key")
	require.NoError(t, err)
	assert.Equal(t, "abc", header)
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	for _, name := range []string{"out.json", "out.yaml", "out.toml"} {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.UserAgent = "saved"
			cfg.Headers = map[string]string{"A": "1"}

			path := filepath.Join(t.TempDir(), name)
			require.NoError(t, cfg.SaveConfig(path))

			loaded, err := LoadConfig(path)
			require.NoError(t, err)
			assert.Equal(t, "saved", loaded.UserAgent)
			assert.Equal(t, cfg.Headers, loaded.Headers)
			assert.Equal(t, cfg.Timeout, loaded.Timeout)
		})
	}
}

func TestValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	cfg := &Config{
		Timeout:      -1,
		MaxRedirects: IntPtr(-2),
		Proxy:        "not a url",
		Headers:      map[string]string{"Bad Name": "x", "X-Ok": "y"},
		Options:      map[string]any{"User-Agent": "ok", "cookie-jar": "/tmp/jar"},
	}
	err := cfg.Validate()
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "timeout")
	assert.Contains(t, msg, "maxRedirects")
	assert.Contains(t, msg, "proxy")
	assert.Contains(t, msg, `"Bad Name"`)
	assert.Contains(t, msg, `unsupported option "cookie-jar"`)
	assert.NotContains(t, msg, "User-Agent")
}
