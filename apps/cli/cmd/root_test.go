package cmd

import (
	"bytes"
	"context"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdul-hamid-achik/openit/packages/core/config"
	"github.com/abdul-hamid-achik/openit/packages/history"
)

// resetFlags puts every flag back to its default so run can be called
// more than once in a test binary.
func resetFlags(t *testing.T, c *cobra.Command) {
	t.Helper()
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			require.NoError(t, sv.Replace(nil))
		} else {
			require.NoError(t, f.Value.Set(f.DefValue))
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(t, sub)
	}
}

func execute(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	resetFlags(t, rootCmd)

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})

	code := run(append(args, "--no-color"))
	return code, stdout.String(), stderr.String()
}

type captured struct {
	method      string
	query       string
	body        string
	contentType string
	header      string
}

func echoServer(t *testing.T, got *captured) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		body, _ := io.ReadAll(r.Body)
		*got = captured{
			method:      r.Method,
			query:       r.URL.RawQuery,
			body:        string(body),
			contentType: r.Header.Get("Content-Type"),
			header:      r.Header.Get("X-Trace"),
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": 7, "name": "Ada"}`))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestSend_GetWithParams(t *testing.T) {
	var got captured
	server := echoServer(t, &got)

	code, stdout, _ := execute(t, "send", server.URL+"/users", "-p", "b=2", "-p", "a=1", "-H", "X-Trace: abc")
	assert.Equal(t, ExitSuccess, code)
	assert.Equal(t, "GET", got.method)
	assert.Equal(t, "b=2&a=1", got.query)
	assert.Equal(t, "abc", got.header)
	assert.Equal(t, "{\"id\": 7, \"name\": \"Ada\"}\n", stdout)
}

func TestSend_PostParams(t *testing.T) {
	var got captured
	server := echoServer(t, &got)

	code, _, _ := execute(t, "send", server.URL, "-X", "post", "-p", "name=Ada Lovelace", "-p", "role=admin")
	assert.Equal(t, ExitSuccess, code)
	assert.Equal(t, "POST", got.method)
	assert.Empty(t, got.query)
	assert.Equal(t, "name=Ada+Lovelace&role=admin", got.body)
	assert.Equal(t, "application/x-www-form-urlencoded", got.contentType)
}

func TestSend_DataImpliesPost(t *testing.T) {
	var got captured
	server := echoServer(t, &got)

	code, _, _ := execute(t, "send", server.URL, "-d", `{"a":1}`, "-H", "Content-Type: application/json")
	assert.Equal(t, ExitSuccess, code)
	assert.Equal(t, "POST", got.method)
	assert.Equal(t, `{"a":1}`, got.body)
	assert.Equal(t, "application/json", got.contentType)
}

func TestSend_EnvFileInterpolation(t *testing.T) {
	var got captured
	server := echoServer(t, &got)

	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, writeFile(envFile, "TRACE=from-env\n"))

	code, _, _ := execute(t, "send", server.URL, "--env-file", envFile, "-H", "X-Trace: {{TRACE}}")
	assert.Equal(t, ExitSuccess, code)
	assert.Equal(t, "from-env", got.header)
}

func TestSend_Select(t *testing.T) {
	var got captured
	server := echoServer(t, &got)

	code, stdout, _ := execute(t, "send", server.URL, "--select", "name")
	assert.Equal(t, ExitSuccess, code)
	assert.Equal(t, "Ada\n", stdout)
}

func TestSend_Expectations(t *testing.T) {
	var got captured
	server := echoServer(t, &got)

	code, _, stderr := execute(t, "send", server.URL, "-e", "status == 200", "-e", "id == 7")
	assert.Equal(t, ExitSuccess, code)
	assert.Contains(t, stderr, "2 passed, 0 failed")

	code, _, stderr = execute(t, "send", server.URL, "-e", `name == "Bob"`)
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, stderr, "1 failed")

	code, _, stderr = execute(t, "send", server.URL, "-e", "status 200")
	assert.Equal(t, ExitUsageError, code)
	assert.Contains(t, stderr, "no operator found")
}

func TestSend_TransportError(t *testing.T) {
	server := httptest.NewServer(nethttp.NotFoundHandler())
	url := server.URL
	server.Close()

	code, stdout, stderr := execute(t, "send", url)
	assert.Equal(t, ExitNetworkError, code)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "- Code: 7")
}

func TestSend_UsageErrors(t *testing.T) {
	code, _, _ := execute(t, "send", "http://localhost", "-p", "novalue")
	assert.Equal(t, ExitUsageError, code)

	code, _, _ = execute(t, "send", "http://localhost", "--output", "html")
	assert.Equal(t, ExitUsageError, code)

	code, _, _ = execute(t, "send", "http://localhost", "--timeout", "soon")
	assert.Equal(t, ExitUsageError, code)

	code, _, _ = execute(t, "send")
	assert.Equal(t, ExitUsageError, code)
}

func TestSend_ConfigError(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".openit.json")
	require.NoError(t, writeFile(path, "{not json"))

	code, _, stderr := execute(t, "send", "http://localhost", "--config", path)
	assert.Equal(t, ExitConfigError, code)
	assert.Contains(t, stderr, "cannot load config")
}

func TestSend_History(t *testing.T) {
	var got captured
	server := echoServer(t, &got)
	db := filepath.Join(t.TempDir(), "history.db")

	code, _, _ := execute(t, "send", server.URL+"/users", "--history", db)
	require.Equal(t, ExitSuccess, code)

	code, stdout, _ := execute(t, "history", "--history", db)
	assert.Equal(t, ExitSuccess, code)
	assert.Contains(t, stdout, "/users")
	assert.Contains(t, stdout, "200")

	code, stdout, _ = execute(t, "history", "--history", db, "--clear")
	assert.Equal(t, ExitSuccess, code)
	assert.Contains(t, stdout, "Deleted 1 entries")

	code, _, _ = execute(t, "history")
	assert.Equal(t, ExitUsageError, code)
}

func TestSend_HistoryRecordsQuery(t *testing.T) {
	var got captured
	server := echoServer(t, &got)
	db := filepath.Join(t.TempDir(), "history.db")

	code, _, _ := execute(t, "send", server.URL+"/search", "-p", "q=go", "--history", db)
	require.Equal(t, ExitSuccess, code)

	store, err := history.Open(db)
	require.NoError(t, err)
	defer store.Close()

	entries, err := store.List(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, server.URL+"/search?q=go", entries[0].URL)
}

func TestMime(t *testing.T) {
	code, stdout, _ := execute(t, "mime", "json", "png")
	assert.Equal(t, ExitSuccess, code)
	assert.Contains(t, stdout, "application/json")
	assert.Contains(t, stdout, "image/png")

	code, stdout, _ = execute(t, "mime", "--file", "report.PDF")
	assert.Equal(t, ExitSuccess, code)
	assert.Contains(t, stdout, "application/pdf")

	code, _, stderr := execute(t, "mime", "nope")
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, stderr, "unknown extension")
}

func TestCompletions(t *testing.T) {
	names, directive := completeOptionNames(sendCmd, nil, "SSL")
	require.Len(t, names, 1)
	assert.True(t, strings.HasPrefix(names[0], "ssl-verify-host=\t"))
	assert.NotZero(t, directive&cobra.ShellCompDirectiveNoSpace)

	exts, _ := completeExtensions(mimeCmd, []string{"json"}, "js")
	assert.Contains(t, exts, "js")
	assert.NotContains(t, exts, "json", "extensions already given are skipped")

	code, stdout, _ := execute(t, "completion", "bash")
	assert.Equal(t, ExitSuccess, code)
	assert.Contains(t, stdout, "openit")
}

func TestOptions(t *testing.T) {
	code, stdout, _ := execute(t, "options")
	assert.Equal(t, ExitSuccess, code)
	assert.Contains(t, stdout, "user-agent")
	assert.Contains(t, stdout, "follow-location")
}

func TestVersion(t *testing.T) {
	code, stdout, _ := execute(t, "version")
	assert.Equal(t, ExitSuccess, code)
	assert.Contains(t, stdout, "openit version")
}

func TestSend_BasicAuth(t *testing.T) {
	server := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if user, pass, ok := r.BasicAuth(); !ok || user != "ada" || pass != "pw" {
			w.WriteHeader(nethttp.StatusUnauthorized)
		}
	}))
	defer server.Close()

	code, _, _ := execute(t, "send", server.URL, "-u", "ada:pw", "-e", "status == 200")
	assert.Equal(t, ExitSuccess, code)

	code, _, _ = execute(t, "send", server.URL, "-e", "status == 200")
	assert.Equal(t, ExitFailure, code)
}

func TestInit(t *testing.T) {
	dir := t.TempDir()

	code, stdout, _ := execute(t, "init", dir, "--format", "toml")
	assert.Equal(t, ExitSuccess, code)
	assert.Contains(t, stdout, ".openit.toml")

	cfg, err := config.LoadConfig(filepath.Join(dir, ".openit.toml"))
	require.NoError(t, err)
	assert.Equal(t, 30000, cfg.Timeout)
	assert.Equal(t, "application/json", cfg.Headers["Accept"])

	code, _, stderr := execute(t, "init", dir, "--format", "toml")
	assert.Equal(t, ExitUsageError, code)
	assert.Contains(t, stderr, "already exists")

	code, _, _ = execute(t, "init", dir, "--format", "toml", "--force")
	assert.Equal(t, ExitSuccess, code)
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.yaml")
	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, writeFile(good, "timeout: 5000\noptions:\n  follow-location: true\n"))
	require.NoError(t, writeFile(bad, `{"options": {"cookie-jar": "/tmp/jar"}}`))

	code, stdout, _ := execute(t, "validate", good)
	assert.Equal(t, ExitSuccess, code)
	assert.Contains(t, stdout, "Valid: "+good)

	code, _, stderr := execute(t, "validate", good, bad)
	assert.Equal(t, ExitConfigError, code)
	assert.Contains(t, stderr, "cookie-jar")
}

func TestSend_Repeat(t *testing.T) {
	var hits int
	server := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		hits++
		_, _ = w.Write([]byte("pong"))
	}))
	defer server.Close()

	code, stdout, stderr := execute(t, "send", server.URL, "--repeat", "3")
	assert.Equal(t, ExitSuccess, code)
	assert.Equal(t, 3, hits)
	assert.Equal(t, "pong\n", stdout)
	assert.Contains(t, stderr, "Total:      3 requests")

	code, _, _ = execute(t, "send", server.URL, "--repeat", "2", "--watch", ".")
	assert.Equal(t, ExitUsageError, code)
}

func TestSend_NotifyOnFailure(t *testing.T) {
	var got captured
	server := echoServer(t, &got)

	var notified []string
	hook := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		body, _ := io.ReadAll(r.Body)
		notified = append(notified, string(body))
	}))
	defer hook.Close()

	code, _, _ := execute(t, "send", server.URL, "-e", "status == 200", "--notify", "webhook:"+hook.URL)
	assert.Equal(t, ExitSuccess, code)
	assert.Empty(t, notified)

	code, _, _ = execute(t, "send", server.URL, "-e", "status == 201", "--notify", "webhook:"+hook.URL)
	assert.Equal(t, ExitFailure, code)
	require.Len(t, notified, 1)
	assert.Contains(t, notified[0], `"passed":false`)
	assert.Contains(t, notified[0], "status == 201")

	code, _, _ = execute(t, "send", server.URL, "--notify", "pager:"+hook.URL)
	assert.Equal(t, ExitUsageError, code)
}

func TestSend_OAuth2(t *testing.T) {
	tokenServer := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if id, secret, ok := r.BasicAuth(); !ok || id != "cli" || secret != "pw" {
			w.WriteHeader(nethttp.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"access_token": "tok-1", "token_type": "bearer"}`))
	}))
	defer tokenServer.Close()

	var authorization string
	api := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		authorization = r.Header.Get("Authorization")
	}))
	defer api.Close()

	code, _, _ := execute(t, "send", api.URL, "--oauth2-token-url", tokenServer.URL, "--oauth2-client", "cli:pw")
	assert.Equal(t, ExitSuccess, code)
	assert.Equal(t, "Bearer tok-1", authorization)

	code, _, stderr := execute(t, "send", api.URL, "--oauth2-token-url", tokenServer.URL+"/other", "--oauth2-client", "cli:bad")
	assert.Equal(t, ExitNetworkError, code)
	assert.Contains(t, stderr, "token request failed")
}
