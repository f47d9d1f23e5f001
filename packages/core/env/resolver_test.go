package env

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolverResolve(t *testing.T) {
	t.Setenv("OPENIT_RESOLVER_HOST", "api.example.com")

	tests := []struct {
		name      string
		input     string
		variables map[string]string
		expected  string
	}{
		{"no variables", "hello world", nil, "hello world"},
		{"simple variable", "hello {{name}}", map[string]string{"name": "world"}, "hello world"},
		{"spaces inside braces", "hello {{ name }}", map[string]string{"name": "world"}, "hello world"},
		{"multiple variables", "{{greeting}} {{name}}!", map[string]string{"greeting": "Hello", "name": "World"}, "Hello World!"},
		{"os environment", "https://{{$OPENIT_RESOLVER_HOST}}/v1", nil, "https://api.example.com/v1"},
		{"builtin function", "Basic {{base64(user:pass)}}", nil, "Basic dXNlcjpwYXNz"},
		{"mime function", "{{mime(json)}}", nil, "application/json"},
		{"unresolved stays as-is", "hello {{unknown}}", nil, "hello {{unknown}}"},
		{"unset env stays as-is", "{{$OPENIT_RESOLVER_UNSET}}", nil, "{{$OPENIT_RESOLVER_UNSET}}"},
		{"failing function stays as-is", "{{mime(xyz)}}", nil, "{{mime(xyz)}}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver()
			r.SetVariables(tt.variables)
			assert.Equal(t, tt.expected, r.Resolve(tt.input))
		})
	}
}

func TestResolverWarnings(t *testing.T) {
	r := NewResolver()
	var warnings []string
	r.SetWarnFunc(func(format string, args ...any) {
		warnings = append(warnings, fmt.Sprintf(format, args...))
	})

	r.Resolve("{{missing}} {{nope()}} {{mime(xyz)}}")
	require.Len(t, warnings, 3)
	assert.Equal(t, "unresolved variable: missing", warnings[0])
	assert.Equal(t, "unknown function: nope()", warnings[1])
	assert.Contains(t, warnings[2], "mime(xyz)")
}

func TestResolverGetUnresolvedVariables(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		variables map[string]string
		expected  []string
	}{
		{"no variables", "hello world", nil, nil},
		{"resolved variable", "{{foo}}", map[string]string{"foo": "bar"}, nil},
		{"single unresolved", "{{foo}}", nil, []string{"foo"}},
		{"mixed", "{{foo}} and {{bar}} and {{baz}}", map[string]string{"bar": "x"}, []string{"foo", "baz"}},
		{"env and functions ignored", "{{$HOME}} {{uuid()}}", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver()
			r.SetVariables(tt.variables)
			assert.Equal(t, tt.expected, r.GetUnresolvedVariables(tt.input))
			assert.Equal(t, tt.expected != nil, r.HasUnresolvedVariables(tt.input))
		})
	}
}

func TestResolverResolveCollections(t *testing.T) {
	r := NewResolver()
	r.SetVariable("token", "abc")

	assert.Equal(t, map[string]string{"Authorization": "Bearer abc"},
		r.ResolveAll(map[string]string{"Authorization": "Bearer {{token}}"}))
	assert.Equal(t, []string{"a=abc", "b"}, r.ResolveSlice([]string{"a={{token}}", "b"}))
	assert.Nil(t, r.ResolveSlice(nil))
}

func TestNewResolverFrom(t *testing.T) {
	t.Setenv("OPENIT_VAR_TOKEN", "from-os")
	t.Setenv("OPENIT_VAR_HOST", "os.example.com")
	path := writeEnvFile(t, t.TempDir(), ".env", "TOKEN=from-file")

	r, err := NewResolverFrom(path)
	require.NoError(t, err)
	assert.Equal(t, "from-file os.example.com", r.Resolve("{{TOKEN}} {{HOST}}"))

	_, err = NewResolverFrom("/nonexistent/.env")
	assert.Error(t, err)
}

func TestLoadSystemEnv(t *testing.T) {
	t.Setenv("OPENIT_LOADER_A", "1")
	vars := LoadSystemEnv("OPENIT_LOADER_")
	assert.Equal(t, "1", vars["A"])

	all := LoadSystemEnv("")
	assert.Equal(t, "1", all["OPENIT_LOADER_A"])
}

func TestMergeVariables(t *testing.T) {
	merged := MergeVariables(map[string]string{"a": "1", "b": "1"}, nil, map[string]string{"b": "2"})
	assert.Equal(t, map[string]string{"a": "1", "b": "2"}, merged)
}
