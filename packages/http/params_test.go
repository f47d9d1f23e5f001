package http

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParams_InsertionOrder(t *testing.T) {
	p := NewParams().Set("z", "1").Set("a", "2").Set("m", "3")
	assert.Equal(t, []string{"z", "a", "m"}, p.Keys())
	assert.Equal(t, "z=1&a=2&m=3", p.Encode())

	p.Set("z", "overwritten")
	assert.Equal(t, []string{"z", "a", "m"}, p.Keys())
	assert.Equal(t, "z=overwritten&a=2&m=3", p.Encode())
}

func TestParams_Encode(t *testing.T) {
	tests := []struct {
		name     string
		params   *Params
		expected string
	}{
		{"empty", NewParams(), ""},
		{"single", ParamsOf("a", "1"), "a=1"},
		{"spaces become plus", ParamsOf("q", "hello world"), "q=hello+world"},
		{"reserved characters", ParamsOf("v", "a=b&c/d?"), "v=a%3Db%26c%2Fd%3F"},
		{"keys are not escaped", ParamsOf("filter[name]", "x"), "filter[name]=x"},
		{"trailing key", ParamsOf("a", "1", "b"), "a=1&b="},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.params.Encode())
		})
	}
}

func TestParams_EncodeForm(t *testing.T) {
	p := ParamsOf("filter[name]", "a b")
	assert.Equal(t, "filter%5Bname%5D=a+b", p.EncodeForm())
}

func TestParams_Files(t *testing.T) {
	p := ParamsOf("a", "1")
	assert.False(t, p.HasFiles())

	p.SetFile("doc", NewFilePart("/tmp/doc.pdf", "doc.pdf", "application/pdf"))
	assert.True(t, p.HasFiles())
	assert.Equal(t, "a=1&doc=%40%2Ftmp%2Fdoc.pdf%3Bfilename%3Ddoc.pdf%3Btype%3Dapplication%2Fpdf", p.Encode())
}

func TestParams_FromMapSorted(t *testing.T) {
	p := ParamsFromMap(map[string]string{"b": "2", "a": "1", "c": "3"})
	assert.Equal(t, []string{"a", "b", "c"}, p.Keys())
}

func TestParams_CloneIsIndependent(t *testing.T) {
	p := ParamsOf("a", "1")
	c := p.Clone()
	c.Set("b", "2")
	c.Remove("a")

	assert.Equal(t, []string{"a"}, p.Keys())
	assert.Equal(t, []string{"b"}, c.Keys())
}

func TestParams_NilSafe(t *testing.T) {
	var p *Params
	assert.Equal(t, 0, p.Len())
	assert.Nil(t, p.Keys())
	assert.Equal(t, "", p.Encode())
	_, ok := p.Get("a")
	assert.False(t, ok)
}
