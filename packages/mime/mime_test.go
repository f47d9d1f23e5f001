package mime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypeOf(t *testing.T) {
	tests := []struct {
		ext      string
		expected string
	}{
		{"png", "image/png"},
		{".png", "image/png"},
		{"PNG", "image/png"},
		{"jpg", "image/jpeg"},
		{"pdf", "application/pdf"},
		{"323", "text/h323"},
		{"zip", "application/zip"},
	}

	for _, tt := range tests {
		t.Run(tt.ext, func(t *testing.T) {
			got, err := TypeOf(tt.ext)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestTypeOf_Unknown(t *testing.T) {
	_, err := TypeOf("xyz")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownExtension)
	assert.Contains(t, err.Error(), "xyz")
}

func TestTypeByFilename(t *testing.T) {
	got, err := TypeByFilename("/tmp/uploads/photo.final.png")
	require.NoError(t, err)
	assert.Equal(t, "image/png", got)

	_, err = TypeByFilename("/tmp/uploads/README")
	assert.ErrorIs(t, err, ErrUnknownExtension)
}

func TestExtension(t *testing.T) {
	assert.Equal(t, "gz", Extension("archive.tar.gz"))
	assert.Equal(t, "txt", Extension("/a.b/notes.txt"))
	assert.Equal(t, "Makefile", Extension("/src/Makefile"))
}

func TestExtensions_Sorted(t *testing.T) {
	exts := Extensions()
	require.NotEmpty(t, exts)
	assert.IsNonDecreasing(t, exts)
	assert.Contains(t, exts, "png")
}
