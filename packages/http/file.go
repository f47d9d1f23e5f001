package http

import (
	"fmt"
	"path/filepath"

	"github.com/abdul-hamid-achik/openit/packages/mime"
)

// FilePart is a file field for a multipart upload.
type FilePart struct {
	Path string // absolute path of the file to upload
	Name string // file name sent to the server
	Type string // MIME type, may be empty
}

func NewFilePart(path, name, mimeType string) FilePart {
	return FilePart{Path: path, Name: name, Type: mimeType}
}

// String renders the part in the inline "@path;filename=name;type=mime"
// form used when a transport cannot send it as a real file.
func (f FilePart) String() string {
	value := "@" + f.Path + ";filename=" + f.Name
	if f.Type != "" {
		value += ";type=" + f.Type
	}
	return value
}

// SetFile attaches the file at path as the param named paramName.
// displayName overrides the file name sent to the server. The MIME type
// comes from the extension table; an unregistered extension is an error
// and leaves the params unchanged.
func (b *Builder) SetFile(paramName, path, displayName string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}

	name := displayName
	if name == "" {
		name = filepath.Base(abs)
	}

	mimeType, err := mime.TypeByFilename(abs)
	if err != nil {
		return fmt.Errorf("cannot attach %s: %w", path, err)
	}

	b.params.SetFile(paramName, NewFilePart(abs, name, mimeType))
	return nil
}
