package http

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"os"
	"strings"
)

const formContentType = "application/x-www-form-urlencoded"

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// buildBody turns post fields into a request body and its content type.
// Raw strings and plain field maps are form encoded; a map holding any
// file part becomes multipart/form-data.
func buildBody(fields any) (io.Reader, string, error) {
	switch f := fields.(type) {
	case nil:
		return nil, "", nil
	case string:
		if f == "" {
			return nil, "", nil
		}
		return strings.NewReader(f), formContentType, nil
	case *Params:
		if f.Len() == 0 {
			return nil, "", nil
		}
		if f.HasFiles() {
			return BuildMultipartBody(f)
		}
		return strings.NewReader(f.EncodeForm()), formContentType, nil
	default:
		return nil, "", fmt.Errorf("unsupported post fields type %T", fields)
	}
}

// BuildMultipartBody creates a multipart form data body from params
func BuildMultipartBody(params *Params) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	var buildErr error
	params.Each(func(key string, value any) {
		if buildErr != nil {
			return
		}
		switch v := value.(type) {
		case FilePart:
			buildErr = writeFilePart(writer, key, v)
		case string:
			buildErr = writer.WriteField(key, v)
		}
	})
	if buildErr != nil {
		return nil, "", buildErr
	}

	if err := writer.Close(); err != nil {
		return nil, "", err
	}

	return body, writer.FormDataContentType(), nil
}

func writeFilePart(writer *multipart.Writer, field string, part FilePart) error {
	file, err := os.Open(part.Path)
	if err != nil {
		return &TransportError{
			Code:    CodeReadError,
			Message: fmt.Sprintf("couldn't open file %q", part.Path),
			Err:     err,
		}
	}
	defer file.Close()

	contentType := part.Type
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(field), quoteEscaper.Replace(part.Name)))
	header.Set("Content-Type", contentType)

	w, err := writer.CreatePart(header)
	if err != nil {
		return err
	}

	if _, err := io.Copy(w, file); err != nil {
		return &TransportError{Code: CodeReadError, Message: err.Error(), Err: err}
	}
	return nil
}
