package http

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
)

// supportedEncodings is what an empty encoding option advertises.
const supportedEncodings = "gzip, deflate, br"

func acceptEncoding(encoding string) string {
	if strings.TrimSpace(encoding) == "" {
		return supportedEncodings
	}
	return encoding
}

// decodeBody undoes the Content-Encoding of a response body. Encodings
// are listed in the order they were applied, so they are removed in
// reverse.
func decodeBody(contentEncoding string, body []byte) ([]byte, error) {
	if contentEncoding == "" {
		return body, nil
	}
	codings := strings.Split(contentEncoding, ",")
	for i := len(codings) - 1; i >= 0; i-- {
		decoded, err := decodeOne(strings.ToLower(strings.TrimSpace(codings[i])), body)
		if err != nil {
			return nil, err
		}
		body = decoded
	}
	return body, nil
}

func decodeOne(coding string, body []byte) ([]byte, error) {
	var r io.Reader
	switch coding {
	case "", "identity":
		return body, nil
	case "gzip", "x-gzip":
		gr, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		defer gr.Close()
		r = gr
	case "deflate":
		// Servers disagree on whether deflate means zlib-wrapped or raw
		zr, err := zlib.NewReader(bytes.NewReader(body))
		if err != nil {
			fr := flate.NewReader(bytes.NewReader(body))
			defer fr.Close()
			r = fr
		} else {
			defer zr.Close()
			r = zr
		}
	case "br":
		r = brotli.NewReader(bytes.NewReader(body))
	default:
		return nil, fmt.Errorf("unrecognized content encoding type: %s", coding)
	}

	decoded, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", coding, err)
	}
	return decoded, nil
}
