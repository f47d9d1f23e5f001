package check

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/abdul-hamid-achik/openit/packages/http"
)

// Extractor reads values out of a response. Subjects are:
//   - status, duration
//   - header <Name>
//   - body, or body.<path>
//   - any other string, taken as a path into the JSON body
//
// Paths use gjson syntax; items[0].id is accepted as items.0.id.
type Extractor struct {
	response *http.Response
	bodyJSON gjson.Result
}

func NewExtractor(resp *http.Response) *Extractor {
	e := &Extractor{
		response: resp,
	}
	if gjson.ValidBytes(resp.Body) {
		e.bodyJSON = gjson.ParseBytes(resp.Body)
	}
	return e
}

// IsJSON reports whether the body parsed as JSON.
func (e *Extractor) IsJSON() bool {
	return e.bodyJSON.Exists()
}

// Extract returns the value of subject and whether it exists.
func (e *Extractor) Extract(subject string) (any, bool) {
	subject = strings.TrimSpace(subject)
	switch {
	case subject == "status":
		return e.response.StatusCode, true
	case subject == "duration":
		return e.response.DurationMs(), true
	case strings.HasPrefix(subject, "header "):
		name := strings.TrimSpace(strings.TrimPrefix(subject, "header "))
		value := e.response.Header(name)
		if value == "" {
			return nil, false
		}
		return value, true
	case subject == "body":
		if !e.IsJSON() {
			return e.response.BodyString(), true
		}
		return e.bodyJSON.Value(), true
	case strings.HasPrefix(subject, "body."):
		return e.extractPath(strings.TrimPrefix(subject, "body."))
	default:
		return e.extractPath(subject)
	}
}

func (e *Extractor) extractPath(path string) (any, bool) {
	if !e.IsJSON() {
		return nil, false
	}
	result := e.bodyJSON.Get(convertBracketNotation(path))
	if !result.Exists() {
		return nil, false
	}
	return result.Value(), true
}

var bracketIndex = regexp.MustCompile(`\[(\d+)\]`)

// convertBracketNotation converts array bracket notation to gjson dot notation
// e.g., "[0].id" -> "0.id", "items[0].tags[1]" -> "items.0.tags.1"
func convertBracketNotation(path string) string {
	return strings.TrimPrefix(bracketIndex.ReplaceAllString(path, ".$1"), ".")
}

// Select returns the raw text of path in a JSON body, as gjson renders it:
// strings unquoted, everything else as JSON.
func Select(body []byte, path string) (string, error) {
	if !gjson.ValidBytes(body) {
		return "", fmt.Errorf("response body is not JSON")
	}
	result := gjson.GetBytes(body, convertBracketNotation(path))
	if !result.Exists() {
		return "", fmt.Errorf("path %q: %w", path, ErrNotFound)
	}
	if result.Type == gjson.String {
		return result.Str, nil
	}
	return result.Raw, nil
}
