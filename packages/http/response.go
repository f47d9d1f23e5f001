package http

import (
	"sort"
	"strings"
	"time"
)

type Response struct {
	StatusCode int
	Status     string
	Proto      string
	Headers    map[string]string
	Body       []byte
	Duration   time.Duration
}

func (r *Response) BodyString() string {
	return string(r.Body)
}

func (r *Response) Header(key string) string {
	for k, v := range r.Headers {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}

// HeaderNames returns the response header names sorted.
func (r *Response) HeaderNames() []string {
	names := make([]string, 0, len(r.Headers))
	for k := range r.Headers {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func (r *Response) ContentType() string {
	return r.Header("Content-Type")
}

func (r *Response) IsJSON() bool {
	ct := r.ContentType()
	return strings.Contains(ct, "application/json")
}

func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

func (r *Response) DurationMs() int64 {
	return r.Duration.Milliseconds()
}

// HeadBlock renders the status line and headers the way they appear on
// the wire, terminated by an empty line.
func (r *Response) HeadBlock() string {
	var sb strings.Builder
	proto := r.Proto
	if proto == "" {
		proto = "HTTP/1.1"
	}
	sb.WriteString(proto)
	sb.WriteString(" ")
	sb.WriteString(r.Status)
	sb.WriteString("\r\n")
	for _, name := range r.HeaderNames() {
		sb.WriteString(name)
		sb.WriteString(": ")
		sb.WriteString(r.Headers[name])
		sb.WriteString("\r\n")
	}
	sb.WriteString("\r\n")
	return sb.String()
}
