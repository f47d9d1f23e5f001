package http

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/emirpasic/gods/maps/linkedhashmap"
	"github.com/rs/zerolog"
)

const (
	MethodGet    = "GET"
	MethodPost   = "POST"
	MethodPut    = "PUT"
	MethodPatch  = "PATCH"
	MethodDelete = "DELETE"
)

// Builder accumulates the configuration of a request, sends it through a
// Transport and keeps the response as a string. A Builder is not safe for
// concurrent use.
type Builder struct {
	url      string
	method   string
	params   *Params
	data     string
	headers  *linkedhashmap.Map
	options  map[Option]any
	response string
	target   string

	result  *Response
	lastErr *TransportError

	transport Transport
	output    io.Writer
	logger    zerolog.Logger
}

type BuilderOption func(*Builder)

// WithTransport replaces the default net/http transport
func WithTransport(t Transport) BuilderOption {
	return func(b *Builder) {
		b.transport = t
	}
}

// WithOutput sets where the body goes when return-transfer is off
func WithOutput(w io.Writer) BuilderOption {
	return func(b *Builder) {
		b.output = w
	}
}

func WithLogger(logger zerolog.Logger) BuilderOption {
	return func(b *Builder) {
		b.logger = logger
	}
}

func NewBuilder(opts ...BuilderOption) *Builder {
	b := &Builder{
		method:  MethodGet,
		params:  NewParams(),
		headers: linkedhashmap.New(),
		options: map[Option]any{
			OptReturnTransfer: true,
			OptUserAgent:      DefaultUserAgent,
		},
		output: os.Stdout,
		logger: zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(b)
	}

	if b.transport == nil {
		b.transport = NewHTTPTransport(WithTransportLogger(b.logger))
	}

	return b
}

func (b *Builder) SetURL(url string) *Builder {
	b.url = url
	return b
}

func (b *Builder) URL() string {
	return b.url
}

// SetMethod stores the request method upper-cased.
func (b *Builder) SetMethod(method string) *Builder {
	b.method = strings.ToUpper(method)
	return b
}

func (b *Builder) Method() string {
	return b.method
}

// SetParams replaces all params. A nil value clears them.
func (b *Builder) SetParams(params *Params) *Builder {
	if params == nil {
		params = NewParams()
	}
	b.params = params
	return b
}

func (b *Builder) SetParam(key, value string) *Builder {
	b.params.Set(key, value)
	return b
}

// Params returns the params as stored, whatever the method.
func (b *Builder) Params() *Params {
	return b.params
}

// EncodedParams renders the params as a query string for GET requests.
// For any other method the params are sent as post fields, so it returns
// false and callers should use Params.
func (b *Builder) EncodedParams() (string, bool) {
	if b.method != MethodGet {
		return "", false
	}
	return b.params.Encode(), true
}

// SetData sets the raw request body.
func (b *Builder) SetData(data string) *Builder {
	b.data = data
	return b
}

func (b *Builder) Data() string {
	return b.data
}

func (b *Builder) SetHeader(name, value string) *Builder {
	b.headers.Put(name, value)
	return b
}

// SetHeaders merges headers into the existing ones. New names are added
// in sorted order so the result does not depend on map iteration.
func (b *Builder) SetHeaders(headers map[string]string) *Builder {
	names := make([]string, 0, len(headers))
	for name := range headers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		b.headers.Put(name, headers[name])
	}
	return b
}

// Header returns a single header, including derived ones.
func (b *Builder) Header(name string) (string, error) {
	b.updateHeaders()
	value, ok := b.headers.Get(name)
	if !ok {
		return "", fmt.Errorf("header %q: %w", name, ErrKeyNotFound)
	}
	return value.(string), nil
}

// Headers returns a copy of all headers, including derived ones.
func (b *Builder) Headers() map[string]string {
	b.updateHeaders()
	out := make(map[string]string, b.headers.Size())
	it := b.headers.Iterator()
	for it.Next() {
		out[it.Key().(string)] = it.Value().(string)
	}
	return out
}

// HeaderLines returns the headers as "Name: Value" lines in the order
// they were first set.
func (b *Builder) HeaderLines() []string {
	b.updateHeaders()
	return b.headerLines()
}

func (b *Builder) headerLines() []string {
	lines := make([]string, 0, b.headers.Size())
	it := b.headers.Iterator()
	for it.Next() {
		lines = append(lines, it.Key().(string)+": "+it.Value().(string))
	}
	return lines
}

// SetOption stores a transport option. Names outside the supported set
// are kept but never reach the transport.
func (b *Builder) SetOption(name Option, value any) *Builder {
	b.options[name] = value
	return b
}

// SetOptions merges options into the existing ones.
func (b *Builder) SetOptions(options map[Option]any) *Builder {
	for name, value := range options {
		b.options[name] = value
	}
	return b
}

// Option returns a single option, including derived ones.
func (b *Builder) Option(name Option) (any, error) {
	b.updateOptions()
	value, ok := b.options[name]
	if !ok {
		return nil, fmt.Errorf("option %q: %w", name, ErrKeyNotFound)
	}
	return value, nil
}

// Options returns a copy of all options, including derived ones.
func (b *Builder) Options() map[Option]any {
	b.updateOptions()
	out := make(map[Option]any, len(b.options))
	for name, value := range b.options {
		out[name] = value
	}
	return out
}

// Response returns the body of the last request, or the formatted
// error when the transport failed.
func (b *Builder) Response() string {
	return b.response
}

// Result returns the full response of the last successful request.
func (b *Builder) Result() *Response {
	return b.result
}

// Target returns the URL the last Send opened, query string included.
func (b *Builder) Target() string {
	return b.target
}

// Err returns the transport error of the last request, if any.
func (b *Builder) Err() error {
	if b.lastErr == nil {
		return nil
	}
	return b.lastErr
}

// updateOptions derives the post and header options from the current
// state. Params win over data when both are set. Keys derived from an
// earlier state are overwritten, never removed.
func (b *Builder) updateOptions() {
	b.updateHeaders()

	if b.method != MethodGet {
		b.options[OptPost] = true
		if b.data != "" {
			b.options[OptPostFields] = b.data
		}
		if b.params.Len() > 0 {
			b.options[OptPostFields] = b.params
		}
	}

	if b.headers.Size() > 0 {
		b.options[OptHTTPHeader] = b.headerLines()
	}
}

// updateHeaders derives Content-Length from data. Params sent as post
// fields do not contribute.
func (b *Builder) updateHeaders() {
	if b.data != "" && b.method != MethodGet {
		b.headers.Put("Content-Length", strconv.Itoa(len(b.data)))
	}
}

type sendArgs struct {
	method  string
	url     string
	params  *Params
	data    string
	headers map[string]string
}

type SendOption func(*sendArgs)

func WithMethod(method string) SendOption {
	return func(a *sendArgs) {
		a.method = method
	}
}

func WithURL(url string) SendOption {
	return func(a *sendArgs) {
		a.url = url
	}
}

func WithParams(params *Params) SendOption {
	return func(a *sendArgs) {
		a.params = params
	}
}

func WithData(data string) SendOption {
	return func(a *sendArgs) {
		a.data = data
	}
}

func WithHeaders(headers map[string]string) SendOption {
	return func(a *sendArgs) {
		a.headers = headers
	}
}

// Send performs the request once and stores the outcome. Non-empty send
// options overwrite the builder state first. A transport failure does not
// panic or return an error: the response becomes
// `Error: "<message>" - Code: <code>` and Err reports the failure.
func (b *Builder) Send(ctx context.Context, opts ...SendOption) *Builder {
	args := &sendArgs{}
	for _, opt := range opts {
		opt(args)
	}
	if args.method != "" {
		b.SetMethod(args.method)
	}
	if args.url != "" {
		b.SetURL(args.url)
	}
	if args.params.Len() > 0 {
		b.SetParams(args.params)
	}
	if args.data != "" {
		b.SetData(args.data)
	}
	if len(args.headers) > 0 {
		b.SetHeaders(args.headers)
	}

	target := b.url
	if b.method == MethodGet {
		query, _ := b.EncodedParams()
		if strings.Contains(target, "?") {
			target += "&" + query
		} else {
			target += "?" + query
		}
	}

	b.updateOptions()

	b.target = target
	resp, settings, err := b.perform(ctx, target)
	if err != nil {
		te := Classify(err)
		b.response = te.Sentinel()
		b.result = nil
		b.lastErr = te
		b.logger.Debug().
			Str("method", b.method).
			Str("url", target).
			Int("code", te.Code).
			Msg(te.Message)
		return b
	}

	b.result = resp
	b.lastErr = nil
	b.response = b.transfer(settings, resp)
	b.logger.Debug().
		Str("method", b.method).
		Str("url", target).
		Int("status", resp.StatusCode).
		Dur("duration", resp.Duration).
		Msg("request sent")
	return b
}

func (b *Builder) perform(ctx context.Context, target string) (*Response, *Settings, error) {
	handle, err := b.transport.Open(target)
	if err != nil {
		return nil, nil, err
	}
	defer func() {
		if err := handle.Close(); err != nil {
			b.logger.Warn().Err(err).Msg("failed to close transport handle")
		}
	}()

	settings := handle.Settings()
	b.applyOptions(settings)

	resp, err := handle.Perform(ctx)
	return resp, settings, err
}

func (b *Builder) applyOptions(s *Settings) {
	for name, value := range b.options {
		applied, err := applyOption(s, name, value)
		if !applied {
			b.logger.Debug().Str("option", string(name)).Msg("option not supported by transport, skipped")
			continue
		}
		if err != nil {
			b.logger.Warn().Err(err).Msg("invalid option value, skipped")
		}
	}

	if b.method != MethodGet && b.method != MethodPost {
		s.CustomRequest = b.method
	}
}

// transfer turns a response into the stored string according to the
// return-transfer and header options.
func (b *Builder) transfer(s *Settings, resp *Response) string {
	out := resp.BodyString()
	if s.HeaderInOutput {
		out = resp.HeadBlock() + out
	}
	if s.ReturnTransfer {
		return out
	}
	if _, err := io.WriteString(b.output, out); err != nil {
		b.logger.Warn().Err(err).Msg("failed to write response")
	}
	return ""
}
