package http

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	neturl "net/url"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	// DefaultMaxRedirects is the redirect limit when max-redirects is unset
	DefaultMaxRedirects = 10
)

// Transport opens single-use handles that execute one request each.
type Transport interface {
	Open(rawURL string) (Handle, error)
}

// Handle is one request in flight. Callers adjust Settings, call Perform
// once and must Close the handle afterwards.
type Handle interface {
	Settings() *Settings
	Perform(ctx context.Context) (*Response, error)
	Close() error
}

// Settings are the transport-level values produced from builder options.
type Settings struct {
	ReturnTransfer  bool
	HeaderInOutput  bool
	FollowRedirects bool
	// DecodeContent is set once the encoding option is applied; Encoding
	// then lists the accepted encodings, empty meaning all supported.
	DecodeContent  bool
	Encoding       string
	UserAgent      string
	AutoReferer    bool
	ConnectTimeout time.Duration
	Timeout        time.Duration
	// MaxRedirects below zero means unlimited.
	MaxRedirects  int
	Post          bool
	PostFields    any // string or *Params
	VerifyHost    bool
	Verbose       bool
	HTTPHeader    []string
	CustomRequest string
	// UserPwd is sent with HTTPAuth, or signs the request when AWSSigV4
	// is set.
	UserPwd  string
	HTTPAuth string
	AWSSigV4 string
}

// NewSettings returns the values a handle starts with before any option
// is applied.
func NewSettings() *Settings {
	return &Settings{
		MaxRedirects: DefaultMaxRedirects,
		VerifyHost:   true,
		HTTPAuth:     AuthBasic,
	}
}

// Method resolves the verb: the custom request if set, POST when the post
// flag is on, GET otherwise.
func (s *Settings) Method() string {
	switch {
	case s.CustomRequest != "":
		return s.CustomRequest
	case s.Post:
		return MethodPost
	default:
		return MethodGet
	}
}

// HTTPTransport executes requests with net/http.
type HTTPTransport struct {
	proxyURL string
	logger   zerolog.Logger
}

type TransportOption func(*HTTPTransport)

func NewHTTPTransport(opts ...TransportOption) *HTTPTransport {
	t := &HTTPTransport{
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// WithProxy routes every request through the given proxy URL
func WithProxy(proxyURL string) TransportOption {
	return func(t *HTTPTransport) {
		t.proxyURL = proxyURL
	}
}

// WithTransportLogger sets the logger used for verbose request tracing
func WithTransportLogger(logger zerolog.Logger) TransportOption {
	return func(t *HTTPTransport) {
		t.logger = logger
	}
}

func (t *HTTPTransport) Open(rawURL string) (Handle, error) {
	return &httpHandle{
		transport: t,
		url:       rawURL,
		settings:  NewSettings(),
	}, nil
}

type httpHandle struct {
	transport *HTTPTransport
	url       string
	settings  *Settings
	roundTrip *http.Transport
	closed    bool
}

var errHandleClosed = errors.New("handle already closed")

func (h *httpHandle) Settings() *Settings {
	return h.settings
}

func (h *httpHandle) Close() error {
	if h.closed {
		return errHandleClosed
	}
	h.closed = true
	if h.roundTrip != nil {
		h.roundTrip.CloseIdleConnections()
	}
	return nil
}

func (h *httpHandle) Perform(ctx context.Context) (*Response, error) {
	if h.closed {
		return nil, errHandleClosed
	}
	if err := ValidateURL(h.url); err != nil {
		return nil, err
	}

	s := h.settings
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	body, contentType, err := buildBody(s.PostFields)
	if err != nil {
		return nil, err
	}
	var payload []byte
	if body != nil {
		if payload, err = io.ReadAll(body); err != nil {
			return nil, err
		}
	}

	h.roundTrip = h.newRoundTripper()
	client := &http.Client{
		Transport:     h.roundTrip,
		CheckRedirect: h.checkRedirect,
	}

	start := time.Now()
	httpResp, err := h.do(ctx, client, payload, contentType, "")
	if err == nil && httpResp.StatusCode == http.StatusUnauthorized && s.UserPwd != "" && s.AWSSigV4 == "" {
		httpResp, err = h.retryWithChallenge(ctx, client, httpResp, payload, contentType)
	}
	duration := time.Since(start)
	if err != nil {
		return nil, Classify(err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, Classify(err)
	}

	if s.DecodeContent {
		respBody, err = decodeBody(httpResp.Header.Get("Content-Encoding"), respBody)
		if err != nil {
			return nil, &TransportError{Code: CodeBadContentEncoding, Message: err.Error(), Err: err}
		}
	}

	headers := make(map[string]string)
	for k := range httpResp.Header {
		headers[k] = httpResp.Header.Get(k)
	}

	resp := &Response{
		StatusCode: httpResp.StatusCode,
		Status:     httpResp.Status,
		Proto:      httpResp.Proto,
		Headers:    headers,
		Body:       respBody,
		Duration:   duration,
	}
	h.traceResponse(resp)
	return resp, nil
}

// newRequest builds the outgoing request. A non-empty authorization
// replaces whatever the settings would put in the Authorization header.
func (h *httpHandle) newRequest(ctx context.Context, payload []byte, contentType, authorization string) (*http.Request, error) {
	s := h.settings
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, s.Method(), h.url, body)
	if err != nil {
		return nil, &TransportError{Code: CodeURLMalformed, Message: err.Error(), Err: err}
	}

	if s.UserAgent != "" {
		httpReq.Header.Set("User-Agent", s.UserAgent)
	}
	if s.DecodeContent {
		httpReq.Header.Set("Accept-Encoding", acceptEncoding(s.Encoding))
	}
	for _, line := range s.HTTPHeader {
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		httpReq.Header.Set(strings.TrimSpace(name), strings.TrimSpace(value))
	}
	if contentType != "" {
		// Multipart needs its boundary, so it overrides any caller value
		if strings.HasPrefix(contentType, "multipart/") || httpReq.Header.Get("Content-Type") == "" {
			httpReq.Header.Set("Content-Type", contentType)
		}
	}

	switch {
	case authorization != "":
		httpReq.Header.Set("Authorization", authorization)
	case s.AWSSigV4 != "":
		signer, err := newAWSSigner(s.AWSSigV4, s.UserPwd, httpReq.URL.Host)
		if err != nil {
			return nil, err
		}
		signer.Sign(httpReq, payload, time.Now())
	case s.UserPwd != "" && s.HTTPAuth == AuthBasic:
		httpReq.SetBasicAuth(credentials(s.UserPwd))
	}
	return httpReq, nil
}

func (h *httpHandle) do(ctx context.Context, client *http.Client, payload []byte, contentType, authorization string) (*http.Response, error) {
	httpReq, err := h.newRequest(ctx, payload, contentType, authorization)
	if err != nil {
		return nil, err
	}
	h.traceRequest(httpReq)
	return client.Do(httpReq)
}

// retryWithChallenge answers a 401 challenge once for the digest and any
// schemes. Any other combination returns the 401 as is.
func (h *httpHandle) retryWithChallenge(ctx context.Context, client *http.Client, resp *http.Response, payload []byte, contentType string) (*http.Response, error) {
	s := h.settings
	challenge := resp.Header.Get("WWW-Authenticate")
	scheme, _, _ := strings.Cut(challenge, " ")
	scheme = strings.ToLower(scheme)

	var authorization string
	switch {
	case scheme == AuthDigest && (s.HTTPAuth == AuthDigest || s.HTTPAuth == AuthAny):
		uri := resp.Request.URL.RequestURI()
		digest, err := newDigestAuth(challenge, s.UserPwd, resp.Request.Method, uri)
		if err != nil {
			return resp, nil
		}
		authorization = digest.BuildAuthorizationHeader()
	case scheme == AuthBasic && s.HTTPAuth == AuthAny:
		user, password := credentials(s.UserPwd)
		r := &http.Request{Header: http.Header{}}
		r.SetBasicAuth(user, password)
		authorization = r.Header.Get("Authorization")
	default:
		return resp, nil
	}

	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return h.do(ctx, client, payload, contentType, authorization)
}

func (h *httpHandle) newRoundTripper() *http.Transport {
	s := h.settings
	// Connecting is unbounded unless connect-timeout is set.
	dialer := &net.Dialer{Timeout: s.ConnectTimeout}

	transport := &http.Transport{
		DialContext:         dialer.DialContext,
		TLSHandshakeTimeout: s.ConnectTimeout,
		DisableCompression:  true,
		ForceAttemptHTTP2:   true,
	}

	if !s.VerifyHost {
		transport.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: true,
		}
	}

	if h.transport.proxyURL != "" {
		proxyURL, err := neturl.Parse(h.transport.proxyURL)
		if err == nil {
			transport.Proxy = http.ProxyURL(proxyURL)
		}
	}

	return transport
}

func (h *httpHandle) checkRedirect(req *http.Request, via []*http.Request) error {
	s := h.settings
	if !s.FollowRedirects {
		return http.ErrUseLastResponse
	}
	if s.MaxRedirects >= 0 && len(via) > s.MaxRedirects {
		return NewTransportError(CodeTooManyRedirects,
			fmt.Sprintf("Maximum (%d) redirects followed", s.MaxRedirects))
	}
	if s.AutoReferer {
		req.Header.Set("Referer", via[len(via)-1].URL.String())
	}
	return nil
}

func (h *httpHandle) traceRequest(req *http.Request) {
	if !h.settings.Verbose {
		return
	}
	log := h.transport.logger
	log.Info().Msgf("> %s %s %s", req.Method, req.URL.RequestURI(), req.Proto)
	log.Info().Msgf("> Host: %s", req.URL.Host)
	for _, name := range sortedHeaderNames(req.Header) {
		log.Info().Msgf("> %s: %s", name, req.Header.Get(name))
	}
}

func (h *httpHandle) traceResponse(resp *Response) {
	if !h.settings.Verbose {
		return
	}
	log := h.transport.logger
	log.Info().Msgf("< %s %s", resp.Proto, resp.Status)
	for _, name := range resp.HeaderNames() {
		log.Info().Msgf("< %s: %s", name, resp.Headers[name])
	}
	log.Info().Dur("duration", resp.Duration).Int("bytes", len(resp.Body)).Msg("request completed")
}

func sortedHeaderNames(h http.Header) []string {
	names := make([]string, 0, len(h))
	for k := range h {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// ValidateURL checks that a URL is well-formed and uses an allowed scheme
func ValidateURL(rawURL string) error {
	u, err := neturl.Parse(rawURL)
	if err != nil {
		return &TransportError{Code: CodeURLMalformed, Message: fmt.Sprintf("invalid URL: %v", err), Err: err}
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return NewTransportError(CodeUnsupportedProtocol,
			fmt.Sprintf("unsupported URL scheme: %s (only http and https are allowed)", u.Scheme))
	}

	if u.Host == "" {
		return NewTransportError(CodeURLMalformed, "URL must have a host")
	}

	return nil
}
