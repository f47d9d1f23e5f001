package http

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"
	neturl "net/url"
)

// Transport error codes. The numbering follows libcurl so that sentinel
// responses stay comparable with curl output.
const (
	CodeUnsupportedProtocol    = 1
	CodeURLMalformed           = 3
	CodeCouldNotResolveHost    = 6
	CodeCouldNotConnect        = 7
	CodeReadError              = 26
	CodeOperationTimedOut      = 28
	CodeSSLConnectError        = 35
	CodeBadFunctionArgument    = 43
	CodeTooManyRedirects       = 47
	CodeGotNothing             = 52
	CodeRecvError              = 56
	CodePeerFailedVerification = 60
	CodeBadContentEncoding     = 61
)

// ErrKeyNotFound is returned when a header or option that was never set
// is read.
var ErrKeyNotFound = errors.New("key not found")

// TransportError is a failure reported by a transport while performing a
// request. It carries a human readable message and a numeric code.
type TransportError struct {
	Code    int
	Message string
	Err     error
}

func NewTransportError(code int, message string) *TransportError {
	return &TransportError{Code: code, Message: message}
}

func (e *TransportError) Error() string {
	return e.Message
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Sentinel formats the error the way it is stored as a builder response.
func (e *TransportError) Sentinel() string {
	return fmt.Sprintf(`Error: "%s" - Code: %d`, e.Message, e.Code)
}

// Classify converts any error returned while performing a request into a
// TransportError, picking the closest code.
func Classify(err error) *TransportError {
	if err == nil {
		return nil
	}

	var te *TransportError
	if errors.As(err, &te) {
		return te
	}

	message := err.Error()
	var urlErr *neturl.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		message = urlErr.Err.Error()
	}
	wrap := func(code int) *TransportError {
		return &TransportError{Code: code, Message: message, Err: err}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return wrap(CodeOperationTimedOut)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return wrap(CodeOperationTimedOut)
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return wrap(CodeCouldNotResolveHost)
	}

	var verifyErr *tls.CertificateVerificationError
	var unknownAuthority x509.UnknownAuthorityError
	var hostnameErr x509.HostnameError
	var invalidCert x509.CertificateInvalidError
	if errors.As(err, &verifyErr) || errors.As(err, &unknownAuthority) ||
		errors.As(err, &hostnameErr) || errors.As(err, &invalidCert) {
		return wrap(CodePeerFailedVerification)
	}

	var recordErr tls.RecordHeaderError
	var alertErr tls.AlertError
	if errors.As(err, &recordErr) || errors.As(err, &alertErr) {
		return wrap(CodeSSLConnectError)
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return wrap(CodeCouldNotConnect)
	}

	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return wrap(CodeGotNothing)
	}

	return wrap(CodeRecvError)
}
