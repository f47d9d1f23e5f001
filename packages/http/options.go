package http

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// Option names a transport option stored on a Builder.
type Option string

const (
	OptReturnTransfer Option = "return-transfer"
	OptHeader         Option = "header"
	OptFollowLocation Option = "follow-location"
	OptEncoding       Option = "encoding"
	OptUserAgent      Option = "user-agent"
	OptAutoReferer    Option = "auto-referer"
	OptConnectTimeout Option = "connect-timeout"
	OptTimeout        Option = "timeout"
	OptMaxRedirects   Option = "max-redirects"
	OptPost           Option = "post"
	OptPostFields     Option = "post-fields"
	OptSSLVerifyHost  Option = "ssl-verify-host"
	OptVerbose        Option = "verbose"
	OptHTTPHeader     Option = "http-header"
	OptUserPwd        Option = "userpwd"
	OptHTTPAuth       Option = "httpauth"
	OptAWSSigV4       Option = "aws-sigv4"
)

// DefaultUserAgent is sent when the user-agent option is left untouched.
const DefaultUserAgent = "OpenIt"

type optionSetter func(s *Settings, value any) error

type optionSpec struct {
	set   optionSetter
	usage string
}

// optionTable is the whitelist of options that reach the transport. Any
// other name may be stored on a builder but is never applied. A value that
// fails to convert leaves the setting untouched.
var optionTable = map[Option]optionSpec{
	OptReturnTransfer: boolOption("return the body as the response instead of writing it out",
		func(s *Settings, b bool) { s.ReturnTransfer = b }),
	OptHeader: boolOption("prefix the response with the status line and headers",
		func(s *Settings, b bool) { s.HeaderInOutput = b }),
	OptFollowLocation: boolOption("follow redirects",
		func(s *Settings, b bool) { s.FollowRedirects = b }),
	OptEncoding: stringOption("accepted content encodings, empty for all supported",
		func(s *Settings, str string) {
			s.Encoding = str
			s.DecodeContent = true
		}),
	OptUserAgent: stringOption("User-Agent header value",
		func(s *Settings, str string) { s.UserAgent = str }),
	OptAutoReferer: boolOption("set Referer when following redirects",
		func(s *Settings, b bool) { s.AutoReferer = b }),
	OptConnectTimeout: durationOption("connection timeout (seconds or duration)",
		func(s *Settings, d time.Duration) { s.ConnectTimeout = d }),
	OptTimeout: durationOption("whole request timeout (seconds or duration)",
		func(s *Settings, d time.Duration) { s.Timeout = d }),
	OptMaxRedirects: {
		usage: "redirect limit, negative for unlimited",
		set: func(s *Settings, v any) error {
			n, err := cast.ToIntE(v)
			if err != nil {
				return err
			}
			s.MaxRedirects = n
			return nil
		},
	},
	OptPost: boolOption("send a POST request",
		func(s *Settings, b bool) { s.Post = b }),
	OptPostFields: {
		usage: "request body: raw string or field map",
		set: func(s *Settings, v any) error {
			fields, err := toPostFields(v)
			if err != nil {
				return err
			}
			s.PostFields = fields
			return nil
		},
	},
	OptSSLVerifyHost: boolOption("verify the server certificate, 0 to disable",
		func(s *Settings, b bool) { s.VerifyHost = b }),
	OptVerbose: boolOption("log request and response lines",
		func(s *Settings, b bool) { s.Verbose = b }),
	OptHTTPHeader: {
		usage: `request headers as "Name: Value" lines`,
		set: func(s *Settings, v any) error {
			lines, err := toLines(v)
			if err != nil {
				return err
			}
			s.HTTPHeader = lines
			return nil
		},
	},
	OptUserPwd: stringOption(`credentials as "user:password"`,
		func(s *Settings, str string) { s.UserPwd = str }),
	OptHTTPAuth: {
		usage: "authentication scheme for userpwd: basic, digest or any",
		set: func(s *Settings, v any) error {
			str, err := cast.ToStringE(v)
			if err != nil {
				return err
			}
			switch scheme := strings.ToLower(strings.TrimSpace(str)); scheme {
			case AuthBasic, AuthDigest, AuthAny:
				s.HTTPAuth = scheme
				return nil
			default:
				return fmt.Errorf("unknown httpauth scheme %q", str)
			}
		},
	},
	OptAWSSigV4: stringOption(`sign with AWS SigV4, "provider1[:provider2[:region[:service]]]"`,
		func(s *Settings, str string) { s.AWSSigV4 = str }),
}

func boolOption(usage string, assign func(*Settings, bool)) optionSpec {
	return optionSpec{usage: usage, set: func(s *Settings, v any) error {
		b, err := toBool(v)
		if err != nil {
			return err
		}
		assign(s, b)
		return nil
	}}
}

func stringOption(usage string, assign func(*Settings, string)) optionSpec {
	return optionSpec{usage: usage, set: func(s *Settings, v any) error {
		str, err := cast.ToStringE(v)
		if err != nil {
			return err
		}
		assign(s, str)
		return nil
	}}
}

func durationOption(usage string, assign func(*Settings, time.Duration)) optionSpec {
	return optionSpec{usage: usage, set: func(s *Settings, v any) error {
		d, err := toDuration(v)
		if err != nil {
			return err
		}
		assign(s, d)
		return nil
	}}
}

// SupportedOptions returns the names of all options applied to a
// transport, sorted.
func SupportedOptions() []Option {
	names := make([]Option, 0, len(optionTable))
	for name := range optionTable {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// IsSupported reports whether name is applied to the transport.
func IsSupported(name Option) bool {
	_, ok := optionTable[name]
	return ok
}

// OptionUsage returns a one-line description of a supported option.
func OptionUsage(name Option) string {
	return optionTable[name].usage
}

// ParseOption splits "name=value" as given on a command line.
func ParseOption(s string) (Option, string, error) {
	name, value, ok := strings.Cut(s, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return "", "", fmt.Errorf("invalid option %q: expected name=value", s)
	}
	return Option(strings.ToLower(name)), value, nil
}

// applyOption runs the whitelist setter for name. It reports false when
// the name is not supported.
func applyOption(s *Settings, name Option, value any) (bool, error) {
	spec, ok := optionTable[name]
	if !ok {
		return false, nil
	}
	if err := spec.set(s, value); err != nil {
		return true, fmt.Errorf("option %s: %w", name, err)
	}
	return true, nil
}

func toBool(v any) (bool, error) {
	if str, ok := v.(string); ok {
		switch strings.ToLower(strings.TrimSpace(str)) {
		case "yes", "on":
			return true, nil
		case "no", "off":
			return false, nil
		}
	}
	if b, err := cast.ToBoolE(v); err == nil {
		return b, nil
	}
	n, err := cast.ToIntE(v)
	if err != nil {
		return false, fmt.Errorf("cannot use %v as a boolean", v)
	}
	return n != 0, nil
}

// toDuration accepts a time.Duration, a duration string such as "1.5s",
// or a plain number of seconds.
func toDuration(v any) (time.Duration, error) {
	switch d := v.(type) {
	case time.Duration:
		return d, nil
	case string:
		if parsed, err := time.ParseDuration(d); err == nil {
			return parsed, nil
		}
	}
	secs, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, fmt.Errorf("cannot use %v as a timeout", v)
	}
	return time.Duration(secs * float64(time.Second)), nil
}

func toPostFields(v any) (any, error) {
	switch f := v.(type) {
	case nil:
		return nil, nil
	case string:
		return f, nil
	case []byte:
		return string(f), nil
	case *Params:
		return f, nil
	case map[string]string:
		return ParamsFromMap(f), nil
	default:
		return cast.ToStringE(v)
	}
}

func toLines(v any) ([]string, error) {
	switch l := v.(type) {
	case []string:
		return append([]string(nil), l...), nil
	case string:
		return strings.Split(strings.TrimRight(l, "\n"), "\n"), nil
	default:
		return cast.ToStringSliceE(v)
	}
}
