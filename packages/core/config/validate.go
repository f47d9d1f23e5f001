package config

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/abdul-hamid-achik/openit/packages/http"
)

// Validate reports every problem found in the config. Unknown option
// names are errors here even though a builder would store and ignore them.
func (c *Config) Validate() error {
	var errs []error

	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout must not be negative, got %d", c.Timeout))
	}
	if c.MaxRedirects != nil && *c.MaxRedirects < -1 {
		errs = append(errs, fmt.Errorf("maxRedirects must be -1 (unlimited) or more, got %d", *c.MaxRedirects))
	}
	if c.Proxy != "" {
		if u, err := url.Parse(c.Proxy); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("proxy %q is not an absolute URL", c.Proxy))
		}
	}
	for name := range c.Headers {
		if strings.TrimSpace(name) == "" || strings.ContainsAny(name, ": \t") {
			errs = append(errs, fmt.Errorf("invalid header name %q", name))
		}
	}

	names := make([]string, 0, len(c.Options))
	for name := range c.Options {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if !http.IsSupported(http.Option(strings.ToLower(name))) {
			errs = append(errs, fmt.Errorf("unsupported option %q", name))
		}
	}

	return errors.Join(errs...)
}
