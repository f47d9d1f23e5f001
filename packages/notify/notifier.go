// Package notify posts the outcome of a send to chat webhooks.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/openit/packages/http"
)

// NotifyOn specifies when to send notifications
type NotifyOn string

const (
	// NotifyAlways sends notifications for every send
	NotifyAlways NotifyOn = "always"
	// NotifyFailure sends notifications only when a send fails
	NotifyFailure NotifyOn = "failure"
	// NotifySuccess sends notifications only when a send passes
	NotifySuccess NotifyOn = "success"
	// NotifyRecovery sends notifications on failure and on the first pass
	// after a failure
	NotifyRecovery NotifyOn = "recovery"
)

// ParseNotifyOn validates a --notify-on value
func ParseNotifyOn(s string) (NotifyOn, error) {
	switch n := NotifyOn(strings.ToLower(s)); n {
	case NotifyAlways, NotifyFailure, NotifySuccess, NotifyRecovery:
		return n, nil
	default:
		return "", fmt.Errorf("unknown notify-on value %q (use always, failure, success or recovery)", s)
	}
}

// Summary describes one send for notifications. A transport failure has
// ErrorCode set and no Status.
type Summary struct {
	Method       string        `json:"method"`
	URL          string        `json:"url"`
	Passed       bool          `json:"passed"`
	Status       int           `json:"status,omitempty"`
	Duration     time.Duration `json:"duration"`
	ErrorCode    int           `json:"errorCode,omitempty"`
	Error        string        `json:"error,omitempty"`
	FailedChecks []string      `json:"failedChecks,omitempty"`
	IsRecovery   bool          `json:"isRecovery,omitempty"`
}

// Notifier is the interface for notification services
type Notifier interface {
	Notify(ctx context.Context, summary *Summary) error
	Name() string
}

// ParseTarget builds a notifier from "slack:<webhook-url>" or
// "webhook:<url>".
func ParseTarget(target string, transport http.Transport) (Notifier, error) {
	kind, url, ok := strings.Cut(target, ":")
	if !ok || url == "" {
		return nil, fmt.Errorf("invalid notify target %q, want slack:<url> or webhook:<url>", target)
	}
	switch strings.ToLower(kind) {
	case "slack":
		return NewSlackNotifier(url, WithSlackTransport(transport)), nil
	case "webhook":
		return NewWebhookNotifier(url, transport), nil
	default:
		return nil, fmt.Errorf("unknown notifier %q", kind)
	}
}

// Manager manages multiple notifiers
type Manager struct {
	notifiers []Notifier
	notifyOn  NotifyOn
	lastState bool // true if the last send passed
}

func NewManager(notifyOn NotifyOn, notifiers ...Notifier) *Manager {
	return &Manager{
		notifiers: notifiers,
		notifyOn:  notifyOn,
		lastState: true,
	}
}

// Notify sends notifications based on the configured policy. Every
// notifier is tried; the last error is returned.
func (m *Manager) Notify(ctx context.Context, summary *Summary) error {
	shouldNotify := false

	switch m.notifyOn {
	case NotifyAlways:
		shouldNotify = true
	case NotifyFailure:
		shouldNotify = !summary.Passed
	case NotifySuccess:
		shouldNotify = summary.Passed
	case NotifyRecovery:
		if !m.lastState && summary.Passed {
			shouldNotify = true
			summary.IsRecovery = true
		}
		if !summary.Passed {
			shouldNotify = true
		}
	}

	m.lastState = summary.Passed

	if !shouldNotify {
		return nil
	}

	var lastErr error
	for _, n := range m.notifiers {
		if err := n.Notify(ctx, summary); err != nil {
			lastErr = fmt.Errorf("%s: %w", n.Name(), err)
		}
	}
	return lastErr
}

// postJSON sends payload with the request builder and fails on transport
// errors and non-2xx answers.
func postJSON(ctx context.Context, transport http.Transport, url string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	b := http.NewBuilder(http.WithTransport(transport)).
		SetURL(url).
		SetMethod(http.MethodPost).
		SetData(string(data)).
		SetHeader("Content-Type", "application/json").
		SetOption(http.OptTimeout, "10s").
		Send(ctx)

	if err := b.Err(); err != nil {
		return err
	}
	if resp := b.Result(); !resp.IsSuccess() {
		return fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, resp.BodyString())
	}
	return nil
}
