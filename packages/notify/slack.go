package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/openit/packages/http"
)

// SlackNotifier sends notifications to Slack via webhook
type SlackNotifier struct {
	webhookURL string
	channel    string
	username   string
	iconEmoji  string
	transport  http.Transport
}

// SlackOption is a functional option for SlackNotifier
type SlackOption func(*SlackNotifier)

// WithSlackChannel sets the Slack channel
func WithSlackChannel(channel string) SlackOption {
	return func(s *SlackNotifier) {
		s.channel = channel
	}
}

// WithSlackUsername sets the Slack bot username
func WithSlackUsername(username string) SlackOption {
	return func(s *SlackNotifier) {
		s.username = username
	}
}

// WithSlackTransport sets the transport used to post messages
func WithSlackTransport(t http.Transport) SlackOption {
	return func(s *SlackNotifier) {
		if t != nil {
			s.transport = t
		}
	}
}

func NewSlackNotifier(webhookURL string, opts ...SlackOption) *SlackNotifier {
	s := &SlackNotifier{
		webhookURL: webhookURL,
		username:   "openit",
		iconEmoji:  ":satellite_antenna:",
		transport:  http.NewHTTPTransport(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *SlackNotifier) Name() string {
	return "slack"
}

type slackMessage struct {
	Channel     string            `json:"channel,omitempty"`
	Username    string            `json:"username,omitempty"`
	IconEmoji   string            `json:"icon_emoji,omitempty"`
	Attachments []slackAttachment `json:"attachments"`
}

type slackAttachment struct {
	Color  string       `json:"color"`
	Title  string       `json:"title"`
	Text   string       `json:"text,omitempty"`
	Fields []slackField `json:"fields,omitempty"`
	Footer string       `json:"footer,omitempty"`
	TS     int64        `json:"ts,omitempty"`
}

type slackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

func (s *SlackNotifier) Notify(ctx context.Context, summary *Summary) error {
	return postJSON(ctx, s.transport, s.webhookURL, s.message(summary))
}

func (s *SlackNotifier) message(summary *Summary) slackMessage {
	color := "good"
	title := ":white_check_mark: Request passed"
	switch {
	case summary.ErrorCode != 0:
		color = "danger"
		title = fmt.Sprintf(":x: Request failed (code %d)", summary.ErrorCode)
	case !summary.Passed:
		color = "danger"
		title = fmt.Sprintf(":x: %d check(s) failed", len(summary.FailedChecks))
	case summary.IsRecovery:
		title = ":tada: Request recovered"
	}

	fields := []slackField{
		{Title: "Request", Value: summary.Method + " " + summary.URL, Short: false},
		{Title: "Duration", Value: summary.Duration.Round(time.Millisecond).String(), Short: true},
	}
	if summary.Status != 0 {
		fields = append(fields, slackField{Title: "Status", Value: fmt.Sprintf("%d", summary.Status), Short: true})
	}

	var text strings.Builder
	if summary.Error != "" {
		fmt.Fprintf(&text, "`%s`\n", summary.Error)
	}
	for _, c := range summary.FailedChecks {
		fmt.Fprintf(&text, "• `%s`\n", c)
	}

	return slackMessage{
		Channel:   s.channel,
		Username:  s.username,
		IconEmoji: s.iconEmoji,
		Attachments: []slackAttachment{{
			Color:  color,
			Title:  title,
			Text:   text.String(),
			Fields: fields,
			Footer: "openit",
			TS:     time.Now().Unix(),
		}},
	}
}
