package notify

import (
	"context"
	"encoding/json"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdul-hamid-achik/openit/packages/http"
)

type recordingNotifier struct {
	got []*Summary
}

func (r *recordingNotifier) Name() string { return "recording" }

func (r *recordingNotifier) Notify(ctx context.Context, s *Summary) error {
	r.got = append(r.got, s)
	return nil
}

func TestParseNotifyOn(t *testing.T) {
	on, err := ParseNotifyOn("Recovery")
	require.NoError(t, err)
	assert.Equal(t, NotifyRecovery, on)

	_, err = ParseNotifyOn("sometimes")
	assert.Error(t, err)
}

func TestManager_Policies(t *testing.T) {
	pass := func() *Summary { return &Summary{Passed: true} }
	fail := func() *Summary { return &Summary{Passed: false} }

	tests := []struct {
		on       NotifyOn
		sequence []func() *Summary
		expected int
	}{
		{NotifyAlways, []func() *Summary{pass, fail}, 2},
		{NotifyFailure, []func() *Summary{pass, fail, pass}, 1},
		{NotifySuccess, []func() *Summary{pass, fail, pass}, 2},
		{NotifyRecovery, []func() *Summary{pass, fail, pass, pass}, 2},
	}

	for _, tt := range tests {
		t.Run(string(tt.on), func(t *testing.T) {
			rec := &recordingNotifier{}
			m := NewManager(tt.on, rec)
			for _, next := range tt.sequence {
				require.NoError(t, m.Notify(context.Background(), next()))
			}
			assert.Len(t, rec.got, tt.expected)
		})
	}
}

func TestManager_RecoveryFlag(t *testing.T) {
	rec := &recordingNotifier{}
	m := NewManager(NotifyRecovery, rec)
	require.NoError(t, m.Notify(context.Background(), &Summary{Passed: false}))
	require.NoError(t, m.Notify(context.Background(), &Summary{Passed: true}))
	require.Len(t, rec.got, 2)
	assert.False(t, rec.got[0].IsRecovery)
	assert.True(t, rec.got[1].IsRecovery)
}

func webhookServer(t *testing.T, status int, body *[]byte) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		*body, _ = io.ReadAll(r.Body)
		w.WriteHeader(status)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestWebhookNotifier(t *testing.T) {
	var body []byte
	server := webhookServer(t, nethttp.StatusOK, &body)

	n, err := ParseTarget("webhook:"+server.URL, http.NewHTTPTransport())
	require.NoError(t, err)
	assert.Equal(t, "webhook", n.Name())

	summary := &Summary{Method: "GET", URL: "http://api.test/health", Status: 503, Duration: time.Second, FailedChecks: []string{"status == 200"}}
	require.NoError(t, n.Notify(context.Background(), summary))

	var decoded Summary
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, 503, decoded.Status)
	assert.Equal(t, []string{"status == 200"}, decoded.FailedChecks)
}

func TestSlackNotifier(t *testing.T) {
	var body []byte
	server := webhookServer(t, nethttp.StatusOK, &body)

	n, err := ParseTarget("slack:"+server.URL, nil)
	require.NoError(t, err)
	require.NoError(t, n.Notify(context.Background(), &Summary{
		Method:    "GET",
		URL:       "http://api.test",
		ErrorCode: 7,
		Error:     `Error: "connection refused" - Code: 7`,
	}))

	var msg slackMessage
	require.NoError(t, json.Unmarshal(body, &msg))
	require.Len(t, msg.Attachments, 1)
	assert.Equal(t, "danger", msg.Attachments[0].Color)
	assert.Contains(t, msg.Attachments[0].Title, "code 7")
	assert.Contains(t, msg.Attachments[0].Text, "connection refused")
	assert.Equal(t, "openit", msg.Username)
}

func TestNotify_ErrorStatus(t *testing.T) {
	var body []byte
	server := webhookServer(t, nethttp.StatusInternalServerError, &body)

	err := NewWebhookNotifier(server.URL, nil).Notify(context.Background(), &Summary{Passed: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestParseTarget_Invalid(t *testing.T) {
	for _, target := range []string{"slack", "slack:", "teams:http://x"} {
		_, err := ParseTarget(target, nil)
		assert.Error(t, err, target)
	}
}
