package notify

import (
	"context"

	"github.com/abdul-hamid-achik/openit/packages/http"
)

// WebhookNotifier posts the summary as JSON to any URL
type WebhookNotifier struct {
	url       string
	transport http.Transport
}

func NewWebhookNotifier(url string, transport http.Transport) *WebhookNotifier {
	if transport == nil {
		transport = http.NewHTTPTransport()
	}
	return &WebhookNotifier{url: url, transport: transport}
}

func (w *WebhookNotifier) Name() string {
	return "webhook"
}

func (w *WebhookNotifier) Notify(ctx context.Context, summary *Summary) error {
	return postJSON(ctx, w.transport, w.url, summary)
}
