package slack

import (
	"context"
	"fmt"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/pdfdesk/pkg/domain/model"
	"github.com/slack-go/slack"
)

// Notifier posts job failures to a Slack incoming webhook
type Notifier struct {
	webhookURL string
	channel    string
}

// NewNotifier creates a notifier. channel may be empty to use the webhook default.
func NewNotifier(webhookURL, channel string) *Notifier {
	return &Notifier{
		webhookURL: webhookURL,
		channel:    channel,
	}
}

// Notify posts event
func (n *Notifier) Notify(ctx context.Context, event *model.JobEvent) error {
	msg := &slack.WebhookMessage{
		Channel: n.channel,
		Text:    fmt.Sprintf("pdfdesk %s: %s job with %d file(s)", event.Type, event.Tool, event.FileCount),
		Attachments: []slack.Attachment{
			{
				Color: colorOf(event.Type),
				Fields: []slack.AttachmentField{
					{Title: "Tool", Value: string(event.Tool), Short: true},
					{Title: "Files", Value: fmt.Sprintf("%d (%s)", event.FileCount, model.FormatSize(event.TotalSize)), Short: true},
					{Title: "Session", Value: string(event.SessionID), Short: false},
					{Title: "Error", Value: event.Error, Short: false},
				},
			},
		},
	}

	if err := slack.PostWebhookContext(ctx, n.webhookURL, msg); err != nil {
		return goerr.Wrap(err, "failed to post slack webhook", goerr.V("type", event.Type))
	}
	return nil
}

func colorOf(t model.JobEventType) string {
	if t == model.JobEventFailed {
		return "danger"
	}
	return "good"
}
