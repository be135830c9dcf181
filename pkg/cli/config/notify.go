package config

import (
	"github.com/m-mizutani/pdfdesk/pkg/infra/kafka"
	"github.com/m-mizutani/pdfdesk/pkg/infra/slack"
	"github.com/m-mizutani/pdfdesk/pkg/usecase"
	"github.com/urfave/cli/v3"
)

// Notify holds configuration of job event delivery
type Notify struct {
	KafkaBrokers []string
	KafkaTopic   string

	SlackWebhookURL string `masq:"secret"`
	SlackChannel    string
}

// Flags returns CLI flags for job event delivery
func (c *Notify) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringSliceFlag{
			Name:        "kafka-brokers",
			Usage:       "Kafka brokers to publish job events to (disabled if empty)",
			Destination: &c.KafkaBrokers,
			Sources:     cli.EnvVars("PDFDESK_KAFKA_BROKERS"),
		},
		&cli.StringFlag{
			Name:        "kafka-topic",
			Usage:       "Kafka topic of job events",
			Value:       "pdfdesk.jobs",
			Destination: &c.KafkaTopic,
			Sources:     cli.EnvVars("PDFDESK_KAFKA_TOPIC"),
		},
		&cli.StringFlag{
			Name:        "slack-webhook-url",
			Usage:       "Slack incoming webhook for failed jobs (disabled if empty)",
			Destination: &c.SlackWebhookURL,
			Sources:     cli.EnvVars("PDFDESK_SLACK_WEBHOOK_URL"),
		},
		&cli.StringFlag{
			Name:        "slack-channel",
			Usage:       "Slack channel override",
			Destination: &c.SlackChannel,
			Sources:     cli.EnvVars("PDFDESK_SLACK_CHANNEL"),
		},
	}
}

// Options returns use case options for the configured sinks. The returned
// func closes them.
func (c *Notify) Options() ([]usecase.Option, func()) {
	var opts []usecase.Option
	closer := func() {}

	if len(c.KafkaBrokers) > 0 {
		pub := kafka.NewPublisher(c.KafkaBrokers, c.KafkaTopic)
		opts = append(opts, usecase.WithEventPublisher(pub))
		closer = func() { _ = pub.Close() }
	}
	if c.SlackWebhookURL != "" {
		opts = append(opts, usecase.WithNotifier(slack.NewNotifier(c.SlackWebhookURL, c.SlackChannel)))
	}

	return opts, closer
}
