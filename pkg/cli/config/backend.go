package config

import (
	"net/http"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/pdfdesk/pkg/infra/backend"
	"github.com/urfave/cli/v3"
)

// Backend holds processing backend configuration
type Backend struct {
	URL          string
	Timeout      time.Duration
	ProbeTimeout time.Duration
}

// Flags returns CLI flags for backend configuration
func (c *Backend) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "backend-url",
			Usage:       "Base URL of the PDF processing backend",
			Required:    true,
			Destination: &c.URL,
			Sources:     cli.EnvVars("PDFDESK_BACKEND_URL"),
		},
		&cli.DurationFlag{
			Name:        "backend-timeout",
			Usage:       "Timeout of one backend request",
			Value:       5 * time.Minute,
			Destination: &c.Timeout,
			Sources:     cli.EnvVars("PDFDESK_BACKEND_TIMEOUT"),
		},
		&cli.DurationFlag{
			Name:        "probe-timeout",
			Usage:       "Timeout of the artifact size probe on the result page",
			Value:       5 * time.Second,
			Destination: &c.ProbeTimeout,
			Sources:     cli.EnvVars("PDFDESK_PROBE_TIMEOUT"),
		},
	}
}

// Configure creates the backend client
func (c *Backend) Configure() (*backend.Client, error) {
	client, err := backend.New(c.URL, backend.WithHTTPClient(&http.Client{Timeout: c.Timeout}))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to configure backend", goerr.V("url", c.URL))
	}
	return client, nil
}
