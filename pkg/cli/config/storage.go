package config

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/pdfdesk/pkg/domain/interfaces"
	"github.com/m-mizutani/pdfdesk/pkg/infra/blob"
	"github.com/urfave/cli/v3"
	"google.golang.org/api/option"
)

// Storage holds configuration of the store for uploaded files
type Storage struct {
	Bucket          string
	Prefix          string
	CredentialsFile string
}

// Flags returns CLI flags for storage configuration
func (c *Storage) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "gcs-bucket",
			Usage:       "Cloud Storage bucket for uploaded files (in-memory if empty)",
			Destination: &c.Bucket,
			Sources:     cli.EnvVars("PDFDESK_GCS_BUCKET"),
		},
		&cli.StringFlag{
			Name:        "gcs-prefix",
			Usage:       "Object name prefix in the bucket",
			Value:       "uploads/",
			Destination: &c.Prefix,
			Sources:     cli.EnvVars("PDFDESK_GCS_PREFIX"),
		},
		&cli.StringFlag{
			Name:        "gcs-credentials",
			Usage:       "Service account key file (application default credentials if empty)",
			Destination: &c.CredentialsFile,
			Sources:     cli.EnvVars("PDFDESK_GCS_CREDENTIALS"),
		},
	}
}

// Configure creates the blob store. The returned func releases its resources.
func (c *Storage) Configure(ctx context.Context) (interfaces.BlobStore, func(), error) {
	if c.Bucket == "" {
		return blob.NewMemory(), func() {}, nil
	}

	var opts []option.ClientOption
	if c.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(c.CredentialsFile))
	}

	store, err := blob.NewGCS(ctx, c.Bucket, c.Prefix, opts...)
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to configure blob store", goerr.V("bucket", c.Bucket))
	}
	return store, func() { _ = store.Close() }, nil
}
