package interfaces

//go:generate moq -out mocks/infra_mock.go -pkg mocks . Backend BlobStore TransitionStore EventPublisher Notifier

import (
	"context"
	"io"

	"github.com/m-mizutani/pdfdesk/pkg/domain/model"
	"github.com/m-mizutani/pdfdesk/pkg/domain/types"
)

// Backend is the PDF processing service. Its artifacts are opaque locators.
type Backend interface {
	// Submit sends files and parameters and returns the artifact locator
	Submit(ctx context.Context, req *model.JobRequest) (*model.JobResponse, error)

	// Probe returns the byte size of an artifact with a metadata-only request
	Probe(ctx context.Context, locator string) (int64, error)

	// Fetch downloads an artifact
	Fetch(ctx context.Context, locator string) (*model.Artifact, error)

	// Owns reports whether locator points into the backend
	Owns(locator string) bool
}

// BlobStore keeps the content of uploaded files until the job is submitted or discarded
type BlobStore interface {
	Put(ctx context.Context, id types.BlobID, contentType string, r io.Reader) (int64, error)
	Open(ctx context.Context, id types.BlobID) (io.ReadCloser, error)
	Delete(ctx context.Context, id types.BlobID) error
}

// TransitionStore holds single-use transition tokens
type TransitionStore interface {
	// Issue stores a transition until its expiry
	Issue(ctx context.Context, tr *model.Transition) error

	// Redeem reads a token. The reference is returned on the first read only;
	// later reads report a replay. Unknown or expired tokens return nil.
	Redeem(ctx context.Context, token types.TransitionToken) (*model.Redemption, error)
}

// EventPublisher emits job lifecycle events
type EventPublisher interface {
	Publish(ctx context.Context, event *model.JobEvent) error
}

// Notifier alerts operators
type Notifier interface {
	Notify(ctx context.Context, event *model.JobEvent) error
}
