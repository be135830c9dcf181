package transition

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/pdfdesk/pkg/domain/model"
	"github.com/m-mizutani/pdfdesk/pkg/domain/types"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type transitionDoc struct {
	DownloadURL    string    `firestore:"download_url"`
	Tool           string    `firestore:"tool"`
	OriginalSize   int64     `firestore:"original_size"`
	CompressedSize int64     `firestore:"compressed_size"`
	Redeemed       bool      `firestore:"redeemed"`
	ExpiresAt      time.Time `firestore:"expires_at"`
}

// Firestore keeps transition tokens as documents. Redemption runs in a
// transaction so a token is handed out once even across instances.
// Configure a TTL policy on expires_at to purge old documents.
type Firestore struct {
	client     *firestore.Client
	collection string
	replayTTL  time.Duration
	now        func() time.Time
}

// NewFirestore creates a Firestore transition store
func NewFirestore(ctx context.Context, projectID, collection string, opts ...option.ClientOption) (*Firestore, error) {
	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client", goerr.V("project_id", projectID))
	}

	return &Firestore{
		client:     client,
		collection: collection,
		replayTTL:  DefaultReplayTTL,
		now:        time.Now,
	}, nil
}

func (f *Firestore) Issue(ctx context.Context, tr *model.Transition) error {
	doc := &transitionDoc{
		DownloadURL:    tr.Reference.DownloadURL,
		Tool:           string(tr.Reference.Tool),
		OriginalSize:   tr.Reference.OriginalSize,
		CompressedSize: tr.Reference.CompressedSize,
		ExpiresAt:      tr.ExpiresAt,
	}

	if _, err := f.client.Collection(f.collection).Doc(string(tr.Token)).Set(ctx, doc); err != nil {
		return goerr.Wrap(err, "failed to store transition", goerr.V("token", tr.Token))
	}
	return nil
}

func (f *Firestore) Redeem(ctx context.Context, token types.TransitionToken) (*model.Redemption, error) {
	ref := f.client.Collection(f.collection).Doc(string(token))
	var result *model.Redemption

	err := f.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		result = nil

		snap, err := tx.Get(ref)
		if status.Code(err) == codes.NotFound {
			return nil
		}
		if err != nil {
			return err
		}

		var doc transitionDoc
		if err := snap.DataTo(&doc); err != nil {
			return err
		}

		now := f.now()
		if now.After(doc.ExpiresAt) {
			return nil
		}

		tool := types.Tool(doc.Tool)
		if doc.Redeemed {
			result = &model.Redemption{Replayed: true, Tool: tool}
			return nil
		}

		if err := tx.Update(ref, redeemedUpdates(now.Add(f.replayTTL))); err != nil {
			return err
		}

		result = &model.Redemption{
			Tool: tool,
			Reference: &model.ResultReference{
				DownloadURL:    doc.DownloadURL,
				Tool:           tool,
				OriginalSize:   doc.OriginalSize,
				CompressedSize: doc.CompressedSize,
			},
		}
		return nil
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to redeem transition", goerr.V("token", token))
	}

	return result, nil
}

// redeemedUpdates marks a document as used. Only the tool is kept for the
// replay redirect; the locator is dropped.
func redeemedUpdates(expiresAt time.Time) []firestore.Update {
	return []firestore.Update{
		{Path: "redeemed", Value: true},
		{Path: "expires_at", Value: expiresAt},
		{Path: "download_url", Value: firestore.Delete},
		{Path: "original_size", Value: firestore.Delete},
		{Path: "compressed_size", Value: firestore.Delete},
	}
}

// Close releases the firestore client
func (f *Firestore) Close() error {
	return f.client.Close()
}
