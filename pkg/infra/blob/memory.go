package blob

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/pdfdesk/pkg/domain/types"
)

// ErrNotFound is returned when a blob does not exist
var ErrNotFound = goerr.New("blob not found")

// Memory keeps blobs in process memory
type Memory struct {
	mu    sync.RWMutex
	blobs map[types.BlobID][]byte
}

// NewMemory creates an empty in-memory blob store
func NewMemory() *Memory {
	return &Memory{blobs: make(map[types.BlobID][]byte)}
}

func (m *Memory) Put(ctx context.Context, id types.BlobID, contentType string, r io.Reader) (int64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to read blob content", goerr.V("blob_id", id))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[id] = data
	return int64(len(data)), nil
}

func (m *Memory) Open(ctx context.Context, id types.BlobID) (io.ReadCloser, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.blobs[id]
	if !ok {
		return nil, goerr.Wrap(ErrNotFound, "failed to open blob", goerr.V("blob_id", id))
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// Delete removes a blob. Deleting a missing blob is not an error.
func (m *Memory) Delete(ctx context.Context, id types.BlobID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blobs, id)
	return nil
}

// Len returns the number of stored blobs
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.blobs)
}
