package usecase

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"mime"
	"path/filepath"
	"strings"
	"sync"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/pdfdesk/pkg/domain/interfaces"
	"github.com/m-mizutani/pdfdesk/pkg/domain/model"
	"github.com/m-mizutani/pdfdesk/pkg/domain/types"
)

const pdfContentType = "application/pdf"

var pdfMagic = []byte("%PDF-")

var acceptedMIMETypes = map[string]bool{
	"":                         true,
	pdfContentType:             true,
	"application/x-pdf":        true,
	"application/octet-stream": true,
}

// UploadSurface receives batches from the file picker or the drop zone and
// forwards the PDF entries to the file set. Anything else is dropped silently.
type UploadSurface struct {
	files *FileSet
	blobs interfaces.BlobStore

	mu      sync.Mutex
	pending []model.Upload
}

// NewUploadSurface creates an upload surface that feeds files
func NewUploadSurface(files *FileSet, blobs interfaces.BlobStore) *UploadSurface {
	return &UploadSurface{
		files: files,
		blobs: blobs,
	}
}

// Select replaces the pending selection of the input control
func (u *UploadSurface) Select(batch []model.Upload) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.pending = batch
}

// Pending returns the number of selected but not yet submitted entries
func (u *UploadSurface) Pending() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.pending)
}

// Accept processes batch directly, leaving the pending selection untouched,
// so concurrent uploads of one session never replace each other's batch.
func (u *UploadSurface) Accept(ctx context.Context, spec *model.ToolSpec, batch []model.Upload) (int, error) {
	return u.process(ctx, spec, batch)
}

// Submit forwards the pending selection to the file set and clears the
// selection, so the same file can be chosen again next time.
func (u *UploadSurface) Submit(ctx context.Context, spec *model.ToolSpec) (int, error) {
	u.mu.Lock()
	batch := u.pending
	u.pending = nil
	u.mu.Unlock()

	return u.process(ctx, spec, batch)
}

// process filters and stores batch, then appends it to the file set. The
// MaxFiles cap is enforced by the file set in the same step as the append;
// entries over the cap are dropped and their blobs released.
func (u *UploadSurface) process(ctx context.Context, spec *model.ToolSpec, batch []model.Upload) (int, error) {
	logger := ctxlog.From(ctx)

	// early estimate only, saves storing entries that cannot fit
	remaining := spec.Remaining(u.files.Len())
	accepted := make([]model.File, 0, len(batch))

	for _, up := range batch {
		if !IsPDF(up.Name, up.ContentType) {
			logger.Debug("Dropped non-PDF upload", "name", up.Name, "content_type", up.ContentType)
			continue
		}
		if remaining == 0 {
			logger.Debug("Dropped upload over file limit", "name", up.Name, "tool", spec.Name, "max_files", spec.MaxFiles)
			continue
		}

		file, err := u.store(ctx, up)
		if err != nil {
			releaseBlobs(ctx, u.blobs, accepted)
			return 0, err
		}
		if file == nil {
			logger.Debug("Dropped upload without PDF header", "name", up.Name)
			continue
		}

		accepted = append(accepted, *file)
		if remaining > 0 {
			remaining--
		}
	}

	overflow := u.files.AddFilesUpTo(accepted, spec.MaxFiles)
	if len(overflow) > 0 {
		logger.Debug("Dropped uploads over file limit", "count", len(overflow), "tool", spec.Name, "max_files", spec.MaxFiles)
		releaseBlobs(ctx, u.blobs, overflow)
	}
	return len(accepted) - len(overflow), nil
}

// store writes the content of up to the blob store. It returns nil without
// error when the content is not a PDF.
func (u *UploadSurface) store(ctx context.Context, up model.Upload) (*model.File, error) {
	if up.Open == nil {
		return nil, nil
	}

	rc, err := up.Open()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open upload", goerr.V("name", up.Name))
	}
	defer rc.Close()

	br := bufio.NewReader(rc)
	head, err := br.Peek(len(pdfMagic))
	if err != nil && err != io.EOF {
		return nil, goerr.Wrap(err, "failed to read upload", goerr.V("name", up.Name))
	}
	if len(head) > 0 && !bytes.Equal(head, pdfMagic) {
		return nil, nil
	}

	blobID := types.NewBlobID()
	size, err := u.blobs.Put(ctx, blobID, pdfContentType, br)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to store upload", goerr.V("name", up.Name), goerr.V("blob_id", blobID))
	}

	return &model.File{
		ID:          types.NewFileID(),
		Name:        filepath.Base(up.Name),
		Size:        size,
		ContentType: pdfContentType,
		BlobID:      blobID,
	}, nil
}

// IsPDF reports whether a file name and declared MIME type indicate a PDF
func IsPDF(name, contentType string) bool {
	if !strings.EqualFold(filepath.Ext(name), ".pdf") {
		return false
	}

	mediaType := ""
	if contentType != "" {
		mt, _, err := mime.ParseMediaType(contentType)
		if err != nil {
			return false
		}
		mediaType = strings.ToLower(mt)
	}
	return acceptedMIMETypes[mediaType]
}
