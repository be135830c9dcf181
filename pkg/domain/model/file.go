package model

import (
	"io"

	"github.com/m-mizutani/pdfdesk/pkg/domain/types"
)

// File is one entry of the job's file set. Entries are not required to be
// distinct; the same document may appear several times.
type File struct {
	ID          types.FileID `json:"id"`
	Name        string       `json:"name"`
	Size        int64        `json:"size"`
	ContentType string       `json:"content_type"`
	BlobID      types.BlobID `json:"-"`
}

// Upload is a file handed over by the picker or the drop zone, before it is
// accepted into the file set
type Upload struct {
	Name        string
	Size        int64
	ContentType string
	Open        func() (io.ReadCloser, error)
}

// TotalSize returns the sum of the sizes of files
func TotalSize(files []File) int64 {
	var total int64
	for _, f := range files {
		total += f.Size
	}
	return total
}
