package model

import (
	"io"
	"time"

	"github.com/m-mizutani/pdfdesk/pkg/domain/types"
)

// JobParams are the tool-specific parameters of a job submission
type JobParams struct {
	Values  map[string]string `json:"values"`
	Secrets map[string]string `json:"secrets" masq:"secret"`
}

// All merges plain and secret values for sending to the backend
func (p JobParams) All() map[string]string {
	all := make(map[string]string, len(p.Values)+len(p.Secrets))
	for k, v := range p.Values {
		all[k] = v
	}
	for k, v := range p.Secrets {
		all[k] = v
	}
	return all
}

// JobFile is one document of a submission, in file set order
type JobFile struct {
	Name    string
	Size    int64
	Content io.Reader
}

// JobRequest is sent to the processing backend
type JobRequest struct {
	Tool   types.Tool
	Files  []JobFile
	Params JobParams
}

// JobResponse is what the backend returns for a finished job
type JobResponse struct {
	DownloadURL    string `json:"downloadUrl"`
	OriginalSize   int64  `json:"originalSize,omitempty"`
	CompressedSize int64  `json:"compressedSize,omitempty"`
}

// JobEventType is the type of job lifecycle events
type JobEventType string

const (
	JobEventCompleted JobEventType = "job.completed"
	JobEventFailed    JobEventType = "job.failed"
)

// JobEvent is published after a job submission
type JobEvent struct {
	Type       JobEventType    `json:"type"`
	SessionID  types.SessionID `json:"session_id"`
	Tool       types.Tool      `json:"tool"`
	FileCount  int             `json:"file_count"`
	TotalSize  int64           `json:"total_size"`
	ResultSize int64           `json:"result_size,omitempty"`
	Error      string          `json:"error,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
}
