package usecase

import (
	"time"

	"github.com/m-mizutani/pdfdesk/pkg/domain/model"
)

// SetNow replaces the clock of the session registry
func (s *Sessions) SetNow(now func() time.Time) {
	s.now = now
}

// DeliverFiles hands a file set snapshot to the workspace as an observer would
func (w *Workspace) DeliverFiles(files []model.File) {
	w.onFilesChanged(files)
}
