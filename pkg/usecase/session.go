package usecase

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/pdfdesk/pkg/domain/interfaces"
	"github.com/m-mizutani/pdfdesk/pkg/domain/model"
	"github.com/m-mizutani/pdfdesk/pkg/domain/types"
)

// Session is the client state of one browser session. Its file set is the
// single source of truth for every tool page the browser opens.
type Session struct {
	ID        types.SessionID
	Files     *FileSet
	Workspace *Workspace
	Upload    *UploadSurface

	mu       sync.Mutex
	lastSeen time.Time
	results  []model.ResultReference
}

// maxResults bounds the result references a session keeps for download
const maxResults = 8

// rememberResult records a reference shown on the result page so its
// download action can be served
func (s *Session) rememberResult(ref model.ResultReference) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.results = slices.DeleteFunc(s.results, func(r model.ResultReference) bool {
		return r.DownloadURL == ref.DownloadURL
	})
	s.results = append(s.results, ref)
	if len(s.results) > maxResults {
		s.results = slices.Clone(s.results[len(s.results)-maxResults:])
	}
}

// issuedResult returns the reference of locator if it was shown to this session
func (s *Session) issuedResult(locator string) (*model.ResultReference, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := len(s.results) - 1; i >= 0; i-- {
		if s.results[i].DownloadURL == locator {
			ref := s.results[i]
			return &ref, true
		}
	}
	return nil, false
}

func (s *Session) forgetResults() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = nil
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = now
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastSeen)
}

// Sessions owns the sessions of all browsers
type Sessions struct {
	catalog *model.Catalog
	blobs   interfaces.BlobStore
	ttl     time.Duration
	now     func() time.Time

	mu       sync.Mutex
	sessions map[types.SessionID]*Session
}

// NewSessions creates a session registry. Sessions idle longer than ttl are
// removed by Sweep.
func NewSessions(catalog *model.Catalog, blobs interfaces.BlobStore, ttl time.Duration) *Sessions {
	return &Sessions{
		catalog:  catalog,
		blobs:    blobs,
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[types.SessionID]*Session),
	}
}

// Get returns the session of sid, creating it on first use
func (s *Sessions) Get(sid types.SessionID) *Session {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sid]
	if !ok {
		files := NewFileSet()
		sess = &Session{
			ID:        sid,
			Files:     files,
			Workspace: NewWorkspace(files, s.catalog),
			Upload:    NewUploadSurface(files, s.blobs),
		}
		s.sessions[sid] = sess
	}
	sess.touch(now)
	return sess
}

// Len returns the number of live sessions
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep removes idle sessions and releases their uploaded content
func (s *Sessions) Sweep(ctx context.Context) int {
	now := s.now()

	s.mu.Lock()
	var expired []*Session
	for id, sess := range s.sessions {
		if sess.idleSince(now) > s.ttl {
			expired = append(expired, sess)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, sess := range expired {
		sess.Workspace.Close()
		releaseBlobs(ctx, s.blobs, sess.Files.Reset())
	}

	if len(expired) > 0 {
		ctxlog.From(ctx).Info("Swept idle sessions", "count", len(expired))
	}
	return len(expired)
}

// Run sweeps idle sessions every interval until ctx is done
func (s *Sessions) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

func releaseBlobs(ctx context.Context, blobs interfaces.BlobStore, files []model.File) {
	logger := ctxlog.From(ctx)
	for _, f := range files {
		if err := blobs.Delete(ctx, f.BlobID); err != nil {
			logger.Warn("Failed to release blob", "blob_id", f.BlobID, "error", err)
		}
	}
}
