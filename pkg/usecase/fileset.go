package usecase

import (
	"slices"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/pdfdesk/pkg/domain/model"
	"github.com/m-mizutani/pdfdesk/pkg/domain/types"
)

var (
	ErrFileNotFound   = goerr.New("file not found in file set")
	ErrInvalidReorder = goerr.New("reorder must list every file exactly once")
)

// FileSet is the ordered file list of the job a browser session is assembling.
// One instance is owned by each session and shared by every tool page of it.
// All mutations are atomic; observers are called after the change is committed.
type FileSet struct {
	mu        sync.Mutex
	files     []model.File
	observers map[int]func([]model.File)
	nextObs   int
}

// NewFileSet creates an empty file set
func NewFileSet() *FileSet {
	return &FileSet{
		observers: make(map[int]func([]model.File)),
	}
}

// Files returns a copy of the current files in order
func (s *FileSet) Files() []model.File {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.files)
}

// Len returns the number of files
func (s *FileSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.files)
}

// Subscribe registers fn to receive a snapshot after every mutation.
// The returned function removes the subscription.
func (s *FileSet) Subscribe(fn func([]model.File)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.observers, id)
	}
}

// Reset clears the set and returns the discarded files. Safe on an empty set.
func (s *FileSet) Reset() []model.File {
	s.mu.Lock()
	discarded := s.files
	s.files = nil
	snapshot, observers := s.snapshot()
	s.mu.Unlock()

	notify(observers, snapshot)
	return discarded
}

// AddFiles appends files after the existing ones, keeping their order.
// No dedup is done. An empty call does nothing.
func (s *FileSet) AddFiles(files []model.File) {
	if len(files) == 0 {
		return
	}

	s.mu.Lock()
	s.files = append(s.files, files...)
	snapshot, observers := s.snapshot()
	s.mu.Unlock()

	notify(observers, snapshot)
}

// AddFilesUpTo appends files after the existing ones until the set holds
// limit files, checking and appending in one step. limit <= 0 means unlimited. The
// files that did not fit are returned in order.
func (s *FileSet) AddFilesUpTo(files []model.File, limit int) []model.File {
	if len(files) == 0 {
		return nil
	}

	s.mu.Lock()
	n := len(files)
	if limit > 0 {
		n = min(n, max(0, limit-len(s.files)))
	}
	if n == 0 {
		s.mu.Unlock()
		return files
	}
	s.files = append(s.files, files[:n]...)
	snapshot, observers := s.snapshot()
	s.mu.Unlock()

	notify(observers, snapshot)
	return files[n:]
}

// Remove deletes the file with id and returns it
func (s *FileSet) Remove(id types.FileID) (*model.File, error) {
	s.mu.Lock()
	idx := slices.IndexFunc(s.files, func(f model.File) bool { return f.ID == id })
	if idx < 0 {
		s.mu.Unlock()
		return nil, goerr.Wrap(ErrFileNotFound, "failed to remove file", goerr.V("file_id", id))
	}

	removed := s.files[idx]
	s.files = slices.Delete(slices.Clone(s.files), idx, idx+1)
	snapshot, observers := s.snapshot()
	s.mu.Unlock()

	notify(observers, snapshot)
	return &removed, nil
}

// Move moves the file at index from to index to, shifting the others
func (s *FileSet) Move(from, to int) error {
	s.mu.Lock()
	n := len(s.files)
	if from < 0 || from >= n || to < 0 || to >= n {
		s.mu.Unlock()
		return goerr.Wrap(ErrInvalidReorder, "index out of range", goerr.V("from", from), goerr.V("to", to), goerr.V("len", n))
	}
	if from == to {
		s.mu.Unlock()
		return nil
	}

	files := slices.Clone(s.files)
	f := files[from]
	files = slices.Delete(files, from, from+1)
	files = slices.Insert(files, to, f)
	s.files = files
	snapshot, observers := s.snapshot()
	s.mu.Unlock()

	notify(observers, snapshot)
	return nil
}

// Reorder rearranges the set into the order of ids. ids must be a permutation
// of the current file IDs; otherwise nothing changes.
func (s *FileSet) Reorder(ids []types.FileID) error {
	s.mu.Lock()
	if len(ids) != len(s.files) {
		s.mu.Unlock()
		return goerr.Wrap(ErrInvalidReorder, "length mismatch", goerr.V("want", len(s.files)), goerr.V("got", len(ids)))
	}

	byID := make(map[types.FileID]model.File, len(s.files))
	for _, f := range s.files {
		byID[f.ID] = f
	}

	files := make([]model.File, 0, len(ids))
	for _, id := range ids {
		f, ok := byID[id]
		if !ok {
			s.mu.Unlock()
			return goerr.Wrap(ErrInvalidReorder, "unknown or repeated file", goerr.V("file_id", id))
		}
		delete(byID, id)
		files = append(files, f)
	}

	s.files = files
	snapshot, observers := s.snapshot()
	s.mu.Unlock()

	notify(observers, snapshot)
	return nil
}

// snapshot must be called with mu held
func (s *FileSet) snapshot() ([]model.File, []func([]model.File)) {
	observers := make([]func([]model.File), 0, len(s.observers))
	for i := 0; i < s.nextObs; i++ {
		if fn, ok := s.observers[i]; ok {
			observers = append(observers, fn)
		}
	}
	return slices.Clone(s.files), observers
}

func notify(observers []func([]model.File), files []model.File) {
	for _, fn := range observers {
		fn(files)
	}
}
