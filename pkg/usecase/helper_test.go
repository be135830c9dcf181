package usecase_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/pdfdesk/pkg/domain/model"
	"github.com/m-mizutani/pdfdesk/pkg/domain/types"
)

// mockBackend is a configurable Backend
type mockBackend struct {
	submitFunc func(ctx context.Context, req *model.JobRequest) (*model.JobResponse, error)
	probeFunc  func(ctx context.Context, locator string) (int64, error)
	fetchFunc  func(ctx context.Context, locator string) (*model.Artifact, error)
	foreign    bool

	mu         sync.Mutex
	submitted  [][]string
	probeCalls int
}

func (m *mockBackend) Submit(ctx context.Context, req *model.JobRequest) (*model.JobResponse, error) {
	var contents []string
	for _, f := range req.Files {
		data, err := io.ReadAll(f.Content)
		if err != nil {
			return nil, err
		}
		contents = append(contents, string(data))
	}

	m.mu.Lock()
	m.submitted = append(m.submitted, contents)
	m.mu.Unlock()

	if m.submitFunc != nil {
		return m.submitFunc(ctx, req)
	}
	return &model.JobResponse{DownloadURL: "https://backend.test/files/result.pdf"}, nil
}

func (m *mockBackend) Probe(ctx context.Context, locator string) (int64, error) {
	m.mu.Lock()
	m.probeCalls++
	m.mu.Unlock()

	if m.probeFunc != nil {
		return m.probeFunc(ctx, locator)
	}
	return 0, errors.New("probe not configured")
}

func (m *mockBackend) Fetch(ctx context.Context, locator string) (*model.Artifact, error) {
	if m.fetchFunc != nil {
		return m.fetchFunc(ctx, locator)
	}
	return nil, errors.New("fetch not configured")
}

func (m *mockBackend) Owns(locator string) bool {
	return !m.foreign
}

// mockSink records published events and notifications
type mockSink struct {
	mu     sync.Mutex
	events []*model.JobEvent
}

func (s *mockSink) Publish(ctx context.Context, event *model.JobEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *mockSink) Notify(ctx context.Context, event *model.JobEvent) error {
	return s.Publish(ctx, event)
}

func (s *mockSink) Events() []*model.JobEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*model.JobEvent{}, s.events...)
}

func testCatalog(t *testing.T) *model.Catalog {
	t.Helper()
	catalog, err := model.NewCatalog([]model.ToolSpec{
		{Name: types.ToolMerge, Title: "Merge PDF files"},
		{Name: types.ToolSplit, Title: "Split PDF file", MaxFiles: 1, Params: []model.ToolParam{
			{Name: "ranges", Kind: model.ParamText, Required: true},
		}},
		{Name: types.ToolCompress, Title: "Compress PDF", Params: []model.ToolParam{
			{Name: "level", Kind: model.ParamSelect, Options: []string{"low", "recommended", "extreme"}, Default: "recommended"},
		}},
		{Name: types.ToolProtect, Title: "Protect PDF", MaxFiles: 1, Params: []model.ToolParam{
			{Name: "password", Kind: model.ParamPassword, Required: true, Secret: true},
		}},
		{Name: types.ToolUnlock, Title: "Unlock PDF", MaxFiles: 1},
	})
	gt.NoError(t, err)
	return catalog
}

// pdf returns an upload with a PDF name, MIME type and header
func pdf(name string) model.Upload {
	return upload(name, "application/pdf", "%PDF-1.7 "+name)
}

func upload(name, contentType, content string) model.Upload {
	return model.Upload{
		Name:        name,
		Size:        int64(len(content)),
		ContentType: contentType,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader(content)), nil
		},
	}
}

func names(files []model.File) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, f.Name)
	}
	return out
}

func entries(names ...string) []model.File {
	files := make([]model.File, 0, len(names))
	for _, n := range names {
		files = append(files, model.File{ID: types.NewFileID(), Name: n, BlobID: types.NewBlobID()})
	}
	return files
}
