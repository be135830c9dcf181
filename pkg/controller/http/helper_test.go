package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/pdfdesk/pkg/cli/config"
	controller "github.com/m-mizutani/pdfdesk/pkg/controller/http"
	"github.com/m-mizutani/pdfdesk/pkg/infra/backend"
	"github.com/m-mizutani/pdfdesk/pkg/infra/blob"
	"github.com/m-mizutani/pdfdesk/pkg/infra/transition"
	"github.com/m-mizutani/pdfdesk/pkg/usecase"
)

var testSecret = []byte(strings.Repeat("s", 32))

const artifactBody = "%PDF-1.7 result"

// fakeBackend records submitted jobs and serves one artifact
type fakeBackend struct {
	*httptest.Server

	mu       sync.Mutex
	jobs     []fakeJob
	status   int
	download string
}

type fakeJob struct {
	Tool   string
	Files  []string
	Fields map[string]string
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	fb := &fakeBackend{status: http.StatusOK, download: "/files/out.pdf?sig=abc"}

	r := chi.NewRouter()
	r.Post("/api/{tool}", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		job := fakeJob{Tool: chi.URLParam(r, "tool"), Fields: map[string]string{}}
		for k := range r.MultipartForm.Value {
			job.Fields[k] = r.MultipartForm.Value[k][0]
		}
		for _, fh := range r.MultipartForm.File["files"] {
			job.Files = append(job.Files, fh.Filename)
		}

		fb.mu.Lock()
		fb.jobs = append(fb.jobs, job)
		status, download := fb.status, fb.download
		fb.mu.Unlock()

		if status != http.StatusOK {
			http.Error(w, "boom", status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"downloadUrl":    download,
			"originalSize":   1000000,
			"compressedSize": 400000,
		})
	})
	r.Get("/files/out.pdf", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = io.WriteString(w, artifactBody)
	})

	fb.Server = httptest.NewServer(r)
	t.Cleanup(fb.Close)
	return fb
}

func (fb *fakeBackend) Jobs() []fakeJob {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return append([]fakeJob(nil), fb.jobs...)
}

// SetDownloadURL changes the locator returned for submitted jobs
func (fb *fakeBackend) SetDownloadURL(locator string) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.download = locator
}

func (fb *fakeBackend) SetStatus(status int) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.status = status
}

// testEnv is a running pdfdesk server with a browser-like client
type testEnv struct {
	t       *testing.T
	server  *httptest.Server
	client  *http.Client
	backend *fakeBackend
	uc      *usecase.UseCase
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	catalog, err := config.DefaultCatalog()
	gt.NoError(t, err)

	fb := newFakeBackend(t)
	client, err := backend.New(fb.URL)
	gt.NoError(t, err)

	uc := usecase.New(catalog, blob.NewMemory(), client, transition.NewMemory())

	srv, err := controller.NewServer(ctx, catalog, uc, uc,
		controller.WithAddr("localhost:0"),
		controller.WithSessionSecret(testSecret),
		controller.WithMaxUpload(1<<20),
	)
	gt.NoError(t, err)

	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)

	jar, err := cookiejar.New(nil)
	gt.NoError(t, err)

	return &testEnv{
		t:      t,
		server: ts,
		client: &http.Client{
			Jar: jar,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		backend: fb,
		uc:      uc,
	}
}

func (e *testEnv) do(req *http.Request) (*http.Response, string) {
	e.t.Helper()
	resp, err := e.client.Do(req)
	gt.NoError(e.t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	gt.NoError(e.t, err)
	return resp, string(body)
}

func (e *testEnv) get(path string) (*http.Response, string) {
	e.t.Helper()
	req, err := http.NewRequest(http.MethodGet, e.server.URL+path, nil)
	gt.NoError(e.t, err)
	return e.do(req)
}

func (e *testEnv) postForm(path string, form url.Values) (*http.Response, string) {
	e.t.Helper()
	req, err := http.NewRequest(http.MethodPost, e.server.URL+path, strings.NewReader(form.Encode()))
	gt.NoError(e.t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return e.do(req)
}

type testFile struct {
	name        string
	contentType string
	content     string
}

func pdfFile(name string) testFile {
	return testFile{name: name, contentType: "application/pdf", content: "%PDF-1.4 " + name}
}

func (e *testEnv) upload(path string, files ...testFile) (*http.Response, string) {
	e.t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="files"; filename="`+f.name+`"`)
		h.Set("Content-Type", f.contentType)
		part, err := mw.CreatePart(h)
		gt.NoError(e.t, err)
		_, err = io.WriteString(part, f.content)
		gt.NoError(e.t, err)
	}
	gt.NoError(e.t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, e.server.URL+path, &buf)
	gt.NoError(e.t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return e.do(req)
}

type stateResponse struct {
	View  string `json:"view"`
	Files []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"files"`
	CanReorder  bool `json:"can_reorder"`
	ShowAddMore bool `json:"show_add_more"`
}

func (e *testEnv) state(tool string) stateResponse {
	e.t.Helper()
	resp, body := e.get("/" + tool + "/state")
	gt.Equal(e.t, resp.StatusCode, http.StatusOK)

	var st stateResponse
	gt.NoError(e.t, json.Unmarshal([]byte(body), &st))
	return st
}
