package http_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/pdfdesk/pkg/cli/config"
	controller "github.com/m-mizutani/pdfdesk/pkg/controller/http"
	"github.com/m-mizutani/pdfdesk/pkg/domain/model"
	"github.com/m-mizutani/pdfdesk/pkg/infra/blob"
	"github.com/m-mizutani/pdfdesk/pkg/infra/transition"
	"github.com/m-mizutani/pdfdesk/pkg/usecase"
)

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.get("/health")
	gt.Equal(t, resp.StatusCode, http.StatusOK)

	var status model.HealthStatus
	gt.NoError(t, json.Unmarshal([]byte(body), &status))
	gt.Equal(t, status.Status, "healthy")
	gt.Equal(t, status.Service, "pdfdesk")
	gt.NotEqual(t, status.Version, "")
}

func TestNewServer_ShortSecret(t *testing.T) {
	catalog, err := config.DefaultCatalog()
	gt.NoError(t, err)
	uc := usecase.New(catalog, blob.NewMemory(), nil, transition.NewMemory())

	_, err = controller.NewServer(context.Background(), catalog, uc, uc,
		controller.WithSessionSecret([]byte("short")),
	)
	gt.Error(t, err)
}

func TestRouting(t *testing.T) {
	env := newTestEnv(t)

	t.Run("root redirects to merge", func(t *testing.T) {
		resp, _ := env.get("/")
		gt.Equal(t, resp.StatusCode, http.StatusSeeOther)
		gt.Equal(t, resp.Header.Get("Location"), "/merge")
	})

	t.Run("unknown tool", func(t *testing.T) {
		resp, _ := env.get("/rotate")
		gt.Equal(t, resp.StatusCode, http.StatusNotFound)
	})

	t.Run("session cookie is issued", func(t *testing.T) {
		resp, _ := env.get("/merge")
		gt.Equal(t, resp.StatusCode, http.StatusOK)

		var found bool
		for _, c := range resp.Cookies() {
			if c.Name == "pdfdesk_session" {
				found = true
				gt.True(t, c.HttpOnly)
			}
		}
		gt.True(t, found)
	})
}

func TestWorkspaceFlow(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.get("/merge")
	gt.Equal(t, resp.StatusCode, http.StatusOK)
	gt.S(t, body).Contains(`data-view="empty"`)
	gt.S(t, body).Contains("Merge PDF")

	// a batch of three with one non-PDF keeps two files
	resp, _ = env.upload("/merge/files",
		pdfFile("a.pdf"),
		testFile{name: "notes.txt", contentType: "text/plain", content: "hello"},
		pdfFile("b.pdf"),
	)
	gt.Equal(t, resp.StatusCode, http.StatusSeeOther)
	gt.Equal(t, resp.Header.Get("Location"), "/merge/workspace")

	st := env.state("merge")
	gt.Equal(t, st.View, "active")
	gt.A(t, st.Files).Length(2)
	gt.Equal(t, st.Files[0].Name, "a.pdf")
	gt.Equal(t, st.Files[1].Name, "b.pdf")
	gt.True(t, st.CanReorder)
	gt.True(t, st.ShowAddMore)

	// added files append after existing ones
	resp, _ = env.upload("/merge/files", pdfFile("c.pdf"))
	gt.Equal(t, resp.StatusCode, http.StatusSeeOther)
	st = env.state("merge")
	gt.A(t, st.Files).Length(3)
	gt.Equal(t, st.Files[2].Name, "c.pdf")

	resp, body = env.get("/merge/workspace")
	gt.Equal(t, resp.StatusCode, http.StatusOK)
	gt.S(t, body).Contains(`data-view="active"`)
	gt.S(t, body).Contains("c.pdf")

	// reorder to c, a, b
	order := st.Files[2].ID + "," + st.Files[0].ID + "," + st.Files[1].ID
	resp, _ = env.postForm("/merge/files/order", url.Values{"order": {order}})
	gt.Equal(t, resp.StatusCode, http.StatusSeeOther)
	st = env.state("merge")
	gt.Equal(t, st.Files[0].Name, "c.pdf")

	// remove b
	resp, _ = env.postForm("/merge/files/"+st.Files[2].ID+"/delete", nil)
	gt.Equal(t, resp.StatusCode, http.StatusSeeOther)
	st = env.state("merge")
	gt.A(t, st.Files).Length(2)

	// process
	resp, _ = env.postForm("/merge/process", nil)
	gt.Equal(t, resp.StatusCode, http.StatusSeeOther)
	loc := resp.Header.Get("Location")
	gt.True(t, strings.HasPrefix(loc, "/download?"))

	jobs := env.backend.Jobs()
	gt.A(t, jobs).Length(1)
	gt.Equal(t, jobs[0].Tool, "merge")
	gt.Equal(t, strings.Join(jobs[0].Files, ","), "c.pdf,a.pdf")

	// first arrival shows the result
	resp, body = env.get(loc)
	gt.Equal(t, resp.StatusCode, http.StatusOK)
	gt.S(t, body).Contains("PDF files have been merged!")
	gt.S(t, body).Contains("Download merged PDFs")
	gt.S(t, body).NotContains("smaller")

	// replaying the same entry goes back to the tool page
	resp, _ = env.get(loc)
	gt.Equal(t, resp.StatusCode, http.StatusSeeOther)
	gt.Equal(t, resp.Header.Get("Location"), "/merge")
	gt.Equal(t, resp.Header.Get("Cache-Control"), "no-store")

	// the download action streams the artifact
	resp, body = env.postForm("/download/file", url.Values{
		"url":  {env.backend.URL + "/files/out.pdf?sig=abc"},
		"tool": {"merge"},
	})
	gt.Equal(t, resp.StatusCode, http.StatusOK)
	gt.Equal(t, body, artifactBody)
	gt.Equal(t, resp.Header.Get("Content-Disposition"), `attachment; filename=out.pdf`)

	// discard resets and returns to the tool page
	resp, _ = env.postForm("/download/discard", url.Values{"tool": {"merge"}})
	gt.Equal(t, resp.StatusCode, http.StatusSeeOther)
	gt.Equal(t, resp.Header.Get("Location"), "/merge")
	st = env.state("merge")
	gt.Equal(t, st.View, "empty")
}

func TestMountResets(t *testing.T) {
	env := newTestEnv(t)

	env.get("/merge")
	env.upload("/merge/files", pdfFile("a.pdf"), pdfFile("b.pdf"))
	gt.A(t, env.state("merge").Files).Length(2)

	t.Run("switching tool resets the set", func(t *testing.T) {
		resp, body := env.get("/compress")
		gt.Equal(t, resp.StatusCode, http.StatusOK)
		gt.S(t, body).Contains(`data-view="empty"`)
		gt.A(t, env.state("compress").Files).Length(0)
	})

	t.Run("workspace of another tool redirects to its mount", func(t *testing.T) {
		resp, _ := env.get("/split/workspace")
		gt.Equal(t, resp.StatusCode, http.StatusSeeOther)
		gt.Equal(t, resp.Header.Get("Location"), "/split")
	})

	t.Run("state of another tool is a conflict", func(t *testing.T) {
		resp, _ := env.get("/split/state")
		gt.Equal(t, resp.StatusCode, http.StatusConflict)
	})

	t.Run("single-file tool caps the batch", func(t *testing.T) {
		env.upload("/compress/files", pdfFile("x.pdf"), pdfFile("y.pdf"))
		st := env.state("compress")
		gt.A(t, st.Files).Length(1)
		gt.False(t, st.ShowAddMore)
		gt.False(t, st.CanReorder)
	})

	t.Run("reset clears the set", func(t *testing.T) {
		resp, _ := env.postForm("/compress/reset", nil)
		gt.Equal(t, resp.StatusCode, http.StatusSeeOther)
		gt.Equal(t, env.state("compress").View, "empty")
	})
}

func TestCompressResult(t *testing.T) {
	env := newTestEnv(t)

	env.get("/compress")
	env.upload("/compress/files", pdfFile("big.pdf"))

	resp, _ := env.postForm("/compress/process", nil)
	gt.Equal(t, resp.StatusCode, http.StatusSeeOther)

	jobs := env.backend.Jobs()
	gt.A(t, jobs).Length(1)
	gt.Equal(t, jobs[0].Fields["level"], "recommended")

	resp, body := env.get(resp.Header.Get("Location"))
	gt.Equal(t, resp.StatusCode, http.StatusOK)
	gt.S(t, body).Contains("PDF files have been compressed!")
	gt.S(t, body).Contains("60%")
	gt.S(t, body).Contains("976.56 KB → 390.63 KB")
}

func TestProcessFailures(t *testing.T) {
	t.Run("missing password", func(t *testing.T) {
		env := newTestEnv(t)
		env.get("/protect")
		env.upload("/protect/files", pdfFile("a.pdf"))

		resp, body := env.postForm("/protect/process", nil)
		gt.Equal(t, resp.StatusCode, http.StatusUnprocessableEntity)
		gt.S(t, body).Contains("Fill in all required fields.")
		gt.A(t, env.backend.Jobs()).Length(0)
	})

	t.Run("password is not echoed back", func(t *testing.T) {
		env := newTestEnv(t)
		env.backend.SetStatus(http.StatusInternalServerError)
		env.get("/protect")
		env.upload("/protect/files", pdfFile("a.pdf"))

		resp, body := env.postForm("/protect/process", url.Values{"password": {"hunter2-secret"}})
		gt.Equal(t, resp.StatusCode, http.StatusBadGateway)
		gt.S(t, body).Contains("Processing failed.")
		gt.S(t, body).NotContains("hunter2-secret")
	})

	t.Run("empty job", func(t *testing.T) {
		env := newTestEnv(t)
		env.get("/merge")

		resp, _ := env.postForm("/merge/process", nil)
		gt.Equal(t, resp.StatusCode, http.StatusUnprocessableEntity)
	})

	t.Run("process without mount", func(t *testing.T) {
		env := newTestEnv(t)

		resp, _ := env.postForm("/split/process", nil)
		gt.Equal(t, resp.StatusCode, http.StatusSeeOther)
		gt.Equal(t, resp.Header.Get("Location"), "/split")
	})
}

func TestDownloadGuard(t *testing.T) {
	env := newTestEnv(t)

	t.Run("no token falls back to merge", func(t *testing.T) {
		resp, _ := env.get("/download")
		gt.Equal(t, resp.StatusCode, http.StatusSeeOther)
		gt.Equal(t, resp.Header.Get("Location"), "/merge")
	})

	t.Run("unknown token uses tool query", func(t *testing.T) {
		resp, _ := env.get("/download?t=nope&tool=compress")
		gt.Equal(t, resp.StatusCode, http.StatusSeeOther)
		gt.Equal(t, resp.Header.Get("Location"), "/compress")
	})

	t.Run("locator never shown to the session is refused", func(t *testing.T) {
		resp, _ := env.postForm("/download/file", url.Values{
			"url":  {env.backend.URL + "/files/out.pdf?sig=abc"},
			"tool": {"merge"},
		})
		gt.Equal(t, resp.StatusCode, http.StatusNotFound)
	})

	t.Run("arbitrary url is not redirected to", func(t *testing.T) {
		resp, _ := env.postForm("/download/file", url.Values{
			"url":  {"https://evil.example.com/phish.pdf"},
			"tool": {"merge"},
		})
		gt.Equal(t, resp.StatusCode, http.StatusNotFound)
		gt.Equal(t, resp.Header.Get("Location"), "")
	})

	t.Run("invalid locator", func(t *testing.T) {
		resp, _ := env.postForm("/download/file", url.Values{"url": {"javascript:alert(1)"}})
		gt.Equal(t, resp.StatusCode, http.StatusNotFound)
	})

	t.Run("issued foreign locator is navigated directly", func(t *testing.T) {
		env := newTestEnv(t)
		env.backend.SetDownloadURL("https://cdn.example.com/r/out.pdf")

		env.get("/split")
		env.upload("/split/files", pdfFile("a.pdf"))
		resp, _ := env.postForm("/split/process", url.Values{"ranges": {"1-2"}})
		gt.Equal(t, resp.StatusCode, http.StatusSeeOther)

		resp, _ = env.get(resp.Header.Get("Location"))
		gt.Equal(t, resp.StatusCode, http.StatusOK)

		resp, _ = env.postForm("/download/file", url.Values{"url": {"https://cdn.example.com/r/out.pdf"}, "tool": {"split"}})
		gt.Equal(t, resp.StatusCode, http.StatusFound)
		gt.Equal(t, resp.Header.Get("Location"), "https://cdn.example.com/r/out.pdf")
	})

	t.Run("issued missing artifact is navigated directly", func(t *testing.T) {
		env := newTestEnv(t)
		env.backend.SetDownloadURL("/files/gone.pdf")

		env.get("/merge")
		env.upload("/merge/files", pdfFile("a.pdf"))
		resp, _ := env.postForm("/merge/process", nil)
		gt.Equal(t, resp.StatusCode, http.StatusSeeOther)

		resp, _ = env.get(resp.Header.Get("Location"))
		gt.Equal(t, resp.StatusCode, http.StatusOK)

		locator := env.backend.URL + "/files/gone.pdf"
		resp, _ = env.postForm("/download/file", url.Values{"url": {locator}, "tool": {"merge"}})
		gt.Equal(t, resp.StatusCode, http.StatusFound)
		gt.Equal(t, resp.Header.Get("Location"), locator)
	})
}

func TestSessionCookie(t *testing.T) {
	env := newTestEnv(t)

	env.get("/merge")
	env.upload("/merge/files", pdfFile("a.pdf"))
	gt.A(t, env.state("merge").Files).Length(1)

	t.Run("tampered cookie starts a fresh session", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodGet, env.server.URL+"/merge/state", nil)
		gt.NoError(t, err)
		req.AddCookie(&http.Cookie{Name: "pdfdesk_session", Value: "not-a-token"})

		resp, err := http.DefaultTransport.RoundTrip(req)
		gt.NoError(t, err)
		defer resp.Body.Close()

		gt.Equal(t, resp.StatusCode, http.StatusConflict)
		var issued bool
		for _, c := range resp.Cookies() {
			issued = issued || (c.Name == "pdfdesk_session" && c.Value != "not-a-token")
		}
		gt.True(t, issued)
	})

	t.Run("sessions are isolated", func(t *testing.T) {
		other := newTestEnv(t)
		other.server = env.server
		other.get("/merge")
		gt.A(t, other.state("merge").Files).Length(0)
		gt.A(t, env.state("merge").Files).Length(1)
	})
}
