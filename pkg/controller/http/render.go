package http

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"strings"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/pdfdesk/pkg/domain/model"
	"github.com/m-mizutani/pdfdesk/pkg/domain/types"
)

//go:embed templates/*.html
var templateFS embed.FS

// renderer renders the HTML pages
type renderer struct {
	catalog   *model.Catalog
	workspace *template.Template
	result    *template.Template
}

var templateFuncs = template.FuncMap{
	"formatSize": model.FormatSize,
	"add":        func(a, b int) int { return a + b },
	"moveOrder":  moveOrder,
}

func newRenderer(catalog *model.Catalog) (*renderer, error) {
	parse := func(page string) (*template.Template, error) {
		t, err := template.New("layout.html").Funcs(templateFuncs).ParseFS(templateFS, "templates/layout.html", "templates/"+page)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to parse template", goerr.V("page", page))
		}
		return t, nil
	}

	ws, err := parse("workspace.html")
	if err != nil {
		return nil, err
	}
	rs, err := parse("result.html")
	if err != nil {
		return nil, err
	}

	return &renderer{catalog: catalog, workspace: ws, result: rs}, nil
}

type layoutData struct {
	Title   string
	Tools   []*model.ToolSpec
	Current types.Tool
}

type workspacePage struct {
	layoutData
	State     *model.WorkspaceState
	Remaining int
	Values    map[string]string
	Error     string
}

type resultPage struct {
	layoutData
	View *model.ResultView
}

func (x *renderer) layout(title string, current types.Tool) layoutData {
	return layoutData{Title: title, Tools: x.catalog.Specs(), Current: current}
}

// Workspace renders the tool page
func (x *renderer) Workspace(w http.ResponseWriter, r *http.Request, status int, state *model.WorkspaceState, values map[string]string, errMsg string) {
	page := &workspacePage{
		layoutData: x.layout(state.Tool.Title, state.Tool.Name),
		State:      state,
		Remaining:  state.Tool.Remaining(len(state.Files)),
		Values:     values,
		Error:      errMsg,
	}
	x.execute(w, r, x.workspace, status, page)
}

// Result renders the download page
func (x *renderer) Result(w http.ResponseWriter, r *http.Request, view *model.ResultView) {
	page := &resultPage{
		layoutData: x.layout(view.Spec.ResultTitle, view.Spec.Name),
		View:       view,
	}
	x.execute(w, r, x.result, http.StatusOK, page)
}

func (x *renderer) execute(w http.ResponseWriter, r *http.Request, t *template.Template, status int, data any) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		ctxlog.From(r.Context()).Error("Failed to render page", "error", err)
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		ctxlog.From(r.Context()).Warn("Failed to write page", "error", err)
	}
}

// moveOrder returns the comma separated file ids after moving files[i] by delta.
// An out-of-range move returns an empty string.
func moveOrder(files []model.File, i, delta int) string {
	j := i + delta
	if i < 0 || i >= len(files) || j < 0 || j >= len(files) {
		return ""
	}

	ids := make([]string, len(files))
	for k, f := range files {
		ids[k] = f.ID.String()
	}
	ids[i], ids[j] = ids[j], ids[i]
	return strings.Join(ids, ",")
}
