package usecase

import (
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/pdfdesk/pkg/domain/model"
	"github.com/m-mizutani/pdfdesk/pkg/domain/types"
)

var (
	ErrNotMounted      = goerr.New("no tool page is mounted")
	ErrToolMismatch    = goerr.New("another tool page is mounted")
	ErrReorderDisabled = goerr.New("reordering is not available for this workspace")
)

// Workspace is the two-state controller of a tool page. The view is Empty
// while the file set is empty and Active otherwise; it changes only through
// mutations of the file set.
type Workspace struct {
	files   *FileSet
	catalog *model.Catalog

	mu        sync.Mutex
	tool      types.Tool
	view      model.View
	listeners []func(from, to model.View)
	stop      func()
}

// NewWorkspace creates a workspace controller over files
func NewWorkspace(files *FileSet, catalog *model.Catalog) *Workspace {
	w := &Workspace{
		files:   files,
		catalog: catalog,
		view:    model.ViewOf(files.Len()),
	}
	w.stop = files.Subscribe(w.onFilesChanged)
	return w
}

// Close detaches the controller from the file set
func (w *Workspace) Close() {
	w.stop()
}

// Mount enters the page of tool. The file set is reset unconditionally so a
// freshly mounted page always starts in the Empty view. The discarded files
// are returned.
func (w *Workspace) Mount(tool types.Tool) ([]model.File, error) {
	if _, err := w.catalog.Lookup(tool); err != nil {
		return nil, err
	}

	w.mu.Lock()
	w.tool = tool
	w.mu.Unlock()

	return w.files.Reset(), nil
}

// Mounted returns the tool of the mounted page, or empty when none is
func (w *Workspace) Mounted() types.Tool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.tool
}

// Require checks tool is the mounted page
func (w *Workspace) Require(tool types.Tool) error {
	mounted := w.Mounted()
	if mounted == "" {
		return goerr.Wrap(ErrNotMounted, "workspace is not mounted", goerr.V("tool", tool))
	}
	if mounted != tool {
		return goerr.Wrap(ErrToolMismatch, "workspace is mounted for another tool", goerr.V("tool", tool), goerr.V("mounted", mounted))
	}
	return nil
}

// View returns the current view
func (w *Workspace) View() model.View {
	return model.ViewOf(w.files.Len())
}

// OnTransition registers fn to be called on every Empty/Active change
func (w *Workspace) OnTransition(fn func(from, to model.View)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.listeners = append(w.listeners, fn)
}

// onFilesChanged reads the committed length instead of the snapshot, since
// snapshots of concurrent mutations may arrive out of order
func (w *Workspace) onFilesChanged([]model.File) {
	w.mu.Lock()
	prev := w.view
	next := model.ViewOf(w.files.Len())
	w.view = next
	listeners := append([]func(from, to model.View){}, w.listeners...)
	w.mu.Unlock()

	if prev == next {
		return
	}
	for _, fn := range listeners {
		fn(prev, next)
	}
}

// Spec returns the spec of the mounted tool
func (w *Workspace) Spec() (*model.ToolSpec, error) {
	tool := w.Mounted()
	if tool == "" {
		return nil, goerr.Wrap(ErrNotMounted, "workspace is not mounted")
	}
	return w.catalog.Lookup(tool)
}

// CanReorder reports whether drag-reordering is offered: always for merge,
// otherwise only with more than one file
func (w *Workspace) CanReorder() bool {
	return w.Mounted() == types.ToolMerge || w.files.Len() > 1
}

// ShowAddMore reports whether the add-more control is offered
func (w *Workspace) ShowAddMore() bool {
	spec, err := w.Spec()
	if err != nil {
		return false
	}
	return spec.Remaining(w.files.Len()) != 0
}

// Reorder rearranges files when reordering is offered
func (w *Workspace) Reorder(ids []types.FileID) error {
	if !w.CanReorder() {
		return goerr.Wrap(ErrReorderDisabled, "cannot reorder", goerr.V("tool", w.Mounted()))
	}
	return w.files.Reorder(ids)
}

// State returns a rendering snapshot of the mounted page
func (w *Workspace) State() (*model.WorkspaceState, error) {
	spec, err := w.Spec()
	if err != nil {
		return nil, err
	}

	files := w.files.Files()
	return &model.WorkspaceState{
		Tool:        *spec,
		View:        model.ViewOf(len(files)),
		Files:       files,
		TotalSize:   model.TotalSize(files),
		CanReorder:  spec.Name == types.ToolMerge || len(files) > 1,
		ShowAddMore: spec.Remaining(len(files)) != 0,
	}, nil
}
