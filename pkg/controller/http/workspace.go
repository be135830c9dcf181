package http

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/pdfdesk/pkg/domain/interfaces"
	"github.com/m-mizutani/pdfdesk/pkg/domain/model"
	"github.com/m-mizutani/pdfdesk/pkg/domain/types"
	"github.com/m-mizutani/pdfdesk/pkg/usecase"
	"github.com/m-mizutani/pdfdesk/pkg/utils/errutil"
)

// multipart parts above this size are spooled to disk
const uploadMemory = 32 << 20

type workspaceHandler struct {
	uc        interfaces.WorkspaceUseCase
	pages     *renderer
	maxUpload int64
}

func workspacePath(tool types.Tool) string {
	return tool.Path() + "/workspace"
}

// Mount enters the tool page with an empty file set
func (h *workspaceHandler) Mount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	state, err := h.uc.Mount(ctx, sessionFrom(ctx), toolFrom(ctx))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.pages.Workspace(w, r, http.StatusOK, state, nil, "")
}

// Workspace renders the current view without resetting the file set
func (h *workspaceHandler) Workspace(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	state, err := h.uc.State(ctx, sessionFrom(ctx), toolFrom(ctx))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.pages.Workspace(w, r, http.StatusOK, state, nil, "")
}

// State returns the view state as JSON
func (h *workspaceHandler) State(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	state, err := h.uc.State(ctx, sessionFrom(ctx), toolFrom(ctx))
	if err != nil {
		if errors.Is(err, usecase.ErrNotMounted) || errors.Is(err, usecase.ErrToolMismatch) {
			writeError(w, r, err, http.StatusConflict)
			return
		}
		h.fail(w, r, err)
		return
	}
	writeJSON(w, r, state)
}

// Upload receives the picker or drop selection
func (h *workspaceHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tool := toolFrom(ctx)

	if h.maxUpload > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	}
	if err := r.ParseMultipartForm(uploadMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, r, goerr.New("upload is too large", goerr.V("limit", maxErr.Limit)), http.StatusRequestEntityTooLarge)
			return
		}
		writeError(w, r, goerr.Wrap(err, "invalid multipart form"), http.StatusBadRequest)
		return
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			ctxlog.From(ctx).Warn("Failed to remove multipart temp files", "error", err)
		}
	}()

	uploads := toUploads(r.MultipartForm.File["files"])
	if _, err := h.uc.Upload(ctx, sessionFrom(ctx), tool, uploads); err != nil {
		h.fail(w, r, err)
		return
	}

	redirect(w, r, workspacePath(tool))
}

// Remove deletes one file from the arrangement
func (h *workspaceHandler) Remove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tool := toolFrom(ctx)

	id := types.FileID(chi.URLParam(r, "fileID"))
	if err := h.uc.RemoveFile(ctx, sessionFrom(ctx), tool, id); err != nil {
		h.fail(w, r, err)
		return
	}
	redirect(w, r, workspacePath(tool))
}

// Reorder applies the order form field, a comma separated list of file ids
func (h *workspaceHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tool := toolFrom(ctx)

	if err := r.ParseForm(); err != nil {
		writeError(w, r, goerr.Wrap(err, "invalid form"), http.StatusBadRequest)
		return
	}

	var ids []types.FileID
	for _, s := range strings.Split(r.PostForm.Get("order"), ",") {
		if s = strings.TrimSpace(s); s != "" {
			ids = append(ids, types.FileID(s))
		}
	}

	if err := h.uc.Reorder(ctx, sessionFrom(ctx), tool, ids); err != nil {
		h.fail(w, r, err)
		return
	}
	redirect(w, r, workspacePath(tool))
}

// Reset empties the file set and returns to the upload view
func (h *workspaceHandler) Reset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tool := toolFrom(ctx)

	if err := h.uc.Reset(ctx, sessionFrom(ctx), tool); err != nil {
		h.fail(w, r, err)
		return
	}
	redirect(w, r, workspacePath(tool))
}

// Process submits the job and moves on to the result page
func (h *workspaceHandler) Process(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sid := sessionFrom(ctx)
	tool := toolFrom(ctx)

	if err := r.ParseForm(); err != nil {
		writeError(w, r, goerr.Wrap(err, "invalid form"), http.StatusBadRequest)
		return
	}
	values := make(map[string]string, len(r.PostForm))
	for k := range r.PostForm {
		values[k] = r.PostForm.Get(k)
	}

	token, err := h.uc.Submit(ctx, sid, tool, values)
	if err != nil {
		status, msg := submitFailure(err)
		if status == 0 {
			h.fail(w, r, err)
			return
		}

		ctxlog.From(ctx).Warn("Job was not processed", "tool", tool, "error", err)
		state, stateErr := h.uc.State(ctx, sid, tool)
		if stateErr != nil {
			h.fail(w, r, stateErr)
			return
		}
		h.pages.Workspace(w, r, status, state, publicValues(state.Tool, values), msg)
		return
	}

	q := url.Values{}
	q.Set("t", token.String())
	q.Set("tool", tool.String())
	redirect(w, r, "/download?"+q.Encode())
}

// submitFailure maps a submit error to a status and a message shown in the
// page. Status 0 means the error is unexpected.
func submitFailure(err error) (int, string) {
	switch {
	case errors.Is(err, usecase.ErrEmptyJob):
		return http.StatusUnprocessableEntity, "Add at least one PDF file."
	case errors.Is(err, usecase.ErrMissingParam):
		return http.StatusUnprocessableEntity, "Fill in all required fields."
	case errors.Is(err, usecase.ErrInvalidParam):
		return http.StatusUnprocessableEntity, "Some of the values are not valid."
	case errors.Is(err, usecase.ErrBackend):
		return http.StatusBadGateway, "Processing failed. Please try again."
	}
	return 0, ""
}

// fail handles errors common to every workspace action
func (h *workspaceHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	tool := toolFrom(ctx)

	switch {
	case errors.Is(err, usecase.ErrNotMounted), errors.Is(err, usecase.ErrToolMismatch):
		ctxlog.From(ctx).Debug("Workspace is not mounted for tool, remounting", "tool", tool, "error", err)
		redirect(w, r, tool.Path())

	case errors.Is(err, usecase.ErrFileNotFound),
		errors.Is(err, usecase.ErrInvalidReorder),
		errors.Is(err, usecase.ErrReorderDisabled):
		// stale form, show the current arrangement
		ctxlog.From(ctx).Debug("Ignoring stale workspace action", "tool", tool, "error", err)
		redirect(w, r, workspacePath(tool))

	case errors.Is(err, types.ErrUnknownTool):
		http.NotFound(w, r)

	default:
		errutil.Handle(ctx, "workspace action failed", err)
		writeError(w, r, goerr.New("internal error"), http.StatusInternalServerError)
	}
}

func toUploads(headers []*multipart.FileHeader) []model.Upload {
	uploads := make([]model.Upload, 0, len(headers))
	for _, fh := range headers {
		uploads = append(uploads, model.Upload{
			Name:        fh.Filename,
			Size:        fh.Size,
			ContentType: fh.Header.Get("Content-Type"),
			Open: func() (io.ReadCloser, error) {
				return fh.Open()
			},
		})
	}
	return uploads
}

// publicValues drops secret params so they are not echoed into the page
func publicValues(spec model.ToolSpec, values map[string]string) map[string]string {
	out := make(map[string]string, len(values))
	for _, p := range spec.Params {
		if p.Secret || p.Kind == model.ParamPassword {
			continue
		}
		if v, ok := values[p.Name]; ok {
			out[p.Name] = v
		}
	}
	return out
}
