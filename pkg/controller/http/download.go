package http

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/pdfdesk/pkg/domain/interfaces"
	"github.com/m-mizutani/pdfdesk/pkg/domain/types"
	"github.com/m-mizutani/pdfdesk/pkg/usecase"
	"github.com/m-mizutani/pdfdesk/pkg/utils/errutil"
)

type downloadHandler struct {
	uc    interfaces.ResultUseCase
	pages *renderer
}

// Arrive guards the result page. Arrivals without a live transition token
// are sent back to the tool page.
func (h *downloadHandler) Arrive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	view, err := h.uc.Arrive(ctx, sessionFrom(ctx), types.TransitionToken(q.Get("t")), types.Tool(q.Get("tool")))
	if err != nil {
		errutil.Handle(ctx, "failed to resolve result page", err)
		writeError(w, r, goerr.New("internal error"), http.StatusInternalServerError)
		return
	}

	if view.RedirectTo != "" {
		redirect(w, r, view.RedirectTo)
		return
	}
	h.pages.Result(w, r, view)
}

// Download streams the artifact as an attachment, or sends the browser to the
// locator when the artifact cannot be fetched here
func (h *downloadHandler) Download(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseForm(); err != nil {
		writeError(w, r, goerr.Wrap(err, "invalid form"), http.StatusBadRequest)
		return
	}
	locator := r.PostForm.Get("url")
	tool := types.ToolOrDefault(r.PostForm.Get("tool"))

	outcome, err := h.uc.Download(ctx, sessionFrom(ctx), tool, locator)
	if err != nil {
		if errors.Is(err, usecase.ErrUnknownResult) {
			writeError(w, r, err, http.StatusNotFound)
			return
		}
		if errors.Is(err, usecase.ErrInvalidLocator) {
			writeError(w, r, err, http.StatusBadRequest)
			return
		}
		errutil.Handle(ctx, "failed to download artifact", err)
		writeError(w, r, goerr.New("internal error"), http.StatusInternalServerError)
		return
	}

	if outcome.Artifact == nil {
		http.Redirect(w, r, outcome.FallbackURL, http.StatusFound)
		return
	}

	a := outcome.Artifact
	defer func() {
		if err := a.Body.Close(); err != nil {
			ctxlog.From(ctx).Warn("Failed to close artifact", "error", err)
		}
	}()

	contentType := a.ContentType
	if contentType == "" {
		contentType = "application/pdf"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": a.Filename}))
	w.Header().Set("Cache-Control", "no-store")
	if a.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(a.Size, 10))
	}
	w.WriteHeader(http.StatusOK)

	n, err := io.Copy(w, a.Body)
	if err != nil {
		ctxlog.From(ctx).Warn("Artifact stream interrupted", "written", n, "error", err)
		return
	}
	ctxlog.From(ctx).Info("Artifact downloaded", "tool", tool, "filename", a.Filename, "size", n)
}

// Discard drops the session's files and returns to the tool page
func (h *downloadHandler) Discard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseForm(); err != nil {
		writeError(w, r, goerr.Wrap(err, "invalid form"), http.StatusBadRequest)
		return
	}
	tool := types.ToolOrDefault(r.PostForm.Get("tool"))

	if err := h.uc.Discard(ctx, sessionFrom(ctx), tool); err != nil {
		errutil.Handle(ctx, "failed to discard files", err)
		writeError(w, r, goerr.New("internal error"), http.StatusInternalServerError)
		return
	}
	redirect(w, r, tool.Path())
}
