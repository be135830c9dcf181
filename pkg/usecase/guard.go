package usecase

import (
	"context"
	"net/url"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/pdfdesk/pkg/domain/interfaces"
	"github.com/m-mizutani/pdfdesk/pkg/domain/model"
	"github.com/m-mizutani/pdfdesk/pkg/domain/types"
)

var ErrInvalidLocator = goerr.New("invalid artifact locator")

// continueTools are offered on the result page as next steps
var continueTools = []types.Tool{types.ToolCompress, types.ToolSplit, types.ToolMerge}

// ResultGuard validates arrivals at the download page. The page is valid only
// as the direct forward consequence of a job submission.
type ResultGuard struct {
	catalog      *model.Catalog
	backend      interfaces.Backend
	probeTimeout time.Duration
}

// NewResultGuard creates a guard using backend for size probes and downloads
func NewResultGuard(catalog *model.Catalog, backend interfaces.Backend, probeTimeout time.Duration) *ResultGuard {
	return &ResultGuard{
		catalog:      catalog,
		backend:      backend,
		probeTimeout: probeTimeout,
	}
}

// Arrive decides what the download page shows. An arrival without a result
// reference, or one reached by history traversal, is redirected to the tool
// page; the redirect replaces the current history entry.
func (g *ResultGuard) Arrive(ctx context.Context, a *model.Arrival) *model.ResultView {
	logger := ctxlog.From(ctx)
	tool := a.RedirectTool()

	if a.Reference == nil {
		logger.Debug("Result page reached without result reference", "tool", tool)
		return &model.ResultView{RedirectTo: tool.Path()}
	}
	if a.Navigation == model.NavigationPop {
		logger.Debug("Result page reached by history traversal", "tool", tool)
		return &model.ResultView{RedirectTo: tool.Path()}
	}

	spec, err := g.catalog.Lookup(tool)
	if err != nil {
		return &model.ResultView{RedirectTo: types.DefaultTool.Path()}
	}

	ref := *a.Reference
	if ref.Tool == types.ToolCompress && ref.CompressedSize == 0 {
		ref.CompressedSize = g.probe(ctx, ref.DownloadURL)
	}

	view := &model.ResultView{
		Spec:      spec,
		Reference: &ref,
	}
	if ref.Tool == types.ToolCompress {
		view.Summary = model.CompressionSummary{
			OriginalSize:   ref.OriginalSize,
			CompressedSize: ref.CompressedSize,
		}
	}
	for _, t := range continueTools {
		if s, err := g.catalog.Lookup(t); err == nil {
			view.Continue = append(view.Continue, s)
		}
	}

	return view
}

// probe asks the backend for the artifact size. Failures leave the size unknown.
func (g *ResultGuard) probe(ctx context.Context, locator string) int64 {
	logger := ctxlog.From(ctx)

	if !g.backend.Owns(locator) {
		return 0
	}

	probeCtx, cancel := context.WithTimeout(ctx, g.probeTimeout)
	defer cancel()

	size, err := g.backend.Probe(probeCtx, locator)
	if ctx.Err() != nil {
		// page is gone, result is discarded
		return 0
	}
	if err != nil {
		logger.Debug("Artifact size probe failed", "locator", locator, "error", err)
		return 0
	}
	return size
}

// Download fetches the artifact for streaming to the browser. When the fetch
// fails the outcome carries the locator for a direct navigation instead.
func (g *ResultGuard) Download(ctx context.Context, tool types.Tool, locator string) (*model.DownloadOutcome, error) {
	logger := ctxlog.From(ctx)

	if err := validateLocator(locator); err != nil {
		return nil, err
	}

	spec, err := g.catalog.Lookup(types.ToolOrDefault(string(tool)))
	if err != nil {
		return nil, err
	}

	if !g.backend.Owns(locator) {
		logger.Debug("Locator is outside of backend, navigating directly", "locator", locator)
		return &model.DownloadOutcome{FallbackURL: locator}, nil
	}

	artifact, err := g.backend.Fetch(ctx, locator)
	if err != nil {
		logger.Warn("Artifact fetch failed, navigating directly", "locator", locator, "error", err)
		return &model.DownloadOutcome{FallbackURL: locator}, nil
	}

	artifact.Filename = model.DownloadFilename(locator, spec.Filename())
	return &model.DownloadOutcome{Artifact: artifact}, nil
}

func validateLocator(locator string) error {
	u, err := url.Parse(locator)
	if err != nil {
		return goerr.Wrap(ErrInvalidLocator, "failed to parse locator", goerr.V("locator", locator), goerr.V("cause", err.Error()))
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return goerr.Wrap(ErrInvalidLocator, "locator must be an absolute http(s) URL", goerr.V("locator", locator))
	}
	return nil
}
