package usecase

import (
	"context"
	"io"
	"slices"
	"strconv"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/pdfdesk/pkg/domain/interfaces"
	"github.com/m-mizutani/pdfdesk/pkg/domain/model"
	"github.com/m-mizutani/pdfdesk/pkg/domain/types"
	"github.com/m-mizutani/pdfdesk/pkg/utils/async"
)

var (
	ErrEmptyJob     = goerr.New("job has no files")
	ErrMissingParam = goerr.New("required parameter is missing")
	ErrInvalidParam = goerr.New("invalid parameter value")
	ErrBackend      = goerr.New("processing backend failed")
)

// ErrUnknownResult is returned for a download of a locator that was never
// shown to the session on the result page
var ErrUnknownResult = goerr.New("result was not issued to this session")

// UseCase composes the per-session client state with the backend and the
// transition store. It is created once at the application root.
type UseCase struct {
	catalog     *model.Catalog
	blobs       interfaces.BlobStore
	backend     interfaces.Backend
	transitions interfaces.TransitionStore
	publisher   interfaces.EventPublisher
	notifier    interfaces.Notifier

	sessionTTL    time.Duration
	transitionTTL time.Duration
	probeTimeout  time.Duration
	now           func() time.Time

	sessions *Sessions
	guard    *ResultGuard
}

// Option configures UseCase
type Option func(*UseCase)

// WithEventPublisher publishes job events to p
func WithEventPublisher(p interfaces.EventPublisher) Option {
	return func(uc *UseCase) {
		uc.publisher = p
	}
}

// WithNotifier notifies n about failed jobs
func WithNotifier(n interfaces.Notifier) Option {
	return func(uc *UseCase) {
		uc.notifier = n
	}
}

// WithSessionTTL sets how long an idle session is kept
func WithSessionTTL(ttl time.Duration) Option {
	return func(uc *UseCase) {
		uc.sessionTTL = ttl
	}
}

// WithTransitionTTL sets how long an unread transition token stays valid
func WithTransitionTTL(ttl time.Duration) Option {
	return func(uc *UseCase) {
		uc.transitionTTL = ttl
	}
}

// WithProbeTimeout bounds the artifact size probe
func WithProbeTimeout(d time.Duration) Option {
	return func(uc *UseCase) {
		uc.probeTimeout = d
	}
}

// New creates the use case
func New(
	catalog *model.Catalog,
	blobs interfaces.BlobStore,
	backend interfaces.Backend,
	transitions interfaces.TransitionStore,
	opts ...Option,
) *UseCase {
	uc := &UseCase{
		catalog:       catalog,
		blobs:         blobs,
		backend:       backend,
		transitions:   transitions,
		sessionTTL:    2 * time.Hour,
		transitionTTL: 10 * time.Minute,
		probeTimeout:  5 * time.Second,
		now:           time.Now,
	}

	for _, opt := range opts {
		opt(uc)
	}

	uc.sessions = NewSessions(catalog, blobs, uc.sessionTTL)
	uc.guard = NewResultGuard(catalog, backend, uc.probeTimeout)
	return uc
}

// Catalog returns the tool catalog
func (uc *UseCase) Catalog() *model.Catalog {
	return uc.catalog
}

// SessionStore returns the session registry
func (uc *UseCase) SessionStore() *Sessions {
	return uc.sessions
}

// Sessions returns the number of live sessions
func (uc *UseCase) Sessions() int {
	return uc.sessions.Len()
}

// Mount enters the tool page and resets the session's file set
func (uc *UseCase) Mount(ctx context.Context, sid types.SessionID, tool types.Tool) (*model.WorkspaceState, error) {
	sess := uc.sessions.Get(sid)

	discarded, err := sess.Workspace.Mount(tool)
	if err != nil {
		return nil, err
	}
	uc.release(ctx, discarded)

	ctxlog.From(ctx).Debug("Mounted workspace", "session_id", sid, "tool", tool, "discarded", len(discarded))
	return sess.Workspace.State()
}

// State returns the current view of the mounted tool page
func (uc *UseCase) State(ctx context.Context, sid types.SessionID, tool types.Tool) (*model.WorkspaceState, error) {
	sess, err := uc.mounted(sid, tool)
	if err != nil {
		return nil, err
	}
	return sess.Workspace.State()
}

// Upload hands a batch to the session's upload surface
func (uc *UseCase) Upload(ctx context.Context, sid types.SessionID, tool types.Tool, uploads []model.Upload) (int, error) {
	sess, err := uc.mounted(sid, tool)
	if err != nil {
		return 0, err
	}

	spec, err := sess.Workspace.Spec()
	if err != nil {
		return 0, err
	}

	n, err := sess.Upload.Accept(ctx, spec, uploads)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to accept uploads", goerr.V("session_id", sid), goerr.V("tool", tool))
	}

	ctxlog.From(ctx).Info("Files uploaded",
		"session_id", sid,
		"tool", tool,
		"received", len(uploads),
		"accepted", n,
		"total", sess.Files.Len(),
	)
	return n, nil
}

// RemoveFile deletes one file from the set
func (uc *UseCase) RemoveFile(ctx context.Context, sid types.SessionID, tool types.Tool, id types.FileID) error {
	sess, err := uc.mounted(sid, tool)
	if err != nil {
		return err
	}

	removed, err := sess.Files.Remove(id)
	if err != nil {
		return err
	}
	uc.release(ctx, []model.File{*removed})
	return nil
}

// Reorder rearranges the set into the order of ids
func (uc *UseCase) Reorder(ctx context.Context, sid types.SessionID, tool types.Tool, ids []types.FileID) error {
	sess, err := uc.mounted(sid, tool)
	if err != nil {
		return err
	}
	return sess.Workspace.Reorder(ids)
}

// Reset empties the set of the mounted tool page
func (uc *UseCase) Reset(ctx context.Context, sid types.SessionID, tool types.Tool) error {
	sess, err := uc.mounted(sid, tool)
	if err != nil {
		return err
	}
	uc.release(ctx, sess.Files.Reset())
	return nil
}

// Submit sends the job to the backend. The result reference is handed out
// only through the returned single-use transition token.
func (uc *UseCase) Submit(ctx context.Context, sid types.SessionID, tool types.Tool, raw map[string]string) (types.TransitionToken, error) {
	logger := ctxlog.From(ctx)

	sess, err := uc.mounted(sid, tool)
	if err != nil {
		return "", err
	}
	spec, err := sess.Workspace.Spec()
	if err != nil {
		return "", err
	}

	files := sess.Files.Files()
	if len(files) == 0 {
		return "", goerr.Wrap(ErrEmptyJob, "cannot submit", goerr.V("tool", tool))
	}

	params, err := BuildParams(spec, raw)
	if err != nil {
		return "", err
	}

	req := &model.JobRequest{Tool: tool, Params: params}
	var closers []io.Closer
	defer func() {
		for _, c := range closers {
			_ = c.Close()
		}
	}()
	for _, f := range files {
		rc, err := uc.blobs.Open(ctx, f.BlobID)
		if err != nil {
			return "", goerr.Wrap(err, "failed to open blob", goerr.V("file_id", f.ID), goerr.V("blob_id", f.BlobID))
		}
		closers = append(closers, rc)
		req.Files = append(req.Files, model.JobFile{Name: f.Name, Size: f.Size, Content: rc})
	}

	totalSize := model.TotalSize(files)
	logger.Info("Submitting job",
		"session_id", sid,
		"tool", tool,
		"file_count", len(files),
		"total_size", totalSize,
		"params", params,
	)

	event := &model.JobEvent{
		SessionID: sid,
		Tool:      tool,
		FileCount: len(files),
		TotalSize: totalSize,
	}

	resp, err := uc.backend.Submit(ctx, req)
	if err != nil {
		event.Type = model.JobEventFailed
		event.Error = err.Error()
		event.OccurredAt = uc.now()
		uc.emit(ctx, event, true)
		return "", goerr.Wrap(ErrBackend, "job submission failed", goerr.V("tool", tool), goerr.V("cause", err.Error()))
	}

	ref := model.ResultReference{
		DownloadURL: resp.DownloadURL,
		Tool:        tool,
	}
	if tool == types.ToolCompress {
		ref.OriginalSize = resp.OriginalSize
		if ref.OriginalSize == 0 {
			ref.OriginalSize = totalSize
		}
		ref.CompressedSize = resp.CompressedSize
	}

	tr := &model.Transition{
		Token:     types.NewTransitionToken(),
		Reference: ref,
		ExpiresAt: uc.now().Add(uc.transitionTTL),
	}
	if err := uc.transitions.Issue(ctx, tr); err != nil {
		return "", goerr.Wrap(err, "failed to issue transition", goerr.V("tool", tool))
	}

	event.Type = model.JobEventCompleted
	event.ResultSize = ref.CompressedSize
	event.OccurredAt = uc.now()
	uc.emit(ctx, event, false)

	logger.Info("Job completed", "session_id", sid, "tool", tool, "download_url", ref.DownloadURL)
	return tr.Token, nil
}

// Arrive redeems the transition token and validates the arrival. An accepted
// reference is kept in the session for the download action.
func (uc *UseCase) Arrive(ctx context.Context, sid types.SessionID, token types.TransitionToken, tool types.Tool) (*model.ResultView, error) {
	var redemption *model.Redemption
	if token != "" {
		r, err := uc.transitions.Redeem(ctx, token)
		if err != nil {
			// an unreadable token is the same as no token
			ctxlog.From(ctx).Warn("Failed to redeem transition token", "error", err)
		} else {
			redemption = r
		}
	}

	view := uc.guard.Arrive(ctx, redemption.Arrival(tool))
	if view.Reference != nil {
		uc.sessions.Get(sid).rememberResult(*view.Reference)
	}
	return view, nil
}

// Download fetches the artifact or falls back to direct navigation. Only
// locators shown to the session on the result page are served.
func (uc *UseCase) Download(ctx context.Context, sid types.SessionID, tool types.Tool, locator string) (*model.DownloadOutcome, error) {
	ref, ok := uc.sessions.Get(sid).issuedResult(locator)
	if !ok {
		return nil, goerr.Wrap(ErrUnknownResult, "refusing download", goerr.V("session_id", sid), goerr.V("tool", tool), goerr.V("locator", locator))
	}
	return uc.guard.Download(ctx, ref.Tool, ref.DownloadURL)
}

// Discard drops the session's files and results from the result page
func (uc *UseCase) Discard(ctx context.Context, sid types.SessionID, tool types.Tool) error {
	sess := uc.sessions.Get(sid)
	sess.forgetResults()
	uc.release(ctx, sess.Files.Reset())
	return nil
}

func (uc *UseCase) mounted(sid types.SessionID, tool types.Tool) (*Session, error) {
	sess := uc.sessions.Get(sid)
	if err := sess.Workspace.Require(tool); err != nil {
		return nil, err
	}
	return sess, nil
}

func (uc *UseCase) release(ctx context.Context, files []model.File) {
	if len(files) == 0 {
		return
	}
	files = slices.Clone(files)
	async.Dispatch(ctx, func(ctx context.Context) error {
		releaseBlobs(ctx, uc.blobs, files)
		return nil
	})
}

func (uc *UseCase) emit(ctx context.Context, event *model.JobEvent, notify bool) {
	if uc.publisher != nil {
		async.Dispatch(ctx, func(ctx context.Context) error {
			return uc.publisher.Publish(ctx, event)
		})
	}
	if notify && uc.notifier != nil {
		async.Dispatch(ctx, func(ctx context.Context) error {
			return uc.notifier.Notify(ctx, event)
		})
	}
}

// BuildParams keeps the parameters declared by spec, applies defaults and
// validates required and select values
func BuildParams(spec *model.ToolSpec, raw map[string]string) (model.JobParams, error) {
	params := model.JobParams{
		Values:  map[string]string{},
		Secrets: map[string]string{},
	}

	for _, p := range spec.Params {
		v, ok := raw[p.Name]
		if !ok || v == "" {
			v = p.Default
		}
		if v == "" {
			if p.Required {
				return params, goerr.Wrap(ErrMissingParam, "missing parameter", goerr.V("tool", spec.Name), goerr.V("param", p.Name))
			}
			continue
		}
		switch p.Kind {
		case model.ParamSelect:
			if !slices.Contains(p.Options, v) {
				return params, goerr.Wrap(ErrInvalidParam, "value is not an option", goerr.V("tool", spec.Name), goerr.V("param", p.Name), goerr.V("value", v))
			}
		case model.ParamNumber:
			if _, err := strconv.ParseFloat(v, 64); err != nil {
				return params, goerr.Wrap(ErrInvalidParam, "value is not a number", goerr.V("tool", spec.Name), goerr.V("param", p.Name), goerr.V("value", v))
			}
		}

		if p.Secret {
			params.Secrets[p.Name] = v
		} else {
			params.Values[p.Name] = v
		}
	}

	return params, nil
}
