package interfaces

//go:generate moq -out mocks/usecase_mock.go -pkg mocks . WorkspaceUseCase ResultUseCase

import (
	"context"

	"github.com/m-mizutani/pdfdesk/pkg/domain/model"
	"github.com/m-mizutani/pdfdesk/pkg/domain/types"
)

// WorkspaceUseCase drives the tool pages of a browser session
type WorkspaceUseCase interface {
	// Mount enters a tool page; the session's file set is always reset
	Mount(ctx context.Context, sid types.SessionID, tool types.Tool) (*model.WorkspaceState, error)

	// State returns the current view of a mounted tool page
	State(ctx context.Context, sid types.SessionID, tool types.Tool) (*model.WorkspaceState, error)

	// Upload filters and appends files; returns the number of accepted files
	Upload(ctx context.Context, sid types.SessionID, tool types.Tool, uploads []model.Upload) (int, error)

	RemoveFile(ctx context.Context, sid types.SessionID, tool types.Tool, id types.FileID) error
	Reorder(ctx context.Context, sid types.SessionID, tool types.Tool, ids []types.FileID) error
	Reset(ctx context.Context, sid types.SessionID, tool types.Tool) error

	// Submit sends the job to the backend and returns the transition token
	// that carries the result to the download page
	Submit(ctx context.Context, sid types.SessionID, tool types.Tool, params map[string]string) (types.TransitionToken, error)

	// Sessions returns the number of live sessions
	Sessions() int
}

// ResultUseCase guards the download page
type ResultUseCase interface {
	// Arrive redeems token; an accepted result is remembered by the session
	Arrive(ctx context.Context, sid types.SessionID, token types.TransitionToken, tool types.Tool) (*model.ResultView, error)
	// Download serves only locators the session was shown by Arrive
	Download(ctx context.Context, sid types.SessionID, tool types.Tool, locator string) (*model.DownloadOutcome, error)
	Discard(ctx context.Context, sid types.SessionID, tool types.Tool) error
}
