package model

// View is the state of the workspace page
type View string

const (
	// ViewEmpty shows the title, description and the upload surface only
	ViewEmpty View = "empty"
	// ViewActive shows the arrangement view, the sidebar and the add-more control
	ViewActive View = "active"
)

// ViewOf returns the view that corresponds to the number of files in the set
func ViewOf(fileCount int) View {
	if fileCount > 0 {
		return ViewActive
	}
	return ViewEmpty
}

// WorkspaceState is a snapshot of a workspace for rendering
type WorkspaceState struct {
	Tool        ToolSpec `json:"tool"`
	View        View     `json:"view"`
	Files       []File   `json:"files"`
	TotalSize   int64    `json:"total_size"`
	CanReorder  bool     `json:"can_reorder"`
	ShowAddMore bool     `json:"show_add_more"`
}
