package types

import "github.com/m-mizutani/goerr/v2"

// Tool identifies a PDF operation offered by the service
type Tool string

const (
	ToolMerge    Tool = "merge"
	ToolSplit    Tool = "split"
	ToolCompress Tool = "compress"
	ToolProtect  Tool = "protect"
	ToolUnlock   Tool = "unlock"
)

// DefaultTool is used when a navigation carries no tool at all
const DefaultTool = ToolMerge

// ErrUnknownTool is returned when a tool name is not one of the supported operations
var ErrUnknownTool = goerr.New("unknown tool")

// AllTools returns the supported tools in display order
func AllTools() []Tool {
	return []Tool{ToolMerge, ToolSplit, ToolCompress, ToolProtect, ToolUnlock}
}

// Validate checks that the tool is a supported operation
func (t Tool) Validate() error {
	switch t {
	case ToolMerge, ToolSplit, ToolCompress, ToolProtect, ToolUnlock:
		return nil
	}
	return goerr.Wrap(ErrUnknownTool, "invalid tool", goerr.V("tool", string(t)))
}

// ParseTool converts a raw name to a Tool
func ParseTool(s string) (Tool, error) {
	t := Tool(s)
	if err := t.Validate(); err != nil {
		return "", err
	}
	return t, nil
}

// ToolOrDefault returns the parsed tool, or DefaultTool when s is empty or unknown
func ToolOrDefault(s string) Tool {
	t, err := ParseTool(s)
	if err != nil {
		return DefaultTool
	}
	return t
}

// Path returns the workspace page path of the tool
func (t Tool) Path() string {
	return "/" + string(t)
}

func (t Tool) String() string {
	return string(t)
}
