package model

import (
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/pdfdesk/pkg/domain/types"
)

// ParamKind is the kind of a sidebar control
type ParamKind string

const (
	ParamText     ParamKind = "text"
	ParamPassword ParamKind = "password"
	ParamSelect   ParamKind = "select"
	ParamNumber   ParamKind = "number"
)

// ToolParam is one tool-specific control in the workspace sidebar
type ToolParam struct {
	Name     string    `toml:"name" json:"name"`
	Label    string    `toml:"label" json:"label"`
	Kind     ParamKind `toml:"kind" json:"kind"`
	Options  []string  `toml:"options" json:"options,omitempty"`
	Default  string    `toml:"default" json:"default,omitempty"`
	Required bool      `toml:"required" json:"required"`
	// Secret values are redacted from logs
	Secret bool `toml:"secret" json:"secret"`
}

// ToolSpec describes a tool page: its texts, limits and parameters
type ToolSpec struct {
	Name             types.Tool  `toml:"name" json:"name"`
	Title            string      `toml:"title" json:"title"`
	Description      string      `toml:"description" json:"description"`
	MaxFiles         int         `toml:"max_files" json:"max_files"`
	ActionText       string      `toml:"action_text" json:"action_text"`
	ResultTitle      string      `toml:"result_title" json:"result_title"`
	ButtonText       string      `toml:"button_text" json:"button_text"`
	FallbackFilename string      `toml:"fallback_filename" json:"fallback_filename"`
	Params           []ToolParam `toml:"params" json:"params"`
}

// Filename returns the name used when the artifact locator has no path segment
func (s *ToolSpec) Filename() string {
	if s.FallbackFilename != "" {
		return s.FallbackFilename
	}
	return string(s.Name) + "-result.pdf"
}

// Remaining returns how many files may still be added to a set of size current.
// -1 means unlimited.
func (s *ToolSpec) Remaining(current int) int {
	if s.MaxFiles <= 0 {
		return -1
	}
	if current >= s.MaxFiles {
		return 0
	}
	return s.MaxFiles - current
}

// Validate checks the spec is usable
func (s *ToolSpec) Validate() error {
	if err := s.Name.Validate(); err != nil {
		return err
	}
	if s.Title == "" {
		return goerr.New("tool title is required", goerr.V("tool", s.Name))
	}
	if s.MaxFiles < 0 {
		return goerr.New("max_files must not be negative", goerr.V("tool", s.Name), goerr.V("max_files", s.MaxFiles))
	}

	seen := make(map[string]bool, len(s.Params))
	for _, p := range s.Params {
		if p.Name == "" {
			return goerr.New("param name is required", goerr.V("tool", s.Name))
		}
		if seen[p.Name] {
			return goerr.New("duplicated param", goerr.V("tool", s.Name), goerr.V("param", p.Name))
		}
		seen[p.Name] = true

		switch p.Kind {
		case ParamText, ParamPassword, ParamNumber:
		case ParamSelect:
			if len(p.Options) == 0 {
				return goerr.New("select param needs options", goerr.V("tool", s.Name), goerr.V("param", p.Name))
			}
		default:
			return goerr.New("unknown param kind", goerr.V("tool", s.Name), goerr.V("param", p.Name), goerr.V("kind", p.Kind))
		}
	}
	return nil
}

// Catalog holds the specs of every tool
type Catalog struct {
	specs map[types.Tool]*ToolSpec
	order []types.Tool
}

// NewCatalog validates specs and builds a catalog. Every supported tool must be present.
func NewCatalog(specs []ToolSpec) (*Catalog, error) {
	c := &Catalog{specs: make(map[types.Tool]*ToolSpec, len(specs))}
	for i := range specs {
		spec := specs[i]
		if err := spec.Validate(); err != nil {
			return nil, err
		}
		if _, ok := c.specs[spec.Name]; ok {
			return nil, goerr.New("duplicated tool", goerr.V("tool", spec.Name))
		}
		c.specs[spec.Name] = &spec
		c.order = append(c.order, spec.Name)
	}

	for _, t := range types.AllTools() {
		if _, ok := c.specs[t]; !ok {
			return nil, goerr.New("tool is missing in catalog", goerr.V("tool", t))
		}
	}

	return c, nil
}

// Lookup returns the spec of tool
func (c *Catalog) Lookup(tool types.Tool) (*ToolSpec, error) {
	spec, ok := c.specs[tool]
	if !ok {
		return nil, goerr.Wrap(types.ErrUnknownTool, "tool not in catalog", goerr.V("tool", tool))
	}
	return spec, nil
}

// Specs returns all specs in catalog order
func (c *Catalog) Specs() []*ToolSpec {
	specs := make([]*ToolSpec, 0, len(c.order))
	for _, t := range c.order {
		specs = append(specs, c.specs[t])
	}
	return specs
}
