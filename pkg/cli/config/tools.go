package config

import (
	"bytes"
	_ "embed"
	"io"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/pdfdesk/pkg/domain/model"
	"github.com/pelletier/go-toml/v2"
	"github.com/urfave/cli/v3"
)

//go:embed tools.toml
var defaultTools []byte

type toolsFile struct {
	Tools []model.ToolSpec `toml:"tools"`
}

// Tools holds the tool catalog configuration
type Tools struct {
	Path string
}

// Flags returns CLI flags for the tool catalog
func (c *Tools) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "tools",
			Usage:       "TOML file describing the tool pages (built-in catalog if empty)",
			Destination: &c.Path,
			Sources:     cli.EnvVars("PDFDESK_TOOLS"),
		},
	}
}

// Configure loads the catalog from Path, or the built-in one
func (c *Tools) Configure() (*model.Catalog, error) {
	if c.Path == "" {
		return DefaultCatalog()
	}

	f, err := os.Open(c.Path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open tools file", goerr.V("path", c.Path))
	}
	defer f.Close()

	catalog, err := LoadCatalog(f)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load tools file", goerr.V("path", c.Path))
	}
	return catalog, nil
}

// DefaultCatalog returns the built-in tool catalog
func DefaultCatalog() (*model.Catalog, error) {
	return LoadCatalog(bytes.NewReader(defaultTools))
}

// LoadCatalog decodes a TOML tool catalog. Unknown keys are rejected.
func LoadCatalog(r io.Reader) (*model.Catalog, error) {
	var file toolsFile
	dec := toml.NewDecoder(r).DisallowUnknownFields()
	if err := dec.Decode(&file); err != nil {
		return nil, goerr.Wrap(err, "failed to decode tool catalog")
	}

	catalog, err := model.NewCatalog(file.Tools)
	if err != nil {
		return nil, goerr.Wrap(err, "invalid tool catalog")
	}
	return catalog, nil
}
