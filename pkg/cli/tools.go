package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/m-mizutani/pdfdesk/pkg/cli/config"
	"github.com/m-mizutani/pdfdesk/pkg/domain/model"
	"github.com/urfave/cli/v3"
)

func cmdTools() *cli.Command {
	var toolsCfg config.Tools

	return &cli.Command{
		Name:  "tools",
		Usage: "Show the tool catalog",
		Flags: toolsCfg.Flags(),
		Action: func(ctx context.Context, c *cli.Command) error {
			catalog, err := toolsCfg.Configure()
			if err != nil {
				return err
			}
			printCatalog(os.Stdout, catalog)
			return nil
		},
	}
}

func printCatalog(w io.Writer, catalog *model.Catalog) {
	name := color.New(color.FgCyan, color.Bold).SprintFunc()
	dim := color.New(color.Faint).SprintFunc()
	secret := color.New(color.FgYellow).SprintFunc()

	for _, spec := range catalog.Specs() {
		limit := "unlimited"
		if spec.MaxFiles > 0 {
			limit = fmt.Sprintf("max %d", spec.MaxFiles)
		}

		fmt.Fprintf(w, "%s %s %s\n", name(spec.Name), spec.Title, dim("("+limit+" files)"))
		fmt.Fprintf(w, "  %s\n", dim(spec.Description))
		for _, p := range spec.Params {
			line := fmt.Sprintf("  - %s [%s]", p.Name, p.Kind)
			if p.Default != "" {
				line += " default=" + p.Default
			}
			if p.Required {
				line += " required"
			}
			if p.Secret {
				line += " " + secret("secret")
			}
			fmt.Fprintln(w, line)
		}
	}
}
