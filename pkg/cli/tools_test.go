package cli

import (
	"bytes"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/pdfdesk/pkg/cli/config"
)

func TestPrintCatalog(t *testing.T) {
	catalog, err := config.DefaultCatalog()
	gt.NoError(t, err)

	var buf bytes.Buffer
	printCatalog(&buf, catalog)

	out := buf.String()
	gt.S(t, out).Contains("Merge PDF")
	gt.S(t, out).Contains("unlimited")
	gt.S(t, out).Contains("level [select] default=recommended required")
	gt.S(t, out).Contains("password [password]")
}
