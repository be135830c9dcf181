package errutil_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/pdfdesk/pkg/utils/errutil"
)

func TestHandle(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	ctx := ctxlog.With(context.Background(), logger)

	errutil.Handle(ctx, "upload failed", goerr.New("disk full", goerr.V("blob_id", "b1")))
	gt.String(t, buf.String()).Contains("upload failed")
	gt.String(t, buf.String()).Contains("disk full")

	buf.Reset()
	errutil.Handle(ctx, "nothing", nil)
	gt.String(t, buf.String()).Equal("")
}
