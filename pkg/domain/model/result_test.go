package model_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/pdfdesk/pkg/domain/model"
	"github.com/m-mizutani/pdfdesk/pkg/domain/types"
)

func TestCompressionSummary(t *testing.T) {
	s := model.CompressionSummary{OriginalSize: 1_000_000, CompressedSize: 400_000}

	gt.True(t, s.Available())
	gt.Number(t, s.SavedPercent()).Equal(60)
	gt.String(t, s.String()).Equal("976.56 KB → 390.63 KB")
}

func TestCompressionSummary_Unavailable(t *testing.T) {
	gt.False(t, model.CompressionSummary{OriginalSize: 100}.Available())
	gt.False(t, model.CompressionSummary{CompressedSize: 100}.Available())
	gt.Number(t, model.CompressionSummary{}.SavedPercent()).Equal(0)
}

func TestFormatSize(t *testing.T) {
	tests := []struct {
		name  string
		bytes int64
		want  string
	}{
		{name: "zero", bytes: 0, want: "0 B"},
		{name: "bytes", bytes: 512, want: "512.00 B"},
		{name: "one kilobyte", bytes: 1024, want: "1.00 KB"},
		{name: "megabytes", bytes: 5 * 1024 * 1024, want: "5.00 MB"},
		{name: "gigabytes", bytes: 3 * 1024 * 1024 * 1024, want: "3.00 GB"},
		{name: "beyond gigabytes", bytes: 2048 * 1024 * 1024 * 1024, want: "2048.00 GB"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gt.String(t, model.FormatSize(tt.bytes)).Equal(tt.want)
		})
	}
}

func TestDownloadFilename(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{name: "path segment", url: "https://api.example.com/files/merged-123.pdf", want: "merged-123.pdf"},
		{name: "query stripped", url: "https://api.example.com/files/out.pdf?sig=abc/def", want: "out.pdf"},
		{name: "no segment", url: "https://api.example.com/", want: "merge-result.pdf"},
		{name: "directory", url: "https://api.example.com/files/", want: "merge-result.pdf"},
		{name: "directory with query", url: "https://api.example.com/files/?sig=abc", want: "merge-result.pdf"},
		{name: "host only", url: "https://api.example.com", want: "merge-result.pdf"},
		{name: "unparsable", url: "://bad", want: "merge-result.pdf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gt.String(t, model.DownloadFilename(tt.url, "merge-result.pdf")).Equal(tt.want)
		})
	}
}

func TestArrival_RedirectTool(t *testing.T) {
	t.Run("no reference and no tool falls back to default", func(t *testing.T) {
		a := &model.Arrival{}
		gt.Value(t, a.RedirectTool()).Equal(types.ToolMerge)
	})

	t.Run("tool from the reference wins", func(t *testing.T) {
		a := &model.Arrival{
			Tool:      types.ToolSplit,
			Reference: &model.ResultReference{Tool: types.ToolCompress},
		}
		gt.Value(t, a.RedirectTool()).Equal(types.ToolCompress)
	})

	t.Run("tool from the navigation", func(t *testing.T) {
		a := &model.Arrival{Tool: types.ToolUnlock}
		gt.Value(t, a.RedirectTool()).Equal(types.ToolUnlock)
	})
}
