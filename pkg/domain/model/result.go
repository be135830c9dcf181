package model

import (
	"fmt"
	"io"
	"math"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/m-mizutani/pdfdesk/pkg/domain/types"
)

// ResultReference points to the artifact produced by a finished job. It only
// ever travels inside a single-use transition and is never persisted.
type ResultReference struct {
	DownloadURL    string     `json:"downloadUrl"`
	Tool           types.Tool `json:"tool"`
	OriginalSize   int64      `json:"originalSize,omitempty"`
	CompressedSize int64      `json:"compressedSize,omitempty"`
}

// Transition binds a result reference to a token for exactly one navigation
type Transition struct {
	Token     types.TransitionToken `json:"token"`
	Reference ResultReference       `json:"reference"`
	ExpiresAt time.Time             `json:"expires_at"`
}

// NavigationType tells how the result page was reached
type NavigationType string

const (
	NavigationPush    NavigationType = "push"
	NavigationReplace NavigationType = "replace"
	// NavigationPop is a history traversal (back/forward, reload)
	NavigationPop NavigationType = "pop"
)

// Arrival describes one navigation into the result page
type Arrival struct {
	Reference  *ResultReference
	Tool       types.Tool
	Navigation NavigationType
}

// RedirectTool returns the tool page an invalid arrival is sent back to
func (a *Arrival) RedirectTool() types.Tool {
	if a.Reference != nil && a.Reference.Tool.Validate() == nil {
		return a.Reference.Tool
	}
	if a.Tool.Validate() == nil {
		return a.Tool
	}
	return types.DefaultTool
}

// DownloadFilename derives the saved filename from the locator's last path
// segment, falling back to fallback when the locator has none
func DownloadFilename(downloadURL, fallback string) string {
	u, err := url.Parse(downloadURL)
	if err != nil || u.Path == "" || strings.HasSuffix(u.Path, "/") {
		return fallback
	}
	name := path.Base(u.Path)
	if name == "" || name == "." || name == "/" || strings.ContainsAny(name, "\"\\") {
		return fallback
	}
	return name
}

// CompressionSummary is the savings shown after a compress job
type CompressionSummary struct {
	OriginalSize   int64
	CompressedSize int64
}

// Available reports whether both sizes are known
func (s CompressionSummary) Available() bool {
	return s.OriginalSize > 0 && s.CompressedSize > 0
}

// SavedPercent returns round((original - compressed) / original * 100)
func (s CompressionSummary) SavedPercent() int {
	if s.OriginalSize <= 0 {
		return 0
	}
	ratio := float64(s.OriginalSize-s.CompressedSize) / float64(s.OriginalSize)
	return int(math.Floor(ratio*100 + 0.5))
}

// String renders e.g. "976.56 KB → 390.63 KB"
func (s CompressionSummary) String() string {
	return FormatSize(s.OriginalSize) + " → " + FormatSize(s.CompressedSize)
}

var sizeUnits = []string{"B", "KB", "MB", "GB"}

// FormatSize renders a byte count with base 1024 and two decimals
func FormatSize(bytes int64) string {
	if bytes <= 0 {
		return "0 B"
	}

	i := int(math.Floor(math.Log(float64(bytes)) / math.Log(1024)))
	if i >= len(sizeUnits) {
		i = len(sizeUnits) - 1
	}

	v := float64(bytes) / math.Pow(1024, float64(i))
	v = math.Round(v*100) / 100
	return fmt.Sprintf("%.2f %s", v, sizeUnits[i])
}

// Redemption is the outcome of reading a transition token
type Redemption struct {
	// Reference is set only on the first read of a live token
	Reference *ResultReference
	// Replayed is true when the token had already been read before
	Replayed bool
	// Tool of the transition, known for first reads and replays
	Tool types.Tool
}

// Arrival converts a redemption into an arrival at the result page.
// fallbackTool is used when the token is unknown.
func (r *Redemption) Arrival(fallbackTool types.Tool) *Arrival {
	a := &Arrival{Tool: fallbackTool, Navigation: NavigationPush}
	if r == nil {
		return a
	}
	if r.Tool != "" {
		a.Tool = r.Tool
	}
	if r.Replayed {
		a.Navigation = NavigationPop
		return a
	}
	a.Reference = r.Reference
	return a
}

// Artifact is a fetched result file ready to be handed to the browser
type Artifact struct {
	Body        io.ReadCloser
	Filename    string
	ContentType string
	Size        int64
}

// DownloadOutcome is either an artifact to stream or a locator to navigate to
type DownloadOutcome struct {
	Artifact    *Artifact
	FallbackURL string
}

// ResultView is what the result page renders after arrival validation
type ResultView struct {
	// RedirectTo is set when the arrival is invalid; the page must be replaced by it
	RedirectTo string
	Spec       *ToolSpec
	Reference  *ResultReference
	Summary    CompressionSummary
	Continue   []*ToolSpec
}
