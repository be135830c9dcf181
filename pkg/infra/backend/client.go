package backend

import (
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/pdfdesk/pkg/domain/model"
)

const maxErrorBody = 4 << 10

// Client talks to the PDF processing backend over HTTP
type Client struct {
	base       *url.URL
	httpClient *http.Client
}

// Option configures Client
type Option func(*Client)

// WithHTTPClient replaces the HTTP client
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// New creates a backend client rooted at baseURL
func New(baseURL string, opts ...Option) (*Client, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to parse backend URL", goerr.V("url", baseURL))
	}
	if (base.Scheme != "http" && base.Scheme != "https") || base.Host == "" {
		return nil, goerr.New("backend URL must be an absolute http(s) URL", goerr.V("url", baseURL))
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}

	c := &Client{
		base:       base,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Submit posts the job as multipart form: every file as a "files" part in
// order, every parameter as a field
func (c *Client) Submit(ctx context.Context, req *model.JobRequest) (*model.JobResponse, error) {
	endpoint := c.base.ResolveReference(&url.URL{Path: "api/" + url.PathEscape(string(req.Tool))})

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeJob(mw, req))
	}()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), pr)
	if err != nil {
		_ = pr.Close()
		return nil, goerr.Wrap(err, "failed to create submit request", goerr.V("url", endpoint.String()))
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to submit job", goerr.V("url", endpoint.String()))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, goerr.New("backend rejected job",
			goerr.V("url", endpoint.String()),
			goerr.V("status", resp.StatusCode),
			goerr.V("body", string(body)),
		)
	}

	var out model.JobResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, goerr.Wrap(err, "failed to decode backend response", goerr.V("url", endpoint.String()))
	}
	if out.DownloadURL == "" {
		return nil, goerr.New("backend response has no download URL", goerr.V("url", endpoint.String()))
	}

	locator, err := c.base.Parse(out.DownloadURL)
	if err != nil {
		return nil, goerr.Wrap(err, "invalid download URL in backend response", goerr.V("download_url", out.DownloadURL))
	}
	out.DownloadURL = locator.String()

	return &out, nil
}

func writeJob(mw *multipart.Writer, req *model.JobRequest) error {
	for name, value := range req.Params.All() {
		if err := mw.WriteField(name, value); err != nil {
			return goerr.Wrap(err, "failed to write field", goerr.V("field", name))
		}
	}

	for _, f := range req.Files {
		part, err := mw.CreateFormFile("files", f.Name)
		if err != nil {
			return goerr.Wrap(err, "failed to create file part", goerr.V("name", f.Name))
		}
		if _, err := io.Copy(part, f.Content); err != nil {
			return goerr.Wrap(err, "failed to write file part", goerr.V("name", f.Name))
		}
	}

	return mw.Close()
}

// Probe issues a HEAD request and returns Content-Length
func (c *Client) Probe(ctx context.Context, locator string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, locator, nil)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to create probe request", goerr.V("locator", locator))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to probe artifact", goerr.V("locator", locator))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, goerr.New("artifact probe failed", goerr.V("locator", locator), goerr.V("status", resp.StatusCode))
	}
	if resp.ContentLength < 0 {
		return 0, goerr.New("artifact size is unknown", goerr.V("locator", locator))
	}

	return resp.ContentLength, nil
}

// Fetch downloads an artifact. The caller closes the body.
func (c *Client) Fetch(ctx context.Context, locator string) (*model.Artifact, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, locator, nil)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create fetch request", goerr.V("locator", locator))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to fetch artifact", goerr.V("locator", locator))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_ = resp.Body.Close()
		return nil, goerr.New("artifact fetch failed", goerr.V("locator", locator), goerr.V("status", resp.StatusCode))
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/pdf"
	}

	return &model.Artifact{
		Body:        resp.Body,
		ContentType: contentType,
		Size:        resp.ContentLength,
	}, nil
}

// Owns reports whether locator is under the backend's base URL
func (c *Client) Owns(locator string) bool {
	u, err := url.Parse(locator)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Scheme, c.base.Scheme) &&
		strings.EqualFold(u.Host, c.base.Host) &&
		strings.HasPrefix(u.Path, c.base.Path)
}
