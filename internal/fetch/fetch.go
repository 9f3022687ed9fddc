// Package fetch retrieves the raw text of template files. Every failure is
// reported as a transport error carrying the requested locator.
package fetch

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"strings"

	xterrors "github.com/conneroisu/xtpl/internal/errors"
)

// MaxSize bounds the size of a fetched file.
const MaxSize = 10 << 20

// Fetcher returns the raw text stored under locator.
type Fetcher interface {
	Fetch(ctx context.Context, locator string) (string, error)
}

// Func adapts a function to the Fetcher interface.
type Func func(ctx context.Context, locator string) (string, error)

// Fetch calls f.
func (f Func) Fetch(ctx context.Context, locator string) (string, error) {
	return f(ctx, locator)
}

// FS fetches files from an fs.FS, such as a directory or an embedded tree.
type FS struct {
	fsys fs.FS
}

// NewFS creates a fetcher reading from fsys.
func NewFS(fsys fs.FS) *FS {
	return &FS{fsys: fsys}
}

// Dir creates a fetcher reading files below root.
func Dir(root string) *FS {
	return NewFS(os.DirFS(root))
}

// Fetch reads locator, which must be a valid fs path: slash separated,
// unrooted and free of "." and ".." elements.
func (f *FS) Fetch(ctx context.Context, locator string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", xterrors.NewTransportError(locator, err)
	}
	if !fs.ValidPath(locator) {
		return "", xterrors.NewTransportError(locator,
			xterrors.NewValidationError(xterrors.ErrCodeInvalidPath, "invalid path: "+locator))
	}

	file, err := f.fsys.Open(locator)
	if err != nil {
		return "", xterrors.NewTransportError(locator, err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, MaxSize+1))
	if err != nil {
		return "", xterrors.NewTransportError(locator, err)
	}
	if len(data) > MaxSize {
		return "", xterrors.NewTransportError(locator, fmt.Errorf("file exceeds %d bytes", MaxSize))
	}
	return string(data), nil
}

// HTTP fetches files relative to a base URL.
type HTTP struct {
	base   *url.URL
	client *http.Client
}

// NewHTTP creates a fetcher resolving locators against baseURL. A nil client
// means http.DefaultClient.
func NewHTTP(baseURL string, client *http.Client) (*HTTP, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url %q: %w", baseURL, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base url %q must use http or https", baseURL)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTP{base: base, client: client}, nil
}

// Fetch issues a GET for locator below the base URL.
func (h *HTTP) Fetch(ctx context.Context, locator string) (string, error) {
	if !fs.ValidPath(locator) {
		return "", xterrors.NewTransportError(locator,
			xterrors.NewValidationError(xterrors.ErrCodeInvalidPath, "invalid path: "+locator))
	}
	ref, err := url.Parse(locator)
	if err != nil {
		return "", xterrors.NewTransportError(locator, err)
	}
	target := h.base.ResolveReference(ref)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return "", xterrors.NewTransportError(locator, err)
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return "", xterrors.NewTransportError(locator, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", xterrors.NewTransportError(locator, fmt.Errorf("unexpected status %s", resp.Status)).
			WithContext("status", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxSize+1))
	if err != nil {
		return "", xterrors.NewTransportError(locator, err)
	}
	if len(data) > MaxSize {
		return "", xterrors.NewTransportError(locator, fmt.Errorf("response exceeds %d bytes", MaxSize))
	}
	return string(data), nil
}
