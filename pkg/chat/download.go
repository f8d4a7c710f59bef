package chat

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

const (
	// DefaultDownloadTimeout bounds a full media download.
	DefaultDownloadTimeout = 30 * time.Second
	// DefaultMaxDownloadBytes caps a local re-upload.
	DefaultMaxDownloadBytes = 50 << 20
)

// Downloader fetches a remote media URL for local re-upload.
type Downloader interface {
	Download(ctx context.Context, url string) (File, error)
}

// HTTPDownloader downloads with a GET request.
type HTTPDownloader struct {
	client   *http.Client
	timeout  time.Duration
	maxBytes int64
}

// NewHTTPDownloader creates a downloader. Zero values select the defaults.
func NewHTTPDownloader(client *http.Client, timeout time.Duration, maxBytes int64) *HTTPDownloader {
	if client == nil {
		client = http.DefaultClient
	}
	if timeout <= 0 {
		timeout = DefaultDownloadTimeout
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxDownloadBytes
	}
	return &HTTPDownloader{client: client, timeout: timeout, maxBytes: maxBytes}
}

func (d *HTTPDownloader) Download(ctx context.Context, rawURL string) (File, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return File{}, fmt.Errorf("build download request: %w", err)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return File{}, fmt.Errorf("download %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return File{}, fmt.Errorf("download %s: status %d", rawURL, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, d.maxBytes+1))
	if err != nil {
		return File{}, fmt.Errorf("read %s: %w", rawURL, err)
	}
	if int64(len(data)) > d.maxBytes {
		return File{}, fmt.Errorf("download %s: larger than %d bytes", rawURL, d.maxBytes)
	}

	return File{Data: data, Name: fileName(rawURL, data)}, nil
}

// fileName picks an upload name from the URL path, adding an extension
// detected from the content when the path has none.
func fileName(rawURL string, data []byte) string {
	name := "file"
	if u, err := url.Parse(rawURL); err == nil {
		if base := path.Base(u.Path); base != "." && base != "/" && base != "" {
			name = base
		}
	}
	if path.Ext(name) == "" {
		name += mimetype.Detect(data).Extension()
	}
	return name
}
