package chat

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

// DefaultProbeTimeout bounds a content type probe.
const DefaultProbeTimeout = 5 * time.Second

// Prober resolves the declared content type of a remote URL.
type Prober interface {
	Probe(ctx context.Context, url string) (string, error)
}

// HTTPProber issues a HEAD request and reads Content-Type.
type HTTPProber struct {
	client  *http.Client
	timeout time.Duration
}

// NewHTTPProber creates a prober. A nil client uses http.DefaultClient.
func NewHTTPProber(client *http.Client, timeout time.Duration) *HTTPProber {
	if client == nil {
		client = http.DefaultClient
	}
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	return &HTTPProber{client: client, timeout: timeout}
}

func (p *HTTPProber) Probe(ctx context.Context, url string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return "", fmt.Errorf("build probe request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("probe %s: %w", url, err)
	}
	resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return "", fmt.Errorf("probe %s: status %d", url, resp.StatusCode)
	}
	return resp.Header.Get("Content-Type"), nil
}

// ClassifyContentType maps a MIME type to a media kind.
func ClassifyContentType(contentType string) (Kind, error) {
	if strings.TrimSpace(contentType) == "" {
		return KindUnset, ErrUnknownMediaType
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return KindUnset, fmt.Errorf("%w: %q", ErrUnknownMediaType, contentType)
	}

	switch {
	case mediaType == "image/gif":
		return KindAnimation, nil
	case strings.HasPrefix(mediaType, "image/"):
		return KindPhoto, nil
	case strings.HasPrefix(mediaType, "video/"):
		return KindVideo, nil
	case strings.HasPrefix(mediaType, "audio/"):
		return KindAudio, nil
	default:
		return KindDocument, nil
	}
}

// DetectBytes classifies raw bytes by their magic numbers.
func DetectBytes(data []byte) (Kind, error) {
	if len(data) == 0 {
		return KindUnset, ErrUnknownMediaType
	}
	return ClassifyContentType(mimetype.Detect(data).String())
}

// sniff resolves the kind of one media payload.
func (c *Chat) sniff(ctx context.Context, m Media) (Kind, error) {
	if m.Type != KindUnset && m.Type != KindAuto {
		return m.Type, nil
	}
	switch {
	case len(m.Data) > 0:
		return DetectBytes(m.Data)
	case m.URL != "":
		if c.prober == nil {
			return KindUnset, ErrUnknownMediaType
		}
		ct, err := c.prober.Probe(ctx, m.URL)
		if err != nil {
			return KindUnset, fmt.Errorf("%w: %v", ErrUnknownMediaType, err)
		}
		return ClassifyContentType(ct)
	default:
		return KindUnset, ErrUnknownMediaType
	}
}
