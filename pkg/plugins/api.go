package plugins

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// API is a client for the external content API.
type API struct {
	baseURL string
	client  *http.Client
}

// NewAPI creates an API client. A nil client uses a default one with timeout.
func NewAPI(baseURL string, client *http.Client, timeout time.Duration) *API {
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	return &API{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

// BaseURL returns the API root.
func (a *API) BaseURL() string { return a.baseURL }

type chatRequest struct {
	Ask string `json:"ask"`
	UID string `json:"uid"`
}

type chatResponse struct {
	Answer string `json:"answer"`
}

// Chat sends a prompt to the chat endpoint. uid keeps per-user conversation
// state on the remote side.
func (a *API) Chat(ctx context.Context, prompt, uid string) (string, error) {
	body, err := json.Marshal(chatRequest{Ask: prompt, UID: uid})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/api/gpt4o", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	var out chatResponse
	if err := a.do(req, &out); err != nil {
		return "", err
	}
	if strings.TrimSpace(out.Answer) == "" {
		return "", fmt.Errorf("chat api returned an empty answer")
	}
	return out.Answer, nil
}

// ImageURL returns the URL of an image generated for prompt.
func (a *API) ImageURL(prompt string) string {
	return a.baseURL + "/api/crushimg?prompt=" + url.QueryEscape(prompt)
}

// CosplayURL is the public gallery page.
func (a *API) CosplayURL() string {
	return a.baseURL + "/cosplay"
}

// Cosplay is one gallery entry.
type Cosplay struct {
	Title         string   `json:"title"`
	Cosplayer     string   `json:"cosplayer"`
	Character     string   `json:"character"`
	Images        []string `json:"images"`
	DownloadLinks []string `json:"downloadLinks"`
}

// CosplayResult is a gallery search result.
type CosplayResult struct {
	Result   []Cosplay `json:"result"`
	Password string    `json:"password"`
}

// SearchCosplay queries the gallery. An empty term returns random entries.
func (a *API) SearchCosplay(ctx context.Context, term string) (*CosplayResult, error) {
	q := url.Values{}
	q.Set("search", term)
	q.Set("stream", "false")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/api/cosplaytele?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var out CosplayResult
	if err := a.do(req, &out); err != nil {
		return nil, err
	}
	if out.Result == nil {
		return nil, fmt.Errorf("invalid cosplay api response")
	}
	return &out, nil
}

func (a *API) do(req *http.Request, out any) error {
	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("calling %s: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s: http status %d: %s", req.URL.Path, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", req.URL.Path, err)
	}
	return nil
}
