package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const httpAttempts = 3

// httpStorage fetches artifacts from a static file server or CDN.
type httpStorage struct {
	baseURL string
	client  *http.Client
	backoff time.Duration
}

// NewHTTPStorage serves artifacts from baseURL/<name>.
func NewHTTPStorage(baseURL string) ArtifactStore {
	transport := &http.Transport{
		MaxIdleConns:           10,
		MaxIdleConnsPerHost:    2,
		IdleConnTimeout:        30 * time.Second,
		TLSHandshakeTimeout:    10 * time.Second,
		ResponseHeaderTimeout:  30 * time.Second,
		ExpectContinueTimeout:  1 * time.Second,
		MaxResponseHeaderBytes: 4096,
	}

	return &httpStorage{
		baseURL: strings.TrimRight(baseURL, "/"),
		backoff: time.Second,
		client: &http.Client{
			Transport: transport,
			// Weight files are large; the per-request context bounds the call.
			Timeout: 10 * time.Minute,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("too many redirects (limit: 3)")
				}
				return nil
			},
		},
	}
}

func (h *httpStorage) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	resp, err := h.do(ctx, http.MethodGet, name)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func (h *httpStorage) Exists(ctx context.Context, name string) (bool, error) {
	resp, err := h.do(ctx, http.MethodHead, name)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	resp.Body.Close()
	return true, nil
}

func (h *httpStorage) Location() string {
	return h.baseURL
}

// do issues the request with up to three attempts. Network errors and 5xx
// responses are retried with a linear backoff; 4xx responses are final and
// 404 maps to ErrNotFound.
func (h *httpStorage) do(ctx context.Context, method, name string) (*http.Response, error) {
	target := h.baseURL + "/" + url.PathEscape(name)

	var lastErr error
	for attempt := 0; attempt < httpAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, method, target, nil)
		if err != nil {
			return nil, fmt.Errorf("invalid artifact URL: %w", err)
		}
		req.Header.Set("User-Agent", "Go-Medical-Analyzer/1.0")

		resp, err := h.client.Do(req)
		switch {
		case err != nil:
			lastErr = err
		case resp.StatusCode == http.StatusOK:
			return resp, nil
		case resp.StatusCode == http.StatusNotFound:
			resp.Body.Close()
			return nil, ErrNotFound
		case resp.StatusCode >= 400 && resp.StatusCode < 500:
			resp.Body.Close()
			return nil, fmt.Errorf("client error: status code %d", resp.StatusCode)
		default:
			resp.Body.Close()
			lastErr = fmt.Errorf("server error: status code %d", resp.StatusCode)
		}

		if attempt < httpAttempts-1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt+1) * h.backoff):
			}
		}
	}
	return nil, fmt.Errorf("failed to fetch %s after %d attempts: %w", name, httpAttempts, lastErr)
}
