package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestHTTPStorage(baseURL string) *httpStorage {
	s := NewHTTPStorage(baseURL).(*httpStorage)
	s.backoff = 10 * time.Millisecond
	return s
}

func TestHTTPStorage_RetryLogic(t *testing.T) {
	tests := []struct {
		name          string
		responses     []int // Status codes to return in sequence
		expectRetries int   // Expected number of requests
		expectErr     error
		errorContains string
	}{
		{
			name:          "Success on first attempt",
			responses:     []int{200},
			expectRetries: 1,
		},
		{
			name:          "Success on second attempt after 5xx",
			responses:     []int{500, 200},
			expectRetries: 2,
		},
		{
			name:          "404 maps to not found without retry",
			responses:     []int{404},
			expectRetries: 1,
			expectErr:     ErrNotFound,
		},
		{
			name:          "4xx client error - no retry",
			responses:     []int{403},
			expectRetries: 1,
			errorContains: "client error: status code 403",
		},
		{
			name:          "4xx after 5xx - should retry until 4xx then stop",
			responses:     []int{500, 401},
			expectRetries: 2,
			errorContains: "client error: status code 401",
		},
		{
			name:          "All 5xx errors - retry all attempts",
			responses:     []int{500, 502, 503},
			expectRetries: 3,
			errorContains: "server error: status code 503",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			requestCount := 0

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if requestCount >= len(tt.responses) {
					w.WriteHeader(500)
					return
				}
				statusCode := tt.responses[requestCount]
				requestCount++
				if r.URL.Path != "/models/model.json" {
					t.Errorf("Unexpected path %s", r.URL.Path)
				}
				if statusCode == 200 {
					w.Write([]byte(`{"classes":["a"]}`))
					return
				}
				w.WriteHeader(statusCode)
				w.Write([]byte(fmt.Sprintf("Error %d", statusCode)))
			}))
			defer server.Close()

			store := newTestHTTPStorage(server.URL + "/models/")
			rc, err := store.Open(context.Background(), "model.json")

			if requestCount != tt.expectRetries {
				t.Errorf("Expected %d requests, got %d", tt.expectRetries, requestCount)
			}

			switch {
			case tt.expectErr != nil:
				if !errors.Is(err, tt.expectErr) {
					t.Errorf("Expected %v, got %v", tt.expectErr, err)
				}
			case tt.errorContains != "":
				if err == nil || !strings.Contains(err.Error(), tt.errorContains) {
					t.Errorf("Expected error containing %q, got %v", tt.errorContains, err)
				}
			default:
				if err != nil {
					t.Fatalf("Expected no error, got: %v", err)
				}
				body, _ := io.ReadAll(rc)
				rc.Close()
				if string(body) != `{"classes":["a"]}` {
					t.Errorf("Unexpected body %q", body)
				}
			}
		})
	}
}

func TestHTTPStorage_NetworkErrorRetry(t *testing.T) {
	requestCount := 0

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestCount++
		if requestCount < 3 {
			// Simulate network error by closing connection
			if hj, ok := w.(http.Hijacker); ok {
				conn, _, _ := hj.Hijack()
				conn.Close()
			}
			return
		}
		w.Write([]byte("weights"))
	}))
	defer server.Close()

	store := newTestHTTPStorage(server.URL)
	rc, err := store.Open(context.Background(), "densenet_chexpert.h5")
	if err != nil {
		t.Fatalf("Expected success after retries, got error: %v", err)
	}
	rc.Close()

	if requestCount != 3 {
		t.Errorf("Expected 3 requests, got %d", requestCount)
	}
}

func TestHTTPStorage_Exists(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("Expected HEAD, got %s", r.Method)
		}
		if r.URL.Path == "/present.h5" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	store := newTestHTTPStorage(server.URL)

	ok, err := store.Exists(context.Background(), "present.h5")
	if err != nil || !ok {
		t.Errorf("Expected present artifact, got %v, %v", ok, err)
	}
	ok, err = store.Exists(context.Background(), "absent.h5")
	if err != nil || ok {
		t.Errorf("Expected absent artifact, got %v, %v", ok, err)
	}
}

func TestHTTPStorage_ContextCancelledDuringBackoff(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	store := NewHTTPStorage(server.URL).(*httpStorage)
	store.backoff = time.Hour

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := store.Open(ctx, "slow.h5")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline exceeded, got %v", err)
	}
}
