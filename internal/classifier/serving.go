package classifier

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
)

// Predictor runs a network on one preprocessed image and returns one
// probability per label.
type Predictor interface {
	Predict(ctx context.Context, input Tensor) ([]float64, error)
}

type predictRequest struct {
	Instances []Tensor `json:"instances"`
}

type predictResponse struct {
	Predictions [][]float64 `json:"predictions"`
	Error       string      `json:"error,omitempty"`
}

// servingPredictor calls a TensorFlow Serving compatible REST endpoint.
type servingPredictor struct {
	endpoint string
	client   *http.Client
}

// NewServingPredictor targets POST {baseURL}/v1/models/{model}:predict.
// A nil client uses a default client with a two minute timeout.
func NewServingPredictor(baseURL, model string, client *http.Client) Predictor {
	if client == nil {
		client = &http.Client{Timeout: 2 * time.Minute}
	}
	return &servingPredictor{
		endpoint: fmt.Sprintf("%s/v1/models/%s:predict", strings.TrimRight(baseURL, "/"), model),
		client:   client,
	}
}

func (p *servingPredictor) Predict(ctx context.Context, input Tensor) ([]float64, error) {
	body, err := sonic.Marshal(predictRequest{Instances: []Tensor{input}})
	if err != nil {
		return nil, fmt.Errorf("encode predict request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build predict request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("predict call: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read predict response: %w", err)
	}

	var out predictResponse
	if err := sonic.Unmarshal(raw, &out); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("model server returned status %d", resp.StatusCode)
		}
		return nil, fmt.Errorf("decode predict response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("model server returned status %d: %s", resp.StatusCode, out.Error)
	}
	if len(out.Predictions) != 1 {
		return nil, fmt.Errorf("expected 1 prediction, got %d", len(out.Predictions))
	}
	return out.Predictions[0], nil
}
