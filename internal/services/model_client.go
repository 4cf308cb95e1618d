package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/AnshRaj112/moodjournal-backend/pkg/observability"
)

// ModelInput is one timestamped journal entry as the inference service
// expects it.
type ModelInput struct {
	Text      *string `json:"text,omitempty"`
	Timestamp string  `json:"timestamp"`
	Image     *string `json:"image,omitempty"`
}

type ModelRequest struct {
	Data []ModelInput `json:"data"`
}

type ModelOutput struct {
	Logits []float64 `json:"logits"`
	Probas []float64 `json:"probas"`
}

// ModelClient scores one window of entries.
type ModelClient interface {
	Check(ctx context.Context, inputs []ModelInput) (*ModelOutput, error)
}

// HTTPModelClient posts windows to the inference service's /check endpoint.
type HTTPModelClient struct {
	Endpoint string
	Client   *http.Client
}

func NewHTTPModelClient(endpoint string) *HTTPModelClient {
	return &HTTPModelClient{
		Endpoint: endpoint,
		Client:   &http.Client{Timeout: 2 * time.Minute},
	}
}

func (c *HTTPModelClient) Check(ctx context.Context, inputs []ModelInput) (*ModelOutput, error) {
	ctx, span := observability.Tracer("risk").Start(ctx, "model.check")
	defer span.End()
	span.SetAttributes(attribute.Int("model.inputs", len(inputs)))

	body, err := json.Marshal(ModelRequest{Data: inputs})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Client.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		return nil, fmt.Errorf("model request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		span.SetStatus(codes.Error, resp.Status)
		return nil, fmt.Errorf("%w: %s %s", ErrModelUnavailable, resp.Status, bytes.TrimSpace(snippet))
	}

	var out ModelOutput
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode model output: %w", err)
	}
	if len(out.Probas) == 0 {
		return nil, fmt.Errorf("%w: empty probas", ErrModelUnavailable)
	}
	return &out, nil
}
