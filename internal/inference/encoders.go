package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// TextEncoder embeds texts into Dt-wide vectors, one per input.
type TextEncoder interface {
	EncodeText(ctx context.Context, texts []string) ([][]float32, error)
}

// ImageEncoder embeds preprocessed CHW pixel arrays into Di-wide vectors.
type ImageEncoder interface {
	EncodeImages(ctx context.Context, pixels [][]float32) ([][]float32, error)
}

type embedRequest struct {
	Inputs interface{} `json:"inputs"`
	Shape  []int       `json:"shape,omitempty"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// HTTPEncoder calls an embedding server that answers
// {"inputs": [...]} with {"embeddings": [[...], ...]}.
type HTTPEncoder struct {
	URL       string
	Dim       int
	BatchSize int
	ImageSize int
	Client    *http.Client
}

func (e *HTTPEncoder) EncodeText(ctx context.Context, texts []string) ([][]float32, error) {
	batch := e.BatchSize
	if batch <= 0 {
		batch = len(texts)
	}
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += batch {
		end := min(start+batch, len(texts))
		embs, err := e.post(ctx, embedRequest{Inputs: texts[start:end]}, end-start)
		if err != nil {
			return nil, err
		}
		out = append(out, embs...)
	}
	return out, nil
}

func (e *HTTPEncoder) EncodeImages(ctx context.Context, pixels [][]float32) ([][]float32, error) {
	if len(pixels) == 0 {
		return nil, nil
	}
	return e.post(ctx, embedRequest{Inputs: pixels, Shape: []int{3, e.ImageSize, e.ImageSize}}, len(pixels))
}

func (e *HTTPEncoder) post(ctx context.Context, body embedRequest, want int) ([][]float32, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.URL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("encoder request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("encoder %s returned %d: %s", e.URL, resp.StatusCode, bytes.TrimSpace(msg))
	}

	var out embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode encoder response: %w", err)
	}
	if len(out.Embeddings) != want {
		return nil, fmt.Errorf("encoder returned %d embeddings for %d inputs", len(out.Embeddings), want)
	}
	for i, emb := range out.Embeddings {
		if len(emb) != e.Dim {
			return nil, fmt.Errorf("embedding %d has width %d, want %d", i, len(emb), e.Dim)
		}
	}
	return out.Embeddings, nil
}
