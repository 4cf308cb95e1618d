package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
)

// ModelInput is the tensor bundle for one forward pass over a window of W
// slots: embeddings [W][D], masks [1][1][W] and time [1][W].
type ModelInput struct {
	TextEmbeddings  [][]float32   `json:"text_embeddings"`
	ImageEmbeddings [][]float32   `json:"image_embeddings"`
	TextMask        [][][]float32 `json:"text_mask"`
	ImageMask       [][][]float32 `json:"image_mask"`
	Time            [][]float64   `json:"time"`
}

// Output is what /check returns.
type Output struct {
	Logits []float64 `json:"logits"`
	Probas []float64 `json:"probas"`
}

// Model runs the multimodal transformer.
type Model interface {
	Forward(ctx context.Context, in *ModelInput) (*Output, error)
}

var ErrEmptyModelOutput = errors.New("model returned no logits")

// HTTPModel posts the tensors to a model server.
type HTTPModel struct {
	URL    string
	Client *http.Client
}

func (m *HTTPModel) Forward(ctx context.Context, in *ModelInput) (*Output, error) {
	payload, err := json.Marshal(in)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.URL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("model request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("model returned %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	var out Output
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode model response: %w", err)
	}
	return completeOutput(&out)
}

// completeOutput derives probas with a sigmoid when the server only sent logits.
func completeOutput(out *Output) (*Output, error) {
	if len(out.Probas) > 0 {
		return out, nil
	}
	if len(out.Logits) == 0 {
		return nil, ErrEmptyModelOutput
	}
	out.Probas = make([]float64, len(out.Logits))
	for i, l := range out.Logits {
		out.Probas[i] = sigmoid(l)
	}
	return out, nil
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
