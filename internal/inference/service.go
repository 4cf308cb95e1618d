package inference

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/AnshRaj112/moodjournal-backend/internal/metrics"
	"github.com/AnshRaj112/moodjournal-backend/pkg/observability"
)

// Service assembles the model window for a /check request and runs one
// forward pass.
type Service struct {
	cfg     Config
	text    TextEncoder
	images  ImageEncoder
	model   Model
	fetcher *ImageFetcher
}

func NewService(cfg Config, text TextEncoder, images ImageEncoder, model Model, fetcher *ImageFetcher) *Service {
	return &Service{cfg: cfg, text: text, images: images, model: model, fetcher: fetcher}
}

// NewHTTPService wires the HTTP encoders and model server from cfg.
func NewHTTPService(cfg Config) *Service {
	encClient := &http.Client{Timeout: cfg.EncoderTimeout}
	return NewService(cfg,
		&HTTPEncoder{URL: cfg.TextEncoderURL, Dim: cfg.TextDim, BatchSize: cfg.TextBatchSize, Client: encClient},
		&HTTPEncoder{URL: cfg.ImageEncoderURL, Dim: cfg.ImageDim, ImageSize: cfg.ImageSize, Client: encClient},
		&HTTPModel{URL: cfg.ModelURL, Client: &http.Client{Timeout: cfg.ModelTimeout}},
		NewImageFetcher(cfg),
	)
}

// Check scores the request's entries. Invalid timestamps fail the request
// with ErrInvalidTimestamp; unusable images only mask their slot.
func (s *Service) Check(ctx context.Context, req CheckRequest) (out *Output, err error) {
	start := time.Now()
	ctx, span := observability.Tracer("inference").Start(ctx, "inference.check")
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		metrics.RecordInference(outcome, time.Since(start))
		span.End()
	}()
	span.SetAttributes(attribute.Int("inference.entries", len(req.Data)))

	slots, err := BuildWindow(req.Data, s.cfg.WindowSize, s.cfg.BackendEndpoint)
	if err != nil {
		return nil, err
	}
	if s.fetcher != nil {
		s.fetcher.FetchAll(ctx, slots)
	}

	in, err := s.assemble(ctx, slots)
	if err != nil {
		return nil, err
	}

	fctx, fspan := observability.Tracer("inference").Start(ctx, "inference.forward")
	out, err = s.model.Forward(fctx, in)
	fspan.End()
	if err != nil {
		return nil, fmt.Errorf("forward pass: %w", err)
	}
	return out, nil
}

// assemble embeds the present modalities and lays them out as model tensors.
// Slots without a modality keep a zero row and a 0 in that modality's mask.
func (s *Service) assemble(ctx context.Context, slots []Slot) (*ModelInput, error) {
	w := len(slots)
	in := &ModelInput{
		TextEmbeddings:  zeros(w, s.cfg.TextDim),
		ImageEmbeddings: zeros(w, s.cfg.ImageDim),
		TextMask:        [][][]float32{{make([]float32, w)}},
		ImageMask:       [][][]float32{{make([]float32, w)}},
		Time:            [][]float64{make([]float64, w)},
	}

	var texts []string
	var textIdx []int
	var pixels [][]float32
	var imageIdx []int
	for i, slot := range slots {
		in.Time[0][i] = slot.Time
		if slot.HasText {
			texts = append(texts, slot.Text)
			textIdx = append(textIdx, i)
		}
		if slot.Image != nil {
			pixels = append(pixels, PreprocessCLIP(slot.Image, s.cfg.ImageSize, s.cfg.ImageMean, s.cfg.ImageStd))
			imageIdx = append(imageIdx, i)
		}
	}

	if len(texts) > 0 {
		embs, err := s.text.EncodeText(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("text embeddings: %w", err)
		}
		for j, i := range textIdx {
			in.TextEmbeddings[i] = embs[j]
			in.TextMask[0][0][i] = 1
		}
	}
	if len(pixels) > 0 {
		embs, err := s.images.EncodeImages(ctx, pixels)
		if err != nil {
			return nil, fmt.Errorf("image embeddings: %w", err)
		}
		for j, i := range imageIdx {
			in.ImageEmbeddings[i] = embs[j]
			in.ImageMask[0][0][i] = 1
		}
	}
	return in, nil
}

func zeros(rows, cols int) [][]float32 {
	out := make([][]float32, rows)
	for i := range out {
		out[i] = make([]float32, cols)
	}
	return out
}
