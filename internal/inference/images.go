package inference

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"time"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/errgroup"

	"github.com/AnshRaj112/moodjournal-backend/internal/metrics"
	"github.com/AnshRaj112/moodjournal-backend/pkg/logger"
)

// ImageFetcher downloads and decodes slot images with bounded concurrency.
type ImageFetcher struct {
	Client      *http.Client
	Concurrency int
	MaxBytes    int64
}

func NewImageFetcher(cfg Config) *ImageFetcher {
	return &ImageFetcher{
		Client:      &http.Client{Timeout: cfg.FetchTimeout},
		Concurrency: cfg.FetchConcurrency,
		MaxBytes:    cfg.MaxImageBytes,
	}
}

// FetchAll fills Slot.Image for every slot with an ImageURL. A failed fetch
// or decode is logged and leaves that slot's image empty.
func (f *ImageFetcher) FetchAll(ctx context.Context, slots []Slot) {
	g, gctx := errgroup.WithContext(ctx)
	if f.Concurrency > 0 {
		g.SetLimit(f.Concurrency)
	}
	for i := range slots {
		if slots[i].ImageURL == "" {
			continue
		}
		i := i
		g.Go(func() error {
			img, err := f.fetch(gctx, slots[i].ImageURL)
			if err != nil {
				metrics.RecordInferenceImageFailure()
				logger.L().Warn("image skipped", "url", slots[i].ImageURL, "error", err)
				return nil
			}
			slots[i].Image = img
			return nil
		})
	}
	_ = g.Wait()
}

func (f *ImageFetcher) fetch(ctx context.Context, url string) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	client := f.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch image: status %d", resp.StatusCode)
	}

	var body io.Reader = resp.Body
	if f.MaxBytes > 0 {
		body = io.LimitReader(resp.Body, f.MaxBytes)
	}
	img, _, err := image.Decode(body)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// PreprocessCLIP resizes the shortest side to size with bicubic sampling,
// center-crops to size x size and returns per-channel normalized pixels in
// CHW order.
func PreprocessCLIP(img image.Image, size int, mean, std [3]float32) []float32 {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return make([]float32, 3*size*size)
	}
	nw, nh := size, size
	if w < h {
		nh = (h*size + w/2) / w
	} else {
		nw = (w*size + h/2) / h
	}

	resized := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(resized, resized.Bounds(), img, b, draw.Src, nil)

	x0, y0 := (nw-size)/2, (nh-size)/2
	plane := size * size
	out := make([]float32, 3*plane)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			off := resized.PixOffset(x0+x, y0+y)
			p := resized.Pix[off : off+3 : off+3]
			i := y*size + x
			for c := 0; c < 3; c++ {
				out[c*plane+i] = (float32(p[c])/255 - mean[c]) / std[c]
			}
		}
	}
	return out
}
