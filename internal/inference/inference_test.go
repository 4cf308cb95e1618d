package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"2024-05-01", 1714521600},
		{"2024-05-01T00:00:00Z", 1714521600},
		{"2024-05-01T02:00:00+02:00", 1714521600},
		{"2024-05-01T00:00:00", 1714521600},
		{"2024-05-01T00:00:00.5Z", 1714521600.5},
	}
	for _, tt := range tests {
		got, err := ParseTimestamp(tt.in)
		require.NoError(t, err, tt.in)
		assert.InDelta(t, tt.want, got, 1e-6, tt.in)
	}

	_, err := ParseTimestamp("May 1st")
	assert.ErrorIs(t, err, ErrInvalidTimestamp)
}

func TestBuildWindowPadsAndTruncates(t *testing.T) {
	entries := []Entry{
		{Text: strPtr("a"), Timestamp: "2024-05-01"},
		{Image: strPtr("/images/7-2024-05-02.jpg"), Timestamp: "2024-05-02"},
		{Text: strPtr("c"), Timestamp: "2024-05-03"},
	}

	slots, err := BuildWindow(entries, 4, "http://backend:8000/")
	require.NoError(t, err)
	require.Len(t, slots, 4)
	assert.True(t, slots[0].HasText)
	assert.False(t, slots[1].HasText)
	assert.Equal(t, "http://backend:8000/images/7-2024-05-02.jpg", slots[1].ImageURL)
	assert.Equal(t, Slot{}, slots[3], "padding slot is empty at time 0")

	slots, err = BuildWindow(entries, 2, "")
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.Equal(t, "a", slots[0].Text)

	slots, err = BuildWindow([]Entry{{Text: strPtr(""), Timestamp: "2024-05-01"}}, 2, "")
	require.NoError(t, err)
	assert.True(t, slots[0].HasText, "empty text is still a text entry")
	assert.False(t, slots[1].HasText)

	_, err = BuildWindow([]Entry{{Timestamp: "bad"}}, 2, "")
	assert.ErrorIs(t, err, ErrInvalidTimestamp)
}

func TestResolveImageURL(t *testing.T) {
	assert.Equal(t, "https://res.cloudinary.com/x.jpg", ResolveImageURL("http://b", "https://res.cloudinary.com/x.jpg"))
	assert.Equal(t, "http://b/images/x.jpg", ResolveImageURL("http://b/", "/images/x.jpg"))
	assert.Equal(t, "http://b/images/x.jpg", ResolveImageURL("http://b", "images/x.jpg"))
}

func TestPreprocessCLIP(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 30, 20))
	for y := 0; y < 20; y++ {
		for x := 0; x < 30; x++ {
			img.Set(x, y, color.White)
		}
	}
	cfg := DefaultConfig()
	out := PreprocessCLIP(img, 4, cfg.ImageMean, cfg.ImageStd)
	require.Len(t, out, 3*4*4)
	for c := 0; c < 3; c++ {
		want := (1 - cfg.ImageMean[c]) / cfg.ImageStd[c]
		for i := 0; i < 16; i++ {
			assert.InDelta(t, want, out[c*16+i], 1e-3)
		}
	}
}

func TestCompleteOutputSigmoid(t *testing.T) {
	out, err := completeOutput(&Output{Logits: []float64{0}})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, out.Probas[0], 1e-9)

	_, err = completeOutput(&Output{})
	assert.ErrorIs(t, err, ErrEmptyModelOutput)
}

type fakeEncoder struct {
	dim   int
	calls int
}

func (f *fakeEncoder) EncodeText(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	return f.rows(len(texts)), nil
}

func (f *fakeEncoder) EncodeImages(_ context.Context, pixels [][]float32) ([][]float32, error) {
	f.calls++
	return f.rows(len(pixels)), nil
}

func (f *fakeEncoder) rows(n int) [][]float32 {
	out := make([][]float32, n)
	for i := range out {
		out[i] = make([]float32, f.dim)
		for j := range out[i] {
			out[i][j] = 1
		}
	}
	return out
}

type captureModel struct {
	got *ModelInput
}

func (m *captureModel) Forward(_ context.Context, in *ModelInput) (*Output, error) {
	m.got = in
	return completeOutput(&Output{Logits: []float64{2}})
}

func pngServer(t *testing.T) *httptest.Server {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 8, 8))))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/images/ok.png" {
			http.NotFound(w, r)
			return
		}
		w.Write(buf.Bytes())
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testService(t *testing.T, backend string) (*Service, *captureModel) {
	t.Helper()
	cfg := DefaultConfig()
	cfg.WindowSize = 4
	cfg.TextDim = 3
	cfg.ImageDim = 2
	cfg.ImageSize = 4
	cfg.BackendEndpoint = backend
	model := &captureModel{}
	svc := NewService(cfg, &fakeEncoder{dim: 3}, &fakeEncoder{dim: 2}, model, NewImageFetcher(cfg))
	return svc, model
}

func TestServiceCheckMasksMissingModalities(t *testing.T) {
	srv := pngServer(t)
	svc, model := testService(t, srv.URL)

	out, err := svc.Check(context.Background(), CheckRequest{Data: []Entry{
		{Text: strPtr("title\nbody"), Image: strPtr("/images/ok.png"), Timestamp: "2024-05-01"},
		{Text: strPtr("second"), Image: strPtr("/images/missing.png"), Timestamp: "2024-05-02T00:00:00Z"},
	}})
	require.NoError(t, err)
	assert.InDelta(t, 0.8808, out.Probas[0], 1e-3)

	in := model.got
	require.NotNil(t, in)
	assert.Equal(t, []float32{1, 1, 0, 0}, in.TextMask[0][0])
	assert.Equal(t, []float32{1, 0, 0, 0}, in.ImageMask[0][0], "failed fetch keeps its slot masked")
	assert.Equal(t, []float32{1, 1}, in.ImageEmbeddings[0])
	assert.Equal(t, []float32{0, 0}, in.ImageEmbeddings[1])
	assert.Equal(t, []float32{0, 0, 0}, in.TextEmbeddings[3])
	assert.Equal(t, []float64{1714521600, 1714608000, 0, 0}, in.Time[0])
}

func TestCheckHandler(t *testing.T) {
	svc, _ := testService(t, "http://unused")
	h := NewRouter(svc, []string{"http://localhost:8081"})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/check",
		strings.NewReader(`{"data":[{"text":"hi","timestamp":"yesterday"}]}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/check",
		strings.NewReader(`{"data":[{"text":"hi","timestamp":"2024-05-01T08:00:00Z"}]}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	var out Output
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Len(t, out.Logits, 1)
	assert.Len(t, out.Probas, 1)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, "OK", rec.Body.String())
}

func TestHTTPEncoderBatchesAndChecksWidth(t *testing.T) {
	var batches int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		batches++
		var req struct {
			Inputs []string `json:"inputs"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		embs := make([][]float32, len(req.Inputs))
		for i := range embs {
			embs[i] = []float32{0.1, 0.2}
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"embeddings": embs})
	}))
	defer srv.Close()

	enc := &HTTPEncoder{URL: srv.URL, Dim: 2, BatchSize: 2, Client: srv.Client()}
	embs, err := enc.EncodeText(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Len(t, embs, 3)
	assert.Equal(t, 2, batches)

	enc.Dim = 5
	_, err = enc.EncodeText(context.Background(), []string{"a"})
	assert.Error(t, err)
}

func TestHTTPModelSigmoidFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"logits":[0]}`))
	}))
	defer srv.Close()

	out, err := (&HTTPModel{URL: srv.URL, Client: srv.Client()}).Forward(context.Background(), &ModelInput{})
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5}, out.Probas)
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("WINDOW_SIZE", "")
	path := filepath.Join(t.TempDir(), "inference.yaml")
	require.NoError(t, os.WriteFile(path, []byte("window_size: 16\nfetch_timeout: 3s\nbackend_endpoint: http://api/\n"), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 16, cfg.WindowSize)
	assert.Equal(t, 3*time.Second, cfg.FetchTimeout)
	assert.Equal(t, "http://api", cfg.BackendEndpoint)
	assert.Equal(t, 768, cfg.TextDim, "unset keys keep defaults")

	cfg, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 64, cfg.WindowSize)
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inference.yaml")
	require.NoError(t, os.WriteFile(path, []byte("window_size: 16\n"), 0o644))
	t.Setenv("WINDOW_SIZE", "8")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.WindowSize)
}
