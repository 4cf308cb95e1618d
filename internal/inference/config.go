package inference

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config drives the inference service. Values come from a YAML file and
// environment variables override them.
type Config struct {
	Port            string   `yaml:"port"`
	Environment     string   `yaml:"environment"`
	AllowedOrigins  []string `yaml:"allowed_origins"`
	BackendEndpoint string   `yaml:"backend_endpoint"`

	WindowSize int `yaml:"window_size"`

	TextEncoderURL  string `yaml:"text_encoder_url"`
	ImageEncoderURL string `yaml:"image_encoder_url"`
	ModelURL        string `yaml:"model_url"`
	TextDim         int    `yaml:"text_dim"`
	ImageDim        int    `yaml:"image_dim"`
	TextBatchSize   int    `yaml:"text_batch_size"`

	ImageSize int        `yaml:"image_size"`
	ImageMean [3]float32 `yaml:"image_mean"`
	ImageStd  [3]float32 `yaml:"image_std"`

	FetchConcurrency int           `yaml:"fetch_concurrency"`
	FetchTimeout     time.Duration `yaml:"fetch_timeout"`
	MaxImageBytes    int64         `yaml:"max_image_bytes"`
	EncoderTimeout   time.Duration `yaml:"encoder_timeout"`
	ModelTimeout     time.Duration `yaml:"model_timeout"`
}

// DefaultConfig matches the trained model: a 64-entry window, CLIP ViT-B/32
// preprocessing and 768-wide text and image embeddings.
func DefaultConfig() Config {
	return Config{
		Port:             "8001",
		Environment:      "development",
		AllowedOrigins:   []string{"http://localhost", "http://localhost:8081", "http://localhost:8000"},
		BackendEndpoint:  "http://localhost:8000",
		WindowSize:       64,
		TextEncoderURL:   "http://localhost:8101/embed",
		ImageEncoderURL:  "http://localhost:8102/embed",
		ModelURL:         "http://localhost:8103/forward",
		TextDim:          768,
		ImageDim:         768,
		TextBatchSize:    32,
		ImageSize:        224,
		ImageMean:        [3]float32{0.48145466, 0.4578275, 0.40821073},
		ImageStd:         [3]float32{0.26862954, 0.26130258, 0.27577711},
		FetchConcurrency: 8,
		FetchTimeout:     10 * time.Second,
		MaxImageBytes:    20 << 20,
		EncoderTimeout:   60 * time.Second,
		ModelTimeout:     60 * time.Second,
	}
}

// LoadConfig reads path (if it exists) over the defaults and then applies
// environment overrides. An empty path skips the file.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	cfg.applyEnv()
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() {
	setString(&c.Port, "PORT")
	setString(&c.Environment, "ENV")
	setString(&c.BackendEndpoint, "BACKEND_ENDPOINT")
	setString(&c.TextEncoderURL, "TEXT_ENCODER_URL")
	setString(&c.ImageEncoderURL, "IMAGE_ENCODER_URL")
	setString(&c.ModelURL, "MODEL_URL")
	setInt(&c.WindowSize, "WINDOW_SIZE")
	setInt(&c.FetchConcurrency, "FETCH_CONCURRENCY")
	if v := strings.TrimSpace(os.Getenv("ALLOWED_ORIGINS")); v != "" {
		c.AllowedOrigins = nil
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				c.AllowedOrigins = append(c.AllowedOrigins, o)
			}
		}
	}
	c.BackendEndpoint = strings.TrimRight(c.BackendEndpoint, "/")
}

// Validate rejects settings the tensor assembly cannot work with.
func (c Config) Validate() error {
	switch {
	case c.WindowSize <= 0:
		return errors.New("window_size must be positive")
	case c.TextDim <= 0 || c.ImageDim <= 0:
		return errors.New("text_dim and image_dim must be positive")
	case c.ImageSize <= 0:
		return errors.New("image_size must be positive")
	case c.ModelURL == "":
		return errors.New("model_url is required")
	}
	for i, s := range c.ImageStd {
		if s == 0 {
			return fmt.Errorf("image_std[%d] must be non-zero", i)
		}
	}
	return nil
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return
	}
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		*dst = n
	}
}
