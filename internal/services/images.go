package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/AnshRaj112/moodjournal-backend/internal/models"
)

const (
	// ImageURLPrefix is where locally stored images are served from.
	ImageURLPrefix = "/images/"
	jpegQuality    = 85
	maxImageSide   = 2048
)

// ImageStore persists an encoded image under name and returns its public URL.
type ImageStore interface {
	Save(ctx context.Context, name string, data []byte) (string, error)
}

// LocalImageStore writes images to a directory served under ImageURLPrefix.
type LocalImageStore struct {
	Dir string
}

func NewLocalImageStore(dir string) (*LocalImageStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create image dir: %w", err)
	}
	return &LocalImageStore{Dir: dir}, nil
}

func (s *LocalImageStore) Save(_ context.Context, name string, data []byte) (string, error) {
	if err := os.WriteFile(filepath.Join(s.Dir, filepath.Base(name)), data, 0o644); err != nil {
		return "", err
	}
	return ImageURLPrefix + filepath.Base(name), nil
}

// Images is the process-wide image store; nil disables uploads.
var Images ImageStore

func EntryImageName(userID int64, date models.Date) string {
	return fmt.Sprintf("%d-%s-%s.jpg", userID, date.String(), uuid.NewString())
}

func ProfileImageName(userID int64) string {
	return fmt.Sprintf("%d-icon-%s.jpg", userID, uuid.NewString())
}

// StoreImage normalizes a base64 payload and saves it under name.
func StoreImage(ctx context.Context, payload, name string) (string, error) {
	if Images == nil {
		return "", ErrImageStoreDisabled
	}
	data, err := NormalizeImage(payload)
	if err != nil {
		return "", err
	}
	return Images.Save(ctx, name, data)
}

// NormalizeImage decodes a base64 image (optionally a data URL), flattens any
// transparency onto white, bounds its size and re-encodes it as JPEG.
func NormalizeImage(payload string) ([]byte, error) {
	if i := strings.Index(payload, ";base64,"); i != -1 && strings.HasPrefix(payload, "data:") {
		payload = payload[i+len(";base64,"):]
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(payload))
	if err != nil {
		return nil, ErrInvalidImage
	}
	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, ErrInvalidImage
	}

	b := src.Bounds()
	dstRect := image.Rect(0, 0, b.Dx(), b.Dy())
	if w, h := b.Dx(), b.Dy(); w > maxImageSide || h > maxImageSide {
		if w >= h {
			dstRect = image.Rect(0, 0, maxImageSide, h*maxImageSide/w)
		} else {
			dstRect = image.Rect(0, 0, w*maxImageSide/h, maxImageSide)
		}
	}

	dst := image.NewRGBA(dstRect)
	draw.Draw(dst, dstRect, image.NewUniform(color.White), image.Point{}, draw.Src)
	if dstRect.Dx() == b.Dx() && dstRect.Dy() == b.Dy() {
		draw.Draw(dst, dstRect, src, b.Min, draw.Over)
	} else {
		draw.CatmullRom.Scale(dst, dstRect, src, b, draw.Over, nil)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
