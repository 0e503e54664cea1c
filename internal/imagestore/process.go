package imagestore

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

const (
	MaxDimension = 800
	JPEGQuality  = 85
	OutputType   = "image/jpeg"
	OutputExt    = ".jpg"
	// MaxPixels bounds the decoded size of an upload, checked from the header.
	MaxPixels = 40_000_000
)

var (
	ErrUnsupportedType = errors.New("invalid file type, only JPEG, PNG, and WebP are allowed")
	ErrTooLarge        = errors.New("image is too large")
	ErrTooManyPixels   = errors.New("image dimensions are too large")
)

var allowedTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// Process validates an uploaded image by content sniffing and header size,
// scales it down to fit inside MaxDimension x MaxDimension and re-encodes it as JPEG.
func Process(data []byte) ([]byte, error) {
	if !allowedTypes[http.DetectContentType(data)] {
		return nil, ErrUnsupportedType
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image header: %w", err)
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, fmt.Errorf("%w: %dx%d", ErrTooManyPixels, cfg.Width, cfg.Height)
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	img = imaging.Fit(img, MaxDimension, MaxDimension, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(JPEGQuality)); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	return buf.Bytes(), nil
}

// ReadLimited reads at most limit bytes and fails if r holds more.
func ReadLimited(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrTooLarge, limit)
	}
	return data, nil
}
