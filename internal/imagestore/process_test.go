package imagestore

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.NRGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestProcess(t *testing.T) {
	tests := []struct {
		name         string
		w, h         int
		wantW, wantH int
	}{
		{"wide image is scaled down", 1600, 800, 800, 400},
		{"tall image is scaled down", 900, 1800, 400, 800},
		{"small image is not enlarged", 320, 240, 320, 240},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Process(pngBytes(t, tt.w, tt.h))
			require.NoError(t, err)
			cfg, format, err := image.DecodeConfig(bytes.NewReader(out))
			require.NoError(t, err)
			assert.Equal(t, "jpeg", format)
			assert.Equal(t, tt.wantW, cfg.Width)
			assert.Equal(t, tt.wantH, cfg.Height)
		})
	}
}

func TestProcessRejectsUnsupported(t *testing.T) {
	_, err := Process([]byte("GIF89a not really a gif"))
	assert.ErrorIs(t, err, ErrUnsupportedType)
	_, err = Process([]byte("plain text"))
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

// hugePNG returns a valid 1x1 PNG whose header claims w x h pixels.
func hugePNG(t *testing.T, w, h uint32) []byte {
	t.Helper()
	data := pngBytes(t, 1, 1)
	// IHDR data starts after the signature, chunk length and chunk type.
	binary.BigEndian.PutUint32(data[16:20], w)
	binary.BigEndian.PutUint32(data[20:24], h)
	binary.BigEndian.PutUint32(data[29:33], crc32.ChecksumIEEE(data[12:29]))
	return data
}

func TestProcessRejectsOversizedDimensions(t *testing.T) {
	_, err := Process(hugePNG(t, 30000, 30000))
	assert.ErrorIs(t, err, ErrTooManyPixels)

	_, err = Process(hugePNG(t, 1, MaxPixels+1))
	assert.ErrorIs(t, err, ErrTooManyPixels)
}

func TestReadLimited(t *testing.T) {
	data, err := ReadLimited(strings.NewReader("12345"), 5)
	require.NoError(t, err)
	assert.Equal(t, "12345", string(data))

	_, err = ReadLimited(strings.NewReader("123456"), 5)
	assert.ErrorIs(t, err, ErrTooLarge)
}
