package processing

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/menta2k/nutrivision/pkg/types"
)

// createTestImage creates a simple test image
func createTestImage(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r := uint8((x * 255) / width)
			g := uint8((y * 255) / height)
			img.Set(x, y, color.RGBA{r, g, 128, 255})
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestDecodeImage(t *testing.T) {
	p := NewProcessor()

	img, err := p.DecodeImage(encodePNG(t, createTestImage(64, 32)))
	if err != nil {
		t.Fatalf("DecodeImage failed: %v", err)
	}
	if img.Bounds().Dx() != 64 || img.Bounds().Dy() != 32 {
		t.Errorf("Unexpected bounds %v", img.Bounds())
	}

	if _, err := p.DecodeImage([]byte("definitely not an image")); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("Expected ErrUnknownFormat, got %v", err)
	}
	if _, err := p.DecodeImage(nil); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("Expected ErrUnknownFormat for empty input, got %v", err)
	}
}

func TestResizeKeepAspect(t *testing.T) {
	p := NewProcessor()

	tests := []struct {
		w, h, target int
		wantW, wantH int
	}{
		{1600, 1200, 800, 800, 600},
		{1200, 1600, 800, 600, 800},
		{400, 400, 800, 800, 800},
		{300, 200, 0, 300, 200},
	}

	for _, tt := range tests {
		resized, w, h := p.ResizeKeepAspect(createTestImage(tt.w, tt.h), tt.target)
		if w != tt.wantW || h != tt.wantH {
			t.Errorf("%dx%d -> %d: expected %dx%d, got %dx%d", tt.w, tt.h, tt.target, tt.wantW, tt.wantH, w, h)
		}
		if resized.Bounds().Dx() != w || resized.Bounds().Dy() != h {
			t.Errorf("Reported size %dx%d does not match image %v", w, h, resized.Bounds())
		}
	}
}

func TestEncodeDataURL(t *testing.T) {
	p := NewProcessor()
	url, err := p.EncodeDataURL(createTestImage(20, 20))
	if err != nil {
		t.Fatalf("EncodeDataURL failed: %v", err)
	}
	if !strings.HasPrefix(url, "data:image/jpeg;base64,") {
		t.Fatalf("Expected JPEG data URL, got %q", url[:30])
	}

	raw, err := DecodeBase64(url)
	if err != nil {
		t.Fatalf("DecodeBase64 failed: %v", err)
	}
	if _, err := p.DecodeImage(raw); err != nil {
		t.Errorf("Round-tripped JPEG did not decode: %v", err)
	}
}

func TestDecodeBase64(t *testing.T) {
	plain := base64.StdEncoding.EncodeToString([]byte("abc"))
	for _, in := range []string{plain, "data:image/png;base64," + plain, "  " + plain + "\n"} {
		got, err := DecodeBase64(in)
		if err != nil || string(got) != "abc" {
			t.Errorf("DecodeBase64(%q): got %q, %v", in, got, err)
		}
	}
	if _, err := DecodeBase64("data:image/png;base64"); err == nil {
		t.Error("Expected error for data URL without payload")
	}
	if _, err := DecodeBase64("!!!"); err == nil {
		t.Error("Expected error for invalid base64")
	}
}

func TestDrawBox(t *testing.T) {
	p := NewProcessor()
	canvas := p.Canvas(image.NewRGBA(image.Rect(0, 0, 200, 200)))

	box := types.PixelBox{X1: 50, Y1: 60, X2: 150, Y2: 160}
	p.DrawBox(canvas, box, "Tomate", PrimaryColor)

	if got := canvas.NRGBAAt(100, 60); got != PrimaryColor {
		t.Errorf("Expected top edge in box colour, got %v", got)
	}
	if got := canvas.NRGBAAt(149, 100); got != PrimaryColor {
		t.Errorf("Expected right edge in box colour, got %v", got)
	}
	if got := canvas.NRGBAAt(100, 100); got == PrimaryColor {
		t.Error("Expected box interior to be untouched")
	}
	// Label tab sits just above the box
	if got := canvas.NRGBAAt(52, 56); got != PrimaryColor && got != (color.NRGBA{0, 0, 0, 255}) {
		t.Errorf("Expected label tab above the box, got %v", got)
	}
}

func TestDrawBoxClipsToImage(t *testing.T) {
	p := NewProcessor()
	canvas := p.Canvas(image.NewRGBA(image.Rect(0, 0, 50, 50)))
	// Must not panic on boxes touching or exceeding the edges
	p.DrawBox(canvas, types.PixelBox{X1: 0, Y1: 0, X2: 80, Y2: 80}, "Arroz con pollo", AlternativeColor)
	if got := canvas.NRGBAAt(0, 30); got != AlternativeColor {
		t.Errorf("Expected left edge in box colour, got %v", got)
	}
}

func TestParseColor(t *testing.T) {
	c, err := ParseColor("#ff0000")
	if err != nil {
		t.Fatal(err)
	}
	if c != AlternativeColor {
		t.Errorf("Expected red, got %v", c)
	}
	if _, err := ParseColor("green"); err == nil {
		t.Error("Expected error for non-hex colour")
	}
}

func TestTextColorFor(t *testing.T) {
	if got := textColorFor(PrimaryColor); got != (color.NRGBA{0, 0, 0, 255}) {
		t.Errorf("Expected black text on bright green, got %v", got)
	}
	if got := textColorFor(color.NRGBA{0, 0, 128, 255}); got != (color.NRGBA{255, 255, 255, 255}) {
		t.Errorf("Expected white text on navy, got %v", got)
	}
}

func TestLoadImageBytes(t *testing.T) {
	p := NewProcessor()
	data := encodePNG(t, createTestImage(10, 10))

	path := filepath.Join(t.TempDir(), "in.png")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := p.LoadImageBytes(path)
	if err != nil || !bytes.Equal(got, data) {
		t.Errorf("LoadImageBytes(file) failed: %v", err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/text" {
			w.Header().Set("Content-Type", "text/plain")
			w.Write([]byte("hi"))
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(data)
	}))
	defer srv.Close()

	got, err = p.LoadImageBytes(srv.URL + "/img.png")
	if err != nil || !bytes.Equal(got, data) {
		t.Errorf("LoadImageBytes(url) failed: %v", err)
	}
	if _, err := p.LoadImageBytes(srv.URL + "/text"); err == nil {
		t.Error("Expected error for non-image content type")
	}
}

func TestSaveImage(t *testing.T) {
	p := NewProcessor()
	img := createTestImage(16, 16)
	dir := t.TempDir()

	for _, format := range []string{"jpg", "png", "webp"} {
		path := filepath.Join(dir, "out."+format)
		if err := p.SaveImage(img, path, format, 80); err != nil {
			t.Errorf("SaveImage(%s) failed: %v", format, err)
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := p.DecodeImage(data); err != nil {
			t.Errorf("Saved %s did not decode: %v", format, err)
		}
	}
}
