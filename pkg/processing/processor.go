package processing

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// DefaultTargetSize is the long side images are resized to before detection
const DefaultTargetSize = 800

// DefaultJPEGQuality is used for images sent to the model and returned to callers
const DefaultJPEGQuality = 90

// ErrUnknownFormat is returned when bytes cannot be decoded as any supported image
var ErrUnknownFormat = errors.New("image: unknown or unsupported format")

// Processor handles image decoding, resizing, annotation and encoding
type Processor struct {
	quality int
}

// NewProcessor creates a new image processor
func NewProcessor() *Processor {
	return &Processor{quality: DefaultJPEGQuality}
}

// NewProcessorWithQuality creates a processor encoding JPEGs at quality
func NewProcessorWithQuality(quality int) *Processor {
	if quality < 1 || quality > 100 {
		quality = DefaultJPEGQuality
	}
	return &Processor{quality: quality}
}

// DecodeImage decodes raw image bytes (JPEG, PNG, WebP)
func (p *Processor) DecodeImage(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrUnknownFormat)
	}

	// Try standard image.Decode first
	if img, _, err := image.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}

	// Try WebP decode
	if img, err := webp.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}

	return nil, ErrUnknownFormat
}

// ResizeKeepAspect scales img so its long side equals target and returns
// the new dimensions. A non-positive target leaves the image unchanged.
func (p *Processor) ResizeKeepAspect(img image.Image, target int) (image.Image, int, int) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if target <= 0 || w == 0 || h == 0 {
		return img, w, h
	}

	var newW, newH int
	if w > h {
		newW = target
		newH = target * h / w
	} else {
		newH = target
		newW = target * w / h
	}
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}

	resized := imaging.Resize(img, newW, newH, imaging.Lanczos)
	return resized, newW, newH
}

// EncodeBase64JPEG encodes img as JPEG and returns plain base64
func (p *Processor) EncodeBase64JPEG(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: p.quality}); err != nil {
		return "", fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// EncodeDataURL encodes img as a JPEG data URL
func (p *Processor) EncodeDataURL(img image.Image) (string, error) {
	b64, err := p.EncodeBase64JPEG(img)
	if err != nil {
		return "", err
	}
	return "data:image/jpeg;base64," + b64, nil
}

// DecodeBase64 accepts plain base64 or a data URL and returns the raw bytes
func DecodeBase64(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "data:") {
		i := strings.Index(s, ",")
		if i < 0 {
			return nil, fmt.Errorf("malformed data URL")
		}
		s = s[i+1:]
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid base64 image: %w", err)
	}
	return data, nil
}

// LoadImageFromURL downloads an image and returns its raw bytes
func (p *Processor) LoadImageFromURL(imageURL string) ([]byte, error) {
	parsedURL, err := url.Parse(imageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return nil, fmt.Errorf("unsupported URL scheme: %s (only http and https are supported)", parsedURL.Scheme)
	}

	client := &http.Client{
		Timeout: 30 * time.Second,
	}

	req, err := http.NewRequest(http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "NutriVision/2.0")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: HTTP %d %s", resp.StatusCode, resp.Status)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return nil, fmt.Errorf("URL does not point to an image (Content-Type: %s)", contentType)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}
	return data, nil
}

// LoadImageBytes reads raw image bytes from either a file path or URL
func (p *Processor) LoadImageBytes(source string) ([]byte, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return p.LoadImageFromURL(source)
	}
	data, err := os.ReadFile(source)
	if err != nil {
		return nil, fmt.Errorf("failed to read image file: %w", err)
	}
	return data, nil
}

// SaveImage saves an image to a file with the specified format and quality
func (p *Processor) SaveImage(img image.Image, path, format string, quality int) error {
	switch strings.ToLower(format) {
	case "webp":
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		return webp.Encode(f, img, &webp.Options{Quality: float32(quality)})
	case "png":
		return imaging.Save(img, path)
	default: // jpg/jpeg
		return imaging.Save(img, path, imaging.JPEGQuality(quality))
	}
}
