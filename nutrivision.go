// Package nutrivision detects food ingredients in photos with a vision
// language model and annotates each one with nutrition facts.
//
// The model is asked to list ingredients as "[ymin, xmin, ymax, xmax, name]"
// lines on a 0-1000 grid. Its answer is parsed, mapped onto the resized image,
// filtered for non-food and overlapping boxes, deduplicated and joined with a
// nutrition table. When the first prompt yields fewer than three ingredients a
// second, more guided prompt is reconciled against the first.
//
// Basic usage:
//
//	package main
//
//	import (
//		"context"
//		"fmt"
//		"log"
//
//		"github.com/menta2k/nutrivision"
//		"github.com/menta2k/nutrivision/pkg/ollama"
//	)
//
//	func main() {
//		vc, err := ollama.NewClient("http://localhost:11434")
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		a := nutrivision.New(vc)
//		resp, err := a.DetectFile(context.Background(), "ensalada.jpg")
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		for _, d := range resp.Detections {
//			fmt.Printf("%s %.2f %v\n", d.Label, d.Confidence, d.Box)
//		}
//		fmt.Println(resp.Message)
//	}
//
// The package consists of these components:
//
//  1. Parser (pkg/parser): extracts raw detections from free model text
//  2. Geometry and filter (pkg/geometry, pkg/filter): pixel mapping, IoU and label rules
//  3. Nutrition (pkg/nutrition): ingredient table lookup and totals
//  4. Detection (pkg/detection): the two-pass pipeline and request flow
//  5. Clients (pkg/ollama, pkg/llamacpp): vision model backends
package nutrivision

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/menta2k/nutrivision/internal/config"
	"github.com/menta2k/nutrivision/pkg/client"
	"github.com/menta2k/nutrivision/pkg/detection"
	"github.com/menta2k/nutrivision/pkg/filter"
	"github.com/menta2k/nutrivision/pkg/llamacpp"
	"github.com/menta2k/nutrivision/pkg/nutrition"
	"github.com/menta2k/nutrivision/pkg/ollama"
	"github.com/menta2k/nutrivision/pkg/processing"
	"github.com/menta2k/nutrivision/pkg/types"
)

// Version of the nutrivision library
const Version = "2.0.0"

// Analyzer provides a high-level interface over the detection pipeline
type Analyzer struct {
	detector  *detection.Detector
	processor *processing.Processor
}

// New creates an Analyzer with default settings
func New(vc client.VisionClient, opts ...detection.Option) *Analyzer {
	p := processing.NewProcessor()
	opts = append([]detection.Option{detection.WithProcessor(p)}, opts...)
	return &Analyzer{
		detector:  detection.NewDetector(vc, opts...),
		processor: p,
	}
}

// NewFromConfig builds the client, nutrition table and detector described by cfg
func NewFromConfig(cfg *config.Config, log logrus.FieldLogger, recorder detection.Recorder) (*Analyzer, error) {
	vc, err := NewClient(cfg.Model.Backend, cfg.Model.URL, cfg.Model.APIKey, cfg.ModelTimeout())
	if err != nil {
		return nil, err
	}

	table := nutrition.DefaultTable()
	if cfg.Nutrition.TablePath != "" {
		if table, err = nutrition.LoadTable(cfg.Nutrition.TablePath); err != nil {
			return nil, err
		}
	}

	p := processing.NewProcessorWithQuality(cfg.Image.JPEGQuality)
	d := detection.NewDetector(vc,
		detection.WithConfig(cfg.DetectionSettings()),
		detection.WithLogger(log),
		detection.WithRecorder(recorder),
		detection.WithTable(table),
		detection.WithDenylist(filter.NewDenylist(cfg.Detection.ExtraNonFood...)),
		detection.WithProcessor(p),
	)
	return &Analyzer{detector: d, processor: p}, nil
}

// NewClient creates a vision client for backend ("ollama" or "llamacpp")
func NewClient(backend, url, apiKey string, timeout time.Duration) (client.VisionClient, error) {
	switch backend {
	case config.BackendOllama:
		if url == "" {
			url = "http://localhost:11434"
		}
		c, err := ollama.NewClient(url)
		if err != nil {
			return nil, fmt.Errorf("failed to create Ollama client: %w", err)
		}
		if timeout > 0 {
			c.SetTimeout(timeout)
		}
		return c, nil
	case config.BackendLlamaCPP:
		opts := []llamacpp.Option{llamacpp.WithAPIKey(apiKey)}
		if timeout > 0 {
			opts = append(opts, llamacpp.WithTimeout(timeout))
		}
		c, err := llamacpp.NewClient(url, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create llama.cpp client: %w", err)
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown backend: %s (use 'ollama' or 'llamacpp')", backend)
	}
}

// Detector returns the underlying pipeline
func (a *Analyzer) Detector() *detection.Detector {
	return a.detector
}

// DetectBytes runs detection on encoded image bytes
func (a *Analyzer) DetectBytes(ctx context.Context, data []byte) (*types.DetectionResponse, error) {
	return a.detector.DetectIngredients(ctx, data)
}

// DetectFile runs detection on a local file or an http(s) URL
func (a *Analyzer) DetectFile(ctx context.Context, source string) (*types.DetectionResponse, error) {
	data, err := a.processor.LoadImageBytes(source)
	if err != nil {
		return nil, fmt.Errorf("failed to load image: %w", err)
	}
	return a.detector.DetectIngredients(ctx, data)
}

// SaveProcessed writes the annotated image of resp to path. format is
// jpg, png or webp.
func (a *Analyzer) SaveProcessed(resp *types.DetectionResponse, path, format string, quality int) error {
	raw, err := processing.DecodeBase64(resp.ProcessedImage)
	if err != nil {
		return fmt.Errorf("processed image: %w", err)
	}
	img, err := a.processor.DecodeImage(raw)
	if err != nil {
		return fmt.Errorf("processed image: %w", err)
	}
	return a.processor.SaveImage(img, path, format, quality)
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}
