package detection

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/menta2k/nutrivision/pkg/client"
	"github.com/menta2k/nutrivision/pkg/filter"
	"github.com/menta2k/nutrivision/pkg/geometry"
	"github.com/menta2k/nutrivision/pkg/nutrition"
	"github.com/menta2k/nutrivision/pkg/processing"
	"github.com/menta2k/nutrivision/pkg/types"
)

// DefaultModelTimeout bounds model calls when the caller's context has no deadline
const DefaultModelTimeout = 300 * time.Second

// RandSource supplies the confidence variation, uniform in [0, 1)
type RandSource interface {
	Float64() float64
}

// Config tunes the detection pipeline
type Config struct {
	Model                 string
	TargetSize            int
	Offset                geometry.Offset
	MinBoxSize            int
	MinIngredients        int
	PrimaryConfidence     float64
	AlternativeConfidence float64
	ConfidenceVariation   float64
	OverlapThreshold      float64
	PrimaryColor          color.NRGBA
	AlternativeColor      color.NRGBA
	ModelTimeout          time.Duration
}

// DefaultConfig returns the stock pipeline settings
func DefaultConfig() Config {
	return Config{
		Model:                 "qwen2.5vl:7b",
		TargetSize:            processing.DefaultTargetSize,
		Offset:                geometry.DefaultOffset,
		MinBoxSize:            geometry.DefaultMinBoxSize,
		MinIngredients:        3,
		PrimaryConfidence:     0.75,
		AlternativeConfidence: 0.70,
		ConfidenceVariation:   0.20,
		OverlapThreshold:      filter.DefaultOverlapThreshold,
		PrimaryColor:          processing.PrimaryColor,
		AlternativeColor:      processing.AlternativeColor,
		ModelTimeout:          DefaultModelTimeout,
	}
}

// Detector reconciles vision model answers into nutrition-annotated
// ingredient detections. It is safe for concurrent use.
type Detector struct {
	client    client.VisionClient
	config    Config
	log       logrus.FieldLogger
	recorder  Recorder
	table     *nutrition.Table
	denylist  *filter.Denylist
	processor *processing.Processor
	newRand   func() RandSource
}

// Option configures a Detector
type Option func(*Detector)

// WithConfig replaces the pipeline settings
func WithConfig(cfg Config) Option {
	return func(d *Detector) { d.config = cfg }
}

// WithLogger sets the logger
func WithLogger(log logrus.FieldLogger) Option {
	return func(d *Detector) {
		if log != nil {
			d.log = log
		}
	}
}

// WithRecorder sets the metrics recorder
func WithRecorder(r Recorder) Option {
	return func(d *Detector) {
		if r != nil {
			d.recorder = r
		}
	}
}

// WithTable sets the nutrition table
func WithTable(t *nutrition.Table) Option {
	return func(d *Detector) {
		if t != nil {
			d.table = t
		}
	}
}

// WithDenylist sets the non-food label filter
func WithDenylist(dl *filter.Denylist) Option {
	return func(d *Detector) {
		if dl != nil {
			d.denylist = dl
		}
	}
}

// WithRandSource sets the factory called once per request for confidence jitter
func WithRandSource(fn func() RandSource) Option {
	return func(d *Detector) {
		if fn != nil {
			d.newRand = fn
		}
	}
}

// WithProcessor sets the image processor
func WithProcessor(p *processing.Processor) Option {
	return func(d *Detector) {
		if p != nil {
			d.processor = p
		}
	}
}

// NewDetector creates a detector querying the given vision client
func NewDetector(c client.VisionClient, opts ...Option) *Detector {
	silent := logrus.New()
	silent.SetLevel(logrus.PanicLevel)

	d := &Detector{
		client:    c,
		config:    DefaultConfig(),
		log:       silent,
		recorder:  nopRecorder{},
		table:     nutrition.DefaultTable(),
		denylist:  filter.Default,
		processor: processing.NewProcessor(),
		newRand:   defaultRand,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func defaultRand() RandSource {
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

// Config returns the detector's settings
func (d *Detector) Config() Config {
	return d.config
}

// Available reports whether the vision model backend answers
func (d *Detector) Available(ctx context.Context) bool {
	return d.client.Ping(ctx) == nil
}

// DetectIngredients runs the full request flow over raw image bytes
func (d *Detector) DetectIngredients(ctx context.Context, data []byte) (resp *types.DetectionResponse, err error) {
	log := d.log
	if id, ok := RequestIDFromContext(ctx); ok {
		log = log.WithField("request_id", id)
	}
	defer func() {
		n := 0
		if resp != nil {
			n = resp.TotalObjects
		}
		d.recorder.RequestCompleted(n, err)
	}()

	if len(data) == 0 {
		return nil, ErrEmptyImage
	}

	img, err := d.processor.DecodeImage(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeFailure, err)
	}

	resized, width, height := d.processor.ResizeKeepAspect(img, d.config.TargetSize)
	log.WithFields(logrus.Fields{
		"original": fmt.Sprintf("%dx%d", img.Bounds().Dx(), img.Bounds().Dy()),
		"resized":  fmt.Sprintf("%dx%d", width, height),
	}).Info("Image prepared for detection")

	imgB64, err := d.processor.EncodeBase64JPEG(resized)
	if err != nil {
		return nil, fmt.Errorf("encode image for model: %w", err)
	}

	primary, alternative, err := d.callModel(ctx, imgB64, width, height, log)
	if err != nil {
		return nil, err
	}

	out := d.process(primary, alternative, width, height, log)

	canvas := d.processor.Canvas(resized)
	for _, det := range out.Detections {
		c := d.config.PrimaryColor
		if det.Pass == types.PassAlternative {
			c = d.config.AlternativeColor
		}
		d.processor.DrawBox(canvas, det.Box, det.Label, c)
	}

	processed, err := d.processor.EncodeDataURL(canvas)
	if err != nil {
		return nil, fmt.Errorf("encode processed image: %w", err)
	}

	log.WithField("detections", len(out.Detections)).Info("Detection completed")

	return &types.DetectionResponse{
		Success:            true,
		Detections:         out.Detections,
		ProcessedImage:     processed,
		OriginalSize:       types.Size{Width: width, Height: height},
		TotalObjects:       len(out.Detections),
		NutritionalSummary: out.Summary,
		Message:            Message(len(out.Detections)),
	}, nil
}

// callModel asks the model with both prompts at once
func (d *Detector) callModel(ctx context.Context, imgB64 string, width, height int, log logrus.FieldLogger) (string, string, error) {
	if _, ok := ctx.Deadline(); !ok && d.config.ModelTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.config.ModelTimeout)
		defer cancel()
	}

	var primary, alternative string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		primary, err = d.describe(gctx, "primary", PrimaryPrompt(width, height), imgB64, log)
		return err
	})
	g.Go(func() error {
		var err error
		alternative, err = d.describe(gctx, "alternative", AlternativePrompt, imgB64, log)
		return err
	})
	if err := g.Wait(); err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	return primary, alternative, nil
}

func (d *Detector) describe(ctx context.Context, name, prompt, imgB64 string, log logrus.FieldLogger) (string, error) {
	start := time.Now()
	text, err := d.client.Describe(ctx, d.config.Model, prompt, imgB64)
	elapsed := time.Since(start)
	d.recorder.ModelCall(name, elapsed, err)

	entry := log.WithFields(logrus.Fields{"prompt": name, "elapsed": elapsed.Round(time.Millisecond)})
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			entry.WithError(err).Warn("Vision model call failed")
		}
		return "", err
	}
	entry.WithField("chars", len(text)).Debug("Vision model answered")
	return text, nil
}

type requestIDKey struct{}

// ContextWithRequestID tags ctx with a request id for log correlation
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the id set by ContextWithRequestID
func RequestIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey{}).(string)
	return id, ok && id != ""
}

// NewRequestID returns a fresh random request id
func NewRequestID() string {
	return uuid.NewString()
}
