package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/menta2k/nutrivision"
	"github.com/menta2k/nutrivision/internal/config"
	"github.com/menta2k/nutrivision/internal/logging"
	"github.com/menta2k/nutrivision/internal/utils"
)

func main() {
	var in, outDir, backend, url, model, configPath, ext string
	var quality int
	var debug bool

	flag.StringVar(&in, "in", "", "input image path, directory or URL (jpg/png/webp)")
	flag.StringVar(&outDir, "out", "out", "output directory")
	flag.StringVar(&backend, "backend", "", "backend to use: ollama or llamacpp (overrides config)")
	flag.StringVar(&url, "url", "", "model server URL (overrides config)")
	flag.StringVar(&model, "model", "", "model name (overrides config)")
	flag.StringVar(&configPath, "config", config.GetConfigPath(), "configuration file")
	flag.StringVar(&ext, "ext", "jpg", "annotated image format: jpg|png|webp")
	flag.IntVar(&quality, "quality", 90, "annotated image quality (1-100)")
	flag.BoolVar(&debug, "debug", false, "verbose logging")
	flag.Parse()

	if in == "" {
		fmt.Fprintf(os.Stderr, "usage: %s -in image.jpg|dir|URL [-backend ollama|llamacpp] [-url server_url] [-model name] [-out outdir]\n", filepath.Base(os.Args[0]))
		os.Exit(2)
	}
	if !utils.IsOutputFormat(ext) {
		fmt.Fprintf(os.Stderr, "unsupported -ext %q: use jpg, png or webp\n", ext)
		os.Exit(2)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if backend != "" {
		cfg.Model.Backend = backend
	}
	if url != "" {
		cfg.Model.URL = url
	}
	if model != "" {
		cfg.Model.Name = model
	}
	if debug {
		cfg.Logging.Level = "debug"
	}

	log, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	analyzer, err := nutrivision.NewFromConfig(cfg, log, nil)
	if err != nil {
		log.Fatal(err)
	}

	if err := utils.EnsureDir(outDir); err != nil {
		log.Fatal(err)
	}

	inputs := []string{in}
	if !utils.IsURL(in) && utils.DirExists(in) {
		if inputs, err = utils.ListImageFiles(in); err != nil {
			log.Fatal(err)
		}
		if len(inputs) == 0 {
			log.Fatalf("no images found in %s", in)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	failed := 0
	for _, input := range inputs {
		if ctx.Err() != nil {
			break
		}
		if err := processOne(ctx, analyzer, log, input, outDir, ext, quality); err != nil {
			log.WithError(err).WithField("input", input).Error("Detection failed")
			failed++
		}
	}

	if failed > 0 {
		log.Warnf("%d of %d images failed", failed, len(inputs))
		os.Exit(1)
	}
}

func processOne(ctx context.Context, a *nutrivision.Analyzer, log logrus.FieldLogger, input, outDir, ext string, quality int) error {
	resp, err := a.DetectFile(ctx, input)
	if err != nil {
		return err
	}

	for _, d := range resp.Detections {
		log.WithFields(logrus.Fields{
			"id":         d.ID,
			"confidence": d.Confidence,
			"bbox":       fmt.Sprintf("%d,%d,%d,%d", d.Box.X1, d.Box.Y1, d.Box.X2, d.Box.Y2),
			"calories":   d.Nutrition.Calories,
		}).Info(d.Label)
	}
	log.WithFields(logrus.Fields{
		"input":          input,
		"total_calories": resp.NutritionalSummary.TotalCalories,
	}).Info(resp.Message)

	imgPath := utils.GenerateOutputFilename(input, outDir, "", "_detected", ext)
	if err := a.SaveProcessed(resp, imgPath, ext, quality); err != nil {
		return fmt.Errorf("save annotated image: %w", err)
	}
	if info, err := os.Stat(imgPath); err == nil {
		log.Infof("wrote %s (%s)", imgPath, utils.FormatFileSize(info.Size()))
	}

	// The data URL is already on disk as an image
	resp.ProcessedImage = ""
	js, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return err
	}
	jsonPath := utils.GenerateOutputFilename(input, outDir, "", "_detected", "json")
	if err := os.WriteFile(jsonPath, js, 0o644); err != nil {
		return fmt.Errorf("save detections: %w", err)
	}
	log.Infof("wrote %s", jsonPath)
	return nil
}
