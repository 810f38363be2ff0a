/**
 * layoutocr - command line front end
 *
 * Recognizes a screenshot locally and prints its text with layout kept,
 * or submits it to the worker queue with -submit.
 */

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/adverant/nexus/layoutocr-worker/internal/config"
	"github.com/adverant/nexus/layoutocr-worker/internal/layout"
	"github.com/adverant/nexus/layoutocr-worker/internal/logging"
	"github.com/adverant/nexus/layoutocr-worker/internal/ocr/tesseract"
	"github.com/adverant/nexus/layoutocr-worker/internal/processor"
	"github.com/adverant/nexus/layoutocr-worker/internal/queue"
	"github.com/adverant/nexus/layoutocr-worker/internal/storage"
	"github.com/joho/godotenv"
)

type options struct {
	language    string
	mode        string
	region      string
	point       string
	deviceScale float64
	noCalibrate bool
	pad         bool
	bandGap     float64
	similar     int
	jsonOut     bool
	timeout     time.Duration

	submit   bool
	backend  string
	redisURL string
	queue    string
}

func main() {
	_ = godotenv.Load(".env")

	opts := options{}
	flag.StringVar(&opts.language, "lang", envOr("OCR_LANGUAGE", "en"), "BCP 47 language of the text")
	flag.StringVar(&opts.mode, "mode", "auto", "output mode: auto, table, spaced or lines")
	flag.StringVar(&opts.region, "region", "", "crop rectangle x,y,width,height in pixels")
	flag.StringVar(&opts.point, "point", "", "report the word under x,y")
	flag.Float64Var(&opts.deviceScale, "scale", 1, "device pixel ratio of the capture")
	flag.BoolVar(&opts.noCalibrate, "no-calibrate", false, "skip scale calibration")
	flag.BoolVar(&opts.pad, "pad", envBool("PAD_SKIPPED_COLUMNS"), "emit one tab per skipped column in tables")
	flag.Float64Var(&opts.bandGap, "band-gap", envFloat("MIN_BAND_GAP_CHARS", 2), "minimum gap between columns in average character widths")
	flag.IntVar(&opts.similar, "similar", 0, "list up to N stored captures with a similar layout (needs DATABASE_URL and QDRANT_URL)")
	flag.BoolVar(&opts.jsonOut, "json", false, "print the full result as JSON")
	flag.DurationVar(&opts.timeout, "timeout", 2*time.Minute, "overall time limit")
	flag.BoolVar(&opts.submit, "submit", false, "enqueue the image for the worker instead of recognizing it")
	flag.StringVar(&opts.backend, "backend", envOr("QUEUE_BACKEND", config.QueueBackendRedis), "queue backend for -submit: redis or asynq")
	flag.StringVar(&opts.redisURL, "redis", envOr("REDIS_URL", "redis://localhost:6379"), "Redis URL for -submit")
	flag.StringVar(&opts.queue, "queue", envOr("QUEUE_NAME", queue.DefaultRedisQueue), "queue name for -submit")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: layoutocr [flags] <image|->\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(opts, flag.Arg(0), os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "layoutocr: %v\n", err)
		os.Exit(1)
	}
}

func run(opts options, path string, out io.Writer) error {
	image, err := readImage(path)
	if err != nil {
		return err
	}

	payload, err := buildPayload(opts, image)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), opts.timeout)
	defer cancel()

	if opts.submit {
		return submit(ctx, opts, payload, out)
	}

	req, err := payload.ToRequest()
	if err != nil {
		return err
	}

	logger := logging.NewLoggerWithOutput("layoutocr", logging.ParseLevel(os.Getenv("LOG_LEVEL")), os.Stderr)
	if os.Getenv("LOG_LEVEL") == "" {
		logger.SetLevel(logging.LevelWarn)
	}

	pipeline := processor.NewPipeline(tesseract.New(nil), processor.PipelineConfig{
		Language:          opts.language,
		Calibrate:         !opts.noCalibrate,
		TrailingNewline:   true,
		PadSkippedColumns: opts.pad,
		Analyzer:          layout.AnalyzerConfig{MinBandGapChars: opts.bandGap},
	}, logger)

	result, err := pipeline.Run(ctx, req)
	if err != nil {
		return err
	}

	if opts.jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return err
		}
	} else {
		if _, err := io.WriteString(out, result.Text); err != nil {
			return err
		}
		if result.ClickedWord != "" {
			fmt.Fprintf(os.Stderr, "word at point: %s\n", result.ClickedWord)
		}
	}

	if opts.similar > 0 {
		return listSimilar(ctx, result, opts.similar, os.Stderr)
	}
	return nil
}

// listSimilar looks the capture's layout signature up in the stored index
func listSimilar(ctx context.Context, result *processor.CaptureResult, limit int, w io.Writer) error {
	if result.Layout.Empty() {
		fmt.Fprintln(w, "no words recognized, nothing to compare")
		return nil
	}

	qdrantURL := os.Getenv("QDRANT_URL")
	if qdrantURL == "" {
		return fmt.Errorf("-similar needs QDRANT_URL")
	}

	sm, err := storage.NewStorageManager(os.Getenv("DATABASE_URL"), qdrantURL, envOr("QDRANT_COLLECTION", "layoutocr_signatures"))
	if err != nil {
		return err
	}
	defer sm.Close()

	hits, err := sm.FindSimilarLayouts(ctx, result.Signature, limit)
	if err != nil {
		return err
	}
	printSimilar(w, hits)
	return nil
}

func printSimilar(w io.Writer, hits []*storage.SimilarLayout) {
	if len(hits) == 0 {
		fmt.Fprintln(w, "no similar layouts stored")
		return
	}
	for _, h := range hits {
		first := h.Text
		if i := strings.IndexByte(first, '\n'); i >= 0 {
			first = first[:i]
		}
		fmt.Fprintf(w, "%.3f\t%s\t%s\t%s\n", h.SimilarityScore, h.JobID, h.Mode, first)
	}
}

func submit(ctx context.Context, opts options, payload *queue.JobPayload, out io.Writer) error {
	cfg := &queue.ProducerConfig{RedisURL: opts.redisURL, QueueName: opts.queue}

	var (
		producer queue.Producer
		err      error
	)
	switch strings.ToLower(opts.backend) {
	case config.QueueBackendAsynq:
		producer, err = queue.NewAsynqProducer(cfg)
	case config.QueueBackendRedis:
		producer, err = queue.NewRedisProducer(cfg)
	default:
		return fmt.Errorf("unknown backend %q", opts.backend)
	}
	if err != nil {
		return err
	}
	defer producer.Close()

	jobID, err := producer.EnqueueCapture(ctx, payload)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, jobID)
	return nil
}

func buildPayload(opts options, image []byte) (*queue.JobPayload, error) {
	payload := &queue.JobPayload{
		ImageBuffer: image,
		Language:    opts.language,
		Mode:        opts.mode,
		DeviceScale: opts.deviceScale,
	}
	if opts.noCalibrate {
		calibrate := false
		payload.Calibrate = &calibrate
	}

	if opts.region != "" {
		v, err := parseInts(opts.region, 4)
		if err != nil {
			return nil, fmt.Errorf("invalid -region: %w", err)
		}
		payload.Region = &processor.Region{X: v[0], Y: v[1], Width: v[2], Height: v[3]}
	}

	if opts.point != "" {
		v, err := parseInts(opts.point, 2)
		if err != nil {
			return nil, fmt.Errorf("invalid -point: %w", err)
		}
		payload.Point = &processor.Point{X: float64(v[0]), Y: float64(v[1])}
	}

	// The local path needs an id for ToRequest; -submit lets the producer pick one.
	if !opts.submit {
		payload.JobID = "local"
	}
	return payload, nil
}

func parseInts(s string, n int) ([]int, error) {
	parts := strings.Split(s, ",")
	if len(parts) != n {
		return nil, fmt.Errorf("want %d comma separated numbers, got %q", n, s)
	}
	out := make([]int, n)
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func readImage(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func envBool(key string) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	return err == nil && v
}

func envFloat(key string, fallback float64) float64 {
	v, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return fallback
	}
	return v
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
