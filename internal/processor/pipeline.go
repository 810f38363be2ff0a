/**
 * Capture Pipeline
 *
 * decode → crop → calibrate → scale → recognize → extract → analyze → render
 *
 * Every run owns its image and its result; a Pipeline can serve concurrent
 * runs. Recognition is the only step that blocks and is bounded by its own
 * timeout.
 */

package processor

import (
	"context"
	"image"
	"time"

	"golang.org/x/text/language"

	"github.com/adverant/nexus/layoutocr-worker/internal/errors"
	"github.com/adverant/nexus/layoutocr-worker/internal/layout"
	"github.com/adverant/nexus/layoutocr-worker/internal/logging"
	"github.com/adverant/nexus/layoutocr-worker/internal/ocr"
	"github.com/adverant/nexus/layoutocr-worker/internal/render"
)

// PipelineConfig holds pipeline defaults
type PipelineConfig struct {
	Language           string
	Calibrate          bool
	TrailingNewline    bool
	PadSkippedColumns  bool
	RecognitionTimeout time.Duration
	MaxImageSize       int64
	Analyzer           layout.AnalyzerConfig
}

// Pipeline turns one image into laid-out text
type Pipeline struct {
	engine   ocr.Engine
	analyzer *layout.Analyzer
	config   PipelineConfig
	loader   *imageLoader
	logger   *logging.Logger
}

// NewPipeline creates a pipeline around a recognizer
func NewPipeline(engine ocr.Engine, cfg PipelineConfig, logger *logging.Logger) *Pipeline {
	if cfg.Language == "" {
		cfg.Language = "en"
	}
	if cfg.RecognitionTimeout <= 0 {
		cfg.RecognitionTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = logging.NewLogger("pipeline")
	}
	return &Pipeline{
		engine:   engine,
		analyzer: layout.NewAnalyzerWithConfig(cfg.Analyzer),
		config:   cfg,
		loader:   newImageLoader(cfg.MaxImageSize, logger),
		logger:   logger,
	}
}

// Run processes a single capture. Recognition errors are returned as the
// recognizer layer produced them.
func (p *Pipeline) Run(ctx context.Context, req *CaptureRequest) (*CaptureResult, error) {
	start := time.Now()
	log := p.logger.With("job", req.JobID)

	// Step 1: Load and decode
	data, err := p.loader.load(ctx, req)
	if err != nil {
		return nil, err
	}
	img, format, err := ocr.DecodeImage(data)
	if err != nil {
		return nil, errors.NewInvalidImageError(req.JobID, err)
	}
	log.Debug("image decoded", "format", format, "mime", detectImageMimeType(data),
		"width", img.Bounds().Dx(), "height", img.Bounds().Dy())

	// Step 2: Crop
	if req.Region != nil {
		img, err = ocr.CropImage(img, req.Region.Rectangle())
		if err != nil {
			return nil, errors.NewInvalidImageError(req.JobID, err)
		}
	}

	langName := req.Language
	if langName == "" {
		langName = p.config.Language
	}
	lang, err := ocr.ParseLanguage(langName)
	if err != nil {
		return nil, errors.NewRecognitionUnavailableError(langName, err)
	}

	mode := req.Mode
	if mode == "" {
		mode = ModeAuto
	}

	// Step 3: Calibrate
	scale := 1.0
	calibrate := p.config.Calibrate
	if req.Calibrate != nil {
		calibrate = *req.Calibrate
	}
	if calibrate {
		cal, err := p.calibrate(ctx, img, lang)
		if err != nil {
			return nil, err
		}
		scale = cal.ScaleFactor
		log.Debug("calibrated", "scale", scale, "probeWords", cal.ProbeWords, "avgHeight", cal.AverageHeight)
	}

	// Step 4: Recognize
	lines, err := p.recognize(ctx, ocr.ScaleImage(img, scale), lang, scale, req.DeviceScale)
	if err != nil {
		return nil, err
	}

	// Step 5: Layout
	spaceJoining := ocr.IsSpaceJoining(lang)
	analysed := p.analyzer.Analyze(layout.Extract(lines, spaceJoining))

	visible := analysed
	if len(req.Selection) > 0 {
		visible = layout.NewSelection(req.Selection...).Filter(analysed)
	}

	// Step 6: Render
	text, usedMode := p.render(mode, visible, lines, lang)

	result := &CaptureResult{
		Text:        text,
		Mode:        usedMode,
		Language:    lang.String(),
		Layout:      analysed,
		ScaleFactor: scale,
		WordCount:   countWords(lines),
		Confidence:  meanConfidence(lines),
		Signature:   LayoutSignature(analysed),
	}

	if req.Point != nil {
		if atom, ok := layout.AtomAt(analysed, req.Point.X, req.Point.Y); ok {
			result.ClickedWord = atom.Text
		}
	}

	result.ProcessingTimeMs = time.Since(start).Milliseconds()
	log.Info("capture processed", "mode", usedMode, "rows", len(analysed.Rows),
		"tabular", analysed.IsTabular, "words", result.WordCount, "scale", scale)

	return result, nil
}

func (p *Pipeline) calibrate(ctx context.Context, img image.Image, lang language.Tag) (*ocr.CalibrationResult, error) {
	recCtx, cancel := context.WithTimeout(ctx, p.config.RecognitionTimeout)
	defer cancel()
	return ocr.Calibrate(recCtx, p.engine, img, lang)
}

func (p *Pipeline) recognize(ctx context.Context, img image.Image, lang language.Tag, scale, deviceScale float64) ([]ocr.RecognizedLine, error) {
	recCtx, cancel := context.WithTimeout(ctx, p.config.RecognitionTimeout)
	defer cancel()
	return ocr.Recognize(recCtx, p.engine, img, lang, scale, deviceScale)
}

// render picks the serializer for mode and returns the mode actually used
func (p *Pipeline) render(mode Mode, result *layout.LayoutResult, lines []ocr.RecognizedLine, lang language.Tag) (string, Mode) {
	switch mode {
	case ModeLines:
		return render.Lines(lines, ocr.IsSpaceJoining(lang), ocr.IsRightToLeft(lang)), ModeLines
	case ModeSpaced:
		return p.proportional(result), ModeSpaced
	default:
		if result.IsTabular {
			return render.Tabular(result.Rows, render.TabularOptions{
				PadSkippedColumns: p.config.PadSkippedColumns,
			}), ModeTable
		}
		return p.proportional(result), ModeSpaced
	}
}

func (p *Pipeline) proportional(result *layout.LayoutResult) string {
	return render.Proportional(result, render.ProportionalOptions{
		TrailingNewline: p.config.TrailingNewline,
	})
}

func countWords(lines []ocr.RecognizedLine) int {
	n := 0
	for _, l := range lines {
		n += len(l.Words)
	}
	return n
}

func meanConfidence(lines []ocr.RecognizedLine) float64 {
	var sum float64
	n := 0
	for _, l := range lines {
		for _, w := range l.Words {
			sum += w.Confidence
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
