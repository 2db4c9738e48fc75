// Package ocrpipe is the root entry point: the three External Interface
// functions (§6) that a caller outside this module is expected to use.
// Everything else — pipeline, recovery, filters, recognizer drivers — is
// implementation detail reachable only through these three calls.
package ocrpipe

import (
	"context"
	"sync"

	"github.com/wudi/ocrpipe/cache"
	"github.com/wudi/ocrpipe/observability"
	"github.com/wudi/ocrpipe/observability/nettrace"
	"github.com/wudi/ocrpipe/page"
	"github.com/wudi/ocrpipe/pipeline"
	"github.com/wudi/ocrpipe/recognizer/tesseract"
	"github.com/wudi/ocrpipe/regions"
	"github.com/wudi/ocrpipe/textlayer"
)

var (
	defaultOnce sync.Once
	defaultOrch *pipeline.Orchestrator
)

// defaultOrchestrator lazily builds a tesseract-backed orchestrator with a
// process-local in-memory cache. Callers that need a shared cache or a custom recognizer
// driver should construct their own pipeline.Orchestrator via
// pipeline.New instead of calling the package-level functions below.
func defaultOrchestrator() *pipeline.Orchestrator {
	defaultOnce.Do(func() {
		defaultOrch = pipeline.New(tesseract.New(), pipeline.Config{
			Cache:  cache.NewMemStore(),
			Logger: observability.NopLogger{},
			Tracer: nettrace.New("ocrpipe"),
		})
	})
	return defaultOrch
}

// OCRPage runs the full recognition-and-recovery pipeline over a single
// page image and returns its PageResult.
func OCRPage(ctx context.Context, imageBytes []byte, req pipeline.Request) (page.Result, error) {
	req.Image = imageBytes
	return defaultOrchestrator().Process(ctx, req)
}

// SegmentPage runs OCRPage and groups the recovered words into regions
// (text blocks, manga balloons/SFX, or other document-type-specific
// clusters) per the document's layout.
func SegmentPage(ctx context.Context, imageBytes []byte, documentType regions.DocumentType, language string) ([]regions.Region, error) {
	result, err := OCRPage(ctx, imageBytes, pipeline.Request{Language: language})
	if err != nil {
		return nil, err
	}
	minSide := regions.MinSide(result.Width, result.Height)
	return regions.Group(result.Words, minSide, documentType), nil
}

// AttachTextLayer stamps an invisible, selectable text layer derived from
// result onto pageIndex of a PDF. It is a thin re-export of
// textlayer.AttachTextLayer so every External Interface function lives at
// the module root.
func AttachTextLayer(pdfBytes []byte, pageIndex int, result page.Result, scale float64, opts textlayer.Options) ([]byte, error) {
	return textlayer.AttachTextLayer(pdfBytes, pageIndex, result, scale, opts)
}
