// Package recognizer defines the provider-agnostic OCR driver contract
// (§4.E): one page in, words/lines out, with cancellation and chunked
// recognition built on top of a single-region primitive.
package recognizer

import (
	"context"

	"github.com/wudi/ocrpipe/geo"
	"github.com/wudi/ocrpipe/page"
)

// PageRequest carries the inputs a Driver needs to recognize a page or
// region: the already-preprocessed image bytes plus recognition hints.
type PageRequest struct {
	Image    []byte
	Width    int
	Height   int
	DPI      int
	Language string
	PSM      string
}

// PageOutput is a Driver's raw recognition result, in page coordinates.
type PageOutput struct {
	Words     []page.Word
	Lines     []page.Line
	LineBoxes []page.LineBox
	PlainText string
}

// Driver is the provider-agnostic OCR engine contract. Implementations must
// respect ctx cancellation and return a *page.Error wrapping
// page.KindRecognizer or page.KindRecognizerTimeout on failure.
type Driver interface {
	Name() string
	RecognizePage(ctx context.Context, req PageRequest) (PageOutput, error)
	RecognizeRegion(ctx context.Context, req PageRequest, region geo.BBox) (PageOutput, error)
}

// RecognizeChunked runs RecognizeRegion over each chunk in turn and merges
// the results, which already carry page-space coordinates (§4.E). Any
// driver gets chunked recognition for free by implementing RecognizeRegion.
func RecognizeChunked(ctx context.Context, d Driver, req PageRequest, chunks []geo.BBox) (PageOutput, error) {
	var merged PageOutput
	for _, chunk := range chunks {
		select {
		case <-ctx.Done():
			return PageOutput{}, page.WrapError(page.KindAborted, "recognize-chunked", ctx.Err())
		default:
		}
		out, err := d.RecognizeRegion(ctx, req, chunk)
		if err != nil {
			return PageOutput{}, err
		}
		merged.Words = append(merged.Words, out.Words...)
		merged.Lines = append(merged.Lines, out.Lines...)
		merged.LineBoxes = append(merged.LineBoxes, out.LineBoxes...)
		if merged.PlainText != "" && out.PlainText != "" {
			merged.PlainText += "\n"
		}
		merged.PlainText += out.PlainText
	}
	return merged, nil
}
