package recognizer

import (
	"context"
	"errors"
	"testing"

	"github.com/wudi/ocrpipe/geo"
	"github.com/wudi/ocrpipe/page"
)

type fakeDriver struct {
	regions []geo.BBox
}

func (f *fakeDriver) Name() string { return "fake" }

func (f *fakeDriver) RecognizePage(ctx context.Context, req PageRequest) (PageOutput, error) {
	return PageOutput{PlainText: "page"}, nil
}

func (f *fakeDriver) RecognizeRegion(ctx context.Context, req PageRequest, region geo.BBox) (PageOutput, error) {
	f.regions = append(f.regions, region)
	w := page.Word{ID: page.WordID(len(f.regions)), Text: "x", Box: region}
	return PageOutput{Words: []page.Word{w}, PlainText: "chunk"}, nil
}

func TestRecognizeChunkedMergesAllRegions(t *testing.T) {
	d := &fakeDriver{}
	chunks := []geo.BBox{{X0: 0, Y0: 0, X1: 10, Y1: 10}, {X0: 0, Y0: 10, X1: 10, Y1: 20}}
	out, err := RecognizeChunked(context.Background(), d, PageRequest{}, chunks)
	if err != nil {
		t.Fatalf("RecognizeChunked error: %v", err)
	}
	if len(out.Words) != 2 {
		t.Fatalf("expected 2 merged words, got %d", len(out.Words))
	}
	if out.PlainText != "chunk\nchunk" {
		t.Fatalf("unexpected merged plain text: %q", out.PlainText)
	}
}

func TestRecognizeChunkedStopsOnCancel(t *testing.T) {
	d := &fakeDriver{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := RecognizeChunked(ctx, d, PageRequest{}, []geo.BBox{{X0: 0, Y0: 0, X1: 1, Y1: 1}})
	if err == nil {
		t.Fatalf("expected error for canceled context")
	}
	var pe *page.Error
	if !errors.As(err, &pe) || pe.Kind != page.KindAborted {
		t.Fatalf("expected KindAborted error, got %v", err)
	}
}
