// Command ocrpage is a thin CLI around the three External Interface
// functions (§6): it OCRs a page image, optionally groups the result into
// regions, and optionally stamps an invisible text layer onto a PDF.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/wudi/ocrpipe"
	"github.com/wudi/ocrpipe/page"
	"github.com/wudi/ocrpipe/pipeline"
	"github.com/wudi/ocrpipe/regions"
	"github.com/wudi/ocrpipe/textlayer"
)

type options struct {
	imagePath    string
	language     string
	dpi          int
	psm          string
	documentType string
	segment      bool
	debugDrops   bool
	attachPDF    string
	pageIndex    int
	outPDF       string
	scale        float64
	invisible    bool
	debugOpacity float64
}

func main() {
	opts, err := parseFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ocrpage: %v\n", err)
		os.Exit(2)
	}
	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "ocrpage: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags() (options, error) {
	var opts options
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: go run ./cmd/ocrpage [flags] <image>\n")
		flag.PrintDefaults()
	}
	language := flag.String("lang", "eng", "Recognition language (tesseract code)")
	dpi := flag.Int("dpi", 300, "Source image DPI")
	psm := flag.String("psm", "", "Page segmentation mode override (default: script-dependent)")
	documentType := flag.String("document-type", "document", "Document type for segmentation: document|manga")
	segment := flag.Bool("segment", false, "Emit regions instead of the raw page result")
	debugDrops := flag.Bool("debug-drops", false, "Collect and emit filter/recovery drop diagnostics")
	attachPDF := flag.String("attach-pdf", "", "Path to a PDF to stamp an invisible text layer onto")
	pageIndex := flag.Int("page-index", 0, "0-based page index within -attach-pdf to stamp")
	outPDF := flag.String("out-pdf", "", "Output path for the stamped PDF (default: <attach-pdf>.ocr.pdf)")
	scale := flag.Float64("scale", 1.0, "Pixel-to-PDF-user-space scale factor, typically 72/dpi")
	invisible := flag.Bool("invisible", true, "Render the attached text layer invisibly (Tr 3)")
	debugOpacity := flag.Float64("debug-opacity", 0, "Render the attached text layer as a debug overlay instead (Tr 7 plus an opaque rectangle per word; the value is not used as an alpha)")
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		return options{}, fmt.Errorf("missing image path")
	}
	opts.imagePath = flag.Arg(0)
	opts.language = *language
	opts.dpi = *dpi
	opts.psm = *psm
	opts.documentType = *documentType
	opts.segment = *segment
	opts.debugDrops = *debugDrops
	opts.attachPDF = *attachPDF
	opts.pageIndex = *pageIndex
	opts.outPDF = *outPDF
	opts.scale = *scale
	opts.invisible = *invisible
	opts.debugOpacity = *debugOpacity
	return opts, nil
}

func run(opts options) error {
	imageBytes, err := os.ReadFile(opts.imagePath)
	if err != nil {
		return fmt.Errorf("read image: %w", err)
	}
	ctx := context.Background()

	if opts.segment {
		docType := regions.DocumentPlain
		if opts.documentType == "manga" {
			docType = regions.DocumentManga
		}
		found, err := ocrpipe.SegmentPage(ctx, imageBytes, docType, opts.language)
		if err != nil {
			return fmt.Errorf("segment page: %w", err)
		}
		return emit("regions", found)
	}

	result, err := ocrpipe.OCRPage(ctx, imageBytes, pipeline.Request{
		Language:          opts.language,
		DPI:               opts.dpi,
		PSM:               opts.psm,
		DebugCollectDrops: opts.debugDrops,
	})
	if err != nil {
		return fmt.Errorf("ocr page: %w", err)
	}
	if err := emit("result", result); err != nil {
		return err
	}

	if opts.attachPDF == "" {
		return nil
	}
	return attach(opts, result)
}

func attach(opts options, result page.Result) error {
	pdfBytes, err := os.ReadFile(opts.attachPDF)
	if err != nil {
		return fmt.Errorf("read pdf: %w", err)
	}
	out, err := ocrpipe.AttachTextLayer(pdfBytes, opts.pageIndex, result, opts.scale, textlayer.Options{
		Invisible:    opts.invisible,
		DebugOpacity: opts.debugOpacity,
	})
	if err != nil {
		return fmt.Errorf("attach text layer: %w", err)
	}
	outPath := opts.outPDF
	if outPath == "" {
		outPath = opts.attachPDF + ".ocr.pdf"
	}
	if err := os.WriteFile(outPath, out, 0o644); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	fmt.Printf("wrote %s\n", outPath)
	return nil
}

func emit(name string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}
	fmt.Printf("== %s ==\n%s\n\n", name, data)
	return nil
}
