// Package tesseract implements recognizer.Driver on top of the gosseract
// Tesseract bindings, emitting word- and line-level boxes in page
// coordinates (§4.E).
package tesseract

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"math"
	"strconv"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/wudi/ocrpipe/geo"
	"github.com/wudi/ocrpipe/page"
	"github.com/wudi/ocrpipe/recognizer"
	"github.com/wudi/ocrpipe/textutil"
	"github.com/wudi/ocrpipe/tsv"
)

// Driver recognizes pages using a fresh gosseract.Client per call.
// clientFactory is overridable in tests.
type Driver struct {
	clientFactory func() *gosseract.Client
}

// New constructs a Tesseract-backed recognizer.Driver.
func New() *Driver {
	return &Driver{clientFactory: gosseract.NewClient}
}

func (d *Driver) Name() string { return "tesseract" }

func (d *Driver) RecognizePage(ctx context.Context, req recognizer.PageRequest) (recognizer.PageOutput, error) {
	return d.recognize(ctx, req, nil)
}

func (d *Driver) RecognizeRegion(ctx context.Context, req recognizer.PageRequest, region geo.BBox) (recognizer.PageOutput, error) {
	return d.recognize(ctx, req, &region)
}

func (d *Driver) recognize(ctx context.Context, req recognizer.PageRequest, region *geo.BBox) (recognizer.PageOutput, error) {
	select {
	case <-ctx.Done():
		return recognizer.PageOutput{}, page.WrapError(page.KindAborted, "tesseract-recognize", ctx.Err())
	default:
	}

	imgData, offsetX, offsetY, err := cropImage(req.Image, region)
	if err != nil {
		return recognizer.PageOutput{}, page.WrapError(page.KindRecognizer, "crop", err)
	}

	c := d.clientFactory()
	defer c.Close()

	if err := c.SetImageFromBytes(imgData); err != nil {
		return recognizer.PageOutput{}, page.WrapError(page.KindRecognizer, "set-image", err)
	}
	if langs := textutil.SplitLangCodes(req.Language); len(langs) > 0 {
		if err := c.SetLanguage(langs...); err != nil {
			return recognizer.PageOutput{}, page.WrapError(page.KindRecognizer, "set-language", err)
		}
	}
	if req.DPI > 0 {
		if err := c.SetVariable(gosseract.SettableVariable("user_defined_dpi"), strconv.Itoa(req.DPI)); err != nil {
			return recognizer.PageOutput{}, page.WrapError(page.KindRecognizer, "set-dpi", err)
		}
	}
	if psm, ok := parsePSM(req.PSM); ok {
		if err := c.SetPageSegMode(psm); err != nil {
			return recognizer.PageOutput{}, page.WrapError(page.KindRecognizer, "set-psm", err)
		}
	}

	type textResult struct {
		text string
		err  error
	}
	done := make(chan textResult, 1)
	go func() {
		text, err := c.Text()
		done <- textResult{text: text, err: err}
	}()

	var text string
	select {
	case <-ctx.Done():
		return recognizer.PageOutput{}, page.WrapError(page.KindRecognizerTimeout, "tesseract-recognize", ctx.Err())
	case r := <-done:
		if r.err != nil {
			return recognizer.PageOutput{}, page.WrapError(page.KindRecognizer, "recognize-text", r.err)
		}
		text = r.text
	}

	tsvData, err := buildTSV(c, offsetX, offsetY)
	if err != nil {
		return recognizer.PageOutput{}, page.WrapError(page.KindRecognizer, "build-tsv", err)
	}
	st := page.NewState(req.Width, req.Height, req.DPI, req.Language, req.PSM)
	if err := tsv.Parse(bytes.NewReader(tsvData), st); err != nil {
		return recognizer.PageOutput{}, page.WrapError(page.KindRecognizer, "parse-tsv", err)
	}

	return recognizer.PageOutput{
		Words:     st.Words,
		Lines:     st.Lines,
		LineBoxes: st.LineBoxes,
		PlainText: strings.TrimSpace(text),
	}, nil
}

// buildTSV reconstructs a §4.B-shaped TSV byte stream (level, page, block,
// par, line, word, left, top, width, height, conf, text) from gosseract's
// per-level bounding boxes. gosseract does not expose tesseract's native
// TSV writer directly, so the hierarchy (block/par/line numbering) is
// rebuilt here from RIL_BLOCK/RIL_PARA/RIL_TEXTLINE/RIL_WORD geometry by
// containment, then fed through tsv.Parse like any other recognizer's TSV
// output, giving line keys the real "page-block-par-line" shape instead of
// a positional placeholder.
func buildTSV(c *gosseract.Client, offsetX, offsetY float64) ([]byte, error) {
	blocks, err := c.GetBoundingBoxes(gosseract.RIL_BLOCK)
	if err != nil {
		return nil, err
	}
	pars, err := c.GetBoundingBoxes(gosseract.RIL_PARA)
	if err != nil {
		return nil, err
	}
	lines, err := c.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return nil, err
	}
	words, err := c.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, err
	}

	parBlockNum := make([]int, len(pars))
	for i, p := range pars {
		blockIdx := containingIndex(blocks, p.Box)
		blockNum := blockIdx + 1
		if blockNum < 1 {
			blockNum = 1
		}
		parBlockNum[i] = blockNum
	}

	lineBlockNum := make([]int, len(lines))
	lineParNum := make([]int, len(lines))
	for i, l := range lines {
		parIdx := containingIndex(pars, l.Box)
		blockNum, parNum := 1, 0
		if parIdx >= 0 {
			blockNum = parBlockNum[parIdx]
			parNum = parIdx + 1
		}
		lineBlockNum[i] = blockNum
		lineParNum[i] = parNum
	}

	var buf bytes.Buffer
	lineLineNum := make([]int, len(lines))
	seenLine := make(map[[2]int]int)
	for i, l := range lines {
		key := [2]int{lineBlockNum[i], lineParNum[i]}
		seenLine[key]++
		lineLineNum[i] = seenLine[key]
		box := geo.BBox{
			X0: offsetX + float64(l.Box.Min.X), Y0: offsetY + float64(l.Box.Min.Y),
			X1: offsetX + float64(l.Box.Max.X), Y1: offsetY + float64(l.Box.Max.Y),
		}
		writeTSVRow(&buf, tsvRow{
			level: 4, page: 1, block: lineBlockNum[i], par: lineParNum[i], line: lineLineNum[i], word: 0,
			box: box, conf: -1,
		})
	}

	lineWordCounter := make(map[int]int)
	for _, w := range words {
		text := textutil.NFC(strings.TrimSpace(w.Word))
		if text == "" {
			continue
		}
		lineIdx := containingIndex(lines, w.Box)
		blockNum, parNum, lineNum := 1, 0, 0
		if lineIdx >= 0 {
			blockNum, parNum, lineNum = lineBlockNum[lineIdx], lineParNum[lineIdx], lineLineNum[lineIdx]
		}
		lineWordCounter[lineIdx]++
		box := geo.BBox{
			X0: offsetX + float64(w.Box.Min.X), Y0: offsetY + float64(w.Box.Min.Y),
			X1: offsetX + float64(w.Box.Max.X), Y1: offsetY + float64(w.Box.Max.Y),
		}
		writeTSVRow(&buf, tsvRow{
			level: 5, page: 1, block: blockNum, par: parNum, line: lineNum, word: lineWordCounter[lineIdx],
			box: box, conf: w.Confidence, text: text,
		})
	}

	return buf.Bytes(), nil
}

type tsvRow struct {
	level, page, block, par, line, word int
	box                                 geo.BBox
	conf                                float64
	text                                string
}

func writeTSVRow(buf *bytes.Buffer, r tsvRow) {
	fmt.Fprintf(buf, "%d\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%.1f\t%s\n",
		r.level, r.page, r.block, r.par, r.line, r.word,
		int(math.Round(r.box.X0)), int(math.Round(r.box.Y0)),
		int(math.Round(r.box.Width())), int(math.Round(r.box.Height())),
		r.conf, r.text)
}

// containingIndex returns the index of the box in boxes whose rectangle
// contains sub's center point, or, failing that, the box with the largest
// overlap area with sub. Returns -1 if boxes is empty or nothing overlaps.
func containingIndex(boxes []gosseract.BoundingBox, sub image.Rectangle) int {
	if len(boxes) == 0 {
		return -1
	}
	cx, cy := (sub.Min.X+sub.Max.X)/2, (sub.Min.Y+sub.Max.Y)/2
	for i, b := range boxes {
		if cx >= b.Box.Min.X && cx < b.Box.Max.X && cy >= b.Box.Min.Y && cy < b.Box.Max.Y {
			return i
		}
	}
	best, bestArea := -1, 0
	for i, b := range boxes {
		area := b.Box.Intersect(sub).Dx() * b.Box.Intersect(sub).Dy()
		if area > bestArea {
			bestArea, best = area, i
		}
	}
	return best
}

// parsePSM accepts either a raw Tesseract PSM integer or one of a handful of
// named modes used elsewhere in the pipeline's Config.
func parsePSM(psm string) (gosseract.PageSegMode, bool) {
	psm = strings.TrimSpace(strings.ToLower(psm))
	if psm == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(psm); err == nil {
		return gosseract.PageSegMode(n), true
	}
	switch psm {
	case "auto":
		return gosseract.PSM_AUTO, true
	case "single_block":
		return gosseract.PSM_SINGLE_BLOCK, true
	case "single_line":
		return gosseract.PSM_SINGLE_LINE, true
	case "single_word":
		return gosseract.PSM_SINGLE_WORD, true
	case "sparse_text":
		return gosseract.PSM_SPARSE_TEXT, true
	default:
		return 0, false
	}
}

// cropImage returns the (possibly full, possibly cropped) image bytes for
// recognition plus the page-space offset of its top-left corner.
func cropImage(data []byte, region *geo.BBox) ([]byte, float64, float64, error) {
	if region == nil || region.IsEmpty() {
		return data, 0, 0, nil
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, 0, 0, fmt.Errorf("decode for region: %w", err)
	}
	rect := image.Rect(
		int(math.Round(region.X0)),
		int(math.Round(region.Y0)),
		int(math.Round(region.X1)),
		int(math.Round(region.Y1)),
	).Intersect(img.Bounds())
	if rect.Empty() {
		return nil, 0, 0, fmt.Errorf("region outside image bounds")
	}
	subImg, ok := img.(interface {
		SubImage(r image.Rectangle) image.Image
	})
	if !ok {
		return nil, 0, 0, fmt.Errorf("image does not support sub-image")
	}
	cropped := subImg.SubImage(rect)
	var buf bytes.Buffer
	if err := png.Encode(&buf, cropped); err != nil {
		return nil, 0, 0, fmt.Errorf("encode cropped image: %w", err)
	}
	return buf.Bytes(), float64(rect.Min.X), float64(rect.Min.Y), nil
}
