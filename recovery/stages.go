package recovery

import (
	"context"
	"math"

	"github.com/wudi/ocrpipe/filters"
	"github.com/wudi/ocrpipe/geo"
	"github.com/wudi/ocrpipe/page"
	"github.com/wudi/ocrpipe/recognizer"
	"github.com/wudi/ocrpipe/spatial"
)

const veryFewWords = 3
const veryShortTextRunes = 8

// CJKRetry implements §4.G.1: if the initial pass yielded very few words or
// very short text for a CJK page, re-run the whole page against a
// binarized variant of the image (the main pass never binarizes CJK, per
// §4.A's policy) with PSM forced to sparse_text.
func CJKRetry(ctx context.Context, rc Context) (int, error) {
	if !rc.Script.IsCJK() {
		return 0, nil
	}
	if len(rc.State.Words) > veryFewWords && runeCount(rc.State.Words) > veryShortTextRunes {
		return 0, nil
	}
	image := rc.BinarizedImage
	if image == nil {
		image = rc.Image
	}
	req := recognizer.PageRequest{
		Image: image, Width: rc.State.Width, Height: rc.State.Height,
		DPI: rc.State.DPI, Language: rc.State.Language, PSM: "sparse_text",
	}
	out, err := rc.Driver.RecognizePage(ctx, req)
	if err != nil {
		return 0, err
	}
	return admit(rc, filterCJKCandidates(out.Words, rc.Script)), nil
}

func runeCount(words []page.Word) int {
	n := 0
	for _, w := range words {
		n += len([]rune(w.Text))
	}
	return n
}

func filterCJKCandidates(words []page.Word, script page.Script) []page.Word {
	median := page.MedianWordHeight(words)
	kept := make([]page.Word, 0, len(words))
	for _, w := range words {
		if CJKAdmissible(w, median, words, geo.UnionAll(boxesOf(words)), script.Korean) {
			kept = append(kept, w)
		}
	}
	return kept
}

func boxesOf(words []page.Word) []geo.BBox {
	boxes := make([]geo.BBox, len(words))
	for i, w := range words {
		boxes[i] = w.Box
	}
	return boxes
}

// CJKVerticalGapRescan implements §4.G.2: detect large vertical gaps
// between successive line Y-centers, re-recognize up to K widest gaps as
// sparse regions, and admit confident non-empty-alnum words.
func CJKVerticalGapRescan(ctx context.Context, rc Context) (int, error) {
	if !rc.Script.IsCJK() || len(rc.State.Lines) < 2 {
		return 0, nil
	}
	const k = 3
	threshold := math.Max(0.1*float64(rc.State.Height), 1.5*medianLineHeight(rc.State.Lines))

	type gap struct {
		box  geo.BBox
		size float64
	}
	var gaps []gap
	lines := append([]page.Line(nil), rc.State.Lines...)
	sortLinesByY(lines)
	for i := 1; i < len(lines); i++ {
		size := lines[i].Box.CenterY() - lines[i-1].Box.CenterY()
		if size > threshold {
			gaps = append(gaps, gap{
				box:  geo.BBox{X0: 0, Y0: lines[i-1].Box.Y1, X1: float64(rc.State.Width), Y1: lines[i].Box.Y0},
				size: size,
			})
		}
	}
	sortGapsDesc(gaps)
	if len(gaps) > k {
		gaps = gaps[:k]
	}

	var candidates []page.Word
	for _, g := range gaps {
		req := recognizer.PageRequest{
			Image: rc.Image, Width: rc.State.Width, Height: rc.State.Height,
			DPI: rc.State.DPI, Language: rc.State.Language, PSM: "sparse_text",
		}
		out, err := rc.Driver.RecognizeRegion(ctx, req, g.box)
		if err != nil {
			return 0, err
		}
		for _, w := range out.Words {
			if w.Confidence >= 55 && len([]rune(w.Text)) > 0 {
				candidates = append(candidates, w)
			}
		}
	}
	return admit(rc, candidates), nil
}

func medianLineHeight(lines []page.Line) float64 {
	heights := make([]float64, len(lines))
	for i, l := range lines {
		heights[i] = l.Box.Height()
	}
	return median(heights)
}

func median(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sorted := append([]float64(nil), xs...)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j-1] > sorted[j]; j-- {
			sorted[j-1], sorted[j] = sorted[j], sorted[j-1]
		}
	}
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func sortLinesByY(lines []page.Line) {
	for i := 1; i < len(lines); i++ {
		for j := i; j > 0 && lines[j-1].Box.CenterY() > lines[j].Box.CenterY(); j-- {
			lines[j-1], lines[j] = lines[j], lines[j-1]
		}
	}
}

func sortGapsDesc(gaps []struct {
	box  geo.BBox
	size float64
}) {
	for i := 1; i < len(gaps); i++ {
		for j := i; j > 0 && gaps[j-1].size < gaps[j].size; j-- {
			gaps[j-1], gaps[j] = gaps[j], gaps[j-1]
		}
	}
}

// coverageThreshold is the language-specific minimum line coverage ratio
// below which a line is re-scanned (§4.G.3).
func coverageThreshold(script page.Script) float64 {
	if script.IsCJK() {
		return 0.55
	}
	return 0.7
}

// LineRescanLowCoverage implements §4.G.3: re-crop lines whose computed
// coverage against their best LineBox falls below threshold and
// re-recognize with a script-appropriate PSM.
func LineRescanLowCoverage(ctx context.Context, rc Context) (int, error) {
	threshold := coverageThreshold(rc.Script)
	medianHeight := page.MedianWordHeight(rc.State.Words)
	if medianHeight <= 0 {
		return 0, nil
	}

	var candidates []page.Word
	for _, line := range rc.State.Lines {
		ratio := spatial.ComputeLineCoverageRatio(line.Words, line.Box)
		if ratio >= threshold {
			continue
		}
		pad := medianHeight * 0.5
		region := line.Box.Pad(pad, pad).Clamp(float64(rc.State.Width), float64(rc.State.Height))
		psm := "single_line"
		vertical := rc.Script.IsCJK() && region.Height() > region.Width()
		if vertical {
			psm = "sparse_text"
		}
		req := recognizer.PageRequest{
			Image: rc.Image, Width: rc.State.Width, Height: rc.State.Height,
			DPI: rc.State.DPI, Language: rc.State.Language, PSM: psm,
		}
		out, err := rc.Driver.RecognizeRegion(ctx, req, region)
		if err != nil {
			return 0, err
		}
		for _, w := range out.Words {
			if rc.Script.IsLatinOnly() {
				if LatinAdmissible(w) {
					candidates = append(candidates, w)
				}
			} else if CJKAdmissible(w, medianHeight, line.Words, line.Box, rc.Script.Korean) {
				candidates = append(candidates, w)
			}
		}
	}
	return admit(rc, candidates), nil
}

// LatinNeighborhoodRescue implements §4.G.4: when the page is sparse and
// has a readable anchor line, expand around it and admit only lexical
// tokens from a block-level re-recognition.
func LatinNeighborhoodRescue(ctx context.Context, rc Context) (int, error) {
	if !rc.Script.IsLatinOnly() || len(rc.State.Words) > 15 {
		return 0, nil
	}
	anchor, ok := strongestAnchorLine(rc.State.Lines)
	if !ok {
		return 0, nil
	}
	pad := anchor.Box.Height() * 3
	region := anchor.Box.Pad(pad, pad).Clamp(float64(rc.State.Width), float64(rc.State.Height))
	req := recognizer.PageRequest{
		Image: rc.Image, Width: rc.State.Width, Height: rc.State.Height,
		DPI: rc.State.DPI, Language: rc.State.Language, PSM: "single_block",
	}
	out, err := rc.Driver.RecognizeRegion(ctx, req, region)
	if err != nil {
		return 0, err
	}
	var candidates []page.Word
	for _, w := range out.Words {
		if LatinLexicalOnlyAdmissible(w) {
			candidates = append(candidates, w)
		}
	}
	return admit(rc, candidates), nil
}

func strongestAnchorLine(lines []page.Line) (page.Line, bool) {
	var best page.Line
	found := false
	for _, l := range lines {
		if l.Confidence >= 70 && len(l.Words) >= 1 {
			if !found || l.Confidence > best.Confidence {
				best = l
				found = true
			}
		}
	}
	return best, found
}

// EmptyLineBoxFallback implements §4.G.5: re-recognize any LineBox whose
// key never accumulated a word, at single_line PSM.
func EmptyLineBoxFallback(ctx context.Context, rc Context) (int, error) {
	var candidates []page.Word
	medianHeight := page.MedianWordHeight(rc.State.Words)
	for _, lb := range rc.State.LineBoxes {
		if rc.State.LineKeysWithWords[lb.Key] {
			continue
		}
		req := recognizer.PageRequest{
			Image: rc.Image, Width: rc.State.Width, Height: rc.State.Height,
			DPI: rc.State.DPI, Language: rc.State.Language, PSM: "single_line",
		}
		out, err := rc.Driver.RecognizeRegion(ctx, req, lb.Box)
		if err != nil {
			return 0, err
		}
		for _, w := range out.Words {
			if rc.Script.IsLatinOnly() {
				if LatinLexicalOnlyAdmissible(w) {
					candidates = append(candidates, w)
				}
			} else if CJKAdmissible(w, medianHeight, out.Words, lb.Box, rc.Script.Korean) {
				candidates = append(candidates, w)
			}
		}
	}
	return admit(rc, candidates), nil
}

// LargeGapFallback implements §4.G.6: within each accepted line, detect
// internal large gaps and re-recognize each as a single token (Latin) or
// single line (CJK), admitting short valid tokens.
func LargeGapFallback(ctx context.Context, rc Context) (int, error) {
	var candidates []page.Word
	for _, line := range rc.State.Lines {
		gaps := spatial.FindLargeGaps(line.Words, rc.Script.IsCJK())
		for _, g := range gaps {
			psm := "single_word"
			if rc.Script.IsCJK() {
				psm = "single_line"
			}
			req := recognizer.PageRequest{
				Image: rc.Image, Width: rc.State.Width, Height: rc.State.Height,
				DPI: rc.State.DPI, Language: rc.State.Language, PSM: psm,
			}
			out, err := rc.Driver.RecognizeRegion(ctx, req, g)
			if err != nil {
				return 0, err
			}
			for _, w := range out.Words {
				if len([]rune(w.Text)) == 0 || len([]rune(w.Text)) > 6 {
					continue
				}
				if rc.Script.IsLatinOnly() {
					if LatinAdmissible(w) {
						candidates = append(candidates, w)
					}
				} else {
					candidates = append(candidates, w)
				}
			}
		}
	}
	return admit(rc, candidates), nil
}

// TopBandProbe implements §4.G.7: Latin-only. If the earliest recognized
// word sits significantly below the page top, probe the top strip at
// sparse_text.
func TopBandProbe(ctx context.Context, rc Context) (int, error) {
	if !rc.Script.IsLatinOnly() || len(rc.State.Words) == 0 || rc.State.Height == 0 {
		return 0, nil
	}
	minY := rc.State.Words[0].Box.Y0
	for _, w := range rc.State.Words[1:] {
		if w.Box.Y0 < minY {
			minY = w.Box.Y0
		}
	}
	if minY < float64(rc.State.Height)*0.15 {
		return 0, nil
	}
	region := geo.BBox{X0: 0, Y0: 0, X1: float64(rc.State.Width), Y1: float64(rc.State.Height) * 0.15}
	req := recognizer.PageRequest{
		Image: rc.Image, Width: rc.State.Width, Height: rc.State.Height,
		DPI: rc.State.DPI, Language: rc.State.Language, PSM: "sparse_text",
	}
	out, err := rc.Driver.RecognizeRegion(ctx, req, region)
	if err != nil {
		return 0, err
	}
	var candidates []page.Word
	for _, w := range out.Words {
		if LatinAdmissible(w) {
			candidates = append(candidates, w)
		}
	}
	return admit(rc, candidates), nil
}

// PostPruneLineRescue implements §4.G.8: after late prunes shrink content,
// re-probe line-boxes that no longer overlap any surviving line, admitting
// only candidates whose new line is lexical-heavy and readable.
func PostPruneLineRescue(ctx context.Context, rc Context) (int, error) {
	var candidates []page.Word
	for _, lb := range rc.State.LineBoxes {
		if overlapsAnyLine(lb.Box, rc.State.Lines) {
			continue
		}
		req := recognizer.PageRequest{
			Image: rc.Image, Width: rc.State.Width, Height: rc.State.Height,
			DPI: rc.State.DPI, Language: rc.State.Language, PSM: "single_line",
		}
		out, err := rc.Driver.RecognizeRegion(ctx, req, lb.Box)
		if err != nil {
			return 0, err
		}
		if !isLexicalHeavyAndReadable(out.Words) {
			continue
		}
		for _, w := range out.Words {
			if rc.Script.IsLatinOnly() {
				if LatinLexicalOnlyAdmissible(w) {
					candidates = append(candidates, w)
				}
			} else {
				candidates = append(candidates, w)
			}
		}
	}
	return admit(rc, candidates), nil
}

func overlapsAnyLine(box geo.BBox, lines []page.Line) bool {
	for _, l := range lines {
		if geo.IoU(box, l.Box) > 0 || (geo.VerticalOverlapRatio(box, l.Box) > 0 && geo.HorizontalOverlapRatio(box, l.Box) > 0) {
			return true
		}
	}
	return false
}

func isLexicalHeavyAndReadable(words []page.Word) bool {
	if len(words) == 0 {
		return false
	}
	hits := 0
	for _, w := range words {
		if filters.IsLexicalToken(w.Text) {
			hits++
		}
	}
	return hits*2 >= len(words)
}
