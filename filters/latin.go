package filters

import (
	"github.com/wudi/ocrpipe/geo"
	"github.com/wudi/ocrpipe/page"
)

// ApplyWatermarkSuppression implements filter 8 (§4.F.8): drop tokens whose
// uppercase alnum matches a known watermark signature, sitting in the top
// or bottom band with small height, along with their close neighbors in
// the same band.
func ApplyWatermarkSuppression(st *page.State, script page.Script, cfg Thresholds) []page.Drop {
	if st.Height == 0 {
		return st.Drops
	}
	pageHeight := float64(st.Height)
	band := pageHeight * cfg.WatermarkBandRatio
	medianHeight := page.MedianWordHeight(st.Words)

	hit := make(map[page.WordID]bool)
	for _, w := range st.Words {
		if st.IsProtected(w.ID) {
			continue
		}
		if !isWatermark(w.Text) {
			continue
		}
		inBand := w.Box.Y0 <= band || w.Box.Y1 >= pageHeight-band
		heightRatio := w.Box.Height() / pageHeight
		if inBand && heightRatio <= cfg.WatermarkMaxHeightRatio {
			hit[w.ID] = true
		}
	}
	if len(hit) == 0 {
		return st.Drops
	}

	gap := medianHeight * cfg.WatermarkNeighborGap
	kept := make([]page.Word, 0, len(st.Words))
	for _, w := range st.Words {
		if st.IsProtected(w.ID) {
			kept = append(kept, w)
			continue
		}
		if hit[w.ID] {
			continue
		}
		if nearWatermarkHit(w, st.Words, hit, gap) {
			continue
		}
		kept = append(kept, w)
	}
	st.KeepWords("watermark_suppression", kept, "watermark signature")
	return st.Drops
}

func nearWatermarkHit(w page.Word, words []page.Word, hit map[page.WordID]bool, gap float64) bool {
	for _, other := range words {
		if !hit[other.ID] {
			continue
		}
		if geo.VerticalOverlapRatio(w.Box, other.Box) <= 0 {
			continue
		}
		if geo.MinHorizontalGap(w.Box, other.Box) <= gap {
			return true
		}
	}
	return false
}

// ApplyLatinGarbagePruners implements filter 9 (§4.F.9): only runs for
// purely Latin-scripted pages. Drops edge ghosts, isolated noise lines,
// (in high-recall mode) non-lexical short lines, and merges fragmented
// baseline-aligned lines.
func ApplyLatinGarbagePruners(st *page.State, script page.Script, cfg Thresholds, highRecall bool) []page.Drop {
	if !script.IsLatinOnly() {
		return st.Drops
	}
	st.Lines = mergeFragmentedLines(st.Lines, cfg)

	pageHeight := float64(st.Height)
	band := pageHeight * cfg.EdgeBandRatio
	medianLineH := medianLineHeight(st.Lines)

	dropLine := make(map[int]bool)
	for i, line := range st.Lines {
		if lineProtected(st, line) {
			continue
		}
		readability := LineReadability(line, cfg)
		lexicalHits := LineLexicalHits(line)

		if len(line.Words) == 1 && pageHeight > 0 &&
			(line.Box.Y0 <= band || line.Box.Y1 >= pageHeight-band) &&
			readability < cfg.ReadabilityMinScore {
			dropLine[i] = true
			continue
		}

		if len(line.Words) <= 2 && readability < cfg.ReadabilityMinScore && lexicalHits < cfg.ReadabilityMinLexicalHits {
			if !hasCloseNeighborLine(line, i, st.Lines, medianLineH, cfg) {
				dropLine[i] = true
				continue
			}
		}

		if highRecall && lexicalHits == 0 && len(line.Words) <= 3 {
			dropLine[i] = true
			continue
		}
	}
	if len(dropLine) == 0 {
		return st.Drops
	}

	kept := make([]page.Word, 0, len(st.Words))
	for i, line := range st.Lines {
		for _, w := range line.Words {
			if dropLine[i] && !st.IsProtected(w.ID) {
				continue
			}
			kept = append(kept, w)
		}
	}
	st.KeepWords("latin_garbage_pruners", kept, "garbage Latin line")
	return st.Drops
}

func lineProtected(st *page.State, line page.Line) bool {
	for _, w := range line.Words {
		if st.IsProtected(w.ID) {
			return true
		}
	}
	return false
}

func hasCloseNeighborLine(line page.Line, idx int, lines []page.Line, medianLineH float64, cfg Thresholds) bool {
	for i, other := range lines {
		if i == idx {
			continue
		}
		rowAdjacent := geo.MinVerticalGap(line.Box, other.Box) <= medianLineH*cfg.IsolatedRowAdjacentHeightX &&
			geo.HorizontalOverlapRatio(line.Box, other.Box) > 0
		shorter := line.Box.Width()
		if other.Box.Width() < shorter {
			shorter = other.Box.Width()
		}
		xOverlap := 0.0
		if shorter > 0 {
			xOverlap = horizontalOverlapPixels(line.Box, other.Box) / shorter
		}
		blockAdjacent := xOverlap >= cfg.BlockAdjacentXOverlapRatio
		if rowAdjacent || blockAdjacent {
			return true
		}
	}
	return false
}

func horizontalOverlapPixels(a, b geo.BBox) float64 {
	lo := a.X0
	if b.X0 > lo {
		lo = b.X0
	}
	hi := a.X1
	if b.X1 < hi {
		hi = b.X1
	}
	if hi <= lo {
		return 0
	}
	return hi - lo
}

// mergeFragmentedLines merges consecutive short Latin fragments that sit
// on the same baseline and carry at least one lexical token into a single
// line (§4.F.9 "Fragmented-line merging").
func mergeFragmentedLines(lines []page.Line, cfg Thresholds) []page.Line {
	if len(lines) < 2 {
		return lines
	}
	merged := make([]page.Line, 0, len(lines))
	i := 0
	for i < len(lines) {
		cur := lines[i]
		j := i + 1
		for j < len(lines) && shouldMergeFragment(cur, lines[j], cfg) {
			cur = combineLine(cur, lines[j])
			j++
		}
		merged = append(merged, cur)
		i = j
	}
	return merged
}

func shouldMergeFragment(a, b page.Line, cfg Thresholds) bool {
	if len(a.Words) > 3 || len(b.Words) > 3 {
		return false
	}
	if LineLexicalHits(a) == 0 && LineLexicalHits(b) == 0 {
		return false
	}
	baselineGap := abs(a.Box.Y1 - b.Box.Y1)
	tolerance := cfg.FragmentBaselineTolerance * avgHeight(a, b)
	return baselineGap <= tolerance
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func avgHeight(a, b page.Line) float64 {
	return (a.Box.Height() + b.Box.Height()) / 2
}

func combineLine(a, b page.Line) page.Line {
	words := append(append([]page.Word{}, a.Words...), b.Words...)
	box := geo.UnionAll([]geo.BBox{a.Box, b.Box})
	text := a.Text + " " + b.Text
	conf := (a.Confidence*float64(len(a.Words)) + b.Confidence*float64(len(b.Words))) / float64(len(words))
	return page.Line{Text: text, Confidence: conf, Box: box, Words: words}
}

// ShouldUseHighRecall resolves §9 Open Question 2: high-recall mode (an
// extra ApplyLatinGarbagePruners rule that drops short lines with no
// lexical hits) triggers when the final word count is small AND no line is
// both highly readable and well-populated.
func ShouldUseHighRecall(st *page.State, cfg Thresholds) bool {
	if len(st.Words) > cfg.HighRecallMaxWordCount {
		return false
	}
	return !hasStrongReadableLine(st.Lines, cfg)
}

func hasStrongReadableLine(lines []page.Line, cfg Thresholds) bool {
	for _, line := range lines {
		if LineReadability(line, cfg) >= cfg.ReadabilityMinScore && len(line.Words) >= 3 {
			return true
		}
	}
	return false
}
