package filters

import (
	"github.com/wudi/ocrpipe/geo"
	"github.com/wudi/ocrpipe/page"
	"github.com/wudi/ocrpipe/textutil"
)

// ApplyIsolatedCJKNoise implements filter 5 (§4.F.5): a non-Latin token
// without a close neighbor (vertically or horizontally aligned, within
// 1.5x median height) is dropped unless its confidence is very high.
func ApplyIsolatedCJKNoise(st *page.State, script page.Script, cfg Thresholds) []page.Drop {
	if !script.IsCJK() && !script.IsThai() {
		return st.Drops
	}
	medianHeight := page.MedianWordHeight(st.Words)
	if medianHeight <= 0 {
		return st.Drops
	}
	reach := medianHeight * cfg.CJKNeighborHeightMultiplier

	kept := make([]page.Word, 0, len(st.Words))
	for _, w := range st.Words {
		if st.IsProtected(w.ID) || textutil.ClassifyText(w.Text) == textutil.ScriptLatin {
			kept = append(kept, w)
			continue
		}
		if w.Confidence >= cfg.CJKHighConfidenceKeep || hasCloseNeighbor(w, st.Words, reach) {
			kept = append(kept, w)
		}
	}
	st.KeepWords("isolated_cjk_noise", kept, "no aligned neighbor within reach")
	return st.Drops
}

func hasCloseNeighbor(w page.Word, words []page.Word, reach float64) bool {
	for _, other := range words {
		if other.ID == w.ID {
			continue
		}
		vGap := geo.MinVerticalGap(w.Box, other.Box)
		hGap := geo.MinHorizontalGap(w.Box, other.Box)
		alignedVertically := hGap <= reach && geo.VerticalOverlapRatio(w.Box, other.Box) > 0
		alignedHorizontally := vGap <= reach && geo.HorizontalOverlapRatio(w.Box, other.Box) > 0
		if alignedVertically || alignedHorizontally {
			return true
		}
	}
	return false
}

// ApplyKoreanJamoGhosts implements filter 6 (§4.F.6): only runs when the
// requested language includes Korean. Drops pure-jamo short tokens and
// low-confidence jamo/syllable mixes at a syllable edge, while keeping
// high-confidence repeated-jamo tokens (laughter, e.g. "ㅋㅋㅋ").
func ApplyKoreanJamoGhosts(st *page.State, script page.Script, cfg Thresholds) []page.Drop {
	if !script.Korean {
		return st.Drops
	}
	kept := make([]page.Word, 0, len(st.Words))
	for _, w := range st.Words {
		if st.IsProtected(w.ID) || !isJamoGhostCandidate(w, cfg) {
			kept = append(kept, w)
		}
	}
	st.KeepWords("korean_jamo_ghosts", kept, "jamo ghost token")
	return st.Drops
}

func isJamoGhostCandidate(w page.Word, cfg Thresholds) bool {
	runes := []rune(w.Text)
	if len(runes) == 0 {
		return false
	}
	var jamoCount, syllableCount int
	for _, r := range runes {
		switch {
		case textutil.IsJamo(r):
			jamoCount++
		case textutil.IsKoreanJamoOrSyllable(r):
			syllableCount++
		}
	}
	if jamoCount == 0 {
		return false
	}
	if jamoCount == len(runes) {
		if repeatedRune(runes) && w.Confidence >= cfg.JamoRepeatedConfidence {
			return false // high-confidence repeated-jamo laughter token: keep
		}
		return len(runes) <= 2 && w.Confidence < cfg.JamoMinConfidence
	}
	// Mixed jamo/syllable token: likely a syllable-edge artifact.
	return syllableCount > 0 && w.Confidence < cfg.JamoMinConfidence
}

func repeatedRune(runes []rune) bool {
	for _, r := range runes {
		if r != runes[0] {
			return false
		}
	}
	return true
}

// ApplyWeakIsolatedCJKLines implements filter 7 (§4.F.7): drops short,
// low-confidence CJK lines sitting on a busy background that lack a
// stronger horizontally-overlapping neighbor line.
func ApplyWeakIsolatedCJKLines(st *page.State, script page.Script, cfg Thresholds) []page.Drop {
	if !script.IsCJK() {
		return st.Drops
	}
	medianLineHeight := medianLineHeight(st.Lines)
	if medianLineHeight <= 0 {
		return st.Drops
	}
	reach := medianLineHeight * cfg.WeakCJKNeighborHeightFactor

	dropLine := make(map[int]bool)
	for i, line := range st.Lines {
		if len(line.Words) > cfg.WeakCJKMaxWords || line.Confidence > cfg.WeakCJKMinConfidence {
			continue
		}
		variance := 0.0
		if len(st.Gray) > 0 && st.Width > 0 && st.Height > 0 {
			variance = backgroundVariance(st.Gray, st.Width, st.Height, line.Box, cfg.BGGridSize)
		}
		if variance <= cfg.WeakCJKVarianceThreshold {
			continue
		}
		if hasStrongerNeighborLine(line, i, st.Lines, reach) {
			continue
		}
		dropLine[i] = true
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
	st.KeepWords("weak_isolated_cjk_lines", kept, "weak isolated CJK line")
	return st.Drops
}

func medianLineHeight(lines []page.Line) float64 {
	heights := make([]float64, len(lines))
	for i, l := range lines {
		heights[i] = l.Box.Height()
	}
	sortFloats(heights)
	n := len(heights)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return heights[n/2]
	}
	return (heights[n/2-1] + heights[n/2]) / 2
}

func sortFloats(xs []float64) {
	for i := 1; i < len(xs); i++ {
		for j := i; j > 0 && xs[j-1] > xs[j]; j-- {
			xs[j-1], xs[j] = xs[j], xs[j-1]
		}
	}
}

func hasStrongerNeighborLine(line page.Line, idx int, lines []page.Line, reach float64) bool {
	for i, other := range lines {
		if i == idx {
			continue
		}
		if geo.HorizontalOverlapRatio(line.Box, other.Box) <= 0 {
			continue
		}
		if geo.MinVerticalGap(line.Box, other.Box) > reach {
			continue
		}
		if other.Confidence > line.Confidence || len(other.Words) > len(line.Words) {
			return true
		}
	}
	return false
}
