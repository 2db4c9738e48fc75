package recovery

import (
	"github.com/wudi/ocrpipe/filters"
	"github.com/wudi/ocrpipe/geo"
	"github.com/wudi/ocrpipe/page"
	"github.com/wudi/ocrpipe/textutil"
)

// LatinAdmissible implements the Latin recovery admission rule (§4.G: "no
// watermark-like tokens, no long consonant runs without vowels, no tiny
// geometries, and dynamic minimum-confidence depending on token length").
func LatinAdmissible(w page.Word) bool {
	if filters.IsWatermarkToken(w.Text) {
		return false
	}
	if w.Box.Width() < 3 || w.Box.Height() < 3 {
		return false
	}
	if hasLongConsonantRunWithoutVowel(w.Text) {
		return false
	}
	return w.Confidence >= dynamicMinConfidence(w.Text)
}

// LatinLexicalOnlyAdmissible is the stricter rule used by the balloon and
// empty-line-box rescues (§4.G.4/5), which admit only lexical tokens.
func LatinLexicalOnlyAdmissible(w page.Word) bool {
	return LatinAdmissible(w) && filters.IsLexicalToken(w.Text)
}

func hasLongConsonantRunWithoutVowel(s string) bool {
	run := 0
	for _, r := range s {
		lower := r
		if lower >= 'A' && lower <= 'Z' {
			lower += 'a' - 'A'
		}
		switch lower {
		case 'a', 'e', 'i', 'o', 'u':
			run = 0
		default:
			if lower >= 'a' && lower <= 'z' {
				run++
				if run >= 5 {
					return true
				}
			} else {
				run = 0
			}
		}
	}
	return false
}

func dynamicMinConfidence(text string) float64 {
	n := len([]rune(textutil.GetAlphanum(text)))
	switch {
	case n <= 1:
		return 85
	case n <= 3:
		return 70
	default:
		return 55
	}
}

// CJKAdmissible implements the CJK recovery admission rule (§4.G: height
// ratio in [0.55, 1.6] of line median, a close horizontal neighbor unless
// near the line edge, and jamo rules for Korean non-syllable tokens).
func CJKAdmissible(w page.Word, lineMedianHeight float64, lineWords []page.Word, lineBox geo.BBox, korean bool) bool {
	if lineMedianHeight <= 0 {
		return false
	}
	ratio := w.Box.Height() / lineMedianHeight
	if ratio < 0.55 || ratio > 1.6 {
		return false
	}
	runes := []rune(w.Text)
	if korean && len(runes) > 0 && !textutil.IsKoreanJamoOrSyllable(runes[0]) {
		if isJamoGhostLike(w) {
			return false
		}
	}
	if nearLineEdge(w, lineBox) {
		return true
	}
	return hasHorizontalNeighbor(w, lineWords)
}

func isJamoGhostLike(w page.Word) bool {
	runes := []rune(w.Text)
	if len(runes) == 0 {
		return false
	}
	jamoCount := 0
	for _, r := range runes {
		if textutil.IsJamo(r) {
			jamoCount++
		}
	}
	return jamoCount > 0 && w.Confidence < 70
}

func nearLineEdge(w page.Word, lineBox geo.BBox) bool {
	if lineBox.Width() <= 0 {
		return true
	}
	edge := lineBox.Width() * 0.1
	return w.Box.X0-lineBox.X0 <= edge || lineBox.X1-w.Box.X1 <= edge
}

func hasHorizontalNeighbor(w page.Word, lineWords []page.Word) bool {
	reach := w.Box.Height() * 1.5
	for _, other := range lineWords {
		if other.ID == w.ID {
			continue
		}
		if geo.MinHorizontalGap(w.Box, other.Box) <= reach && geo.VerticalOverlapRatio(w.Box, other.Box) > 0 {
			return true
		}
	}
	return false
}
