package textutil

import (
	"strings"
	"unicode"

	"github.com/wudi/ocrpipe/geo"
)

// JoinWord is the minimal shape join_words_for_language needs: text plus a
// box, so this package stays independent of package page.
type JoinWord struct {
	Text string
	Box  geo.BBox
}

// median-height-normalized gap thresholds (§4.C).
const (
	cjkThaiGapThreshold = 0.9
	latinGapThreshold   = 0.2
)

// JoinWordsForLanguage concatenates words in reading order, inserting a
// space only when the median-height-normalized horizontal gap between
// consecutive tokens exceeds a language-specific threshold (§4.C).
func JoinWordsForLanguage(words []JoinWord) string {
	if len(words) == 0 {
		return ""
	}
	if len(words) == 1 {
		return words[0].Text
	}
	heights := make([]float64, len(words))
	for i, w := range words {
		heights[i] = w.Box.Height()
	}
	medianHeight := median(heights)
	if medianHeight <= 0 {
		medianHeight = 1
	}

	var b strings.Builder
	b.WriteString(words[0].Text)
	prevKind := ClassifyText(words[0].Text)
	for i := 1; i < len(words); i++ {
		cur := words[i]
		curKind := ClassifyText(cur.Text)
		gap := geo.MinHorizontalGap(words[i-1].Box, cur.Box)
		normGap := gap / medianHeight

		if isPunctuationOnly(cur.Text) {
			b.WriteString(cur.Text)
			prevKind = curKind
			continue
		}

		needSpace := false
		switch {
		case isCJKOrThai(prevKind) && isCJKOrThai(curKind):
			needSpace = normGap > cjkThaiGapThreshold
		case prevKind == ScriptLatin && curKind == ScriptLatin:
			needSpace = normGap > latinGapThreshold
		default:
			// Mixed script boundary (Latin <-> CJK/Thai): always a space.
			needSpace = true
		}

		if needSpace {
			b.WriteByte(' ')
		}
		b.WriteString(cur.Text)
		prevKind = curKind
	}
	return b.String()
}

func isCJKOrThai(k ScriptKind) bool { return k == ScriptCJK || k == ScriptThai }

func isPunctuationOnly(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsPunct(r) && !unicode.IsSymbol(r) {
			return false
		}
	}
	return true
}

func median(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sorted := append([]float64(nil), xs...)
	for i := 1; i < len(sorted); i++ {
		v := sorted[i]
		j := i - 1
		for j >= 0 && sorted[j] > v {
			sorted[j+1] = sorted[j]
			j--
		}
		sorted[j+1] = v
	}
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
