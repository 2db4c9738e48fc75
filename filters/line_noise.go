package filters

import (
	"github.com/wudi/ocrpipe/page"
	"github.com/wudi/ocrpipe/textutil"
)

var bulletArtifacts = map[string]bool{"m": true, "b": true, "i": true, "1": true, "l": true}

// ApplyLineNoiseCleanup implements filter 1 (§4.F.1): drop obvious
// low-confidence noise tokens within each line, never touching protected or
// non-Latin words. Skipped entirely for sparse CJK pages so balloons with a
// handful of syllables survive untouched.
func ApplyLineNoiseCleanup(st *page.State, script page.Script, cfg Thresholds) []page.Drop {
	if script.IsCJK() && len(st.Words) <= cfg.LineNoiseCJKSparseWords {
		return nil
	}

	kept := make([]page.Word, 0, len(st.Words))
	for _, line := range st.Lines {
		medianHeight := page.MedianWordHeight(line.Words)
		for _, w := range line.Words {
			if st.IsProtected(w.ID) || !isLineNoiseCandidate(w, line, medianHeight, cfg) {
				kept = append(kept, w)
			}
		}
	}
	// Words not grouped into any line (shouldn't normally happen, but keep
	// them rather than silently drop).
	lineWordIDs := make(map[page.WordID]bool, len(kept))
	for _, w := range kept {
		lineWordIDs[w.ID] = true
	}
	for _, w := range st.Words {
		if _, inLine := findLine(st.Lines, w.ID); !inLine && !lineWordIDs[w.ID] {
			kept = append(kept, w)
		}
	}

	st.KeepWords("line_noise_cleanup", kept, "noise token")
	return st.Drops
}

func findLine(lines []page.Line, id page.WordID) (page.Line, bool) {
	for _, l := range lines {
		for _, w := range l.Words {
			if w.ID == id {
				return l, true
			}
		}
	}
	return page.Line{}, false
}

func isLineNoiseCandidate(w page.Word, line page.Line, medianHeight float64, cfg Thresholds) bool {
	alnum := textutil.GetAlphanum(w.Text)
	if alnum == "" {
		return false
	}
	kind := textutil.ClassifyText(w.Text)
	if kind != textutil.ScriptLatin {
		return false // never drop non-Latin tokens here
	}

	heightRatio := 1.0
	if medianHeight > 0 {
		heightRatio = w.Box.Height() / medianHeight
	}

	if len([]rune(alnum)) == 1 {
		if (alnum == "I" || alnum == "A") && len(line.Words) >= 2 && heightRatio >= cfg.LineNoiseMinHeightRatio {
			return false
		}
		return true
	}
	if bulletArtifacts[w.Text] {
		return true
	}
	if len([]rune(alnum)) <= cfg.LineNoiseMixedCaseMaxLen && hasMixedCase(alnum) {
		return true
	}
	return false
}

func hasMixedCase(s string) bool {
	var hasUpper, hasLower bool
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= 'a' && r <= 'z':
			hasLower = true
		}
	}
	return hasUpper && hasLower
}
