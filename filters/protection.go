package filters

import "github.com/wudi/ocrpipe/page"

// BuildProtectedSet marks words exempt from destructive filters: members of
// a strong base line (enough words, or high confidence), or — for Latin —
// a line carrying enough lexical hits (§4.F "Protection set", §8 property
// 4).
func BuildProtectedSet(st *page.State, script page.Script, cfg Thresholds) {
	for _, line := range st.Lines {
		strong := len(line.Words) >= cfg.ProtectedLineMinWords || line.Confidence >= cfg.ProtectedLineMinConf
		lexicalHits := 0
		if script.IsLatinOnly() {
			for _, w := range line.Words {
				if isLexicalToken(w.Text) {
					lexicalHits++
				}
			}
		}
		if strong || lexicalHits >= cfg.ProtectedLexicalMinHits {
			for _, w := range line.Words {
				st.Protect(w.ID)
			}
		}
	}
}
