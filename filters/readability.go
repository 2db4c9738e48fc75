package filters

import (
	"strings"

	"github.com/wudi/ocrpipe/page"
)

var leetMap = map[rune]rune{
	'0': 'o', '1': 'i', '3': 'e', '4': 'a', '5': 's', '7': 't', '@': 'a', '$': 's',
}

var vowels = map[rune]bool{'a': true, 'e': true, 'i': true, 'o': true, 'u': true}

// TokenReadability implements filter 10 (§4.F.10): a [0,1] score combining
// confidence, vowel presence, consonant-run penalties, leet-speak
// normalization (L00K -> LOOK), and a length-class bonus.
func TokenReadability(w page.Word, cfg Thresholds) float64 {
	normalized := normalizeLeet(w.Text)
	runes := []rune(strings.ToLower(normalized))
	if len(runes) == 0 {
		return 0
	}

	score := w.Confidence / 100

	hasVowel := false
	longestConsonantRun, run := 0, 0
	for _, r := range runes {
		if r < 'a' || r > 'z' {
			run = 0
			continue
		}
		if vowels[r] {
			hasVowel = true
			run = 0
			continue
		}
		run++
		if run > longestConsonantRun {
			longestConsonantRun = run
		}
	}
	if hasVowel {
		score += cfg.ReadabilityVowelBonus
	}
	if longestConsonantRun >= 4 {
		score -= cfg.ReadabilityConsonantRunPen
	}
	if normalized != w.Text {
		score += cfg.ReadabilityLeetBonus
	}
	if len(runes) >= 3 && len(runes) <= 12 {
		score += cfg.ReadabilityLengthBonus
	}

	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score
}

func normalizeLeet(s string) string {
	var b strings.Builder
	for _, r := range s {
		if repl, ok := leetMap[r]; ok {
			b.WriteRune(repl)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// LineReadability is the mean token readability across a line (§4.F.10).
func LineReadability(line page.Line, cfg Thresholds) float64 {
	if len(line.Words) == 0 {
		return 0
	}
	var sum float64
	for _, w := range line.Words {
		sum += TokenReadability(w, cfg)
	}
	return sum / float64(len(line.Words))
}

// LineLexicalHits counts words in a line recognized by the lexical
// allow-lists (§4.F.9 "Lexical guidance").
func LineLexicalHits(line page.Line) int {
	hits := 0
	for _, w := range line.Words {
		if isLexicalToken(w.Text) {
			hits++
		}
	}
	return hits
}
