package filters

import "github.com/wudi/ocrpipe/textutil"

// commonWords is a small closed set of common English words used only to
// protect and score Latin lines (§4.F.9) — never for spell-correction.
var commonWords = map[string]bool{
	"THE": true, "A": true, "I": true, "YOU": true, "IS": true, "ARE": true,
	"AND": true, "TO": true, "OF": true, "IT": true, "IN": true, "NO": true,
	"YES": true, "WHAT": true, "WHY": true, "HOW": true, "THIS": true,
	"THAT": true, "WE": true, "HE": true, "SHE": true, "THEY": true,
	"DON'T": true, "KNOW": true, "NOT": true, "CAN": true, "WILL": true,
}

// shortKeepSet is a curated allow-list of short Latin tokens that are
// lexically valid despite their length, exempting them from short-token
// noise heuristics.
var shortKeepSet = map[string]bool{
	"I": true, "A": true, "IT": true, "TO": true, "DO": true, "NO": true,
	"OK": true, "OH": true, "UP": true, "ON": true, "IN": true, "GO": true,
	"BE": true, "AT": true,
}

// watermarkSignatures matches uppercase-alnum tokens known to be site/
// publisher watermarks rather than page content.
var watermarkSignatures = map[string]bool{
	"LIKEMANGAIO":  true,
	"MANGADEX":     true,
	"MANGAPLUS":    true,
	"WEBTOONXYZ":   true,
	"SCANLATIONBY": true,
}

func isCommonWord(s string) bool  { return commonWords[toUpperASCII(s)] }
func isShortKeep(s string) bool   { return shortKeepSet[toUpperASCII(s)] }
func isWatermark(s string) bool   { return watermarkSignatures[toUpperASCII(textutil.GetAlphanum(s))] }
func isLexicalToken(s string) bool {
	u := toUpperASCII(s)
	return commonWords[u] || shortKeepSet[u]
}

// IsWatermarkToken reports whether s's uppercase alnum matches a known
// watermark signature. Exported for the recovery suite's admission rules
// (§4.G: "no watermark-like tokens").
func IsWatermarkToken(s string) bool { return isWatermark(s) }

// IsLexicalToken reports whether s is a common word or a curated short
// lexical token. Exported for the recovery suite's Latin rescue admission
// rule (§4.G.4/5: "admit only lexical tokens").
func IsLexicalToken(s string) bool { return isLexicalToken(s) }

func toUpperASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - ('a' - 'A')
		}
	}
	return string(b)
}
