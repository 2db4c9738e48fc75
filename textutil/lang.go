package textutil

import (
	"strings"

	"golang.org/x/text/language"
)

// SplitLangCodes splits a '+'-joined recognizer language string ("jpn+eng")
// into its component codes.
func SplitLangCodes(lang string) []string {
	if lang == "" {
		return nil
	}
	parts := strings.Split(lang, "+")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// NormalizeLangCodes sorts and rejoins language codes with '+', matching
// the cache-key normalization rule in §3 ("language codes sorted and
// '+'-joined").
func NormalizeLangCodes(lang string) string {
	codes := SplitLangCodes(lang)
	sortStrings(codes)
	return strings.Join(codes, "+")
}

func sortStrings(xs []string) {
	for i := 1; i < len(xs); i++ {
		v := xs[i]
		j := i - 1
		for j >= 0 && xs[j] > v {
			xs[j+1] = xs[j]
			j--
		}
		xs[j+1] = v
	}
}

// cjkCodes and thaiCodes are the recognizer language codes (Tesseract's
// three-letter ISO 639-2/T naming, the convention §4.E's recognizer
// contract assumes) that select the CJK and Thai script branches.
var cjkCodes = map[string]bool{
	"jpn": true, "jpn_vert": true,
	"chi_sim": true, "chi_sim_vert": true, "chi_tra": true, "chi_tra_vert": true,
	"kor": true, "kor_vert": true,
}

var thaiCodes = map[string]bool{"tha": true}

var koreanCodes = map[string]bool{"kor": true, "kor_vert": true}

// HasLangCode reports whether the '+'-joined lang string contains code,
// comparing via golang.org/x/text/language base-language equivalence so
// "zh" and "chi_sim" style regional variants compare sensibly when a
// caller mixes BCP-47 and Tesseract codes.
func HasLangCode(lang, code string) bool {
	for _, c := range SplitLangCodes(lang) {
		if strings.EqualFold(c, code) {
			return true
		}
		if langBaseEqual(c, code) {
			return true
		}
	}
	return false
}

func langBaseEqual(a, b string) bool {
	ta, erra := language.Parse(a)
	tb, errb := language.Parse(b)
	if erra != nil || errb != nil {
		return false
	}
	ba, _ := ta.Base()
	bb, _ := tb.Base()
	return ba == bb
}

// IsCJKLanguage reports whether any component of the '+'-joined lang string
// is a CJK code (§4.C: is_cjk_language).
func IsCJKLanguage(lang string) bool {
	for _, c := range SplitLangCodes(lang) {
		if cjkCodes[c] {
			return true
		}
	}
	return false
}

// IsThaiLanguage reports whether any component of lang is the Thai code
// (§4.C: is_thai_language).
func IsThaiLanguage(lang string) bool {
	for _, c := range SplitLangCodes(lang) {
		if thaiCodes[c] {
			return true
		}
	}
	return false
}

// IsKoreanLanguage reports whether lang includes a Korean code, gating the
// jamo-ghost filter (§4.F.6).
func IsKoreanLanguage(lang string) bool {
	for _, c := range SplitLangCodes(lang) {
		if koreanCodes[c] {
			return true
		}
	}
	return false
}

// ScriptForLanguage derives the ScriptKind + Korean sub-flag from a
// requested language string, the classification §3 calls "Script kind
// (derived, not stored)".
func ScriptForLanguage(lang string) (ScriptKind, bool) {
	cjk := IsCJKLanguage(lang)
	thai := IsThaiLanguage(lang)
	korean := IsKoreanLanguage(lang)
	switch {
	case cjk && thai:
		return ScriptMixed, korean
	case cjk:
		return ScriptCJK, korean
	case thai:
		return ScriptThai, false
	default:
		return ScriptLatin, false
	}
}
