package textutil

import (
	"testing"

	"github.com/wudi/ocrpipe/geo"
)

func TestClassifyText(t *testing.T) {
	cases := []struct {
		in   string
		want ScriptKind
	}{
		{"hello", ScriptLatin},
		{"こんにちは", ScriptCJK},
		{"สวัสดี", ScriptThai},
		{"hello世界", ScriptMixed},
		{"123", ScriptLatin},
	}
	for _, c := range cases {
		if got := ClassifyText(c.in); got != c.want {
			t.Errorf("ClassifyText(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestGetAlphanum(t *testing.T) {
	if got := GetAlphanum("Hello, World! 123."); got != "HelloWorld123" {
		t.Fatalf("GetAlphanum mismatch: %q", got)
	}
}

func TestNFCNormalization(t *testing.T) {
	decomposed := "é" // e + combining acute accent
	composed := "é"    // é
	if NFC(decomposed) != composed {
		t.Fatalf("expected NFC to compose combining accent")
	}
}

func TestIsCJKIsThaiLanguage(t *testing.T) {
	if !IsCJKLanguage("jpn+eng") {
		t.Fatalf("expected jpn+eng to be CJK")
	}
	if IsCJKLanguage("eng") {
		t.Fatalf("did not expect eng to be CJK")
	}
	if !IsThaiLanguage("tha") {
		t.Fatalf("expected tha to be Thai")
	}
	if !IsKoreanLanguage("kor+eng") {
		t.Fatalf("expected kor+eng to be Korean")
	}
}

func TestHasLangCode(t *testing.T) {
	if !HasLangCode("jpn+eng", "eng") {
		t.Fatalf("expected eng to be found in jpn+eng")
	}
	if HasLangCode("jpn", "eng") {
		t.Fatalf("did not expect eng to be found in jpn")
	}
}

func TestNormalizeLangCodes(t *testing.T) {
	if got := NormalizeLangCodes("eng+jpn"); got != "eng+jpn" {
		t.Fatalf("expected already-sorted codes unchanged, got %q", got)
	}
	if got := NormalizeLangCodes("jpn+eng"); got != "eng+jpn" {
		t.Fatalf("expected sorted codes, got %q", got)
	}
}

func TestJoinWordsForLanguageLatinSpacing(t *testing.T) {
	words := []JoinWord{
		{Text: "HELLO", Box: geo.BBox{X0: 0, Y0: 0, X1: 40, Y1: 20}},
		{Text: "WORLD", Box: geo.BBox{X0: 48, Y0: 0, X1: 88, Y1: 20}}, // gap 8, height 20 -> 0.4 > 0.2
	}
	if got := JoinWordsForLanguage(words); got != "HELLO WORLD" {
		t.Fatalf("expected spaced join, got %q", got)
	}
}

func TestJoinWordsForLanguageLatinTight(t *testing.T) {
	words := []JoinWord{
		{Text: "UP", Box: geo.BBox{X0: 0, Y0: 0, X1: 20, Y1: 20}},
		{Text: "S", Box: geo.BBox{X0: 21, Y0: 0, X1: 30, Y1: 20}}, // gap 1, normGap 0.05 < 0.2
	}
	if got := JoinWordsForLanguage(words); got != "UPS" {
		t.Fatalf("expected tight join, got %q", got)
	}
}

func TestJoinWordsForLanguageCJKNoSpace(t *testing.T) {
	words := []JoinWord{
		{Text: "日", Box: geo.BBox{X0: 0, Y0: 0, X1: 20, Y1: 20}},
		{Text: "本", Box: geo.BBox{X0: 20, Y0: 0, X1: 40, Y1: 20}},
	}
	if got := JoinWordsForLanguage(words); got != "日本" {
		t.Fatalf("expected no space between adjacent CJK tokens, got %q", got)
	}
}

func TestJoinWordsForLanguageMixedBoundaryAlwaysSpaces(t *testing.T) {
	words := []JoinWord{
		{Text: "hello", Box: geo.BBox{X0: 0, Y0: 0, X1: 20, Y1: 20}},
		{Text: "世界", Box: geo.BBox{X0: 20, Y0: 0, X1: 40, Y1: 20}},
	}
	if got := JoinWordsForLanguage(words); got != "hello 世界" {
		t.Fatalf("expected mandatory space at script boundary, got %q", got)
	}
}

func TestJoinWordsForLanguagePunctuationAttachesNoSpace(t *testing.T) {
	words := []JoinWord{
		{Text: "Hello", Box: geo.BBox{X0: 0, Y0: 0, X1: 40, Y1: 20}},
		{Text: ",", Box: geo.BBox{X0: 41, Y0: 0, X1: 45, Y1: 20}},
	}
	if got := JoinWordsForLanguage(words); got != "Hello," {
		t.Fatalf("expected punctuation to attach without leading space, got %q", got)
	}
}
