// Package page holds the domain model shared across the OCR pipeline:
// words, lines, line frames, the mutable per-page state threaded through
// every stage, and the PageResult emitted at the end.
package page

import "github.com/wudi/ocrpipe/geo"

// WordID identifies a Word for the lifetime of a single page's processing.
// It is stable across filter rebuilds so the protected set survives slice
// reallocation.
type WordID uint64

// Word is a single recognized token, NFC-normalized, with confidence in
// [0,100] and a pixel bounding box.
type Word struct {
	ID         WordID
	Text       string
	Confidence float64
	Box        geo.BBox
}

// Line groups words that share a baseline. Box is the tight union of the
// words' boxes; Confidence is their arithmetic mean; Text is the
// language-aware join (see package textutil).
type Line struct {
	Text       string
	Confidence float64
	Box        geo.BBox
	Words      []Word
}

// LineBox is a recognizer-emitted line frame. It may have no associated
// words, in which case Key will not appear in State.LineKeysWithWords and
// recovery stage G.5 (empty line-box fallback) targets it.
type LineBox struct {
	Key string // "page-block-par-line"
	Box geo.BBox
}

// ScriptKind classifies the requested OCR language.
type ScriptKind string

const (
	ScriptLatin ScriptKind = "latin"
	ScriptCJK   ScriptKind = "cjk"
	ScriptThai  ScriptKind = "thai"
	ScriptMixed ScriptKind = "mixed"
)

// Script carries the derived script classification plus the Korean
// sub-flag that gates jamo-specific filters (§3, §4.F.6).
type Script struct {
	Kind   ScriptKind
	Korean bool
}

// IsCJK reports whether the script is (or includes) CJK.
func (s Script) IsCJK() bool { return s.Kind == ScriptCJK || s.Kind == ScriptMixed }

// IsThai reports whether the script is (or includes) Thai.
func (s Script) IsThai() bool { return s.Kind == ScriptThai || s.Kind == ScriptMixed }

// IsLatinOnly reports whether the script is purely Latin, the condition
// that gates the Latin-specific garbage pruners (§4.F.9).
func (s Script) IsLatinOnly() bool { return s.Kind == ScriptLatin }

// Drop records why a filter removed a word, collected only when debug
// collection is enabled (§9: "Tagged events").
type Drop struct {
	Filter string
	Token  string
	Reason string
	Box    geo.BBox
}

// Result is the PageResult emitted by the pipeline (§3, §6).
type Result struct {
	PageNumber       int
	Width, Height    int
	DPI              int
	Language         string
	PageSegMode      string
	AlgorithmVersion int
	Words            []Word
	Lines            []Line
	Text             string
	Confidence       float64
	Debug            *DebugInfo
}

// DebugInfo carries optional diagnostics attached to a Result when
// debug_collect_drops is requested.
type DebugInfo struct {
	Drops []Drop
}
