package spatial

import (
	"testing"

	"github.com/wudi/ocrpipe/geo"
	"github.com/wudi/ocrpipe/page"
)

func word(id page.WordID, text string, x0, y0, x1, y1 float64) page.Word {
	return page.Word{ID: id, Text: text, Confidence: 90, Box: geo.BBox{X0: x0, Y0: y0, X1: x1, Y1: y1}}
}

func TestSortWordsByOrientationHorizontal(t *testing.T) {
	words := []page.Word{
		word(1, "World", 100, 10, 140, 30),
		word(2, "Hello", 10, 10, 50, 30),
	}
	sorted := SortWordsByOrientation(words)
	if sorted[0].Text != "Hello" || sorted[1].Text != "World" {
		t.Fatalf("expected left-to-right order, got %+v", sorted)
	}
}

func TestSortWordsByOrientationVerticalColumn(t *testing.T) {
	words := []page.Word{
		word(1, "下", 10, 100, 30, 130),
		word(2, "上", 10, 10, 30, 40),
	}
	sorted := SortWordsByOrientation(words)
	if sorted[0].Text != "上" || sorted[1].Text != "下" {
		t.Fatalf("expected top-to-bottom order for vertical column, got %+v", sorted)
	}
}

func TestBuildLinesFromWordsByY(t *testing.T) {
	words := []page.Word{
		word(1, "Hello", 10, 10, 50, 30),
		word(2, "World", 60, 12, 100, 32),
		word(3, "Second", 10, 100, 60, 120),
	}
	lines := BuildLinesFromWordsByY(words, 1000)
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %+v", len(lines), lines)
	}
	if lines[0].Text != "Hello World" {
		t.Fatalf("unexpected first line text: %q", lines[0].Text)
	}
	if lines[1].Text != "Second" {
		t.Fatalf("unexpected second line text: %q", lines[1].Text)
	}
}

func TestFindLargeGaps(t *testing.T) {
	words := []page.Word{
		word(1, "A", 0, 0, 20, 20),
		word(2, "B", 22, 0, 42, 20),
		word(3, "C", 300, 0, 320, 20),
	}
	gaps := FindLargeGaps(words, false)
	if len(gaps) != 1 {
		t.Fatalf("expected exactly one large gap, got %d: %+v", len(gaps), gaps)
	}
	if gaps[0].X0 < 42 || gaps[0].X1 > 300 {
		t.Fatalf("gap box not between B and C: %+v", gaps[0])
	}
}

func TestComputeLineCoverageRatio(t *testing.T) {
	lineBox := geo.BBox{X0: 0, Y0: 0, X1: 100, Y1: 20}
	words := []page.Word{
		word(1, "A", 0, 0, 30, 20),
		word(2, "B", 70, 0, 100, 20),
	}
	ratio := ComputeLineCoverageRatio(words, lineBox)
	if ratio < 0.55 || ratio > 0.65 {
		t.Fatalf("expected coverage ratio near 0.6, got %f", ratio)
	}
}

func TestComputeLineCoverageRatioIgnoresLowOverlap(t *testing.T) {
	lineBox := geo.BBox{X0: 0, Y0: 0, X1: 100, Y1: 20}
	words := []page.Word{
		word(1, "stray", 0, 18, 100, 19), // barely overlaps the line vertically
	}
	ratio := ComputeLineCoverageRatio(words, lineBox)
	if ratio != 0 {
		t.Fatalf("expected zero coverage for low-overlap word, got %f", ratio)
	}
}

func TestRebuildLinesFromWordsLatinSplitsOnGap(t *testing.T) {
	w1 := word(1, "Hello", 0, 0, 40, 20)
	w2 := word(2, "World", 44, 0, 84, 20)
	w3 := word(3, "Far", 500, 0, 540, 20)
	old := []page.Line{
		{Box: geo.UnionAll([]geo.BBox{w1.Box, w2.Box, w3.Box}), Words: []page.Word{w1, w2, w3}},
	}
	rebuilt := RebuildLinesFromWords(old, []page.Word{w1, w2, w3}, page.Script{Kind: page.ScriptLatin})
	if len(rebuilt) != 2 {
		t.Fatalf("expected split into 2 lines, got %d: %+v", len(rebuilt), rebuilt)
	}
}

func TestRebuildLinesFromWordsDropsMissingWords(t *testing.T) {
	w1 := word(1, "Hello", 0, 0, 40, 20)
	w2 := word(2, "World", 44, 0, 84, 20)
	old := []page.Line{
		{Box: geo.UnionAll([]geo.BBox{w1.Box, w2.Box}), Words: []page.Word{w1, w2}},
	}
	rebuilt := RebuildLinesFromWords(old, []page.Word{w1}, page.Script{Kind: page.ScriptLatin})
	if len(rebuilt) != 1 || rebuilt[0].Text != "Hello" {
		t.Fatalf("expected single surviving word line, got %+v", rebuilt)
	}
}

func TestNormalizeFinalLinesSortsByY(t *testing.T) {
	lines := []page.Line{
		{Box: geo.BBox{X0: 0, Y0: 100, X1: 50, Y1: 120}, Words: []page.Word{word(1, "Second", 0, 100, 50, 120)}},
		{Box: geo.BBox{X0: 0, Y0: 0, X1: 50, Y1: 20}, Words: []page.Word{word(2, "First", 0, 0, 50, 20)}},
	}
	out := NormalizeFinalLines(lines, page.Script{Kind: page.ScriptCJK}, nil)
	if out[0].Text != "First" || out[1].Text != "Second" {
		t.Fatalf("expected lines sorted by y0, got %+v", out)
	}
}

func TestNormalizeFinalLinesMergesLexicalHeavyLatinFragments(t *testing.T) {
	a := word(1, "Hello", 0, 0, 40, 20)
	b := word(2, "World", 44, 1, 84, 21)
	lines := []page.Line{
		{Box: a.Box, Words: []page.Word{a}},
		{Box: b.Box, Words: []page.Word{b}},
	}
	always := func([]page.Word) bool { return true }
	out := NormalizeFinalLines(lines, page.Script{Kind: page.ScriptLatin}, always)
	if len(out) != 1 {
		t.Fatalf("expected merge into 1 line, got %d: %+v", len(out), out)
	}
	if out[0].Text != "Hello World" {
		t.Fatalf("unexpected merged text: %q", out[0].Text)
	}
}
