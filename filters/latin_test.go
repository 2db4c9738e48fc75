package filters

import (
	"testing"

	"github.com/wudi/ocrpipe/geo"
	"github.com/wudi/ocrpipe/page"
)

func latinWord(st *page.State, text string, conf float64, x0, y0, x1, y1 float64) page.Word {
	w := st.NewWord(text, conf, geo.BBox{X0: x0, Y0: y0, X1: x1, Y1: y1})
	st.Words = append(st.Words, w)
	return w
}

func TestApplyWatermarkSuppressionDropsSignatureInTopBand(t *testing.T) {
	st := page.NewState(1000, 1000, 300, "eng", "auto")
	watermark := latinWord(st, "LikeManga.io", 90, 400, 5, 600, 30)
	balloon := latinWord(st, "I", 90, 100, 400, 120, 430)
	balloon2 := latinWord(st, "DON'T", 90, 130, 400, 220, 430)
	balloon3 := latinWord(st, "KNOW.", 90, 230, 400, 300, 430)
	st.Lines = []page.Line{
		{Words: []page.Word{watermark}, Box: watermark.Box, Confidence: 90},
		{Words: []page.Word{balloon, balloon2, balloon3}, Box: geo.UnionAll([]geo.BBox{balloon.Box, balloon2.Box, balloon3.Box}), Confidence: 90},
	}
	cfg := DefaultThresholds()

	ApplyWatermarkSuppression(st, page.Script{Kind: page.ScriptLatin}, cfg)

	for _, w := range st.Words {
		if w.Text == "LikeManga.io" {
			t.Fatalf("expected watermark token dropped")
		}
	}
	if len(st.Words) != 3 {
		t.Fatalf("expected balloon words kept, got %d words", len(st.Words))
	}
}

func TestApplyWatermarkSuppressionProtectsMarkedWords(t *testing.T) {
	st := page.NewState(1000, 1000, 300, "eng", "auto")
	watermark := latinWord(st, "MangaDex", 90, 400, 5, 600, 30)
	st.Protect(watermark.ID)
	st.Lines = []page.Line{{Words: []page.Word{watermark}, Box: watermark.Box, Confidence: 90}}
	cfg := DefaultThresholds()

	ApplyWatermarkSuppression(st, page.Script{Kind: page.ScriptLatin}, cfg)

	if len(st.Words) != 1 {
		t.Fatalf("expected protected watermark-looking word kept, got %d", len(st.Words))
	}
}

func TestApplyLatinGarbagePrunersNoOpForCJK(t *testing.T) {
	st := page.NewState(1000, 1000, 300, "jpn", "auto")
	w := latinWord(st, "x", 10, 10, 10, 20, 20)
	st.Lines = []page.Line{{Words: []page.Word{w}, Box: w.Box, Confidence: 10}}
	cfg := DefaultThresholds()

	ApplyLatinGarbagePruners(st, page.Script{Kind: page.ScriptCJK}, cfg, false)

	if len(st.Words) != 1 {
		t.Fatalf("expected no-op for CJK script, got %d words", len(st.Words))
	}
}

func TestApplyLatinGarbagePrunersDropsLowReadabilityEdgeLine(t *testing.T) {
	st := page.NewState(1000, 1000, 300, "eng", "auto")
	w := latinWord(st, "bcdf", 10, 400, 5, 440, 25)
	st.Lines = []page.Line{{Words: []page.Word{w}, Box: w.Box, Confidence: 20}}
	cfg := DefaultThresholds()

	ApplyLatinGarbagePruners(st, page.Script{Kind: page.ScriptLatin}, cfg, false)

	if len(st.Words) != 0 {
		t.Fatalf("expected low-readability edge-band line dropped, got %d words", len(st.Words))
	}
}

func TestApplyLatinGarbagePrunersKeepsReadableLines(t *testing.T) {
	st := page.NewState(1000, 1000, 300, "eng", "auto")
	w1 := latinWord(st, "HELLO", 95, 400, 400, 460, 430)
	w2 := latinWord(st, "THERE", 95, 465, 400, 520, 430)
	st.Lines = []page.Line{{Words: []page.Word{w1, w2}, Box: geo.UnionAll([]geo.BBox{w1.Box, w2.Box}), Confidence: 95}}
	cfg := DefaultThresholds()

	ApplyLatinGarbagePruners(st, page.Script{Kind: page.ScriptLatin}, cfg, false)

	if len(st.Words) != 2 {
		t.Fatalf("expected readable line kept, got %d words", len(st.Words))
	}
}

func TestApplyLatinGarbagePrunersHighRecallDropsNonLexical(t *testing.T) {
	st := page.NewState(1000, 1000, 300, "eng", "auto")
	w := latinWord(st, "zxqv", 60, 400, 400, 440, 430)
	st.Lines = []page.Line{{Words: []page.Word{w}, Box: w.Box, Confidence: 60}}
	cfg := DefaultThresholds()

	ApplyLatinGarbagePruners(st, page.Script{Kind: page.ScriptLatin}, cfg, true)

	if len(st.Words) != 0 {
		t.Fatalf("expected non-lexical line dropped in high-recall mode, got %d words", len(st.Words))
	}
}

func TestMergeFragmentedLinesCombinesLexicalNeighbors(t *testing.T) {
	a := latinLine("I", 90, 100, 100, 115, 120)
	b := latinLine("KNOW", 90, 120, 102, 170, 122)
	cfg := DefaultThresholds()

	merged := mergeFragmentedLines([]page.Line{a, b}, cfg)

	if len(merged) != 1 {
		t.Fatalf("expected fragments merged into one line, got %d", len(merged))
	}
	if len(merged[0].Words) != 2 {
		t.Fatalf("expected merged line to carry both words, got %d", len(merged[0].Words))
	}
}

func latinLine(text string, conf float64, x0, y0, x1, y1 float64) page.Line {
	box := geo.BBox{X0: x0, Y0: y0, X1: x1, Y1: y1}
	w := page.Word{ID: page.WordID(1), Text: text, Confidence: conf, Box: box}
	return page.Line{Text: text, Confidence: conf, Box: box, Words: []page.Word{w}}
}

func TestShouldUseHighRecallTriggersOnSparsePage(t *testing.T) {
	st := page.NewState(1000, 1000, 300, "eng", "auto")
	latinWord(st, "x", 10, 10, 10, 20, 20)
	cfg := DefaultThresholds()

	if !ShouldUseHighRecall(st, cfg) {
		t.Fatalf("expected high-recall mode to trigger on a sparse, unreadable page")
	}
}

func TestShouldUseHighRecallFalseWithStrongLine(t *testing.T) {
	st := page.NewState(1000, 1000, 300, "eng", "auto")
	w1 := latinWord(st, "HELLO", 95, 0, 0, 60, 30)
	w2 := latinWord(st, "THERE", 95, 65, 0, 120, 30)
	w3 := latinWord(st, "FRIEND", 95, 125, 0, 190, 30)
	st.Lines = []page.Line{{Words: []page.Word{w1, w2, w3}, Box: geo.UnionAll([]geo.BBox{w1.Box, w2.Box, w3.Box}), Confidence: 95}}
	cfg := DefaultThresholds()

	if ShouldUseHighRecall(st, cfg) {
		t.Fatalf("expected high-recall mode to not trigger when a strong readable line exists")
	}
}
