package filters

import (
	"testing"

	"github.com/wudi/ocrpipe/geo"
	"github.com/wudi/ocrpipe/page"
)

func cjkWord(st *page.State, text string, conf float64, x0, y0, x1, y1 float64) page.Word {
	w := st.NewWord(text, conf, geo.BBox{X0: x0, Y0: y0, X1: x1, Y1: y1})
	st.Words = append(st.Words, w)
	return w
}

func TestApplyIsolatedCJKNoiseDropsLoneLowConfidenceToken(t *testing.T) {
	st := page.NewState(1000, 1000, 300, "jpn", "auto")
	cjkWord(st, "字", 60, 10, 10, 20, 30)
	cfg := DefaultThresholds()

	ApplyIsolatedCJKNoise(st, page.Script{Kind: page.ScriptCJK}, cfg)

	if len(st.Words) != 0 {
		t.Fatalf("expected isolated low-confidence CJK token dropped, got %d words", len(st.Words))
	}
}

func TestApplyIsolatedCJKNoiseKeepsAlignedNeighbors(t *testing.T) {
	st := page.NewState(1000, 1000, 300, "jpn", "auto")
	cjkWord(st, "字", 60, 10, 10, 20, 30)
	cjkWord(st, "書", 60, 22, 10, 32, 30)
	cfg := DefaultThresholds()

	ApplyIsolatedCJKNoise(st, page.Script{Kind: page.ScriptCJK}, cfg)

	if len(st.Words) != 2 {
		t.Fatalf("expected both aligned neighbors kept, got %d", len(st.Words))
	}
}

func TestApplyIsolatedCJKNoiseKeepsHighConfidence(t *testing.T) {
	st := page.NewState(1000, 1000, 300, "jpn", "auto")
	cjkWord(st, "字", 95, 10, 10, 20, 30)
	cfg := DefaultThresholds()

	ApplyIsolatedCJKNoise(st, page.Script{Kind: page.ScriptCJK}, cfg)

	if len(st.Words) != 1 {
		t.Fatalf("expected high-confidence lone token kept, got %d", len(st.Words))
	}
}

func TestApplyKoreanJamoGhostsNoOpWithoutKorean(t *testing.T) {
	st := page.NewState(1000, 1000, 300, "jpn", "auto")
	cjkWord(st, "ㅋ", 40, 10, 10, 20, 30)
	cfg := DefaultThresholds()

	ApplyKoreanJamoGhosts(st, page.Script{Kind: page.ScriptCJK, Korean: false}, cfg)

	if len(st.Words) != 1 {
		t.Fatalf("expected no-op when Korean flag unset, got %d words", len(st.Words))
	}
}

func TestApplyKoreanJamoGhostsDropsLowConfidenceShortJamo(t *testing.T) {
	st := page.NewState(1000, 1000, 300, "kor", "auto")
	cjkWord(st, "ㅋ", 40, 10, 10, 20, 30)
	cfg := DefaultThresholds()

	ApplyKoreanJamoGhosts(st, page.Script{Kind: page.ScriptCJK, Korean: true}, cfg)

	if len(st.Words) != 0 {
		t.Fatalf("expected low-confidence jamo ghost dropped, got %d words", len(st.Words))
	}
}

func TestApplyKoreanJamoGhostsKeepsHighConfidenceLaughter(t *testing.T) {
	st := page.NewState(1000, 1000, 300, "kor", "auto")
	cjkWord(st, "ㅋㅋㅋ", 90, 10, 10, 40, 30)
	cfg := DefaultThresholds()

	ApplyKoreanJamoGhosts(st, page.Script{Kind: page.ScriptCJK, Korean: true}, cfg)

	if len(st.Words) != 1 {
		t.Fatalf("expected high-confidence repeated jamo laughter token kept, got %d", len(st.Words))
	}
}

func TestApplyKoreanJamoGhostsProtectsMarkedWords(t *testing.T) {
	st := page.NewState(1000, 1000, 300, "kor", "auto")
	w := cjkWord(st, "ㅋ", 40, 10, 10, 20, 30)
	st.Protect(w.ID)
	cfg := DefaultThresholds()

	ApplyKoreanJamoGhosts(st, page.Script{Kind: page.ScriptCJK, Korean: true}, cfg)

	if len(st.Words) != 1 {
		t.Fatalf("expected protected jamo word kept, got %d words", len(st.Words))
	}
}

func TestApplyWeakIsolatedCJKLinesNoOpWithoutGray(t *testing.T) {
	st := page.NewState(1000, 1000, 300, "jpn", "auto")
	w := cjkWord(st, "字", 50, 10, 10, 20, 30)
	st.Lines = []page.Line{{Words: []page.Word{w}, Box: w.Box, Confidence: 50}}
	cfg := DefaultThresholds()

	ApplyWeakIsolatedCJKLines(st, page.Script{Kind: page.ScriptCJK}, cfg)

	if len(st.Words) != 1 {
		t.Fatalf("expected no-op without grayscale buffer, got %d words", len(st.Words))
	}
}

func TestApplyWeakIsolatedCJKLinesDropsBusyBackgroundLine(t *testing.T) {
	st := page.NewState(100, 100, 300, "jpn", "auto")
	st.Gray = make([]byte, 100*100)
	for i := range st.Gray {
		if i%2 == 0 {
			st.Gray[i] = 20
		} else {
			st.Gray[i] = 220
		}
	}
	w := cjkWord(st, "字", 50, 40, 40, 50, 60)
	st.Lines = []page.Line{{Words: []page.Word{w}, Box: w.Box, Confidence: 50}}
	cfg := DefaultThresholds()

	ApplyWeakIsolatedCJKLines(st, page.Script{Kind: page.ScriptCJK}, cfg)

	if len(st.Words) != 0 {
		t.Fatalf("expected weak isolated CJK line dropped, got %d words", len(st.Words))
	}
}

func TestApplyWeakIsolatedCJKLinesKeepsLineWithStrongerNeighbor(t *testing.T) {
	st := page.NewState(100, 100, 300, "jpn", "auto")
	st.Gray = make([]byte, 100*100)
	for i := range st.Gray {
		if i%2 == 0 {
			st.Gray[i] = 20
		} else {
			st.Gray[i] = 220
		}
	}
	weak := cjkWord(st, "字", 50, 40, 40, 50, 60)
	strong := cjkWord(st, "書物全体", 90, 40, 61, 90, 81)
	st.Lines = []page.Line{
		{Words: []page.Word{weak}, Box: weak.Box, Confidence: 50},
		{Words: []page.Word{strong}, Box: strong.Box, Confidence: 90},
	}
	cfg := DefaultThresholds()

	ApplyWeakIsolatedCJKLines(st, page.Script{Kind: page.ScriptCJK}, cfg)

	if len(st.Words) != 2 {
		t.Fatalf("expected weak line kept due to stronger neighbor, got %d words", len(st.Words))
	}
}
