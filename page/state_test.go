package page

import (
	"errors"
	"testing"

	"github.com/wudi/ocrpipe/geo"
)

func TestNewWordAssignsIncreasingIDs(t *testing.T) {
	s := NewState(100, 100, 300, "eng", "auto")
	a := s.NewWord("a", 90, geo.BBox{X1: 1, Y1: 1})
	b := s.NewWord("b", 90, geo.BBox{X1: 1, Y1: 1})
	if b.ID <= a.ID {
		t.Fatalf("expected increasing IDs, got %d then %d", a.ID, b.ID)
	}
}

func TestProtectRespected(t *testing.T) {
	s := NewState(100, 100, 300, "eng", "auto")
	w := s.NewWord("I", 95, geo.BBox{X1: 1, Y1: 1})
	s.Protect(w.ID)
	if !s.IsProtected(w.ID) {
		t.Fatalf("expected word to be protected")
	}
}

func TestKeepWordsRecordsDrops(t *testing.T) {
	s := NewState(100, 100, 300, "eng", "auto")
	s.DebugCollectDrops = true
	keep := s.NewWord("keep", 90, geo.BBox{X1: 1, Y1: 1})
	drop := s.NewWord("drop", 10, geo.BBox{X1: 1, Y1: 1})
	s.Words = []Word{keep, drop}
	s.KeepWords("test-filter", []Word{keep}, "low-confidence")
	if len(s.Words) != 1 || s.Words[0].ID != keep.ID {
		t.Fatalf("expected only keep to survive, got %+v", s.Words)
	}
	if len(s.Drops) != 1 || s.Drops[0].Token != "drop" {
		t.Fatalf("expected one recorded drop for %q, got %+v", "drop", s.Drops)
	}
}

func TestRecoveryBudgetCaps(t *testing.T) {
	s := NewState(100, 100, 300, "eng", "auto")
	s.RecoveryBudget = 2
	words := []Word{
		s.NewWord("a", 90, geo.BBox{X1: 1, Y1: 1}),
		s.NewWord("b", 90, geo.BBox{X1: 1, Y1: 1}),
		s.NewWord("c", 90, geo.BBox{X1: 1, Y1: 1}),
	}
	added := s.AddRecoveredWords(words)
	if added != 2 {
		t.Fatalf("expected 2 words admitted under budget, got %d", added)
	}
	if s.RecoveryAdded != 2 {
		t.Fatalf("expected RecoveryAdded == 2, got %d", s.RecoveryAdded)
	}
	if s.RemainingBudget() != 0 {
		t.Fatalf("expected budget exhausted")
	}
	more := s.AddRecoveredWords([]Word{s.NewWord("d", 90, geo.BBox{X1: 1, Y1: 1})})
	if more != 0 {
		t.Fatalf("expected no further words admitted once budget is exhausted")
	}
}

func TestMedianWordHeight(t *testing.T) {
	words := []Word{
		{Box: geo.BBox{Y0: 0, Y1: 10}},
		{Box: geo.BBox{Y0: 0, Y1: 20}},
		{Box: geo.BBox{Y0: 0, Y1: 30}},
	}
	if got := MedianWordHeight(words); got != 20 {
		t.Fatalf("expected median 20, got %f", got)
	}
	if got := MedianWordHeight(nil); got != 0 {
		t.Fatalf("expected 0 for empty input, got %f", got)
	}
}

func TestErrorIsMatchesByKind(t *testing.T) {
	err := WrapError(KindRegion, "recover-line", errors.New("boom"))
	if !errors.Is(err, ErrRegion) {
		t.Fatalf("expected errors.Is to match ErrRegion")
	}
	if errors.Is(err, ErrAborted) {
		t.Fatalf("did not expect errors.Is to match ErrAborted")
	}
	if IsFatal(err.Kind) {
		t.Fatalf("region errors should not be fatal")
	}
	if !IsFatal(KindRecognizer) {
		t.Fatalf("recognizer errors should be fatal")
	}
}
