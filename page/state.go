package page

import "github.com/wudi/ocrpipe/geo"

// State is the single mutable page-state struct threaded through every
// pipeline stage (§3, §9: "Mutable page state threaded through stages").
// It is owned exclusively by the task processing one page; no locking is
// required because stages never run concurrently against the same State.
type State struct {
	Width, Height int
	DPI           int
	Language      string
	PSM           string

	Words             []Word
	Lines             []Line
	LineBoxes         []LineBox
	LineKeysWithWords map[string]bool

	// Gray is the length Width*Height luminance buffer produced once by the
	// preprocessor, read-only thereafter. Nil when grayscale wasn't
	// requested.
	Gray []byte

	Protected map[WordID]struct{}

	RecoveryAdded  int
	RecoveryBudget int

	DebugCollectDrops bool
	Drops             []Drop

	nextID WordID
}

// NewState constructs an empty State for a page of the given dimensions.
func NewState(width, height, dpi int, language, psm string) *State {
	return &State{
		Width:             width,
		Height:            height,
		DPI:               dpi,
		Language:          language,
		PSM:               psm,
		LineKeysWithWords: make(map[string]bool),
		Protected:         make(map[WordID]struct{}),
	}
}

// NewWord allocates a Word with a fresh, state-scoped ID.
func (s *State) NewWord(text string, confidence float64, box geo.BBox) Word {
	s.nextID++
	return Word{ID: s.nextID, Text: text, Confidence: confidence, Box: box}
}

// Protect marks a word as exempt from destructive filters (§3: "protected
// word references are weak").
func (s *State) Protect(id WordID) { s.Protected[id] = struct{}{} }

// IsProtected reports whether id is in the protected set.
func (s *State) IsProtected(id WordID) bool {
	_, ok := s.Protected[id]
	return ok
}

// RecordDrop appends a Drop when debug collection is enabled; it is a no-op
// otherwise so hot filter loops don't pay for diagnostics nobody asked for.
func (s *State) RecordDrop(filter string, w Word, reason string) {
	if !s.DebugCollectDrops {
		return
	}
	s.Drops = append(s.Drops, Drop{Filter: filter, Token: w.Text, Reason: reason, Box: w.Box})
}

// KeepWords replaces s.Words with kept, recording a Drop for every word in
// the previous set that didn't survive (when debug collection is enabled).
// This is the "rebuild-from-kept-words" pattern every filter uses (§3).
func (s *State) KeepWords(filter string, kept []Word, reason string) {
	if s.DebugCollectDrops {
		keptIDs := make(map[WordID]struct{}, len(kept))
		for _, w := range kept {
			keptIDs[w.ID] = struct{}{}
		}
		for _, w := range s.Words {
			if _, ok := keptIDs[w.ID]; !ok {
				s.RecordDrop(filter, w, reason)
			}
		}
	}
	s.Words = kept
}

// RemainingBudget returns how many more recovery words may be added.
func (s *State) RemainingBudget() int {
	if s.RecoveryBudget <= s.RecoveryAdded {
		return 0
	}
	return s.RecoveryBudget - s.RecoveryAdded
}

// AddRecoveredWords appends words produced by a recovery stage, capping the
// addition at the remaining budget (§4.G, §8 property 7) and returns how
// many were actually admitted.
func (s *State) AddRecoveredWords(words []Word) int {
	budget := s.RemainingBudget()
	if budget <= 0 || len(words) == 0 {
		return 0
	}
	if len(words) > budget {
		words = words[:budget]
	}
	s.Words = append(s.Words, words...)
	s.RecoveryAdded += len(words)
	return len(words)
}

// MedianWordHeight returns the median height of words, or 0 if empty. Many
// thresholds in §4.D/§4.F/§4.G are expressed relative to this value.
func MedianWordHeight(words []Word) float64 {
	if len(words) == 0 {
		return 0
	}
	heights := make([]float64, len(words))
	for i, w := range words {
		heights[i] = w.Box.Height()
	}
	return median(heights)
}

func median(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sorted := append([]float64(nil), xs...)
	insertionSort(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// insertionSort is adequate here: callers sort per-line/per-page word-count
// slices (tens to low hundreds of elements), not corpus-scale data.
func insertionSort(xs []float64) {
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
