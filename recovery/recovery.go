// Package recovery implements the budget-gated rescue suite of §4.G: a set
// of stages that re-recognize specific regions of a page when the initial
// pass looks thin, admitting only words that pass script-specific rules
// before merging them into the page state.
package recovery

import (
	"context"

	"github.com/wudi/ocrpipe/geo"
	"github.com/wudi/ocrpipe/page"
	"github.com/wudi/ocrpipe/recognizer"
)

// Context bundles the inputs every recovery stage needs: the preprocessed
// recognition image, an optional binarized variant for stages that require
// one regardless of the page's normal binarization policy, the driver to
// re-recognize with, the mutable page state being rescued, and its derived
// script.
type Context struct {
	Image          []byte
	BinarizedImage []byte
	Driver         recognizer.Driver
	State          *page.State
	Script         page.Script
}

// Stage is one recovery operation (§4.G). It returns the number of words
// actually admitted, capped by the page's remaining recovery budget.
type Stage func(ctx context.Context, rc Context) (int, error)

// DefaultBudget computes the recovery budget (§4.G: "default approx
// page-word-count-dependent; for CJK a hard cap approx 40").
func DefaultBudget(initialWordCount int, script page.Script) int {
	if script.IsCJK() {
		return 40
	}
	budget := initialWordCount / 2
	if budget < 20 {
		budget = 20
	}
	if budget > 120 {
		budget = 120
	}
	return budget
}

// AppendUniqueWords merges incoming into existing, keeping an incoming
// candidate only when no existing word overlaps it by IoU >= iouThreshold
// (§4.G: "append_unique_words(existing, incoming, iou_threshold=0.55)").
func AppendUniqueWords(existing, incoming []page.Word, iouThreshold float64) []page.Word {
	merged := append([]page.Word(nil), existing...)
	for _, cand := range incoming {
		if !overlapsAny(cand, existing, iouThreshold) {
			merged = append(merged, cand)
		}
	}
	return merged
}

func overlapsAny(cand page.Word, words []page.Word, iouThreshold float64) bool {
	for _, w := range words {
		if geo.IoU(cand.Box, w.Box) >= iouThreshold {
			return true
		}
	}
	return false
}

// Run executes a stage and admits its result into rc.State via
// page.State.AddRecoveredWords, respecting the remaining budget. It is a
// no-op once the budget is exhausted.
func Run(ctx context.Context, rc Context, stage Stage) (int, error) {
	if rc.State.RemainingBudget() <= 0 {
		return 0, nil
	}
	return stage(ctx, rc)
}

// admit merges candidates into rc.State via the shared append_unique_words
// rule, respecting the page's remaining recovery budget.
func admit(rc Context, candidates []page.Word) int {
	deduped := make([]page.Word, 0, len(candidates))
	for _, w := range candidates {
		if !overlapsAny(w, rc.State.Words, 0.55) && !overlapsAny(w, deduped, 0.55) {
			deduped = append(deduped, w)
		}
	}
	if len(deduped) == 0 {
		return 0
	}
	return rc.State.AddRecoveredWords(deduped)
}
