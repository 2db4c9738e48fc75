// Package spatial implements the geometric reconstruction operations of
// §4.D: orientation-aware word ordering, line bucketing, gap detection,
// line-box coverage, and line rebuilding after a filter changes the word
// set.
package spatial

import (
	"math"
	"sort"

	"github.com/wudi/ocrpipe/geo"
	"github.com/wudi/ocrpipe/page"
	"github.com/wudi/ocrpipe/textutil"
)

const varianceEpsilon = 1e-6

// SortWordsByOrientation orders words by their principal reading direction,
// computed from the 2x2 covariance of word centers (§4.D). The ordering is
// deterministic for a fixed input slice.
func SortWordsByOrientation(words []page.Word) []page.Word {
	out := append([]page.Word(nil), words...)
	if len(out) < 2 {
		return out
	}

	n := float64(len(out))
	var meanX, meanY float64
	centers := make([][2]float64, len(out))
	for i, w := range out {
		cx, cy := w.Box.CenterX(), w.Box.CenterY()
		centers[i] = [2]float64{cx, cy}
		meanX += cx
		meanY += cy
	}
	meanX /= n
	meanY /= n

	var sxx, syy, sxy float64
	for _, c := range centers {
		dx, dy := c[0]-meanX, c[1]-meanY
		sxx += dx * dx
		syy += dy * dy
		sxy += dx * dy
	}
	sxx /= n
	syy /= n
	sxy /= n

	if sxx < varianceEpsilon {
		// No horizontal spread: vertical text column.
		sort.SliceStable(out, func(i, j int) bool { return out[i].Box.CenterY() < out[j].Box.CenterY() })
		return out
	}

	theta := 0.5 * math.Atan2(2*sxy, sxx-syy)
	slope := math.Tan(theta)
	if math.Abs(slope) < 0.12 {
		sort.SliceStable(out, func(i, j int) bool { return out[i].Box.CenterX() < out[j].Box.CenterX() })
		return out
	}

	cosT, sinT := math.Cos(theta), math.Sin(theta)
	proj := make([]float64, len(out))
	for i, c := range centers {
		proj[i] = (c[0]-meanX)*cosT + (c[1]-meanY)*sinT
	}
	idx := make([]int, len(out))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool { return proj[idx[i]] < proj[idx[j]] })
	sorted := make([]page.Word, len(out))
	for i, id := range idx {
		sorted[i] = out[id]
	}
	return sorted
}

// yBucketThreshold is the Y-center distance under which two words are
// considered to belong to the same line (§4.D).
func yBucketThreshold(medianHeight, pageHeight float64) float64 {
	return math.Max(4, math.Max(0.6*medianHeight, 0.001*pageHeight))
}

// BuildLinesFromWordsByY buckets words into lines using a Y-center
// threshold, then orders words within each bucket by orientation (§4.D).
func BuildLinesFromWordsByY(words []page.Word, pageHeight float64) []page.Line {
	if len(words) == 0 {
		return nil
	}
	medianHeight := page.MedianWordHeight(words)
	threshold := yBucketThreshold(medianHeight, pageHeight)

	ordered := append([]page.Word(nil), words...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Box.CenterY() < ordered[j].Box.CenterY() })

	var buckets [][]page.Word
	for _, w := range ordered {
		placed := false
		for i := range buckets {
			last := buckets[i][len(buckets[i])-1]
			if math.Abs(w.Box.CenterY()-bucketMeanY(buckets[i])) <= threshold || math.Abs(w.Box.CenterY()-last.Box.CenterY()) <= threshold {
				buckets[i] = append(buckets[i], w)
				placed = true
				break
			}
		}
		if !placed {
			buckets = append(buckets, []page.Word{w})
		}
	}

	lines := make([]page.Line, 0, len(buckets))
	for _, bucket := range buckets {
		lines = append(lines, lineFromWords(SortWordsByOrientation(bucket)))
	}
	sort.SliceStable(lines, func(i, j int) bool { return lines[i].Box.Y0 < lines[j].Box.Y0 })
	return lines
}

func bucketMeanY(words []page.Word) float64 {
	var sum float64
	for _, w := range words {
		sum += w.Box.CenterY()
	}
	return sum / float64(len(words))
}

func lineFromWords(words []page.Word) page.Line {
	boxes := make([]geo.BBox, len(words))
	var confSum float64
	var confCount int
	joinWords := make([]textutil.JoinWord, len(words))
	for i, w := range words {
		boxes[i] = w.Box
		joinWords[i] = textutil.JoinWord{Text: w.Text, Box: w.Box}
		if w.Confidence >= 0 {
			confSum += w.Confidence
			confCount++
		}
	}
	conf := 0.0
	if confCount > 0 {
		conf = confSum / float64(confCount)
	}
	return page.Line{
		Text:       textutil.JoinWordsForLanguage(joinWords),
		Confidence: conf,
		Box:        geo.UnionAll(boxes),
		Words:      words,
	}
}

// FindLargeGaps returns padded rectangles for horizontal gaps between
// consecutive words (already in reading order) that exceed the
// script-appropriate threshold (§4.D).
func FindLargeGaps(lineWords []page.Word, isCJK bool) []geo.BBox {
	if len(lineWords) < 2 {
		return nil
	}
	medianHeight := page.MedianWordHeight(lineWords)
	gaps := make([]float64, 0, len(lineWords)-1)
	for i := 1; i < len(lineWords); i++ {
		gaps = append(gaps, geo.MinHorizontalGap(lineWords[i-1].Box, lineWords[i].Box))
	}
	medianGap := medianOf(gaps)

	gapMultiplier, heightMultiplier := 1.6, 0.9
	if isCJK {
		gapMultiplier, heightMultiplier = 1.1, 0.6
	}
	threshold := math.Max(12, math.Max(gapMultiplier*medianGap, heightMultiplier*medianHeight))

	var out []geo.BBox
	for i := 1; i < len(lineWords); i++ {
		gap := geo.MinHorizontalGap(lineWords[i-1].Box, lineWords[i].Box)
		if gap > threshold {
			left := lineWords[i-1].Box
			right := lineWords[i].Box
			box := geo.BBox{
				X0: left.X1,
				Y0: math.Min(left.Y0, right.Y0),
				X1: right.X0,
				Y1: math.Max(left.Y1, right.Y1),
			}
			pad := medianHeight * 0.1
			out = append(out, box.Pad(pad, pad))
		}
	}
	return out
}

// ComputeLineCoverageRatio returns the fraction of lineBox's long axis
// covered by word intervals that overlap its short axis by at least 20%
// (§4.D), used to target under-recognized line frames for rescan.
func ComputeLineCoverageRatio(lineWords []page.Word, lineBox geo.BBox) float64 {
	if lineBox.IsEmpty() {
		return 0
	}
	horizontal := lineBox.Width() >= lineBox.Height()
	var axisLen float64
	if horizontal {
		axisLen = lineBox.Width()
	} else {
		axisLen = lineBox.Height()
	}
	if axisLen <= 0 {
		return 0
	}

	type interval struct{ lo, hi float64 }
	var intervals []interval
	for _, w := range lineWords {
		var shortOverlap float64
		if horizontal {
			shortOverlap = geo.VerticalOverlapRatio(w.Box, lineBox)
		} else {
			shortOverlap = geo.HorizontalOverlapRatio(w.Box, lineBox)
		}
		if shortOverlap < 0.2 {
			continue
		}
		inter := geo.Intersect(w.Box, lineBox)
		if inter.IsEmpty() {
			continue
		}
		if horizontal {
			intervals = append(intervals, interval{inter.X0, inter.X1})
		} else {
			intervals = append(intervals, interval{inter.Y0, inter.Y1})
		}
	}
	if len(intervals) == 0 {
		return 0
	}
	sort.Slice(intervals, func(i, j int) bool { return intervals[i].lo < intervals[j].lo })

	var covered float64
	cur := intervals[0]
	for _, iv := range intervals[1:] {
		if iv.lo > cur.hi {
			covered += cur.hi - cur.lo
			cur = iv
			continue
		}
		if iv.hi > cur.hi {
			cur.hi = iv.hi
		}
	}
	covered += cur.hi - cur.lo

	ratio := covered / axisLen
	if ratio > 1 {
		ratio = 1
	}
	return ratio
}

// RebuildLinesFromWords redistributes surviving words back into the old
// line grouping, splitting Latin-script lines on large internal gaps while
// keeping CJK groups intact (§4.D).
func RebuildLinesFromWords(oldLines []page.Line, keptWords []page.Word, script page.Script) []page.Line {
	kept := make(map[page.WordID]page.Word, len(keptWords))
	for _, w := range keptWords {
		kept[w.ID] = w
	}
	assigned := make(map[page.WordID]bool, len(keptWords))

	var rebuilt []page.Line
	for _, old := range oldLines {
		var survivors []page.Word
		for _, w := range old.Words {
			if kw, ok := kept[w.ID]; ok {
				survivors = append(survivors, kw)
				assigned[w.ID] = true
			}
		}
		if len(survivors) == 0 {
			continue
		}
		survivors = SortWordsByOrientation(survivors)
		if script.IsLatinOnly() {
			rebuilt = append(rebuilt, splitOnLargeGaps(survivors)...)
		} else {
			rebuilt = append(rebuilt, lineFromWords(survivors))
		}
	}

	// Words that weren't part of any prior line (e.g. fresh recovery
	// output merged upstream of rebuild) become their own line grouped by Y.
	var orphans []page.Word
	for _, w := range keptWords {
		if !assigned[w.ID] {
			orphans = append(orphans, w)
		}
	}
	if len(orphans) > 0 {
		rebuilt = append(rebuilt, BuildLinesFromWordsByY(orphans, 0)...)
	}

	sort.SliceStable(rebuilt, func(i, j int) bool { return rebuilt[i].Box.Y0 < rebuilt[j].Box.Y0 })
	return rebuilt
}

func splitOnLargeGaps(words []page.Word) []page.Line {
	if len(words) == 0 {
		return nil
	}
	medianHeight := page.MedianWordHeight(words)
	gaps := make([]float64, 0, len(words)-1)
	for i := 1; i < len(words); i++ {
		gaps = append(gaps, geo.MinHorizontalGap(words[i-1].Box, words[i].Box))
	}
	medianGap := medianOf(gaps)
	threshold := math.Max(12, math.Max(1.6*medianGap, 0.9*medianHeight))

	var lines []page.Line
	start := 0
	for i := 1; i < len(words); i++ {
		gap := geo.MinHorizontalGap(words[i-1].Box, words[i].Box)
		if gap > threshold {
			lines = append(lines, lineFromWords(words[start:i]))
			start = i
		}
	}
	lines = append(lines, lineFromWords(words[start:]))
	return lines
}

// NormalizeFinalLines sorts lines by y0 and, for Latin scripts, merges
// neighboring line fragments whose baselines align when isLexicalHeavy
// reports the merged line would be lexically strong (§4.D, §4.F.9). The
// lexical judgment is supplied by the caller (package filters) to avoid an
// import cycle between geometry and the lexical scoring tables.
func NormalizeFinalLines(lines []page.Line, script page.Script, isLexicalHeavy func([]page.Word) bool) []page.Line {
	sorted := append([]page.Line(nil), lines...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Box.Y0 < sorted[j].Box.Y0 })

	if !script.IsLatinOnly() || isLexicalHeavy == nil {
		return recomputeLineTexts(sorted)
	}

	var merged []page.Line
	i := 0
	for i < len(sorted) {
		cur := sorted[i]
		j := i + 1
		for j < len(sorted) && baselinesAlign(cur, sorted[j]) {
			combined := append(append([]page.Word(nil), cur.Words...), sorted[j].Words...)
			if !isLexicalHeavy(combined) {
				break
			}
			cur = lineFromWords(SortWordsByOrientation(combined))
			j++
		}
		merged = append(merged, cur)
		i = j
	}
	return merged
}

func baselinesAlign(a, b page.Line) bool {
	medianHeight := math.Max(page.MedianWordHeight(a.Words), page.MedianWordHeight(b.Words))
	if medianHeight <= 0 {
		medianHeight = 1
	}
	return math.Abs(a.Box.Y1-b.Box.Y1) <= 0.3*medianHeight
}

func recomputeLineTexts(lines []page.Line) []page.Line {
	out := make([]page.Line, len(lines))
	for i, l := range lines {
		out[i] = lineFromWords(l.Words)
	}
	return out
}

func medianOf(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
