// Package regions implements the §4.H region-grouping stage: clustering a
// page's final words into spatial regions and classifying each one.
package regions

import (
	"math"

	"github.com/wudi/ocrpipe/geo"
	"github.com/wudi/ocrpipe/page"
)

// DocumentType selects the classification rule applied to each region
// (§4.H).
type DocumentType string

const (
	DocumentManga DocumentType = "manga"
	DocumentPlain DocumentType = "document"
)

// Type is a region's classification.
type Type string

const (
	TypeText    Type = "text"
	TypeSFX     Type = "sfx"
	TypeBalloon Type = "balloon"
)

// Region is one spatially-clustered group of words (§4.H).
type Region struct {
	ID           int
	Type         Type
	Box          geo.BBox
	OriginalText string
	Confidence   float64 // normalized to [0,1]
}

// thresholds used by the manga classification rule, expressed against
// min(width, height) per §9 Open Question 3 so very tall webtoon pages
// don't degenerate the sfx/balloon height-ratio checks.
const (
	sfxMaxWords          = 3
	sfxMinHeightRatio    = 0.1
	sfxMaxConfidence     = 70
	balloonMinAspect     = 0.3
	balloonMaxAspect     = 3.5
	balloonMinConfidence = 20
	clusterXGapFactor    = 0.8
	clusterYGapFactor    = 0.5
)

// Group clusters words into regions by spatial proximity — Y-overlap with
// a small X gap, or near-Y with X overlap — and classifies each region
// against docType (§4.H).
func Group(words []page.Word, minSide float64, docType DocumentType) []Region {
	clusters := cluster(words, minSide)
	regions := make([]Region, 0, len(clusters))
	for i, words := range clusters {
		regions = append(regions, classify(i+1, words, minSide, docType))
	}
	return regions
}

func cluster(words []page.Word, minSide float64) [][]page.Word {
	n := len(words)
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(x int) int {
		for parent[x] != x {
			parent[x] = parent[parent[x]]
			x = parent[x]
		}
		return x
	}
	union := func(a, b int) {
		ra, rb := find(a), find(b)
		if ra != rb {
			parent[ra] = rb
		}
	}

	xGap := minSide * clusterXGapFactor
	yGap := minSide * clusterYGapFactor
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if shouldCluster(words[i].Box, words[j].Box, xGap, yGap) {
				union(i, j)
			}
		}
	}

	groups := make(map[int][]page.Word)
	order := make([]int, 0, n)
	for i, w := range words {
		root := find(i)
		if _, ok := groups[root]; !ok {
			order = append(order, root)
		}
		groups[root] = append(groups[root], w)
	}
	clusters := make([][]page.Word, 0, len(order))
	for _, root := range order {
		clusters = append(clusters, groups[root])
	}
	return clusters
}

func shouldCluster(a, b geo.BBox, xGap, yGap float64) bool {
	yOverlap := geo.VerticalOverlapRatio(a, b) > 0
	xOverlap := geo.HorizontalOverlapRatio(a, b) > 0
	if yOverlap && geo.MinHorizontalGap(a, b) <= xGap {
		return true
	}
	if xOverlap && geo.MinVerticalGap(a, b) <= yGap {
		return true
	}
	return false
}

func classify(id int, words []page.Word, minSide float64, docType DocumentType) Region {
	box := geo.UnionAll(boxesOf(words))
	conf := meanConfidence(words) / 100

	region := Region{ID: id, Box: box, OriginalText: joinText(words), Confidence: conf}

	if docType == DocumentPlain {
		region.Type = TypeText
		return region
	}

	heightRatio := 0.0
	if minSide > 0 {
		heightRatio = box.Height() / minSide
	}
	meanConf := meanConfidence(words)

	if len(words) <= sfxMaxWords && heightRatio > sfxMinHeightRatio && meanConf < sfxMaxConfidence {
		region.Type = TypeSFX
		return region
	}

	aspect := 1.0
	if box.Height() > 0 {
		aspect = box.Width() / box.Height()
	}
	if aspect >= balloonMinAspect && aspect <= balloonMaxAspect && len(words) >= 1 && meanConf >= balloonMinConfidence {
		region.Type = TypeBalloon
		return region
	}

	region.Type = TypeText
	return region
}

func boxesOf(words []page.Word) []geo.BBox {
	boxes := make([]geo.BBox, len(words))
	for i, w := range words {
		boxes[i] = w.Box
	}
	return boxes
}

func meanConfidence(words []page.Word) float64 {
	if len(words) == 0 {
		return 0
	}
	var sum float64
	for _, w := range words {
		sum += w.Confidence
	}
	return sum / float64(len(words))
}

func joinText(words []page.Word) string {
	var b []byte
	for i, w := range words {
		if i > 0 {
			b = append(b, ' ')
		}
		b = append(b, w.Text...)
	}
	return string(b)
}

// MinSide returns min(width, height), the normalization base for region
// classification thresholds (§9 Open Question 3).
func MinSide(width, height int) float64 {
	return math.Min(float64(width), float64(height))
}
