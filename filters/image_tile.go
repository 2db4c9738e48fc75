package filters

import (
	"math"

	"github.com/wudi/ocrpipe/page"
	"github.com/wudi/ocrpipe/textutil"
)

type tileStats struct {
	mean, variance float64
	midRatio       float64
	edge           float64
	words          int
	wordCoverage   float64
	wordConfidence float64
	imageLikely    bool
	textLikely     bool
	marked         bool
}

// ApplyImageTileMask implements filter 3 (§4.F.3): tile the page, classify
// each tile as image-likely or text-likely from sparse grayscale sampling,
// and drop short low-confidence words sitting in marked tiles. A no-op when
// no grayscale buffer was produced (binarization/grayscale wasn't
// requested).
func ApplyImageTileMask(st *page.State, script page.Script, cfg Thresholds) []page.Drop {
	if len(st.Gray) == 0 || st.Width == 0 || st.Height == 0 {
		return st.Drops
	}

	cell := clampF(float64(min(st.Width, st.Height))/40, cfg.TileCellMin, cfg.TileCellMax)
	cellSize := int(cell)
	if cellSize < 1 {
		cellSize = 1
	}
	cols := (st.Width + cellSize - 1) / cellSize
	rows := (st.Height + cellSize - 1) / cellSize
	grid := make([]tileStats, cols*rows)

	for ty := 0; ty < rows; ty++ {
		for tx := 0; tx < cols; tx++ {
			grid[ty*cols+tx] = sampleTile(st.Gray, st.Width, st.Height, tx*cellSize, ty*cellSize, cellSize)
		}
	}
	for _, w := range st.Words {
		tx := clampInt(int(w.Box.CenterX())/cellSize, 0, cols-1)
		ty := clampInt(int(w.Box.CenterY())/cellSize, 0, rows-1)
		idx := ty*cols + tx
		grid[idx].words++
		grid[idx].wordCoverage += w.Box.Area() / float64(cellSize*cellSize)
		grid[idx].wordConfidence = math.Max(grid[idx].wordConfidence, w.Confidence)
	}

	for i := range grid {
		t := &grid[i]
		t.imageLikely = (t.midRatio >= cfg.TileMidRatioThreshold && t.variance >= cfg.TileVarianceThresholdV) ||
			(t.edge >= cfg.TileEdgeThresholdE && t.variance >= cfg.TileVarianceThresholdEV)
		t.textLikely = t.words >= cfg.TileTextLikelyMinWords ||
			(t.words >= 1 && t.wordCoverage >= 0.1 && t.wordConfidence >= 50)
		t.marked = t.imageLikely && !t.textLikely
	}
	fillIsolatedHoles(grid, cols, rows, cfg.TileHoleFillMinNeighbors)

	pageHeight := float64(st.Height)
	kept := make([]page.Word, 0, len(st.Words))
	for _, w := range st.Words {
		if st.IsProtected(w.ID) {
			kept = append(kept, w)
			continue
		}
		tx := clampInt(int(w.Box.CenterX())/cellSize, 0, cols-1)
		ty := clampInt(int(w.Box.CenterY())/cellSize, 0, rows-1)
		if !grid[ty*cols+tx].marked {
			kept = append(kept, w)
			continue
		}
		if shouldDropInImageTile(w, script, pageHeight, cfg) {
			continue
		}
		kept = append(kept, w)
	}
	st.KeepWords("image_tile_mask", kept, "word center in image-likely tile")
	return st.Drops
}

func shouldDropInImageTile(w page.Word, script page.Script, pageHeight float64, cfg Thresholds) bool {
	heightRatio := 0.0
	if pageHeight > 0 {
		heightRatio = w.Box.Height() / pageHeight
	}
	if heightRatio >= cfg.TileLargeTextHeightRatio {
		return false
	}
	alnum := textutil.GetAlphanum(w.Text)
	isCJK := textutil.ClassifyText(w.Text) == textutil.ScriptCJK
	maxLen := cfg.TileShortAlnumMaxLen
	heightThresh := cfg.TileHeightRatioThreshold
	if isCJK {
		maxLen = cfg.TileCJKShortAlnumMaxLen
		heightThresh = cfg.TileCJKHeightRatioThresh
	}
	return len([]rune(alnum)) <= maxLen && heightRatio <= heightThresh && w.Confidence <= cfg.TileLowConfidenceMax
}

func sampleTile(gray []byte, width, height, x0, y0, size int) tileStats {
	x1 := min(x0+size, width)
	y1 := min(y0+size, height)
	var sum, sumSq, midCount, edgeSum float64
	var n int
	step := 2
	for y := y0; y < y1; y += step {
		for x := x0; x < x1; x += step {
			v := float64(gray[y*width+x])
			sum += v
			sumSq += v * v
			if v >= 64 && v <= 192 {
				midCount++
			}
			if x+step < x1 {
				edgeSum += math.Abs(v - float64(gray[y*width+x+step]))
			}
			if y+step < y1 {
				edgeSum += math.Abs(v - float64(gray[(y+step)*width+x]))
			}
			n++
		}
	}
	if n == 0 {
		return tileStats{}
	}
	mean := sum / float64(n)
	variance := sumSq/float64(n) - mean*mean
	return tileStats{
		mean:     mean,
		variance: variance,
		midRatio: midCount / float64(n),
		edge:     edgeSum / float64(n),
	}
}

// fillIsolatedHoles marks any unmarked tile with at least minNeighbors
// marked 8-neighbors, closing small gaps in an otherwise photographic
// region.
func fillIsolatedHoles(grid []tileStats, cols, rows, minNeighbors int) {
	toMark := make([]bool, len(grid))
	for ty := 0; ty < rows; ty++ {
		for tx := 0; tx < cols; tx++ {
			idx := ty*cols + tx
			if grid[idx].marked {
				continue
			}
			neighbors := 0
			for _, d := range [][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}, {-1, -1}, {1, -1}, {-1, 1}, {1, 1}} {
				nx, ny := tx+d[0], ty+d[1]
				if nx < 0 || nx >= cols || ny < 0 || ny >= rows {
					continue
				}
				if grid[ny*cols+nx].marked {
					neighbors++
				}
			}
			if neighbors >= minNeighbors {
				toMark[idx] = true
			}
		}
	}
	for i, m := range toMark {
		if m {
			grid[i].marked = true
		}
	}
}

func clampF(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(v, hi))
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

