package filters

import (
	"github.com/wudi/ocrpipe/geo"
	"github.com/wudi/ocrpipe/page"
	"github.com/wudi/ocrpipe/textutil"
)

// ApplyBackgroundVariance implements filter 4 (§4.F.4): sample a grid
// around each word, outside its own box, and drop small low-confidence
// words sitting on a busy (high-variance) background. A no-op without a
// grayscale buffer.
func ApplyBackgroundVariance(st *page.State, script page.Script, cfg Thresholds) []page.Drop {
	if len(st.Gray) == 0 || st.Width == 0 || st.Height == 0 {
		return st.Drops
	}

	kept := make([]page.Word, 0, len(st.Words))
	for _, w := range st.Words {
		if st.IsProtected(w.ID) {
			kept = append(kept, w)
			continue
		}
		variance := backgroundVariance(st.Gray, st.Width, st.Height, w.Box, cfg.BGGridSize)
		if variance <= cfg.BGVarianceThreshold {
			kept = append(kept, w)
			continue
		}
		alnum := textutil.GetAlphanum(w.Text)
		maxLen := cfg.BGSmallWordMaxLen
		if textutil.ClassifyText(w.Text) == textutil.ScriptCJK {
			maxLen = cfg.BGCJKSmallWordMaxLen
		}
		if len([]rune(alnum)) <= maxLen && w.Confidence <= cfg.BGLowConfidenceMax {
			continue
		}
		kept = append(kept, w)
	}
	st.KeepWords("background_variance", kept, "busy background behind low-confidence word")
	return st.Drops
}

// backgroundVariance samples an n x n grid over the word's padded outer
// rectangle, skipping any sample point that falls inside the word's own
// box, and returns the sampled grayscale variance.
func backgroundVariance(gray []byte, width, height int, box geo.BBox, n int) float64 {
	pad := box.Height()
	outer := box.Pad(pad, pad).Clamp(float64(width-1), float64(height-1))
	if outer.Width() <= 0 || outer.Height() <= 0 || n < 2 {
		return 0
	}

	var samples []float64
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			x := outer.X0 + outer.Width()*float64(i)/float64(n-1)
			y := outer.Y0 + outer.Height()*float64(j)/float64(n-1)
			if x >= box.X0 && x <= box.X1 && y >= box.Y0 && y <= box.Y1 {
				continue
			}
			xi, yi := int(x), int(y)
			if xi < 0 || xi >= width || yi < 0 || yi >= height {
				continue
			}
			samples = append(samples, float64(gray[yi*width+xi]))
		}
	}
	if len(samples) == 0 {
		return 0
	}
	var sum, sumSq float64
	for _, s := range samples {
		sum += s
		sumSq += s * s
	}
	mean := sum / float64(len(samples))
	return sumSq/float64(len(samples)) - mean*mean
}
