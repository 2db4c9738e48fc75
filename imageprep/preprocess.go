// Package imageprep implements the image preprocessing stage (§4.A): decode,
// size-check, normalize to an opaque-white canvas, and optionally produce a
// grayscale and/or Otsu-binarized variant for the recognizer.
package imageprep

import (
	"bytes"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"

	"github.com/wudi/ocrpipe/page"
)

// minDimension is the smallest width/height accepted (§4.A: "reject
// dimensions below 10x10").
const minDimension = 10

// Options controls what the preprocessor produces in addition to the
// canonical RGBA raster.
type Options struct {
	Binarize   bool
	ReturnGray bool
}

// Output is the preprocessor's result: a canonical RGBA raster with opaque
// white background, plus an optional grayscale buffer.
type Output struct {
	Image  *image.RGBA
	Width  int
	Height int
	Gray   []byte // length Width*Height, nil unless Options.ReturnGray
}

// Preprocess decodes raw image bytes and normalizes them per §4.A.
func Preprocess(data []byte, opts Options) (Output, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Output{}, page.WrapError(page.KindPreprocess, "decode", err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w < minDimension || h < minDimension {
		return Output{}, page.WrapError(page.KindPreprocess, "size-check",
			&dimensionError{Width: w, Height: h})
	}

	canvas := image.NewRGBA(image.Rect(0, 0, w, h))
	// Paint opaque white, then composite the decoded image on top. This
	// fixes transparent or partially-opaque pixels that would otherwise
	// confuse the recognizer's binarization.
	draw.Draw(canvas, canvas.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.Draw(canvas, canvas.Bounds(), img, bounds.Min, draw.Over)

	out := Output{Image: canvas, Width: w, Height: h}

	if opts.ReturnGray || opts.Binarize {
		gray := luminance(canvas)
		stretchContrast(gray)
		if opts.Binarize {
			threshold := otsuThreshold(gray)
			binarize(canvas, gray, threshold)
		}
		if opts.ReturnGray {
			out.Gray = gray
		}
	}

	return out, nil
}

type dimensionError struct {
	Width, Height int
}

func (e *dimensionError) Error() string {
	return "image dimensions below minimum 10x10"
}

// luminance computes 0.299R + 0.587G + 0.114B per pixel (§4.A).
func luminance(img *image.RGBA) []byte {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := make([]byte, w*h)
	for y := 0; y < h; y++ {
		rowOff := img.PixOffset(b.Min.X, b.Min.Y+y)
		for x := 0; x < w; x++ {
			i := rowOff + x*4
			r, g, bl := img.Pix[i], img.Pix[i+1], img.Pix[i+2]
			lum := 0.299*float64(r) + 0.587*float64(g) + 0.114*float64(bl)
			out[y*w+x] = clampByte(lum)
		}
	}
	return out
}

func clampByte(v float64) byte {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return byte(v)
}

// stretchContrast applies a per-image linear contrast stretch to [0,255]
// using the observed min/max (§4.A).
func stretchContrast(gray []byte) {
	if len(gray) == 0 {
		return
	}
	min, max := gray[0], gray[0]
	for _, v := range gray {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	if max <= min {
		return
	}
	scale := 255.0 / float64(max-min)
	for i, v := range gray {
		gray[i] = clampByte((float64(v) - float64(min)) * scale)
	}
}

// otsuThreshold finds the threshold maximizing inter-class variance over the
// luminance histogram (§4.A: Otsu thresholding).
func otsuThreshold(gray []byte) byte {
	var hist [256]int
	for _, v := range gray {
		hist[v]++
	}
	total := len(gray)
	if total == 0 {
		return 128
	}
	var sumAll float64
	for i, count := range hist {
		sumAll += float64(i) * float64(count)
	}

	var sumB, wB float64
	var bestThreshold byte
	var bestVariance float64

	for t := 0; t < 256; t++ {
		wB += float64(hist[t])
		if wB == 0 {
			continue
		}
		wF := float64(total) - wB
		if wF == 0 {
			break
		}
		sumB += float64(t) * float64(hist[t])
		mB := sumB / wB
		mF := (sumAll - sumB) / wF
		between := wB * wF * (mB - mF) * (mB - mF)
		if between > bestVariance {
			bestVariance = between
			bestThreshold = byte(t)
		}
	}
	return bestThreshold
}

// binarize writes the thresholded channel back to the RGB planes (§4.A).
func binarize(img *image.RGBA, gray []byte, threshold byte) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	for y := 0; y < h; y++ {
		rowOff := img.PixOffset(b.Min.X, b.Min.Y+y)
		for x := 0; x < w; x++ {
			i := rowOff + x*4
			v := byte(0)
			if gray[y*w+x] > threshold {
				v = 255
			}
			img.Pix[i] = v
			img.Pix[i+1] = v
			img.Pix[i+2] = v
		}
	}
}

// BinarizationAllowed reports whether binarization should be enabled for the
// requested script, per §4.A's policy: disabled for CJK and Thai, where it
// degrades dense strokes and above/below marks.
func BinarizationAllowed(script page.Script) bool {
	return !script.IsCJK() && !script.IsThai()
}
