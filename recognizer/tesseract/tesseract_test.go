package tesseract

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os/exec"
	"strings"
	"testing"

	"github.com/otiai10/gosseract/v2"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/wudi/ocrpipe/geo"
	"github.com/wudi/ocrpipe/recognizer"
)

func ensureTesseractAvailable(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("tesseract"); err != nil {
		t.Skip("tesseract not installed in PATH")
	}
}

func renderText(text string, w, h int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	d := &font.Drawer{Dst: img, Src: image.Black, Face: basicfont.Face7x13, Dot: fixed.P(10, h/2)}
	d.DrawString(text)
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func TestDriverRecognizePage(t *testing.T) {
	ensureTesseractAvailable(t)

	data := renderText("Hello World", 240, 60)
	d := New()
	out, err := d.RecognizePage(context.Background(), recognizer.PageRequest{
		Image:    data,
		Width:    240,
		Height:   60,
		Language: "eng",
		DPI:      300,
	})
	if err != nil {
		t.Fatalf("RecognizePage error: %v", err)
	}
	got := strings.ToLower(out.PlainText)
	if !strings.Contains(got, "hello") || !strings.Contains(got, "world") {
		t.Fatalf("unexpected recognized text: %q", out.PlainText)
	}
	if len(out.Words) == 0 {
		t.Fatalf("expected recognized words")
	}
}

func TestDriverRecognizeRegionOffsetsCoordinates(t *testing.T) {
	ensureTesseractAvailable(t)

	data := renderText("Region", 240, 60)
	d := New()
	region := geo.BBox{X0: 0, Y0: 0, X1: 120, Y1: 60}
	out, err := d.RecognizeRegion(context.Background(), recognizer.PageRequest{
		Image:    data,
		Width:    240,
		Height:   60,
		Language: "eng",
	}, region)
	if err != nil {
		t.Fatalf("RecognizeRegion error: %v", err)
	}
	for _, w := range out.Words {
		if w.Box.X0 < region.X0-1 || w.Box.X1 > region.X1+1 {
			t.Fatalf("word box escaped region bounds: %+v", w.Box)
		}
	}
}

func TestParsePSM(t *testing.T) {
	cases := []struct {
		in   string
		want gosseract.PageSegMode
		ok   bool
	}{
		{"6", gosseract.PageSegMode(6), true},
		{"auto", gosseract.PSM_AUTO, true},
		{"single_line", gosseract.PSM_SINGLE_LINE, true},
		{"", 0, false},
		{"nonsense", 0, false},
	}
	for _, c := range cases {
		got, ok := parsePSM(c.in)
		if ok != c.ok || (ok && got != c.want) {
			t.Fatalf("parsePSM(%q) = (%v, %v), want (%v, %v)", c.in, got, ok, c.want, c.ok)
		}
	}
}

func TestCropImageReturnsOffsets(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 100, 100))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	region := geo.BBox{X0: 10, Y0: 20, X1: 50, Y1: 60}
	cropped, offX, offY, err := cropImage(buf.Bytes(), &region)
	if err != nil {
		t.Fatalf("cropImage error: %v", err)
	}
	if offX != 10 || offY != 20 {
		t.Fatalf("expected offsets (10,20), got (%f,%f)", offX, offY)
	}
	decoded, _, err := image.Decode(bytes.NewReader(cropped))
	if err != nil {
		t.Fatalf("decode cropped: %v", err)
	}
	if decoded.Bounds().Dx() != 40 || decoded.Bounds().Dy() != 40 {
		t.Fatalf("unexpected cropped size: %+v", decoded.Bounds())
	}
}

func TestCropImageNilRegionReturnsOriginal(t *testing.T) {
	data := []byte{1, 2, 3}
	out, offX, offY, err := cropImage(data, nil)
	if err != nil {
		t.Fatalf("cropImage error: %v", err)
	}
	if offX != 0 || offY != 0 {
		t.Fatalf("expected zero offsets for nil region")
	}
	if !bytes.Equal(out, data) {
		t.Fatalf("expected original bytes returned unchanged")
	}
}
