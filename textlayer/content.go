package textlayer

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/wudi/ocrpipe/geo"
	"github.com/wudi/ocrpipe/page"
)

// helveticaAvgWidth is the average advance width of Helvetica as a fraction
// of the font size (about 520 units of a 1000 unit em), used only to estimate a horizontal-scaling factor (Tz) so a
// word's invisible glyphs roughly span its recognized pixel box. This is
// not true glyph metrics — the font program is never consulted, matching
// the Non-goal of exact font metrics for drawing.
const helveticaAvgWidth = 0.52

func buildFontObject(num int) []byte {
	return []byte(fmt.Sprintf("%d 0 obj\n<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>\nendobj\n", num))
}

func buildStreamObject(num int, content []byte) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%d 0 obj\n<< /Length %d >>\nstream\n", num, len(content))
	buf.Write(content)
	buf.WriteString("\nendstream\nendobj\n")
	return buf.Bytes()
}

func buildIndirectObject(num int, dict []byte) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%d 0 obj\n", num)
	buf.Write(dict)
	buf.WriteString("\nendobj\n")
	return buf.Bytes()
}

// buildContentStream emits one BT/ET block per word, each positioned at
// its scaled, bottom-up-converted box origin (§4.K). Invisible mode uses
// Tr 3 and non-invisible mode Tr 0 (fill); debug mode uses Tr 7 plus an
// opaque red rectangle per word so alignment can be inspected without the
// glyphs ever painting. The DebugOpacity value is not applied as an alpha.
func buildContentStream(result page.Result, scale float64, opts Options, mediaBoxHeight float64) []byte {
	var buf strings.Builder

	renderMode := 3
	if !opts.Invisible {
		renderMode = 0
	}
	if opts.DebugOpacity > 0 {
		renderMode = 7
		fmt.Fprintf(&buf, "/GS_ocr_debug gs\n")
	}

	// pixelToPDF maps top-down pixel coordinates to bottom-up PDF user
	// space: scale, then flip and translate against the page's MediaBox
	// height.
	pixelToPDF := geo.Scale(scale, -scale).Multiply(geo.Translate(0, mediaBoxHeight))

	for _, w := range result.Words {
		if strings.TrimSpace(w.Text) == "" {
			continue
		}
		box := pixelToPDF.TransformBox(w.Box)
		boxW := box.Width()
		boxH := box.Height()
		if boxH <= 0 {
			boxH = 10
		}
		pdfX := box.X0
		pdfY := box.Y0

		if opts.DebugOpacity > 0 {
			fmt.Fprintf(&buf, "q %.3f %.3f %.3f %.3f re %.3f %.3f %.3f rg f Q\n",
				pdfX, pdfY, boxW, boxH, 1.0, 0.0, 0.0)
		}

		fontSize := boxH * 0.85
		if fontSize <= 0 {
			fontSize = 1
		}
		hscale := 100.0
		if boxW > 0 && fontSize > 0 {
			natural := float64(len([]rune(w.Text))) * fontSize * helveticaAvgWidth
			if natural > 0 {
				hscale = (boxW / natural) * 100
			}
		}
		hscale = clampFloat(hscale, 1, 500)

		buf.WriteString("BT\n")
		fmt.Fprintf(&buf, "/%s %.3f Tf\n", fontResourceName, fontSize)
		fmt.Fprintf(&buf, "%d Tr\n", renderMode)
		fmt.Fprintf(&buf, "%.3f Tz\n", hscale)
		fmt.Fprintf(&buf, "%.3f %.3f Td\n", pdfX, pdfY)
		buf.WriteString(encodePDFString(w.Text))
		buf.WriteString(" Tj\n")
		buf.WriteString("ET\n")
	}
	return []byte(buf.String())
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// encodePDFString escapes text into a PDF literal string. Runes outside
// WinAnsi/Latin-1 are replaced with '?': base-14 Helvetica has no
// embedded ToUnicode CMap in this implementation, so CJK and other
// non-Latin-1 text is positioned correctly but is not round-trippable as
// exact Unicode from the text layer — an accepted limitation given the
// Non-goal of font subsetting.
func encodePDFString(text string) string {
	var b strings.Builder
	b.WriteByte('(')
	for _, r := range text {
		switch {
		case r == '(' || r == ')' || r == '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		case r < 0x80:
			b.WriteRune(r)
		case r <= 0xFF:
			fmt.Fprintf(&b, "\\%03o", r)
		default:
			b.WriteByte('?')
		}
	}
	b.WriteByte(')')
	return b.String()
}

var (
	reContentsEntry  = regexp.MustCompile(`/Contents\s*(\[[^\]]*\]|\d+\s+0\s+R)`)
	reResourcesEntry = regexp.MustCompile(`(?s)/Resources\s*(<<(?:[^<>]|<<[^<>]*>>)*>>|\d+\s+0\s+R)`)
	reFontEntry      = regexp.MustCompile(`(?s)/Font\s*(<<(?:[^<>]|<<[^<>]*>>)*>>|\d+\s+0\s+R)`)
)

// patchPageDict rewrites a page object's dictionary so /Contents includes
// the new content stream and /Resources/Font includes the OCR font,
// without disturbing the page's existing content or resources.
func patchPageDict(dictBytes []byte, pageObjNum, contentObjNum, fontObjNum int) ([]byte, error) {
	dict := dictBytes

	contentsMatch := reContentsEntry.FindSubmatchIndex(dict)
	if contentsMatch == nil {
		return nil, fmt.Errorf("page %d 0 obj has no /Contents entry", pageObjNum)
	}
	existing := string(dict[contentsMatch[2]:contentsMatch[3]])
	var newContents string
	if strings.HasPrefix(existing, "[") {
		inner := strings.TrimSuffix(strings.TrimPrefix(existing, "["), "]")
		newContents = fmt.Sprintf("[%s %d 0 R]", inner, contentObjNum)
	} else {
		newContents = fmt.Sprintf("[%s %d 0 R]", existing, contentObjNum)
	}
	dict = replaceSpan(dict, contentsMatch[0], contentsMatch[1], "/Contents "+newContents)

	fontEntry := fmt.Sprintf("/%s %d 0 R", fontResourceName, fontObjNum)

	resMatch := reResourcesEntry.FindSubmatchIndex(dict)
	if resMatch == nil {
		newRes := fmt.Sprintf("/Resources << /Font << %s >> >>", fontEntry)
		dict = append(dict, []byte(" "+newRes)...)
		return dict, nil
	}
	resValue := string(dict[resMatch[2]:resMatch[3]])
	if strings.HasPrefix(resValue, "<<") {
		newResValue := insertFontIntoResourcesDict(resValue, fontEntry)
		dict = replaceSpan(dict, resMatch[0], resMatch[1], "/Resources "+newResValue)
	} else {
		// Indirect /Resources reference: leave the shared resources object
		// alone and add a page-local /Resources dict that only carries the
		// OCR font; PDF readers resolve the nearest inline dict first.
		newRes := fmt.Sprintf("/Resources << /Font << %s >> >>", fontEntry)
		dict = replaceSpan(dict, resMatch[0], resMatch[1], newRes)
	}
	return dict, nil
}

func insertFontIntoResourcesDict(resDict, fontEntry string) string {
	fontMatch := reFontEntry.FindStringSubmatchIndex(resDict)
	if fontMatch == nil {
		inner := strings.TrimSuffix(strings.TrimPrefix(resDict, "<<"), ">>")
		return fmt.Sprintf("<< %s /Font << %s >> >>", inner, fontEntry)
	}
	fontValue := resDict[fontMatch[2]:fontMatch[3]]
	if strings.HasPrefix(fontValue, "<<") {
		inner := strings.TrimSuffix(strings.TrimPrefix(fontValue, "<<"), ">>")
		newFontValue := fmt.Sprintf("<< %s %s >>", inner, fontEntry)
		return resDict[:fontMatch[2]] + newFontValue + resDict[fontMatch[3]:]
	}
	// /Font is itself an indirect reference: fall back to a fresh inline
	// /Font dict carrying only the OCR font entry, appended alongside.
	return resDict[:len(resDict)-2] + fmt.Sprintf(" /Font << %s >> >>", fontEntry)
}

func replaceSpan(b []byte, start, end int, replacement string) []byte {
	out := make([]byte, 0, len(b)-(end-start)+len(replacement))
	out = append(out, b[:start]...)
	out = append(out, []byte(replacement)...)
	out = append(out, b[end:]...)
	return out
}
