// Package textlayer attaches an invisible, selectable text layer to an
// existing PDF page image (§4.K, §6). It is deliberately minimal: a
// byte-level scan for the target page's object and trailer, no font
// subsetting, no compliance pass, no encryption support — those are
// explicit Non-goals ("font metrics for drawing", "PDF rendering"). The
// page image itself is never touched; only new objects are appended and
// the page's /Contents and /Resources are extended via a PDF incremental
// update.
package textlayer

import (
	"bytes"
	"fmt"

	"github.com/wudi/ocrpipe/page"
)

// Options controls how the attached text renders (§6:
// "{ invisible: bool, debug_opacity? }").
type Options struct {
	// Invisible selects PDF text-rendering mode 3 (neither fill nor
	// stroke). This is the normal production mode: text is selectable and
	// copyable but never painted. When false, the text is filled (mode 0).
	Invisible bool

	// DebugOpacity, when > 0, switches to rendering mode 7 (add to clip,
	// still unpainted) and additionally fills an opaque red bounding-box
	// rectangle over each word, so the OCR alignment can be inspected
	// visually. The value only switches this mode on; it is not applied as
	// a fill alpha, so the rectangles cover the page content beneath them.
	DebugOpacity float64

	// The pixel-to-PDF scale is not an Options field: AttachTextLayer takes
	// it as its own scale argument, converting pixel coordinates (the space
	// page.Word boxes are in) to PDF user-space units. Callers typically
	// pass 72/dpi.
}

// fontResourceName is the resource dictionary key every appended content
// stream references; AttachTextLayer installs exactly one base-14 font.
const fontResourceName = "F_ocr"

// AttachTextLayer appends an invisible-text content stream positioning
// each page.Word from result at its scaled bounding box over pageIndex
// (0-based) of pdfBytes, using the base-14 Helvetica font (§4.K).
func AttachTextLayer(pdfBytes []byte, pageIndex int, result page.Result, scale float64, opts Options) ([]byte, error) {
	if scale <= 0 {
		scale = 1
	}

	doc, err := scanDocument(pdfBytes)
	if err != nil {
		return nil, fmt.Errorf("textlayer: scan: %w", err)
	}
	if pageIndex < 0 || pageIndex >= len(doc.pages) {
		return nil, fmt.Errorf("textlayer: page index %d out of range (document has %d pages)", pageIndex, len(doc.pages))
	}
	target := doc.pages[pageIndex]

	nextObj := doc.maxObjNum + 1
	fontObjNum := nextObj
	contentObjNum := nextObj + 1

	fontObj := buildFontObject(fontObjNum)
	contentBytes := buildContentStream(result, scale, opts, target.mediaBoxHeight)
	contentObj := buildStreamObject(contentObjNum, contentBytes)

	newPageDict, err := patchPageDict(target.dictBytes, target.objNum, contentObjNum, fontObjNum)
	if err != nil {
		return nil, fmt.Errorf("textlayer: patch page %d: %w", pageIndex, err)
	}
	pageObj := buildIndirectObject(target.objNum, newPageDict)

	var out bytes.Buffer
	out.Write(pdfBytes)
	if out.Len() > 0 && out.Bytes()[out.Len()-1] != '\n' {
		out.WriteByte('\n')
	}

	var entries []appendedObj

	write := func(objNum int, data []byte) {
		entries = append(entries, appendedObj{num: objNum, offset: int64(out.Len())})
		out.Write(data)
	}
	write(fontObjNum, fontObj)
	write(contentObjNum, contentObj)
	write(target.objNum, pageObj)

	xrefOffset := int64(out.Len())
	writeIncrementalXref(&out, entries, doc.root, nextObj+2, doc.prevStartXref)
	fmt.Fprintf(&out, "startxref\n%d\n%%%%EOF\n", xrefOffset)

	return out.Bytes(), nil
}
