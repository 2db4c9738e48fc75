package textlayer

import (
	"fmt"
	"regexp"
	"strconv"
)

// pdfDocument is the minimal structural view AttachTextLayer needs: the
// page list in document order, the raw object bodies (for resolving
// indirect /Resources references), and enough trailer state to append a
// valid incremental update.
type pdfDocument struct {
	pages         []pdfPage
	objects       map[int][]byte // object number -> bytes between "obj" and "endobj"
	maxObjNum     int
	root          string // "<n> 0 R" as found in the trailer's /Root entry
	prevStartXref int64
}

type pdfPage struct {
	objNum          int
	dictBytes       []byte
	mediaBoxHeight  float64
}

var (
	reObjStart   = regexp.MustCompile(`(?s)(\d+)\s+0\s+obj`)
	reTrailer    = regexp.MustCompile(`(?s)trailer\s*(<<.*?>>)\s*startxref`)
	reStartXref  = regexp.MustCompile(`startxref\s+(\d+)`)
	reRootRef    = regexp.MustCompile(`/Root\s+(\d+)\s+0\s+R`)
	rePagesRef   = regexp.MustCompile(`/Pages\s+(\d+)\s+0\s+R`)
	reKidsArray  = regexp.MustCompile(`(?s)/Kids\s*\[(.*?)\]`)
	reKidRef     = regexp.MustCompile(`(\d+)\s+0\s+R`)
	reTypePage   = regexp.MustCompile(`/Type\s*/Page(?:[^s]|$)`)
	reMediaBox   = regexp.MustCompile(`/MediaBox\s*\[\s*([\-\d.]+)\s+([\-\d.]+)\s+([\-\d.]+)\s+([\-\d.]+)\s*\]`)
)

// scanDocument builds a pdfDocument from raw PDF bytes, walking the
// catalog's page tree starting at the final trailer (the one an
// incremental-update-aware reader would resolve). It supports plain
// trailers only; cross-reference-stream-only documents (PDF 1.5+ without
// a legacy trailer) are rejected, matching the Non-goal of full PDF
// compliance.
func scanDocument(pdfBytes []byte) (*pdfDocument, error) {
	doc := &pdfDocument{objects: map[int][]byte{}}

	for _, m := range reObjStart.FindAllSubmatchIndex(pdfBytes, -1) {
		numStr := string(pdfBytes[m[2]:m[3]])
		num, err := strconv.Atoi(numStr)
		if err != nil {
			continue
		}
		if num > doc.maxObjNum {
			doc.maxObjNum = num
		}
		bodyStart := m[1]
		end := indexFrom(pdfBytes, "endobj", bodyStart)
		if end < 0 {
			continue
		}
		doc.objects[num] = pdfBytes[bodyStart:end]
	}

	trailerMatches := reTrailer.FindAllSubmatch(pdfBytes, -1)
	if len(trailerMatches) == 0 {
		return nil, fmt.Errorf("no trailer dictionary found (cross-reference-stream-only PDFs are not supported)")
	}
	trailer := trailerMatches[len(trailerMatches)-1][1]

	rootMatch := reRootRef.FindSubmatch(trailer)
	if rootMatch == nil {
		return nil, fmt.Errorf("trailer has no /Root entry")
	}
	rootNum, _ := strconv.Atoi(string(rootMatch[1]))
	doc.root = fmt.Sprintf("%d 0 R", rootNum)

	if sx := reStartXref.FindAllSubmatch(pdfBytes, -1); len(sx) > 0 {
		last := sx[len(sx)-1]
		v, _ := strconv.ParseInt(string(last[1]), 10, 64)
		doc.prevStartXref = v
	}

	catalog, ok := doc.objects[rootNum]
	if !ok {
		return nil, fmt.Errorf("catalog object %d 0 obj not found", rootNum)
	}
	pagesRefMatch := rePagesRef.FindSubmatch(catalog)
	if pagesRefMatch == nil {
		return nil, fmt.Errorf("catalog %d 0 obj has no /Pages entry", rootNum)
	}
	pagesNum, _ := strconv.Atoi(string(pagesRefMatch[1]))

	var walk func(objNum int, inheritedMediaBoxH float64) error
	walk = func(objNum int, inheritedMediaBoxH float64) error {
		body, ok := doc.objects[objNum]
		if !ok {
			return fmt.Errorf("referenced object %d 0 obj not found", objNum)
		}
		mbH := inheritedMediaBoxH
		if mb := reMediaBox.FindSubmatch(body); mb != nil {
			y0, _ := strconv.ParseFloat(string(mb[2]), 64)
			y1, _ := strconv.ParseFloat(string(mb[4]), 64)
			if y1 > y0 {
				mbH = y1 - y0
			}
		}
		if reTypePage.Match(body) {
			doc.pages = append(doc.pages, pdfPage{objNum: objNum, dictBytes: body, mediaBoxHeight: mbH})
			return nil
		}
		kids := reKidsArray.FindSubmatch(body)
		if kids == nil {
			return fmt.Errorf("page tree node %d 0 obj has neither /Type /Page nor /Kids", objNum)
		}
		for _, kidMatch := range reKidRef.FindAllSubmatch(kids[1], -1) {
			kidNum, _ := strconv.Atoi(string(kidMatch[1]))
			if err := walk(kidNum, mbH); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(pagesNum, 792); err != nil {
		return nil, err
	}
	if len(doc.pages) == 0 {
		return nil, fmt.Errorf("document has no pages")
	}
	return doc, nil
}

func indexFrom(haystack []byte, needle string, from int) int {
	if from > len(haystack) {
		return -1
	}
	idx := indexBytes(haystack[from:], needle)
	if idx < 0 {
		return -1
	}
	return from + idx
}

func indexBytes(haystack []byte, needle string) int {
	n := len(needle)
	if n == 0 {
		return 0
	}
	for i := 0; i+n <= len(haystack); i++ {
		if string(haystack[i:i+n]) == needle {
			return i
		}
	}
	return -1
}
