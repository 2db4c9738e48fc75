// Package tsv parses the recognizer's tab-separated word/line records into
// page.Word, page.Line and page.LineBox values (§4.B).
package tsv

import (
	"bufio"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/wudi/ocrpipe/geo"
	"github.com/wudi/ocrpipe/page"
	"github.com/wudi/ocrpipe/textutil"
)

// Column indices within a recognizer TSV row, per §4.B:
// (level, page, block, par, line, word, left, top, width, height, conf, text).
const (
	colLevel = iota
	colPage
	colBlock
	colPar
	colLine
	colWord
	colLeft
	colTop
	colWidth
	colHeight
	colConf
	colText
	minColumns
)

const (
	levelWord = 5
	levelLine = 4
)

type lineAccum struct {
	key       string
	box       geo.BBox
	haveBox   bool
	words     []page.Word
	confSum   float64
	confCount int
}

// Parse reads recognizer TSV rows from r and populates st.Words, st.Lines,
// st.LineBoxes and st.LineKeysWithWords. Rows with fewer than 12 columns
// are skipped. Word IDs are allocated from st so downstream protection
// tracking stays consistent across the pipeline.
func Parse(r io.Reader, st *page.State) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	accums := make(map[string]*lineAccum)
	var order []string

	for scanner.Scan() {
		line := scanner.Text()
		cols := strings.Split(line, "\t")
		if len(cols) < minColumns {
			continue
		}
		level, err := strconv.Atoi(strings.TrimSpace(cols[colLevel]))
		if err != nil {
			continue
		}

		key := lineKey(cols)

		switch level {
		case levelLine:
			box, ok := parseBox(cols)
			if !ok {
				continue
			}
			a := ensureAccum(accums, &order, key)
			a.box = box
			a.haveBox = true

		case levelWord:
			text := textutil.NFC(strings.TrimSpace(cols[colText]))
			if text == "" {
				continue
			}
			box, ok := parseBox(cols)
			if !ok {
				continue
			}
			conf, _ := strconv.ParseFloat(strings.TrimSpace(cols[colConf]), 64)

			w := st.NewWord(text, conf, box)
			st.Words = append(st.Words, w)
			st.LineKeysWithWords[key] = true

			a := ensureAccum(accums, &order, key)
			a.words = append(a.words, w)
			if !a.haveBox {
				a.box = geo.Union(a.box, box)
			}
			if conf >= 0 {
				a.confSum += conf
				a.confCount++
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	for _, key := range order {
		a := accums[key]
		if len(a.words) == 0 {
			if a.haveBox {
				st.LineBoxes = append(st.LineBoxes, page.LineBox{Key: key, Box: a.box})
			}
			continue
		}
		box := a.box
		if !a.haveBox {
			boxes := make([]geo.BBox, len(a.words))
			for i, w := range a.words {
				boxes[i] = w.Box
			}
			box = geo.UnionAll(boxes)
		}
		conf := 0.0
		if a.confCount > 0 {
			conf = a.confSum / float64(a.confCount)
		}
		joinWords := make([]textutil.JoinWord, len(a.words))
		for i, w := range a.words {
			joinWords[i] = textutil.JoinWord{Text: w.Text, Box: w.Box}
		}
		st.Lines = append(st.Lines, page.Line{
			Text:       textutil.JoinWordsForLanguage(joinWords),
			Confidence: conf,
			Box:        box,
			Words:      a.words,
		})
		st.LineBoxes = append(st.LineBoxes, page.LineBox{Key: key, Box: box})
	}

	sort.SliceStable(st.Lines, func(i, j int) bool {
		return st.Lines[i].Box.Y0 < st.Lines[j].Box.Y0
	})

	return nil
}

func ensureAccum(accums map[string]*lineAccum, order *[]string, key string) *lineAccum {
	a, ok := accums[key]
	if !ok {
		a = &lineAccum{key: key}
		accums[key] = a
		*order = append(*order, key)
	}
	return a
}

func lineKey(cols []string) string {
	return strings.Join([]string{cols[colPage], cols[colBlock], cols[colPar], cols[colLine]}, "-")
}

func parseBox(cols []string) (geo.BBox, bool) {
	left, err1 := strconv.ParseFloat(strings.TrimSpace(cols[colLeft]), 64)
	top, err2 := strconv.ParseFloat(strings.TrimSpace(cols[colTop]), 64)
	width, err3 := strconv.ParseFloat(strings.TrimSpace(cols[colWidth]), 64)
	height, err4 := strconv.ParseFloat(strings.TrimSpace(cols[colHeight]), 64)
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
		return geo.BBox{}, false
	}
	return geo.BBox{X0: left, Y0: top, X1: left + width, Y1: top + height}, true
}
