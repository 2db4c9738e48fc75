package textlayer

import (
	"bytes"
	"fmt"
	"sort"
)

type appendedObj struct {
	num    int
	offset int64
}

// writeIncrementalXref appends a classic (non-stream) cross-reference
// table covering only the newly written objects, plus a trailer whose
// /Prev points at the original file's final startxref offset. A PDF
// reader merges this against the prior xref chain, so unrelated objects
// are left untouched (§4.K: "a trivial consumer").
func writeIncrementalXref(out *bytes.Buffer, entries []appendedObj, root string, size int, prevStartXref int64) {
	sorted := append([]appendedObj(nil), entries...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].num < sorted[j].num })

	out.WriteString("xref\n")
	for _, e := range sorted {
		fmt.Fprintf(out, "%d 1\n", e.num)
		fmt.Fprintf(out, "%010d 00000 n \n", e.offset)
	}
	out.WriteString("trailer\n")
	fmt.Fprintf(out, "<< /Size %d /Root %s /Prev %d >>\n", size, root, prevStartXref)
}
