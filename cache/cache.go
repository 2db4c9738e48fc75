// Package cache implements the cache glue of §4.J/§6: key computation,
// fingerprinting, validity checks, and an in-memory reference store. The
// embedded KV store itself is explicitly out of scope — callers inject
// their own Cache.
package cache

import (
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/wudi/ocrpipe/page"
)

// Params are the recognition parameters a cache entry is keyed and
// validated against.
type Params struct {
	Language    string
	DPI         int
	PageSegMode string
}

// Entry is a cached PageResult plus the parameters it was produced with.
type Entry struct {
	DocumentID string
	Page       int
	Result     page.Result
	Params     Params
	UpdatedAt  time.Time
}

// Cache is a page-OCR cache keyed by (document_id, page_number) (§6
// "Cache interface").
type Cache interface {
	Get(docID string, pageNum int) (Entry, bool)
	Put(docID string, pageNum int, entry Entry)
	LatestForDocument(docID string) (Entry, bool)
}

// Fingerprint computes a stable cache key over the image bytes and
// normalized parameters (language codes sorted, dpi, psm), per §2's
// "cacheable by a stable fingerprint" requirement.
func Fingerprint(imageBytes []byte, params Params) string {
	h, err := blake2b.New256(nil)
	if err != nil {
		panic(err) // blake2b.New256 with a nil key never errors
	}
	h.Write(imageBytes)
	h.Write([]byte{0})
	h.Write([]byte(normalizeLanguage(params.Language)))
	h.Write([]byte{0})
	h.Write([]byte(itoa(params.DPI)))
	h.Write([]byte{0})
	h.Write([]byte(params.PageSegMode))
	sum := h.Sum(nil)
	return hex(sum)
}

func normalizeLanguage(lang string) string {
	codes := strings.Split(lang, "+")
	sort.Strings(codes)
	return strings.Join(codes, "+")
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

const hexDigits = "0123456789abcdef"

func hex(b []byte) string {
	out := make([]byte, len(b)*2)
	for i, v := range b {
		out[i*2] = hexDigits[v>>4]
		out[i*2+1] = hexDigits[v&0xf]
	}
	return string(out)
}

// Valid implements the four-way match rule (§3/§6): a cached entry is
// valid only when language (normalized), dpi, page segmentation mode, and
// algorithm version all match the current request.
func Valid(entry Entry, req Params, algorithmVersion int) bool {
	return normalizeLanguage(entry.Params.Language) == normalizeLanguage(req.Language) &&
		entry.Params.DPI == req.DPI &&
		entry.Params.PageSegMode == req.PageSegMode &&
		entry.Result.AlgorithmVersion == algorithmVersion
}

// MemStore is an in-memory, mutex-protected reference implementation of
// Cache, used by tests and as the default when no external store is
// injected.
type MemStore struct {
	mu      sync.Mutex
	entries map[string]map[int]Entry
}

// NewMemStore constructs an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{entries: make(map[string]map[int]Entry)}
}

// Get returns the cached entry for (docID, pageNum), if any.
func (m *MemStore) Get(docID string, pageNum int) (Entry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pages, ok := m.entries[docID]
	if !ok {
		return Entry{}, false
	}
	e, ok := pages[pageNum]
	return e, ok
}

// Put performs an idempotent upsert; the last write wins (§6).
func (m *MemStore) Put(docID string, pageNum int, entry Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pages, ok := m.entries[docID]
	if !ok {
		pages = make(map[int]Entry)
		m.entries[docID] = pages
	}
	pages[pageNum] = entry
}

// LatestForDocument returns the most recently updated entry for docID, if
// any (§6).
func (m *MemStore) LatestForDocument(docID string) (Entry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pages, ok := m.entries[docID]
	if !ok || len(pages) == 0 {
		return Entry{}, false
	}
	var latest Entry
	found := false
	for _, e := range pages {
		if !found || e.UpdatedAt.After(latest.UpdatedAt) {
			latest = e
			found = true
		}
	}
	return latest, found
}
