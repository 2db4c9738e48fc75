package cache

import (
	"testing"
	"time"

	"github.com/wudi/ocrpipe/page"
)

func TestFingerprintDeterministic(t *testing.T) {
	params := Params{Language: "eng+jpn", DPI: 300, PageSegMode: "auto"}
	a := Fingerprint([]byte("page-bytes"), params)
	b := Fingerprint([]byte("page-bytes"), params)
	if a != b {
		t.Fatalf("expected fingerprint to be deterministic for identical inputs")
	}
}

func TestFingerprintNormalizesLanguageOrder(t *testing.T) {
	a := Fingerprint([]byte("page-bytes"), Params{Language: "eng+jpn", DPI: 300, PageSegMode: "auto"})
	b := Fingerprint([]byte("page-bytes"), Params{Language: "jpn+eng", DPI: 300, PageSegMode: "auto"})
	if a != b {
		t.Fatalf("expected language code order to be normalized before hashing")
	}
}

func TestFingerprintChangesWithImageBytes(t *testing.T) {
	params := Params{Language: "eng", DPI: 300, PageSegMode: "auto"}
	a := Fingerprint([]byte("page-one"), params)
	b := Fingerprint([]byte("page-two"), params)
	if a == b {
		t.Fatalf("expected different image bytes to produce different fingerprints")
	}
}

func TestValidMatchesAllFourFields(t *testing.T) {
	entry := Entry{
		Params: Params{Language: "jpn+eng", DPI: 300, PageSegMode: "auto"},
		Result: page.Result{AlgorithmVersion: 3},
	}
	req := Params{Language: "eng+jpn", DPI: 300, PageSegMode: "auto"}
	if !Valid(entry, req, 3) {
		t.Fatalf("expected entry valid when all four fields match (language order-independent)")
	}
	if Valid(entry, req, 4) {
		t.Fatalf("expected entry invalid when algorithm version differs")
	}
	req.DPI = 150
	if Valid(entry, req, 3) {
		t.Fatalf("expected entry invalid when dpi differs")
	}
}

func TestMemStoreGetPutRoundTrip(t *testing.T) {
	store := NewMemStore()
	if _, ok := store.Get("doc1", 1); ok {
		t.Fatalf("expected empty store to miss")
	}
	entry := Entry{DocumentID: "doc1", Page: 1, UpdatedAt: time.Unix(100, 0)}
	store.Put("doc1", 1, entry)
	got, ok := store.Get("doc1", 1)
	if !ok || got.Page != 1 {
		t.Fatalf("expected round-tripped entry, got %+v ok=%v", got, ok)
	}
}

func TestMemStoreLatestForDocument(t *testing.T) {
	store := NewMemStore()
	store.Put("doc1", 1, Entry{Page: 1, UpdatedAt: time.Unix(100, 0)})
	store.Put("doc1", 2, Entry{Page: 2, UpdatedAt: time.Unix(200, 0)})
	store.Put("doc1", 3, Entry{Page: 3, UpdatedAt: time.Unix(150, 0)})

	latest, ok := store.LatestForDocument("doc1")
	if !ok || latest.Page != 2 {
		t.Fatalf("expected page 2 to be latest by UpdatedAt, got %+v ok=%v", latest, ok)
	}

	if _, ok := store.LatestForDocument("missing"); ok {
		t.Fatalf("expected missing document to miss")
	}
}

func TestMemStorePutIsLastWriterWins(t *testing.T) {
	store := NewMemStore()
	store.Put("doc1", 1, Entry{Result: page.Result{Text: "first"}})
	store.Put("doc1", 1, Entry{Result: page.Result{Text: "second"}})
	got, _ := store.Get("doc1", 1)
	if got.Result.Text != "second" {
		t.Fatalf("expected last write to win, got %q", got.Result.Text)
	}
}
