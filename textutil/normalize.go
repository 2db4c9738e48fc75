package textutil

import "golang.org/x/text/unicode/norm"

// NFC normalizes s to Unicode Normalization Form C, the canonical form
// every Word.Text carries after cleanup (§3).
func NFC(s string) string {
	return norm.NFC.String(s)
}
