package cache

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"
)

// TTLs for the pipeline's cache namespaces.
const (
	ScanTTL        = 30 * 24 * time.Hour  // OCR scan results
	DefaultMetaTTL = 180 * 24 * time.Hour // resolved book metadata
	RecsTTL        = 7 * 24 * time.Hour   // recommendations (consumed externally)
)

// ScanKey keys an OCR result by the hash of the original image bytes plus
// the primary-provider preference, so adapted and original uploads of the
// same image converge on one entry.
func ScanKey(imageHash string, groqEnabled bool) string {
	return fmt.Sprintf("scan:%s:groq_%t", imageHash, groqEnabled)
}

// MetaKey keys a canonical book record by its fingerprint.
func MetaKey(fp string) string {
	return "meta:" + fp
}

// RecsKey keys cached recommendations for a device and a book set. The
// recommendation service itself lives outside this codebase; only the key
// contract is shared.
func RecsKey(deviceID, booksHash string) string {
	return fmt.Sprintf("recs:%s:%s", deviceID, booksHash)
}

// BooksHash produces a deterministic digest of a book-id set, independent
// of input order or duplicates.
func BooksHash(bookIDs []int) string {
	seen := make(map[int]struct{}, len(bookIDs))
	uniq := make([]int, 0, len(bookIDs))
	for _, id := range bookIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		uniq = append(uniq, id)
	}
	sort.Ints(uniq)
	parts := make([]string, len(uniq))
	for i, id := range uniq {
		parts[i] = fmt.Sprintf("%d", id)
	}
	sum := sha1.Sum([]byte(strings.Join(parts, ",")))
	return hex.EncodeToString(sum[:])
}
