package shared

import (
	"sync"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// The collator keeps an internal buffer, so access is serialized.
var (
	arabicMu       sync.Mutex
	arabicCollator = collate.New(language.Arabic)
)

// CompareArabic compares two strings under Arabic collation rules. Byte-wise
// ordering misplaces hamza and taa marbuta variants, which matters for
// name-sorted listings.
func CompareArabic(a, b string) int {
	arabicMu.Lock()
	defer arabicMu.Unlock()
	return arabicCollator.CompareString(a, b)
}
