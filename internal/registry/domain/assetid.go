package registry

import (
	"fmt"
	"strconv"
	"time"
	"unicode"
)

// arabicToLatin maps the first letter of a vendor or shipment name to a
// Latin prefix letter.
var arabicToLatin = map[rune]rune{
	'ا': 'A', 'أ': 'A', 'إ': 'A', 'آ': 'A',
	'ب': 'B', 'ت': 'T', 'ث': 'T', 'ج': 'J',
	'ح': 'H', 'خ': 'K', 'د': 'D', 'ذ': 'D',
	'ر': 'R', 'ز': 'Z', 'س': 'S', 'ش': 'S',
	'ص': 'S', 'ض': 'D', 'ط': 'T', 'ظ': 'Z',
	'ع': 'A', 'غ': 'G', 'ف': 'F', 'ق': 'Q',
	'ك': 'K', 'ل': 'L', 'م': 'M', 'ن': 'N',
	'ه': 'H', 'و': 'W', 'ي': 'Y', 'ى': 'Y',
}

// AssetPrefix derives the asset id prefix from a vendor or shipment name.
// Unmapped characters fall back to "X".
func AssetPrefix(name string) string {
	for _, r := range name {
		if unicode.IsSpace(r) {
			continue
		}
		if mapped, ok := arabicToLatin[r]; ok {
			return string(mapped)
		}
		if r >= 'a' && r <= 'z' {
			return string(unicode.ToUpper(r))
		}
		if r >= 'A' && r <= 'Z' {
			return string(r)
		}
		break
	}
	return "X"
}

// BatchAssetID formats a sequential asset id for a shipment batch.
func BatchAssetID(prefix string, sequence int) string {
	if prefix == "" {
		prefix = "X"
	}
	return fmt.Sprintf("%s-%04d", prefix, sequence)
}

// ManualAssetID generates a fallback asset id for manually created devices.
func ManualAssetID(now time.Time) string {
	return "DEV-" + strconv.FormatInt(now.Unix(), 10)
}
