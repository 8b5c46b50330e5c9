package generator

import (
	"fmt"
	"strings"
)

// GenerateSKU composes prefix, zero padded counter and suffix. The pad width is the length
// of AutoStart with a floor of four digits.
func GenerateSKU(counter int64, rules SKURules) string {
	width := len(rules.AutoStart)
	if width < minPadLength {
		width = minPadLength
	}

	parts := make([]string, 0, 3)
	if rules.Prefix != "" {
		parts = append(parts, rules.Prefix)
	}
	parts = append(parts, fmt.Sprintf("%0*d", width, counter))
	if rules.Suffix != "" {
		parts = append(parts, rules.Suffix)
	}

	sku := strings.Join(parts, rules.Delimiter)
	if rules.RemoveSpaces {
		sku = strings.ReplaceAll(sku, " ", "")
	}
	return sku
}
