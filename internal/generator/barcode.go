package generator

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

const tokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateBarcode builds the barcode value for one variant according to the format.
func GenerateBarcode(v VariantInput, rules BarcodeRules, counter int64) (string, error) {
	switch strings.ToUpper(rules.Format) {
	case FormatQR:
		if rules.AllowFreeTextQR {
			if v.SKU != "" {
				return v.SKU, nil
			}
			if v.ProductURL != "" {
				return v.ProductURL, nil
			}
		}
		return randomToken(qrTokenLength)
	case FormatCode128:
		source := v.SKU
		if source == "" {
			source = fmt.Sprintf("V%d", v.VariantID)
		}
		return rules.Prefix + source, nil
	default:
		return numericBarcode(v, rules, counter)
	}
}

// TargetLength is the full code length including the check digit.
func TargetLength(format string) int {
	if strings.EqualFold(format, FormatUPC) {
		return upcLength
	}
	return defaultLength
}

func numericBarcode(v VariantInput, rules BarcodeRules, counter int64) (string, error) {
	target := TargetLength(rules.Format)

	source := DigitsOnly(v.SKU)
	if source == "" {
		source = strconv.FormatInt(counter, 10)
	}
	base := DigitsOnly(rules.Prefix) + source

	if len(base) > target-1 {
		base = base[:target-1]
	}
	if rules.AutoFill && len(base) < target-1 {
		base = strings.Repeat("0", target-1-len(base)) + base
	}
	if base == "" {
		return "", fmt.Errorf("no digits available for %s barcode of variant %d", rules.Format, v.VariantID)
	}
	return base + strconv.Itoa(CheckDigit(base)), nil
}

func DigitsOnly(s string) string {
	var b strings.Builder
	for _, c := range s {
		if c >= '0' && c <= '9' {
			b.WriteRune(c)
		}
	}
	return b.String()
}

func randomToken(n int) (string, error) {
	limit := big.NewInt(int64(len(tokenAlphabet)))
	out := make([]byte, n)
	for i := range out {
		idx, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		out[i] = tokenAlphabet[idx.Int64()]
	}
	return string(out), nil
}
