package generator

// CheckDigit computes the GTIN (UPC-A / EAN-13) mod-10 check digit for the data digits.
// Walking from the rightmost data digit the weights alternate 3, 1, 3, ... so the result
// matches the position parity of the full code whatever its length.
func CheckDigit(data string) int {
	sum := 0
	weight := 3
	for i := len(data) - 1; i >= 0; i-- {
		sum += int(data[i]-'0') * weight
		if weight == 3 {
			weight = 1
		} else {
			weight = 3
		}
	}
	return (10 - sum%10) % 10
}

// ValidChecksum reports whether the last digit of code is the check digit of the rest.
func ValidChecksum(code string) bool {
	if len(code) < 2 || DigitsOnly(code) != code {
		return false
	}
	return CheckDigit(code[:len(code)-1]) == int(code[len(code)-1]-'0')
}
