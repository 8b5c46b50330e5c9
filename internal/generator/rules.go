// Package generator turns counter values and variant data into SKU and barcode strings.
// Everything here is pure; persistence and counter minting belong to the caller.
package generator

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	FormatQR      = "QR"
	FormatCode128 = "CODE128"
	FormatUPC     = "UPC"
	FormatEAN13   = "EAN13"
	FormatEAN8    = "EAN8"
	FormatISBN    = "ISBN"
)

const (
	upcLength     = 12
	defaultLength = 13
	minPadLength  = 4
	qrTokenLength = 12
)

type SKURules struct {
	Prefix       string `json:"prefix" validate:"max=32"`
	Delimiter    string `json:"delimiter" validate:"max=3"`
	Suffix       string `json:"suffix" validate:"max=32"`
	AutoStart    string `json:"auto_start" validate:"omitempty,numeric,max=12"`
	RemoveSpaces bool   `json:"remove_spaces"`
	// PerProduct keeps one sequence per product instead of one per shop.
	PerProduct bool `json:"per_product"`
}

type BarcodeRules struct {
	Format          string `json:"format" validate:"required,oneof=QR CODE128 UPC EAN13 EAN8 ISBN"`
	Prefix          string `json:"prefix" validate:"max=12"`
	AutoFill        bool   `json:"auto_fill"`
	AllowFreeTextQR bool   `json:"allow_free_text_qr"`
	AutoStart       string `json:"auto_start" validate:"omitempty,numeric,max=12"`
	PerProduct      bool   `json:"per_product"`
}

// VariantInput is the subset of a variant the barcode rules read.
type VariantInput struct {
	VariantID  int64
	SKU        string
	ProductURL string
}

var validate = validator.New()

func (r SKURules) Validate() error {
	return validate.Struct(r)
}

func (r BarcodeRules) Validate() error {
	return validate.Struct(r)
}

// Normalize brings Format to its canonical upper-case name; call it before Validate.
func (r *BarcodeRules) Normalize() {
	r.Format = strings.ToUpper(strings.TrimSpace(r.Format))
}

// StartValue is the first counter value a fresh sequence should hand out.
func StartValue(autoStart string) int64 {
	var n int64
	for _, c := range autoStart {
		if c < '0' || c > '9' {
			return 1
		}
		n = n*10 + int64(c-'0')
	}
	if n <= 0 {
		return 1
	}
	return n
}
