package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/fekuna/shopsync-service/internal/apperr"
	"github.com/fekuna/shopsync-service/internal/model"
	"github.com/shopspring/decimal"
)

var ErrMissingProductID = fmt.Errorf("%w: missing product id", apperr.ErrMalformedPayload)

const autoBarcodePrefix = "AUTO-"

// variantFields is the shape-independent view of one variant before it becomes a row.
type variantFields struct {
	id       int64
	title    string
	sku      string
	barcode  string
	price    decimal.Decimal
	quantity int
	options  []string
	image    *model.Image
	imageID  int64
}

// Normalize detects the payload shape and returns the canonical product with its variants.
// Variants without an id are dropped; a product without an id is ErrMissingProductID.
func Normalize(raw []byte) (*model.Product, error) {
	shape, node, err := DetectShape(raw)
	if err != nil {
		return nil, err
	}
	switch shape {
	case ShapeREST:
		return normalizeREST(node)
	case ShapeGraphQL:
		return normalizeGraphQL(node)
	default:
		return nil, fmt.Errorf("%w: shape %s", apperr.ErrMalformedPayload, shape)
	}
}

// ProductID extracts only the product id, which is all a delete payload carries.
func ProductID(raw []byte) (int64, error) {
	_, node, err := DetectShape(raw)
	if err != nil {
		return 0, err
	}
	var stub struct {
		ID FlexID `json:"id"`
	}
	if err := decode(node, &stub); err != nil {
		return 0, err
	}
	if stub.ID == 0 {
		return 0, ErrMissingProductID
	}
	return int64(stub.ID), nil
}

func decode(node json.RawMessage, v any) error {
	if err := json.Unmarshal(node, v); err != nil {
		if errors.Is(err, apperr.ErrMalformedPayload) {
			return err
		}
		return fmt.Errorf("%w: %v", apperr.ErrMalformedPayload, err)
	}
	return nil
}

func normalizeREST(node json.RawMessage) (*model.Product, error) {
	var in restProduct
	if err := decode(node, &in); err != nil {
		return nil, err
	}
	if in.ID == 0 {
		return nil, ErrMissingProductID
	}

	images := make(model.ImageList, 0, len(in.Images))
	for _, img := range in.Images {
		if img.Src == "" {
			continue
		}
		images = append(images, model.Image{ID: int64(img.ID), Src: img.Src, Alt: img.Alt})
	}
	if len(images) == 0 && in.Image != nil && in.Image.Src != "" {
		images = append(images, model.Image{ID: int64(in.Image.ID), Src: in.Image.Src, Alt: in.Image.Alt})
	}

	variants := make([]variantFields, 0, len(in.Variants))
	for _, v := range in.Variants {
		f := variantFields{
			id:       int64(v.ID),
			title:    v.Title,
			sku:      v.SKU,
			barcode:  v.Barcode,
			price:    v.Price.Decimal,
			quantity: v.InventoryQuantity,
			options:  []string{v.Option1, v.Option2, v.Option3},
			imageID:  int64(v.ImageID),
		}
		if v.Image != nil && v.Image.Src != "" {
			f.image = &model.Image{ID: int64(v.Image.ID), Src: v.Image.Src, Alt: v.Image.Alt}
		}
		variants = append(variants, f)
	}

	return buildProduct(&model.Product{
		ExternalID:  int64(in.ID),
		Title:       in.Title,
		Description: in.BodyHTML,
		Status:      in.Status,
		Vendor:      in.Vendor,
		ProductType: in.ProductType,
		Tags:        model.StringList(in.Tags),
		Images:      images,
	}, variants), nil
}

func normalizeGraphQL(node json.RawMessage) (*model.Product, error) {
	var in gqlProduct
	if err := decode(node, &in); err != nil {
		return nil, err
	}
	if in.ID == 0 {
		return nil, ErrMissingProductID
	}

	images := make(model.ImageList, 0, len(in.Images))
	for _, img := range in.Images {
		if src := img.source(); src != "" {
			images = append(images, model.Image{ID: int64(img.ID), Src: src, Alt: img.AltText})
		}
	}
	if len(images) == 0 && in.FeaturedImage != nil && in.FeaturedImage.source() != "" {
		images = append(images, model.Image{ID: int64(in.FeaturedImage.ID), Src: in.FeaturedImage.source(), Alt: in.FeaturedImage.AltText})
	}

	variants := make([]variantFields, 0, len(in.Variants))
	for _, v := range in.Variants {
		f := variantFields{
			id:       int64(v.ID),
			title:    v.Title,
			sku:      v.SKU,
			barcode:  v.Barcode,
			price:    v.Price.Decimal,
			quantity: v.InventoryQuantity,
		}
		for _, opt := range v.SelectedOptions {
			f.options = append(f.options, opt.Value)
		}
		if v.Image != nil {
			if src := v.Image.source(); src != "" {
				f.image = &model.Image{ID: int64(v.Image.ID), Src: src, Alt: v.Image.AltText}
			} else if v.Image.ID != 0 {
				f.imageID = int64(v.Image.ID)
			}
		}
		variants = append(variants, f)
	}

	return buildProduct(&model.Product{
		ExternalID:  int64(in.ID),
		Title:       in.Title,
		Description: in.DescriptionHTML,
		Status:      in.Status,
		Vendor:      in.Vendor,
		ProductType: in.ProductType,
		Tags:        model.StringList(in.Tags),
		Images:      images,
	}, variants), nil
}

func buildProduct(p *model.Product, variants []variantFields) *model.Product {
	p.Status = strings.ToLower(strings.TrimSpace(p.Status))
	if p.Status == "" {
		p.Status = model.ProductStatusActive
	}
	if p.Tags == nil {
		p.Tags = model.StringList{}
	}

	byID := make(map[int64]model.Image, len(p.Images))
	for _, img := range p.Images {
		if img.ID != 0 {
			byID[img.ID] = img
		}
	}

	p.Variants = make([]model.Variant, 0, len(variants))
	for _, f := range variants {
		if f.id == 0 {
			continue
		}
		sku := strings.TrimSpace(f.sku)
		barcode := BarcodeFallback(f.barcode, sku, f.id)

		v := model.Variant{
			ExternalID:        f.id,
			Title:             f.title,
			SKU:               optional(sku),
			Barcode:           &barcode,
			Price:             f.price,
			InventoryQuantity: max(f.quantity, 0),
			ImageSrc:          ResolveImage(f.image, f.imageID, byID, p.Images),
		}
		if len(f.options) > 0 {
			v.Option1 = optional(f.options[0])
		}
		if len(f.options) > 1 {
			v.Option2 = optional(f.options[1])
		}
		if len(f.options) > 2 {
			v.Option3 = optional(f.options[2])
		}
		p.Variants = append(p.Variants, v)
	}
	return p
}

// BarcodeFallback keeps every variant displayable: explicit barcode, else sku, else AUTO-{id}.
func BarcodeFallback(barcode, sku string, variantID int64) string {
	if b := strings.TrimSpace(barcode); b != "" {
		return b
	}
	if s := strings.TrimSpace(sku); s != "" {
		return s
	}
	return autoBarcodePrefix + strconv.FormatInt(variantID, 10)
}

// ResolveImage picks the variant image: embedded object, then image id lookup, then the
// product's first image.
func ResolveImage(embedded *model.Image, imageID int64, byID map[int64]model.Image, images []model.Image) *string {
	if embedded != nil && embedded.Src != "" {
		return &embedded.Src
	}
	if imageID != 0 {
		if img, ok := byID[imageID]; ok && img.Src != "" {
			return &img.Src
		}
	}
	if len(images) > 0 && images[0].Src != "" {
		src := images[0].Src
		return &src
	}
	return nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
