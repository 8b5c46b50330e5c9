package ingest

type restImage struct {
	ID  FlexID `json:"id"`
	Src string `json:"src"`
	Alt string `json:"alt"`
}

type restVariant struct {
	ID                FlexID     `json:"id"`
	Title             string     `json:"title"`
	SKU               string     `json:"sku"`
	Barcode           string     `json:"barcode"`
	Price             Price      `json:"price"`
	InventoryQuantity int        `json:"inventory_quantity"`
	Option1           string     `json:"option1"`
	Option2           string     `json:"option2"`
	Option3           string     `json:"option3"`
	ImageID           FlexID     `json:"image_id"`
	Image             *restImage `json:"image"`
}

type restProduct struct {
	ID          FlexID        `json:"id"`
	Title       string        `json:"title"`
	BodyHTML    string        `json:"body_html"`
	Status      string        `json:"status"`
	Vendor      string        `json:"vendor"`
	ProductType string        `json:"product_type"`
	Tags        Tags          `json:"tags"`
	Image       *restImage    `json:"image"`
	Images      []restImage   `json:"images"`
	Variants    []restVariant `json:"variants"`
}

type gqlImage struct {
	ID          FlexID `json:"id"`
	URL         string `json:"url"`
	Src         string `json:"src"`
	OriginalSrc string `json:"originalSrc"`
	AltText     string `json:"altText"`
}

func (i *gqlImage) source() string {
	switch {
	case i.URL != "":
		return i.URL
	case i.Src != "":
		return i.Src
	default:
		return i.OriginalSrc
	}
}

type gqlSelectedOption struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type gqlVariant struct {
	ID                FlexID              `json:"id"`
	Title             string              `json:"title"`
	SKU               string              `json:"sku"`
	Barcode           string              `json:"barcode"`
	Price             Price               `json:"price"`
	InventoryQuantity int                 `json:"inventoryQuantity"`
	SelectedOptions   []gqlSelectedOption `json:"selectedOptions"`
	Image             *gqlImage           `json:"image"`
}

type gqlProduct struct {
	ID              FlexID                 `json:"id"`
	Title           string                 `json:"title"`
	DescriptionHTML string                 `json:"descriptionHtml"`
	Status          string                 `json:"status"`
	Vendor          string                 `json:"vendor"`
	ProductType     string                 `json:"productType"`
	Tags            Tags                   `json:"tags"`
	FeaturedImage   *gqlImage              `json:"featuredImage"`
	Images          Connection[gqlImage]   `json:"images"`
	Variants        Connection[gqlVariant] `json:"variants"`
}
