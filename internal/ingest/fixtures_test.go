package ingest_test

const restProductJSON = `{
  "id": 632910392,
  "title": "IPod Nano - 8GB",
  "body_html": "<p>It's the small iPod</p>",
  "vendor": "Apple",
  "product_type": "Cult Products",
  "status": "ACTIVE",
  "tags": "Red, Blue ,Blue",
  "images": [
    {"id": 850703190, "src": "https://cdn.shopify.com/s/ipod-nano.png", "alt": "front"},
    {"id": 562641783, "src": "https://cdn.shopify.com/s/ipod-nano-2.png"}
  ],
  "variants": [
    {"id": 808950810, "title": "Pink", "sku": "IPOD2008PINK", "barcode": "1234_pink", "price": "199.00",
     "inventory_quantity": 10, "option1": "Pink", "image_id": 562641783},
    {"id": 123456789, "title": "Red", "sku": "", "barcode": null, "price": 199,
     "inventory_quantity": -5, "option1": "Red", "image_id": null},
    {"id": 457924702, "title": "Black", "sku": "IPOD2008BLACK", "barcode": "", "price": "205.50", "option1": "Black"},
    {"title": "No id"}
  ]
}`

const graphQLProductJSON = `{"product": {
  "id": "gid://shopify/Product/108828309",
  "title": "Classic Tee",
  "descriptionHtml": "<b>soft</b>",
  "status": "DRAFT",
  "vendor": "Acme",
  "productType": "Shirts",
  "tags": ["Red", "Blue", "Blue"],
  "images": {"edges": [{"node": {"id": "gid://shopify/ProductImage/1", "url": "https://cdn.shopify.com/a.jpg", "altText": "A"}}]},
  "variants": {"edges": [
    {"node": {"id": "gid://shopify/ProductVariant/998877", "title": "S / Red", "sku": "TS-S", "barcode": null,
      "price": {"amount": "19.99", "currencyCode": "USD"}, "inventoryQuantity": 4,
      "selectedOptions": [{"name": "Size", "value": "S"}, {"name": "Color", "value": "Red"}],
      "image": {"id": "gid://shopify/ProductImage/2", "url": "https://cdn.shopify.com/b.jpg"}}},
    {"node": {"id": "gid://shopify/ProductVariant/998878?from=bulk", "title": "M", "sku": "", "price": "21.00",
      "inventoryQuantity": null}}
  ]}
}}`

const graphQLNodeJSON = `{
  "id": "gid://shopify/Product/200",
  "title": "Mug",
  "status": "ACTIVE",
  "tags": [],
  "images": {"nodes": []},
  "variants": {"nodes": [{"id": "gid://shopify/ProductVariant/201", "title": "Default", "sku": "MUG", "price": "8.00"}]}
}`
