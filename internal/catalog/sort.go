package catalog

import (
	"cmp"
	"slices"
	"strings"

	"productblog/internal/models"
)

// SortKey selects the listing order. The values are the tokens used in the
// sortOrder query parameter.
type SortKey string

const (
	SortNameAsc   SortKey = ""
	SortNameDesc  SortKey = "pname_desc"
	SortSKUAsc    SortKey = "SKU"
	SortSKUDesc   SortKey = "sku_desc"
	SortPriceAsc  SortKey = "Price"
	SortPriceDesc SortKey = "price_desc"
)

// ParseSortKey maps a query token to a SortKey; unknown tokens sort by name.
func ParseSortKey(s string) SortKey {
	switch k := SortKey(s); k {
	case SortNameDesc, SortSKUAsc, SortSKUDesc, SortPriceAsc, SortPriceDesc:
		return k
	default:
		return SortNameAsc
	}
}

// Toggles returns the tokens the name, SKU and price column headers link to
// when the listing is sorted by k.
func (k SortKey) Toggles() (name, sku, price SortKey) {
	name, sku, price = SortNameDesc, SortSKUAsc, SortPriceAsc
	if k != SortNameAsc {
		name = SortNameAsc
	}
	if k == SortSKUAsc {
		sku = SortSKUDesc
	}
	if k == SortPriceAsc {
		price = SortPriceDesc
	}
	return name, sku, price
}

func compareText(a, b string) int {
	return cmp.Or(strings.Compare(strings.ToLower(a), strings.ToLower(b)), strings.Compare(a, b))
}

// compare orders a before b for k. A descending key is the exact reverse of
// its ascending key, id tie-break included.
func (k SortKey) compare(a, b models.Product) int {
	var c int
	switch k {
	case SortSKUAsc, SortSKUDesc:
		c = compareText(a.SKU, b.SKU)
	case SortPriceAsc, SortPriceDesc:
		c = a.Price.Cmp(b.Price)
	default:
		c = compareText(a.ProductName, b.ProductName)
	}
	// ties fall back to id so every ordering is total
	c = cmp.Or(c, cmp.Compare(a.ID, b.ID))
	if k.descending() {
		return -c
	}
	return c
}

func (k SortKey) descending() bool {
	return k == SortNameDesc || k == SortSKUDesc || k == SortPriceDesc
}

// Sort orders products in place by k.
func Sort(products []models.Product, k SortKey) {
	slices.SortFunc(products, k.compare)
}
