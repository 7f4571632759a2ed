package catalog

import "productblog/internal/models"

// PageSize is the number of products on one listing page.
const PageSize = 10

// Page is one page of the ordered product listing.
type Page struct {
	Items      []models.Product `json:"items"`
	Number     int              `json:"page"`
	Size       int              `json:"pageSize"`
	TotalItems int              `json:"totalItems"`
	PageCount  int              `json:"pageCount"`

	Sort      SortKey `json:"sortOrder"`
	NameSort  SortKey `json:"-"`
	SKUSort   SortKey `json:"-"`
	PriceSort SortKey `json:"-"`
}

func (p Page) HasPrevious() bool { return p.Number > 1 }
func (p Page) HasNext() bool     { return p.Number < p.PageCount }
func (p Page) Previous() int     { return p.Number - 1 }
func (p Page) Next() int         { return p.Number + 1 }

// NormalizePage treats a missing or non-positive page number as page 1.
func NormalizePage(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

// paginate slices ordered into page n (1-indexed).
func paginate(ordered []models.Product, n int) Page {
	n = NormalizePage(n)
	total := len(ordered)
	p := Page{
		Number:     n,
		Size:       PageSize,
		TotalItems: total,
		PageCount:  (total + PageSize - 1) / PageSize,
		Items:      []models.Product{},
	}
	if n > p.PageCount {
		return p
	}
	start := (n - 1) * PageSize
	end := min(start+PageSize, total)
	p.Items = ordered[start:end]
	return p
}
