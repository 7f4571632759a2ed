package models

import (
	"github.com/shopspring/decimal"
)

// Product is a catalog entry, table "product".
type Product struct {
	Base
	ProductName string          `gorm:"size:255;not null" json:"productName"`
	SKU         string          `gorm:"column:sku;size:100;not null" json:"sku"`
	Price       decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"price"`

	// Image fields are optional: nil means no image was uploaded.
	ImageData      []byte  `json:"-"`
	ImageMimeType  *string `gorm:"size:100" json:"imageMimeType,omitempty"`
	ImageThumbnail []byte  `json:"-"`

	// ThumbnailSize is filled only by listing queries, which skip the blobs.
	ThumbnailSize int64 `gorm:"->;-:migration" json:"-"`

	// computed per listing from the attachment store, never persisted
	AttachmentsAvailable bool `gorm:"-" json:"attachmentsAvailable"`
}

func (Product) TableName() string { return "product" }

// HasImage reports whether a full-size image is stored.
func (p Product) HasImage() bool { return len(p.ImageData) > 0 }

// HasThumbnail reports whether a thumbnail is stored.
func (p Product) HasThumbnail() bool { return len(p.ImageThumbnail) > 0 || p.ThumbnailSize > 0 }

// MimeType returns the stored mime field and whether it is set.
func (p Product) MimeType() (string, bool) {
	if p.ImageMimeType == nil {
		return "", false
	}
	return *p.ImageMimeType, true
}
