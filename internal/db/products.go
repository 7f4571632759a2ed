package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"productblog/internal/models"
)

// ErrNotFound is returned when no product row has the requested id.
var ErrNotFound = errors.New("product not found")

// Products is the gorm-backed product store.
// Every call runs on a session bound to the caller's context.
type Products struct {
	db *gorm.DB
}

func NewProducts(db *gorm.DB) *Products {
	return &Products{db: db}
}

func (s *Products) session(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

// List returns all products ordered by id. Image bytes are not loaded:
// ImageData and ImageThumbnail stay nil and ThumbnailSize carries the
// thumbnail's length.
func (s *Products) List(ctx context.Context) ([]models.Product, error) {
	var items []models.Product
	if err := s.session(ctx).Select(s.listColumns()).Order("id asc").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("db: list products: %w", err)
	}
	return items, nil
}

func (s *Products) listColumns() string {
	length := "LENGTH"
	if s.db.Dialector.Name() == "sqlserver" {
		length = "DATALENGTH"
	}
	return "id, created_at, updated_at, product_name, sku, price, image_mime_type, " +
		"COALESCE(" + length + "(image_thumbnail), 0) AS thumbnail_size"
}

// Find loads one product by id.
func (s *Products) Find(ctx context.Context, id uint) (models.Product, error) {
	var p models.Product
	err := s.session(ctx).First(&p, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Product{}, ErrNotFound
	}
	if err != nil {
		return models.Product{}, fmt.Errorf("db: find product %d: %w", id, err)
	}
	return p, nil
}

// Insert persists p and assigns its id. Any id already set on p is ignored.
func (s *Products) Insert(ctx context.Context, p *models.Product) error {
	p.ID = 0
	if err := s.session(ctx).Create(p).Error; err != nil {
		return fmt.Errorf("db: insert product: %w", err)
	}
	return nil
}

// Update overwrites every column of the row with p.ID. It never inserts:
// a missing row yields ErrNotFound.
func (s *Products) Update(ctx context.Context, p *models.Product) error {
	p.UpdatedAt = time.Now()
	res := s.session(ctx).Model(&models.Product{}).Where("id = ?", p.ID).Updates(map[string]any{
		"product_name":    p.ProductName,
		"sku":             p.SKU,
		"price":           p.Price,
		"image_data":      p.ImageData,
		"image_mime_type": p.ImageMimeType,
		"image_thumbnail": p.ImageThumbnail,
		"updated_at":      p.UpdatedAt,
	})
	if res.Error != nil {
		return fmt.Errorf("db: update product %d: %w", p.ID, res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}
	// some drivers report 0 affected rows when nothing changed
	var n int64
	if err := s.session(ctx).Model(&models.Product{}).Where("id = ?", p.ID).Count(&n).Error; err != nil {
		return fmt.Errorf("db: update product %d: %w", p.ID, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteMany resolves each id and removes the matched rows in one statement.
// Ids without a row are skipped. It returns the number of rows removed.
func (s *Products) DeleteMany(ctx context.Context, ids []uint) (int64, error) {
	seen := make(map[uint]struct{}, len(ids))
	found := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}

		p, err := s.Find(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return 0, err
		}
		found = append(found, p.ID)
	}
	if len(found) == 0 {
		return 0, nil
	}

	res := s.session(ctx).Delete(&models.Product{}, found)
	if res.Error != nil {
		return 0, fmt.Errorf("db: delete products: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// Ping checks the underlying connection.
func (s *Products) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
