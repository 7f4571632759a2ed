// Package catalog implements the product use cases: listing, detail,
// create, update, bulk delete and attachment access. It coordinates the
// product store, the attachment store and the thumbnail generator.
//
// Create writes the product row first and the attachments second. The two
// writes are not atomic: a failure in between leaves a product without its
// files.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"productblog/internal/attachments"
	"productblog/internal/logging"
	"productblog/internal/metrics"
	"productblog/internal/models"
	"productblog/internal/thumbnail"
)

type ProductStore interface {
	List(ctx context.Context) ([]models.Product, error)
	Find(ctx context.Context, id uint) (models.Product, error)
	Insert(ctx context.Context, p *models.Product) error
	Update(ctx context.Context, p *models.Product) error
	DeleteMany(ctx context.Context, ids []uint) (int64, error)
}

type AttachmentStore interface {
	List(ctx context.Context, productID uint) ([]attachments.FileDescriptor, error)
	Save(ctx context.Context, productID uint, files []attachments.Upload) error
	HasAnyFile(ctx context.Context, productID uint) (bool, error)
	Open(ctx context.Context, productID uint, name string) (io.ReadCloser, error)
}

// ProductInput is the submitted product form. Image fields are only read by
// Update, which takes them verbatim from the edit form.
type ProductInput struct {
	ProductID   uint
	ProductName string `validate:"required,max=255"`
	SKU         string `validate:"required,max=100"`
	Price       string `validate:"required,numeric"`

	ImageData      []byte
	ImageMimeType  *string
	ImageThumbnail []byte
}

// InputFrom fills a form from a stored product, for the edit page.
func InputFrom(p models.Product) ProductInput {
	return ProductInput{
		ProductID:      p.ID,
		ProductName:    p.ProductName,
		SKU:            p.SKU,
		Price:          p.Price.StringFixed(2),
		ImageData:      p.ImageData,
		ImageMimeType:  p.ImageMimeType,
		ImageThumbnail: p.ImageThumbnail,
	}
}

// Thumbnail is a stored thumbnail ready to serve.
type Thumbnail struct {
	Data        []byte
	ContentType string
}

type Service struct {
	products    ProductStore
	attachments AttachmentStore
	thumbnails  func(src []byte) ([]byte, error)
	validate    *validator.Validate
	log         *slog.Logger
}

func New(products ProductStore, files AttachmentStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		products:    products,
		attachments: files,
		thumbnails:  thumbnail.Generate,
		validate:    validator.New(),
		log:         logger,
	}
}

// List returns page n of all products ordered by key, with
// AttachmentsAvailable filled in for the products on the page.
func (s *Service) List(ctx context.Context, key SortKey, n int) (Page, error) {
	products, err := s.products.List(ctx)
	if err != nil {
		return Page{}, err
	}
	Sort(products, key)

	page := paginate(products, n)
	for i := range page.Items {
		ok, err := s.attachments.HasAnyFile(ctx, page.Items[i].ID)
		if err != nil {
			return Page{}, fmt.Errorf("catalog: attachments of product %d: %w", page.Items[i].ID, err)
		}
		page.Items[i].AttachmentsAvailable = ok
	}
	page.Sort = key
	page.NameSort, page.SKUSort, page.PriceSort = key.Toggles()
	return page, nil
}

// Get loads one product for the detail, edit and delete pages.
func (s *Service) Get(ctx context.Context, id uint) (models.Product, error) {
	if id == 0 {
		return models.Product{}, ErrBadRequest
	}
	return s.products.Find(ctx, id)
}

// Thumbnail returns the stored thumbnail of a product. The content type is
// sniffed from the bytes: the stored mime field does not hold one.
func (s *Service) Thumbnail(ctx context.Context, id uint) (Thumbnail, error) {
	p, err := s.products.Find(ctx, id)
	if err != nil {
		return Thumbnail{}, err
	}
	if !p.HasThumbnail() {
		return Thumbnail{}, ErrNotFound
	}
	return Thumbnail{
		Data:        p.ImageThumbnail,
		ContentType: mimetype.Detect(p.ImageThumbnail).String(),
	}, nil
}

// Create validates and stores a new product. When image is set its bytes
// become ImageData and a thumbnail is rendered; ImageMimeType receives the
// image's byte length, matching the records already in the catalog. File
// names are checked before the insert; the files are written under the new
// product's id after it.
func (s *Service) Create(ctx context.Context, in ProductInput, image *attachments.Upload, files []attachments.Upload) (models.Product, error) {
	p, err := s.build(in)
	if !validFileNames(files) {
		var verr *ValidationError
		if !errors.As(err, &verr) {
			if err != nil {
				return models.Product{}, err
			}
			verr = &ValidationError{}
		}
		verr.add("ProductFiles", "contains a file without a usable name")
		return models.Product{}, verr
	}
	if err != nil {
		return models.Product{}, err
	}
	p.ImageData, p.ImageMimeType, p.ImageThumbnail = nil, nil, nil

	if image != nil {
		data, err := io.ReadAll(image.Body)
		if err != nil {
			return models.Product{}, fmt.Errorf("catalog: read image: %w", err)
		}
		if len(data) > 0 {
			thumb, err := s.thumbnails(data)
			if err != nil {
				metrics.ThumbnailsGenerated.WithLabelValues("decode_error").Inc()
				return models.Product{}, err
			}
			metrics.ThumbnailsGenerated.WithLabelValues("ok").Inc()
			size := strconv.Itoa(len(data))
			p.ImageData = data
			p.ImageMimeType = &size
			p.ImageThumbnail = thumb
		}
	}

	if err := s.products.Insert(ctx, &p); err != nil {
		return models.Product{}, err
	}

	if len(files) > 0 {
		if err := s.attachments.Save(ctx, p.ID, files); err != nil {
			return p, fmt.Errorf("catalog: save attachments of product %d: %w", p.ID, err)
		}
		metrics.AttachmentsSaved.Add(float64(len(files)))
	}

	logging.From(ctx, s.log).Info("product created", "product_id", p.ID, "sku", p.SKU, "attachments", len(files))
	return p, nil
}

// Update replaces the whole record, image fields included.
func (s *Service) Update(ctx context.Context, in ProductInput) (models.Product, error) {
	p, err := s.build(in)
	if err != nil {
		return models.Product{}, err
	}
	if in.ProductID == 0 {
		return models.Product{}, ErrBadRequest
	}
	p.ID = in.ProductID

	if err := s.products.Update(ctx, &p); err != nil {
		return models.Product{}, err
	}
	logging.From(ctx, s.log).Info("product updated", "product_id", p.ID)
	return p, nil
}

// Delete removes every listed product that exists; unknown ids are skipped.
// Attachment directories are left in place.
func (s *Service) Delete(ctx context.Context, ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	n, err := s.products.DeleteMany(ctx, ids)
	if err != nil {
		return 0, err
	}
	metrics.ProductsDeleted.Add(float64(n))
	logging.From(ctx, s.log).Info("products deleted", "requested", len(ids), "deleted", n)
	return n, nil
}

// Attachments lists a product's files. It does not check that the product
// still exists.
func (s *Service) Attachments(ctx context.Context, id uint) ([]attachments.FileDescriptor, error) {
	return s.attachments.List(ctx, id)
}

// Attachment opens one of a product's files.
func (s *Service) Attachment(ctx context.Context, id uint, name string) (io.ReadCloser, error) {
	rc, err := s.attachments.Open(ctx, id, name)
	if errors.Is(err, attachments.ErrNotExist) {
		return nil, ErrNotFound
	}
	return rc, err
}

// build validates in and converts it to a product.
func (s *Service) build(in ProductInput) (models.Product, error) {
	in.ProductName = strings.TrimSpace(in.ProductName)
	in.SKU = strings.TrimSpace(in.SKU)
	in.Price = strings.TrimSpace(in.Price)

	if err := s.validate.Struct(in); err != nil {
		return models.Product{}, newValidationError(err)
	}
	price, err := decimal.NewFromString(in.Price)
	if err != nil {
		return models.Product{}, &ValidationError{Fields: map[string]string{"Price": "must be a number"}}
	}
	if msg := checkPrice(price); msg != "" {
		return models.Product{}, &ValidationError{Fields: map[string]string{"Price": msg}}
	}

	return models.Product{
		ProductName:    in.ProductName,
		SKU:            in.SKU,
		Price:          price,
		ImageData:      in.ImageData,
		ImageMimeType:  in.ImageMimeType,
		ImageThumbnail: in.ImageThumbnail,
	}, nil
}

// The price column is decimal(18,2).
const (
	priceDigits = 18
	priceScale  = 2
)

var maxPrice = decimal.New(1, priceDigits-priceScale)

// checkPrice returns a field message when price does not fit the column.
func checkPrice(price decimal.Decimal) string {
	if !price.Equal(price.Truncate(priceScale)) {
		return "must have at most 2 decimal places"
	}
	if price.Abs().Cmp(maxPrice) >= 0 {
		return "is too large"
	}
	return ""
}

// validFileNames reports whether every upload keeps a usable name once
// reduced to its base name.
func validFileNames(files []attachments.Upload) bool {
	for _, f := range files {
		if _, err := attachments.BaseName(f.Filename); err != nil {
			return false
		}
	}
	return true
}
