package catalog_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"productblog/internal/attachments"
	"productblog/internal/catalog"
	"productblog/internal/db"
)

type fixture struct {
	svc   *catalog.Service
	files *attachments.Store
}

func newService(t *testing.T) fixture {
	t.Helper()
	conn, err := db.Open("sqlite", ":memory:")
	require.NoError(t, err)
	require.NoError(t, db.Migrate(conn))
	t.Cleanup(func() {
		sqlDB, _ := conn.DB()
		_ = sqlDB.Close()
	})

	disk, err := attachments.NewLocalDisk(t.TempDir())
	require.NoError(t, err)
	files := attachments.New(disk)
	return fixture{svc: catalog.New(db.NewProducts(conn), files, nil), files: files}
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.NRGBA{B: 255, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func input(name, sku, price string) catalog.ProductInput {
	return catalog.ProductInput{ProductName: name, SKU: sku, Price: price}
}

func TestCreateWithImageAndFiles(t *testing.T) {
	f := newService(t)
	ctx := context.Background()
	img := pngBytes(t)

	p, err := f.svc.Create(ctx, input("Lamp", "L-1", "19.50"),
		&attachments.Upload{Filename: "lamp.png", Body: bytes.NewReader(img)},
		[]attachments.Upload{
			{Filename: "manual.pdf", Body: strings.NewReader("manual")},
			{Filename: `C:\Users\me\datasheet.txt`, Body: strings.NewReader("datasheet")},
		})
	require.NoError(t, err)
	require.NotZero(t, p.ID)

	got, err := f.svc.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, img, got.ImageData)
	require.NotNil(t, got.ImageMimeType)
	assert.Equal(t, fmt.Sprint(len(img)), *got.ImageMimeType)
	assert.True(t, got.HasThumbnail())
	assert.True(t, decimal.RequireFromString("19.5").Equal(got.Price))

	thumb, err := f.svc.Thumbnail(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "image/png", thumb.ContentType)
	cfg, _, err := image.DecodeConfig(bytes.NewReader(thumb.Data))
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.Width)

	list, err := f.svc.Attachments(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []attachments.FileDescriptor{
		{Name: "datasheet.txt", Size: 9},
		{Name: "manual.pdf", Size: 6},
	}, list)

	rc, err := f.svc.Attachment(ctx, p.ID, "datasheet.txt")
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, "datasheet", string(body))
}

func TestCreateWithoutImage(t *testing.T) {
	f := newService(t)
	ctx := context.Background()

	p, err := f.svc.Create(ctx, input("Desk", "D-1", "120"), nil, nil)
	require.NoError(t, err)
	assert.Nil(t, p.ImageData)
	assert.Nil(t, p.ImageMimeType)

	_, err = f.svc.Thumbnail(ctx, p.ID)
	assert.ErrorIs(t, err, catalog.ErrNotFound)

	list, err := f.svc.Attachments(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCreateValidation(t *testing.T) {
	f := newService(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, input(" ", "", "abc"), nil, nil)
	var ve *catalog.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, map[string]string{
		"ProductName": "is required",
		"SKU":         "is required",
		"Price":       "must be a number",
	}, ve.Fields)

	_, err = f.svc.Create(ctx, input("Chair", "C-1", ""), nil, nil)
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "is required", ve.Fields["Price"])

	page, err := f.svc.List(ctx, catalog.SortNameAsc, 1)
	require.NoError(t, err)
	assert.Zero(t, page.TotalItems)
}

func TestCreatePriceMustFitColumn(t *testing.T) {
	f := newService(t)
	ctx := context.Background()

	tests := []struct {
		price string
		want  string
	}{
		{"9.999", "must have at most 2 decimal places"},
		{"0.001", "must have at most 2 decimal places"},
		{"10000000000000000", "is too large"},
		{"12345678901234567890", "is too large"},
		{"-10000000000000000", "is too large"},
	}
	for _, tt := range tests {
		t.Run(tt.price, func(t *testing.T) {
			_, err := f.svc.Create(ctx, input("Chair", "C-1", tt.price), nil, nil)
			var ve *catalog.ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, map[string]string{"Price": tt.want}, ve.Fields)
		})
	}

	for _, price := range []string{"9999999999999999.99", "9.990", "0"} {
		_, err := f.svc.Create(ctx, input("Chair", "C-1", price), nil, nil)
		assert.NoError(t, err, price)
	}

	page, err := f.svc.List(ctx, catalog.SortNameAsc, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, page.TotalItems)
}

func TestCreateRejectsUnusableFileNamesBeforeInsert(t *testing.T) {
	f := newService(t)
	ctx := context.Background()

	files := []attachments.Upload{
		{Filename: "ok.txt", Body: strings.NewReader("ok")},
		{Filename: "..", Body: strings.NewReader("x")},
	}
	_, err := f.svc.Create(ctx, input("Shelf", "SH-1", "30"), nil, files)
	var ve *catalog.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, map[string]string{"ProductFiles": "contains a file without a usable name"}, ve.Fields)

	// reported alongside the other field messages
	_, err = f.svc.Create(ctx, input("", "SH-1", "30"), nil, files)
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "is required", ve.Fields["ProductName"])
	assert.Contains(t, ve.Fields, "ProductFiles")

	page, err := f.svc.List(ctx, catalog.SortNameAsc, 1)
	require.NoError(t, err)
	assert.Zero(t, page.TotalItems)

	list, err := f.svc.Attachments(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCreateRejectsUndecodableImage(t *testing.T) {
	f := newService(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, input("Rug", "R-1", "5"),
		&attachments.Upload{Filename: "rug.png", Body: strings.NewReader("not an image")}, nil)
	assert.ErrorIs(t, err, catalog.ErrImageDecode)

	page, err := f.svc.List(ctx, catalog.SortNameAsc, 1)
	require.NoError(t, err)
	assert.Zero(t, page.TotalItems)
}

func TestListSortsPagesAndFlagsAttachments(t *testing.T) {
	f := newService(t)
	ctx := context.Background()

	for i := 1; i <= 12; i++ {
		var files []attachments.Upload
		if i == 3 {
			files = []attachments.Upload{{Filename: "a.txt", Body: strings.NewReader("a")}}
		}
		_, err := f.svc.Create(ctx, input(fmt.Sprintf("item %02d", i), fmt.Sprintf("S-%02d", 13-i), fmt.Sprint(i)), nil, files)
		require.NoError(t, err)
	}

	page, err := f.svc.List(ctx, catalog.SortPriceDesc, 1)
	require.NoError(t, err)
	assert.Equal(t, 12, page.TotalItems)
	assert.Equal(t, 2, page.PageCount)
	require.Len(t, page.Items, catalog.PageSize)
	assert.Equal(t, "item 12", page.Items[0].ProductName)
	assert.Equal(t, catalog.SortPriceDesc, page.Sort)
	assert.Equal(t, catalog.SortPriceAsc, page.PriceSort)

	for _, p := range page.Items {
		assert.Equal(t, p.ProductName == "item 03", p.AttachmentsAvailable, p.ProductName)
	}

	second, err := f.svc.List(ctx, catalog.SortSKUAsc, 2)
	require.NoError(t, err)
	require.Len(t, second.Items, 2)
	assert.Equal(t, "S-11", second.Items[0].SKU)
	assert.Equal(t, "S-12", second.Items[1].SKU)
	assert.Equal(t, catalog.SortSKUDesc, second.SKUSort)
}

func TestUpdate(t *testing.T) {
	f := newService(t)
	ctx := context.Background()

	p, err := f.svc.Create(ctx, input("Vase", "V-1", "8"),
		&attachments.Upload{Filename: "v.png", Body: bytes.NewReader(pngBytes(t))}, nil)
	require.NoError(t, err)

	in := catalog.InputFrom(p)
	in.ProductName = "Tall vase"
	in.Price = "9.25"
	updated, err := f.svc.Update(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, p.ID, updated.ID)

	got, err := f.svc.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Tall vase", got.ProductName)
	assert.Equal(t, p.ImageData, got.ImageData)
	assert.Equal(t, *p.ImageMimeType, *got.ImageMimeType)

	in.ProductID = 0
	_, err = f.svc.Update(ctx, in)
	assert.ErrorIs(t, err, catalog.ErrBadRequest)

	in.ProductID = p.ID + 100
	_, err = f.svc.Update(ctx, in)
	assert.ErrorIs(t, err, catalog.ErrNotFound)

	in.ProductID = p.ID
	in.SKU = ""
	_, err = f.svc.Update(ctx, in)
	var ve *catalog.ValidationError
	assert.True(t, errors.As(err, &ve))
}

func TestDeleteSkipsUnknownIDs(t *testing.T) {
	f := newService(t)
	ctx := context.Background()

	var created []uint
	for i := 0; i < 3; i++ {
		p, err := f.svc.Create(ctx, input(fmt.Sprintf("p%d", i), "S", "1"), nil,
			[]attachments.Upload{{Filename: "f.txt", Body: strings.NewReader("x")}})
		require.NoError(t, err)
		created = append(created, p.ID)
	}

	n, err := f.svc.Delete(ctx, []uint{created[0], 9999, created[2]})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, err = f.svc.Get(ctx, created[0])
	assert.ErrorIs(t, err, catalog.ErrNotFound)
	_, err = f.svc.Get(ctx, created[1])
	assert.NoError(t, err)

	// attachment directories outlive their product
	ok, err := f.files.HasAnyFile(ctx, created[0])
	require.NoError(t, err)
	assert.True(t, ok)

	n, err = f.svc.Delete(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestGetAndAttachmentErrors(t *testing.T) {
	f := newService(t)
	ctx := context.Background()

	_, err := f.svc.Get(ctx, 0)
	assert.ErrorIs(t, err, catalog.ErrBadRequest)
	_, err = f.svc.Get(ctx, 7)
	assert.ErrorIs(t, err, catalog.ErrNotFound)

	_, err = f.svc.Attachment(ctx, 7, "missing.txt")
	assert.ErrorIs(t, err, catalog.ErrNotFound)
	_, err = f.svc.Attachment(ctx, 7, "..")
	assert.ErrorIs(t, err, catalog.ErrNotFound)
}
