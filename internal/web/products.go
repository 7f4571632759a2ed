package web

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/blake2b"

	"productblog/internal/attachments"
	"productblog/internal/catalog"
	"productblog/internal/logging"
)

// productID reads the id from the path, or from the id or productId query
// parameters.
func productID(c *gin.Context) (uint, bool) {
	raw := c.Param("id")
	if raw == "" {
		raw = c.Query("id")
	}
	if raw == "" {
		raw = c.Query("productId")
	}
	n, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 0)
	if err != nil || n == 0 {
		return 0, false
	}
	return uint(n), true
}

func (h *Handler) index(c *gin.Context) {
	n, _ := strconv.Atoi(c.Query("page"))
	page, err := h.svc.List(c.Request.Context(), catalog.ParseSortKey(c.Query("sortOrder")), n)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.html(c, http.StatusOK, "index.tmpl", ViewData{"Title": "Products", "Page": page})
}

func (h *Handler) apiIndex(c *gin.Context) {
	n, _ := strconv.Atoi(c.Query("page"))
	page, err := h.svc.List(c.Request.Context(), catalog.ParseSortKey(c.Query("sortOrder")), n)
	if err != nil {
		logging.From(c.Request.Context(), h.log).Error("list products", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, page)
}

// thumbnail serves the stored PNG thumbnail with a content-derived ETag.
func (h *Handler) thumbnail(c *gin.Context) {
	id, ok := productID(c)
	if !ok {
		c.Status(http.StatusBadRequest)
		return
	}
	th, err := h.svc.Thumbnail(c.Request.Context(), id)
	if errors.Is(err, catalog.ErrNotFound) {
		c.Status(http.StatusNotFound)
		return
	}
	if err != nil {
		h.fail(c, err)
		return
	}

	sum := blake2b.Sum256(th.Data)
	etag := `"` + hex.EncodeToString(sum[:16]) + `"`
	c.Header("ETag", etag)
	c.Header("Cache-Control", "no-cache")
	if c.GetHeader("If-None-Match") == etag {
		c.Status(http.StatusNotModified)
		return
	}
	c.Data(http.StatusOK, th.ContentType, th.Data)
}

// showProduct renders one product with the named template; details and the
// delete confirmation share it.
func (h *Handler) showProduct(name, title string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := productID(c)
		if !ok {
			h.fail(c, catalog.ErrBadRequest)
			return
		}
		p, err := h.svc.Get(c.Request.Context(), id)
		if err != nil {
			h.fail(c, err)
			return
		}
		h.html(c, http.StatusOK, name, ViewData{"Title": title, "Product": p})
	}
}

func (h *Handler) createForm(c *gin.Context) {
	h.html(c, http.StatusOK, "create.tmpl", ViewData{
		"Title":  "Create product",
		"Form":   catalog.ProductInput{},
		"Errors": map[string]string{},
	})
}

func (h *Handler) create(c *gin.Context) {
	in := catalog.ProductInput{
		ProductName: c.PostForm("ProductName"),
		SKU:         c.PostForm("SKU"),
		Price:       c.PostForm("Price"),
	}

	var (
		image   *attachments.Upload
		uploads []attachments.Upload
		opened  []multipart.File
	)
	defer func() {
		for _, f := range opened {
			f.Close()
		}
	}()
	open := func(fh *multipart.FileHeader) (attachments.Upload, error) {
		f, err := fh.Open()
		if err != nil {
			return attachments.Upload{}, fmt.Errorf("web: open upload %s: %w", fh.Filename, err)
		}
		opened = append(opened, f)
		return attachments.Upload{Filename: fh.Filename, Body: f}, nil
	}

	if mf := c.Request.MultipartForm; mf != nil {
		// browsers send an empty part when no file was chosen
		for _, fh := range mf.File["image"] {
			if fh.Filename == "" || fh.Size == 0 {
				continue
			}
			u, err := open(fh)
			if err != nil {
				h.fail(c, err)
				return
			}
			image = &u
			break
		}
		for _, fh := range mf.File["ProductFiles"] {
			if fh.Filename == "" {
				continue
			}
			u, err := open(fh)
			if err != nil {
				h.fail(c, err)
				return
			}
			uploads = append(uploads, u)
		}
	}

	p, err := h.svc.Create(c.Request.Context(), in, image, uploads)
	var verr *catalog.ValidationError
	switch {
	case errors.As(err, &verr):
		h.html(c, http.StatusUnprocessableEntity, "create.tmpl", ViewData{
			"Title": "Create product", "Form": in, "Errors": verr.Fields,
		})
		return
	case errors.Is(err, catalog.ErrImageDecode):
		h.html(c, http.StatusBadRequest, "create.tmpl", ViewData{
			"Title": "Create product", "Form": in,
			"Errors": map[string]string{"image": "The image could not be read. Upload a PNG, JPEG, GIF, BMP, TIFF or WebP file."},
		})
		return
	case err != nil:
		h.fail(c, err)
		return
	}
	h.redirectToList(c, fmt.Sprintf("Product %q created.", p.ProductName))
}

func (h *Handler) editForm(c *gin.Context) {
	id, ok := productID(c)
	if !ok {
		h.fail(c, catalog.ErrBadRequest)
		return
	}
	p, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.html(c, http.StatusOK, "edit.tmpl", ViewData{
		"Title":  "Edit product",
		"Form":   catalog.InputFrom(p),
		"Errors": map[string]string{},
	})
}

// update persists the whole record. Image fields come back from the edit
// form's hidden inputs and are stored as submitted.
func (h *Handler) update(c *gin.Context) {
	in := catalog.ProductInput{
		ProductName: c.PostForm("ProductName"),
		SKU:         c.PostForm("SKU"),
		Price:       c.PostForm("Price"),
	}
	if raw := strings.TrimSpace(c.PostForm("ProductID")); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 0)
		if err != nil {
			h.fail(c, catalog.ErrBadRequest)
			return
		}
		in.ProductID = uint(id)
	}

	var err error
	if in.ImageData, err = decodeBytes(c.PostForm("ImageData")); err != nil {
		h.fail(c, catalog.ErrBadRequest)
		return
	}
	if in.ImageThumbnail, err = decodeBytes(c.PostForm("ImageThumbnail")); err != nil {
		h.fail(c, catalog.ErrBadRequest)
		return
	}
	if v, ok := c.GetPostForm("ImageMimeType"); ok {
		in.ImageMimeType = &v
	}

	p, err := h.svc.Update(c.Request.Context(), in)
	var verr *catalog.ValidationError
	switch {
	case errors.As(err, &verr):
		h.html(c, http.StatusUnprocessableEntity, "edit.tmpl", ViewData{
			"Title": "Edit product", "Form": in, "Errors": verr.Fields,
		})
		return
	case err != nil:
		h.fail(c, err)
		return
	}
	h.redirectToList(c, fmt.Sprintf("Product %q saved.", p.ProductName))
}

func decodeBytes(s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	return base64.StdEncoding.DecodeString(s)
}

// deleteMany removes every product named by the ProductChk values. A value
// may itself be a comma-separated list.
func (h *Handler) deleteMany(c *gin.Context) {
	var ids []uint
	for _, v := range c.PostFormArray("ProductChk") {
		for _, tok := range strings.Split(v, ",") {
			tok = strings.TrimSpace(tok)
			if tok == "" {
				continue
			}
			id, err := strconv.ParseUint(tok, 10, 0)
			if err != nil {
				h.fail(c, catalog.ErrBadRequest)
				return
			}
			ids = append(ids, uint(id))
		}
	}

	n, err := h.svc.Delete(c.Request.Context(), ids)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.redirectToList(c, fmt.Sprintf("%d product(s) deleted.", n))
}

func (h *Handler) attachmentList(c *gin.Context) {
	id, ok := productID(c)
	if !ok {
		h.fail(c, catalog.ErrBadRequest)
		return
	}
	files, err := h.svc.Attachments(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.html(c, http.StatusOK, "attachments.tmpl", ViewData{
		"Title":     fmt.Sprintf("Attachments of product %d", id),
		"ProductID": id,
		"Files":     files,
	})
}

// sniffLen is how much of a file mimetype needs to detect its type.
const sniffLen = 3072

func (h *Handler) attachmentDownload(c *gin.Context) {
	id, ok := productID(c)
	if !ok {
		h.fail(c, catalog.ErrBadRequest)
		return
	}
	name := c.Param("name")
	rc, err := h.svc.Attachment(c.Request.Context(), id, name)
	if err != nil {
		h.fail(c, err)
		return
	}
	defer rc.Close()

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(rc, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		h.fail(c, fmt.Errorf("web: read attachment %s: %w", name, err))
		return
	}
	head = head[:n]

	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": name})
	c.DataFromReader(http.StatusOK, -1, mimetype.Detect(head).String(),
		io.MultiReader(bytes.NewReader(head), rc),
		map[string]string{"Content-Disposition": disposition})
}
