// Package thumbnail renders the small PNG shown next to a product.
//
// The output canvas is always 100x100 pixels, but the source image is scaled
// into the top-left 50x50 region only; the rest of the canvas stays
// transparent. Catalog pages rely on this exact layout.
package thumbnail

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"

	_ "github.com/chai2010/webp" // registers the webp decoder
	"github.com/disintegration/imaging"
)

const (
	CanvasSize = 100
	DrawSize   = 50
)

// ErrDecode is returned when the input is not a decodable image.
var ErrDecode = errors.New("thumbnail: cannot decode image")

// Generate decodes src and returns the PNG-encoded thumbnail.
func Generate(src []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(src), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return Render(img)
}

// Render draws img into the thumbnail layout and encodes it as PNG.
func Render(img image.Image) ([]byte, error) {
	canvas := imaging.New(CanvasSize, CanvasSize, color.Transparent)
	scaled := imaging.Resize(img, DrawSize, DrawSize, imaging.CatmullRom)
	canvas = imaging.Paste(canvas, scaled, image.Pt(0, 0))

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, canvas, imaging.PNG); err != nil {
		return nil, fmt.Errorf("thumbnail: encode png: %w", err)
	}
	return buf.Bytes(), nil
}
