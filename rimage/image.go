// Package rimage holds the frame and packed image types shared by the compositor, the reducers
// and the pipeline, along with helpers for reading and writing recorded frames.
package rimage

import (
	"image"
	"image/color"

	"github.com/pkg/errors"
	"golang.org/x/image/draw"
)

// BytesPerPixel is the size of one packed BGRA pixel.
const BytesPerPixel = 4

// BGRA is a packed image with 4 bytes per pixel in B, G, R, A order. Colors are not
// premultiplied.
type BGRA struct {
	Pix    []byte
	Width  int
	Height int
}

// NewBGRA returns a zeroed (transparent black) image.
func NewBGRA(width, height int) *BGRA {
	return &BGRA{
		Pix:    make([]byte, width*height*BytesPerPixel),
		Width:  width,
		Height: height,
	}
}

// WrapBGRA returns an image backed by pix without copying it.
func WrapBGRA(pix []byte, width, height int) (*BGRA, error) {
	if width < 0 || height < 0 || len(pix) != width*height*BytesPerPixel {
		return nil, errors.Errorf("%d bytes cannot back a %dx%d BGRA image", len(pix), width, height)
	}
	return &BGRA{Pix: pix, Width: width, Height: height}, nil
}

// ColorModel returns the non-premultiplied RGBA model.
func (i *BGRA) ColorModel() color.Model {
	return color.NRGBAModel
}

// Bounds returns the image rectangle.
func (i *BGRA) Bounds() image.Rectangle {
	return image.Rect(0, 0, i.Width, i.Height)
}

// In returns whether (x, y) is inside the image.
func (i *BGRA) In(x, y int) bool {
	return x >= 0 && y >= 0 && x < i.Width && y < i.Height
}

// Stride is the number of bytes per row.
func (i *BGRA) Stride() int {
	return i.Width * BytesPerPixel
}

// PixOffset returns the index of the first byte of the pixel at (x, y).
func (i *BGRA) PixOffset(x, y int) int {
	return (y*i.Width + x) * BytesPerPixel
}

// At returns the color at (x, y), or transparent black outside the image.
func (i *BGRA) At(x, y int) color.Color {
	return i.NRGBAAt(x, y)
}

// NRGBAAt is At without the interface allocation.
func (i *BGRA) NRGBAAt(x, y int) color.NRGBA {
	if !i.In(x, y) {
		return color.NRGBA{}
	}
	off := i.PixOffset(x, y)
	p := i.Pix[off : off+4 : off+4]
	return color.NRGBA{R: p[2], G: p[1], B: p[0], A: p[3]}
}

// Set sets the color at (x, y). Points outside the image are ignored.
func (i *BGRA) Set(x, y int, c color.Color) {
	if !i.In(x, y) {
		return
	}
	nc, _ := color.NRGBAModel.Convert(c).(color.NRGBA)
	off := i.PixOffset(x, y)
	i.Pix[off], i.Pix[off+1], i.Pix[off+2], i.Pix[off+3] = nc.B, nc.G, nc.R, nc.A
}

// Clear zeroes every pixel.
func (i *BGRA) Clear() {
	clear(i.Pix)
}

// Clone returns a deep copy of the image.
func (i *BGRA) Clone() *BGRA {
	return &BGRA{
		Pix:    append([]byte(nil), i.Pix...),
		Width:  i.Width,
		Height: i.Height,
	}
}

// ToNRGBA converts the image to a standard library NRGBA image.
func (i *BGRA) ToNRGBA() *image.NRGBA {
	out := image.NewNRGBA(i.Bounds())
	copy(out.Pix, i.Pix)
	RGBAToBGRA(out.Pix, out.Pix)
	return out
}

// NewBGRAFromImage draws any image into a new BGRA image.
func NewBGRAFromImage(img image.Image) *BGRA {
	bounds := img.Bounds()
	nrgba, ok := img.(*image.NRGBA)
	if !ok || nrgba.Rect.Min != (image.Point{}) || nrgba.Stride != bounds.Dx()*BytesPerPixel {
		nrgba = image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		draw.Copy(nrgba, image.Point{}, img, bounds, draw.Src, nil)
	}

	out := &BGRA{
		Pix:    make([]byte, len(nrgba.Pix)),
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	}
	RGBAToBGRA(nrgba.Pix, out.Pix)
	return out
}

// ColorFrameFromImage wraps a decoded image as a BGRA color frame.
func ColorFrameFromImage(img image.Image) *ColorFrame {
	bgra := NewBGRAFromImage(img)
	return &ColorFrame{
		Width:  bgra.Width,
		Height: bgra.Height,
		Format: FormatBGRA,
		Pix:    bgra.Pix,
	}
}
