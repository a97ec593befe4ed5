package rimage

import (
	"github.com/pkg/errors"
)

// ColorFormat names the byte layout of a raw color frame.
type ColorFormat int

const (
	// FormatBGRA is packed 8-bit B, G, R, A. This is the converted format every consumer reads.
	FormatBGRA ColorFormat = iota
	// FormatRGBA is packed 8-bit R, G, B, A.
	FormatRGBA
	// FormatYUY2 is packed 4:2:2 Y0 U Y1 V, two bytes per pixel.
	FormatYUY2
)

func (f ColorFormat) String() string {
	switch f {
	case FormatBGRA:
		return "bgra"
	case FormatRGBA:
		return "rgba"
	case FormatYUY2:
		return "yuy2"
	default:
		return "unknown"
	}
}

// BytesPerPixel returns the raw bytes used by one pixel of this format.
func (f ColorFormat) BytesPerPixel() int {
	if f == FormatYUY2 {
		return 2
	}
	return 4
}

// ColorFrame is a raw color frame as delivered by a sensor.
type ColorFrame struct {
	Width  int
	Height int
	Format ColorFormat
	Pix    []byte
}

// HasData returns whether the frame carries pixels.
func (cf *ColorFrame) HasData() bool {
	return cf != nil && cf.Width > 0 && cf.Pix != nil
}

// ConvertedLen is the number of bytes the frame occupies once converted to BGRA.
func (cf *ColorFrame) ConvertedLen() int {
	return cf.Width * cf.Height * BytesPerPixel
}

// CheckSize returns an error if Pix does not hold exactly Width x Height pixels of Format.
func (cf *ColorFrame) CheckSize() error {
	if want := cf.Width * cf.Height * cf.Format.BytesPerPixel(); len(cf.Pix) != want {
		return errors.Errorf("%s frame has %d bytes, want %d", cf.Format, len(cf.Pix), want)
	}
	return nil
}

// CopyConvertedTo writes the frame into dst as packed BGRA. A BGRA frame is copied as is.
func (cf *ColorFrame) CopyConvertedTo(dst []byte) error {
	if len(dst) != cf.ConvertedLen() {
		return errors.Errorf("destination has %d bytes, want %d for %dx%d BGRA",
			len(dst), cf.ConvertedLen(), cf.Width, cf.Height)
	}
	if err := cf.CheckSize(); err != nil {
		return err
	}

	switch cf.Format {
	case FormatBGRA:
		copy(dst, cf.Pix)
	case FormatRGBA:
		RGBAToBGRA(cf.Pix, dst)
	case FormatYUY2:
		YUY2ToBGRA(cf.Pix, cf.Width, cf.Height, dst)
	default:
		return errors.Errorf("unsupported color format %d", cf.Format)
	}
	return nil
}

// RGBAToBGRA swaps the red and blue channels of src into dst. src and dst may be the same slice.
func RGBAToBGRA(src, dst []byte) {
	for i := 0; i+3 < len(src) && i+3 < len(dst); i += 4 {
		r, g, b, a := src[i], src[i+1], src[i+2], src[i+3]
		dst[i], dst[i+1], dst[i+2], dst[i+3] = b, g, r, a
	}
}

// YUY2ToBGRA converts packed YUY2 to opaque BGRA using a BT.601 integer approximation.
// Odd widths leave the last column of each row unconverted.
func YUY2ToBGRA(src []byte, w, h int, dst []byte) {
	for y := 0; y < h; y++ {
		for x := 0; x+1 < w; x += 2 {
			i := (y*w + x) * 2
			y0, u, y1, v := int(src[i]), int(src[i+1]), int(src[i+2]), int(src[i+3])
			off := (y*w + x) * BytesPerPixel
			writeBGRAFromYUV(dst[off:off+4], y0, u, v)
			writeBGRAFromYUV(dst[off+4:off+8], y1, u, v)
		}
	}
}

func writeBGRAFromYUV(px []byte, y, u, v int) {
	c := y - 16
	d := u - 128
	e := v - 128
	if c < 0 {
		c = 0
	}
	px[0] = clamp8((298*c + 516*d + 128) >> 8)
	px[1] = clamp8((298*c - 100*d - 208*e + 128) >> 8)
	px[2] = clamp8((298*c + 409*e + 128) >> 8)
	px[3] = 0xff
}

func clamp8(x int) byte {
	if x < 0 {
		return 0
	}
	if x > 255 {
		return 255
	}
	return byte(x)
}
