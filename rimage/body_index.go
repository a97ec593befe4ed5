package rimage

import (
	"image"
	"image/color"

	"github.com/pkg/errors"
)

const (
	// MaxBodies is the number of bodies a sensor tracks at once. Labels 0 through MaxBodies-1
	// identify a body.
	MaxBodies = 6
	// NoBody is the label conventionally reported for pixels that belong to no body. Any label
	// at or above MaxBodies is treated the same way.
	NoBody = uint8(255)
)

// BodyIndexFrame is a row-major grid of body labels sharing the depth frame geometry.
type BodyIndexFrame struct {
	Width  int
	Height int
	Data   []uint8
}

// NewEmptyBodyIndexFrame returns a frame of the given size where every pixel is NoBody.
func NewEmptyBodyIndexFrame(width, height int) *BodyIndexFrame {
	bf := &BodyIndexFrame{
		Width:  width,
		Height: height,
		Data:   make([]uint8, width*height),
	}
	for i := range bf.Data {
		bf.Data[i] = NoBody
	}
	return bf
}

// HasData returns whether the frame carries labels.
func (bf *BodyIndexFrame) HasData() bool {
	return bf != nil && bf.Width > 0 && bf.Data != nil
}

// IsBody returns whether label identifies a tracked body.
func IsBody(label uint8) bool {
	return label < MaxBodies
}

// Label returns the label at (x, y).
func (bf *BodyIndexFrame) Label(x, y int) uint8 {
	return bf.Data[y*bf.Width+x]
}

// Set sets the label at (x, y).
func (bf *BodyIndexFrame) Set(x, y int, label uint8) {
	bf.Data[y*bf.Width+x] = label
}

// ToImage returns the labels as an 8-bit gray image, one gray level per label.
func (bf *BodyIndexFrame) ToImage() *image.Gray {
	return &image.Gray{
		Pix:    append([]uint8(nil), bf.Data...),
		Stride: bf.Width,
		Rect:   image.Rect(0, 0, bf.Width, bf.Height),
	}
}

// BodyIndexFrameFromImage reads labels back out of a gray image as written by ToImage.
// Other image types are converted to gray first, which only round trips for gray inputs.
func BodyIndexFrameFromImage(img image.Image) (*BodyIndexFrame, error) {
	if img == nil {
		return nil, errors.New("no body index image")
	}
	bounds := img.Bounds()
	if bounds.Empty() {
		return nil, errors.Errorf("empty body index image %v", bounds)
	}

	bf := &BodyIndexFrame{
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
		Data:   make([]uint8, bounds.Dx()*bounds.Dy()),
	}

	if gray, ok := img.(*image.Gray); ok {
		for y := 0; y < bf.Height; y++ {
			start := gray.PixOffset(bounds.Min.X, bounds.Min.Y+y)
			copy(bf.Data[y*bf.Width:(y+1)*bf.Width], gray.Pix[start:start+bf.Width])
		}
		return bf, nil
	}

	for y := 0; y < bf.Height; y++ {
		for x := 0; x < bf.Width; x++ {
			c, _ := color.GrayModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.Gray)
			bf.Data[y*bf.Width+x] = c.Y
		}
	}
	return bf, nil
}
