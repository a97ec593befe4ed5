package rimage

import (
	"image"
	// register jpeg decoding.
	_ "image/jpeg"
	// register png decoding.
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/lmittmann/ppm"
	"github.com/pkg/errors"
	"github.com/xfmoulet/qoi"
	"go.uber.org/multierr"
	"golang.org/x/image/draw"
)

// ReadImageFromFile decodes any registered image format, including qoi and ppm.
func ReadImageFromFile(path string) (image.Image, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read image %q", path)
	}
	return img, nil
}

// WriteImageToFile encodes img by the extension of path.
func WriteImageToFile(path string, img image.Image) (err error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".qoi", ".ppm":
	default:
		return imaging.Save(img, path)
	}

	//nolint:gosec
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()

	if ext == ".qoi" {
		return qoi.Encode(f, img)
	}
	return ppm.Encode(f, toRGBA(img))
}

// toRGBA returns img as an *image.RGBA, the only color model the ppm encoder accepts.
func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	bounds := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Copy(rgba, image.Point{}, img, bounds, draw.Src, nil)
	return rgba
}

// ReadColorFrameFromFile decodes an image file into a BGRA color frame.
func ReadColorFrameFromFile(path string) (*ColorFrame, error) {
	img, err := ReadImageFromFile(path)
	if err != nil {
		return nil, err
	}
	return ColorFrameFromImage(img), nil
}

// ReadBodyIndexFrameFromFile decodes a gray image file into a body index frame.
func ReadBodyIndexFrameFromFile(path string) (*BodyIndexFrame, error) {
	img, err := ReadImageFromFile(path)
	if err != nil {
		return nil, err
	}
	return BodyIndexFrameFromImage(img)
}
