package rimage

import (
	"image"
	"math"

	"github.com/pkg/errors"
)

// ColorSpacePoint is the location in the color image that corresponds to one depth pixel.
// Coordinates may be out of bounds or non-finite when the sensor could not map the pixel.
type ColorSpacePoint struct {
	X, Y float32
}

// Round returns the nearest color pixel, rounding half up. ok is false for non-finite points
// and for points too far away to be represented as an int.
func (p ColorSpacePoint) Round() (x, y int, ok bool) {
	fx := math.Floor(float64(p.X) + 0.5)
	fy := math.Floor(float64(p.Y) + 0.5)
	if !isIndexable(fx) || !isIndexable(fy) {
		return 0, 0, false
	}
	return int(fx), int(fy), true
}

func isIndexable(f float64) bool {
	return !math.IsNaN(f) && f > math.MinInt32 && f < math.MaxInt32
}

// A CoordinateMapper maps every pixel of a depth frame into color image space. points has one
// entry per depth sample.
type CoordinateMapper interface {
	MapDepthFrameToColorSpace(depth []Depth, points []ColorSpacePoint) error
}

// ScaledMapper is an axis aligned depth to color mapping: each depth pixel is scaled by the
// ratio of the two frame sizes and then shifted by Offset color pixels. It ignores the depth
// values themselves, so it stands in for a calibrated sensor mapping in tools and tests.
type ScaledMapper struct {
	DepthSize image.Point
	ColorSize image.Point
	Offset    image.Point
}

// NewScaledMapper returns a mapper that stretches the depth frame over the whole color frame.
func NewScaledMapper(depthSize, colorSize image.Point) (*ScaledMapper, error) {
	if depthSize.X <= 0 || depthSize.Y <= 0 {
		return nil, errors.Errorf("invalid depth size %v", depthSize)
	}
	if colorSize.X <= 0 || colorSize.Y <= 0 {
		return nil, errors.Errorf("invalid color size %v", colorSize)
	}
	return &ScaledMapper{DepthSize: depthSize, ColorSize: colorSize}, nil
}

// MapDepthFrameToColorSpace fills points with the scaled location of each depth pixel.
func (sm *ScaledMapper) MapDepthFrameToColorSpace(depth []Depth, points []ColorSpacePoint) error {
	n := sm.DepthSize.X * sm.DepthSize.Y
	if len(depth) != n || len(points) != n {
		return errors.Errorf("mapper expects %d samples and points, got %d and %d", n, len(depth), len(points))
	}

	scaleX := float32(sm.ColorSize.X) / float32(sm.DepthSize.X)
	scaleY := float32(sm.ColorSize.Y) / float32(sm.DepthSize.Y)
	for y := 0; y < sm.DepthSize.Y; y++ {
		row := y * sm.DepthSize.X
		py := float32(y)*scaleY + float32(sm.Offset.Y)
		for x := 0; x < sm.DepthSize.X; x++ {
			points[row+x] = ColorSpacePoint{
				X: float32(x)*scaleX + float32(sm.Offset.X),
				Y: py,
			}
		}
	}
	return nil
}

// MapperFunc adapts a function to a CoordinateMapper.
type MapperFunc func(depth []Depth, points []ColorSpacePoint) error

// MapDepthFrameToColorSpace calls f.
func (f MapperFunc) MapDepthFrameToColorSpace(depth []Depth, points []ColorSpacePoint) error {
	return f(depth, points)
}
