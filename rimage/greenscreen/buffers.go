package greenscreen

import (
	"github.com/pkg/errors"

	"go.viam.com/greenscreen/rimage"
)

// Geometry is the size of each stream in a frame set. Body index frames share the depth size.
type Geometry struct {
	ColorWidth  int
	ColorHeight int
	DepthWidth  int
	DepthHeight int
}

// Validate returns an error for negative or empty dimensions.
func (g Geometry) Validate() error {
	if g.ColorWidth <= 0 || g.ColorHeight <= 0 {
		return errors.Errorf("invalid color size %dx%d", g.ColorWidth, g.ColorHeight)
	}
	if g.DepthWidth <= 0 || g.DepthHeight <= 0 {
		return errors.Errorf("invalid depth size %dx%d", g.DepthWidth, g.DepthHeight)
	}
	return nil
}

// DepthPixels is the number of pixels in a depth or body index frame.
func (g Geometry) DepthPixels() int {
	return g.DepthWidth * g.DepthHeight
}

// ColorPixels is the number of pixels in a color frame.
func (g Geometry) ColorPixels() int {
	return g.ColorWidth * g.ColorHeight
}

// BufferPool owns the scratch buffers reused across frames. Buffers are sized the first time
// Ensure is called and only rebuilt when the geometry changes. Accessors return slices of
// exactly the negotiated length with capped capacity, so appending never aliases the pool.
//
// A BufferPool is not safe for concurrent use; its owner serializes frames.
type BufferPool struct {
	geometry  Geometry
	allocated bool
	builds    int

	depth   []rimage.Depth
	labels  []uint8
	points  []rimage.ColorSpacePoint
	display []byte
	color   []byte
}

// NewBufferPool returns an empty pool. Nothing is allocated until Ensure.
func NewBufferPool() *BufferPool {
	return &BufferPool{}
}

// Ensure sizes the pool for g, reallocating only if g differs from the current geometry or
// nothing is allocated yet. It reports whether buffers were rebuilt.
func (bp *BufferPool) Ensure(g Geometry) (bool, error) {
	if err := g.Validate(); err != nil {
		return false, err
	}
	if bp.allocated && bp.geometry == g {
		return false, nil
	}

	depthPixels := g.DepthPixels()
	bp.depth = make([]rimage.Depth, depthPixels)
	bp.labels = make([]uint8, depthPixels)
	bp.points = make([]rimage.ColorSpacePoint, depthPixels)
	bp.display = make([]byte, depthPixels*rimage.BytesPerPixel)
	bp.color = make([]byte, g.ColorPixels()*rimage.BytesPerPixel)
	bp.geometry = g
	bp.allocated = true
	bp.builds++
	return true, nil
}

// Allocated returns whether Ensure has sized the pool.
func (bp *BufferPool) Allocated() bool {
	return bp.allocated
}

// Geometry returns the geometry the pool is currently sized for.
func (bp *BufferPool) Geometry() Geometry {
	return bp.geometry
}

// Builds returns how many times the pool has (re)allocated its buffers.
func (bp *BufferPool) Builds() int {
	return bp.builds
}

// Depth is the scratch copy of the depth samples.
func (bp *BufferPool) Depth() []rimage.Depth {
	return bp.depth[:len(bp.depth):len(bp.depth)]
}

// Labels is the scratch copy of the body index labels.
func (bp *BufferPool) Labels() []uint8 {
	return bp.labels[:len(bp.labels):len(bp.labels)]
}

// Points receives the color space point of every depth pixel.
func (bp *BufferPool) Points() []rimage.ColorSpacePoint {
	return bp.points[:len(bp.points):len(bp.points)]
}

// DisplayPixels is the depth shaped BGRA output buffer.
func (bp *BufferPool) DisplayPixels() []byte {
	return bp.display[:len(bp.display):len(bp.display)]
}

// ColorPixels is the full resolution converted BGRA color buffer.
func (bp *BufferPool) ColorPixels() []byte {
	return bp.color[:len(bp.color):len(bp.color)]
}

// Display wraps the output buffer as an image without copying it.
func (bp *BufferPool) Display() *rimage.BGRA {
	return &rimage.BGRA{Pix: bp.DisplayPixels(), Width: bp.geometry.DepthWidth, Height: bp.geometry.DepthHeight}
}

// Color wraps the color buffer as an image without copying it.
func (bp *BufferPool) Color() *rimage.BGRA {
	return &rimage.BGRA{Pix: bp.ColorPixels(), Width: bp.geometry.ColorWidth, Height: bp.geometry.ColorHeight}
}
