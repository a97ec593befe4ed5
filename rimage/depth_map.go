package rimage

import (
	"bufio"
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// Depth is the distance in millimeters measured for a single depth pixel.
type Depth uint16

// MaxDepth is the largest depth value a sensor can report.
const MaxDepth = Depth(math.MaxUint16)

// depthFileMagic is the little endian int64 of "VERSIONX", marking the versioned depth file format.
const depthFileMagic = 6363110499870197078

// DepthFrame is a row-major grid of depth samples along with the reliability window
// reported by the sensor for that frame.
type DepthFrame struct {
	Width  int
	Height int
	Data   []Depth

	// MinReliableDistance and MaxReliableDistance bound the depths the sensor trusts.
	MinReliableDistance Depth
	MaxReliableDistance Depth
}

// NewEmptyDepthFrame returns a zeroed depth frame of the given size.
func NewEmptyDepthFrame(width, height int) *DepthFrame {
	return &DepthFrame{
		Width:               width,
		Height:              height,
		Data:                make([]Depth, width*height),
		MaxReliableDistance: MaxDepth,
	}
}

// HasData returns whether the frame carries samples.
func (df *DepthFrame) HasData() bool {
	return df != nil && df.Width > 0 && df.Data != nil
}

// Bounds returns the frame rectangle.
func (df *DepthFrame) Bounds() image.Rectangle {
	return image.Rect(0, 0, df.Width, df.Height)
}

// GetDepth returns the depth at (x, y).
func (df *DepthFrame) GetDepth(x, y int) Depth {
	return df.Data[y*df.Width+x]
}

// Set sets the depth at (x, y).
func (df *DepthFrame) Set(x, y int, val Depth) {
	df.Data[y*df.Width+x] = val
}

// MinMax returns the smallest and largest non-zero depths in the frame.
func (df *DepthFrame) MinMax() (Depth, Depth) {
	minDepth := MaxDepth
	maxDepth := Depth(0)

	for _, z := range df.Data {
		if z == 0 {
			continue
		}
		if z < minDepth {
			minDepth = z
		}
		if z > maxDepth {
			maxDepth = z
		}
	}

	return minDepth, maxDepth
}

// ToPrettyPicture colors the depth frame by hue for human inspection. Zero depths stay black.
func (df *DepthFrame) ToPrettyPicture(hardMin, hardMax Depth) image.Image {
	minDepth, maxDepth := df.MinMax()

	if minDepth < hardMin {
		minDepth = hardMin
	}
	if maxDepth > hardMax {
		maxDepth = hardMax
	}

	img := image.NewNRGBA(df.Bounds())

	span := float64(maxDepth) - float64(minDepth)
	if span <= 0 {
		span = 1
	}

	for y := 0; y < df.Height; y++ {
		for x := 0; x < df.Width; x++ {
			z := df.GetDepth(x, y)
			if z == 0 {
				continue
			}

			if z < minDepth {
				z = minDepth
			}
			if z > maxDepth {
				z = maxDepth
			}

			ratio := (float64(z) - float64(minDepth)) / span

			hue := 30 + (200.0 * ratio)
			r, g, b := colorful.Hsv(hue, 1.0, 1.0).RGB255()
			img.SetNRGBA(x, y, color.NRGBA{r, g, b, 0xff})
		}
	}

	return img
}

// ParseDepthFrame reads a depth frame file, transparently decompressing ".gz" files.
func ParseDepthFrame(fn string) (df *DepthFrame, err error) {
	//nolint:gosec
	f, err := os.Open(fn)
	if err != nil {
		return nil, err
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()

	var r io.Reader = f
	if filepath.Ext(fn) == ".gz" {
		gr, err := gzip.NewReader(f)
		if err != nil {
			return nil, err
		}
		defer func() {
			err = multierr.Combine(err, gr.Close())
		}()
		r = gr
	}

	return ReadDepthFrame(bufio.NewReader(r))
}

func readNext(r io.Reader) (int64, error) {
	data := make([]byte, 8)
	x, err := io.ReadFull(r, data)
	if x == 8 {
		return int64(binary.LittleEndian.Uint64(data)), nil
	}

	return 0, errors.Errorf("got %d bytes, and %v", x, err)
}

func readHeaderLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// ReadDepthFrame reads a depth frame in the versioned format written by WriteTo.
//
// The layout is the "VERSIONX" magic, then newline terminated text lines for bytes per pixel
// (always 2), units in meters, width and height, followed by row-major little endian uint16
// samples.
func ReadDepthFrame(r *bufio.Reader) (*DepthFrame, error) {
	magic, err := readNext(r)
	if err != nil {
		return nil, err
	}
	if magic != depthFileMagic {
		return nil, errors.Errorf("unknown depth file header %d", magic)
	}

	// get past the rest of the magic line
	if _, err := r.ReadString('\n'); err != nil {
		return nil, err
	}

	bytesPerPixelString, err := readHeaderLine(r)
	if err != nil {
		return nil, err
	}
	if bytesPerPixelString != "2" {
		return nil, errors.Errorf("can only handle 2 bytes per pixel, not %s", bytesPerPixelString)
	}

	unitsString, err := readHeaderLine(r)
	if err != nil {
		return nil, err
	}
	units, err := strconv.ParseFloat(unitsString, 64)
	if err != nil {
		return nil, errors.Wrap(err, "bad depth units")
	}
	units *= 1000 // m to mm

	dims := make([]int, 2)
	for i := range dims {
		dimString, err := readHeaderLine(r)
		if err != nil {
			return nil, err
		}
		dim, err := strconv.ParseInt(dimString, 10, 64)
		if err != nil {
			return nil, errors.Wrap(err, "bad depth dimensions")
		}
		dims[i] = int(dim)
	}
	width, height := dims[0], dims[1]

	if width <= 0 || width >= 100000 || height <= 0 || height >= 100000 {
		return nil, errors.Errorf("bad width or height for depth frame %v %v", width, height)
	}

	df := NewEmptyDepthFrame(width, height)
	temp := make([]byte, 2)
	for i := range df.Data {
		if _, err := io.ReadFull(r, temp); err != nil {
			return nil, errors.Wrapf(err, "short depth data at pixel %d", i)
		}
		z := units * float64(binary.LittleEndian.Uint16(temp))
		if z > float64(MaxDepth) {
			z = float64(MaxDepth)
		}
		df.Data[i] = Depth(z)
	}

	return df, nil
}

// WriteToFile writes the frame to a file, gzip compressing ".gz" files.
func (df *DepthFrame) WriteToFile(fn string) (err error) {
	//nolint:gosec
	f, err := os.Create(fn)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()

	var out io.Writer = f
	if filepath.Ext(fn) == ".gz" {
		gout := gzip.NewWriter(f)
		if err := df.WriteTo(gout); err != nil {
			return multierr.Combine(err, gout.Close())
		}
		if err := gout.Close(); err != nil {
			return err
		}
		return f.Sync()
	}

	if err := df.WriteTo(out); err != nil {
		return err
	}
	return f.Sync()
}

// WriteTo writes the frame in the versioned depth format with millimeter units.
func (df *DepthFrame) WriteTo(out io.Writer) error {
	bw := bufio.NewWriter(out)
	if _, err := fmt.Fprintf(bw, "VERSIONX\n2\n0.001\n%d\n%d\n", df.Width, df.Height); err != nil {
		return err
	}

	buf := make([]byte, 2)
	for _, z := range df.Data {
		binary.LittleEndian.PutUint16(buf, uint16(z))
		if _, err := bw.Write(buf); err != nil {
			return err
		}
	}

	return bw.Flush()
}
