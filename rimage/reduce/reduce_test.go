package reduce

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.viam.com/test"
)

const (
	kinectStride = 512 * 4
	kinectHeight = 424
)

func randomPix(seed int64, size int) []byte {
	r := rand.New(rand.NewSource(seed))
	pix := make([]byte, size)
	r.Read(pix)
	return pix
}

// fillBlocks paints each of the n x m blocks of a stride x height buffer with a distinct
// constant pixel.
func fillBlocks(stride, height, n, m int) []byte {
	pix := make([]byte, stride*height)
	columns := stride / n
	rows := height / m
	for i := range pix {
		rs := (i / stride) / rows
		cs := (i % stride) / columns
		pix[i] = byte(rs*31 + cs*7 + (i%4)*50)
	}
	return pix
}

func TestAverage(t *testing.T) {
	t.Run("full resolution is identity", func(t *testing.T) {
		pix := randomPix(1, kinectStride*kinectHeight)
		before := bytes.Clone(pix)
		Average(pix, kinectStride, kinectHeight, FullResolution, 424)
		test.That(t, pix, test.ShouldResemble, before)
	})

	t.Run("uniform blocks are unchanged", func(t *testing.T) {
		pix := fillBlocks(kinectStride, kinectHeight, 8, 8)
		before := bytes.Clone(pix)
		Average(pix, kinectStride, kinectHeight, 8, 8)
		test.That(t, cmp.Diff(before, pix), test.ShouldBeEmpty)
	})

	t.Run("small blocks average per channel", func(t *testing.T) {
		// 4x2 pixels split into two 2x2 blocks.
		pix := []byte{
			0, 10, 20, 30, 4, 14, 24, 34, 100, 0, 0, 0, 200, 0, 0, 0,
			8, 18, 28, 38, 12, 22, 32, 42, 100, 0, 0, 0, 200, 0, 0, 0,
		}
		Average(pix, 16, 2, 2, 1)
		test.That(t, pix, test.ShouldResemble, []byte{
			6, 16, 26, 36, 6, 16, 26, 36, 150, 0, 0, 0, 150, 0, 0, 0,
			6, 16, 26, 36, 6, 16, 26, 36, 150, 0, 0, 0, 150, 0, 0, 0,
		})
	})

	t.Run("zero m means square", func(t *testing.T) {
		a := randomPix(2, 16*4)
		b := bytes.Clone(a)
		Average(a, 16, 4, 2, 0)
		Average(b, 16, 4, 2, 2)
		test.That(t, a, test.ShouldResemble, b)
	})

	t.Run("idempotent on block grid", func(t *testing.T) {
		pix := randomPix(3, kinectStride*kinectHeight)
		Average(pix, kinectStride, kinectHeight, 8, 8)
		once := bytes.Clone(pix)
		Average(pix, kinectStride, kinectHeight, 8, 8)
		test.That(t, pix, test.ShouldResemble, once)
	})

	t.Run("non divisible sizes do not panic", func(t *testing.T) {
		for _, nm := range [][2]int{{32, 53}, {7, 5}, {3, 11}, {100, 100}, {511, 423}} {
			pix := randomPix(4, kinectStride*kinectHeight)
			Average(pix, kinectStride, kinectHeight, nm[0], nm[1])
		}
	})

	sequence := func() []byte {
		pix := make([]byte, 32)
		for i := range pix {
			pix[i] = byte(i)
		}
		return pix
	}

	t.Run("trailing column of a non divisible stride", func(t *testing.T) {
		// 5 byte blocks over a 16 byte stride leave byte 15 in a fourth column sector.
		// Sums are divided by the 2 pixels of a whole 5x2 block.
		pix := sequence()
		Average(pix, 16, 2, 3, 1)
		row := []byte{20, 9, 10, 11, 20, 30, 14, 15, 16, 30, 40, 19, 20, 21, 40, 23}
		test.That(t, pix, test.ShouldResemble, append(bytes.Clone(row), row...))
	})

	t.Run("trailing column aliases the next block row", func(t *testing.T) {
		// with one row per block, byte 15 of the first row lands in the sector of the first
		// block of the second row, so alpha bytes 15 and 19 blend to 15+19.
		pix := sequence()
		Average(pix, 16, 2, 3, 2)
		test.That(t, pix, test.ShouldResemble, []byte{
			4, 1, 2, 3, 4, 14, 6, 7, 8, 14, 24, 11, 12, 13, 24, 34,
			36, 17, 18, 34, 36, 46, 22, 23, 24, 46, 56, 27, 28, 29, 56, 31,
		})
	})

	t.Run("degenerate blocks are no-ops", func(t *testing.T) {
		pix := randomPix(5, 16*4)
		before := bytes.Clone(pix)
		Average(pix, 16, 4, 0, 0)
		Average(pix, 16, 4, 100, 1)
		Average(pix, 16, 4, 1, 100)
		Average(pix, 16, 0, 2, 2)
		Average(nil, 16, 4, 2, 2)
		test.That(t, pix, test.ShouldResemble, before)
	})
}

func TestReducerReusesScratch(t *testing.T) {
	r := NewReducer()
	big := randomPix(6, kinectStride*kinectHeight)
	r.Average(big, kinectStride, kinectHeight, 8, 8)
	capacity := cap(r.totals)

	small := fillBlocks(16, 4, 2, 2)
	before := bytes.Clone(small)
	r.Average(small, 16, 4, 2, 2)
	test.That(t, small, test.ShouldResemble, before)
	test.That(t, cap(r.totals), test.ShouldEqual, capacity)
}

func TestDecimationTile(t *testing.T) {
	test.That(t, DecimationTile(FullResolution), test.ShouldEqual, 4)
	test.That(t, DecimationTile(8), test.ShouldEqual, 64)
	test.That(t, DecimationTile(32), test.ShouldEqual, 16)
	test.That(t, DecimationTile(5), test.ShouldEqual, 5)
}

func TestDecimate(t *testing.T) {
	t.Run("tiles repeat their first pixel", func(t *testing.T) {
		pix := randomPix(7, kinectStride*kinectHeight)
		orig := bytes.Clone(pix)
		Decimate(pix, 8)
		tileBytes := 64 * 4
		for i := 0; i < len(pix); i += 4 {
			first := (i / tileBytes) * tileBytes
			test.That(t, pix[i:i+4], test.ShouldResemble, orig[first:first+4])
		}
	})

	t.Run("idempotent", func(t *testing.T) {
		pix := randomPix(8, kinectStride*kinectHeight)
		Decimate(pix, 32)
		once := bytes.Clone(pix)
		Decimate(pix, 32)
		test.That(t, pix, test.ShouldResemble, once)
	})

	t.Run("partial trailing tile stays in bounds", func(t *testing.T) {
		pix := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20, 21, 22}
		Decimate(pix, 3)
		test.That(t, pix, test.ShouldResemble, []byte{
			1, 2, 3, 4, 1, 2, 3, 4, 1, 2, 3, 4,
			13, 14, 15, 16, 13, 14, 15, 16, 21, 22,
		})
	})

	t.Run("single pixel tiles are no-ops", func(t *testing.T) {
		pix := randomPix(9, 64)
		before := bytes.Clone(pix)
		Decimate(pix, 1)
		Decimate(pix, 0)
		Decimate(pix, -3)
		test.That(t, pix, test.ShouldResemble, before)
	})
}

func TestCenter(t *testing.T) {
	t.Run("samples middle of first block row", func(t *testing.T) {
		// 4x2 pixels, two 2x2 blocks; the sample is the second pixel of each block's top row.
		pix := []byte{
			1, 1, 1, 1, 2, 2, 2, 2, 3, 3, 3, 3, 4, 4, 4, 4,
			5, 5, 5, 5, 6, 6, 6, 6, 7, 7, 7, 7, 8, 8, 8, 8,
		}
		Center(pix, 16, 2, 2, 1)
		test.That(t, pix, test.ShouldResemble, []byte{
			2, 2, 2, 2, 2, 2, 2, 2, 4, 4, 4, 4, 4, 4, 4, 4,
			2, 2, 2, 2, 2, 2, 2, 2, 4, 4, 4, 4, 4, 4, 4, 4,
		})
	})

	t.Run("uniform blocks are unchanged", func(t *testing.T) {
		pix := fillBlocks(kinectStride, kinectHeight, 8, 8)
		before := bytes.Clone(pix)
		Center(pix, kinectStride, kinectHeight, 8, 8)
		test.That(t, pix, test.ShouldResemble, before)
	})

	t.Run("full resolution is identity", func(t *testing.T) {
		pix := randomPix(10, kinectStride*kinectHeight)
		before := bytes.Clone(pix)
		Center(pix, kinectStride, kinectHeight, FullResolution, 0)
		test.That(t, pix, test.ShouldResemble, before)
	})

	t.Run("non divisible sizes do not panic", func(t *testing.T) {
		for _, nm := range [][2]int{{32, 53}, {7, 5}, {3, 11}, {511, 423}} {
			pix := randomPix(11, kinectStride*kinectHeight)
			Center(pix, kinectStride, kinectHeight, nm[0], nm[1])
		}
	})
}

func TestApply(t *testing.T) {
	r := NewReducer()
	for _, mode := range []Mode{ModeAverage, ModeDecimate, ModeCenter} {
		t.Run(mode.String(), func(t *testing.T) {
			pix := fillBlocks(kinectStride, kinectHeight, 8, 8)
			expected := bytes.Clone(pix)
			switch mode {
			case ModeAverage:
				Average(expected, kinectStride, kinectHeight, 8, 8)
			case ModeDecimate:
				Decimate(expected, 8)
			case ModeCenter:
				Center(expected, kinectStride, kinectHeight, 8, 8)
			}
			r.Apply(pix, kinectStride, kinectHeight, Resolution{N: 8, M: 8, Mode: mode})
			test.That(t, pix, test.ShouldResemble, expected)
		})
	}
}
