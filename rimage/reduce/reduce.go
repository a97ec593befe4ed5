package reduce

const bytesPerPixel = 4

// sectorGrid partitions a packed buffer into n blocks across and m blocks down. Block
// boundaries are measured in bytes: a block is columns bytes wide and rows rows tall.
//
// A byte at (row, col) belongs to sector rowSector*(n-1) + (rowSector + columnSector).
// When stride is not a multiple of n, the trailing partial column of blocks gets
// columnSector == n and so shares a sector with the first block of the next block row.
// Those edge blocks are blended with their neighbor rather than kept apart.
type sectorGrid struct {
	stride  int
	n       int
	columns int
	rows    int
	sectors int
}

func newSectorGrid(length, stride, height, n, m int) (sectorGrid, bool) {
	if length <= 0 || stride <= 0 || height <= 0 || n <= 0 || m <= 0 {
		return sectorGrid{}, false
	}
	g := sectorGrid{
		stride:  stride,
		n:       n,
		columns: stride / n,
		rows:    height / m,
	}
	// blocks smaller than a pixel would divide by zero
	if g.columns == 0 || g.rows == 0 || g.rows*g.columns < bytesPerPixel {
		return sectorGrid{}, false
	}

	lastRow := (length - 1) / stride
	g.sectors = g.block(lastRow/g.rows, (stride-1)/g.columns) + 1
	return g, true
}

func (g sectorGrid) block(rowSector, columnSector int) int {
	return rowSector*(g.n-1) + (rowSector + columnSector)
}

func (g sectorGrid) sector(i int) int {
	return g.block((i/g.stride)/g.rows, (i%g.stride)/g.columns)
}

// A Reducer applies a Resolution to packed buffers, reusing its scratch space between calls.
// It is not safe for concurrent use.
type Reducer struct {
	totals  []int
	samples []byte
}

// NewReducer returns a reducer with no scratch allocated yet.
func NewReducer() *Reducer {
	return &Reducer{}
}

// Apply reduces pix in place. stride is the number of bytes per row and height the number of
// rows.
func (r *Reducer) Apply(pix []byte, stride, height int, res Resolution) {
	switch res.Mode {
	case ModeAverage:
		r.Average(pix, stride, height, res.N, res.M)
	case ModeDecimate:
		Decimate(pix, res.N)
	case ModeCenter:
		r.Center(pix, stride, height, res.N, res.M)
	}
}

func (r *Reducer) totalsFor(size int) []int {
	if cap(r.totals) < size {
		r.totals = make([]int, size)
	}
	r.totals = r.totals[:size]
	clear(r.totals)
	return r.totals
}

func (r *Reducer) samplesFor(size int) []byte {
	if cap(r.samples) < size {
		r.samples = make([]byte, size)
	}
	r.samples = r.samples[:size]
	clear(r.samples)
	return r.samples
}

// Average replaces every byte with the mean of the same channel over its sector. The mean
// divides by the pixel count of a whole block and is truncated to a byte, so sectors that
// collect more than one block can wrap. n == FullResolution and degenerate blocks are no-ops.
func (r *Reducer) Average(pix []byte, stride, height, n, m int) {
	if n == FullResolution {
		return
	}
	if m == 0 {
		m = n
	}
	g, ok := newSectorGrid(len(pix), stride, height, n, m)
	if !ok {
		return
	}

	totals := r.totalsFor(g.sectors * bytesPerPixel)
	for i, v := range pix {
		totals[g.sector(i)*bytesPerPixel+i%bytesPerPixel] += int(v)
	}

	pixelsPerBlock := g.rows * g.columns / bytesPerPixel
	for i := range pix {
		pix[i] = byte(totals[g.sector(i)*bytesPerPixel+i%bytesPerPixel] / pixelsPerBlock)
	}
}

// Center replaces every byte with the same channel of one sample pixel per sector, taken from
// the middle of the block's first row. Blocks that alias the same sector keep the sample of
// the last such block.
func (r *Reducer) Center(pix []byte, stride, height, n, m int) {
	if n == FullResolution {
		return
	}
	if m == 0 {
		m = n
	}
	g, ok := newSectorGrid(len(pix), stride, height, n, m)
	if !ok {
		return
	}

	samples := r.samplesFor(g.sectors * bytesPerPixel)
	blockRows := (len(pix)-1)/stride/g.rows + 1
	blockColumns := (stride-1)/g.columns + 1
	for rowSector := 0; rowSector < blockRows; rowSector++ {
		rowStart := rowSector * g.rows * stride
		rowEnd := min(rowStart+stride, len(pix))
		for columnSector := 0; columnSector < blockColumns; columnSector++ {
			off := rowStart + (columnSector*g.columns+g.columns/2)&^(bytesPerPixel-1)
			if off+bytesPerPixel > rowEnd {
				off = rowEnd - bytesPerPixel
			}
			if off < rowStart {
				continue
			}
			sector := g.block(rowSector, columnSector)
			copy(samples[sector*bytesPerPixel:(sector+1)*bytesPerPixel], pix[off:off+bytesPerPixel])
		}
	}

	for i := range pix {
		pix[i] = samples[g.sector(i)*bytesPerPixel+i%bytesPerPixel]
	}
}

// Average is Reducer.Average with throwaway scratch.
func Average(pix []byte, stride, height, n, m int) {
	NewReducer().Average(pix, stride, height, n, m)
}

// Center is Reducer.Center with throwaway scratch.
func Center(pix []byte, stride, height, n, m int) {
	NewReducer().Center(pix, stride, height, n, m)
}

// DecimationTile maps a requested block count to the tile length, in pixels, used by Decimate.
// The aliases tie the resolution presets to tile sizes.
func DecimationTile(n int) int {
	switch n {
	case FullResolution:
		return 4
	case 8:
		return 64
	case 32:
		return 16
	default:
		return n
	}
}

// Decimate splits pix into runs of DecimationTile(n) pixels and copies the first pixel of each
// run over the rest of it. A trailing partial run is filled as far as the buffer goes. Tiles
// of one pixel or less are a no-op.
func Decimate(pix []byte, n int) {
	tile := DecimationTile(n)
	if tile <= 1 {
		return
	}

	step := tile * bytesPerPixel
	for i := 0; i+bytesPerPixel <= len(pix); i += step {
		first := pix[i : i+bytesPerPixel : i+bytesPerPixel]
		for j := 1; j < tile; j++ {
			off := i + j*bytesPerPixel
			if off+bytesPerPixel > len(pix) {
				break
			}
			copy(pix[off:off+bytesPerPixel], first)
		}
	}
}
