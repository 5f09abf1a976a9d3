package writer

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oldenj/shallow-water-equations/utils"
)

// headerWalker decodes just enough of the CDF-1 header to recover the
// variable layout independently of the writer's own offset bookkeeping.
type headerWalker struct {
	t   *testing.T
	buf []byte
	pos int
}

func (w *headerWalker) int32() int32 {
	v := int32(binary.BigEndian.Uint32(w.buf[w.pos:]))
	w.pos += 4
	return v
}

func (w *headerWalker) name() string {
	n := int(w.int32())
	s := string(w.buf[w.pos : w.pos+n])
	w.pos += n
	for w.pos%4 != 0 {
		w.pos++
	}
	return s
}

func (w *headerWalker) attrList() {
	tag := w.int32()
	count := int(w.int32())
	if count > 0 {
		require.Equal(w.t, int32(ncAttribute), tag)
	}
	for i := 0; i < count; i++ {
		w.name()
		typ := w.int32()
		require.Equal(w.t, int32(ncChar), typ)
		n := int(w.int32())
		w.pos += n
		for w.pos%4 != 0 {
			w.pos++
		}
	}
}

type varEntry struct {
	dimids []int32
	vsize  int32
	begin  int64
}

func parseHeader(t *testing.T, buf []byte) (numRecs int32, dims map[string]int32, vars map[string]varEntry) {
	w := &headerWalker{t: t, buf: buf}
	require.Equal(t, []byte{'C', 'D', 'F', 1}, buf[:4])
	w.pos = 4
	numRecs = w.int32()

	require.Equal(t, int32(ncDimension), w.int32())
	ndims := int(w.int32())
	dims = make(map[string]int32, ndims)
	for i := 0; i < ndims; i++ {
		name := w.name()
		dims[name] = w.int32()
	}

	w.attrList()

	require.Equal(t, int32(ncVariable), w.int32())
	nvars := int(w.int32())
	vars = make(map[string]varEntry, nvars)
	for i := 0; i < nvars; i++ {
		name := w.name()
		rank := int(w.int32())
		entry := varEntry{dimids: make([]int32, rank)}
		for d := 0; d < rank; d++ {
			entry.dimids[d] = w.int32()
		}
		w.attrList()
		require.Equal(t, int32(ncFloat), w.int32())
		entry.vsize = w.int32()
		entry.begin = int64(w.int32())
		vars[name] = entry
	}
	return
}

func readFloat(buf []byte, offset int64) float32 {
	return math.Float32frombits(binary.BigEndian.Uint32(buf[offset:]))
}

func TestNetCdfWriter(t *testing.T) {
	var (
		nx, ny = 3, 2
		path   = filepath.Join(t.TempDir(), "out.nc")
	)
	b := utils.NewFloat2D(nx+2, ny+2)
	h := utils.NewFloat2D(nx+2, ny+2)
	hu := utils.NewFloat2D(nx+2, ny+2)
	hv := utils.NewFloat2D(nx+2, ny+2)
	for i := 0; i < nx+2; i++ {
		for j := 0; j < ny+2; j++ {
			b.Set(i, j, float32(-100+i+10*j))
			h.Set(i, j, float32(i)+0.5*float32(j))
			hu.Set(i, j, float32(2*i))
			hv.Set(i, j, float32(3*j))
		}
	}

	w, err := NewNetCdfWriter(path, b, [4]int{1, 1, 1, 1}, nx, ny, 10, 20, 100, 200)
	require.NoError(t, err)
	require.NoError(t, w.WriteTimeStep(h, hu, hv, 0))
	require.NoError(t, w.WriteTimeStep(h, hu, hv, 1.5))
	require.NoError(t, w.Close())

	buf, err := os.ReadFile(path)
	require.NoError(t, err)
	numRecs, dims, vars := parseHeader(t, buf)

	{ // Dimensions: unlimited time plus the stripped interior sizes
		assert.Equal(t, int32(2), numRecs)
		assert.Equal(t, int32(0), dims["time"])
		assert.Equal(t, int32(ny), dims["y"])
		assert.Equal(t, int32(nx), dims["x"])
	}
	{ // Coordinate axes carry the cell centers
		x := vars["x"]
		assert.Equal(t, int32(4*nx), x.vsize)
		assert.Equal(t, float32(105), readFloat(buf, x.begin)) // 100 + 0.5*10
		assert.Equal(t, float32(115), readFloat(buf, x.begin+4))
		y := vars["y"]
		assert.Equal(t, float32(210), readFloat(buf, y.begin)) // 200 + 0.5*20
	}
	{ // Bathymetry strips the ghost frame and is row major (y, x)
		bv := vars["b"]
		assert.Equal(t, b.At(1, 1), readFloat(buf, bv.begin))
		assert.Equal(t, b.At(2, 1), readFloat(buf, bv.begin+4))
		assert.Equal(t, b.At(1, 2), readFloat(buf, bv.begin+int64(4*nx)))
	}
	{ // Record section: time, h, hu, hv per record, second record offset by
		// the full record size
		var (
			tv        = vars["time"]
			hVar      = vars["h"]
			fieldSize = int64(4 * nx * ny)
			recSize   = 4 + 3*fieldSize
		)
		assert.Equal(t, []int32{0, 1, 2}, hVar.dimids)
		assert.Equal(t, float32(0), readFloat(buf, tv.begin))
		assert.Equal(t, float32(1.5), readFloat(buf, tv.begin+recSize))
		assert.Equal(t, h.At(1, 1), readFloat(buf, hVar.begin))
		assert.Equal(t, h.At(3, 2), readFloat(buf, hVar.begin+recSize+int64(4*(nx*1+2))))
		assert.Equal(t, hu.At(1, 1), readFloat(buf, vars["hu"].begin))
		assert.Equal(t, hv.At(2, 1), readFloat(buf, vars["hv"].begin+4))
	}
	{ // The file ends exactly after the last record
		last := vars["hv"]
		assert.Equal(t, int64(len(buf)), last.begin+int64(last.vsize)+4+3*int64(4*nx*ny))
	}
}
