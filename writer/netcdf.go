package writer

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"

	"gonum.org/v1/gonum/floats"

	"github.com/oldenj/shallow-water-equations/utils"
)

/*
	NetCdfWriter appends checkpoint slices of a single block to a NetCDF
	classic (CDF-1) file. The format is written natively: a fixed header
	defining the dimensions (time=UNLIMITED, y, x), the coordinate and
	bathymetry variables, and the record variables time, h, hu, hv; each
	WriteTimeStep appends one record and bumps the record counter in the
	header.

	The ghost frame around the block interior is stripped on output
	according to the boundary size convention (one cell per edge for the
	blocks in this package). Record slabs are row major (y outer, x inner)
	as NetCDF expects for dimensions (time, y, x).
*/
type NetCdfWriter struct {
	file *os.File

	nx, ny       int
	boundarySize [4]int // cells to strip: left, right, bottom, top

	recStart int64 // file offset of the record section
	recSize  int64 // bytes per record
	numRecs  int32

	scratch []byte
}

const (
	ncDimension = 0x0A
	ncVariable  = 0x0B
	ncAttribute = 0x0C

	ncChar  = 2
	ncFloat = 5
)

// NewNetCdfWriter creates path (truncating any previous file) and writes the
// header plus the static coordinate and bathymetry data. b carries the ghost
// frame; boundarySize says how many cells to strip per edge.
func NewNetCdfWriter(path string, b utils.Float2D, boundarySize [4]int,
	nx, ny int, dx, dy, originX, originY float64) (w *NetCdfWriter, err error) {
	if nx < 1 || ny < 1 {
		return nil, fmt.Errorf("invalid output dimensions (%d, %d)", nx, ny)
	}
	w = &NetCdfWriter{
		nx:           nx,
		ny:           ny,
		boundarySize: boundarySize,
		scratch:      make([]byte, 0, 4*nx*ny),
	}

	// First pass with zero begins measures the header; the second pass
	// patches in the real offsets.
	header := w.encodeHeader(nil)
	begins := w.layout(int64(len(header)))
	header = w.encodeHeader(begins)

	if w.file, err = os.Create(path); err != nil {
		return nil, err
	}
	if _, err = w.file.Write(header); err != nil {
		w.file.Close()
		return nil, err
	}

	// Static data: cell center coordinate axes and the bathymetry.
	if err = w.writeAxis(begins[0], nx, originX, dx); err != nil {
		return nil, err
	}
	if err = w.writeAxis(begins[1], ny, originY, dy); err != nil {
		return nil, err
	}
	if err = w.writeField(begins[2], b); err != nil {
		return nil, err
	}
	return
}

// layout returns the begin offsets of x, y, b, time, h, hu, hv in file
// order: the fixed variables first, then the record section.
func (w *NetCdfWriter) layout(headerSize int64) (begins []int64) {
	var (
		fieldSize = int64(4 * w.nx * w.ny)
		xBegin    = headerSize
		yBegin    = xBegin + int64(4*w.nx)
		bBegin    = yBegin + int64(4*w.ny)
	)
	w.recStart = bBegin + fieldSize
	w.recSize = 4 + 3*fieldSize
	begins = []int64{
		xBegin, yBegin, bBegin,
		w.recStart,                   // time
		w.recStart + 4,               // h
		w.recStart + 4 + fieldSize,   // hu
		w.recStart + 4 + 2*fieldSize, // hv
	}
	return
}

func (w *NetCdfWriter) encodeHeader(begins []int64) []byte {
	if begins == nil {
		begins = make([]int64, 7)
	}
	var (
		buf       = make([]byte, 0, 1024)
		fieldSize = int32(4 * w.nx * w.ny)
	)
	buf = append(buf, 'C', 'D', 'F', 0x01)
	buf = appendInt32(buf, w.numRecs)

	// dim_list: time (record), y, x
	buf = appendInt32(buf, ncDimension)
	buf = appendInt32(buf, 3)
	buf = appendName(buf, "time")
	buf = appendInt32(buf, 0)
	buf = appendName(buf, "y")
	buf = appendInt32(buf, int32(w.ny))
	buf = appendName(buf, "x")
	buf = appendInt32(buf, int32(w.nx))

	// global attributes
	buf = appendInt32(buf, ncAttribute)
	buf = appendInt32(buf, 1)
	buf = appendTextAttr(buf, "Conventions", "COARDS")

	// var_list
	buf = appendInt32(buf, ncVariable)
	buf = appendInt32(buf, 7)
	buf = appendVar(buf, "x", []int32{2}, "m", int32(4*w.nx), begins[0])
	buf = appendVar(buf, "y", []int32{1}, "m", int32(4*w.ny), begins[1])
	buf = appendVar(buf, "b", []int32{1, 2}, "m", fieldSize, begins[2])
	buf = appendVar(buf, "time", []int32{0}, "s", 4, begins[3])
	buf = appendVar(buf, "h", []int32{0, 1, 2}, "m", fieldSize, begins[4])
	buf = appendVar(buf, "hu", []int32{0, 1, 2}, "m2 s-1", fieldSize, begins[5])
	buf = appendVar(buf, "hv", []int32{0, 1, 2}, "m2 s-1", fieldSize, begins[6])
	return buf
}

func appendInt32(buf []byte, v int32) []byte {
	return binary.BigEndian.AppendUint32(buf, uint32(v))
}

func floatBits(v float32) uint32 { return math.Float32bits(v) }

func appendName(buf []byte, name string) []byte {
	buf = appendInt32(buf, int32(len(name)))
	buf = append(buf, name...)
	for len(buf)%4 != 0 {
		buf = append(buf, 0)
	}
	return buf
}

func appendTextAttr(buf []byte, name, value string) []byte {
	buf = appendName(buf, name)
	buf = appendInt32(buf, ncChar)
	buf = appendInt32(buf, int32(len(value)))
	buf = append(buf, value...)
	for len(buf)%4 != 0 {
		buf = append(buf, 0)
	}
	return buf
}

func appendVar(buf []byte, name string, dimids []int32, units string,
	vsize int32, begin int64) []byte {
	buf = appendName(buf, name)
	buf = appendInt32(buf, int32(len(dimids)))
	for _, id := range dimids {
		buf = appendInt32(buf, id)
	}
	buf = appendInt32(buf, ncAttribute)
	buf = appendInt32(buf, 1)
	buf = appendTextAttr(buf, "units", units)
	buf = appendInt32(buf, ncFloat)
	buf = appendInt32(buf, vsize)
	buf = appendInt32(buf, int32(begin)) // CDF-1 carries 32 bit offsets
	return buf
}

func (w *NetCdfWriter) writeAxis(begin int64, n int, origin, delta float64) error {
	centers := make([]float64, n)
	if n == 1 {
		centers[0] = origin + 0.5*delta
	} else {
		floats.Span(centers, origin+0.5*delta, origin+(float64(n)-0.5)*delta)
	}
	w.scratch = w.scratch[:0]
	for _, c := range centers {
		w.scratch = binary.BigEndian.AppendUint32(w.scratch, floatBits(float32(c)))
	}
	_, err := w.file.WriteAt(w.scratch, begin)
	return err
}

// writeField emits the interior of f in row major (y, x) order.
func (w *NetCdfWriter) writeField(begin int64, f utils.Float2D) error {
	var (
		x0 = w.boundarySize[0]
		y0 = w.boundarySize[2]
	)
	w.scratch = w.scratch[:0]
	for j := 0; j < w.ny; j++ {
		for i := 0; i < w.nx; i++ {
			w.scratch = binary.BigEndian.AppendUint32(w.scratch, floatBits(f.At(x0+i, y0+j)))
		}
	}
	_, err := w.file.WriteAt(w.scratch, begin)
	return err
}

// WriteTimeStep appends one record of h, hu, hv at simulation time t.
func (w *NetCdfWriter) WriteTimeStep(h, hu, hv utils.Float2D, t float64) (err error) {
	var (
		base      = w.recStart + int64(w.numRecs)*w.recSize
		fieldSize = int64(4 * w.nx * w.ny)
	)
	w.scratch = w.scratch[:0]
	w.scratch = binary.BigEndian.AppendUint32(w.scratch, floatBits(float32(t)))
	if _, err = w.file.WriteAt(w.scratch, base); err != nil {
		return
	}
	if err = w.writeField(base+4, h); err != nil {
		return
	}
	if err = w.writeField(base+4+fieldSize, hu); err != nil {
		return
	}
	if err = w.writeField(base+4+2*fieldSize, hv); err != nil {
		return
	}
	w.numRecs++
	w.scratch = w.scratch[:0]
	w.scratch = appendInt32(w.scratch, w.numRecs)
	_, err = w.file.WriteAt(w.scratch, 4)
	return
}

func (w *NetCdfWriter) Close() error {
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}
