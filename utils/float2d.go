package utils

import "fmt"

/*
	Float2D is the storage for one unknown on a Cartesian grid block,
	including the one-cell ghost frame: a field of Nx x Ny float32 values
	where the element at (x, y) lives at linear offset x*Ny + y.

	The storage is column major: a column (fixed x) is one contiguous run of
	Ny values, a row (fixed y) has stride Ny. The copy-layer packing relies
	on this - vertical (left/right) copy layers are contiguous slices,
	horizontal (bottom/top) ones are strided gathers.

	There is no resize; a Float2D is allocated once at block construction.
*/
type Float2D struct {
	Nx, Ny int       // Allocated dimensions, including ghost cells
	data   []float32 // Column major backing store, len Nx*Ny
}

func NewFloat2D(nx, ny int) Float2D {
	if nx < 1 || ny < 1 {
		panic(fmt.Sprintf("invalid Float2D dimensions (%d, %d)", nx, ny))
	}
	return Float2D{
		Nx:   nx,
		Ny:   ny,
		data: make([]float32, nx*ny),
	}
}

func (f Float2D) Dims() (nx, ny int) { return f.Nx, f.Ny }

func (f Float2D) At(x, y int) float32 { return f.data[x*f.Ny+y] }

func (f Float2D) Set(x, y int, val float32) { f.data[x*f.Ny+y] = val }

// Data exposes the column major backing slice. Offset arithmetic on the
// result must honor the x*Ny+y layout.
func (f Float2D) Data() []float32 { return f.data }

// Col returns the contiguous column at fixed x as a zero-copy view of
// length Ny. Writes through the view update the field.
func (f Float2D) Col(x int) []float32 {
	return f.data[x*f.Ny : (x+1)*f.Ny]
}

// GatherRow copies the row at fixed y for x in [x0, x0+len(dst)) into dst,
// walking the backing store with stride Ny.
func (f Float2D) GatherRow(y, x0 int, dst []float32) {
	var (
		ind = x0*f.Ny + y
	)
	for i := range dst {
		dst[i] = f.data[ind]
		ind += f.Ny
	}
}

// ScatterRow writes src into the row at fixed y starting at x0.
func (f Float2D) ScatterRow(y, x0 int, src []float32) {
	var (
		ind = x0*f.Ny + y
	)
	for i := range src {
		f.data[ind] = src[i]
		ind += f.Ny
	}
}

func (f Float2D) Fill(val float32) {
	for i := range f.data {
		f.data[i] = val
	}
}

// Copy duplicates the field into freshly allocated storage.
func (f Float2D) Copy() (out Float2D) {
	out = NewFloat2D(f.Nx, f.Ny)
	copy(out.data, f.data)
	return
}
