// Package vrml writes triangle meshes as VRML 2.0 (.wrl) scenes.
package vrml

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/philipparndt/stl2vrml/pkg/errs"
	"github.com/philipparndt/stl2vrml/pkg/geometry"
)

const crlf = "\r\n"

type state int

const (
	stateNew state = iota
	stateStarted
	stateEnded
)

// Writer streams triangles into a VRML document. Call Start, WriteFacet for
// every triangle and End, in that order. Triangles are buffered and written
// as one IndexedFaceSet per MaxPointsPerFaceSet points.
//
// The first failed write is returned by every later call. Output already
// written is not rolled back.
type Writer struct {
	bw      *bufio.Writer
	pending batch
	state   state
	shapes  int
	err     error
}

// NewWriter creates a writer that emits the document to w
func NewWriter(w io.Writer) *Writer {
	return &Writer{
		bw:      bufio.NewWriter(w),
		pending: newBatch(),
	}
}

// Start writes the file signature and generator comment
func (w *Writer) Start() error {
	if w.state != stateNew {
		return errors.New("vrml: Start called twice")
	}
	w.state = stateStarted
	w.printf("#VRML V2.0 utf8" + crlf + "# Model converted by stl2vrml." + crlf)
	return w.err
}

// WriteFacet queues one triangle, writing a Shape node once the batch is full
func (w *Writer) WriteFacet(tri geometry.Triangle) error {
	if w.state != stateStarted {
		return errors.New("vrml: WriteFacet outside Start/End")
	}
	if w.err != nil {
		return w.err
	}
	full := false
	for _, p := range tri {
		full = w.pending.add(p)
	}
	if full {
		w.flush()
	}
	return w.err
}

// End writes the remaining triangles, a viewpoint framing bounds, the
// background and navigation info, and flushes the output.
func (w *Writer) End(bounds geometry.BoundingBox) error {
	if w.state != stateStarted {
		return errors.New("vrml: End called without Start")
	}
	w.state = stateEnded
	if w.err != nil {
		return w.err
	}
	if w.pending.len() > 0 {
		w.flush()
	}

	pos := CameraPosition(bounds)
	w.printf(crlf + "Viewpoint {" + crlf +
		"  description \"View_1\"" + crlf +
		"  orientation 1 0 0 0" + crlf)
	w.printf("  position %.6G %.6G %.6G"+crlf, pos.X, pos.Y, pos.Z)
	w.printf("}" + crlf)
	w.printf("Background { skyColor 0.4 0.4 0.4 }" + crlf)
	w.printf("NavigationInfo { type [ \"EXAMINE\" \"ANY\" ] }" + crlf + crlf)

	if w.err == nil {
		if err := w.bw.Flush(); err != nil {
			w.err = errs.NewWrite(err)
		}
	}
	return w.err
}

// Pending returns the number of buffered points not yet written
func (w *Writer) Pending() int {
	return w.pending.len()
}

// Shapes returns the number of Shape nodes written so far
func (w *Writer) Shapes() int {
	return w.shapes
}

// CameraPosition returns the viewpoint for a model: the center of bounds,
// pulled back along Z by the larger of the model's width and height.
func CameraPosition(bounds geometry.BoundingBox) geometry.Vector3 {
	center := bounds.Center()
	size := bounds.Size()
	center.Z += math.Max(size.X, size.Y)
	return center
}

// flush writes the pending points as one Shape with an IndexedFaceSet
func (w *Writer) flush() {
	points := w.pending.points
	numTriangles := len(points) / 3
	defer w.pending.reset()
	if numTriangles < 1 {
		return
	}

	// No color information survives STL, so every shape is light gray.
	w.printf(crlf + "Shape {" + crlf +
		"  appearance Appearance {" + crlf +
		"    material Material {" + crlf +
		"      diffuseColor 0.8 0.8 0.8" + crlf +
		"    }" + crlf +
		"  }" + crlf +
		"  geometry IndexedFaceSet {" + crlf +
		"    coord Coordinate {" + crlf +
		"      point [" + crlf)
	for i, p := range points[:numTriangles*3] {
		w.printf("        %.15G %.15G %.15G%s"+crlf, p.X, p.Y, p.Z, separator(i, numTriangles*3))
	}
	w.printf("      ]" + crlf +
		"    }" + crlf +
		"    coordIndex [" + crlf)
	for i := range numTriangles {
		w.printf("      %d, %d, %d, -1%s"+crlf, 3*i, 3*i+1, 3*i+2, separator(i, numTriangles))
	}
	w.printf("    ]" + crlf +
		"  }" + crlf +
		"}" + crlf)
	w.shapes++
}

// separator returns the list separator for element i of n
func separator(i, n int) string {
	if i < n-1 {
		return ","
	}
	return ""
}

func (w *Writer) printf(format string, args ...any) {
	if w.err != nil {
		return
	}
	if _, err := fmt.Fprintf(w.bw, format, args...); err != nil {
		w.err = errs.NewWrite(err)
	}
}
