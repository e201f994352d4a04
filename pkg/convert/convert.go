// Package convert drives an STL to VRML conversion.
package convert

import (
	"fmt"
	"io"
	"os"

	"github.com/philipparndt/stl2vrml/pkg/errs"
	"github.com/philipparndt/stl2vrml/pkg/geometry"
	"github.com/philipparndt/stl2vrml/pkg/stl"
	"github.com/philipparndt/stl2vrml/pkg/vrml"
)

// ProgressInterval is the number of triangles per progress tick
const ProgressInterval = 1000

// Options configures a conversion
type Options struct {
	// Progress receives one "." per ProgressInterval triangles and a final
	// newline. Nil disables progress output.
	Progress io.Writer
}

// Result summarizes a finished conversion
type Result struct {
	Mode      stl.Mode
	Name      string
	Triangles int
	Bounds    geometry.BoundingBox
}

// Convert reads every triangle from r and writes it to w. The reader must
// be fresh; its header is read here. Conversion stops at the first error and
// whatever was already written stays in the destination.
func Convert(r *stl.Reader, w *vrml.Writer, opts Options) (Result, error) {
	result := Result{Bounds: geometry.NewBoundingBox()}

	if err := r.ReadHeader(); err != nil {
		return result, err
	}
	result.Mode = r.Mode()
	result.Name = r.Name()

	if err := w.Start(); err != nil {
		return result, err
	}

	for tri, err := range r.All() {
		if err != nil {
			return result, err
		}
		if err := w.WriteFacet(tri); err != nil {
			return result, err
		}
		result.Bounds.ExtendTriangle(tri)

		result.Triangles++
		if opts.Progress != nil && result.Triangles%ProgressInterval == 0 {
			fmt.Fprint(opts.Progress, ".")
		}
	}
	if opts.Progress != nil {
		fmt.Fprintln(opts.Progress)
	}

	if err := r.Close(); err != nil {
		return result, fmt.Errorf("failed to close input: %w", err)
	}
	return result, w.End(result.Bounds)
}

// File converts the STL file at inPath into a VRML file at outPath. Both
// files are closed on every path; a partially written output is left in
// place on failure.
func File(inPath, outPath string, opts Options) (Result, error) {
	reader, err := stl.Open(inPath)
	if err != nil {
		return Result{}, err
	}
	defer reader.Close()

	out, err := os.Create(outPath)
	if err != nil {
		return Result{}, errs.NewOpen(outPath, err)
	}

	result, err := Convert(reader, vrml.NewWriter(out), opts)
	if closeErr := out.Close(); err == nil && closeErr != nil {
		err = errs.NewWrite(closeErr)
	}
	return result, err
}
