package convert

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/philipparndt/stl2vrml/pkg/errs"
	"github.com/philipparndt/stl2vrml/pkg/geometry"
	"github.com/philipparndt/stl2vrml/pkg/stl"
	"github.com/philipparndt/stl2vrml/pkg/vrml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const singleFacet = "solid test\n" +
	"facet normal 0 0 1\n" +
	"outer loop\n" +
	"vertex 0 0 0\n" +
	"vertex 1 0 0\n" +
	"vertex 0 1 0\n" +
	"end loop\n" +
	"end facet\n" +
	"endsolid\n"

// grid returns n triangles spread over x in [0, n) and y in [-1, 2]
func grid(n int) []geometry.Triangle {
	tris := make([]geometry.Triangle, n)
	for i := range tris {
		x := float64(i)
		tris[i] = geometry.NewTriangle(
			geometry.NewVector3(x, -1, 0.5),
			geometry.NewVector3(x+1, 0, 0.5),
			geometry.NewVector3(x, 2, -0.5),
		)
	}
	return tris
}

func TestConvertSingleFacet(t *testing.T) {
	var out, progress bytes.Buffer

	result, err := Convert(stl.NewReader(strings.NewReader(singleFacet)), vrml.NewWriter(&out), Options{Progress: &progress})
	require.NoError(t, err)

	assert.Equal(t, stl.ModeASCII, result.Mode)
	assert.Equal(t, 1, result.Triangles)
	assert.Equal(t, geometry.NewVector3(0.5, 0.5, 0), result.Bounds.Center())
	assert.Equal(t, "\n", progress.String())

	doc := out.String()
	assert.Equal(t, 1, strings.Count(doc, "Shape {"))
	assert.Contains(t, doc, "        0 0 0,\r\n        1 0 0,\r\n        0 1 0\r\n")
	assert.Equal(t, 1, strings.Count(doc, ", -1"))
	assert.Contains(t, doc, "      0, 1, 2, -1\r\n")
	assert.Contains(t, doc, "  position 0.5 0.5 1\r\n")
}

func TestConvertBinary(t *testing.T) {
	var in bytes.Buffer
	require.NoError(t, stl.WriteBinary(&in, "grid", grid(2500)))

	var out, progress bytes.Buffer
	result, err := Convert(stl.NewReader(bytes.NewReader(in.Bytes())), vrml.NewWriter(&out), Options{Progress: &progress})
	require.NoError(t, err)

	assert.Equal(t, stl.ModeBinary, result.Mode)
	assert.Equal(t, "grid", result.Name)
	assert.Equal(t, 2500, result.Triangles)
	assert.Equal(t, "..\n", progress.String())

	assert.Equal(t, geometry.NewVector3(0, -1, -0.5), result.Bounds.Min)
	assert.Equal(t, geometry.NewVector3(2500, 2, 0.5), result.Bounds.Max)

	doc := out.String()
	assert.Equal(t, 3, strings.Count(doc, "Shape {"))
	assert.Equal(t, 2500, strings.Count(doc, ", -1"))
	// Center (1250, 0.5, 0) pulled back by the width 2500.
	assert.Contains(t, doc, "  position 1250 0.5 2500\r\n")
}

func TestConvertSkipsNaNInBounds(t *testing.T) {
	nan := math.NaN()
	tris := []geometry.Triangle{
		geometry.NewTriangle(
			geometry.NewVector3(0, 0, 0),
			geometry.NewVector3(2, 0, 0),
			geometry.NewVector3(0, 2, 0),
		),
		geometry.NewTriangle(
			geometry.NewVector3(nan, 0, 0),
			geometry.NewVector3(1, 1, 0),
			geometry.NewVector3(2, 2, 0),
		),
	}
	var in bytes.Buffer
	require.NoError(t, stl.WriteBinary(&in, "nan", tris))

	var out bytes.Buffer
	result, err := Convert(stl.NewReader(bytes.NewReader(in.Bytes())), vrml.NewWriter(&out), Options{})
	require.NoError(t, err)

	assert.Equal(t, stl.ModeBinary, result.Mode)
	assert.Equal(t, geometry.NewVector3(0, 0, 0), result.Bounds.Min)
	assert.Equal(t, geometry.NewVector3(2, 2, 0), result.Bounds.Max)
	assert.Contains(t, out.String(), "  position 1 1 2\r\n")
}

func TestConvertASCIIAndBinaryAgree(t *testing.T) {
	tris := grid(1200)
	var ascii, bin bytes.Buffer
	require.NoError(t, stl.WriteASCII(&ascii, "grid", tris))
	require.NoError(t, stl.WriteBinary(&bin, "grid", tris))

	var outASCII, outBinary bytes.Buffer
	_, err := Convert(stl.NewReader(bytes.NewReader(ascii.Bytes())), vrml.NewWriter(&outASCII), Options{})
	require.NoError(t, err)
	_, err = Convert(stl.NewReader(bytes.NewReader(bin.Bytes())), vrml.NewWriter(&outBinary), Options{})
	require.NoError(t, err)

	assert.Equal(t, outASCII.String(), outBinary.String())
}

func TestConvertFormatErrorStops(t *testing.T) {
	input := strings.Replace(singleFacet, "vertex 1 0 0", "vertex 1.0 abc 3.0", 1)

	var out bytes.Buffer
	_, err := Convert(stl.NewReader(strings.NewReader(input)), vrml.NewWriter(&out), Options{})
	require.Error(t, err)
	assert.Equal(t, errs.Format, errs.KindOf(err))
}

func TestConvertHeaderErrorWritesNothing(t *testing.T) {
	var out bytes.Buffer
	w := vrml.NewWriter(&out)

	_, err := Convert(stl.NewReader(strings.NewReader("not an stl file\n")), w, Options{})
	require.Error(t, err)
	assert.Equal(t, errs.Format, errs.KindOf(err))
	assert.Zero(t, out.Len())
}

func TestFile(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "model.stl")
	out := filepath.Join(dir, "model.wrl")
	require.NoError(t, os.WriteFile(in, []byte(singleFacet), 0o644))

	result, err := File(in, out, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Triangles)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "#VRML V2.0 utf8\r\n"))
	assert.True(t, strings.HasSuffix(string(data), "NavigationInfo { type [ \"EXAMINE\" \"ANY\" ] }\r\n\r\n"))
}

func TestFileOpenErrors(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "model.stl")
	require.NoError(t, os.WriteFile(in, []byte(singleFacet), 0o644))

	_, err := File(filepath.Join(dir, "missing.stl"), filepath.Join(dir, "out.wrl"), Options{})
	require.Error(t, err)
	assert.Equal(t, errs.Open, errs.KindOf(err))

	_, err = File(in, filepath.Join(dir, "no", "such", "dir.wrl"), Options{})
	require.Error(t, err)
	assert.Equal(t, errs.Open, errs.KindOf(err))
}

func TestFileLeavesPartialOutput(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "bad.stl")
	out := filepath.Join(dir, "bad.wrl")
	require.NoError(t, os.WriteFile(in, []byte(strings.Replace(singleFacet, "end loop", "end facet", 1)), 0o644))

	_, err := File(in, out, Options{})
	require.Error(t, err)
	assert.Equal(t, errs.Format, errs.KindOf(err))

	_, statErr := os.Stat(out)
	assert.NoError(t, statErr, "output file is not removed on failure")
}
