package analysis

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/philipparndt/stl2vrml/pkg/errs"
	"github.com/philipparndt/stl2vrml/pkg/geometry"
	"github.com/philipparndt/stl2vrml/pkg/stl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rightTriangles() []geometry.Triangle {
	return []geometry.Triangle{
		geometry.NewTriangle(
			geometry.NewVector3(0, 0, 0),
			geometry.NewVector3(3, 0, 0),
			geometry.NewVector3(0, 4, 0),
		),
		geometry.NewTriangle(
			geometry.NewVector3(0, 0, 1),
			geometry.NewVector3(3, 0, 1),
			geometry.NewVector3(0, 4, 1),
		),
	}
}

func TestAccumulator(t *testing.T) {
	acc := NewAccumulator()
	for _, tri := range rightTriangles() {
		acc.Add(tri)
	}

	result := acc.Result()
	assert.Equal(t, 2, result.TriangleCount)
	assert.Equal(t, 6, result.EdgeCount)
	assert.InDelta(t, 12.0, result.SurfaceArea, 1e-10)
	assert.InDelta(t, 3.0, result.MinEdgeLength, 1e-10)
	assert.InDelta(t, 5.0, result.MaxEdgeLength, 1e-10)
	assert.InDelta(t, 4.0, result.AvgEdgeLength, 1e-10)
	assert.Equal(t, geometry.NewVector3(3, 4, 1), result.Dimensions)
}

func TestAccumulatorNonFinite(t *testing.T) {
	acc := NewAccumulator()
	acc.Add(rightTriangles()[0])
	acc.Add(geometry.NewTriangle(
		geometry.NewVector3(math.NaN(), 0, 0),
		geometry.NewVector3(1, 1, 0),
		geometry.NewVector3(0, 0, math.Inf(1)),
	))

	result := acc.Result()
	assert.Equal(t, 2, result.NonFinite)
	assert.Equal(t, geometry.NewVector3(0, 0, 0), result.BoundingBox.Min)
	assert.Equal(t, geometry.NewVector3(3, 4, math.Inf(1)), result.BoundingBox.Max)
}

func TestAccumulatorEmpty(t *testing.T) {
	result := NewAccumulator().Result()

	assert.Zero(t, result.TriangleCount)
	assert.Zero(t, result.MinEdgeLength)
	assert.Zero(t, result.AvgEdgeLength)
	assert.Equal(t, geometry.Vector3{}, result.Dimensions)
}

func TestAnalyzeFile(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, stl.WriteBinary(&buf, "plates", rightTriangles()))
	path := filepath.Join(t.TempDir(), "plates.stl")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	result, err := AnalyzeFile(path)
	require.NoError(t, err)
	assert.Equal(t, stl.ModeBinary, result.Mode)
	assert.Equal(t, "plates", result.Name)
	assert.Equal(t, 2, result.TriangleCount)
	assert.False(t, math.IsInf(result.BoundingBox.Min.X, 0))
}

func TestAnalyzeFileErrors(t *testing.T) {
	_, err := AnalyzeFile(filepath.Join(t.TempDir(), "missing.stl"))
	assert.Equal(t, errs.Open, errs.KindOf(err))

	path := filepath.Join(t.TempDir(), "bad.stl")
	require.NoError(t, os.WriteFile(path, []byte("solid x\nfacet normal 0 0 1\n"), 0o644))
	_, err = AnalyzeFile(path)
	assert.Equal(t, errs.Format, errs.KindOf(err))
}

func TestFormatVector(t *testing.T) {
	assert.Equal(t, "(1.000000, -2.500000, 0.000000)", FormatVector(geometry.NewVector3(1, -2.5, 0)))
}
