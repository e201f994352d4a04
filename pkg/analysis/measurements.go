package analysis

import (
	"fmt"
	"math"

	"github.com/philipparndt/stl2vrml/pkg/geometry"
	"github.com/philipparndt/stl2vrml/pkg/stl"
)

// MeasurementResult contains various measurements of an STL model
type MeasurementResult struct {
	Mode          stl.Mode
	Name          string
	BoundingBox   geometry.BoundingBox
	Dimensions    geometry.Vector3
	SurfaceArea   float64
	TriangleCount int
	EdgeCount     int
	MinEdgeLength float64
	MaxEdgeLength float64
	AvgEdgeLength float64

	// NonFinite counts vertices with a NaN or infinite coordinate. Such
	// coordinates are left out of the bounding box.
	NonFinite int
}

// Accumulator collects measurements one triangle at a time, so a model of
// any size can be analyzed without holding it in memory.
type Accumulator struct {
	bbox        geometry.BoundingBox
	area        float64
	triangles   int
	minEdge     float64
	maxEdge     float64
	totalLength float64
	nonFinite   int
}

// NewAccumulator creates an empty accumulator
func NewAccumulator() *Accumulator {
	return &Accumulator{
		bbox:    geometry.NewBoundingBox(),
		minEdge: math.MaxFloat64,
	}
}

// Add includes a triangle in the measurements
func (a *Accumulator) Add(tri geometry.Triangle) {
	a.bbox.ExtendTriangle(tri)
	a.area += tri.Area()
	a.triangles++
	a.totalLength += tri.Perimeter()

	for _, v := range tri {
		if !v.IsFinite() {
			a.nonFinite++
		}
	}
	for _, length := range tri.EdgeLengths() {
		if length < a.minEdge {
			a.minEdge = length
		}
		if length > a.maxEdge {
			a.maxEdge = length
		}
	}
}

// Result returns the measurements collected so far
func (a *Accumulator) Result() *MeasurementResult {
	result := &MeasurementResult{
		BoundingBox:   a.bbox,
		Dimensions:    a.bbox.Size(),
		SurfaceArea:   a.area,
		TriangleCount: a.triangles,
		EdgeCount:     a.triangles * 3,
		NonFinite:     a.nonFinite,
		MaxEdgeLength: a.maxEdge,
	}
	if result.EdgeCount > 0 {
		result.MinEdgeLength = a.minEdge
		result.AvgEdgeLength = a.totalLength / float64(result.EdgeCount)
	}
	return result
}

// AnalyzeFile streams an STL file through an Accumulator
func AnalyzeFile(filename string) (*MeasurementResult, error) {
	reader, err := stl.Open(filename)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	return Analyze(reader)
}

// Analyze reads every triangle from a fresh reader
func Analyze(reader *stl.Reader) (*MeasurementResult, error) {
	if err := reader.ReadHeader(); err != nil {
		return nil, err
	}

	acc := NewAccumulator()
	for tri, err := range reader.All() {
		if err != nil {
			return nil, err
		}
		acc.Add(tri)
	}

	result := acc.Result()
	result.Mode = reader.Mode()
	result.Name = reader.Name()
	return result, nil
}

// FormatVector formats a 3D vector
func FormatVector(v geometry.Vector3) string {
	return fmt.Sprintf("(%.6f, %.6f, %.6f)", v.X, v.Y, v.Z)
}
