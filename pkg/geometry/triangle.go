package geometry

// Triangle is one facet of a mesh. The vertex order defines the face
// orientation; it is kept exactly as read from the source file.
type Triangle [3]Vector3

// NewTriangle creates a new triangle
func NewTriangle(v1, v2, v3 Vector3) Triangle {
	return Triangle{v1, v2, v3}
}

// Area returns the surface area of the triangle
func (t Triangle) Area() float64 {
	edge1 := t[1].Sub(t[0])
	edge2 := t[2].Sub(t[0])
	return edge1.Cross(edge2).Length() / 2.0
}

// EdgeLengths returns the lengths of all three edges
func (t Triangle) EdgeLengths() [3]float64 {
	return [3]float64{
		t[0].Distance(t[1]),
		t[1].Distance(t[2]),
		t[2].Distance(t[0]),
	}
}

// Perimeter returns the total length of all edges
func (t Triangle) Perimeter() float64 {
	lengths := t.EdgeLengths()
	return lengths[0] + lengths[1] + lengths[2]
}
