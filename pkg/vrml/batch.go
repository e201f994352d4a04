package vrml

import "github.com/philipparndt/stl2vrml/pkg/geometry"

// MaxPointsPerFaceSet is the number of pending points (1000 triangles) that
// triggers writing one Shape node.
const MaxPointsPerFaceSet = 3000

// batch accumulates facet vertices until they are written as one face set
type batch struct {
	points []geometry.Vector3
}

func newBatch() batch {
	return batch{points: make([]geometry.Vector3, 0, MaxPointsPerFaceSet)}
}

// add appends a point and reports whether the batch is full
func (b *batch) add(p geometry.Vector3) bool {
	b.points = append(b.points, p)
	return b.full()
}

func (b *batch) full() bool {
	return len(b.points) >= MaxPointsPerFaceSet
}

func (b *batch) len() int {
	return len(b.points)
}

func (b *batch) reset() {
	b.points = b.points[:0]
}
