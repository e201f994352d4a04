package stl

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/philipparndt/stl2vrml/pkg/geometry"
)

// WriteBinary writes triangles as a binary STL file. The header text is
// truncated or zero-padded to 80 bytes and normals are computed from the
// vertex winding.
func WriteBinary(w io.Writer, header string, triangles []geometry.Triangle) error {
	bw := bufio.NewWriter(w)

	var prefix [HeaderSize + 4]byte
	copy(prefix[:HeaderSize], header)
	binary.LittleEndian.PutUint32(prefix[HeaderSize:], uint32(len(triangles)))
	if _, err := bw.Write(prefix[:]); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	var record [RecordSize]byte
	for i, tri := range triangles {
		encodeRecord(&record, tri)
		if _, err := bw.Write(record[:]); err != nil {
			return fmt.Errorf("failed to write triangle %d: %w", i, err)
		}
	}
	return bw.Flush()
}

func encodeRecord(buf *[RecordSize]byte, tri geometry.Triangle) {
	putVector := func(off int, v geometry.Vector3) {
		binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(float32(v.X)))
		binary.LittleEndian.PutUint32(buf[off+4:], math.Float32bits(float32(v.Y)))
		binary.LittleEndian.PutUint32(buf[off+8:], math.Float32bits(float32(v.Z)))
	}
	putVector(0, faceNormal(tri))
	for v, p := range tri {
		putVector(12+12*v, p)
	}
	binary.LittleEndian.PutUint16(buf[RecordSize-2:], 0)
}

// WriteASCII writes triangles as an ASCII STL solid
func WriteASCII(w io.Writer, name string, triangles []geometry.Triangle) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "solid %s\n", name)
	for _, tri := range triangles {
		n := faceNormal(tri)
		fmt.Fprintf(bw, "  facet normal %g %g %g\n", n.X, n.Y, n.Z)
		fmt.Fprintf(bw, "    outer loop\n")
		for _, p := range tri {
			fmt.Fprintf(bw, "      vertex %g %g %g\n", p.X, p.Y, p.Z)
		}
		fmt.Fprintf(bw, "    endloop\n")
		fmt.Fprintf(bw, "  endfacet\n")
	}
	fmt.Fprintf(bw, "endsolid %s\n", name)

	return bw.Flush()
}

func faceNormal(tri geometry.Triangle) geometry.Vector3 {
	return tri[1].Sub(tri[0]).Cross(tri[2].Sub(tri[0])).Normalize()
}
