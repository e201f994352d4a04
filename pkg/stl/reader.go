package stl

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"iter"
	"math"
	"os"
	"strings"

	"github.com/philipparndt/stl2vrml/pkg/errs"
	"github.com/philipparndt/stl2vrml/pkg/geometry"
)

// Binary STL layout
const (
	HeaderSize = 80
	// RecordSize is one facet: 12 float32 (normal and three vertices) plus
	// the uint16 attribute byte count.
	RecordSize = 12*4 + 2
)

// Mode is the STL sub-format of a source, fixed once the header is read
type Mode int

const (
	ModeUnknown Mode = iota
	ModeBinary
	ModeASCII
)

func (m Mode) String() string {
	switch m {
	case ModeBinary:
		return "binary"
	case ModeASCII:
		return "ascii"
	default:
		return "unknown"
	}
}

// source produces the facets of one sub-format. It returns io.EOF once the
// model ends.
type source interface {
	next() (geometry.Triangle, error)
}

// Reader streams the triangles of a binary or ASCII STL file. Call
// ReadHeader once, then Next (or All) until io.EOF. A Reader cannot be
// restarted; open the source again instead.
type Reader struct {
	rs     io.ReadSeeker
	closer io.Closer
	src    source
	mode   Mode
	name   string
	err    error
}

// NewReader creates a reader over rs. The caller keeps ownership of rs.
func NewReader(rs io.ReadSeeker) *Reader {
	return &Reader{rs: rs}
}

// Open opens an STL file for reading. Close releases the file.
func Open(filename string) (*Reader, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, errs.NewOpen(filename, err)
	}
	r := NewReader(file)
	r.closer = file
	return r, nil
}

// Close releases the file opened by Open. It is a no-op for readers created
// with NewReader.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	err := r.closer.Close()
	r.closer = nil
	return err
}

// Mode returns the detected sub-format, ModeUnknown before ReadHeader
func (r *Reader) Mode() Mode {
	return r.mode
}

// Name returns the solid name of an ASCII file or the trimmed 80-byte
// header of a binary file.
func (r *Reader) Name() string {
	return r.name
}

// ReadHeader detects the sub-format and validates the header. A file is
// binary only if its facet count is at least one and its length is exactly
// 84 + 50*count; everything else must be ASCII starting with "solid".
func (r *Reader) ReadHeader() error {
	if r.src != nil {
		return errors.New("stl: header already read")
	}

	if header, count, ok := detectBinary(r.rs); ok {
		if _, err := r.rs.Seek(HeaderSize+4, io.SeekStart); err != nil {
			return errs.WrapFormat(0, err, "seek error reading binary STL")
		}
		r.mode = ModeBinary
		r.name = strings.TrimSpace(string(bytes.TrimRight(header[:], "\x00")))
		r.src = &binarySource{r: bufio.NewReader(r.rs), total: count}
		return nil
	}

	if _, err := r.rs.Seek(0, io.SeekStart); err != nil {
		return errs.WrapFormat(0, err, "seek error reading STL header")
	}
	src := &asciiSource{r: bufio.NewReader(r.rs)}
	name, err := src.readHeader()
	if err != nil {
		return err
	}
	r.mode = ModeASCII
	r.name = name
	r.src = src
	return nil
}

// Next returns the next triangle, or io.EOF once the model is exhausted.
// After a format error every further call returns the same error.
func (r *Reader) Next() (geometry.Triangle, error) {
	if r.err != nil {
		return geometry.Triangle{}, r.err
	}
	if r.src == nil {
		return geometry.Triangle{}, errors.New("stl: ReadHeader must be called before Next")
	}
	tri, err := r.src.next()
	if err != nil {
		r.err = err
	}
	return tri, err
}

// All returns the remaining triangles as a lazy sequence. A failure is
// yielded once as the final element; clean end of the model ends the
// sequence without an error.
func (r *Reader) All() iter.Seq2[geometry.Triangle, error] {
	return func(yield func(geometry.Triangle, error) bool) {
		for {
			tri, err := r.Next()
			if err == io.EOF {
				return
			}
			if !yield(tri, err) || err != nil {
				return
			}
		}
	}
}

// detectBinary reads the binary header and checks the file length against
// the facet count. Any failure means "not binary".
func detectBinary(rs io.ReadSeeker) (header [HeaderSize]byte, count uint32, ok bool) {
	length, err := rs.Seek(0, io.SeekEnd)
	if err != nil {
		return header, 0, false
	}
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return header, 0, false
	}

	var prefix struct {
		Header [HeaderSize]byte
		Count  uint32
	}
	if err := binary.Read(rs, binary.LittleEndian, &prefix); err != nil {
		return header, 0, false
	}
	if prefix.Count < 1 {
		return header, 0, false
	}
	expected := int64(HeaderSize) + 4 + int64(prefix.Count)*RecordSize
	if length != expected {
		return header, 0, false
	}
	return prefix.Header, prefix.Count, true
}

type binarySource struct {
	r          *bufio.Reader
	cur, total uint32
	buf        [RecordSize]byte
}

func (s *binarySource) next() (geometry.Triangle, error) {
	var tri geometry.Triangle
	if s.cur >= s.total {
		return tri, io.EOF
	}
	facet := int(s.cur) + 1

	if _, err := io.ReadFull(s.r, s.buf[:]); err != nil {
		return tri, errs.FacetFormatf(facet, err, "failed reading facet record from binary STL")
	}
	if attr := binary.LittleEndian.Uint16(s.buf[RecordSize-2:]); attr != 0 {
		return tri, errs.FacetFormatf(facet, nil, "invalid attribute byte count %d in binary STL", attr)
	}

	// Skip the normal; vertices follow in file order.
	for v := range tri {
		off := 12 + 12*v
		tri[v] = geometry.NewVector3(
			readFloat32(s.buf[off:]),
			readFloat32(s.buf[off+4:]),
			readFloat32(s.buf[off+8:]),
		)
	}
	s.cur++
	return tri, nil
}

func readFloat32(b []byte) float64 {
	return float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
}

type asciiSource struct {
	r    *bufio.Reader
	line int
	done bool
}

// readLine returns the tokens of the next non-blank line, or io.EOF.
func (s *asciiSource) readLine() ([]string, error) {
	for {
		text, err := s.r.ReadString('\n')
		if err != nil && (err != io.EOF || text == "") {
			return nil, err
		}
		s.line++
		text = strings.TrimRight(text, "\r\n")
		if tokens := Fields(text); len(tokens) > 0 {
			return tokens, nil
		}
		if err == io.EOF {
			return nil, io.EOF
		}
	}
}

func (s *asciiSource) readHeader() (string, error) {
	tokens, err := s.readLine()
	if err == io.EOF {
		return "", errs.Formatf(0, "file does not appear to be in STL format")
	}
	if err != nil {
		return "", errs.WrapFormat(s.line, err, "failed reading STL header")
	}
	if tokens[0] != "solid" {
		return "", errs.Formatf(s.line, "file does not appear to be an ASCII STL file, expected keyword %q", "solid")
	}
	return strings.Join(tokens[1:], " "), nil
}

func (s *asciiSource) next() (geometry.Triangle, error) {
	var tri geometry.Triangle
	if s.done {
		return tri, io.EOF
	}

	tokens, err := s.readLine()
	if err == io.EOF {
		s.done = true
		return tri, io.EOF
	}
	if err != nil {
		return tri, errs.WrapFormat(s.line, err, "failed reading STL")
	}
	if hasKeyword(tokens, "endsolid", "end", "solid") {
		s.done = true
		return tri, io.EOF
	}
	if tokens[0] != "facet" {
		return tri, errs.Formatf(s.line, "expected %q or %q, found %q", "facet", "end solid", tokens[0])
	}

	if err := s.expect("outerloop", "outer", "loop", "a facet is missing its outer loop"); err != nil {
		return tri, err
	}
	for i := range tri {
		p, err := s.readVertex()
		if err != nil {
			return tri, err
		}
		tri[i] = p
	}
	if err := s.expect("endloop", "end", "loop", `expected "end loop" after vertex`); err != nil {
		return tri, err
	}
	if err := s.expect("endfacet", "end", "facet", `expected "end facet" after "end loop"`); err != nil {
		return tri, err
	}
	return tri, nil
}

// expect reads the next line inside a facet and requires a keyword in its
// one- or two-token form.
func (s *asciiSource) expect(joined, first, second, msg string) error {
	tokens, err := s.readLine()
	if err != nil {
		return s.truncated(err)
	}
	if !hasKeyword(tokens, joined, first, second) {
		return errs.Formatf(s.line, "%s", msg)
	}
	return nil
}

func (s *asciiSource) readVertex() (geometry.Vector3, error) {
	tokens, err := s.readLine()
	if err != nil {
		return geometry.Vector3{}, s.truncated(err)
	}
	if len(tokens) < 4 {
		return geometry.Vector3{}, errs.Formatf(s.line, "malformed vertex line, expected x, y and z coordinates")
	}
	if tokens[0] != "vertex" {
		return geometry.Vector3{}, errs.Formatf(s.line, "missing or malformed vertex, found %q", tokens[0])
	}

	var c [3]float64
	for i := range c {
		v, ok := parseCoordinate(tokens[i+1])
		if !ok {
			return geometry.Vector3{}, errs.Formatf(s.line, "invalid coordinate value %q after \"vertex\"", tokens[i+1])
		}
		c[i] = v
	}
	return geometry.NewVector3(c[0], c[1], c[2]), nil
}

// truncated converts a read failure inside a facet into a format error
func (s *asciiSource) truncated(err error) error {
	if err == io.EOF {
		return errs.Formatf(s.line, "unexpected end of file while reading a facet")
	}
	return errs.WrapFormat(s.line, err, "failed reading facet")
}
