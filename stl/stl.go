// Package stl extracts vertex positions from binary and ASCII STL meshes.
//
// Binary files use the conventional layout: an 80-byte header, a
// little-endian uint32 triangle count, then 50-byte records made of a
// normal (3 x float32), three vertices (9 x float32) and a uint16
// attribute. ASCII files are scanned for "vertex x y z" lines.
package stl

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

// Errors returned by this package.
var (
	ErrIO    = errors.New("stl: read failed")
	ErrParse = errors.New("stl: no vertices could be parsed")
)

const (
	headerSize = 80
	prefixSize = headerSize + 4 // header + triangle count
	recordSize = 50             // 12 float32 + uint16 attribute
	sniffSize  = 4096
)

// Format identifies which layout a mesh was decoded from.
type Format uint8

const (
	FormatBinary Format = iota
	FormatASCII
)

// String implements fmt.Stringer.
func (f Format) String() string {
	if f == FormatASCII {
		return "ascii"
	}
	return "binary"
}

// Mesh is the result of decoding an STL payload.
type Mesh struct {
	Format   Format
	Vertices []r3.Vec

	// DeclaredTriangles is the header count for binary files and the
	// parsed count for ASCII files.
	DeclaredTriangles int
	Triangles         int

	// Truncated is set when a binary header promises more triangles
	// than the payload holds.
	Truncated bool
}

// ReadFile loads the file at path and extracts its vertices.
func ReadFile(path string, dedup bool) ([]r3.Vec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}
	verts, err := Extract(data, dedup)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return verts, nil
}

// Extract decodes data and returns its vertices, optionally with exact
// duplicates removed.
func Extract(data []byte, dedup bool) ([]r3.Vec, error) {
	m, err := Decode(data)
	if err != nil {
		return nil, err
	}
	if dedup {
		return Dedup(m.Vertices), nil
	}
	return m.Vertices, nil
}

// Decode detects the layout of data and parses it, falling back to the
// other layout when the first one yields nothing.
func Decode(data []byte) (*Mesh, error) {
	var m *Mesh
	if IsBinary(data) {
		m = parseBinary(data)
		if m == nil || len(m.Vertices) == 0 {
			m = parseASCII(data)
		}
	} else {
		m = parseASCII(data)
		if len(m.Vertices) == 0 {
			m = parseBinary(data)
		}
	}

	if m == nil || len(m.Vertices) == 0 {
		return nil, fmt.Errorf("%w (%d bytes)", ErrParse, len(data))
	}

	if m.Truncated {
		slog.Warn("stl: header triangle count exceeds payload",
			"declared", m.DeclaredTriangles,
			"parsed", m.Triangles,
		)
	}
	return m, nil
}

// IsBinary reports whether data looks like a binary STL. Size evidence
// wins over content: some exporters write "solid" into binary headers.
func IsBinary(data []byte) bool {
	if len(data) < prefixSize {
		return false
	}
	count := uint64(binary.LittleEndian.Uint32(data[headerSize:prefixSize]))
	payload := uint64(len(data) - prefixSize)
	if payload%recordSize == 0 || count*recordSize <= payload {
		return true
	}

	head := strings.ToLower(string(data[:min(len(data), sniffSize)]))
	ascii := strings.HasPrefix(head, "solid") &&
		strings.Contains(head, "facet") &&
		strings.Contains(head, "vertex")
	return !ascii
}

// parseBinary returns nil when data cannot even hold the prefix.
func parseBinary(data []byte) *Mesh {
	if len(data) < prefixSize {
		return nil
	}
	declared := uint64(binary.LittleEndian.Uint32(data[headerSize:prefixSize]))
	available := uint64(len(data)-prefixSize) / recordSize
	n := int(min(declared, available))

	m := &Mesh{
		Format:            FormatBinary,
		Vertices:          make([]r3.Vec, 0, n*3),
		DeclaredTriangles: int(declared),
		Triangles:         n,
		Truncated:         declared > available,
	}

	off := prefixSize
	for i := 0; i < n; i++ {
		rec := data[off : off+recordSize]
		// rec[0:12] is the facet normal; rec[48:50] the attribute count.
		for v := 0; v < 3; v++ {
			base := 12 + v*12
			p := r3.Vec{
				X: float64(readFloat32(rec[base:])),
				Y: float64(readFloat32(rec[base+4:])),
				Z: float64(readFloat32(rec[base+8:])),
			}
			if !isFinite(p) {
				continue
			}
			m.Vertices = append(m.Vertices, p)
		}
		off += recordSize
	}
	return m
}

// isFinite reports whether every coordinate of p is a real number.
// NaN and Inf vertices are dropped like malformed lines.
func isFinite(p r3.Vec) bool {
	return !math.IsNaN(p.X) && !math.IsInf(p.X, 0) &&
		!math.IsNaN(p.Y) && !math.IsInf(p.Y, 0) &&
		!math.IsNaN(p.Z) && !math.IsInf(p.Z, 0)
}

func readFloat32(b []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}

func parseASCII(data []byte) *Mesh {
	m := &Mesh{Format: FormatASCII}
	for raw := range strings.Lines(string(data)) {
		line := strings.TrimSpace(raw)
		if !strings.HasPrefix(strings.ToLower(line), "vertex") {
			continue
		}
		v, ok := parseVertexLine(line)
		if !ok {
			continue
		}
		m.Vertices = append(m.Vertices, v)
	}
	m.Triangles = len(m.Vertices) / 3
	m.DeclaredTriangles = m.Triangles
	return m
}

func parseVertexLine(line string) (r3.Vec, bool) {
	fields := strings.Fields(line)
	if len(fields) < 4 {
		return r3.Vec{}, false
	}
	var xyz [3]float64
	for i := range xyz {
		f, err := strconv.ParseFloat(fields[i+1], 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return r3.Vec{}, false
		}
		xyz[i] = f
	}
	return r3.Vec{X: xyz[0], Y: xyz[1], Z: xyz[2]}, true
}

// Dedup returns vs without exact duplicates, keeping first-seen order.
func Dedup(vs []r3.Vec) []r3.Vec {
	seen := make(map[r3.Vec]struct{}, len(vs))
	out := make([]r3.Vec, 0, len(vs))
	for _, v := range vs {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// Bounds returns the axis-aligned bounding box of vs.
// Both corners are the origin when vs is empty.
func Bounds(vs []r3.Vec) (lo, hi r3.Vec) {
	if len(vs) == 0 {
		return r3.Vec{}, r3.Vec{}
	}
	lo, hi = vs[0], vs[0]
	for _, v := range vs[1:] {
		lo = r3.Vec{X: math.Min(lo.X, v.X), Y: math.Min(lo.Y, v.Y), Z: math.Min(lo.Z, v.Z)}
		hi = r3.Vec{X: math.Max(hi.X, v.X), Y: math.Max(hi.Y, v.Y), Z: math.Max(hi.Z, v.Z)}
	}
	return lo, hi
}
