package flame

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	vec3d "github.com/flywave/go3d/float64/vec3"
)

// ComputeNormals returns smooth per-vertex normals: every triangle's
// non-normalized edge cross product is added to all three corner vertices
// with equal weight, then each accumulator is scaled to unit length. A vertex
// no triangle touches (or only degenerate ones) keeps the zero vector.
func ComputeNormals(verts []vec3d.T, faces [][3]int) []vec3d.T {
	normals := make([]vec3d.T, len(verts))
	for _, tri := range faces {
		p0, p1, p2 := verts[tri[0]], verts[tri[1]], verts[tri[2]]
		e1 := vec3d.Sub(&p1, &p0)
		e2 := vec3d.Sub(&p2, &p0)
		n := vec3d.Cross(&e1, &e2)
		for _, vi := range tri {
			normals[vi][0] += n[0]
			normals[vi][1] += n[1]
			normals[vi][2] += n[2]
		}
	}
	for i := range normals {
		l := normals[i].Length()
		if l == 0 {
			l = 1
		}
		normals[i][0] /= l
		normals[i][1] /= l
		normals[i][2] /= l
	}
	return normals
}

// ExportObj writes a self-contained OBJ mesh: vertices, then the active UV
// coordinates, then normals, then faces. Parent directories are created and
// an existing file is overwritten. Face corners are written 1-based as
// v//n, v/v/n or v/pool/n depending on the UV kind.
func ExportObj(path string, verts []vec3d.T, faces [][3]int, uv UVMapping) error {
	switch uv.Kind {
	case UVPerVertex:
		if len(uv.Coords) != len(verts) {
			return fmt.Errorf("per-vertex UV has %d entries, mesh has %d vertices", len(uv.Coords), len(verts))
		}
	case UVPerCorner:
		if len(uv.Corners) != len(faces) {
			return fmt.Errorf("per-corner UV covers %d triangles, mesh has %d", len(uv.Corners), len(faces))
		}
	}

	normals := ComputeNormals(verts, faces)

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, v := range verts {
		writeLine(w, "v", v[0], v[1], v[2])
	}
	switch uv.Kind {
	case UVPerVertex:
		for _, t := range uv.Coords {
			writeLine(w, "vt", t[0], t[1])
		}
	case UVPerCorner:
		for _, t := range uv.Pool {
			writeLine(w, "vt", t[0], t[1])
		}
	}
	for _, n := range normals {
		writeLine(w, "vn", n[0], n[1], n[2])
	}
	for i, tri := range faces {
		switch uv.Kind {
		case UVPerVertex:
			fmt.Fprintf(w, "f %d/%d/%d %d/%d/%d %d/%d/%d\n",
				tri[0]+1, tri[0]+1, tri[0]+1,
				tri[1]+1, tri[1]+1, tri[1]+1,
				tri[2]+1, tri[2]+1, tri[2]+1)
		case UVPerCorner:
			c := uv.Corners[i]
			fmt.Fprintf(w, "f %d/%d/%d %d/%d/%d %d/%d/%d\n",
				tri[0]+1, c[0]+1, tri[0]+1,
				tri[1]+1, c[1]+1, tri[1]+1,
				tri[2]+1, c[2]+1, tri[2]+1)
		default:
			fmt.Fprintf(w, "f %d//%d %d//%d %d//%d\n",
				tri[0]+1, tri[0]+1,
				tri[1]+1, tri[1]+1,
				tri[2]+1, tri[2]+1)
		}
	}
	return w.Flush()
}

// writeLine emits "prefix c0 c1 ..." with shortest round-trip float text.
func writeLine(w *bufio.Writer, prefix string, comps ...float64) {
	w.WriteString(prefix)
	for _, c := range comps {
		w.WriteByte(' ')
		w.WriteString(strconv.FormatFloat(c, 'g', -1, 64))
	}
	w.WriteByte('\n')
}
