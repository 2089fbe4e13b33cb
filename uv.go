package flame

import (
	"fmt"
	"os"

	gobj "github.com/flywave/go-obj"
	vec2d "github.com/flywave/go3d/float64/vec2"
)

// UVKind selects which texture-coordinate representation is active.
type UVKind int

const (
	// UVNone exports no texture coordinates.
	UVNone UVKind = iota
	// UVPerVertex carries one UV per mesh vertex, either embedded in the
	// model container or averaged from a template.
	UVPerVertex
	// UVPerCorner carries a UV pool plus one pool index per triangle
	// corner, preserving seams exactly.
	UVPerCorner
)

// UVMapping is the resolved texture-coordinate source for an export. Exactly
// one representation is active; the exporter dispatches on Kind and never
// inspects the other payloads.
type UVMapping struct {
	Kind    UVKind
	Coords  []vec2d.T // UVPerVertex: one entry per mesh vertex
	Pool    []vec2d.T // UVPerCorner: shared coordinate pool
	Corners [][3]int  // UVPerCorner: pool indices per triangle corner
}

// ResolveTemplateUV parses a reference OBJ and derives UV for a model with
// numVerts vertices and numTris triangles. Per-corner UV is preferred; when
// the template topology cannot support it the UV collapses to per-vertex
// averages, and when neither matches the result is UVNone. Topology
// mismatches are soft conditions, only I/O and parse failures error.
func ResolveTemplateUV(path string, numVerts, numTris int) (UVMapping, error) {
	file, err := os.Open(path)
	if err != nil {
		return UVMapping{}, err
	}
	defer file.Close()

	reader := &gobj.ObjReader{}
	if err := reader.Read(file); err != nil {
		return UVMapping{}, fmt.Errorf("parsing UV template %s: %v", path, err)
	}

	pool := make([]vec2d.T, len(reader.VT))
	for i, vt := range reader.VT {
		pool[i] = vec2d.T{float64(vt[0]), float64(vt[1])}
	}
	if len(pool) == 0 {
		zlog.Warnf("UV template %s has no vt entries, exporting without UV", path)
		return UVMapping{Kind: UVNone}, nil
	}

	if corners, ok := perCornerUV(reader, len(pool), numTris); ok {
		zlog.Infof("UV template: per-face-vertex UV, %d faces over a pool of %d", numTris, len(pool))
		return UVMapping{Kind: UVPerCorner, Pool: pool, Corners: corners}, nil
	}

	if coords, missing, ok := averagedUV(reader, pool, numVerts); ok {
		if missing > 0 {
			zlog.Warnf("UV template: %d vertices had no UV reference, left at (0,0)", missing)
		}
		zlog.Infof("UV template: averaged per-vertex UV over %d vertices", numVerts)
		return UVMapping{Kind: UVPerVertex, Coords: coords}, nil
	}

	zlog.Warnf("UV template %s does not match model topology (template %d verts / %d faces, model %d / %d), exporting without UV",
		path, len(reader.V), len(reader.F), numVerts, numTris)
	return UVMapping{Kind: UVNone}, nil
}

// perCornerUV keeps the template's seam-exact corner references. It requires
// a positional 1:1 face correspondence: same face count, triangles only, and
// a valid vt reference on every corner.
func perCornerUV(reader *gobj.ObjReader, poolSize, numTris int) ([][3]int, bool) {
	if len(reader.F) != numTris {
		zlog.Warnf("UV template face count %d != model triangle count %d, cannot keep per-face UV", len(reader.F), numTris)
		return nil, false
	}
	corners := make([][3]int, numTris)
	for i, face := range reader.F {
		if len(face.Corners) != 3 {
			zlog.Warnf("UV template face %d has %d corners, cannot keep per-face UV", i, len(face.Corners))
			return nil, false
		}
		for j, c := range face.Corners {
			if c.TexCoordIndex < 0 || c.TexCoordIndex >= poolSize {
				zlog.Warnf("UV template face %d corner %d has no usable vt reference, cannot keep per-face UV", i, j)
				return nil, false
			}
			corners[i][j] = c.TexCoordIndex
		}
	}
	return corners, true
}

// averagedUV collapses per-corner UV to one value per vertex: the arithmetic
// mean of every UV attached to the vertex across all faces. It requires the
// template vertex count to match the model; face correspondence does not
// matter here. Vertices no UV-bearing corner touches stay at (0,0) and are
// counted in missing.
func averagedUV(reader *gobj.ObjReader, pool []vec2d.T, numVerts int) (coords []vec2d.T, missing int, ok bool) {
	if len(reader.V) != numVerts {
		return nil, 0, false
	}
	sum := make([]vec2d.T, numVerts)
	hits := make([]int, numVerts)
	for _, face := range reader.F {
		for _, c := range face.Corners {
			if c.VertexIndex < 0 || c.VertexIndex >= numVerts {
				continue
			}
			if c.TexCoordIndex < 0 || c.TexCoordIndex >= len(pool) {
				continue
			}
			uv := pool[c.TexCoordIndex]
			sum[c.VertexIndex][0] += uv[0]
			sum[c.VertexIndex][1] += uv[1]
			hits[c.VertexIndex]++
		}
	}
	coords = make([]vec2d.T, numVerts)
	for i := range coords {
		if hits[i] == 0 {
			missing++
			continue
		}
		coords[i] = vec2d.T{sum[i][0] / float64(hits[i]), sum[i][1] / float64(hits[i])}
	}
	return coords, missing, true
}
