package flame

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	vec2d "github.com/flywave/go3d/float64/vec2"
	vec3d "github.com/flywave/go3d/float64/vec3"
	"gonum.org/v1/gonum/mat"
)

// Ordered alias lists for container keys; the first present key wins and
// probe order is part of the contract.
var (
	templateKeys = []string{"v_template"}
	shapedirKeys = []string{"shapedirs"}
	faceKeys     = []string{"f", "faces", "triangles"}
	uvKeys       = []string{"uv", "vt", "texcoords"}
)

// ModelOptions configures how a FLAME container is interpreted.
type ModelOptions struct {
	// NumShape and NumExpr split the leading basis components into shape
	// and expression slots.
	NumShape int
	NumExpr  int
	// UVTemplatePath points at a reference OBJ consulted only when the
	// container carries no embedded UV.
	UVTemplatePath string
}

// Model is the canonical in-memory FLAME model: neutral geometry, triangle
// list and a linear blendshape basis. Immutable once loaded.
type Model struct {
	VTemplate []vec3d.T
	Faces     [][3]int
	// Basis is the shapedirs tensor flattened to [V*3, N] so evaluation is
	// a single matrix-vector product.
	Basis    *mat.Dense
	NumTotal int
	NumShape int
	NumExpr  int
	UV       UVMapping
}

// LoadModel reads a .pkl or .npz FLAME container and normalizes it.
func LoadModel(path string, opts ModelOptions) (*Model, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("FLAME model not found: %s", path)
	}
	arrays, err := LoadContainer(path)
	if err != nil {
		return nil, err
	}
	zlog.Infof("loaded FLAME model %s, keys: %v", filepath.Base(path), arrayKeys(arrays))
	return buildModel(arrays, opts)
}

func buildModel(arrays map[string]*Array, opts ModelOptions) (*Model, error) {
	if opts.NumShape < 0 || opts.NumExpr < 0 {
		return nil, fmt.Errorf("num_shape and num_expr must not be negative (got %d, %d)", opts.NumShape, opts.NumExpr)
	}

	vtArr, _, ok := probeKeys(arrays, templateKeys)
	if !ok {
		return nil, fmt.Errorf("v_template not found in FLAME model")
	}
	vertices, err := verticesFromArray(vtArr)
	if err != nil {
		return nil, err
	}

	sdArr, _, ok := probeKeys(arrays, shapedirKeys)
	if !ok {
		return nil, fmt.Errorf("shapedirs not found in FLAME model")
	}
	basis, total, err := normalizeShapedirs(sdArr, len(vertices))
	if err != nil {
		return nil, err
	}

	faceArr, _, ok := probeKeys(arrays, faceKeys)
	if !ok {
		return nil, fmt.Errorf("faces / f / triangles not found in FLAME model")
	}
	faces, err := facesFromArray(faceArr, len(vertices))
	if err != nil {
		return nil, err
	}

	if opts.NumShape+opts.NumExpr > total {
		return nil, fmt.Errorf("requested num_shape+num_expr=%d, but model has only %d components in shapedirs",
			opts.NumShape+opts.NumExpr, total)
	}

	m := &Model{
		VTemplate: vertices,
		Faces:     faces,
		Basis:     basis,
		NumTotal:  total,
		NumShape:  opts.NumShape,
		NumExpr:   opts.NumExpr,
	}
	zlog.Infof("v_template: [%d 3], shapedirs: [%d 3 %d], faces: [%d 3]", len(vertices), len(vertices), total, len(faces))
	zlog.Infof("using first %d comps as shape, next %d as expr", opts.NumShape, opts.NumExpr)

	if uvArr, uvKey, ok := probeKeys(arrays, uvKeys); ok {
		if coords, usable := normalizeUV(uvArr, len(vertices)); usable {
			m.UV = UVMapping{Kind: UVPerVertex, Coords: coords}
			zlog.Infof("using embedded per-vertex UV from key %q", uvKey)
		} else {
			zlog.Warnf("embedded UV under %q has unusable shape %v, ignoring", uvKey, uvArr.Shape)
		}
	}
	if m.UV.Kind == UVNone && opts.UVTemplatePath != "" {
		uv, err := ResolveTemplateUV(opts.UVTemplatePath, len(vertices), len(faces))
		if err != nil {
			zlog.Warnf("UV template %s unusable: %v", opts.UVTemplatePath, err)
		} else {
			m.UV = uv
		}
	}
	return m, nil
}

// probeKeys walks the alias list in order. npz entries may keep their ".npy"
// suffix, so both spellings are accepted.
func probeKeys(arrays map[string]*Array, keys []string) (*Array, string, bool) {
	for _, k := range keys {
		if a, ok := arrays[k]; ok {
			return a, k, true
		}
		if a, ok := arrays[k+".npy"]; ok {
			return a, k, true
		}
	}
	return nil, "", false
}

func verticesFromArray(arr *Array) ([]vec3d.T, error) {
	if arr.Rank() != 2 || arr.Shape[1] != 3 {
		return nil, fmt.Errorf("v_template shape %v, want [V 3]", arr.Shape)
	}
	out := make([]vec3d.T, arr.Shape[0])
	for i := range out {
		out[i] = vec3d.T{arr.Data[i*3], arr.Data[i*3+1], arr.Data[i*3+2]}
	}
	return out, nil
}

// normalizeShapedirs accepts the flattened [V*3, N] layout or the canonical
// [V, 3, N] tensor and returns the basis as a [V*3, N] dense matrix.
func normalizeShapedirs(arr *Array, numVerts int) (*mat.Dense, int, error) {
	switch arr.Rank() {
	case 2:
		rows, n := arr.Shape[0], arr.Shape[1]
		if rows != numVerts*3 {
			return nil, 0, fmt.Errorf("shapedirs shape %v inconsistent with v_template [%d 3]", arr.Shape, numVerts)
		}
		if n == 0 {
			return nil, 0, fmt.Errorf("shapedirs has no components")
		}
		return mat.NewDense(rows, n, arr.Data), n, nil
	case 3:
		if arr.Shape[1] != 3 {
			return nil, 0, fmt.Errorf("shapedirs middle axis is %d, want 3 (shape %v)", arr.Shape[1], arr.Shape)
		}
		if arr.Shape[0] != numVerts {
			return nil, 0, fmt.Errorf("shapedirs has %d vertices, v_template has %d", arr.Shape[0], numVerts)
		}
		n := arr.Shape[2]
		if n == 0 {
			return nil, 0, fmt.Errorf("shapedirs has no components")
		}
		// [V,3,N] row-major is already laid out as V*3 rows of N columns.
		return mat.NewDense(numVerts*3, n, arr.Data), n, nil
	}
	return nil, 0, fmt.Errorf("unexpected shapedirs rank %d (shape %v)", arr.Rank(), arr.Shape)
}

func facesFromArray(arr *Array, numVerts int) ([][3]int, error) {
	if arr.Rank() != 2 || arr.Shape[1] != 3 {
		return nil, fmt.Errorf("faces shape %v, want [F 3]", arr.Shape)
	}
	idx, err := arr.Ints()
	if err != nil {
		return nil, fmt.Errorf("faces: %v", err)
	}
	out := make([][3]int, arr.Shape[0])
	for i := range out {
		for j := 0; j < 3; j++ {
			v := idx[i*3+j]
			if v < 0 || v >= numVerts {
				return nil, fmt.Errorf("face %d references vertex %d outside [0, %d)", i, v, numVerts)
			}
			out[i][j] = v
		}
	}
	return out, nil
}

// normalizeUV accepts [V, >=2] (first two columns) or [>=2, V] (first two
// rows, transposed). Anything else is unusable, which the caller treats as a
// soft condition.
func normalizeUV(arr *Array, numVerts int) ([]vec2d.T, bool) {
	if arr.Rank() != 2 {
		return nil, false
	}
	rows, cols := arr.Shape[0], arr.Shape[1]
	out := make([]vec2d.T, numVerts)
	switch {
	case rows == numVerts && cols >= 2:
		for i := range out {
			out[i] = vec2d.T{arr.Data[i*cols], arr.Data[i*cols+1]}
		}
	case cols == numVerts && rows >= 2:
		for i := range out {
			out[i] = vec2d.T{arr.Data[i], arr.Data[cols+i]}
		}
	default:
		return nil, false
	}
	return out, true
}

func arrayKeys(arrays map[string]*Array) []string {
	keys := make([]string, 0, len(arrays))
	for k := range arrays {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
