package flame

import (
	"os"
	"path/filepath"
	"testing"

	gobj "github.com/flywave/go-obj"
	vec2d "github.com/flywave/go3d/float64/vec2"
)

const quadTemplateObj = `# quad UV template
v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
vt 0 0
vt 1 0
vt 1 1
vt 0 1
f 1/1 2/2 3/3
f 1/1 3/3 4/4
`

func writeTemplate(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "template.obj")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestResolveTemplateUVPerCorner(t *testing.T) {
	path := writeTemplate(t, quadTemplateObj)
	uv, err := ResolveTemplateUV(path, 4, 2)
	if err != nil {
		t.Fatalf("ResolveTemplateUV: %v", err)
	}
	if uv.Kind != UVPerCorner {
		t.Fatalf("kind = %v, want UVPerCorner", uv.Kind)
	}
	if len(uv.Pool) != 4 {
		t.Errorf("pool size = %d, want 4", len(uv.Pool))
	}
	want := [][3]int{{0, 1, 2}, {0, 2, 3}}
	for i, c := range uv.Corners {
		if c != want[i] {
			t.Errorf("corners[%d] = %v, want %v", i, c, want[i])
		}
	}
}

func TestResolveTemplateUVFaceCountMismatchAverages(t *testing.T) {
	// model claims 3 triangles, template has 2: per-corner is impossible,
	// vertex counts still match so averaging applies
	path := writeTemplate(t, quadTemplateObj)
	uv, err := ResolveTemplateUV(path, 4, 3)
	if err != nil {
		t.Fatalf("ResolveTemplateUV: %v", err)
	}
	if uv.Kind != UVPerVertex {
		t.Fatalf("kind = %v, want UVPerVertex fallback", uv.Kind)
	}
	// vertex 0 is referenced twice, both times with vt 1 (0,0)
	if uv.Coords[0] != (vec2d.T{0, 0}) {
		t.Errorf("coords[0] = %v, want (0,0)", uv.Coords[0])
	}
	// vertex 2 is referenced twice with vt 3 (1,1)
	if uv.Coords[2] != (vec2d.T{1, 1}) {
		t.Errorf("coords[2] = %v, want (1,1)", uv.Coords[2])
	}
}

func TestResolveTemplateUVCornerWithoutReferenceFallsBack(t *testing.T) {
	// second face lacks vt references entirely
	path := writeTemplate(t, `v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
vt 0 0
vt 1 0
vt 1 1
f 1/1 2/2 3/3
f 1 3 4
`)
	uv, err := ResolveTemplateUV(path, 4, 2)
	if err != nil {
		t.Fatalf("ResolveTemplateUV: %v", err)
	}
	if uv.Kind != UVPerVertex {
		t.Fatalf("kind = %v, want UVPerVertex fallback", uv.Kind)
	}
}

func TestResolveTemplateUVNoPool(t *testing.T) {
	path := writeTemplate(t, `v 0 0 0
v 1 0 0
v 1 1 0
f 1 2 3
`)
	uv, err := ResolveTemplateUV(path, 3, 1)
	if err != nil {
		t.Fatalf("ResolveTemplateUV: %v", err)
	}
	if uv.Kind != UVNone {
		t.Fatalf("kind = %v, want UVNone for an empty UV pool", uv.Kind)
	}
}

func TestResolveTemplateUVTopologyMismatch(t *testing.T) {
	// neither face count nor vertex count match: no truncation, no wrap,
	// just UVNone
	path := writeTemplate(t, quadTemplateObj)
	uv, err := ResolveTemplateUV(path, 10, 7)
	if err != nil {
		t.Fatalf("ResolveTemplateUV: %v", err)
	}
	if uv.Kind != UVNone {
		t.Fatalf("kind = %v, want UVNone", uv.Kind)
	}
}

func TestAveragedUVMissingVertexTally(t *testing.T) {
	// vertex 3 appears in no UV-bearing face
	f, err := os.Open(writeTemplate(t, `v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
vt 0.5 0.5
f 1/1 2/1 3/1
`))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	parsed := &gobj.ObjReader{}
	if err := parsed.Read(f); err != nil {
		t.Fatal(err)
	}
	pool := make([]vec2d.T, len(parsed.VT))
	for i, vt := range parsed.VT {
		pool[i] = vec2d.T{float64(vt[0]), float64(vt[1])}
	}

	coords, missing, ok := averagedUV(parsed, pool, 4)
	if !ok {
		t.Fatal("averagedUV refused matching vertex counts")
	}
	if missing != 1 {
		t.Errorf("missing tally = %d, want 1", missing)
	}
	if coords[3] != (vec2d.T{0, 0}) {
		t.Errorf("untouched vertex UV = %v, want exactly (0,0)", coords[3])
	}
	if coords[0] != (vec2d.T{0.5, 0.5}) {
		t.Errorf("coords[0] = %v, want (0.5,0.5)", coords[0])
	}
}

func TestAveragedUVVertexCountMismatch(t *testing.T) {
	f, err := os.Open(writeTemplate(t, quadTemplateObj))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	parsed := &gobj.ObjReader{}
	if err := parsed.Read(f); err != nil {
		t.Fatal(err)
	}
	pool := make([]vec2d.T, len(parsed.VT))
	if _, _, ok := averagedUV(parsed, pool, 5); ok {
		t.Fatal("averagedUV must refuse a vertex count mismatch")
	}
}
