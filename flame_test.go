package flame

import (
	"math"
	"strings"
	"testing"

	vec3d "github.com/flywave/go3d/float64/vec3"
	"gonum.org/v1/gonum/mat"
)

// newTestModel builds a unit quad in the XY plane split into two triangles,
// with a two-component basis: component 0 lifts every vertex along +z,
// component 1 shifts vertex 1 along +x.
func newTestModel(numShape, numExpr int) *Model {
	vt := []vec3d.T{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}}
	faces := [][3]int{{0, 1, 2}, {0, 2, 3}}
	basis := make([]float64, 4*3*2)
	for v := 0; v < 4; v++ {
		basis[(v*3+2)*2] = 1 // row v*3+z, column 0
	}
	basis[(1*3)*2+1] = 1 // row 1*3+x, column 1
	return &Model{
		VTemplate: vt,
		Faces:     faces,
		Basis:     mat.NewDense(12, 2, basis),
		NumTotal:  2,
		NumShape:  numShape,
		NumExpr:   numExpr,
	}
}

func TestEvaluateZeroCoefficients(t *testing.T) {
	m := newTestModel(1, 1)
	verts, err := m.Evaluate(nil, nil)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(verts) != len(m.VTemplate) {
		t.Fatalf("got %d vertices, want %d", len(verts), len(m.VTemplate))
	}
	for i, v := range verts {
		if v != m.VTemplate[i] {
			t.Errorf("vertex %d = %v, want template %v", i, v, m.VTemplate[i])
		}
	}
}

func TestEvaluateSingleComponent(t *testing.T) {
	m := newTestModel(2, 0)
	verts, err := m.Evaluate([]float64{1, 0}, nil)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	for i, v := range verts {
		want := m.VTemplate[i]
		want[2] += 1
		if v != want {
			t.Errorf("vertex %d = %v, want %v", i, v, want)
		}
	}
}

func TestEvaluateShortCoeffsZeroPad(t *testing.T) {
	m := newTestModel(2, 0)
	verts, err := m.Evaluate([]float64{0.5}, nil)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if got := verts[1][0]; got != 1 {
		t.Errorf("vertex 1 x = %v, component 1 must stay zero", got)
	}
	if got := verts[0][2]; got != 0.5 {
		t.Errorf("vertex 0 z = %v, want 0.5", got)
	}
}

func TestEvaluateExpressionSlotOffset(t *testing.T) {
	m := newTestModel(1, 1)
	verts, err := m.Evaluate(nil, []float64{2})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if got := verts[1][0]; got != 3 {
		t.Errorf("vertex 1 x = %v, want 3 (template 1 + expr 2 on component 1)", got)
	}
	if got := verts[0][2]; got != 0 {
		t.Errorf("vertex 0 z = %v, shape component must stay zero", got)
	}
}

func TestEvaluateLinearity(t *testing.T) {
	m := newTestModel(2, 0)
	c1 := []float64{0.3, -1.2}
	c2 := []float64{-0.7, 2.5}
	sum := []float64{c1[0] + c2[0], c1[1] + c2[1]}

	v1, err := m.Evaluate(c1, nil)
	if err != nil {
		t.Fatal(err)
	}
	v2, err := m.Evaluate(c2, nil)
	if err != nil {
		t.Fatal(err)
	}
	vs, err := m.Evaluate(sum, nil)
	if err != nil {
		t.Fatal(err)
	}
	for i := range vs {
		for axis := 0; axis < 3; axis++ {
			want := v1[i][axis] + v2[i][axis] - m.VTemplate[i][axis]
			if math.Abs(vs[i][axis]-want) > 1e-12 {
				t.Fatalf("vertex %d axis %d: %v, want %v (superposition)", i, axis, vs[i][axis], want)
			}
		}
	}
}

func TestEvaluateShapeCoeffsTooLong(t *testing.T) {
	m := newTestModel(1, 1)
	if _, err := m.Evaluate([]float64{1, 2}, nil); err == nil {
		t.Fatal("expected error for 2 shape coefficients with 1 slot")
	} else if !strings.Contains(err.Error(), "shape coefficients") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestEvaluateExprCoeffsTooLong(t *testing.T) {
	m := newTestModel(1, 1)
	if _, err := m.Evaluate(nil, []float64{1, 2}); err == nil {
		t.Fatal("expected error for 2 expression coefficients with 1 slot")
	} else if !strings.Contains(err.Error(), "expression coefficients") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestEvaluateDoesNotMutate(t *testing.T) {
	m := newTestModel(2, 0)
	if _, err := m.Evaluate([]float64{5, -3}, nil); err != nil {
		t.Fatal(err)
	}
	verts, err := m.Evaluate(nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range verts {
		if v != m.VTemplate[i] {
			t.Fatalf("vertex %d = %v after prior evaluation, want template %v", i, v, m.VTemplate[i])
		}
	}
}
