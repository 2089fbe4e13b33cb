package flame

import (
	"fmt"

	vec3d "github.com/flywave/go3d/float64/vec3"
	"gonum.org/v1/gonum/mat"
)

// Evaluate deforms the template by the blendshape basis: vertex i becomes
// template[i] + basis[i,:,k]·betas[k], summed over all components. Shape
// coefficients fill the leading slots, expression coefficients the next ones;
// either may be nil or shorter than its slot count (zero-padded), never
// longer. Pure: repeated calls never mutate the model.
func (m *Model) Evaluate(shapeCoeffs, exprCoeffs []float64) ([]vec3d.T, error) {
	betas, err := m.betas(shapeCoeffs, exprCoeffs)
	if err != nil {
		return nil, err
	}

	offsets := mat.NewVecDense(len(m.VTemplate)*3, nil)
	offsets.MulVec(m.Basis, mat.NewVecDense(m.NumTotal, betas))

	verts := make([]vec3d.T, len(m.VTemplate))
	for i, v := range m.VTemplate {
		verts[i] = vec3d.T{
			v[0] + offsets.AtVec(i * 3),
			v[1] + offsets.AtVec(i*3+1),
			v[2] + offsets.AtVec(i*3+2),
		}
	}
	return verts, nil
}

// betas assembles the full coefficient vector of length NumTotal. Trailing
// components beyond num_shape+num_expr stay zero.
func (m *Model) betas(shapeCoeffs, exprCoeffs []float64) ([]float64, error) {
	if len(shapeCoeffs) > m.NumShape {
		return nil, fmt.Errorf("got %d shape coefficients, model is configured for %d", len(shapeCoeffs), m.NumShape)
	}
	if len(exprCoeffs) > m.NumExpr {
		return nil, fmt.Errorf("got %d expression coefficients, model is configured for %d", len(exprCoeffs), m.NumExpr)
	}
	betas := make([]float64, m.NumTotal)
	copy(betas, shapeCoeffs)
	copy(betas[m.NumShape:], exprCoeffs)
	return betas, nil
}

// ExportObj evaluates the model with the given coefficients and writes the
// deformed mesh, with normals and the resolved UV source, to path.
func (m *Model) ExportObj(path string, shapeCoeffs, exprCoeffs []float64) error {
	verts, err := m.Evaluate(shapeCoeffs, exprCoeffs)
	if err != nil {
		return err
	}
	if err := ExportObj(path, verts, m.Faces, m.UV); err != nil {
		return err
	}
	zlog.Infof("saved OBJ to %s", path)
	return nil
}
