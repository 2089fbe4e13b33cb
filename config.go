package flame

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// RunConfig drives one load → evaluate → export run. The file is written by
// the downstream application, typically UTF-8 with a BOM.
type RunConfig struct {
	FlameModelPath    string    `json:"flame_model_path"`
	OutObjPath        string    `json:"out_obj_path"`
	UVTemplateObjPath string    `json:"uv_template_obj_path"`
	NumShape          int       `json:"num_shape"`
	NumExpr           int       `json:"num_expr"`
	ShapeCoeffs       []float64 `json:"shape_coeffs"`
	ExprCoeffs        []float64 `json:"expr_coeffs"`
	// EyeTriIndices is reserved for the planned eye submesh split; it is
	// validated and reported but has no effect on the output yet.
	EyeTriIndices json.RawMessage `json:"eye_tri_indices"`
	LogLevel      string          `json:"log_level"`
	LogFile       string          `json:"log_file"`
}

// DefaultRunConfig returns the documented defaults; LoadRunConfig overlays
// the file on top of them.
func DefaultRunConfig() *RunConfig {
	return &RunConfig{
		NumShape: 300,
		NumExpr:  100,
		LogLevel: "info",
	}
}

// LoadRunConfig reads and validates a JSON run configuration. All paths are
// made absolute.
func LoadRunConfig(path string) (*RunConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	cfg := DefaultRunConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %v", path, err)
	}

	if cfg.FlameModelPath == "" {
		return nil, fmt.Errorf("config %s: missing required key flame_model_path", path)
	}
	if cfg.OutObjPath == "" {
		return nil, fmt.Errorf("config %s: missing required key out_obj_path", path)
	}
	if cfg.NumShape < 0 || cfg.NumExpr < 0 {
		return nil, fmt.Errorf("config %s: num_shape and num_expr must not be negative", path)
	}

	if cfg.FlameModelPath, err = filepath.Abs(cfg.FlameModelPath); err != nil {
		return nil, err
	}
	if cfg.OutObjPath, err = filepath.Abs(cfg.OutObjPath); err != nil {
		return nil, err
	}
	if cfg.UVTemplateObjPath != "" {
		if cfg.UVTemplateObjPath, err = filepath.Abs(cfg.UVTemplateObjPath); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// EyeTriangles decodes the reserved eye submesh index list. A malformed list
// is warned about and dropped, matching the tolerant handling of the field
// everywhere else.
func (c *RunConfig) EyeTriangles() []int {
	if len(c.EyeTriIndices) == 0 {
		return nil
	}
	var idx []int
	if err := json.Unmarshal(c.EyeTriIndices, &idx); err != nil {
		zlog.Warnf("eye_tri_indices present but not a list of ints, ignoring")
		return nil
	}
	return idx
}
