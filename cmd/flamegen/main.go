// flamegen generates a textured OBJ mesh from a FLAME morphable model,
// driven by a JSON run configuration written by the downstream application.
package main

import (
	"fmt"
	"os"

	flame "github.com/flywave/go-flame"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	configPath := os.Args[1]
	if _, err := os.Stat(configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Config file not found: %s\n", configPath)
		os.Exit(1)
	}
	if err := run(configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := flame.LoadRunConfig(configPath)
	if err != nil {
		return err
	}

	flame.InitLogger(cfg.LogLevel, cfg.LogFile)
	defer flame.SyncLogger()

	fmt.Printf("Using FLAME model: %s\n", cfg.FlameModelPath)
	fmt.Printf("Output OBJ: %s\n", cfg.OutObjPath)
	if cfg.UVTemplateObjPath != "" {
		fmt.Printf("UV template OBJ: %s\n", cfg.UVTemplateObjPath)
	} else {
		fmt.Println("No UV template OBJ path provided.")
	}
	if eyes := cfg.EyeTriangles(); eyes != nil {
		fmt.Printf("Eye submesh triangle indices count: %d (reserved, single submesh for now)\n", len(eyes))
	} else {
		fmt.Println("No eye submesh triangle indices provided (single submesh for now).")
	}

	model, err := flame.LoadModel(cfg.FlameModelPath, flame.ModelOptions{
		NumShape:       cfg.NumShape,
		NumExpr:        cfg.NumExpr,
		UVTemplatePath: cfg.UVTemplateObjPath,
	})
	if err != nil {
		return err
	}
	return model.ExportObj(cfg.OutObjPath, cfg.ShapeCoeffs, cfg.ExprCoeffs)
}

func printUsage() {
	fmt.Println(`flamegen - FLAME morphable model to OBJ mesh generator

Usage:
  flamegen <config.json>

The configuration is a JSON object with keys:
  flame_model_path      path to the FLAME model (.pkl or .npz), required
  out_obj_path          path of the OBJ file to write, required
  uv_template_obj_path  reference OBJ supplying UV coordinates, optional
  num_shape             shape coefficient slots (default 300)
  num_expr              expression coefficient slots (default 100)
  shape_coeffs          shape coefficients, optional
  expr_coeffs           expression coefficients, optional
  eye_tri_indices       reserved, optional
  log_level, log_file   logging setup, optional`)
}
