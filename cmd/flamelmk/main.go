// flamelmk dumps a FLAME/DECA landmark embedding (a pickled dict stored in a
// .npy file) to plain JSON for the downstream application.
package main

import (
	"fmt"
	"os"

	flame "github.com/flywave/go-flame"
)

func main() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: flamelmk <landmark_embedding.npy> <out.json>")
		os.Exit(1)
	}
	npyPath, outPath := os.Args[1], os.Args[2]
	if _, err := os.Stat(npyPath); err != nil {
		fmt.Fprintf(os.Stderr, "Landmark embedding not found: %s\n", npyPath)
		os.Exit(1)
	}
	if err := run(npyPath, outPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(npyPath, outPath string) error {
	arrays, err := flame.LoadNpyDict(npyPath)
	if err != nil {
		return err
	}

	payload, missing := flame.FlameLandmarkPayload(arrays)
	for _, k := range missing {
		fmt.Printf("Warning: key %q not in embedding\n", k)
	}
	if len(payload) == 0 {
		return fmt.Errorf("no landmark arrays found in %s", npyPath)
	}

	if err := flame.WriteJSON(outPath, payload, false); err != nil {
		return err
	}
	fmt.Printf("Written JSON to: %s\n", outPath)
	return nil
}
