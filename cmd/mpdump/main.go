// mpdump converts a mediapipe landmark embedding NPZ into a plain JSON file.
package main

import (
	"fmt"
	"os"

	flame "github.com/flywave/go-flame"
)

func main() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: mpdump <mediapipe_landmark_embedding.npz> <out.json>")
		os.Exit(1)
	}
	npzPath, outPath := os.Args[1], os.Args[2]
	if _, err := os.Stat(npzPath); err != nil {
		fmt.Fprintf(os.Stderr, "NPZ file not found: %s\n", npzPath)
		os.Exit(1)
	}
	if err := run(npzPath, outPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(npzPath, outPath string) error {
	fmt.Printf("Loading NPZ: %s\n", npzPath)
	arrays, err := flame.LoadContainer(npzPath)
	if err != nil {
		return err
	}

	payload, err := flame.MediapipePayload(arrays)
	if err != nil {
		return err
	}
	fmt.Printf("num_landmarks: %v\n", payload["num_landmarks"])

	if err := flame.WriteJSON(outPath, payload, true); err != nil {
		return err
	}
	fmt.Printf("Saved JSON to: %s\n", outPath)
	return nil
}
