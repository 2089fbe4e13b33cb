package flame

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// flameLandmarkKeys are the arrays a DECA/FLAME landmark embedding carries,
// in the order the downstream consumer expects them reported.
var flameLandmarkKeys = []string{
	"static_lmk_faces_idx",
	"static_lmk_bary_coords",
	"dynamic_lmk_faces_idx",
	"dynamic_lmk_bary_coords",
	"full_lmk_faces_idx",
	"full_lmk_bary_coords",
}

// FlameLandmarkPayload flattens the landmark embedding arrays into a plain
// JSON-ready map. Keys absent from the embedding are skipped and returned so
// the caller can report them.
func FlameLandmarkPayload(arrays map[string]*Array) (map[string]interface{}, []string) {
	payload := make(map[string]interface{})
	var missing []string
	for _, k := range flameLandmarkKeys {
		arr, _, ok := probeKeys(arrays, []string{k})
		if !ok {
			missing = append(missing, k)
			continue
		}
		payload[k] = arr.Nested()
	}
	return payload, missing
}

// MediapipePayload builds the JSON dump of a mediapipe landmark embedding:
// face indices, barycentric coordinates of shape [L,3] and the mediapipe
// landmark index list, plus a num_landmarks scalar.
func MediapipePayload(arrays map[string]*Array) (map[string]interface{}, error) {
	required := []string{"lmk_face_idx", "lmk_b_coords", "landmark_indices"}
	found := make(map[string]*Array, len(required))
	for _, k := range required {
		arr, _, ok := probeKeys(arrays, []string{k})
		if !ok {
			return nil, fmt.Errorf("key %q not found in NPZ (available: %v)", k, arrayKeys(arrays))
		}
		found[k] = arr
	}

	faceIdx := found["lmk_face_idx"]
	bary := found["lmk_b_coords"]
	numLandmarks := faceIdx.Size()
	if bary.Rank() != 2 || bary.Shape[0] != numLandmarks || bary.Shape[1] != 3 {
		return nil, fmt.Errorf("unexpected lmk_b_coords shape %v for %d landmarks", bary.Shape, numLandmarks)
	}

	return map[string]interface{}{
		"num_landmarks":    numLandmarks,
		"lmk_face_idx":     faceIdx.Nested(),
		"lmk_b_coords":     bary.Nested(),
		"landmark_indices": found["landmark_indices"].Nested(),
	}, nil
}

// WriteJSON marshals payload to path, creating parent directories. indent
// selects two-space pretty printing.
func WriteJSON(path string, payload interface{}, indent bool) error {
	var (
		data []byte
		err  error
	)
	if indent {
		data, err = json.MarshalIndent(payload, "", "  ")
	} else {
		data, err = json.Marshal(payload)
	}
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0644)
}
