package flame

import (
	"fmt"
	"os"
	"strings"

	"github.com/nlpodyssey/gopickle/pickle"
	"github.com/sbinet/npyio"
	"github.com/sbinet/npyio/npz"
)

// NpzReader loads a compressed numpy archive. Entry names carry the ".npy"
// suffix numpy gives them; keys are exposed without it.
type NpzReader struct{}

func (r *NpzReader) Read(path string) (map[string]*Array, error) {
	f, err := npz.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	out := make(map[string]*Array)
	for _, key := range f.Keys() {
		arr, err := readNpzEntry(f, key)
		if err != nil {
			zlog.Warnf("npz %s: skipping %q: %v", path, key, err)
			continue
		}
		out[strings.TrimSuffix(key, ".npy")] = arr
	}
	return out, nil
}

func readNpzEntry(f *npz.Reader, key string) (*Array, error) {
	h := f.Header(key)
	shape := h.Descr.Shape
	dt := h.Descr.Type

	var (
		vals    []float64
		integer bool
	)
	switch {
	case strings.HasSuffix(dt, "f8"):
		var v []float64
		if err := f.Read(key, &v); err != nil {
			return nil, err
		}
		vals = v
	case strings.HasSuffix(dt, "f4"):
		var v []float32
		if err := f.Read(key, &v); err != nil {
			return nil, err
		}
		vals = widenFloat32(v)
	case strings.HasSuffix(dt, "i8"):
		var v []int64
		if err := f.Read(key, &v); err != nil {
			return nil, err
		}
		vals = make([]float64, len(v))
		for i, x := range v {
			vals[i] = float64(x)
		}
		integer = true
	case strings.HasSuffix(dt, "i4"):
		var v []int32
		if err := f.Read(key, &v); err != nil {
			return nil, err
		}
		vals = make([]float64, len(v))
		for i, x := range v {
			vals[i] = float64(x)
		}
		integer = true
	case strings.HasSuffix(dt, "u8"):
		var v []uint64
		if err := f.Read(key, &v); err != nil {
			return nil, err
		}
		vals = make([]float64, len(v))
		for i, x := range v {
			vals[i] = float64(x)
		}
		integer = true
	case strings.HasSuffix(dt, "u4"):
		var v []uint32
		if err := f.Read(key, &v); err != nil {
			return nil, err
		}
		vals = make([]float64, len(v))
		for i, x := range v {
			vals[i] = float64(x)
		}
		integer = true
	default:
		return nil, fmt.Errorf("unsupported dtype %q", dt)
	}

	if h.Descr.Fortran {
		vals = fromFortranOrder(shape, vals)
	}
	arr, err := NewArray(shape, vals)
	if err != nil {
		return nil, err
	}
	arr.Integer = integer
	return arr, nil
}

func widenFloat32(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}

// LoadNpyDict reads a .npy file holding a pickled dict, the layout np.save
// produces for plain Python dicts (a zero-dimensional object array whose
// payload is a pickle stream). This is how FLAME landmark embeddings ship.
func LoadNpyDict(path string) (map[string]*Array, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r, err := npyio.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("reading npy header of %s: %v", path, err)
	}
	if !strings.Contains(r.Header.Descr.Type, "O") {
		return nil, fmt.Errorf("%s: not an object array (dtype %q), expected a pickled dict", path, r.Header.Descr.Type)
	}

	// The rest of the file is the pickle stream.
	u := pickle.NewUnpickler(f)
	u.FindClass = findNumpyClass
	obj, err := u.Load()
	if err != nil {
		return nil, fmt.Errorf("unpickling %s: %v", path, err)
	}
	if nd, ok := obj.(*ndarray); ok && len(nd.objects) == 1 {
		obj = nd.objects[0]
	}
	return arraysFromDict(obj)
}
