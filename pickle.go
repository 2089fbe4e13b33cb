package flame

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"

	"github.com/nlpodyssey/gopickle/pickle"
	"github.com/nlpodyssey/gopickle/types"
)

// PklReader loads a pickled FLAME model dict. FLAME pickles were written by
// Python 2 with latin1 strings and store plain numpy arrays; the unpickler is
// given just enough of the numpy class surface to rebuild those as Arrays.
// Anything else in the dict is kept opaque so the load still succeeds.
type PklReader struct{}

func (r *PklReader) Read(path string) (map[string]*Array, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	u := pickle.NewUnpickler(f)
	u.FindClass = findNumpyClass

	obj, err := u.Load()
	if err != nil {
		return nil, fmt.Errorf("unpickling %s: %v", path, err)
	}
	return arraysFromDict(obj)
}

// arraysFromDict collects every numeric ndarray value keyed by a string.
func arraysFromDict(obj interface{}) (map[string]*Array, error) {
	out := make(map[string]*Array)
	collect := func(k, v interface{}) {
		key, ok := k.(string)
		if !ok {
			return
		}
		if nd, ok := v.(*ndarray); ok && nd.arr != nil {
			out[key] = nd.arr
		}
	}
	switch d := obj.(type) {
	case *types.Dict:
		for _, e := range *d {
			collect(e.Key, e.Value)
		}
	case *types.OrderedDict:
		for k, e := range d.Map {
			collect(k, e.Value)
		}
	default:
		return nil, fmt.Errorf("container is not a dict (got %T)", obj)
	}
	return out, nil
}

func findNumpyClass(module, name string) (interface{}, error) {
	switch {
	case name == "_reconstruct" && isMultiarrayModule(module):
		return reconstructFunc{}, nil
	case name == "scalar" && isMultiarrayModule(module):
		return scalarFunc{}, nil
	case module == "numpy" && name == "ndarray":
		return ndarrayClass{}, nil
	case module == "numpy" && name == "dtype":
		return dtypeClass{}, nil
	}
	// chumpy wrappers and other classes we never read
	return &opaqueClass{module: module, name: name}, nil
}

func isMultiarrayModule(module string) bool {
	return module == "numpy.core.multiarray" || module == "numpy._core.multiarray"
}

// ndarray accumulates the __setstate__ payload of a pickled numpy array.
type ndarray struct {
	arr *Array
	// objects holds the elements of an object-dtype array (np.save of a
	// dict wraps it in one of these).
	objects []interface{}
}

type ndarrayClass struct{}

func (ndarrayClass) PyNew(args ...interface{}) (interface{}, error) {
	return &ndarray{}, nil
}

func (c ndarrayClass) Call(args ...interface{}) (interface{}, error) {
	return c.PyNew(args...)
}

// reconstructFunc mirrors numpy.core.multiarray._reconstruct: it returns an
// empty array that BUILD fills in via PySetState.
type reconstructFunc struct{}

func (reconstructFunc) Call(args ...interface{}) (interface{}, error) {
	return &ndarray{}, nil
}

func (n *ndarray) PySetState(state interface{}) error {
	t, ok := state.(*types.Tuple)
	if !ok || t.Len() < 5 {
		return fmt.Errorf("ndarray: unexpected state %T", state)
	}
	shapeT, ok := t.Get(1).(*types.Tuple)
	if !ok {
		return fmt.Errorf("ndarray: shape is %T, not a tuple", t.Get(1))
	}
	shape := make([]int, shapeT.Len())
	for i := range shape {
		v, ok := asInt(shapeT.Get(i))
		if !ok {
			return fmt.Errorf("ndarray: non-integer dimension %v", shapeT.Get(i))
		}
		shape[i] = v
	}
	dt, ok := t.Get(2).(*dtype)
	if !ok {
		return fmt.Errorf("ndarray: unsupported dtype (%T)", t.Get(2))
	}
	fortran, _ := t.Get(3).(bool)

	var raw []byte
	switch data := t.Get(4).(type) {
	case []byte:
		raw = data
	case string:
		raw = []byte(data)
	case *types.List:
		if dt.kind() != 'O' {
			return fmt.Errorf("ndarray: list payload for dtype %q", dt.descr)
		}
		n.objects = append(n.objects, (*data)...)
		return nil
	default:
		return fmt.Errorf("ndarray: unsupported data payload %T", t.Get(4))
	}

	vals, integer, err := decodeRaw(raw, dt)
	if err != nil {
		return err
	}
	if fortran {
		vals = fromFortranOrder(shape, vals)
	}
	arr, err := NewArray(shape, vals)
	if err != nil {
		return fmt.Errorf("ndarray: %v", err)
	}
	arr.Integer = integer
	n.arr = arr
	return nil
}

// dtype captures a numpy dtype descriptor like "f8" or "<i4".
type dtype struct {
	descr string
	order byte
}

type dtypeClass struct{}

// numpy pickles a dtype as a call numpy.dtype(descr, align, copy), so the
// class must be reachable through REDUCE, not only NEWOBJ.
func (c dtypeClass) Call(args ...interface{}) (interface{}, error) {
	return c.PyNew(args...)
}

func (dtypeClass) PyNew(args ...interface{}) (interface{}, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("numpy.dtype: missing descriptor")
	}
	descr, ok := args[0].(string)
	if !ok {
		return nil, fmt.Errorf("numpy.dtype: descriptor is %T, not a string", args[0])
	}
	d := &dtype{descr: descr, order: '<'}
	if len(descr) > 0 && isByteOrder(descr[0]) {
		d.order = descr[0]
		d.descr = descr[1:]
	}
	return d, nil
}

// PySetState picks the byte order out of the dtype state tuple; everything
// else there (field names, alignment) is irrelevant for plain arrays.
func (d *dtype) PySetState(state interface{}) error {
	t, ok := state.(*types.Tuple)
	if !ok || t.Len() < 2 {
		return nil
	}
	if s, ok := t.Get(1).(string); ok && len(s) == 1 && isByteOrder(s[0]) {
		d.order = s[0]
	}
	return nil
}

func isByteOrder(c byte) bool {
	return c == '<' || c == '>' || c == '=' || c == '|'
}

func (d *dtype) kind() byte {
	if len(d.descr) == 0 {
		return 0
	}
	return d.descr[0]
}

func (d *dtype) itemsize() int {
	size := 0
	for _, c := range d.descr[1:] {
		if c < '0' || c > '9' {
			return 0
		}
		size = size*10 + int(c-'0')
	}
	if size == 0 && d.kind() == 'b' {
		return 1
	}
	return size
}

func decodeRaw(raw []byte, dt *dtype) ([]float64, bool, error) {
	size := dt.itemsize()
	if size == 0 || len(raw)%size != 0 {
		return nil, false, fmt.Errorf("cannot decode %d bytes as dtype %q", len(raw), dt.descr)
	}
	var bo binary.ByteOrder = binary.LittleEndian
	if dt.order == '>' {
		bo = binary.BigEndian
	}
	kind := dt.kind()
	out := make([]float64, len(raw)/size)
	for i := range out {
		b := raw[i*size : (i+1)*size]
		switch {
		case kind == 'f' && size == 8:
			out[i] = math.Float64frombits(bo.Uint64(b))
		case kind == 'f' && size == 4:
			out[i] = float64(math.Float32frombits(bo.Uint32(b)))
		case kind == 'i' && size == 8:
			out[i] = float64(int64(bo.Uint64(b)))
		case kind == 'i' && size == 4:
			out[i] = float64(int32(bo.Uint32(b)))
		case kind == 'i' && size == 2:
			out[i] = float64(int16(bo.Uint16(b)))
		case kind == 'i' && size == 1:
			out[i] = float64(int8(b[0]))
		case kind == 'u' && size == 8:
			out[i] = float64(bo.Uint64(b))
		case kind == 'u' && size == 4:
			out[i] = float64(bo.Uint32(b))
		case kind == 'u' && size == 2:
			out[i] = float64(bo.Uint16(b))
		case (kind == 'u' || kind == 'b') && size == 1:
			out[i] = float64(b[0])
		default:
			return nil, false, fmt.Errorf("unsupported dtype %q", dt.descr)
		}
	}
	integer := kind == 'i' || kind == 'u' || kind == 'b'
	return out, integer, nil
}

// scalarFunc rebuilds numpy.core.multiarray.scalar values as plain float64.
type scalarFunc struct{}

func (scalarFunc) Call(args ...interface{}) (interface{}, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("numpy scalar: want 2 args, got %d", len(args))
	}
	dt, ok := args[0].(*dtype)
	if !ok {
		return nil, fmt.Errorf("numpy scalar: dtype is %T", args[0])
	}
	var raw []byte
	switch data := args[1].(type) {
	case []byte:
		raw = data
	case string:
		raw = []byte(data)
	default:
		return nil, fmt.Errorf("numpy scalar: payload is %T", args[1])
	}
	vals, _, err := decodeRaw(raw, dt)
	if err != nil || len(vals) == 0 {
		return nil, fmt.Errorf("numpy scalar: %v", err)
	}
	return vals[0], nil
}

// opaqueClass stands in for classes the loader does not interpret. Instances
// swallow any state so unpickling the rest of the dict can proceed.
type opaqueClass struct {
	module, name string
}

func (c *opaqueClass) PyNew(args ...interface{}) (interface{}, error) {
	return &opaqueObject{class: c}, nil
}

func (c *opaqueClass) Call(args ...interface{}) (interface{}, error) {
	return &opaqueObject{class: c}, nil
}

type opaqueObject struct {
	class *opaqueClass
}

func (o *opaqueObject) PySetState(state interface{}) error { return nil }
