package flame

import (
	"fmt"
	"math"
)

// Array is a dense row-major tensor with an explicit shape. Container readers
// normalize every numeric value to this form, so shape errors surface at
// construction instead of at use.
type Array struct {
	Shape []int
	Data  []float64
	// Integer records that the source dtype was integral, so JSON output
	// can print whole numbers.
	Integer bool
}

// NewArray builds an Array after checking that the data length matches the
// shape. A rank-0 shape denotes a scalar holding one value.
func NewArray(shape []int, data []float64) (*Array, error) {
	size := 1
	for _, s := range shape {
		if s < 0 {
			return nil, fmt.Errorf("negative dimension in shape %v", shape)
		}
		size *= s
	}
	if size != len(data) {
		return nil, fmt.Errorf("array data length %d does not match shape %v", len(data), shape)
	}
	return &Array{Shape: shape, Data: data}, nil
}

func (a *Array) Rank() int { return len(a.Shape) }

// Size is the total number of elements.
func (a *Array) Size() int {
	size := 1
	for _, s := range a.Shape {
		size *= s
	}
	return size
}

// Ints converts the flat data to integers, erroring on any fractional value.
func (a *Array) Ints() ([]int, error) {
	out := make([]int, len(a.Data))
	for i, v := range a.Data {
		if v != math.Trunc(v) {
			return nil, fmt.Errorf("value %v at index %d is not an integer", v, i)
		}
		out[i] = int(v)
	}
	return out, nil
}

// Nested returns the tensor as nested slices, the layout encoding/json turns
// into plain JSON arrays. Integral arrays come out as int64 so they print
// without decimal points.
func (a *Array) Nested() interface{} {
	return nest(a.Shape, a.Data, a.Integer)
}

func nest(shape []int, data []float64, integer bool) interface{} {
	if len(shape) == 0 {
		return leaf(data[0], integer)
	}
	if len(shape) == 1 {
		out := make([]interface{}, shape[0])
		for i, v := range data {
			out[i] = leaf(v, integer)
		}
		return out
	}
	stride := 1
	for _, s := range shape[1:] {
		stride *= s
	}
	out := make([]interface{}, shape[0])
	for i := range out {
		out[i] = nest(shape[1:], data[i*stride:(i+1)*stride], integer)
	}
	return out
}

func leaf(v float64, integer bool) interface{} {
	if integer {
		return int64(v)
	}
	return v
}

// fromFortranOrder rewrites column-major data into the row-major layout the
// rest of the package assumes.
func fromFortranOrder(shape []int, data []float64) []float64 {
	if len(shape) < 2 {
		return data
	}
	strides := make([]int, len(shape))
	acc := 1
	for i := range shape {
		strides[i] = acc
		acc *= shape[i]
	}
	out := make([]float64, len(data))
	idx := make([]int, len(shape))
	for c := range out {
		rem := c
		for i := len(shape) - 1; i >= 0; i-- {
			idx[i] = rem % shape[i]
			rem /= shape[i]
		}
		src := 0
		for i, v := range idx {
			src += v * strides[i]
		}
		out[c] = data[src]
	}
	return out
}

func asInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int8:
		return int(n), true
	case int16:
		return int(n), true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case uint8:
		return int(n), true
	case uint16:
		return int(n), true
	case uint32:
		return int(n), true
	case uint64:
		return int(n), true
	case float64:
		if n == math.Trunc(n) {
			return int(n), true
		}
	}
	return 0, false
}
