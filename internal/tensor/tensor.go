// Dense float32 tensors with the layout operations the inference path needs
package tensor

import (
	"fmt"
	"math"
)

// Tensor is a dense row-major float32 array.
type Tensor struct {
	Shape []int
	Data  []float32
}

// New allocates a zero tensor with the given shape.
func New(shape ...int) Tensor {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return Tensor{Shape: append([]int(nil), shape...), Data: make([]float32, n)}
}

// FromData wraps data without copying. The element count must match the shape.
func FromData(data []float32, shape ...int) (Tensor, error) {
	n := 1
	for _, d := range shape {
		if d <= 0 {
			return Tensor{}, fmt.Errorf("invalid dimension %d in shape %v", d, shape)
		}
		n *= d
	}
	if n != len(data) {
		return Tensor{}, fmt.Errorf("shape %v needs %d elements, got %d", shape, n, len(data))
	}
	return Tensor{Shape: append([]int(nil), shape...), Data: data}, nil
}

// Rank returns the number of axes.
func (t Tensor) Rank() int { return len(t.Shape) }

// Len returns the number of elements.
func (t Tensor) Len() int { return len(t.Data) }

// Clone returns a deep copy.
func (t Tensor) Clone() Tensor {
	out := Tensor{Shape: append([]int(nil), t.Shape...), Data: make([]float32, len(t.Data))}
	copy(out.Data, t.Data)
	return out
}

// Unsqueeze inserts a length-1 axis at position axis. Data is shared.
func (t Tensor) Unsqueeze(axis int) (Tensor, error) {
	if axis < 0 || axis > len(t.Shape) {
		return Tensor{}, fmt.Errorf("unsqueeze axis %d out of range for rank %d", axis, len(t.Shape))
	}
	shape := make([]int, 0, len(t.Shape)+1)
	shape = append(shape, t.Shape[:axis]...)
	shape = append(shape, 1)
	shape = append(shape, t.Shape[axis:]...)
	return Tensor{Shape: shape, Data: t.Data}, nil
}

// Squeeze removes a length-1 axis. Data is shared.
func (t Tensor) Squeeze(axis int) (Tensor, error) {
	if axis < 0 || axis >= len(t.Shape) {
		return Tensor{}, fmt.Errorf("squeeze axis %d out of range for rank %d", axis, len(t.Shape))
	}
	if t.Shape[axis] != 1 {
		return Tensor{}, fmt.Errorf("cannot squeeze axis %d of size %d", axis, t.Shape[axis])
	}
	shape := make([]int, 0, len(t.Shape)-1)
	shape = append(shape, t.Shape[:axis]...)
	shape = append(shape, t.Shape[axis+1:]...)
	return Tensor{Shape: shape, Data: t.Data}, nil
}

// Permute reorders axes so that output axis i is input axis perm[i].
// The result owns a fresh backing array.
func (t Tensor) Permute(perm ...int) (Tensor, error) {
	rank := len(t.Shape)
	if len(perm) != rank {
		return Tensor{}, fmt.Errorf("permutation %v does not match rank %d", perm, rank)
	}
	seen := make([]bool, rank)
	for _, p := range perm {
		if p < 0 || p >= rank || seen[p] {
			return Tensor{}, fmt.Errorf("invalid permutation %v", perm)
		}
		seen[p] = true
	}

	inStrides := strides(t.Shape)
	outShape := make([]int, rank)
	srcStrides := make([]int, rank)
	for i, p := range perm {
		outShape[i] = t.Shape[p]
		srcStrides[i] = inStrides[p]
	}

	out := New(outShape...)
	if len(out.Data) == 0 {
		return out, nil
	}
	idx := make([]int, rank)
	src := 0
	for dst := range out.Data {
		out.Data[dst] = t.Data[src]
		// odometer increment over the output index, tracking the source offset
		for ax := rank - 1; ax >= 0; ax-- {
			idx[ax]++
			src += srcStrides[ax]
			if idx[ax] < outShape[ax] {
				break
			}
			src -= srcStrides[ax] * outShape[ax]
			idx[ax] = 0
		}
	}
	return out, nil
}

// Map applies f element-wise into a new tensor.
func (t Tensor) Map(f func(float32) float32) Tensor {
	out := Tensor{Shape: append([]int(nil), t.Shape...), Data: make([]float32, len(t.Data))}
	for i, v := range t.Data {
		out.Data[i] = f(v)
	}
	return out
}

// Equal reports whether shapes and data are bit-identical.
func (t Tensor) Equal(o Tensor) bool {
	if !SameShape(t.Shape, o.Shape) || len(t.Data) != len(o.Data) {
		return false
	}
	for i := range t.Data {
		if math.Float32bits(t.Data[i]) != math.Float32bits(o.Data[i]) {
			return false
		}
	}
	return true
}

// SameShape compares two shapes.
func SameShape(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func strides(shape []int) []int {
	s := make([]int, len(shape))
	acc := 1
	for i := len(shape) - 1; i >= 0; i-- {
		s[i] = acc
		acc *= shape[i]
	}
	return s
}
