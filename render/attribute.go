package render

import (
	"fmt"
	"unsafe"

	glm "github.com/go-gl/mathgl/mgl32"
)

// AttributeData is per-vertex data for one attribute slot, stored as
// the flat byte image the device receives. Values are packed as 32-bit
// components in host byte order.
type AttributeData struct {
	typ   DataType
	n     int
	width int
	bytes []byte
}

// AttributeElement lists the element types attribute data can be built from.
type AttributeElement interface {
	glm.Vec2 | glm.Vec3 | glm.Vec4 | glm.Mat4 | float32 | float64 | int32 | uint32
}

func Vec2Data(v []glm.Vec2) AttributeData { return packed(Vector2Float, v) }
func Vec3Data(v []glm.Vec3) AttributeData { return packed(Vector3Float, v) }
func Vec4Data(v []glm.Vec4) AttributeData { return packed(Vector4Float, v) }
func Mat4Data(v []glm.Mat4) AttributeData { return packed(Matrix44Float, v) }
func FloatData(v []float32) AttributeData { return packed(Float, v) }
func IntData(v []int32) AttributeData     { return packed(Int, v) }
func UIntData(v []uint32) AttributeData   { return packed(UInt, v) }

// DoubleData narrows v to float32 for a Float slot. Precision is lost.
func DoubleData(v []float64) AttributeData {
	f := make([]float32, len(v))
	for i := range v {
		f[i] = float32(v[i])
	}
	return FloatData(f)
}

// Tuples flattens fixed-width tuples into one interleaved sequence:
// tuple 0's elements, then tuple 1's, and so on. It is meant for
// array-valued inputs; the tuple width must equal the slot's ArrayCount.
func Tuples[T AttributeElement](tuples [][]T) (AttributeData, error) {
	width := 0
	if len(tuples) > 0 {
		width = len(tuples[0])
	}
	flat := make([]T, 0, width*len(tuples))
	for i, t := range tuples {
		if len(t) != width {
			return AttributeData{}, fmt.Errorf("%w: tuple %d has width %d, want %d", ErrUsage, i, len(t), width)
		}
		flat = append(flat, t...)
	}
	d := dataOf(flat)
	d.width = width
	return d, nil
}

func dataOf[T AttributeElement](s []T) AttributeData {
	switch v := any(s).(type) {
	case []glm.Vec2:
		return Vec2Data(v)
	case []glm.Vec3:
		return Vec3Data(v)
	case []glm.Vec4:
		return Vec4Data(v)
	case []glm.Mat4:
		return Mat4Data(v)
	case []float32:
		return FloatData(v)
	case []float64:
		return DoubleData(v)
	case []int32:
		return IntData(v)
	case []uint32:
		return UIntData(v)
	}
	panic("unreachable")
}

func packed[T any](typ DataType, s []T) AttributeData {
	return AttributeData{typ: typ, n: len(s), bytes: sliceBytes(s)}
}

// sliceBytes copies the memory of s into a new byte slice.
func sliceBytes[T any](s []T) []byte {
	if len(s) == 0 {
		return nil
	}
	var zero T
	size := len(s) * int(unsafe.Sizeof(zero))
	out := make([]byte, size)
	copy(out, unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(s))), size))
	return out
}

// Type returns the slot type the data is meant for.
func (d AttributeData) Type() DataType { return d.typ }

// Len returns the number of elements (one vec3 is one element).
func (d AttributeData) Len() int { return d.n }

// TupleWidth returns the tuple width for data built by Tuples, else 0.
func (d AttributeData) TupleWidth() int { return d.width }

// Bytes returns the packed data.
func (d AttributeData) Bytes() []byte { return d.bytes }

func (d AttributeData) elemSize() int { return 4 * d.typ.Components() }

// fits reports whether the data can be stored in an attribute of type t.
func (d AttributeData) fits(t DataType) bool {
	if t == Index {
		return d.typ == UInt
	}
	return d.typ == t
}

// AttributeOption configures SetAttribute.
type AttributeOption func(*attributeWrite)

type attributeWrite struct {
	update bool
	offset int
	size   int
}

// Update writes into the existing allocation instead of replacing it.
// The first size elements of the data are written at element offset;
// a negative size writes all of the data.
func Update(offset, size int) AttributeOption {
	return func(w *attributeWrite) {
		w.update = true
		w.offset = offset
		w.size = size
	}
}
