package render

import (
	"fmt"

	glm "github.com/go-gl/mathgl/mgl32"
)

type valueKind int

const (
	kindInvalid valueKind = iota
	kindInt
	kindUInt
	kindFloat
	kindVec2
	kindVec3
	kindVec4
	kindMat4
	kindRaw
)

var valueKindNames = [...]string{
	kindInvalid: "invalid",
	kindInt:     "int",
	kindUInt:    "uint",
	kindFloat:   "float",
	kindVec2:    "vec2",
	kindVec3:    "vec3",
	kindVec4:    "vec4",
	kindMat4:    "mat4",
	kindRaw:     "raw",
}

// Value is a uniform value: one of int, uint, float, vec2, vec3, vec4,
// mat4 or a raw float array. The zero Value is invalid.
type Value struct {
	kind valueKind
	i    int32
	u    uint32
	f    [16]float32
	raw  []float32
}

func IntValue(v int32) Value   { return Value{kind: kindInt, i: v} }
func UIntValue(v uint32) Value { return Value{kind: kindUInt, u: v} }

func FloatValue(v float32) Value {
	val := Value{kind: kindFloat}
	val.f[0] = v
	return val
}

// DoubleValue narrows v to float32. The conversion loses precision.
func DoubleValue(v float64) Value { return FloatValue(float32(v)) }

func Vec2(v glm.Vec2) Value {
	val := Value{kind: kindVec2}
	copy(val.f[:], v[:])
	return val
}

func Vec3(v glm.Vec3) Value {
	val := Value{kind: kindVec3}
	copy(val.f[:], v[:])
	return val
}

func Vec4(v glm.Vec4) Value {
	val := Value{kind: kindVec4}
	copy(val.f[:], v[:])
	return val
}

// XYZW is Vec4 from separate components.
func XYZW(x, y, z, w float32) Value { return Vec4(glm.Vec4{x, y, z, w}) }

// Array3 is Vec3 from a plain array.
func Array3(v [3]float32) Value { return Vec3(glm.Vec3(v)) }

// Mat4 stores m in column-major order.
func Mat4(m glm.Mat4) Value {
	val := Value{kind: kindMat4}
	copy(val.f[:], m[:])
	return val
}

// Raw stores a copy of p. It is accepted by float vector and matrix
// slots whose component count equals len(p).
func Raw(p []float32) Value {
	return Value{kind: kindRaw, raw: append([]float32(nil), p...)}
}

func (v Value) String() string {
	switch v.kind {
	case kindInt:
		return fmt.Sprintf("int(%d)", v.i)
	case kindUInt:
		return fmt.Sprintf("uint(%d)", v.u)
	case kindRaw:
		return fmt.Sprintf("raw%v", v.raw)
	case kindInvalid:
		return "invalid"
	}
	return fmt.Sprintf("%s%v", valueKindNames[v.kind], v.Floats())
}

// Floats returns the float components of v, or nil for integer values.
func (v Value) Floats() []float32 {
	switch v.kind {
	case kindFloat:
		return v.f[:1]
	case kindVec2:
		return v.f[:2]
	case kindVec3:
		return v.f[:3]
	case kindVec4:
		return v.f[:4]
	case kindMat4:
		return v.f[:16]
	case kindRaw:
		return v.raw
	}
	return nil
}

// IntValue returns the value of an Int.
func (v Value) IntValue() int32 { return v.i }

// UIntValue returns the value of a UInt.
func (v Value) UIntValue() uint32 { return v.u }

// Equal reports whether v and o hold the same kind and components.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind || v.i != o.i || v.u != o.u {
		return false
	}
	a, b := v.Floats(), o.Floats()
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

// fits reports whether v can be stored in a slot of type t.
func (v Value) fits(t DataType) bool {
	switch t {
	case Float:
		return v.kind == kindFloat
	case Int:
		return v.kind == kindInt
	case UInt, Index:
		return v.kind == kindUInt
	case Vector2Float:
		return v.kind == kindVec2 || (v.kind == kindRaw && len(v.raw) == 2)
	case Vector3Float:
		return v.kind == kindVec3 || (v.kind == kindRaw && len(v.raw) == 3)
	case Vector4Float:
		return v.kind == kindVec4 || (v.kind == kindRaw && len(v.raw) == 4)
	case Matrix44Float:
		return v.kind == kindMat4 || (v.kind == kindRaw && len(v.raw) == 16)
	}
	return false
}
