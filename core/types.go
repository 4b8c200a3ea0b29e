package core

import (
	glm "github.com/go-gl/mathgl/mgl32"
)

type Color struct {
	R, G, B, A float32
}

var (
	ColorWhite = Color{1, 1, 1, 1}
	ColorBlack = Color{0, 0, 0, 1}
	ColorRed   = Color{1, 0, 0, 1}
	ColorGreen = Color{0, 1, 0, 1}
	ColorBlue  = Color{0, 0, 1, 1}
)

// RGB drops alpha, the form FrameBuffer clear colors take.
func (c Color) RGB() glm.Vec3 { return glm.Vec3{c.R, c.G, c.B} }

type Vertex struct {
	Position glm.Vec3
	Normal   glm.Vec3
	UV       glm.Vec2
}

// MeshData is an indexed triangle mesh as loaded from disk.
type MeshData struct {
	Name     string
	Vertices []Vertex
	Indices  []uint32
}

// Positions returns the vertex positions, ready for render.Vec3Data.
func (m *MeshData) Positions() []glm.Vec3 {
	out := make([]glm.Vec3, len(m.Vertices))
	for i, v := range m.Vertices {
		out[i] = v.Position
	}
	return out
}

// Normals returns the vertex normals.
func (m *MeshData) Normals() []glm.Vec3 {
	out := make([]glm.Vec3, len(m.Vertices))
	for i, v := range m.Vertices {
		out[i] = v.Normal
	}
	return out
}

// Triangles groups the index buffer by triangle. A trailing partial
// triangle is dropped.
func (m *MeshData) Triangles() [][3]uint32 {
	out := make([][3]uint32, 0, len(m.Indices)/3)
	for i := 0; i+2 < len(m.Indices); i += 3 {
		out = append(out, [3]uint32{m.Indices[i], m.Indices[i+1], m.Indices[i+2]})
	}
	return out
}

// Bounds returns the axis-aligned box around the vertices.
func (m *MeshData) Bounds() (min, max glm.Vec3) {
	if len(m.Vertices) == 0 {
		return
	}
	min, max = m.Vertices[0].Position, m.Vertices[0].Position
	for _, v := range m.Vertices[1:] {
		for k := 0; k < 3; k++ {
			if v.Position[k] < min[k] {
				min[k] = v.Position[k]
			}
			if v.Position[k] > max[k] {
				max[k] = v.Position[k]
			}
		}
	}
	return min, max
}

// ComputeNormals sets smooth vertex normals from the triangle faces,
// for meshes stored without them.
func (m *MeshData) ComputeNormals() {
	acc := make([]glm.Vec3, len(m.Vertices))
	for _, t := range m.Triangles() {
		a, b, c := m.Vertices[t[0]].Position, m.Vertices[t[1]].Position, m.Vertices[t[2]].Position
		n := b.Sub(a).Cross(c.Sub(a))
		for _, i := range t {
			acc[i] = acc[i].Add(n)
		}
	}
	for i := range m.Vertices {
		if acc[i].Len() > 0 {
			m.Vertices[i].Normal = acc[i].Normalize()
		}
	}
}

type Transform struct {
	Position glm.Vec3
	Rotation glm.Quat
	Scale    glm.Vec3
}

func NewTransform() Transform {
	return Transform{
		Rotation: glm.QuatIdent(),
		Scale:    glm.Vec3{1, 1, 1},
	}
}

func (t Transform) GetMatrix() glm.Mat4 {
	translation := glm.Translate3D(t.Position[0], t.Position[1], t.Position[2])
	rotation := t.Rotation.Mat4()
	scale := glm.Scale3D(t.Scale[0], t.Scale[1], t.Scale[2])
	return translation.Mul4(rotation).Mul4(scale)
}
