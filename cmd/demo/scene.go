package main

import (
	"fmt"
	"math"

	glm "github.com/go-gl/mathgl/mgl32"

	"render-core/core"
	"render-core/render"
)

const meshVertSrc = `#version 410 core
in vec3 a_position;
in vec3 a_normal;
in vec2 a_uv;
uniform mat4 u_viewProj;
out vec3 v_normal;
out vec2 v_uv;
void main() {
    v_normal = a_normal;
    v_uv = a_uv;
    gl_Position = u_viewProj * vec4(a_position, 1.0);
}
`

const meshFragSrc = `#version 410 core
#include "color"
in vec3 v_normal;
in vec2 v_uv;
uniform vec3 u_color;
uniform vec3 u_lightDir;
uniform vec3 u_lightColor;
uniform vec3 u_ambient;
uniform sampler2D t_albedo;
out vec4 outputF;
void main() {
    vec3 albedo = srgbToLinear(texture(t_albedo, v_uv).rgb) * u_color;
    float diffuse = max(dot(normalize(v_normal), normalize(u_lightDir)), 0.0);
    outputF = vec4(albedo * (u_ambient + diffuse * u_lightColor), 1.0);
}
`

func meshStages() []render.ShaderStageSpecification {
	return []render.ShaderStageSpecification{
		{
			Stage: render.VertexStage,
			Attributes: []render.ShaderAttribute{
				{Name: "a_position", Type: render.Vector3Float},
				{Name: "a_normal", Type: render.Vector3Float},
				{Name: "a_uv", Type: render.Vector2Float},
			},
			Uniforms: []render.ShaderUniform{{Name: "u_viewProj", Type: render.Matrix44Float}},
			Src:      meshVertSrc,
		},
		{
			Stage: render.FragmentStage,
			Uniforms: []render.ShaderUniform{
				{Name: "u_color", Type: render.Vector3Float},
				{Name: "u_lightDir", Type: render.Vector3Float},
				{Name: "u_lightColor", Type: render.Vector3Float},
				{Name: "u_ambient", Type: render.Vector3Float},
			},
			Textures:  []render.ShaderTexture{{Name: "t_albedo", Dim: 2}},
			OutputLoc: "outputF",
			Src:       meshFragSrc,
		},
	}
}

// meshPass draws one textured, lit mesh into the GBuffer.
type meshPass struct {
	program render.ShaderProgram
	center  glm.Vec3
	radius  float32
}

func newMeshPass(e *render.Engine, mesh *core.MeshData, albedo render.TextureBuffer, tint core.Color) (*meshPass, error) {
	if len(mesh.Indices) == 0 {
		return nil, fmt.Errorf("mesh %q has no triangles", mesh.Name)
	}
	p, err := e.GenerateShaderProgram(meshStages(), render.IndexedTriangles, -1)
	if err != nil {
		return nil, err
	}
	pass := &meshPass{program: p}
	if err := pass.upload(mesh, albedo, tint); err != nil {
		p.Release()
		return nil, err
	}
	return pass, nil
}

func (m *meshPass) upload(mesh *core.MeshData, albedo render.TextureBuffer, tint core.Color) error {
	uvs := make([]glm.Vec2, len(mesh.Vertices))
	for i, v := range mesh.Vertices {
		uvs[i] = v.UV
	}
	for name, data := range map[string]render.AttributeData{
		"a_position": render.Vec3Data(mesh.Positions()),
		"a_normal":   render.Vec3Data(mesh.Normals()),
		"a_uv":       render.Vec2Data(uvs),
	} {
		if err := m.program.SetAttribute(name, data); err != nil {
			return err
		}
	}
	if err := m.program.SetIndex(mesh.Indices); err != nil {
		return err
	}
	if err := m.program.SetTexture("t_albedo", albedo); err != nil {
		return err
	}
	if err := m.program.SetUniform("u_color", render.Vec3(tint.RGB())); err != nil {
		return err
	}

	lo, hi := mesh.Bounds()
	m.center = lo.Add(hi).Mul(0.5)
	m.radius = max(hi.Sub(lo).Len()*0.5, 0.01)
	return nil
}

// SetLight sets the directional light and ambient term.
func (m *meshPass) SetLight(dir, color, ambient glm.Vec3) error {
	for name, v := range map[string]glm.Vec3{
		"u_lightDir":   dir,
		"u_lightColor": color,
		"u_ambient":    ambient,
	} {
		if err := m.program.SetUniform(name, render.Vec3(v)); err != nil {
			return err
		}
	}
	return nil
}

// orbit returns the view-projection of a camera circling the mesh at
// angle (radians), slightly above it.
func (m *meshPass) orbit(angle, aspect float32) glm.Mat4 {
	dist := m.radius * 3
	eye := m.center.Add(glm.Vec3{
		dist * float32(math.Sin(float64(angle))),
		m.radius * 0.8,
		dist * float32(math.Cos(float64(angle))),
	})
	view := glm.LookAtV(eye, m.center, glm.Vec3{0, 1, 0})
	proj := glm.Perspective(glm.DegToRad(45), aspect, dist*0.05, dist*4)
	return proj.Mul4(view)
}

func (m *meshPass) SetViewProj(vp glm.Mat4) error {
	return m.program.SetUniform("u_viewProj", render.Mat4(vp))
}

func (m *meshPass) Draw() error { return m.program.Draw() }

func (m *meshPass) Release() { m.program.Release() }

// quadMesh is the mesh shown when no model is configured: a unit quad
// in the XY plane facing +Z.
func quadMesh() *core.MeshData {
	n := glm.Vec3{0, 0, 1}
	return &core.MeshData{
		Name: "quad",
		Vertices: []core.Vertex{
			{Position: glm.Vec3{-0.5, -0.5, 0}, Normal: n, UV: glm.Vec2{0, 0}},
			{Position: glm.Vec3{0.5, -0.5, 0}, Normal: n, UV: glm.Vec2{1, 0}},
			{Position: glm.Vec3{0.5, 0.5, 0}, Normal: n, UV: glm.Vec2{1, 1}},
			{Position: glm.Vec3{-0.5, 0.5, 0}, Normal: n, UV: glm.Vec2{0, 1}},
		},
		Indices: []uint32{0, 1, 2, 0, 2, 3},
	}
}
