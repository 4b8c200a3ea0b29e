package main

import (
	glm "github.com/go-gl/mathgl/mgl32"

	"render-core/core"
	"render-core/render"
)

const lineVertSrc = `#version 410 core
in vec3 a_position;
in vec3 a_color;
uniform mat4 u_viewProj;
out vec3 v_color;
void main() {
    v_color = a_color;
    gl_Position = u_viewProj * vec4(a_position, 1.0);
}
`

const lineFragSrc = `#version 410 core
in vec3 v_color;
out vec4 outputF;
void main() {
    outputF = vec4(v_color, 1.0);
}
`

func lineStages() []render.ShaderStageSpecification {
	return []render.ShaderStageSpecification{
		{
			Stage: render.VertexStage,
			Attributes: []render.ShaderAttribute{
				{Name: "a_position", Type: render.Vector3Float},
				{Name: "a_color", Type: render.Vector3Float},
			},
			Uniforms: []render.ShaderUniform{{Name: "u_viewProj", Type: render.Matrix44Float}},
			Src:      lineVertSrc,
		},
		{
			Stage:     render.FragmentStage,
			OutputLoc: "outputF",
			Src:       lineFragSrc,
		},
	}
}

// lineSet is an unlit, per-vertex colored set of line segments.
type lineSet struct {
	positions []glm.Vec3
	colors    []glm.Vec3
	indices   []uint32
}

func (l *lineSet) add(a, b glm.Vec3, c core.Color) {
	base := uint32(len(l.positions))
	l.positions = append(l.positions, a, b)
	l.colors = append(l.colors, c.RGB(), c.RGB())
	l.indices = append(l.indices, base, base+1)
}

// addGrid adds a flat grid at height y spanning -size/2..size/2 in X
// and Z. The line through x=0 is blue and the one through z=0 red.
func (l *lineSet) addGrid(size, y float32, divisions int) {
	if divisions < 1 {
		divisions = 1
	}
	half := size / 2
	step := size / float32(divisions)

	gray := core.Color{R: 0.35, G: 0.35, B: 0.35, A: 1}
	red := core.Color{R: 0.8, G: 0.15, B: 0.15, A: 1}
	blue := core.Color{R: 0.15, G: 0.35, B: 0.9, A: 1}

	for i := 0; i <= divisions; i++ {
		x := -half + float32(i)*step
		c := gray
		if i == divisions/2 {
			c = blue
		}
		l.add(glm.Vec3{x, y, -half}, glm.Vec3{x, y, half}, c)
	}
	for i := 0; i <= divisions; i++ {
		z := -half + float32(i)*step
		c := gray
		if i == divisions/2 {
			c = red
		}
		l.add(glm.Vec3{-half, y, z}, glm.Vec3{half, y, z}, c)
	}
}

// addBox adds the twelve edges of the box lo..hi.
func (l *lineSet) addBox(lo, hi glm.Vec3, c core.Color) {
	corner := func(i int) glm.Vec3 {
		p := lo
		if i&1 != 0 {
			p[0] = hi[0]
		}
		if i&2 != 0 {
			p[1] = hi[1]
		}
		if i&4 != 0 {
			p[2] = hi[2]
		}
		return p
	}
	for i := 0; i < 8; i++ {
		for _, bit := range []int{1, 2, 4} {
			if i&bit == 0 {
				l.add(corner(i), corner(i|bit), c)
			}
		}
	}
}

// gridPass draws a ground grid under the mesh and its bounding box.
type gridPass struct {
	program render.ShaderProgram
	lines   int
}

func newGridPass(e *render.Engine, mesh *core.MeshData) (*gridPass, error) {
	lo, hi := mesh.Bounds()
	extent := max(hi[0]-lo[0], hi[2]-lo[2], 1)

	var l lineSet
	l.addGrid(extent*2, lo[1], 10)
	l.addBox(lo, hi, core.Color{R: 0.1, G: 0.95, B: 0.1, A: 1})

	p, err := e.GenerateShaderProgram(lineStages(), render.IndexedLines, -1)
	if err != nil {
		return nil, err
	}
	g := &gridPass{program: p, lines: len(l.indices) / 2}
	err = p.SetAttribute("a_position", render.Vec3Data(l.positions))
	if err == nil {
		err = p.SetAttribute("a_color", render.Vec3Data(l.colors))
	}
	if err == nil {
		err = p.SetIndex(l.indices)
	}
	if err != nil {
		p.Release()
		return nil, err
	}
	return g, nil
}

func (g *gridPass) SetViewProj(m glm.Mat4) error {
	return g.program.SetUniform("u_viewProj", render.Mat4(m))
}

func (g *gridPass) Draw() error { return g.program.Draw() }

func (g *gridPass) Release() { g.program.Release() }
