package opengl

import (
	"fmt"
	"strings"

	gl "github.com/go-gl/gl/v4.1-core/gl"

	"render-core/render"
)

type attribute struct {
	render.ShaderAttribute
	loc int32
	vbo uint32
}

type sampler struct {
	loc  int32
	unit int
	tex  *texture
}

type program struct {
	dev  *Device
	prog uint32
	vao  uint32
	ebo  uint32

	attributes map[string]*attribute
	uniforms   map[string]int32
	samplers   map[string]*sampler
}

// NewProgram compiles and links the stages. The layout names every
// slot the program exposes; slots the linker optimized out get
// location -1 and are written to as no-ops.
func (d *Device) NewProgram(stages []render.ShaderStageSpecification, layout render.ProgramLayout, mode render.DrawMode, nPatchVertices int) (render.DeviceProgram, error) {
	prog, err := newProgram(stages)
	if err != nil {
		return nil, err
	}
	p := &program{
		dev:        d,
		prog:       prog,
		attributes: map[string]*attribute{},
		uniforms:   map[string]int32{},
		samplers:   map[string]*sampler{},
	}
	gl.GenVertexArrays(1, &p.vao)

	for _, u := range layout.Uniforms {
		p.uniforms[u.Name] = gl.GetUniformLocation(prog, gl.Str(u.Name+"\x00"))
	}
	for _, a := range layout.Attributes {
		loc := gl.GetAttribLocation(prog, gl.Str(a.Name+"\x00"))
		if loc < 0 {
			d.log.WithField("attribute", a.Name).Debug("attribute is inactive")
		}
		p.attributes[a.Name] = &attribute{ShaderAttribute: a, loc: loc}
	}
	for _, t := range layout.Textures {
		p.samplers[t.Name] = &sampler{loc: gl.GetUniformLocation(prog, gl.Str(t.Name+"\x00")), unit: -1}
	}
	return p, nil
}

func (p *program) SetUniform(name string, typ render.DataType, v render.Value) {
	loc, ok := p.uniforms[name]
	if !ok || loc < 0 {
		return
	}
	gl.UseProgram(p.prog)
	f := v.Floats()
	switch typ {
	case render.Float:
		gl.Uniform1f(loc, f[0])
	case render.Int:
		gl.Uniform1i(loc, v.IntValue())
	case render.UInt, render.Index:
		gl.Uniform1ui(loc, v.UIntValue())
	case render.Vector2Float:
		gl.Uniform2fv(loc, 1, &f[0])
	case render.Vector3Float:
		gl.Uniform3fv(loc, 1, &f[0])
	case render.Vector4Float:
		gl.Uniform4fv(loc, 1, &f[0])
	case render.Matrix44Float:
		// mgl32 matrices are column major, as GL expects.
		gl.UniformMatrix4fv(loc, 1, false, &f[0])
	}
}

// AllocAttribute replaces the attribute's buffer storage. Array
// attributes occupy consecutive locations and are stored interleaved,
// one tuple per vertex.
func (p *program) AllocAttribute(name string, typ render.DataType, data []byte) {
	a, ok := p.attributes[name]
	if !ok || a.loc < 0 {
		return
	}
	gl.BindVertexArray(p.vao)
	if a.vbo == 0 {
		gl.GenBuffers(1, &a.vbo)
	}
	gl.BindBuffer(gl.ARRAY_BUFFER, a.vbo)
	if len(data) > 0 {
		gl.BufferData(gl.ARRAY_BUFFER, len(data), gl.Ptr(data), gl.STATIC_DRAW)
	} else {
		gl.BufferData(gl.ARRAY_BUFFER, 0, nil, gl.STATIC_DRAW)
	}

	elem := 4 * typ.Components()
	stride := int32(elem * a.ArrayCount)
	// A mat4 takes four vec4 locations.
	cols, comps := 1, typ.Components()
	if typ == render.Matrix44Float {
		cols, comps = 4, 4
	}
	for i := 0; i < a.ArrayCount; i++ {
		for c := 0; c < cols; c++ {
			loc := uint32(a.loc) + uint32(i*cols+c)
			off := i*elem + c*16
			gl.EnableVertexAttribArray(loc)
			switch typ {
			case render.Int:
				gl.VertexAttribIPointer(loc, 1, gl.INT, stride, gl.PtrOffset(off))
			case render.UInt, render.Index:
				gl.VertexAttribIPointer(loc, 1, gl.UNSIGNED_INT, stride, gl.PtrOffset(off))
			default:
				gl.VertexAttribPointer(loc, int32(comps), gl.FLOAT, false, stride, gl.PtrOffset(off))
			}
		}
	}
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	gl.BindVertexArray(0)
}

func (p *program) UpdateAttribute(name string, byteOffset int, data []byte) {
	a, ok := p.attributes[name]
	if !ok || a.vbo == 0 || len(data) == 0 {
		return
	}
	gl.BindBuffer(gl.ARRAY_BUFFER, a.vbo)
	gl.BufferSubData(gl.ARRAY_BUFFER, byteOffset, len(data), gl.Ptr(data))
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
}

func (p *program) SetTexture(name string, unit int, t render.DeviceTexture) {
	s, ok := p.samplers[name]
	if !ok {
		return
	}
	s.unit = unit
	s.tex = t.(*texture)
	if s.loc >= 0 {
		gl.UseProgram(p.prog)
		gl.Uniform1i(s.loc, int32(unit))
	}
}

func (p *program) SetIndex(indices []uint32) {
	gl.BindVertexArray(p.vao)
	if p.ebo == 0 {
		gl.GenBuffers(1, &p.ebo)
	}
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, p.ebo)
	if len(indices) > 0 {
		gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, 4*len(indices), gl.Ptr(indices), gl.STATIC_DRAW)
	} else {
		gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, 0, nil, gl.STATIC_DRAW)
	}
	gl.BindVertexArray(0)
}

func (p *program) Draw(call render.DrawCall) {
	gl.UseProgram(p.prog)
	for _, s := range p.samplers {
		if s.tex == nil {
			continue
		}
		gl.ActiveTexture(gl.TEXTURE0 + uint32(s.unit))
		gl.BindTexture(s.tex.target, s.tex.id)
	}
	gl.BindVertexArray(p.vao)

	mode := drawMode(call.Mode)
	if call.Mode == render.Patches {
		gl.PatchParameteri(gl.PATCH_VERTICES, int32(call.PatchVertices))
	}
	if call.PrimitiveRestart {
		gl.Enable(gl.PRIMITIVE_RESTART)
		gl.PrimitiveRestartIndex(call.RestartIndex)
	}

	if call.Indexed {
		gl.DrawElements(mode, int32(call.Count), gl.UNSIGNED_INT, nil)
	} else {
		gl.DrawArrays(mode, 0, int32(call.Count))
	}

	if call.PrimitiveRestart {
		gl.Disable(gl.PRIMITIVE_RESTART)
	}
	gl.BindVertexArray(0)
}

func (p *program) Release() {
	for _, a := range p.attributes {
		if a.vbo != 0 {
			gl.DeleteBuffers(1, &a.vbo)
		}
	}
	if p.ebo != 0 {
		gl.DeleteBuffers(1, &p.ebo)
	}
	gl.DeleteVertexArrays(1, &p.vao)
	gl.DeleteProgram(p.prog)
	p.prog = 0
}

func drawMode(m render.DrawMode) uint32 {
	switch m {
	case render.Points:
		return gl.POINTS
	case render.Lines, render.IndexedLines:
		return gl.LINES
	case render.LinesAdjacency, render.IndexedLinesAdjacency:
		return gl.LINES_ADJACENCY
	case render.TrianglesAdjacency:
		return gl.TRIANGLES_ADJACENCY
	case render.IndexedLineStrip:
		return gl.LINE_STRIP
	case render.IndexedLineStripAdjacency:
		return gl.LINE_STRIP_ADJACENCY
	case render.Patches:
		return gl.PATCHES
	}
	return gl.TRIANGLES
}

func shaderType(s render.ShaderStageType) uint32 {
	switch s {
	case render.TessellationStage:
		return gl.TESS_CONTROL_SHADER
	case render.EvaluationStage:
		return gl.TESS_EVALUATION_SHADER
	case render.GeometryStage:
		return gl.GEOMETRY_SHADER
	case render.FragmentStage:
		return gl.FRAGMENT_SHADER
	}
	return gl.VERTEX_SHADER
}

// ── shader helpers ────────────────────────────────────────────────────────────

func newProgram(stages []render.ShaderStageSpecification) (uint32, error) {
	shaders := make([]uint32, 0, len(stages))
	defer func() {
		for _, s := range shaders {
			gl.DeleteShader(s)
		}
	}()
	for _, s := range stages {
		sh, err := compileShader(s.Src+"\x00", shaderType(s.Stage))
		if err != nil {
			return 0, fmt.Errorf("%v: %w", s.Stage, err)
		}
		shaders = append(shaders, sh)
	}

	prog := gl.CreateProgram()
	for _, sh := range shaders {
		gl.AttachShader(prog, sh)
	}
	for _, s := range stages {
		if s.Stage == render.FragmentStage && s.OutputLoc != "" {
			gl.BindFragDataLocation(prog, 0, gl.Str(s.OutputLoc+"\x00"))
		}
	}
	gl.LinkProgram(prog)

	var status int32
	gl.GetProgramiv(prog, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetProgramiv(prog, gl.INFO_LOG_LENGTH, &logLen)
		log := strings.Repeat("\x00", int(logLen+1))
		gl.GetProgramInfoLog(prog, logLen, nil, gl.Str(log))
		gl.DeleteProgram(prog)
		return 0, fmt.Errorf("link failed: %v", log)
	}
	for _, sh := range shaders {
		gl.DetachShader(prog, sh)
	}
	return prog, nil
}

func compileShader(src string, shaderType uint32) (uint32, error) {
	shader := gl.CreateShader(shaderType)
	csrc, free := gl.Strs(src)
	gl.ShaderSource(shader, 1, csrc, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLen)
		log := strings.Repeat("\x00", int(logLen+1))
		gl.GetShaderInfoLog(shader, logLen, nil, gl.Str(log))
		gl.DeleteShader(shader)
		return 0, fmt.Errorf("compile failed: %v", log)
	}
	return shader, nil
}
