package render_test

import (
	"errors"
	"testing"

	glm "github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"render-core/render"
)

var triangle = []glm.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}

func TestTriangleDraw(t *testing.T) {
	e, dev := newEngine(t)
	p, err := e.GenerateShaderProgram(triangleStages(), render.Triangles, -1)
	require.NoError(t, err)
	defer p.Release()

	require.NoError(t, p.SetAttribute("position", render.Vec3Data(triangle)))
	require.NoError(t, p.SetUniform("color", render.Vec3(glm.Vec3{1, 0, 0})))
	require.NoError(t, p.ValidateData())

	before := len(dev.Draws)
	require.NoError(t, p.Draw())
	require.Len(t, dev.Draws, before+1)

	call := dev.Draws[len(dev.Draws)-1].Call
	assert.Equal(t, render.Triangles, call.Mode)
	assert.Equal(t, 3, call.Count)
	assert.Equal(t, 1, call.Primitives())
	assert.False(t, call.Indexed)
	assert.Nil(t, lastProgram(dev).Indices)
}

func TestValidateNamesUnsetUniform(t *testing.T) {
	e, dev := newEngine(t)
	p, err := e.GenerateShaderProgram(triangleStages(), render.Triangles, -1)
	require.NoError(t, err)
	defer p.Release()

	require.NoError(t, p.SetAttribute("position", render.Vec3Data(triangle)))

	err = p.ValidateData()
	require.ErrorIs(t, err, render.ErrValidation)
	var verr *render.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "color", verr.Slot)

	before := len(dev.Draws)
	err = p.Draw()
	assert.ErrorIs(t, err, render.ErrValidation)
	assert.Len(t, dev.Draws, before, "a failed validation must not draw")
}

func TestValidateIffAllSlotsFilled(t *testing.T) {
	e, _ := newEngine(t)
	stages := triangleStages()
	stages[0].Attributes = append(stages[0].Attributes, render.ShaderAttribute{Name: "value", Type: render.Float})
	stages[1].Textures = []render.ShaderTexture{{Name: "t_ramp", Dim: 1}}
	p, err := e.GenerateShaderProgram(stages, render.Triangles, -1)
	require.NoError(t, err)
	defer p.Release()

	ramp, err := e.GenerateTextureBuffer1D(render.RGB8, 4, nil)
	require.NoError(t, err)
	defer ramp.Release()

	steps := []struct {
		name    string
		fill    func() error
		missing string
	}{
		{"nothing", func() error { return nil }, "color"},
		{"uniform", func() error { return p.SetUniform("color", render.Vec3(glm.Vec3{1, 1, 1})) }, "position"},
		{"position", func() error { return p.SetAttribute("position", render.Vec3Data(triangle)) }, "value"},
		{"value", func() error { return p.SetAttribute("value", render.FloatData([]float32{1, 2, 3})) }, "t_ramp"},
		{"texture", func() error { return p.SetTexture("t_ramp", ramp) }, ""},
	}
	for _, s := range steps {
		require.NoError(t, s.fill(), s.name)
		err := p.ValidateData()
		if s.missing == "" {
			assert.NoError(t, err, s.name)
			continue
		}
		var verr *render.ValidationError
		require.True(t, errors.As(err, &verr), s.name)
		assert.Equal(t, s.missing, verr.Slot, s.name)
	}
}

func TestAttributeLengthMismatchBlocksDraw(t *testing.T) {
	e, dev := newEngine(t)
	stages := triangleStages()
	stages[0].Attributes = append(stages[0].Attributes, render.ShaderAttribute{Name: "normal", Type: render.Vector3Float})
	p, err := e.GenerateShaderProgram(stages, render.Triangles, -1)
	require.NoError(t, err)
	defer p.Release()

	require.NoError(t, p.SetUniform("color", render.Vec3(glm.Vec3{0, 0, 1})))
	require.NoError(t, p.SetAttribute("position", render.Vec3Data(triangle)))
	require.NoError(t, p.SetAttribute("normal", render.Vec3Data(triangle[:2])))

	before := len(dev.Draws)
	var verr *render.ValidationError
	err = p.Draw()
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "normal", verr.Slot)
	assert.Equal(t, "position", verr.Other)
	assert.Len(t, dev.Draws, before)
}

func TestArrayAttributeCount(t *testing.T) {
	e, _ := newEngine(t)
	stages := triangleStages()
	stages[0].Attributes = append(stages[0].Attributes,
		render.ShaderAttribute{Name: "cornerVals", Type: render.Float, ArrayCount: 3})
	p, err := e.GenerateShaderProgram(stages, render.Triangles, -1)
	require.NoError(t, err)
	defer p.Release()

	tuples := [][]float32{{1, 2, 3}, {4, 5, 6}, {7, 8, 9}}
	data, err := render.Tuples(tuples)
	require.NoError(t, err)
	assert.Equal(t, 9, data.Len())
	assert.Equal(t, 3, data.TupleWidth())

	require.NoError(t, p.SetAttribute("cornerVals", data))
	assert.Equal(t, len(tuples)*3, p.AttributeSize("cornerVals"))

	require.NoError(t, p.SetAttribute("position", render.Vec3Data(triangle)))
	require.NoError(t, p.SetUniform("color", render.Vec3(glm.Vec3{})))
	assert.NoError(t, p.ValidateData(), "3 tuples of 3 match 3 positions")

	wrong, err := render.Tuples([][]float32{{1, 2}, {3, 4}})
	require.NoError(t, err)
	assert.ErrorIs(t, p.SetAttribute("cornerVals", wrong), render.ErrTypeMismatch)

	_, err = render.Tuples([][]float32{{1, 2}, {3}})
	assert.ErrorIs(t, err, render.ErrUsage)
}

func TestMatrixAttribute(t *testing.T) {
	e, dev := newEngine(t)
	stages := triangleStages()
	stages[0].Attributes = append(stages[0].Attributes,
		render.ShaderAttribute{Name: "model", Type: render.Matrix44Float})
	p, err := e.GenerateShaderProgram(stages, render.Triangles, -1)
	require.NoError(t, err)
	defer p.Release()

	models := []glm.Mat4{glm.Ident4(), glm.Translate3D(1, 0, 0), glm.Scale3D(2, 2, 2)}
	data := render.Mat4Data(models)
	assert.Equal(t, render.Matrix44Float, data.Type())
	assert.Len(t, data.Bytes(), 3*64)

	assert.ErrorIs(t, p.SetAttribute("model", render.Vec4Data(make([]glm.Vec4, 3))), render.ErrTypeMismatch)
	require.NoError(t, p.SetAttribute("model", data))
	require.NoError(t, p.SetAttribute("position", render.Vec3Data(triangle)))
	require.NoError(t, p.SetUniform("color", render.Vec3(glm.Vec3{})))
	require.NoError(t, p.ValidateData())
	require.NoError(t, p.Draw())

	prog := lastProgram(dev)
	assert.Equal(t, render.Matrix44Float, prog.AttributeTypes["model"])
	assert.Equal(t, data.Bytes(), prog.Attributes["model"])
}

func TestTuplesInterleave(t *testing.T) {
	data, err := render.Tuples([][]uint32{{1, 2}, {3, 4}})
	require.NoError(t, err)
	assert.Equal(t, render.UIntData([]uint32{1, 2, 3, 4}).Bytes(), data.Bytes())
}

func TestUniformTypeMismatchKeepsValue(t *testing.T) {
	e, dev := newEngine(t)
	p, err := e.GenerateShaderProgram(triangleStages(), render.Triangles, -1)
	require.NoError(t, err)
	defer p.Release()
	dp := lastProgram(dev)

	red := render.Vec3(glm.Vec3{1, 0, 0})
	require.NoError(t, p.SetUniform("color", red))

	for _, v := range []render.Value{
		render.FloatValue(1),
		render.Vec4(glm.Vec4{1, 0, 0, 1}),
		render.IntValue(3),
		render.Raw([]float32{1, 2}),
	} {
		assert.ErrorIs(t, p.SetUniform("color", v), render.ErrTypeMismatch, v.String())
		assert.True(t, red.Equal(dp.Uniforms["color"]))
	}

	assert.NoError(t, p.SetUniform("color", render.Raw([]float32{0, 1, 0})))
	assert.NoError(t, p.SetUniform("color", render.Array3([3]float32{0, 0, 1})))
	assert.ErrorIs(t, p.SetUniform("missing", red), render.ErrUnknownSlot)
}

func TestAttributeUpdateRoundTrip(t *testing.T) {
	e, dev := newEngine(t)

	direct, err := e.GenerateShaderProgram(triangleStages(), render.Triangles, -1)
	require.NoError(t, err)
	defer direct.Release()
	require.NoError(t, direct.SetAttribute("position", render.Vec3Data(triangle)))
	want := lastProgram(dev).Attributes["position"]

	p, err := e.GenerateShaderProgram(triangleStages(), render.Triangles, -1)
	require.NoError(t, err)
	defer p.Release()
	dp := lastProgram(dev)

	require.NoError(t, p.SetAttribute("position", render.Vec3Data(triangle)))
	require.NoError(t, p.SetAttribute("position", render.Vec3Data(triangle), render.Update(0, len(triangle))))
	assert.Equal(t, want, dp.Attributes["position"])
	assert.Equal(t, 1, dp.Allocations)
	assert.Equal(t, 3, p.AttributeSize("position"))
}

func TestAttributeUpdateSubRange(t *testing.T) {
	e, dev := newEngine(t)
	p, err := e.GenerateShaderProgram(triangleStages(), render.Triangles, -1)
	require.NoError(t, err)
	defer p.Release()
	dp := lastProgram(dev)

	err = p.SetAttribute("position", render.Vec3Data(triangle), render.Update(0, -1))
	assert.ErrorIs(t, err, render.ErrNotAllocated)

	require.NoError(t, p.SetAttribute("position", render.Vec3Data(triangle)))
	moved := []glm.Vec3{{5, 5, 5}}
	require.NoError(t, p.SetAttribute("position", render.Vec3Data(moved), render.Update(2, -1)))

	want := render.Vec3Data([]glm.Vec3{{0, 0, 0}, {1, 0, 0}, {5, 5, 5}}).Bytes()
	assert.Equal(t, want, dp.Attributes["position"])

	err = p.SetAttribute("position", render.Vec3Data(triangle), render.Update(1, -1))
	assert.ErrorIs(t, err, render.ErrOutOfBounds, "updates never grow the allocation")
	err = p.SetAttribute("position", render.Vec3Data(moved), render.Update(0, 2))
	assert.ErrorIs(t, err, render.ErrOutOfBounds)
	assert.Equal(t, 3, p.AttributeSize("position"))
}

func TestAttributeTypeMismatch(t *testing.T) {
	e, _ := newEngine(t)
	p, err := e.GenerateShaderProgram(triangleStages(), render.Triangles, -1)
	require.NoError(t, err)
	defer p.Release()

	err = p.SetAttribute("position", render.Vec2Data([]glm.Vec2{{0, 0}}))
	assert.ErrorIs(t, err, render.ErrTypeMismatch)
	assert.Equal(t, -1, p.AttributeSize("position"))
	assert.ErrorIs(t, p.SetAttribute("nope", render.FloatData(nil)), render.ErrUnknownSlot)
}

func TestConstructionErrors(t *testing.T) {
	e, _ := newEngine(t)

	conflicting := triangleStages()
	conflicting[1].Uniforms = append(conflicting[1].Uniforms, render.ShaderUniform{Name: "color", Type: render.Vector4Float})
	duplicated := triangleStages()
	duplicated[1].Stage = render.VertexStage
	broken := triangleStages()
	broken[1].Src = "#version 410 core\n"
	unknownInclude := triangleStages()
	unknownInclude[1].Src = "#version 410 core\n#include \"nope\"\nvoid main() {}\n"
	badTexture := triangleStages()
	badTexture[1].Textures = []render.ShaderTexture{{Name: "t", Dim: 3}}

	tests := []struct {
		name   string
		stages []render.ShaderStageSpecification
		mode   render.DrawMode
		patch  int
	}{
		{"conflicting uniform", conflicting, render.Triangles, -1},
		{"duplicate stage", duplicated, render.Triangles, -1},
		{"compile failure", broken, render.Triangles, -1},
		{"unknown include", unknownInclude, render.Triangles, -1},
		{"bad texture dim", badTexture, render.Triangles, -1},
		{"no stages", nil, render.Triangles, -1},
		{"patches without count", triangleStages(), render.Patches, -1},
		{"invalid mode", triangleStages(), render.DrawMode(42), -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.GenerateShaderProgram(tt.stages, tt.mode, tt.patch)
			assert.ErrorIs(t, err, render.ErrConstruction)
		})
	}
}

func TestLayoutDeduplicates(t *testing.T) {
	e, dev := newEngine(t)
	stages := triangleStages()
	stages[1].Uniforms = append(stages[1].Uniforms, render.ShaderUniform{Name: "u_scale", Type: render.Float})
	stages[0].Uniforms = []render.ShaderUniform{{Name: "u_scale", Type: render.Float}}
	p, err := e.GenerateShaderProgram(stages, render.Points, -1)
	require.NoError(t, err)
	defer p.Release()

	layout := lastProgram(dev).Layout
	assert.Len(t, layout.Uniforms, 2)
	assert.True(t, p.HasUniform("u_scale"))
	assert.True(t, p.HasAttribute("position"))
	assert.False(t, p.HasAttribute("color"))
	assert.False(t, p.HasTexture("color"))
}

func TestIncludeExpansion(t *testing.T) {
	e, dev := newEngine(t)
	stages := triangleStages()
	stages[1].Src = "#version 410 core\n#include \"color\"\nuniform vec3 color;\nout vec4 o;\nvoid main() { o = vec4(color * luminance(color), 1.0); }\n"
	p, err := e.GenerateShaderProgram(stages, render.Triangles, -1)
	require.NoError(t, err)
	defer p.Release()

	src := lastProgram(dev).Stages[1].Src
	assert.Contains(t, src, "float luminance(vec3 c)")
	assert.NotContains(t, src, "#include")
}

func TestIndexedDraw(t *testing.T) {
	e, dev := newEngine(t)
	p, err := e.GenerateShaderProgram(triangleStages(), render.IndexedTriangles, -1)
	require.NoError(t, err)
	defer p.Release()

	quad := []glm.Vec3{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}}
	require.NoError(t, p.SetAttribute("position", render.Vec3Data(quad)))
	require.NoError(t, p.SetUniform("color", render.Vec3(glm.Vec3{1, 1, 1})))

	var verr *render.ValidationError
	require.True(t, errors.As(p.ValidateData(), &verr))
	assert.Equal(t, "index", verr.Slot)

	require.NoError(t, p.SetIndexTriangles([][3]uint32{{0, 1, 2}, {0, 2, 4}}))
	require.True(t, errors.As(p.ValidateData(), &verr), "index 4 addresses a missing vertex")

	require.NoError(t, p.SetIndexTriangles([][3]uint32{{0, 1, 2}, {0, 2, 3}}))
	require.NoError(t, p.Draw())

	call := dev.Draws[len(dev.Draws)-1].Call
	assert.True(t, call.Indexed)
	assert.Equal(t, 6, call.Count)
	assert.Equal(t, 2, call.Primitives())
	assert.Equal(t, []uint32{0, 1, 2, 0, 2, 3}, lastProgram(dev).Indices)
}

func TestSetIndexSwitchesToIndexedDraw(t *testing.T) {
	e, dev := newEngine(t)
	p, err := e.GenerateShaderProgram(triangleStages(), render.Triangles, -1)
	require.NoError(t, err)
	defer p.Release()

	require.NoError(t, p.SetAttribute("position", render.Vec3Data(triangle)))
	require.NoError(t, p.SetUniform("color", render.Vec3(glm.Vec3{1, 1, 1})))
	require.NoError(t, p.SetIndex([]uint32{2, 1, 0}))
	require.NoError(t, p.Draw())

	call := dev.Draws[len(dev.Draws)-1].Call
	assert.True(t, call.Indexed)
	assert.Equal(t, render.Triangles, call.Mode)
}

func TestPrimitiveRestart(t *testing.T) {
	e, dev := newEngine(t)

	tri, err := e.GenerateShaderProgram(triangleStages(), render.Triangles, -1)
	require.NoError(t, err)
	defer tri.Release()
	assert.ErrorIs(t, tri.SetPrimitiveRestartIndex(0xFFFFFFFF), render.ErrUsage)

	strip, err := e.GenerateShaderProgram(triangleStages(), render.IndexedLineStrip, -1)
	require.NoError(t, err)
	defer strip.Release()
	require.NoError(t, strip.SetAttribute("position", render.Vec3Data(triangle)))
	require.NoError(t, strip.SetUniform("color", render.Vec3(glm.Vec3{1, 1, 1})))
	require.NoError(t, strip.SetIndex([]uint32{0, 1, 0xFFFFFFFF, 1, 2}))

	var verr *render.ValidationError
	require.True(t, errors.As(strip.ValidateData(), &verr))
	assert.Equal(t, "primitive restart index", verr.Slot)

	require.NoError(t, strip.SetPrimitiveRestartIndex(0xFFFFFFFF))
	require.NoError(t, strip.Draw())
	call := dev.Draws[len(dev.Draws)-1].Call
	assert.True(t, call.PrimitiveRestart)
	assert.Equal(t, uint32(0xFFFFFFFF), call.RestartIndex)
	assert.Equal(t, 5, call.Count)
}

func TestPatches(t *testing.T) {
	e, dev := newEngine(t)
	stages := append(triangleStages(), render.ShaderStageSpecification{
		Stage: render.TessellationStage,
		Src:   "#version 410 core\nlayout(vertices = 3) out;\nvoid main() {}\n",
	})
	p, err := e.GenerateShaderProgram(stages, render.Patches, 3)
	require.NoError(t, err)
	defer p.Release()

	require.NoError(t, p.SetAttribute("position", render.Vec3Data(append(triangle, triangle...))))
	require.NoError(t, p.SetUniform("color", render.Vec3(glm.Vec3{1, 1, 1})))
	require.NoError(t, p.Draw())

	call := dev.Draws[len(dev.Draws)-1].Call
	assert.Equal(t, 3, call.PatchVertices)
	assert.Equal(t, 2, call.Primitives())
}

func TestTextureSlot(t *testing.T) {
	e, dev := newEngine(t)
	stages := triangleStages()
	stages[1].Textures = []render.ShaderTexture{{Name: "t_a", Dim: 2}, {Name: "t_b", Dim: 2}}
	p, err := e.GenerateShaderProgram(stages, render.Triangles, -1)
	require.NoError(t, err)
	dp := lastProgram(dev)

	tex1D, err := e.GenerateTextureBuffer1D(render.RGBA8, 2, nil)
	require.NoError(t, err)
	defer tex1D.Release()
	assert.ErrorIs(t, p.SetTexture("t_a", tex1D), render.ErrTypeMismatch)

	tex, err := e.GenerateTextureBuffer2D(render.RGBA8, 2, 2, nil)
	require.NoError(t, err)
	require.NoError(t, p.SetTexture("t_b", tex))
	assert.Equal(t, 1, dp.Units["t_b"])
	assert.Equal(t, 2, tex.RefCount())

	tex.Release()
	assert.Equal(t, 1, tex.RefCount(), "program still holds the texture")
	p.Release()
	assert.Equal(t, 0, tex.RefCount())
	assert.True(t, dp.Released)
}
