package opengl

import (
	"testing"

	gl "github.com/go-gl/gl/v4.1-core/gl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"render-core/render"
)

// These tests cover the enum tables only; nothing here needs a context.

func TestDrawModes(t *testing.T) {
	want := map[render.DrawMode]uint32{
		render.Points:                    gl.POINTS,
		render.LinesAdjacency:            gl.LINES_ADJACENCY,
		render.Triangles:                 gl.TRIANGLES,
		render.TrianglesAdjacency:        gl.TRIANGLES_ADJACENCY,
		render.Patches:                   gl.PATCHES,
		render.IndexedTriangles:          gl.TRIANGLES,
		render.Lines:                     gl.LINES,
		render.IndexedLines:              gl.LINES,
		render.IndexedLineStrip:          gl.LINE_STRIP,
		render.IndexedLinesAdjacency:     gl.LINES_ADJACENCY,
		render.IndexedLineStripAdjacency: gl.LINE_STRIP_ADJACENCY,
	}
	for mode, glMode := range want {
		assert.Equal(t, glMode, drawMode(mode), mode.String())
	}
}

func TestShaderTypes(t *testing.T) {
	assert.Equal(t, uint32(gl.VERTEX_SHADER), shaderType(render.VertexStage))
	assert.Equal(t, uint32(gl.TESS_CONTROL_SHADER), shaderType(render.TessellationStage))
	assert.Equal(t, uint32(gl.TESS_EVALUATION_SHADER), shaderType(render.EvaluationStage))
	assert.Equal(t, uint32(gl.GEOMETRY_SHADER), shaderType(render.GeometryStage))
	assert.Equal(t, uint32(gl.FRAGMENT_SHADER), shaderType(render.FragmentStage))
}

func TestTextureFormats(t *testing.T) {
	f, err := textureFormat(render.RGBA32F)
	require.NoError(t, err)
	assert.Equal(t, texFormat{gl.RGBA32F, gl.RGBA, gl.FLOAT}, f)

	f, err = textureFormat(render.R32F)
	require.NoError(t, err)
	assert.Equal(t, uint32(gl.RED), f.format)

	_, err = textureFormat(render.TextureFormat(99))
	assert.Error(t, err)

	assert.Equal(t, uint32(gl.RGB), uploadFormat(render.RGBA8, false))
	assert.Equal(t, uint32(gl.RGBA), uploadFormat(render.RGB8, true))
	assert.Equal(t, uint32(gl.RED), uploadFormat(render.R32F, true))
}

func TestRenderBufferFormats(t *testing.T) {
	f, err := renderBufferFormat(render.Depth)
	require.NoError(t, err)
	assert.Equal(t, uint32(gl.DEPTH_COMPONENT24), f)
	_, err = renderBufferFormat(render.RenderBufferType(7))
	assert.Error(t, err)
}

func TestErrorNames(t *testing.T) {
	assert.Equal(t, "GL_OUT_OF_MEMORY", errorName(gl.OUT_OF_MEMORY))
	assert.Equal(t, "unknown", errorName(0x1234))
}
