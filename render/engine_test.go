package render_test

import (
	"errors"
	"testing"

	glm "github.com/go-gl/mathgl/mgl32"
	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"render-core/headless"
	"render-core/render"
)

func TestFactoriesNeedInitialize(t *testing.T) {
	e := render.NewEngine(headless.New(), render.WithLogger(quietLogger()))

	_, err := e.GenerateTextureBuffer2D(render.RGB8, 2, 2, nil)
	assert.ErrorIs(t, err, render.ErrNotInitialized)
	_, err = e.GenerateTextureBuffer1D(render.RGB8, 2, nil)
	assert.ErrorIs(t, err, render.ErrNotInitialized)
	_, err = e.GenerateRenderBuffer(render.Depth, 2, 2)
	assert.ErrorIs(t, err, render.ErrNotInitialized)
	_, err = e.GenerateFrameBuffer()
	assert.ErrorIs(t, err, render.ErrNotInitialized)
	_, err = e.GenerateShaderProgram(triangleStages(), render.Triangles, -1)
	assert.ErrorIs(t, err, render.ErrNotInitialized)
	assert.ErrorIs(t, e.ClearGBuffer(), render.ErrNotInitialized)
	assert.ErrorIs(t, e.Resize(4, 4), render.ErrNotInitialized)
}

func TestBufferAccessorsNilOutsideLifetime(t *testing.T) {
	e := render.NewEngine(headless.New(), render.WithLogger(quietLogger()), render.WithOptions(testOptions()))
	assert.Nil(t, e.GBuffer())
	assert.Nil(t, e.SceneBuffer())
	assert.Nil(t, e.DisplayBuffer())

	require.NoError(t, e.Initialize())
	require.NotNil(t, e.GBuffer())
	assert.True(t, e.GBuffer().BindForRendering())
	assert.NotNil(t, e.SceneBuffer())
	assert.NotNil(t, e.DisplayBuffer())

	e.Destroy()
	assert.Nil(t, e.GBuffer())
	assert.Nil(t, e.SceneBuffer())
	assert.Nil(t, e.DisplayBuffer())
}

func TestInitializeIsIdempotent(t *testing.T) {
	e, dev := newEngine(t)
	programs := len(dev.Programs)
	require.NoError(t, e.Initialize())
	assert.Len(t, dev.Programs, programs)
	assert.True(t, dev.Initialized())
	assert.NotNil(t, e.CommonShaders())
}

func TestInitializeRejectsEmptySize(t *testing.T) {
	opts := testOptions()
	opts.Width = 0
	e := render.NewEngine(headless.New(), render.WithLogger(quietLogger()), render.WithOptions(opts))
	assert.ErrorIs(t, e.Initialize(), render.ErrUsage)
}

func TestPipelineBuffers(t *testing.T) {
	e, _ := newEngine(t)

	color, err := e.GBuffer().GetTextureBuffer(render.ColorAttachment)
	require.NoError(t, err)
	assert.Equal(t, render.RGBA32F, color.Format())
	assert.Equal(t, 8, color.SizeX())
	assert.Equal(t, 4, color.SizeY())

	depth, err := e.GBuffer().GetRenderBuffer(render.DepthAttachment)
	require.NoError(t, err)
	assert.Equal(t, render.Depth, depth.Type())
	assert.Zero(t, e.GBuffer().ClearAlpha())

	_, err = e.SceneBuffer().GetTextureBuffer(render.ColorAttachment)
	assert.NoError(t, err)
}

func TestFramePipeline(t *testing.T) {
	e, dev := newEngine(t)

	p, err := e.GenerateShaderProgram(triangleStages(), render.Triangles, -1)
	require.NoError(t, err)
	defer p.Release()
	require.NoError(t, p.SetAttribute("position", render.Vec3Data(triangle)))
	require.NoError(t, p.SetUniform("color", render.Vec3(glm.Vec3{1, 0.5, 0})))

	e.GBuffer().SetClearColor(glm.Vec3{0.5, 0.5, 0.5})
	require.NoError(t, e.ClearGBuffer())
	assert.True(t, e.GBuffer().Bound())
	gTarget := dev.Bound()
	require.NoError(t, p.Draw())

	require.NoError(t, e.ComputeLighting())
	assert.True(t, e.SceneBuffer().Bound())
	sceneTarget := dev.Bound()

	require.NoError(t, e.ToDisplay())
	assert.True(t, e.DisplayBuffer().Bound())
	assert.Same(t, dev.Display(), dev.Bound())

	draws := dev.Draws
	require.Len(t, draws, 3)
	assert.Same(t, gTarget, draws[0].Target)
	assert.Same(t, sceneTarget, draws[1].Target)
	assert.Same(t, dev.Display(), draws[2].Target)
	for _, d := range draws[1:] {
		assert.Equal(t, 3, d.Call.Count, "fullscreen passes draw one triangle")
	}

	lighting := draws[1].Program
	assert.Equal(t, float32(1), lighting.Uniforms["u_exposure"].Floats()[0])
	assert.Equal(t, float32(2.2), lighting.Uniforms["u_gamma"].Floats()[0])
	assert.Contains(t, lighting.Stages[1].Src, "vec3 toneMap(")
}

func TestSetToneMapping(t *testing.T) {
	e, dev := newEngine(t)
	e.SetToneMapping(2, 4, 1.8)
	require.NoError(t, e.ComputeLighting())

	u := dev.Draws[len(dev.Draws)-1].Program.Uniforms
	assert.Equal(t, float32(2), u["u_exposure"].Floats()[0])
	assert.Equal(t, float32(4), u["u_whiteLevel"].Floats()[0])
	assert.Equal(t, float32(1.8), u["u_gamma"].Floats()[0])
}

func TestResize(t *testing.T) {
	e, _ := newEngine(t)
	require.NoError(t, e.Resize(16, 10))

	color, err := e.GBuffer().GetTextureBuffer(render.ColorAttachment)
	require.NoError(t, err)
	assert.Equal(t, 16, color.SizeX())
	depth, err := e.GBuffer().GetRenderBuffer(render.DepthAttachment)
	require.NoError(t, err)
	assert.Equal(t, 10, depth.SizeY())
	scene, err := e.SceneBuffer().GetTextureBuffer(render.ColorAttachment)
	require.NoError(t, err)
	assert.Equal(t, 16, scene.SizeX())
	assert.Equal(t, render.Rect{Width: 16, Height: 10}, e.DisplayBuffer().Viewport())

	assert.ErrorIs(t, e.Resize(0, 10), render.ErrOutOfBounds)
	require.NoError(t, e.ClearGBuffer())
}

func TestCheckError(t *testing.T) {
	logger, hook := test.NewNullLogger()
	exited := 0
	logger.ExitFunc = func(int) { exited++ }

	dev := headless.New()
	e := render.NewEngine(dev, render.WithLogger(logger), render.WithOptions(testOptions()))
	require.NoError(t, e.Initialize())
	defer e.Destroy()

	assert.NoError(t, e.CheckError(true))

	dev.InjectError(errors.New("GL_INVALID_ENUM"))
	err := e.CheckError(false)
	assert.ErrorIs(t, err, render.ErrDevice)
	assert.Contains(t, err.Error(), "GL_INVALID_ENUM")
	assert.Equal(t, log.ErrorLevel, hook.LastEntry().Level)
	assert.Zero(t, exited)

	dev.InjectError(errors.New("GL_OUT_OF_MEMORY"))
	assert.ErrorIs(t, e.CheckError(true), render.ErrDevice)
	assert.Equal(t, log.FatalLevel, hook.LastEntry().Level)
	assert.Equal(t, "headless", hook.LastEntry().Data["backend"])
	assert.Equal(t, 1, exited)

	assert.NoError(t, e.CheckError(false), "errors are reported once")
}

func TestDestroyReleasesPipeline(t *testing.T) {
	dev := headless.New()
	e := render.NewEngine(dev, render.WithLogger(quietLogger()), render.WithOptions(testOptions()))
	require.NoError(t, e.Initialize())
	assert.NotZero(t, dev.Live())

	e.Destroy()
	assert.Zero(t, dev.Live())
	assert.True(t, dev.Destroyed())
}

func TestRegistry(t *testing.T) {
	assert.Contains(t, render.Backends(), "headless")

	dev, err := render.OpenBackend("headless")
	require.NoError(t, err)
	assert.Equal(t, "headless", dev.Name())

	_, err = render.OpenBackend("metal")
	assert.Error(t, err)
}
