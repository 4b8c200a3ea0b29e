package render

import (
	"fmt"

	log "github.com/sirupsen/logrus"
)

// Options configures an Engine.
type Options struct {
	// Width and Height are the initial size of the GBuffer and of the
	// display.
	Width  int `toml:"width"`
	Height int `toml:"height"`

	Exposure   float32 `toml:"exposure"`
	WhiteLevel float32 `toml:"white_level"`
	Gamma      float32 `toml:"gamma"`
}

// DefaultOptions returns the options used when none are given.
func DefaultOptions() Options {
	return Options{
		Width:      1280,
		Height:     720,
		Exposure:   1,
		WhiteLevel: 1,
		Gamma:      2.2,
	}
}

// Option customizes NewEngine.
type Option func(*Engine)

// WithOptions sets the engine options.
func WithOptions(o Options) Option {
	return func(e *Engine) { e.opts = o }
}

// WithLogger sets the logger. The default is the logrus standard logger.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// Engine is the factory for all device resources and runs the fixed
// per-frame stages of the deferred pipeline. There is one Engine per
// device context; it is passed explicitly to whatever needs to create
// resources.
//
// A frame is ClearGBuffer, any number of draws into the GBuffer,
// ComputeLighting and ToDisplay, in that order.
type Engine struct {
	dev    Device
	opts   Options
	logger *log.Logger
	log    *log.Entry

	binds       bindState
	initialized bool

	common *ShaderLibrary

	gBuffer     *frameBuffer
	sceneBuffer *frameBuffer
	display     *frameBuffer

	lighting   ShaderProgram
	toDisplay  ShaderProgram
	sceneColor TextureBuffer
}

// NewEngine wraps a device. Call Initialize before any factory method.
func NewEngine(dev Device, opts ...Option) *Engine {
	e := &Engine{dev: dev, opts: DefaultOptions(), logger: log.StandardLogger()}
	for _, opt := range opts {
		opt(e)
	}
	e.log = e.logger.WithField("backend", dev.Name())
	return e
}

// Options returns the current options.
func (e *Engine) Options() Options { return e.opts }

// Device returns the backend device.
func (e *Engine) Device() Device { return e.dev }

// Initialize performs one-time device setup and builds the GBuffer,
// scene buffer and pipeline programs. Later calls do nothing.
func (e *Engine) Initialize() error {
	if e.initialized {
		return nil
	}
	if e.opts.Width <= 0 || e.opts.Height <= 0 {
		return fmt.Errorf("%w: engine size %dx%d", ErrUsage, e.opts.Width, e.opts.Height)
	}
	if err := e.dev.Initialize(); err != nil {
		return fmt.Errorf("initialize %s device: %w", e.dev.Name(), err)
	}
	lib, err := loadCommonShaders()
	if err != nil {
		return err
	}
	e.common = lib
	e.initialized = true

	if err := e.buildPipeline(); err != nil {
		e.releasePipeline()
		e.initialized = false
		return fmt.Errorf("build deferred pipeline: %w", err)
	}
	e.log.WithFields(log.Fields{
		"width":  e.opts.Width,
		"height": e.opts.Height,
	}).Info("render engine initialized")
	return nil
}

func (e *Engine) buildPipeline() error {
	w, h := e.opts.Width, e.opts.Height

	e.display = newFrameBuffer(e.dev.DisplayFramebuffer(), &e.binds)
	e.display.display = true
	e.display.size = func() (int, int) { return e.opts.Width, e.opts.Height }

	// GBuffer: float color plus depth.
	gColor, err := e.GenerateTextureBuffer2D(RGBA32F, w, h, nil)
	if err != nil {
		return err
	}
	defer gColor.Release()
	gDepth, err := e.GenerateRenderBuffer(Depth, w, h)
	if err != nil {
		return err
	}
	defer gDepth.Release()
	gb, err := e.GenerateFrameBuffer()
	if err != nil {
		return err
	}
	e.gBuffer = gb.(*frameBuffer)
	e.gBuffer.SetClearAlpha(0)
	if err := e.gBuffer.BindToColorTexturebuffer(gColor); err != nil {
		return err
	}
	if err := e.gBuffer.BindToDepthRenderbuffer(gDepth); err != nil {
		return err
	}

	// Scene buffer: lighting target, sampled by the display pass.
	sColor, err := e.GenerateTextureBuffer2D(RGBA32F, w, h, nil)
	if err != nil {
		return err
	}
	e.sceneColor = sColor
	sb, err := e.GenerateFrameBuffer()
	if err != nil {
		return err
	}
	e.sceneBuffer = sb.(*frameBuffer)
	if err := e.sceneBuffer.BindToColorTexturebuffer(sColor); err != nil {
		return err
	}

	if e.lighting, err = e.GenerateShaderProgram(lightingStages(), Triangles, -1); err != nil {
		return err
	}
	if err := e.lighting.SetAttribute("a_position", Vec2Data(fullscreenTriangle)); err != nil {
		return err
	}
	if err := e.lighting.SetTexture("t_image", gColor); err != nil {
		return err
	}

	if e.toDisplay, err = e.GenerateShaderProgram(displayStages(), Triangles, -1); err != nil {
		return err
	}
	if err := e.toDisplay.SetAttribute("a_position", Vec2Data(fullscreenTriangle)); err != nil {
		return err
	}
	return e.toDisplay.SetTexture("t_image", sColor)
}

func (e *Engine) releasePipeline() {
	for _, p := range []ShaderProgram{e.lighting, e.toDisplay} {
		if p != nil {
			p.Release()
		}
	}
	for _, f := range []*frameBuffer{e.gBuffer, e.sceneBuffer, e.display} {
		if f != nil && f.alive() {
			f.Release()
		}
	}
	if e.sceneColor != nil {
		e.sceneColor.Release()
	}
	e.lighting, e.toDisplay, e.sceneColor = nil, nil, nil
	e.gBuffer, e.sceneBuffer, e.display = nil, nil, nil
}

// Destroy releases the engine's own resources and the device.
// Handles returned by the factories must be released by their owners
// before the device goes away.
func (e *Engine) Destroy() {
	if e.initialized {
		e.releasePipeline()
		e.initialized = false
	}
	e.dev.Destroy()
	e.log.Info("render engine destroyed")
}

// GBuffer returns the geometry buffer drawn into by scene passes, or
// nil when the engine is not initialized.
func (e *Engine) GBuffer() FrameBuffer { return frameBufferOrNil(e.gBuffer) }

// SceneBuffer returns the buffer lighting resolves into, or nil when
// the engine is not initialized.
func (e *Engine) SceneBuffer() FrameBuffer { return frameBufferOrNil(e.sceneBuffer) }

// DisplayBuffer returns the device's on-screen framebuffer, or nil when
// the engine is not initialized.
func (e *Engine) DisplayBuffer() FrameBuffer { return frameBufferOrNil(e.display) }

// frameBufferOrNil keeps a nil *frameBuffer from becoming a non-nil
// FrameBuffer.
func frameBufferOrNil(f *frameBuffer) FrameBuffer {
	if f == nil {
		return nil
	}
	return f
}

// CommonShaders returns the shared GLSL snippet library.
func (e *Engine) CommonShaders() *ShaderLibrary { return e.common }

// SetToneMapping changes the parameters used by ComputeLighting.
func (e *Engine) SetToneMapping(exposure, whiteLevel, gamma float32) {
	e.opts.Exposure, e.opts.WhiteLevel, e.opts.Gamma = exposure, whiteLevel, gamma
}

// Resize resizes the GBuffer, the scene buffer and the display.
func (e *Engine) Resize(width, height int) error {
	if !e.initialized {
		return ErrNotInitialized
	}
	if width <= 0 || height <= 0 {
		return fmt.Errorf("resize to %dx%d: %w", width, height, ErrOutOfBounds)
	}
	e.opts.Width, e.opts.Height = width, height
	if err := e.gBuffer.ResizeBuffers(width, height); err != nil {
		return fmt.Errorf("resize gbuffer: %w", err)
	}
	if err := e.sceneBuffer.ResizeBuffers(width, height); err != nil {
		return fmt.Errorf("resize scene buffer: %w", err)
	}
	return nil
}

// ── Per-frame stages ──────────────────────────────────────────────────────────

// ClearGBuffer binds the GBuffer and clears it. Scene draws follow.
func (e *Engine) ClearGBuffer() error {
	if !e.initialized {
		return ErrNotInitialized
	}
	if !e.gBuffer.BindForRendering() {
		return fmt.Errorf("%w: gbuffer cannot be bound", ErrUsage)
	}
	return e.gBuffer.Clear()
}

// ComputeLighting resolves the GBuffer into the scene buffer.
func (e *Engine) ComputeLighting() error {
	if !e.initialized {
		return ErrNotInitialized
	}
	if !e.sceneBuffer.BindForRendering() {
		return fmt.Errorf("%w: scene buffer cannot be bound", ErrUsage)
	}
	if err := e.sceneBuffer.Clear(); err != nil {
		return err
	}
	for name, v := range map[string]float32{
		"u_exposure":   e.opts.Exposure,
		"u_whiteLevel": e.opts.WhiteLevel,
		"u_gamma":      e.opts.Gamma,
	} {
		if err := e.lighting.SetUniform(name, FloatValue(v)); err != nil {
			return err
		}
	}
	return e.lighting.Draw()
}

// ToDisplay draws the scene buffer onto the display framebuffer.
// Presenting (swapping) is up to the window owner.
func (e *Engine) ToDisplay() error {
	if !e.initialized {
		return ErrNotInitialized
	}
	if !e.display.BindForRendering() {
		return fmt.Errorf("%w: display cannot be bound", ErrUsage)
	}
	if err := e.display.Clear(); err != nil {
		return err
	}
	return e.toDisplay.Draw()
}

// CheckError polls the device for an asynchronous error. A fatal error
// is logged with Fatal, which ends the process through the logger's
// ExitFunc; otherwise the error is logged and returned and rendering
// may continue with undefined results.
func (e *Engine) CheckError(fatal bool) error {
	devErr := e.dev.PollError()
	if devErr == nil {
		return nil
	}
	err := fmt.Errorf("%w: %v", ErrDevice, devErr)
	if fatal {
		e.log.WithError(devErr).Fatal("fatal device error")
		return err
	}
	e.log.WithError(devErr).Error("device error")
	return err
}

// ── Factories ─────────────────────────────────────────────────────────────────

// GenerateTextureBuffer1D creates a 1D texture. data may be nil;
// otherwise it holds size pixels in the layout of format.
func (e *Engine) GenerateTextureBuffer1D(format TextureFormat, size int, data []byte) (TextureBuffer, error) {
	if !e.initialized {
		return nil, ErrNotInitialized
	}
	if size <= 0 {
		return nil, fmt.Errorf("1D texture of size %d: %w", size, ErrOutOfBounds)
	}
	if want := size * format.BytesPerPixel(); data != nil && len(data) != want {
		return nil, fmt.Errorf("1D texture data of %d bytes, want %d: %w", len(data), want, ErrOutOfBounds)
	}
	dt, err := e.dev.NewTexture(format, 1, size, 1, data)
	if err != nil {
		return nil, fmt.Errorf("create 1D texture: %w", err)
	}
	e.log.WithFields(log.Fields{"format": format, "size": size}).Debug("texture buffer created")
	return newTextureBuffer(dt, format, 1, size, 1), nil
}

// GenerateTextureBuffer1DFloat creates a 1D texture of a float format
// from float channel data.
func (e *Engine) GenerateTextureBuffer1DFloat(format TextureFormat, size int, data []float32) (TextureBuffer, error) {
	if !format.Float() {
		return nil, fmt.Errorf("float data for %v texture: %w", format, ErrTypeMismatch)
	}
	if want := size * format.Channels(); data != nil && len(data) != want {
		return nil, fmt.Errorf("1D texture data of %d floats, want %d: %w", len(data), want, ErrOutOfBounds)
	}
	var raw []byte
	if data != nil {
		raw = sliceBytes(data)
	}
	return e.GenerateTextureBuffer1D(format, size, raw)
}

// GenerateTextureBuffer2D creates a 2D texture. data may be nil, as is
// usual for render targets.
func (e *Engine) GenerateTextureBuffer2D(format TextureFormat, sizeX, sizeY int, data []byte) (TextureBuffer, error) {
	if !e.initialized {
		return nil, ErrNotInitialized
	}
	if sizeX <= 0 || sizeY <= 0 {
		return nil, fmt.Errorf("2D texture of size %dx%d: %w", sizeX, sizeY, ErrOutOfBounds)
	}
	if want := sizeX * sizeY * format.BytesPerPixel(); data != nil && len(data) != want {
		return nil, fmt.Errorf("2D texture data of %d bytes, want %d: %w", len(data), want, ErrOutOfBounds)
	}
	dt, err := e.dev.NewTexture(format, 2, sizeX, sizeY, data)
	if err != nil {
		return nil, fmt.Errorf("create 2D texture: %w", err)
	}
	e.log.WithFields(log.Fields{"format": format, "sizeX": sizeX, "sizeY": sizeY}).Debug("texture buffer created")
	return newTextureBuffer(dt, format, 2, sizeX, sizeY), nil
}

// GenerateRenderBuffer creates an attachment-only buffer.
func (e *Engine) GenerateRenderBuffer(typ RenderBufferType, sizeX, sizeY int) (RenderBuffer, error) {
	if !e.initialized {
		return nil, ErrNotInitialized
	}
	if sizeX <= 0 || sizeY <= 0 {
		return nil, fmt.Errorf("render buffer of size %dx%d: %w", sizeX, sizeY, ErrOutOfBounds)
	}
	dr, err := e.dev.NewRenderBuffer(typ, sizeX, sizeY)
	if err != nil {
		return nil, fmt.Errorf("create render buffer: %w", err)
	}
	e.log.WithFields(log.Fields{"type": typ, "sizeX": sizeX, "sizeY": sizeY}).Debug("render buffer created")
	return newRenderBuffer(dr, typ, sizeX, sizeY), nil
}

// GenerateFrameBuffer creates a framebuffer with no attachments.
func (e *Engine) GenerateFrameBuffer() (FrameBuffer, error) {
	if !e.initialized {
		return nil, ErrNotInitialized
	}
	df, err := e.dev.NewFramebuffer()
	if err != nil {
		return nil, fmt.Errorf("create framebuffer: %w", err)
	}
	e.log.Debug("frame buffer created")
	return newFrameBuffer(df, &e.binds), nil
}

// GenerateShaderProgram builds a program from stage specifications.
// nPatchVertices is required for Patches and ignored otherwise.
func (e *Engine) GenerateShaderProgram(stages []ShaderStageSpecification, mode DrawMode, nPatchVertices int) (ShaderProgram, error) {
	if !e.initialized {
		return nil, ErrNotInitialized
	}
	if len(stages) == 0 {
		return nil, fmt.Errorf("%w: no shader stages", ErrConstruction)
	}
	if !mode.valid() {
		return nil, fmt.Errorf("%w: invalid draw mode %v", ErrConstruction, mode)
	}
	if mode == Patches && nPatchVertices <= 0 {
		return nil, fmt.Errorf("%w: patches need a patch vertex count, got %d", ErrConstruction, nPatchVertices)
	}
	if mode != Patches {
		nPatchVertices = 0
	}

	seen := map[ShaderStageType]bool{}
	expanded := make([]ShaderStageSpecification, len(stages))
	for i, s := range stages {
		if seen[s.Stage] {
			return nil, fmt.Errorf("%w: duplicate %v stage", ErrConstruction, s.Stage)
		}
		seen[s.Stage] = true
		src, err := e.common.Expand(s.Src)
		if err != nil {
			return nil, fmt.Errorf("%v stage: %w", s.Stage, err)
		}
		expanded[i] = s
		expanded[i].Src = src
	}

	layout, err := buildLayout(expanded)
	if err != nil {
		return nil, err
	}
	dp, err := e.dev.NewProgram(expanded, layout, mode, nPatchVertices)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConstruction, err)
	}
	e.log.WithFields(log.Fields{
		"mode":       mode,
		"uniforms":   len(layout.Uniforms),
		"attributes": len(layout.Attributes),
		"textures":   len(layout.Textures),
	}).Debug("shader program created")
	return newShaderProgram(dp, layout, mode, nPatchVertices), nil
}
