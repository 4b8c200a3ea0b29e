package render

import (
	"fmt"

	"cogentcore.org/core/ordmap"
	glm "github.com/go-gl/mathgl/mgl32"
)

// Conventional attachment names.
const (
	ColorAttachment = "color"
	DepthAttachment = "depth"
)

// FrameBuffer is a render target composed of named TextureBuffer and
// RenderBuffer attachments. Attachments are shared: attaching retains
// the buffer and detaching or releasing the FrameBuffer releases it.
//
// A FrameBuffer is Unbound until BindForRendering succeeds; it becomes
// Unbound again when another FrameBuffer is bound.
type FrameBuffer interface {
	// BindForRendering makes this the target of subsequent draws. It
	// returns false, and leaves the previous target bound, if there is
	// no color attachment or the attachments are incompatible.
	BindForRendering() bool
	Bound() bool

	// Clear clears the attachments to the clear color. The FrameBuffer
	// must be bound.
	Clear() error
	ClearColor() glm.Vec3
	SetClearColor(c glm.Vec3)
	ClearAlpha() float32
	SetClearAlpha(a float32)

	// The BindTo methods attach a buffer at the color or depth slot,
	// replacing (and releasing) whatever was there.
	BindToColorRenderbuffer(rb RenderBuffer) error
	BindToDepthRenderbuffer(rb RenderBuffer) error
	BindToColorTexturebuffer(tb TextureBuffer) error
	BindToDepthTexturebuffer(tb TextureBuffer) error

	// SetViewport records the viewport used by the next bind.
	SetViewport(x, y, width, height int)
	// Viewport returns the recorded viewport, or the full size of the
	// color attachment if none was set.
	Viewport() Rect

	// ResizeBuffers resizes every attachment whose size differs from
	// width×height; matching attachments are left untouched.
	ResizeBuffers(width, height int) error

	// ReadFloat4 binds the FrameBuffer and reads back one pixel of its
	// color attachment. This waits for all queued device work and
	// stalls the pipeline; keep it out of per-frame paths.
	ReadFloat4(x, y int) ([4]float32, error)

	GetRenderBuffer(name string) (RenderBuffer, error)
	GetTextureBuffer(name string) (TextureBuffer, error)

	Retain()
	Release()
	RefCount() int
}

// bindState tracks the FrameBuffer currently bound on a device.
type bindState struct {
	current *frameBuffer
}

type frameBuffer struct {
	refCount
	dev   DeviceFramebuffer
	binds *bindState

	// display framebuffers belong to the device and have no tracked
	// attachments; size is then the display size.
	display bool
	size    func() (int, int)

	clearColor glm.Vec3
	clearAlpha float32

	viewportSet bool
	viewport    Rect

	renderBuffers  *ordmap.Map[string, RenderBuffer]
	textureBuffers *ordmap.Map[string, TextureBuffer]
}

func newFrameBuffer(dev DeviceFramebuffer, binds *bindState) *frameBuffer {
	f := &frameBuffer{
		dev:            dev,
		binds:          binds,
		clearAlpha:     1,
		renderBuffers:  ordmap.New[string, RenderBuffer](),
		textureBuffers: ordmap.New[string, TextureBuffer](),
	}
	f.init(f.destroy)
	return f
}

func (f *frameBuffer) destroy() {
	for _, kv := range f.renderBuffers.Order {
		kv.Value.Release()
	}
	for _, kv := range f.textureBuffers.Order {
		kv.Value.Release()
	}
	f.renderBuffers.Reset()
	f.textureBuffers.Reset()
	if f.binds.current == f {
		f.binds.current = nil
	}
	if !f.display {
		f.dev.Release()
	}
	f.dev = nil
}

func (f *frameBuffer) Bound() bool { return f.alive() && f.binds.current == f }

func (f *frameBuffer) ClearColor() glm.Vec3     { return f.clearColor }
func (f *frameBuffer) SetClearColor(c glm.Vec3) { f.clearColor = c }
func (f *frameBuffer) ClearAlpha() float32      { return f.clearAlpha }
func (f *frameBuffer) SetClearAlpha(a float32)  { f.clearAlpha = a }

func (f *frameBuffer) SetViewport(x, y, width, height int) {
	f.viewportSet = true
	f.viewport = Rect{X: x, Y: y, Width: width, Height: height}
}

func (f *frameBuffer) Viewport() Rect {
	if f.viewportSet {
		return f.viewport
	}
	w, h := f.colorSize()
	return Rect{Width: w, Height: h}
}

// colorSize returns the size of the color attachment, or 0×0.
func (f *frameBuffer) colorSize() (int, int) {
	if f.display {
		return f.size()
	}
	if tb, ok := f.textureBuffers.ValueByKeyTry(ColorAttachment); ok {
		return tb.SizeX(), tb.SizeY()
	}
	if rb, ok := f.renderBuffers.ValueByKeyTry(ColorAttachment); ok {
		return rb.SizeX(), rb.SizeY()
	}
	return 0, 0
}

func (f *frameBuffer) hasColor() bool {
	if f.display {
		return true
	}
	_, tex := f.textureBuffers.ValueByKeyTry(ColorAttachment)
	_, rb := f.renderBuffers.ValueByKeyTry(ColorAttachment)
	return tex || rb
}

// compatible reports whether every attachment has the same size.
func (f *frameBuffer) compatible() bool {
	w, h := f.colorSize()
	for _, kv := range f.renderBuffers.Order {
		if kv.Value.SizeX() != w || kv.Value.SizeY() != h {
			return false
		}
	}
	for _, kv := range f.textureBuffers.Order {
		if kv.Value.SizeX() != w || kv.Value.SizeY() != h {
			return false
		}
	}
	return true
}

func (f *frameBuffer) BindForRendering() bool {
	if !f.alive() || !f.hasColor() || !f.compatible() {
		return false
	}
	if err := f.dev.Bind(f.Viewport()); err != nil {
		return false
	}
	f.binds.current = f
	return true
}

func (f *frameBuffer) Clear() error {
	if !f.alive() {
		return ErrReleased
	}
	if !f.Bound() {
		return fmt.Errorf("%w: clear of an unbound framebuffer", ErrUsage)
	}
	c := f.clearColor
	f.dev.Clear(glm.Vec4{c[0], c[1], c[2], f.clearAlpha})
	return nil
}

// detach releases whatever is attached under name in either map.
func (f *frameBuffer) detach(name string) {
	if rb, ok := f.renderBuffers.ValueByKeyTry(name); ok {
		f.renderBuffers.DeleteKey(name)
		rb.Release()
	}
	if tb, ok := f.textureBuffers.ValueByKeyTry(name); ok {
		f.textureBuffers.DeleteKey(name)
		tb.Release()
	}
}

func (f *frameBuffer) attachRenderBuffer(name string, rb RenderBuffer) error {
	if !f.alive() || f.display {
		return fmt.Errorf("%w: attach to framebuffer", ErrUsage)
	}
	if rb == nil || rb.RefCount() == 0 {
		return ErrReleased
	}
	if (name == DepthAttachment) != (rb.Type() == Depth) {
		return fmt.Errorf("%w: %v render buffer at %q attachment", ErrTypeMismatch, rb.Type(), name)
	}
	// Retain first: rb may already be the attachment being replaced.
	rb.Retain()
	f.detach(name)
	f.renderBuffers.Add(name, rb)
	if name == ColorAttachment {
		f.dev.AttachColorRenderBuffer(rb.deviceRenderBuffer())
	} else {
		f.dev.AttachDepthRenderBuffer(rb.deviceRenderBuffer())
	}
	return nil
}

func (f *frameBuffer) attachTextureBuffer(name string, tb TextureBuffer) error {
	if !f.alive() || f.display {
		return fmt.Errorf("%w: attach to framebuffer", ErrUsage)
	}
	if tb == nil || tb.RefCount() == 0 {
		return ErrReleased
	}
	if tb.Dimension() != 2 {
		return fmt.Errorf("attach %dD texture: %w", tb.Dimension(), ErrInvalidDimension)
	}
	tb.Retain()
	f.detach(name)
	f.textureBuffers.Add(name, tb)
	if name == ColorAttachment {
		f.dev.AttachColorTexture(tb.deviceTexture())
	} else {
		f.dev.AttachDepthTexture(tb.deviceTexture())
	}
	return nil
}

func (f *frameBuffer) BindToColorRenderbuffer(rb RenderBuffer) error {
	return f.attachRenderBuffer(ColorAttachment, rb)
}

func (f *frameBuffer) BindToDepthRenderbuffer(rb RenderBuffer) error {
	return f.attachRenderBuffer(DepthAttachment, rb)
}

func (f *frameBuffer) BindToColorTexturebuffer(tb TextureBuffer) error {
	return f.attachTextureBuffer(ColorAttachment, tb)
}

func (f *frameBuffer) BindToDepthTexturebuffer(tb TextureBuffer) error {
	return f.attachTextureBuffer(DepthAttachment, tb)
}

func (f *frameBuffer) ResizeBuffers(width, height int) error {
	if !f.alive() {
		return ErrReleased
	}
	for _, kv := range f.renderBuffers.Order {
		rb := kv.Value
		if rb.SizeX() == width && rb.SizeY() == height {
			continue
		}
		if err := rb.resize(width, height); err != nil {
			return fmt.Errorf("attachment %q: %w", kv.Key, err)
		}
	}
	for _, kv := range f.textureBuffers.Order {
		tb := kv.Value
		if tb.SizeX() == width && tb.SizeY() == height {
			continue
		}
		if err := tb.Resize2D(width, height); err != nil {
			return fmt.Errorf("attachment %q: %w", kv.Key, err)
		}
	}
	return nil
}

func (f *frameBuffer) ReadFloat4(x, y int) ([4]float32, error) {
	if !f.alive() {
		return [4]float32{}, ErrReleased
	}
	if !f.hasColor() {
		return [4]float32{}, fmt.Errorf("read back %q: %w", ColorAttachment, ErrUnknownAttachment)
	}
	w, h := f.colorSize()
	if x < 0 || y < 0 || x >= w || y >= h {
		return [4]float32{}, fmt.Errorf("read back (%d, %d) of %dx%d: %w", x, y, w, h, ErrOutOfBounds)
	}
	if !f.BindForRendering() {
		return [4]float32{}, fmt.Errorf("%w: framebuffer cannot be bound for read back", ErrUsage)
	}
	px, err := f.dev.ReadFloat4(x, y)
	if err != nil {
		return [4]float32{}, fmt.Errorf("read back: %w", err)
	}
	return px, nil
}

func (f *frameBuffer) GetRenderBuffer(name string) (RenderBuffer, error) {
	if !f.alive() {
		return nil, ErrReleased
	}
	rb, ok := f.renderBuffers.ValueByKeyTry(name)
	if !ok {
		return nil, fmt.Errorf("render buffer %q: %w", name, ErrUnknownAttachment)
	}
	return rb, nil
}

func (f *frameBuffer) GetTextureBuffer(name string) (TextureBuffer, error) {
	if !f.alive() {
		return nil, ErrReleased
	}
	tb, ok := f.textureBuffers.ValueByKeyTry(name)
	if !ok {
		return nil, fmt.Errorf("texture buffer %q: %w", name, ErrUnknownAttachment)
	}
	return tb, nil
}
