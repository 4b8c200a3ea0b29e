package render

import "fmt"

// RenderBuffer is a device-side FrameBuffer attachment. It is never
// sampled or written from the CPU, and is resized only through the
// ResizeBuffers method of a FrameBuffer it is attached to.
type RenderBuffer interface {
	Type() RenderBufferType
	SizeX() int
	SizeY() int

	Retain()
	Release()
	RefCount() int

	deviceRenderBuffer() DeviceRenderBuffer
	resize(x, y int) error
}

type renderBuffer struct {
	refCount
	dev   DeviceRenderBuffer
	typ   RenderBufferType
	sizeX int
	sizeY int
}

func newRenderBuffer(dev DeviceRenderBuffer, typ RenderBufferType, sizeX, sizeY int) *renderBuffer {
	r := &renderBuffer{dev: dev, typ: typ, sizeX: sizeX, sizeY: sizeY}
	r.init(func() {
		r.dev.Release()
		r.dev = nil
	})
	return r
}

func (r *renderBuffer) Type() RenderBufferType { return r.typ }
func (r *renderBuffer) SizeX() int             { return r.sizeX }
func (r *renderBuffer) SizeY() int             { return r.sizeY }

func (r *renderBuffer) deviceRenderBuffer() DeviceRenderBuffer { return r.dev }

func (r *renderBuffer) resize(x, y int) error {
	if !r.alive() {
		return ErrReleased
	}
	if x <= 0 || y <= 0 {
		return fmt.Errorf("render buffer size %dx%d: %w", x, y, ErrOutOfBounds)
	}
	if err := r.dev.Resize(x, y); err != nil {
		return fmt.Errorf("resize render buffer: %w", err)
	}
	r.sizeX, r.sizeY = x, y
	return nil
}
