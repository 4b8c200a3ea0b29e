// Package headless implements render.Device without a GPU.
//
// Every device call is recorded and pixel storage lives in memory:
// clears write the clear color into the bound color attachment and
// ReadFloat4 reads it back. Draw calls are recorded, not rasterized.
// It backs the tests of the render package and the demo's headless mode.
package headless

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"

	glm "github.com/go-gl/mathgl/mgl32"
	log "github.com/sirupsen/logrus"

	"render-core/render"
)

func init() {
	render.Register("headless", func() (render.Device, error) { return New(), nil })
}

// ErrIncomplete is returned by Bind for a framebuffer without a color attachment.
var ErrIncomplete = errors.New("headless: framebuffer incomplete")

// Device is an in-memory render.Device.
type Device struct {
	initialized bool
	destroyed   bool

	pending []error

	display *Framebuffer
	bound   *Framebuffer

	// Draws lists every draw call in submission order.
	Draws []DrawRecord
	// Programs lists every program created, in order.
	Programs []*Program

	live map[any]struct{}
}

// DrawRecord is one recorded draw call.
type DrawRecord struct {
	Program *Program
	Target  *Framebuffer
	Call    render.DrawCall
}

// New returns an uninitialized device.
func New() *Device {
	d := &Device{live: map[any]struct{}{}}
	d.display = &Framebuffer{dev: d, display: true}
	return d
}

func (d *Device) Name() string { return "headless" }

func (d *Device) Initialize() error {
	if d.destroyed {
		return errors.New("headless: device destroyed")
	}
	d.initialized = true
	return nil
}

// Initialized reports whether Initialize ran.
func (d *Device) Initialized() bool { return d.initialized }

// Destroyed reports whether Destroy ran.
func (d *Device) Destroyed() bool { return d.destroyed }

func (d *Device) Destroy() {
	if n := len(d.live); n > 0 {
		log.WithField("live", n).Warn("headless device destroyed with live objects")
	}
	d.destroyed = true
}

// Live returns the number of created objects not yet released.
func (d *Device) Live() int { return len(d.live) }

// InjectError queues an asynchronous error for PollError.
func (d *Device) InjectError(err error) { d.pending = append(d.pending, err) }

func (d *Device) PollError() error {
	if len(d.pending) == 0 {
		return nil
	}
	err := d.pending[0]
	d.pending = d.pending[1:]
	return err
}

// Bound returns the framebuffer bound last.
func (d *Device) Bound() *Framebuffer { return d.bound }

func (d *Device) DisplayFramebuffer() render.DeviceFramebuffer { return d.display }

// Display returns the display framebuffer.
func (d *Device) Display() *Framebuffer { return d.display }

// ── Textures and render buffers ──────────────────────────────────────────────

// Texture is an in-memory texture. Pixels are stored as RGBA floats.
type Texture struct {
	dev      *Device
	Format   render.TextureFormat
	Dim      int
	SizeX    int
	SizeY    int
	Filter   render.FilterMode
	Options  render.TextureUpload
	Pixels   [][4]float32
	Resizes  int
	Uploads  int
	Released bool
}

func (d *Device) NewTexture(format render.TextureFormat, dim, sizeX, sizeY int, data []byte) (render.DeviceTexture, error) {
	if format.Channels() == 0 {
		return nil, fmt.Errorf("headless: unsupported texture format %v", format)
	}
	t := &Texture{dev: d, Format: format, Dim: dim, SizeX: sizeX, SizeY: sizeY, Pixels: make([][4]float32, sizeX*sizeY)}
	if data != nil {
		if err := t.Upload(data, sizeX, sizeY, render.TextureUpload{WithAlpha: format.Channels() == 4}); err != nil {
			return nil, err
		}
	}
	d.live[t] = struct{}{}
	return t, nil
}

func (t *Texture) Resize(sizeX, sizeY int) error {
	t.SizeX, t.SizeY = sizeX, sizeY
	t.Pixels = make([][4]float32, sizeX*sizeY)
	t.Resizes++
	return nil
}

func (t *Texture) Upload(data []byte, width, height int, opts render.TextureUpload) error {
	channels := 3
	if t.Format.Channels() == 1 {
		channels = 1
	} else if opts.WithAlpha {
		channels = 4
	}
	size := 1
	if t.Format.Float() {
		size = 4
	}
	if len(data) < width*height*channels*size {
		return fmt.Errorf("headless: upload of %d bytes for %dx%d", len(data), width, height)
	}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			px := [4]float32{0, 0, 0, 1}
			base := ((y*width + x) * channels) * size
			for c := 0; c < channels; c++ {
				off := base + c*size
				if size == 4 {
					px[c] = math.Float32frombits(binary.NativeEndian.Uint32(data[off:]))
				} else {
					px[c] = float32(data[off]) / 255
				}
			}
			t.Pixels[y*t.SizeX+x] = px
		}
	}
	t.Options = opts
	t.Uploads++
	return nil
}

func (t *Texture) SetFilter(mode render.FilterMode) { t.Filter = mode }

func (t *Texture) Release() {
	t.Released = true
	delete(t.dev.live, t)
}

// RenderBuffer is an in-memory render buffer.
type RenderBuffer struct {
	dev      *Device
	Type     render.RenderBufferType
	SizeX    int
	SizeY    int
	Pixels   [][4]float32
	Resizes  int
	Released bool
}

func (d *Device) NewRenderBuffer(typ render.RenderBufferType, sizeX, sizeY int) (render.DeviceRenderBuffer, error) {
	r := &RenderBuffer{dev: d, Type: typ, SizeX: sizeX, SizeY: sizeY, Pixels: make([][4]float32, sizeX*sizeY)}
	d.live[r] = struct{}{}
	return r, nil
}

func (r *RenderBuffer) Resize(sizeX, sizeY int) error {
	r.SizeX, r.SizeY = sizeX, sizeY
	r.Pixels = make([][4]float32, sizeX*sizeY)
	r.Resizes++
	return nil
}

func (r *RenderBuffer) Release() {
	r.Released = true
	delete(r.dev.live, r)
}

// ── Framebuffers ─────────────────────────────────────────────────────────────

// Framebuffer is an in-memory framebuffer.
type Framebuffer struct {
	dev     *Device
	display bool

	// Color and Depth hold a *Texture or a *RenderBuffer.
	Color any
	Depth any

	Viewport render.Rect
	Clears   int
	Released bool

	// pixels of the display framebuffer, sized by its viewport
	pixels [][4]float32
	width  int
}

func (d *Device) NewFramebuffer() (render.DeviceFramebuffer, error) {
	f := &Framebuffer{dev: d}
	d.live[f] = struct{}{}
	return f, nil
}

func (f *Framebuffer) AttachColorTexture(t render.DeviceTexture)           { f.Color = t }
func (f *Framebuffer) AttachDepthTexture(t render.DeviceTexture)           { f.Depth = t }
func (f *Framebuffer) AttachColorRenderBuffer(r render.DeviceRenderBuffer) { f.Color = r }
func (f *Framebuffer) AttachDepthRenderBuffer(r render.DeviceRenderBuffer) { f.Depth = r }

func (f *Framebuffer) Bind(viewport render.Rect) error {
	if !f.display && f.Color == nil {
		return ErrIncomplete
	}
	if f.display {
		w, h := viewport.X+viewport.Width, viewport.Y+viewport.Height
		if f.width != w || len(f.pixels) != w*h {
			f.width = w
			f.pixels = make([][4]float32, w*h)
		}
	}
	f.Viewport = viewport
	f.dev.bound = f
	return nil
}

// colorPixels returns the color storage and its row width.
func (f *Framebuffer) colorPixels() ([][4]float32, int) {
	switch c := f.Color.(type) {
	case *Texture:
		return c.Pixels, c.SizeX
	case *RenderBuffer:
		return c.Pixels, c.SizeX
	}
	if f.display {
		return f.pixels, f.width
	}
	return nil, 0
}

func (f *Framebuffer) Clear(color glm.Vec4) {
	f.Clears++
	pixels, width := f.colorPixels()
	if width == 0 {
		return
	}
	vp := f.Viewport
	for y := vp.Y; y < vp.Y+vp.Height; y++ {
		for x := vp.X; x < vp.X+vp.Width; x++ {
			if i := y*width + x; x < width && i < len(pixels) {
				pixels[i] = color
			}
		}
	}
}

func (f *Framebuffer) ReadFloat4(x, y int) ([4]float32, error) {
	pixels, width := f.colorPixels()
	i := y*width + x
	if width == 0 || x >= width || i >= len(pixels) {
		return [4]float32{}, fmt.Errorf("headless: read back (%d, %d) outside color attachment", x, y)
	}
	return pixels[i], nil
}

func (f *Framebuffer) Release() {
	f.Released = true
	delete(f.dev.live, f)
}

// ── Programs ─────────────────────────────────────────────────────────────────

// Program is a recorded shader program.
type Program struct {
	dev            *Device
	Stages         []render.ShaderStageSpecification
	Layout         render.ProgramLayout
	Mode           render.DrawMode
	PatchVertices  int
	Uniforms       map[string]render.Value
	Attributes     map[string][]byte
	AttributeTypes map[string]render.DataType
	Textures       map[string]*Texture
	Units          map[string]int
	Indices        []uint32
	Allocations    int
	Released       bool
}

// NewProgram "compiles" the stages: a stage without a main function
// is rejected the way a GLSL compiler would.
func (d *Device) NewProgram(stages []render.ShaderStageSpecification, layout render.ProgramLayout, mode render.DrawMode, nPatchVertices int) (render.DeviceProgram, error) {
	for _, s := range stages {
		if !strings.Contains(s.Src, "main(") {
			return nil, fmt.Errorf("headless: %v stage: no main function", s.Stage)
		}
	}
	p := &Program{
		dev:            d,
		Stages:         stages,
		Layout:         layout,
		Mode:           mode,
		PatchVertices:  nPatchVertices,
		Uniforms:       map[string]render.Value{},
		Attributes:     map[string][]byte{},
		AttributeTypes: map[string]render.DataType{},
		Textures:       map[string]*Texture{},
		Units:          map[string]int{},
	}
	d.Programs = append(d.Programs, p)
	d.live[p] = struct{}{}
	return p, nil
}

func (p *Program) SetUniform(name string, _ render.DataType, v render.Value) { p.Uniforms[name] = v }

func (p *Program) AllocAttribute(name string, typ render.DataType, data []byte) {
	p.Attributes[name] = append([]byte(nil), data...)
	p.AttributeTypes[name] = typ
	p.Allocations++
}

func (p *Program) UpdateAttribute(name string, byteOffset int, data []byte) {
	copy(p.Attributes[name][byteOffset:], data)
}

func (p *Program) SetTexture(name string, unit int, t render.DeviceTexture) {
	p.Textures[name] = t.(*Texture)
	p.Units[name] = unit
}

func (p *Program) SetIndex(indices []uint32) { p.Indices = append([]uint32(nil), indices...) }

func (p *Program) Draw(call render.DrawCall) {
	p.dev.Draws = append(p.dev.Draws, DrawRecord{Program: p, Target: p.dev.bound, Call: call})
}

func (p *Program) Release() {
	p.Released = true
	delete(p.dev.live, p)
}
