package opengl

import (
	"fmt"
	"unsafe"

	gl "github.com/go-gl/gl/v4.1-core/gl"

	"render-core/render"
)

// texFormat is the GL description of a render.TextureFormat.
type texFormat struct {
	internal int32
	format   uint32
	xtype    uint32
}

func textureFormat(f render.TextureFormat) (texFormat, error) {
	switch f {
	case render.RGB8:
		return texFormat{gl.RGB8, gl.RGB, gl.UNSIGNED_BYTE}, nil
	case render.RGBA8:
		return texFormat{gl.RGBA8, gl.RGBA, gl.UNSIGNED_BYTE}, nil
	case render.RGBA32F:
		return texFormat{gl.RGBA32F, gl.RGBA, gl.FLOAT}, nil
	case render.RGB32F:
		return texFormat{gl.RGB32F, gl.RGB, gl.FLOAT}, nil
	case render.R32F:
		return texFormat{gl.R32F, gl.RED, gl.FLOAT}, nil
	}
	return texFormat{}, fmt.Errorf("unsupported texture format %v", f)
}

// uploadFormat is the client pixel layout of an upload.
func uploadFormat(f render.TextureFormat, withAlpha bool) uint32 {
	switch {
	case f.Channels() == 1:
		return gl.RED
	case withAlpha:
		return gl.RGBA
	}
	return gl.RGB
}

type texture struct {
	id     uint32
	target uint32
	format render.TextureFormat
	pix    texFormat
	sizeX  int
	sizeY  int
}

func (d *Device) NewTexture(format render.TextureFormat, dim, sizeX, sizeY int, data []byte) (render.DeviceTexture, error) {
	tf, err := textureFormat(format)
	if err != nil {
		return nil, err
	}
	t := &texture{target: gl.TEXTURE_2D, format: format, pix: tf, sizeX: sizeX, sizeY: sizeY}
	if dim == 1 {
		t.target = gl.TEXTURE_1D
	}
	gl.GenTextures(1, &t.id)
	gl.BindTexture(t.target, t.id)
	gl.TexParameteri(t.target, gl.TEXTURE_MIN_FILTER, gl.NEAREST)
	gl.TexParameteri(t.target, gl.TEXTURE_MAG_FILTER, gl.NEAREST)
	gl.TexParameteri(t.target, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(t.target, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	t.allocate(data)
	gl.BindTexture(t.target, 0)
	return t, nil
}

// allocate (re)creates level 0 with the current size. The texture
// must be bound.
func (t *texture) allocate(data []byte) {
	var ptr unsafe.Pointer
	if len(data) > 0 {
		ptr = gl.Ptr(data)
	}
	if t.target == gl.TEXTURE_1D {
		gl.TexImage1D(t.target, 0, t.pix.internal, int32(t.sizeX), 0, t.pix.format, t.pix.xtype, ptr)
		return
	}
	gl.TexImage2D(t.target, 0, t.pix.internal, int32(t.sizeX), int32(t.sizeY), 0, t.pix.format, t.pix.xtype, ptr)
}

func (t *texture) Resize(sizeX, sizeY int) error {
	t.sizeX, t.sizeY = sizeX, sizeY
	gl.BindTexture(t.target, t.id)
	t.allocate(nil)
	gl.BindTexture(t.target, 0)
	return nil
}

func (t *texture) Upload(data []byte, width, height int, opts render.TextureUpload) error {
	gl.BindTexture(t.target, t.id)
	defer gl.BindTexture(t.target, 0)

	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	format := uploadFormat(t.format, opts.WithAlpha)
	if t.target == gl.TEXTURE_1D {
		gl.TexSubImage1D(t.target, 0, 0, int32(width), format, t.pix.xtype, gl.Ptr(data))
	} else {
		gl.TexSubImage2D(t.target, 0, 0, 0, int32(width), int32(height), format, t.pix.xtype, gl.Ptr(data))
	}

	wrap := int32(gl.CLAMP_TO_EDGE)
	if opts.Repeat {
		wrap = gl.REPEAT
	}
	gl.TexParameteri(t.target, gl.TEXTURE_WRAP_S, wrap)
	gl.TexParameteri(t.target, gl.TEXTURE_WRAP_T, wrap)
	if opts.UseMipMap {
		gl.GenerateMipmap(t.target)
		gl.TexParameteri(t.target, gl.TEXTURE_MIN_FILTER, gl.LINEAR_MIPMAP_LINEAR)
	}
	return nil
}

func (t *texture) SetFilter(mode render.FilterMode) {
	filter := int32(gl.NEAREST)
	if mode == render.Linear {
		filter = gl.LINEAR
	}
	gl.BindTexture(t.target, t.id)
	gl.TexParameteri(t.target, gl.TEXTURE_MIN_FILTER, filter)
	gl.TexParameteri(t.target, gl.TEXTURE_MAG_FILTER, filter)
	gl.BindTexture(t.target, 0)
}

func (t *texture) Release() {
	gl.DeleteTextures(1, &t.id)
	t.id = 0
}

// ── Render buffers ───────────────────────────────────────────────────────────

func renderBufferFormat(typ render.RenderBufferType) (uint32, error) {
	switch typ {
	case render.Color:
		return gl.RGB8, nil
	case render.ColorAlpha:
		return gl.RGBA8, nil
	case render.Depth:
		return gl.DEPTH_COMPONENT24, nil
	case render.Float4:
		return gl.RGBA32F, nil
	}
	return 0, fmt.Errorf("unsupported render buffer type %v", typ)
}

type renderBuffer struct {
	id       uint32
	internal uint32
}

func (d *Device) NewRenderBuffer(typ render.RenderBufferType, sizeX, sizeY int) (render.DeviceRenderBuffer, error) {
	internal, err := renderBufferFormat(typ)
	if err != nil {
		return nil, err
	}
	r := &renderBuffer{internal: internal}
	gl.GenRenderbuffers(1, &r.id)
	if err := r.Resize(sizeX, sizeY); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *renderBuffer) Resize(sizeX, sizeY int) error {
	gl.BindRenderbuffer(gl.RENDERBUFFER, r.id)
	gl.RenderbufferStorage(gl.RENDERBUFFER, r.internal, int32(sizeX), int32(sizeY))
	gl.BindRenderbuffer(gl.RENDERBUFFER, 0)
	return nil
}

func (r *renderBuffer) Release() {
	gl.DeleteRenderbuffers(1, &r.id)
	r.id = 0
}
