package render

import "fmt"

// TextureBuffer is a 1D or 2D pixel buffer on the device.
// Create one with Engine.GenerateTextureBuffer1D/2D; it can be shared
// by several FrameBuffers and ShaderPrograms at once.
type TextureBuffer interface {
	// Resize1D reallocates a 1D buffer. Contents are discarded.
	Resize1D(n int) error
	// Resize2D reallocates a 2D buffer. Contents are discarded.
	Resize2D(x, y int) error

	SizeX() int
	SizeY() int
	Dimension() int
	Format() TextureFormat

	FilterMode() FilterMode
	// SetFilterMode affects sampling by draws issued after the call.
	SetFilterMode(mode FilterMode) error

	// FillTextureData1D uploads a full row of pixels.
	FillTextureData1D(data []byte) error
	// FillTextureData2D uploads width×height pixels into the existing
	// allocation. The options are baked in by the upload and can only
	// be changed by uploading again.
	FillTextureData2D(data []byte, width, height int, opts TextureUpload) error

	Retain()
	Release()
	RefCount() int

	deviceTexture() DeviceTexture
}

type textureBuffer struct {
	refCount
	dev    DeviceTexture
	format TextureFormat
	sizeX  int
	sizeY  int
	dim    int
	filter FilterMode
}

func newTextureBuffer(dev DeviceTexture, format TextureFormat, dim, sizeX, sizeY int) *textureBuffer {
	t := &textureBuffer{dev: dev, format: format, dim: dim, sizeX: sizeX, sizeY: sizeY, filter: Nearest}
	t.init(func() {
		t.dev.Release()
		t.dev = nil
	})
	return t
}

func (t *textureBuffer) SizeX() int             { return t.sizeX }
func (t *textureBuffer) SizeY() int             { return t.sizeY }
func (t *textureBuffer) Dimension() int         { return t.dim }
func (t *textureBuffer) Format() TextureFormat  { return t.format }
func (t *textureBuffer) FilterMode() FilterMode { return t.filter }

func (t *textureBuffer) deviceTexture() DeviceTexture { return t.dev }

func (t *textureBuffer) Resize1D(n int) error {
	if t.dim != 1 {
		return fmt.Errorf("resize 1D on a %dD texture: %w", t.dim, ErrInvalidDimension)
	}
	return t.resize(n, 1)
}

func (t *textureBuffer) Resize2D(x, y int) error {
	if t.dim != 2 {
		return fmt.Errorf("resize 2D on a %dD texture: %w", t.dim, ErrInvalidDimension)
	}
	return t.resize(x, y)
}

func (t *textureBuffer) resize(x, y int) error {
	if !t.alive() {
		return ErrReleased
	}
	if x <= 0 || y <= 0 {
		return fmt.Errorf("texture size %dx%d: %w", x, y, ErrOutOfBounds)
	}
	if err := t.dev.Resize(x, y); err != nil {
		return fmt.Errorf("resize texture: %w", err)
	}
	t.sizeX, t.sizeY = x, y
	return nil
}

func (t *textureBuffer) SetFilterMode(mode FilterMode) error {
	if !t.alive() {
		return ErrReleased
	}
	t.dev.SetFilter(mode)
	t.filter = mode
	return nil
}

func (t *textureBuffer) FillTextureData1D(data []byte) error {
	if !t.alive() {
		return ErrReleased
	}
	if t.dim != 1 {
		return fmt.Errorf("1D upload to a %dD texture: %w", t.dim, ErrInvalidDimension)
	}
	if want := t.sizeX * t.format.BytesPerPixel(); len(data) != want {
		return fmt.Errorf("1D upload of %d bytes, want %d: %w", len(data), want, ErrOutOfBounds)
	}
	return t.dev.Upload(data, t.sizeX, 1, TextureUpload{WithAlpha: t.format.Channels() == 4})
}

func (t *textureBuffer) FillTextureData2D(data []byte, width, height int, opts TextureUpload) error {
	if !t.alive() {
		return ErrReleased
	}
	if t.dim != 2 {
		return fmt.Errorf("2D upload to a %dD texture: %w", t.dim, ErrInvalidDimension)
	}
	if width <= 0 || height <= 0 || width > t.sizeX || height > t.sizeY {
		return fmt.Errorf("2D upload of %dx%d into %dx%d: %w", width, height, t.sizeX, t.sizeY, ErrOutOfBounds)
	}
	if want := width * height * uploadPixelSize(t.format, opts.WithAlpha); len(data) < want {
		return fmt.Errorf("2D upload of %d bytes, want %d: %w", len(data), want, ErrOutOfBounds)
	}
	return t.dev.Upload(data, width, height, opts)
}

// uploadPixelSize is the CPU-side pixel size of an upload: RGB or RGBA
// depending on withAlpha, except for single channel formats.
func uploadPixelSize(format TextureFormat, withAlpha bool) int {
	channels := 3
	if format.Channels() == 1 {
		channels = 1
	} else if withAlpha {
		channels = 4
	}
	if format.Float() {
		return 4 * channels
	}
	return channels
}
