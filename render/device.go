package render

import (
	"fmt"
	"sort"
	"sync"

	glm "github.com/go-gl/mathgl/mgl32"
	log "github.com/sirupsen/logrus"
)

// Device is the interface a graphics backend implements.
// The core keeps all bookkeeping and validation on its side: device
// objects are only asked to do things that are already known to be
// legal. All methods are called from the thread owning the context.
type Device interface {
	// Name returns the backend name.
	Name() string

	// Initialize performs one-time device setup.
	Initialize() error

	// NewTexture allocates a texture of the given dimensionality.
	// data may be nil, in which case the contents are undefined.
	NewTexture(format TextureFormat, dim, sizeX, sizeY int, data []byte) (DeviceTexture, error)

	NewRenderBuffer(typ RenderBufferType, sizeX, sizeY int) (DeviceRenderBuffer, error)

	NewFramebuffer() (DeviceFramebuffer, error)

	// DisplayFramebuffer returns the framebuffer presented on screen.
	// It is owned by the device and must not be released.
	DisplayFramebuffer() DeviceFramebuffer

	// NewProgram compiles and links the stages and resolves the
	// locations of every slot in layout. Compiler and linker rejection
	// is reported as an error.
	NewProgram(stages []ShaderStageSpecification, layout ProgramLayout, mode DrawMode, nPatchVertices int) (DeviceProgram, error)

	// PollError returns the next pending asynchronous error, if any.
	PollError() error

	// Destroy frees the device. Objects created from it must have
	// been released.
	Destroy()
}

// TextureUpload carries the options baked in by a 2D upload.
type TextureUpload struct {
	WithAlpha bool
	UseMipMap bool
	Repeat    bool
}

// DeviceTexture is a device-side pixel buffer.
type DeviceTexture interface {
	// Resize reallocates the storage; contents are discarded.
	Resize(sizeX, sizeY int) error
	Upload(data []byte, width, height int, opts TextureUpload) error
	SetFilter(mode FilterMode)
	Release()
}

// DeviceRenderBuffer is a device-side attachment that is never sampled.
type DeviceRenderBuffer interface {
	Resize(sizeX, sizeY int) error
	Release()
}

// DeviceFramebuffer is a device-side render target.
type DeviceFramebuffer interface {
	AttachColorTexture(t DeviceTexture)
	AttachDepthTexture(t DeviceTexture)
	AttachColorRenderBuffer(r DeviceRenderBuffer)
	AttachDepthRenderBuffer(r DeviceRenderBuffer)

	// Bind makes the framebuffer the current target with the given
	// viewport. It returns an error if the attachments are incomplete.
	Bind(viewport Rect) error

	// Clear clears the attachments of the bound framebuffer.
	Clear(color glm.Vec4)

	// ReadFloat4 reads back one pixel of the color attachment. It
	// waits for all queued device work.
	ReadFloat4(x, y int) ([4]float32, error)

	Release()
}

// DeviceProgram is a linked shader program and its vertex state.
type DeviceProgram interface {
	SetUniform(name string, typ DataType, v Value)

	// AllocAttribute replaces the storage of an attribute with data.
	AllocAttribute(name string, typ DataType, data []byte)

	// UpdateAttribute writes data at byteOffset into existing storage.
	UpdateAttribute(name string, byteOffset int, data []byte)

	// SetTexture binds t to the sampler name on texture unit unit.
	SetTexture(name string, unit int, t DeviceTexture)

	SetIndex(indices []uint32)

	Draw(call DrawCall)

	Release()
}

// DrawCall is what a ShaderProgram asks the device to draw.
type DrawCall struct {
	Mode DrawMode
	// Count is the number of vertices, or of indices when Indexed.
	Count            int
	Indexed          bool
	PrimitiveRestart bool
	RestartIndex     uint32
	PatchVertices    int
}

// Primitives returns the number of primitives the call assembles.
// Strips with restart sentinels are counted as one strip.
func (c DrawCall) Primitives() int {
	n := c.Count
	switch c.Mode {
	case Points:
		return n
	case Lines, IndexedLines:
		return n / 2
	case LinesAdjacency, IndexedLinesAdjacency:
		return n / 4
	case Triangles, IndexedTriangles:
		return n / 3
	case TrianglesAdjacency:
		return n / 6
	case IndexedLineStrip:
		if n < 2 {
			return 0
		}
		return n - 1
	case IndexedLineStripAdjacency:
		if n < 4 {
			return 0
		}
		return n - 3
	case Patches:
		if c.PatchVertices <= 0 {
			return 0
		}
		return n / c.PatchVertices
	}
	return 0
}

// ── Backend registry ─────────────────────────────────────────────────────────

// Opener creates a Device. Backends register one from init.
type Opener func() (Device, error)

var (
	backendsMu sync.Mutex
	backends   = map[string]Opener{}
)

// Register makes a backend available under name. Registering the same
// name again replaces the previous opener.
func Register(name string, open Opener) {
	backendsMu.Lock()
	defer backendsMu.Unlock()
	if _, ok := backends[name]; ok {
		log.WithField("backend", name).Warn("backend replaced")
	}
	backends[name] = open
}

// Backends returns the registered backend names, sorted.
func Backends() []string {
	backendsMu.Lock()
	defer backendsMu.Unlock()
	names := make([]string, 0, len(backends))
	for n := range backends {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// OpenBackend opens the backend registered under name.
func OpenBackend(name string) (Device, error) {
	backendsMu.Lock()
	open, ok := backends[name]
	backendsMu.Unlock()
	if !ok {
		return nil, fmt.Errorf("render: unknown backend %q (have %v)", name, Backends())
	}
	dev, err := open()
	if err != nil {
		return nil, fmt.Errorf("open backend %q: %w", name, err)
	}
	return dev, nil
}
