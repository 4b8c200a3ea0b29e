// Package opengl implements render.Device on an OpenGL 4.1 core context.
//
// The context must be current on the calling goroutine (see core.Window)
// before Initialize, and every call must come from that goroutine.
package opengl

import (
	"fmt"

	gl "github.com/go-gl/gl/v4.1-core/gl"
	log "github.com/sirupsen/logrus"

	"render-core/render"
)

func init() {
	render.Register("opengl", func() (render.Device, error) { return New(), nil })
}

// Device is the OpenGL backend.
type Device struct {
	initialized bool
	display     *framebuffer
	log         *log.Entry
}

// New returns a device. No GL call is made until Initialize.
func New() *Device {
	d := &Device{log: log.WithField("backend", "opengl")}
	d.display = &framebuffer{dev: d, fbo: 0, display: true}
	return d
}

func (d *Device) Name() string { return "opengl" }

// Initialize loads the GL entry points of the current context.
func (d *Device) Initialize() error {
	if d.initialized {
		return nil
	}
	if err := gl.Init(); err != nil {
		return fmt.Errorf("failed to initialize OpenGL: %w", err)
	}
	d.log.WithFields(log.Fields{
		"version":  gl.GoStr(gl.GetString(gl.VERSION)),
		"renderer": gl.GoStr(gl.GetString(gl.RENDERER)),
		"glsl":     gl.GoStr(gl.GetString(gl.SHADING_LANGUAGE_VERSION)),
	}).Info("OpenGL context ready")

	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LESS)
	d.initialized = true
	return nil
}

func (d *Device) DisplayFramebuffer() render.DeviceFramebuffer { return d.display }

// PollError returns the oldest pending GL error, if any.
func (d *Device) PollError() error {
	code := gl.GetError()
	if code == gl.NO_ERROR {
		return nil
	}
	return fmt.Errorf("OpenGL error %s (0x%04x)", errorName(code), code)
}

func (d *Device) Destroy() {
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	gl.UseProgram(0)
	d.initialized = false
}

func errorName(code uint32) string {
	switch code {
	case gl.INVALID_ENUM:
		return "GL_INVALID_ENUM"
	case gl.INVALID_VALUE:
		return "GL_INVALID_VALUE"
	case gl.INVALID_OPERATION:
		return "GL_INVALID_OPERATION"
	case gl.INVALID_FRAMEBUFFER_OPERATION:
		return "GL_INVALID_FRAMEBUFFER_OPERATION"
	case gl.OUT_OF_MEMORY:
		return "GL_OUT_OF_MEMORY"
	case gl.STACK_UNDERFLOW:
		return "GL_STACK_UNDERFLOW"
	case gl.STACK_OVERFLOW:
		return "GL_STACK_OVERFLOW"
	}
	return "unknown"
}
