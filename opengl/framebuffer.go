package opengl

import (
	"fmt"

	gl "github.com/go-gl/gl/v4.1-core/gl"
	glm "github.com/go-gl/mathgl/mgl32"

	"render-core/render"
)

type framebuffer struct {
	dev     *Device
	fbo     uint32
	display bool
	hasDep  bool
}

func (d *Device) NewFramebuffer() (render.DeviceFramebuffer, error) {
	f := &framebuffer{dev: d}
	gl.GenFramebuffers(1, &f.fbo)
	return f, nil
}

func (f *framebuffer) attachTexture(point uint32, t render.DeviceTexture) {
	gl.BindFramebuffer(gl.FRAMEBUFFER, f.fbo)
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, point, gl.TEXTURE_2D, t.(*texture).id, 0)
}

func (f *framebuffer) attachRenderBuffer(point uint32, r render.DeviceRenderBuffer) {
	gl.BindFramebuffer(gl.FRAMEBUFFER, f.fbo)
	gl.FramebufferRenderbuffer(gl.FRAMEBUFFER, point, gl.RENDERBUFFER, r.(*renderBuffer).id)
}

func (f *framebuffer) AttachColorTexture(t render.DeviceTexture) {
	f.attachTexture(gl.COLOR_ATTACHMENT0, t)
}

func (f *framebuffer) AttachDepthTexture(t render.DeviceTexture) {
	f.attachTexture(gl.DEPTH_ATTACHMENT, t)
	f.hasDep = true
}

func (f *framebuffer) AttachColorRenderBuffer(r render.DeviceRenderBuffer) {
	f.attachRenderBuffer(gl.COLOR_ATTACHMENT0, r)
}

func (f *framebuffer) AttachDepthRenderBuffer(r render.DeviceRenderBuffer) {
	f.attachRenderBuffer(gl.DEPTH_ATTACHMENT, r)
	f.hasDep = true
}

func (f *framebuffer) Bind(viewport render.Rect) error {
	gl.BindFramebuffer(gl.FRAMEBUFFER, f.fbo)
	if !f.display {
		if s := gl.CheckFramebufferStatus(gl.FRAMEBUFFER); s != gl.FRAMEBUFFER_COMPLETE {
			return fmt.Errorf("framebuffer incomplete: 0x%x", s)
		}
	}
	gl.Viewport(int32(viewport.X), int32(viewport.Y), int32(viewport.Width), int32(viewport.Height))
	return nil
}

func (f *framebuffer) Clear(color glm.Vec4) {
	gl.ClearColor(color[0], color[1], color[2], color[3])
	mask := uint32(gl.COLOR_BUFFER_BIT)
	if f.display || f.hasDep {
		mask |= gl.DEPTH_BUFFER_BIT
	}
	gl.Clear(mask)
}

// ReadFloat4 reads one pixel of the bound color buffer. glReadPixels
// blocks until all queued commands have finished.
func (f *framebuffer) ReadFloat4(x, y int) ([4]float32, error) {
	var px [4]float32
	if f.display {
		gl.ReadBuffer(gl.BACK)
	} else {
		gl.ReadBuffer(gl.COLOR_ATTACHMENT0)
	}
	gl.ReadPixels(int32(x), int32(y), 1, 1, gl.RGBA, gl.FLOAT, gl.Ptr(&px[0]))
	if code := gl.GetError(); code != gl.NO_ERROR {
		return px, fmt.Errorf("glReadPixels: %s", errorName(code))
	}
	return px, nil
}

func (f *framebuffer) Release() {
	if f.display {
		return
	}
	gl.DeleteFramebuffers(1, &f.fbo)
	f.fbo = 0
}
