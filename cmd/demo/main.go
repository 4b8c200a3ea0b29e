// Command demo renders a lit, textured mesh through the deferred
// pipeline. With the headless backend it draws a fixed number of
// frames and reports a display pixel, which makes it usable in CI.
package main

import (
	"errors"
	"flag"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"

	"render-core/config"
	"render-core/core"
	_ "render-core/headless"
	"render-core/meshio"
	_ "render-core/opengl"
	"render-core/render"
	"render-core/textures"
)

func main() {
	configPath := flag.String("config", "", "TOML configuration file")
	backend := flag.String("backend", "", "render backend, one of "+fmt.Sprint(render.Backends()))
	model := flag.String("model", "", "mesh to display (.gltf, .glb or .obj)")
	frames := flag.Int("frames", -1, "frames to draw; 0 runs until the window closes")
	printConfig := flag.Bool("print-config", false, "print the effective configuration and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath, ".env")
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}
	if *backend != "" {
		cfg.Backend = *backend
	}
	if *model != "" {
		cfg.Model = *model
	}
	if *frames >= 0 {
		cfg.Frames = *frames
	}
	log.SetLevel(cfg.Level())

	if *printConfig {
		out, err := config.Encode(cfg)
		if err != nil {
			log.WithError(err).Fatal("failed to encode configuration")
		}
		os.Stdout.Write(out)
		return
	}

	if err := run(cfg); err != nil {
		log.WithError(err).Fatal("demo failed")
	}
	log.Info("exiting")
}

func run(cfg config.Config) error {
	dev, err := render.OpenBackend(cfg.Backend)
	if err != nil {
		return err
	}

	// Only the GL backend needs a window; its context must be current
	// before the engine initializes.
	var window *core.Window
	if cfg.Backend == "opengl" {
		window, err = core.NewWindow(core.WindowConfig{
			Width:      cfg.Render.Width,
			Height:     cfg.Render.Height,
			Title:      cfg.Window.Title,
			Resizable:  cfg.Window.Resizable,
			VSync:      cfg.Window.VSync,
			Fullscreen: cfg.Window.Fullscreen,
		})
		if err != nil {
			return err
		}
		defer window.Destroy()
	}

	d, err := newDemo(cfg, dev)
	if err != nil {
		return err
	}
	defer d.Close()

	frames := cfg.Frames
	if window == nil && frames == 0 {
		frames = 1
	}

	var overlay DebugOverlay
	prev := time.Now()
	stats := newFrameStats(prev)
	for i := 0; frames == 0 || i < frames; i++ {
		if window != nil {
			if window.ShouldClose() || window.IsKeyPressed(core.KeyEscape) || window.IsKeyPressed(core.KeyQ) {
				break
			}
			window.PollEvents()
			if err := d.Resize(window.GetFramebufferSize()); err != nil {
				return err
			}
		}

		now := time.Now()
		if err := d.Frame(float32(now.Sub(prev).Seconds())); err != nil {
			return err
		}
		prev = now
		if window != nil {
			window.SwapBuffers()
		}

		if stats.Tick(now) {
			overlay.Clear()
			overlay.AddLine("%s", cfg.Window.Title)
			overlay.AddLine("FPS: %.0f", stats.fps)
			overlay.AddLine("%s", d.dayNight.TimeOfDayStr())
			if window != nil {
				window.SetTitle(overlay.GetText())
			}
			d.log.WithFields(stats.Fields()).Debug(overlay.GetText())
		}
	}

	if window == nil {
		px, err := d.engine.DisplayBuffer().ReadFloat4(0, 0)
		if err != nil {
			return fmt.Errorf("read back display: %w", err)
		}
		d.log.WithFields(log.Fields{"frames": stats.total, "pixel": px}).Info("headless run finished")
	}
	return nil
}

// demo owns the engine and everything drawn with it.
type demo struct {
	cfg      config.Config
	engine   *render.Engine
	textures *textures.TextureManager
	checker  render.TextureBuffer
	pass     *meshPass
	grid     *gridPass
	dayNight *DayNight
	angle    float32
	log      *log.Entry
}

func newDemo(cfg config.Config, dev render.Device) (*demo, error) {
	e := render.NewEngine(dev, render.WithOptions(cfg.Render))
	if err := e.Initialize(); err != nil {
		e.Destroy()
		return nil, err
	}
	d := &demo{
		cfg:      cfg,
		engine:   e,
		textures: textures.NewTextureManager(e, textures.Options{MaxSize: 2048, FlipY: true, Filter: render.Linear}),
		dayNight: NewDayNight(),
		log:      log.WithField("backend", dev.Name()),
	}
	if err := d.setup(); err != nil {
		d.Close()
		return nil, err
	}
	return d, nil
}

func (d *demo) setup() error {
	mesh, err := loadMesh(d.cfg.Model)
	if err != nil {
		return err
	}
	d.log.WithFields(log.Fields{
		"mesh":      mesh.Name,
		"vertices":  len(mesh.Vertices),
		"triangles": len(mesh.Indices) / 3,
	}).Info("mesh ready")

	var albedo render.TextureBuffer
	if d.cfg.Texture != "" {
		albedo = d.textures.GetOrDefault(d.cfg.Texture)
		if albedo == nil {
			return errors.New("no albedo texture")
		}
	} else {
		d.checker, err = d.textures.Checker(64,
			color.RGBA{R: 230, G: 230, B: 230, A: 255},
			color.RGBA{R: 60, G: 60, B: 70, A: 255})
		if err != nil {
			return err
		}
		albedo = d.checker
	}

	if d.pass, err = newMeshPass(d.engine, mesh, albedo, core.ColorWhite); err != nil {
		return err
	}
	d.grid, err = newGridPass(d.engine, mesh)
	return err
}

func loadMesh(path string) (*core.MeshData, error) {
	if path == "" {
		return quadMesh(), nil
	}
	meshes, err := meshio.Load(path)
	if err != nil {
		return nil, err
	}
	if len(meshes) == 0 {
		return nil, fmt.Errorf("%s: no triangle meshes", path)
	}
	return meshio.Merge(filepath.Base(path), meshes), nil
}

// Frame advances the animation by dt seconds and renders one frame.
func (d *demo) Frame(dt float32) error {
	d.dayNight.Update(dt)
	if err := d.dayNight.Apply(d.engine, d.cfg.Render, d.pass); err != nil {
		return err
	}
	d.angle += dt * 0.5
	opts := d.engine.Options()
	vp := d.pass.orbit(d.angle, float32(opts.Width)/float32(opts.Height))
	if err := d.pass.SetViewProj(vp); err != nil {
		return err
	}
	if err := d.grid.SetViewProj(vp); err != nil {
		return err
	}

	if err := d.engine.ClearGBuffer(); err != nil {
		return err
	}
	if err := d.pass.Draw(); err != nil {
		return err
	}
	if err := d.grid.Draw(); err != nil {
		return err
	}
	if err := d.engine.ComputeLighting(); err != nil {
		return err
	}
	if err := d.engine.ToDisplay(); err != nil {
		return err
	}
	// Device errors are logged; the frame loop keeps going.
	_ = d.engine.CheckError(false)
	return nil
}

// Resize follows the window's framebuffer. A minimized window reports
// 0×0 and is ignored.
func (d *demo) Resize(width, height int) error {
	opts := d.engine.Options()
	if width <= 0 || height <= 0 || (width == opts.Width && height == opts.Height) {
		return nil
	}
	d.log.WithFields(log.Fields{"width": width, "height": height}).Debug("resize")
	return d.engine.Resize(width, height)
}

func (d *demo) Close() {
	if d.grid != nil {
		d.grid.Release()
		d.grid = nil
	}
	if d.pass != nil {
		d.pass.Release()
		d.pass = nil
	}
	if d.checker != nil {
		d.checker.Release()
		d.checker = nil
	}
	d.textures.DestroyAll()
	d.engine.Destroy()
}
