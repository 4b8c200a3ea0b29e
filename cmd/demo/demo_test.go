package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"render-core/config"
	"render-core/headless"
	"render-core/render"
)

func headlessConfig() config.Config {
	cfg := config.Default()
	cfg.Backend = "headless"
	cfg.Render.Width, cfg.Render.Height = 16, 8
	return cfg
}

func TestFrameRunsDeferredPipeline(t *testing.T) {
	dev := headless.New()
	d, err := newDemo(headlessConfig(), dev)
	require.NoError(t, err)

	require.NoError(t, d.Frame(0.016))
	require.NoError(t, d.Frame(0.016))
	require.Len(t, dev.Draws, 8)

	mesh := dev.Draws[0]
	assert.True(t, mesh.Call.Indexed)
	assert.Equal(t, 6, mesh.Call.Count)
	assert.Equal(t, render.IndexedTriangles, mesh.Call.Mode)
	assert.Contains(t, mesh.Program.Uniforms, "u_viewProj")
	assert.Contains(t, mesh.Program.Uniforms, "u_lightDir")
	assert.NotNil(t, mesh.Program.Textures["t_albedo"])
	assert.Same(t, mesh.Target, dev.Draws[1].Target)

	grid := dev.Draws[1]
	assert.Equal(t, render.IndexedLines, grid.Call.Mode)
	// 11+11 grid lines and 12 box edges.
	assert.Equal(t, 2*34, grid.Call.Count)
	assert.Equal(t, mesh.Program.Uniforms["u_viewProj"], grid.Program.Uniforms["u_viewProj"])
	assert.Same(t, dev.Display(), dev.Draws[3].Target)

	d.Close()
	assert.Zero(t, dev.Live())
}

func TestDemoLoadsModel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tri.obj")
	obj := "v 0 0 0\nv 1 0 0\nv 0 1 0\nv 1 1 0\nf 1 2 3 4\n"
	require.NoError(t, os.WriteFile(path, []byte(obj), 0o644))

	cfg := headlessConfig()
	cfg.Model = path
	dev := headless.New()
	d, err := newDemo(cfg, dev)
	require.NoError(t, err)
	defer d.Close()

	require.NoError(t, d.Frame(0))
	assert.Equal(t, 6, dev.Draws[0].Call.Count)
}

func TestDemoMissingModel(t *testing.T) {
	cfg := headlessConfig()
	cfg.Model = filepath.Join(t.TempDir(), "missing.obj")
	dev := headless.New()
	_, err := newDemo(cfg, dev)
	assert.Error(t, err)
	assert.True(t, dev.Destroyed())
}

func TestDemoResize(t *testing.T) {
	d, err := newDemo(headlessConfig(), headless.New())
	require.NoError(t, err)
	defer d.Close()

	require.NoError(t, d.Resize(0, 0))
	assert.Equal(t, 16, d.engine.Options().Width)

	require.NoError(t, d.Resize(32, 24))
	assert.Equal(t, 32, d.engine.Options().Width)
	assert.Equal(t, 24, d.engine.Options().Height)
	require.NoError(t, d.Frame(0.016))
}

func TestRunHeadless(t *testing.T) {
	cfg := headlessConfig()
	cfg.Frames = 3
	assert.NoError(t, run(cfg))

	cfg.Backend = "nope"
	assert.Error(t, run(cfg))
}

func TestSamplePalette(t *testing.T) {
	for _, key := range palettes {
		p := samplePalette(key.t)
		assert.InDelta(t, key.sunIntensity, p.sunIntensity, 1e-6)
		assert.Equal(t, key.horizon, p.horizon)
	}

	// Halfway between the last key and noon.
	last := palettes[len(palettes)-1]
	mid := last.t + (1-last.t)/2
	p := samplePalette(mid)
	assert.InDelta(t, (last.sunIntensity+palettes[0].sunIntensity)/2, p.sunIntensity, 1e-5)
}

func TestDayNightUpdate(t *testing.T) {
	dn := NewDayNight()
	dn.Speed = 10
	dn.Update(15)
	assert.InDelta(t, 0.5, dn.Time, 1e-6)
	assert.Equal(t, "12:00 AM", dn.TimeOfDayStr())

	dn.Active = false
	dn.Update(5)
	assert.InDelta(t, 0.5, dn.Time, 1e-6)

	dn.Time = 0
	assert.Equal(t, "12:00 PM", dn.TimeOfDayStr())
	assert.InDelta(t, 1, dn.SunDirection().Len(), 1e-5)
}

func TestFrameStats(t *testing.T) {
	start := time.Now()
	s := newFrameStats(start)
	assert.False(t, s.Tick(start.Add(100*time.Millisecond)))
	assert.True(t, s.Tick(start.Add(time.Second)))
	assert.InDelta(t, 2, s.fps, 1e-9)
	assert.Equal(t, 2, s.Fields()["frames"])
}

func TestDebugOverlay(t *testing.T) {
	var o DebugOverlay
	o.AddLine("a %d", 1)
	o.AddLine("b")
	assert.Equal(t, "a 1 | b", o.GetText())
	o.Clear()
	assert.Empty(t, o.GetText())
}
