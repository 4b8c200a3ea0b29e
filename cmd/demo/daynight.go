package main

import (
	"fmt"
	"math"

	glm "github.com/go-gl/mathgl/mgl32"

	"render-core/core"
	"render-core/render"
)

// dayPalette holds the sky and light values for one key time of day.
type dayPalette struct {
	t            float32    // normalised time 0..1
	horizon      core.Color // GBuffer clear color
	sunColor     core.Color
	sunIntensity float32
	ambient      core.Color
}

// palettes defines the key states throughout the day.
// t is ordered 0→1 and wraps (0 == 1).
var palettes = []dayPalette{
	{ // noon
		t:            0.00,
		horizon:      core.Color{R: 0.58, G: 0.75, B: 0.95, A: 1},
		sunColor:     core.Color{R: 1.00, G: 0.98, B: 0.92, A: 1},
		sunIntensity: 1.20,
		ambient:      core.Color{R: 0.16, G: 0.18, B: 0.26, A: 1},
	},
	{ // golden hour
		t:            0.22,
		horizon:      core.Color{R: 0.90, G: 0.52, B: 0.18, A: 1},
		sunColor:     core.Color{R: 1.00, G: 0.65, B: 0.25, A: 1},
		sunIntensity: 0.90,
		ambient:      core.Color{R: 0.10, G: 0.12, B: 0.20, A: 1},
	},
	{ // dusk
		t:            0.30,
		horizon:      core.Color{R: 0.50, G: 0.22, B: 0.28, A: 1},
		sunColor:     core.Color{R: 0.70, G: 0.40, B: 0.55, A: 1},
		sunIntensity: 0.25,
		ambient:      core.Color{R: 0.06, G: 0.07, B: 0.14, A: 1},
	},
	{ // midnight
		t:            0.50,
		horizon:      core.Color{R: 0.04, G: 0.04, B: 0.08, A: 1},
		sunColor:     core.Color{R: 0.40, G: 0.45, B: 0.65, A: 1}, // moonlight
		sunIntensity: 0.12,
		ambient:      core.Color{R: 0.03, G: 0.04, B: 0.09, A: 1},
	},
	{ // pre-dawn
		t:            0.70,
		horizon:      core.Color{R: 0.40, G: 0.18, B: 0.24, A: 1},
		sunColor:     core.Color{R: 0.75, G: 0.42, B: 0.60, A: 1},
		sunIntensity: 0.20,
		ambient:      core.Color{R: 0.06, G: 0.07, B: 0.14, A: 1},
	},
	{ // sunrise
		t:            0.78,
		horizon:      core.Color{R: 0.88, G: 0.45, B: 0.22, A: 1},
		sunColor:     core.Color{R: 1.00, G: 0.60, B: 0.28, A: 1},
		sunIntensity: 0.70,
		ambient:      core.Color{R: 0.09, G: 0.10, B: 0.17, A: 1},
	},
}

// DayNight drives the animated day/night cycle.
type DayNight struct {
	Time   float32 // 0..1: 0=noon, 0.25=sunset, 0.5=midnight, 0.75=sunrise
	Speed  float32 // full-cycle duration in seconds
	Active bool    // auto-advance when true
}

func NewDayNight() *DayNight {
	return &DayNight{Speed: 120, Active: true}
}

func (dn *DayNight) Update(dt float32) {
	if !dn.Active || dn.Speed <= 0 {
		return
	}
	dn.Time += dt / dn.Speed
	for dn.Time >= 1 {
		dn.Time--
	}
}

func lerpColor(a, b core.Color, t float32) core.Color {
	return core.Color{
		R: a.R + (b.R-a.R)*t,
		G: a.G + (b.G-a.G)*t,
		B: a.B + (b.B-a.B)*t,
		A: 1,
	}
}

// samplePalette interpolates the two keys around t, wrapping from the
// last key back to noon.
func samplePalette(t float32) dayPalette {
	n := len(palettes)
	a, b := palettes[n-1], palettes[0]
	span := 1 - a.t + b.t
	local := t - a.t
	if local < 0 {
		local++
	}
	for i := 0; i < n-1; i++ {
		if t >= palettes[i].t && t < palettes[i+1].t {
			a, b = palettes[i], palettes[i+1]
			span = b.t - a.t
			local = t - a.t
			break
		}
	}
	f := local / span
	return dayPalette{
		t:            t,
		horizon:      lerpColor(a.horizon, b.horizon, f),
		sunColor:     lerpColor(a.sunColor, b.sunColor, f),
		sunIntensity: a.sunIntensity + (b.sunIntensity-a.sunIntensity)*f,
		ambient:      lerpColor(a.ambient, b.ambient, f),
	}
}

// SunDirection points from the scene toward the sun: overhead at noon,
// below the horizon at midnight.
func (dn *DayNight) SunDirection() glm.Vec3 {
	angle := float64(dn.Time) * 2 * math.Pi
	return glm.Vec3{
		float32(math.Sin(angle)),
		float32(math.Cos(angle)),
		0.35,
	}.Normalize()
}

// Apply pushes the current sky state to the engine and the mesh pass.
// Exposure follows the sun so nights stay readable after tone mapping.
func (dn *DayNight) Apply(e *render.Engine, base render.Options, pass *meshPass) error {
	p := samplePalette(dn.Time)
	e.GBuffer().SetClearColor(p.horizon.RGB())
	e.SetToneMapping(base.Exposure*(1.5-0.5*min(p.sunIntensity, 1)), base.WhiteLevel, base.Gamma)
	if pass == nil {
		return nil
	}
	return pass.SetLight(dn.SunDirection(), p.sunColor.RGB().Mul(p.sunIntensity), p.ambient.RGB())
}

// TimeOfDayStr returns a human-readable time label.
func (dn *DayNight) TimeOfDayStr() string {
	// Time 0 is noon.
	hours := math.Mod(float64(dn.Time)*24+12, 24)
	h := int(hours)
	m := int((hours - float64(h)) * 60)
	period := "AM"
	displayH := h
	switch {
	case h == 0:
		displayH = 12
	case h == 12:
		period = "PM"
	case h > 12:
		displayH = h - 12
		period = "PM"
	}
	return fmt.Sprintf("%02d:%02d %s", displayH, m, period)
}
