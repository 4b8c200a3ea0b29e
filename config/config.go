// Package config loads the demo configuration: a TOML file, then a
// .env file, then RENDER_* environment variables, later sources
// overriding earlier ones.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	log "github.com/sirupsen/logrus"

	"render-core/render"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "RENDER_"

type Window struct {
	Title      string `toml:"title"`
	VSync      bool   `toml:"vsync"`
	Resizable  bool   `toml:"resizable"`
	Fullscreen bool   `toml:"fullscreen"`
}

type Config struct {
	// Backend names a registered render backend.
	Backend string `toml:"backend"`
	// Model is an optional .gltf, .glb or .obj file to display.
	Model string `toml:"model"`
	// Texture is an optional image applied to the model; a checker
	// pattern is used when empty.
	Texture string `toml:"texture"`
	// Frames limits the number of frames drawn; 0 runs until the
	// window closes. Headless runs default to one frame.
	Frames   int    `toml:"frames"`
	LogLevel string `toml:"log_level"`

	Window Window         `toml:"window"`
	Render render.Options `toml:"render"`
}

func Default() Config {
	return Config{
		Backend:  "opengl",
		LogLevel: "info",
		Window: Window{
			Title:     "Render Core",
			VSync:     true,
			Resizable: true,
		},
		Render: render.DefaultOptions(),
	}
}

// Load reads path (skipped when empty) over the defaults, applies the
// .env files (missing ones are ignored) and the environment, and
// validates the result.
func Load(path string, envFiles ...string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := Decode(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config %s: %w", path, err)
		}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return cfg, fmt.Errorf("load %s: %w", f, err)
		}
		log.WithField("file", f).Debug("environment file loaded")
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// Decode parses TOML into cfg. Unknown keys are an error.
func Decode(data []byte, cfg *Config) error {
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(cfg)
}

// Encode renders cfg as TOML.
func Encode(cfg Config) ([]byte, error) {
	return toml.Marshal(cfg)
}

// ApplyEnv overrides fields from RENDER_* variables found by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}
	num := func(name string, dst *int) error {
		v, ok := lookup(EnvPrefix + name)
		if !ok {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
		}
		*dst = n
		return nil
	}
	flt := func(name string, dst *float32) error {
		v, ok := lookup(EnvPrefix + name)
		if !ok {
			return nil
		}
		f, err := strconv.ParseFloat(v, 32)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
		}
		*dst = float32(f)
		return nil
	}

	str("BACKEND", &c.Backend)
	str("MODEL", &c.Model)
	str("TEXTURE", &c.Texture)
	str("LOG_LEVEL", &c.LogLevel)
	str("TITLE", &c.Window.Title)
	return errors.Join(
		num("FRAMES", &c.Frames),
		num("WIDTH", &c.Render.Width),
		num("HEIGHT", &c.Render.Height),
		flt("EXPOSURE", &c.Render.Exposure),
		flt("WHITE_LEVEL", &c.Render.WhiteLevel),
		flt("GAMMA", &c.Render.Gamma),
	)
}

func (c *Config) Validate() error {
	var errs []error
	if c.Backend == "" {
		errs = append(errs, errors.New("backend is empty"))
	}
	if c.Render.Width <= 0 || c.Render.Height <= 0 {
		errs = append(errs, fmt.Errorf("size %dx%d is not positive", c.Render.Width, c.Render.Height))
	}
	if c.Render.Gamma <= 0 {
		errs = append(errs, fmt.Errorf("gamma %v is not positive", c.Render.Gamma))
	}
	if c.Render.WhiteLevel <= 0 {
		errs = append(errs, fmt.Errorf("white level %v is not positive", c.Render.WhiteLevel))
	}
	if c.Frames < 0 {
		errs = append(errs, fmt.Errorf("frames %d is negative", c.Frames))
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Level returns the parsed log level; Validate has checked it.
func (c *Config) Level() log.Level {
	l, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return log.InfoLevel
	}
	return l
}
