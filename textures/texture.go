package textures

import (
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"sync"

	log "github.com/sirupsen/logrus"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"

	"render-core/render"
)

// Generator creates device textures. *render.Engine implements it.
type Generator interface {
	GenerateTextureBuffer2D(format render.TextureFormat, sizeX, sizeY int, data []byte) (render.TextureBuffer, error)
}

// Options control how images become textures.
type Options struct {
	// MaxSize bounds the larger side; bigger images are downscaled.
	// Zero means no bound.
	MaxSize int
	// FlipY stores the last image row first, matching GL's bottom-left
	// texture origin.
	FlipY bool
	// Filter is set on every texture created.
	Filter render.FilterMode
}

// TextureManager caches textures by path. It owns one reference to
// every cached texture; callers that keep a texture past DestroyAll
// must Retain it.
type TextureManager struct {
	gen      Generator
	opts     Options
	textures map[string]render.TextureBuffer
	mu       sync.RWMutex
}

func NewTextureManager(gen Generator, opts Options) *TextureManager {
	return &TextureManager{
		gen:      gen,
		opts:     opts,
		textures: make(map[string]render.TextureBuffer),
	}
}

// LoadTexture loads a texture from file, returning the cached one if available.
func (tm *TextureManager) LoadTexture(path string) (render.TextureBuffer, error) {
	if tex, ok := tm.cached(path); ok {
		return tex, nil
	}

	img, err := loadImageFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load image %s: %w", path, err)
	}
	tex, err := tm.FromImage(img)
	if err != nil {
		return nil, fmt.Errorf("texture %s: %w", path, err)
	}
	log.WithFields(log.Fields{"path": path, "width": tex.SizeX(), "height": tex.SizeY()}).Debug("texture loaded")
	return tm.store(path, tex), nil
}

// GetOrDefault returns the texture at path, or the default white texture.
func (tm *TextureManager) GetOrDefault(path string) render.TextureBuffer {
	if path == "" {
		return tm.GetDefaultTexture()
	}
	tex, err := tm.LoadTexture(path)
	if err != nil {
		log.WithError(err).WithField("path", path).Warn("falling back to default texture")
		return tm.GetDefaultTexture()
	}
	return tex
}

// GetDefaultTexture returns a 1x1 white texture.
func (tm *TextureManager) GetDefaultTexture() render.TextureBuffer {
	const key = "__default_white__"
	if tex, ok := tm.cached(key); ok {
		return tex
	}
	tex, err := tm.Solid(color.RGBA{255, 255, 255, 255})
	if err != nil {
		log.WithError(err).Error("creating default texture")
		return nil
	}
	return tm.store(key, tex)
}

// Len returns the number of cached textures.
func (tm *TextureManager) Len() int {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	return len(tm.textures)
}

// DestroyAll releases every cached texture.
func (tm *TextureManager) DestroyAll() {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	for _, tex := range tm.textures {
		tex.Release()
	}
	tm.textures = make(map[string]render.TextureBuffer)
}

func (tm *TextureManager) cached(key string) (render.TextureBuffer, bool) {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	tex, ok := tm.textures[key]
	return tex, ok
}

// store caches tex under key unless another caller got there first,
// in which case tex is released and the cached one returned.
func (tm *TextureManager) store(key string, tex render.TextureBuffer) render.TextureBuffer {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	if prev, ok := tm.textures[key]; ok {
		tex.Release()
		return prev
	}
	tm.textures[key] = tex
	return tex
}

// FromImage creates an RGBA8 texture from img. The result is not cached.
func (tm *TextureManager) FromImage(img image.Image) (render.TextureBuffer, error) {
	rgba := tm.toRGBA(img)
	b := rgba.Bounds()
	tex, err := tm.gen.GenerateTextureBuffer2D(render.RGBA8, b.Dx(), b.Dy(), rgba.Pix)
	if err != nil {
		return nil, err
	}
	if err := tex.SetFilterMode(tm.opts.Filter); err != nil {
		tex.Release()
		return nil, err
	}
	return tex, nil
}

// Solid creates a 1x1 texture of color c. The result is not cached.
func (tm *TextureManager) Solid(c color.RGBA) (render.TextureBuffer, error) {
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	img.SetRGBA(0, 0, c)
	return tm.FromImage(img)
}

// Checker creates a size×size checkerboard of 8×8 blocks. The result
// is not cached.
func (tm *TextureManager) Checker(size int, c1, c2 color.RGBA) (render.TextureBuffer, error) {
	return tm.FromImage(checkerImage(size, c1, c2))
}

// toRGBA converts img to a tightly packed RGBA image, downscaled to
// MaxSize and flipped as configured.
func (tm *TextureManager) toRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	w, h := fitSize(b.Dx(), b.Dy(), tm.opts.MaxSize)

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	if w == b.Dx() && h == b.Dy() {
		draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	} else {
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	}
	if tm.opts.FlipY {
		flipRows(dst)
	}
	return dst
}

// fitSize scales w×h down so that neither side exceeds max, keeping
// the aspect ratio. Sides never drop below one pixel.
func fitSize(w, h, max int) (int, int) {
	if max <= 0 || (w <= max && h <= max) {
		return w, h
	}
	if w >= h {
		return max, clampOne(h * max / w)
	}
	return clampOne(w * max / h), max
}

func clampOne(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

func flipRows(img *image.RGBA) {
	h := img.Bounds().Dy()
	row := make([]byte, img.Stride)
	for y := 0; y < h/2; y++ {
		top := img.Pix[y*img.Stride : (y+1)*img.Stride]
		bottom := img.Pix[(h-1-y)*img.Stride : (h-y)*img.Stride]
		copy(row, top)
		copy(top, bottom)
		copy(bottom, row)
	}
}

func checkerImage(size int, c1, c2 color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	blockSize := size / 8
	if blockSize < 1 {
		blockSize = 1
	}
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			if ((x/blockSize)+(y/blockSize))%2 == 0 {
				img.SetRGBA(x, y, c1)
			} else {
				img.SetRGBA(x, y, c2)
			}
		}
	}
	return img
}

// loadImageFile reads and decodes an image file.
func loadImageFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, err
	}
	return img, nil
}
