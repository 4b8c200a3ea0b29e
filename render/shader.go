package render

import "fmt"

// ShaderProgram is a linked program together with the data bound to
// its uniform, attribute and texture slots. Every declared slot must
// be filled before Draw; slots may be filled over several calls.
type ShaderProgram interface {
	HasUniform(name string) bool
	HasAttribute(name string) bool
	HasTexture(name string) bool

	// SetUniform type checks v against the slot's declared type. On
	// mismatch the slot keeps its previous value.
	SetUniform(name string, v Value) error

	// SetAttribute allocates storage sized to data and uploads it, or,
	// with the Update option, writes a sub-range of an existing
	// allocation without growing it.
	SetAttribute(name string, data AttributeData, opts ...AttributeOption) error

	// AttributeSize returns the number of elements stored for an
	// attribute (tuples count once per element), or -1 if unset.
	AttributeSize(name string) int

	// SetTexture binds a texture to a sampler slot, retaining it.
	SetTexture(name string, tb TextureBuffer) error

	// SetIndex uploads an index buffer and switches to indexed drawing.
	SetIndex(indices []uint32) error
	SetIndexTriangles(tris [][3]uint32) error

	// SetPrimitiveRestartIndex sets the sentinel that ends a strip. It
	// is only accepted by IndexedLineStrip and IndexedLineStripAdjacency
	// programs, which must set it before drawing.
	SetPrimitiveRestartIndex(restart uint32) error

	// ValidateData checks that the program can draw. Failures are
	// *ValidationError values.
	ValidateData() error

	// Draw validates the program and issues one draw call. Nothing is
	// drawn if validation fails.
	Draw() error

	DrawMode() DrawMode

	Retain()
	Release()
	RefCount() int
}

type uniformSlot struct {
	ShaderUniform
	isSet bool
	value Value
}

type attributeSlot struct {
	ShaderAttribute
	// dataSize is the element count of the stored data, -1 if nothing.
	dataSize int
}

type textureSlot struct {
	ShaderTexture
	index int
	isSet bool
	tex   TextureBuffer
}

type shaderProgram struct {
	refCount
	dev DeviceProgram

	uniforms   []*uniformSlot
	attributes []*attributeSlot
	textures   []*textureSlot

	drawMode       DrawMode
	drawDataLength int

	useIndex  bool
	indexSize int
	indices   []uint32

	usePrimitiveRestart      bool
	primitiveRestartIndexSet bool
	restartIndex             uint32

	nPatchVertices int
}

func newShaderProgram(dev DeviceProgram, layout ProgramLayout, mode DrawMode, nPatchVertices int) *shaderProgram {
	p := &shaderProgram{
		dev:                 dev,
		drawMode:            mode,
		useIndex:            mode.Indexed(),
		indexSize:           -1,
		usePrimitiveRestart: mode.usesPrimitiveRestart(),
		nPatchVertices:      nPatchVertices,
	}
	for _, u := range layout.Uniforms {
		p.uniforms = append(p.uniforms, &uniformSlot{ShaderUniform: u})
	}
	for _, a := range layout.Attributes {
		p.attributes = append(p.attributes, &attributeSlot{ShaderAttribute: a, dataSize: -1})
	}
	for i, t := range layout.Textures {
		p.textures = append(p.textures, &textureSlot{ShaderTexture: t, index: i})
	}
	p.init(p.destroy)
	return p
}

func (p *shaderProgram) destroy() {
	for _, t := range p.textures {
		if t.tex != nil {
			t.tex.Release()
			t.tex = nil
		}
	}
	p.dev.Release()
	p.dev = nil
}

// buildLayout unions the slots of all stages, dropping duplicates.
// A name declared twice with different types is a construction error.
func buildLayout(stages []ShaderStageSpecification) (ProgramLayout, error) {
	var layout ProgramLayout
	uniforms := map[string]ShaderUniform{}
	attributes := map[string]ShaderAttribute{}
	textures := map[string]ShaderTexture{}

	for _, s := range stages {
		for _, u := range s.Uniforms {
			if prev, ok := uniforms[u.Name]; ok {
				if prev.Type != u.Type {
					return layout, fmt.Errorf("%w: uniform %q declared as %v and %v", ErrConstruction, u.Name, prev.Type, u.Type)
				}
				continue
			}
			uniforms[u.Name] = u
			layout.Uniforms = append(layout.Uniforms, u)
		}
		for _, a := range s.Attributes {
			a.ArrayCount = a.arrayCount()
			if prev, ok := attributes[a.Name]; ok {
				if prev != a {
					return layout, fmt.Errorf("%w: attribute %q declared as %v[%d] and %v[%d]",
						ErrConstruction, a.Name, prev.Type, prev.ArrayCount, a.Type, a.ArrayCount)
				}
				continue
			}
			attributes[a.Name] = a
			layout.Attributes = append(layout.Attributes, a)
		}
		for _, t := range s.Textures {
			if t.Dim != 1 && t.Dim != 2 {
				return layout, fmt.Errorf("%w: texture %q has dimension %d", ErrConstruction, t.Name, t.Dim)
			}
			if prev, ok := textures[t.Name]; ok {
				if prev.Dim != t.Dim {
					return layout, fmt.Errorf("%w: texture %q declared as %dD and %dD", ErrConstruction, t.Name, prev.Dim, t.Dim)
				}
				continue
			}
			textures[t.Name] = t
			layout.Textures = append(layout.Textures, t)
		}
	}
	return layout, nil
}

func (p *shaderProgram) DrawMode() DrawMode { return p.drawMode }

func (p *shaderProgram) uniform(name string) *uniformSlot {
	for _, u := range p.uniforms {
		if u.Name == name {
			return u
		}
	}
	return nil
}

func (p *shaderProgram) attribute(name string) *attributeSlot {
	for _, a := range p.attributes {
		if a.Name == name {
			return a
		}
	}
	return nil
}

func (p *shaderProgram) texture(name string) *textureSlot {
	for _, t := range p.textures {
		if t.Name == name {
			return t
		}
	}
	return nil
}

func (p *shaderProgram) HasUniform(name string) bool   { return p.uniform(name) != nil }
func (p *shaderProgram) HasAttribute(name string) bool { return p.attribute(name) != nil }
func (p *shaderProgram) HasTexture(name string) bool   { return p.texture(name) != nil }

// ── Uniforms ──────────────────────────────────────────────────────────────────

func (p *shaderProgram) SetUniform(name string, v Value) error {
	if !p.alive() {
		return ErrReleased
	}
	u := p.uniform(name)
	if u == nil {
		return fmt.Errorf("uniform %q: %w", name, ErrUnknownSlot)
	}
	if !v.fits(u.Type) {
		return fmt.Errorf("uniform %q is %v, got %v: %w", name, u.Type, v, ErrTypeMismatch)
	}
	p.dev.SetUniform(name, u.Type, v)
	u.value = v
	u.isSet = true
	return nil
}

// ── Attributes ────────────────────────────────────────────────────────────────

func (p *shaderProgram) SetAttribute(name string, data AttributeData, opts ...AttributeOption) error {
	if !p.alive() {
		return ErrReleased
	}
	a := p.attribute(name)
	if a == nil {
		return fmt.Errorf("attribute %q: %w", name, ErrUnknownSlot)
	}
	if !data.fits(a.Type) {
		return fmt.Errorf("attribute %q is %v, got %v data: %w", name, a.Type, data.Type(), ErrTypeMismatch)
	}
	if data.width > 0 && data.width != a.ArrayCount {
		return fmt.Errorf("attribute %q has array count %d, got tuples of %d: %w", name, a.ArrayCount, data.width, ErrTypeMismatch)
	}

	w := attributeWrite{size: -1}
	for _, opt := range opts {
		opt(&w)
	}

	if !w.update {
		p.dev.AllocAttribute(name, a.Type, data.bytes)
		a.dataSize = data.n
		return nil
	}

	if a.dataSize < 0 {
		return fmt.Errorf("update of attribute %q: %w", name, ErrNotAllocated)
	}
	size := w.size
	if size < 0 {
		size = data.n
	}
	if w.offset < 0 || size > data.n || w.offset+size > a.dataSize {
		return fmt.Errorf("update of attribute %q at [%d, %d) with %d elements, allocation holds %d: %w",
			name, w.offset, w.offset+size, data.n, a.dataSize, ErrOutOfBounds)
	}
	es := data.elemSize()
	p.dev.UpdateAttribute(name, w.offset*es, data.bytes[:size*es])
	return nil
}

func (p *shaderProgram) AttributeSize(name string) int {
	a := p.attribute(name)
	if a == nil {
		return -1
	}
	return a.dataSize
}

// ── Textures ──────────────────────────────────────────────────────────────────

func (p *shaderProgram) SetTexture(name string, tb TextureBuffer) error {
	if !p.alive() {
		return ErrReleased
	}
	t := p.texture(name)
	if t == nil {
		return fmt.Errorf("texture %q: %w", name, ErrUnknownSlot)
	}
	if tb == nil || tb.RefCount() == 0 {
		return fmt.Errorf("texture %q: %w", name, ErrReleased)
	}
	if tb.Dimension() != t.Dim {
		return fmt.Errorf("texture %q is %dD, got %dD buffer: %w", name, t.Dim, tb.Dimension(), ErrTypeMismatch)
	}
	tb.Retain()
	if t.tex != nil {
		t.tex.Release()
	}
	t.tex = tb
	t.isSet = true
	p.dev.SetTexture(name, t.index, tb.deviceTexture())
	return nil
}

// ── Indices ───────────────────────────────────────────────────────────────────

func (p *shaderProgram) SetIndex(indices []uint32) error {
	if !p.alive() {
		return ErrReleased
	}
	p.indices = append(p.indices[:0], indices...)
	p.dev.SetIndex(p.indices)
	p.useIndex = true
	p.indexSize = len(indices)
	return nil
}

func (p *shaderProgram) SetIndexTriangles(tris [][3]uint32) error {
	flat := make([]uint32, 0, 3*len(tris))
	for _, t := range tris {
		flat = append(flat, t[0], t[1], t[2])
	}
	return p.SetIndex(flat)
}

func (p *shaderProgram) SetPrimitiveRestartIndex(restart uint32) error {
	if !p.alive() {
		return ErrReleased
	}
	if !p.usePrimitiveRestart {
		return fmt.Errorf("%w: primitive restart with draw mode %v", ErrUsage, p.drawMode)
	}
	p.restartIndex = restart
	p.primitiveRestartIndexSet = true
	return nil
}

// ── Validation and drawing ────────────────────────────────────────────────────

func (p *shaderProgram) ValidateData() error {
	if !p.alive() {
		return ErrReleased
	}
	for _, u := range p.uniforms {
		if !u.isSet {
			return &ValidationError{Slot: u.Name, Reason: "uniform not set"}
		}
	}

	length := -1
	var first *attributeSlot
	for _, a := range p.attributes {
		if a.dataSize < 0 {
			return &ValidationError{Slot: a.Name, Reason: "attribute not set"}
		}
		if a.dataSize%a.ArrayCount != 0 {
			return &ValidationError{Slot: a.Name, Reason: fmt.Sprintf("length %d is not a multiple of array count %d", a.dataSize, a.ArrayCount)}
		}
		n := a.dataSize / a.ArrayCount
		if first == nil {
			first, length = a, n
			continue
		}
		if n != length {
			return &ValidationError{Slot: a.Name, Other: first.Name, Reason: "attribute length mismatch"}
		}
	}

	for _, t := range p.textures {
		if !t.isSet {
			return &ValidationError{Slot: t.Name, Reason: "texture not set"}
		}
	}

	if p.useIndex {
		if p.indexSize < 0 {
			return &ValidationError{Slot: "index", Reason: "index buffer not set"}
		}
		if p.usePrimitiveRestart && !p.primitiveRestartIndexSet {
			return &ValidationError{Slot: "primitive restart index", Reason: "not set"}
		}
		if length >= 0 {
			for i, idx := range p.indices {
				if p.usePrimitiveRestart && idx == p.restartIndex {
					continue
				}
				if int64(idx) >= int64(length) {
					return &ValidationError{Slot: "index", Reason: fmt.Sprintf("entry %d is %d, only %d vertices", i, idx, length)}
				}
			}
		}
	}

	if length < 0 {
		length = 0
	}
	p.drawDataLength = length
	return nil
}

func (p *shaderProgram) Draw() error {
	if err := p.ValidateData(); err != nil {
		return fmt.Errorf("draw: %w", err)
	}
	call := DrawCall{
		Mode:          p.drawMode,
		Count:         p.drawDataLength,
		PatchVertices: p.nPatchVertices,
	}
	if p.useIndex {
		call.Indexed = true
		call.Count = p.indexSize
		call.PrimitiveRestart = p.usePrimitiveRestart
		call.RestartIndex = p.restartIndex
	}
	p.dev.Draw(call)
	return nil
}
