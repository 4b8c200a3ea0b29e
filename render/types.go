package render

import "fmt"

// DrawMode is the primitive topology a ShaderProgram draws with.
type DrawMode int

const (
	Points DrawMode = iota
	LinesAdjacency
	Triangles
	TrianglesAdjacency
	Patches
	IndexedTriangles
	Lines
	IndexedLines
	IndexedLineStrip
	IndexedLinesAdjacency
	IndexedLineStripAdjacency
)

var drawModeNames = [...]string{
	Points:                    "Points",
	LinesAdjacency:            "LinesAdjacency",
	Triangles:                 "Triangles",
	TrianglesAdjacency:        "TrianglesAdjacency",
	Patches:                   "Patches",
	IndexedTriangles:          "IndexedTriangles",
	Lines:                     "Lines",
	IndexedLines:              "IndexedLines",
	IndexedLineStrip:          "IndexedLineStrip",
	IndexedLinesAdjacency:     "IndexedLinesAdjacency",
	IndexedLineStripAdjacency: "IndexedLineStripAdjacency",
}

func (m DrawMode) String() string {
	if m < 0 || int(m) >= len(drawModeNames) {
		return fmt.Sprintf("DrawMode(%d)", int(m))
	}
	return drawModeNames[m]
}

// Indexed reports whether the mode needs an index buffer to draw.
func (m DrawMode) Indexed() bool {
	switch m {
	case IndexedTriangles, IndexedLines, IndexedLineStrip, IndexedLinesAdjacency, IndexedLineStripAdjacency:
		return true
	}
	return false
}

// usesPrimitiveRestart reports whether strips drawn in this mode are
// split by a restart sentinel.
func (m DrawMode) usesPrimitiveRestart() bool {
	return m == IndexedLineStrip || m == IndexedLineStripAdjacency
}

func (m DrawMode) valid() bool { return m >= Points && m <= IndexedLineStripAdjacency }

// FilterMode selects how a TextureBuffer is sampled.
type FilterMode int

const (
	Nearest FilterMode = iota
	Linear
)

func (f FilterMode) String() string {
	if f == Linear {
		return "Linear"
	}
	return "Nearest"
}

// TextureFormat is the pixel layout and precision of a TextureBuffer.
type TextureFormat int

const (
	RGB8 TextureFormat = iota
	RGBA8
	RGBA32F
	RGB32F
	R32F
)

func (f TextureFormat) String() string {
	switch f {
	case RGB8:
		return "RGB8"
	case RGBA8:
		return "RGBA8"
	case RGBA32F:
		return "RGBA32F"
	case RGB32F:
		return "RGB32F"
	case R32F:
		return "R32F"
	}
	return fmt.Sprintf("TextureFormat(%d)", int(f))
}

// Channels returns the number of color channels per pixel.
func (f TextureFormat) Channels() int {
	switch f {
	case RGB8, RGB32F:
		return 3
	case RGBA8, RGBA32F:
		return 4
	case R32F:
		return 1
	}
	return 0
}

// BytesPerPixel returns the size of one pixel in CPU-side upload data.
func (f TextureFormat) BytesPerPixel() int {
	if f.Float() {
		return 4 * f.Channels()
	}
	return f.Channels()
}

// Float reports whether the format stores 32-bit float channels.
func (f TextureFormat) Float() bool {
	return f == RGBA32F || f == RGB32F || f == R32F
}

// RenderBufferType is the role of a RenderBuffer attachment.
type RenderBufferType int

const (
	Color RenderBufferType = iota
	ColorAlpha
	Depth
	Float4
)

func (t RenderBufferType) String() string {
	switch t {
	case Color:
		return "Color"
	case ColorAlpha:
		return "ColorAlpha"
	case Depth:
		return "Depth"
	case Float4:
		return "Float4"
	}
	return fmt.Sprintf("RenderBufferType(%d)", int(t))
}

// DataType is the type of a uniform or attribute slot.
type DataType int

const (
	Vector2Float DataType = iota
	Vector3Float
	Vector4Float
	Matrix44Float
	Float
	Int
	UInt
	Index
)

func (t DataType) String() string {
	switch t {
	case Vector2Float:
		return "Vector2Float"
	case Vector3Float:
		return "Vector3Float"
	case Vector4Float:
		return "Vector4Float"
	case Matrix44Float:
		return "Matrix44Float"
	case Float:
		return "Float"
	case Int:
		return "Int"
	case UInt:
		return "UInt"
	case Index:
		return "Index"
	}
	return fmt.Sprintf("DataType(%d)", int(t))
}

// Components returns the number of scalar components of one value.
func (t DataType) Components() int {
	switch t {
	case Vector2Float:
		return 2
	case Vector3Float:
		return 3
	case Vector4Float:
		return 4
	case Matrix44Float:
		return 16
	}
	return 1
}

// ShaderStageType identifies a stage of the programmable pipeline.
type ShaderStageType int

const (
	VertexStage ShaderStageType = iota
	TessellationStage
	EvaluationStage
	GeometryStage
	FragmentStage
)

func (s ShaderStageType) String() string {
	switch s {
	case VertexStage:
		return "vertex"
	case TessellationStage:
		return "tessellation control"
	case EvaluationStage:
		return "tessellation evaluation"
	case GeometryStage:
		return "geometry"
	case FragmentStage:
		return "fragment"
	}
	return fmt.Sprintf("ShaderStageType(%d)", int(s))
}

// Rect is a viewport rectangle in pixels.
type Rect struct {
	X, Y          int
	Width, Height int
}
