package render

// ShaderUniform declares a uniform a stage requires.
type ShaderUniform struct {
	Name string
	Type DataType
}

// ShaderAttribute declares a per-vertex input a stage requires.
// ArrayCount is the number of times the element repeats for
// array-valued inputs such as `in vec3 vertexVal[3]`; zero means 1.
type ShaderAttribute struct {
	Name       string
	Type       DataType
	ArrayCount int
}

func (a ShaderAttribute) arrayCount() int {
	if a.ArrayCount <= 0 {
		return 1
	}
	return a.ArrayCount
}

// ShaderTexture declares a sampler a stage requires.
type ShaderTexture struct {
	Name string
	Dim  int
}

// ShaderStageSpecification describes one pipeline stage: its source
// and the data it needs. Specifications are treated as immutable once
// handed to Engine.GenerateShaderProgram.
type ShaderStageSpecification struct {
	Stage      ShaderStageType
	Uniforms   []ShaderUniform
	Attributes []ShaderAttribute
	Textures   []ShaderTexture
	OutputLoc  string
	Src        string
}

// ProgramLayout is the de-duplicated slot table of a program, in
// declaration order across its stages. Backends use it to resolve
// locations after linking.
type ProgramLayout struct {
	Uniforms   []ShaderUniform
	Attributes []ShaderAttribute
	Textures   []ShaderTexture
}
