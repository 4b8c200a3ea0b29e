package render_test

import (
	"io"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"render-core/headless"
	"render-core/render"
)

func quietLogger() *log.Logger {
	l := log.New()
	l.Out = io.Discard
	return l
}

func testOptions() render.Options {
	return render.Options{Width: 8, Height: 4, Exposure: 1, WhiteLevel: 1, Gamma: 2.2}
}

// newEngine returns an initialized engine over a headless device.
func newEngine(t *testing.T) (*render.Engine, *headless.Device) {
	t.Helper()
	dev := headless.New()
	e := render.NewEngine(dev, render.WithLogger(quietLogger()), render.WithOptions(testOptions()))
	require.NoError(t, e.Initialize())
	t.Cleanup(e.Destroy)
	return e, dev
}

// lastProgram returns the device object of the program created last.
func lastProgram(dev *headless.Device) *headless.Program {
	return dev.Programs[len(dev.Programs)-1]
}

const vertexSrc = `#version 410 core
in vec3 position;
void main() { gl_Position = vec4(position, 1.0); }
`

const fragmentSrc = `#version 410 core
uniform vec3 color;
out vec4 outColor;
void main() { outColor = vec4(color, 1.0); }
`

// triangleStages is a vertex stage with a position attribute and a
// fragment stage with a color uniform.
func triangleStages() []render.ShaderStageSpecification {
	return []render.ShaderStageSpecification{
		{
			Stage:      render.VertexStage,
			Attributes: []render.ShaderAttribute{{Name: "position", Type: render.Vector3Float, ArrayCount: 1}},
			Src:        vertexSrc,
		},
		{
			Stage:     render.FragmentStage,
			Uniforms:  []render.ShaderUniform{{Name: "color", Type: render.Vector3Float}},
			OutputLoc: "outColor",
			Src:       fragmentSrc,
		},
	}
}
