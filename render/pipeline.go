package render

import glm "github.com/go-gl/mathgl/mgl32"

// ── Deferred pipeline shaders ─────────────────────────────────────────────────

// fullscreenVertSrc passes a fullscreen triangle through, with UVs.
const fullscreenVertSrc = `#version 410 core
#include "fullscreen"
in vec2 a_position;
out vec2 v_uv;
void main() {
    v_uv = screenUV(a_position);
    gl_Position = vec4(a_position, 0.0, 1.0);
}
`

// lightingFragSrc resolves the GBuffer color into the scene buffer.
const lightingFragSrc = `#version 410 core
#include "tonemap"
in vec2 v_uv;
uniform sampler2D t_image;
uniform float u_exposure;
uniform float u_whiteLevel;
uniform float u_gamma;
out vec4 outputF;
void main() {
    vec4 c = texture(t_image, v_uv);
    outputF = vec4(toneMap(c.rgb, u_exposure, u_whiteLevel, u_gamma), 1.0);
}
`

// displayFragSrc copies the scene buffer to the display.
const displayFragSrc = `#version 410 core
in vec2 v_uv;
uniform sampler2D t_image;
out vec4 outputF;
void main() {
    outputF = vec4(texture(t_image, v_uv).rgb, 1.0);
}
`

var fullscreenTriangle = []glm.Vec2{{-1, -1}, {3, -1}, {-1, 3}}

func fullscreenStage() ShaderStageSpecification {
	return ShaderStageSpecification{
		Stage:      VertexStage,
		Attributes: []ShaderAttribute{{Name: "a_position", Type: Vector2Float}},
		Src:        fullscreenVertSrc,
	}
}

func lightingStages() []ShaderStageSpecification {
	return []ShaderStageSpecification{
		fullscreenStage(),
		{
			Stage: FragmentStage,
			Uniforms: []ShaderUniform{
				{Name: "u_exposure", Type: Float},
				{Name: "u_whiteLevel", Type: Float},
				{Name: "u_gamma", Type: Float},
			},
			Textures:  []ShaderTexture{{Name: "t_image", Dim: 2}},
			OutputLoc: "outputF",
			Src:       lightingFragSrc,
		},
	}
}

func displayStages() []ShaderStageSpecification {
	return []ShaderStageSpecification{
		fullscreenStage(),
		{
			Stage:     FragmentStage,
			Textures:  []ShaderTexture{{Name: "t_image", Dim: 2}},
			OutputLoc: "outputF",
			Src:       displayFragSrc,
		},
	}
}
