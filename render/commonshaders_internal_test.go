package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommonShadersLoaded(t *testing.T) {
	lib, err := loadCommonShaders()
	require.NoError(t, err)
	assert.Equal(t, []string{"color", "depth", "fullscreen", "tonemap"}, lib.Names())

	again, err := loadCommonShaders()
	require.NoError(t, err)
	assert.Same(t, lib, again)
}

func TestExpand(t *testing.T) {
	lib := &ShaderLibrary{snippets: map[string]string{
		"a":    "float a() { return 1.0; }",
		"b":    "#include \"a\"\nfloat b() { return a(); }\n",
		"loop": "#include \"loop\"\n",
	}}

	out, err := lib.Expand("#version 410 core\n  #include \"b\"  \nvoid main() {}\n")
	require.NoError(t, err)
	assert.Equal(t, "#version 410 core\nfloat a() { return 1.0; }\nfloat b() { return a(); }\nvoid main() {}\n", out)

	plain := "void main() {}"
	out, err = lib.Expand(plain)
	require.NoError(t, err)
	assert.Equal(t, plain, out)

	_, err = lib.Expand("#include \"missing\"\n")
	assert.ErrorIs(t, err, ErrConstruction)

	_, err = lib.Expand("#include \"loop\"\n")
	assert.ErrorIs(t, err, ErrConstruction)
}

func TestIncludeName(t *testing.T) {
	tests := []struct {
		line string
		name string
		ok   bool
	}{
		{`#include "tonemap"`, "tonemap", true},
		{`	#include   "x"`, "x", true},
		{`#include <x>`, "", false},
		{`#include "`, "", false},
		{`// #include "x"`, "", false},
	}
	for _, tt := range tests {
		name, ok := includeName(tt.line)
		assert.Equal(t, tt.ok, ok, tt.line)
		assert.Equal(t, tt.name, name, tt.line)
	}
}
