// Package meshio loads triangle meshes from glTF and Wavefront OBJ files.
package meshio

import (
	"fmt"
	"path/filepath"
	"strings"

	"render-core/core"
)

// Load picks a loader by file extension.
func Load(path string) ([]*core.MeshData, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gltf", ".glb":
		return LoadGLTF(path)
	case ".obj":
		return LoadOBJ(path)
	}
	return nil, fmt.Errorf("unsupported mesh format %q", filepath.Ext(path))
}

// Merge concatenates meshes into one, offsetting indices.
func Merge(name string, meshes []*core.MeshData) *core.MeshData {
	out := &core.MeshData{Name: name}
	for _, m := range meshes {
		base := uint32(len(out.Vertices))
		out.Vertices = append(out.Vertices, m.Vertices...)
		for _, idx := range m.Indices {
			out.Indices = append(out.Indices, base+idx)
		}
	}
	return out
}
