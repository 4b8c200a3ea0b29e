package meshio

import (
	"fmt"

	glm "github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	log "github.com/sirupsen/logrus"

	"render-core/core"
)

// LoadGLTF opens a .glb or .gltf file and returns one mesh per
// triangle primitive, in world space. Node transforms of the default
// scene are applied; a file without nodes yields its meshes as stored.
func LoadGLTF(path string) ([]*core.MeshData, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("gltf open %q: %w", path, err)
	}

	var meshes []*core.MeshData
	emit := func(meshIdx int, world glm.Mat4) {
		gm := doc.Meshes[meshIdx]
		for pi, prim := range gm.Primitives {
			if prim.Mode != gltf.PrimitiveTriangles {
				log.WithFields(log.Fields{"mesh": gm.Name, "primitive": pi, "mode": prim.Mode}).Warn("gltf: skipping non-triangle primitive")
				continue
			}
			m, err := loadGLTFPrimitive(doc, gm.Name, pi, prim)
			if err != nil {
				log.WithError(err).WithFields(log.Fields{"mesh": meshIdx, "primitive": pi}).Warn("gltf: skipping primitive")
				continue
			}
			transformMesh(m, world)
			meshes = append(meshes, m)
		}
	}

	roots := rootNodes(doc)
	if len(roots) == 0 {
		for i := range doc.Meshes {
			emit(i, glm.Ident4())
		}
	}
	var walk func(idx int, parent glm.Mat4, depth int)
	walk = func(idx int, parent glm.Mat4, depth int) {
		if idx < 0 || idx >= len(doc.Nodes) || depth > len(doc.Nodes) {
			return
		}
		n := doc.Nodes[idx]
		world := parent.Mul4(nodeMatrix(n))
		if n.Mesh != nil && *n.Mesh < len(doc.Meshes) {
			emit(*n.Mesh, world)
		}
		for _, c := range n.Children {
			walk(c, world, depth+1)
		}
	}
	for _, r := range roots {
		walk(r, glm.Ident4(), 0)
	}

	if len(meshes) == 0 {
		return nil, fmt.Errorf("no geometry found in %q", path)
	}
	return meshes, nil
}

// rootNodes returns the nodes of the default scene, or every node
// without a parent when there is no default scene.
func rootNodes(doc *gltf.Document) []int {
	if doc.Scene != nil && *doc.Scene < len(doc.Scenes) {
		return doc.Scenes[*doc.Scene].Nodes
	}
	hasParent := make([]bool, len(doc.Nodes))
	for _, gn := range doc.Nodes {
		for _, c := range gn.Children {
			if c < len(hasParent) {
				hasParent[c] = true
			}
		}
	}
	var roots []int
	for i := range doc.Nodes {
		if !hasParent[i] {
			roots = append(roots, i)
		}
	}
	return roots
}

// nodeMatrix returns the local transform of n: its matrix if set,
// else translation × rotation × scale.
func nodeMatrix(n *gltf.Node) glm.Mat4 {
	if n.Matrix != [16]float64{} && n.Matrix != gltf.DefaultMatrix {
		var m glm.Mat4
		for i, v := range n.Matrix {
			m[i] = float32(v)
		}
		return m
	}
	t := n.TranslationOrDefault()
	r := n.RotationOrDefault() // [x, y, z, w]
	s := n.ScaleOrDefault()
	q := glm.Quat{W: float32(r[3]), V: glm.Vec3{float32(r[0]), float32(r[1]), float32(r[2])}}
	return glm.Translate3D(float32(t[0]), float32(t[1]), float32(t[2])).
		Mul4(q.Mat4()).
		Mul4(glm.Scale3D(float32(s[0]), float32(s[1]), float32(s[2])))
}

func transformMesh(m *core.MeshData, world glm.Mat4) {
	if world == glm.Ident4() {
		return
	}
	normalMat := world.Mat3().Inv().Transpose()
	for i := range m.Vertices {
		v := &m.Vertices[i]
		v.Position = world.Mul4x1(v.Position.Vec4(1)).Vec3()
		if n := normalMat.Mul3x1(v.Normal); n.Len() > 0 {
			v.Normal = n.Normalize()
		}
	}
}

// loadGLTFPrimitive converts one glTF mesh primitive into a MeshData.
func loadGLTFPrimitive(doc *gltf.Document, meshName string, primIdx int, prim *gltf.Primitive) (*core.MeshData, error) {
	name := fmt.Sprintf("%s_p%d", meshName, primIdx)
	if meshName == "" {
		name = fmt.Sprintf("prim_%d", primIdx)
	}

	posIdx, ok := prim.Attributes[gltf.POSITION]
	if !ok {
		return nil, fmt.Errorf("no POSITION attribute")
	}
	positions, err := modeler.ReadPosition(doc, doc.Accessors[posIdx], nil)
	if err != nil {
		return nil, fmt.Errorf("positions: %w", err)
	}

	var normals [][3]float32
	var uvs [][2]float32
	if idx, ok := prim.Attributes[gltf.NORMAL]; ok {
		normals, _ = modeler.ReadNormal(doc, doc.Accessors[idx], nil)
	}
	if idx, ok := prim.Attributes[gltf.TEXCOORD_0]; ok {
		uvs, _ = modeler.ReadTextureCoord(doc, doc.Accessors[idx], nil)
	}

	verts := make([]core.Vertex, len(positions))
	for i, p := range positions {
		v := core.Vertex{Position: glm.Vec3(p)}
		if i < len(normals) {
			v.Normal = glm.Vec3(normals[i])
		}
		if i < len(uvs) {
			v.UV = glm.Vec2(uvs[i])
		}
		verts[i] = v
	}

	var indices []uint32
	if prim.Indices != nil {
		indices, err = modeler.ReadIndices(doc, doc.Accessors[*prim.Indices], nil)
		if err != nil {
			return nil, fmt.Errorf("indices: %w", err)
		}
	} else {
		indices = make([]uint32, len(verts))
		for i := range indices {
			indices[i] = uint32(i)
		}
	}
	for _, idx := range indices {
		if int(idx) >= len(verts) {
			return nil, fmt.Errorf("index %d out of range (%d vertices)", idx, len(verts))
		}
	}

	m := &core.MeshData{Name: name, Vertices: verts, Indices: indices}
	if len(normals) == 0 {
		m.ComputeNormals()
	}
	return m, nil
}
