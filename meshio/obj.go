package meshio

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	glm "github.com/go-gl/mathgl/mgl32"

	"render-core/core"
)

// objFace is an already-triangulated face (three vertex references).
type objFace struct {
	vIdx, vtIdx, vnIdx [3]int // 0-based position / UV / normal indices (-1 = absent)
}

type faceVertex struct{ v, vt, vn int }

// LoadOBJ parses a Wavefront .obj file and returns one mesh per
// object or group. Materials are ignored.
func LoadOBJ(path string) ([]*core.MeshData, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open obj %q: %w", path, err)
	}
	defer f.Close()

	meshes, err := ReadOBJ(f)
	if err != nil {
		return nil, fmt.Errorf("obj %q: %w", path, err)
	}
	return meshes, nil
}

// ReadOBJ parses Wavefront OBJ text.
func ReadOBJ(r io.Reader) ([]*core.MeshData, error) {
	var positions []glm.Vec3
	var normals []glm.Vec3
	var uvs []glm.Vec2

	type objObject struct {
		name  string
		faces []objFace
	}
	var objects []objObject
	cur := &objObject{name: "default"}

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)

		switch fields[0] {
		case "v", "vn":
			v, err := parseFloats(fields[1:], 3)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			if fields[0] == "v" {
				positions = append(positions, glm.Vec3{v[0], v[1], v[2]})
			} else {
				normals = append(normals, glm.Vec3{v[0], v[1], v[2]})
			}

		case "vt":
			v, err := parseFloats(fields[1:], 2)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			uvs = append(uvs, glm.Vec2{v[0], v[1]})

		case "o", "g":
			if len(cur.faces) > 0 {
				objects = append(objects, *cur)
			}
			name := "default"
			if len(fields) > 1 {
				name = fields[1]
			}
			cur = &objObject{name: name}

		case "f":
			if len(fields) < 4 {
				return nil, fmt.Errorf("line %d: face with %d vertices", lineNo, len(fields)-1)
			}
			fverts := make([]faceVertex, 0, len(fields)-1)
			for _, tok := range fields[1:] {
				fv, err := parseFaceVertex(tok, len(positions), len(uvs), len(normals))
				if err != nil {
					return nil, fmt.Errorf("line %d: %w", lineNo, err)
				}
				fverts = append(fverts, fv)
			}
			// Fan triangulation: 0-1-2, 0-2-3, 0-3-4, ...
			for i := 1; i+1 < len(fverts); i++ {
				f0, f1, f2 := fverts[0], fverts[i], fverts[i+1]
				cur.faces = append(cur.faces, objFace{
					vIdx:  [3]int{f0.v, f1.v, f2.v},
					vtIdx: [3]int{f0.vt, f1.vt, f2.vt},
					vnIdx: [3]int{f0.vn, f1.vn, f2.vn},
				})
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan obj: %w", err)
	}

	if len(cur.faces) > 0 {
		objects = append(objects, *cur)
	}
	if len(objects) == 0 {
		return nil, fmt.Errorf("no geometry found")
	}

	meshes := make([]*core.MeshData, 0, len(objects))
	for _, obj := range objects {
		meshes = append(meshes, buildMeshFromOBJ(obj.name, obj.faces, positions, normals, uvs))
	}
	return meshes, nil
}

func parseFloats(fields []string, n int) ([]float32, error) {
	if len(fields) < n {
		return nil, fmt.Errorf("want %d components, got %d", n, len(fields))
	}
	out := make([]float32, n)
	for i := range out {
		f, err := strconv.ParseFloat(fields[i], 32)
		if err != nil {
			return nil, err
		}
		out[i] = float32(f)
	}
	return out, nil
}

// parseFaceVertex parses one face vertex token: "v", "v/vt", "v//vn",
// "v/vt/vn". OBJ indices are 1-based; negative ones count back from
// the last element read so far. Returns 0-based indices, -1 if absent.
func parseFaceVertex(tok string, nv, nvt, nvn int) (faceVertex, error) {
	parseIdx := func(s string, count int) (int, error) {
		if s == "" {
			return -1, nil
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return -1, fmt.Errorf("face index %q: %w", s, err)
		}
		switch {
		case n > 0 && n <= count:
			return n - 1, nil
		case n < 0 && -n <= count:
			return count + n, nil
		}
		return -1, fmt.Errorf("face index %d out of range (%d elements)", n, count)
	}

	parts := strings.Split(tok, "/")
	res := faceVertex{v: -1, vt: -1, vn: -1}
	var err error
	if res.v, err = parseIdx(parts[0], nv); err != nil {
		return res, err
	}
	if res.v < 0 {
		return res, fmt.Errorf("face vertex %q has no position", tok)
	}
	if len(parts) > 1 {
		if res.vt, err = parseIdx(parts[1], nvt); err != nil {
			return res, err
		}
	}
	if len(parts) > 2 {
		if res.vn, err = parseIdx(parts[2], nvn); err != nil {
			return res, err
		}
	}
	return res, nil
}

// buildMeshFromOBJ converts parsed face data into a deduplicated mesh.
func buildMeshFromOBJ(name string, faces []objFace, positions, normals []glm.Vec3, uvs []glm.Vec2) *core.MeshData {
	type key struct{ v, vt, vn int }
	vertMap := map[key]uint32{}
	m := &core.MeshData{Name: name}

	hasNormals := true
	for _, face := range faces {
		for c := 0; c < 3; c++ {
			k := key{face.vIdx[c], face.vtIdx[c], face.vnIdx[c]}
			if idx, ok := vertMap[k]; ok {
				m.Indices = append(m.Indices, idx)
				continue
			}
			v := core.Vertex{Position: positions[k.v]}
			if k.vn >= 0 {
				v.Normal = normals[k.vn]
			} else {
				hasNormals = false
			}
			if k.vt >= 0 {
				v.UV = uvs[k.vt]
			}
			idx := uint32(len(m.Vertices))
			m.Vertices = append(m.Vertices, v)
			vertMap[k] = idx
			m.Indices = append(m.Indices, idx)
		}
	}

	if !hasNormals {
		m.ComputeNormals()
	}
	return m
}
