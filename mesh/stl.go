package mesh

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/hschendel/stl"
)

// STLSurface is a SurfaceProvider that loads a binary or ASCII STL file.
type STLSurface struct {
	Path string
}

// Surface implements SurfaceProvider.
func (s STLSurface) Surface() (SectionCutter, error) {
	if s.Path == "" {
		return nil, fmt.Errorf("%w: surface path is empty", ErrInput)
	}
	m, err := LoadSTL(s.Path)
	if err != nil {
		return nil, err
	}
	return m.Surface()
}

// LoadSTL reads an STL file into a TriangleMesh
func LoadSTL(path string) (*TriangleMesh, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: surface file not found: %s", ErrInput, path)
		}
		return nil, fmt.Errorf("opening surface: %w", err)
	}
	defer f.Close()
	return ReadSTL(f)
}

// ReadSTL decodes STL data from r.
func ReadSTL(r io.Reader) (*TriangleMesh, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading STL: %w", err)
	}
	solid, err := stl.ReadAll(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: parsing STL: %v", ErrInput, err)
	}
	return meshFromSolid(solid), nil
}

func meshFromSolid(solid *stl.Solid) *TriangleMesh {
	tris := make([]Triangle, len(solid.Triangles))
	for i, t := range solid.Triangles {
		for k, v := range t.Vertices {
			tris[i][k] = Vec3{X: float64(v[0]), Y: float64(v[1]), Z: float64(v[2])}
		}
	}
	return &TriangleMesh{Triangles: tris}
}

// SaveSTL writes the mesh as a binary STL file.
func SaveSTL(path string, m *TriangleMesh) error {
	solid := &stl.Solid{Name: "lumen", Triangles: make([]stl.Triangle, len(m.Triangles))}
	for i, t := range m.Triangles {
		for k, v := range t {
			solid.Triangles[i].Vertices[k] = stl.Vec3{float32(v.X), float32(v.Y), float32(v.Z)}
		}
	}
	solid.RecalculateNormals()
	if err := solid.WriteFile(path); err != nil {
		return fmt.Errorf("writing STL: %w", err)
	}
	return nil
}
