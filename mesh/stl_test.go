package mesh

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSTL_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lumen.stl")
	orig := NewCylinderMesh(1.5, -5, 5, 24)
	require.NoError(t, SaveSTL(path, orig))

	loaded, err := LoadSTL(path)
	require.NoError(t, err)
	require.Len(t, loaded.Triangles, len(orig.Triangles))
	for i := range orig.Triangles {
		for k := 0; k < 3; k++ {
			assert.InDelta(t, orig.Triangles[i][k].X, loaded.Triangles[i][k].X, 1e-5)
			assert.InDelta(t, orig.Triangles[i][k].Y, loaded.Triangles[i][k].Y, 1e-5)
			assert.InDelta(t, orig.Triangles[i][k].Z, loaded.Triangles[i][k].Z, 1e-5)
		}
	}

	cutter, err := STLSurface{Path: path}.Surface()
	require.NoError(t, err)
	raw, err := cutter.Cut(context.Background(), Vec3{X: 1}, Vec3{X: 1})
	require.NoError(t, err)
	assert.Len(t, raw, 48)
}

func TestSTLSurface_Errors(t *testing.T) {
	_, err := STLSurface{}.Surface()
	assert.True(t, errors.Is(err, ErrInput))

	_, err = STLSurface{Path: filepath.Join(t.TempDir(), "missing.stl")}.Surface()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInput))
	assert.Contains(t, err.Error(), "not found")
}

func TestReadSTL_Garbage(t *testing.T) {
	_, err := ReadSTL(strings.NewReader("definitely not an stl"))
	assert.Error(t, err)
}

func TestLoadSTL_Garbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.stl")
	require.NoError(t, os.WriteFile(path, []byte{1, 2, 3}, 0644))
	_, err := LoadSTL(path)
	assert.Error(t, err)
}
