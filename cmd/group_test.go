package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"testing"

	"photo-grouper/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePNG(t *testing.T, path string, c color.Color) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 6, 6))
	for y := 0; y < 6; y++ {
		for x := 0; x < 6; x++ {
			img.Set(x, y, c)
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func runRoot(t *testing.T, args ...string) (models.BatchResponse, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)

	err := root.ExecuteContext(context.Background())

	var resp models.BatchResponse
	if out.Len() > 0 {
		require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	}
	return resp, err
}

func TestGroupCommandWithStub(t *testing.T) {
	t.Setenv("CATEGORIES_FILE", "")
	dir := t.TempDir()
	front := filepath.Join(dir, "front.png")
	side := filepath.Join(dir, "side.png")
	back := filepath.Join(dir, "back.png")
	writePNG(t, front, color.RGBA{R: 200, A: 255})
	writePNG(t, side, color.RGBA{G: 200, A: 255})
	writePNG(t, back, color.RGBA{R: 200, A: 255})

	resp, err := runRoot(t, "group", "--provider", "stub", front, side, back)
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.Equal(t, 3, resp.ProcessedCount)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, []string{"front.png", "back.png"}, resp.Results[0].Filenames)
	assert.Equal(t, []string{"side.png"}, resp.Results[1].Filenames)
}

func TestGroupCommandWithCategories(t *testing.T) {
	dir := t.TempDir()
	categories := filepath.Join(dir, "categories.yaml")
	require.NoError(t, os.WriteFile(categories, []byte("- name: Furniture\n  subcategories: [Chairs]\n"), 0644))
	t.Setenv("CATEGORIES_FILE", categories)

	photo := filepath.Join(dir, "chair.png")
	writePNG(t, photo, color.White)

	resp, err := runRoot(t, "group", "--provider", "stub", photo)
	require.NoError(t, err)
	assert.Len(t, resp.Results, 1)
}

func TestGroupCommandNoValidItems(t *testing.T) {
	t.Setenv("CATEGORIES_FILE", "")
	dir := t.TempDir()
	notes := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(notes, []byte("not a photo"), 0644))

	resp, err := runRoot(t, "group", "--provider", "stub", notes)

	require.Error(t, err)
	assert.False(t, resp.Success)
	require.Len(t, resp.RejectedFiles, 1)
	assert.Equal(t, "notes.txt", resp.RejectedFiles[0].Filename)
}

func TestGroupCommandMissingFile(t *testing.T) {
	_, err := runRoot(t, "group", "--provider", "stub", filepath.Join(t.TempDir(), "missing.jpg"))
	assert.Error(t, err)
}

func TestGroupCommandRejectsUnknownProvider(t *testing.T) {
	_, err := runRoot(t, "group", "--provider", "watson", "a.jpg")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}
