package project

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectGoProject(t *testing.T) {
	dir := t.TempDir()
	gomod := "module example.com/api\n\nrequire (\n\tgithub.com/go-chi/chi/v5 v5.2.0\n\tgithub.com/spf13/cobra v1.9.1\n)\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "go.mod"), []byte(gomod), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Makefile"), []byte("all:\n"), 0o644))

	ctx := Detect(dir)

	assert.Equal(t, filepath.Base(dir), ctx.Name)
	assert.Equal(t, "go", ctx.Language)
	assert.ElementsMatch(t, []string{"chi", "cobra"}, ctx.Frameworks)
	assert.Contains(t, ctx.Tools, "make")
	assert.GreaterOrEqual(t, ctx.Confidence, 0.9)
	assert.False(t, ctx.Git.IsRepo)
}

func TestDetectNodeProject(t *testing.T) {
	dir := t.TempDir()
	pkg := `{"dependencies": {"react": "^18.0.0", "express": "^4.18.0"}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "package.json"), []byte(pkg), 0o644))

	ctx := Detect(dir)

	assert.Equal(t, "javascript", ctx.Language)
	assert.ElementsMatch(t, []string{"react", "express"}, ctx.Frameworks)
}

func TestDetectBareDirectory(t *testing.T) {
	ctx := Detect(t.TempDir())

	assert.Empty(t, ctx.Language)
	assert.Equal(t, 0.3, ctx.Confidence)
}

func TestTags(t *testing.T) {
	ctx := &Context{Name: "Acme", Language: "Go", Frameworks: []string{"Chi"}}

	assert.Equal(t, []string{"acme", "go", "chi"}, ctx.Tags())
}
