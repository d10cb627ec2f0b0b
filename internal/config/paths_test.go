package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewExperimentPaths(t *testing.T) {
	root := t.TempDir()
	paths := NewExperimentPaths(root, "Hall Coil")

	assert.Equal(t, "hall-coil", paths.Experiment)
	assert.Equal(t, filepath.Join(root, "hall-coil", "output"), paths.BaseDir)
	assert.Equal(t, filepath.Join(root, "hall-coil", "output", "data", "input.csv"), paths.InputFile)
	assert.Equal(t, filepath.Join(paths.DataDir, "20251116+output.csv"), paths.TableFile("20251116"))
	assert.Equal(t, filepath.Join(paths.DataDir, "20251116+output.txt"), paths.LogFile("20251116"))
	assert.Equal(t, filepath.Join(paths.DataDir, "20251116+output.xlsx"), paths.WorkbookFile("20251116"))
	assert.Equal(t, filepath.Join(paths.ImageDir, "20251116+output.png"), paths.ChartFile("20251116", "png"))
}

func TestExperimentPaths_WithInput(t *testing.T) {
	paths := NewExperimentPaths("/lab", "ohm")

	t.Run("empty keeps default", func(t *testing.T) {
		assert.Same(t, paths, paths.WithInput(""))
	})

	t.Run("relative resolves in data dir", func(t *testing.T) {
		got := paths.WithInput("run2.csv")
		assert.Equal(t, filepath.Join(paths.DataDir, "run2.csv"), got.InputFile)
		assert.Equal(t, filepath.Join(paths.DataDir, "input.csv"), paths.InputFile)
	})

	t.Run("absolute is kept", func(t *testing.T) {
		abs := filepath.Join(t.TempDir(), "x.csv")
		assert.Equal(t, abs, paths.WithInput(abs).InputFile)
	})
}
