package problem

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocatorFindsSourceLayout(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, filepath.Join(dir, "default_grader", "default_grader"), `echo "AC 1.0"`)

	l := NewLocator(dir)
	assert.NotNil(t, l.DefaultGrader())
	assert.Nil(t, l.DefaultValidator())
	assert.Nil(t, l.Interactive())
}

func TestLocatorFindsInstalledLayout(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, filepath.Join(dir, "default_validator"), "exit 42")

	l := NewLocator(dir)
	assert.NotNil(t, l.DefaultValidator())
}

func TestLocatorSearchOrder(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()
	writeScript(t, filepath.Join(second, "interactive", "interactive"), "exit 0")

	l := NewLocator(first, second)
	require.NotNil(t, l.Interactive())
}

func TestLocatorIgnoresNonExecutable(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "default_grader"), "not a program")

	l := NewLocator(dir)
	assert.Nil(t, l.DefaultGrader())
}

func TestDefaultLocatorHonorsEnvOverride(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, filepath.Join(dir, "default_grader", "default_grader"), `echo "AC 1.0"`)
	t.Setenv(supportHomeEnv, dir)

	l := DefaultLocator()
	assert.NotNil(t, l.DefaultGrader())
}
