package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name string `yaml:"name"`
	Port int    `yaml:"port"`
}

func (s *sample) Validate() error {
	if s.Port <= 0 {
		return errors.New("port must be positive")
	}
	return nil
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("JOTTER_TEST_NAME", "from-env")
	path := writeConfig(t, "name: ${JOTTER_TEST_NAME}\nport: 9000\n")

	var s sample
	require.NoError(t, Load(path, &s))
	assert.Equal(t, "from-env", s.Name)
	assert.Equal(t, 9000, s.Port)
}

func TestLoad_Validates(t *testing.T) {
	path := writeConfig(t, "name: x\nport: 0\n")

	var s sample
	err := Load(path, &s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "port must be positive")
}

func TestLoadOptional_MissingKeepsDefaults(t *testing.T) {
	s := sample{Name: "default", Port: 9000}
	found, err := LoadOptional(filepath.Join(t.TempDir(), "absent.yaml"), &s)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, "default", s.Name)
}

func TestLoadOptional_OverridesDefaults(t *testing.T) {
	path := writeConfig(t, "port: 8081\n")
	s := sample{Name: "default", Port: 9000}

	found, err := LoadOptional(path, &s)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "default", s.Name)
	assert.Equal(t, 8081, s.Port)
}

func TestLoad_BadYAML(t *testing.T) {
	path := writeConfig(t, "port: [\n")
	var s sample
	assert.Error(t, Load(path, &s))
}
