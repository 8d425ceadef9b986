package templates

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSeedFileParsesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pto.yaml")
	content := "title: Paid Time Off\ncode: pto\ndescription: standard PTO policy\ntemplate_html: \"<p>PTO</p>\"\ngroup: hr\nversion: \"2.0\"\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	tmpl, err := loadSeedFile(path)
	require.NoError(t, err)
	assert.Equal(t, "pto", tmpl.Code)
	assert.Equal(t, "Paid Time Off", tmpl.Title)
	assert.Equal(t, "2.0", tmpl.Version)
}

func TestLoadSeedFileDefaultsVersion(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "remote.yaml")
	content := "title: Remote Work\ncode: remote-work\ntemplate_html: \"<p>Remote</p>\"\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	tmpl, err := loadSeedFile(path)
	require.NoError(t, err)
	assert.Equal(t, "1.0", tmpl.Version)
}

func TestLoadSeedFileRejectsMissingCode(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("title: No Code\n"), 0o644))

	_, err := loadSeedFile(path)
	assert.Error(t, err)
}

func TestIsSeedFile(t *testing.T) {
	assert.True(t, isSeedFile("foo.yaml"))
	assert.True(t, isSeedFile("foo.yml"))
	assert.False(t, isSeedFile("foo.txt"))
	assert.False(t, isSeedFile("foo"))
}
