package compose

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServices(t *testing.T) {
	dir := t.TempDir()
	content := `
services:
  web:
    image: nginx
    ports: ["80:80"]
  db:
    image: postgres:16
  worker:
    build: .
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, File), []byte(content), 0o644))

	names, err := Services(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"db", "web", "worker"}, names)
}

func TestServicesMissingComposeFile(t *testing.T) {
	names, err := Services(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestServicesRejectsMalformedYAML(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, File), []byte("services: ["), 0o644))

	_, err := Services(dir)
	assert.Error(t, err)
}

func TestProjectName(t *testing.T) {
	tests := []struct {
		dir  string
		want string
	}{
		{"/var/deploy/webapp", "webapp"},
		{"/var/deploy/WebApp", "webapp"},
		{"/var/deploy/my.app", "myapp"},
		{"/var/deploy/my_app-2", "my_app-2"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ProjectName(tt.dir), tt.dir)
	}
}
