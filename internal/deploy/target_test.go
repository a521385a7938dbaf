package deploy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	r := NewResolver("/var/deploy", "s3cret")

	target, err := r.Resolve("webapp", "operator/webapp")
	require.NoError(t, err)
	assert.Equal(t, "webapp", target.Repo)
	assert.Equal(t, filepath.Join("/var/deploy", "webapp"), target.Dir)
	assert.Equal(t, "https://s3cret@github.com/operator/webapp.git", target.CloneURL)
}

func TestResolveRequiresFullName(t *testing.T) {
	r := NewResolver("/var/deploy", "s3cret")

	_, err := r.Resolve("webapp", "")
	assert.ErrorIs(t, err, ErrMissingCredentialContext)
}

func TestResolveRejectsBadNames(t *testing.T) {
	r := NewResolver("/var/deploy", "s3cret")

	for _, name := range []string{"", ".", "..", "a/b", `a\b`, "../escape"} {
		t.Run(name, func(t *testing.T) {
			_, err := r.Resolve(name, "operator/webapp")
			assert.ErrorIs(t, err, ErrMissingTarget)
		})
	}
}

func TestClonedChecksFreshEveryCall(t *testing.T) {
	r := NewResolver(t.TempDir(), "s3cret")
	target, err := r.Resolve("webapp", "operator/webapp")
	require.NoError(t, err)

	assert.False(t, r.Cloned(target))

	gitDir := filepath.Join(target.Dir, ".git")
	require.NoError(t, os.MkdirAll(gitDir, 0o755))
	assert.True(t, r.Cloned(target))

	require.NoError(t, os.RemoveAll(target.Dir))
	assert.False(t, r.Cloned(target))
}

func TestClonedIgnoresGitFile(t *testing.T) {
	// A plain .git file (as in worktrees or submodules) is not treated as
	// an initialized working copy.
	r := NewResolver(t.TempDir(), "s3cret")
	target, err := r.Resolve("webapp", "operator/webapp")
	require.NoError(t, err)

	require.NoError(t, os.MkdirAll(target.Dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(target.Dir, ".git"), []byte("gitdir: elsewhere"), 0o644))
	assert.False(t, r.Cloned(target))
}
