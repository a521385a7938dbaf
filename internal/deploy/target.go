package deploy

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Target is the resolved repository identity for one invocation: where it
// deploys on disk and where it clones from. A Target is immutable for the
// life of the invocation that holds it.
type Target struct {
	// Repo is the repository name; it names the deployment directory.
	Repo string
	// FullName is the owner-qualified remote name (owner/repo).
	FullName string
	// Dir is the working directory under the deploy root.
	Dir string
	// CloneURL is the HTTPS remote URL with the access token embedded.
	CloneURL string
}

// Resolver derives deployment paths and clone URLs. Every working
// directory lives directly under a single deploy root, named by the
// repository, so deletion of that directory removes all per-repository
// state.
type Resolver struct {
	root  string
	token string
}

// NewResolver returns a Resolver rooted at root, embedding token into
// clone URLs.
func NewResolver(root, token string) *Resolver {
	return &Resolver{root: root, token: token}
}

// Resolve builds the Target for a repository. fullName is the
// owner-qualified remote name; without it no authenticated clone URL
// exists and Resolve fails with ErrMissingCredentialContext.
func (r *Resolver) Resolve(name, fullName string) (Target, error) {
	if err := validRepoName(name); err != nil {
		return Target{}, err
	}
	if fullName == "" {
		return Target{}, ErrMissingCredentialContext
	}
	return Target{
		Repo:     name,
		FullName: fullName,
		Dir:      filepath.Join(r.root, name),
		CloneURL: fmt.Sprintf("https://%s@github.com/%s.git", r.token, fullName),
	}, nil
}

// Cloned reports whether the target's working directory holds an
// initialized working copy. The check is evaluated fresh on every
// invocation: the directory may have been deleted or created since the
// last one.
func (r *Resolver) Cloned(t Target) bool {
	info, err := os.Stat(filepath.Join(t.Dir, ".git"))
	return err == nil && info.IsDir()
}

// Root returns the deploy root all working directories live under.
func (r *Resolver) Root() string {
	return r.root
}

func validRepoName(name string) error {
	if name == "" {
		return ErrMissingTarget
	}
	if name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("repository name %q: %w", name, ErrMissingTarget)
	}
	return nil
}
