// Package compose reports the state of a repository's compose deployment:
// service names from its compose file, live container state from the
// Docker Engine API. Only the dashboard reads this; nothing here runs
// commands or mutates containers.
package compose

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// File is the compose file every deployment carries at its repository
// root.
const File = "docker-compose.yml"

// Services returns the sorted service names declared in dir's compose
// file. A missing compose file means nothing is deployable there: an empty
// list, not an error.
func Services(dir string) ([]string, error) {
	data, err := os.ReadFile(filepath.Join(dir, File))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read compose file: %w", err)
	}

	var doc struct {
		Services map[string]yaml.Node `yaml:"services"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse compose file: %w", err)
	}

	names := make([]string, 0, len(doc.Services))
	for name := range doc.Services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// ProjectName derives the compose project name for a working directory the
// way compose does by default: the directory basename, lowercased, with
// characters outside [a-z0-9_-] dropped.
func ProjectName(dir string) string {
	base := strings.ToLower(filepath.Base(dir))
	var b strings.Builder
	for _, r := range base {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' || r == '-' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
