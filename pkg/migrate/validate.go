package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

var migrationFileRe = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)

// ValidateDir checks a single dialect directory and returns its versions in
// ascending order.
func ValidateDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", dir, err)
	}

	byVersion := make(map[string]string, len(entries))
	versions := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".sql" {
			continue
		}
		match := migrationFileRe.FindStringSubmatch(name)
		if match == nil {
			return nil, fmt.Errorf("%s: bad filename %q, want <version>_<name>.sql", dir, name)
		}
		if other, dup := byVersion[match[1]]; dup {
			return nil, fmt.Errorf("%s: version %s used by %q and %q", dir, match[1], other, name)
		}
		byVersion[match[1]] = name

		raw, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("read %q: %w", name, err)
		}
		for _, marker := range []string{"-- +goose Up", "-- +goose Down"} {
			if !strings.Contains(string(raw), marker) {
				return nil, fmt.Errorf("%s: %q lacks %q", dir, name, marker)
			}
		}
		versions = append(versions, match[1])
	}
	sort.Strings(versions)
	return versions, nil
}

// ValidateTree validates every dialect directory under root and requires them
// to carry the same set of versions.
func ValidateTree(root string) error {
	if root == "" {
		return fmt.Errorf("root is required")
	}
	var (
		reference    []string
		referenceDir string
	)
	for _, dialectDir := range DialectDirs {
		versions, err := ValidateDir(filepath.Join(root, dialectDir))
		if err != nil {
			return err
		}
		if referenceDir == "" {
			reference, referenceDir = versions, dialectDir
			continue
		}
		if missing := diffVersions(reference, versions); len(missing) > 0 {
			return fmt.Errorf("%s is missing versions %s present in %s", dialectDir, strings.Join(missing, ", "), referenceDir)
		}
		if extra := diffVersions(versions, reference); len(extra) > 0 {
			return fmt.Errorf("%s is missing versions %s present in %s", referenceDir, strings.Join(extra, ", "), dialectDir)
		}
	}
	return nil
}

// diffVersions returns the entries of want absent from have.
func diffVersions(want, have []string) []string {
	present := make(map[string]struct{}, len(have))
	for _, v := range have {
		present[v] = struct{}{}
	}
	var missing []string
	for _, v := range want {
		if _, ok := present[v]; !ok {
			missing = append(missing, v)
		}
	}
	return missing
}
