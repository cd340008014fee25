package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

const versionLayout = "20060102150405"

// DialectDirs are the per-dialect subdirectories of a migrations root. Every
// schema change ships once for each.
var DialectDirs = []string{"postgres", "sqlite"}

var slugRe = regexp.MustCompile(`[^a-z0-9]+`)

func slugify(name string) string {
	return strings.Trim(slugRe.ReplaceAllString(strings.ToLower(name), "_"), "_")
}

// CreateSQLMigration writes an empty goose migration with the same version
// into every dialect directory under root and returns the created paths.
func CreateSQLMigration(root, name string) ([]string, error) {
	if root == "" {
		return nil, fmt.Errorf("root is required")
	}
	slug := slugify(name)
	if slug == "" {
		return nil, fmt.Errorf("migration name %q has no usable characters", name)
	}

	version := time.Now().UTC().Format(versionLayout)
	filename := version + "_" + slug + ".sql"

	paths := make([]string, 0, len(DialectDirs))
	for _, dialectDir := range DialectDirs {
		dir := filepath.Join(root, dialectDir)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return paths, fmt.Errorf("mkdir %q: %w", dir, err)
		}
		path := filepath.Join(dir, filename)
		if _, err := os.Stat(path); err == nil {
			return paths, fmt.Errorf("migration already exists: %s", path)
		}
		body := fmt.Sprintf("-- +goose Up\n-- %s (%s)\n\n-- +goose Down\n-- revert %s\n", slug, dialectDir, slug)
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			return paths, fmt.Errorf("write %q: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
