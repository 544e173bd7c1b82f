package migrate

import (
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"strings"
)

var sqlFileRe = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)

var requiredAnnotations = []string{"-- +goose Up", "-- +goose Down"}

// ValidateDir checks the migrations in a directory on disk.
func ValidateDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("dir is required")
	}
	return Validate(Directory(dir))
}

// Validate checks filenames, version uniqueness and goose annotations. Every
// StatementBegin must be closed before the next section starts.
func Validate(src Source) error {
	if src.FS == nil || src.Dir == "" {
		return fmt.Errorf("migration source is required")
	}
	entries, err := fs.ReadDir(src.FS, src.Dir)
	if err != nil {
		return fmt.Errorf("read dir %q: %w", src.Dir, err)
	}

	seen := map[string]string{}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}

		m := sqlFileRe.FindStringSubmatch(name)
		if m == nil {
			return fmt.Errorf("invalid migration filename %q (expected YYYYMMDDHHMMSS_name.sql)", name)
		}
		if prev, ok := seen[m[1]]; ok {
			return fmt.Errorf("duplicate migration version %s in %q and %q", m[1], prev, name)
		}
		seen[m[1]] = name

		b, err := fs.ReadFile(src.FS, path.Join(src.Dir, name))
		if err != nil {
			return fmt.Errorf("read file %q: %w", name, err)
		}
		if err := checkAnnotations(name, string(b)); err != nil {
			return err
		}
	}
	return nil
}

func checkAnnotations(name, body string) error {
	for _, annotation := range requiredAnnotations {
		if !strings.Contains(body, annotation) {
			return fmt.Errorf("migration %q missing %q", name, annotation)
		}
	}
	open := 0
	for _, line := range strings.Split(body, "\n") {
		switch strings.TrimSpace(line) {
		case "-- +goose StatementBegin":
			open++
		case "-- +goose StatementEnd":
			open--
		case "-- +goose Up", "-- +goose Down":
			if open != 0 {
				return fmt.Errorf("migration %q has an unterminated StatementBegin", name)
			}
		}
		if open < 0 || open > 1 {
			return fmt.Errorf("migration %q has unbalanced statement blocks", name)
		}
	}
	if open != 0 {
		return fmt.Errorf("migration %q has an unterminated StatementBegin", name)
	}
	return nil
}
