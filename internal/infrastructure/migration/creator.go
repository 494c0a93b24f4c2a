package migration

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"text/template"
	"time"
)

const upTemplate = `-- {{.Name}}
-- Created: {{.Timestamp}}
{{- if .Description}}
-- {{.Description}}
{{- end}}

`

const downTemplate = `-- Rollback of {{.Name}}

`

// File is one up/down migration pair
type File struct {
	Version     uint
	Name        string
	Description string
	Timestamp   string
	UpPath      string
	DownPath    string
}

// BaseName returns the shared file prefix, e.g. 000003_create_settlement_records
func (f *File) BaseName() string {
	return fmt.Sprintf("%06d_%s", f.Version, sanitizeName(f.Name))
}

// CreateMigration writes an empty up/down pair numbered after the newest existing one
func CreateMigration(dir, name, description string) (*File, error) {
	if sanitizeName(name) == "" {
		return nil, fmt.Errorf("migration name %q has no usable characters", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create migrations directory: %w", err)
	}

	existing, err := ListMigrations(dir)
	if err != nil {
		return nil, err
	}
	var latest uint
	if len(existing) > 0 {
		latest = existing[len(existing)-1].Version
	}

	f := &File{
		Version:     latest + 1,
		Name:        name,
		Description: description,
		Timestamp:   time.Now().Format(time.RFC3339),
	}
	f.UpPath = filepath.Join(dir, f.BaseName()+".up.sql")
	f.DownPath = filepath.Join(dir, f.BaseName()+".down.sql")

	if err := writeTemplate(f.UpPath, upTemplate, f); err != nil {
		return nil, fmt.Errorf("failed to create up migration: %w", err)
	}
	if err := writeTemplate(f.DownPath, downTemplate, f); err != nil {
		_ = os.Remove(f.UpPath)
		return nil, fmt.Errorf("failed to create down migration: %w", err)
	}
	return f, nil
}

func writeTemplate(path, text string, data *File) error {
	tmpl, err := template.New("migration").Parse(text)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	out, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", path, err)
	}
	defer out.Close()

	return tmpl.Execute(out, data)
}

// sanitizeName lowercases name and keeps [a-z0-9] separated by single underscores
func sanitizeName(name string) string {
	var b strings.Builder
	pendingSep := false
	for _, c := range strings.ToLower(name) {
		switch {
		case (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9'):
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(c)
		case c == ' ' || c == '-' || c == '_':
			pendingSep = true
		}
	}
	return b.String()
}

// ListMigrations returns the up migrations in dir ordered by version.
// Files not named NNNNNN_name.up.sql are ignored.
func ListMigrations(dir string) ([]File, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var files []File
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".up.sql") {
			continue
		}
		base := strings.TrimSuffix(name, ".up.sql")
		prefix, rest, ok := strings.Cut(base, "_")
		if !ok {
			continue
		}
		version, err := strconv.ParseUint(prefix, 10, 32)
		if err != nil {
			continue
		}
		files = append(files, File{
			Version:  uint(version),
			Name:     rest,
			UpPath:   filepath.Join(dir, name),
			DownPath: filepath.Join(dir, base+".down.sql"),
		})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Version < files[j].Version })
	return files, nil
}
